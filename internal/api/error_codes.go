// internal/api/error_codes.go
package api

// API error code constants
const (
	// Generic
	ErrorBadRequest    = "BAD_REQUEST"
	ErrorNotFound      = "NOT_FOUND"
	ErrorInternalError = "INTERNAL_ERROR"
	ErrorConflict      = "CONFLICT"
	ErrorForbidden     = "FORBIDDEN"

	// Session and phase machine
	ErrorSessionNotFound      = "SESSION_NOT_FOUND"
	ErrorPhasePrecondition    = "PHASE_PRECONDITION_FAILED"
	ErrorPromptNotApproved    = "PROMPT_NOT_APPROVED"
	ErrorNarrativeMissing     = "NARRATIVE_NOT_READY"
	ErrorPlanNotReady         = "PLAN_NOT_READY"
	ErrorRefinementInvalid    = "REFINEMENT_INVALID"
	ErrorScenePlanInvalid     = "SCENE_PLAN_INVALID"
	ErrorAnswerInvalid        = "ANSWER_INVALID"
	ErrorWebhookConfigInvalid = "WEBHOOK_CONFIG_INVALID"

	// Upload
	ErrorFileUploadFailed = "FILE_UPLOAD_FAILED"
	ErrorFileInvalid      = "FILE_INVALID"
	ErrorFileTooLarge     = "FILE_TOO_LARGE"
	ErrorNoVideoUploaded  = "NO_VIDEO_UPLOADED"

	// LLM settings
	ErrorLLMServiceUnavailable = "LLM_SERVICE_UNAVAILABLE"
	ErrorLLMConfigInvalid      = "LLM_CONFIG_INVALID"

	// Media collaborators
	ErrorTranscriptionFailed  = "TRANSCRIPTION_FAILED"
	ErrorVisualAnalysisFailed = "VISUAL_ANALYSIS_FAILED"
)

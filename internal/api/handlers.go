// internal/api/handlers.go
package api

import (
	"fmt"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/litelis/FrameForge/internal/config"
	"github.com/litelis/FrameForge/internal/models"
	"github.com/litelis/FrameForge/internal/services"
	"github.com/litelis/FrameForge/internal/storage"
	"github.com/litelis/FrameForge/internal/utils"
)

// allowedVideoExtensions is the upload allowlist.
var allowedVideoExtensions = map[string]bool{
	".mp4":  true,
	".mov":  true,
	".avi":  true,
	".mkv":  true,
	".webm": true,
}

// Handler carries the service dependencies for all API endpoints.
type Handler struct {
	Sessions *services.SessionService
	Media    *services.MediaService
	Progress *services.ProgressService
	Notifier *services.NotifierService
	Config   *services.ConfigService
	LLM      *services.LLMService
	Storage  *storage.FileStorage
	Response *ResponseHelper
}

// NewHandler builds the API handler from container-provided services.
func NewHandler(
	sessions *services.SessionService,
	media *services.MediaService,
	progress *services.ProgressService,
	notifier *services.NotifierService,
	configService *services.ConfigService,
	llm *services.LLMService,
	store *storage.FileStorage,
) *Handler {
	return &Handler{
		Sessions: sessions,
		Media:    media,
		Progress: progress,
		Notifier: notifier,
		Config:   configService,
		LLM:      llm,
		Storage:  store,
		Response: NewResponseHelper(),
	}
}

// sessionRequest is the common request body carrying only a session ID.
type sessionRequest struct {
	SessionID string `json:"session_id"`
}

// ------------------------------------------------
// Upload

// UploadVideo accepts a multipart video upload and binds it to a session.
func (h *Handler) UploadVideo(c *gin.Context) {
	sessionID := c.PostForm("session_id")
	session := h.Sessions.CreateOrGet(sessionID)
	sessionID = session.ID

	file, header, err := c.Request.FormFile("file")
	if err != nil {
		h.Response.Error(c, http.StatusBadRequest, ErrorFileUploadFailed, "No file part", err.Error())
		return
	}
	defer file.Close()

	if header.Filename == "" {
		h.Response.Error(c, http.StatusBadRequest, ErrorFileUploadFailed, "No selected file")
		return
	}

	ext := strings.ToLower(filepath.Ext(header.Filename))
	if !allowedVideoExtensions[ext] {
		h.Response.Error(c, http.StatusBadRequest, ErrorFileInvalid,
			fmt.Sprintf("File type %s not allowed", ext))
		return
	}

	cfg := config.GetCurrentConfig()
	maxBytes := int64(cfg.MaxUploadMB) * 1024 * 1024
	if header.Size > maxBytes {
		h.Response.Error(c, http.StatusBadRequest, ErrorFileTooLarge,
			fmt.Sprintf("File exceeds %dMB limit", cfg.MaxUploadMB))
		return
	}

	h.Notifier.NotifyAsync(h.Sessions.WebhookFor(sessionID), models.EventVideoUploadStarted, sessionID,
		"Video upload initiated", map[string]interface{}{"filename": header.Filename})

	uploadDir := filepath.Join("uploads", sessionID)
	filename := fmt.Sprintf("%d_%s", time.Now().Unix(), filepath.Base(header.Filename))
	written, err := h.Storage.SaveStream(uploadDir, filename, file)
	if err != nil {
		h.Response.Error(c, http.StatusInternalServerError, ErrorFileUploadFailed,
			"Failed to store upload", err.Error())
		return
	}

	videoPath := h.Storage.FullPath(uploadDir, filename)
	if err := h.Sessions.AttachVideo(sessionID, videoPath); err != nil {
		h.Response.AppError(c, err, ErrorFileUploadFailed)
		return
	}

	h.Progress.PhaseStarted(sessionID, models.PhaseUploadComplete, "Video uploaded")
	wsManager.BroadcastToSession(sessionID, map[string]interface{}{
		"type":       "upload_complete",
		"session_id": sessionID,
		"filename":   header.Filename,
	})

	h.Response.Success(c, gin.H{
		"session_id": sessionID,
		"filename":   header.Filename,
		"size_bytes": written,
		"next_phase": string(models.PhaseRefinement),
	}, "Video uploaded")
}

// ------------------------------------------------
// Webhook configuration

// ConfigureWebhook stores a session's notification target.
func (h *Handler) ConfigureWebhook(c *gin.Context) {
	var req struct {
		SessionID string               `json:"session_id"`
		Config    models.WebhookConfig `json:"config"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.Response.BadRequest(c, "Invalid request body", err.Error())
		return
	}
	if req.SessionID == "" {
		h.Response.BadRequest(c, "Session ID required")
		return
	}

	if err := h.Sessions.ConfigureWebhook(req.SessionID, &req.Config); err != nil {
		h.Response.AppError(c, err, ErrorWebhookConfigInvalid)
		return
	}

	go h.Notifier.SendTest(c.Request.Context(), &req.Config, req.SessionID)

	h.Response.Success(c, gin.H{
		"session_id": req.SessionID,
		"config":     req.Config,
	}, "Webhook configured")
}

// ------------------------------------------------
// Phase 1: prompt refinement

// Phase1Refine improves the original prompt without changing its intent.
func (h *Handler) Phase1Refine(c *gin.Context) {
	var req struct {
		SessionID      string `json:"session_id"`
		OriginalPrompt string `json:"original_prompt"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.Response.BadRequest(c, "Invalid request body", err.Error())
		return
	}

	session := h.Sessions.CreateOrGet(req.SessionID)
	h.Progress.PhaseStarted(session.ID, models.PhaseRefinement, "Refining prompt")

	result, err := h.Sessions.RefinePrompt(session.ID, req.OriginalPrompt)
	if err != nil {
		h.Response.AppError(c, err, ErrorRefinementInvalid)
		return
	}

	h.Response.Success(c, gin.H{
		"session_id":           session.ID,
		"result":               result,
		"user_action_required": result.UserActionRequired,
	})
}

// Phase1Approve accepts the improved prompt or runs a revision cycle with
// user feedback.
func (h *Handler) Phase1Approve(c *gin.Context) {
	var req struct {
		SessionID string `json:"session_id"`
		Approved  bool   `json:"approved"`
		Feedback  string `json:"feedback"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.Response.BadRequest(c, "Invalid request body", err.Error())
		return
	}

	if req.Approved {
		finalPrompt, err := h.Sessions.ApprovePrompt(req.SessionID)
		if err != nil {
			h.Response.AppError(c, err, ErrorRefinementInvalid)
			return
		}
		h.Response.Success(c, gin.H{
			"session_id":   req.SessionID,
			"final_prompt": finalPrompt,
			"next_phase":   string(models.PhaseQuestioning),
		}, "Prompt approved. Proceeding to questioning.")
		return
	}

	result, err := h.Sessions.RevisePrompt(req.SessionID, req.Feedback)
	if err != nil {
		h.Response.AppError(c, err, ErrorRefinementInvalid)
		return
	}
	h.Response.Success(c, gin.H{
		"session_id": req.SessionID,
		"result":     result,
	}, "Revision generated")
}

// ------------------------------------------------
// Phase 2: intelligent questioning

// Phase2Questions generates the question set for an approved prompt.
func (h *Handler) Phase2Questions(c *gin.Context) {
	var req sessionRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.SessionID == "" {
		h.Response.BadRequest(c, "Session ID required")
		return
	}

	questions, err := h.Sessions.GenerateQuestions(c.Request.Context(), req.SessionID)
	if err != nil {
		h.Response.AppError(c, err, ErrorPromptNotApproved)
		return
	}

	h.Progress.PhaseStarted(req.SessionID, models.PhaseQuestioning, "Questions generated")

	h.Response.Success(c, gin.H{
		"session_id": req.SessionID,
		"questions":  questions,
		"count":      len(questions),
	})
}

// Phase2Answer records one answer and reports completion readiness.
func (h *Handler) Phase2Answer(c *gin.Context) {
	var req struct {
		SessionID  string             `json:"session_id"`
		QuestionID string             `json:"question_id"`
		Answer     models.AnswerValue `json:"answer"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.Response.BadRequest(c, "Invalid request body", err.Error())
		return
	}
	if req.SessionID == "" {
		h.Response.BadRequest(c, "Session ID required")
		return
	}

	allAnswered, err := h.Sessions.RecordAnswer(req.SessionID, req.QuestionID, req.Answer)
	if err != nil {
		h.Response.AppError(c, err, ErrorAnswerInvalid)
		return
	}

	followUps, _ := h.Sessions.FollowUpQuestions(req.SessionID)

	h.Response.Success(c, gin.H{
		"session_id":   req.SessionID,
		"question_id":  req.QuestionID,
		"all_answered": allAnswered,
		"can_proceed":  allAnswered,
		"follow_ups":   followUps,
	})
}

// ------------------------------------------------
// Phase 3: narrative reasoning

// Phase3Analyze runs the hidden narrative analysis. Only the arc and tone
// summary is exposed.
func (h *Handler) Phase3Analyze(c *gin.Context) {
	var req sessionRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.SessionID == "" {
		h.Response.BadRequest(c, "Session ID required")
		return
	}

	h.Progress.PhaseStarted(req.SessionID, models.PhaseNarrative, "Narrative reasoning")

	summary, err := h.Sessions.AnalyzeNarrative(c.Request.Context(), req.SessionID)
	if err != nil {
		h.Response.AppError(c, err, ErrorNarrativeMissing)
		return
	}

	h.Response.Success(c, gin.H{
		"session_id":        req.SessionID,
		"narrative_summary": summary,
		"next_phase":        string(models.PhaseScenePlanning),
	}, "Narrative analysis complete")
}

// ------------------------------------------------
// Phase 4: scene planning

// Phase4Plan synthesizes the validated scene plan.
func (h *Handler) Phase4Plan(c *gin.Context) {
	var req sessionRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.SessionID == "" {
		h.Response.BadRequest(c, "Session ID required")
		return
	}

	h.Progress.PhaseStarted(req.SessionID, models.PhaseScenePlanning, "Planning scenes")

	plan, err := h.Sessions.GeneratePlan(c.Request.Context(), req.SessionID)
	if err != nil {
		if tracker, ok := h.Progress.GetTracker(req.SessionID); ok {
			tracker.Fail(err.Error())
		}
		h.Response.AppError(c, err, ErrorScenePlanInvalid)
		return
	}

	if tracker, ok := h.Progress.GetTracker(req.SessionID); ok {
		tracker.Complete("Scene plan ready")
	}
	wsManager.BroadcastToSession(req.SessionID, map[string]interface{}{
		"type":        "plan_ready",
		"session_id":  req.SessionID,
		"scene_count": len(plan.Scenes),
	})

	h.Response.Success(c, gin.H{
		"session_id": req.SessionID,
		"scene_plan": plan,
	}, "Scene planning complete. Ready for execution.")
}

// ------------------------------------------------
// Media collaborators

// StartTranscription runs the transcription collaborator for the session's
// uploaded video.
func (h *Handler) StartTranscription(c *gin.Context) {
	var req sessionRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.SessionID == "" {
		h.Response.BadRequest(c, "Session ID required")
		return
	}

	session, err := h.Sessions.Get(req.SessionID)
	if err != nil {
		h.Response.AppError(c, err, ErrorSessionNotFound)
		return
	}
	if session.VideoPath == "" {
		h.Response.Error(c, http.StatusBadRequest, ErrorNoVideoUploaded, "No video uploaded")
		return
	}

	webhook := h.Sessions.WebhookFor(req.SessionID)
	h.Notifier.NotifyAsync(webhook, models.EventAudioTranscriptionStarted, req.SessionID,
		"Audio transcription started", map[string]interface{}{"video": filepath.Base(session.VideoPath)})

	transcript, err := h.Media.Transcribe(c.Request.Context(), session.VideoPath)
	if err != nil {
		h.Response.AppError(c, err, ErrorTranscriptionFailed)
		return
	}
	if err := h.Sessions.SetTranscript(req.SessionID, transcript); err != nil {
		h.Response.AppError(c, err, ErrorTranscriptionFailed)
		return
	}

	h.Notifier.NotifyAsync(webhook, models.EventAudioTranscriptionCompleted, req.SessionID,
		"Audio transcription completed", nil)

	h.Response.Success(c, gin.H{
		"session_id": req.SessionID,
		"segments":   len(transcript.Segments),
		"language":   transcript.Language,
	}, "Transcription complete")
}

// StartVisualAnalysis runs the visual collaborator for the session's video.
func (h *Handler) StartVisualAnalysis(c *gin.Context) {
	var req struct {
		SessionID       string   `json:"session_id"`
		Concepts        []string `json:"concepts"`
		IntervalSeconds int      `json:"interval_seconds"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.SessionID == "" {
		h.Response.BadRequest(c, "Session ID required")
		return
	}

	session, err := h.Sessions.Get(req.SessionID)
	if err != nil {
		h.Response.AppError(c, err, ErrorSessionNotFound)
		return
	}

	webhook := h.Sessions.WebhookFor(req.SessionID)
	h.Notifier.NotifyAsync(webhook, models.EventVisualAnalysisStarted, req.SessionID,
		"Visual analysis started", nil)

	analysis, err := h.Media.AnalyzeVisuals(c.Request.Context(), session.VideoPath, req.Concepts, req.IntervalSeconds)
	if err != nil {
		h.Response.AppError(c, err, ErrorVisualAnalysisFailed)
		return
	}
	if err := h.Sessions.SetVisualAnalysis(req.SessionID, analysis); err != nil {
		h.Response.AppError(c, err, ErrorVisualAnalysisFailed)
		return
	}

	h.Notifier.NotifyAsync(webhook, models.EventVisualAnalysisCompleted, req.SessionID,
		"Visual analysis completed", nil)

	h.Response.Success(c, gin.H{
		"session_id": req.SessionID,
		"scenes":     len(analysis.Scenes),
		"detections": len(analysis.Detections),
	}, "Visual analysis complete")
}

// ------------------------------------------------
// Session inspection and export

// GetSession returns the externally visible session summary.
func (h *Handler) GetSession(c *gin.Context) {
	sessionID := c.Param("id")
	summary, err := h.Sessions.Summary(sessionID)
	if err != nil {
		h.Response.AppError(c, err, ErrorSessionNotFound)
		return
	}
	h.Response.Success(c, summary)
}

// ExportPlan downloads the validated scene plan as JSON.
func (h *Handler) ExportPlan(c *gin.Context) {
	sessionID := c.Param("id")
	payload, err := h.Sessions.ExportPlan(sessionID)
	if err != nil {
		h.Response.AppError(c, err, ErrorPlanNotReady)
		return
	}
	h.Response.DownloadResponse(c, payload, fmt.Sprintf("scene_plan_%s.json", sessionID), "application/json")
}

// SessionWebSocket streams progress events for one session.
func (h *Handler) SessionWebSocket(c *gin.Context) {
	SessionProgressWebSocket(c, h.Progress)
}

// GetWebSocketStatus reports live connection counts.
func (h *Handler) GetWebSocketStatus(c *gin.Context) {
	status := wsManager.GetStatus()
	status["timestamp"] = time.Now().Format(time.RFC3339)
	c.JSON(http.StatusOK, status)
}

// ------------------------------------------------
// Settings and health

// UpdateLLMSettings switches the model provider at runtime.
func (h *Handler) UpdateLLMSettings(c *gin.Context) {
	var req struct {
		Provider string            `json:"provider"`
		Config   map[string]string `json:"config"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.Response.BadRequest(c, "Invalid request body", err.Error())
		return
	}
	if req.Provider == "" {
		h.Response.Error(c, http.StatusBadRequest, ErrorLLMConfigInvalid, "Provider required")
		return
	}

	if err := h.LLM.UpdateProvider(req.Provider, req.Config); err != nil {
		h.Response.Error(c, http.StatusBadRequest, ErrorLLMConfigInvalid, err.Error())
		return
	}
	if h.Config != nil {
		if err := h.Config.UpdateLLMConfig(req.Provider, req.Config, "api"); err != nil {
			h.Response.Error(c, http.StatusInternalServerError, ErrorLLMConfigInvalid,
				"Provider switched but persisting settings failed", err.Error())
			return
		}
	}

	h.Response.Success(c, gin.H{
		"provider": req.Provider,
		"ready":    h.LLM.IsReady(),
	}, "Model provider updated")
}

// GetLLMStatus reports provider readiness for the settings page.
func (h *Handler) GetLLMStatus(c *gin.Context) {
	h.Response.Success(c, gin.H{
		"ready":    h.LLM.IsReady(),
		"state":    h.LLM.GetReadyState(),
		"provider": h.LLM.GetProviderName(),
	})
}

// HealthCheck reports basic liveness.
func (h *Handler) HealthCheck(c *gin.Context) {
	h.Response.Success(c, gin.H{
		"status":    "ok",
		"llm_ready": h.LLM.IsReady(),
		"metrics":   utils.GetMetricsCollector().GetMetrics(),
	})
}

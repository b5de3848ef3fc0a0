// internal/services/session_service.go
package services

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	apperrors "github.com/litelis/FrameForge/internal/errors"
	"github.com/litelis/FrameForge/internal/models"
	"github.com/litelis/FrameForge/internal/storage"
	"github.com/litelis/FrameForge/internal/utils"
)

// SessionService owns the in-memory session store and the phase state
// machine. Every mutation of a session runs under that session's lock so
// concurrent requests against one session serialize while different
// sessions proceed in parallel. Phase outputs are additionally persisted
// as JSON under the storage layer for inspection and export.
type SessionService struct {
	mu       sync.RWMutex
	sessions map[string]*models.Session

	locks     *LockManager
	storage   *storage.FileStorage
	refiner   *RefinerService
	questions *QuestionService
	narrative *NarrativeService
	planner   *PlannerService
	notifier  *NotifierService
	logger    *utils.Logger
	metrics   *utils.APIMetrics
}

// NewSessionService wires the phase engines into the session store.
func NewSessionService(
	store *storage.FileStorage,
	refiner *RefinerService,
	questions *QuestionService,
	narrative *NarrativeService,
	planner *PlannerService,
	notifier *NotifierService,
) *SessionService {
	return &SessionService{
		sessions:  make(map[string]*models.Session),
		locks:     NewLockManager(),
		storage:   store,
		refiner:   refiner,
		questions: questions,
		narrative: narrative,
		planner:   planner,
		notifier:  notifier,
		logger:    utils.GetLogger(),
		metrics:   utils.NewAPIMetrics(),
	}
}

// NewSessionID mints a sortable unique session identifier.
func NewSessionID() string {
	return ulid.Make().String()
}

// CreateOrGet returns the session with the given ID, creating it when it
// does not exist yet. An empty ID creates a fresh session.
func (s *SessionService) CreateOrGet(sessionID string) *models.Session {
	if sessionID == "" {
		sessionID = NewSessionID()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if session, ok := s.sessions[sessionID]; ok {
		return session
	}
	session := &models.Session{
		ID:        sessionID,
		CreatedAt: time.Now(),
		Phase:     models.PhaseCreated,
		Data:      make(map[string]interface{}),
		Answers:   make(models.AnswerSet),
	}
	s.sessions[sessionID] = session
	s.logger.Info("Session created", map[string]interface{}{"session_id": sessionID})
	return session
}

// Get returns an existing session or a not-found error.
func (s *SessionService) Get(sessionID string) (*models.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	session, ok := s.sessions[sessionID]
	if !ok {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("session %s not found", sessionID), nil)
	}
	return session, nil
}

// Summary returns the externally visible view of a session.
func (s *SessionService) Summary(sessionID string) (models.SessionSummary, error) {
	var summary models.SessionSummary
	session, err := s.Get(sessionID)
	if err != nil {
		return summary, err
	}
	err = s.locks.ExecuteWithSessionReadLock(sessionID, func() error {
		summary = session.Summarize()
		return nil
	})
	return summary, err
}

// WebhookFor returns the session's webhook configuration, or nil.
func (s *SessionService) WebhookFor(sessionID string) *models.WebhookConfig {
	session, err := s.Get(sessionID)
	if err != nil {
		return nil
	}
	var cfg *models.WebhookConfig
	s.locks.ExecuteWithSessionReadLock(sessionID, func() error {
		cfg = session.Webhook
		return nil
	})
	return cfg
}

// ConfigureWebhook validates and stores the notification target.
func (s *SessionService) ConfigureWebhook(sessionID string, cfg *models.WebhookConfig) error {
	session := s.CreateOrGet(sessionID)
	if err := cfg.Validate(); err != nil {
		return apperrors.NewValidationError(err.Error(), err)
	}
	return s.locks.ExecuteWithSessionLock(session.ID, func() error {
		session.Webhook = cfg
		return nil
	})
}

// AttachVideo records an uploaded media file and advances the session to
// upload_complete.
func (s *SessionService) AttachVideo(sessionID, videoPath string) error {
	session := s.CreateOrGet(sessionID)
	err := s.locks.ExecuteWithSessionLock(session.ID, func() error {
		session.VideoPath = videoPath
		session.Phase = models.PhaseUploadComplete
		return nil
	})
	if err != nil {
		return err
	}
	s.notifier.NotifyAsync(session.Webhook, models.EventVideoUploadCompleted, session.ID,
		"Video uploaded successfully", map[string]interface{}{
			"filename": filepath.Base(videoPath),
		})
	return nil
}

// SetTranscript stores the transcription collaborator output. Requires an
// uploaded video.
func (s *SessionService) SetTranscript(sessionID string, t *models.Transcript) error {
	session, err := s.Get(sessionID)
	if err != nil {
		return err
	}
	return s.locks.ExecuteWithSessionLock(sessionID, func() error {
		if session.VideoPath == "" {
			return apperrors.NewPreconditionError("no video uploaded", nil)
		}
		session.Transcript = t
		return nil
	})
}

// SetVisualAnalysis stores the visual analysis collaborator output.
func (s *SessionService) SetVisualAnalysis(sessionID string, v *models.VisualAnalysis) error {
	session, err := s.Get(sessionID)
	if err != nil {
		return err
	}
	return s.locks.ExecuteWithSessionLock(sessionID, func() error {
		session.Visual = v
		return nil
	})
}

// RefinePrompt runs phase 1 on the supplied prompt. The session advances to
// the refinement phase and the pending improvement is stored for the
// approval step.
func (s *SessionService) RefinePrompt(sessionID, originalPrompt string) (*models.PromptRefinement, error) {
	session := s.CreateOrGet(sessionID)

	s.notifier.NotifyAsync(session.Webhook, models.EventPromptRefinementStarted, session.ID,
		"Prompt refinement started", map[string]interface{}{
			"original_prompt": truncate(originalPrompt, 100),
		})

	var result *models.PromptRefinement
	err := s.locks.ExecuteWithSessionLock(session.ID, func() error {
		result = s.refiner.Refine(originalPrompt)
		if err := result.Validate(); err != nil {
			return err
		}
		session.Phase = models.PhaseRefinement
		session.Data[models.DataKeyOriginalPrompt] = originalPrompt
		session.Data[models.DataKeyImprovedPrompt] = result.ImprovedPrompt
		session.Data[models.DataKeyRefinement] = result
		return nil
	})
	if err != nil {
		s.notifier.NotifyAsync(session.Webhook, models.EventError, session.ID,
			fmt.Sprintf("Prompt refinement failed: %v", err), map[string]interface{}{"error": err.Error()})
		return nil, err
	}

	s.notifier.NotifyAsync(session.Webhook, models.EventPromptRefinementImproved, session.ID,
		"Prompt refined and awaiting user approval", map[string]interface{}{
			"issues_detected":   len(result.IssuesDetected),
			"improvements_made": len(result.ImprovementsMade),
		})
	return result, nil
}

// ApprovePrompt freezes the pending improvement as the final prompt and
// unlocks the questioning phase.
func (s *SessionService) ApprovePrompt(sessionID string) (string, error) {
	session, err := s.Get(sessionID)
	if err != nil {
		return "", err
	}

	var finalPrompt string
	err = s.locks.ExecuteWithSessionLock(sessionID, func() error {
		improved, ok := session.Data[models.DataKeyImprovedPrompt].(string)
		if !ok || improved == "" {
			return apperrors.NewPreconditionError("no refined prompt to approve, run refinement first", nil)
		}
		session.Data[models.DataKeyPromptApproved] = true
		session.Data[models.DataKeyFinalPrompt] = improved
		finalPrompt = improved
		return nil
	})
	if err != nil {
		return "", err
	}

	s.notifier.NotifyAsync(session.Webhook, models.EventPromptRefinementApproved, sessionID,
		"User approved improved prompt", map[string]interface{}{
			"final_prompt": truncate(finalPrompt, 100),
		})
	return finalPrompt, nil
}

// RevisePrompt re-runs refinement with user feedback. The phase does not
// advance and the prompt stays unapproved until ApprovePrompt.
func (s *SessionService) RevisePrompt(sessionID, feedback string) (*models.PromptRefinement, error) {
	session, err := s.Get(sessionID)
	if err != nil {
		return nil, err
	}

	var result *models.PromptRefinement
	err = s.locks.ExecuteWithSessionLock(sessionID, func() error {
		original, _ := session.Data[models.DataKeyOriginalPrompt].(string)
		improved, ok := session.Data[models.DataKeyImprovedPrompt].(string)
		if !ok || improved == "" {
			return apperrors.NewPreconditionError("no refined prompt to revise, run refinement first", nil)
		}
		result = s.refiner.RefineWithFeedback(original, improved, feedback)
		session.Data[models.DataKeyImprovedPrompt] = result.ImprovedPrompt
		session.Data[models.DataKeyRefinement] = result
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.notifier.NotifyAsync(session.Webhook, models.EventPromptRefinementRevision, sessionID,
		"User requested revision", map[string]interface{}{
			"feedback": truncate(feedback, 200),
		})
	return result, nil
}

// GenerateQuestions runs phase 2. Requires an approved prompt; a rejected
// call leaves the session untouched.
func (s *SessionService) GenerateQuestions(ctx context.Context, sessionID string) ([]models.Question, error) {
	session, err := s.Get(sessionID)
	if err != nil {
		return nil, err
	}

	var questions []models.Question
	err = s.locks.ExecuteWithSessionLock(sessionID, func() error {
		approved, _ := session.Data[models.DataKeyPromptApproved].(bool)
		if !approved {
			return apperrors.NewPreconditionError("prompt not yet approved, complete phase 1 first", nil)
		}

		s.notifier.NotifyAsync(session.Webhook, models.EventQuestioningStarted, sessionID,
			"Intelligent questioning started", nil)

		finalPrompt, _ := session.Data[models.DataKeyFinalPrompt].(string)
		questions = s.questions.GenerateDynamicQuestions(ctx, finalPrompt, session.Transcript, session.Visual, session.Answers)

		session.Phase = models.PhaseQuestioning
		session.Data[models.DataKeyQuestions] = questions
		return nil
	})
	if err != nil {
		return nil, err
	}
	return questions, nil
}

// RecordAnswer stores one answer and reports whether enough required
// questions are answered to proceed. Crossing the completeness threshold
// fires the questioning-completed event.
func (s *SessionService) RecordAnswer(sessionID, questionID string, answer models.AnswerValue) (bool, error) {
	session, err := s.Get(sessionID)
	if err != nil {
		return false, err
	}
	if questionID == "" {
		return false, apperrors.NewValidationError("question_id required", nil)
	}

	var allAnswered, crossed bool
	var answerCount int
	err = s.locks.ExecuteWithSessionLock(sessionID, func() error {
		questions, _ := session.Data[models.DataKeyQuestions].([]models.Question)

		before := s.questions.CheckCompleteness(questions, session.Answers)
		session.Answers[questionID] = answer
		session.Data[models.DataKeyAnswers] = session.Answers
		answerCount = len(session.Answers)

		allAnswered = s.questions.CheckCompleteness(questions, session.Answers)
		crossed = allAnswered && !before && len(questions) > 0
		return nil
	})
	if err != nil {
		return false, err
	}

	if crossed {
		s.notifier.NotifyAsync(session.Webhook, models.EventQuestioningCompleted, sessionID,
			"All required questions answered", map[string]interface{}{
				"answer_count": answerCount,
			})
	}
	return allAnswered, nil
}

// FollowUpQuestions returns conditional questions unlocked by the answers
// given so far.
func (s *SessionService) FollowUpQuestions(sessionID string) ([]models.Question, error) {
	session, err := s.Get(sessionID)
	if err != nil {
		return nil, err
	}
	var questions []models.Question
	err = s.locks.ExecuteWithSessionReadLock(sessionID, func() error {
		questions = s.questions.FollowUpQuestions(session.Answers)
		return nil
	})
	return questions, err
}

// AnalyzeNarrative runs phase 3. Requires at least one recorded answer. The
// full analysis is stored on the session but only the summary is returned.
func (s *SessionService) AnalyzeNarrative(ctx context.Context, sessionID string) (models.NarrativeSummary, error) {
	var summary models.NarrativeSummary
	session, err := s.Get(sessionID)
	if err != nil {
		return summary, err
	}

	started := time.Now()
	err = s.locks.ExecuteWithSessionLock(sessionID, func() error {
		if len(session.Answers) == 0 {
			return apperrors.NewPreconditionError("phase 2 not completed, answer questions first", nil)
		}

		s.notifier.NotifyAsync(session.Webhook, models.EventNarrativeReasoningStarted, sessionID,
			"Deep narrative reasoning started", nil)

		// Arc scoring runs on the user's own wording. The improved prompt
		// carries clarification placeholders whose words would skew the
		// keyword scores.
		originalPrompt, _ := session.Data[models.DataKeyOriginalPrompt].(string)
		analysis := s.narrative.Analyze(originalPrompt, session.Answers, session.Transcript, session.Visual)

		session.Phase = models.PhaseNarrative
		session.Data[models.DataKeyNarrative] = analysis
		summary = analysis.Summarize()

		s.persistJSON(sessionID, "narrative.json", analysis)
		return nil
	})
	if err != nil {
		return summary, err
	}
	s.metrics.RecordPhaseExecution(string(models.PhaseNarrative), time.Since(started))

	s.notifier.NotifyAsync(session.Webhook, models.EventNarrativeReasoningCompleted, sessionID,
		"Narrative analysis completed", map[string]interface{}{
			"narrative_arc": string(summary.Arc),
			"dominant_tone": summary.Tone,
		})
	return summary, nil
}

// GeneratePlan runs phase 4. Requires a stored narrative analysis. The
// returned plan has already passed validation; the session moves to
// plan_ready.
func (s *SessionService) GeneratePlan(ctx context.Context, sessionID string) (*models.ScenePlan, error) {
	session, err := s.Get(sessionID)
	if err != nil {
		return nil, err
	}

	var plan *models.ScenePlan
	started := time.Now()
	err = s.locks.ExecuteWithSessionLock(sessionID, func() error {
		analysis, ok := session.Data[models.DataKeyNarrative].(*models.NarrativeAnalysis)
		if !ok {
			return apperrors.NewPreconditionError("phase 3 not completed, run narrative analysis first", nil)
		}

		s.notifier.NotifyAsync(session.Webhook, models.EventScenePlanningStarted, sessionID,
			"Cinematic scene planning started", nil)

		finalPrompt, _ := session.Data[models.DataKeyFinalPrompt].(string)
		inputs := PlanInputs{
			Request:    finalPrompt,
			Answers:    session.Answers,
			Transcript: session.Transcript,
			Visual:     session.Visual,
			Narrative:  analysis,
		}

		generated, genErr := s.planner.GeneratePlanWithLLM(ctx, inputs)
		if genErr != nil {
			return genErr
		}

		session.Phase = models.PhasePlanReady
		session.Data[models.DataKeyScenePlan] = generated
		plan = generated

		s.persistJSON(sessionID, "scene_plan.json", generated)
		return nil
	})
	if err != nil {
		s.notifier.NotifyAsync(session.Webhook, models.EventError, sessionID,
			fmt.Sprintf("Scene planning failed: %v", err), map[string]interface{}{"error": err.Error()})
		return nil, err
	}
	s.metrics.RecordPhaseExecution(string(models.PhaseScenePlanning), time.Since(started))

	s.notifier.NotifyAsync(session.Webhook, models.EventScenePlanningCompleted, sessionID,
		fmt.Sprintf("Scene planning completed with %d scenes", len(plan.Scenes)), map[string]interface{}{
			"title":       plan.Title,
			"theme":       plan.Theme,
			"scene_count": len(plan.Scenes),
		})
	return plan, nil
}

// ExportPlan serializes the stored plan and writes it under the plans
// directory. Returns the JSON payload.
func (s *SessionService) ExportPlan(sessionID string) ([]byte, error) {
	session, err := s.Get(sessionID)
	if err != nil {
		return nil, err
	}

	var payload []byte
	err = s.locks.ExecuteWithSessionReadLock(sessionID, func() error {
		plan, ok := session.Data[models.DataKeyScenePlan].(*models.ScenePlan)
		if !ok {
			return apperrors.NewPreconditionError("no scene plan available, run phase 4 first", nil)
		}
		data, marshalErr := json.MarshalIndent(plan, "", "  ")
		if marshalErr != nil {
			return apperrors.NewProcessingError("failed to serialize scene plan", marshalErr)
		}
		payload = data
		return nil
	})
	if err != nil {
		return nil, err
	}

	if s.storage != nil {
		if saveErr := s.storage.SaveTextFile(filepath.Join("plans", sessionID), "scene_plan.json", payload); saveErr != nil {
			s.logger.Warn("Failed to persist exported plan", map[string]interface{}{
				"session_id": sessionID,
				"error":      saveErr.Error(),
			})
		}
	}
	return payload, nil
}

// persistJSON writes a phase output under the session's directory.
// Persistence is advisory: failures are logged and never fail the phase.
func (s *SessionService) persistJSON(sessionID, filename string, v interface{}) {
	if s.storage == nil {
		return
	}
	if err := s.storage.SaveJSONFile(filepath.Join("sessions", sessionID), filename, v); err != nil {
		s.logger.Warn("Failed to persist phase output", map[string]interface{}{
			"session_id": sessionID,
			"file":       filename,
			"error":      err.Error(),
		})
	}
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}

// internal/services/session_service_test.go
package services

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	apperrors "github.com/litelis/FrameForge/internal/errors"
	"github.com/litelis/FrameForge/internal/models"
	"github.com/litelis/FrameForge/internal/storage"
)

func newTestSessionService(t *testing.T) *SessionService {
	t.Helper()
	store, err := storage.NewFileStorage(t.TempDir())
	if err != nil {
		t.Fatalf("creating test storage: %v", err)
	}
	llm := NewEmptyLLMService()
	return NewSessionService(
		store,
		NewRefinerService(),
		NewQuestionService(llm),
		NewNarrativeService(),
		NewPlannerService(llm),
		NewNotifierService(),
	)
}

func answerAll(t *testing.T, svc *SessionService, sessionID string, questions []models.Question) {
	t.Helper()
	canned := map[string]models.AnswerValue{
		"video_format":      {Text: "16:9 (Landscape - YouTube, Film, TV)"},
		"target_platform":   {Text: "YouTube (long-form, 16:9)"},
		"target_duration":   {Text: "1-3 minutes (YouTube short/Medium)"},
		"editing_rhythm":    {Text: "Medium (balanced, standard pacing)"},
		"emotional_tone":    {Text: "Nostalgic / Reflective"},
		"source_material":   {List: []string{"Mobile phone footage"}},
		"voice_over_needed": {Text: "No voice-over needed"},
	}
	for _, q := range questions {
		answer, ok := canned[q.ID]
		if !ok {
			answer = models.AnswerValue{Text: "default"}
		}
		if _, err := svc.RecordAnswer(sessionID, q.ID, answer); err != nil {
			t.Fatalf("recording answer for %s: %v", q.ID, err)
		}
	}
}

func TestCreateOrGet(t *testing.T) {
	svc := newTestSessionService(t)

	created := svc.CreateOrGet("")
	if created.ID == "" {
		t.Fatal("empty ID should mint a fresh session ID")
	}
	if created.Phase != models.PhaseCreated {
		t.Errorf("new session phase = %q, want %q", created.Phase, models.PhaseCreated)
	}

	same := svc.CreateOrGet(created.ID)
	if same != created {
		t.Error("existing ID should return the same session")
	}

	other := svc.CreateOrGet("")
	if other.ID == created.ID {
		t.Error("each new session needs a distinct ID")
	}
}

func TestGetUnknownSession(t *testing.T) {
	svc := newTestSessionService(t)

	_, err := svc.Get("does-not-exist")
	if !apperrors.IsNotFoundError(err) {
		t.Errorf("expected not-found error, got %v", err)
	}
}

func TestRefineApproveFlow(t *testing.T) {
	svc := newTestSessionService(t)
	session := svc.CreateOrGet("")

	result, err := svc.RefinePrompt(session.ID, "please make a video of my vacation that is good")
	if err != nil {
		t.Fatalf("RefinePrompt failed: %v", err)
	}
	if result.ImprovedPrompt == "" {
		t.Fatal("refinement must produce an improved prompt")
	}
	if session.Phase != models.PhaseRefinement {
		t.Errorf("phase = %q, want %q", session.Phase, models.PhaseRefinement)
	}

	final, err := svc.ApprovePrompt(session.ID)
	if err != nil {
		t.Fatalf("ApprovePrompt failed: %v", err)
	}
	if final != result.ImprovedPrompt {
		t.Error("approved prompt should be the pending improvement")
	}
}

func TestApproveBeforeRefineRejected(t *testing.T) {
	svc := newTestSessionService(t)
	session := svc.CreateOrGet("")

	_, err := svc.ApprovePrompt(session.ID)
	if !apperrors.IsPreconditionError(err) {
		t.Errorf("expected precondition error, got %v", err)
	}
}

func TestReviseKeepsPromptUnapproved(t *testing.T) {
	svc := newTestSessionService(t)
	session := svc.CreateOrGet("")

	if _, err := svc.RefinePrompt(session.ID, "please make a video of my vacation"); err != nil {
		t.Fatalf("RefinePrompt failed: %v", err)
	}

	revised, err := svc.RevisePrompt(session.ID, "too long and verbose")
	if err != nil {
		t.Fatalf("RevisePrompt failed: %v", err)
	}
	if revised.FeedbackIncorporated == "" {
		t.Error("revision should record the feedback")
	}

	// Revision alone never approves; questioning stays gated.
	if _, err := svc.GenerateQuestions(context.Background(), session.ID); !apperrors.IsPreconditionError(err) {
		t.Errorf("questioning should stay gated after revision, got %v", err)
	}

	if _, err := svc.ApprovePrompt(session.ID); err != nil {
		t.Fatalf("approval after revision failed: %v", err)
	}
}

func TestQuestionsGateLeavesSessionUntouched(t *testing.T) {
	svc := newTestSessionService(t)
	session := svc.CreateOrGet("")

	_, err := svc.GenerateQuestions(context.Background(), session.ID)
	if !apperrors.IsPreconditionError(err) {
		t.Fatalf("expected precondition error, got %v", err)
	}

	if session.Phase != models.PhaseCreated {
		t.Errorf("rejected call must not advance the phase, got %q", session.Phase)
	}
	if _, ok := session.Data[models.DataKeyQuestions]; ok {
		t.Error("rejected call must not store questions")
	}
}

func TestNarrativeGateRequiresAnswers(t *testing.T) {
	svc := newTestSessionService(t)
	session := svc.CreateOrGet("")

	if _, err := svc.RefinePrompt(session.ID, "edit my vacation clips"); err != nil {
		t.Fatalf("RefinePrompt failed: %v", err)
	}
	if _, err := svc.ApprovePrompt(session.ID); err != nil {
		t.Fatalf("ApprovePrompt failed: %v", err)
	}
	if _, err := svc.GenerateQuestions(context.Background(), session.ID); err != nil {
		t.Fatalf("GenerateQuestions failed: %v", err)
	}

	_, err := svc.AnalyzeNarrative(context.Background(), session.ID)
	if !apperrors.IsPreconditionError(err) {
		t.Fatalf("expected precondition error before answers, got %v", err)
	}
	if session.Phase != models.PhaseQuestioning {
		t.Errorf("rejected call must not advance the phase, got %q", session.Phase)
	}
}

func TestPlanGateRequiresNarrative(t *testing.T) {
	svc := newTestSessionService(t)
	session := svc.CreateOrGet("")

	if _, err := svc.RefinePrompt(session.ID, "edit my vacation clips"); err != nil {
		t.Fatalf("RefinePrompt failed: %v", err)
	}
	if _, err := svc.ApprovePrompt(session.ID); err != nil {
		t.Fatalf("ApprovePrompt failed: %v", err)
	}
	if _, err := svc.RecordAnswer(session.ID, "emotional_tone", models.AnswerValue{Text: "Joyful"}); err != nil {
		t.Fatalf("RecordAnswer failed: %v", err)
	}

	_, err := svc.GeneratePlan(context.Background(), session.ID)
	if !apperrors.IsPreconditionError(err) {
		t.Fatalf("expected precondition error before narrative, got %v", err)
	}
	if _, ok := session.Data[models.DataKeyScenePlan]; ok {
		t.Error("rejected call must not store a plan")
	}
}

func TestFullPipeline(t *testing.T) {
	svc := newTestSessionService(t)
	session := svc.CreateOrGet("")
	ctx := context.Background()

	if _, err := svc.RefinePrompt(session.ID, "please make a video of my vacation that is good"); err != nil {
		t.Fatalf("phase 1 failed: %v", err)
	}
	if _, err := svc.ApprovePrompt(session.ID); err != nil {
		t.Fatalf("approval failed: %v", err)
	}

	questions, err := svc.GenerateQuestions(ctx, session.ID)
	if err != nil {
		t.Fatalf("phase 2 failed: %v", err)
	}
	if len(questions) == 0 {
		t.Fatal("vague prompt should yield questions")
	}
	answerAll(t, svc, session.ID, questions)

	summary, err := svc.AnalyzeNarrative(ctx, session.ID)
	if err != nil {
		t.Fatalf("phase 3 failed: %v", err)
	}
	if summary.Arc != models.ArchetypeMontage {
		t.Errorf("vacation prompt should resolve to %q, got %q", models.ArchetypeMontage, summary.Arc)
	}
	if session.Phase != models.PhaseNarrative {
		t.Errorf("phase = %q, want %q", session.Phase, models.PhaseNarrative)
	}

	plan, err := svc.GeneratePlan(ctx, session.ID)
	if err != nil {
		t.Fatalf("phase 4 failed: %v", err)
	}
	if err := plan.Validate(); err != nil {
		t.Errorf("stored plan should validate: %v", err)
	}
	if session.Phase != models.PhasePlanReady {
		t.Errorf("phase = %q, want %q", session.Phase, models.PhasePlanReady)
	}

	view, err := svc.Summary(session.ID)
	if err != nil {
		t.Fatalf("Summary failed: %v", err)
	}
	if !view.HasNarrative || !view.HasPlan {
		t.Errorf("summary should report narrative and plan: %+v", view)
	}
}

func TestExportPlan(t *testing.T) {
	dataDir := t.TempDir()
	store, err := storage.NewFileStorage(dataDir)
	if err != nil {
		t.Fatalf("creating test storage: %v", err)
	}
	llm := NewEmptyLLMService()
	svc := NewSessionService(store, NewRefinerService(), NewQuestionService(llm),
		NewNarrativeService(), NewPlannerService(llm), NewNotifierService())

	session := svc.CreateOrGet("")
	ctx := context.Background()

	if _, err := svc.ExportPlan(session.ID); !apperrors.IsPreconditionError(err) {
		t.Fatalf("export before planning should fail with precondition, got %v", err)
	}

	if _, err := svc.RefinePrompt(session.ID, "edit my vacation clips"); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.ApprovePrompt(session.ID); err != nil {
		t.Fatal(err)
	}
	questions, err := svc.GenerateQuestions(ctx, session.ID)
	if err != nil {
		t.Fatal(err)
	}
	answerAll(t, svc, session.ID, questions)
	if _, err := svc.AnalyzeNarrative(ctx, session.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.GeneratePlan(ctx, session.ID); err != nil {
		t.Fatal(err)
	}

	payload, err := svc.ExportPlan(session.ID)
	if err != nil {
		t.Fatalf("ExportPlan failed: %v", err)
	}

	var exported models.ScenePlan
	if err := json.Unmarshal(payload, &exported); err != nil {
		t.Fatalf("exported payload is not valid plan JSON: %v", err)
	}
	if err := exported.Validate(); err != nil {
		t.Errorf("exported plan should validate: %v", err)
	}

	exportedFile := filepath.Join(dataDir, "plans", session.ID, "scene_plan.json")
	if _, err := os.Stat(exportedFile); err != nil {
		t.Errorf("exported plan should be written to %s: %v", exportedFile, err)
	}
}

func TestRecordAnswerValidation(t *testing.T) {
	svc := newTestSessionService(t)
	session := svc.CreateOrGet("")

	if _, err := svc.RecordAnswer(session.ID, "", models.AnswerValue{Text: "x"}); !apperrors.IsValidationError(err) {
		t.Errorf("empty question id should be rejected, got %v", err)
	}
	if _, err := svc.RecordAnswer("missing", "q", models.AnswerValue{Text: "x"}); !apperrors.IsNotFoundError(err) {
		t.Errorf("unknown session should be not-found, got %v", err)
	}
}

func TestRecordAnswerCompleteness(t *testing.T) {
	svc := newTestSessionService(t)
	session := svc.CreateOrGet("")
	ctx := context.Background()

	if _, err := svc.RefinePrompt(session.ID, "please make a video of my vacation"); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.ApprovePrompt(session.ID); err != nil {
		t.Fatal(err)
	}
	questions, err := svc.GenerateQuestions(ctx, session.ID)
	if err != nil {
		t.Fatal(err)
	}

	var required []models.Question
	for _, q := range questions {
		if q.Required {
			required = append(required, q)
		}
	}
	if len(required) < 2 {
		t.Fatalf("expected several required questions, got %d", len(required))
	}

	done, err := svc.RecordAnswer(session.ID, required[0].ID, models.AnswerValue{Text: "x"})
	if err != nil {
		t.Fatal(err)
	}
	if done {
		t.Error("one answer should not satisfy completeness")
	}

	for _, q := range required[1:] {
		if done, err = svc.RecordAnswer(session.ID, q.ID, models.AnswerValue{Text: "x"}); err != nil {
			t.Fatal(err)
		}
	}
	if !done {
		t.Error("answering every required question should satisfy completeness")
	}
}

func TestSetTranscriptRequiresVideo(t *testing.T) {
	svc := newTestSessionService(t)
	session := svc.CreateOrGet("")

	err := svc.SetTranscript(session.ID, &models.Transcript{Language: "es"})
	if !apperrors.IsPreconditionError(err) {
		t.Fatalf("transcript without video should fail, got %v", err)
	}

	if err := svc.AttachVideo(session.ID, "/tmp/clip.mp4"); err != nil {
		t.Fatalf("AttachVideo failed: %v", err)
	}
	if session.Phase != models.PhaseUploadComplete {
		t.Errorf("phase = %q, want %q", session.Phase, models.PhaseUploadComplete)
	}

	if err := svc.SetTranscript(session.ID, &models.Transcript{Language: "es"}); err != nil {
		t.Fatalf("transcript after upload failed: %v", err)
	}
}

func TestConfigureWebhook(t *testing.T) {
	svc := newTestSessionService(t)
	session := svc.CreateOrGet("")

	bad := &models.WebhookConfig{Enabled: true, URL: "not-a-url"}
	if err := svc.ConfigureWebhook(session.ID, bad); !apperrors.IsValidationError(err) {
		t.Errorf("invalid webhook URL should be rejected, got %v", err)
	}

	good := &models.WebhookConfig{Enabled: true, URL: "https://example.com/hook"}
	if err := svc.ConfigureWebhook(session.ID, good); err != nil {
		t.Fatalf("ConfigureWebhook failed: %v", err)
	}
	if cfg := svc.WebhookFor(session.ID); cfg == nil || cfg.URL != good.URL {
		t.Errorf("stored webhook config mismatch: %+v", cfg)
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("short", 100); got != "short" {
		t.Errorf("truncate should pass short strings through, got %q", got)
	}
	long := truncate(string(make([]byte, 150)), 100)
	if len(long) != 103 {
		t.Errorf("truncated length = %d, want 103", len(long))
	}
}

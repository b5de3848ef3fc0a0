// internal/models/session.go
package models

import (
	"time"
)

// Phase identifies a stage of the edit-planning pipeline. Phases advance in
// strict forward order; out-of-order calls are rejected by the session
// service with a precondition error.
type Phase string

const (
	PhaseCreated        Phase = "created"
	PhaseUploadComplete Phase = "upload_complete"
	PhaseRefinement     Phase = "phase1_prompt_refinement"
	PhaseQuestioning    Phase = "phase2_intelligent_questioning"
	PhaseNarrative      Phase = "phase3_narrative_reasoning"
	PhaseScenePlanning  Phase = "phase4_scene_planning"
	PhasePlanReady      Phase = "plan_ready"
)

// phaseOrder defines the forward ordering used for transition checks.
var phaseOrder = map[Phase]int{
	PhaseCreated:        0,
	PhaseUploadComplete: 1,
	PhaseRefinement:     2,
	PhaseQuestioning:    3,
	PhaseNarrative:      4,
	PhaseScenePlanning:  5,
	PhasePlanReady:      6,
}

// Ordinal returns the position of the phase in the pipeline, or -1 for an
// unknown phase.
func (p Phase) Ordinal() int {
	if ord, ok := phaseOrder[p]; ok {
		return ord
	}
	return -1
}

// Well-known keys of the session phase-data store.
const (
	DataKeyOriginalPrompt = "original_prompt"
	DataKeyImprovedPrompt = "improved_prompt"
	DataKeyFinalPrompt    = "final_prompt"
	DataKeyPromptApproved = "prompt_approved"
	DataKeyRefinement     = "phase1_refinement"
	DataKeyQuestions      = "phase2_questions"
	DataKeyAnswers        = "phase2_answers"
	DataKeyNarrative      = "phase3_narrative"
	DataKeyScenePlan      = "phase4_scene_plan"
)

// Session represents one edit project. A session lives in process memory for
// the lifetime of the service; there is no durable backing store.
type Session struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	Phase     Phase     `json:"phase"`

	// VideoPath is set once media has been uploaded.
	VideoPath string `json:"video_path,omitempty"`

	// Collaborator outputs, stored once and re-read by later phases.
	Transcript *Transcript     `json:"transcript,omitempty"`
	Visual     *VisualAnalysis `json:"visual_analysis,omitempty"`

	// Data carries phase outputs keyed by the DataKey* constants.
	Data map[string]interface{} `json:"data"`

	// Answers accumulated during questioning. Grows monotonically.
	Answers AnswerSet `json:"answers"`

	// Webhook holds the optional outbound notification configuration.
	Webhook *WebhookConfig `json:"webhook_config,omitempty"`
}

// SessionSummary is the externally visible view of a session. The stored
// narrative analysis carries internal confidence metadata and is therefore
// never included here.
type SessionSummary struct {
	ID           string    `json:"id"`
	CreatedAt    time.Time `json:"created_at"`
	Phase        Phase     `json:"phase"`
	HasVideo     bool      `json:"has_video"`
	AnswerCount  int       `json:"answer_count"`
	HasNarrative bool      `json:"has_narrative"`
	HasPlan      bool      `json:"has_plan"`
}

// Summarize builds the externally visible view.
func (s *Session) Summarize() SessionSummary {
	_, hasNarrative := s.Data[DataKeyNarrative]
	_, hasPlan := s.Data[DataKeyScenePlan]
	return SessionSummary{
		ID:           s.ID,
		CreatedAt:    s.CreatedAt,
		Phase:        s.Phase,
		HasVideo:     s.VideoPath != "",
		AnswerCount:  len(s.Answers),
		HasNarrative: hasNarrative,
		HasPlan:      hasPlan,
	}
}

// internal/models/refinement.go
package models

import (
	"strings"

	apperrors "github.com/litelis/FrameForge/internal/errors"
)

// UserAction tells the client what to do with a refinement result.
type UserAction string

const (
	ActionAccept UserAction = "accept"
	ActionRevise UserAction = "revise"
)

// PromptRefinement is the output of the prompt refinement phase. The improved
// prompt keeps the user's intent; issues and improvements describe what the
// refiner found and changed.
type PromptRefinement struct {
	OriginalPrompt     string     `json:"original_prompt"`
	ImprovedPrompt     string     `json:"improved_prompt"`
	IssuesDetected     []string   `json:"issues_detected"`
	ImprovementsMade   []string   `json:"improvements_made"`
	UserActionRequired UserAction `json:"user_action_required"`

	// FeedbackIncorporated is set on revision-loop results only.
	FeedbackIncorporated string `json:"feedback_incorporated,omitempty"`
}

// Validate enforces the refinement contract: a non-empty improved prompt and
// a recognized user action. The revise decision rule itself lives in the
// refiner; the feedback loop legitimately returns accept regardless of the
// re-detected issue count.
func (r *PromptRefinement) Validate() error {
	if strings.TrimSpace(r.ImprovedPrompt) == "" {
		return apperrors.NewValidationError("improved_prompt: must not be empty", nil)
	}
	switch r.UserActionRequired {
	case ActionAccept, ActionRevise:
	default:
		return apperrors.NewValidationError("user_action_required: must be accept or revise", nil)
	}
	return nil
}

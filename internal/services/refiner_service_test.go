// internal/services/refiner_service_test.go
package services

import (
	"strings"
	"testing"

	"github.com/litelis/FrameForge/internal/models"
)

func TestRefineVaguePromptRequestsRevision(t *testing.T) {
	refiner := NewRefinerService()

	result := refiner.Refine("please make a video of my vacation that is good")

	if len(result.IssuesDetected) <= 2 {
		t.Fatalf("expected more than 2 issues for a vague prompt, got %d: %v",
			len(result.IssuesDetected), result.IssuesDetected)
	}
	if result.UserActionRequired != models.ActionRevise {
		t.Errorf("expected revise action, got %q", result.UserActionRequired)
	}
	if !strings.HasPrefix(result.ImprovedPrompt, "Goal:") {
		t.Errorf("improved prompt should be restructured with a Goal line, got %q", result.ImprovedPrompt)
	}
	if !strings.Contains(result.ImprovedPrompt, "edit raw footage into a cinematic sequence") {
		t.Errorf("vague action verbs should be replaced, got %q", result.ImprovedPrompt)
	}
}

func TestRefineSpecificPromptOffersAccept(t *testing.T) {
	refiner := NewRefinerService()

	result := refiner.Refine("Edit a 2 minute YouTube travel montage in 16:9 format with warm color grade")

	if result.UserActionRequired != models.ActionAccept {
		t.Errorf("expected accept for a specific prompt, got %q with issues %v",
			result.UserActionRequired, result.IssuesDetected)
	}
}

func TestRefineIsDeterministic(t *testing.T) {
	refiner := NewRefinerService()
	prompt := "make a video of my wedding, something emotional"

	first := refiner.Refine(prompt)
	second := refiner.Refine(prompt)

	if first.ImprovedPrompt != second.ImprovedPrompt {
		t.Error("same prompt should produce the same improved text")
	}
	if len(first.IssuesDetected) != len(second.IssuesDetected) {
		t.Error("same prompt should detect the same issues")
	}
}

func TestRefineEmptyPrompt(t *testing.T) {
	refiner := NewRefinerService()

	result := refiner.Refine("   ")

	if result.UserActionRequired != models.ActionRevise {
		t.Errorf("empty prompt must request revision, got %q", result.UserActionRequired)
	}
	if result.ImprovedPrompt == "" {
		t.Error("empty prompt should still yield a placeholder improved prompt")
	}
	if len(result.IssuesDetected) == 0 {
		t.Error("empty prompt should be reported as an issue")
	}
}

func TestRefineWithFeedbackAlwaysAccepts(t *testing.T) {
	refiner := NewRefinerService()
	original := "make a video of my vacation"
	firstPass := refiner.Refine(original)

	result := refiner.RefineWithFeedback(original, firstPass.ImprovedPrompt, "this is too long and verbose")

	if result.UserActionRequired != models.ActionAccept {
		t.Errorf("feedback loop must end in accept, got %q", result.UserActionRequired)
	}
	if result.FeedbackIncorporated != "this is too long and verbose" {
		t.Errorf("feedback should be recorded, got %q", result.FeedbackIncorporated)
	}
	if strings.Contains(result.ImprovedPrompt, "\n") {
		t.Errorf("verbose feedback should collapse to the first line, got %q", result.ImprovedPrompt)
	}
}

func TestRefineWithFeedbackStripsTechnicalLines(t *testing.T) {
	refiner := NewRefinerService()
	previous := "Goal: Edit vacation footage\n- Technical: [Format: 16:9]\n- Duration: [2 minutes]"

	result := refiner.RefineWithFeedback("edit vacation footage", previous, "too technical for me")

	if strings.Contains(result.ImprovedPrompt, "- Technical:") {
		t.Errorf("technical line should be stripped, got %q", result.ImprovedPrompt)
	}
	if strings.Contains(result.ImprovedPrompt, "- Duration:") {
		t.Errorf("duration line should be stripped, got %q", result.ImprovedPrompt)
	}
}

func TestRefineWithFeedbackAddsDetailSections(t *testing.T) {
	refiner := NewRefinerService()
	previous := "Goal: Edit vacation footage"

	result := refiner.RefineWithFeedback("edit vacation footage", previous, "please elaborate with more detail")

	if !strings.Contains(result.ImprovedPrompt, "Style:") {
		t.Errorf("detail feedback should add a style section, got %q", result.ImprovedPrompt)
	}
	if !strings.Contains(result.ImprovedPrompt, "Audio:") {
		t.Errorf("detail feedback should add an audio section, got %q", result.ImprovedPrompt)
	}
}

func TestComplexityScore(t *testing.T) {
	refiner := NewRefinerService()

	simple := refiner.complexityScore("short prompt")
	technical := refiner.complexityScore("a montage with b-roll, color grade and sound design plus one transition")

	if technical <= simple {
		t.Errorf("technical vocabulary should raise the score: simple=%d technical=%d", simple, technical)
	}

	long := strings.Repeat("montage transition b-roll color grade sound design ", 30)
	if got := refiner.complexityScore(long); got != 10 {
		t.Errorf("score should cap at 10, got %d", got)
	}
}

// internal/services/refiner_service.go
package services

import (
	"regexp"
	"strings"

	"github.com/litelis/FrameForge/internal/models"
)

// Rule vocabularies for prompt analysis. Matching is case-insensitive
// substring matching over the whole prompt.
var (
	vagueTimingWords   = []string{"soon", "later", "eventually", "sometime", "at some point"}
	vagueEmotionWords  = []string{"good", "nice", "bad", "interesting", "emotional"}
	technicalMarkers   = []string{"format", "resolution", "aspect ratio"}
	durationMarkers    = []string{"minute", "second", "hour", "length", "duration", "short", "long"}
	platformMarkers    = []string{"youtube", "tiktok", "instagram", "facebook", "twitter", "film", "cinema", "tv"}
	vagueActionPhrases = []string{"make", "do", "create something", "fix", "improve"}
	technicalTerms     = []string{"transition", "color grade", "sound design", "b-roll", "montage"}
)

var (
	technicalLineRe = regexp.MustCompile(`\n- Technical:.*`)
	durationLineRe  = regexp.MustCompile(`\n- Duration:.*`)
)

// promptAnalysis is the intermediate result of rule-based prompt inspection.
type promptAnalysis struct {
	Issues          []string
	ComplexityScore int
}

// RefinerService implements the prompt refinement phase. Refinement is
// deterministic: the same prompt always yields the same issues and the same
// improved text.
type RefinerService struct{}

// NewRefinerService creates the prompt refinement service.
func NewRefinerService() *RefinerService {
	return &RefinerService{}
}

func containsAny(lower string, words []string) bool {
	for _, w := range words {
		if strings.Contains(lower, w) {
			return true
		}
	}
	return false
}

// analyzePrompt inspects the prompt for the punch list of common weaknesses.
func (s *RefinerService) analyzePrompt(prompt string) promptAnalysis {
	lower := strings.ToLower(prompt)
	var issues []string

	if containsAny(lower, vagueTimingWords) {
		issues = append(issues, "Contains vague timing words that need specification")
	}
	if containsAny(lower, vagueEmotionWords) {
		issues = append(issues, "Emotional descriptors are too generic - needs specificity")
	}
	if strings.Contains(lower, "video") && !containsAny(lower, technicalMarkers) {
		issues = append(issues, "Missing technical specifications (format, resolution, aspect ratio)")
	}
	if !containsAny(lower, durationMarkers) {
		issues = append(issues, "No duration or length constraints specified")
	}
	if !containsAny(lower, platformMarkers) {
		issues = append(issues, "Target platform not specified (affects format and style decisions)")
	}
	if containsAny(lower, vagueActionPhrases) {
		issues = append(issues, "Action verbs are vague - needs specific editing actions")
	}

	return promptAnalysis{
		Issues:          issues,
		ComplexityScore: s.complexityScore(prompt),
	}
}

// complexityScore grows with word count and cinematography vocabulary,
// capped at 10.
func (s *RefinerService) complexityScore(prompt string) int {
	lower := strings.ToLower(prompt)
	score := len(strings.Fields(prompt)) / 10
	for _, term := range technicalTerms {
		if strings.Contains(lower, term) {
			score++
		}
	}
	if score > 10 {
		score = 10
	}
	return score
}

// improvePrompt rewrites the prompt to address each detected issue, returning
// the improved text and the list of applied improvements.
func (s *RefinerService) improvePrompt(prompt string, analysis promptAnalysis) (string, []string) {
	improved := strings.TrimSpace(prompt)
	issuesText := strings.ToLower(strings.Join(analysis.Issues, " "))
	var improvements []string

	if !strings.Contains(improved, "Goal:") &&
		!strings.Contains(improved, "Objective:") &&
		!strings.Contains(improved, "I want to") {
		improved = "Goal: " + strings.ToUpper(improved[:1]) + improved[1:]
	}

	if strings.Contains(issuesText, "vague timing") {
		improved += "\n- Timing: Specific timestamps or sequence to be defined"
		improvements = append(improvements, "Added timing specification placeholder")
	}
	if strings.Contains(issuesText, "emotional descriptors") {
		improved += "\n- Emotional tone: [Specify exact emotion - e.g., melancholic, triumphant, suspenseful]"
		improvements = append(improvements, "Requested specific emotional tone clarification")
	}
	if strings.Contains(issuesText, "technical specifications") {
		improved += "\n- Technical: [Format: 16:9/9:16/1:1], [Resolution: 1080p/4K], [Frame rate if relevant]"
		improvements = append(improvements, "Added technical specification section")
	}
	if strings.Contains(issuesText, "duration") {
		improved += "\n- Duration: [Target length - e.g., 30 seconds, 2 minutes, feature length]"
		improvements = append(improvements, "Added duration constraint placeholder")
	}
	if strings.Contains(issuesText, "platform") {
		improved += "\n- Platform: [YouTube/TikTok/Instagram/Film/etc.] - affects pacing and format"
		improvements = append(improvements, "Added platform specification for format decisions")
	}
	if strings.Contains(issuesText, "vague action") {
		improved = strings.ReplaceAll(improved, "make a video", "edit raw footage into a cinematic sequence")
		improved = strings.ReplaceAll(improved, "create something", "produce a narrative-driven edit")
		improvements = append(improvements, "Replaced vague action verbs with specific editing terminology")
	}

	if analysis.ComplexityScore > 3 {
		improved += "\n- Quality: Professional cinematic standards with attention to pacing, audio sync, and visual flow"
		improvements = append(improvements, "Added quality standards specification")
	}

	return improved, improvements
}

// Refine analyzes and improves the prompt. More than two detected issues
// requests a revision round from the user, otherwise the result is offered
// for acceptance.
func (s *RefinerService) Refine(originalPrompt string) *models.PromptRefinement {
	if strings.TrimSpace(originalPrompt) == "" {
		return &models.PromptRefinement{
			OriginalPrompt:     originalPrompt,
			ImprovedPrompt:     "Goal: [Describe the video you want to create, including subject, tone and target platform]",
			IssuesDetected:     []string{"Empty prompt provided"},
			UserActionRequired: models.ActionRevise,
		}
	}

	analysis := s.analyzePrompt(originalPrompt)
	improved, improvements := s.improvePrompt(originalPrompt, analysis)

	action := models.ActionAccept
	if len(analysis.Issues) > 2 {
		action = models.ActionRevise
	}

	return &models.PromptRefinement{
		OriginalPrompt:     originalPrompt,
		ImprovedPrompt:     improved,
		IssuesDetected:     analysis.Issues,
		ImprovementsMade:   improvements,
		UserActionRequired: action,
	}
}

// RefineWithFeedback produces a new refinement from the previous improved
// prompt and the user's feedback. The adjusted result is always offered for
// acceptance so a feedback loop cannot spin forever.
func (s *RefinerService) RefineWithFeedback(originalPrompt, previousImproved, feedback string) *models.PromptRefinement {
	feedbackLower := strings.ToLower(feedback)
	adjusted := previousImproved

	if strings.Contains(feedbackLower, "too long") || strings.Contains(feedbackLower, "verbose") {
		if idx := strings.IndexByte(adjusted, '\n'); idx >= 0 {
			adjusted = adjusted[:idx]
		}
	}

	if strings.Contains(feedbackLower, "too technical") || strings.Contains(feedbackLower, "simple") {
		adjusted = technicalLineRe.ReplaceAllString(adjusted, "")
		adjusted = durationLineRe.ReplaceAllString(adjusted, "")
	}

	if strings.Contains(feedbackLower, "more detail") || strings.Contains(feedbackLower, "elaborate") {
		if !strings.Contains(adjusted, "Style:") {
			adjusted += "\n- Style: [Cinematic approach - documentary, narrative, experimental, etc.]"
		}
		if !strings.Contains(adjusted, "Audio:") {
			adjusted += "\n- Audio: [Music style, voice-over needs, sound design requirements]"
		}
	}

	newAnalysis := s.analyzePrompt(adjusted)
	_, improvements := s.improvePrompt(adjusted, newAnalysis)

	return &models.PromptRefinement{
		OriginalPrompt:       originalPrompt,
		ImprovedPrompt:       adjusted,
		IssuesDetected:       newAnalysis.Issues,
		ImprovementsMade:     append([]string{"Adjusted based on user feedback"}, improvements...),
		UserActionRequired:   models.ActionAccept,
		FeedbackIncorporated: feedback,
	}
}

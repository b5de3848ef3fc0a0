// internal/services/planner_service.go
package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/litelis/FrameForge/internal/models"
	"github.com/litelis/FrameForge/internal/utils"
)

// PlanInputs bundles everything scene synthesis consumes.
type PlanInputs struct {
	Request    string
	Answers    models.AnswerSet
	Transcript *models.Transcript
	Visual     *models.VisualAnalysis
	Narrative  *models.NarrativeAnalysis
}

// archetypeThemes maps the inferred arc to a theme line for the plan header.
var archetypeThemes = map[models.Archetype]string{
	models.ArchetypeHeroJourney:    "Personal transformation through challenge and triumph",
	models.ArchetypeTransformation: "Internal change and self-discovery",
	models.ArchetypeLoveStory:      "Connection and relationship development",
	models.ArchetypeTragedy:        "Loss, reflection, and emotional truth",
	models.ArchetypeComedy:         "Joy, humor, and lighthearted moments",
	models.ArchetypeMystery:        "Discovery and revelation",
	models.ArchetypeDocumentary:    "Authentic human experience and truth",
	models.ArchetypeMontage:        "Time, memory, and progression",
	models.ArchetypeInterview:      "Personal narrative and intimate perspective",
	models.ArchetypeEventCoverage:  "Celebration and shared experience",
}

// toneTitles provides fallbacks when the request itself suggests no title.
var toneTitles = []struct {
	Key   string
	Title string
}{
	{"joyful", "Radiance"},
	{"melancholic", "Echoes of Yesterday"},
	{"suspenseful", "The Edge"},
	{"romantic", "Two Hearts"},
	{"inspirational", "Rise"},
	{"nostalgic", "Time Remembered"},
	{"energetic", "Momentum"},
	{"calm", "Serenity"},
	{"dramatic", "The Turning Point"},
}

// PlannerService implements the scene synthesis phase: a deterministic plan
// generator with an optional LLM director that falls back to the
// deterministic path on any failure.
type PlannerService struct {
	llm    *LLMService
	logger *utils.Logger
}

// NewPlannerService creates the scene synthesis service. llm may be nil.
func NewPlannerService(llm *LLMService) *PlannerService {
	return &PlannerService{
		llm:    llm,
		logger: utils.GetLogger(),
	}
}

// planDurationSeconds maps a duration bucket answer to the representative
// runtime used for scene math. This table intentionally differs from the
// pacing table: it targets mid-bucket runtimes, not upper bounds.
func planDurationSeconds(durationAnswer string) int {
	switch {
	case strings.Contains(durationAnswer, "15-30"):
		return 25
	case strings.Contains(durationAnswer, "30-60"):
		return 45
	case strings.Contains(durationAnswer, "1-3"):
		return 120
	case strings.Contains(durationAnswer, "3-10"):
		return 360
	case strings.Contains(durationAnswer, "10-30"):
		return 1200
	default:
		return 180
	}
}

// formatFromPlatform resolves the aspect ratio from the platform answer.
func formatFromPlatform(platform string) models.VideoFormat {
	lower := strings.ToLower(platform)
	if strings.Contains(lower, "tiktok") || strings.Contains(lower, "reels") || strings.Contains(lower, "stories") {
		return models.Format9x16
	}
	if strings.Contains(lower, "instagram") && strings.Contains(lower, "feed") {
		return models.Format1x1
	}
	return models.Format16x9
}

// normalizeToken lowercases an answer token and squashes it into a
// snake_case label.
func normalizeToken(s string) string {
	s = strings.ToLower(s)
	s = strings.NewReplacer("(", "", ")", "", "-", "_").Replace(s)
	return strings.ReplaceAll(s, " ", "_")
}

// voiceOverConfig resolves synthesized voice profiles from the answers.
func voiceOverConfig(answers models.AnswerSet) models.VoiceOverConfig {
	needed := answers.Get("voice_over_needed")
	if !strings.Contains(needed, "Yes") {
		return models.VoiceOverConfig{Enabled: false}
	}

	language := answers.Get("voice_language")
	if language == "" {
		language = "English"
	}
	language = strings.ToLower(language)

	if strings.Contains(strings.ToLower(needed), "single") {
		gender := answers.Get("voice_gender")
		if gender == "" {
			gender = "No preference"
		}
		age := answers.Get("voice_age")
		if age == "" {
			age = "Adult"
		}
		return models.VoiceOverConfig{
			Enabled: true,
			Voices: []models.VoiceProfile{{
				Gender:   normalizeToken(gender),
				Language: language,
				Age:      normalizeToken(age),
			}},
		}
	}

	return models.VoiceOverConfig{
		Enabled: true,
		Voices: []models.VoiceProfile{
			{Gender: "male", Language: language, Age: "adult"},
			{Gender: "female", Language: language, Age: "adult"},
		},
	}
}

// subtitleConfig resolves the subtitle configuration from the answers.
func subtitleConfig(answers models.AnswerSet) models.SubtitleConfig {
	subs := answers.Get("subtitles_enabled")
	if !strings.Contains(subs, "Yes") {
		return models.SubtitleConfig{Enabled: false}
	}

	subType := models.SubtitleSRT
	if strings.Contains(strings.ToLower(subs), "burned") {
		subType = models.SubtitleBurned
	}

	style := answers.Get("subtitle_style")
	if style == "" {
		style = "Professional"
	}

	return models.SubtitleConfig{
		Enabled: true,
		Type:    subType,
		Style:   normalizeToken(style),
	}
}

// rhythmCutsPerMinute maps the rhythm answer's leading word to a cutting
// rate. Unlike the pacing computation, scene budgeting carries no platform
// floor.
func rhythmCutsPerMinute(rhythm string) int {
	words := strings.Fields(strings.ToLower(rhythm))
	if len(words) == 0 {
		return 15
	}
	switch words[0] {
	case "slow":
		return 8
	case "fast":
		return 30
	default:
		return 15
	}
}

// sceneCount derives the scene count from runtime and cutting rate, clamped
// to [3, 8].
func sceneCount(totalDuration int, answers models.AnswerSet) int {
	cpm := rhythmCutsPerMinute(answers.Get("editing_rhythm"))
	n := int(float64(totalDuration) / 60 * float64(cpm) / 4)
	if n < 3 {
		n = 3
	}
	if n > 8 {
		n = 8
	}
	return n
}

// sceneDurations splits the runtime across scenes, scaling by rhythm and
// absorbing rounding drift in the last scene so the sum is exact.
func sceneDurations(totalDuration, numScenes int, rhythm string) []int {
	base := totalDuration / numScenes
	rhythmLower := strings.ToLower(rhythm)

	scaled := base
	if strings.Contains(rhythmLower, "slow") {
		scaled = int(float64(base) * 1.2)
	} else if strings.Contains(rhythmLower, "fast") {
		scaled = int(float64(base) * 0.8)
	}

	durations := make([]int, numScenes)
	sum := 0
	for i := range durations {
		durations[i] = scaled
		sum += scaled
	}
	durations[numScenes-1] += totalDuration - sum

	return durations
}

// sceneStages walks the 5-stage narrative template, padding with extra
// rising_action stages before the climax when the plan has more scenes.
func sceneStages(numScenes int) []models.BeatName {
	stages := []models.BeatName{
		models.BeatHook, models.BeatSetup, models.BeatRisingAction,
		models.BeatClimax, models.BeatResolution,
	}
	for len(stages) < numScenes {
		// Insert before the climax.
		tail := append([]models.BeatName{models.BeatRisingAction}, stages[2:]...)
		stages = append(stages[:2:2], tail...)
	}
	return stages
}

// buildScenes derives each scene's goal, visuals, audio role, transition and
// voice-over line from its stage and the matching emotional beat.
func (s *PlannerService) buildScenes(inputs PlanInputs, durations []int) []models.Scene {
	answers := inputs.Answers
	rhythm := strings.ToLower(answers.Get("editing_rhythm"))
	tone := answers.Get("emotional_tone")
	if tone == "" {
		tone = "neutral"
	}
	ending := strings.ToLower(answers.Get("ending_style"))
	voiceNeeded := answers.Get("voice_over_needed")
	subsEnabled := strings.Contains(answers.Get("subtitles_enabled"), "Yes")

	var progression []models.EmotionalBeat
	if inputs.Narrative != nil {
		progression = inputs.Narrative.EmotionalProgression
	}

	stages := sceneStages(len(durations))

	scenes := make([]models.Scene, 0, len(durations))
	currentTime := 0

	for i, duration := range durations {
		stage := models.BeatName("development")
		if i < len(stages) {
			stage = stages[i]
		}

		beat := models.EmotionalBeat{Emotion: strings.ToLower(tone), Intensity: 0.5}
		if i < len(progression) {
			beat = progression[i]
		}

		var visual string
		var audio models.AudioRole
		var transition models.TransitionStyle

		switch stage {
		case models.BeatHook:
			visual = "Impactful opening shot that establishes tone and grabs attention"
			audio = models.AudioMusic
			if strings.Contains(voiceNeeded, "voice") {
				audio = models.AudioVoiceOver
			}
			transition = models.TransitionCut
		case models.BeatSetup:
			visual = "Establishing context and introducing key elements"
			audio = models.AudioAmbient
			if !inputs.Transcript.IsEmpty() {
				audio = models.AudioDialogue
			}
			transition = models.TransitionCut
			if strings.Contains(rhythm, "slow") {
				transition = models.TransitionFade
			}
		case models.BeatRisingAction:
			visual = fmt.Sprintf("Building tension with %s energy", beat.Emotion)
			audio = models.AudioDialogue
			if beat.Intensity > 0.6 {
				audio = models.AudioMusic
			}
			transition = models.TransitionCut
			if i < len(durations)-1 {
				transition = models.TransitionMatchCut
			}
		case models.BeatClimax:
			visual = fmt.Sprintf("Peak emotional moment: %s at maximum intensity", beat.Emotion)
			audio = models.AudioMusic
			transition = models.TransitionFade
		default: // resolution
			switch {
			case strings.Contains(ending, "open"):
				visual = "Thought-provoking final image that lingers"
			case strings.Contains(ending, "cliffhanger"):
				visual = "Suspenseful final moment that hints at continuation"
			default:
				visual = "Satisfying conclusion that resolves the narrative"
			}
			audio = models.AudioMusic
			if strings.Contains(ending, "open") {
				audio = models.AudioAmbient
			}
			transition = models.TransitionFade
		}

		voiceText := ""
		if strings.HasPrefix(voiceNeeded, "Yes") {
			switch stage {
			case models.BeatHook:
				voiceText = "[Opening hook - introduce the journey]"
			case models.BeatSetup:
				voiceText = "[Context setting - establish the story]"
			case models.BeatClimax:
				voiceText = fmt.Sprintf("[Emotional peak - %s]", beat.Emotion)
			case models.BeatResolution:
				voiceText = "[Closing reflection - leave the audience with the message]"
			}
		}

		stageLabel := titleWords(strings.ReplaceAll(string(stage), "_", " "))

		scenes = append(scenes, models.Scene{
			SceneID:       i + 1,
			Goal:          fmt.Sprintf("%s: %s (%.0f%% intensity)", stageLabel, beat.Emotion, beat.Intensity*100),
			Start:         models.FormatTimestamp(currentTime),
			End:           models.FormatTimestamp(currentTime + duration),
			Visual:        visual,
			Audio:         audio,
			VoiceOverText: voiceText,
			SubtitleUsage: subsEnabled,
			Transition:    transition,
		})

		currentTime += duration
	}

	return scenes
}

func titleWords(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}

// generateTitle derives a cinematic title from the request, falling back to
// tone-keyed titles and finally a generic label.
func generateTitle(request, tone string) string {
	words := strings.Fields(strings.ToLower(request))
	has := func(w string) bool {
		for _, word := range words {
			if word == w {
				return true
			}
		}
		return false
	}

	switch {
	case has("interview"):
		return "Voices: A Personal Story"
	case has("wedding"):
		return "Forever Begins"
	case has("travel") || has("vacation") || has("trip"):
		return "Wanderlust: A Journey Captured"
	case has("documentary"):
		return "The Untold Story"
	case has("product") || has("commercial"):
		return "Innovation Revealed"
	case has("event"):
		return "The Moment"
	}

	toneLower := strings.ToLower(tone)
	for _, entry := range toneTitles {
		if strings.Contains(toneLower, entry.Key) {
			return entry.Title
		}
	}

	return "The Edit"
}

// generateTheme maps the inferred arc to a theme line.
func generateTheme(narrative *models.NarrativeAnalysis) string {
	arc := models.ArchetypeDocumentary
	if narrative != nil {
		arc = narrative.NarrativeArc
	}
	if theme, ok := archetypeThemes[arc]; ok {
		return theme
	}
	return "Human experience captured through cinematic lens"
}

// generateStyle assembles the style line from rhythm, tone and color answers.
func generateStyle(answers models.AnswerSet) string {
	rhythm := strings.ToLower(answers.Get("editing_rhythm"))
	tone := answers.Get("emotional_tone")
	if tone == "" {
		tone = "neutral"
	}
	color := answers.Get("color_grade")
	if color == "" {
		color = "Natural"
	}

	var parts []string
	switch {
	case strings.Contains(rhythm, "slow"):
		parts = append(parts, "Contemplative pacing with deliberate, measured cuts")
	case strings.Contains(rhythm, "fast"):
		parts = append(parts, "Dynamic, energetic editing with rapid cuts")
	default:
		parts = append(parts, "Balanced rhythm with natural flow")
	}
	parts = append(parts, strings.ToLower(tone)+" emotional tone")
	parts = append(parts, strings.ToLower(color)+" color palette")

	return strings.Join(parts, "; ")
}

// GeneratePlan builds the full scene plan deterministically. The result is
// validated against the plan invariants before it is returned.
func (s *PlannerService) GeneratePlan(inputs PlanInputs) (*models.ScenePlan, error) {
	answers := inputs.Answers

	totalDuration := planDurationSeconds(answers.Get("target_duration"))
	numScenes := sceneCount(totalDuration, answers)
	durations := sceneDurations(totalDuration, numScenes, answers.Get("editing_rhythm"))

	tone := answers.Get("emotional_tone")
	if tone == "" {
		tone = "neutral"
	}

	plan := &models.ScenePlan{
		Title:     generateTitle(inputs.Request, tone),
		Theme:     generateTheme(inputs.Narrative),
		Style:     generateStyle(answers),
		Format:    formatFromPlatform(answers.Get("target_platform")),
		VoiceOver: voiceOverConfig(answers),
		Subtitles: subtitleConfig(answers),
		Scenes:    s.buildScenes(inputs, durations),
	}

	if err := plan.Validate(); err != nil {
		return nil, err
	}

	return plan, nil
}

const directorSystemPrompt = `You are an elite, award-winning film editor with access to the full transcript of the footage and a visual analysis of its scenes.

YOUR GOAL:
Create a video edit sequence strictly based on the user's request, combining the strongest visual moments with the most relevant dialogue.

INPUTS YOU WILL RECEIVE:
1. [REQUEST] - The user's request with all parameters
2. [TRANSCRIPT] - Text and dialogue from the video
3. [VISUALS] - Visual analysis of scenes
4. [NARRATIVE] - Narrative arc and emotional progression analysis

INSTRUCTIONS:
- Think like a professional director
- Maintain emotional coherence
- Prioritize narrative impact
- Plan every scene carefully
- Respect the specified rhythm and tone
- Use transitions appropriate to the style

STRICT RULES:
- Do NOT invent content absent from the source material
- Do NOT change the user's intent
- ALWAYS use real timestamps based on the transcript
- ALWAYS justify each scene choice

OUTPUT FORMAT - STRICT JSON:
{
  "title": "Cinematic title",
  "theme": "Central theme",
  "style": "Visual and narrative style",
  "format": "16:9 | 9:16 | 1:1",
  "voice_over": {"enabled": true, "voices": [{"gender": "male", "language": "en", "age": "adult", "text": "..."}]},
  "subtitles": {"enabled": true, "type": "burned", "style": "cinematic"},
  "scenes": [{"scene_id": 1, "goal": "...", "start": "00:00", "end": "00:05", "visual": "...", "audio": "dialogue", "voice_over_text": "...", "subtitle_usage": true, "transition": "cut"}]
}

IMPORTANT: Respond with ONLY the valid JSON. No additional text before or after.`

// GeneratePlanWithLLM asks the configured model to direct the edit. Any
// transport failure, unparseable output, or invalid plan falls back to the
// deterministic generator.
func (s *PlannerService) GeneratePlanWithLLM(ctx context.Context, inputs PlanInputs) (*models.ScenePlan, error) {
	if s.llm == nil || !s.llm.IsReady() {
		return s.GeneratePlan(inputs)
	}

	transcriptJSON, _ := json.Marshal(inputs.Transcript)
	visualJSON, _ := json.Marshal(inputs.Visual)
	narrativeJSON, _ := json.Marshal(inputs.Narrative)
	answersJSON, _ := json.Marshal(inputs.Answers)

	userInput := fmt.Sprintf(
		"[REQUEST]:\n%s\n\n[ANSWERS]:\n%s\n\n[TRANSCRIPT]:\n%s\n\n[VISUALS]:\n%s\n\n[NARRATIVE]:\n%s\n",
		inputs.Request, answersJSON, transcriptJSON, visualJSON, narrativeJSON,
	)

	raw, err := s.llm.CreateStructuredCompletion(ctx, directorSystemPrompt, userInput)
	if err != nil {
		s.logger.Warn("Director model call failed, using deterministic plan", map[string]interface{}{"error": err.Error()})
		return s.GeneratePlan(inputs)
	}

	plan, err := parseScenePlan(raw)
	if err != nil {
		s.logger.Warn("Director response unparseable, using deterministic plan", map[string]interface{}{"error": err.Error()})
		return s.GeneratePlan(inputs)
	}

	if err := plan.Validate(); err != nil {
		s.logger.Warn("Director plan failed validation, using deterministic plan", map[string]interface{}{"error": err.Error()})
		return s.GeneratePlan(inputs)
	}

	return plan, nil
}

// parseScenePlan extracts a plan object from raw model output by locating
// the outermost braces.
func parseScenePlan(raw string) (*models.ScenePlan, error) {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start == -1 || end == -1 || end <= start {
		return nil, fmt.Errorf("no JSON object found in response")
	}

	slice := raw[start : end+1]
	if !gjson.Valid(slice) {
		return nil, fmt.Errorf("extracted JSON object is invalid")
	}

	// Models sometimes nest the plan under a wrapper key. Locate the
	// object that actually carries the scenes array before decoding.
	doc := gjson.Parse(slice)
	planDoc := doc
	if !doc.Get("scenes").IsArray() {
		for _, key := range []string{"scene_plan", "plan", "result"} {
			if nested := doc.Get(key); nested.IsObject() && nested.Get("scenes").IsArray() {
				planDoc = nested
				break
			}
		}
	}
	if !planDoc.Get("scenes").IsArray() {
		return nil, fmt.Errorf("response has no scenes array")
	}

	var plan models.ScenePlan
	if err := json.Unmarshal([]byte(planDoc.Raw), &plan); err != nil {
		return nil, fmt.Errorf("decoding scene plan: %w", err)
	}

	return &plan, nil
}

// internal/services/narrative_service.go
package services

import (
	"fmt"
	"strings"

	"github.com/litelis/FrameForge/internal/models"
	"github.com/litelis/FrameForge/internal/utils"
)

// archetypeDescriptions drive keyword scoring for arc selection. The
// description words longer than four characters act as weak signals.
var archetypeDescriptions = map[models.Archetype]string{
	models.ArchetypeHeroJourney:    "Protagonist overcomes challenges to achieve goal",
	models.ArchetypeTransformation: "Character undergoes significant internal change",
	models.ArchetypeLoveStory:      "Relationship develops through obstacles",
	models.ArchetypeTragedy:        "Downward arc ending in loss or failure",
	models.ArchetypeComedy:         "Humorous situations leading to happy resolution",
	models.ArchetypeMystery:        "Unknown revealed through investigation",
	models.ArchetypeDocumentary:    "Informational with emotional human element",
	models.ArchetypeMontage:        "Collection of moments showing progression",
	models.ArchetypeInterview:      "Personal story told through dialogue",
	models.ArchetypeEventCoverage:  "Chronological documentation with highlights",
}

// symbolFamilies maps trigger words to the symbolic reading they suggest.
var symbolFamilies = []struct {
	Triggers []string
	Note     string
}{
	{[]string{"journey", "travel", "road", "path"}, "Journey/Path = Life's progression or personal growth"},
	{[]string{"light", "sun", "bright", "dark", "shadow"}, "Light/Dark = Hope/despair, knowledge/ignorance, good/evil"},
	{[]string{"water", "ocean", "river", "rain"}, "Water = Emotions, purification, life flow"},
	{[]string{"mountain", "climb", "peak", "height"}, "Mountains/Height = Challenges, achievement, perspective"},
	{[]string{"door", "gate", "entrance", "threshold"}, "Doors/Gates = New opportunities, transitions, choices"},
	{[]string{"mirror", "reflection", "glass"}, "Mirrors = Self-reflection, truth, identity"},
}

// NarrativeService implements the narrative reasoning phase. All of its
// computation is deterministic and non-blocking; the detailed analysis stays
// internal and only a summary crosses the user boundary.
type NarrativeService struct {
	logger *utils.Logger
}

// NewNarrativeService creates the narrative reasoning service.
func NewNarrativeService() *NarrativeService {
	return &NarrativeService{
		logger: utils.GetLogger(),
	}
}

// IdentifyNarrativeArc scores the archetypes against the prompt and answer
// signals and returns the best match, falling back to a content-based
// default when nothing scores.
func (s *NarrativeService) IdentifyNarrativeArc(prompt string, answers models.AnswerSet) models.Archetype {
	promptLower := strings.ToLower(prompt)

	scores := make(map[models.Archetype]int, len(archetypeDescriptions))
	for arc, description := range archetypeDescriptions {
		score := 0
		name := string(arc)
		if strings.Contains(promptLower, strings.ReplaceAll(name, "_", " ")) {
			score += 3
		}
		if strings.Contains(promptLower, name) {
			score += 3
		}
		for _, keyword := range strings.Fields(strings.ToLower(description)) {
			if len(keyword) > 4 && strings.Contains(promptLower, keyword) {
				score++
			}
		}
		scores[arc] = score
	}

	tone := strings.ToLower(answers.Get("emotional_tone"))
	if strings.Contains(tone, "tragedy") || strings.Contains(tone, "sad") || strings.Contains(tone, "melancholic") {
		scores[models.ArchetypeTragedy] += 2
	}
	if strings.Contains(tone, "inspirational") || strings.Contains(tone, "motivational") {
		scores[models.ArchetypeHeroJourney] += 2
	}
	if strings.Contains(tone, "romantic") || strings.Contains(tone, "love") {
		scores[models.ArchetypeLoveStory] += 2
	}

	if source, ok := answers["source_material"]; ok {
		if source.ContainsFold("interview footage") {
			scores[models.ArchetypeInterview] += 3
		}
		if source.ContainsFold("b-roll") && source.ContainsFold("interview") {
			scores[models.ArchetypeDocumentary] += 2
		}
	}

	// A unique positive top score wins. Ties and all-zero scores fall
	// through to the content-based default.
	var best models.Archetype
	bestScore := 0
	tied := false
	for arc, score := range scores {
		switch {
		case score > bestScore:
			best = arc
			bestScore = score
			tied = false
		case score == bestScore && score > 0:
			tied = true
		}
	}
	if bestScore > 0 && !tied {
		return best
	}

	if strings.Contains(promptLower, "interview") {
		return models.ArchetypeInterview
	}
	if containsAny(promptLower, []string{"wedding", "event", "vacation", "trip"}) {
		return models.ArchetypeMontage
	}
	return models.ArchetypeDocumentary
}

// MapEmotionalProgression builds the 5-beat emotional curve parameterized by
// the declared rhythm and tone. The ending style can override the final
// beat.
func (s *NarrativeService) MapEmotionalProgression(prompt string, answers models.AnswerSet) []models.EmotionalBeat {
	tone := answers.Get("emotional_tone")
	if tone == "" {
		tone = "neutral"
	}
	rhythm := strings.ToLower(answers.Get("editing_rhythm"))
	if rhythm == "" {
		rhythm = "medium"
	}

	var progression []models.EmotionalBeat
	switch {
	case strings.Contains(rhythm, "slow"):
		progression = []models.EmotionalBeat{
			{Beat: models.BeatHook, Emotion: "curiosity", Intensity: 0.3, Pacing: "slow"},
			{Beat: models.BeatSetup, Emotion: tone, Intensity: 0.4, Pacing: "slow"},
			{Beat: models.BeatRisingAction, Emotion: tone, Intensity: 0.5, Pacing: "medium"},
			{Beat: models.BeatClimax, Emotion: "intense_" + tone, Intensity: 0.7, Pacing: "slow"},
			{Beat: models.BeatResolution, Emotion: "peaceful", Intensity: 0.3, Pacing: "very_slow"},
		}
	case strings.Contains(rhythm, "fast"):
		progression = []models.EmotionalBeat{
			{Beat: models.BeatHook, Emotion: "excitement", Intensity: 0.7, Pacing: "fast"},
			{Beat: models.BeatSetup, Emotion: tone, Intensity: 0.5, Pacing: "fast"},
			{Beat: models.BeatRisingAction, Emotion: "building_" + tone, Intensity: 0.8, Pacing: "very_fast"},
			{Beat: models.BeatClimax, Emotion: "peak_" + tone, Intensity: 1.0, Pacing: "fast"},
			{Beat: models.BeatResolution, Emotion: "satisfaction", Intensity: 0.6, Pacing: "medium"},
		}
	default:
		progression = []models.EmotionalBeat{
			{Beat: models.BeatHook, Emotion: "interest", Intensity: 0.5, Pacing: "medium"},
			{Beat: models.BeatSetup, Emotion: tone, Intensity: 0.4, Pacing: "medium"},
			{Beat: models.BeatRisingAction, Emotion: "developing_" + tone, Intensity: 0.6, Pacing: "medium"},
			{Beat: models.BeatClimax, Emotion: "intense_" + tone, Intensity: 0.9, Pacing: "medium_fast"},
			{Beat: models.BeatResolution, Emotion: "fulfillment", Intensity: 0.5, Pacing: "slow"},
		}
	}

	ending := strings.ToLower(answers.Get("ending_style"))
	last := len(progression) - 1
	if strings.Contains(ending, "open") {
		progression[last].Emotion = "contemplation"
		progression[last].Intensity = 0.4
	} else if strings.Contains(ending, "cliffhanger") {
		progression[last].Emotion = "suspense"
		progression[last].Intensity = 0.8
	}

	return progression
}

// AnalyzeSceneContrasts flags adjacent visual scenes that differ in
// lighting, color, movement or scale. Movement contrast suggests a hard cut,
// anything else a fade.
func (s *NarrativeService) AnalyzeSceneContrasts(visual *models.VisualAnalysis, progression []models.EmotionalBeat) []models.SceneContrast {
	var contrasts []models.SceneContrast
	if visual == nil || len(visual.Scenes) < 2 {
		return contrasts
	}

	clampBeat := func(i int) string {
		if i > len(progression)-1 {
			i = len(progression) - 1
		}
		if i < 0 || len(progression) == 0 {
			return ""
		}
		return progression[i].Emotion
	}

	for i := 0; i < len(visual.Scenes)-1; i++ {
		current, next := visual.Scenes[i], visual.Scenes[i+1]

		var types []string
		if current.Lighting != next.Lighting {
			types = append(types, "lighting")
		}
		if current.ColorPalette != next.ColorPalette {
			types = append(types, "color")
		}
		if current.Movement != next.Movement {
			types = append(types, "movement")
		}
		if current.Scale != next.Scale {
			types = append(types, "scale")
		}
		if len(types) == 0 {
			continue
		}

		transition := models.TransitionFade
		for _, t := range types {
			if t == "movement" {
				transition = models.TransitionCut
				break
			}
		}

		contrasts = append(contrasts, models.SceneContrast{
			BetweenScenes: [2]int{i, i + 1},
			ContrastTypes: types,
			EmotionalShift: models.EmotionalShift{
				From: clampBeat(i),
				To:   clampBeat(i + 1),
			},
			RecommendedTransition: transition,
		})
	}

	return contrasts
}

// durationSecondsFromAnswer maps a duration bucket answer to a
// representative runtime. Unmatched answers default to three minutes.
func durationSecondsFromAnswer(durationAnswer string) int {
	switch {
	case strings.Contains(durationAnswer, "15-30"):
		return 30
	case strings.Contains(durationAnswer, "30-60"):
		return 60
	case strings.Contains(durationAnswer, "1-3"):
		return 180
	case strings.Contains(durationAnswer, "3-10"):
		return 600
	case strings.Contains(durationAnswer, "10-30"):
		return 1800
	default:
		return 180
	}
}

// cutsPerMinuteFromAnswers derives the base cutting rate from the rhythm
// answer, with a floor of 25 for short-form social platforms.
func cutsPerMinuteFromAnswers(answers models.AnswerSet) int {
	rhythm := strings.ToLower(answers.Get("editing_rhythm"))

	cpm := 15
	switch {
	case strings.Contains(rhythm, "slow"):
		cpm = 8
	case strings.Contains(rhythm, "fast"):
		cpm = 30
	}

	platform := strings.ToLower(answers.Get("target_platform"))
	if strings.Contains(platform, "tiktok") || strings.Contains(platform, "reels") {
		if cpm < 25 {
			cpm = 25
		}
	}

	return cpm
}

// CalculatePacing resolves runtime, cutting rate and the per-beat rhythm
// pattern from the answers.
func (s *NarrativeService) CalculatePacing(answers models.AnswerSet, progression []models.EmotionalBeat) models.PacingPlan {
	durationSeconds := durationSecondsFromAnswer(answers.Get("target_duration"))
	cutsPerMinute := cutsPerMinuteFromAnswers(answers)

	return models.PacingPlan{
		TotalDurationSeconds:  durationSeconds,
		CutsPerMinute:         cutsPerMinute,
		EstimatedTotalCuts:    int(float64(durationSeconds) / 60 * float64(cutsPerMinute)),
		AverageShotLengthSecs: 60 / cutsPerMinute,
		RhythmPattern:         s.rhythmPattern(progression, cutsPerMinute),
	}
}

// rhythmPattern scales the base cutting rate per beat: high-intensity beats
// cut 1.5x faster, low-intensity beats 0.6x slower.
func (s *NarrativeService) rhythmPattern(progression []models.EmotionalBeat, baseCutsPerMinute int) []models.BeatRhythm {
	pattern := make([]models.BeatRhythm, 0, len(progression))
	for _, beat := range progression {
		cuts := baseCutsPerMinute
		if beat.Intensity > 0.8 {
			cuts = int(float64(baseCutsPerMinute) * 1.5)
		} else if beat.Intensity < 0.4 {
			cuts = int(float64(baseCutsPerMinute) * 0.6)
		}
		pattern = append(pattern, models.BeatRhythm{
			Beat:          beat.Beat,
			CutsPerMinute: cuts,
			Pacing:        beat.Pacing,
			Intensity:     beat.Intensity,
		})
	}
	return pattern
}

// DetectSymbolism joins the symbolic readings triggered by the prompt, or
// returns empty when none match.
func (s *NarrativeService) DetectSymbolism(prompt string) string {
	promptLower := strings.ToLower(prompt)

	var notes []string
	for _, family := range symbolFamilies {
		if containsAny(promptLower, family.Triggers) {
			notes = append(notes, family.Note)
		}
	}

	return strings.Join(notes, "; ")
}

// Analyze runs the full narrative reasoning pass. The returned analysis is
// stored whole in the session; only its Summarize() view may be shown to
// users.
func (s *NarrativeService) Analyze(
	prompt string,
	answers models.AnswerSet,
	transcript *models.Transcript,
	visual *models.VisualAnalysis,
) *models.NarrativeAnalysis {
	arc := s.IdentifyNarrativeArc(prompt, answers)
	progression := s.MapEmotionalProgression(prompt, answers)
	contrasts := s.AnalyzeSceneContrasts(visual, progression)
	pacing := s.CalculatePacing(answers, progression)
	symbolism := s.DetectSymbolism(prompt)

	tone := answers.Get("emotional_tone")
	if tone == "" {
		tone = "neutral"
	}

	analysis := &models.NarrativeAnalysis{
		NarrativeArc:         arc,
		EmotionalProgression: progression,
		DominantTone:         tone,
		Pacing:               pacing,
		SceneContrasts:       contrasts,
		SymbolismNotes:       symbolism,
	}

	confidence := "high"
	if arc == models.ArchetypeDocumentary {
		confidence = "medium"
	}
	analysis.SetInternals(confidence, len(contrasts), fmt.Sprintf("Base rhythm: %d cuts/min", pacing.CutsPerMinute))

	s.logger.Debug("Narrative arc selected", map[string]interface{}{"arc": string(arc), "confidence": confidence, "contrasts": len(contrasts)})

	return analysis
}

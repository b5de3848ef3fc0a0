// internal/models/narrative.go
package models

// Archetype names a narrative structure template used to bias scene content.
type Archetype string

const (
	ArchetypeHeroJourney    Archetype = "hero_journey"
	ArchetypeTransformation Archetype = "transformation"
	ArchetypeLoveStory      Archetype = "love_story"
	ArchetypeTragedy        Archetype = "tragedy"
	ArchetypeComedy         Archetype = "comedy"
	ArchetypeMystery        Archetype = "mystery"
	ArchetypeDocumentary    Archetype = "documentary"
	ArchetypeMontage        Archetype = "montage"
	ArchetypeInterview      Archetype = "interview"
	ArchetypeEventCoverage  Archetype = "event_coverage"
)

// BeatName identifies a position in the narrative arc.
type BeatName string

const (
	BeatHook         BeatName = "hook"
	BeatSetup        BeatName = "setup"
	BeatRisingAction BeatName = "rising_action"
	BeatClimax       BeatName = "climax"
	BeatResolution   BeatName = "resolution"
)

// EmotionalBeat is one step of the emotional progression. Intensity is in
// [0,1]; Pacing is a free-form descriptor (slow, medium, fast, very_fast...).
type EmotionalBeat struct {
	Beat      BeatName `json:"beat"`
	Emotion   string   `json:"emotion"`
	Intensity float64  `json:"intensity"`
	Pacing    string   `json:"pacing"`
}

// BeatRhythm is the per-beat pacing derived from base cuts-per-minute.
type BeatRhythm struct {
	Beat          BeatName `json:"beat"`
	CutsPerMinute int      `json:"cuts_per_minute"`
	Pacing        string   `json:"pacing"`
	Intensity     float64  `json:"intensity"`
}

// PacingPlan is the recommended pacing for the full edit.
type PacingPlan struct {
	TotalDurationSeconds  int          `json:"total_duration_seconds"`
	CutsPerMinute         int          `json:"cuts_per_minute"`
	EstimatedTotalCuts    int          `json:"estimated_total_cuts"`
	AverageShotLengthSecs int          `json:"average_shot_length_seconds"`
	RhythmPattern         []BeatRhythm `json:"rhythm_pattern"`
}

// EmotionalShift records the emotional movement across a detected contrast.
type EmotionalShift struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// SceneContrast is a detected perceptual difference between two adjacent
// visual scenes, with the transition it suggests.
type SceneContrast struct {
	BetweenScenes         [2]int          `json:"between_scenes"`
	ContrastTypes         []string        `json:"contrast_types"`
	EmotionalShift        EmotionalShift  `json:"emotional_shift"`
	RecommendedTransition TransitionStyle `json:"recommended_transition"`
}

// analysisInternals carries reasoning-confidence metadata kept strictly
// inside the process. It must never cross the API boundary, so it is not
// serialized at all.
type analysisInternals struct {
	ArcConfidence       string
	EmotionalBeatsCount int
	ContrastOpportunity int
	PacingNotes         string
}

// NarrativeAnalysis is the output of the narrative reasoning phase. It is
// produced once per session and treated as read-only input to scene
// synthesis.
type NarrativeAnalysis struct {
	NarrativeArc         Archetype       `json:"narrative_arc"`
	EmotionalProgression []EmotionalBeat `json:"emotional_progression"`
	DominantTone         string          `json:"dominant_tone"`
	Pacing               PacingPlan      `json:"pacing_recommendation"`
	SceneContrasts       []SceneContrast `json:"scene_contrasts"`
	SymbolismNotes       string          `json:"symbolism_notes,omitempty"`

	internals analysisInternals
}

// SetInternals records confidence metadata for in-process diagnostics.
func (n *NarrativeAnalysis) SetInternals(arcConfidence string, contrasts int, pacingNotes string) {
	n.internals = analysisInternals{
		ArcConfidence:       arcConfidence,
		EmotionalBeatsCount: len(n.EmotionalProgression),
		ContrastOpportunity: contrasts,
		PacingNotes:         pacingNotes,
	}
}

// ArcConfidence exposes the internal confidence label to logging only.
func (n *NarrativeAnalysis) ArcConfidence() string {
	return n.internals.ArcConfidence
}

// Summary is the only narrative view shown to end users.
type NarrativeSummary struct {
	Arc  Archetype `json:"arc"`
	Tone string    `json:"tone"`
}

// Summarize strips everything but the arc and dominant tone.
func (n *NarrativeAnalysis) Summarize() NarrativeSummary {
	return NarrativeSummary{Arc: n.NarrativeArc, Tone: n.DominantTone}
}

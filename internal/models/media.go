// internal/models/media.go
package models

// TranscriptSegment is one timestamped piece of transcribed speech as
// returned by the transcription collaborator.
type TranscriptSegment struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
}

// Transcript is the full output of the transcription collaborator.
type Transcript struct {
	Segments []TranscriptSegment `json:"segments"`
	FullText string              `json:"full_text"`
	Language string              `json:"language"`
}

// IsEmpty reports whether the transcript carries any speech.
func (t *Transcript) IsEmpty() bool {
	return t == nil || len(t.Segments) == 0
}

// VisualDetection is one sampled-frame concept match from the visual signal
// collaborator.
type VisualDetection struct {
	Time  float64 `json:"time"`
	Label string  `json:"description"`
	Score float64 `json:"score"`
}

// VisualScene is a grouped visual segment with perceptual attributes used by
// scene-contrast detection. Attribute values are free-form labels; contrast
// detection only compares them for inequality.
type VisualScene struct {
	Lighting     string `json:"lighting,omitempty"`
	ColorPalette string `json:"color_palette,omitempty"`
	Movement     string `json:"movement,omitempty"`
	Scale        string `json:"scale,omitempty"`
}

// VisualAnalysis bundles everything the visual collaborator produced.
type VisualAnalysis struct {
	Scenes     []VisualScene     `json:"scenes"`
	Detections []VisualDetection `json:"key_frames,omitempty"`
}

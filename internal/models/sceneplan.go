// internal/models/sceneplan.go
package models

import (
	"fmt"
	"strconv"
	"strings"

	apperrors "github.com/litelis/FrameForge/internal/errors"
)

// VideoFormat is the aspect ratio of the final edit.
type VideoFormat string

const (
	Format16x9 VideoFormat = "16:9"
	Format9x16 VideoFormat = "9:16"
	Format1x1  VideoFormat = "1:1"
)

// SubtitleType distinguishes burned-in subtitles from a separate SRT file.
type SubtitleType string

const (
	SubtitleBurned SubtitleType = "burned"
	SubtitleSRT    SubtitleType = "srt"
)

// TransitionStyle is the cut style into the next scene.
type TransitionStyle string

const (
	TransitionCut      TransitionStyle = "cut"
	TransitionFade     TransitionStyle = "fade"
	TransitionDissolve TransitionStyle = "dissolve"
	TransitionWipe     TransitionStyle = "wipe"
	TransitionMatchCut TransitionStyle = "match_cut"
)

// AudioRole is the dominant audio layer of a scene.
type AudioRole string

const (
	AudioDialogue  AudioRole = "dialogue"
	AudioMusic     AudioRole = "music"
	AudioVoiceOver AudioRole = "voice_over"
	AudioAmbient   AudioRole = "ambient"
	AudioSilence   AudioRole = "silence"
)

// VoiceProfile describes one synthesized narration voice.
type VoiceProfile struct {
	Gender   string `json:"gender"`
	Language string `json:"language"`
	Age      string `json:"age"`
	Text     string `json:"text"`
}

// VoiceOverConfig is the project-level voice-over configuration.
type VoiceOverConfig struct {
	Enabled bool           `json:"enabled"`
	Voices  []VoiceProfile `json:"voices,omitempty"`
}

// SubtitleConfig is the project-level subtitle configuration.
type SubtitleConfig struct {
	Enabled bool         `json:"enabled"`
	Type    SubtitleType `json:"type,omitempty"`
	Style   string       `json:"style,omitempty"`
}

// Scene is one timed unit of the edit plan.
type Scene struct {
	SceneID       int             `json:"scene_id"`
	Goal          string          `json:"goal"`
	Start         string          `json:"start"`
	End           string          `json:"end"`
	Visual        string          `json:"visual"`
	Audio         AudioRole       `json:"audio"`
	VoiceOverText string          `json:"voice_over_text,omitempty"`
	SubtitleUsage bool            `json:"subtitle_usage"`
	Transition    TransitionStyle `json:"transition"`
}

// ScenePlan is the final output of scene synthesis.
type ScenePlan struct {
	Title     string          `json:"title"`
	Theme     string          `json:"theme"`
	Style     string          `json:"style"`
	Format    VideoFormat     `json:"format"`
	VoiceOver VoiceOverConfig `json:"voice_over"`
	Subtitles SubtitleConfig  `json:"subtitles"`
	Scenes    []Scene         `json:"scenes"`
}

// ParseTimestamp converts MM:SS or HH:MM:SS into seconds.
func ParseTimestamp(ts string) (int, error) {
	parts := strings.Split(ts, ":")
	if len(parts) != 2 && len(parts) != 3 {
		return 0, fmt.Errorf("timestamp %q must be MM:SS or HH:MM:SS", ts)
	}

	total := 0
	for _, part := range parts {
		n, err := strconv.Atoi(part)
		if err != nil || n < 0 {
			return 0, fmt.Errorf("timestamp %q has a non-numeric or negative component", ts)
		}
		total = total*60 + n
	}
	return total, nil
}

// FormatTimestamp renders seconds as MM:SS, or HH:MM:SS from one hour up.
func FormatTimestamp(seconds int) string {
	if seconds >= 3600 {
		return fmt.Sprintf("%02d:%02d:%02d", seconds/3600, (seconds%3600)/60, seconds%60)
	}
	return fmt.Sprintf("%02d:%02d", seconds/60, seconds%60)
}

// Validate enforces the plan invariants. A failed validation is surfaced to
// the caller as-is; the plan is never silently repaired.
func (p *ScenePlan) Validate() error {
	switch p.Format {
	case Format16x9, Format9x16, Format1x1:
	default:
		return apperrors.NewValidationError(fmt.Sprintf("format: unknown aspect ratio %q", p.Format), nil)
	}

	if len(p.Scenes) == 0 {
		return apperrors.NewValidationError("scenes: at least one scene required", nil)
	}

	if p.VoiceOver.Enabled && len(p.VoiceOver.Voices) == 0 {
		return apperrors.NewValidationError("voice_over.voices: at least one voice required when enabled", nil)
	}

	if p.Subtitles.Enabled && p.Subtitles.Type == "" {
		return apperrors.NewValidationError("subtitles.type: required when subtitles enabled", nil)
	}

	for i, scene := range p.Scenes {
		if scene.SceneID != i+1 {
			return apperrors.NewValidationError(
				fmt.Sprintf("scenes[%d].scene_id: expected %d, got %d (ids must be sequential from 1)", i, i+1, scene.SceneID), nil)
		}

		start, err := ParseTimestamp(scene.Start)
		if err != nil {
			return apperrors.NewValidationError(fmt.Sprintf("scenes[%d].start: %v", i, err), nil)
		}
		end, err := ParseTimestamp(scene.End)
		if err != nil {
			return apperrors.NewValidationError(fmt.Sprintf("scenes[%d].end: %v", i, err), nil)
		}
		if end < start {
			return apperrors.NewValidationError(
				fmt.Sprintf("scenes[%d]: end %s precedes start %s", i, scene.End, scene.Start), nil)
		}

		switch scene.Audio {
		case AudioDialogue, AudioMusic, AudioVoiceOver, AudioAmbient, AudioSilence:
		default:
			return apperrors.NewValidationError(fmt.Sprintf("scenes[%d].audio: unknown role %q", i, scene.Audio), nil)
		}

		switch scene.Transition {
		case TransitionCut, TransitionFade, TransitionDissolve, TransitionWipe, TransitionMatchCut:
		default:
			return apperrors.NewValidationError(fmt.Sprintf("scenes[%d].transition: unknown style %q", i, scene.Transition), nil)
		}
	}

	return nil
}

// TotalDurationSeconds sums the scene durations.
func (p *ScenePlan) TotalDurationSeconds() int {
	total := 0
	for _, scene := range p.Scenes {
		start, err1 := ParseTimestamp(scene.Start)
		end, err2 := ParseTimestamp(scene.End)
		if err1 == nil && err2 == nil && end > start {
			total += end - start
		}
	}
	return total
}

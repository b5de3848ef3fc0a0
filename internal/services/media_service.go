// internal/services/media_service.go
package services

import (
	"context"

	apperrors "github.com/litelis/FrameForge/internal/errors"
	"github.com/litelis/FrameForge/internal/models"
	"github.com/litelis/FrameForge/internal/utils"
)

// DefaultSearchConcepts are the frame-matching concepts used when the
// caller does not supply any.
var DefaultSearchConcepts = []string{"love", "fire", "sword", "sad woman", "action", "emotion"}

// DefaultSampleInterval is the frame sampling interval in seconds.
const DefaultSampleInterval = 2

// Transcriber produces a speech transcript from an uploaded media file.
type Transcriber interface {
	Transcribe(ctx context.Context, mediaRef string) (*models.Transcript, error)
}

// VisualAnalyzer samples a media file and matches frames against concepts.
type VisualAnalyzer interface {
	AnalyzeVisuals(ctx context.Context, mediaRef string, concepts []string, intervalSeconds int) (*models.VisualAnalysis, error)
}

// MediaService fronts the transcription and visual analysis collaborators.
// The planning pipeline only depends on the output shapes, so backends are
// swappable behind the two interfaces.
type MediaService struct {
	transcriber Transcriber
	visual      VisualAnalyzer
	logger      *utils.Logger
}

// NewMediaService wires the collaborators. Nil arguments select the
// built-in stub backends.
func NewMediaService(transcriber Transcriber, visual VisualAnalyzer) *MediaService {
	if transcriber == nil {
		transcriber = &StubTranscriber{}
	}
	if visual == nil {
		visual = &StubVisualAnalyzer{}
	}
	return &MediaService{
		transcriber: transcriber,
		visual:      visual,
		logger:      utils.GetLogger(),
	}
}

// Transcribe runs the transcription collaborator against the media file.
func (s *MediaService) Transcribe(ctx context.Context, mediaRef string) (*models.Transcript, error) {
	if mediaRef == "" {
		return nil, apperrors.NewValidationError("media reference required", nil)
	}
	transcript, err := s.transcriber.Transcribe(ctx, mediaRef)
	if err != nil {
		return nil, apperrors.NewProcessingError("transcription failed", err)
	}
	s.logger.Info("Transcription complete", map[string]interface{}{
		"media":    mediaRef,
		"segments": len(transcript.Segments),
		"language": transcript.Language,
	})
	return transcript, nil
}

// AnalyzeVisuals runs the visual collaborator. Empty concepts fall back to
// the default search set, a non-positive interval to the default sampling
// rate.
func (s *MediaService) AnalyzeVisuals(ctx context.Context, mediaRef string, concepts []string, intervalSeconds int) (*models.VisualAnalysis, error) {
	if mediaRef == "" {
		return nil, apperrors.NewValidationError("media reference required", nil)
	}
	if len(concepts) == 0 {
		concepts = DefaultSearchConcepts
	}
	if intervalSeconds <= 0 {
		intervalSeconds = DefaultSampleInterval
	}
	analysis, err := s.visual.AnalyzeVisuals(ctx, mediaRef, concepts, intervalSeconds)
	if err != nil {
		return nil, apperrors.NewProcessingError("visual analysis failed", err)
	}
	s.logger.Info("Visual analysis complete", map[string]interface{}{
		"media":      mediaRef,
		"scenes":     len(analysis.Scenes),
		"detections": len(analysis.Detections),
	})
	return analysis, nil
}

// StubTranscriber returns an empty Spanish transcript. It stands in until a
// real speech-to-text backend is attached.
type StubTranscriber struct{}

func (t *StubTranscriber) Transcribe(ctx context.Context, mediaRef string) (*models.Transcript, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return &models.Transcript{
		Segments: []models.TranscriptSegment{},
		FullText: "",
		Language: "es",
	}, nil
}

// StubVisualAnalyzer returns an empty analysis. It stands in until a real
// frame-matching backend is attached.
type StubVisualAnalyzer struct{}

func (a *StubVisualAnalyzer) AnalyzeVisuals(ctx context.Context, mediaRef string, concepts []string, intervalSeconds int) (*models.VisualAnalysis, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return &models.VisualAnalysis{
		Scenes:     []models.VisualScene{},
		Detections: []models.VisualDetection{},
	}, nil
}

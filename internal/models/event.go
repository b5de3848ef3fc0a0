// internal/models/event.go
package models

import (
	"fmt"
	"strings"
	"time"
)

// EventType identifies a notification event emitted during the workflow.
type EventType string

const (
	EventVideoUploadStarted   EventType = "VIDEO_UPLOAD_STARTED"
	EventVideoUploadCompleted EventType = "VIDEO_UPLOAD_COMPLETED"

	EventAudioTranscriptionStarted   EventType = "AUDIO_TRANSCRIPTION_STARTED"
	EventAudioTranscriptionCompleted EventType = "AUDIO_TRANSCRIPTION_COMPLETED"

	EventVisualAnalysisStarted   EventType = "VISUAL_ANALYSIS_STARTED"
	EventVisualAnalysisCompleted EventType = "VISUAL_ANALYSIS_COMPLETED"

	EventPromptRefinementStarted  EventType = "PROMPT_REFINEMENT_STARTED"
	EventPromptRefinementImproved EventType = "PROMPT_REFINEMENT_IMPROVED"
	EventPromptRefinementApproved EventType = "PROMPT_REFINEMENT_APPROVED"
	EventPromptRefinementRevision EventType = "PROMPT_REFINEMENT_REVISION"

	EventQuestioningStarted   EventType = "INTELLIGENT_QUESTIONING_STARTED"
	EventQuestioningCompleted EventType = "INTELLIGENT_QUESTIONING_COMPLETED"

	EventNarrativeReasoningStarted   EventType = "NARRATIVE_REASONING_STARTED"
	EventNarrativeReasoningCompleted EventType = "NARRATIVE_REASONING_COMPLETED"

	EventScenePlanningStarted   EventType = "SCENE_PLANNING_STARTED"
	EventScenePlanningCompleted EventType = "SCENE_PLANNING_COMPLETED"

	EventVideoCutCreation    EventType = "VIDEO_CUT_CREATION"
	EventVoiceOverGeneration EventType = "VOICE_OVER_GENERATION"
	EventSubtitleGeneration  EventType = "SUBTITLE_GENERATION"
	EventFinalRenderStarted  EventType = "FINAL_RENDER_STARTED"
	EventFinalRenderComplete EventType = "FINAL_RENDER_COMPLETED"

	EventWebhookTest EventType = "WEBHOOK_TEST"
	EventError       EventType = "ERROR"
	EventWarning     EventType = "WARNING"
)

// AllEventTypes lists every event that can be toggled per session.
func AllEventTypes() []EventType {
	return []EventType{
		EventVideoUploadStarted, EventVideoUploadCompleted,
		EventAudioTranscriptionStarted, EventAudioTranscriptionCompleted,
		EventVisualAnalysisStarted, EventVisualAnalysisCompleted,
		EventPromptRefinementStarted, EventPromptRefinementImproved,
		EventPromptRefinementApproved, EventPromptRefinementRevision,
		EventQuestioningStarted, EventQuestioningCompleted,
		EventNarrativeReasoningStarted, EventNarrativeReasoningCompleted,
		EventScenePlanningStarted, EventScenePlanningCompleted,
		EventVideoCutCreation, EventVoiceOverGeneration, EventSubtitleGeneration,
		EventFinalRenderStarted, EventFinalRenderComplete,
		EventWebhookTest, EventError, EventWarning,
	}
}

// DisplayName converts an event type into a human-readable title.
func (e EventType) DisplayName() string {
	words := strings.Split(string(e), "_")
	for i, w := range words {
		if len(w) > 0 {
			words[i] = strings.ToUpper(w[:1]) + strings.ToLower(w[1:])
		}
	}
	return strings.Join(words, " ")
}

// WebhookConfig is a per-session notification target. Events maps event
// names to an enabled flag; a missing entry means enabled.
type WebhookConfig struct {
	URL     string          `json:"webhook_url"`
	Enabled bool            `json:"enabled"`
	Events  map[string]bool `json:"events,omitempty"`
}

// Validate checks the target URL when notifications are switched on.
func (c *WebhookConfig) Validate() error {
	if !c.Enabled {
		return nil
	}
	if c.URL == "" {
		return fmt.Errorf("webhook_url required when webhook is enabled")
	}
	if !strings.HasPrefix(c.URL, "http://") && !strings.HasPrefix(c.URL, "https://") {
		return fmt.Errorf("webhook_url must start with http:// or https://")
	}
	return nil
}

// WantsEvent reports whether the configuration should fire for the event.
func (c *WebhookConfig) WantsEvent(event EventType) bool {
	if !c.Enabled || c.URL == "" {
		return false
	}
	if c.Events == nil {
		return true
	}
	enabled, ok := c.Events[string(event)]
	return !ok || enabled
}

// WebhookMessage is the JSON payload delivered to the configured endpoint.
type WebhookMessage struct {
	ProjectID string                 `json:"project_id"`
	Phase     string                 `json:"phase"`
	Status    string                 `json:"status"`
	Timestamp string                 `json:"timestamp"`
	Details   map[string]interface{} `json:"details,omitempty"`
}

// NewWebhookMessage stamps a message for the given event.
func NewWebhookMessage(event EventType, sessionID, status string, details map[string]interface{}) WebhookMessage {
	return WebhookMessage{
		ProjectID: sessionID,
		Phase:     string(event),
		Status:    status,
		Timestamp: time.Now().Format(time.RFC3339),
		Details:   details,
	}
}

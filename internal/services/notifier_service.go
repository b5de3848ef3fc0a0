// internal/services/notifier_service.go
package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/litelis/FrameForge/internal/models"
	"github.com/litelis/FrameForge/internal/utils"
)

const (
	defaultWebhookRetries = 3
	defaultWebhookTimeout = 10 * time.Second
)

// NotifierService delivers best-effort webhook notifications about workflow
// events. Delivery never blocks a phase result: callers fire Notify from a
// goroutine and any failure is only logged.
type NotifierService struct {
	client     *http.Client
	maxRetries int
	logger     *utils.Logger
	metrics    *utils.APIMetrics

	// backoff returns the wait before retry attempt n (0-based). Swappable
	// in tests to avoid multi-second sleeps.
	backoff func(attempt int) time.Duration
}

// NewNotifierService builds a notifier with bounded request timeout and
// exponential retry backoff.
func NewNotifierService() *NotifierService {
	return &NotifierService{
		client:     &http.Client{Timeout: defaultWebhookTimeout},
		maxRetries: defaultWebhookRetries,
		logger:     utils.GetLogger(),
		metrics:    utils.NewAPIMetrics(),
		backoff: func(attempt int) time.Duration {
			return time.Duration(1<<uint(attempt)) * time.Second
		},
	}
}

// Notify sends one event to the session's configured webhook, if the config
// enables that event. Returns true when the message was delivered or no
// delivery was needed.
func (s *NotifierService) Notify(ctx context.Context, config *models.WebhookConfig, event models.EventType, sessionID, status string, details map[string]interface{}) bool {
	if config == nil || !config.WantsEvent(event) {
		return true
	}

	msg := models.NewWebhookMessage(event, sessionID, status, details)
	payload, err := json.Marshal(msg)
	if err != nil {
		s.logger.Error("Failed to encode webhook message", map[string]interface{}{
			"session_id": sessionID,
			"event":      string(event),
			"error":      err.Error(),
		})
		return false
	}

	for attempt := 0; attempt < s.maxRetries; attempt++ {
		if s.send(ctx, config.URL, payload) {
			s.metrics.RecordWebhookDelivery(string(event), true)
			return true
		}
		if attempt < s.maxRetries-1 {
			wait := s.backoff(attempt)
			s.logger.Info("Retrying webhook delivery", map[string]interface{}{
				"session_id": sessionID,
				"event":      string(event),
				"attempt":    attempt + 2,
				"wait":       wait.String(),
			})
			select {
			case <-time.After(wait):
			case <-ctx.Done():
				return false
			}
		}
	}

	s.metrics.RecordWebhookDelivery(string(event), false)
	s.logger.Error("Webhook delivery failed after retries", map[string]interface{}{
		"session_id": sessionID,
		"event":      string(event),
		"attempts":   s.maxRetries,
	})
	return false
}

// NotifyAsync fires Notify on its own goroutine with a detached context so
// phase handlers never wait on webhook delivery.
func (s *NotifierService) NotifyAsync(config *models.WebhookConfig, event models.EventType, sessionID, status string, details map[string]interface{}) {
	if config == nil || !config.WantsEvent(event) {
		return
	}
	go s.Notify(context.Background(), config, event, sessionID, status, details)
}

// SendTest delivers a WEBHOOK_TEST event regardless of the per-event map,
// used by the configuration endpoint to confirm the target is reachable.
func (s *NotifierService) SendTest(ctx context.Context, config *models.WebhookConfig, sessionID string) bool {
	if config == nil || !config.Enabled || config.URL == "" {
		return false
	}
	test := &models.WebhookConfig{URL: config.URL, Enabled: true}
	return s.Notify(ctx, test, models.EventWebhookTest, sessionID, "Webhook configuration test", map[string]interface{}{
		"configured_events": len(config.Events),
	})
}

func (s *NotifierService) send(ctx context.Context, url string, payload []byte) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		s.logger.Error("Failed to build webhook request", map[string]interface{}{
			"error": err.Error(),
		})
		return false
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		s.logger.Warn("Webhook request failed", map[string]interface{}{
			"error": err.Error(),
		})
		return false
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return true
	}
	s.logger.Warn("Webhook rejected", map[string]interface{}{
		"status": fmt.Sprintf("%d", resp.StatusCode),
	})
	return false
}

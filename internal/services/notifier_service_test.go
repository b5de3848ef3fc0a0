// internal/services/notifier_service_test.go
package services

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/litelis/FrameForge/internal/models"
)

func newTestNotifier() *NotifierService {
	n := NewNotifierService()
	n.backoff = func(int) time.Duration { return 0 }
	return n
}

func webhookConfigFor(url string) *models.WebhookConfig {
	return &models.WebhookConfig{URL: url, Enabled: true}
}

func TestNotifyDeliversPayload(t *testing.T) {
	var received models.WebhookMessage
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("expected POST, got %s", r.Method)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("expected application/json, got %q", ct)
		}
		if err := json.NewDecoder(r.Body).Decode(&received); err != nil {
			t.Errorf("decoding payload: %v", err)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	notifier := newTestNotifier()
	ok := notifier.Notify(context.Background(), webhookConfigFor(server.URL),
		models.EventScenePlanningCompleted, "sess-1", "done", map[string]interface{}{"scene_count": 5})

	if !ok {
		t.Fatal("delivery should succeed")
	}
	if received.ProjectID != "sess-1" {
		t.Errorf("project_id = %q, want sess-1", received.ProjectID)
	}
	if received.Phase != string(models.EventScenePlanningCompleted) {
		t.Errorf("phase = %q, want %q", received.Phase, models.EventScenePlanningCompleted)
	}
	if received.Status != "done" {
		t.Errorf("status = %q, want done", received.Status)
	}
	if received.Details["scene_count"] == nil {
		t.Error("details should carry scene_count")
	}
}

func TestNotifyRetriesUntilSuccess(t *testing.T) {
	var attempts int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&attempts, 1) < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusAccepted)
	}))
	defer server.Close()

	notifier := newTestNotifier()
	ok := notifier.Notify(context.Background(), webhookConfigFor(server.URL),
		models.EventVideoUploadCompleted, "sess-1", "uploaded", nil)

	if !ok {
		t.Fatal("third attempt returns 202 and should count as delivered")
	}
	if got := atomic.LoadInt32(&attempts); got != 3 {
		t.Errorf("attempts = %d, want 3", got)
	}
}

func TestNotifyGivesUpAfterMaxRetries(t *testing.T) {
	var attempts int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&attempts, 1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	notifier := newTestNotifier()
	ok := notifier.Notify(context.Background(), webhookConfigFor(server.URL),
		models.EventError, "sess-1", "failed", nil)

	if ok {
		t.Fatal("persistent failure should report false")
	}
	if got := atomic.LoadInt32(&attempts); got != 3 {
		t.Errorf("attempts = %d, want 3", got)
	}
}

func TestNotifySkipsDisabledEvents(t *testing.T) {
	var hits int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
	}))
	defer server.Close()

	cfg := webhookConfigFor(server.URL)
	cfg.Events = map[string]bool{string(models.EventWarning): false}

	notifier := newTestNotifier()
	if !notifier.Notify(context.Background(), cfg, models.EventWarning, "sess-1", "x", nil) {
		t.Error("a skipped event counts as handled")
	}
	if atomic.LoadInt32(&hits) != 0 {
		t.Error("disabled event must not hit the endpoint")
	}
}

func TestNotifyNilConfig(t *testing.T) {
	notifier := newTestNotifier()
	if !notifier.Notify(context.Background(), nil, models.EventError, "sess-1", "x", nil) {
		t.Error("nil config means nothing to deliver, which is success")
	}
}

func TestNotifyHonorsContextCancellation(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	notifier := NewNotifierService()
	notifier.backoff = func(int) time.Duration { return time.Hour }

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan bool, 1)
	go func() {
		done <- notifier.Notify(ctx, webhookConfigFor(server.URL), models.EventError, "sess-1", "x", nil)
	}()
	cancel()

	select {
	case ok := <-done:
		if ok {
			t.Error("cancelled delivery should report false")
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Notify did not return after context cancellation")
	}
}

func TestSendTest(t *testing.T) {
	var received models.WebhookMessage
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&received)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	notifier := newTestNotifier()
	cfg := webhookConfigFor(server.URL)
	// Event filters must not block the connectivity test.
	cfg.Events = map[string]bool{string(models.EventWebhookTest): false}

	if !notifier.SendTest(context.Background(), cfg, "sess-1") {
		t.Fatal("test delivery should succeed")
	}
	if received.Phase != string(models.EventWebhookTest) {
		t.Errorf("phase = %q, want %q", received.Phase, models.EventWebhookTest)
	}
}

// internal/services/progress_service.go
package services

import (
	"fmt"
	"sync"
	"time"

	"github.com/litelis/FrameForge/internal/models"
)

// ProgressUpdate is one progress event pushed to subscribers.
type ProgressUpdate struct {
	Phase    models.Phase `json:"phase"`
	Progress int          `json:"progress"`
	Message  string       `json:"message"`
	Status   string       `json:"status"` // running, completed, failed
}

// ProgressTracker tracks one session's pipeline progress and fans updates
// out to WebSocket subscribers.
type ProgressTracker struct {
	SessionID   string
	Phase       models.Phase
	Progress    int
	Message     string
	Status      string
	StartTime   time.Time
	UpdateTime  time.Time
	Subscribers map[chan ProgressUpdate]bool
	Done        chan struct{}
	mutex       sync.Mutex
}

// ProgressService manages per-session progress trackers.
type ProgressService struct {
	trackers map[string]*ProgressTracker
	mutex    sync.RWMutex
}

func NewProgressService() *ProgressService {
	return &ProgressService{
		trackers: make(map[string]*ProgressTracker),
	}
}

// CreateTracker returns the tracker for a session, creating it on first use.
func (s *ProgressService) CreateTracker(sessionID string) *ProgressTracker {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if tracker, exists := s.trackers[sessionID]; exists {
		return tracker
	}

	tracker := &ProgressTracker{
		SessionID:   sessionID,
		Phase:       models.PhaseCreated,
		Progress:    0,
		Message:     "Session initialized",
		Status:      "running",
		StartTime:   time.Now(),
		UpdateTime:  time.Now(),
		Subscribers: make(map[chan ProgressUpdate]bool),
		Done:        make(chan struct{}),
	}

	s.trackers[sessionID] = tracker
	return tracker
}

// GetTracker looks up the tracker for a session.
func (s *ProgressService) GetTracker(sessionID string) (*ProgressTracker, bool) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	tracker, exists := s.trackers[sessionID]
	return tracker, exists
}

// PhaseStarted publishes entry into a pipeline phase. The progress value is
// derived from the phase's position in the pipeline.
func (s *ProgressService) PhaseStarted(sessionID string, phase models.Phase, message string) {
	tracker := s.CreateTracker(sessionID)
	tracker.UpdatePhase(phase, phaseProgress(phase), message)
}

// phaseProgress maps a phase to an overall completion percentage.
func phaseProgress(phase models.Phase) int {
	ord := phase.Ordinal()
	if ord < 0 {
		return 0
	}
	last := models.PhasePlanReady.Ordinal()
	return ord * 100 / last
}

// UpdatePhase records the current phase and pushes an update.
func (t *ProgressTracker) UpdatePhase(phase models.Phase, progress int, message string) {
	t.mutex.Lock()
	defer t.mutex.Unlock()

	t.Phase = phase
	if progress > t.Progress {
		t.Progress = progress
	}
	if message != "" {
		t.Message = message
	}
	t.UpdateTime = time.Now()

	t.broadcastLocked()
}

// UpdateProgress bumps the progress percentage within the current phase.
func (t *ProgressTracker) UpdateProgress(progress int, message string) {
	t.mutex.Lock()
	defer t.mutex.Unlock()

	if progress > t.Progress {
		t.Progress = progress
	}
	if message != "" {
		t.Message = message
	}
	t.UpdateTime = time.Now()

	t.broadcastLocked()
}

// Complete marks the pipeline finished and closes the Done channel.
func (t *ProgressTracker) Complete(message string) {
	t.mutex.Lock()
	defer t.mutex.Unlock()

	t.Progress = 100
	if message != "" {
		t.Message = message
	} else {
		t.Message = "Plan ready"
	}
	t.Status = "completed"
	t.Phase = models.PhasePlanReady
	t.UpdateTime = time.Now()

	t.broadcastLocked()
	close(t.Done)
}

// Fail marks the pipeline failed and closes the Done channel.
func (t *ProgressTracker) Fail(errorMsg string) {
	t.mutex.Lock()
	defer t.mutex.Unlock()

	t.Message = fmt.Sprintf("Pipeline failed: %s", errorMsg)
	t.Status = "failed"
	t.UpdateTime = time.Now()

	t.broadcastLocked()
	close(t.Done)
}

// broadcastLocked pushes the current state to every subscriber. Sends are
// non-blocking: a slow consumer misses intermediate updates rather than
// stalling the pipeline. Callers must hold t.mutex.
func (t *ProgressTracker) broadcastLocked() {
	update := ProgressUpdate{
		Phase:    t.Phase,
		Progress: t.Progress,
		Message:  t.Message,
		Status:   t.Status,
	}
	for subscriber := range t.Subscribers {
		select {
		case subscriber <- update:
		default:
		}
	}
}

// Subscribe registers a new update channel and immediately delivers the
// current state.
func (t *ProgressTracker) Subscribe() chan ProgressUpdate {
	t.mutex.Lock()
	defer t.mutex.Unlock()

	subscriber := make(chan ProgressUpdate, 10)
	t.Subscribers[subscriber] = true

	subscriber <- ProgressUpdate{
		Phase:    t.Phase,
		Progress: t.Progress,
		Message:  t.Message,
		Status:   t.Status,
	}

	return subscriber
}

// Unsubscribe removes and closes a subscriber channel.
func (t *ProgressTracker) Unsubscribe(subscriber chan ProgressUpdate) {
	t.mutex.Lock()
	defer t.mutex.Unlock()

	if _, ok := t.Subscribers[subscriber]; ok {
		delete(t.Subscribers, subscriber)
		close(subscriber)
	}
}

// CleanupCompletedTasks drops trackers that finished longer than maxAge ago.
func (s *ProgressService) CleanupCompletedTasks(maxAge time.Duration) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	now := time.Now()
	for id, tracker := range s.trackers {
		tracker.mutex.Lock()
		isCompleted := tracker.Status == "completed" || tracker.Status == "failed"
		isOld := now.Sub(tracker.UpdateTime) > maxAge
		tracker.mutex.Unlock()

		if isCompleted && isOld {
			delete(s.trackers, id)
		}
	}
}

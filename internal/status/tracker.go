// Package status holds the per-client job state machines for scan and
// discovery jobs. Trackers are pure in-memory bookkeeping: one mutex per
// tracker serializes every mutation, and readers always get copies.
package status

import (
	"sync"
	"time"

	"stock-advisor/internal/domain"
)

// ScanSubscriber observes every scan status transition. Subscribers are
// invoked outside the tracker lock with a copy of the status.
type ScanSubscriber func(domain.ScanStatus)

// ScanTracker tracks watchlist scan jobs keyed by client id.
type ScanTracker struct {
	mu   sync.Mutex
	data map[string]*domain.ScanStatus
	subs []ScanSubscriber
}

// NewScanTracker creates an empty scan tracker.
func NewScanTracker() *ScanTracker {
	return &ScanTracker{data: make(map[string]*domain.ScanStatus)}
}

// Subscribe registers a subscriber for status transitions. Not safe to call
// concurrently with updates; wire subscribers during setup.
func (t *ScanTracker) Subscribe(sub ScanSubscriber) {
	t.subs = append(t.subs, sub)
}

// RunningUpdate carries the optional counters of a running-state update.
// Nil fields keep the previous value.
type RunningUpdate struct {
	Step                   string
	Progress               int
	Message                string
	TotalWatchlist         *int
	TotalCandidates        *int
	ProcessedCandidates    *int
	CreatedRecommendations *int
}

// SetRunning moves a client's scan to running. Progress is clamped to
// [0,99]; 100 is reserved for terminal states. Any previous error and
// finish time are cleared.
func (t *ScanTracker) SetRunning(clientID string, upd RunningUpdate) {
	t.mu.Lock()
	now := time.Now().UTC()
	st := t.getOrCreate(clientID, now)
	st.State = domain.StateRunning
	st.Step = upd.Step
	st.Progress = clampProgress(upd.Progress)
	st.Message = upd.Message
	st.UpdatedAt = &now
	st.FinishedAt = nil
	st.Error = ""
	if upd.TotalWatchlist != nil {
		st.TotalWatchlist = *upd.TotalWatchlist
	}
	if upd.TotalCandidates != nil {
		st.TotalCandidates = *upd.TotalCandidates
	}
	if upd.ProcessedCandidates != nil {
		st.ProcessedCandidates = *upd.ProcessedCandidates
	}
	if upd.CreatedRecommendations != nil {
		st.CreatedRecommendations = *upd.CreatedRecommendations
	}
	snapshot := *st
	t.mu.Unlock()
	t.notify(snapshot)
}

// SetSucceeded moves a client's scan to succeeded with progress pinned to 100.
func (t *ScanTracker) SetSucceeded(clientID, message string) {
	t.finish(clientID, domain.StateSucceeded, domain.StepDone, message, "")
}

// SetFailed moves a client's scan to failed. The error text is the only
// place a job failure surfaces to API callers.
func (t *ScanTracker) SetFailed(clientID, message, errText string) {
	t.finish(clientID, domain.StateFailed, domain.StepFailed, message, errText)
}

// Get returns the current status for a client. Unknown clients get a
// default idle status; callers cannot distinguish "never ran" from reset.
func (t *ScanTracker) Get(clientID string) domain.ScanStatus {
	t.mu.Lock()
	defer t.mu.Unlock()
	st, ok := t.data[clientID]
	if !ok {
		return domain.IdleScanStatus(clientID)
	}
	return *st
}

func (t *ScanTracker) finish(clientID string, state domain.JobState, step, message, errText string) {
	t.mu.Lock()
	now := time.Now().UTC()
	st := t.getOrCreate(clientID, now)
	st.State = state
	st.Step = step
	st.Progress = 100
	st.Message = message
	st.UpdatedAt = &now
	st.FinishedAt = &now
	st.Error = errText
	snapshot := *st
	t.mu.Unlock()
	t.notify(snapshot)
}

func (t *ScanTracker) getOrCreate(clientID string, now time.Time) *domain.ScanStatus {
	st, ok := t.data[clientID]
	if !ok {
		idle := domain.IdleScanStatus(clientID)
		st = &idle
		t.data[clientID] = st
	}
	if st.StartedAt == nil {
		started := now
		st.StartedAt = &started
	}
	return st
}

func (t *ScanTracker) notify(st domain.ScanStatus) {
	for _, sub := range t.subs {
		sub(st)
	}
}

func clampProgress(p int) int {
	if p < 0 {
		return 0
	}
	if p > 99 {
		return 99
	}
	return p
}

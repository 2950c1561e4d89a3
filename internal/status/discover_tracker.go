package status

import (
	"sync"
	"time"

	"stock-advisor/internal/domain"
)

// DiscoverSubscriber observes discovery status transitions.
type DiscoverSubscriber func(domain.DiscoverStatus)

// DiscoverTracker tracks universe discovery jobs keyed by client id.
// Same state machine as ScanTracker with the discovery-specific counters
// and the accepted items list carried on the status itself.
type DiscoverTracker struct {
	mu   sync.Mutex
	data map[string]*domain.DiscoverStatus
	subs []DiscoverSubscriber
}

// NewDiscoverTracker creates an empty discovery tracker.
func NewDiscoverTracker() *DiscoverTracker {
	return &DiscoverTracker{data: make(map[string]*domain.DiscoverStatus)}
}

// Subscribe registers a subscriber for status transitions. Wire during setup.
func (t *DiscoverTracker) Subscribe(sub DiscoverSubscriber) {
	t.subs = append(t.subs, sub)
}

// DiscoverUpdate carries the optional counters of a running-state update.
type DiscoverUpdate struct {
	Step              string
	Progress          int
	Message           string
	Limit             *int
	UniverseLimit     *int
	ScannedCandidates *int
	TotalCandidates   *int
}

// SetRunning moves a client's discovery to running, clamping progress to [0,99].
func (t *DiscoverTracker) SetRunning(clientID string, upd DiscoverUpdate) {
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
	if upd.Limit != nil {
		st.Limit = *upd.Limit
	}
	if upd.UniverseLimit != nil {
		st.UniverseLimit = *upd.UniverseLimit
	}
	if upd.ScannedCandidates != nil {
		st.ScannedCandidates = *upd.ScannedCandidates
	}
	if upd.TotalCandidates != nil {
		st.TotalCandidates = *upd.TotalCandidates
	}
	snapshot := t.snapshot(st)
	t.mu.Unlock()
	t.notify(snapshot)
}

// SetSucceeded finishes a client's discovery with its accepted items.
func (t *DiscoverTracker) SetSucceeded(clientID, message string, items []domain.DiscoverItem) {
	t.mu.Lock()
	now := time.Now().UTC()
	st := t.getOrCreate(clientID, now)
	st.State = domain.StateSucceeded
	st.Step = domain.StepDone
	st.Progress = 100
	st.Message = message
	st.UpdatedAt = &now
	st.FinishedAt = &now
	st.Error = ""
	st.Items = append([]domain.DiscoverItem(nil), items...)
	snapshot := t.snapshot(st)
	t.mu.Unlock()
	t.notify(snapshot)
}

// SetFailed finishes a client's discovery with an error.
func (t *DiscoverTracker) SetFailed(clientID, message, errText string) {
	t.mu.Lock()
	now := time.Now().UTC()
	st := t.getOrCreate(clientID, now)
	st.State = domain.StateFailed
	st.Step = domain.StepFailed
	st.Progress = 100
	st.Message = message
	st.UpdatedAt = &now
	st.FinishedAt = &now
	st.Error = errText
	snapshot := t.snapshot(st)
	t.mu.Unlock()
	t.notify(snapshot)
}

// Get returns the current status for a client, default idle when unknown.
func (t *DiscoverTracker) Get(clientID string) domain.DiscoverStatus {
	t.mu.Lock()
	defer t.mu.Unlock()
	st, ok := t.data[clientID]
	if !ok {
		return domain.IdleDiscoverStatus(clientID)
	}
	return t.snapshot(st)
}

func (t *DiscoverTracker) getOrCreate(clientID string, now time.Time) *domain.DiscoverStatus {
	st, ok := t.data[clientID]
	if !ok {
		idle := domain.IdleDiscoverStatus(clientID)
		st = &idle
		t.data[clientID] = st
	}
	if st.StartedAt == nil {
		started := now
		st.StartedAt = &started
	}
	return st
}

// snapshot copies a status including its items slice.
func (t *DiscoverTracker) snapshot(st *domain.DiscoverStatus) domain.DiscoverStatus {
	out := *st
	out.Items = append([]domain.DiscoverItem(nil), st.Items...)
	return out
}

func (t *DiscoverTracker) notify(st domain.DiscoverStatus) {
	for _, sub := range t.subs {
		sub(st)
	}
}

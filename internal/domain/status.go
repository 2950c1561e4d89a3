package domain

import "time"

// JobState is the lifecycle state of a scan or discovery job.
type JobState string

// Job states. Progress is pinned to 100 on both terminal states.
const (
	StateIdle      JobState = "idle"
	StateRunning   JobState = "running"
	StateSucceeded JobState = "succeeded"
	StateFailed    JobState = "failed"
)

// Step tags reported while a job is running.
const (
	StepIdle             = "idle"
	StepLoadingWatchlist = "loading_watchlist"
	StepLoadingUniverse  = "loading_universe"
	StepCollecting       = "collecting_candidates"
	StepScanning         = "scanning"
	StepReasoning        = "llm_reasoning"
	StepDone             = "done"
	StepFailed           = "failed"
)

// ScanStatus is the observable state of one client's watchlist scan.
type ScanStatus struct {
	ClientID               string     `json:"client_id"`
	State                  JobState   `json:"state"`
	Step                   string     `json:"step"`
	Progress               int        `json:"progress"`
	Message                string     `json:"message"`
	TotalWatchlist         int        `json:"total_watchlist"`
	TotalCandidates        int        `json:"total_candidates"`
	ProcessedCandidates    int        `json:"processed_candidates"`
	CreatedRecommendations int        `json:"created_recommendations"`
	StartedAt              *time.Time `json:"started_at"`
	UpdatedAt              *time.Time `json:"updated_at"`
	FinishedAt             *time.Time `json:"finished_at"`
	Error                  string     `json:"error,omitempty"`
}

// IdleScanStatus returns the default status for a client that never ran.
func IdleScanStatus(clientID string) ScanStatus {
	return ScanStatus{ClientID: clientID, State: StateIdle, Step: StepIdle}
}

// DiscoverItem is one accepted discovery result shown to the client.
type DiscoverItem struct {
	Symbol            string   `json:"symbol"`
	Name              string   `json:"name"`
	Action            Action   `json:"action"`
	Score             float64  `json:"score"`
	Confidence        float64  `json:"confidence"`
	SummaryZH         string   `json:"summary_zh"`
	SummaryEN         string   `json:"summary_en"`
	Reasons           []string `json:"reasons"`
	NewsCount         int      `json:"news_count"`
	TargetPositionPct float64  `json:"target_position_pct"`
}

// DiscoverStatus is the observable state of one client's universe discovery.
type DiscoverStatus struct {
	ClientID          string         `json:"client_id"`
	State             JobState       `json:"state"`
	Step              string         `json:"step"`
	Progress          int            `json:"progress"`
	Message           string         `json:"message"`
	Limit             int            `json:"limit"`
	UniverseLimit     int            `json:"universe_limit"`
	ScannedCandidates int            `json:"scanned_candidates"`
	TotalCandidates   int            `json:"total_candidates"`
	Items             []DiscoverItem `json:"items"`
	StartedAt         *time.Time     `json:"started_at"`
	UpdatedAt         *time.Time     `json:"updated_at"`
	FinishedAt        *time.Time     `json:"finished_at"`
	Error             string         `json:"error,omitempty"`
}

// IdleDiscoverStatus returns the default status for a client that never ran.
func IdleDiscoverStatus(clientID string) DiscoverStatus {
	return DiscoverStatus{ClientID: clientID, State: StateIdle, Step: StepIdle, Items: []DiscoverItem{}}
}

package domain

import "time"

// WatchlistItem is one client-curated symbol to scan on schedule.
type WatchlistItem struct {
	ClientID  string `json:"client_id"`
	Symbol    string `json:"symbol"`
	Name      string `json:"name"`
	Group     string `json:"group"`
	SortIndex int    `json:"sort_index"`
}

// QuietHours is an optional do-not-disturb window, "HH:MM" local time.
type QuietHours struct {
	Start string `json:"start,omitempty"`
	End   string `json:"end,omitempty"`
}

// Preferences holds per-client settings consumed by the engine.
type Preferences struct {
	ClientID             string      `json:"client_id"`
	Locale               string      `json:"locale"`
	NotificationsEnabled bool        `json:"notifications_enabled"`
	QuietHours           QuietHours  `json:"quiet_hours"`
	RiskProfile          RiskProfile `json:"risk_profile"`
	UpdatedAt            time.Time   `json:"updated_at"`
}

// DefaultPreferences returns the preferences assumed for a client that
// never synced any.
func DefaultPreferences(clientID string) Preferences {
	return Preferences{
		ClientID:             clientID,
		Locale:               "zh",
		NotificationsEnabled: true,
		RiskProfile:          ProfileNeutral,
	}
}

// Feedback is a client's verdict on one recommendation.
type Feedback struct {
	ID               string    `json:"id"`
	ClientID         string    `json:"client_id"`
	RecommendationID string    `json:"recommendation_id"`
	Helpful          bool      `json:"helpful"`
	Reason           string    `json:"reason,omitempty"`
	CreatedAt        time.Time `json:"created_at"`
}

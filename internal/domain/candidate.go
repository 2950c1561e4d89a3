package domain

// SymbolRef identifies one symbol in a universe or watchlist listing.
type SymbolRef struct {
	Symbol string `json:"symbol"`
	Name   string `json:"name"`
}

// Candidate is one symbol that passed a scorer during a scan or discovery
// pass. Candidates are owned by the pass that created them and are never
// persisted.
type Candidate struct {
	Symbol     string         `json:"symbol"`
	Name       string         `json:"name"`
	Score      float64        `json:"score"`
	ActionHint Action         `json:"action_hint"`
	Reasons    []string       `json:"reasons"`
	Market     MarketSnapshot `json:"market"`
	News       []NewsItem     `json:"news_items"`
}

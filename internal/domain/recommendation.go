package domain

import "time"

// Action is a trading recommendation direction.
type Action string

// Recommendation actions.
const (
	ActionBuy  Action = "buy"
	ActionSell Action = "sell"
	ActionHold Action = "hold"
)

// Valid reports whether a is one of buy/sell/hold.
func (a Action) Valid() bool {
	return a == ActionBuy || a == ActionSell || a == ActionHold
}

// Directional reports whether a is buy or sell.
func (a Action) Directional() bool {
	return a == ActionBuy || a == ActionSell
}

// RiskProfile is a client's configured risk appetite.
type RiskProfile string

// Known risk profiles. Anything else is treated as neutral.
const (
	ProfileAggressive   RiskProfile = "aggressive"
	ProfileNeutral      RiskProfile = "neutral"
	ProfileConservative RiskProfile = "conservative"
)

// RiskAssessment is the risk payload of a reasoning output.
type RiskAssessment struct {
	StopLossPct          float64  `json:"stop_loss_pct"`
	TakeProfitPct        float64  `json:"take_profit_pct"`
	InvalidateConditions []string `json:"invalidate_conditions"`
}

// Evidence cites the market features and news items backing a recommendation.
type Evidence struct {
	MarketFeatures []MarketFeature `json:"market_features"`
	NewsCitations  []NewsItem      `json:"news_citations"`
}

// Count returns the combined citation count.
func (e Evidence) Count() int {
	return len(e.MarketFeatures) + len(e.NewsCitations)
}

// ReasoningOutput is the finalized result of one reasoning call.
// The reasoning client guarantees the shape; the engine only substitutes
// defaults for fields the model left empty.
type ReasoningOutput struct {
	SummaryZH         string         `json:"summary_zh"`
	SummaryEN         string         `json:"summary_en"`
	Action            Action         `json:"action"`
	TargetPositionPct float64        `json:"target_position_pct"`
	Risk              RiskAssessment `json:"risk"`
	Evidence          Evidence       `json:"evidence"`
	Confidence        float64        `json:"confidence"`
}

// ReasoningContext is the input bundle for one reasoning call.
type ReasoningContext struct {
	ClientID           string          `json:"client_id"`
	Symbol             string          `json:"symbol"`
	Name               string          `json:"name"`
	RiskProfile        RiskProfile     `json:"risk_profile"`
	Locale             string          `json:"locale"`
	MarketFeatures     []MarketFeature `json:"market_features"`
	NewsItems          []NewsItem      `json:"news_items"`
	LastRecommendation *Recommendation `json:"last_recommendation,omitempty"`
}

// Recommendation is a persisted, user-visible recommendation.
// Created once guardrails pass; never mutated afterwards.
type Recommendation struct {
	ID                string         `json:"id"`
	ClientID          string         `json:"client_id"`
	Symbol            string         `json:"symbol"`
	CreatedAt         time.Time      `json:"created_at"`
	Action            Action         `json:"action"`
	TargetPositionPct float64        `json:"target_position_pct"`
	SummaryZH         string         `json:"summary_zh"`
	SummaryEN         string         `json:"summary_en"`
	Risk              RiskAssessment `json:"risk"`
	Evidence          Evidence       `json:"evidence"`
	Confidence        float64        `json:"confidence"`
	CooldownKey       string         `json:"cooldown_key"` // "symbol:action"
}

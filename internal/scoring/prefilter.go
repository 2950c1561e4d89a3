package scoring

import "stock-advisor/internal/domain"

// Reason tags emitted by the scorers.
const (
	ReasonInsufficientData = "insufficient_data"
	ReasonLowTurnover      = "low_turnover"
	ReasonNoSignal         = "no_signal"

	ReasonBuyBreakout        = "buy_breakout"
	ReasonBuyReversal        = "buy_reversal"
	ReasonBuyUptrendPullback = "buy_uptrend_pullback"
	ReasonBuyEvent           = "buy_event"
	ReasonSellBreakdown      = "sell_breakdown"
	ReasonSellDrawdown       = "sell_drawdown"
	ReasonSellEvent          = "sell_event"
)

// Minimum bar counts the prefilter requires before scoring at all.
const (
	minBars15m   = 64
	minBarsDaily = 60
)

// Result is a scorer's verdict for one symbol.
type Result struct {
	Triggered  bool
	ActionHint domain.Action
	Reasons    []string
	Score      float64
}

// VolumeRatioFloor returns the profile-dependent volume ratio threshold.
// Unknown profiles fall back to neutral.
func VolumeRatioFloor(profile domain.RiskProfile) float64 {
	switch profile {
	case domain.ProfileAggressive:
		return 1.3
	case domain.ProfileConservative:
		return 1.7
	default:
		return 1.5
	}
}

// DrawdownFloor returns the profile-dependent drawdown threshold.
// Unknown profiles fall back to neutral.
func DrawdownFloor(profile domain.RiskProfile) float64 {
	switch profile {
	case domain.ProfileAggressive:
		return 0.08
	case domain.ProfileConservative:
		return 0.05
	default:
		return 0.06
	}
}

// Prefilter is the rule-based gate on the watchlist path. It decides whether
// a symbol is worth a reasoning call.
type Prefilter struct {
	// MinTurnover20d is the floor on 20-day average turnover; anything
	// below is vetoed as low_turnover.
	MinTurnover20d float64
}

// Evaluate scores one symbol. Hard vetoes (insufficient data, low turnover)
// return early with no trigger; otherwise weighted reason tags accumulate
// and any buy or sell tag triggers the candidate.
func (p Prefilter) Evaluate(
	market domain.MarketSnapshot,
	bars15m, barsDaily []domain.Bar,
	news []domain.NewsItem,
	profile domain.RiskProfile,
) Result {
	if len(bars15m) < minBars15m || len(barsDaily) < minBarsDaily {
		return Result{ActionHint: domain.ActionHold, Reasons: []string{ReasonInsufficientData}}
	}
	if market.Turnover20dAvg < p.MinTurnover20d {
		return Result{ActionHint: domain.ActionHold, Reasons: []string{ReasonLowTurnover}}
	}

	var positiveNews, negativeNews bool
	for _, item := range news {
		switch item.SentimentHint {
		case domain.SentimentPositive:
			positiveNews = true
		case domain.SentimentNegative:
			negativeNews = true
		}
	}

	closeNow := market.LastClose15m
	ma20 := market.MA20For15m
	volRatio := market.VolRatio15m
	volFloor := VolumeRatioFloor(profile)
	ddFloor := DrawdownFloor(profile)

	reversalFloor := volFloor - 0.3
	if reversalFloor < 1.2 {
		reversalFloor = 1.2
	}

	var reasons []string
	var score float64
	addReason := func(tag string, weight float64) {
		reasons = append(reasons, tag)
		score += weight
	}

	if closeNow > ma20 && closeNow >= market.RecentHigh32 && volRatio >= volFloor {
		addReason(ReasonBuyBreakout, 2.0)
	}
	if market.RSI14For15m <= 30 && volRatio >= reversalFloor {
		addReason(ReasonBuyReversal, 1.2)
	}
	if market.DailyUptrend && closeNow > ma20 && volRatio >= 1.2 {
		addReason(ReasonBuyUptrendPullback, 1.0)
	}
	if positiveNews && volRatio >= 1.1 {
		addReason(ReasonBuyEvent, 1.0)
	}

	if closeNow < ma20 && volRatio >= 1.1 {
		addReason(ReasonSellBreakdown, 2.0)
	}
	if market.Drawdown32 >= ddFloor {
		addReason(ReasonSellDrawdown, 1.3)
	}
	if negativeNews && closeNow < ma20 {
		addReason(ReasonSellEvent, 1.0)
	}

	buyCount, sellCount := countSides(reasons)
	if buyCount == 0 && sellCount == 0 {
		if len(reasons) == 0 {
			reasons = []string{ReasonNoSignal}
		}
		return Result{ActionHint: domain.ActionHold, Reasons: reasons}
	}

	hint := domain.ActionSell
	if buyCount >= sellCount {
		hint = domain.ActionBuy
	}
	return Result{Triggered: true, ActionHint: hint, Reasons: reasons, Score: score}
}

func countSides(reasons []string) (buy, sell int) {
	for _, r := range reasons {
		switch {
		case len(r) >= 4 && r[:4] == "buy_":
			buy++
		case len(r) >= 5 && r[:5] == "sell_":
			sell++
		}
	}
	return buy, sell
}

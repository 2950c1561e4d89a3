package scoring

import (
	"stock-advisor/internal/domain"
	"stock-advisor/internal/indicators"
)

// Reason tags specific to the discovery scorer.
const (
	ReasonAboveMA7       = "above_ma7"
	ReasonMA7AboveMA20   = "ma7_above_ma20"
	ReasonMomentum7d     = "momentum_7d"
	ReasonNearHigh7d     = "near_high_7d"
	ReasonVolumeSurge    = "volume_surge"
	ReasonHighLiquidity  = "high_liquidity"
	ReasonLowLiquidity   = "low_liquidity"
	ReasonNewsPositive   = "news_positive"
	ReasonNewsNegative   = "news_negative"
)

// Discovery scorer thresholds.
const (
	discoveryTriggerScore  = 1.8
	discoveryBackupScore   = 1.0
	discoveryMinDaily      = 12
	discoveryMinVol15m     = 24
	discoveryVolRatioFloor = 1.15
	// Most recent bars excluded from the trailing volume window; the
	// surge being measured must not inflate its own baseline.
	discoveryVolExclude    = 4
	discoveryVolWindow     = 20
	turnoverHighFloor      = 30_000_000
	turnoverLowCeiling     = 10_000_000
)

// DiscoveryScorer is the additive scorer on the universe path. Unlike the
// prefilter it works on much thinner history, so every rule contributes a
// weight instead of vetoing outright; only the liquidity tag is a hard gate.
type DiscoveryScorer struct{}

// BackupEligible reports whether a non-triggered result is strong enough to
// serve as a backup pick on a weak-signal day.
func (DiscoveryScorer) BackupEligible(r Result) bool {
	return !r.Triggered && r.Score >= discoveryBackupScore && !hasReason(r.Reasons, ReasonLowLiquidity)
}

// Evaluate scores one universe symbol from its bars and recent news.
func (DiscoveryScorer) Evaluate(bars15m, barsDaily []domain.Bar, news []domain.NewsItem) Result {
	dailyCloses := domain.Closes(barsDaily)
	volumes15m := domain.Volumes(bars15m)
	if len(dailyCloses) < discoveryMinDaily || len(volumes15m) < discoveryMinVol15m {
		return Result{ActionHint: domain.ActionHold, Reasons: []string{ReasonInsufficientData}}
	}

	closeNow := dailyCloses[len(dailyCloses)-1]
	ma7 := indicators.Mean(indicators.Tail(dailyCloses, 7))
	ma20 := indicators.Mean(indicators.Tail(dailyCloses, 20))
	high7 := indicators.Max(indicators.Tail(dailyCloses, 7))
	weekAgo := dailyCloses[len(dailyCloses)-8]

	var reasons []string
	var score float64
	addReason := func(tag string, weight float64) {
		reasons = append(reasons, tag)
		score += weight
	}

	if closeNow >= ma7 {
		addReason(ReasonAboveMA7, 1.1)
	}
	if ma7 >= ma20 {
		addReason(ReasonMA7AboveMA20, 0.9)
	}
	if weekAgo > 0 && (closeNow-weekAgo)/weekAgo >= 0.015 {
		addReason(ReasonMomentum7d, 0.8)
	}
	if high7 > 0 && closeNow >= high7*0.995 {
		addReason(ReasonNearHigh7d, 0.8)
	}

	trailing := volumes15m[:len(volumes15m)-discoveryVolExclude]
	baseline := indicators.Mean(indicators.Tail(trailing, discoveryVolWindow))
	lastVol := volumes15m[len(volumes15m)-1]
	if baseline > 0 && lastVol/baseline >= discoveryVolRatioFloor {
		addReason(ReasonVolumeSurge, 0.6)
	}

	turnover7 := indicators.Mean(indicators.Tail(domain.Turnovers(barsDaily), 7))
	switch {
	case turnover7 >= turnoverHighFloor:
		addReason(ReasonHighLiquidity, 0.4)
	case turnover7 < turnoverLowCeiling:
		addReason(ReasonLowLiquidity, -0.7)
	}

	if bias := newsBias(news); bias > 0 {
		if bias == 1 {
			addReason(ReasonNewsPositive, 0.3)
		} else {
			addReason(ReasonNewsPositive, 0.4)
		}
	} else if bias < 0 {
		if bias == -1 {
			addReason(ReasonNewsNegative, -0.3)
		} else {
			addReason(ReasonNewsNegative, -0.4)
		}
	}

	lowLiquidity := hasReason(reasons, ReasonLowLiquidity)
	hint := domain.ActionHold
	if score >= 0 {
		hint = domain.ActionBuy
	}
	return Result{
		Triggered:  score >= discoveryTriggerScore && !lowLiquidity,
		ActionHint: hint,
		Reasons:    reasons,
		Score:      score,
	}
}

// newsBias returns the net positive-minus-negative count of sentiment hints.
func newsBias(news []domain.NewsItem) int {
	bias := 0
	for _, item := range news {
		switch item.SentimentHint {
		case domain.SentimentPositive:
			bias++
		case domain.SentimentNegative:
			bias--
		}
	}
	return bias
}

func hasReason(reasons []string, tag string) bool {
	for _, r := range reasons {
		if r == tag {
			return true
		}
	}
	return false
}

package scoring

import (
	"testing"
	"time"

	"stock-advisor/internal/domain"
)

// genDailyBars builds one bar per close value with a fixed volume.
func genDailyBars(closes []float64, volume float64) []domain.Bar {
	bars := make([]domain.Bar, len(closes))
	start := time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC)
	for i, c := range closes {
		bars[i] = domain.Bar{
			Timestamp: start.AddDate(0, 0, i),
			Open:      c,
			High:      c,
			Low:       c,
			Close:     c,
			Volume:    volume,
			Turnover:  c * volume,
		}
	}
	return bars
}

func risingCloses(n int, start, step float64) []float64 {
	closes := make([]float64, n)
	for i := range closes {
		closes[i] = start + float64(i)*step
	}
	return closes
}

func TestDiscoveryScorer_InsufficientData(t *testing.T) {
	var scorer DiscoveryScorer
	res := scorer.Evaluate(genBars(30, 100, 1000), genDailyBars(risingCloses(5, 100, 1), 1000), nil)

	if res.Triggered {
		t.Error("expected no trigger on thin history")
	}
	if !hasTag(res.Reasons, ReasonInsufficientData) {
		t.Errorf("expected insufficient_data, got %v", res.Reasons)
	}
}

func TestDiscoveryScorer_StrongTrendTriggers(t *testing.T) {
	var scorer DiscoveryScorer
	// Steady 1/day climb with liquid turnover: trend, momentum, near-high
	// and liquidity tags all fire.
	daily := genDailyBars(risingCloses(30, 100, 1), 400_000)
	res := scorer.Evaluate(genBars(30, 100, 1000), daily, nil)

	if !res.Triggered {
		t.Fatalf("expected trigger, score=%v reasons=%v", res.Score, res.Reasons)
	}
	for _, tag := range []string{ReasonAboveMA7, ReasonMA7AboveMA20, ReasonMomentum7d, ReasonNearHigh7d, ReasonHighLiquidity} {
		if !hasTag(res.Reasons, tag) {
			t.Errorf("expected %s, got %v", tag, res.Reasons)
		}
	}
	if res.ActionHint != domain.ActionBuy {
		t.Errorf("expected buy hint, got %s", res.ActionHint)
	}
}

func TestDiscoveryScorer_LowLiquidityBlocksTrigger(t *testing.T) {
	var scorer DiscoveryScorer
	// Same strong trend, but 7d average turnover under 10M.
	daily := genDailyBars(risingCloses(30, 100, 1), 50_000)
	res := scorer.Evaluate(genBars(30, 100, 1000), daily, nil)

	if !hasTag(res.Reasons, ReasonLowLiquidity) {
		t.Fatalf("expected low_liquidity, got %v", res.Reasons)
	}
	if res.Triggered {
		t.Error("low liquidity must block the trigger regardless of score")
	}
	if scorer.BackupEligible(res) {
		t.Error("low liquidity must also block backup eligibility")
	}
}

func TestDiscoveryScorer_BackupEligible(t *testing.T) {
	var scorer DiscoveryScorer
	// A long decline with a last-day bounce above MA7: one weak tag only,
	// score between the backup and trigger thresholds.
	closes := risingCloses(19, 120, -1) // 120 down to 102
	closes = append(closes, 106)
	daily := genDailyBars(closes, 200_000)
	res := scorer.Evaluate(genBars(30, 100, 1000), daily, nil)

	if res.Triggered {
		t.Fatalf("expected no trigger, score=%v reasons=%v", res.Score, res.Reasons)
	}
	if !scorer.BackupEligible(res) {
		t.Errorf("expected backup eligibility, score=%v reasons=%v", res.Score, res.Reasons)
	}
}

func TestDiscoveryScorer_VolumeSurge(t *testing.T) {
	var scorer DiscoveryScorer
	bars15m := genBars(30, 100, 1000)
	// Spike the final bar well above the trailing baseline, which excludes
	// the most recent bars from its window.
	bars15m[len(bars15m)-1].Volume = 2000
	daily := genDailyBars(risingCloses(30, 100, 1), 400_000)

	res := scorer.Evaluate(bars15m, daily, nil)
	if !hasTag(res.Reasons, ReasonVolumeSurge) {
		t.Errorf("expected volume_surge, got %v", res.Reasons)
	}
}

func TestDiscoveryScorer_NewsBias(t *testing.T) {
	var scorer DiscoveryScorer
	daily := genDailyBars(risingCloses(30, 100, 1), 400_000)
	bars15m := genBars(30, 100, 1000)

	positive := []domain.NewsItem{
		{Title: "a", SentimentHint: domain.SentimentPositive},
		{Title: "b", SentimentHint: domain.SentimentPositive},
	}
	res := scorer.Evaluate(bars15m, daily, positive)
	if !hasTag(res.Reasons, ReasonNewsPositive) {
		t.Errorf("expected news_positive, got %v", res.Reasons)
	}

	negative := []domain.NewsItem{{Title: "c", SentimentHint: domain.SentimentNegative}}
	res = scorer.Evaluate(bars15m, daily, negative)
	if !hasTag(res.Reasons, ReasonNewsNegative) {
		t.Errorf("expected news_negative, got %v", res.Reasons)
	}
}

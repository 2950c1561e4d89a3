package scoring

import (
	"testing"
	"time"

	"stock-advisor/internal/domain"
)

// genBars builds n bars with the given close and volume; turnover follows.
func genBars(n int, close, volume float64) []domain.Bar {
	bars := make([]domain.Bar, n)
	start := time.Date(2026, 1, 5, 9, 30, 0, 0, time.UTC)
	for i := range bars {
		bars[i] = domain.Bar{
			Timestamp: start.Add(time.Duration(i) * 15 * time.Minute),
			Open:      close,
			High:      close,
			Low:       close,
			Close:     close,
			Volume:    volume,
			Turnover:  close * volume,
		}
	}
	return bars
}

func snapshot(close, ma20, rsi, high32, volRatio, turnover, drawdown float64, uptrend bool) domain.MarketSnapshot {
	return domain.MarketSnapshot{
		Symbol:         "TEST",
		LastClose15m:   close,
		MA20For15m:     ma20,
		RSI14For15m:    rsi,
		RecentHigh32:   high32,
		VolRatio15m:    volRatio,
		Turnover20dAvg: turnover,
		DailyUptrend:   uptrend,
		Drawdown32:     drawdown,
	}
}

func hasTag(reasons []string, tag string) bool {
	for _, r := range reasons {
		if r == tag {
			return true
		}
	}
	return false
}

func TestPrefilter_InsufficientData(t *testing.T) {
	p := Prefilter{MinTurnover20d: 0}
	res := p.Evaluate(snapshot(100, 99, 50, 100, 2.0, 1e9, 0, false),
		genBars(10, 100, 1000), genBars(60, 100, 1000), nil, domain.ProfileNeutral)

	if res.Triggered {
		t.Error("expected no trigger on thin history")
	}
	if !hasTag(res.Reasons, ReasonInsufficientData) {
		t.Errorf("expected insufficient_data, got %v", res.Reasons)
	}
	if res.ActionHint != domain.ActionHold {
		t.Errorf("expected hold hint, got %s", res.ActionHint)
	}
}

func TestPrefilter_LowTurnoverVeto(t *testing.T) {
	p := Prefilter{MinTurnover20d: 100_000_000}
	res := p.Evaluate(snapshot(100, 99, 50, 100, 2.0, 50_000_000, 0, false),
		genBars(80, 100, 1000), genBars(60, 100, 1000), nil, domain.ProfileNeutral)

	if res.Triggered {
		t.Error("expected low-turnover veto")
	}
	if !hasTag(res.Reasons, ReasonLowTurnover) {
		t.Errorf("expected low_turnover, got %v", res.Reasons)
	}
}

func TestPrefilter_BuyBreakout(t *testing.T) {
	p := Prefilter{MinTurnover20d: 0}
	// Close above MA20 at a fresh 32-bar high on heavy volume.
	res := p.Evaluate(snapshot(110, 100, 60, 110, 1.6, 1e9, 0, false),
		genBars(80, 110, 1000), genBars(60, 110, 1000), nil, domain.ProfileNeutral)

	if !res.Triggered {
		t.Fatal("expected breakout trigger")
	}
	if !hasTag(res.Reasons, ReasonBuyBreakout) {
		t.Errorf("expected buy_breakout, got %v", res.Reasons)
	}
	if res.ActionHint != domain.ActionBuy {
		t.Errorf("expected buy hint, got %s", res.ActionHint)
	}
	if res.Score < 2.0 {
		t.Errorf("expected score >= 2.0, got %v", res.Score)
	}
}

func TestPrefilter_BreakoutRespectsProfileThreshold(t *testing.T) {
	p := Prefilter{MinTurnover20d: 0}
	// Volume ratio 1.4 sits between the aggressive (1.3) and neutral (1.5)
	// breakout floors.
	snap := snapshot(110, 100, 60, 110, 1.4, 1e9, 0, false)
	bars15m := genBars(80, 110, 1000)
	barsDaily := genBars(60, 110, 1000)

	aggressive := p.Evaluate(snap, bars15m, barsDaily, nil, domain.ProfileAggressive)
	if !hasTag(aggressive.Reasons, ReasonBuyBreakout) {
		t.Errorf("aggressive profile should break out at 1.4, got %v", aggressive.Reasons)
	}

	neutral := p.Evaluate(snap, bars15m, barsDaily, nil, domain.ProfileNeutral)
	if hasTag(neutral.Reasons, ReasonBuyBreakout) {
		t.Errorf("neutral profile should not break out at 1.4, got %v", neutral.Reasons)
	}
	if neutral.Triggered {
		t.Error("neutral profile should not trigger at all here")
	}
}

func TestPrefilter_SellSide(t *testing.T) {
	p := Prefilter{MinTurnover20d: 0}
	// Below MA20 on volume, with a drawdown past the neutral floor.
	res := p.Evaluate(snapshot(90, 100, 50, 100, 1.3, 1e9, 0.10, false),
		genBars(80, 90, 1000), genBars(60, 90, 1000), nil, domain.ProfileNeutral)

	if !res.Triggered {
		t.Fatal("expected sell trigger")
	}
	if !hasTag(res.Reasons, ReasonSellBreakdown) || !hasTag(res.Reasons, ReasonSellDrawdown) {
		t.Errorf("expected breakdown and drawdown tags, got %v", res.Reasons)
	}
	if res.ActionHint != domain.ActionSell {
		t.Errorf("expected sell hint, got %s", res.ActionHint)
	}
}

func TestPrefilter_NewsEvents(t *testing.T) {
	p := Prefilter{MinTurnover20d: 0}
	positive := []domain.NewsItem{{Title: "earnings beat", SentimentHint: domain.SentimentPositive}}
	negative := []domain.NewsItem{{Title: "guidance cut", SentimentHint: domain.SentimentNegative}}

	buy := p.Evaluate(snapshot(105, 100, 50, 110, 1.15, 1e9, 0.04, false),
		genBars(80, 105, 1000), genBars(60, 105, 1000), positive, domain.ProfileNeutral)
	if !hasTag(buy.Reasons, ReasonBuyEvent) {
		t.Errorf("expected buy_event, got %v", buy.Reasons)
	}

	sell := p.Evaluate(snapshot(95, 100, 50, 100, 1.0, 1e9, 0.05, false),
		genBars(80, 95, 1000), genBars(60, 95, 1000), negative, domain.ProfileNeutral)
	if !hasTag(sell.Reasons, ReasonSellEvent) {
		t.Errorf("expected sell_event, got %v", sell.Reasons)
	}
}

func TestPrefilter_ReversalUsesRelaxedFloor(t *testing.T) {
	p := Prefilter{MinTurnover20d: 0}
	// RSI oversold with ratio 1.25: passes the relaxed reversal floor
	// (neutral 1.5-0.3=1.2) without reaching the breakout floor.
	res := p.Evaluate(snapshot(98, 100, 25, 110, 1.25, 1e9, 0.02, false),
		genBars(80, 98, 1000), genBars(60, 98, 1000), nil, domain.ProfileNeutral)

	if !hasTag(res.Reasons, ReasonBuyReversal) {
		t.Errorf("expected buy_reversal, got %v", res.Reasons)
	}
}

func TestPrefilter_TieGoesToBuy(t *testing.T) {
	p := Prefilter{MinTurnover20d: 0}
	// One buy tag (uptrend pullback) against one sell tag (drawdown).
	res := p.Evaluate(snapshot(105, 100, 50, 112, 1.25, 1e9, 0.07, true),
		genBars(80, 105, 1000), genBars(60, 105, 1000), nil, domain.ProfileNeutral)

	buys, sells := countSides(res.Reasons)
	if buys != 1 || sells != 1 {
		t.Fatalf("expected a 1-1 tie, got buys=%d sells=%d (%v)", buys, sells, res.Reasons)
	}
	if res.ActionHint != domain.ActionBuy {
		t.Errorf("tie should hint buy, got %s", res.ActionHint)
	}
}

func TestPrefilter_NoSignal(t *testing.T) {
	p := Prefilter{MinTurnover20d: 0}
	res := p.Evaluate(snapshot(100, 100, 50, 110, 1.0, 1e9, 0.0, false),
		genBars(80, 100, 1000), genBars(60, 100, 1000), nil, domain.ProfileNeutral)

	if res.Triggered {
		t.Error("quiet tape should not trigger")
	}
	if !hasTag(res.Reasons, ReasonNoSignal) {
		t.Errorf("expected no_signal, got %v", res.Reasons)
	}
}

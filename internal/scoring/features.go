// Package scoring converts raw bars and news into trigger decisions.
// It holds the feature snapshot extraction, the watchlist prefilter and the
// universe discovery scorer.
package scoring

import (
	"stock-advisor/internal/domain"
	"stock-advisor/internal/indicators"
)

// ExtractSnapshot derives the market feature view of one symbol.
func ExtractSnapshot(symbol string, bars15m, barsDaily []domain.Bar) domain.MarketSnapshot {
	closes15m := domain.Closes(bars15m)
	volumes15m := domain.Volumes(bars15m)
	turnoverDaily := domain.Turnovers(barsDaily)
	closesDaily := domain.Closes(barsDaily)

	ma20For15m := indicators.MovingAverage(closes15m, 20)
	ma20Daily := indicators.MovingAverage(closesDaily, 20)
	ma60Daily := indicators.MovingAverage(closesDaily, 60)
	rsi14For15m := indicators.RSI(closes15m, 14)

	var lastClose, lastMA20, lastRSI float64
	lastRSI = 50.0
	if len(closes15m) > 0 {
		lastClose = closes15m[len(closes15m)-1]
	}
	if len(ma20For15m) > 0 {
		lastMA20 = ma20For15m[len(ma20For15m)-1]
	}
	if len(rsi14For15m) > 0 {
		lastRSI = rsi14For15m[len(rsi14For15m)-1]
	}

	recentHigh32 := indicators.Max(indicators.Tail(closes15m, 32))
	volAvg20 := indicators.Mean(indicators.Tail(volumes15m, 20))
	var volRatio float64
	if len(volumes15m) > 0 && volAvg20 > 0 {
		volRatio = volumes15m[len(volumes15m)-1] / volAvg20
	}
	turnover20dAvg := indicators.Mean(indicators.Tail(turnoverDaily, 20))

	dailyUptrend := len(ma20Daily) > 0 && len(ma60Daily) > 0 &&
		ma20Daily[len(ma20Daily)-1] > ma60Daily[len(ma60Daily)-1]

	var drawdown32 float64
	if recentHigh32 > 0 {
		drawdown32 = (recentHigh32 - lastClose) / recentHigh32
	}

	uptrendFlag := 0.0
	if dailyUptrend {
		uptrendFlag = 1.0
	}

	return domain.MarketSnapshot{
		Symbol:         symbol,
		LastClose15m:   lastClose,
		MA20For15m:     lastMA20,
		RSI14For15m:    lastRSI,
		RecentHigh32:   recentHigh32,
		VolRatio15m:    volRatio,
		Turnover20dAvg: turnover20dAvg,
		DailyUptrend:   dailyUptrend,
		Drawdown32:     drawdown32,
		Features: []domain.MarketFeature{
			{Name: "last_close_15m", Value: lastClose},
			{Name: "ma20_15m", Value: lastMA20},
			{Name: "rsi14_15m", Value: lastRSI},
			{Name: "vol_ratio_15m", Value: volRatio},
			{Name: "turnover_20d_avg", Value: turnover20dAvg},
			{Name: "drawdown_32", Value: drawdown32},
			{Name: "daily_uptrend", Value: uptrendFlag},
		},
	}
}

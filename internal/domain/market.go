package domain

// MarketFeature is one named scalar in a feature snapshot.
// Boolean features are encoded as 0/1.
type MarketFeature struct {
	Name  string  `json:"name"`
	Value float64 `json:"value"`
}

// MarketSnapshot is the derived feature view of one symbol's bars,
// built once per evaluation and never mutated afterwards.
type MarketSnapshot struct {
	Symbol         string          `json:"symbol"`
	LastClose15m   float64         `json:"last_close_15m"`
	MA20For15m     float64         `json:"ma20_15m"`
	RSI14For15m    float64         `json:"rsi14_15m"`
	RecentHigh32   float64         `json:"recent_high_32"`
	VolRatio15m    float64         `json:"vol_ratio_15m"`
	Turnover20dAvg float64         `json:"turnover_20d_avg"`
	DailyUptrend   bool            `json:"daily_uptrend"`
	Drawdown32     float64         `json:"drawdown_32"`
	Features       []MarketFeature `json:"features"`
}

// Package providers contains the outbound data sources the engine collects
// from: the market data feed and the news feed. Every provider call accepts
// a context so the engine can bound collection with per-source timeouts.
package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/alpacahq/alpaca-trade-api-go/v3/marketdata"

	"stock-advisor/internal/domain"
)

// Bar history depths requested per symbol.
const (
	intradayBarLimit = 128
	dailyBarLimit    = 120
)

// The SDK covers bars but not the stock screener, so the most-actives
// universe comes from the data API directly.
const screenerBaseURL = "https://data.alpaca.markets/v1beta1/screener"

// MarketDataProvider fetches bar history and the discovery universe.
type MarketDataProvider interface {
	Get15mBars(ctx context.Context, symbol string) ([]domain.Bar, error)
	GetDailyBars(ctx context.Context, symbol string) ([]domain.Bar, error)
	// DiscoverCandidates returns up to limit liquid symbols to screen.
	DiscoverCandidates(ctx context.Context, limit int) ([]domain.SymbolRef, error)
}

// AlpacaProvider implements MarketDataProvider over the Alpaca data API.
type AlpacaProvider struct {
	mdClient    *marketdata.Client
	http        *http.Client
	screenerURL string
	apiKey      string
	apiSecret   string
}

var _ MarketDataProvider = (*AlpacaProvider)(nil)

// NewAlpacaProvider creates a provider using APCA_* environment credentials.
func NewAlpacaProvider() *AlpacaProvider {
	return &AlpacaProvider{
		mdClient:    marketdata.NewClient(marketdata.ClientOpts{}),
		http:        &http.Client{Timeout: 12 * time.Second},
		screenerURL: screenerBaseURL,
		apiKey:      os.Getenv("APCA_API_KEY_ID"),
		apiSecret:   os.Getenv("APCA_API_SECRET_KEY"),
	}
}

// Get15mBars returns the most recent 15-minute bars, oldest first.
func (p *AlpacaProvider) Get15mBars(ctx context.Context, symbol string) ([]domain.Bar, error) {
	start := time.Now().AddDate(0, 0, -10)
	return p.getBars(ctx, symbol, marketdata.NewTimeFrame(15, marketdata.Min), start, intradayBarLimit)
}

// GetDailyBars returns the most recent daily bars, oldest first.
func (p *AlpacaProvider) GetDailyBars(ctx context.Context, symbol string) ([]domain.Bar, error) {
	start := time.Now().AddDate(0, -8, 0)
	return p.getBars(ctx, symbol, marketdata.OneDay, start, dailyBarLimit)
}

func (p *AlpacaProvider) getBars(ctx context.Context, symbol string, tf marketdata.TimeFrame, start time.Time, limit int) ([]domain.Bar, error) {
	type barsResult struct {
		bars []marketdata.Bar
		err  error
	}
	// The SDK call is not context-aware, so run it aside and let the
	// caller's deadline win.
	ch := make(chan barsResult, 1)
	go func() {
		bars, err := p.mdClient.GetBars(symbol, marketdata.GetBarsRequest{
			TimeFrame: tf,
			Start:     start,
		})
		ch <- barsResult{bars: bars, err: err}
	}()

	var bars []marketdata.Bar
	select {
	case res := <-ch:
		if res.err != nil {
			return nil, fmt.Errorf("get bars for %s: %w", symbol, res.err)
		}
		bars = res.bars
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	if len(bars) > limit {
		bars = bars[len(bars)-limit:]
	}
	out := make([]domain.Bar, 0, len(bars))
	for _, b := range bars {
		out = append(out, domain.Bar{
			Timestamp: b.Timestamp,
			Open:      b.Open,
			High:      b.High,
			Low:       b.Low,
			Close:     b.Close,
			Volume:    float64(b.Volume),
			Turnover:  b.Close * float64(b.Volume),
		})
	}
	return out, nil
}

// DiscoverCandidates screens the most active symbols by volume via the
// screener endpoint. The feed reports no display names, so the symbol
// doubles as the name.
func (p *AlpacaProvider) DiscoverCandidates(ctx context.Context, limit int) ([]domain.SymbolRef, error) {
	url := fmt.Sprintf("%s/stocks/most-actives?by=volume&top=%d", p.screenerURL, limit)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build screener request: %w", err)
	}
	req.Header.Set("APCA-API-KEY-ID", p.apiKey)
	req.Header.Set("APCA-API-SECRET-KEY", p.apiSecret)

	resp, err := p.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch most actives: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("screener returned HTTP %d", resp.StatusCode)
	}

	var payload struct {
		MostActives []struct {
			Symbol string `json:"symbol"`
		} `json:"most_actives"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode screener response: %w", err)
	}

	refs := make([]domain.SymbolRef, 0, len(payload.MostActives))
	for _, a := range payload.MostActives {
		if a.Symbol == "" {
			continue
		}
		refs = append(refs, domain.SymbolRef{Symbol: a.Symbol, Name: a.Symbol})
	}
	return refs, nil
}

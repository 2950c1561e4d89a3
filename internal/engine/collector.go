package engine

import (
	"context"
	"time"

	"go.uber.org/zap"

	"stock-advisor/internal/domain"
	"stock-advisor/internal/observability"
	"stock-advisor/internal/providers"
)

// Per-source timeouts. Collection never lets one slow source stall a job.
const (
	barsTimeout     = 8 * time.Second
	newsTimeout     = 10 * time.Second
	universeTimeout = 12 * time.Second
)

// News lookback windows per job kind.
const (
	scanNewsWindow     = 24 * time.Hour
	discoverNewsWindow = 72 * time.Hour
)

const newsPerSymbol = 8

// symbolData is everything collected for one symbol before scoring.
type symbolData struct {
	Bars15m   []domain.Bar
	BarsDaily []domain.Bar
	News      []domain.NewsItem
}

// collector fetches per-symbol market and news data with bounded per-call
// timeouts. News failures degrade to market-only data; bar failures are
// fatal for the symbol.
type collector struct {
	market providers.MarketDataProvider
	news   providers.NewsProvider
	logger *zap.Logger
}

func (c *collector) collect(ctx context.Context, symbol string, newsWindow time.Duration) (symbolData, error) {
	barsCtx, cancel := context.WithTimeout(ctx, barsTimeout)
	bars15m, err := c.market.Get15mBars(barsCtx, symbol)
	cancel()
	if err != nil {
		observability.RecordCollectionError("bars_15m")
		return symbolData{}, err
	}

	barsCtx, cancel = context.WithTimeout(ctx, barsTimeout)
	barsDaily, err := c.market.GetDailyBars(barsCtx, symbol)
	cancel()
	if err != nil {
		observability.RecordCollectionError("bars_daily")
		return symbolData{}, err
	}

	newsCtx, cancel := context.WithTimeout(ctx, newsTimeout)
	news, err := c.news.GetNews(newsCtx, symbol, newsPerSymbol)
	cancel()
	if err != nil {
		observability.RecordCollectionError("news")
		c.logger.Warn("news fetch failed, continuing without",
			zap.String("symbol", symbol), zap.Error(err))
		news = nil
	}

	return symbolData{
		Bars15m:   bars15m,
		BarsDaily: barsDaily,
		News:      filterNewsWindow(news, newsWindow),
	}, nil
}

// filterNewsWindow drops items older than the window, keeping order. The
// input slice belongs to the provider and is never modified.
func filterNewsWindow(items []domain.NewsItem, window time.Duration) []domain.NewsItem {
	cutoff := time.Now().Add(-window)
	out := make([]domain.NewsItem, 0, len(items))
	for _, item := range items {
		if !item.PublishedAt.Before(cutoff) {
			out = append(out, item)
		}
	}
	return out
}

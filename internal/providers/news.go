package providers

import (
	"context"
	"fmt"
	"net/http"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"stock-advisor/internal/domain"
)

// NewsProvider fetches recent headlines for a symbol.
type NewsProvider interface {
	GetNews(ctx context.Context, symbol string, limit int) ([]domain.NewsItem, error)
}

// Headlines older than this are dropped.
const newsMaxAge = 3 * 24 * time.Hour

const browserUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36"

var (
	positiveHints = []string{
		"beat", "beats", "surge", "record", "upgrade", "raises", "growth",
		"strong", "wins", "approval", "buyback", "profit",
	}
	negativeHints = []string{
		"miss", "misses", "plunge", "downgrade", "cuts", "lawsuit",
		"probe", "recall", "weak", "loss", "warning", "delays",
	}
	whitespaceRe = regexp.MustCompile(`\s+`)
)

// FinvizNewsProvider scrapes the Finviz quote page's news table.
type FinvizNewsProvider struct {
	http    *http.Client
	baseURL string
}

var _ NewsProvider = (*FinvizNewsProvider)(nil)

// NewFinvizNewsProvider creates a scraper with the given timeout.
func NewFinvizNewsProvider(timeout time.Duration) *FinvizNewsProvider {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &FinvizNewsProvider{
		http:    &http.Client{Timeout: timeout},
		baseURL: "https://finviz.com",
	}
}

// GetNews returns up to limit recent headlines, newest first, deduplicated
// by title. A missing or unparseable page yields an error; the engine
// degrades to market-only evidence in that case.
func (p *FinvizNewsProvider) GetNews(ctx context.Context, symbol string, limit int) ([]domain.NewsItem, error) {
	url := fmt.Sprintf("%s/quote.ashx?t=%s", p.baseURL, symbol)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build news request: %w", err)
	}
	req.Header.Set("User-Agent", browserUserAgent)

	resp, err := p.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch news for %s: %w", symbol, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("news page for %s returned HTTP %d", symbol, resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parse news page for %s: %w", symbol, err)
	}

	cutoff := time.Now().Add(-newsMaxAge)
	seen := make(map[string]bool)
	var items []domain.NewsItem

	doc.Find("table.fullview-news-outer tr").Each(func(i int, row *goquery.Selection) {
		timeText := strings.TrimSpace(row.Find("td").First().Text())
		newsCell := row.Find("td").Last()
		title := cleanHeadline(newsCell.Find("a").Text())
		href, ok := newsCell.Find("a").Attr("href")
		if !ok || title == "" {
			return
		}
		key := strings.ToLower(title)
		if seen[key] {
			return
		}
		publishedAt := parseNewsTimestamp(timeText)
		if publishedAt.Before(cutoff) {
			return
		}
		seen[key] = true
		items = append(items, domain.NewsItem{
			Source: cleanHeadline(newsCell.Find("span").Text()),
			URL:    href,
			Title:  title,
			// Finviz rows carry only the headline, so it doubles as
			// the snippet.
			Snippet:       title,
			PublishedAt:   publishedAt,
			Symbol:        symbol,
			SentimentHint: ClassifySentiment(title),
		})
	})

	sort.Slice(items, func(i, j int) bool {
		return items[i].PublishedAt.After(items[j].PublishedAt)
	})
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}
	return items, nil
}

// ClassifySentiment assigns a coarse sentiment from headline keywords.
func ClassifySentiment(title string) string {
	lower := strings.ToLower(title)
	for _, hint := range negativeHints {
		if strings.Contains(lower, hint) {
			return domain.SentimentNegative
		}
	}
	for _, hint := range positiveHints {
		if strings.Contains(lower, hint) {
			return domain.SentimentPositive
		}
	}
	return domain.SentimentNeutral
}

// parseNewsTimestamp handles "Mar-12-25 10:30AM" rows and the time-only
// rows that inherit the date from an earlier row on the same page.
func parseNewsTimestamp(text string) time.Time {
	if parsed, err := time.Parse("Jan-02-06 3:04PM", text); err == nil {
		return parsed
	}
	if parsed, err := time.Parse("Jan-02-06", text); err == nil {
		return parsed
	}
	if parsed, err := time.Parse("3:04PM", text); err == nil {
		now := time.Now()
		return time.Date(now.Year(), now.Month(), now.Day(),
			parsed.Hour(), parsed.Minute(), 0, 0, time.Local)
	}
	return time.Now()
}

func cleanHeadline(text string) string {
	return strings.TrimSpace(whitespaceRe.ReplaceAllString(text, " "))
}

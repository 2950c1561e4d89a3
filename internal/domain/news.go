package domain

import "time"

// Sentiment hints attached to scraped news items.
const (
	SentimentPositive = "positive"
	SentimentNegative = "negative"
	SentimentNeutral  = "neutral"
)

// NewsItem is one scraped article reference for a symbol.
type NewsItem struct {
	Source        string    `json:"source"`
	URL           string    `json:"url"`
	Title         string    `json:"title"`
	Snippet       string    `json:"snippet"`
	PublishedAt   time.Time `json:"published_at"`
	Symbol        string    `json:"symbol"`
	Name          string    `json:"name"`
	SentimentHint string    `json:"sentiment_hint"`
}

// Package reasoning invokes the generative model that turns a scored
// candidate into a recommendation draft. The client owns schema validation,
// retries and the low-confidence hold fallback, so callers always receive a
// well-formed output.
package reasoning

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/kaptinlin/jsonrepair"
	"go.uber.org/zap"

	"stock-advisor/internal/domain"
	"stock-advisor/internal/observability"
)

// Client generates a reasoning output for one candidate context.
type Client interface {
	Generate(ctx context.Context, rc domain.ReasoningContext) (domain.ReasoningOutput, error)
}

const promptTemplate = `你是A股交易辅助模型。请基于输入的行情特征、资讯证据、风险偏好，输出严格JSON：
{
  "summary_zh": "...",
  "summary_en": "...",
  "action": "buy|sell|hold",
  "target_position_pct": 0-100,
  "risk": {"stop_loss_pct": number, "take_profit_pct": number, "invalidate_conditions": []},
  "evidence": {"market_features": [], "news_citations": []},
  "confidence": 0-1
}
不得输出JSON以外内容。
输入:
%s`

// HTTPClientConfig configures the chat-completions client.
type HTTPClientConfig struct {
	BaseURL        string
	APIKey         string
	Model          string
	Timeout        time.Duration
	MaxConcurrency int // global cap across all scans, default 20
}

// HTTPClient implements Client over an OpenAI-compatible chat completions
// API. A single semaphore bounds fan-out across every concurrent scan.
type HTTPClient struct {
	config HTTPClientConfig
	http   *http.Client
	sem    chan struct{}
	logger *zap.Logger
}

// NewHTTPClient creates a reasoning client.
func NewHTTPClient(config HTTPClientConfig, logger *zap.Logger) *HTTPClient {
	if config.MaxConcurrency < 1 {
		config.MaxConcurrency = 20
	}
	if config.Timeout <= 0 {
		config.Timeout = 20 * time.Second
	}
	return &HTTPClient{
		config: config,
		http:   &http.Client{Timeout: config.Timeout},
		sem:    make(chan struct{}, config.MaxConcurrency),
		logger: logger,
	}
}

var _ Client = (*HTTPClient)(nil)

// Generate calls the model, parses its JSON (repairing when necessary) and
// retries once on a malformed document. After two failed attempts it falls
// back to a low-confidence hold so the pipeline never sees a broken output.
func (c *HTTPClient) Generate(ctx context.Context, rc domain.ReasoningContext) (domain.ReasoningOutput, error) {
	payload, err := json.Marshal(rc)
	if err != nil {
		return domain.ReasoningOutput{}, fmt.Errorf("marshal reasoning context: %w", err)
	}
	prompt := fmt.Sprintf(promptTemplate, string(payload))
	start := time.Now()

	for attempt := 1; attempt <= 2; attempt++ {
		text, err := c.callModel(ctx, prompt)
		if err != nil {
			if ctx.Err() != nil {
				observability.RecordReasoningCall("error", time.Since(start).Seconds())
				return domain.ReasoningOutput{}, ctx.Err()
			}
			c.logger.Warn("reasoning call failed",
				zap.String("symbol", rc.Symbol), zap.Int("attempt", attempt), zap.Error(err))
			continue
		}
		out, err := parseOutput(text)
		if err != nil {
			c.logger.Warn("reasoning output malformed",
				zap.String("symbol", rc.Symbol), zap.Int("attempt", attempt), zap.Error(err))
			continue
		}
		observability.RecordReasoningCall("ok", time.Since(start).Seconds())
		return out, nil
	}
	observability.RecordReasoningCall("fallback", time.Since(start).Seconds())
	return fallbackOutput(rc), nil
}

// callModel performs the HTTP call with a small transport-level retry on
// rate limits and server errors.
func (c *HTTPClient) callModel(ctx context.Context, prompt string) (string, error) {
	if c.config.APIKey == "" {
		return "{}", nil
	}

	select {
	case c.sem <- struct{}{}:
		defer func() { <-c.sem }()
	case <-ctx.Done():
		return "", ctx.Err()
	}

	body, err := json.Marshal(map[string]any{
		"model":       c.config.Model,
		"messages":    []map[string]string{{"role": "user", "content": prompt}},
		"temperature": 0.1,
	})
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}
	url := strings.TrimRight(c.config.BaseURL, "/") + "/chat/completions"

	var lastErr error
	for try := 0; try < 3; try++ {
		if try > 0 {
			select {
			case <-time.After(600 * time.Millisecond):
			case <-ctx.Done():
				return "", ctx.Err()
			}
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
		if err != nil {
			return "", fmt.Errorf("build request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer "+c.config.APIKey)

		resp, err := c.http.Do(req)
		if err != nil {
			lastErr = err
			continue
		}
		data, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			lastErr = err
			continue
		}
		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			lastErr = fmt.Errorf("model endpoint returned HTTP %d", resp.StatusCode)
			continue
		}
		if resp.StatusCode >= 400 {
			return "", fmt.Errorf("model endpoint returned HTTP %d: %s", resp.StatusCode, truncate(string(data), 200))
		}

		var completion struct {
			Choices []struct {
				Message struct {
					Content string `json:"content"`
				} `json:"message"`
			} `json:"choices"`
		}
		if err := json.Unmarshal(data, &completion); err != nil {
			return "", fmt.Errorf("decode completion: %w", err)
		}
		if len(completion.Choices) == 0 {
			return "{}", nil
		}
		return completion.Choices[0].Message.Content, nil
	}
	return "", fmt.Errorf("model endpoint unreachable: %w", lastErr)
}

// parseOutput unmarshals the model's JSON, repairing sloppy output first,
// and enforces the fields the pipeline depends on.
func parseOutput(text string) (domain.ReasoningOutput, error) {
	var out domain.ReasoningOutput
	raw := strings.TrimSpace(text)
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		repaired, repairErr := jsonrepair.JSONRepair(raw)
		if repairErr != nil {
			return out, fmt.Errorf("unparseable output: %w", err)
		}
		if err := json.Unmarshal([]byte(repaired), &out); err != nil {
			return out, fmt.Errorf("unparseable output after repair: %w", err)
		}
	}
	if out.SummaryZH == "" || out.SummaryEN == "" || out.Action == "" {
		return out, errors.New("missing required fields")
	}
	if out.TargetPositionPct < 0 || out.TargetPositionPct > 100 {
		return out, fmt.Errorf("target position out of range: %v", out.TargetPositionPct)
	}
	if out.Confidence < 0 || out.Confidence > 1 {
		return out, fmt.Errorf("confidence out of range: %v", out.Confidence)
	}
	return out, nil
}

// fallbackOutput is the low-confidence hold returned when the model never
// produced a usable document.
func fallbackOutput(rc domain.ReasoningContext) domain.ReasoningOutput {
	features := rc.MarketFeatures
	if len(features) > 2 {
		features = features[:2]
	}
	news := rc.NewsItems
	if len(news) > 1 {
		news = news[:1]
	}
	return domain.ReasoningOutput{
		SummaryZH:  fmt.Sprintf("%s 当前信号不足，建议观望。", rc.Symbol),
		SummaryEN:  fmt.Sprintf("%s has insufficient signal; hold for now.", rc.Symbol),
		Action:     domain.ActionHold,
		Risk:       domain.RiskAssessment{InvalidateConditions: []string{"schema_validation_failed"}},
		Evidence:   domain.Evidence{MarketFeatures: features, NewsCitations: news},
		Confidence: 0.1,
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

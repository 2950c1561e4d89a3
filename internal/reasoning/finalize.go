package reasoning

import "stock-advisor/internal/domain"

// Finalize fills the gaps a model is allowed to leave: an invalid action
// falls back to the prefilter's hint, empty evidence is backed by the top
// collected features and news, and empty summaries get generic text. The
// returned output always satisfies downstream guardrail expectations.
func Finalize(out domain.ReasoningOutput, hint domain.Action, features []domain.MarketFeature, news []domain.NewsItem) domain.ReasoningOutput {
	if !out.Action.Valid() {
		out.Action = hint
	}
	if len(out.Evidence.MarketFeatures) == 0 {
		out.Evidence.MarketFeatures = topFeatures(features, 4)
	}
	if len(out.Evidence.NewsCitations) == 0 {
		out.Evidence.NewsCitations = topNews(news, 4)
	}
	if len(out.Risk.InvalidateConditions) == 0 {
		out.Risk.InvalidateConditions = []string{"signal_invalidated"}
	}
	if out.SummaryZH == "" {
		out.SummaryZH = "信号已触发，请结合风险偏好判断。"
	}
	if out.SummaryEN == "" {
		out.SummaryEN = "Signal triggered. Evaluate with your risk profile."
	}
	return out
}

func topFeatures(features []domain.MarketFeature, n int) []domain.MarketFeature {
	if len(features) > n {
		features = features[:n]
	}
	return append([]domain.MarketFeature(nil), features...)
}

func topNews(news []domain.NewsItem, n int) []domain.NewsItem {
	if len(news) > n {
		news = news[:n]
	}
	return append([]domain.NewsItem(nil), news...)
}

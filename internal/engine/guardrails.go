package engine

import (
	"time"

	"stock-advisor/internal/domain"
)

// Guardrail rejection reasons.
const (
	RejectCooldownActive        = "cooldown_active"
	RejectReversalLowConfidence = "reversal_low_confidence"
	RejectInsufficientEvidence  = "insufficient_evidence"
)

// A reversal needs this much confidence before it may flip the last
// directional call.
const reversalMinConfidence = 0.75

// Guardrails is the ordered gate between a finalized reasoning output and
// persistence. Gates run in a fixed order and the first rejection wins.
type Guardrails struct {
	Cooldown         time.Duration
	EvidenceMinItems int

	MaxPositionAggressive   int
	MaxPositionNeutral      int
	MaxPositionConservative int
}

// PositionCap returns the target position ceiling for a profile.
// Unknown profiles fall back to neutral.
func (g Guardrails) PositionCap(profile domain.RiskProfile) float64 {
	switch profile {
	case domain.ProfileAggressive:
		return float64(g.MaxPositionAggressive)
	case domain.ProfileConservative:
		return float64(g.MaxPositionConservative)
	default:
		return float64(g.MaxPositionNeutral)
	}
}

// Apply runs the gates against a draft recommendation. The position clamp
// mutates the draft; the returned reason is empty when the draft survives.
// Order: cooldown, reversal confidence, position clamp, evidence minimum.
func (g Guardrails) Apply(rec *domain.Recommendation, last *domain.Recommendation, profile domain.RiskProfile, now time.Time) string {
	if last != nil && last.Action == rec.Action && now.Sub(last.CreatedAt) < g.Cooldown {
		return RejectCooldownActive
	}
	if last != nil && last.Action != rec.Action &&
		last.Action.Directional() && rec.Action.Directional() &&
		rec.Confidence < reversalMinConfidence {
		return RejectReversalLowConfidence
	}
	if posCap := g.PositionCap(profile); rec.TargetPositionPct > posCap {
		rec.TargetPositionPct = posCap
	}
	if rec.TargetPositionPct < 0 {
		rec.TargetPositionPct = 0
	}
	if rec.Evidence.Count() < g.EvidenceMinItems {
		return RejectInsufficientEvidence
	}
	return ""
}

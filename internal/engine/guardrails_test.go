package engine

import (
	"testing"
	"time"

	"stock-advisor/internal/domain"
)

func testGuardrails() Guardrails {
	return Guardrails{
		Cooldown:                4 * time.Hour,
		EvidenceMinItems:        2,
		MaxPositionAggressive:   50,
		MaxPositionNeutral:      35,
		MaxPositionConservative: 20,
	}
}

func draftRec(action domain.Action, confidence, target float64) *domain.Recommendation {
	return &domain.Recommendation{
		Symbol:            "AAA",
		Action:            action,
		Confidence:        confidence,
		TargetPositionPct: target,
		Evidence: domain.Evidence{
			MarketFeatures: []domain.MarketFeature{{Name: "vol_ratio_15m", Value: 1.6}},
			NewsCitations:  []domain.NewsItem{{Title: "headline"}},
		},
	}
}

func TestGuardrails_CooldownRejectsSameAction(t *testing.T) {
	g := testGuardrails()
	now := time.Now()
	last := &domain.Recommendation{Action: domain.ActionBuy, CreatedAt: now.Add(-1 * time.Hour)}

	if reason := g.Apply(draftRec(domain.ActionBuy, 0.9, 30), last, domain.ProfileNeutral, now); reason != RejectCooldownActive {
		t.Errorf("expected cooldown rejection, got %q", reason)
	}

	stale := &domain.Recommendation{Action: domain.ActionBuy, CreatedAt: now.Add(-5 * time.Hour)}
	if reason := g.Apply(draftRec(domain.ActionBuy, 0.9, 30), stale, domain.ProfileNeutral, now); reason != "" {
		t.Errorf("expected pass after cooldown expiry, got %q", reason)
	}
}

func TestGuardrails_ReversalNeedsConfidence(t *testing.T) {
	g := testGuardrails()
	now := time.Now()
	last := &domain.Recommendation{Action: domain.ActionBuy, CreatedAt: now.Add(-10 * time.Hour)}

	if reason := g.Apply(draftRec(domain.ActionSell, 0.6, 30), last, domain.ProfileNeutral, now); reason != RejectReversalLowConfidence {
		t.Errorf("expected reversal rejection at 0.6, got %q", reason)
	}
	if reason := g.Apply(draftRec(domain.ActionSell, 0.8, 30), last, domain.ProfileNeutral, now); reason != "" {
		t.Errorf("expected pass at 0.8, got %q", reason)
	}

	// A hold on either side is not a reversal.
	lastHold := &domain.Recommendation{Action: domain.ActionHold, CreatedAt: now.Add(-10 * time.Hour)}
	if reason := g.Apply(draftRec(domain.ActionSell, 0.2, 30), lastHold, domain.ProfileNeutral, now); reason != "" {
		t.Errorf("hold to sell should not need reversal confidence, got %q", reason)
	}
}

func TestGuardrails_PositionClamp(t *testing.T) {
	g := testGuardrails()
	now := time.Now()

	cases := []struct {
		profile domain.RiskProfile
		want    float64
	}{
		{domain.ProfileAggressive, 50},
		{domain.ProfileNeutral, 35},
		{domain.ProfileConservative, 20},
		{domain.RiskProfile("unknown"), 35},
	}
	for _, tc := range cases {
		rec := draftRec(domain.ActionBuy, 0.9, 80)
		if reason := g.Apply(rec, nil, tc.profile, now); reason != "" {
			t.Fatalf("profile %s: unexpected rejection %q", tc.profile, reason)
		}
		if rec.TargetPositionPct != tc.want {
			t.Errorf("profile %s: expected clamp to %v, got %v", tc.profile, tc.want, rec.TargetPositionPct)
		}
	}

	rec := draftRec(domain.ActionBuy, 0.9, -10)
	g.Apply(rec, nil, domain.ProfileNeutral, now)
	if rec.TargetPositionPct != 0 {
		t.Errorf("negative target should clamp to 0, got %v", rec.TargetPositionPct)
	}
}

func TestGuardrails_EvidenceMinimum(t *testing.T) {
	g := testGuardrails()
	rec := draftRec(domain.ActionBuy, 0.9, 30)
	rec.Evidence = domain.Evidence{MarketFeatures: []domain.MarketFeature{{Name: "only_one"}}}

	if reason := g.Apply(rec, nil, domain.ProfileNeutral, time.Now()); reason != RejectInsufficientEvidence {
		t.Errorf("expected evidence rejection, got %q", reason)
	}
}

func TestGuardrails_CooldownWinsOverEvidence(t *testing.T) {
	g := testGuardrails()
	now := time.Now()
	last := &domain.Recommendation{Action: domain.ActionBuy, CreatedAt: now.Add(-time.Hour)}

	rec := draftRec(domain.ActionBuy, 0.9, 30)
	rec.Evidence = domain.Evidence{}
	if reason := g.Apply(rec, last, domain.ProfileNeutral, now); reason != RejectCooldownActive {
		t.Errorf("cooldown should be checked first, got %q", reason)
	}
}

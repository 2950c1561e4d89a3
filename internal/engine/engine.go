// Package engine orchestrates recommendation jobs: watchlist scans and
// universe discovery. It owns candidate collection, scoring, the reasoning
// shortlist, guardrails and persistence, and reports progress through the
// status trackers.
package engine

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"stock-advisor/internal/domain"
	"stock-advisor/internal/observability"
	"stock-advisor/internal/providers"
	"stock-advisor/internal/reasoning"
	"stock-advisor/internal/scoring"
	"stock-advisor/internal/status"
	"stock-advisor/internal/storage"
)

// Trigger results returned to API callers.
const (
	TriggerStarted        = "started"
	TriggerAlreadyRunning = "already_running"
)

// Notifier receives newly created recommendations for live delivery.
// Delivery is best effort and must never fail the scan.
type Notifier interface {
	NotifyRecommendation(clientID string, rec *domain.Recommendation)
}

// Options carries the guardrail and prefilter thresholds.
type Options struct {
	Cooldown         time.Duration
	EvidenceMinItems int

	MaxPositionAggressive   int
	MaxPositionNeutral      int
	MaxPositionConservative int

	MinTurnover20d float64
}

// Engine runs scan and discovery jobs for clients. At most one job of each
// kind runs per client at a time.
type Engine struct {
	repo      storage.Repository
	collector collector
	reasoner  reasoning.Client

	prefilter  scoring.Prefilter
	discovery  scoring.DiscoveryScorer
	guardrails Guardrails

	scans     *status.ScanTracker
	discovers *status.DiscoverTracker
	notifier  Notifier
	logger    *zap.Logger

	activeMu sync.Mutex
	active   map[string]struct{}

	// symLocks serializes the cooldown check and insert per (client, symbol)
	// so concurrent jobs cannot both pass the cooldown gate.
	symMu    sync.Mutex
	symLocks map[string]*sync.Mutex
}

// New wires an engine. notifier may be nil.
func New(
	repo storage.Repository,
	market providers.MarketDataProvider,
	news providers.NewsProvider,
	reasoner reasoning.Client,
	scans *status.ScanTracker,
	discovers *status.DiscoverTracker,
	notifier Notifier,
	opts Options,
	logger *zap.Logger,
) *Engine {
	return &Engine{
		repo:      repo,
		collector: collector{market: market, news: news, logger: logger},
		reasoner:  reasoner,
		prefilter: scoring.Prefilter{MinTurnover20d: opts.MinTurnover20d},
		guardrails: Guardrails{
			Cooldown:                opts.Cooldown,
			EvidenceMinItems:        opts.EvidenceMinItems,
			MaxPositionAggressive:   opts.MaxPositionAggressive,
			MaxPositionNeutral:      opts.MaxPositionNeutral,
			MaxPositionConservative: opts.MaxPositionConservative,
		},
		scans:     scans,
		discovers: discovers,
		notifier:  notifier,
		logger:    logger,
		active:    make(map[string]struct{}),
		symLocks:  make(map[string]*sync.Mutex),
	}
}

// TriggerScan starts a background scan for the client unless one is already
// running. Returns the trigger result and a human-readable message.
func (e *Engine) TriggerScan(clientID string) (string, string) {
	if !e.acquire("scan:" + clientID) {
		return TriggerAlreadyRunning, e.scans.Get(clientID).Message
	}
	go func() {
		defer e.release("scan:" + clientID)
		if err := e.scanClient(context.Background(), clientID); err != nil {
			e.logger.Warn("scan failed", zap.String("client_id", clientID), zap.Error(err))
		}
	}()
	return TriggerStarted, "Scan started."
}

// GetScanStatus returns the client's current scan status.
func (e *Engine) GetScanStatus(clientID string) domain.ScanStatus {
	return e.scans.Get(clientID)
}

// ScanOneClient runs a scan synchronously. A scan already in flight for the
// client makes this a no-op.
func (e *Engine) ScanOneClient(ctx context.Context, clientID string) error {
	if !e.acquire("scan:" + clientID) {
		e.logger.Info("scan already running, skipping", zap.String("client_id", clientID))
		return nil
	}
	defer e.release("scan:" + clientID)
	return e.scanClient(ctx, clientID)
}

// ScanAllClients scans every known client sequentially. Per-client failures
// are recorded on that client's status and joined into the returned error;
// the loop always continues.
func (e *Engine) ScanAllClients(ctx context.Context) error {
	ids, err := e.repo.AllClientIDs(ctx)
	if err != nil {
		return fmt.Errorf("list clients: %w", err)
	}
	var errs []error
	for _, id := range ids {
		if err := e.ScanOneClient(ctx, id); err != nil {
			errs = append(errs, fmt.Errorf("client %s: %w", id, err))
		}
	}
	return errors.Join(errs...)
}

func (e *Engine) scanClient(ctx context.Context, clientID string) error {
	start := time.Now()
	err := e.runScan(ctx, clientID)
	outcome := "success"
	if err != nil {
		outcome = "failure"
	}
	observability.RecordScan(outcome, time.Since(start).Seconds())
	return err
}

func (e *Engine) runScan(ctx context.Context, clientID string) error {
	// Counters reset explicitly so a restarted scan never shows the
	// previous run's tallies.
	zero := 0
	e.scans.SetRunning(clientID, status.RunningUpdate{
		Step:                   domain.StepLoadingWatchlist,
		Progress:               5,
		Message:                "Loading watchlist.",
		TotalWatchlist:         &zero,
		TotalCandidates:        &zero,
		ProcessedCandidates:    &zero,
		CreatedRecommendations: &zero,
	})

	watchlist, err := e.repo.Watchlist.GetByClient(ctx, clientID)
	if err != nil {
		e.scans.SetFailed(clientID, "Scan failed.", err.Error())
		return fmt.Errorf("load watchlist for %s: %w", clientID, err)
	}
	if len(watchlist) == 0 {
		e.scans.SetSucceeded(clientID, "Watchlist is empty.")
		return nil
	}
	prefs := e.loadPreferences(ctx, clientID)

	total := len(watchlist)
	var candidates []domain.Candidate
	for i, item := range watchlist {
		e.scans.SetRunning(clientID, status.RunningUpdate{
			Step:           domain.StepCollecting,
			Progress:       10 + i*45/total,
			Message:        fmt.Sprintf("Collecting market/news data (%d/%d): %s.", i+1, total, item.Symbol),
			TotalWatchlist: &total,
		})

		data, err := e.collector.collect(ctx, item.Symbol, scanNewsWindow)
		if err != nil {
			if ctx.Err() != nil {
				e.scans.SetFailed(clientID, "Scan failed.", ctx.Err().Error())
				return ctx.Err()
			}
			e.logger.Warn("symbol collection failed, skipping",
				zap.String("client_id", clientID), zap.String("symbol", item.Symbol), zap.Error(err))
			continue
		}

		market := scoring.ExtractSnapshot(item.Symbol, data.Bars15m, data.BarsDaily)
		res := e.prefilter.Evaluate(market, data.Bars15m, data.BarsDaily, data.News, prefs.RiskProfile)
		if !res.Triggered {
			continue
		}
		observability.RecordCandidateTriggered()
		candidates = append(candidates, domain.Candidate{
			Symbol:     item.Symbol,
			Name:       item.Name,
			Score:      res.Score,
			ActionHint: res.ActionHint,
			Reasons:    res.Reasons,
			Market:     market,
			News:       data.News,
		})
	}

	if len(candidates) == 0 {
		e.scans.SetSucceeded(clientID, "No candidates were triggered.")
		return nil
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Score > candidates[j].Score
	})

	totalCandidates := len(candidates)
	created := 0
	for i, cand := range candidates {
		processed := i
		e.scans.SetRunning(clientID, status.RunningUpdate{
			Step:                   domain.StepReasoning,
			Progress:               60 + i*35/totalCandidates,
			Message:                fmt.Sprintf("Running AI analysis (%d/%d).", i+1, totalCandidates),
			TotalCandidates:        &totalCandidates,
			ProcessedCandidates:    &processed,
			CreatedRecommendations: &created,
		})

		outcome := e.processCandidate(ctx, clientID, prefs, cand)
		switch {
		case outcome.err != nil:
			if ctx.Err() != nil {
				e.scans.SetFailed(clientID, "Scan failed.", ctx.Err().Error())
				return ctx.Err()
			}
			e.logger.Warn("candidate processing failed",
				zap.String("client_id", clientID), zap.String("symbol", cand.Symbol), zap.Error(outcome.err))
		case outcome.created != nil:
			created++
			observability.RecordRecommendationCreated()
		default:
			observability.RecordGuardrailRejection(outcome.skipped)
			e.logger.Info("candidate rejected by guardrail",
				zap.String("client_id", clientID), zap.String("symbol", cand.Symbol),
				zap.String("reason", outcome.skipped))
		}
	}

	e.scans.SetSucceeded(clientID,
		fmt.Sprintf("Completed. candidates=%d, recommendations=%d.", totalCandidates, created))
	return nil
}

// candidateOutcome records what happened to one candidate: exactly one of
// created, skipped (guardrail reason) or err is set.
type candidateOutcome struct {
	created *domain.Recommendation
	skipped string
	err     error
}

func (e *Engine) processCandidate(ctx context.Context, clientID string, prefs domain.Preferences, cand domain.Candidate) candidateOutcome {
	last, err := e.lastRecommendation(ctx, clientID, cand.Symbol)
	if err != nil {
		return candidateOutcome{err: err}
	}

	news := cand.News
	if len(news) > newsPerSymbol {
		news = news[:newsPerSymbol]
	}
	out, err := e.reasoner.Generate(ctx, domain.ReasoningContext{
		ClientID:           clientID,
		Symbol:             cand.Symbol,
		Name:               cand.Name,
		RiskProfile:        prefs.RiskProfile,
		Locale:             prefs.Locale,
		MarketFeatures:     cand.Market.Features,
		NewsItems:          news,
		LastRecommendation: last,
	})
	if err != nil {
		return candidateOutcome{err: fmt.Errorf("reasoning for %s: %w", cand.Symbol, err)}
	}
	out = reasoning.Finalize(out, cand.ActionHint, cand.Market.Features, cand.News)

	rec := &domain.Recommendation{
		ID:                uuid.NewString(),
		ClientID:          clientID,
		Symbol:            cand.Symbol,
		CreatedAt:         time.Now().UTC(),
		Action:            out.Action,
		TargetPositionPct: out.TargetPositionPct,
		SummaryZH:         out.SummaryZH,
		SummaryEN:         out.SummaryEN,
		Risk:              out.Risk,
		Evidence:          out.Evidence,
		Confidence:        out.Confidence,
		CooldownKey:       cand.Symbol + ":" + string(out.Action),
	}

	unlock := e.lockSymbol(clientID, cand.Symbol)
	defer unlock()

	// Re-read under the lock; a concurrent job may have inserted since the
	// reasoning call started.
	last, err = e.lastRecommendation(ctx, clientID, cand.Symbol)
	if err != nil {
		return candidateOutcome{err: err}
	}
	if reason := e.guardrails.Apply(rec, last, prefs.RiskProfile, rec.CreatedAt); reason != "" {
		return candidateOutcome{skipped: reason}
	}
	if err := e.repo.Recommendations.Insert(ctx, rec); err != nil {
		return candidateOutcome{err: fmt.Errorf("persist recommendation for %s: %w", cand.Symbol, err)}
	}
	if e.notifier != nil {
		e.notifier.NotifyRecommendation(clientID, rec)
	}
	return candidateOutcome{created: rec}
}

func (e *Engine) lastRecommendation(ctx context.Context, clientID, symbol string) (*domain.Recommendation, error) {
	last, err := e.repo.Recommendations.GetLast(ctx, clientID, symbol)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("load last recommendation for %s: %w", symbol, err)
	}
	return last, nil
}

func (e *Engine) loadPreferences(ctx context.Context, clientID string) domain.Preferences {
	prefs, err := e.repo.Preferences.GetByClient(ctx, clientID)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			e.logger.Warn("load preferences failed, using defaults",
				zap.String("client_id", clientID), zap.Error(err))
		}
		return domain.DefaultPreferences(clientID)
	}
	return *prefs
}

func (e *Engine) acquire(key string) bool {
	e.activeMu.Lock()
	defer e.activeMu.Unlock()
	if _, busy := e.active[key]; busy {
		return false
	}
	e.active[key] = struct{}{}
	return true
}

func (e *Engine) release(key string) {
	e.activeMu.Lock()
	defer e.activeMu.Unlock()
	delete(e.active, key)
}

func (e *Engine) lockSymbol(clientID, symbol string) func() {
	key := clientID + ":" + symbol
	e.symMu.Lock()
	mu, ok := e.symLocks[key]
	if !ok {
		mu = &sync.Mutex{}
		e.symLocks[key] = mu
	}
	e.symMu.Unlock()
	mu.Lock()
	return mu.Unlock
}

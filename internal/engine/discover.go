package engine

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"stock-advisor/internal/domain"
	"stock-advisor/internal/observability"
	"stock-advisor/internal/reasoning"
	"stock-advisor/internal/scoring"
	"stock-advisor/internal/status"
)

// Discovery job bounds.
const (
	discoveryWorkers = 4
	// Umbrella budget for the screening stage; on expiry the job degrades
	// to whatever candidates completed in time.
	discoveryBudget = 35 * time.Second

	universeMinSize      = 20
	universeMaxSize      = 120
	defaultUniverseLimit = 80

	defaultDiscoverLimit = 5
	maxDiscoverLimit     = 10
)

// TriggerDiscovery starts a background discovery job for the client unless
// one is already running.
func (e *Engine) TriggerDiscovery(clientID string, limit, universeLimit int) (string, string) {
	if !e.acquire("discover:" + clientID) {
		return TriggerAlreadyRunning, e.discovers.Get(clientID).Message
	}
	go func() {
		defer e.release("discover:" + clientID)
		e.runDiscovery(context.Background(), clientID, limit, universeLimit)
	}()
	return TriggerStarted, "AI selection started."
}

// GetDiscoveryStatus returns the client's current discovery status.
func (e *Engine) GetDiscoveryStatus(clientID string) domain.DiscoverStatus {
	return e.discovers.Get(clientID)
}

// DiscoverStocks runs discovery synchronously, without touching the status
// machine, and returns the accepted items.
func (e *Engine) DiscoverStocks(ctx context.Context, clientID string, limit, universeLimit int) ([]domain.DiscoverItem, error) {
	items, _, _, err := e.discoverCore(ctx, clientID, clampDiscoverLimit(limit), clampUniverseLimit(universeLimit), nil)
	return items, err
}

func (e *Engine) runDiscovery(ctx context.Context, clientID string, limit, universeLimit int) {
	limit = clampDiscoverLimit(limit)
	items, scanned, totalCandidates, err := e.discoverCore(ctx, clientID, limit, clampUniverseLimit(universeLimit), func(upd status.DiscoverUpdate) {
		upd.Limit = &limit
		e.discovers.SetRunning(clientID, upd)
	})
	if err != nil {
		observability.RecordDiscoveryRun("failure")
		e.logger.Warn("discovery failed", zap.String("client_id", clientID), zap.Error(err))
		e.discovers.SetFailed(clientID, "AI selection failed.", err.Error())
		return
	}
	observability.RecordDiscoveryRun("success")
	e.discovers.SetRunning(clientID, status.DiscoverUpdate{
		Step:              domain.StepReasoning,
		Progress:          99,
		Message:           "AI selection is running.",
		Limit:             &limit,
		ScannedCandidates: &scanned,
		TotalCandidates:   &totalCandidates,
	})
	e.discovers.SetSucceeded(clientID, "AI selection completed.", items)
}

// discoverCore is the shared discovery pipeline: universe load, bounded
// fan-out screening, backup promotion, reasoning over the shortlist.
// report may be nil for the synchronous path.
func (e *Engine) discoverCore(ctx context.Context, clientID string, limit, universeLimit int, report func(status.DiscoverUpdate)) (items []domain.DiscoverItem, scanned, totalCandidates int, err error) {
	progress := func(upd status.DiscoverUpdate) {
		if report != nil {
			report(upd)
		}
	}

	progress(status.DiscoverUpdate{
		Step:          domain.StepLoadingUniverse,
		Progress:      5,
		Message:       "AI selection started.",
		UniverseLimit: &universeLimit,
	})

	refs := e.loadUniverse(ctx, clientID, universeLimit)
	if len(refs) == 0 {
		return []domain.DiscoverItem{}, 0, 0, nil
	}
	scanCap := len(refs)
	if limitCap := maxInt(limit*6, 30); scanCap > limitCap {
		scanCap = limitCap
	}
	refs = refs[:scanCap]

	prefs := e.loadPreferences(ctx, clientID)
	accepted, backup, scanned := e.screenUniverse(ctx, refs, progress)

	// A weak-signal day never silently yields nothing: promote the best
	// backups when no symbol triggered outright.
	if len(accepted) == 0 && len(backup) > 0 {
		sort.SliceStable(backup, func(i, j int) bool { return backup[i].Score > backup[j].Score })
		if len(backup) > limit {
			backup = backup[:limit]
		}
		accepted = backup
	}
	totalCandidates = len(accepted)
	if totalCandidates == 0 {
		return []domain.DiscoverItem{}, scanned, 0, nil
	}

	sort.SliceStable(accepted, func(i, j int) bool { return accepted[i].Score > accepted[j].Score })
	shortlist := accepted
	if shortCap := maxInt(2*limit, limit); len(shortlist) > shortCap {
		shortlist = shortlist[:shortCap]
	}

	for i, cand := range shortlist {
		if ctx.Err() != nil {
			return nil, scanned, totalCandidates, ctx.Err()
		}
		progress(status.DiscoverUpdate{
			Step:              domain.StepReasoning,
			Progress:          65 + i*30/len(shortlist),
			Message:           fmt.Sprintf("Running AI analysis (%d/%d).", i+1, len(shortlist)),
			ScannedCandidates: &scanned,
			TotalCandidates:   &totalCandidates,
		})

		news := cand.News
		if len(news) > newsPerSymbol {
			news = news[:newsPerSymbol]
		}
		out, err := e.reasoner.Generate(ctx, domain.ReasoningContext{
			ClientID:       clientID,
			Symbol:         cand.Symbol,
			Name:           cand.Name,
			RiskProfile:    prefs.RiskProfile,
			Locale:         prefs.Locale,
			MarketFeatures: cand.Market.Features,
			NewsItems:      news,
		})
		if err != nil {
			e.logger.Warn("discovery reasoning failed, skipping",
				zap.String("client_id", clientID), zap.String("symbol", cand.Symbol), zap.Error(err))
			continue
		}
		out = reasoning.Finalize(out, cand.ActionHint, cand.Market.Features, cand.News)
		if posCap := e.guardrails.PositionCap(prefs.RiskProfile); out.TargetPositionPct > posCap {
			out.TargetPositionPct = posCap
		}

		items = append(items, domain.DiscoverItem{
			Symbol:            cand.Symbol,
			Name:              cand.Name,
			Action:            out.Action,
			Score:             cand.Score,
			Confidence:        out.Confidence,
			SummaryZH:         out.SummaryZH,
			SummaryEN:         out.SummaryEN,
			Reasons:           cand.Reasons,
			NewsCount:         len(cand.News),
			TargetPositionPct: out.TargetPositionPct,
		})
		if len(items) >= limit {
			break
		}
	}
	if items == nil {
		items = []domain.DiscoverItem{}
	}
	return items, scanned, totalCandidates, nil
}

// loadUniverse fetches the discovery universe, falling back to the client's
// own watchlist when the provider fails or returns nothing.
func (e *Engine) loadUniverse(ctx context.Context, clientID string, universeLimit int) []domain.SymbolRef {
	uctx, cancel := context.WithTimeout(ctx, universeTimeout)
	refs, err := e.collector.market.DiscoverCandidates(uctx, universeLimit)
	cancel()
	if err != nil {
		e.logger.Warn("universe load failed, falling back to watchlist",
			zap.String("client_id", clientID), zap.Error(err))
	}
	if len(refs) > 0 {
		return refs
	}
	watchlist, err := e.repo.Watchlist.GetByClient(ctx, clientID)
	if err != nil {
		e.logger.Warn("watchlist fallback failed", zap.String("client_id", clientID), zap.Error(err))
		return nil
	}
	fallback := make([]domain.SymbolRef, 0, len(watchlist))
	for _, item := range watchlist {
		fallback = append(fallback, domain.SymbolRef{Symbol: item.Symbol, Name: item.Name})
	}
	return fallback
}

// screenUniverse fans refs out over a bounded worker pool under the umbrella
// budget. Symbols that fail or run out of time are dropped, never fatal.
func (e *Engine) screenUniverse(ctx context.Context, refs []domain.SymbolRef, progress func(status.DiscoverUpdate)) (accepted, backup []domain.Candidate, scanned int) {
	sctx, cancel := context.WithTimeout(ctx, discoveryBudget)
	defer cancel()

	total := len(refs)
	work := make(chan domain.SymbolRef)
	var mu sync.Mutex
	var wg sync.WaitGroup

	for w := 0; w < discoveryWorkers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for ref := range work {
				cand, ok := e.screenSymbol(sctx, ref)
				observability.RecordSymbolScreened()
				mu.Lock()
				scanned++
				done := scanned
				if ok {
					if cand.res.Triggered {
						accepted = append(accepted, cand.candidate)
					} else if e.discovery.BackupEligible(cand.res) {
						backup = append(backup, cand.candidate)
					}
				}
				mu.Unlock()
				progress(status.DiscoverUpdate{
					Step:              domain.StepScanning,
					Progress:          10 + done*50/total,
					Message:           fmt.Sprintf("Screening candidates (%d/%d).", done, total),
					ScannedCandidates: &done,
				})
			}
		}()
	}

feed:
	for _, ref := range refs {
		select {
		case work <- ref:
		case <-sctx.Done():
			break feed
		}
	}
	close(work)
	wg.Wait()
	return accepted, backup, scanned
}

type screened struct {
	candidate domain.Candidate
	res       scoring.Result
}

func (e *Engine) screenSymbol(ctx context.Context, ref domain.SymbolRef) (screened, bool) {
	data, err := e.collector.collect(ctx, ref.Symbol, discoverNewsWindow)
	if err != nil {
		if ctx.Err() == nil {
			e.logger.Debug("discovery symbol failed", zap.String("symbol", ref.Symbol), zap.Error(err))
		}
		return screened{}, false
	}
	res := e.discovery.Evaluate(data.Bars15m, data.BarsDaily, data.News)
	return screened{
		candidate: domain.Candidate{
			Symbol:     ref.Symbol,
			Name:       ref.Name,
			Score:      res.Score,
			ActionHint: res.ActionHint,
			Reasons:    res.Reasons,
			Market:     scoring.ExtractSnapshot(ref.Symbol, data.Bars15m, data.BarsDaily),
			News:       data.News,
		},
		res: res,
	}, true
}

// clampUniverseLimit bounds a caller-supplied universe size to [20,120],
// falling back to the default when unset.
func clampUniverseLimit(v int) int {
	if v <= 0 {
		v = defaultUniverseLimit
	}
	return clampInt(v, universeMinSize, universeMaxSize)
}

func clampDiscoverLimit(limit int) int {
	if limit <= 0 {
		return defaultDiscoverLimit
	}
	if limit > maxDiscoverLimit {
		return maxDiscoverLimit
	}
	return limit
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

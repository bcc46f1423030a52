// Package engine orchestrates the periodic assessment cycle: load inputs,
// assess every zone concurrently, allocate resources, persist, publish.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/zonewatch/riskcore/internal/allocate"
	"github.com/zonewatch/riskcore/internal/domain"
	"github.com/zonewatch/riskcore/internal/observability"
	"github.com/zonewatch/riskcore/internal/risk"
)

// Inputs is one cycle's worth of source data. Observations is keyed by zone
// ID; a missing entry means no weather data for that zone this cycle.
type Inputs struct {
	Zones        []domain.Zone
	Observations map[string]*domain.HazardObservation
	Resources    []domain.ResourceTypeConfig
}

// InputProvider supplies the zones, observations, and resource pools for a cycle.
type InputProvider interface {
	Inputs(ctx context.Context) (Inputs, error)
}

// CycleStore persists a completed cycle atomically.
type CycleStore interface {
	SaveCycle(ctx context.Context, cycleID string, computedAt time.Time, records []domain.FusedRiskRecord, plans []domain.AllocationPlan) error
}

// Publisher emits a committed cycle to downstream consumers. Publishing is
// best-effort: failures are logged and counted but never fail the cycle.
type Publisher interface {
	PublishCycle(ctx context.Context, result CycleResult) error
}

// CycleResult is the committed output of one cycle.
type CycleResult struct {
	CycleID    string                   `json:"cycle_id"`
	ComputedAt time.Time                `json:"computed_at"`
	Records    []domain.FusedRiskRecord `json:"records"`
	Plans      []domain.AllocationPlan  `json:"plans"`
}

// Options tunes the engine's loop and fan-out.
type Options struct {
	Workers   int
	MLTimeout time.Duration
	Interval  time.Duration
	Clock     clockwork.Clock
}

// Engine runs assessment cycles. Between cycles it holds the last committed
// snapshot, which the next cycle's spillover step reads from.
type Engine struct {
	provider  InputProvider
	predictor domain.Predictor
	store     CycleStore
	publisher Publisher

	risk      *risk.Engine
	scorer    *allocate.NeedScorer
	allocator *allocate.Allocator

	logger  *slog.Logger
	metrics *observability.Metrics
	clock   clockwork.Clock

	workers   int
	mlTimeout time.Duration
	interval  time.Duration

	mu    sync.Mutex
	prior *Snapshot

	ready atomic.Bool
}

// New creates an Engine. predictor and publisher may be nil; the engine then
// runs composite-only fusion and skips publishing.
func New(provider InputProvider, predictor domain.Predictor, store CycleStore, publisher Publisher,
	riskEngine *risk.Engine, scorer *allocate.NeedScorer,
	logger *slog.Logger, metrics *observability.Metrics, opts Options) *Engine {
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	if opts.MLTimeout <= 0 {
		opts.MLTimeout = 5 * time.Second
	}
	if opts.Interval <= 0 {
		opts.Interval = 5 * time.Minute
	}
	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}
	return &Engine{
		provider:  provider,
		predictor: predictor,
		store:     store,
		publisher: publisher,
		risk:      riskEngine,
		scorer:    scorer,
		allocator: allocate.NewAllocator(),
		logger:    logger,
		metrics:   metrics,
		clock:     opts.Clock,
		workers:   opts.Workers,
		mlTimeout: opts.MLTimeout,
		interval:  opts.Interval,
	}
}

// Seed installs records from a previous run as the prior-cycle snapshot, so
// spillover and surge context survive restarts.
func (e *Engine) Seed(records map[string]domain.FusedRiskRecord) {
	e.setPrior(NewSnapshot(records))
}

// CheckReadiness returns nil once at least one cycle has committed.
func (e *Engine) CheckReadiness(_ context.Context) error {
	if !e.ready.Load() {
		return errors.New("no assessment cycle has completed yet")
	}
	return nil
}

// Run executes cycles on the configured interval until the context is
// cancelled. The first cycle runs immediately.
func (e *Engine) Run(ctx context.Context) error {
	e.logger.Info("engine started", "interval", e.interval, "workers", e.workers)
	e.metrics.EngineRunning.Set(1)
	defer e.metrics.EngineRunning.Set(0)

	ticker := e.clock.NewTicker(e.interval)
	defer ticker.Stop()

	e.runAndLog(ctx)
	for {
		select {
		case <-ctx.Done():
			e.logger.Info("engine stopping", "reason", ctx.Err())
			return nil
		case <-ticker.Chan():
			e.runAndLog(ctx)
		}
	}
}

func (e *Engine) runAndLog(ctx context.Context) {
	if _, err := e.RunCycle(ctx); err != nil {
		if ctx.Err() != nil {
			return
		}
		e.logger.Error("cycle failed", "error", err)
		e.metrics.CycleErrors.Inc()
	}
}

// RunCycle executes a single assessment cycle. The prior snapshot advances
// only after the cycle commits; a failed or cancelled cycle leaves no trace.
func (e *Engine) RunCycle(ctx context.Context) (CycleResult, error) {
	start := time.Now()

	in, err := e.provider.Inputs(ctx)
	if err != nil {
		return CycleResult{}, fmt.Errorf("loading inputs: %w", err)
	}
	if len(in.Zones) == 0 {
		return CycleResult{}, errors.New("no zones to assess")
	}

	cycleID := uuid.NewString()
	stats := risk.NewPopulationStats(in.Zones)
	prior := e.priorSnapshot()

	records := e.assessAll(ctx, cycleID, in, stats, prior)
	if ctx.Err() != nil {
		return CycleResult{}, ctx.Err()
	}
	sort.Slice(records, func(i, j int) bool { return records[i].ZoneID < records[j].ZoneID })

	population := make(map[string]int, len(in.Zones))
	for _, z := range in.Zones {
		population[z.ID] = z.Population
	}
	needs := make([]allocate.ZoneNeed, 0, len(records))
	for _, rec := range records {
		needs = append(needs, allocate.ZoneNeed{
			ZoneID:    rec.ZoneID,
			Need:      e.scorer.Score(rec, population[rec.ZoneID]),
			Category:  rec.RiskCategory,
			TopHazard: rec.TopHazard,
		})
	}
	plans := e.allocator.AllocateAll(needs, in.Resources)

	computedAt := domain.Now()
	if err := e.store.SaveCycle(ctx, cycleID, computedAt, records, plans); err != nil {
		return CycleResult{}, fmt.Errorf("persisting cycle %s: %w", cycleID, err)
	}

	byZone := make(map[string]domain.FusedRiskRecord, len(records))
	spillovers := 0
	for _, rec := range records {
		byZone[rec.ZoneID] = rec
		if rec.SpilloverApplied {
			spillovers++
		}
	}
	e.setPrior(NewSnapshot(byZone))
	e.ready.Store(true)

	result := CycleResult{CycleID: cycleID, ComputedAt: computedAt, Records: records, Plans: plans}

	if e.publisher != nil {
		if err := e.publisher.PublishCycle(ctx, result); err != nil {
			e.logger.Error("publish cycle failed", "error", err, "cycle_id", cycleID)
			e.metrics.PublishErrors.Inc()
		}
	}

	e.metrics.CyclesCompleted.Inc()
	e.metrics.CycleDuration.Observe(time.Since(start).Seconds())
	e.metrics.ZonesAssessed.Add(float64(len(records)))
	e.metrics.SpilloverZones.Add(float64(spillovers))
	for _, plan := range plans {
		e.metrics.AllocatedUnits.WithLabelValues(plan.ResourceKey).Add(float64(plan.TotalAllocated))
	}

	e.logger.Info("cycle completed",
		"cycle_id", cycleID,
		"zones", len(records),
		"spillover_zones", spillovers,
		"plans", len(plans),
		"duration", time.Since(start),
	)
	return result, nil
}

// assessAll fans zone assessment out over the worker pool. Each zone's record
// depends only on its own inputs plus the prior snapshot, so order of
// completion does not matter; results land in their input slot.
func (e *Engine) assessAll(ctx context.Context, cycleID string, in Inputs, stats risk.PopulationStats, prior *Snapshot) []domain.FusedRiskRecord {
	records := make([]domain.FusedRiskRecord, len(in.Zones))
	jobs := make(chan int)

	var wg sync.WaitGroup
	for w := 0; w < e.workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				zone := in.Zones[i]
				obs := in.Observations[zone.ID]
				preds := e.predict(ctx, zone, obs)
				rec := e.risk.Assess(zone, stats, obs, preds, prior)
				rec.CycleID = cycleID
				records[i] = rec
			}
		}()
	}

	for i := range in.Zones {
		select {
		case <-ctx.Done():
			close(jobs)
			wg.Wait()
			return records
		case jobs <- i:
		}
	}
	close(jobs)
	wg.Wait()
	return records
}

// predict calls the Layer-2 predictor with a per-zone timeout. Any failure
// degrades that zone to composite-only risk instead of failing the cycle.
func (e *Engine) predict(ctx context.Context, zone domain.Zone, obs *domain.HazardObservation) domain.PredictionSet {
	if e.predictor == nil {
		return domain.PredictionSet{}
	}

	pctx, cancel := context.WithTimeout(ctx, e.mlTimeout)
	defer cancel()

	preds, err := e.predictor.Predict(pctx, zone, obs)
	if err != nil {
		outcome := "error"
		if errors.Is(err, context.DeadlineExceeded) {
			outcome = "timeout"
		}
		e.metrics.MLPredictions.WithLabelValues(outcome).Inc()
		e.logger.Warn("ml prediction failed, degrading to composite-only risk",
			"zone", zone.ID, "error", err)
		return domain.PredictionSet{}
	}

	if preds.Flood == nil && preds.Heat == nil {
		e.metrics.MLPredictions.WithLabelValues("degraded").Inc()
	} else {
		e.metrics.MLPredictions.WithLabelValues("success").Inc()
	}
	return preds
}

func (e *Engine) priorSnapshot() *Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.prior
}

func (e *Engine) setPrior(s *Snapshot) {
	e.mu.Lock()
	e.prior = s
	e.mu.Unlock()
}

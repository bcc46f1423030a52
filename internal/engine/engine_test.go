package engine_test

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/zonewatch/riskcore/internal/allocate"
	"github.com/zonewatch/riskcore/internal/domain"
	"github.com/zonewatch/riskcore/internal/engine"
	"github.com/zonewatch/riskcore/internal/observability"
	"github.com/zonewatch/riskcore/internal/risk"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// --- fakes ---

type fakeProvider struct {
	inputs engine.Inputs
	err    error
}

func (f *fakeProvider) Inputs(_ context.Context) (engine.Inputs, error) {
	return f.inputs, f.err
}

type fakeStore struct {
	mu     sync.Mutex
	cycles []string
	err    error
}

func (f *fakeStore) SaveCycle(_ context.Context, cycleID string, _ time.Time, _ []domain.FusedRiskRecord, _ []domain.AllocationPlan) error {
	if f.err != nil {
		return f.err
	}
	f.mu.Lock()
	f.cycles = append(f.cycles, cycleID)
	f.mu.Unlock()
	return nil
}

func (f *fakeStore) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.cycles)
}

type fakePublisher struct {
	mu      sync.Mutex
	results []engine.CycleResult
	err     error
}

func (f *fakePublisher) PublishCycle(_ context.Context, result engine.CycleResult) error {
	if f.err != nil {
		return f.err
	}
	f.mu.Lock()
	f.results = append(f.results, result)
	f.mu.Unlock()
	return nil
}

type fakePredictor struct {
	preds domain.PredictionSet
	err   error
}

func (f *fakePredictor) Predict(_ context.Context, _ domain.Zone, _ *domain.HazardObservation) (domain.PredictionSet, error) {
	return f.preds, f.err
}

// --- helpers ---

func testInputs() engine.Inputs {
	return engine.Inputs{
		Zones: []domain.Zone{
			{
				ID:         "zone-a",
				Population: 400000,
				ElevationM: domain.Float(5),
				Adjacent:   []string{"zone-b"},
			},
			{
				ID:         "zone-b",
				Population: 150000,
				ElevationM: domain.Float(120),
				Adjacent:   []string{"zone-a"},
			},
		},
		Observations: map[string]*domain.HazardObservation{
			// Extreme rainfall in zone-a only.
			"zone-a": {
				RainfallMM:            200,
				MaxRainIntensityMMH:   200,
				RainfallForecast48hMM: 500,
			},
		},
		Resources: []domain.ResourceTypeConfig{{
			Key:        "water_pumps",
			Name:       "Water Pumps",
			Unit:       "units",
			TotalUnits: 10,
			Effectiveness: map[domain.Hazard]float64{
				domain.HazardFlood: 0.9,
				domain.HazardHeat:  0.1,
			},
			MinForCritical: 2,
		}},
	}
}

func newTestEngine(t *testing.T, provider engine.InputProvider, predictor domain.Predictor, store engine.CycleStore, publisher engine.Publisher, opts engine.Options) *engine.Engine {
	t.Helper()
	cfg := risk.DefaultConfig()
	require.NoError(t, cfg.Validate())
	needCfg := allocate.DefaultNeedConfig()
	require.NoError(t, needCfg.Validate())
	return engine.New(provider, predictor, store, publisher,
		risk.NewEngine(cfg), allocate.NewNeedScorer(needCfg),
		slog.Default(), observability.NewMetricsForTesting(), opts)
}

// --- tests ---

func TestRunCycle_HappyPath(t *testing.T) {
	fixed := clockwork.NewFakeClockAt(time.Date(2026, 7, 1, 9, 0, 0, 0, time.UTC))
	domain.SetClock(fixed)
	t.Cleanup(func() { domain.SetClock(nil) })

	provider := &fakeProvider{inputs: testInputs()}
	store := &fakeStore{}
	publisher := &fakePublisher{}
	e := newTestEngine(t, provider, nil, store, publisher, engine.Options{Workers: 4})

	result, err := e.RunCycle(context.Background())
	require.NoError(t, err)

	require.Len(t, result.Records, 2)
	assert.Equal(t, "zone-a", result.Records[0].ZoneID)
	assert.Equal(t, "zone-b", result.Records[1].ZoneID)
	assert.NotEmpty(t, result.CycleID)
	assert.Equal(t, result.CycleID, result.Records[0].CycleID)
	assert.Equal(t, fixed.Now(), result.Records[0].ComputedAt)

	// Extreme rainfall over a low-lying zone must classify critical.
	assert.Equal(t, domain.RiskCritical, result.Records[0].RiskCategory)
	assert.Equal(t, domain.HazardFlood, result.Records[0].TopHazard)

	require.Len(t, result.Plans, 1)
	assert.Equal(t, 10, result.Plans[0].TotalAllocated)

	assert.Equal(t, 1, store.count())
	require.Len(t, publisher.results, 1)
	assert.Equal(t, result.CycleID, publisher.results[0].CycleID)
	assert.NoError(t, e.CheckReadiness(context.Background()))
}

func TestRunCycle_SpilloverUsesPriorCycleOnly(t *testing.T) {
	provider := &fakeProvider{inputs: testInputs()}
	store := &fakeStore{}
	e := newTestEngine(t, provider, nil, store, nil, engine.Options{Workers: 2})
	ctx := context.Background()

	first, err := e.RunCycle(ctx)
	require.NoError(t, err)

	// No history yet: nothing can spill over in the first cycle.
	for _, rec := range first.Records {
		assert.False(t, rec.SpilloverApplied, "zone %s", rec.ZoneID)
	}
	require.GreaterOrEqual(t, first.Records[0].FinalCombinedRisk, 80.0)

	second, err := e.RunCycle(ctx)
	require.NoError(t, err)

	// zone-b neighbors the critical zone-a record committed last cycle.
	zoneB := second.Records[1]
	require.Equal(t, "zone-b", zoneB.ZoneID)
	assert.True(t, zoneB.SpilloverApplied)
	assert.Equal(t, []string{"zone-a"}, zoneB.SpilloverSources)
}

func TestRunCycle_PredictorFailureDegrades(t *testing.T) {
	provider := &fakeProvider{inputs: testInputs()}
	store := &fakeStore{}
	predictor := &fakePredictor{err: errors.New("inference service down")}
	e := newTestEngine(t, provider, predictor, store, nil, engine.Options{Workers: 2})

	result, err := e.RunCycle(context.Background())
	require.NoError(t, err)
	for _, rec := range result.Records {
		assert.False(t, rec.MLUsed)
	}
	assert.Equal(t, 1, store.count())
}

func TestRunCycle_PredictorApplied(t *testing.T) {
	provider := &fakeProvider{inputs: testInputs()}
	store := &fakeStore{}
	predictor := &fakePredictor{preds: domain.PredictionSet{
		Flood: &domain.MLPrediction{Probability: 0.9, Confidence: 0.8},
	}}
	e := newTestEngine(t, provider, predictor, store, nil, engine.Options{Workers: 2})

	result, err := e.RunCycle(context.Background())
	require.NoError(t, err)
	assert.True(t, result.Records[0].MLUsed)
	assert.Equal(t, 0.9, result.Records[0].MLFloodProbability)
}

func TestRunCycle_StoreFailureDoesNotAdvanceSnapshot(t *testing.T) {
	provider := &fakeProvider{inputs: testInputs()}
	store := &fakeStore{err: errors.New("disk full")}
	e := newTestEngine(t, provider, nil, store, nil, engine.Options{Workers: 2})
	ctx := context.Background()

	_, err := e.RunCycle(ctx)
	require.Error(t, err)
	assert.Error(t, e.CheckReadiness(ctx))

	// A later successful cycle still sees no history.
	store.err = nil
	result, err := e.RunCycle(ctx)
	require.NoError(t, err)
	for _, rec := range result.Records {
		assert.False(t, rec.SpilloverApplied)
	}
}

func TestRunCycle_ProviderError(t *testing.T) {
	provider := &fakeProvider{err: errors.New("zones file unreadable")}
	e := newTestEngine(t, provider, nil, &fakeStore{}, nil, engine.Options{Workers: 2})

	_, err := e.RunCycle(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "loading inputs")
}

func TestRunCycle_CancelledContext(t *testing.T) {
	provider := &fakeProvider{inputs: testInputs()}
	store := &fakeStore{}
	e := newTestEngine(t, provider, nil, store, nil, engine.Options{Workers: 2})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := e.RunCycle(ctx)
	require.Error(t, err)
	assert.Equal(t, 0, store.count())
}

func TestRunCycle_PublishFailureDoesNotFailCycle(t *testing.T) {
	provider := &fakeProvider{inputs: testInputs()}
	store := &fakeStore{}
	publisher := &fakePublisher{err: errors.New("broker unavailable")}
	e := newTestEngine(t, provider, nil, store, publisher, engine.Options{Workers: 2})

	_, err := e.RunCycle(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, store.count())
}

func TestSeed_RestoresSpilloverContext(t *testing.T) {
	provider := &fakeProvider{inputs: testInputs()}
	store := &fakeStore{}
	e := newTestEngine(t, provider, nil, store, nil, engine.Options{Workers: 2})

	e.Seed(map[string]domain.FusedRiskRecord{
		"zone-a": {ZoneID: "zone-a", FinalCombinedRisk: 90, FinalFloodRisk: 90},
	})

	result, err := e.RunCycle(context.Background())
	require.NoError(t, err)
	zoneB := result.Records[1]
	require.Equal(t, "zone-b", zoneB.ZoneID)
	assert.True(t, zoneB.SpilloverApplied)
}

func TestRun_TickerDrivesCycles(t *testing.T) {
	fake := clockwork.NewFakeClock()
	provider := &fakeProvider{inputs: testInputs()}
	store := &fakeStore{}
	e := newTestEngine(t, provider, nil, store, nil, engine.Options{
		Workers:  2,
		Interval: time.Minute,
		Clock:    fake,
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- e.Run(ctx) }()

	require.Eventually(t, func() bool { return store.count() == 1 },
		2*time.Second, 10*time.Millisecond, "first cycle should run immediately")

	fake.BlockUntil(1)
	fake.Advance(time.Minute)
	require.Eventually(t, func() bool { return store.count() == 2 },
		2*time.Second, 10*time.Millisecond, "tick should trigger a second cycle")

	cancel()
	require.NoError(t, <-done)
}

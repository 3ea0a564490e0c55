package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"SignalForge/internal/domain/models"
	domsvc "SignalForge/internal/domain/service"
)

// windowSlack keeps a few extra snapshots beyond the feature window so the
// builder always has a full window right after a detector warmup.
const windowSlack = 8

// Arbiter is the single entry point for decisions. Once the feature window
// has filled, one snapshot in means exactly one trade signal out, no matter
// which stage degrades along the way. Warm-up cycles return
// ErrInsufficientHistory and emit nothing.
type Arbiter struct {
	builder  domsvc.FeatureBuilder
	detector domsvc.RegimeDetector
	pool     *PredictorPool
	ensemble domsvc.Ensemble
	gate     domsvc.RiskGate
	outcomes *OutcomeTracker
	newID    func() string
}

// ArbiterOption tweaks arbiter construction.
type ArbiterOption func(*Arbiter)

// WithIDFunc overrides signal ID generation. Backtests install a counter so
// replays of the same spec produce byte-identical artifacts.
func WithIDFunc(fn func() string) ArbiterOption {
	return func(a *Arbiter) { a.newID = fn }
}

func NewArbiter(
	builder domsvc.FeatureBuilder,
	detector domsvc.RegimeDetector,
	pool *PredictorPool,
	ensemble domsvc.Ensemble,
	gate domsvc.RiskGate,
	outcomes *OutcomeTracker,
	opts ...ArbiterOption,
) *Arbiter {
	a := &Arbiter{
		builder:  builder,
		detector: detector,
		pool:     pool,
		ensemble: ensemble,
		gate:     gate,
		outcomes: outcomes,
		newID:    uuid.NewString,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// NewState builds the initial per-instrument state the arena hands out.
func (a *Arbiter) NewState(reliabilityDecay, reliabilityPrior float64) func(symbol string) *InstrumentState {
	return func(symbol string) *InstrumentState {
		return &InstrumentState{
			Symbol:      symbol,
			Regime:      a.detector.Initial(symbol),
			Reliability: models.NewReliabilityBook(reliabilityDecay, reliabilityPrior),
		}
	}
}

// CycleResult carries the decision plus side facts the caller reports.
type CycleResult struct {
	Signal       *models.TradeSignal
	RegimeChange *models.RegimeChange
	Results      []*models.PredictorResult
	// Degraded is true when at least one predictor failed this cycle.
	Degraded bool
}

// Decide runs one full cycle for the snapshot against the given state.
// The caller must hold the instrument lock; Decide never blocks on it.
func (a *Arbiter) Decide(ctx context.Context, state *InstrumentState, snap *models.MarketSnapshot, budget *models.RiskBudget) (*CycleResult, error) {
	if snap == nil {
		return nil, fmt.Errorf("nil snapshot")
	}
	if snap.Symbol != state.Symbol {
		return nil, fmt.Errorf("snapshot for %s routed to state of %s", snap.Symbol, state.Symbol)
	}

	// Grade last cycle's calls before this snapshot enters the window.
	a.outcomes.Resolve(state, snap)

	state.push(snap, a.builder.WindowSize()+windowSlack)

	features, err := a.builder.Build(state.Window)
	if err != nil {
		// The snapshot already joined the window above, so warm-up cycles
		// still make progress. No signal is emitted for them.
		if errors.Is(err, models.ErrInsufficientHistory) {
			return nil, fmt.Errorf("cycle for %s at %s: %w", snap.Symbol, snap.Timestamp.Format(time.RFC3339), models.ErrInsufficientHistory)
		}
		return nil, fmt.Errorf("build features: %w", err)
	}

	regime, change := a.detector.Evaluate(state.Regime, features)

	results := a.pool.Collect(ctx, features, regime)

	signal, err := a.ensemble.Aggregate(results, state.Reliability, regime)
	if err != nil {
		return nil, fmt.Errorf("aggregate: %w", err)
	}
	signal.ID = a.newID()
	signal.Symbol = snap.Symbol
	if signal.Timestamp.IsZero() {
		signal.Timestamp = snap.Timestamp
	}

	signal = a.gate.Apply(signal, budget)

	a.outcomes.Defer(state, results, regime, snap.Mid())
	state.LastSignal = signal

	res := &CycleResult{
		Signal:       signal,
		RegimeChange: change,
		Results:      results,
	}
	for _, r := range results {
		if !r.Responded() {
			res.Degraded = true
			break
		}
	}
	return res, nil
}

// MissedTickSignal is the hold emitted when a cycle blows its deadline.
// The snapshot is dropped, never retried; the next tick starts fresh.
func (a *Arbiter) MissedTickSignal(symbol string, ts time.Time) *models.TradeSignal {
	return &models.TradeSignal{
		ID:        a.newID(),
		Symbol:    symbol,
		Timestamp: ts,
		Direction: models.DirectionHold,
		Provenance: &models.Provenance{
			Adjustments: []models.RiskAdjustment{
				{Rule: "missed_tick", Reason: "cycle deadline exceeded"},
			},
		},
	}
}

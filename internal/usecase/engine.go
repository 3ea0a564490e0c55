package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"SignalForge/internal/domain/models"
	domrepo "SignalForge/internal/domain/repository"
	"SignalForge/pkg/logger"
)

// EngineConfig holds live-loop timing and persistence knobs.
type EngineConfig struct {
	// CycleBudget is the wall-clock limit for one decision. Blowing it
	// turns the tick into a missed tick; the snapshot is never retried.
	CycleBudget time.Duration `yaml:"cycle_budget"`
	// CheckpointEvery is how often per-symbol state is pushed to the
	// state store. Zero disables checkpoints.
	CheckpointEvery int `yaml:"checkpoint_every"`
}

func (c *EngineConfig) applyDefaults() {
	if c.CycleBudget <= 0 {
		c.CycleBudget = 500 * time.Millisecond
	}
	if c.CheckpointEvery <= 0 {
		c.CheckpointEvery = 50
	}
}

// Engine drives live decisions: it serializes per-instrument cycles through
// the arena, enforces the cycle budget, publishes every signal and
// checkpoints state so a restart resumes learned reliability.
type Engine struct {
	cfg      EngineConfig
	arbiter  *Arbiter
	arena    *Arena
	pub      domrepo.SignalPublisher
	states   domrepo.StateStore
	metrics  domrepo.Metrics
	log      *logger.Logger
	mu       sync.Mutex
	budget   *models.RiskBudget
	cycles   map[string]int
	latestMu sync.RWMutex
	latest   map[string]*models.TradeSignal
	recent   map[string][]*models.TradeSignal
}

// recentCap bounds the per-symbol history served by Recent.
const recentCap = 100

func NewEngine(
	cfg EngineConfig,
	arbiter *Arbiter,
	arena *Arena,
	pub domrepo.SignalPublisher,
	states domrepo.StateStore,
	metrics domrepo.Metrics,
	log *logger.Logger,
) *Engine {
	cfg.applyDefaults()
	return &Engine{
		cfg:     cfg,
		arbiter: arbiter,
		arena:   arena,
		pub:     pub,
		states:  states,
		metrics: metrics,
		log:     log,
		cycles:  make(map[string]int),
		latest:  make(map[string]*models.TradeSignal),
		recent:  make(map[string][]*models.TradeSignal),
	}
}

// Restore loads the persisted risk budget, falling back to a fresh one.
func (e *Engine) Restore(ctx context.Context, initial *models.RiskBudget) {
	budget, err := e.states.LoadRiskBudget(ctx)
	if err != nil || budget == nil {
		budget = initial
	}
	e.mu.Lock()
	e.budget = budget
	e.mu.Unlock()
}

// Budget returns a copy of the current risk budget.
func (e *Engine) Budget() *models.RiskBudget {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.budget == nil {
		return nil
	}
	return e.budget.Clone()
}

// Process runs one decision cycle for the snapshot. Once the instrument's
// window has warmed up it produces and publishes exactly one signal, even on
// deadline misses. Warm-up cycles publish nothing and return
// ErrInsufficientHistory.
func (e *Engine) Process(ctx context.Context, snap *models.MarketSnapshot) error {
	start := time.Now()
	cycleCtx, cancel := context.WithTimeout(ctx, e.cfg.CycleBudget)
	defer cancel()

	var result *CycleResult
	err := e.arena.WithLock(snap.Symbol, func(state *InstrumentState) error {
		var derr error
		result, derr = e.arbiter.Decide(cycleCtx, state, snap, e.Budget())
		return derr
	})

	var signal *models.TradeSignal
	switch {
	case err == nil && cycleCtx.Err() == nil:
		signal = result.Signal
	case errors.Is(err, models.ErrInsufficientHistory):
		// The snapshot still fed the window; there is just no decision yet.
		e.metrics.RecordError("warmup")
		return fmt.Errorf("decide %s: %w", snap.Symbol, err)
	case cycleCtx.Err() != nil:
		// Deadline blown somewhere in the cycle: drop the snapshot's
		// decision and emit the missed-tick hold instead.
		e.metrics.RecordMissedTick(snap.Symbol)
		signal = e.arbiter.MissedTickSignal(snap.Symbol, snap.Timestamp)
		result = nil
	default:
		e.metrics.RecordError("cycle")
		return fmt.Errorf("decide %s: %w", snap.Symbol, err)
	}

	e.report(snap, signal, result)

	if err := e.pub.Publish(ctx, signal); err != nil {
		e.metrics.RecordError("publish")
		e.log.Error("publish signal", logger.Error(err), logger.String("symbol", snap.Symbol))
	}

	e.latestMu.Lock()
	e.latest[snap.Symbol] = signal
	ring := append(e.recent[snap.Symbol], signal)
	if len(ring) > recentCap {
		ring = ring[len(ring)-recentCap:]
	}
	e.recent[snap.Symbol] = ring
	e.latestMu.Unlock()

	e.checkpoint(ctx, snap.Symbol)
	e.metrics.RecordLatency("cycle", time.Since(start).Seconds())
	return nil
}

func (e *Engine) report(snap *models.MarketSnapshot, signal *models.TradeSignal, result *CycleResult) {
	e.metrics.RecordSignal(snap.Symbol, string(signal.Direction))
	e.metrics.RecordLastPrice(snap.Symbol, snap.Mid())

	if result == nil {
		return
	}
	for _, r := range result.Results {
		outcome := "ok"
		if !r.Responded() {
			outcome = "failed"
		}
		e.metrics.RecordPredictorOutcome(r.Model, outcome)
	}
	if signal.Provenance != nil {
		e.metrics.RecordRegime(snap.Symbol, string(signal.Provenance.Regime))
		for _, adj := range signal.Provenance.Adjustments {
			e.metrics.RecordVeto(adj.Rule)
		}
	}
	if result.RegimeChange != nil {
		e.log.Info("regime change",
			logger.String("symbol", snap.Symbol),
			logger.String("from", string(result.RegimeChange.From)),
			logger.String("to", string(result.RegimeChange.To)),
		)
	}
	if result.Degraded {
		e.log.Warn("degraded cycle", logger.String("symbol", snap.Symbol))
	}
}

// checkpoint persists reliability state every CheckpointEvery cycles.
func (e *Engine) checkpoint(ctx context.Context, symbol string) {
	e.mu.Lock()
	e.cycles[symbol]++
	due := e.cycles[symbol]%e.cfg.CheckpointEvery == 0
	budget := e.budget
	e.mu.Unlock()
	if !due {
		return
	}

	state := e.arena.Snapshot(symbol)
	if state == nil {
		return
	}
	if err := e.states.SaveReliability(ctx, symbol, state.Reliability); err != nil {
		e.log.Error("checkpoint reliability", logger.Error(err), logger.String("symbol", symbol))
	}
	if budget != nil {
		if err := e.states.SaveRiskBudget(ctx, budget); err != nil {
			e.log.Error("checkpoint budget", logger.Error(err))
		}
	}
}

// Latest returns the newest signal decided for symbol.
func (e *Engine) Latest(symbol string) (*models.TradeSignal, error) {
	e.latestMu.RLock()
	defer e.latestMu.RUnlock()
	s, ok := e.latest[symbol]
	if !ok {
		return nil, models.ErrUnknownSymbol
	}
	return s, nil
}

// Recent returns up to limit of the newest signals for symbol, newest first.
func (e *Engine) Recent(symbol string, limit int) ([]*models.TradeSignal, error) {
	e.latestMu.RLock()
	defer e.latestMu.RUnlock()
	ring, ok := e.recent[symbol]
	if !ok {
		return nil, models.ErrUnknownSymbol
	}
	if limit <= 0 || limit > len(ring) {
		limit = len(ring)
	}
	out := make([]*models.TradeSignal, limit)
	for i := 0; i < limit; i++ {
		out[i] = ring[len(ring)-1-i]
	}
	return out, nil
}

// RegimeFor returns the committed regime state for symbol.
func (e *Engine) RegimeFor(symbol string) (*models.RegimeState, error) {
	state := e.arena.Snapshot(symbol)
	if state == nil {
		return nil, models.ErrUnknownSymbol
	}
	return state.Regime, nil
}

// StateFor exposes a deep copy of per-symbol state for replay seeding.
func (e *Engine) StateFor(symbol string) *InstrumentState {
	return e.arena.Snapshot(symbol)
}

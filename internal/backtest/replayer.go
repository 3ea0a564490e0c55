package backtest

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"SignalForge/internal/domain/models"
	domrepo "SignalForge/internal/domain/repository"
	domsvc "SignalForge/internal/domain/service"
	"SignalForge/internal/usecase"
)

// ReplayerConfig mirrors the live pipeline knobs that matter offline.
type ReplayerConfig struct {
	// ReliabilityHalfLife is in graded outcomes, same as the live engine.
	ReliabilityHalfLife float64 `yaml:"reliability_half_life"`
	ReliabilityPrior    float64 `yaml:"reliability_prior"`
	OutcomeEpsilon      float64 `yaml:"outcome_epsilon"`
	MaxExposure         float64 `yaml:"max_exposure"`
}

func (c *ReplayerConfig) applyDefaults() {
	if c.ReliabilityPrior <= 0 {
		c.ReliabilityPrior = 0.5
	}
	if c.MaxExposure <= 0 {
		c.MaxExposure = 0.5
	}
}

// Replayer runs the decision pipeline over stored history. Every run builds
// fresh state, uses only deterministic predictors and stamps sequential
// signal IDs, so two runs over the same spec and data are bit-identical.
// Fills happen at the deciding bar's close; nothing peeks past the bar
// being decided.
type Replayer struct {
	cfg      ReplayerConfig
	hist     domrepo.HistorySource
	builder  domsvc.FeatureBuilder
	detector domsvc.RegimeDetector
	pool     *usecase.PredictorPool
	ensemble domsvc.Ensemble
	gate     domsvc.RiskGate
}

func NewReplayer(
	cfg ReplayerConfig,
	hist domrepo.HistorySource,
	builder domsvc.FeatureBuilder,
	detector domsvc.RegimeDetector,
	pool *usecase.PredictorPool,
	ensemble domsvc.Ensemble,
	gate domsvc.RiskGate,
) *Replayer {
	cfg.applyDefaults()
	return &Replayer{
		cfg:      cfg,
		hist:     hist,
		builder:  builder,
		detector: detector,
		pool:     pool.Deterministic(),
		ensemble: ensemble,
		gate:     gate,
	}
}

// position is the open simulated exposure.
type position struct {
	dir      models.Direction
	size     float64 // fraction of equity at entry
	entry    float64
	notional decimal.Decimal
	signalID string
}

// Run replays the spec window and returns the full result. The run record
// inside the result carries computed stats; persistence is the caller's job.
func (r *Replayer) Run(ctx context.Context, run *models.BacktestRun) (*models.BacktestResult, error) {
	spec := run.Spec
	if spec.Symbol == "" {
		return nil, fmt.Errorf("symbol required")
	}
	if !spec.From.Before(spec.To) {
		return nil, fmt.Errorf("from must be before to")
	}

	candles, err := r.hist.GetCandles(ctx, spec.Symbol, spec.From, spec.To, domrepo.TF1m)
	if err != nil {
		return nil, fmt.Errorf("load history: %w", err)
	}
	if len(candles) == 0 {
		return nil, models.ErrNoSnapshots
	}

	seq := 0
	arbiter := usecase.NewArbiter(
		r.builder, r.detector, r.pool, r.ensemble, r.gate,
		usecase.NewOutcomeTracker(r.cfg.OutcomeEpsilon),
		usecase.WithIDFunc(func() string {
			seq++
			return fmt.Sprintf("sig-%06d", seq)
		}),
	)

	instrument := arbiter.NewState(models.DecayFromHalfLife(r.cfg.ReliabilityHalfLife), r.cfg.ReliabilityPrior)(spec.Symbol)

	budget := &models.RiskBudget{
		Equity:      spec.InitialEquity,
		PeakEquity:  spec.InitialEquity,
		MaxExposure: r.cfg.MaxExposure,
		Positions:   make(map[string]*models.PositionState),
	}

	result := &models.BacktestResult{Run: run}
	equity := decimal.NewFromFloat(spec.InitialEquity)
	costRate := decimal.NewFromFloat(spec.CostPerTurnBps).Div(decimal.NewFromInt(1e4))
	var pos *position
	regimeCounts := make(map[models.RegimeLabel]int)
	wins, losses := 0, 0

	for i := range candles {
		snap := candles[i].Snapshot()

		res, derr := arbiter.Decide(ctx, instrument, snap, budget)
		if errors.Is(derr, models.ErrInsufficientHistory) {
			// Warm-up bars fill the window but emit nothing.
			continue
		}
		if derr != nil {
			return nil, fmt.Errorf("cycle at %s: %w", snap.Timestamp, derr)
		}
		signal := res.Signal
		result.Signals = append(result.Signals, signal)
		if res.RegimeChange != nil {
			result.Changes = append(result.Changes, *res.RegimeChange)
		}
		if signal.Provenance != nil {
			regimeCounts[signal.Provenance.Regime]++
		}

		price := snap.Mid()

		// Close the open position when stance changes direction or drops
		// to hold with zero size.
		if pos != nil && signal.Direction != pos.dir {
			pnl := closePnL(pos, price, costRate)
			equity = equity.Add(pnl)
			if pnl.Sign() > 0 {
				wins++
			} else if pnl.Sign() < 0 {
				losses++
			}
			result.Trades = append(result.Trades, models.SimTrade{
				Timestamp: snap.Timestamp,
				Direction: exitDirection(pos.dir),
				Price:     price,
				Size:      pos.size,
				PnL:       pnl,
				SignalID:  signal.ID,
			})
			pos = nil
			budget.ExposureUsed = 0
			delete(budget.Positions, spec.Symbol)
		}

		if pos == nil && signal.Actionable() {
			notional := equity.Mul(decimal.NewFromFloat(signal.Size))
			equity = equity.Sub(notional.Mul(costRate)) // entry cost
			pos = &position{
				dir:      signal.Direction,
				size:     signal.Size,
				entry:    price,
				notional: notional,
				signalID: signal.ID,
			}
			result.Trades = append(result.Trades, models.SimTrade{
				Timestamp: snap.Timestamp,
				Direction: signal.Direction,
				Price:     price,
				Size:      signal.Size,
				PnL:       decimal.Zero,
				SignalID:  signal.ID,
			})
			budget.ExposureUsed = signal.Size
			qty := 0.0
			if price > 0 {
				qty, _ = notional.Div(decimal.NewFromFloat(price)).Float64()
				if signal.Direction == models.DirectionSell {
					qty = -qty
				}
			}
			budget.Positions[spec.Symbol] = &models.PositionState{
				Symbol:   spec.Symbol,
				Quantity: qty,
				AvgPrice: price,
			}
		}

		marked := equity
		if pos != nil {
			marked = marked.Add(unrealizedPnL(pos, price))
		}
		result.Equity = append(result.Equity, models.EquityPoint{
			Timestamp: snap.Timestamp,
			Equity:    marked,
		})

		budget.Equity, _ = marked.Float64()
		if budget.Equity > budget.PeakEquity {
			budget.PeakEquity = budget.Equity
		}
		budget.UpdatedAt = snap.Timestamp
	}

	// Close any position left open at the end of the window.
	if pos != nil {
		last := candles[len(candles)-1]
		price := last.Close
		pnl := closePnL(pos, price, costRate)
		equity = equity.Add(pnl)
		if pnl.Sign() > 0 {
			wins++
		} else if pnl.Sign() < 0 {
			losses++
		}
		result.Trades = append(result.Trades, models.SimTrade{
			Timestamp: last.Bucket,
			Direction: exitDirection(pos.dir),
			Price:     price,
			Size:      pos.size,
			PnL:       pnl,
			SignalID:  pos.signalID,
		})
		result.Equity[len(result.Equity)-1].Equity = equity
	}

	run.Stats = ComputeStats(result, spec, wins, losses, regimeCounts, len(candles))
	return result, nil
}

// closePnL realizes a position at price, including the exit cost.
func closePnL(pos *position, price float64, costRate decimal.Decimal) decimal.Decimal {
	pnl := unrealizedPnL(pos, price)
	return pnl.Sub(pos.notional.Mul(costRate))
}

func unrealizedPnL(pos *position, price float64) decimal.Decimal {
	if pos.entry <= 0 {
		return decimal.Zero
	}
	ret := decimal.NewFromFloat(price).Div(decimal.NewFromFloat(pos.entry)).Sub(decimal.NewFromInt(1))
	pnl := pos.notional.Mul(ret)
	if pos.dir == models.DirectionSell {
		pnl = pnl.Neg()
	}
	return pnl
}

func exitDirection(entry models.Direction) models.Direction {
	if entry == models.DirectionBuy {
		return models.DirectionSell
	}
	return models.DirectionBuy
}

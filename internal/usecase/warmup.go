package usecase

import (
	"context"
	"fmt"

	domrepo "SignalForge/internal/domain/repository"
	domsvc "SignalForge/internal/domain/service"
	"SignalForge/pkg/logger"
)

// Warmup pre-fills per-instrument windows from stored history so the first
// live tick after a restart can decide instead of reporting insufficient
// history. Only the window and the regime state machine advance; no
// predictions run and no signals are emitted.
type Warmup struct {
	hist     domrepo.HistorySource
	arena    *Arena
	builder  domsvc.FeatureBuilder
	detector domsvc.RegimeDetector
	tf       domrepo.Timeframe
	log      *logger.Logger
}

func NewWarmup(hist domrepo.HistorySource, arena *Arena, builder domsvc.FeatureBuilder, detector domsvc.RegimeDetector, timeframe string, log *logger.Logger) *Warmup {
	return &Warmup{
		hist:     hist,
		arena:    arena,
		builder:  builder,
		detector: detector,
		tf:       domrepo.NormalizeTimeframe(timeframe),
		log:      log,
	}
}

// Run seeds state for every symbol. Missing history is logged, not fatal.
func (w *Warmup) Run(ctx context.Context, symbols []string) error {
	need := w.builder.WindowSize() + windowSlack
	for _, symbol := range symbols {
		if symbol == "" {
			return fmt.Errorf("symbol required")
		}
		candles, err := w.hist.GetLatestNCandles(ctx, symbol, need, w.tf)
		if err != nil {
			w.log.Warn("warmup history unavailable",
				logger.String("symbol", symbol), logger.Error(err))
			continue
		}

		err = w.arena.WithLock(symbol, func(state *InstrumentState) error {
			for i := range candles {
				snap := candles[i].Snapshot()
				state.push(snap, need)
				features, berr := w.builder.Build(state.Window)
				if berr != nil {
					continue // window still filling
				}
				w.detector.Evaluate(state.Regime, features)
			}
			return nil
		})
		if err != nil {
			return fmt.Errorf("warmup %s: %w", symbol, err)
		}

		w.log.Info("warmup complete",
			logger.String("symbol", symbol),
			logger.Int("candles", len(candles)),
		)
	}
	return nil
}

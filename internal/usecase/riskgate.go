package usecase

import (
	"sync"

	"SignalForge/internal/domain/models"
)

// RiskGateConfig holds the control thresholds. All sizes are fractions of
// equity.
type RiskGateConfig struct {
	// MaxPerInstrument caps combined open plus requested exposure on any
	// one instrument. Entries that would breach it are vetoed.
	MaxPerInstrument float64 `yaml:"max_per_instrument"`
	// MaxDrawdown trips the circuit breaker; at or beyond it every entry
	// is vetoed until equity recovers.
	MaxDrawdown float64 `yaml:"max_drawdown"`
	// Blocked lists instruments that must never trade.
	Blocked []string `yaml:"blocked"`
}

func (c *RiskGateConfig) applyDefaults() {
	if c.MaxPerInstrument <= 0 {
		c.MaxPerInstrument = 0.10
	}
	if c.MaxDrawdown <= 0 {
		c.MaxDrawdown = 0.15
	}
}

// Gate applies the risk rules in a fixed order: instrument veto, then
// portfolio scale-down, then the drawdown breaker. Size only ever shrinks
// on the way through; a veto converts the signal to hold but keeps the
// ensemble's confidence so the record shows what conviction was suppressed.
type Gate struct {
	mu      sync.RWMutex
	cfg     RiskGateConfig
	blocked map[string]struct{}
}

func NewGate(cfg RiskGateConfig) *Gate {
	g := &Gate{}
	g.Reconfigure(cfg)
	return g
}

// Reconfigure swaps the thresholds at runtime. In-flight Apply calls finish
// against the limits they started with.
func (g *Gate) Reconfigure(cfg RiskGateConfig) {
	cfg.applyDefaults()
	blocked := make(map[string]struct{}, len(cfg.Blocked))
	for _, s := range cfg.Blocked {
		blocked[s] = struct{}{}
	}
	g.mu.Lock()
	g.cfg = cfg
	g.blocked = blocked
	g.mu.Unlock()
}

func (g *Gate) Apply(signal *models.TradeSignal, budget *models.RiskBudget) *models.TradeSignal {
	g.mu.RLock()
	defer g.mu.RUnlock()

	out := *signal
	if signal.Provenance != nil {
		prov := *signal.Provenance
		out.Provenance = &prov
	} else {
		out.Provenance = &models.Provenance{}
	}

	if !signal.Actionable() {
		return &out
	}

	// Rule 1: per-instrument controls. The limit counts what is already
	// open on the instrument, not just this signal's request.
	if _, ok := g.blocked[signal.Symbol]; ok {
		return g.veto(&out, "instrument_blocked", "symbol on block list")
	}
	open := 0.0
	if budget != nil {
		open = budget.InstrumentExposure(signal.Symbol)
	}
	if open+out.Size > g.cfg.MaxPerInstrument {
		return g.veto(&out, "instrument_limit", "per-instrument exposure limit exceeded")
	}

	// Rule 2: portfolio headroom. A request beyond the remaining budget is
	// cut to fit, never rejected outright.
	if budget != nil {
		headroom := budget.Headroom()
		if headroom <= 0 {
			return g.veto(&out, "portfolio_exhausted", "no exposure headroom")
		}
		if out.Size > headroom {
			g.scale(&out, "portfolio_headroom", headroom/out.Size)
		}

		// Rule 3: drawdown circuit breaker.
		if dd := budget.Drawdown(); dd >= g.cfg.MaxDrawdown {
			return g.veto(&out, "drawdown_breaker", "drawdown at or beyond limit")
		}
	}

	return &out
}

func (g *Gate) veto(s *models.TradeSignal, rule, reason string) *models.TradeSignal {
	s.Provenance.Adjustments = append(s.Provenance.Adjustments, models.RiskAdjustment{
		Rule:   rule,
		Reason: reason,
	})
	s.Direction = models.DirectionHold
	s.Size = 0
	return s
}

func (g *Gate) scale(s *models.TradeSignal, rule string, factor float64) {
	if factor >= 1 {
		return
	}
	s.Provenance.Adjustments = append(s.Provenance.Adjustments, models.RiskAdjustment{
		Rule:   rule,
		Reason: "size reduced to fit limit",
		Factor: factor,
	})
	s.Size *= factor
}

package models

import (
	"math"
	"time"
)

// PositionState is the open exposure the risk gate sees for one instrument.
type PositionState struct {
	Symbol   string
	Quantity float64 // signed; positive is long
	AvgPrice float64
}

// RiskBudget is the portfolio-level accounting the risk gate reads and the
// outcome tracker writes. Fractions are of total equity.
type RiskBudget struct {
	Equity       float64
	PeakEquity   float64
	ExposureUsed float64 // fraction of equity currently committed
	MaxExposure  float64 // portfolio cap, fraction of equity
	Positions    map[string]*PositionState
	UpdatedAt    time.Time
}

// Headroom returns the exposure fraction still available, never negative.
func (r *RiskBudget) Headroom() float64 {
	h := r.MaxExposure - r.ExposureUsed
	if h < 0 {
		return 0
	}
	return h
}

// Drawdown returns the current peak-to-now equity drawdown fraction.
func (r *RiskBudget) Drawdown() float64 {
	if r.PeakEquity <= 0 {
		return 0
	}
	dd := (r.PeakEquity - r.Equity) / r.PeakEquity
	if dd < 0 {
		return 0
	}
	return dd
}

// InstrumentExposure returns the open notional for symbol as a fraction of
// equity, long or short. Zero when there is no position or no equity.
func (r *RiskBudget) InstrumentExposure(symbol string) float64 {
	p := r.Position(symbol)
	if p == nil || r.Equity <= 0 {
		return 0
	}
	return math.Abs(p.Quantity*p.AvgPrice) / r.Equity
}

// Position returns the open position for symbol, or nil.
func (r *RiskBudget) Position(symbol string) *PositionState {
	if r.Positions == nil {
		return nil
	}
	return r.Positions[symbol]
}

// Clone returns a deep copy for backtest isolation.
func (r *RiskBudget) Clone() *RiskBudget {
	cp := *r
	cp.Positions = make(map[string]*PositionState, len(r.Positions))
	for sym, p := range r.Positions {
		pc := *p
		cp.Positions[sym] = &pc
	}
	return &cp
}

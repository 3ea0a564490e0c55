package usecase

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"SignalForge/internal/domain/models"
)

func proposed(symbol string, dir models.Direction, size float64) *models.TradeSignal {
	return &models.TradeSignal{
		ID:         "sig-000001",
		Symbol:     symbol,
		Direction:  dir,
		Confidence: 0.7,
		Size:       size,
		Provenance: &models.Provenance{Regime: models.RegimeTrending},
	}
}

func budget(used, max, equity, peak float64) *models.RiskBudget {
	return &models.RiskBudget{
		Equity:       equity,
		PeakEquity:   peak,
		ExposureUsed: used,
		MaxExposure:  max,
		Positions:    make(map[string]*models.PositionState),
	}
}

func adjustmentRules(s *models.TradeSignal) []string {
	out := make([]string, 0, len(s.Provenance.Adjustments))
	for _, a := range s.Provenance.Adjustments {
		out = append(out, a.Rule)
	}
	return out
}

func TestGateBlockedInstrumentVetoes(t *testing.T) {
	g := NewGate(RiskGateConfig{Blocked: []string{"X:BANNED"}})

	out := g.Apply(proposed("X:BANNED", models.DirectionBuy, 0.05), budget(0, 0.5, 100, 100))
	assert.Equal(t, models.DirectionHold, out.Direction)
	assert.Zero(t, out.Size)
	// Confidence survives so the record shows suppressed conviction.
	assert.Equal(t, 0.7, out.Confidence)
	assert.Contains(t, adjustmentRules(out), "instrument_blocked")
}

func TestGatePerInstrumentLimitVetoes(t *testing.T) {
	g := NewGate(RiskGateConfig{MaxPerInstrument: 0.10})

	out := g.Apply(proposed("X:TEST", models.DirectionBuy, 0.50), budget(0, 0.5, 100, 100))
	assert.Equal(t, models.DirectionHold, out.Direction)
	assert.Zero(t, out.Size)
	require.Len(t, out.Provenance.Adjustments, 1)
	assert.Equal(t, "instrument_limit", out.Provenance.Adjustments[0].Rule)
	// Conviction survives the veto.
	assert.Equal(t, 0.7, out.Confidence)
}

func TestGatePerInstrumentLimitCountsOpenPosition(t *testing.T) {
	g := NewGate(RiskGateConfig{MaxPerInstrument: 0.10})

	// 8% of equity already open on the instrument leaves only 2% of room,
	// so a 5% ask must be rejected even though it fits on its own.
	b := budget(0.08, 0.5, 100, 100)
	b.Positions["X:TEST"] = &models.PositionState{Symbol: "X:TEST", Quantity: 0.08, AvgPrice: 100}
	out := g.Apply(proposed("X:TEST", models.DirectionBuy, 0.05), b)
	assert.Equal(t, models.DirectionHold, out.Direction)
	assert.Contains(t, adjustmentRules(out), "instrument_limit")

	// A short position counts the same as a long one.
	b = budget(0.08, 0.5, 100, 100)
	b.Positions["X:TEST"] = &models.PositionState{Symbol: "X:TEST", Quantity: -0.08, AvgPrice: 100}
	out = g.Apply(proposed("X:TEST", models.DirectionBuy, 0.05), b)
	assert.Equal(t, models.DirectionHold, out.Direction)

	// Exposure on another instrument does not count against this one.
	b = budget(0.08, 0.5, 100, 100)
	b.Positions["X:OTHER"] = &models.PositionState{Symbol: "X:OTHER", Quantity: 0.08, AvgPrice: 100}
	out = g.Apply(proposed("X:TEST", models.DirectionBuy, 0.05), b)
	assert.Equal(t, models.DirectionBuy, out.Direction)
	assert.InDelta(t, 0.05, out.Size, 1e-9)
}

func TestGateHeadroomScalesToFit(t *testing.T) {
	g := NewGate(RiskGateConfig{MaxPerInstrument: 0.10})

	// 95% of a 100% budget already committed, a 10% ask fits the last 5%.
	out := g.Apply(proposed("X:TEST", models.DirectionBuy, 0.10), budget(0.95, 1.0, 100, 100))
	assert.Equal(t, models.DirectionBuy, out.Direction)
	assert.InDelta(t, 0.05, out.Size, 1e-9)
	assert.Contains(t, adjustmentRules(out), "portfolio_headroom")
}

func TestGateExhaustedBudgetVetoes(t *testing.T) {
	g := NewGate(RiskGateConfig{})

	out := g.Apply(proposed("X:TEST", models.DirectionSell, 0.05), budget(0.5, 0.5, 100, 100))
	assert.Equal(t, models.DirectionHold, out.Direction)
	assert.Zero(t, out.Size)
	assert.Contains(t, adjustmentRules(out), "portfolio_exhausted")
}

func TestGateDrawdownBreaker(t *testing.T) {
	g := NewGate(RiskGateConfig{MaxDrawdown: 0.15})

	out := g.Apply(proposed("X:TEST", models.DirectionBuy, 0.05), budget(0, 0.5, 84, 100))
	assert.Equal(t, models.DirectionHold, out.Direction)
	assert.Zero(t, out.Size)
	assert.Contains(t, adjustmentRules(out), "drawdown_breaker")
}

func TestGateSizeNeverGrows(t *testing.T) {
	g := NewGate(RiskGateConfig{MaxPerInstrument: 0.10})

	out := g.Apply(proposed("X:TEST", models.DirectionBuy, 0.02), budget(0, 0.5, 100, 100))
	assert.Equal(t, 0.02, out.Size)
	assert.Empty(t, out.Provenance.Adjustments)
}

func TestGateHoldPassesThrough(t *testing.T) {
	g := NewGate(RiskGateConfig{Blocked: []string{"X:TEST"}})

	// A hold is not actionable; no rule should fire, even on a blocked symbol.
	out := g.Apply(proposed("X:TEST", models.DirectionHold, 0), budget(0.5, 0.5, 50, 100))
	assert.Equal(t, models.DirectionHold, out.Direction)
	assert.Empty(t, out.Provenance.Adjustments)
}

func TestGateReconfigureSwapsLimits(t *testing.T) {
	g := NewGate(RiskGateConfig{MaxPerInstrument: 0.10})

	out := g.Apply(proposed("X:TEST", models.DirectionBuy, 0.20), budget(0, 0.5, 100, 100))
	assert.Equal(t, models.DirectionHold, out.Direction)
	assert.Contains(t, adjustmentRules(out), "instrument_limit")

	g.Reconfigure(RiskGateConfig{MaxPerInstrument: 0.25, Blocked: []string{"X:NEW"}})

	out = g.Apply(proposed("X:TEST", models.DirectionBuy, 0.20), budget(0, 0.5, 100, 100))
	assert.Equal(t, models.DirectionBuy, out.Direction)
	assert.InDelta(t, 0.20, out.Size, 1e-9)

	out = g.Apply(proposed("X:NEW", models.DirectionBuy, 0.05), budget(0, 0.5, 100, 100))
	assert.Equal(t, models.DirectionHold, out.Direction)
	assert.Contains(t, adjustmentRules(out), "instrument_blocked")
}

func TestGateDoesNotMutateInput(t *testing.T) {
	g := NewGate(RiskGateConfig{MaxPerInstrument: 0.10})
	in := proposed("X:TEST", models.DirectionBuy, 0.50)

	_ = g.Apply(in, budget(0, 0.5, 100, 100))
	assert.Equal(t, 0.50, in.Size)
	assert.Empty(t, in.Provenance.Adjustments)
}

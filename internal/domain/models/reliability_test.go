package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDecayFromHalfLife(t *testing.T) {
	// A perfectly reliable model that turns wrong should sit at half its
	// old score after exactly halfLife bad outcomes.
	book := NewReliabilityBook(DecayFromHalfLife(4), 0)
	book.Scores["m"] = map[RegimeLabel]float64{RegimeTrending: 1.0}

	for i := 0; i < 4; i++ {
		book.Update("m", RegimeTrending, 0)
	}
	assert.InDelta(t, 0.5, book.Score("m", RegimeTrending), 1e-9)
}

func TestDecayFromHalfLifeFallback(t *testing.T) {
	assert.Equal(t, 0.9, DecayFromHalfLife(0))
	assert.Equal(t, 0.9, DecayFromHalfLife(-3))
}

func TestInstrumentExposure(t *testing.T) {
	b := &RiskBudget{
		Equity: 10000,
		Positions: map[string]*PositionState{
			"X:LONG":  {Symbol: "X:LONG", Quantity: 5, AvgPrice: 100},
			"X:SHORT": {Symbol: "X:SHORT", Quantity: -5, AvgPrice: 100},
		},
	}

	assert.InDelta(t, 0.05, b.InstrumentExposure("X:LONG"), 1e-9)
	assert.InDelta(t, 0.05, b.InstrumentExposure("X:SHORT"), 1e-9)
	assert.Zero(t, b.InstrumentExposure("X:NONE"))

	b.Equity = 0
	assert.Zero(t, b.InstrumentExposure("X:LONG"))
}

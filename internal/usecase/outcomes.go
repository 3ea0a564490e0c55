package usecase

import (
	"math"

	"SignalForge/internal/domain/models"
)

// OutcomeTracker grades last cycle's predictions against the move that
// actually happened and folds the result into the reliability book.
type OutcomeTracker struct {
	// Epsilon is the flat-move band: absolute returns inside it count as
	// "hold was right".
	Epsilon float64
}

func NewOutcomeTracker(epsilon float64) *OutcomeTracker {
	if epsilon <= 0 {
		epsilon = 1e-4
	}
	return &OutcomeTracker{Epsilon: epsilon}
}

// realized maps a price change onto the direction that would have paid.
func (t *OutcomeTracker) realized(prevPrice, newPrice float64) models.Direction {
	if prevPrice <= 0 || newPrice <= 0 {
		return models.DirectionHold
	}
	r := math.Log(newPrice / prevPrice)
	switch {
	case r > t.Epsilon:
		return models.DirectionBuy
	case r < -t.Epsilon:
		return models.DirectionSell
	default:
		return models.DirectionHold
	}
}

// Resolve grades the pending predictions in state against the new snapshot
// and updates the reliability book under the regime the predictions were
// made in. Grading is binary: the call either matched the realized
// direction or it did not.
func (t *OutcomeTracker) Resolve(state *InstrumentState, snap *models.MarketSnapshot) {
	p := state.pending
	state.pending = nil
	if p == nil || len(p.predictions) == 0 {
		return
	}

	realized := t.realized(p.price, snap.Mid())
	for _, pred := range p.predictions {
		state.Reliability.Update(pred.Model, p.regime, t.correctness(pred.Direction, realized))
	}
}

func (t *OutcomeTracker) correctness(predicted, realized models.Direction) float64 {
	if predicted == realized {
		return 1
	}
	return 0
}

// Defer stores this cycle's predictions for grading on the next snapshot.
func (t *OutcomeTracker) Defer(state *InstrumentState, results []*models.PredictorResult, regime models.RegimeLabel, price float64) {
	preds := make([]*models.Prediction, 0, len(results))
	for _, r := range results {
		if r.Responded() {
			preds = append(preds, r.Prediction)
		}
	}
	if len(preds) == 0 {
		return
	}
	state.pending = &pendingOutcome{predictions: preds, regime: regime, price: price}
}

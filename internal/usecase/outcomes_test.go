package usecase

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"SignalForge/internal/domain/models"
)

func outcomeState() *InstrumentState {
	return &InstrumentState{
		Symbol:      "X:TEST",
		Reliability: models.NewReliabilityBook(0.9, 0.5),
	}
}

func snapAt(mid float64) *models.MarketSnapshot {
	return &models.MarketSnapshot{
		Symbol:    "X:TEST",
		Timestamp: time.Date(2025, 6, 2, 10, 1, 0, 0, time.UTC),
		Bid:       mid,
		Ask:       mid,
		Last:      mid,
	}
}

func TestResolveGradesAgainstRealizedMove(t *testing.T) {
	tr := NewOutcomeTracker(1e-4)
	state := outcomeState()
	regime := models.RegimeTrending

	tr.Defer(state, []*models.PredictorResult{
		vote("right", models.DirectionBuy, 0.8),
		vote("wrong", models.DirectionSell, 0.8),
		vote("hedged", models.DirectionHold, 0.8),
	}, regime, 100)

	tr.Resolve(state, snapAt(101)) // up move, buy was right

	// next = 0.9*prior + 0.1*credit with prior 0.5; hold on an up move is
	// graded as wrong, same as an outright sell.
	assert.InDelta(t, 0.55, state.Reliability.Score("right", regime), 1e-9)
	assert.InDelta(t, 0.45, state.Reliability.Score("wrong", regime), 1e-9)
	assert.InDelta(t, 0.45, state.Reliability.Score("hedged", regime), 1e-9)
}

func TestResolveFlatMoveCreditsHold(t *testing.T) {
	tr := NewOutcomeTracker(1e-3)
	state := outcomeState()
	regime := models.RegimeRanging

	tr.Defer(state, []*models.PredictorResult{
		vote("bull", models.DirectionBuy, 0.8),
		vote("flat", models.DirectionHold, 0.8),
	}, regime, 100)

	tr.Resolve(state, snapAt(100.05)) // inside the epsilon band

	assert.InDelta(t, 0.55, state.Reliability.Score("flat", regime), 1e-9)
	assert.InDelta(t, 0.45, state.Reliability.Score("bull", regime), 1e-9)
}

func TestResolveConsumesPending(t *testing.T) {
	tr := NewOutcomeTracker(1e-4)
	state := outcomeState()

	tr.Defer(state, []*models.PredictorResult{vote("a", models.DirectionBuy, 0.8)}, models.RegimeRanging, 100)
	tr.Resolve(state, snapAt(101))
	first := state.Reliability.Score("a", models.RegimeRanging)

	// A second resolve with nothing pending must not move the book.
	tr.Resolve(state, snapAt(200))
	assert.Equal(t, first, state.Reliability.Score("a", models.RegimeRanging))
}

func TestDeferSkipsFailedModels(t *testing.T) {
	tr := NewOutcomeTracker(1e-4)
	state := outcomeState()

	tr.Defer(state, []*models.PredictorResult{failed("down")}, models.RegimeRanging, 100)
	require.Nil(t, state.pending)
}

func TestReliabilityUpdateGradesUnderRegime(t *testing.T) {
	tr := NewOutcomeTracker(1e-4)
	state := outcomeState()

	// Graded under the regime active when the prediction was made; other
	// regimes keep the prior.
	tr.Defer(state, []*models.PredictorResult{vote("a", models.DirectionBuy, 0.8)}, models.RegimeHighVol, 100)
	tr.Resolve(state, snapAt(101))

	assert.InDelta(t, 0.55, state.Reliability.Score("a", models.RegimeHighVol), 1e-9)
	assert.Equal(t, 0.5, state.Reliability.Score("a", models.RegimeTrending))
}

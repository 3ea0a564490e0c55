package usecase

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"SignalForge/internal/domain/models"
)

var voteClock = time.Date(2025, 6, 2, 10, 0, 0, 0, time.UTC)

func vote(model string, dir models.Direction, conf float64) *models.PredictorResult {
	return &models.PredictorResult{
		Model: model,
		Prediction: &models.Prediction{
			Model:      model,
			Symbol:     "X:TEST",
			Timestamp:  voteClock,
			Direction:  dir,
			Confidence: conf,
		},
	}
}

func failed(model string) *models.PredictorResult {
	return &models.PredictorResult{Model: model, Err: errors.New("model down")}
}

func bookWith(scores map[string]float64, regime models.RegimeLabel) *models.ReliabilityBook {
	book := models.NewReliabilityBook(0.9, 0.5)
	for model, s := range scores {
		book.Scores[model] = map[models.RegimeLabel]float64{regime: s}
	}
	return book
}

func TestAggregateWeightedMajority(t *testing.T) {
	e := NewWeightedEnsemble(EnsembleConfig{})
	regime := models.RegimeTrending
	book := bookWith(map[string]float64{"a": 1.0, "b": 0.5, "c": 1.0}, regime)

	// buy mass 0.8 + 0.5*0.6 = 1.1 beats sell mass 0.9
	results := []*models.PredictorResult{
		vote("a", models.DirectionBuy, 0.8),
		vote("b", models.DirectionBuy, 0.6),
		vote("c", models.DirectionSell, 0.9),
	}
	sig, err := e.Aggregate(results, book, regime)
	require.NoError(t, err)

	assert.Equal(t, models.DirectionBuy, sig.Direction)
	assert.Equal(t, "X:TEST", sig.Symbol)
	require.NotNil(t, sig.Provenance)
	assert.Equal(t, 3, sig.Provenance.Responders)
	assert.Equal(t, 3, sig.Provenance.TotalModels)
	assert.Empty(t, sig.Provenance.Failed)

	// (1.0*0.8 + 0.5*0.6 + 1.0*0.9) / 2.5, no degradation
	assert.InDelta(t, 0.8, sig.Confidence, 1e-9)
	assert.InDelta(t, sig.Confidence*0.1, sig.Size, 1e-9)
}

func outOfRegimeVote(model string, dir models.Direction, conf float64) *models.PredictorResult {
	r := vote(model, dir, conf)
	r.OutOfRegime = true
	return r
}

func TestAggregateDownWeightsOutOfRegimeVotes(t *testing.T) {
	e := NewWeightedEnsemble(EnsembleConfig{OutOfRegimeFactor: 0.25})
	regime := models.RegimeHighVol
	book := bookWith(map[string]float64{"a": 1.0, "b": 1.0}, regime)

	// b's sell would win at equal weight; outside its validated regimes it
	// counts at a quarter, so a's buy carries.
	sig, err := e.Aggregate([]*models.PredictorResult{
		vote("a", models.DirectionBuy, 0.6),
		outOfRegimeVote("b", models.DirectionSell, 0.9),
	}, book, regime)
	require.NoError(t, err)
	assert.Equal(t, models.DirectionBuy, sig.Direction)

	// The vote stayed in: tagged and quieter, never dropped.
	assert.Equal(t, 2, sig.Provenance.Responders)
	require.Len(t, sig.Provenance.Votes, 2)
	var tagged *models.ModelVote
	for i := range sig.Provenance.Votes {
		if sig.Provenance.Votes[i].Model == "b" {
			tagged = &sig.Provenance.Votes[i]
		}
	}
	require.NotNil(t, tagged)
	assert.True(t, tagged.OutOfRegime)
	assert.Less(t, tagged.Weight, 0.5) // below its equal-weight share
}

func TestAggregateTieHolds(t *testing.T) {
	e := NewWeightedEnsemble(EnsembleConfig{})
	regime := models.RegimeRanging
	book := bookWith(map[string]float64{"a": 1.0, "b": 1.0}, regime)

	sig, err := e.Aggregate([]*models.PredictorResult{
		vote("a", models.DirectionBuy, 0.5),
		vote("b", models.DirectionSell, 0.5),
	}, book, regime)
	require.NoError(t, err)
	assert.Equal(t, models.DirectionHold, sig.Direction)
	assert.Zero(t, sig.Size)
}

func TestAggregateDegradesConfidence(t *testing.T) {
	e := NewWeightedEnsemble(EnsembleConfig{})
	regime := models.RegimeRanging
	book := bookWith(map[string]float64{"a": 1.0, "b": 1.0}, regime)

	full, err := e.Aggregate([]*models.PredictorResult{
		vote("a", models.DirectionBuy, 0.9),
		vote("b", models.DirectionBuy, 0.9),
	}, book, regime)
	require.NoError(t, err)

	degraded, err := e.Aggregate([]*models.PredictorResult{
		vote("a", models.DirectionBuy, 0.9),
		vote("b", models.DirectionBuy, 0.9),
		failed("c"),
	}, book, regime)
	require.NoError(t, err)

	assert.Equal(t, models.DirectionBuy, degraded.Direction)
	assert.Less(t, degraded.Confidence, full.Confidence)
	assert.Contains(t, degraded.Provenance.Failed, "c")
	assert.Equal(t, 2, degraded.Provenance.Responders)
	assert.Equal(t, 3, degraded.Provenance.TotalModels)
}

func TestAggregateMinRespondersHolds(t *testing.T) {
	e := NewWeightedEnsemble(EnsembleConfig{MinResponders: 2})
	regime := models.RegimeRanging
	book := bookWith(map[string]float64{"a": 1.0}, regime)

	sig, err := e.Aggregate([]*models.PredictorResult{
		vote("a", models.DirectionBuy, 0.9),
		failed("b"),
		failed("c"),
	}, book, regime)
	require.NoError(t, err)
	assert.Equal(t, models.DirectionHold, sig.Direction)
	assert.False(t, sig.Actionable())
}

func TestAggregateAllFailedHolds(t *testing.T) {
	e := NewWeightedEnsemble(EnsembleConfig{})
	book := models.NewReliabilityBook(0.9, 0.5)

	sig, err := e.Aggregate([]*models.PredictorResult{failed("a"), failed("b")}, book, models.RegimeRanging)
	require.NoError(t, err)
	assert.Equal(t, models.DirectionHold, sig.Direction)
	assert.Len(t, sig.Provenance.Failed, 2)
}

func TestAggregateBaseWeights(t *testing.T) {
	// "b" carries double base weight, so its sell vote outweighs two buys.
	e := NewWeightedEnsemble(EnsembleConfig{BaseWeights: map[string]float64{"b": 4}})
	regime := models.RegimeRanging
	book := bookWith(map[string]float64{"a": 1.0, "b": 1.0, "c": 1.0}, regime)

	sig, err := e.Aggregate([]*models.PredictorResult{
		vote("a", models.DirectionBuy, 0.6),
		vote("b", models.DirectionSell, 0.6),
		vote("c", models.DirectionBuy, 0.6),
	}, book, regime)
	require.NoError(t, err)
	assert.Equal(t, models.DirectionSell, sig.Direction)
}

func TestAggregateReliabilityConditionsWeight(t *testing.T) {
	e := NewWeightedEnsemble(EnsembleConfig{})
	regime := models.RegimeHighVol
	// Same votes, but "a" has been wrong in this regime.
	book := bookWith(map[string]float64{"a": 0.1, "b": 0.9}, regime)

	sig, err := e.Aggregate([]*models.PredictorResult{
		vote("a", models.DirectionBuy, 0.8),
		vote("b", models.DirectionSell, 0.8),
	}, book, regime)
	require.NoError(t, err)
	assert.Equal(t, models.DirectionSell, sig.Direction)
}

func TestAggregateEmptyResultsErrors(t *testing.T) {
	e := NewWeightedEnsemble(EnsembleConfig{})
	_, err := e.Aggregate(nil, models.NewReliabilityBook(0.9, 0.5), models.RegimeRanging)
	assert.Error(t, err)
}

package predictors

import (
	"fmt"
	"time"

	"SignalForge/internal/domain/models"
)

// Default per-model budget when a config leaves it unset.
const defaultTimeout = 150 * time.Millisecond

// checkSchema guards every bundled model: a vector built under a different
// schema must never reach the scoring code.
func checkSchema(want string, f *models.FeatureVector) error {
	if f == nil || f.SchemaID != want {
		got := ""
		if f != nil {
			got = f.SchemaID
		}
		return fmt.Errorf("%w: want %s, got %s", models.ErrSchemaMismatch, want, got)
	}
	return nil
}

// scoreToPrediction maps a signed score in [-1,1] onto a prediction. Scores
// inside the deadband resolve to hold.
func scoreToPrediction(model string, f *models.FeatureVector, score, deadband float64) *models.Prediction {
	dir := models.DirectionHold
	conf := score
	if conf < 0 {
		conf = -conf
	}
	if conf > 1 {
		conf = 1
	}
	switch {
	case score > deadband:
		dir = models.DirectionBuy
	case score < -deadband:
		dir = models.DirectionSell
	default:
		dir = models.DirectionHold
	}
	return &models.Prediction{
		Model:      model,
		Symbol:     f.Symbol,
		Timestamp:  f.Timestamp,
		Direction:  dir,
		Confidence: conf,
	}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

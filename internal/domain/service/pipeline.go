package service

import (
	"context"
	"time"

	"SignalForge/internal/domain/models"
)

// FeatureBuilder derives a feature vector from a rolling snapshot window.
// Implementations must be pure: same window, same vector.
type FeatureBuilder interface {
	SchemaID() string
	WindowSize() int
	Build(window []*models.MarketSnapshot) (*models.FeatureVector, error)
}

// Predictor is one model in the ensemble.
type Predictor interface {
	// Name identifies the model in provenance and reliability tracking.
	Name() string
	// SchemaID is the feature schema the model was trained against.
	SchemaID() string
	// Deterministic reports whether equal inputs always yield equal outputs.
	// Backtests exclude non-deterministic predictors.
	Deterministic() bool
	// Regimes lists the regimes the model was validated for. Empty means
	// every regime; outside the list a vote is down-weighted, not dropped.
	Regimes() []models.RegimeLabel
	// Timeout is the per-call budget; the caller enforces it.
	Timeout() time.Duration
	Predict(ctx context.Context, features *models.FeatureVector, regime models.RegimeLabel) (*models.Prediction, error)
}

// RegimeDetector classifies the prevailing market condition with hysteresis.
type RegimeDetector interface {
	// Evaluate folds one feature vector into the state machine and returns
	// the committed label plus the transition, if one happened this step.
	Evaluate(state *models.RegimeState, features *models.FeatureVector) (models.RegimeLabel, *models.RegimeChange)
	// Initial returns the state a fresh instrument starts in.
	Initial(symbol string) *models.RegimeState
}

// Ensemble aggregates predictor results into one directional stance.
type Ensemble interface {
	Aggregate(results []*models.PredictorResult, book *models.ReliabilityBook, regime models.RegimeLabel) (*models.TradeSignal, error)
}

// RiskGate applies the ordered control rules to a proposed signal.
type RiskGate interface {
	Apply(signal *models.TradeSignal, budget *models.RiskBudget) *models.TradeSignal
}

package predictors

import (
	"context"
	"time"

	"SignalForge/internal/domain/models"
)

// stump is one depth-1 decision tree: vote one way above the threshold,
// the other way below it.
type stump struct {
	feature string
	thresh  float64
	above   float64 // vote in [-1,1] when value > thresh
	below   float64
	weight  float64
}

// scalperStumps is the embedded split table. Splits were distilled offline
// from 1m gold-scalping bars; the runtime only evaluates them.
var scalperStumps = []stump{
	{feature: models.FeatRSI, thresh: 70, above: -1, below: 0, weight: 1.2},
	{feature: models.FeatRSI, thresh: 30, above: 0, below: 1, weight: 1.2},
	{feature: models.FeatEMAFastSlow, thresh: 1.0008, above: 1, below: 0, weight: 1.0},
	{feature: models.FeatEMAFastSlow, thresh: 0.9992, above: 0, below: -1, weight: 1.0},
	{feature: models.FeatMACD, thresh: 0, above: 0.5, below: -0.5, weight: 0.8},
	{feature: models.FeatLogReturn5, thresh: 0.0012, above: 1, below: 0, weight: 0.7},
	{feature: models.FeatLogReturn5, thresh: -0.0012, above: 0, below: -1, weight: 0.7},
	{feature: models.FeatVolumeZ, thresh: 2.0, above: 0.4, below: 0, weight: 0.5},
	{feature: models.FeatRangePct, thresh: 0.004, above: -0.3, below: 0, weight: 0.4},
}

// TreesConfig tunes the stump ensemble.
type TreesConfig struct {
	Timeout  time.Duration        `yaml:"timeout"`
	Deadband float64              `yaml:"deadband"`
	Regimes  []models.RegimeLabel `yaml:"regimes"`
}

// Trees evaluates a fixed stump ensemble. The margin over total weight is
// the score, so unanimous stumps give full confidence.
type Trees struct {
	cfg    TreesConfig
	stumps []stump
}

func NewTrees(cfg TreesConfig) *Trees {
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.Deadband <= 0 {
		cfg.Deadband = 0.12
	}
	return &Trees{cfg: cfg, stumps: scalperStumps}
}

func (t *Trees) Name() string           { return "trees" }
func (t *Trees) SchemaID() string       { return models.SchemaScalperCoreV1 }
func (t *Trees) Deterministic() bool    { return true }
func (t *Trees) Timeout() time.Duration { return t.cfg.Timeout }

func (t *Trees) Regimes() []models.RegimeLabel { return t.cfg.Regimes }

func (t *Trees) Predict(_ context.Context, f *models.FeatureVector, _ models.RegimeLabel) (*models.Prediction, error) {
	if err := checkSchema(t.SchemaID(), f); err != nil {
		return nil, err
	}

	var margin, total float64
	for _, s := range t.stumps {
		v, ok := f.Get(s.feature)
		if !ok {
			continue
		}
		total += s.weight
		if v > s.thresh {
			margin += s.weight * s.above
		} else {
			margin += s.weight * s.below
		}
	}
	if total == 0 {
		return scoreToPrediction(t.Name(), f, 0, t.cfg.Deadband), nil
	}
	return scoreToPrediction(t.Name(), f, margin/total, t.cfg.Deadband), nil
}

package predictors

import (
	"context"
	"time"

	"SignalForge/internal/domain/models"
)

// StatisticalConfig tunes the rule-based model.
type StatisticalConfig struct {
	Timeout    time.Duration        `yaml:"timeout"`
	Deadband   float64              `yaml:"deadband"`
	TrendScale float64              `yaml:"trend_scale"`
	Regimes    []models.RegimeLabel `yaml:"regimes"`
}

// Statistical blends an RSI mean-reversion score with an EMA trend score.
// The regime decides the blend: trending markets follow the trend leg,
// ranging markets fade it, everything else takes the average.
type Statistical struct {
	cfg StatisticalConfig
}

func NewStatistical(cfg StatisticalConfig) *Statistical {
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.Deadband <= 0 {
		cfg.Deadband = 0.1
	}
	if cfg.TrendScale <= 0 {
		cfg.TrendScale = 0.002
	}
	return &Statistical{cfg: cfg}
}

func (s *Statistical) Name() string           { return "statistical" }
func (s *Statistical) SchemaID() string       { return models.SchemaScalperCoreV1 }
func (s *Statistical) Deterministic() bool    { return true }
func (s *Statistical) Timeout() time.Duration { return s.cfg.Timeout }

func (s *Statistical) Regimes() []models.RegimeLabel { return s.cfg.Regimes }

func (s *Statistical) Predict(_ context.Context, f *models.FeatureVector, regime models.RegimeLabel) (*models.Prediction, error) {
	if err := checkSchema(s.SchemaID(), f); err != nil {
		return nil, err
	}

	rsi, _ := f.Get(models.FeatRSI)
	reversion := (50 - rsi) / 50 // oversold is a buy

	emaRatio, _ := f.Get(models.FeatEMAFastSlow)
	trend := (emaRatio - 1) / s.cfg.TrendScale
	if trend > 1 {
		trend = 1
	} else if trend < -1 {
		trend = -1
	}

	var score float64
	switch regime {
	case models.RegimeTrending:
		score = trend
	case models.RegimeRanging:
		score = reversion
	default:
		score = (trend + reversion) / 2
	}

	return scoreToPrediction(s.Name(), f, score, s.cfg.Deadband), nil
}

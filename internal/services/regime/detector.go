package regime

import (
	"math"

	"SignalForge/internal/domain/models"
)

// Config holds the classification thresholds and the hysteresis depth.
type Config struct {
	// ConfirmCount is how many consecutive evaluations must agree before a
	// transition commits.
	ConfirmCount int `yaml:"confirm_count"`

	HighVolThreshold float64 `yaml:"high_vol_threshold"` // annualized sigma
	TrendThreshold   float64 `yaml:"trend_threshold"`    // |ema fast/slow - 1|
	IlliquidSpreadBps float64 `yaml:"illiquid_spread_bps"`
	IlliquidVolumeZ   float64 `yaml:"illiquid_volume_z"`
}

func (c *Config) applyDefaults() {
	if c.ConfirmCount <= 0 {
		c.ConfirmCount = 3
	}
	if c.HighVolThreshold <= 0 {
		c.HighVolThreshold = 0.80
	}
	if c.TrendThreshold <= 0 {
		c.TrendThreshold = 0.0015
	}
	if c.IlliquidSpreadBps <= 0 {
		c.IlliquidSpreadBps = 25
	}
	if c.IlliquidVolumeZ == 0 {
		c.IlliquidVolumeZ = -1.5
	}
}

// Detector classifies each feature vector and commits a regime change only
// after ConfirmCount consecutive agreeing evaluations. The flip-flop guard
// keeps downstream weighting stable through single noisy bars.
type Detector struct {
	cfg Config
}

// NewDetector creates a regime detector.
func NewDetector(cfg Config) *Detector {
	cfg.applyDefaults()
	return &Detector{cfg: cfg}
}

// Initial returns the state a fresh instrument starts in: undetermined, with
// no candidate.
func (d *Detector) Initial(symbol string) *models.RegimeState {
	return &models.RegimeState{
		Symbol:    symbol,
		Current:   models.RegimeUndetermined,
		Candidate: models.RegimeUndetermined,
	}
}

// Evaluate classifies one vector, advances the hysteresis counters in state
// and returns the committed label plus the transition if one happened.
func (d *Detector) Evaluate(state *models.RegimeState, features *models.FeatureVector) (models.RegimeLabel, *models.RegimeChange) {
	state.Evaluations++
	raw := d.classify(features)

	if raw == state.Current {
		// Agreement with the committed label resets any pending candidate.
		state.Candidate = state.Current
		state.Streak = 0
		return state.Current, nil
	}

	if raw == state.Candidate {
		state.Streak++
	} else {
		state.Candidate = raw
		state.Streak = 1
	}

	if state.Streak < d.cfg.ConfirmCount {
		return state.Current, nil
	}

	change := &models.RegimeChange{
		Symbol:    state.Symbol,
		From:      state.Current,
		To:        raw,
		Timestamp: features.Timestamp,
	}
	state.Current = raw
	state.Candidate = raw
	state.Streak = 0
	state.LastChange = features.Timestamp
	return state.Current, change
}

// classify maps one vector onto a raw label, before hysteresis. Order
// matters: volatility dominates, then liquidity, then trend.
func (d *Detector) classify(f *models.FeatureVector) models.RegimeLabel {
	vol, _ := f.Get(models.FeatRealizedVol)
	if vol > d.cfg.HighVolThreshold {
		return models.RegimeHighVol
	}

	spread, _ := f.Get(models.FeatSpreadBps)
	volumeZ, _ := f.Get(models.FeatVolumeZ)
	if spread > d.cfg.IlliquidSpreadBps || volumeZ < d.cfg.IlliquidVolumeZ {
		return models.RegimeIlliquid
	}

	emaRatio, ok := f.Get(models.FeatEMAFastSlow)
	if ok && math.Abs(emaRatio-1) > d.cfg.TrendThreshold {
		return models.RegimeTrending
	}
	return models.RegimeRanging
}

package features

import (
	"fmt"
	"math"
	"time"

	"SignalForge/internal/domain/models"
)

// BuilderConfig controls window and indicator periods. Zero values fall back
// to defaults tuned for 1m scalping bars.
type BuilderConfig struct {
	WindowSize int           `yaml:"window_size"`
	EMAFast    int           `yaml:"ema_fast"`
	EMASlow    int           `yaml:"ema_slow"`
	RSIPeriod  int           `yaml:"rsi_period"`
	ATRPeriod  int           `yaml:"atr_period"`
	VolWindow  int           `yaml:"vol_window"`
	Timeframe  string        `yaml:"timeframe"`
	MaxGap     time.Duration `yaml:"max_gap"`
}

func (c *BuilderConfig) applyDefaults() {
	if c.WindowSize <= 0 {
		c.WindowSize = 32
	}
	if c.EMAFast <= 0 {
		c.EMAFast = 8
	}
	if c.EMASlow <= 0 {
		c.EMASlow = 21
	}
	if c.RSIPeriod <= 0 {
		c.RSIPeriod = 14
	}
	if c.ATRPeriod <= 0 {
		c.ATRPeriod = 14
	}
	if c.VolWindow <= 0 {
		c.VolWindow = 20
	}
	if c.Timeframe == "" {
		c.Timeframe = "1m"
	}
}

// Builder derives scalper_core_v1 vectors from an ordered snapshot window.
// Build is pure: it reads only its arguments and uses no clocks or RNG, so
// identical windows always produce identical vectors.
type Builder struct {
	cfg BuilderConfig
}

// NewBuilder creates a feature builder.
func NewBuilder(cfg BuilderConfig) *Builder {
	cfg.applyDefaults()
	return &Builder{cfg: cfg}
}

func (b *Builder) SchemaID() string { return models.SchemaScalperCoreV1 }

func (b *Builder) WindowSize() int { return b.cfg.WindowSize }

// Build computes the feature vector for the newest snapshot in the window.
// The window must be in ascending timestamp order and at least WindowSize
// long; shorter windows return ErrInsufficientHistory.
func (b *Builder) Build(window []*models.MarketSnapshot) (*models.FeatureVector, error) {
	if len(window) < b.cfg.WindowSize {
		return nil, fmt.Errorf("%w: have %d, need %d", models.ErrInsufficientHistory, len(window), b.cfg.WindowSize)
	}
	window = window[len(window)-b.cfg.WindowSize:]
	for i := 1; i < len(window); i++ {
		if !window[i].Timestamp.After(window[i-1].Timestamp) {
			return nil, fmt.Errorf("window not strictly ordered at index %d", i)
		}
	}

	last := window[len(window)-1]
	closes := make([]float64, len(window))
	volumes := make([]float64, len(window))
	for i, s := range window {
		closes[i] = s.Mid()
		volumes[i] = s.Volume
	}
	returns := LogReturns(window)

	v := models.NewFeatureVector(last.Symbol, last.Timestamp)
	v.WindowLen = len(window)

	v.Set(models.FeatLogReturn1, lastReturn(returns, 1))
	v.Set(models.FeatLogReturn5, lastReturn(returns, 5))
	v.Set(models.FeatLogReturn15, lastReturn(returns, 15))
	v.Set(models.FeatRealizedVol, RealizedVolatility(returns, b.cfg.VolWindow, BarsPerYearForTF(b.cfg.Timeframe)))
	v.Set(models.FeatATR, ATR(window, b.cfg.ATRPeriod))
	v.Set(models.FeatRSI, RSI(closes, b.cfg.RSIPeriod))

	emaFast := EMA(closes, b.cfg.EMAFast)
	emaSlow := EMA(closes, b.cfg.EMASlow)
	if emaSlow != 0 {
		v.Set(models.FeatEMAFastSlow, emaFast/emaSlow)
	} else {
		v.Set(models.FeatEMAFastSlow, 1)
	}

	v.Set(models.FeatMACD, emaFast-emaSlow)
	v.Set(models.FeatMACDSignal, EMA(macdSeries(closes, b.cfg.EMAFast, b.cfg.EMASlow), 9))

	if mid := last.Mid(); mid > 0 {
		v.Set(models.FeatSpreadBps, last.Spread()/mid*1e4)
	}

	volMean, volStd := MeanStd(volumes[:len(volumes)-1])
	if volStd > 0 {
		v.Set(models.FeatVolumeZ, (last.Volume-volMean)/volStd)
	}

	if last.Close > 0 && last.High >= last.Low {
		v.Set(models.FeatRangePct, (last.High-last.Low)/last.Close)
	}

	v.Set(models.FeatMomentum, lastReturn(returns, len(returns)))

	// Time-of-day encoding keeps session effects without a discontinuity
	// at midnight.
	minute := float64(last.Timestamp.UTC().Hour()*60 + last.Timestamp.UTC().Minute())
	angle := 2 * math.Pi * minute / (24 * 60)
	v.Set(models.FeatSessionSin, math.Sin(angle))
	v.Set(models.FeatSessionCos, math.Cos(angle))

	return v, nil
}

// lastReturn sums the last n log returns, which equals the n-bar log return.
func lastReturn(returns []float64, n int) float64 {
	if n <= 0 || len(returns) == 0 {
		return 0
	}
	if n > len(returns) {
		n = len(returns)
	}
	sum := 0.0
	for i := len(returns) - n; i < len(returns); i++ {
		sum += returns[i]
	}
	return sum
}

// macdSeries computes the MACD line over the tail of the close series so the
// signal line has something to smooth.
func macdSeries(closes []float64, fast, slow int) []float64 {
	const tail = 9
	if len(closes) == 0 {
		return nil
	}
	start := len(closes) - tail
	if start < 1 {
		start = 1
	}
	out := make([]float64, 0, len(closes)-start)
	for i := start; i <= len(closes); i++ {
		out = append(out, EMA(closes[:i], fast)-EMA(closes[:i], slow))
	}
	return out
}

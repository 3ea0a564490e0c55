package models

import "time"

// SchemaScalperCoreV1 is the feature schema every bundled predictor declares.
const SchemaScalperCoreV1 = "scalper_core_v1"

// Names used by the scalper_core_v1 schema. Kept as constants so predictors
// and tests reference the same keys the builder emits.
const (
	FeatLogReturn1  = "log_return_1"
	FeatLogReturn5  = "log_return_5"
	FeatLogReturn15 = "log_return_15"
	FeatRealizedVol = "realized_vol"
	FeatATR         = "atr"
	FeatRSI         = "rsi"
	FeatMACD        = "macd"
	FeatMACDSignal  = "macd_signal"
	FeatEMAFastSlow = "ema_fast_slow_ratio"
	FeatSpreadBps   = "spread_bps"
	FeatVolumeZ     = "volume_zscore"
	FeatRangePct    = "range_pct"
	FeatMomentum    = "momentum"
	FeatSessionSin  = "session_sin"
	FeatSessionCos  = "session_cos"
)

// SchemaV1Names fixes the slot order of scalper_core_v1 vectors. The layout
// is part of the schema: models trained against it index by position, so the
// order must never change without a new schema identifier.
var SchemaV1Names = []string{
	FeatLogReturn1,
	FeatLogReturn5,
	FeatLogReturn15,
	FeatRealizedVol,
	FeatATR,
	FeatRSI,
	FeatMACD,
	FeatMACDSignal,
	FeatEMAFastSlow,
	FeatSpreadBps,
	FeatVolumeZ,
	FeatRangePct,
	FeatMomentum,
	FeatSessionSin,
	FeatSessionCos,
}

var schemaV1Index = func() map[string]int {
	idx := make(map[string]int, len(SchemaV1Names))
	for i, name := range SchemaV1Names {
		idx[name] = i
	}
	return idx
}()

// FeatureVector is the derived input handed to predictors. Values is ordered
// per SchemaV1Names; vectors carry the schema identifier they were built
// under so the ensemble can refuse to feed a model trained against a
// different layout.
type FeatureVector struct {
	Symbol    string
	Timestamp time.Time
	SchemaID  string
	Values    []float64
	// WindowLen is the number of history points the builder consumed.
	WindowLen int
}

// NewFeatureVector allocates a zeroed vector with one slot per schema name.
func NewFeatureVector(symbol string, ts time.Time) *FeatureVector {
	return &FeatureVector{
		Symbol:    symbol,
		Timestamp: ts,
		SchemaID:  SchemaScalperCoreV1,
		Values:    make([]float64, len(SchemaV1Names)),
	}
}

// Get returns a named feature and whether the name is part of the schema.
func (f *FeatureVector) Get(name string) (float64, bool) {
	i, ok := schemaV1Index[name]
	if !ok || i >= len(f.Values) {
		return 0, false
	}
	return f.Values[i], true
}

// Set writes a named feature into its schema slot. Unknown names are ignored.
func (f *FeatureVector) Set(name string, v float64) {
	i, ok := schemaV1Index[name]
	if !ok {
		return
	}
	if f.Values == nil {
		f.Values = make([]float64, len(SchemaV1Names))
	}
	if i < len(f.Values) {
		f.Values[i] = v
	}
}

// Named returns the vector keyed by feature name, for wire formats that
// carry names instead of positions.
func (f *FeatureVector) Named() map[string]float64 {
	out := make(map[string]float64, len(SchemaV1Names))
	for i, name := range SchemaV1Names {
		if i < len(f.Values) {
			out[name] = f.Values[i]
		}
	}
	return out
}

package features

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"SignalForge/internal/domain/models"
)

func makeWindow(n int, base float64, step float64) []*models.MarketSnapshot {
	start := time.Date(2025, 6, 2, 9, 30, 0, 0, time.UTC)
	out := make([]*models.MarketSnapshot, n)
	price := base
	for i := 0; i < n; i++ {
		price += step
		out[i] = &models.MarketSnapshot{
			Symbol:    "BINANCE:BTCUSDT",
			Timestamp: start.Add(time.Duration(i) * time.Minute),
			Bid:       price - 0.5,
			Ask:       price + 0.5,
			Last:      price,
			Volume:    100 + float64(i%7),
			Open:      price - step,
			High:      price + 1,
			Low:       price - 1,
			Close:     price,
		}
	}
	return out
}

func TestBuildInsufficientHistory(t *testing.T) {
	b := NewBuilder(BuilderConfig{WindowSize: 16})
	_, err := b.Build(makeWindow(15, 100, 0.1))
	require.Error(t, err)
	assert.ErrorIs(t, err, models.ErrInsufficientHistory)
}

func TestBuildEmitsFullSchema(t *testing.T) {
	b := NewBuilder(BuilderConfig{WindowSize: 32})
	vec, err := b.Build(makeWindow(40, 100, 0.1))
	require.NoError(t, err)

	assert.Equal(t, models.SchemaScalperCoreV1, vec.SchemaID)
	assert.Equal(t, 32, vec.WindowLen)
	assert.Equal(t, "BINANCE:BTCUSDT", vec.Symbol)

	want := []string{
		models.FeatLogReturn1, models.FeatLogReturn5, models.FeatLogReturn15,
		models.FeatRealizedVol, models.FeatATR, models.FeatRSI,
		models.FeatMACD, models.FeatMACDSignal, models.FeatEMAFastSlow,
		models.FeatSpreadBps, models.FeatVolumeZ, models.FeatRangePct,
		models.FeatMomentum, models.FeatSessionSin, models.FeatSessionCos,
	}
	for _, name := range want {
		_, ok := vec.Get(name)
		assert.True(t, ok, "missing feature %s", name)
	}
	assert.Len(t, vec.Values, len(want))
}

func TestBuildValuesFollowSchemaOrder(t *testing.T) {
	b := NewBuilder(BuilderConfig{WindowSize: 8})
	vec, err := b.Build(makeWindow(8, 100, 0.1))
	require.NoError(t, err)

	// Slot i must hold the feature SchemaV1Names[i] names; positional
	// consumers depend on the layout.
	require.Len(t, vec.Values, len(models.SchemaV1Names))
	for i, name := range models.SchemaV1Names {
		got, ok := vec.Get(name)
		require.True(t, ok, name)
		assert.Equal(t, vec.Values[i], got, name)
	}
}

func TestBuildDeterministic(t *testing.T) {
	b := NewBuilder(BuilderConfig{WindowSize: 32})
	window := makeWindow(40, 27000, 3.5)

	v1, err := b.Build(window)
	require.NoError(t, err)
	v2, err := b.Build(window)
	require.NoError(t, err)
	assert.Equal(t, v1.Values, v2.Values)
	assert.Equal(t, v1.Timestamp, v2.Timestamp)
}

func TestBuildRejectsUnorderedWindow(t *testing.T) {
	b := NewBuilder(BuilderConfig{WindowSize: 8})
	window := makeWindow(8, 100, 0.1)
	window[4].Timestamp = window[3].Timestamp // duplicate breaks strict ordering

	_, err := b.Build(window)
	require.Error(t, err)
	assert.False(t, errors.Is(err, models.ErrInsufficientHistory))
}

func TestBuildRisingMarketDirectionals(t *testing.T) {
	b := NewBuilder(BuilderConfig{WindowSize: 32})
	vec, err := b.Build(makeWindow(32, 100, 0.5))
	require.NoError(t, err)

	r1, _ := vec.Get(models.FeatLogReturn1)
	assert.Greater(t, r1, 0.0)
	rsi, _ := vec.Get(models.FeatRSI)
	assert.Equal(t, 100.0, rsi) // monotone gains saturate RSI
	ratio, _ := vec.Get(models.FeatEMAFastSlow)
	assert.Greater(t, ratio, 1.0)
	mom, _ := vec.Get(models.FeatMomentum)
	assert.Greater(t, mom, 0.0)
}

func TestBuildSessionEncoding(t *testing.T) {
	b := NewBuilder(BuilderConfig{WindowSize: 8})
	vec, err := b.Build(makeWindow(8, 100, 0.1))
	require.NoError(t, err)

	sin, _ := vec.Get(models.FeatSessionSin)
	cos, _ := vec.Get(models.FeatSessionCos)
	assert.InDelta(t, 1.0, sin*sin+cos*cos, 1e-9)
}

func TestBuildSpreadBps(t *testing.T) {
	b := NewBuilder(BuilderConfig{WindowSize: 8})
	window := makeWindow(8, 100, 0)
	vec, err := b.Build(window)
	require.NoError(t, err)

	last := window[len(window)-1]
	wantBps := last.Spread() / last.Mid() * 1e4
	got, _ := vec.Get(models.FeatSpreadBps)
	assert.InDelta(t, wantBps, got, 1e-9)
	assert.False(t, math.IsNaN(got))
}

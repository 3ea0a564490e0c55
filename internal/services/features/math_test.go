package features

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLogReturns(t *testing.T) {
	snaps := makeWindow(4, 100, 0)
	rets := LogReturns(snaps)
	assert.Len(t, rets, 3)
	for _, r := range rets {
		assert.Zero(t, r)
	}

	assert.Nil(t, LogReturns(snaps[:1]))
}

func TestEMAConstantSeries(t *testing.T) {
	series := []float64{42, 42, 42, 42, 42}
	assert.InDelta(t, 42, EMA(series, 3), 1e-12)
	assert.Zero(t, EMA(nil, 3))
}

func TestRSIBounds(t *testing.T) {
	up := []float64{1, 2, 3, 4, 5, 6, 7, 8}
	assert.Equal(t, 100.0, RSI(up, 5))

	down := []float64{8, 7, 6, 5, 4, 3, 2, 1}
	assert.Equal(t, 0.0, RSI(down, 5))

	flat := []float64{3, 3, 3, 3, 3, 3}
	assert.Equal(t, 50.0, RSI(flat, 5))

	assert.Equal(t, 50.0, RSI(up[:2], 5)) // not enough data
}

func TestATRRequiresHistory(t *testing.T) {
	snaps := makeWindow(3, 100, 1)
	assert.Zero(t, ATR(snaps, 5))
	assert.Greater(t, ATR(makeWindow(10, 100, 1), 5), 0.0)
}

func TestMeanStd(t *testing.T) {
	mean, std := MeanStd([]float64{2, 4, 4, 4, 5, 5, 7, 9})
	assert.InDelta(t, 5, mean, 1e-12)
	assert.InDelta(t, 2.138, std, 1e-3)

	mean, std = MeanStd([]float64{5})
	assert.Equal(t, 5.0, mean)
	assert.Zero(t, std)
}

func TestRealizedVolatilityFlatSeries(t *testing.T) {
	rets := make([]float64, 30)
	assert.Zero(t, RealizedVolatility(rets, 20, BarsPerYearForTF("1m")))
	assert.Zero(t, RealizedVolatility(rets[:5], 20, BarsPerYearForTF("1m")))
}

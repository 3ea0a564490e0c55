package backtest

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"SignalForge/internal/domain/models"
)

func curve(values ...float64) []models.EquityPoint {
	start := time.Date(2025, 6, 2, 9, 30, 0, 0, time.UTC)
	out := make([]models.EquityPoint, len(values))
	for i, v := range values {
		out[i] = models.EquityPoint{
			Timestamp: start.Add(time.Duration(i) * time.Minute),
			Equity:    decimal.NewFromFloat(v),
		}
	}
	return out
}

func TestComputeStatsNetPnLAndHitRate(t *testing.T) {
	result := &models.BacktestResult{
		Signals: make([]*models.TradeSignal, 40),
		Trades:  make([]models.SimTrade, 6),
		Equity:  curve(100, 104, 110),
	}
	spec := models.BacktestSpec{InitialEquity: 100}

	stats := ComputeStats(result, spec, 2, 1, map[models.RegimeLabel]int{models.RegimeRanging: 40}, 40)

	assert.Equal(t, 40, stats.Snapshots)
	assert.Equal(t, 40, stats.Signals)
	assert.Equal(t, 6, stats.Trades)
	assert.InDelta(t, 2.0/3.0, stats.HitRate, 1e-9)
	assert.True(t, stats.NetPnL.Equal(decimal.NewFromInt(10)), "net pnl %s", stats.NetPnL)
	assert.True(t, stats.FinalEquity.Equal(decimal.NewFromInt(110)))
	assert.Equal(t, 40, stats.RegimeCounts[models.RegimeRanging])
}

func TestComputeStatsMaxDrawdown(t *testing.T) {
	result := &models.BacktestResult{Equity: curve(100, 110, 99, 105)}
	spec := models.BacktestSpec{InitialEquity: 100}

	stats := ComputeStats(result, spec, 0, 0, nil, 4)

	// Peak 110 to trough 99 is an 11/110 = 10% drawdown.
	assert.InDelta(t, 0.1, stats.MaxDrawdown, 1e-9)
}

func TestComputeStatsNoClosedTrades(t *testing.T) {
	result := &models.BacktestResult{Equity: curve(100)}
	spec := models.BacktestSpec{InitialEquity: 100}

	stats := ComputeStats(result, spec, 0, 0, nil, 1)

	assert.Zero(t, stats.HitRate)
	assert.Zero(t, stats.SharpeRatio)
	assert.True(t, stats.NetPnL.IsZero())
}

func TestComputeStatsEmptyCurveUsesInitialEquity(t *testing.T) {
	result := &models.BacktestResult{}
	spec := models.BacktestSpec{InitialEquity: 2500}

	stats := ComputeStats(result, spec, 0, 0, nil, 0)

	require.True(t, stats.FinalEquity.Equal(decimal.NewFromInt(2500)))
	assert.True(t, stats.NetPnL.IsZero())
	assert.Zero(t, stats.MaxDrawdown)
}

func TestComputeStatsIsPure(t *testing.T) {
	result := &models.BacktestResult{
		Signals: make([]*models.TradeSignal, 10),
		Equity:  curve(100, 101, 100.5, 102),
	}
	spec := models.BacktestSpec{InitialEquity: 100}

	a := ComputeStats(result, spec, 1, 1, nil, 10)
	b := ComputeStats(result, spec, 1, 1, nil, 10)
	assert.Equal(t, a, b)
}

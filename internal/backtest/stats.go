package backtest

import (
	"math"

	"github.com/shopspring/decimal"

	"SignalForge/internal/domain/models"
)

// ComputeStats summarizes a finished replay. Pure function over the result;
// calling it twice on the same result gives the same numbers.
func ComputeStats(result *models.BacktestResult, spec models.BacktestSpec, wins, losses int, regimeCounts map[models.RegimeLabel]int, snapshots int) *models.BacktestStats {
	stats := &models.BacktestStats{
		Snapshots:    snapshots,
		Signals:      len(result.Signals),
		Trades:       len(result.Trades),
		Wins:         wins,
		Losses:       losses,
		RegimeCounts: regimeCounts,
	}

	closed := wins + losses
	if closed > 0 {
		stats.HitRate = float64(wins) / float64(closed)
	}

	initial := decimal.NewFromFloat(spec.InitialEquity)
	final := initial
	if n := len(result.Equity); n > 0 {
		final = result.Equity[n-1].Equity
	}
	stats.FinalEquity = final
	stats.NetPnL = final.Sub(initial)
	stats.MaxDrawdown = maxDrawdown(result.Equity)
	stats.SharpeRatio = sharpe(result.Equity)
	return stats
}

// maxDrawdown walks the equity curve and returns the deepest peak-to-trough
// fraction.
func maxDrawdown(curve []models.EquityPoint) float64 {
	var worst float64
	peak := decimal.Zero
	for _, p := range curve {
		if p.Equity.GreaterThan(peak) {
			peak = p.Equity
		}
		if peak.Sign() <= 0 {
			continue
		}
		dd, _ := peak.Sub(p.Equity).Div(peak).Float64()
		if dd > worst {
			worst = dd
		}
	}
	return worst
}

// sharpe annualizes the per-bar return series assuming 1m bars.
func sharpe(curve []models.EquityPoint) float64 {
	if len(curve) < 3 {
		return 0
	}
	rets := make([]float64, 0, len(curve)-1)
	for i := 1; i < len(curve); i++ {
		prev, _ := curve[i-1].Equity.Float64()
		cur, _ := curve[i].Equity.Float64()
		if prev <= 0 {
			continue
		}
		rets = append(rets, cur/prev-1)
	}
	if len(rets) < 2 {
		return 0
	}
	var sum float64
	for _, r := range rets {
		sum += r
	}
	mean := sum / float64(len(rets))
	var ss float64
	for _, r := range rets {
		d := r - mean
		ss += d * d
	}
	std := math.Sqrt(ss / float64(len(rets)-1))
	if std == 0 {
		return 0
	}
	const barsPerYear = 365 * 24 * 60
	return mean / std * math.Sqrt(barsPerYear)
}

package features

import (
	"math"
	"time"

	"SignalForge/internal/domain/models"
)

// LogReturns computes r_t = ln(P_t / P_{t-1}) over snapshot mids.
// It returns a slice of length len(snaps)-1, or nil if insufficient data.
func LogReturns(snaps []*models.MarketSnapshot) []float64 {
	if len(snaps) < 2 {
		return nil
	}
	out := make([]float64, 0, len(snaps)-1)
	for i := 1; i < len(snaps); i++ {
		prev := snaps[i-1].Mid()
		cur := snaps[i].Mid()
		if prev <= 0 || cur <= 0 {
			out = append(out, 0)
			continue
		}
		out = append(out, math.Log(cur/prev))
	}
	return out
}

// RealizedVolatility computes annualized realized volatility over the last
// window returns using the provided number of bars per year.
func RealizedVolatility(logReturns []float64, window int, barsPerYear float64) float64 {
	if window <= 1 || len(logReturns) < window {
		return 0
	}
	sum := 0.0
	sum2 := 0.0
	for i := len(logReturns) - window; i < len(logReturns); i++ {
		r := logReturns[i]
		sum += r
		sum2 += r * r
	}
	n := float64(window)
	mean := sum / n
	variance := (sum2 - n*mean*mean) / (n - 1)
	if variance < 0 {
		variance = 0
	}
	// annualize
	return math.Sqrt(variance * barsPerYear)
}

// EMA computes an exponential moving average with period p over the series,
// seeded with the first value. Returns 0 for an empty series.
func EMA(series []float64, p int) float64 {
	if len(series) == 0 || p <= 0 {
		return 0
	}
	alpha := 2.0 / (float64(p) + 1.0)
	ema := series[0]
	for i := 1; i < len(series); i++ {
		ema = alpha*series[i] + (1-alpha)*ema
	}
	return ema
}

// RSI computes Wilder's relative strength index over the last p deltas.
// Returns 50 when there is not enough data or no movement.
func RSI(closes []float64, p int) float64 {
	if p <= 0 || len(closes) < p+1 {
		return 50
	}
	var gain, loss float64
	for i := len(closes) - p; i < len(closes); i++ {
		d := closes[i] - closes[i-1]
		if d > 0 {
			gain += d
		} else {
			loss -= d
		}
	}
	if gain+loss == 0 {
		return 50
	}
	return 100 * gain / (gain + loss)
}

// ATR computes the average true range over the last p snapshots.
func ATR(snaps []*models.MarketSnapshot, p int) float64 {
	if p <= 0 || len(snaps) < p+1 {
		return 0
	}
	sum := 0.0
	for i := len(snaps) - p; i < len(snaps); i++ {
		high := snaps[i].High
		low := snaps[i].Low
		prevClose := snaps[i-1].Close
		tr := high - low
		if v := math.Abs(high - prevClose); v > tr {
			tr = v
		}
		if v := math.Abs(low - prevClose); v > tr {
			tr = v
		}
		sum += tr
	}
	return sum / float64(p)
}

// MeanStd returns the mean and sample standard deviation of the series.
func MeanStd(series []float64) (float64, float64) {
	n := len(series)
	if n == 0 {
		return 0, 0
	}
	sum := 0.0
	for _, v := range series {
		sum += v
	}
	mean := sum / float64(n)
	if n < 2 {
		return mean, 0
	}
	var ss float64
	for _, v := range series {
		d := v - mean
		ss += d * d
	}
	return mean, math.Sqrt(ss / float64(n-1))
}

// BarsPerYearForTF returns the approximate number of bars per year for a timeframe.
func BarsPerYearForTF(tf string) float64 {
	switch tf {
	case "1s":
		return 365 * 24 * 60 * 60
	case "1m":
		return 365 * 24 * 60
	case "5m":
		return 365 * 24 * 12
	default:
		return 365 * 24 * 60
	}
}

// AlignFromTo rounds a time range to candle boundaries based on timeframe.
func AlignFromTo(from, to time.Time, tf string) (time.Time, time.Time) {
	switch tf {
	case "1s":
		from = from.Truncate(time.Second)
		to = to.Truncate(time.Second)
	case "1m":
		from = from.Truncate(time.Minute)
		to = to.Truncate(time.Minute)
	case "5m":
		d := time.Duration(5) * time.Minute
		from = from.Truncate(d)
		to = to.Truncate(d)
	default:
		from = from.Truncate(time.Minute)
		to = to.Truncate(time.Minute)
	}
	return from, to
}

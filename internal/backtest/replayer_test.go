package backtest

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"SignalForge/internal/domain/models"
	domrepo "SignalForge/internal/domain/repository"
	domsvc "SignalForge/internal/domain/service"
	"SignalForge/internal/services/features"
	"SignalForge/internal/services/regime"
	"SignalForge/internal/usecase"
)

// fakeHistory serves a fixed candle series regardless of the requested range.
type fakeHistory struct {
	candles []models.Candle
}

func (f *fakeHistory) GetCandles(_ context.Context, _ string, _, _ time.Time, _ domrepo.Timeframe) ([]models.Candle, error) {
	return f.candles, nil
}

func (f *fakeHistory) GetLatestNCandles(_ context.Context, _ string, n int, _ domrepo.Timeframe) ([]models.Candle, error) {
	if n > len(f.candles) {
		n = len(f.candles)
	}
	return f.candles[len(f.candles)-n:], nil
}

// trendFollower buys above its reference price and sells below it.
type trendFollower struct{}

func (trendFollower) Name() string                  { return "trend" }
func (trendFollower) SchemaID() string              { return models.SchemaScalperCoreV1 }
func (trendFollower) Deterministic() bool           { return true }
func (trendFollower) Timeout() time.Duration        { return 50 * time.Millisecond }
func (trendFollower) Regimes() []models.RegimeLabel { return nil }
func (trendFollower) Predict(_ context.Context, f *models.FeatureVector, _ models.RegimeLabel) (*models.Prediction, error) {
	dir := models.DirectionSell
	if mom, _ := f.Get(models.FeatMomentum); mom > 0 {
		dir = models.DirectionBuy
	}
	return &models.Prediction{
		Model:      "trend",
		Symbol:     f.Symbol,
		Timestamp:  f.Timestamp,
		Direction:  dir,
		Confidence: 0.8,
	}, nil
}

func genCandles(n int) []models.Candle {
	start := time.Date(2025, 6, 2, 9, 30, 0, 0, time.UTC)
	out := make([]models.Candle, n)
	for i := 0; i < n; i++ {
		// A slow sine wave around 100 forces direction changes mid-run.
		price := 100 + 3*math.Sin(float64(i)/12)
		out[i] = models.Candle{
			Bucket: start.Add(time.Duration(i) * time.Minute),
			Symbol: "X:TEST",
			Open:   price,
			High:   price + 0.2,
			Low:    price - 0.2,
			Close:  price,
			Volume: 100,
		}
	}
	return out
}

func testReplayer(hist domrepo.HistorySource) *Replayer {
	return NewReplayer(
		ReplayerConfig{OutcomeEpsilon: 1e-4},
		hist,
		features.NewBuilder(features.BuilderConfig{WindowSize: 8}),
		regime.NewDetector(regime.Config{ConfirmCount: 2}),
		usecase.NewPredictorPool([]domsvc.Predictor{trendFollower{}}),
		usecase.NewWeightedEnsemble(usecase.EnsembleConfig{}),
		usecase.NewGate(usecase.RiskGateConfig{MaxPerInstrument: 0.25}),
	)
}

func testSpec() models.BacktestSpec {
	start := time.Date(2025, 6, 2, 9, 30, 0, 0, time.UTC)
	return models.BacktestSpec{
		Symbol:         "X:TEST",
		From:           start,
		To:             start.Add(2 * time.Hour),
		InitialEquity:  10000,
		CostPerTurnBps: 10,
	}
}

func TestRunProducesSignalPerCandleAfterWarmup(t *testing.T) {
	hist := &fakeHistory{candles: genCandles(90)}
	r := testReplayer(hist)
	run := &models.BacktestRun{ID: "bt-1", Spec: testSpec()}

	result, err := r.Run(context.Background(), run)
	require.NoError(t, err)

	// The first 7 candles only fill the 8-bar window; every candle after
	// that decides.
	assert.Len(t, result.Signals, 83)
	assert.Len(t, result.Equity, 83)
	require.NotNil(t, run.Stats)
	assert.Equal(t, 90, run.Stats.Snapshots)
	assert.Equal(t, 83, run.Stats.Signals)
	assert.NotEmpty(t, result.Trades)
}

func TestRunSequentialSignalIDs(t *testing.T) {
	hist := &fakeHistory{candles: genCandles(20)}
	r := testReplayer(hist)
	run := &models.BacktestRun{ID: "bt-1", Spec: testSpec()}

	result, err := r.Run(context.Background(), run)
	require.NoError(t, err)

	require.Len(t, result.Signals, 13)
	assert.Equal(t, "sig-000001", result.Signals[0].ID)
	assert.Equal(t, "sig-000013", result.Signals[12].ID)
}

func TestRunIsDeterministic(t *testing.T) {
	hist := &fakeHistory{candles: genCandles(120)}
	r := testReplayer(hist)

	first, err := r.Run(context.Background(), &models.BacktestRun{ID: "a", Spec: testSpec()})
	require.NoError(t, err)
	second, err := r.Run(context.Background(), &models.BacktestRun{ID: "b", Spec: testSpec()})
	require.NoError(t, err)

	require.Len(t, second.Signals, len(first.Signals))
	for i := range first.Signals {
		assert.Equal(t, first.Signals[i].ID, second.Signals[i].ID, "index %d", i)
		assert.Equal(t, first.Signals[i].Direction, second.Signals[i].Direction, "index %d", i)
		assert.Equal(t, first.Signals[i].Size, second.Signals[i].Size, "index %d", i)
	}
	assert.Equal(t, first.Run.Stats.Trades, second.Run.Stats.Trades)
	assert.True(t, first.Run.Stats.FinalEquity.Equal(second.Run.Stats.FinalEquity))
	assert.Equal(t, first.Run.Stats.MaxDrawdown, second.Run.Stats.MaxDrawdown)
}

func TestRunNoFailedModels(t *testing.T) {
	hist := &fakeHistory{candles: genCandles(40)}
	r := testReplayer(hist)

	result, err := r.Run(context.Background(), &models.BacktestRun{ID: "a", Spec: testSpec()})
	require.NoError(t, err)

	for _, sig := range result.Signals {
		if sig.Provenance == nil {
			continue
		}
		assert.Empty(t, sig.Provenance.Failed)
	}
}

func TestRunClosesPositionAtWindowEnd(t *testing.T) {
	hist := &fakeHistory{candles: genCandles(60)}
	r := testReplayer(hist)

	result, err := r.Run(context.Background(), &models.BacktestRun{ID: "a", Spec: testSpec()})
	require.NoError(t, err)

	// Entries and exits must pair up: an even trade count means nothing was
	// left open after the forced close.
	assert.Equal(t, 0, len(result.Trades)%2)
}

func TestRunValidatesSpec(t *testing.T) {
	hist := &fakeHistory{candles: genCandles(10)}
	r := testReplayer(hist)
	start := time.Date(2025, 6, 2, 9, 30, 0, 0, time.UTC)

	_, err := r.Run(context.Background(), &models.BacktestRun{Spec: models.BacktestSpec{
		From: start, To: start.Add(time.Hour),
	}})
	assert.Error(t, err)

	_, err = r.Run(context.Background(), &models.BacktestRun{Spec: models.BacktestSpec{
		Symbol: "X:TEST", From: start.Add(time.Hour), To: start,
	}})
	assert.Error(t, err)
}

func TestRunEmptyHistory(t *testing.T) {
	r := testReplayer(&fakeHistory{})

	_, err := r.Run(context.Background(), &models.BacktestRun{ID: "a", Spec: testSpec()})
	assert.ErrorIs(t, err, models.ErrNoSnapshots)
}

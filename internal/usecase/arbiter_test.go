package usecase

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"SignalForge/internal/domain/models"
	domsvc "SignalForge/internal/domain/service"
	"SignalForge/internal/services/features"
	"SignalForge/internal/services/regime"
)

// stubPredictor answers with a fixed direction, or fails when err is set.
type stubPredictor struct {
	name    string
	dir     models.Direction
	conf    float64
	err     error
	regimes []models.RegimeLabel
}

func (p *stubPredictor) Name() string                  { return p.name }
func (p *stubPredictor) SchemaID() string              { return models.SchemaScalperCoreV1 }
func (p *stubPredictor) Deterministic() bool           { return true }
func (p *stubPredictor) Timeout() time.Duration        { return 50 * time.Millisecond }
func (p *stubPredictor) Regimes() []models.RegimeLabel { return p.regimes }
func (p *stubPredictor) Predict(_ context.Context, f *models.FeatureVector, _ models.RegimeLabel) (*models.Prediction, error) {
	if p.err != nil {
		return nil, p.err
	}
	return &models.Prediction{
		Model:      p.name,
		Symbol:     f.Symbol,
		Timestamp:  f.Timestamp,
		Direction:  p.dir,
		Confidence: p.conf,
	}, nil
}

func testArbiter(t *testing.T, preds ...domsvc.Predictor) (*Arbiter, *InstrumentState) {
	t.Helper()
	builder := features.NewBuilder(features.BuilderConfig{WindowSize: 8})
	detector := regime.NewDetector(regime.Config{ConfirmCount: 2})
	seq := 0
	a := NewArbiter(
		builder,
		detector,
		NewPredictorPool(preds),
		NewWeightedEnsemble(EnsembleConfig{}),
		NewGate(RiskGateConfig{MaxPerInstrument: 0.25}),
		NewOutcomeTracker(1e-4),
		WithIDFunc(func() string {
			seq++
			return fmt.Sprintf("sig-%06d", seq)
		}),
	)
	state := a.NewState(0.9, 0.5)("X:TEST")
	return a, state
}

func feedSnaps(t *testing.T, a *Arbiter, state *InstrumentState, n int, base float64) []*CycleResult {
	t.Helper()
	start := time.Date(2025, 6, 2, 9, 30, 0, 0, time.UTC)
	budget := &models.RiskBudget{Equity: 10000, PeakEquity: 10000, MaxExposure: 0.5}
	out := make([]*CycleResult, 0, n)
	for i := 0; i < n; i++ {
		price := base + float64(i)*0.5
		snap := &models.MarketSnapshot{
			Symbol:    "X:TEST",
			Timestamp: start.Add(time.Duration(i) * time.Minute),
			Bid:       price - 0.5,
			Ask:       price + 0.5,
			Last:      price,
			Volume:    100,
			Open:      price - 0.5,
			High:      price + 1,
			Low:       price - 1,
			Close:     price,
		}
		res, err := a.Decide(context.Background(), state, snap, budget)
		if errors.Is(err, models.ErrInsufficientHistory) {
			out = append(out, nil)
			continue
		}
		require.NoError(t, err)
		out = append(out, res)
	}
	return out
}

func TestDecideEmitsOneSignalPerCycleAfterWarmup(t *testing.T) {
	a, state := testArbiter(t, &stubPredictor{name: "up", dir: models.DirectionBuy, conf: 0.8})

	results := feedSnaps(t, a, state, 12, 100)
	for i := 7; i < 12; i++ {
		require.NotNil(t, results[i], "cycle %d", i)
		require.NotNil(t, results[i].Signal, "cycle %d", i)
		assert.Equal(t, fmt.Sprintf("sig-%06d", i-6), results[i].Signal.ID)
		assert.Equal(t, "X:TEST", results[i].Signal.Symbol)
	}
}

func TestDecideEmitsNothingUntilWindowFills(t *testing.T) {
	a, state := testArbiter(t, &stubPredictor{name: "up", dir: models.DirectionBuy, conf: 0.8})

	results := feedSnaps(t, a, state, 12, 100)
	for i := 0; i < 7; i++ {
		assert.Nil(t, results[i], "cycle %d", i)
	}
	require.NotNil(t, results[7])
	assert.Equal(t, models.DirectionBuy, results[11].Signal.Direction)
}

func TestDecideInsufficientHistoryIsAnError(t *testing.T) {
	a, state := testArbiter(t, &stubPredictor{name: "up", dir: models.DirectionBuy, conf: 0.8})

	snap := &models.MarketSnapshot{
		Symbol:    "X:TEST",
		Timestamp: time.Date(2025, 6, 2, 9, 30, 0, 0, time.UTC),
		Last:      100,
		Close:     100,
		Volume:    100,
	}
	res, err := a.Decide(context.Background(), state, snap, &models.RiskBudget{Equity: 10000, PeakEquity: 10000, MaxExposure: 0.5})
	assert.Nil(t, res)
	require.Error(t, err)
	assert.ErrorIs(t, err, models.ErrInsufficientHistory)
}

func TestDecideSurvivesFailingPredictor(t *testing.T) {
	a, state := testArbiter(t,
		&stubPredictor{name: "up", dir: models.DirectionBuy, conf: 0.8},
		&stubPredictor{name: "down", err: errors.New("backend gone")},
	)

	results := feedSnaps(t, a, state, 12, 100)
	last := results[11]
	require.NotNil(t, last.Signal)
	assert.Equal(t, models.DirectionBuy, last.Signal.Direction)
	assert.True(t, last.Degraded)
	assert.Contains(t, last.Signal.Provenance.Failed, "down")
	// 1-of-2 responders halves confidence relative to a full answer.
	assert.Equal(t, 1, last.Signal.Provenance.Responders)
	assert.Equal(t, 2, last.Signal.Provenance.TotalModels)
}

func TestDecideTagsVotesOutsideDeclaredRegimes(t *testing.T) {
	a, state := testArbiter(t,
		&stubPredictor{name: "anywhere", dir: models.DirectionBuy, conf: 0.8},
		&stubPredictor{name: "scoped", dir: models.DirectionBuy, conf: 0.8,
			regimes: []models.RegimeLabel{models.RegimeTrending, models.RegimeRanging}},
	)

	// The wide quotes in feedSnaps classify as illiquid, which is outside
	// the scoped model's declared list.
	results := feedSnaps(t, a, state, 12, 100)
	last := results[11]
	require.NotNil(t, last)
	byModel := make(map[string]*models.PredictorResult, len(last.Results))
	for _, r := range last.Results {
		byModel[r.Model] = r
	}
	require.Contains(t, byModel, "anywhere")
	require.Contains(t, byModel, "scoped")
	assert.False(t, byModel["anywhere"].OutOfRegime)
	assert.True(t, byModel["scoped"].OutOfRegime)
}

func TestDecideAllPredictorsFailingHolds(t *testing.T) {
	a, state := testArbiter(t,
		&stubPredictor{name: "a", err: errors.New("down")},
		&stubPredictor{name: "b", err: errors.New("down")},
	)

	results := feedSnaps(t, a, state, 12, 100)
	last := results[11]
	assert.Equal(t, models.DirectionHold, last.Signal.Direction)
	assert.True(t, last.Degraded)
	assert.False(t, last.Signal.Actionable())
}

func TestDecideRejectsMisroutedSnapshot(t *testing.T) {
	a, state := testArbiter(t, &stubPredictor{name: "up", dir: models.DirectionBuy, conf: 0.8})

	_, err := a.Decide(context.Background(), state, &models.MarketSnapshot{
		Symbol:    "X:OTHER",
		Timestamp: time.Now(),
	}, nil)
	assert.Error(t, err)
}

func TestDecideGradesLastCycle(t *testing.T) {
	a, state := testArbiter(t, &stubPredictor{name: "up", dir: models.DirectionBuy, conf: 0.8})

	// Rising prices make every graded buy correct, so reliability climbs
	// above the prior once grading starts.
	feedSnaps(t, a, state, 16, 100)
	got := state.Reliability.Score("up", state.Regime.Current)
	assert.Greater(t, got, 0.5)
}

func TestMissedTickSignal(t *testing.T) {
	a, _ := testArbiter(t, &stubPredictor{name: "up", dir: models.DirectionBuy, conf: 0.8})

	ts := time.Date(2025, 6, 2, 10, 0, 0, 0, time.UTC)
	sig := a.MissedTickSignal("X:TEST", ts)
	assert.Equal(t, models.DirectionHold, sig.Direction)
	assert.Equal(t, ts, sig.Timestamp)
	require.NotEmpty(t, sig.Provenance.Adjustments)
	assert.Equal(t, "missed_tick", sig.Provenance.Adjustments[0].Rule)
}

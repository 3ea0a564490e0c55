package regime

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"SignalForge/internal/domain/models"
)

func vec(values map[string]float64) *models.FeatureVector {
	f := models.NewFeatureVector("X:TEST", time.Date(2025, 6, 2, 10, 0, 0, 0, time.UTC))
	for name, v := range values {
		f.Set(name, v)
	}
	return f
}

func calmVec() *models.FeatureVector {
	return vec(map[string]float64{
		models.FeatRealizedVol: 0.2,
		models.FeatSpreadBps:   2,
		models.FeatVolumeZ:     0,
		models.FeatEMAFastSlow: 1.0,
	})
}

func trendingVec() *models.FeatureVector {
	return vec(map[string]float64{
		models.FeatRealizedVol: 0.2,
		models.FeatSpreadBps:   2,
		models.FeatVolumeZ:     0,
		models.FeatEMAFastSlow: 1.01,
	})
}

func TestInitialStateUndetermined(t *testing.T) {
	d := NewDetector(Config{})
	state := d.Initial("X:TEST")
	assert.Equal(t, models.RegimeUndetermined, state.Current)
	assert.Equal(t, models.RegimeUndetermined, state.Candidate)
	assert.Zero(t, state.Streak)
}

func TestTransitionNeedsConfirmCount(t *testing.T) {
	d := NewDetector(Config{ConfirmCount: 3})
	state := d.Initial("X:TEST")

	label, change := d.Evaluate(state, trendingVec())
	assert.Equal(t, models.RegimeUndetermined, label)
	assert.Nil(t, change)

	label, change = d.Evaluate(state, trendingVec())
	assert.Equal(t, models.RegimeUndetermined, label)
	assert.Nil(t, change)

	label, change = d.Evaluate(state, trendingVec())
	assert.Equal(t, models.RegimeTrending, label)
	require.NotNil(t, change)
	assert.Equal(t, models.RegimeUndetermined, change.From)
	assert.Equal(t, models.RegimeTrending, change.To)
}

func TestSingleBarNoiseDoesNotFlip(t *testing.T) {
	d := NewDetector(Config{ConfirmCount: 3})
	state := d.Initial("X:TEST")
	for i := 0; i < 3; i++ {
		d.Evaluate(state, calmVec())
	}
	require.Equal(t, models.RegimeRanging, state.Current)

	// One noisy high-vol bar starts a candidate but does not commit.
	noisy := vec(map[string]float64{
		models.FeatRealizedVol: 2.0,
		models.FeatSpreadBps:   2,
		models.FeatVolumeZ:     0,
		models.FeatEMAFastSlow: 1.0,
	})
	label, change := d.Evaluate(state, noisy)
	assert.Equal(t, models.RegimeRanging, label)
	assert.Nil(t, change)

	// Agreement with the committed label clears the candidate again.
	label, change = d.Evaluate(state, calmVec())
	assert.Equal(t, models.RegimeRanging, label)
	assert.Nil(t, change)
	assert.Zero(t, state.Streak)
}

func TestCandidateSwitchRestartsStreak(t *testing.T) {
	d := NewDetector(Config{ConfirmCount: 2})
	state := d.Initial("X:TEST")

	d.Evaluate(state, trendingVec())
	assert.Equal(t, models.RegimeTrending, state.Candidate)
	assert.Equal(t, 1, state.Streak)

	d.Evaluate(state, calmVec())
	assert.Equal(t, models.RegimeRanging, state.Candidate)
	assert.Equal(t, 1, state.Streak)
}

func TestClassifyPriority(t *testing.T) {
	d := NewDetector(Config{ConfirmCount: 1})
	state := d.Initial("X:TEST")

	// Volatility dominates even when the bar also looks illiquid and trending.
	everything := vec(map[string]float64{
		models.FeatRealizedVol: 2.0,
		models.FeatSpreadBps:   100,
		models.FeatVolumeZ:     -3,
		models.FeatEMAFastSlow: 1.05,
	})
	label, _ := d.Evaluate(state, everything)
	assert.Equal(t, models.RegimeHighVol, label)

	// Illiquidity outranks trend.
	wide := vec(map[string]float64{
		models.FeatRealizedVol: 0.2,
		models.FeatSpreadBps:   100,
		models.FeatVolumeZ:     0,
		models.FeatEMAFastSlow: 1.05,
	})
	label, _ = d.Evaluate(state, wide)
	assert.Equal(t, models.RegimeIlliquid, label)
}

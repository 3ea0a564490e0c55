package middleware

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"SignalForge/internal/domain/models"
)

type recordingProc struct {
	got []*models.MarketSnapshot
	err error
}

func (p *recordingProc) Process(_ context.Context, s *models.MarketSnapshot) error {
	p.got = append(p.got, s)
	return p.err
}

type nopMetrics struct {
	errs map[string]int
}

func (m *nopMetrics) RecordSignal(string, string)            {}
func (m *nopMetrics) RecordPredictorOutcome(string, string)  {}
func (m *nopMetrics) RecordRegime(string, string)            {}
func (m *nopMetrics) RecordVeto(string)                      {}
func (m *nopMetrics) RecordMissedTick(string)                {}
func (m *nopMetrics) RecordMessageSent(string, string)       {}
func (m *nopMetrics) RecordLatency(string, float64)          {}
func (m *nopMetrics) RecordLastPrice(string, float64)        {}
func (m *nopMetrics) RecordError(kind string) {
	if m.errs == nil {
		m.errs = make(map[string]int)
	}
	m.errs[kind]++
}

func snap(symbol string, ts time.Time) *models.MarketSnapshot {
	return &models.MarketSnapshot{
		Symbol:    symbol,
		Timestamp: ts,
		Bid:       99.9,
		Ask:       100.1,
		Last:      100,
		Volume:    10,
	}
}

func TestPipelineForwardsValidSnapshot(t *testing.T) {
	proc := &recordingProc{}
	p := NewRealtimePipeline(proc, &nopMetrics{})

	err := p.Process(context.Background(), snap("X:TEST", time.Now()))
	require.NoError(t, err)
	require.Len(t, proc.got, 1)
	assert.Equal(t, "X:TEST", proc.got[0].Symbol)
}

func TestPipelineRejectsInvalidSnapshot(t *testing.T) {
	proc := &recordingProc{}
	m := &nopMetrics{}
	p := NewRealtimePipeline(proc, m)

	assert.Error(t, p.Process(context.Background(), nil))
	assert.Error(t, p.Process(context.Background(), snap("", time.Now())))
	assert.Error(t, p.Process(context.Background(), &models.MarketSnapshot{Symbol: "X:TEST", Timestamp: time.Now(), Bid: -1}))
	assert.Empty(t, proc.got)
	assert.Equal(t, 3, m.errs["pipeline_validate"])
}

func TestPipelineThrottlesPerSymbol(t *testing.T) {
	proc := &recordingProc{}
	m := &nopMetrics{}
	p := NewRealtimePipeline(proc, m, WithMaxRPS(1))

	now := time.Now()
	require.NoError(t, p.Process(context.Background(), snap("X:TEST", now)))
	// A second snapshot inside the same second is dropped without error.
	require.NoError(t, p.Process(context.Background(), snap("X:TEST", now.Add(10*time.Millisecond))))
	assert.Len(t, proc.got, 1)
	assert.Equal(t, 1, m.errs["pipeline_throttle"])

	// Another symbol has its own budget.
	require.NoError(t, p.Process(context.Background(), snap("X:OTHER", now)))
	assert.Len(t, proc.got, 2)
}

func TestPipelineBuffersOnDownstreamError(t *testing.T) {
	proc := &recordingProc{err: errors.New("store down")}
	m := &nopMetrics{}
	p := NewRealtimePipeline(proc, m, WithBufferSize(4))

	err := p.Process(context.Background(), snap("X:TEST", time.Now()))
	assert.Error(t, err)
	assert.Equal(t, 1, len(p.bufCh))
}

func TestPipelineAppliesTransform(t *testing.T) {
	proc := &recordingProc{}
	p := NewRealtimePipeline(proc, &nopMetrics{}, WithTransform(func(s *models.MarketSnapshot) *models.MarketSnapshot {
		s.Symbol = "X:" + s.Symbol
		return s
	}))

	require.NoError(t, p.Process(context.Background(), snap("TEST", time.Now())))
	require.Len(t, proc.got, 1)
	assert.Equal(t, "X:TEST", proc.got[0].Symbol)
}

package models

import "math"

// DecayFromHalfLife converts a half-life, measured in graded outcomes, into
// the per-update EWMA retention factor. After halfLife updates an old
// observation contributes half its original weight. Non-positive half-lives
// fall back to a retention of 0.9 (half-life of about 6.6 outcomes).
func DecayFromHalfLife(halfLife float64) float64 {
	if halfLife <= 0 {
		return 0.9
	}
	return math.Pow(0.5, 1/halfLife)
}

// ReliabilityBook tracks per-model, per-regime reliability scores in [0,1].
// Scores decay toward recent correctness with an exponential moving average
// and start at a configurable prior for unseen (model, regime) pairs.
type ReliabilityBook struct {
	Decay  float64
	Prior  float64
	Scores map[string]map[RegimeLabel]float64
}

// NewReliabilityBook builds an empty book with the given EWMA decay and prior.
func NewReliabilityBook(decay, prior float64) *ReliabilityBook {
	return &ReliabilityBook{
		Decay:  decay,
		Prior:  prior,
		Scores: make(map[string]map[RegimeLabel]float64),
	}
}

// Score returns the current reliability for a model under a regime,
// falling back to the prior when the pair has never been updated.
func (b *ReliabilityBook) Score(model string, regime RegimeLabel) float64 {
	if byRegime, ok := b.Scores[model]; ok {
		if s, ok := byRegime[regime]; ok {
			return s
		}
	}
	return b.Prior
}

// Update folds one outcome into the EWMA for the (model, regime) pair.
// correct is 1 for a right call and 0 for a wrong one.
func (b *ReliabilityBook) Update(model string, regime RegimeLabel, correct float64) {
	old := b.Score(model, regime)
	next := b.Decay*old + (1-b.Decay)*correct
	byRegime, ok := b.Scores[model]
	if !ok {
		byRegime = make(map[RegimeLabel]float64)
		b.Scores[model] = byRegime
	}
	byRegime[regime] = next
}

// Clone returns a deep copy so backtests can mutate reliability state
// without touching the live book.
func (b *ReliabilityBook) Clone() *ReliabilityBook {
	cp := NewReliabilityBook(b.Decay, b.Prior)
	for model, byRegime := range b.Scores {
		inner := make(map[RegimeLabel]float64, len(byRegime))
		for regime, s := range byRegime {
			inner[regime] = s
		}
		cp.Scores[model] = inner
	}
	return cp
}

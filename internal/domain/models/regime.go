package models

import "time"

// RegimeLabel classifies the prevailing market condition for one instrument.
type RegimeLabel string

const (
	// RegimeUndetermined is the state before enough history has accumulated
	// to classify. Conservative defaults apply while in it.
	RegimeUndetermined RegimeLabel = "undetermined"
	RegimeTrending     RegimeLabel = "trending"
	RegimeRanging      RegimeLabel = "ranging"
	RegimeHighVol      RegimeLabel = "high_volatility"
	RegimeIlliquid     RegimeLabel = "illiquid"
)

// AllRegimes lists every label the detector can emit, in a stable order.
func AllRegimes() []RegimeLabel {
	return []RegimeLabel{RegimeUndetermined, RegimeTrending, RegimeRanging, RegimeHighVol, RegimeIlliquid}
}

// RegimeState is the detector's view of one instrument, including the
// hysteresis bookkeeping needed to resume deterministically after a clone.
type RegimeState struct {
	Symbol    string
	Current   RegimeLabel
	Candidate RegimeLabel
	// Streak counts consecutive evaluations agreeing with Candidate.
	Streak      int
	LastChange  time.Time
	Evaluations int64
}

// Clone returns an independent copy.
func (s *RegimeState) Clone() *RegimeState {
	cp := *s
	return &cp
}

// RegimeChange records a committed transition, kept for diagnostics.
type RegimeChange struct {
	Symbol    string
	From      RegimeLabel
	To        RegimeLabel
	Timestamp time.Time
}

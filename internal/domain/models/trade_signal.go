package models

import "time"

// ModelVote records one contributing model inside a signal's provenance.
type ModelVote struct {
	Model       string    `json:"model"`
	Direction   Direction `json:"direction"`
	Confidence  float64   `json:"confidence"`
	Weight      float64   `json:"weight"`
	Reliability float64   `json:"reliability"`
	OutOfRegime bool      `json:"out_of_regime,omitempty"`
}

// RiskAdjustment records one action the risk gate applied, in order.
type RiskAdjustment struct {
	Rule   string  `json:"rule"`
	Reason string  `json:"reason"`
	Factor float64 `json:"factor,omitempty"`
}

// Provenance explains how a signal was produced: the regime it was decided
// under, every model that answered or failed, and every risk adjustment.
type Provenance struct {
	Regime       RegimeLabel      `json:"regime"`
	SchemaID     string           `json:"schema_id"`
	Votes        []ModelVote      `json:"votes"`
	Failed       []string         `json:"failed,omitempty"`
	Responders   int              `json:"responders"`
	TotalModels  int              `json:"total_models"`
	Adjustments  []RiskAdjustment `json:"adjustments,omitempty"`
	FeatureClock time.Time        `json:"feature_clock"`
}

// TradeSignal is the single output of one decision cycle.
type TradeSignal struct {
	ID         string      `json:"id"`
	Symbol     string      `json:"symbol"`
	Timestamp  time.Time   `json:"timestamp"`
	Direction  Direction   `json:"direction"`
	Confidence float64     `json:"confidence"` // [0,1]
	Size       float64     `json:"size"`       // fraction of equity, >= 0
	Provenance *Provenance `json:"provenance,omitempty"`
}

// Actionable reports whether the signal asks for a trade at all.
func (s *TradeSignal) Actionable() bool {
	return s.Direction != DirectionHold && s.Size > 0
}

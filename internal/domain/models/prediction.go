package models

import "time"

// Direction is the discrete stance a predictor or signal takes.
type Direction string

const (
	DirectionBuy  Direction = "buy"
	DirectionSell Direction = "sell"
	DirectionHold Direction = "hold"
)

// Sign maps a direction onto {-1, 0, +1} for vote accumulation.
func (d Direction) Sign() float64 {
	switch d {
	case DirectionBuy:
		return 1
	case DirectionSell:
		return -1
	default:
		return 0
	}
}

// Valid reports whether d is one of the three known directions.
func (d Direction) Valid() bool {
	switch d {
	case DirectionBuy, DirectionSell, DirectionHold:
		return true
	}
	return false
}

// Prediction is a single model's opinion for one feature vector.
type Prediction struct {
	Model      string
	Symbol     string
	Timestamp  time.Time
	Direction  Direction
	Confidence float64 // [0,1]
	// Latency is how long the model took to answer; diagnostic only.
	Latency time.Duration
}

// PredictorResult pairs a prediction with the failure that prevented it.
// Exactly one of Prediction and Err is set.
type PredictorResult struct {
	Model      string
	Prediction *Prediction
	Err        error
	// OutOfRegime marks a vote cast under a regime the model was not
	// validated for. The ensemble down-weights it instead of dropping it.
	OutOfRegime bool
}

// Responded reports whether the predictor produced a usable answer.
func (r *PredictorResult) Responded() bool {
	return r.Err == nil && r.Prediction != nil
}

package models

import "errors"

var (
	// ErrInsufficientHistory means the feature builder has fewer points than
	// its window requires. Not a failure; the cycle resolves to hold.
	ErrInsufficientHistory = errors.New("insufficient history for feature window")

	// ErrModelTimeout means a predictor missed its per-model deadline.
	ErrModelTimeout = errors.New("model timed out")

	// ErrModelFailure means a predictor returned an error or an out-of-range answer.
	ErrModelFailure = errors.New("model failed")

	// ErrSchemaMismatch means a predictor declared a feature schema the
	// builder does not produce.
	ErrSchemaMismatch = errors.New("feature schema mismatch")

	// ErrNoSnapshots means a backtest window contains no replayable data.
	ErrNoSnapshots = errors.New("no snapshots in window")

	// ErrUnknownSymbol means no state exists for the requested instrument.
	ErrUnknownSymbol = errors.New("unknown symbol")
)

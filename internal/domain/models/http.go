package models

// Requests for the decision and backtest HTTP endpoints. Defined in domain
// for consistency and reuse.

type DecideRequest struct {
	Snapshot SnapshotPayload `json:"snapshot" validate:"required"`
}

// SnapshotPayload is the wire form of a MarketSnapshot.
type SnapshotPayload struct {
	Symbol    string  `json:"symbol" validate:"required"`
	Timestamp int64   `json:"timestamp" validate:"required,gt=0"` // unix ms
	Bid       float64 `json:"bid" validate:"gte=0"`
	Ask       float64 `json:"ask" validate:"gte=0"`
	Last      float64 `json:"last" validate:"gte=0"`
	Volume    float64 `json:"volume" validate:"gte=0"`
	Open      float64 `json:"open" validate:"gte=0"`
	High      float64 `json:"high" validate:"gte=0"`
	Low       float64 `json:"low" validate:"gte=0"`
	Close     float64 `json:"close" validate:"gte=0"`
}

type LatestSignalRequest struct {
	Symbol string `query:"symbol" json:"symbol" validate:"required"`
}

type RegimeRequest struct {
	Symbol string `query:"symbol" json:"symbol" validate:"required"`
}

type RecentSignalsRequest struct {
	Symbol string `query:"symbol" json:"symbol" validate:"required"`
	Limit  int    `query:"limit" json:"limit" default:"20" validate:"gte=1,lte=100"`
}

type BacktestSubmitRequest struct {
	Symbol         string  `json:"symbol" validate:"required"`
	From           string  `json:"from" validate:"required"`
	To             string  `json:"to"` // optional, defaults to now
	InitialEquity  float64 `json:"initial_equity" default:"10000" validate:"gt=0"`
	CostPerTurnBps float64 `json:"cost_per_turn_bps" default:"1" validate:"gte=0,lte=100"`
}

type BacktestStatusRequest struct {
	ID string `param:"id" json:"id" validate:"required,uuid4"`
}

package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// BacktestStatus tracks a run through the job queue.
type BacktestStatus string

const (
	BacktestQueued   BacktestStatus = "queued"
	BacktestRunning  BacktestStatus = "running"
	BacktestFinished BacktestStatus = "finished"
	BacktestFailed   BacktestStatus = "failed"
)

// BacktestSpec describes one replay: a symbol, a window and the capital to
// simulate with. Runs over the same spec and the same data are bit-identical.
type BacktestSpec struct {
	Symbol         string    `json:"symbol"`
	From           time.Time `json:"from"`
	To             time.Time `json:"to"`
	InitialEquity  float64   `json:"initial_equity"`
	CostPerTurnBps float64   `json:"cost_per_turn_bps"`
}

// SimTrade is one fill produced during replay.
type SimTrade struct {
	Timestamp time.Time       `json:"timestamp"`
	Direction Direction       `json:"direction"`
	Price     float64         `json:"price"`
	Size      float64         `json:"size"`
	PnL       decimal.Decimal `json:"pnl"`
	SignalID  string          `json:"signal_id"`
}

// EquityPoint is one sample of the equity curve.
type EquityPoint struct {
	Timestamp time.Time       `json:"timestamp"`
	Equity    decimal.Decimal `json:"equity"`
}

// BacktestStats are the summary numbers computed after a replay.
type BacktestStats struct {
	Snapshots    int             `json:"snapshots"`
	Signals      int             `json:"signals"`
	Trades       int             `json:"trades"`
	Wins         int             `json:"wins"`
	Losses       int             `json:"losses"`
	HitRate      float64         `json:"hit_rate"`
	NetPnL       decimal.Decimal `json:"net_pnl"`
	FinalEquity  decimal.Decimal `json:"final_equity"`
	MaxDrawdown  float64         `json:"max_drawdown"`
	SharpeRatio  float64         `json:"sharpe_ratio"`
	RegimeCounts map[RegimeLabel]int `json:"regime_counts"`
}

// BacktestRun is the persisted record of one replay request.
type BacktestRun struct {
	ID         string         `json:"id"`
	Spec       BacktestSpec   `json:"spec"`
	Status     BacktestStatus `json:"status"`
	Error      string         `json:"error,omitempty"`
	Stats      *BacktestStats `json:"stats,omitempty"`
	SubmittedAt time.Time     `json:"submitted_at"`
	FinishedAt  *time.Time    `json:"finished_at,omitempty"`
}

// BacktestResult is the full in-memory output of a replay, including the
// artifacts the writer persists.
type BacktestResult struct {
	Run     *BacktestRun
	Signals []*TradeSignal
	Trades  []SimTrade
	Equity  []EquityPoint
	Changes []RegimeChange
}

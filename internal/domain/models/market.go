package models

import "time"

// MarketSnapshot is a point-in-time view of one instrument. It is the unit
// of ingestion: every decision cycle and every backtest step consumes exactly
// one snapshot.
type MarketSnapshot struct {
	Symbol    string
	Timestamp time.Time
	Bid       float64
	Ask       float64
	Last      float64
	Volume    float64
	Open      float64
	High      float64
	Low       float64
	Close     float64
}

// Mid returns the bid/ask midpoint, falling back to Last when one side is missing.
func (s *MarketSnapshot) Mid() float64 {
	if s.Bid > 0 && s.Ask > 0 {
		return (s.Bid + s.Ask) / 2
	}
	return s.Last
}

// Spread returns the quoted spread, or zero when quotes are missing.
func (s *MarketSnapshot) Spread() float64 {
	if s.Bid > 0 && s.Ask > 0 && s.Ask >= s.Bid {
		return s.Ask - s.Bid
	}
	return 0
}

// Candle represents an OHLCV record used for history replay and feature warmup.
type Candle struct {
	Bucket time.Time
	Symbol string
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume float64
}

// Snapshot converts a candle into the snapshot shape consumed by the pipeline.
// Backtests replay candles, so bid/ask collapse onto the close.
func (c *Candle) Snapshot() *MarketSnapshot {
	return &MarketSnapshot{
		Symbol:    c.Symbol,
		Timestamp: c.Bucket,
		Bid:       c.Close,
		Ask:       c.Close,
		Last:      c.Close,
		Volume:    c.Volume,
		Open:      c.Open,
		High:      c.High,
		Low:       c.Low,
		Close:     c.Close,
	}
}

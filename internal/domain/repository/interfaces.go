package repository

import (
	"context"
	"time"

	"SignalForge/internal/domain/models"
)

type MarketStream interface {
	Connect(ctx context.Context) error
	Subscribe(ctx context.Context) error
	Read(ctx context.Context) (<-chan *models.MarketSnapshot, <-chan error)
	Reconnect(ctx context.Context) error
	Close() error
	IsConnected() bool
}

// SignalPublisher fans decided signals out to the audit topic.
type SignalPublisher interface {
	Publish(ctx context.Context, s *models.TradeSignal) error
	Close() error
}

// SnapshotStore persists ingested snapshots for later replay and warmup.
type SnapshotStore interface {
	Init(ctx context.Context) error // ensure tables, health checks
	Store(ctx context.Context, s *models.MarketSnapshot) error
	StoreBatch(ctx context.Context, snaps []*models.MarketSnapshot) error
	Query(ctx context.Context, symbol string, from, to time.Time, limit int) ([]*models.MarketSnapshot, error)
	Health(ctx context.Context) error // ping
	Close() error
}

// StateStore checkpoints the mutable decision state (reliability book,
// risk budget) so restarts resume instead of relearning.
type StateStore interface {
	SaveReliability(ctx context.Context, symbol string, book *models.ReliabilityBook) error
	LoadReliability(ctx context.Context, symbol string) (*models.ReliabilityBook, error)
	SaveRiskBudget(ctx context.Context, budget *models.RiskBudget) error
	LoadRiskBudget(ctx context.Context) (*models.RiskBudget, error)
}

// RunStore keeps backtest run records addressable by id.
type RunStore interface {
	SaveRun(ctx context.Context, run *models.BacktestRun) error
	GetRun(ctx context.Context, id string) (*models.BacktestRun, error)
}

type Metrics interface {
	RecordSignal(symbol string, direction string)
	RecordPredictorOutcome(model, outcome string)
	RecordRegime(symbol, regime string)
	RecordVeto(rule string)
	RecordMissedTick(symbol string)
	RecordMessageSent(backend, symbol string)
	RecordError(kind string)
	RecordLatency(op string, seconds float64)
	RecordLastPrice(symbol string, price float64)
}

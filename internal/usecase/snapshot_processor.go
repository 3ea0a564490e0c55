package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"SignalForge/internal/domain/models"
	drepo "SignalForge/internal/domain/repository"
)

// SnapshotProcessor is the downstream of the realtime pipeline: every
// accepted snapshot drives one decision cycle and is persisted for later
// replay. Persistence is batched; a full batch or the flush timer writes.
type SnapshotProcessor struct {
	engine  *Engine
	store   drepo.SnapshotStore
	metrics drepo.Metrics
	batchSz int
	batchTO time.Duration

	mu    sync.Mutex
	batch []*models.MarketSnapshot
	timer *time.Timer
}

// NewSnapshotProcessor creates a new SnapshotProcessor instance.
func NewSnapshotProcessor(
	engine *Engine,
	store drepo.SnapshotStore,
	metrics drepo.Metrics,
	batchSz int,
	batchTO time.Duration,
) *SnapshotProcessor {
	if batchSz <= 0 {
		batchSz = 100
	}
	if batchTO <= 0 {
		batchTO = 2 * time.Second
	}
	return &SnapshotProcessor{
		engine:  engine,
		store:   store,
		metrics: metrics,
		batchSz: batchSz,
		batchTO: batchTO,
	}
}

// Process decides on the snapshot and queues it for persistence.
func (p *SnapshotProcessor) Process(ctx context.Context, s *models.MarketSnapshot) error {
	if s == nil {
		return fmt.Errorf("snapshot is nil")
	}

	start := time.Now()
	err := p.engine.Process(ctx, s)
	switch {
	case err == nil:
		p.metrics.RecordLatency("process", time.Since(start).Seconds())
	case errors.Is(err, models.ErrInsufficientHistory):
		// Warm-up snapshot: no decision yet, but it is still history worth
		// keeping. Not a pipeline failure, so no retry.
	default:
		p.metrics.RecordError("process")
		return fmt.Errorf("process snapshot: %w", err)
	}

	p.enqueue(ctx, s)
	return nil
}

func (p *SnapshotProcessor) enqueue(ctx context.Context, s *models.MarketSnapshot) {
	p.mu.Lock()
	p.batch = append(p.batch, s)
	full := len(p.batch) >= p.batchSz
	if p.timer == nil {
		p.timer = time.AfterFunc(p.batchTO, func() { p.Flush(context.WithoutCancel(ctx)) })
	}
	p.mu.Unlock()

	if full {
		p.Flush(ctx)
	}
}

// Flush writes the pending batch to the snapshot store.
func (p *SnapshotProcessor) Flush(ctx context.Context) {
	p.mu.Lock()
	batch := p.batch
	p.batch = nil
	if p.timer != nil {
		p.timer.Stop()
		p.timer = nil
	}
	p.mu.Unlock()

	if len(batch) == 0 {
		return
	}

	start := time.Now()
	if err := p.store.StoreBatch(ctx, batch); err != nil {
		p.metrics.RecordError("store_batch")
		return
	}
	for _, s := range batch {
		p.metrics.RecordMessageSent("clickhouse", s.Symbol)
	}
	p.metrics.RecordLatency("store_batch", time.Since(start).Seconds())
}

// Close flushes what remains and releases the store.
func (p *SnapshotProcessor) Close() {
	p.Flush(context.Background())
	if p.store != nil {
		_ = p.store.Close()
	}
}

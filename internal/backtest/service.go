package backtest

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"SignalForge/internal/domain/models"
	domrepo "SignalForge/internal/domain/repository"
	"SignalForge/internal/services/features"
	"SignalForge/pkg/cache"
	xhttp "SignalForge/pkg/http"
	"SignalForge/pkg/queue"
)

// JobTypeRun is the queue message type for replay jobs.
const JobTypeRun = "backtest.run"

// runLockTTL caps how long a submission lock survives if the worker that
// should release it dies mid-run.
const runLockTTL = 30 * time.Minute

// ErrDuplicateRun rejects a submission while an identical spec is still
// queued or running.
var ErrDuplicateRun = errors.New("identical backtest already queued")

// Service accepts backtest submissions, parks them on the job queue and
// serves status lookups from the run store.
type Service struct {
	runs  domrepo.RunStore
	queue queue.QueueService
	locks cache.Service
}

func NewService(runs domrepo.RunStore, q queue.QueueService, locks cache.Service) *Service {
	return &Service{runs: runs, queue: q, locks: locks}
}

// runLockKey fingerprints the spec so identical submissions contend for the
// same lock regardless of run ID.
func runLockKey(spec models.BacktestSpec) string {
	fp := fmt.Sprintf("%s|%d|%d|%g|%g",
		spec.Symbol, spec.From.Unix(), spec.To.Unix(), spec.InitialEquity, spec.CostPerTurnBps)
	return cache.Key("backtest", "lock", cache.HashKey(fp))
}

// Submit validates the spec, records the run as queued and enqueues it.
func (s *Service) Submit(ctx context.Context, spec models.BacktestSpec) (*models.BacktestRun, error) {
	if spec.Symbol == "" {
		return nil, xhttp.BadRequestError("symbol required")
	}
	// Align the window to bar boundaries so repeated submissions of the
	// same logical range replay the same candles.
	spec.From, spec.To = features.AlignFromTo(spec.From, spec.To, string(domrepo.TF1m))
	if !spec.From.Before(spec.To) {
		return nil, xhttp.BadRequestError("from must be before to")
	}
	if spec.InitialEquity <= 0 {
		spec.InitialEquity = 10000
	}

	if s.locks != nil {
		ok, err := s.locks.TryLock(ctx, runLockKey(spec), runLockTTL)
		if err != nil {
			return nil, fmt.Errorf("acquire run lock: %w", err)
		}
		if !ok {
			return nil, ErrDuplicateRun
		}
	}

	run := &models.BacktestRun{
		ID:          uuid.NewString(),
		Spec:        spec,
		Status:      models.BacktestQueued,
		SubmittedAt: time.Now().UTC(),
	}
	if err := s.runs.SaveRun(ctx, run); err != nil {
		s.release(ctx, spec)
		return nil, fmt.Errorf("save run: %w", err)
	}
	if err := s.queue.PublishMessage(ctx, JobTypeRun, run); err != nil {
		s.release(ctx, spec)
		return nil, fmt.Errorf("enqueue run: %w", err)
	}
	return run, nil
}

func (s *Service) release(ctx context.Context, spec models.BacktestSpec) {
	if s.locks != nil {
		_ = s.locks.Unlock(ctx, runLockKey(spec))
	}
}

// Get returns the stored run record.
func (s *Service) Get(ctx context.Context, id string) (*models.BacktestRun, error) {
	return s.runs.GetRun(ctx, id)
}

// RunJob executes queued replays on queue workers.
type RunJob struct {
	runs     domrepo.RunStore
	replayer *Replayer
	writer   *Writer
	locks    cache.Service
}

func NewRunJob(runs domrepo.RunStore, replayer *Replayer, writer *Writer, locks cache.Service) *RunJob {
	return &RunJob{runs: runs, replayer: replayer, writer: writer, locks: locks}
}

func (j *RunJob) Name() string { return "backtest-run" }
func (j *RunJob) Type() string { return JobTypeRun }

func (j *RunJob) Handle(ctx context.Context, payload interface{}) error {
	run, err := queue.ParsePayload[models.BacktestRun](payload)
	if err != nil {
		return fmt.Errorf("parse run payload: %w", err)
	}
	if j.locks != nil {
		defer func() { _ = j.locks.Unlock(ctx, runLockKey(run.Spec)) }()
	}

	run.Status = models.BacktestRunning
	if err := j.runs.SaveRun(ctx, run); err != nil {
		return fmt.Errorf("mark running: %w", err)
	}

	result, err := j.replayer.Run(ctx, run)
	now := time.Now().UTC()
	run.FinishedAt = &now
	if err != nil {
		run.Status = models.BacktestFailed
		run.Error = err.Error()
		_ = j.runs.SaveRun(ctx, run)
		return err
	}

	if j.writer != nil {
		if werr := j.writer.Write(result); werr != nil {
			run.Error = werr.Error()
		}
	}
	run.Status = models.BacktestFinished
	return j.runs.SaveRun(ctx, run)
}

var _ queue.Job = (*RunJob)(nil)

package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"SignalForge/internal/domain/models"
	domrepo "SignalForge/internal/domain/repository"
	"SignalForge/pkg/cache"
)

const (
	reliabilityKeyPrefix = "state:reliability:"
	riskBudgetKey        = "state:risk_budget"
	runKeyPrefix         = "backtest:run:"

	// Backtest run records expire after a week; live state never does.
	runTTL = 7 * 24 * time.Hour
)

// CacheStateStore keeps decision state checkpoints in the cache backend
// (Redis in production, memory in tests). Implements both StateStore and
// RunStore.
type CacheStateStore struct {
	c cache.Service
}

func NewCacheStateStore(c cache.Service) *CacheStateStore {
	return &CacheStateStore{c: c}
}

func (s *CacheStateStore) SaveReliability(ctx context.Context, symbol string, book *models.ReliabilityBook) error {
	return s.c.Set(ctx, reliabilityKeyPrefix+symbol, book, 0)
}

func (s *CacheStateStore) LoadReliability(ctx context.Context, symbol string) (*models.ReliabilityBook, error) {
	var book models.ReliabilityBook
	err := s.c.Get(ctx, reliabilityKeyPrefix+symbol, &book)
	if err != nil {
		if errors.Is(err, cache.ErrCacheMiss) {
			return nil, nil
		}
		return nil, fmt.Errorf("load reliability %s: %w", symbol, err)
	}
	if book.Scores == nil {
		book.Scores = make(map[string]map[models.RegimeLabel]float64)
	}
	return &book, nil
}

func (s *CacheStateStore) SaveRiskBudget(ctx context.Context, budget *models.RiskBudget) error {
	return s.c.Set(ctx, riskBudgetKey, budget, 0)
}

func (s *CacheStateStore) LoadRiskBudget(ctx context.Context) (*models.RiskBudget, error) {
	var budget models.RiskBudget
	err := s.c.Get(ctx, riskBudgetKey, &budget)
	if err != nil {
		if errors.Is(err, cache.ErrCacheMiss) {
			return nil, nil
		}
		return nil, fmt.Errorf("load risk budget: %w", err)
	}
	return &budget, nil
}

func (s *CacheStateStore) SaveRun(ctx context.Context, run *models.BacktestRun) error {
	return s.c.Set(ctx, runKeyPrefix+run.ID, run, runTTL)
}

func (s *CacheStateStore) GetRun(ctx context.Context, id string) (*models.BacktestRun, error) {
	var run models.BacktestRun
	err := s.c.Get(ctx, runKeyPrefix+id, &run)
	if err != nil {
		if errors.Is(err, cache.ErrCacheMiss) {
			return nil, nil
		}
		return nil, fmt.Errorf("get run %s: %w", id, err)
	}
	return &run, nil
}

var (
	_ domrepo.StateStore = (*CacheStateStore)(nil)
	_ domrepo.RunStore   = (*CacheStateStore)(nil)
)

package predictors

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/sony/gobreaker"

	"SignalForge/internal/domain/models"
	svccache "SignalForge/internal/service/cache"
	"SignalForge/internal/service/ratelimit"
	xhttp "SignalForge/pkg/http"
)

// AdvisoryConfig configures the external advisory client.
type AdvisoryConfig struct {
	BaseURL string        `yaml:"base_url"`
	Timeout time.Duration `yaml:"timeout"`
	// RatePerSec caps outbound calls; bursts up to Burst are allowed.
	RatePerSec float64              `yaml:"rate_per_sec"`
	Burst      float64              `yaml:"burst"`
	CacheTTL   time.Duration        `yaml:"cache_ttl"`
	Regimes    []models.RegimeLabel `yaml:"regimes"`
}

type advisoryRequest struct {
	Symbol   string             `json:"symbol"`
	Regime   string             `json:"regime"`
	Features map[string]float64 `json:"features"`
}

type advisoryResponse struct {
	Direction  string  `json:"direction"`
	Confidence float64 `json:"confidence"`
	Rationale  string  `json:"rationale,omitempty"`
}

// Advisory consults an external language-model advisory service. It is the
// one non-deterministic predictor, so it is excluded from backtests and its
// failures must never delay the rest of the ensemble: a circuit breaker
// fails fast while the upstream is down and a token bucket caps call rate.
type Advisory struct {
	cfg     AdvisoryConfig
	client  *xhttp.Client
	breaker *gobreaker.CircuitBreaker
	limiter *ratelimit.Limiter
	cache   *svccache.TTLCache
}

func NewAdvisory(cfg AdvisoryConfig, limiter *ratelimit.Limiter) *Advisory {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 400 * time.Millisecond
	}
	if cfg.RatePerSec <= 0 {
		cfg.RatePerSec = 2
	}
	if cfg.Burst <= 0 {
		cfg.Burst = 5
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 5 * time.Second
	}
	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    "advisory",
		Timeout: 30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
	})
	return &Advisory{
		cfg:     cfg,
		client:  xhttp.NewClient(xhttp.WithTimeout(cfg.Timeout)),
		breaker: breaker,
		limiter: limiter,
		cache:   svccache.NewTTLCache(),
	}
}

func (a *Advisory) Name() string           { return "advisory" }
func (a *Advisory) SchemaID() string       { return models.SchemaScalperCoreV1 }
func (a *Advisory) Deterministic() bool    { return false }
func (a *Advisory) Timeout() time.Duration { return a.cfg.Timeout }

func (a *Advisory) Regimes() []models.RegimeLabel { return a.cfg.Regimes }

func (a *Advisory) Predict(ctx context.Context, f *models.FeatureVector, regime models.RegimeLabel) (*models.Prediction, error) {
	if err := checkSchema(a.SchemaID(), f); err != nil {
		return nil, err
	}
	if a.cfg.BaseURL == "" {
		return nil, fmt.Errorf("%w: advisory base url not configured", models.ErrModelFailure)
	}

	// Same bar, same answer: repeated cycles within the TTL reuse the
	// cached opinion instead of burning rate budget.
	key := f.Symbol + "/" + strconv.FormatInt(f.Timestamp.UnixMilli(), 10)
	if v, ok := a.cache.Get(key); ok {
		if p, ok := v.(*models.Prediction); ok {
			return p, nil
		}
	}

	if a.limiter != nil && !a.limiter.Allow("advisory", a.cfg.Burst, a.cfg.RatePerSec) {
		return nil, fmt.Errorf("%w: advisory rate limited", models.ErrModelFailure)
	}

	result, err := a.breaker.Execute(func() (interface{}, error) {
		var resp advisoryResponse
		err := a.client.SendAndParse(ctx, &xhttp.RequestOptions{
			Method: xhttp.MethodPost,
			URL:    a.cfg.BaseURL + "/advice",
			Headers: map[string]string{
				"Content-Type": "application/json",
			},
			Body: advisoryRequest{
				Symbol:   f.Symbol,
				Regime:   string(regime),
				Features: f.Named(),
			},
		}, &resp)
		if err != nil {
			return nil, err
		}
		return &resp, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrModelFailure, err)
	}

	resp := result.(*advisoryResponse)
	dir := models.Direction(resp.Direction)
	if !dir.Valid() {
		return nil, fmt.Errorf("%w: advisory returned direction %q", models.ErrModelFailure, resp.Direction)
	}

	p := &models.Prediction{
		Model:      a.Name(),
		Symbol:     f.Symbol,
		Timestamp:  f.Timestamp,
		Direction:  dir,
		Confidence: clamp01(resp.Confidence),
	}
	a.cache.Set(key, p, a.cfg.CacheTTL)
	return p, nil
}

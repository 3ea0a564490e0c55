package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	models "SignalForge/internal/domain/models"
	icache "SignalForge/internal/service/cache"
	"SignalForge/internal/service/metrics"
	"SignalForge/internal/service/ratelimit"
	"SignalForge/internal/usecase"
	applogger "SignalForge/pkg/logger"
)

// DecisionsHandler serves the read-only signal endpoints over plain net/http
// with short-TTL byte caching and per-client rate limiting. The write path
// (decide, backtest submission) stays on the Echo handler.
type DecisionsHandler struct {
	engine *usecase.Engine
	cache  icache.BytesCache
	rl     *ratelimit.Limiter
	l      *applogger.Logger
}

func NewDecisionsHandler(engine *usecase.Engine) *DecisionsHandler {
	metrics.Register()
	return &DecisionsHandler{engine: engine, rl: ratelimit.New()}
}

func (h *DecisionsHandler) SetCache(c icache.BytesCache) { h.cache = c }

// SetLogger injects a structured logger.
func (h *DecisionsHandler) SetLogger(l *applogger.Logger) { h.l = l }

func (h *DecisionsHandler) LatestSignal() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		endpoint := "latest"
		defer func() { metrics.APILatency.WithLabelValues(endpoint).Observe(time.Since(start).Seconds()) }()

		symbol := r.URL.Query().Get("symbol")
		if symbol == "" {
			if h.l != nil {
				h.l.Warn("decisions.latest missing symbol")
			}
			http.Error(w, "symbol required", http.StatusBadRequest)
			return
		}
		if !h.rl.Allow(r.RemoteAddr+":latest", 10, 5) {
			if h.l != nil {
				h.l.Warn("decisions.latest rate_limited", applogger.String("remote", r.RemoteAddr))
			}
			http.Error(w, "rate limited", http.StatusTooManyRequests)
			return
		}
		cacheKey := "latest:" + symbol
		if h.cache != nil {
			if b, ok, err := h.cache.GetBytes(cacheKey); err != nil {
				if h.l != nil {
					h.l.Warn("decisions.latest cache_get_error", applogger.Error(err))
				}
			} else if ok {
				w.Header().Set("Content-Type", "application/json")
				if h.l != nil {
					h.l.Debug("decisions.latest cache_hit", applogger.String("key", cacheKey))
				}
				if _, err := w.Write(b); err != nil && h.l != nil {
					h.l.Warn("decisions.latest write_error", applogger.Error(err))
				}
				return
			}
			if h.l != nil {
				h.l.Debug("decisions.latest cache_miss", applogger.String("key", cacheKey))
			}
		}
		sig, err := h.engine.Latest(symbol)
		if err != nil {
			if errors.Is(err, models.ErrUnknownSymbol) {
				http.Error(w, err.Error(), http.StatusNotFound)
				return
			}
			metrics.APIErrors.WithLabelValues(endpoint).Inc()
			if h.l != nil {
				h.l.Error("decisions.latest error", applogger.Error(err))
			}
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		h.writeCached(w, endpoint, cacheKey, sig, 2*time.Second)
	}
}

func (h *DecisionsHandler) Regime() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		endpoint := "regime"
		defer func() { metrics.APILatency.WithLabelValues(endpoint).Observe(time.Since(start).Seconds()) }()

		symbol := r.URL.Query().Get("symbol")
		if symbol == "" {
			if h.l != nil {
				h.l.Warn("decisions.regime missing symbol")
			}
			http.Error(w, "symbol required", http.StatusBadRequest)
			return
		}
		if !h.rl.Allow(r.RemoteAddr+":regime", 5, 2) {
			if h.l != nil {
				h.l.Warn("decisions.regime rate_limited", applogger.String("remote", r.RemoteAddr))
			}
			http.Error(w, "rate limited", http.StatusTooManyRequests)
			return
		}
		cacheKey := "regime:" + symbol
		if h.cache != nil {
			if b, ok, err := h.cache.GetBytes(cacheKey); err != nil {
				if h.l != nil {
					h.l.Warn("decisions.regime cache_get_error", applogger.Error(err))
				}
			} else if ok {
				w.Header().Set("Content-Type", "application/json")
				if _, err := w.Write(b); err != nil && h.l != nil {
					h.l.Warn("decisions.regime write_error", applogger.Error(err))
				}
				return
			}
		}
		state, err := h.engine.RegimeFor(symbol)
		if err != nil {
			if errors.Is(err, models.ErrUnknownSymbol) {
				http.Error(w, err.Error(), http.StatusNotFound)
				return
			}
			metrics.APIErrors.WithLabelValues(endpoint).Inc()
			if h.l != nil {
				h.l.Error("decisions.regime error", applogger.Error(err))
			}
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		h.writeCached(w, endpoint, cacheKey, state, 5*time.Second)
	}
}

func (h *DecisionsHandler) writeCached(w http.ResponseWriter, endpoint, key string, v interface{}, ttl time.Duration) {
	w.Header().Set("Content-Type", "application/json")
	b, err := json.Marshal(v)
	if err != nil {
		if h.l != nil {
			h.l.Error("decisions."+endpoint+" marshal_error", applogger.Error(err))
		}
		http.Error(w, "encode error", http.StatusInternalServerError)
		return
	}
	if h.cache != nil {
		if err := h.cache.SetBytes(key, b, ttl); err != nil && h.l != nil {
			h.l.Warn("decisions."+endpoint+" cache_set_error", applogger.Error(err))
		}
	}
	if _, err := w.Write(b); err != nil && h.l != nil {
		h.l.Warn("decisions."+endpoint+" write_error", applogger.Error(err))
	}
}

package api

import (
	"errors"
	"time"

	"SignalForge/internal/backtest"
	models "SignalForge/internal/domain/models"
	"SignalForge/internal/usecase"
	xhttp "SignalForge/pkg/http"
	xlogger "SignalForge/pkg/logger"

	"github.com/labstack/echo/v4"
)

// DecisionsEchoHandler implements Echo-based HTTP handlers following Clean Architecture.
type DecisionsEchoHandler struct {
	logger    *xlogger.Logger
	engine    *usecase.Engine
	backtests *backtest.Service
	public    *DecisionsHandler
	reload    func() error
}

func NewDecisionsEchoHandler(logger *xlogger.Logger, engine *usecase.Engine, backtests *backtest.Service) *DecisionsEchoHandler {
	return &DecisionsEchoHandler{logger: logger, engine: engine, backtests: backtests}
}

// SetPublicHandler mounts the cached, rate-limited read handlers under /api/public.
func (h *DecisionsEchoHandler) SetPublicHandler(p *DecisionsHandler) { h.public = p }

// SetReloadFunc enables POST /api/config/reload. The callback re-reads the
// config file and swaps the tunable sections in.
func (h *DecisionsEchoHandler) SetReloadFunc(f func() error) { h.reload = f }

func (h *DecisionsEchoHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api")
	g.POST("/decide", h.Decide)
	g.GET("/signals/latest", h.Latest)
	g.GET("/signals/recent", h.Recent)
	g.GET("/regime", h.Regime)
	g.POST("/backtest", h.SubmitBacktest)
	g.GET("/backtest/:id", h.BacktestStatus)
	if h.reload != nil {
		g.POST("/config/reload", h.ReloadConfig)
	}
	if h.public != nil {
		g.GET("/public/signals/latest", echo.WrapHandler(h.public.LatestSignal()))
		g.GET("/public/regime", echo.WrapHandler(h.public.Regime()))
	}
}

// Decide feeds one snapshot through a full decision cycle and returns the
// resulting signal.
func (h *DecisionsEchoHandler) Decide(c echo.Context) error {
	req := &models.DecideRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	p := req.Snapshot
	snap := &models.MarketSnapshot{
		Symbol:    p.Symbol,
		Timestamp: time.UnixMilli(p.Timestamp).UTC(),
		Bid:       p.Bid,
		Ask:       p.Ask,
		Last:      p.Last,
		Volume:    p.Volume,
		Open:      p.Open,
		High:      p.High,
		Low:       p.Low,
		Close:     p.Close,
	}

	if err := h.engine.Process(c.Request().Context(), snap); err != nil {
		if errors.Is(err, models.ErrInsufficientHistory) {
			return xhttp.BadRequestResponse(c, "insufficient history, no decision this tick")
		}
		h.logger.Error("decide usecase error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	sig, err := h.engine.Latest(p.Symbol)
	if err != nil {
		h.logger.Error("decide latest error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.SuccessResponse(c, sig)
}

func (h *DecisionsEchoHandler) Latest(c echo.Context) error {
	req := &models.LatestSignalRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	sig, err := h.engine.Latest(req.Symbol)
	if err != nil {
		if errors.Is(err, models.ErrUnknownSymbol) {
			return xhttp.NotFoundResponse(c, err.Error())
		}
		h.logger.Error("latest usecase error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.SuccessResponse(c, sig)
}

func (h *DecisionsEchoHandler) Recent(c echo.Context) error {
	req := &models.RecentSignalsRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	sigs, err := h.engine.Recent(req.Symbol, req.Limit)
	if err != nil {
		if errors.Is(err, models.ErrUnknownSymbol) {
			return xhttp.NotFoundResponse(c, err.Error())
		}
		h.logger.Error("recent usecase error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.ListResponse(c, sigs, int64(len(sigs)))
}

func (h *DecisionsEchoHandler) Regime(c echo.Context) error {
	req := &models.RegimeRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	state, err := h.engine.RegimeFor(req.Symbol)
	if err != nil {
		if errors.Is(err, models.ErrUnknownSymbol) {
			return xhttp.NotFoundResponse(c, err.Error())
		}
		h.logger.Error("regime usecase error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.SuccessResponse(c, state)
}

func (h *DecisionsEchoHandler) SubmitBacktest(c echo.Context) error {
	req := &models.BacktestSubmitRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	from, ok := xhttp.ParseTime(req.From)
	if !ok {
		return xhttp.BadRequestResponse(c, "from must be RFC3339 or unix seconds")
	}
	to := xhttp.ParseTimeDefault(req.To, time.Now().UTC())
	if !to.After(from) {
		return xhttp.BadRequestResponse(c, "to must be after from")
	}

	run, err := h.backtests.Submit(c.Request().Context(), models.BacktestSpec{
		Symbol:         req.Symbol,
		From:           from.UTC(),
		To:             to.UTC(),
		InitialEquity:  req.InitialEquity,
		CostPerTurnBps: req.CostPerTurnBps,
	})
	if err != nil {
		if errors.Is(err, backtest.ErrDuplicateRun) {
			return xhttp.ConflictResponse(c, err.Error())
		}
		h.logger.Error("backtest submit error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.CreatedResponse(c, run)
}

// ReloadConfig re-reads the config file and applies the tunable sections.
// Predictor topology is fixed at startup, so only runtime limits move.
func (h *DecisionsEchoHandler) ReloadConfig(c echo.Context) error {
	if err := h.reload(); err != nil {
		h.logger.Error("config reload error", xlogger.Error(err))
		return xhttp.BadRequestResponse(c, err.Error())
	}
	h.logger.Info("config reloaded")
	return xhttp.SuccessResponse(c, map[string]string{"status": "reloaded"})
}

func (h *DecisionsEchoHandler) BacktestStatus(c echo.Context) error {
	req := &models.BacktestStatusRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	run, err := h.backtests.Get(c.Request().Context(), req.ID)
	if err != nil {
		h.logger.Error("backtest status error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	if run == nil {
		return xhttp.NotFoundResponse(c, "backtest run not found")
	}
	return xhttp.SuccessResponse(c, run)
}

package server

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"SignalForge/internal/domain/models"
	"SignalForge/internal/usecase"
	pkgch "SignalForge/pkg/clickhouse"
	"SignalForge/pkg/config"
	xhttp "SignalForge/pkg/http"
	pkgkafka "SignalForge/pkg/kafka"
	applogger "SignalForge/pkg/logger"
	"SignalForge/pkg/queue"
)

// App encapsulates the entire application lifecycle.
type App struct {
	cfg         *config.Config
	collector   *usecase.SnapshotCollector
	consumer    *pkgkafka.Consumer
	kh          pkgkafka.MessageHandler
	chClient    *pkgch.Client
	httpServer  *xhttp.Server
	httpHandler xhttp.Handler
	engine      *usecase.Engine
	warmup      *usecase.Warmup
	jobQueue    *queue.RedisQueue
	logger      *applogger.Logger
	Proc        *usecase.SnapshotProcessor
}

// New creates a new App instance with all dependencies.
func New(
	cfg *config.Config,
	collector *usecase.SnapshotCollector,
	consumer *pkgkafka.Consumer,
	kh pkgkafka.MessageHandler,
	chClient *pkgch.Client,
) *App {
	return &App{
		cfg:       cfg,
		collector: collector,
		consumer:  consumer,
		kh:        kh,
		chClient:  chClient,
	}
}

// SetHTTPHandler allows DI to inject an HTTP handler.
func (a *App) SetHTTPHandler(h xhttp.Handler) { a.httpHandler = h }

// SetEngine allows DI to inject the decision engine for restore and warmup.
func (a *App) SetEngine(e *usecase.Engine) { a.engine = e }

// SetWarmup allows DI to inject the history warmup step.
func (a *App) SetWarmup(w *usecase.Warmup) { a.warmup = w }

// SetJobQueue allows DI to inject the backtest job consumer.
func (a *App) SetJobQueue(q *queue.RedisQueue) { a.jobQueue = q }

// SetLogger allows DI to inject the shared application logger.
func (a *App) SetLogger(l *applogger.Logger) { a.logger = l }

func (a *App) log() *applogger.Logger {
	if a.logger != nil {
		return a.logger
	}
	l, err := applogger.New(&applogger.Config{Level: "info", Format: "console", Output: "stdout"})
	if err != nil {
		log.Printf("fallback logger: %v", err)
		l, _ = applogger.New(&applogger.Config{Level: "info", Format: "json", Output: "stderr"})
	}
	a.logger = l
	return l
}

// Run starts the application and blocks until interrupted.
func (a *App) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	l := a.log()

	a.httpServer = xhttp.NewServer(a.httpHandler,
		xhttp.WithPort(a.cfg.Server.Port),
		xhttp.WithTimeouts(a.cfg.Server.ReadTimeout.Std(), a.cfg.Server.WriteTimeout.Std(), a.cfg.Server.ShutdownTimeout.Std()),
		xhttp.WithLogger(l),
	)

	// Restore persisted reliability and budget, then replay recent history
	// through the feature windows before accepting live ticks.
	if a.engine != nil {
		initial := &models.RiskBudget{
			Equity:      a.cfg.Risk.InitialEquity,
			PeakEquity:  a.cfg.Risk.InitialEquity,
			MaxExposure: a.cfg.Risk.MaxExposure,
			Positions:   make(map[string]*models.PositionState),
		}
		a.engine.Restore(ctx, initial)
		l.Info("engine state restored")
	}
	if a.warmup != nil {
		if err := a.warmup.Run(ctx, a.cfg.Feed.Symbols); err != nil {
			l.Warn("warmup error", applogger.Error(err))
		} else {
			l.Info("warmup complete", applogger.Strings("symbols", a.cfg.Feed.Symbols))
		}
	}

	// Start collector
	go func() {
		if err := a.collector.Start(ctx); err != nil {
			l.Error("collector error", applogger.Error(err))
		}
	}()
	l.Info("collector started", applogger.Strings("symbols", a.cfg.Feed.Symbols))

	// Start consumer if configured
	if a.consumer != nil && a.kh != nil {
		a.consumer.RegisterHandler(a.kh)
		go func() {
			if err := a.consumer.Start(); err != nil {
				l.Error("kafka consumer error", applogger.Error(err))
			}
		}()
		l.Info("kafka consumer started", applogger.String("topic", a.kh.Topic()))
	}

	// Start backtest job workers
	if a.jobQueue != nil {
		if err := a.jobQueue.Start(); err != nil {
			l.Error("job queue start error", applogger.Error(err))
		} else {
			l.Info("backtest workers started")
		}
	}

	// Start HTTP server
	if err := a.httpServer.Start(); err != nil {
		l.Error("http server start error", applogger.Error(err))
		return err
	}

	// Wait for interrupt
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	l.Info("shutdown signal received")
	return a.shutdown(ctx)
}

// shutdown gracefully stops all services.
func (a *App) shutdown(ctx context.Context) error {
	l := a.log()
	l.Info("shutting down...")

	// Stop collector (pipeline + stream)
	if err := a.collector.Shutdown(ctx); err != nil {
		l.Warn("collector stop error", applogger.Error(err))
	}

	// Shutdown HTTP server
	shutdownCtx, cancel := context.WithTimeout(ctx, a.cfg.Server.ShutdownTimeout.Std())
	defer cancel()
	if err := a.httpServer.Stop(shutdownCtx); err != nil {
		l.Error("http shutdown error", applogger.Error(err))
	}

	// Stop backtest workers
	if a.jobQueue != nil {
		if err := a.jobQueue.Stop(shutdownCtx); err != nil {
			l.Warn("job queue stop error", applogger.Error(err))
		}
	}

	// Stop consumer
	if a.consumer != nil {
		if err := a.consumer.Stop(ctx); err != nil {
			l.Warn("kafka consumer stop error", applogger.Error(err))
		}
	}

	// Close infrastructure clients
	if a.chClient != nil {
		if err := a.chClient.Close(); err != nil {
			l.Warn("clickhouse close error", applogger.Error(err))
		}
	}

	// Flush and close the snapshot processor (publisher/storage)
	if a.Proc != nil {
		a.Proc.Close()
	}

	l.Info("shutdown complete")
	// Final flush of any aggregated error batch.
	l.RemoveCollector()
	return nil
}

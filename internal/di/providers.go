package di

import (
	"context"
	"fmt"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"SignalForge/internal/backtest"
	"SignalForge/internal/domain/models"
	"SignalForge/internal/domain/repository"
	domsvc "SignalForge/internal/domain/service"
	"SignalForge/internal/handler/api"
	mid "SignalForge/internal/middleware"
	internalrepo "SignalForge/internal/repository"
	svccache "SignalForge/internal/service/cache"
	"SignalForge/internal/service/feed"
	"SignalForge/internal/service/ratelimit"
	"SignalForge/internal/services/features"
	"SignalForge/internal/services/predictors"
	"SignalForge/internal/services/regime"
	"SignalForge/internal/usecase"
	pkgcache "SignalForge/pkg/cache"
	pkgch "SignalForge/pkg/clickhouse"
	"SignalForge/pkg/config"
	pkgkafka "SignalForge/pkg/kafka"
	applogger "SignalForge/pkg/logger"
	"SignalForge/pkg/metrics"
	"SignalForge/pkg/queue"
	"SignalForge/pkg/server"
)

// ProvideLogger creates the application logger.
func ProvideLogger(cfg *config.Config) (*applogger.Logger, error) {
	level := "info"
	format := "json"
	if cfg.Environment == "development" {
		level = "debug"
		format = "console"
	}
	return applogger.New(&applogger.Config{Level: level, Format: format, Output: "stdout"})
}

// ProvideClickHouseClient creates a ClickHouse client.
func ProvideClickHouseClient(cfg *config.Config) (*pkgch.Client, error) {
	client, err := pkgch.NewClient(
		pkgch.WithHost(cfg.ClickHouse.Host),
		pkgch.WithPort(cfg.ClickHouse.Port),
		pkgch.WithDatabase(cfg.ClickHouse.Database),
		pkgch.WithCredentials(cfg.ClickHouse.User, cfg.ClickHouse.Password),
		pkgch.WithMaxConnections(10, 5),
		pkgch.WithHTTP(cfg.ClickHouse.UseHTTP),
		pkgch.WithAsyncInsert(cfg.ClickHouse.AsyncInsert, cfg.ClickHouse.WaitForAsync),
		pkgch.WithTimeouts(cfg.ClickHouse.DialTimeout.Std(), cfg.ClickHouse.ReadTimeout.Std(), cfg.ClickHouse.WriteTimeout.Std()),
		pkgch.WithMaxExecutionTime(cfg.ClickHouse.MaxExecutionTime.Std()),
	)
	if err != nil {
		return nil, fmt.Errorf("clickhouse client: %w", err)
	}

	// Initialize schema
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := client.InitSchema(ctx, []string{
		"CREATE DATABASE IF NOT EXISTS signalforge",
		"CREATE TABLE IF NOT EXISTS signalforge.rt_snapshots (ts DateTime64(3), symbol String, bid Float64, ask Float64, last Float64, volume Float64, open Float64, high Float64, low Float64, close Float64) ENGINE=MergeTree ORDER BY (symbol, ts)",
		"CREATE TABLE IF NOT EXISTS signalforge.rt_candles_1s (bucket DateTime, symbol String, open Float64, high Float64, low Float64, close Float64, volume Float64) ENGINE=MergeTree ORDER BY (symbol, bucket)",
		"CREATE TABLE IF NOT EXISTS signalforge.rt_candles_1m (bucket DateTime, symbol String, open Float64, high Float64, low Float64, close Float64, volume Float64) ENGINE=MergeTree ORDER BY (symbol, bucket)",
	}); err != nil {
		_ = client.Close() // cannot log here (DI layer no logger); propagate error
		return nil, fmt.Errorf("clickhouse schema: %w", err)
	}

	return client, nil
}

// ProvideKafkaProducer creates a Kafka producer.
func ProvideKafkaProducer(cfg *config.Config) (*pkgkafka.Producer, error) {
	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithCompression(cfg.Kafka.Compression),
		pkgkafka.WithRequiredAcks(cfg.Kafka.RequiredAcks),
		pkgkafka.WithBatchSize(cfg.Kafka.Producer.BatchSize),
		pkgkafka.WithBatchBytes(cfg.Kafka.Producer.BatchBytes),
		pkgkafka.WithBatchTimeout(cfg.Kafka.Producer.Linger.Std()),
		pkgkafka.WithTimeouts(cfg.Kafka.Producer.WriteTimeout.Std(), cfg.Kafka.Producer.ReadTimeout.Std()),
		pkgkafka.WithMaxAttempts(cfg.Kafka.Producer.MaxAttempts),
		pkgkafka.WithAsync(cfg.Kafka.Producer.Async),
		pkgkafka.WithHashByKey(true),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}

	return producer, nil
}

// ProvideKafkaConsumer creates a Kafka consumer configured from YAML. Returns
// nil when the snapshot consumer is disabled.
func ProvideKafkaConsumer(cfg *config.Config) (*pkgkafka.Consumer, error) {
	if !cfg.Kafka.Consumer.Enabled {
		return nil, nil
	}
	consumer, err := pkgkafka.NewConsumer(
		pkgkafka.WithConsumerBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithConsumerGroupID(cfg.Kafka.Consumer.GroupID),
		pkgkafka.WithConsumerWorkers(cfg.Kafka.Consumer.Workers),
		pkgkafka.WithConsumerBufferSize(cfg.Kafka.Consumer.BufferSize),
		pkgkafka.WithConsumerRetry(cfg.Kafka.Consumer.RetryMax, cfg.Kafka.Consumer.BackoffMin.Std(), cfg.Kafka.Consumer.BackoffMax.Std()),
		pkgkafka.WithConsumerDLQ(cfg.Kafka.Consumer.DLQTopic),
		pkgkafka.WithConsumerFetch(cfg.Kafka.Consumer.MinBytes, cfg.Kafka.Consumer.MaxBytes),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka consumer: %w", err)
	}
	return consumer, nil
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics() repository.Metrics {
	return metrics.New()
}

// ProvideRedisCache creates the Redis cache client.
func ProvideRedisCache(cfg *config.Config) (*pkgcache.RedisCache, error) {
	opts := []pkgcache.RedisOption{
		pkgcache.WithRedisHost(cfg.Redis.Host),
		pkgcache.WithRedisPort(cfg.Redis.Port),
		pkgcache.WithRedisPassword(cfg.Redis.Password),
		pkgcache.WithRedisDB(cfg.Redis.DB),
	}
	if cfg.Redis.PoolSize > 0 {
		opts = append(opts, pkgcache.WithRedisPool(cfg.Redis.PoolSize, cfg.Redis.MinIdleConns, cfg.Redis.PoolTimeout.Std()))
	}
	if cfg.Redis.Prefix != "" {
		opts = append(opts, pkgcache.WithRedisPrefix(cfg.Redis.Prefix))
	}
	return pkgcache.NewRedisCache(opts...)
}

// ProvideStateStore creates the state and run store on a layered cache so
// hot reliability reads stay in process memory.
func ProvideStateStore(rc *pkgcache.RedisCache) *internalrepo.CacheStateStore {
	return internalrepo.NewCacheStateStore(pkgcache.NewLayeredCache(rc, pkgcache.WithLayeredMemorySize(4096)))
}

// ProvideSnapshotStore creates ClickHouse snapshot storage.
func ProvideSnapshotStore(chClient *pkgch.Client, cfg *config.Config) repository.SnapshotStore {
	return internalrepo.NewClickHouseSnapshots(chClient.DB(), cfg.ClickHouse.Database+".rt_snapshots")
}

// ProvideSignalPublisher creates the Kafka signal publisher.
func ProvideSignalPublisher(producer *pkgkafka.Producer, cfg *config.Config) repository.SignalPublisher {
	return internalrepo.NewKafkaSignalPublisher(producer, cfg.Kafka.SignalsTopic)
}

// ProvideHistorySource selects the candle history backend for warmup and replay.
func ProvideHistorySource(chClient *pkgch.Client, cfg *config.Config) (repository.HistorySource, error) {
	if cfg.Backtest.HistoryBackend == "sqlite" {
		return internalrepo.OpenSQLiteHistory(cfg.Backtest.SQLitePath)
	}
	return internalrepo.NewCHHistory(chClient), nil
}

// ProvideFeedStream creates the market data WebSocket stream.
func ProvideFeedStream(cfg *config.Config, l *applogger.Logger) repository.MarketStream {
	return feed.New(
		cfg.Feed.APIKey,
		cfg.Feed.WebSocketURL,
		cfg.Feed.Symbols,
		cfg.Feed.ReconnectDelay.Std(),
		cfg.Feed.PingInterval.Std(),
		l,
	)
}

// ProvideFeatureBuilder creates the feature builder from config.
func ProvideFeatureBuilder(cfg *config.Config) *features.Builder {
	return features.NewBuilder(features.BuilderConfig{
		WindowSize: cfg.Features.WindowSize,
		EMAFast:    cfg.Features.EMAFast,
		EMASlow:    cfg.Features.EMASlow,
		RSIPeriod:  cfg.Features.RSIPeriod,
		ATRPeriod:  cfg.Features.ATRPeriod,
		VolWindow:  cfg.Features.VolWindow,
		Timeframe:  cfg.Features.Timeframe,
		MaxGap:     cfg.Features.MaxGap.Std(),
	})
}

// ProvideRegimeDetector creates the hysteresis regime detector.
func ProvideRegimeDetector(cfg *config.Config) *regime.Detector {
	return regime.NewDetector(regime.Config{
		ConfirmCount:      cfg.Regime.ConfirmCount,
		HighVolThreshold:  cfg.Regime.HighVolThreshold,
		TrendThreshold:    cfg.Regime.TrendThreshold,
		IlliquidSpreadBps: cfg.Regime.IlliquidSpreadBps,
		IlliquidVolumeZ:   cfg.Regime.IlliquidVolumeZ,
	})
}

// ProvideModelRegistry loads and validates the model registry against the
// builder's feature schema.
func ProvideModelRegistry(cfg *config.Config, builder *features.Builder) (*internalrepo.ModelRegistry, error) {
	return internalrepo.LoadModelRegistry(cfg.Ensemble.ModelsPath, builder.SchemaID())
}

// ProvidePredictors instantiates every enabled model in registry order.
func ProvidePredictors(cfg *config.Config, reg *internalrepo.ModelRegistry) []domsvc.Predictor {
	var preds []domsvc.Predictor
	for _, entry := range reg.Models {
		if !entry.IsEnabled() {
			continue
		}
		regimes := entry.RegimeLabels()
		switch entry.Name {
		case "statistical":
			preds = append(preds, predictors.NewStatistical(predictors.StatisticalConfig{Timeout: entry.Timeout.Std(), Regimes: regimes}))
		case "trees":
			preds = append(preds, predictors.NewTrees(predictors.TreesConfig{Timeout: entry.Timeout.Std(), Regimes: regimes}))
		case "neural":
			preds = append(preds, predictors.NewNeural(predictors.NeuralConfig{Timeout: entry.Timeout.Std(), Regimes: regimes}))
		case "advisory":
			ac := predictors.AdvisoryConfig{
				BaseURL:    cfg.Advisory.BaseURL,
				Timeout:    cfg.Advisory.Timeout.Std(),
				RatePerSec: cfg.Advisory.RatePerSec,
				Burst:      cfg.Advisory.Burst,
				CacheTTL:   cfg.Advisory.CacheTTL.Std(),
				Regimes:    regimes,
			}
			if entry.BaseURL != "" {
				ac.BaseURL = entry.BaseURL
			}
			if entry.Timeout > 0 {
				ac.Timeout = entry.Timeout.Std()
			}
			if ac.BaseURL == "" {
				continue // advisory without an upstream is unusable
			}
			preds = append(preds, predictors.NewAdvisory(ac, ratelimit.New()))
		}
	}
	return preds
}

// ProvidePredictorPool wraps the models for fan-out execution.
func ProvidePredictorPool(preds []domsvc.Predictor) *usecase.PredictorPool {
	return usecase.NewPredictorPool(preds)
}

// ProvideEnsemble creates the reliability-weighted ensemble.
func ProvideEnsemble(cfg *config.Config, reg *internalrepo.ModelRegistry) *usecase.WeightedEnsemble {
	return usecase.NewWeightedEnsemble(usecase.EnsembleConfig{
		BaseWeights:       reg.BaseWeights(),
		MinResponders:     cfg.Ensemble.MinResponders,
		OutOfRegimeFactor: cfg.Ensemble.OutOfRegimeFactor,
		SizeScale:         cfg.Ensemble.SizeScale,
	})
}

// ProvideRiskGate creates the ordered risk gate.
func ProvideRiskGate(cfg *config.Config) *usecase.Gate {
	return usecase.NewGate(usecase.RiskGateConfig{
		MaxPerInstrument: cfg.Risk.MaxPerInstrument,
		MaxDrawdown:      cfg.Risk.MaxDrawdown,
		Blocked:          cfg.Risk.Blocked,
	})
}

// ProvideArbiter assembles the per-cycle decision pipeline.
func ProvideArbiter(
	builder *features.Builder,
	detector *regime.Detector,
	pool *usecase.PredictorPool,
	ensemble *usecase.WeightedEnsemble,
	gate *usecase.Gate,
	cfg *config.Config,
) *usecase.Arbiter {
	outcomes := usecase.NewOutcomeTracker(cfg.Engine.OutcomeEpsilon)
	return usecase.NewArbiter(builder, detector, pool, ensemble, gate, outcomes)
}

// ProvideArena creates the per-instrument state arena.
func ProvideArena(arbiter *usecase.Arbiter, cfg *config.Config) *usecase.Arena {
	return usecase.NewArena(arbiter.NewState(models.DecayFromHalfLife(cfg.Engine.ReliabilityHalfLife), cfg.Engine.ReliabilityPrior))
}

// ProvideEngine creates the live decision engine.
func ProvideEngine(
	cfg *config.Config,
	arbiter *usecase.Arbiter,
	arena *usecase.Arena,
	pub repository.SignalPublisher,
	states *internalrepo.CacheStateStore,
	m repository.Metrics,
	l *applogger.Logger,
) *usecase.Engine {
	return usecase.NewEngine(usecase.EngineConfig{
		CycleBudget:     cfg.Engine.CycleBudget.Std(),
		CheckpointEvery: cfg.Engine.CheckpointEvery,
	}, arbiter, arena, pub, states, m, l)
}

// ProvideSnapshotProcessor creates the snapshot processor use case.
func ProvideSnapshotProcessor(
	engine *usecase.Engine,
	store repository.SnapshotStore,
	m repository.Metrics,
	cfg *config.Config,
) *usecase.SnapshotProcessor {
	return usecase.NewSnapshotProcessor(engine, store, m, cfg.Storage.BatchSize, cfg.Storage.BatchTimeout.Std())
}

// ProvideSnapshotCollector creates the snapshot collector use case.
func ProvideSnapshotCollector(
	stream repository.MarketStream,
	processor *usecase.SnapshotProcessor,
	m repository.Metrics,
) *usecase.SnapshotCollector {
	// Build middleware pipeline between WebSocket and the engine
	pipe := mid.NewRealtimePipeline(processor, m,
		mid.WithMaxRPS(50),
		mid.WithBufferSize(2000),
	)
	return usecase.NewSnapshotCollector(stream, processor, m, pipe)
}

// ProvideKafkaSnapshotHandler registers the handler for the snapshots topic.
func ProvideKafkaSnapshotHandler(proc *usecase.SnapshotProcessor, m repository.Metrics, cfg *config.Config) *usecase.KafkaSnapshotHandler {
	return usecase.NewKafkaSnapshotHandler(cfg.Kafka.SnapshotsTopic, proc, m)
}

// ProvideWarmup creates the history warmup step.
func ProvideWarmup(
	cfg *config.Config,
	hist repository.HistorySource,
	arena *usecase.Arena,
	builder *features.Builder,
	detector *regime.Detector,
	l *applogger.Logger,
) *usecase.Warmup {
	return usecase.NewWarmup(hist, arena, builder, detector, cfg.Features.Timeframe, l)
}

// ProvideReplayer creates the deterministic backtest replayer.
func ProvideReplayer(
	cfg *config.Config,
	hist repository.HistorySource,
	builder *features.Builder,
	detector *regime.Detector,
	pool *usecase.PredictorPool,
	ensemble *usecase.WeightedEnsemble,
	gate *usecase.Gate,
) *backtest.Replayer {
	return backtest.NewReplayer(backtest.ReplayerConfig{
		ReliabilityHalfLife: cfg.Engine.ReliabilityHalfLife,
		ReliabilityPrior:    cfg.Engine.ReliabilityPrior,
		OutcomeEpsilon:      cfg.Engine.OutcomeEpsilon,
		MaxExposure:         cfg.Risk.MaxExposure,
	}, hist, builder, detector, pool, ensemble, gate)
}

// ProvideBacktestService creates the submission service backed by the job queue.
func ProvideBacktestService(states *internalrepo.CacheStateStore, rc *pkgcache.RedisCache, l *applogger.Logger) *backtest.Service {
	pub := queue.NewRedisPublisher(l, rc.Client())
	return backtest.NewService(states, pub, rc)
}

// ProvideJobQueue creates the consumer that runs queued backtests.
func ProvideJobQueue(
	cfg *config.Config,
	states *internalrepo.CacheStateStore,
	replayer *backtest.Replayer,
	rc *pkgcache.RedisCache,
	l *applogger.Logger,
) *queue.RedisQueue {
	writer := backtest.NewWriter(cfg.Backtest.OutDir)
	job := backtest.NewRunJob(states, replayer, writer, rc)
	return queue.NewRedisConsumer(l, &queue.QueueConfig{
		Workers:    cfg.Backtest.Workers,
		QueueSize:  cfg.Backtest.QueueSize,
		RetryLimit: cfg.Backtest.RetryLimit,
		RetryDelay: cfg.Backtest.RetryDelay.Std(),
	}, rc.Client(), []queue.Job{job})
}

// ProvideHTTPHandler creates the Echo route handler. The public read
// endpoints get a byte cache and per-client rate limiting; the cache rides
// the shared Redis client when one is up, an in-process TTL cache otherwise.
func ProvideHTTPHandler(cfg *config.Config, l *applogger.Logger, engine *usecase.Engine, backtests *backtest.Service, gate *usecase.Gate, rc *pkgcache.RedisCache) *api.DecisionsEchoHandler {
	h := api.NewDecisionsEchoHandler(l, engine, backtests)
	if cfg.Path != "" {
		// Reload only touches the runtime limits. Predictor topology and
		// transport wiring stay as they were at startup.
		h.SetReloadFunc(func() error {
			next, err := config.LoadWithEnv(cfg.Path)
			if err != nil {
				return fmt.Errorf("reload config: %w", err)
			}
			gate.Reconfigure(usecase.RiskGateConfig{
				MaxPerInstrument: next.Risk.MaxPerInstrument,
				MaxDrawdown:      next.Risk.MaxDrawdown,
				Blocked:          next.Risk.Blocked,
			})
			return nil
		})
	}
	public := api.NewDecisionsHandler(engine)
	if rc != nil {
		public.SetCache(svccache.NewRedisCacheFromClient(rc.Client()))
	} else {
		public.SetCache(svccache.NewTTLCache())
	}
	public.SetLogger(l)
	h.SetPublicHandler(public)
	return h
}

// consumerTraceHook stamps handling start time and the upstream trace id on
// the context, and logs failed messages with their processing latency.
func consumerTraceHook(l *applogger.Logger) pkgkafka.ConsumerHook {
	return pkgkafka.HookFuncs{
		Before: func(ctx context.Context, topic string, km kafkago.Message, data []byte) (context.Context, kafkago.Message, []byte, error) {
			ctx = pkgkafka.WithStartTime(ctx, time.Now())
			ctx = pkgkafka.WithTraceID(ctx, pkgkafka.ExtractTraceID(km))
			return ctx, km, data, nil
		},
		Err: func(ctx context.Context, topic string, km kafkago.Message, _ []byte, err error) {
			fields := []applogger.Field{
				applogger.String("topic", topic),
				applogger.Int64("offset", km.Offset),
				applogger.Error(err),
			}
			if start, ok := pkgkafka.StartTime(ctx); ok {
				fields = append(fields, applogger.Duration("elapsed", time.Since(start)))
			}
			l.Error("kafka message failed", fields...)
		},
	}
}

// logPublisher adapts the kafka producer to the log collector's sink.
type logPublisher struct {
	p *pkgkafka.Producer
}

func (lp logPublisher) PublishMessage(ctx context.Context, topic string, payload interface{}) error {
	return lp.p.Publish(ctx, topic, nil, payload)
}

// ProvideApp creates the application server.
func ProvideApp(
	cfg *config.Config,
	l *applogger.Logger,
	collector *usecase.SnapshotCollector,
	consumer *pkgkafka.Consumer,
	producer *pkgkafka.Producer,
	kh *usecase.KafkaSnapshotHandler,
	chClient *pkgch.Client,
	proc *usecase.SnapshotProcessor,
	engine *usecase.Engine,
	warmup *usecase.Warmup,
	jobQueue *queue.RedisQueue,
	handler *api.DecisionsEchoHandler,
) *server.App {
	if consumer != nil {
		consumer.SetLogger(l)
		consumer.WithConsumerHook(consumerTraceHook(l))
	}
	if producer != nil && cfg.Kafka.LogsTopic != "" {
		l.AddCollector(&applogger.CollectionConfig{
			TimeInterval:   30 * time.Second,
			CountThreshold: 100,
			Topic:          cfg.Kafka.LogsTopic,
			Publisher:      logPublisher{producer},
		})
	}
	app := server.New(cfg, collector, consumer, kh, chClient)
	app.SetLogger(l)
	app.SetHTTPHandler(handler)
	app.SetEngine(engine)
	app.SetWarmup(warmup)
	app.SetJobQueue(jobQueue)
	app.Proc = proc
	return app
}

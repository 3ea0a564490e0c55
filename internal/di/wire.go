//go:build wireinject
// +build wireinject

package di

import (
	"SignalForge/pkg/config"
	"SignalForge/pkg/server"

	"github.com/google/wire"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	wire.Build(
		ProvideLogger,
		ProvideMetrics,

		// Infrastructure clients
		ProvideClickHouseClient,
		ProvideKafkaProducer,
		ProvideKafkaConsumer,
		ProvideRedisCache,

		// Repositories
		ProvideStateStore,
		ProvideSnapshotStore,
		ProvideSignalPublisher,
		ProvideHistorySource,
		ProvideFeedStream,
		ProvideModelRegistry,

		// Pipeline stages
		ProvideFeatureBuilder,
		ProvideRegimeDetector,
		ProvidePredictors,
		ProvidePredictorPool,
		ProvideEnsemble,
		ProvideRiskGate,
		ProvideArbiter,
		ProvideArena,

		// Use cases
		ProvideEngine,
		ProvideSnapshotProcessor,
		ProvideSnapshotCollector,
		ProvideKafkaSnapshotHandler,
		ProvideWarmup,
		ProvideReplayer,
		ProvideBacktestService,
		ProvideJobQueue,
		ProvideHTTPHandler,

		// Application server
		ProvideApp,
	)
	return &server.App{}, nil
}

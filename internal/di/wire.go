//go:build wireinject
// +build wireinject

package di

import (
	"ChartDeck/pkg/config"
	"ChartDeck/pkg/server"

	"github.com/google/wire"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, func(), error) {
	wire.Build(
		// Ambient
		ProvideLogger,
		ProvideMetrics,

		// Infrastructure
		ProvidePreferenceCache,
		ProvidePreferenceStore,
		ProvideSurfaceFactory,
		ProvideHub,
		ProvideKafkaConsumer,

		// Use cases
		ProvideChartSessions,
		ProvideSweeper,
		ProvidePayloadHandler,

		// Transport
		ProvidePointerLimiter,
		ProvidePreferencesHandler,
		ProvideChartsHandler,
		ProvideHTTPServer,

		// Application server
		ProvideApp,
	)
	return nil, nil, nil
}

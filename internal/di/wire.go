//go:build wireinject
// +build wireinject

package di

import (
	"WarrantCalc/pkg/config"
	"WarrantCalc/pkg/server"

	"github.com/google/wire"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	wire.Build(
		// Infrastructure clients
		ProvideKafkaProducer,
		ProvideLogger,
		ProvideMetrics,

		// Use cases
		ProvidePricingService,
		ProvidePricer,

		// Transports
		ProvideReplyPublisher,
		ProvideKafkaConsumer,
		ProvideKafkaPricingHandler,
		ProvidePricingEchoHandler,
		ProvideHTTPServer,

		// Application server
		ProvideApp,
	)
	return &server.App{}, nil
}

package di

import (
	"fmt"

	"WarrantCalc/internal/domain/repository"
	domsvc "WarrantCalc/internal/domain/service"
	"WarrantCalc/internal/handler/api"
	internalrepo "WarrantCalc/internal/repository"
	icache "WarrantCalc/internal/service/cache"
	"WarrantCalc/internal/service/ratelimit"
	"WarrantCalc/internal/usecase"
	"WarrantCalc/pkg/config"
	xhttp "WarrantCalc/pkg/http"
	pkgkafka "WarrantCalc/pkg/kafka"
	applogger "WarrantCalc/pkg/logger"
	"WarrantCalc/pkg/metrics"
	"WarrantCalc/pkg/server"
)

// ProvideKafkaProducer creates the reply producer, or nil when kafka is disabled.
func ProvideKafkaProducer(cfg *config.Config) (*pkgkafka.Producer, error) {
	if !cfg.Kafka.Enabled {
		return nil, nil
	}
	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithCompression(cfg.Kafka.Compression),
		pkgkafka.WithRequiredAcks(cfg.Kafka.RequiredAcks),
		pkgkafka.WithBatchSize(cfg.Kafka.Producer.BatchSize),
		pkgkafka.WithBatchBytes(cfg.Kafka.Producer.BatchBytes),
		pkgkafka.WithBatchTimeout(cfg.Kafka.Producer.Linger),
		pkgkafka.WithTimeouts(cfg.Kafka.Producer.WriteTimeout, cfg.Kafka.Producer.ReadTimeout),
		pkgkafka.WithMaxAttempts(cfg.Kafka.Producer.MaxAttempts),
		pkgkafka.WithAsync(cfg.Kafka.Producer.Async),
		pkgkafka.WithHashByKey(true),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}

	return producer, nil
}

// ProvideLogger builds the application logger. With log.digest enabled,
// error lines are folded and shipped through the producer.
func ProvideLogger(cfg *config.Config, producer *pkgkafka.Producer) (*applogger.Logger, error) {
	l, err := applogger.New(&applogger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	if cfg.Log.Digest.Enabled && producer != nil {
		l.AddCollector(&applogger.DigestConfig{
			Interval:  cfg.Log.Digest.Interval,
			MaxUnique: cfg.Log.Digest.MaxUnique,
			Topic:     cfg.Log.Digest.Topic,
			Publisher: producer,
		})
	}
	return l.With(applogger.String("env", cfg.Environment)), nil
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics() repository.Metrics {
	return metrics.New()
}

// ProvidePricingService creates the pricing use case with the configured
// skew calibration as baseline.
func ProvidePricingService(cfg *config.Config, m repository.Metrics) (*usecase.PricingService, error) {
	sp, err := cfg.SkewParameters()
	if err != nil {
		return nil, fmt.Errorf("skew calibration: %w", err)
	}
	return usecase.NewPricingService(sp, m), nil
}

// ProvidePricer exposes the service through the transport-facing interface.
func ProvidePricer(svc *usecase.PricingService) domsvc.Pricer {
	return svc
}

// ProvideReplyPublisher creates Kafka reply publisher, or nil without a producer.
func ProvideReplyPublisher(producer *pkgkafka.Producer, cfg *config.Config) repository.ReplyPublisher {
	if producer == nil {
		return nil
	}
	return internalrepo.NewKafkaReplyPublisher(producer, cfg.Kafka.ReplyTopic)
}

// ProvideKafkaConsumer creates a Kafka consumer configured from YAML, or nil
// when kafka is disabled.
func ProvideKafkaConsumer(cfg *config.Config, l *applogger.Logger) (*pkgkafka.Consumer, error) {
	if !cfg.Kafka.Enabled {
		return nil, nil
	}
	consumer, err := pkgkafka.NewConsumer(
		pkgkafka.WithConsumerBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithConsumerGroupID(cfg.Kafka.Consumer.GroupID),
		pkgkafka.WithConsumerWorkers(cfg.Kafka.Consumer.Workers),
		pkgkafka.WithConsumerBufferSize(cfg.Kafka.Consumer.BufferSize),
		pkgkafka.WithConsumerRetry(cfg.Kafka.Consumer.RetryMax, cfg.Kafka.Consumer.BackoffMin, cfg.Kafka.Consumer.BackoffMax),
		pkgkafka.WithConsumerDLQ(cfg.Kafka.Consumer.DLQTopic),
		pkgkafka.WithConsumerFetch(cfg.Kafka.Consumer.MinBytes, cfg.Kafka.Consumer.MaxBytes),
		pkgkafka.WithConsumerLogger(l),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka consumer: %w", err)
	}
	consumer.WithConsumerHook(pkgkafka.NewHookChain(
		pkgkafka.RejectEmpty(),
		pkgkafka.NewLoggingHook(l),
	))
	return consumer, nil
}

// ProvideKafkaPricingHandler answers requests on the request topic, or is
// nil without a reply publisher.
func ProvideKafkaPricingHandler(cfg *config.Config, pricer domsvc.Pricer, replies repository.ReplyPublisher, m repository.Metrics) pkgkafka.MessageHandler {
	if replies == nil {
		return nil
	}
	var opts []usecase.HandlerOption
	if ttl := cfg.Kafka.Consumer.DedupeTTL; ttl > 0 {
		opts = append(opts, usecase.WithDedupe(icache.NewTTLCache(cfg.Kafka.Consumer.DedupeMaxEntries), ttl))
	}
	return usecase.NewKafkaPricingHandler(cfg.Kafka.RequestTopic, pricer, replies, m, opts...)
}

// ProvidePricingEchoHandler creates the HTTP API handler.
func ProvidePricingEchoHandler(cfg *config.Config, l *applogger.Logger, pricer domsvc.Pricer, svc *usecase.PricingService) *api.PricingEchoHandler {
	opts := []api.HandlerOption{api.WithCalibration(svc.Calibration())}
	if rl := cfg.Server.RateLimit; rl.Enabled {
		opts = append(opts, api.WithRateLimit(ratelimit.New(), rl.Burst, rl.PerSecond))
	}
	return api.NewPricingEchoHandler(l, pricer, opts...)
}

// ProvideHTTPServer creates the echo server with the API routes.
func ProvideHTTPServer(cfg *config.Config, l *applogger.Logger, h *api.PricingEchoHandler) *xhttp.Server {
	metricsPath := ""
	if cfg.Metrics.Enabled {
		metricsPath = cfg.Metrics.Path
	}
	return xhttp.NewServer([]xhttp.Handler{h},
		xhttp.WithPort(cfg.Server.Port),
		xhttp.WithTimeouts(cfg.Server.ReadTimeout, cfg.Server.WriteTimeout, cfg.Server.ShutdownTimeout),
		xhttp.WithCORS(cfg.Server.CORS),
		xhttp.WithMetricsPath(metricsPath),
		xhttp.WithLogger(l),
	)
}

// ProvideApp creates the application server.
func ProvideApp(
	cfg *config.Config,
	l *applogger.Logger,
	httpServer *xhttp.Server,
	consumer *pkgkafka.Consumer,
	kh pkgkafka.MessageHandler,
	replies repository.ReplyPublisher,
) *server.App {
	return server.New(cfg, l, httpServer, consumer, kh, replies)
}

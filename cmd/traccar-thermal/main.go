package main

import (
	"context"
	"time"

	"github.com/diwise/context-broker/pkg/ngsild/client"
	"github.com/diwise/service-chassis/pkg/infrastructure/buildinfo"
	"github.com/diwise/service-chassis/pkg/infrastructure/env"
	"github.com/diwise/service-chassis/pkg/infrastructure/o11y"
	"github.com/go-chi/chi"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/diwise/integration-traccar/internal/pkg/application/fiware"
	"github.com/diwise/integration-traccar/internal/pkg/application/lwm2m"
	"github.com/diwise/integration-traccar/internal/pkg/application/scheduler"
	"github.com/diwise/integration-traccar/internal/pkg/application/session"
	"github.com/diwise/integration-traccar/internal/pkg/application/traccar"
	"github.com/diwise/integration-traccar/internal/pkg/infrastructure/metrics"
	"github.com/diwise/integration-traccar/internal/pkg/infrastructure/router"
	"github.com/diwise/integration-traccar/internal/pkg/infrastructure/store"
)

const serviceName string = "integration-traccar"

func main() {
	dotenvErr := godotenv.Load()

	serviceVersion := buildinfo.SourceVersion()

	ctx, logger, cleanup := o11y.Init(context.Background(), serviceName, serviceVersion)
	defer cleanup()

	if dotenvErr != nil {
		logger.Debug().Msg("no .env file found, relying on environment variables")
	}

	traccarUrl := env.GetVariableOrDie(logger, "TRACCAR_URL", "traccar base url")
	traccarToken := env.GetVariableOrDie(logger, "TRACCAR_TOKEN", "traccar bearer token")
	servicePort := env.GetVariableOrDefault(logger, "SERVICE_PORT", "8080")

	pollInterval := durationOrDefault(logger, "POLL_INTERVAL", scheduler.DefaultInterval)
	historyWindow := durationOrDefault(logger, "HISTORY_WINDOW", scheduler.DefaultHistoryWindow)

	metrics.Init()

	sess := session.New()

	s := scheduler.New(
		traccar.New(traccarUrl, traccarToken),
		sess,
		scheduler.WithInterval(pollInterval),
		scheduler.WithHistoryWindow(historyWindow),
		scheduler.WithSinks(createSinks(ctx, logger)...),
	)

	s.Start(ctx)
	defer s.Stop()

	r := router.SetupRouter(chi.NewRouter(), logger, sess, s)

	err := r.Start(servicePort)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to start router")
	}
}

func createSinks(ctx context.Context, logger zerolog.Logger) []scheduler.FleetSink {
	sinks := []scheduler.FleetSink{}

	if contextBrokerUrl := env.GetVariableOrDefault(logger, "CONTEXT_BROKER_URL", ""); contextBrokerUrl != "" {
		sinks = append(sinks, fiware.NewPublisher(client.NewContextBrokerClient(contextBrokerUrl)))
		logger.Info().Str("url", contextBrokerUrl).Msg("publishing fleet to context broker")
	}

	if lwm2mUrl := env.GetVariableOrDefault(logger, "LWM2M_URL", ""); lwm2mUrl != "" {
		sinks = append(sinks, lwm2m.NewSender(lwm2mUrl))
		logger.Info().Str("url", lwm2mUrl).Msg("publishing fleet as lwm2m objects")
	}

	if redisAddr := env.GetVariableOrDefault(logger, "REDIS_ADDR", ""); redisAddr != "" {
		mirror, err := store.NewMirror(ctx, redisAddr, env.GetVariableOrDefault(logger, "REDIS_PASSWORD", ""))
		if err != nil {
			logger.Error().Err(err).Msg("redis mirror disabled")
		} else {
			sinks = append(sinks, mirror)
			logger.Info().Str("addr", redisAddr).Msg("mirroring fleet to redis")
		}
	}

	return sinks
}

func durationOrDefault(logger zerolog.Logger, name string, defaultValue time.Duration) time.Duration {
	value := env.GetVariableOrDefault(logger, name, defaultValue.String())

	d, err := time.ParseDuration(value)
	if err != nil || d <= 0 {
		logger.Warn().Str("value", value).Msgf("invalid %s, using %s", name, defaultValue)
		return defaultValue
	}

	return d
}

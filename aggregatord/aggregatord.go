// Package aggregatord boots the aggregation service: configuration from the
// environment, the middleware chain, and the HTTP server lifecycle.
package aggregatord

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel/trace/noop"
	"golang.org/x/sync/errgroup"

	"github.com/turbinefl/turbine/engine"
	"github.com/turbinefl/turbine/engine/api"
	"github.com/turbinefl/turbine/engine/middleware"
	"github.com/turbinefl/turbine/pkg/prometheus"
)

const (
	svcName     = "aggregator"
	pathEnv     = ".env"
	stopTimeout = 5 * time.Second
)

type Config struct {
	LogLevel   string `env:"AGGREGATOR_LOG_LEVEL"   envDefault:"info"`
	InstanceID string `env:"AGGREGATOR_INSTANCE_ID"`
	Host       string `env:"AGGREGATOR_HTTP_HOST"   envDefault:""`
	Port       string `env:"AGGREGATOR_HTTP_PORT"   envDefault:"7070"`
}

// StartServer runs the HTTP server until the context is canceled, then
// shuts it down gracefully.
func StartServer(ctx context.Context, cancel context.CancelFunc, cfg Config) error {
	g, ctx := errgroup.WithContext(ctx)

	if cfg.InstanceID == "" {
		cfg.InstanceID = uuid.NewString()
	}

	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
		return fmt.Errorf("failed to parse log level: %w", err)
	}
	logHandler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	})
	logger := slog.New(logHandler)
	slog.SetDefault(logger)

	tracer := noop.NewTracerProvider().Tracer(svcName)

	svc := engine.NewService(logger)
	svc = middleware.Logging(logger, svc)
	svc = middleware.Tracing(tracer, svc)
	counter, latency := prometheus.MakeMetrics(svcName, "api")
	svc = middleware.Metrics(counter, latency, svc)

	server := &http.Server{
		Addr:              net.JoinHostPort(cfg.Host, cfg.Port),
		Handler:           api.MakeHandler(svc, logger, cfg.InstanceID),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g.Go(func() error {
		logger.Info(svcName+" service started", slog.String("address", server.Addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}

		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		stopCtx, stopCancel := context.WithTimeout(context.Background(), stopTimeout)
		defer stopCancel()
		logger.Info(svcName + " service shutting down")

		return server.Shutdown(stopCtx)
	})

	err := g.Wait()
	cancel()

	return err
}

var serverCmd = []cobra.Command{
	{
		Use:   "start",
		Short: "Start aggregator",
		Long:  `Start the federated aggregation server.`,
		Run: func(cmd *cobra.Command, _ []string) {
			if _, err := os.Stat(pathEnv); err == nil {
				_ = godotenv.Load(pathEnv)
			}

			cfg := Config{}
			if err := env.Parse(&cfg); err != nil {
				log.Fatalf("failed to load configuration : %s", err.Error())
			}

			ctx, cancel := context.WithCancel(cmd.Context())
			if err := StartServer(ctx, cancel, cfg); err != nil {
				cmd.PrintErrf("failed to start aggregator: %s", err.Error())
			}
			cancel()
		},
	},
}

func NewServerCmd() *cobra.Command {
	cmd := cobra.Command{
		Use:   "server [start]",
		Short: "Aggregation server management",
		Long:  `Run the federated aggregation server.`,
	}

	for i := range serverCmd {
		cmd.AddCommand(&serverCmd[i])
	}

	return &cmd
}

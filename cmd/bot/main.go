package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/cristopher-namchee/reserenv/internal/api"
	"github.com/cristopher-namchee/reserenv/internal/config"
	"github.com/cristopher-namchee/reserenv/internal/domain"
	"github.com/cristopher-namchee/reserenv/internal/logging"
	"github.com/cristopher-namchee/reserenv/internal/metrics"
	"github.com/cristopher-namchee/reserenv/internal/repository"
	"github.com/cristopher-namchee/reserenv/internal/service"
	"github.com/cristopher-namchee/reserenv/internal/vocab"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("Fatal error: %v", err)
	}
}

func run() error {
	cfg, logger, closer, err := loadConfigAndLogger()
	if err != nil {
		return err
	}
	if closer != nil {
		defer (func(c io.Closer) { _ = c.Close() })(closer)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	vocabulary, err := vocab.New(cfg.Vocabulary)
	if err != nil {
		logger.Error().Err(err).Msg("Invalid vocabulary configuration")
		return err
	}

	redisClient, repo := initStore(ctx, cfg, &logger)
	if redisClient != nil {
		defer func() { _ = repository.Close(redisClient) }()
	}

	svc := service.NewReservationService(repo, vocabulary, cfg.SingleEnvironmentPolicy(), &logger)

	metrics.Register()
	if cfg.Monitoring.PrometheusEnabled {
		startMetricsServer(cfg.Monitoring.PrometheusPort, &logger)
	}

	server := api.NewServer(cfg, svc, repo, &logger)
	errCh := make(chan error, 1)
	go func() {
		if err := server.Start(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	logger.Info().Int("port", cfg.Slack.Port).Msg("Webhook server started")

	select {
	case <-ctx.Done():
	case err := <-errCh:
		logger.Error().Err(err).Msg("Webhook server error")
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("Shutdown error")
		return err
	}

	logger.Info().Msg("Shutdown complete.")
	return nil
}

func loadConfigAndLogger() (*config.Config, zerolog.Logger, io.Closer, error) {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "configs/config.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, zerolog.Logger{}, nil, err
	}

	baseLogger, closer, err := logging.New(cfg.Logging, cfg.App)
	if err != nil {
		return nil, zerolog.Logger{}, nil, err
	}
	logger := baseLogger.With().Str("component", "bot-main").Logger()

	return cfg, logger, closer, nil
}

// initStore wires the reservation store: Redis when configured, with an
// in-memory fallback behind the failover wrapper so a Redis outage degrades
// instead of taking the bot down.
func initStore(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) (*redis.Client, domain.ReservationRepository) {
	var redisClient *redis.Client
	if cfg.Redis.Address != "" {
		redisClient = repository.NewRedisClient(cfg.Redis)
		if err := repository.Ping(ctx, redisClient); err != nil {
			logger.Warn().Err(err).Msg("Redis unavailable")
		}
	}

	if redisClient == nil {
		logger.Warn().Msg("Redis not configured, reservations are in-memory only")
		return nil, repository.NewMemoryReservationRepository()
	}

	primary := repository.NewRedisReservationRepository(redisClient)
	fallback := repository.NewMemoryReservationRepository()
	return redisClient, repository.NewFailoverReservationRepository(primary, fallback, logger)
}

func startMetricsServer(port int, logger *zerolog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error().Err(err).Msg("Metrics server error")
		}
	}()

	logger.Info().Int("port", port).Msg("Prometheus metrics exposed")
}

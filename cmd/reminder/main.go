package main

import (
	"context"
	"flag"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/slack-go/slack"

	"github.com/cristopher-namchee/reserenv/internal/config"
	"github.com/cristopher-namchee/reserenv/internal/logging"
	"github.com/cristopher-namchee/reserenv/internal/metrics"
	"github.com/cristopher-namchee/reserenv/internal/repository"
	"github.com/cristopher-namchee/reserenv/internal/service"
	"github.com/cristopher-namchee/reserenv/internal/vocab"
	"github.com/cristopher-namchee/reserenv/internal/worker"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("Fatal error: %v", err)
	}
}

// run performs one reminder sweep and exits, which suits a cron or
// scheduled-job deployment. With -loop it stays up and fires daily at the
// configured reminder time instead.
func run() error {
	loop := flag.Bool("loop", false, "run as a long-lived daemon firing daily instead of a one-shot sweep")
	flag.Parse()

	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "configs/config.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	baseLogger, closer, err := logging.New(cfg.Logging, cfg.App)
	if err != nil {
		return err
	}
	if closer != nil {
		defer (func(c io.Closer) { _ = c.Close() })(closer)
	}
	logger := baseLogger.With().Str("component", "reminder-main").Logger()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	vocabulary, err := vocab.New(cfg.Vocabulary)
	if err != nil {
		logger.Error().Err(err).Msg("Invalid vocabulary configuration")
		return err
	}

	if cfg.Redis.Address == "" {
		logger.Error().Msg("Redis address is required for the reminder job")
		return os.ErrInvalid
	}
	redisClient := repository.NewRedisClient(cfg.Redis)
	defer func() { _ = repository.Close(redisClient) }()
	if err := repository.Ping(ctx, redisClient); err != nil {
		logger.Error().Err(err).Msg("Redis unavailable")
		return err
	}

	repo := repository.NewRedisReservationRepository(redisClient)
	svc := service.NewReservationService(repo, vocabulary, cfg.SingleEnvironmentPolicy(), &logger)
	sender := worker.NewSlackSender(slack.New(cfg.Slack.BotToken))

	metrics.Register()

	w := worker.NewReminderWorker(svc, sender, cfg.Bot.ReminderTime, &logger)

	if *loop {
		return w.Start(ctx)
	}
	return w.RunOnce(ctx)
}

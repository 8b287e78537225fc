package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/Alias1177/SubnetScope/internal/app"
	"github.com/Alias1177/SubnetScope/internal/config"
	"github.com/Alias1177/SubnetScope/internal/telegram"
)

func main() {
	once := flag.Bool("once", false, "run a single round and exit")
	flag.Parse()

	setupLogging("")

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}
	setupLogging(cfg.LogLevel)

	if err := run(cfg, *once); err != nil {
		log.Error().Err(err).Msg("Broadcast failed")
		os.Exit(1)
	}
}

func run(cfg *config.Config, once bool) error {
	if cfg.TelegramBotToken == "" {
		return errors.New("TELEGRAM_BOT_TOKEN not set in environment")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.Build(ctx, cfg)
	if err != nil {
		return fmt.Errorf("building analyzer: %w", err)
	}
	defer a.Close()

	watches, err := a.WatchStore()
	if err != nil {
		return err
	}

	api, err := tgbotapi.NewBotAPI(cfg.TelegramBotToken)
	if err != nil {
		return fmt.Errorf("initializing Telegram bot: %w", err)
	}

	broadcaster := telegram.NewBroadcaster(
		a.Analyzer,
		watches,
		telegram.NewNotifier(api, telegram.NotifierOptions{}),
		a.Metrics,
		time.Duration(cfg.WatchCooldown)*time.Minute,
	)

	if once {
		sent, err := broadcaster.RunOnce(ctx)
		if err != nil {
			return err
		}
		log.Info().Int("sent", sent).Msg("Broadcast completed")
		return nil
	}

	interval := time.Duration(cfg.WatchInterval) * time.Minute
	log.Info().Dur("interval", interval).Msg("Watching subnets")
	if err := broadcaster.Run(ctx, interval); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// setupLogging configures the logger
func setupLogging(level string) {
	output := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
	log.Logger = log.Output(output)

	parsed, err := zerolog.ParseLevel(level)
	if err != nil || level == "" {
		parsed = zerolog.InfoLevel
	}
	log.Logger = log.Logger.Level(parsed)
}

package main

import (
	"context"
	"errors"
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
	httpClient "github.com/Alias1177/SubnetScope/internal/platform/http"
	"github.com/Alias1177/SubnetScope/internal/telegram"
	"github.com/Alias1177/SubnetScope/models"
)

func main() {
	setupLogging("")

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}
	setupLogging(cfg.LogLevel)

	if err := run(cfg); err != nil {
		log.Error().Err(err).Msg("Bot stopped with error")
		os.Exit(1)
	}
	log.Info().Msg("Bot stopped")
}

func run(cfg *config.Config) error {
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

	// Without a database the bot still answers analysis commands.
	var watches models.WatchStore
	if a.DB != nil {
		watches = a.DB
	} else {
		log.Warn().Msg("Database not configured, /watch is disabled")
	}

	client := httpClient.NewClient(httpClient.ClientOptions{Timeout: 90 * time.Second, RequestsPerSec: 30})
	api, err := tgbotapi.NewBotAPIWithClient(cfg.TelegramBotToken, tgbotapi.APIEndpoint, client)
	if err != nil {
		return fmt.Errorf("initializing Telegram bot: %w", err)
	}
	log.Info().Str("username", api.Self.UserName).Msg("Bot started")

	bot := telegram.NewBot(a.Analyzer, watches, telegram.NewNotifier(api, telegram.NotifierOptions{}), 4)

	updateConfig := tgbotapi.NewUpdate(0)
	updateConfig.Timeout = 60
	updates := api.GetUpdatesChan(updateConfig)

	go func() {
		<-ctx.Done()
		api.StopReceivingUpdates()
	}()

	return bot.Run(ctx, updates)
}

// setupLogging configures the logger
func setupLogging(level string) {
	output := zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
	log.Logger = zerolog.New(output).With().Timestamp().Logger()

	parsed, err := zerolog.ParseLevel(level)
	if err != nil || level == "" {
		parsed = zerolog.InfoLevel
	}
	log.Logger = log.Logger.Level(parsed)
}

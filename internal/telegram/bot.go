package telegram

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/semaphore"

	"github.com/Alias1177/SubnetScope/internal/service"
	"github.com/Alias1177/SubnetScope/models"
)

// LimitedMessage replaces a report when detection failed.
const LimitedMessage = "analysis temporarily limited"

const genericError = "Sorry, there was an error. Please try again later."

// Analyzer is what the bot needs from the service
type Analyzer interface {
	DetectAnomalies(ctx context.Context, req service.AnomalyRequest) (*models.AnomalyReport, error)
	AssessRisk(ctx context.Context, req service.RiskRequest) (*models.RiskAssessment, error)
	Recommend(ctx context.Context, req service.InvestmentRequest) (*models.InvestmentAnalysis, error)
	Subnet(id int) (models.SubnetMetadata, error)
}

// Bot answers chat commands with analyzer results.
type Bot struct {
	analyzer Analyzer
	watches  models.WatchStore
	notifier *Notifier
	workers  *semaphore.Weighted
	size     int64
	logger   zerolog.Logger
}

// NewBot creates a bot. watches may be nil, then /watch is unavailable.
// At most workers updates are handled at the same time.
func NewBot(analyzer Analyzer, watches models.WatchStore, notifier *Notifier, workers int64) *Bot {
	if workers <= 0 {
		workers = 4
	}
	return &Bot{
		analyzer: analyzer,
		watches:  watches,
		notifier: notifier,
		workers:  semaphore.NewWeighted(workers),
		size:     workers,
		logger:   log.With().Str("component", "telegram_bot").Logger(),
	}
}

// Run handles updates until ctx is cancelled or the channel closes.
func (b *Bot) Run(ctx context.Context, updates <-chan tgbotapi.Update) error {
	for {
		select {
		case <-ctx.Done():
			return b.drain()
		case update, ok := <-updates:
			if !ok {
				return b.drain()
			}
			if err := b.workers.Acquire(ctx, 1); err != nil {
				return b.drain()
			}
			go func() {
				defer b.workers.Release(1)
				b.HandleUpdate(ctx, update)
			}()
		}
	}
}

// drain waits for in-flight handlers.
func (b *Bot) drain() error {
	if err := b.workers.Acquire(context.Background(), b.size); err != nil {
		return err
	}
	b.workers.Release(b.size)
	return nil
}

// HandleUpdate processes a single update. Non-command messages get the
// help text.
func (b *Bot) HandleUpdate(ctx context.Context, update tgbotapi.Update) {
	message := update.Message
	if message == nil {
		return
	}
	chatID := message.Chat.ID
	logger := b.logger.With().Int64("chat_id", chatID).Logger()

	if !message.IsCommand() {
		b.reply(ctx, chatID, helpText)
		return
	}

	command := message.Command()
	logger.Info().Str("command", command).Msg("Command received")

	switch command {
	case "start", "help":
		b.reply(ctx, chatID, helpText)
	case "watches":
		b.listWatches(ctx, chatID)
	case "subnet", "anomaly", "risk", "invest", "watch", "unwatch":
		id, err := parseSubnetID(message.CommandArguments())
		if err != nil {
			b.reply(ctx, chatID, fmt.Sprintf("Usage: /%s <subnet id>", command))
			return
		}
		b.reply(ctx, chatID, b.run(ctx, command, chatID, id))
	default:
		b.reply(ctx, chatID, "Unknown command. "+helpText)
	}
}

func (b *Bot) run(ctx context.Context, command string, chatID int64, id int) string {
	switch command {
	case "subnet":
		meta, err := b.analyzer.Subnet(id)
		if err != nil {
			return b.describeError(err, id)
		}
		return formatSubnet(meta)
	case "anomaly":
		report, err := b.analyzer.DetectAnomalies(ctx, service.AnomalyRequest{SubnetID: id})
		if err != nil {
			return b.describeError(err, id)
		}
		return formatReport(report)
	case "risk":
		assessment, err := b.analyzer.AssessRisk(ctx, service.RiskRequest{SubnetID: id})
		if err != nil {
			return b.describeError(err, id)
		}
		return formatRisk(assessment)
	case "invest":
		analysis, err := b.analyzer.Recommend(ctx, service.InvestmentRequest{SubnetID: id})
		if err != nil {
			return b.describeError(err, id)
		}
		return formatInvestment(analysis)
	case "watch", "unwatch":
		return b.toggleWatch(ctx, command == "watch", chatID, id)
	}
	return helpText
}

func (b *Bot) toggleWatch(ctx context.Context, add bool, chatID int64, id int) string {
	if b.watches == nil {
		return "Alerts are not available right now."
	}
	meta, err := b.analyzer.Subnet(id)
	if err != nil {
		return b.describeError(err, id)
	}

	if add {
		if err := b.watches.AddWatch(ctx, chatID, id); err != nil {
			b.logger.Error().Err(err).Int64("chat_id", chatID).Int("subnet_id", id).Msg("Error adding watch")
			return genericError
		}
		return fmt.Sprintf("You will be notified about anomalies on %s (subnet %d).", meta.Name, id)
	}
	if err := b.watches.RemoveWatch(ctx, chatID, id); err != nil {
		b.logger.Error().Err(err).Int64("chat_id", chatID).Int("subnet_id", id).Msg("Error removing watch")
		return genericError
	}
	return fmt.Sprintf("Alerts for %s (subnet %d) are off.", meta.Name, id)
}

func (b *Bot) listWatches(ctx context.Context, chatID int64) {
	if b.watches == nil {
		b.reply(ctx, chatID, "Alerts are not available right now.")
		return
	}
	all, err := b.watches.Watches(ctx)
	if err != nil {
		b.logger.Error().Err(err).Int64("chat_id", chatID).Msg("Error listing watches")
		b.reply(ctx, chatID, genericError)
		return
	}
	var mine []models.Watch
	for _, w := range all {
		if w.ChatID == chatID {
			mine = append(mine, w)
		}
	}
	b.reply(ctx, chatID, formatWatches(mine))
}

func (b *Bot) describeError(err error, id int) string {
	var (
		validationErr *models.ValidationError
		detectionErr  *models.AnomalyDetectionError
	)
	switch {
	case errors.As(err, &validationErr):
		return "Invalid request: " + validationErr.Message
	case errors.As(err, &detectionErr):
		return fmt.Sprintf("Subnet %d: %s", id, LimitedMessage)
	default:
		b.logger.Error().Err(err).Int("subnet_id", id).Msg("Analysis failed")
		return genericError
	}
}

func (b *Bot) reply(ctx context.Context, chatID int64, text string) {
	if err := b.notifier.Send(ctx, chatID, text); err != nil {
		b.logger.Error().Err(err).Int64("chat_id", chatID).Msg("Failed to send reply")
	}
}

func parseSubnetID(args string) (int, error) {
	fields := strings.Fields(args)
	if len(fields) == 0 {
		return 0, errors.New("missing subnet id")
	}
	return strconv.Atoi(fields[0])
}

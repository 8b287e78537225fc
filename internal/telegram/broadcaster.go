package telegram

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/Alias1177/SubnetScope/internal/metrics"
	"github.com/Alias1177/SubnetScope/internal/service"
	"github.com/Alias1177/SubnetScope/models"
)

const (
	// DefaultCooldown is the minimum time between two alerts to one watch.
	DefaultCooldown = time.Hour
	// DefaultInterval is used by Run for a non-positive interval.
	DefaultInterval = 15 * time.Minute
)

// Broadcaster checks watched subnets and pushes new alerts to their chats.
type Broadcaster struct {
	analyzer Analyzer
	watches  models.WatchStore
	notifier *Notifier
	metrics  *metrics.Registry
	cooldown time.Duration
	now      func() time.Time
	logger   zerolog.Logger
}

// NewBroadcaster creates a broadcaster. m may be nil.
func NewBroadcaster(analyzer Analyzer, watches models.WatchStore, notifier *Notifier, m *metrics.Registry, cooldown time.Duration) *Broadcaster {
	if cooldown <= 0 {
		cooldown = DefaultCooldown
	}
	return &Broadcaster{
		analyzer: analyzer,
		watches:  watches,
		notifier: notifier,
		metrics:  m,
		cooldown: cooldown,
		now:      time.Now,
		logger:   log.With().Str("component", "broadcaster").Logger(),
	}
}

// Run calls RunOnce every interval until ctx is cancelled.
func (b *Broadcaster) Run(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		interval = DefaultInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if sent, err := b.RunOnce(ctx); err != nil {
			b.logger.Error().Err(err).Msg("Broadcast round failed")
		} else {
			b.logger.Info().Int("sent", sent).Msg("Broadcast round completed")
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// RunOnce analyzes every watched subnet once and notifies the due chats of
// subnets that raised alerts. It returns the number of messages sent.
func (b *Broadcaster) RunOnce(ctx context.Context) (int, error) {
	watches, err := b.watches.Watches(ctx)
	if err != nil {
		return 0, fmt.Errorf("listing watches: %w", err)
	}

	bySubnet := make(map[int][]models.Watch)
	var order []int
	for _, w := range watches {
		if _, seen := bySubnet[w.SubnetID]; !seen {
			order = append(order, w.SubnetID)
		}
		bySubnet[w.SubnetID] = append(bySubnet[w.SubnetID], w)
	}

	now := b.now()
	sent := 0
	for _, subnetID := range order {
		if ctx.Err() != nil {
			return sent, ctx.Err()
		}

		due := make([]models.Watch, 0, len(bySubnet[subnetID]))
		for _, w := range bySubnet[subnetID] {
			if w.Due(now, b.cooldown) {
				due = append(due, w)
			}
		}
		if len(due) == 0 {
			continue
		}

		report, err := b.analyzer.DetectAnomalies(ctx, service.AnomalyRequest{SubnetID: subnetID})
		if err != nil {
			b.logger.Warn().Err(err).Int("subnet_id", subnetID).Msg("Skipping subnet, analysis failed")
			continue
		}
		if len(report.Alerts) == 0 {
			continue
		}

		text := formatAlerts(report)
		for _, w := range due {
			if err := b.notifier.Send(ctx, w.ChatID, text); err != nil {
				b.logger.Error().Err(err).Int64("chat_id", w.ChatID).Int("subnet_id", subnetID).Msg("Failed to send alert")
				continue
			}
			sent++
			b.metrics.AlertSent()
			if err := b.watches.MarkNotified(ctx, w.ChatID, subnetID); err != nil {
				b.logger.Error().Err(err).Int64("chat_id", w.ChatID).Int("subnet_id", subnetID).Msg("Failed to mark watch notified")
			}
		}
	}
	return sent, nil
}

// Package app assembles the analysis engines from configuration. Every
// entry point (HTTP server, bot, broadcaster, CLI) builds through here.
package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	thresholds "github.com/Alias1177/SubnetScope/config"
	"github.com/Alias1177/SubnetScope/internal/anomaly"
	"github.com/Alias1177/SubnetScope/internal/api/claude"
	"github.com/Alias1177/SubnetScope/internal/api/ionet"
	"github.com/Alias1177/SubnetScope/internal/baseline"
	"github.com/Alias1177/SubnetScope/internal/config"
	"github.com/Alias1177/SubnetScope/internal/database"
	"github.com/Alias1177/SubnetScope/internal/investment"
	"github.com/Alias1177/SubnetScope/internal/metadata"
	"github.com/Alias1177/SubnetScope/internal/metrics"
	"github.com/Alias1177/SubnetScope/internal/narrative"
	"github.com/Alias1177/SubnetScope/internal/risk"
	"github.com/Alias1177/SubnetScope/internal/service"
	"github.com/Alias1177/SubnetScope/models"
)

// App holds the wired components and the connections they own.
type App struct {
	Config     *config.Config
	Thresholds *thresholds.Thresholds
	Registry   *metadata.Registry
	Metrics    *metrics.Registry
	Analyzer   *service.Analyzer
	// DB is nil when no database is configured.
	DB *database.DB

	redis  *redis.Client
	logger zerolog.Logger
}

// Build wires the analyzer. The database and Redis are optional: without
// them history comes only from requests and baselines stay in process.
func Build(ctx context.Context, cfg *config.Config) (*App, error) {
	a := &App{
		Config: cfg,
		logger: log.With().Str("component", "app").Logger(),
	}

	t, err := thresholds.Load(cfg.ThresholdsFile)
	if err != nil {
		return nil, err
	}
	a.Thresholds = t

	reg, err := metadata.Load()
	if err != nil {
		return nil, fmt.Errorf("loading subnet metadata: %w", err)
	}
	a.Registry = reg
	a.Metrics = metrics.NewRegistry()

	storeOpts := []baseline.Option{
		baseline.WithCacheSize(cfg.BaselineCacheSize, time.Duration(cfg.BaselineCacheTTL)*time.Second),
		baseline.WithWindow(t.Detection.RollingWindow, t.Detection.MinDataPoints),
		baseline.WithRecorder(a.Metrics.BaselineLookup),
	}
	if cfg.RedisAddr != "" {
		a.redis = redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err := a.redis.Ping(ctx).Err(); err != nil {
			a.logger.Warn().Err(err).Str("addr", cfg.RedisAddr).Msg("Redis unavailable, baselines stay in process")
		}
		storeOpts = append(storeOpts, baseline.WithSharedCache(
			baseline.NewRedisCache(a.redis, time.Duration(cfg.BaselineCacheTTL)*time.Second),
		))
	}
	store := baseline.NewStore(storeOpts...)

	client, model := NarrativeClient(cfg)
	narrator := narrative.NewGenerator(client,
		narrative.WithModel(model),
		narrative.WithTimeout(cfg.LLMTimeoutDuration()),
		narrative.WithBreaker(uint32(cfg.BreakerFailures), time.Duration(cfg.BreakerCooldown)*time.Second),
		narrative.WithRecorder(a.Metrics.NarrativeOutcome),
	)

	opts := []service.Option{
		service.WithMetrics(a.Metrics),
		service.WithStrictMetrics(cfg.StrictMetrics),
	}
	if cfg.DatabaseEnabled() {
		db, err := database.New(ctx, database.ConnectionParams{
			Host:     cfg.DBHost,
			Port:     cfg.DBPort,
			User:     cfg.DBUser,
			Password: cfg.DBPassword,
			DBName:   cfg.DBName,
			SSLMode:  cfg.DBSSLMode,
		})
		if err != nil {
			a.Close()
			return nil, err
		}
		a.DB = db
		opts = append(opts,
			service.WithHistory(db, service.DefaultHistoryLimit),
			service.WithAlertStore(db),
			service.WithSampleRecorder(db),
		)
	}

	a.Analyzer = service.NewAnalyzer(service.Deps{
		Registry: reg,
		Detector: anomaly.NewDetector(store, reg, anomaly.WithConfig(t.Detection)),
		Assessor: risk.NewAssessor(reg),
		Scorer:   investment.NewScorer(reg, investment.WithStrategy(t.Strategy)),
		Narrator: narrator,
	}, opts...)

	a.logger.Info().
		Str("narrative_provider", cfg.NarrativeProvider).
		Bool("database", a.DB != nil).
		Bool("redis", a.redis != nil).
		Bool("strict_metrics", cfg.StrictMetrics).
		Msg("Components wired")
	return a, nil
}

// NarrativeClient picks the LLM provider. A provider without an API key
// falls back to templates only.
func NarrativeClient(cfg *config.Config) (models.ChatCompleter, string) {
	logger := log.With().Str("component", "app").Logger()
	timeout := cfg.LLMTimeoutDuration()

	switch cfg.NarrativeProvider {
	case config.ProviderIONet:
		if cfg.IONetAPIKey == "" {
			logger.Warn().Msg("IONET_API_KEY not set, using rule-based narratives")
			return nil, ""
		}
		return ionet.NewClient(ionet.ClientOptions{
			APIKey:         cfg.IONetAPIKey,
			BaseURL:        cfg.IONetBaseURL,
			Model:          cfg.IONetModel,
			RequestTimeout: timeout,
			RequestsPerSec: cfg.LLMRequestsPerSec,
		}), cfg.IONetModel
	case config.ProviderClaude:
		if cfg.ClaudeAPIKey == "" {
			logger.Warn().Msg("CLAUDE_API_KEY not set, using rule-based narratives")
			return nil, ""
		}
		return claude.NewClient(claude.ClientOptions{
			APIKey:         cfg.ClaudeAPIKey,
			Model:          cfg.ClaudeModel,
			RequestTimeout: timeout,
		}), cfg.ClaudeModel
	case config.ProviderNone:
		return nil, ""
	default:
		logger.Warn().Str("provider", cfg.NarrativeProvider).Msg("Unknown narrative provider, using rule-based narratives")
		return nil, ""
	}
}

// WatchStore returns the database as a watch store, or an error when the
// database is not configured.
func (a *App) WatchStore() (models.WatchStore, error) {
	if a.DB == nil {
		return nil, errors.New("watches need a database: set DB_HOST and DB_NAME")
	}
	return a.DB, nil
}

// Close releases the database and Redis connections.
func (a *App) Close() error {
	var errs []error
	if a.DB != nil {
		errs = append(errs, a.DB.Close())
	}
	if a.redis != nil {
		errs = append(errs, a.redis.Close())
	}
	return errors.Join(errs...)
}

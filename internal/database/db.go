package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	_ "github.com/lib/pq"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/Alias1177/SubnetScope/models"
)

// DB represents a database connection
type DB struct {
	*sql.DB
	logger zerolog.Logger
}

// ConnectionParams holds PostgreSQL connection parameters
type ConnectionParams struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// DSN builds the lib/pq connection string.
func (p ConnectionParams) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.DBName, p.SSLMode,
	)
}

// New creates a new database connection. The first ping is retried with
// exponential backoff so the service can start alongside the database.
func New(ctx context.Context, params ConnectionParams) (*DB, error) {
	db, err := sql.Open("postgres", params.DSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	policy := backoff.NewExponentialBackOff()
	policy.MaxElapsedTime = 30 * time.Second
	ping := func() error { return db.PingContext(ctx) }
	if err := backoff.Retry(ping, backoff.WithContext(policy, ctx)); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	d := Wrap(db)
	if err := d.createTables(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return d, nil
}

// Wrap uses an already opened handle.
func Wrap(db *sql.DB) *DB {
	return &DB{
		DB:     db,
		logger: log.With().Str("component", "database").Logger(),
	}
}

// createTables creates the necessary tables if they don't exist
func (db *DB) createTables(ctx context.Context) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS metric_samples (
			subnet_id INTEGER NOT NULL,
			metric TEXT NOT NULL,
			value DOUBLE PRECISION NOT NULL,
			recorded_at TIMESTAMPTZ NOT NULL,
			PRIMARY KEY (subnet_id, metric, recorded_at)
		)`,
		`CREATE TABLE IF NOT EXISTS anomaly_alerts (
			id TEXT PRIMARY KEY,
			subnet_id INTEGER NOT NULL,
			type TEXT NOT NULL,
			severity TEXT NOT NULL,
			metric TEXT,
			message TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS anomaly_alerts_subnet_idx ON anomaly_alerts (subnet_id, created_at DESC)`,
		`CREATE TABLE IF NOT EXISTS subnet_watches (
			chat_id BIGINT NOT NULL,
			subnet_id INTEGER NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			last_alert_at TIMESTAMPTZ,
			PRIMARY KEY (chat_id, subnet_id)
		)`,
	}

	for _, stmt := range statements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to create tables: %w", err)
		}
	}
	return nil
}

// RecordSamples stores one observation of every metric in the point.
// Re-recording the same timestamp overwrites the value.
func (db *DB) RecordSamples(ctx context.Context, subnetID int, point models.DataPoint) error {
	samples := point.Samples()
	if len(samples) == 0 {
		return nil
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, s := range samples {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO metric_samples (subnet_id, metric, value, recorded_at)
			VALUES ($1, $2, $3, $4)
			ON CONFLICT (subnet_id, metric, recorded_at)
			DO UPDATE SET value = EXCLUDED.value
		`, subnetID, string(s.Metric), s.Value, s.Timestamp.UTC())
		if err != nil {
			return fmt.Errorf("failed to record %s for subnet %d: %w", s.Metric, subnetID, err)
		}
	}

	return tx.Commit()
}

// History returns the most recent limit observations, oldest first.
// Samples of metrics this build does not know are skipped.
func (db *DB) History(ctx context.Context, subnetID int, limit int) (*models.HistoricalData, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT metric, value, recorded_at
		FROM metric_samples
		WHERE subnet_id = $1 AND recorded_at IN (
			SELECT DISTINCT recorded_at FROM metric_samples
			WHERE subnet_id = $1
			ORDER BY recorded_at DESC
			LIMIT $2
		)
		ORDER BY recorded_at ASC, metric ASC
	`, subnetID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to load history for subnet %d: %w", subnetID, err)
	}
	defer rows.Close()

	history := &models.HistoricalData{}
	for rows.Next() {
		var (
			name  string
			value float64
			at    time.Time
		)
		if err := rows.Scan(&name, &value, &at); err != nil {
			return nil, fmt.Errorf("failed to scan sample: %w", err)
		}

		metric, err := models.ParseMetricName(name)
		if err != nil {
			db.logger.Debug().Int("subnet_id", subnetID).Str("metric", name).Msg("Skipping unknown stored metric")
			continue
		}

		n := len(history.DataPoints)
		if n == 0 || !history.DataPoints[n-1].Timestamp.Equal(at) {
			history.DataPoints = append(history.DataPoints, models.DataPoint{Timestamp: at, Metrics: models.MetricSet{}})
			n++
		}
		history.DataPoints[n-1].Metrics[metric] = value
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read history: %w", err)
	}

	return history, nil
}

// SaveAlerts persists alerts. Alerts already stored are left untouched.
func (db *DB) SaveAlerts(ctx context.Context, alerts []models.Alert) error {
	if len(alerts) == 0 {
		return nil
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, a := range alerts {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO anomaly_alerts (id, subnet_id, type, severity, metric, message, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			ON CONFLICT (id) DO NOTHING
		`, a.ID, a.SubnetID, string(a.Type), string(a.Severity), nullString(a.Metric), a.Message, a.Timestamp.UTC())
		if err != nil {
			return fmt.Errorf("failed to save alert %s: %w", a.ID, err)
		}
	}

	return tx.Commit()
}

// RecentAlerts returns the newest alerts of a subnet first.
func (db *DB) RecentAlerts(ctx context.Context, subnetID int, limit int) ([]models.Alert, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT id, subnet_id, type, severity, metric, message, created_at
		FROM anomaly_alerts
		WHERE subnet_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`, subnetID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to load alerts for subnet %d: %w", subnetID, err)
	}
	defer rows.Close()

	var alerts []models.Alert
	for rows.Next() {
		var (
			a      models.Alert
			metric sql.NullString
		)
		if err := rows.Scan(&a.ID, &a.SubnetID, &a.Type, &a.Severity, &metric, &a.Message, &a.Timestamp); err != nil {
			return nil, fmt.Errorf("failed to scan alert: %w", err)
		}
		if metric.Valid {
			a.Metric = metric.String
		}
		a.AutoGenerated = true
		alerts = append(alerts, a)
	}
	return alerts, rows.Err()
}

// AddWatch subscribes a chat to a subnet. Subscribing twice is a no-op.
func (db *DB) AddWatch(ctx context.Context, chatID int64, subnetID int) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO subnet_watches (chat_id, subnet_id, created_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (chat_id, subnet_id) DO NOTHING
	`, chatID, subnetID)
	if err != nil {
		return fmt.Errorf("failed to add watch: %w", err)
	}
	return nil
}

// RemoveWatch unsubscribes a chat from a subnet
func (db *DB) RemoveWatch(ctx context.Context, chatID int64, subnetID int) error {
	_, err := db.ExecContext(ctx, `
		DELETE FROM subnet_watches
		WHERE chat_id = $1 AND subnet_id = $2
	`, chatID, subnetID)
	if err != nil {
		return fmt.Errorf("failed to remove watch: %w", err)
	}
	return nil
}

// Watches lists every subscription ordered by subnet.
func (db *DB) Watches(ctx context.Context) ([]models.Watch, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT chat_id, subnet_id, created_at, last_alert_at
		FROM subnet_watches
		ORDER BY subnet_id, chat_id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to load watches: %w", err)
	}
	defer rows.Close()

	var watches []models.Watch
	for rows.Next() {
		var (
			w         models.Watch
			lastAlert sql.NullTime
		)
		if err := rows.Scan(&w.ChatID, &w.SubnetID, &w.CreatedAt, &lastAlert); err != nil {
			return nil, fmt.Errorf("failed to scan watch: %w", err)
		}
		if lastAlert.Valid {
			w.LastAlertAt = lastAlert.Time
		}
		watches = append(watches, w)
	}
	return watches, rows.Err()
}

// MarkNotified records that the chat was just alerted about the subnet
func (db *DB) MarkNotified(ctx context.Context, chatID int64, subnetID int) error {
	_, err := db.ExecContext(ctx, `
		UPDATE subnet_watches
		SET last_alert_at = NOW()
		WHERE chat_id = $1 AND subnet_id = $2
	`, chatID, subnetID)
	if err != nil {
		return fmt.Errorf("failed to mark watch notified: %w", err)
	}
	return nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

package models

import "context"

// ChatCompleter is any chat-completion provider (io.net, Claude, ...)
type ChatCompleter interface {
	Complete(ctx context.Context, req ChatRequest) (*ChatResponse, error)
}

// MetadataProvider is the read-only subnet metadata lookup
type MetadataProvider interface {
	Lookup(subnetID int) SubnetMetadata
}

// HistoryProvider loads stored history, oldest point first
type HistoryProvider interface {
	History(ctx context.Context, subnetID int, limit int) (*HistoricalData, error)
}

// AlertStore persists alerts a caller wants to keep
type AlertStore interface {
	SaveAlerts(ctx context.Context, alerts []Alert) error
	RecentAlerts(ctx context.Context, subnetID int, limit int) ([]Alert, error)
}

// SampleRecorder stores observed metrics so later requests can use them as history
type SampleRecorder interface {
	RecordSamples(ctx context.Context, subnetID int, point DataPoint) error
}

// WatchStore keeps chat subscriptions to subnet alerts
type WatchStore interface {
	AddWatch(ctx context.Context, chatID int64, subnetID int) error
	RemoveWatch(ctx context.Context, chatID int64, subnetID int) error
	Watches(ctx context.Context) ([]Watch, error)
	MarkNotified(ctx context.Context, chatID int64, subnetID int) error
}

package models

import "time"

// SubnetMetadata is the static description of a subnet
type SubnetMetadata struct {
	ID          int    `json:"id"`
	Name        string `json:"name"`
	Type        string `json:"type"`
	Description string `json:"description,omitempty"`
	Repository  string `json:"github,omitempty"`
}

// HasRepository reports whether a public code repository is known.
func (m SubnetMetadata) HasRepository() bool {
	return m.Repository != ""
}

// Watch subscribes a chat to alerts of a subnet
type Watch struct {
	ChatID      int64     `json:"chat_id"`
	SubnetID    int       `json:"subnet_id"`
	CreatedAt   time.Time `json:"created_at"`
	LastAlertAt time.Time `json:"last_alert_at,omitempty"`
}

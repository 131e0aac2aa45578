// Package queue defines message payloads exchanged over the message broker.
package queue

import "time"

// AuditQueueName is the durable queue audit events flow through.
const AuditQueueName = "audit.logs"

// AuditEvent is published after a mutating operation so the audit
// trail can be written off the request path.  It carries everything
// the consumer needs to persist a row without querying back.
type AuditEvent struct {
	UserInitials string         `json:"user_initials"`
	UserName     string         `json:"user_name"`
	EntityType   string         `json:"entity_type"`
	EntityID     string         `json:"entity_id"`
	EntityName   string         `json:"entity_name"`
	Action       string         `json:"action"`
	Changes      map[string]any `json:"changes,omitempty"`
	Metadata     map[string]any `json:"metadata,omitempty"`
	Description  string         `json:"description"`
	OccurredAt   time.Time      `json:"occurred_at"`
}

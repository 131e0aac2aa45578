package model

import "time"

// Audit entity types.
const (
	EntityContainer = "container"
	EntitySample    = "sample"
	EntityUser      = "user"
	EntityBackup    = "backup"
)

// AuditLog is one append-only row of the audit_logs table.  Writes are
// best-effort: a failed audit insert is logged and swallowed, it never
// fails the operation that produced it.
type AuditLog struct {
	ID           string         `json:"id"`
	UserInitials string         `json:"user_initials"`
	UserName     string         `json:"user_name"`
	EntityType   string         `json:"entity_type"`
	EntityID     string         `json:"entity_id"`
	Action       string         `json:"action"`
	EntityName   string         `json:"entity_name"`
	Changes      map[string]any `json:"changes,omitempty"`
	Metadata     map[string]any `json:"metadata,omitempty"`
	Description  string         `json:"description"`
	CreatedAt    time.Time      `json:"created_at"`
}

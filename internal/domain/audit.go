package domain

import "time"

// AuditLogEntry is one immutable record of a state-changing action.
type AuditLogEntry struct {
	ID        uint64
	Actor     string
	ActorType string
	Action    string
	TargetRef string
	Metadata  map[string]any
	CreatedAt time.Time
}

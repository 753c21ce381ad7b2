package audit

import (
	"context"
	"time"
)

// Action tags. Stable strings: dashboards and retention queries key on them.
const (
	ActionAdvisorAsked      = "advisor_asked"
	ActionAdvisorBlocked    = "advisor_blocked"
	ActionStatementImported = "statement_imported"
	ActionUserRegistered    = "user_registered"
	ActionUserLogin         = "user_login"
)

// Record is one audit entry. Question must already be redacted when the
// record is constructed; raw user text never reaches a Sink.
type Record struct {
	ID        string    `json:"id"`
	UserRef   string    `json:"user_ref"`
	Action    string    `json:"action"`
	Question  string    `json:"question,omitempty"`
	Intent    string    `json:"intent,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Sink persists audit records. Implementations assign ID and CreatedAt
// when the caller leaves them zero.
type Sink interface {
	WriteAudit(ctx context.Context, rec Record) error
}

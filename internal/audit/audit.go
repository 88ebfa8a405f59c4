package audit

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Event records one finished plugin invocation.
type Event struct {
	ID           uuid.UUID
	Handler      string
	Action       string // e.g. "plugin.completed", "plugin.declined"
	Message      string // triggering host message, e.g. "Create"
	Stage        string
	InvocationID string
	MarkerID     uuid.UUID
	Caller       string // authenticated subject, "" for local runs
	Duration     time.Duration
	Metadata     map[string]any
	OccurredAt   time.Time
}

const (
	ActionPluginCompleted = "plugin.completed"
	ActionPluginDeclined  = "plugin.declined"
	ActionPluginFailed    = "plugin.failed"
	ActionHandlerUnknown  = "plugin.unknown_handler"
)

const (
	MetadataCorrelationID = "correlation_id"
	MetadataRequestID     = "request_id"
	MetadataValidator     = "validator"
	MetadataUserMessage   = "user_message"
	MetadataDepth         = "depth"
)

// Logger is the audit logging interface. Log is fire-and-forget.
type Logger interface {
	Log(ctx context.Context, event Event)
	Close() error
}

// NopLogger is a no-op audit logger for testing and when audit is disabled.
type NopLogger struct{}

func (NopLogger) Log(context.Context, Event) {}
func (NopLogger) Close() error               { return nil }

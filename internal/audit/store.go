package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/thinkcrm/plugincore/internal/platform/database"
)

const schemaSQL = `CREATE TABLE IF NOT EXISTS plugin_invocations (
	id            uuid PRIMARY KEY,
	handler       text NOT NULL,
	action        text NOT NULL,
	message       text NOT NULL DEFAULT '',
	stage         text NOT NULL DEFAULT '',
	invocation_id text NOT NULL,
	marker_id     uuid NOT NULL,
	caller        text NOT NULL DEFAULT '',
	duration_ms   bigint NOT NULL DEFAULT 0,
	metadata      jsonb,
	occurred_at   timestamptz NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS plugin_invocations_handler_idx ON plugin_invocations (handler, occurred_at DESC)`

const eventColumns = 11

// Store handles audit event persistence.
type Store struct{}

// NewStore creates an audit Store.
func NewStore() *Store {
	return &Store{}
}

// EnsureSchema creates the invocation table when it does not exist.
func EnsureSchema(ctx context.Context, db database.Querier) error {
	for _, stmt := range strings.Split(schemaSQL, ";\n") {
		if _, err := db.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("creating audit schema: %w", err)
		}
	}
	return nil
}

// InsertBatch writes a batch of events to the database.
func (s *Store) InsertBatch(ctx context.Context, db database.Querier, events []Event) error {
	if len(events) == 0 {
		return nil
	}
	sql, args, err := buildBatchInsert(events)
	if err != nil {
		return fmt.Errorf("building batch insert: %w", err)
	}
	if _, err := db.Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("inserting audit events: %w", err)
	}
	return nil
}

// buildBatchInsert constructs a multi-row INSERT statement.
func buildBatchInsert(events []Event) (string, []any, error) {
	const cols = "(id, handler, action, message, stage, invocation_id, marker_id, caller, duration_ms, metadata, occurred_at)"
	placeholders := make([]string, 0, len(events))
	args := make([]any, 0, len(events)*eventColumns)

	for i, e := range events {
		marks := make([]string, eventColumns)
		for j := range marks {
			marks[j] = fmt.Sprintf("$%d", i*eventColumns+j+1)
		}
		placeholders = append(placeholders, "("+strings.Join(marks, ", ")+")")

		var metaJSON []byte
		if e.Metadata != nil {
			var err error
			metaJSON, err = json.Marshal(e.Metadata)
			if err != nil {
				return "", nil, fmt.Errorf("marshaling metadata: %w", err)
			}
		}

		id := e.ID
		if id == uuid.Nil {
			id = uuid.New()
		}
		occurred := e.OccurredAt
		if occurred.IsZero() {
			occurred = time.Now().UTC()
		}

		args = append(args, id, e.Handler, e.Action, e.Message, e.Stage, e.InvocationID,
			e.MarkerID, e.Caller, e.Duration.Milliseconds(), metaJSON, occurred)
	}

	sql := fmt.Sprintf("INSERT INTO plugin_invocations %s VALUES %s", cols, strings.Join(placeholders, ", "))
	return sql, args, nil
}

// ListEventsParams defines filters for querying invocation events.
type ListEventsParams struct {
	Handler *string
	Action  *string
	Caller  *string
	After   *time.Time
	Before  *time.Time
	Limit   int
}

// buildListQuery constructs a parameterized SELECT for invocation events.
func buildListQuery(p ListEventsParams) (string, []any) {
	var conditions []string
	var args []any

	add := func(cond string, v any) {
		args = append(args, v)
		conditions = append(conditions, fmt.Sprintf(cond, len(args)))
	}
	if p.Handler != nil {
		add("handler = $%d", *p.Handler)
	}
	if p.Action != nil {
		add("action = $%d", *p.Action)
	}
	if p.Caller != nil {
		add("caller = $%d", *p.Caller)
	}
	if p.After != nil {
		add("occurred_at > $%d", *p.After)
	}
	if p.Before != nil {
		add("occurred_at < $%d", *p.Before)
	}

	where := ""
	if len(conditions) > 0 {
		where = "WHERE " + strings.Join(conditions, " AND ")
	}
	args = append(args, p.Limit)

	sql := fmt.Sprintf(
		`SELECT id, handler, action, message, stage, invocation_id, marker_id, caller, duration_ms, metadata, occurred_at
		FROM plugin_invocations
		%s
		ORDER BY occurred_at DESC
		LIMIT $%d`,
		where, len(args),
	)
	return sql, args
}

// List returns the newest events matching p.
func (s *Store) List(ctx context.Context, db database.Querier, p ListEventsParams) ([]Event, error) {
	sql, args := buildListQuery(p)
	rows, err := db.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("querying audit events: %w", err)
	}
	defer rows.Close()

	events := []Event{}
	for rows.Next() {
		var (
			e          Event
			durationMS int64
			metadata   []byte
		)
		if err := rows.Scan(&e.ID, &e.Handler, &e.Action, &e.Message, &e.Stage, &e.InvocationID,
			&e.MarkerID, &e.Caller, &durationMS, &metadata, &e.OccurredAt); err != nil {
			return nil, fmt.Errorf("scanning audit event: %w", err)
		}
		e.Duration = time.Duration(durationMS) * time.Millisecond
		if len(metadata) > 0 {
			if err := json.Unmarshal(metadata, &e.Metadata); err != nil {
				return nil, fmt.Errorf("decoding audit metadata: %w", err)
			}
		}
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating audit events: %w", err)
	}
	return events, nil
}

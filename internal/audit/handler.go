package audit

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/thinkcrm/plugincore/internal/platform/database"
)

// Handler serves audit query endpoints.
type Handler struct {
	db    database.Querier
	store *Store
}

// NewHandler creates an audit query handler. A nil db serves empty results.
func NewHandler(db database.Querier) *Handler {
	return &Handler{db: db, store: NewStore()}
}

type eventJSON struct {
	ID           uuid.UUID      `json:"id"`
	Handler      string         `json:"handler"`
	Action       string         `json:"action"`
	Message      string         `json:"message"`
	Stage        string         `json:"stage"`
	InvocationID string         `json:"invocation_id"`
	MarkerID     uuid.UUID      `json:"marker_id"`
	Caller       string         `json:"caller,omitempty"`
	DurationMS   int64          `json:"duration_ms"`
	Metadata     map[string]any `json:"metadata,omitempty"`
	OccurredAt   time.Time      `json:"occurred_at"`
}

// HandleListEvents returns recent plugin invocations.
// GET /api/v1/audit/invocations?handler=<name>&action=<action>&limit=50&after=<timestamp>
func (h *Handler) HandleListEvents(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	params := ListEventsParams{Limit: 50}

	if raw := q.Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 || n > 200 {
			writeAuditJSON(w, http.StatusBadRequest, map[string]string{"error": "limit must be between 1 and 200"})
			return
		}
		params.Limit = n
	}
	for key, dst := range map[string]**string{"handler": &params.Handler, "action": &params.Action, "caller": &params.Caller} {
		if raw := q.Get(key); raw != "" {
			v := raw
			*dst = &v
		}
	}
	for key, dst := range map[string]**time.Time{"after": &params.After, "before": &params.Before} {
		if raw := q.Get(key); raw != "" {
			t, err := time.Parse(time.RFC3339, raw)
			if err != nil {
				writeAuditJSON(w, http.StatusBadRequest, map[string]string{"error": key + " must be an RFC 3339 timestamp"})
				return
			}
			*dst = &t
		}
	}

	if h.db == nil {
		writeAuditJSON(w, http.StatusOK, map[string]any{"events": []any{}, "count": 0})
		return
	}

	events, err := h.store.List(r.Context(), h.db, params)
	if err != nil {
		writeAuditJSON(w, http.StatusInternalServerError, map[string]string{"error": "query failed"})
		return
	}

	out := make([]eventJSON, 0, len(events))
	for _, e := range events {
		out = append(out, eventJSON{
			ID:           e.ID,
			Handler:      e.Handler,
			Action:       e.Action,
			Message:      e.Message,
			Stage:        e.Stage,
			InvocationID: e.InvocationID,
			MarkerID:     e.MarkerID,
			Caller:       e.Caller,
			DurationMS:   e.Duration.Milliseconds(),
			Metadata:     e.Metadata,
			OccurredAt:   e.OccurredAt,
		})
	}

	writeAuditJSON(w, http.StatusOK, map[string]any{"events": out, "count": len(out)})
}

func writeAuditJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

package host

import (
	"encoding/json"
	"errors"
	"io"
	"mime"
	"net/http"

	"github.com/thinkcrm/plugincore/internal/auth"
	"github.com/thinkcrm/plugincore/internal/plugin"
	"github.com/thinkcrm/plugincore/internal/xrm"
)

const maxContextBytes = 1 << 20

// Handler serves the plugin invocation endpoints.
type Handler struct {
	host *Host
}

func NewHandler(h *Host) *Handler {
	return &Handler{host: h}
}

// HandleList lists the catalog.
// GET /api/v1/plugins
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"plugins": h.host.Plugins()})
}

// HandleExecute runs one invocation against the posted execution context.
// POST /api/v1/plugins/{name}/execute[?return=context]
//
// Completed and declined invocations answer 204, or 200 with the (possibly
// modified) context when return=context is set. A failed invocation answers
// 422 with the fixed user message only.
func (h *Handler) HandleExecute(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")

	ec, err := decodeContext(w, r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid execution context"})
		return
	}

	res, err := h.host.Invoke(r.Context(), name, ec, auth.SubjectFromContext(r.Context()))
	switch {
	case errors.Is(err, ErrHandlerNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "plugin not found"})
		return
	case err != nil:
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "request canceled"})
		return
	}

	w.Header().Set("X-Invocation-ID", res.InvocationID.String())
	w.Header().Set("X-Plugin-Outcome", res.Outcome.String())
	if res.Err != nil {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"error": plugin.UserErrorMessage})
		return
	}
	if r.URL.Query().Get("return") == "context" {
		writeJSON(w, http.StatusOK, map[string]any{
			"outcome":      res.Outcome.String(),
			"invocationId": res.InvocationID.String(),
			"context":      ec,
		})
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// decodeContext reads a JSON body, or YAML when the content type says so.
func decodeContext(w http.ResponseWriter, r *http.Request) (*xrm.ExecutionContext, error) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxContextBytes))
	if err != nil {
		return nil, err
	}
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	switch mediaType {
	case "application/yaml", "application/x-yaml", "text/yaml":
		return xrm.DecodeContextYAML(body)
	default:
		return xrm.DecodeContextJSON(body)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

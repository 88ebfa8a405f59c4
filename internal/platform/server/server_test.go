package server_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thinkcrm/plugincore/internal/audit"
	"github.com/thinkcrm/plugincore/internal/auth"
	"github.com/thinkcrm/plugincore/internal/host"
	"github.com/thinkcrm/plugincore/internal/platform/server"
	"github.com/thinkcrm/plugincore/internal/plugin"
)

const executeBody = `{
	"messageName": "Create",
	"stage": 20,
	"inputParameters": {
		"Target": {"$type": "entity", "logicalName": "account", "id": "9a3c7c55-1d2e-4f6a-9b0c-0d1e2f3a4b5c"}
	}
}`

func TestServer_HealthCheck(t *testing.T) {
	srv := server.New(":0", server.Dependencies{})

	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
}

func TestServer_Readiness(t *testing.T) {
	w := httptest.NewRecorder()
	server.New(":0", server.Dependencies{}).Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	deps, _ := newTestDeps(t)
	w = httptest.NewRecorder()
	server.New(":0", deps).Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestServer_NotFound(t *testing.T) {
	srv := server.New(":0", server.Dependencies{})

	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/nonexistent", nil))

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestServer_StartStop(t *testing.T) {
	srv := server.New("127.0.0.1:0", server.Dependencies{ShutdownTimeout: time.Second})

	ctx, cancel := context.WithCancel(context.Background())

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start(ctx)
	}()

	cancel()

	assert.NoError(t, <-errCh)
}

func newTestDeps(t *testing.T) (server.Dependencies, *auth.TokenService) {
	t.Helper()
	tokenSvc := auth.NewTokenService("test-signing-key-must-be-32-chars!!", "plugincore", time.Hour)
	catalog, err := host.BuiltinCatalog(nil)
	require.NoError(t, err)
	return server.Dependencies{
		Auth:          tokenSvc,
		PluginHandler: host.NewHandler(host.New(catalog)),
		AuditHandler:  audit.NewHandler(nil),
	}, tokenSvc
}

func bearer(t *testing.T, svc *auth.TokenService, scopes ...string) string {
	t.Helper()
	token, err := svc.CreateToken(&auth.Identity{Subject: "svc-crm", Scopes: scopes})
	require.NoError(t, err)
	return "Bearer " + token
}

func TestServer_Execute_WithScope(t *testing.T) {
	deps, tokenSvc := newTestDeps(t)
	srv := server.New(":0", deps)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/plugins/setbyandon/execute", strings.NewReader(executeBody))
	req.Header.Set("Authorization", bearer(t, tokenSvc, auth.ScopeExecute))
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "completed", w.Header().Get("X-Plugin-Outcome"))
}

func TestServer_Execute_Failure(t *testing.T) {
	deps, tokenSvc := newTestDeps(t)
	srv := server.New(":0", deps)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/plugins/setbyandon/execute", strings.NewReader(`{"messageName":"Create"}`))
	req.Header.Set("Authorization", bearer(t, tokenSvc, auth.ScopeExecute))
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.JSONEq(t, `{"error":"`+plugin.UserErrorMessage+`"}`, w.Body.String())
}

func TestServer_Scopes(t *testing.T) {
	deps, tokenSvc := newTestDeps(t)
	srv := server.New(":0", deps)

	tests := []struct {
		name   string
		method string
		path   string
		auth   string
		want   int
	}{
		{"no token", http.MethodGet, "/api/v1/plugins", "", http.StatusUnauthorized},
		{"bad token", http.MethodGet, "/api/v1/plugins", "Bearer nope", http.StatusUnauthorized},
		{"missing execute scope", http.MethodGet, "/api/v1/plugins", bearer(t, tokenSvc, auth.ScopeReadAudit), http.StatusForbidden},
		{"list plugins", http.MethodGet, "/api/v1/plugins", bearer(t, tokenSvc, auth.ScopeExecute), http.StatusOK},
		{"missing audit scope", http.MethodGet, "/api/v1/audit/invocations", bearer(t, tokenSvc, auth.ScopeExecute), http.StatusForbidden},
		{"list audit", http.MethodGet, "/api/v1/audit/invocations", bearer(t, tokenSvc, auth.ScopeReadAudit), http.StatusOK},
		{"dev token disabled", http.MethodGet, "/api/v1/plugins", "Bearer dev", http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, nil)
			if tt.auth != "" {
				req.Header.Set("Authorization", tt.auth)
			}
			w := httptest.NewRecorder()
			srv.Handler().ServeHTTP(w, req)
			assert.Equal(t, tt.want, w.Code)
		})
	}
}

func TestServer_DevIdentity(t *testing.T) {
	deps, _ := newTestDeps(t)
	deps.DevIdentity = &auth.Identity{Subject: "dev", Scopes: []string{auth.ScopeExecute}}
	srv := server.New(":0", deps)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/plugins", nil)
	req.Header.Set("Authorization", "Bearer dev")
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestServer_NoAuthServesOpenly(t *testing.T) {
	deps, _ := newTestDeps(t)
	deps.Auth = nil
	deps.CORSAllowedOrigins = []string{"http://localhost:3000"}
	srv := server.New(":0", deps)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/plugins", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "http://localhost:3000", w.Header().Get("Access-Control-Allow-Origin"))
}

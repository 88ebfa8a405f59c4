package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/thinkcrm/plugincore/internal/audit"
	"github.com/thinkcrm/plugincore/internal/auth"
	"github.com/thinkcrm/plugincore/internal/host"
	"github.com/thinkcrm/plugincore/internal/platform/database"
	"github.com/thinkcrm/plugincore/internal/platform/middleware"
)

const defaultShutdownTimeout = 10 * time.Second

// Dependencies holds all injected dependencies for the server.
type Dependencies struct {
	Pool          *database.Pool
	Auth          *auth.TokenService
	DevIdentity   *auth.Identity
	PluginHandler *host.Handler
	AuditHandler  *audit.Handler
	Logger        *slog.Logger

	CORSAllowedOrigins []string
	ShutdownTimeout    time.Duration
}

type Server struct {
	httpServer      *http.Server
	pool            *database.Pool
	ready           bool
	shutdownTimeout time.Duration
	handler         http.Handler
}

func New(addr string, deps Dependencies) *Server {
	s := &Server{
		httpServer: &http.Server{
			Addr:         addr,
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 30 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		pool:            deps.Pool,
		ready:           deps.PluginHandler != nil,
		shutdownTimeout: deps.ShutdownTimeout,
	}
	if s.shutdownTimeout <= 0 {
		s.shutdownTimeout = defaultShutdownTimeout
	}

	// Without a token service the API runs unauthenticated (local runs).
	protectedMux := http.NewServeMux()
	var protectedHandler http.Handler = protectedMux
	scoped := func(scope string, h http.HandlerFunc) http.Handler { return h }
	if deps.Auth != nil {
		protectedHandler = auth.Middleware(deps.Auth, deps.DevIdentity)(protectedHandler)
		scoped = func(scope string, h http.HandlerFunc) http.Handler {
			return auth.RequireScope(scope)(h)
		}
	}

	if deps.PluginHandler != nil {
		protectedMux.Handle("GET /api/v1/plugins",
			scoped(auth.ScopeExecute, deps.PluginHandler.HandleList),
		)
		protectedMux.Handle("POST /api/v1/plugins/{name}/execute",
			scoped(auth.ScopeExecute, deps.PluginHandler.HandleExecute),
		)
	}
	if deps.AuditHandler != nil {
		protectedMux.Handle("GET /api/v1/audit/invocations",
			scoped(auth.ScopeReadAudit, deps.AuditHandler.HandleListEvents),
		)
	}

	// Public routes (no auth required); everything else is protected.
	topMux := http.NewServeMux()
	topMux.HandleFunc("GET /healthz", s.handleHealth)
	topMux.HandleFunc("GET /readyz", s.handleReadiness)
	topMux.Handle("/", protectedHandler)

	var handler http.Handler = topMux
	if deps.Logger != nil {
		handler = middleware.Logging(deps.Logger)(handler)
	}
	handler = middleware.RequestID(handler)
	if len(deps.CORSAllowedOrigins) > 0 {
		handler = middleware.CORS(deps.CORSAllowedOrigins)(handler)
	}

	s.handler = handler
	s.httpServer.Handler = handler
	return s
}

// Handler returns the full middleware-wrapped handler chain (for testing).
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Start serves until ctx is canceled, then drains in-flight requests.
func (s *Server) Start(ctx context.Context) error {
	lc := net.ListenConfig{}
	listener, err := lc.Listen(ctx, "tcp", s.httpServer.Addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", s.httpServer.Addr, err)
	}

	slog.Info("server starting", "addr", listener.Addr().String())

	errCh := make(chan error, 1)
	go func() {
		if err := s.httpServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		slog.Info("server shutting down", "timeout", s.shutdownTimeout)
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
		defer cancel()
		return s.httpServer.Shutdown(shutdownCtx)
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleReadiness requires the plugin host, and the database only when one
// is configured.
func (s *Server) handleReadiness(w http.ResponseWriter, r *http.Request) {
	if !s.ready {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status": "not ready",
			"reason": "plugin host not configured",
		})
		return
	}

	if s.pool != nil {
		if err := s.pool.Ping(r.Context()); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{
				"status": "not ready",
				"reason": "database ping failed",
			})
			return
		}
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

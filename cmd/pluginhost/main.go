package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/thinkcrm/plugincore/internal/audit"
	"github.com/thinkcrm/plugincore/internal/auth"
	"github.com/thinkcrm/plugincore/internal/host"
	"github.com/thinkcrm/plugincore/internal/platform/config"
	"github.com/thinkcrm/plugincore/internal/platform/database"
	"github.com/thinkcrm/plugincore/internal/platform/server"
	"github.com/thinkcrm/plugincore/internal/platform/telemetry"
)

const version = "0.1.0"

// minSigningKeyLen is the HS256 key floor enforced outside dev mode.
const minSigningKeyLen = 32

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	fs := flag.NewFlagSet("pluginhost", flag.ContinueOnError)
	configPath := fs.String("config", "config.yaml", "path to the YAML config file")
	mintSubject := fs.String("mint-token", "", "print a bearer token for this subject and exit")
	mintScopes := fs.String("scopes", auth.ScopeExecute, "comma-separated scopes for -mint-token")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger := telemetry.NewLogger(cfg.Log.Level, cfg.Log.Format)
	telemetry.SetDefault(logger)

	tokenSvc, devIdentity, err := buildAuth(cfg.Auth)
	if err != nil {
		return err
	}
	if *mintSubject != "" {
		token, err := tokenSvc.CreateToken(&auth.Identity{
			Subject: *mintSubject,
			Scopes:  splitScopes(*mintScopes),
		})
		if err != nil {
			return fmt.Errorf("minting token: %w", err)
		}
		fmt.Println(token)
		return nil
	}

	slog.Info("plugincore starting",
		"version", version,
		"port", cfg.Server.Port,
	)

	catalog, err := host.BuiltinCatalog(cfg.Plugins)
	if err != nil {
		return fmt.Errorf("building plugin catalog: %w", err)
	}
	slog.Info("plugin catalog loaded", "plugins", catalog.Names())

	// Database is optional; without it audit falls back to the no-op logger.
	ctx := context.Background()
	var pool *database.Pool
	if cfg.Database.URL != "" {
		slog.Info("connecting to database")
		p, err := database.Connect(ctx, cfg.Database.URL, cfg.Database.MaxConns)
		if err != nil {
			slog.Warn("database connection failed, starting without DB", "error", err)
		} else {
			pool = p
			defer pool.Close()

			if err := database.InTx(ctx, pool, audit.EnsureSchema); err != nil {
				return fmt.Errorf("ensuring audit schema: %w", err)
			}
			slog.Info("audit schema ready")
		}
	}

	auditLogger := buildAuditLogger(pool, cfg.Audit)
	defer auditLogger.Close()

	srv := server.New(fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port), server.Dependencies{
		Pool:               pool,
		Auth:               tokenSvc,
		DevIdentity:        devIdentity,
		PluginHandler:      host.NewHandler(host.New(catalog, host.WithLogger(logger), host.WithAudit(auditLogger))),
		AuditHandler:       buildAuditHandler(pool),
		Logger:             logger,
		CORSAllowedOrigins: cfg.Server.CORSOrigins,
		ShutdownTimeout:    time.Duration(cfg.Server.ShutdownTimeoutSecs) * time.Second,
	})

	// Graceful shutdown on SIGINT/SIGTERM
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	slog.Info("server ready", "dev_mode", cfg.Auth.DevMode)
	return srv.Start(ctx)
}

func buildAuth(cfg config.AuthConfig) (*auth.TokenService, *auth.Identity, error) {
	key := cfg.JWT.SigningKey
	var devIdentity *auth.Identity
	if cfg.DevMode {
		slog.Warn("running in dev mode: authentication bypassed with 'Bearer dev'")
		devIdentity = &auth.Identity{
			Subject:      "dev",
			Organization: "dev",
			Scopes:       []string{auth.ScopeExecute, auth.ScopeReadAudit},
		}
		if key == "" {
			key = "dev-signing-key-not-for-production!"
		}
	}
	if len(key) < minSigningKeyLen {
		return nil, nil, errors.New("auth.jwt.signingkey must be at least 32 characters")
	}
	expiry := time.Duration(cfg.JWT.ExpiryMinutes) * time.Minute
	return auth.NewTokenService(key, cfg.JWT.Issuer, expiry), devIdentity, nil
}

func buildAuditLogger(pool *database.Pool, cfg config.AuditConfig) audit.Logger {
	if pool == nil || !cfg.Enabled {
		return audit.NopLogger{}
	}
	slog.Info("audit logger started")
	return audit.NewAsyncLogger(pool, audit.NewStore(), audit.LoggerConfig{
		BufferSize:    cfg.BufferSize,
		BatchSize:     cfg.BatchSize,
		FlushInterval: time.Duration(cfg.FlushIntervalMS) * time.Millisecond,
	})
}

func buildAuditHandler(pool *database.Pool) *audit.Handler {
	if pool == nil {
		return audit.NewHandler(nil)
	}
	return audit.NewHandler(pool)
}

func splitScopes(raw string) []string {
	var out []string
	for _, s := range strings.Split(raw, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

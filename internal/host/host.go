// Package host plays the orchestration host for in-process and HTTP callers.
// It owns one plugin instance per catalog name and records every invocation
// in the audit log.
package host

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"

	"github.com/thinkcrm/plugincore/internal/audit"
	"github.com/thinkcrm/plugincore/internal/platform/middleware"
	"github.com/thinkcrm/plugincore/internal/platform/telemetry"
	"github.com/thinkcrm/plugincore/internal/plugin"
	"github.com/thinkcrm/plugincore/internal/tracing"
	"github.com/thinkcrm/plugincore/internal/xrm"
)

// Result is what the host observed for one invocation. Err is nil or a
// *plugin.Failure.
type Result struct {
	Outcome      plugin.Outcome
	InvocationID ulid.ULID
	Validator    string
	Elapsed      time.Duration
	Trace        []string
	Err          error
}

// Info describes one catalog entry for listings.
type Info struct {
	Name       string `json:"name"`
	ClassName  string `json:"className,omitempty"`
	Loaded     bool   `json:"loaded"`
	Validators int    `json:"validators"`
}

type Option func(*Host)

func WithLogger(logger *slog.Logger) Option {
	return func(h *Host) { h.logger = logger }
}

func WithAudit(l audit.Logger) Option {
	return func(h *Host) {
		if l != nil {
			h.audit = l
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(h *Host) { h.now = now }
}

type Host struct {
	catalog *Catalog
	logger  *slog.Logger
	audit   audit.Logger
	now     func() time.Time

	mu      sync.Mutex
	plugins map[string]*plugin.Plugin
}

func New(catalog *Catalog, opts ...Option) *Host {
	h := &Host{
		catalog: catalog,
		audit:   audit.NopLogger{},
		now:     time.Now,
		plugins: make(map[string]*plugin.Plugin),
	}
	for _, opt := range opts {
		opt(h)
	}
	if h.logger == nil {
		h.logger = slog.Default()
	}
	return h
}

// Invoke runs the named handler against ec on behalf of caller. The
// returned error is only set when the handler cannot be resolved; the
// invocation's own failure is reported in Result.Err.
func (h *Host) Invoke(ctx context.Context, name string, ec *xrm.ExecutionContext, caller string) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}

	p, err := h.plugin(name)
	if err != nil {
		h.audit.Log(ctx, audit.Event{
			Handler:  name,
			Action:   audit.ActionHandlerUnknown,
			Caller:   caller,
			Metadata: requestMetadata(ctx),
		})
		return Result{}, err
	}

	rec := &tracing.Recorder{}
	sink := tracing.MultiSink(tracing.SlogSink(telemetry.ForHandler(h.logger, name)), rec)

	rep, runErr := p.Run(xrm.Services{Tracing: sink, Context: ec})

	h.audit.Log(ctx, invocationEvent(ctx, name, caller, ec, rep, runErr))
	return Result{
		Outcome:      rep.Outcome,
		InvocationID: rep.InvocationID,
		Validator:    rep.Validator,
		Elapsed:      rep.Elapsed,
		Trace:        rec.Lines(),
		Err:          runErr,
	}, nil
}

// Names lists the catalog.
func (h *Host) Names() []string { return h.catalog.Names() }

// Plugins describes every catalog entry, loaded or not.
func (h *Host) Plugins() []Info {
	names := h.catalog.Names()

	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]Info, 0, len(names))
	for _, name := range names {
		info := Info{Name: name}
		if p, ok := h.plugins[name]; ok {
			info.Loaded = true
			info.ClassName = p.ClassName()
			info.Validators = p.ChainLen()
		}
		out = append(out, info)
	}
	return out
}

func (h *Host) plugin(name string) (*plugin.Plugin, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if p, ok := h.plugins[name]; ok {
		return p, nil
	}
	reg, ok := h.catalog.Lookup(name)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrHandlerNotFound, name)
	}
	handler := reg.Factory()
	if handler == nil {
		return nil, fmt.Errorf("%w: factory for %s returned nil", ErrInvalidRegistration, name)
	}
	if len(reg.Validators) > 0 {
		handler = &configuredHandler{inner: handler, extra: reg.Validators}
	}

	p := plugin.New(handler, plugin.WithConfig(reg.Unsecure, reg.Secure), plugin.WithClock(h.now))
	h.plugins[name] = p
	h.logger.Info("plugin loaded", "handler", name, "class", p.ClassName())
	return p, nil
}

func invocationEvent(ctx context.Context, name, caller string, ec *xrm.ExecutionContext, rep plugin.Report, runErr error) audit.Event {
	ev := audit.Event{
		Handler:      name,
		Action:       outcomeAction(rep.Outcome),
		InvocationID: rep.InvocationID.String(),
		MarkerID:     plugin.Marker().ID,
		Caller:       caller,
		Duration:     rep.Elapsed,
		Metadata:     requestMetadata(ctx),
	}
	if ec != nil {
		ev.Message = ec.MessageName
		ev.Stage = ec.PipelineStage().String()
		ev.Metadata[audit.MetadataDepth] = ec.Depth
		if ec.CorrelationID != uuid.Nil {
			ev.Metadata[audit.MetadataCorrelationID] = ec.CorrelationID.String()
		}
	}
	if rep.Validator != "" {
		ev.Metadata[audit.MetadataValidator] = rep.Validator
	}
	if runErr != nil {
		ev.Metadata[audit.MetadataUserMessage] = runErr.Error()
	}
	return ev
}

func requestMetadata(ctx context.Context) map[string]any {
	md := make(map[string]any)
	if id := middleware.GetRequestID(ctx); id != "" {
		md[audit.MetadataRequestID] = id
	}
	return md
}

func outcomeAction(o plugin.Outcome) string {
	switch o {
	case plugin.OutcomeCompleted:
		return audit.ActionPluginCompleted
	case plugin.OutcomeDeclined:
		return audit.ActionPluginDeclined
	default:
		return audit.ActionPluginFailed
	}
}

// configuredHandler puts registration validators in front of a handler
// while keeping its name and validation capabilities visible to the engine.
type configuredHandler struct {
	inner plugin.Handler
	extra []plugin.Validator
}

func (c *configuredHandler) Execute(s *plugin.Setup) error { return c.inner.Execute(s) }

func (c *configuredHandler) Name() string { return plugin.HandlerName(c.inner) }

func (c *configuredHandler) ConfigureValidation(b *plugin.ValidationBuilder) {
	b.Add(c.extra...)
	if vc, ok := c.inner.(plugin.ValidationConfigurer); ok {
		vc.ConfigureValidation(b)
	}
}

func (c *configuredHandler) UseDeclarativeValidators() bool {
	if s, ok := c.inner.(plugin.DeclarativeSwitch); ok {
		return s.UseDeclarativeValidators()
	}
	return true
}

func (c *configuredHandler) DeclaredValidators() []plugin.Validator {
	if d, ok := c.inner.(plugin.Declarer); ok {
		return d.DeclaredValidators()
	}
	return nil
}

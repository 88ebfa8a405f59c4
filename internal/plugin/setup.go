package plugin

import (
	"errors"

	"github.com/oklog/ulid/v2"
	"github.com/thinkcrm/plugincore/internal/tracing"
	"github.com/thinkcrm/plugincore/internal/xrm"
)

// TargetKey is the input parameter holding the record the event is about.
const TargetKey = "Target"

var (
	ErrNilProvider      = errors.New("service provider is nil")
	ErrNoTracing        = errors.New("service provider returned no tracing service")
	ErrNoContext        = errors.New("service provider returned no execution context")
	ErrNoInputParameter = errors.New("execution context has no input parameters")
)

// SetupConfig carries the registration-time values for one invocation.
type SetupConfig struct {
	ClassName    string
	Unsecure     string
	Secure       string
	InvocationID ulid.ULID
}

// Setup is the immutable per-invocation bundle handed to business logic.
// It is owned by a single Execute call.
type Setup struct {
	ctx    *xrm.ExecutionContext
	cfg    SetupConfig
	log    *tracing.Logger
	helper *Helper
}

// NewSetup resolves the host services from sp. A provider missing its
// tracing sink, its context or the context's input parameters is malformed.
func NewSetup(sp xrm.ServiceProvider, cfg SetupConfig) (*Setup, error) {
	if sp == nil {
		return nil, ErrNilProvider
	}
	sink := sp.TracingService()
	if sink == nil {
		return nil, ErrNoTracing
	}
	ctx := sp.ExecutionContext()
	if ctx == nil {
		return nil, ErrNoContext
	}
	if ctx.InputParameters == nil {
		return nil, ErrNoInputParameter
	}

	s := &Setup{
		ctx: ctx,
		cfg: cfg,
		log: tracing.New(sink, cfg.ClassName),
	}
	s.helper = &Helper{setup: s, log: s.log.WithCaller(helperCaller)}
	return s, nil
}

func (s *Setup) Context() *xrm.ExecutionContext { return s.ctx }
func (s *Setup) ClassName() string              { return s.cfg.ClassName }
func (s *Setup) UnsecureConfig() string         { return s.cfg.Unsecure }
func (s *Setup) SecureConfig() string           { return s.cfg.Secure }
func (s *Setup) Logging() *tracing.Logger       { return s.log }
func (s *Setup) Helper() *Helper                { return s.helper }
func (s *Setup) InvocationID() ulid.ULID        { return s.cfg.InvocationID }

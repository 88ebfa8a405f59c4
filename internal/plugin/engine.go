package plugin

import (
	"fmt"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	pkgerrors "github.com/pkg/errors"
	"github.com/thinkcrm/plugincore/internal/tracing"
	"github.com/thinkcrm/plugincore/internal/xrm"
)

// Outcome is what an invocation amounted to. The host only ever sees nil or
// a Failure; Outcome lets in-process callers tell a decline from a
// completion.
type Outcome int

const (
	OutcomeCompleted Outcome = iota
	OutcomeDeclined
	OutcomeFailed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeCompleted:
		return "completed"
	case OutcomeDeclined:
		return "declined"
	case OutcomeFailed:
		return "failed"
	}
	return fmt.Sprintf("Outcome(%d)", int(o))
}

// Report describes one finished invocation.
type Report struct {
	Outcome      Outcome
	InvocationID ulid.ULID
	Elapsed      time.Duration
	// Validator names the validator that stopped the chain, if one did.
	Validator string
}

// Option configures a Plugin.
type Option func(*Plugin)

// WithClassName overrides the name stamped on trace lines.
func WithClassName(name string) Option {
	return func(p *Plugin) { p.className = name }
}

// WithConfig sets the registration-time configuration strings.
func WithConfig(unsecure, secure string) Option {
	return func(p *Plugin) {
		p.unsecure = unsecure
		p.secure = secure
	}
}

// WithClock replaces time.Now for elapsed-time records.
func WithClock(now func() time.Time) Option {
	return func(p *Plugin) { p.now = now }
}

// Plugin runs a Handler through the invocation lifecycle. A Plugin may be
// invoked concurrently; its validation chain is built once, on first use.
type Plugin struct {
	handler   Handler
	name      string
	className string
	unsecure  string
	secure    string
	now       func() time.Time

	mu    sync.Mutex
	chain *Chain
}

// New wraps h.
func New(h Handler, opts ...Option) *Plugin {
	p := &Plugin{handler: h, now: time.Now}
	p.name = HandlerName(h)
	p.className = p.name
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *Plugin) ClassName() string { return p.className }

// ChainLen returns the length of the built validation chain, 0 before the
// first invocation.
func (p *Plugin) ChainLen() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.chain == nil {
		return 0
	}
	return p.chain.Len()
}

// Execute is the host entry point: nil on completion or decline, otherwise
// a *Failure.
func (p *Plugin) Execute(sp xrm.ServiceProvider) error {
	_, err := p.Run(sp)
	return err
}

// invocationID stamps the id with start when the clock allows it. Times
// outside the ULID range (zero or pre-epoch clocks) get the current time.
func invocationID(start time.Time) ulid.ULID {
	id, err := ulid.New(ulid.Timestamp(start), ulid.DefaultEntropy())
	if err != nil {
		return ulid.Make()
	}
	return id
}

// Run executes one invocation and reports its outcome. Any returned error
// is a *Failure.
func (p *Plugin) Run(sp xrm.ServiceProvider) (rep Report, err error) {
	start := p.now()
	rep = Report{Outcome: OutcomeFailed}

	log := tracing.New(nil, p.className)
	milestone := func(msg string) {
		log.Write("%s | Elapsed: %dms", msg, p.now().Sub(start).Milliseconds())
	}

	defer func() {
		if r := recover(); r != nil {
			rep.Outcome = OutcomeFailed
			err = p.normalize(log, milestone, newPanicError(r))
		}
		rep.Elapsed = p.now().Sub(start)
		milestone("Terminating Plugin Execution")
	}()

	rep.InvocationID = invocationID(start)
	if sp != nil {
		log = tracing.New(sp.TracingService(), p.className)
	}
	log.Write("Started Execute: %s", p.className)
	log.Write("Memory Instance Id: %s", Marker().ID)
	log.Write("Invocation Id: %s", rep.InvocationID)

	setup, err := NewSetup(sp, SetupConfig{
		ClassName:    p.className,
		Unsecure:     p.unsecure,
		Secure:       p.secure,
		InvocationID: rep.InvocationID,
	})
	if err != nil {
		return rep, p.normalize(log, milestone, pkgerrors.WithStack(err))
	}
	log.Write("Setup Completed.")

	milestone("Plugin Validation Starting")
	ev := p.validationChain(log).Evaluate(setup.Context(), log)
	switch ev.Decision {
	case DecisionDecline:
		milestone("Plugin Validation Returned False, terminating execution.")
		rep.Outcome = OutcomeDeclined
		rep.Validator = ev.Validator
		return rep, nil
	case DecisionFail:
		rep.Validator = ev.Validator
		return rep, p.normalize(log, milestone,
			Fail(fmt.Errorf("validator %s rejected the invocation: %s", ev.Validator, ev.Message)))
	}
	milestone("Plugin Validation Returned True, continuing execution")

	milestone("Plugin Execution Starting")
	if err := p.handler.Execute(setup); err != nil {
		return rep, p.normalize(log, milestone, err)
	}
	milestone("Plugin Execution Completed - No Exceptions")

	rep.Outcome = OutcomeCompleted
	return rep, nil
}

// normalize logs err in full and returns the Failure that replaces it.
func (p *Plugin) normalize(log *tracing.Logger, milestone func(string), err error) error {
	if f := AsFailure(err); f != nil {
		milestone("Failure Signal Caught")
		log.WriteError(f)
		return f
	}
	milestone("Unhandled Exception Caught")
	log.WriteError(err)
	return &Failure{cause: err}
}

func (p *Plugin) validationChain(log *tracing.Logger) *Chain {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.chain != nil {
		return p.chain
	}

	log.Write("Initial Configuration of Validation Logic.")
	b := &ValidationBuilder{}
	if c, ok := p.handler.(ValidationConfigurer); ok {
		log.Write("Executing ConfigureValidation.")
		c.ConfigureValidation(b)
	}
	if p.useDeclarative() {
		log.Write("Loading declared validators.")
		declaredVs := Declared(p.name)
		if d, ok := p.handler.(Declarer); ok {
			declaredVs = append(declaredVs, d.DeclaredValidators()...)
		}
		for _, v := range declaredVs {
			if v == nil {
				continue
			}
			log.Write("Adding Validator: %s", v.Name())
			b.Add(v)
		}
	}

	p.chain = b.Build()
	return p.chain
}

func (p *Plugin) useDeclarative() bool {
	if s, ok := p.handler.(DeclarativeSwitch); ok {
		return s.UseDeclarativeValidators()
	}
	return true
}

package plugin

import (
	"github.com/thinkcrm/plugincore/internal/tracing"
	"github.com/thinkcrm/plugincore/internal/xrm"
)

// Verdict is the tri-state result of one validator. A failed verdict with
// Escalate set surfaces as a Failure; without it execution stops silently.
type Verdict struct {
	Passed   bool
	Escalate bool
	Message  string
}

func Pass() Verdict { return Verdict{Passed: true} }

// Decline stops execution without an error.
func Decline(msg string) Verdict { return Verdict{Message: msg} }

// Reject stops execution with a Failure.
func Reject(msg string) Verdict { return Verdict{Escalate: true, Message: msg} }

// Validator gates an invocation on the read-only execution context.
type Validator interface {
	Name() string
	Validate(ctx *xrm.ExecutionContext) Verdict
}

// ValidatorFunc adapts a function to Validator.
type ValidatorFunc func(ctx *xrm.ExecutionContext) Verdict

type namedValidator struct {
	name string
	fn   ValidatorFunc
}

func (v namedValidator) Name() string                               { return v.name }
func (v namedValidator) Validate(ctx *xrm.ExecutionContext) Verdict { return v.fn(ctx) }

// NewValidator names fn.
func NewValidator(name string, fn ValidatorFunc) Validator {
	return namedValidator{name: name, fn: fn}
}

// ValidationBuilder collects validators in insertion order.
type ValidationBuilder struct {
	validators []Validator
}

func (b *ValidationBuilder) Add(vs ...Validator) *ValidationBuilder {
	for _, v := range vs {
		if v != nil {
			b.validators = append(b.validators, v)
		}
	}
	return b
}

func (b *ValidationBuilder) AddFunc(name string, fn ValidatorFunc) *ValidationBuilder {
	return b.Add(NewValidator(name, fn))
}

func (b *ValidationBuilder) Len() int { return len(b.validators) }

// Validators returns a copy of the collected validators.
func (b *ValidationBuilder) Validators() []Validator {
	out := make([]Validator, len(b.validators))
	copy(out, b.validators)
	return out
}

// Build freezes the collected validators into a Chain.
func (b *ValidationBuilder) Build() *Chain {
	return &Chain{validators: b.Validators()}
}

// Decision is the overall result of evaluating a chain.
type Decision int

const (
	DecisionPass Decision = iota
	DecisionDecline
	DecisionFail
)

func (d Decision) String() string {
	switch d {
	case DecisionPass:
		return "pass"
	case DecisionDecline:
		return "decline"
	case DecisionFail:
		return "fail"
	}
	return "unknown"
}

// Evaluation reports which validator stopped the chain, if any.
type Evaluation struct {
	Decision  Decision
	Validator string
	Message   string
}

// Chain is an immutable, ordered validator list.
type Chain struct {
	validators []Validator
}

func (c *Chain) Len() int { return len(c.validators) }

func (c *Chain) Names() []string {
	names := make([]string, len(c.validators))
	for i, v := range c.validators {
		names[i] = v.Name()
	}
	return names
}

// Evaluate runs validators in order and stops at the first non-pass.
func (c *Chain) Evaluate(ctx *xrm.ExecutionContext, log *tracing.Logger) Evaluation {
	if len(c.validators) == 0 {
		return tracing.WriteAndReturn(log, Evaluation{Decision: DecisionPass},
			"No validators configured. Returning pass.")
	}
	for _, v := range c.validators {
		verdict := v.Validate(ctx)
		if verdict.Passed {
			log.Write("Validation Passed: %s", v.Name())
			continue
		}
		log.Write("Validation Failed|%s|Escalate: %t", verdict.Message, verdict.Escalate)
		ev := Evaluation{Decision: DecisionDecline, Validator: v.Name(), Message: verdict.Message}
		if verdict.Escalate {
			ev.Decision = DecisionFail
		}
		return ev
	}
	return tracing.WriteAndReturn(log, Evaluation{Decision: DecisionPass}, "Validation Passed")
}

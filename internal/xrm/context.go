package xrm

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
)

// ParameterCollection holds input, output or shared parameters keyed by name.
type ParameterCollection map[string]any

// Contains reports whether key is present.
func (p ParameterCollection) Contains(key string) bool {
	_, ok := p[key]
	return ok
}

// Get returns the value stored under key.
func (p ParameterCollection) Get(key string) (any, bool) {
	v, ok := p[key]
	return v, ok
}

func (p *ParameterCollection) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if raw == nil {
		*p = nil
		return nil
	}
	out := make(ParameterCollection, len(raw))
	for k, r := range raw {
		v, err := decodeValue(r)
		if err != nil {
			return fmt.Errorf("decoding parameter %q: %w", k, err)
		}
		out[k] = v
	}
	*p = out
	return nil
}

// EntityImageCollection holds named record snapshots.
type EntityImageCollection map[string]*Entity

// Contains reports whether an image named name is present.
func (c EntityImageCollection) Contains(name string) bool {
	_, ok := c[name]
	return ok
}

// Get returns the image named name.
func (c EntityImageCollection) Get(name string) (*Entity, bool) {
	e, ok := c[name]
	return e, ok
}

// ExecutionContext describes one triggering business event. The framework
// treats it as read-only, except for the Target record which business logic
// may mutate in pre-operation stages.
type ExecutionContext struct {
	MessageName       string                `json:"messageName"`
	Stage             int                   `json:"stage"`
	Mode              int                   `json:"mode"`
	IsolationMode     int                   `json:"isolationMode"`
	Depth             int                   `json:"depth"`
	PrimaryEntityName string                `json:"primaryEntityName,omitempty"`
	PrimaryEntityID   uuid.UUID             `json:"primaryEntityId"`
	UserID            uuid.UUID             `json:"userId"`
	InitiatingUserID  uuid.UUID             `json:"initiatingUserId"`
	CorrelationID     uuid.UUID             `json:"correlationId"`
	InputParameters   ParameterCollection   `json:"inputParameters"`
	OutputParameters  ParameterCollection   `json:"outputParameters,omitempty"`
	SharedVariables   ParameterCollection   `json:"sharedVariables,omitempty"`
	PreEntityImages   EntityImageCollection `json:"preEntityImages,omitempty"`
	PostEntityImages  EntityImageCollection `json:"postEntityImages,omitempty"`
	ParentContext     *ExecutionContext     `json:"parentContext,omitempty"`
}

// Message maps the message name to a known MessageType, or MessageUnknown.
func (c *ExecutionContext) Message() MessageType {
	if c == nil {
		return MessageUnknown
	}
	return ParseMessage(c.MessageName)
}

// PipelineStage returns the stage as a named constant.
func (c *ExecutionContext) PipelineStage() PipelineStage {
	if c == nil {
		return 0
	}
	return PipelineStage(c.Stage)
}

// ExecutionMode returns the mode as a named constant.
func (c *ExecutionContext) ExecutionMode() ExecutionMode {
	if c == nil {
		return ModeSynchronous
	}
	return ExecutionMode(c.Mode)
}

// Isolation returns the isolation mode as a named constant.
func (c *ExecutionContext) Isolation() IsolationMode {
	if c == nil {
		return 0
	}
	return IsolationMode(c.IsolationMode)
}

// Parameters returns the named parameter collection of this context level.
func (c *ExecutionContext) Parameters(which Collection) ParameterCollection {
	if c == nil {
		return nil
	}
	switch which {
	case InputParameters:
		return c.InputParameters
	case OutputParameters:
		return c.OutputParameters
	case SharedVariables:
		return c.SharedVariables
	}
	return nil
}

// Collection names a parameter collection of an ExecutionContext.
type Collection int

const (
	InputParameters Collection = iota
	OutputParameters
	SharedVariables
)

func (c Collection) String() string {
	switch c {
	case InputParameters:
		return "InputParameters"
	case OutputParameters:
		return "OutputParameters"
	case SharedVariables:
		return "SharedVariables"
	}
	return fmt.Sprintf("Collection(%d)", int(c))
}

// FindInParentChain looks key up in the given collection at ctx and then at
// every ancestor. Levels without the collection are skipped. The walk is
// iterative and stops on a repeated context, so malformed cyclic chains
// terminate.
func FindInParentChain(ctx *ExecutionContext, which Collection, key string) (any, bool) {
	seen := make(map[*ExecutionContext]struct{})
	for cur := ctx; cur != nil; cur = cur.ParentContext {
		if _, dup := seen[cur]; dup {
			return nil, false
		}
		seen[cur] = struct{}{}
		if v, ok := cur.Parameters(which).Get(key); ok {
			return v, true
		}
	}
	return nil, false
}

// ChainDepth counts the contexts in the parent chain, including ctx.
func ChainDepth(ctx *ExecutionContext) int {
	seen := make(map[*ExecutionContext]struct{})
	n := 0
	for cur := ctx; cur != nil; cur = cur.ParentContext {
		if _, dup := seen[cur]; dup {
			break
		}
		seen[cur] = struct{}{}
		n++
	}
	return n
}

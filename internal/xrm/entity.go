package xrm

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
)

const (
	wireTypeEntity    = "entity"
	wireTypeReference = "entityreference"
)

// Entity is a late-bound record as delivered by the host.
type Entity struct {
	LogicalName string
	ID          uuid.UUID
	Attributes  map[string]any
}

// NewEntity creates an entity with an empty attribute set.
func NewEntity(logicalName string, id uuid.UUID) *Entity {
	return &Entity{LogicalName: logicalName, ID: id, Attributes: make(map[string]any)}
}

// Get returns the attribute value and whether it is present.
func (e *Entity) Get(name string) (any, bool) {
	if e == nil {
		return nil, false
	}
	v, ok := e.Attributes[name]
	return v, ok
}

// Contains reports whether the attribute is present.
func (e *Entity) Contains(name string) bool {
	_, ok := e.Get(name)
	return ok
}

// Set assigns an attribute, creating the attribute map on first use.
func (e *Entity) Set(name string, v any) {
	if e.Attributes == nil {
		e.Attributes = make(map[string]any)
	}
	e.Attributes[name] = v
}

// ToReference returns a lightweight reference to the entity.
func (e *Entity) ToReference() EntityReference {
	return EntityReference{LogicalName: e.LogicalName, ID: e.ID}
}

// EntityReference identifies a record without carrying its attributes.
type EntityReference struct {
	LogicalName string
	ID          uuid.UUID
	Name        string
}

func (r EntityReference) String() string {
	return fmt.Sprintf("%s(%s)", r.LogicalName, r.ID)
}

type entityWire struct {
	Type        string                     `json:"$type,omitempty"`
	LogicalName string                     `json:"logicalName"`
	ID          uuid.UUID                  `json:"id"`
	Attributes  map[string]json.RawMessage `json:"attributes,omitempty"`
}

type referenceWire struct {
	Type        string    `json:"$type,omitempty"`
	LogicalName string    `json:"logicalName"`
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name,omitempty"`
}

func (e Entity) MarshalJSON() ([]byte, error) {
	attrs := make(map[string]json.RawMessage, len(e.Attributes))
	for k, v := range e.Attributes {
		raw, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("marshaling attribute %q: %w", k, err)
		}
		attrs[k] = raw
	}
	return json.Marshal(entityWire{
		Type:        wireTypeEntity,
		LogicalName: e.LogicalName,
		ID:          e.ID,
		Attributes:  attrs,
	})
}

func (e *Entity) UnmarshalJSON(data []byte) error {
	var w entityWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	attrs := make(map[string]any, len(w.Attributes))
	for k, raw := range w.Attributes {
		v, err := decodeValue(raw)
		if err != nil {
			return fmt.Errorf("decoding attribute %q: %w", k, err)
		}
		attrs[k] = v
	}
	*e = Entity{LogicalName: w.LogicalName, ID: w.ID, Attributes: attrs}
	return nil
}

func (r EntityReference) MarshalJSON() ([]byte, error) {
	return json.Marshal(referenceWire{
		Type:        wireTypeReference,
		LogicalName: r.LogicalName,
		ID:          r.ID,
		Name:        r.Name,
	})
}

func (r *EntityReference) UnmarshalJSON(data []byte) error {
	var w referenceWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	*r = EntityReference{LogicalName: w.LogicalName, ID: w.ID, Name: w.Name}
	return nil
}

// decodeValue turns a raw parameter or attribute value into its Go shape.
// Objects tagged with "$type" become *Entity or EntityReference; everything
// else decodes as a plain JSON value.
func decodeValue(raw json.RawMessage) (any, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) > 0 && trimmed[0] == '{' {
		var tagged struct {
			Type string `json:"$type"`
		}
		if err := json.Unmarshal(trimmed, &tagged); err != nil {
			return nil, err
		}
		switch tagged.Type {
		case wireTypeEntity:
			var e Entity
			if err := json.Unmarshal(trimmed, &e); err != nil {
				return nil, err
			}
			return &e, nil
		case wireTypeReference:
			var r EntityReference
			if err := json.Unmarshal(trimmed, &r); err != nil {
				return nil, err
			}
			return r, nil
		}
	}
	var v any
	if err := json.Unmarshal(trimmed, &v); err != nil {
		return nil, err
	}
	return v, nil
}

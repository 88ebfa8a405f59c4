package xrm

import (
	"fmt"
	"time"

	"github.com/go-viper/mapstructure/v2"
)

// ProjectionTag is the struct tag read by Project.
const ProjectionTag = "xrm"

// Project decodes the entity's attributes into a new T. Fields are matched
// by their `xrm` tag (or name, case-insensitively). The pseudo attributes
// "logicalname" and "id" expose the entity identity unless the record
// carries real attributes of the same name.
func Project[T any](e *Entity) (*T, error) {
	out := new(T)
	if err := ProjectInto(e, out); err != nil {
		return nil, err
	}
	return out, nil
}

// ProjectInto decodes the entity's attributes into out, which must be a
// non-nil pointer.
func ProjectInto(e *Entity, out any) error {
	if e == nil {
		return fmt.Errorf("projecting entity: %w", ErrKeyNotFound)
	}
	input := make(map[string]any, len(e.Attributes)+2)
	input["logicalname"] = e.LogicalName
	input["id"] = e.ID
	for k, v := range e.Attributes {
		input[k] = v
	}

	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName: ProjectionTag,
		Result:  out,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.TextUnmarshallerHookFunc(),
			mapstructure.StringToTimeHookFunc(time.RFC3339),
		),
	})
	if err != nil {
		return fmt.Errorf("building projection for %s: %w", e.LogicalName, err)
	}
	if err := dec.Decode(input); err != nil {
		return fmt.Errorf("projecting %s %s: %w", e.LogicalName, e.ID, err)
	}
	return nil
}

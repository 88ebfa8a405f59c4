package xrm

import (
	"encoding/json"
	"fmt"

	"gopkg.in/yaml.v3"
)

// DecodeContextJSON decodes an ExecutionContext from its JSON wire form.
func DecodeContextJSON(data []byte) (*ExecutionContext, error) {
	var ctx ExecutionContext
	if err := json.Unmarshal(data, &ctx); err != nil {
		return nil, fmt.Errorf("decoding execution context: %w", err)
	}
	return &ctx, nil
}

// DecodeContextYAML accepts the same document shape as DecodeContextJSON
// written as YAML. The YAML tree is normalized to JSON first so both forms
// share the tagged value rules.
func DecodeContextYAML(data []byte) (*ExecutionContext, error) {
	var tree any
	if err := yaml.Unmarshal(data, &tree); err != nil {
		return nil, fmt.Errorf("parsing execution context yaml: %w", err)
	}
	raw, err := json.Marshal(normalizeYAML(tree))
	if err != nil {
		return nil, fmt.Errorf("normalizing execution context yaml: %w", err)
	}
	return DecodeContextJSON(raw)
}

// normalizeYAML rewrites map[any]any nodes, which encoding/json rejects.
func normalizeYAML(v any) any {
	switch t := v.(type) {
	case map[string]any:
		for k, child := range t {
			t[k] = normalizeYAML(child)
		}
		return t
	case map[any]any:
		out := make(map[string]any, len(t))
		for k, child := range t {
			out[fmt.Sprint(k)] = normalizeYAML(child)
		}
		return out
	case []any:
		for i, child := range t {
			t[i] = normalizeYAML(child)
		}
		return t
	}
	return v
}

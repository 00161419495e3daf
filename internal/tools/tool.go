package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
)

// Tool defines the interface for all agent capabilities.
// Execute receives the raw argument string produced by the planner
// (a JSON-encoded object) and returns a plain-text result that becomes
// the next observation.
type Tool interface {
	Name() string
	Description() string
	Parameters() map[string]any // JSON Schema for the tool's inputs
	Execute(ctx context.Context, input string) (string, error)
}

// Registry manages the set of available tools.
type Registry struct {
	tools map[string]Tool
}

func NewRegistry() *Registry {
	return &Registry{
		tools: make(map[string]Tool),
	}
}

func (r *Registry) Register(t Tool) {
	r.tools[t.Name()] = t
}

func (r *Registry) Get(name string) Tool {
	return r.tools[name]
}

// Names returns the registered tool names in sorted order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.tools))
	for name := range r.tools {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// All returns the registered tools ordered by name, for prompt rendering.
func (r *Registry) All() []Tool {
	out := make([]Tool, 0, len(r.tools))
	for _, name := range r.Names() {
		out = append(out, r.tools[name])
	}
	return out
}

// Dispatch looks up a tool by name, validates the raw input against the
// tool's parameter schema, and executes it. Every failure mode (unknown
// tool, bad arguments, execution error) is folded into the returned string
// so the loop can feed it back to the model as an observation instead of
// crashing.
func (r *Registry) Dispatch(ctx context.Context, name, input string) string {
	t := r.Get(name)
	if t == nil {
		return fmt.Sprintf("Error: tool %q not found. Available tools: %v", name, r.Names())
	}

	if err := validateInput(t.Parameters(), input); err != nil {
		return fmt.Sprintf("Error: invalid arguments for tool %q: %v", name, err)
	}

	out, err := t.Execute(ctx, input)
	if err != nil {
		return fmt.Sprintf("Error executing tool %q: %v", name, err)
	}
	return out
}

// validateInput checks the argument object against a JSON-schema-shaped
// parameter description: required keys must be present, and parameters
// declared as strings must actually hold strings.
func validateInput(schema map[string]any, input string) error {
	if schema == nil {
		return nil
	}

	raw := input
	if raw == "" {
		raw = "{}"
	}
	var args map[string]any
	if err := json.Unmarshal([]byte(raw), &args); err != nil {
		return fmt.Errorf("input is not a JSON object: %v", err)
	}

	if required, ok := schema["required"].([]string); ok {
		for _, key := range required {
			if _, present := args[key]; !present {
				return fmt.Errorf("missing required parameter %q", key)
			}
		}
	}

	props, ok := schema["properties"].(map[string]any)
	if !ok {
		return nil
	}
	for key, spec := range props {
		val, present := args[key]
		if !present {
			continue
		}
		prop, ok := spec.(map[string]any)
		if !ok {
			continue
		}
		if prop["type"] == "string" {
			if _, isString := val.(string); !isString {
				return fmt.Errorf("parameter %q must be a string", key)
			}
		}
	}
	return nil
}

// Truncate caps a tool result before it becomes an observation, so a single
// verbose command cannot flood the transcript.
func Truncate(s string, max int) string {
	if max <= 0 || len(s) <= max {
		return s
	}
	return s[:max] + "\n... (tool output truncated)"
}

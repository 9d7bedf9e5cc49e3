// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package tools defines the function-calling tools the research agent can
// invoke, and a registry that maps tool names to implementations. Tool
// results are JSON envelopes with a "success" flag, so the model always
// receives a parseable answer even when a tool fails.
package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"
)

// Definition describes a tool to the model. Parameters holds the JSON
// schema for the tool's arguments.
type Definition struct {
	Name        string
	Description string
	Parameters  json.RawMessage
}

// Tool executes a single agent capability. Execute receives the raw
// argument JSON produced by the model and returns the result envelope as a
// JSON string. An error return means the tool itself broke; expected
// failures (bad input, upstream errors) are reported inside the envelope.
type Tool interface {
	Definition() Definition
	Execute(ctx context.Context, args json.RawMessage) (string, error)
}

// Registry holds the tools available to an agent run.
type Registry struct {
	mu    sync.RWMutex
	tools map[string]Tool
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{tools: make(map[string]Tool)}
}

// Register adds t under its definition name. Empty and duplicate names are
// rejected.
func (r *Registry) Register(t Tool) error {
	name := t.Definition().Name
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("registering tool: name is empty")
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.tools[name]; ok {
		return fmt.Errorf("registering tool: %q already registered", name)
	}
	r.tools[name] = t
	return nil
}

// Get returns the tool registered under name.
func (r *Registry) Get(name string) (Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tools[name]
	return t, ok
}

// Names returns the registered tool names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.tools))
	for name := range r.tools {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Definitions returns the definitions of all registered tools, sorted by
// name so the model sees a stable ordering.
func (r *Registry) Definitions() []Definition {
	r.mu.RLock()
	defer r.mu.RUnlock()
	defs := make([]Definition, 0, len(r.tools))
	for _, t := range r.tools {
		defs = append(defs, t.Definition())
	}
	sort.Slice(defs, func(i, j int) bool { return defs[i].Name < defs[j].Name })
	return defs
}

// marshalEnvelope encodes a tool result envelope.
func marshalEnvelope(v any) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("encoding tool result: %w", err)
	}
	return string(b), nil
}

package toolscope

import (
	"errors"
	"fmt"
	"sync"
)

// NamedMiddleware wraps a handler at registration time, with the tool's
// registered name bound in.
type NamedMiddleware func(name string, next Handler) Handler

// ToolRegistry holds tools for lookup by name and applies registration
// middleware. Middleware installed via Use affects only registrations
// performed afterwards; tools already registered are untouched.
type ToolRegistry struct {
	mu         sync.RWMutex
	tools      map[string]Tool
	order      []string
	middleware []NamedMiddleware
}

// NewToolRegistry creates an empty tool registry.
func NewToolRegistry() *ToolRegistry {
	return &ToolRegistry{
		tools: make(map[string]Tool),
	}
}

// Use installs middleware applied to every subsequent registration.
// Middleware runs in installation order, innermost first.
func (r *ToolRegistry) Use(mw NamedMiddleware) {
	if mw == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.middleware = append(r.middleware, mw)
}

// Register adds a tool, wrapping it with the currently installed
// middleware. Registering a name again overwrites the previous entry.
func (r *ToolRegistry) Register(t Tool) {
	if t == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	name := t.Name()
	handler := t.Invoke
	for _, mw := range r.middleware {
		handler = mw(name, handler)
	}

	if _, exists := r.tools[name]; !exists {
		r.order = append(r.order, name)
	}
	r.tools[name] = NewFuncTool(name, handler)
}

// Get returns a registered tool by name.
func (r *ToolRegistry) Get(name string) (Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tools[name]
	return t, ok
}

// List returns registered tool names in registration order.
func (r *ToolRegistry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// Instrument installs execution-record middleware on the registry so
// every tool registered afterwards is wrapped automatically. Tools
// registered before the call are unaffected. Installing twice wraps
// registrations twice and is out of contract.
func Instrument(registry *ToolRegistry, serverHost string, sink Sink) error {
	if registry == nil {
		return errors.New("toolscope: registry is required")
	}
	interceptor, err := NewInterceptor(InterceptorConfig{
		ServerHost: serverHost,
		Sink:       sink,
	})
	if err != nil {
		return fmt.Errorf("toolscope: instrument registry: %w", err)
	}
	registry.Use(interceptor.Middleware())
	return nil
}

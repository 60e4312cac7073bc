package toolscope

import "context"

// Handler is the invocable shape of a tool: named arguments in,
// structured outputs out.
type Handler func(ctx context.Context, args map[string]any) (map[string]any, error)

// Tool is the minimal interface a host framework registers.
type Tool interface {
	Name() string
	Invoke(ctx context.Context, args map[string]any) (map[string]any, error)
}

// FuncTool is a function-backed tool, useful for registering handlers
// inline without implementing a full interface.
type FuncTool struct {
	name string
	fn   Handler
}

// NewFuncTool creates a function-backed tool.
func NewFuncTool(name string, fn Handler) *FuncTool {
	return &FuncTool{name: name, fn: fn}
}

// Name returns the tool's name.
func (t *FuncTool) Name() string {
	return t.name
}

// Invoke executes the backing function.
func (t *FuncTool) Invoke(ctx context.Context, args map[string]any) (map[string]any, error) {
	return t.fn(ctx, args)
}

// Ensure interface compliance at compile time.
var _ Tool = (*FuncTool)(nil)

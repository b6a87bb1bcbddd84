package tool

import (
	"log/slog"
	"sort"
	"sync"

	"ald-01/internal/domain"
)

// Registry is a goroutine-safe tool registry. Tools registered with a JSON
// Schema are automatically wrapped so arguments are validated on Execute.
// Registry implements domain.ToolExecutor.
type Registry struct {
	mu     sync.RWMutex
	tools  map[string]domain.Tool
	logger *slog.Logger
}

// Compile-time interface assertion.
var _ domain.ToolExecutor = (*Registry)(nil)

// NewRegistry creates an empty tool registry.
func NewRegistry(logger *slog.Logger) *Registry {
	return &Registry{
		tools:  make(map[string]domain.Tool),
		logger: logger,
	}
}

// Register adds a tool, wrapping it with schema validation when the tool
// declares parameters. Re-registering a name replaces the previous tool.
func (r *Registry) Register(t domain.Tool) error {
	wrapped, err := WithSchemaValidation(t)
	if err != nil {
		return domain.WrapOp("Registry.Register", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.tools[t.Name()] = wrapped
	r.logger.Debug("tool registered", "tool", t.Name(), "access", t.Schema().Access.String())
	return nil
}

// Get implements domain.ToolExecutor.
func (r *Registry) Get(name string) (domain.Tool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	t, ok := r.tools[name]
	if !ok {
		return nil, domain.NewDomainError("Registry.Get", domain.ErrToolNotFound, name)
	}
	return t, nil
}

// Schemas implements domain.ToolExecutor. Results are sorted by name for
// deterministic prompt construction.
func (r *Registry) Schemas() []domain.ToolSchema {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]domain.ToolSchema, 0, len(r.tools))
	for _, t := range r.tools {
		out = append(out, t.Schema())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// List returns registered tool names, sorted.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.tools))
	for name := range r.tools {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

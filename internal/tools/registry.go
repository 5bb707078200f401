package tools

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"go.uber.org/zap"

	"opnsense-mcp/internal/domain"
)

// Func executes one tool. Args is never nil.
type Func func(ctx context.Context, args domain.Row) (any, error)

// Metrics observes tool invocations
type Metrics interface {
	ObserveTool(tool string, duration time.Duration, err error)
}

// Tool pairs a catalog definition with its implementation
type Tool struct {
	Definition mcp.Tool
	Run        Func
}

// Registry holds the tools in registration order
type Registry struct {
	mu      sync.RWMutex
	tools   map[string]Tool
	order   []string
	metrics Metrics
	logger  *zap.Logger
}

// RegistryOption configures a Registry
type RegistryOption func(*Registry)

// WithMetrics sets the invocation metrics sink
func WithMetrics(m Metrics) RegistryOption {
	return func(r *Registry) {
		r.metrics = m
	}
}

// NewRegistry creates an empty registry
func NewRegistry(logger *zap.Logger, opts ...RegistryOption) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	r := &Registry{
		tools:  make(map[string]Tool),
		logger: logger.Named("tools"),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register adds or replaces a tool
func (r *Registry) Register(def mcp.Tool, run Func) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.tools[def.Name]; !exists {
		r.order = append(r.order, def.Name)
	}
	r.tools[def.Name] = Tool{Definition: def, Run: run}
}

// Get returns the named tool
func (r *Registry) Get(name string) (Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tools[name]
	return t, ok
}

// Definitions returns the catalog in registration order
func (r *Registry) Definitions() []mcp.Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	defs := make([]mcp.Tool, 0, len(r.order))
	for _, name := range r.order {
		defs = append(defs, r.tools[name].Definition)
	}
	return defs
}

// Call runs the named tool. A panic inside the tool is recovered and
// returned wrapping domain.ErrInternal.
func (r *Registry) Call(ctx context.Context, name string, args domain.Row) (result any, err error) {
	tool, ok := r.Get(name)
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrToolNotFound, name)
	}
	if args == nil {
		args = domain.Row{}
	}

	start := time.Now()
	defer func() {
		if p := recover(); p != nil {
			r.logger.Error("tool panicked",
				zap.String("tool", name),
				zap.Any("panic", p),
				zap.ByteString("stack", debug.Stack()))
			result, err = nil, fmt.Errorf("%w: %v", domain.ErrInternal, p)
		}
		if err != nil {
			r.logger.Warn("tool failed", zap.String("tool", name), zap.Error(err))
		} else {
			r.logger.Debug("tool completed", zap.String("tool", name), zap.Duration("duration", time.Since(start)))
		}
		if r.metrics != nil {
			r.metrics.ObserveTool(name, time.Since(start), err)
		}
	}()

	return tool.Run(ctx, args)
}

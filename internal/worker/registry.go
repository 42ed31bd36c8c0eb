package worker

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/cuongbtq/property-be/internal/queue"
)

// Handler executes one job. Returning queue.Release(delay) reschedules the job
// without counting an exception; a *queue.PermanentError fails it immediately.
type Handler interface {
	Handle(ctx context.Context, job *queue.Job) error
}

// HandlerFunc adapts a function to Handler
type HandlerFunc func(ctx context.Context, job *queue.Job) error

func (f HandlerFunc) Handle(ctx context.Context, job *queue.Job) error {
	return f(ctx, job)
}

// FailureHandler is implemented by handlers that want to be told once when a job fails permanently
type FailureHandler interface {
	Failed(ctx context.Context, job *queue.Job, cause error) error
}

// Registry maps payload kinds to handlers
type Registry struct {
	mu       sync.RWMutex
	handlers map[string]Handler
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{handlers: make(map[string]Handler)}
}

// Register binds a handler to a payload kind. Registering a kind twice is an error.
func (r *Registry) Register(kind string, handler Handler) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if kind == "" {
		return fmt.Errorf("job kind is required")
	}
	if _, exists := r.handlers[kind]; exists {
		return fmt.Errorf("handler already registered for job kind %q", kind)
	}

	r.handlers[kind] = handler
	return nil
}

// Lookup returns the handler for kind or queue.ErrNoHandler
func (r *Registry) Lookup(kind string) (Handler, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	handler, ok := r.handlers[kind]
	if !ok {
		return nil, fmt.Errorf("%w: %q", queue.ErrNoHandler, kind)
	}
	return handler, nil
}

// Kinds lists registered kinds in sorted order
func (r *Registry) Kinds() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	kinds := make([]string, 0, len(r.handlers))
	for kind := range r.handlers {
		kinds = append(kinds, kind)
	}
	sort.Strings(kinds)
	return kinds
}

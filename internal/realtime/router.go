package realtime

import (
	"context"
	"sync"
)

// Router dispatches messages to handlers registered by type.
type Router struct {
	mu       sync.RWMutex
	handlers map[string]Handler
}

// NewRouter creates an empty router.
func NewRouter() *Router {
	return &Router{handlers: make(map[string]Handler)}
}

// Handle registers fn for msgType, replacing any previous handler.
func (r *Router) Handle(msgType string, fn Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[msgType] = fn
}

// Dispatch is a Handler; unknown types are ignored.
func (r *Router) Dispatch(ctx context.Context, msg Message) {
	r.mu.RLock()
	fn, ok := r.handlers[msg.Type]
	r.mu.RUnlock()
	if ok {
		fn(ctx, msg)
	}
}

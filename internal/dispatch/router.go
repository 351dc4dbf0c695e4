package dispatch

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/calyptra/voxwire/internal/log"
	"github.com/calyptra/voxwire/internal/message"
)

// HandlerAndPolicy pairs a registered handler with the blocking policy it
// declared for one (namespace, name) key.
type HandlerAndPolicy struct {
	Handler Handler
	Policy  BlockingPolicy
}

// Router maintains the mapping from CapabilityTag to HandlerAndPolicy and
// invokes Handler methods on the handler registered for a given directive.
//
// The registry is an explicit value with construction and teardown tied to
// the session, passed by reference to whoever routes.
type Router struct {
	logger *slog.Logger

	mu     sync.Mutex
	config map[CapabilityTag]HandlerAndPolicy
	closed bool
}

// NewRouter creates an empty Router.
func NewRouter() *Router {
	return &Router{
		logger: log.WithComponent("router"),
		config: make(map[CapabilityTag]HandlerAndPolicy),
	}
}

// AddHandler registers every (namespace, name) → policy mapping the handler
// declares. Registration is all-or-nothing: if any key is already claimed,
// nothing is registered and an error is returned.
func (r *Router) AddHandler(h Handler) error {
	if h == nil {
		return fmt.Errorf("add handler: nil handler")
	}
	configuration := h.Configuration()
	if len(configuration) == 0 {
		return fmt.Errorf("add handler: empty configuration")
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return fmt.Errorf("add handler: router is shut down")
	}

	for tag := range configuration {
		if _, taken := r.config[tag]; taken {
			return fmt.Errorf("add handler: %s.%s already registered", tag.Namespace, tag.Name)
		}
	}
	for tag, policy := range configuration {
		r.config[tag] = HandlerAndPolicy{Handler: h, Policy: policy}
		r.logger.Debug("handler registered", "namespace", tag.Namespace, "name", tag.Name)
	}
	return nil
}

// RemoveHandler removes every mapping the handler declares, then notifies the
// handler via OnDeregistered. If any declared mapping is not currently owned
// by this handler, nothing is removed.
func (r *Router) RemoveHandler(h Handler) error {
	if h == nil {
		return fmt.Errorf("remove handler: nil handler")
	}
	configuration := h.Configuration()

	r.mu.Lock()
	for tag := range configuration {
		current, ok := r.config[tag]
		if !ok || current.Handler != h {
			r.mu.Unlock()
			return fmt.Errorf("remove handler: %s.%s not registered to this handler", tag.Namespace, tag.Name)
		}
	}
	for tag := range configuration {
		delete(r.config, tag)
	}
	r.mu.Unlock()

	h.OnDeregistered()
	return nil
}

// HandleDirectiveImmediately invokes the immediate path on the registered
// handler. Reports false if no handler is registered for the directive.
func (r *Router) HandleDirectiveImmediately(d *message.Directive) bool {
	hp, ok := r.lookup(d)
	if !ok {
		return false
	}
	return hp.Handler.HandleDirectiveImmediately(d)
}

// PreHandle invokes PreHandle on the registered handler.
func (r *Router) PreHandle(d *message.Directive, result ResultSink) bool {
	hp, ok := r.lookup(d)
	if !ok {
		return false
	}
	return hp.Handler.PreHandle(d, result)
}

// Handle invokes Handle on the registered handler.
func (r *Router) Handle(d *message.Directive) bool {
	hp, ok := r.lookup(d)
	if !ok {
		return false
	}
	return hp.Handler.Handle(d.Header().MessageID)
}

// Cancel invokes Cancel on the registered handler. Reports whether a handler
// was found.
func (r *Router) Cancel(d *message.Directive) bool {
	hp, ok := r.lookup(d)
	if !ok {
		return false
	}
	hp.Handler.Cancel(d.Header().MessageID)
	return true
}

// Policy returns the blocking policy registered for the directive.
func (r *Router) Policy(d *message.Directive) (BlockingPolicy, bool) {
	hp, ok := r.lookup(d)
	if !ok {
		return BlockingPolicy{}, false
	}
	return hp.Policy, true
}

// Handlers returns the number of registered (namespace, name) keys.
func (r *Router) Handlers() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.config)
}

// Shutdown clears the registry and notifies each distinct handler once.
// Safe to call more than once.
func (r *Router) Shutdown() {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	r.closed = true
	seen := make(map[Handler]bool)
	var handlers []Handler
	for _, hp := range r.config {
		if !seen[hp.Handler] {
			seen[hp.Handler] = true
			handlers = append(handlers, hp.Handler)
		}
	}
	r.config = make(map[CapabilityTag]HandlerAndPolicy)
	r.mu.Unlock()

	for _, h := range handlers {
		h.OnDeregistered()
	}
}

func (r *Router) lookup(d *message.Directive) (HandlerAndPolicy, bool) {
	if d == nil {
		return HandlerAndPolicy{}, false
	}
	h := d.Header()
	r.mu.Lock()
	defer r.mu.Unlock()
	hp, ok := r.config[CapabilityTag{Namespace: h.Namespace, Name: h.Name}]
	if !ok {
		r.logger.Warn("no handler registered",
			"namespace", h.Namespace, "name", h.Name, "message_id", h.MessageID)
	}
	return hp, ok
}

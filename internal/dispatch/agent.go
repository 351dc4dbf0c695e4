package dispatch

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/calyptra/voxwire/internal/log"
	"github.com/calyptra/voxwire/internal/message"
)

// Agent is the shared skeleton every capability handler embeds. It owns the
// handler's single-consumer executor and the message-id → DirectiveInfo
// tracking map, and implements the router-facing Handler contract by
// delegating the lifecycle hooks to the embedding Capability.
//
// The invariants it enforces:
//   - all hooks for one handler run in submission order on one executor
//   - the wire-level exception and the local failure are emitted together or
//     not at all (FailWithException)
//   - RemoveDirective is idempotent
type Agent struct {
	namespace  string
	capability Capability
	reporter   ExceptionReporter
	exec       *Executor
	logger     *slog.Logger

	mu      sync.Mutex
	tracked map[string]*DirectiveInfo
}

// NewAgent builds the dispatch skeleton for one capability handler. The
// capability is the embedding feature implementation; the reporter is the
// wire-level exception sink.
func NewAgent(namespace string, capability Capability, reporter ExceptionReporter) *Agent {
	return &Agent{
		namespace:  namespace,
		capability: capability,
		reporter:   reporter,
		exec:       NewExecutor(),
		logger:     log.WithComponent("agent").With("namespace", namespace),
		tracked:    make(map[string]*DirectiveInfo),
	}
}

// Namespace returns the namespace this agent serves.
func (a *Agent) Namespace() string {
	return a.namespace
}

// HandleDirectiveImmediately routes an unordered directive through the same
// preHandle → handle path as sequenced dispatch, with no result sink. The
// work runs on the agent's executor, never on the caller's goroutine.
func (a *Agent) HandleDirectiveImmediately(d *message.Directive) bool {
	if d == nil {
		return false
	}
	info := NewDirectiveInfo(d, nil)
	if !a.track(info) {
		return false
	}
	return a.exec.Submit(func() {
		a.capability.PreHandleDirective(info)
		if info.Cancelled() {
			return
		}
		a.capability.HandleDirective(info)
	})
}

// PreHandle begins tracking the directive and enqueues the capability's
// preparation hook.
func (a *Agent) PreHandle(d *message.Directive, result ResultSink) bool {
	if d == nil {
		return false
	}
	info := NewDirectiveInfo(d, result)
	if !a.track(info) {
		return false
	}
	return a.exec.Submit(func() {
		a.capability.PreHandleDirective(info)
	})
}

// Handle enqueues the capability's handling hook for a directive previously
// given to PreHandle. Reports false for unknown message ids.
func (a *Agent) Handle(messageID string) bool {
	info, ok := a.lookup(messageID)
	if !ok {
		a.logger.Warn("handle requested for untracked directive", "message_id", messageID)
		return false
	}
	return a.exec.Submit(func() {
		if info.Cancelled() {
			return
		}
		a.capability.HandleDirective(info)
	})
}

// Cancel aborts a tracked directive. The cancellation flag is set before the
// hook is enqueued so a pending handle task observes it. Cancel never
// produces a terminal result.
func (a *Agent) Cancel(messageID string) {
	info, ok := a.lookup(messageID)
	if !ok {
		return
	}
	info.MarkCancelled()
	a.exec.Submit(func() {
		a.capability.CancelDirective(info)
	})
}

// OnDeregistered is invoked by the router once the handler no longer owns any
// (namespace, name) key.
func (a *Agent) OnDeregistered() {
	a.logger.Debug("deregistered")
}

// FailWithException reports a handling failure as one atomic operation: the
// wire-level exception notification and the local failure callback are always
// emitted together. The directive stays tracked; the capability removes it
// after the terminal step, as it does for success.
func (a *Agent) FailWithException(info *DirectiveInfo, kind message.ExceptionType, description string) {
	a.logger.Warn("directive failed",
		"message_id", info.Directive.Header().MessageID,
		"kind", kind.String(),
		"description", description,
	)
	a.reporter.SendExceptionEncountered(info.Directive.Raw(), kind, description)
	if info.Result != nil {
		info.Result.Fail(description)
	}
}

// RemoveDirective drops the directive from tracking. Called exactly once per
// directive after its terminal lifecycle step; duplicate calls are no-ops.
func (a *Agent) RemoveDirective(messageID string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if _, ok := a.tracked[messageID]; !ok {
		a.logger.Debug("remove of untracked directive ignored", "message_id", messageID)
		return
	}
	delete(a.tracked, messageID)
}

// InFlight returns the number of directives currently tracked.
func (a *Agent) InFlight() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.tracked)
}

// Shutdown stops the agent's executor exactly once. Queued hooks are
// abandoned; the in-flight hook finishes.
func (a *Agent) Shutdown() {
	a.exec.Shutdown()
}

// BuildEvent constructs an outbound event envelope with a generated message
// id, for capabilities that answer directives with events. Returns the
// message id and the serialized event.
func (a *Agent) BuildEvent(name, dialogRequestID, payload string) (string, string, error) {
	if payload == "" {
		payload = "{}"
	}
	if !json.Valid([]byte(payload)) {
		return "", "", fmt.Errorf("build event %s.%s: payload is not valid JSON", a.namespace, name)
	}

	messageID := uuid.NewString()
	header := map[string]string{
		"namespace": a.namespace,
		"name":      name,
		"messageId": messageID,
	}
	if dialogRequestID != "" {
		header["dialogRequestId"] = dialogRequestID
	}

	envelope := map[string]any{
		"event": map[string]any{
			"header":  header,
			"payload": json.RawMessage(payload),
		},
	}
	out, err := json.Marshal(envelope)
	if err != nil {
		return "", "", fmt.Errorf("build event %s.%s: %w", a.namespace, name, err)
	}
	return messageID, string(out), nil
}

func (a *Agent) track(info *DirectiveInfo) bool {
	id := info.Directive.Header().MessageID
	a.mu.Lock()
	defer a.mu.Unlock()
	if _, exists := a.tracked[id]; exists {
		a.logger.Error("duplicate message id refused", "message_id", id)
		return false
	}
	a.tracked[id] = info
	return true
}

func (a *Agent) lookup(messageID string) (*DirectiveInfo, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	info, ok := a.tracked[messageID]
	return info, ok
}

package dispatch

import (
	"sync/atomic"

	"github.com/calyptra/voxwire/internal/message"
)

// ResultSink receives the terminal outcome of handling one directive.
// At most one of Complete/Fail is ever invoked, exactly once, across the
// lifetime of a DirectiveInfo.
type ResultSink interface {
	// Complete reports that the directive was handled successfully.
	Complete()
	// Fail reports that handling failed. Handlers never call Fail directly;
	// they go through Agent.FailWithException so the wire-level exception and
	// the local failure stay coupled.
	Fail(description string)
}

// ExceptionReporter sends protocol-level error notifications back over the
// wire. The raw directive text is echoed so the service can correlate.
type ExceptionReporter interface {
	SendExceptionEncountered(rawDirective string, kind message.ExceptionType, description string)
}

// DirectiveInfo is one unit of dispatch work: a directive paired with its
// result sink. Result is nil for directives dispatched on the immediate path,
// where no acknowledgement is expected.
type DirectiveInfo struct {
	Directive *message.Directive
	Result    ResultSink

	cancelled atomic.Bool
}

// NewDirectiveInfo pairs a directive with its result sink.
func NewDirectiveInfo(d *message.Directive, result ResultSink) *DirectiveInfo {
	return &DirectiveInfo{Directive: d, Result: result}
}

// MarkCancelled flags the directive as aborted. Cancellation is cooperative:
// it takes effect only if handling has not started yet.
func (i *DirectiveInfo) MarkCancelled() {
	i.cancelled.Store(true)
}

// Cancelled reports whether the directive was aborted before handling.
func (i *DirectiveInfo) Cancelled() bool {
	return i.cancelled.Load()
}

// Complete reports success on the result sink, if one is attached.
func (i *DirectiveInfo) Complete() {
	if i.Result != nil {
		i.Result.Complete()
	}
}

// Handler is the router-facing dispatch contract. Agent provides the full
// implementation; capabilities embed an Agent and implement Capability.
//
// All entry points return without blocking the caller: they only enqueue
// work onto the handler's executor.
type Handler interface {
	// Configuration declares the directives the handler accepts. Pure data
	// query, read-only after registration.
	Configuration() HandlerConfiguration

	// HandleDirectiveImmediately dispatches an unordered directive (empty
	// dialog request id) through the preHandle → handle path with no result
	// sink. Reports whether the directive was accepted.
	HandleDirectiveImmediately(d *message.Directive) bool

	// PreHandle begins tracking the directive and gives the handler a chance
	// to prepare before handling is requested.
	PreHandle(d *message.Directive, result ResultSink) bool

	// Handle performs the directive previously given to PreHandle. Reports
	// false if the message id is unknown to the handler.
	Handle(messageID string) bool

	// Cancel aborts a directive before handling starts. It never produces a
	// terminal result.
	Cancel(messageID string)

	// OnDeregistered notifies the handler that it no longer receives
	// directives.
	OnDeregistered()
}

// Capability is the flat contract a feature implements against the dispatch
// core. Every method runs on the handler's own executor, strictly in
// submission order.
type Capability interface {
	// PreHandleDirective optionally prepares for handling. It must never
	// produce a terminal result.
	PreHandleDirective(info *DirectiveInfo)

	// HandleDirective performs the directive's effect and reports exactly one
	// terminal outcome: info.Complete() on success, or
	// Agent.FailWithException on failure.
	HandleDirective(info *DirectiveInfo)

	// CancelDirective cleans up an aborted directive. It removes the
	// directive from tracking and must not produce a terminal result.
	CancelDirective(info *DirectiveInfo)
}

package dispatch

import (
	"log/slog"
	"sync"

	"github.com/calyptra/voxwire/internal/attachment"
	"github.com/calyptra/voxwire/internal/log"
	"github.com/calyptra/voxwire/internal/message"
)

// Tracer receives dispatch trace events. *events.Hub satisfies it; a nil
// tracer is replaced with a no-op.
type Tracer interface {
	Publish(eventType string, data any)
}

// Trace event types emitted by the sequencer.
const (
	TraceReceived    = "directive.received"
	TraceParseFailed = "directive.parse_failed"
	TraceDispatched  = "directive.dispatched"
	TraceCompleted   = "directive.completed"
	TraceFailed      = "directive.failed"
	TraceCancelled   = "directive.cancelled"
	TraceDropped     = "directive.dropped"
)

// TraceEvent is the payload published for every trace event.
type TraceEvent struct {
	MessageID       string `json:"message_id,omitempty"`
	Namespace       string `json:"namespace,omitempty"`
	Name            string `json:"name,omitempty"`
	DialogRequestID string `json:"dialog_request_id,omitempty"`
	Detail          string `json:"detail,omitempty"`
}

// Sequencer owns the receive path: raw JSON in, parse, then either immediate
// dispatch for unordered directives or per-dialog ordered dispatch.
//
// For directives sharing a non-empty dialog request id, directive N's
// terminal result is observed before directive N+1's handle is invoked.
// Unordered directives bypass the queue entirely and are never blocked by
// dialog-ordered ones.
type Sequencer struct {
	router      *Router
	reporter    ExceptionReporter
	attachments attachment.Manager
	trace       Tracer
	logger      *slog.Logger

	mu       sync.Mutex
	dialogID string
	queue    []*pendingDirective
	shutdown bool

	wake    chan struct{}
	quitc   chan struct{}
	stopped chan struct{}
	once    sync.Once
}

type pendingDirective struct {
	directive *message.Directive
	sink      *sequencedResult
}

// NewSequencer creates a Sequencer and starts its processing goroutine.
// tracer may be nil.
func NewSequencer(router *Router, reporter ExceptionReporter, attachments attachment.Manager, tracer Tracer) *Sequencer {
	if tracer == nil {
		tracer = noopTracer{}
	}
	s := &Sequencer{
		router:      router,
		reporter:    reporter,
		attachments: attachments,
		trace:       tracer,
		logger:      log.WithComponent("sequencer"),
		wake:        make(chan struct{}, 1),
		quitc:       make(chan struct{}),
		stopped:     make(chan struct{}),
	}
	go s.process()
	return s
}

// OnDirective ingests one raw wire message. A failed parse drops the message
// with a local log only; there is no identity to report against. On success
// the directive is dispatched immediately (empty dialog request id) or
// queued for per-dialog ordered dispatch. Returns the message id when one
// was parsed, and the parse status.
//
// OnDirective never blocks on handler work.
func (s *Sequencer) OnDirective(raw string, attachmentContextID string) (string, message.ParseStatus) {
	s.trace.Publish(TraceReceived, TraceEvent{})

	d, status := message.Parse(raw, s.attachments, attachmentContextID)
	if status != message.ParseSuccess {
		s.logger.Error("directive dropped", "parse_status", status.String())
		s.trace.Publish(TraceParseFailed, TraceEvent{Detail: status.String()})
		return "", status
	}

	h := d.Header()
	logger := s.logger.With("message_id", h.MessageID, "namespace", h.Namespace, "name", h.Name)

	s.mu.Lock()
	if s.shutdown {
		s.mu.Unlock()
		logger.Warn("directive refused", "reason", "sequencer shut down")
		s.trace.Publish(TraceDropped, traceFor(d, "sequencer shut down"))
		return h.MessageID, status
	}
	s.mu.Unlock()

	if h.Unordered() {
		logger.Debug("dispatching immediately")
		if !s.router.HandleDirectiveImmediately(d) {
			s.reportUnhandled(d)
			return h.MessageID, status
		}
		s.trace.Publish(TraceDispatched, traceFor(d, "immediate"))
		return h.MessageID, status
	}

	s.mu.Lock()
	s.queue = append(s.queue, &pendingDirective{
		directive: d,
		sink:      newSequencedResult(s, d),
	})
	s.mu.Unlock()
	s.signal()

	logger.Debug("queued for dialog-ordered dispatch", "dialog_request_id", h.DialogRequestID)
	return h.MessageID, status
}

// SetDialogRequestID installs the active dialog id, cancelling every queued
// directive that belongs to a different one. Used on barge-in: a new voice
// interaction supersedes the directives of the old turn.
func (s *Sequencer) SetDialogRequestID(dialogRequestID string) {
	s.mu.Lock()
	s.dialogID = dialogRequestID
	var stale []*pendingDirective
	kept := s.queue[:0]
	for _, p := range s.queue {
		if p.directive.Header().DialogRequestID != dialogRequestID {
			stale = append(stale, p)
		} else {
			kept = append(kept, p)
		}
	}
	s.queue = kept
	s.mu.Unlock()

	for _, p := range stale {
		p.sink.cancel()
		s.router.Cancel(p.directive)
		s.trace.Publish(TraceCancelled, traceFor(p.directive, "superseded dialog"))
	}
}

// Pending returns the number of dialog-ordered directives awaiting dispatch.
func (s *Sequencer) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.queue)
}

// Shutdown stops the sequencer exactly once: no new directives are accepted,
// queued directives are cancelled, and the processing goroutine is joined.
// Subsequent calls are no-ops.
func (s *Sequencer) Shutdown() {
	s.once.Do(func() {
		s.mu.Lock()
		s.shutdown = true
		drained := s.queue
		s.queue = nil
		s.mu.Unlock()

		close(s.quitc)
		s.signal()
		for _, p := range drained {
			p.sink.cancel()
			s.router.Cancel(p.directive)
			s.trace.Publish(TraceCancelled, traceFor(p.directive, "shutdown"))
		}
	})
	<-s.stopped
}

// process is the single consumer of the dialog-ordered queue. It preHandles
// each directive, requests handling, then waits for the terminal result
// before touching the next one.
func (s *Sequencer) process() {
	defer close(s.stopped)
	for {
		s.mu.Lock()
		if s.shutdown {
			s.mu.Unlock()
			return
		}
		var next *pendingDirective
		if len(s.queue) > 0 {
			next = s.queue[0]
			s.queue = s.queue[1:]
		}
		s.mu.Unlock()

		if next == nil {
			<-s.wake
			continue
		}

		s.dispatchOrdered(next)
	}
}

func (s *Sequencer) dispatchOrdered(p *pendingDirective) {
	d := p.directive

	if !s.router.PreHandle(d, p.sink) {
		s.reportUnhandled(d)
		return
	}
	if !s.router.Handle(d) {
		s.logger.Warn("handler lost directive between preHandle and handle",
			"message_id", d.Header().MessageID)
		return
	}
	s.trace.Publish(TraceDispatched, traceFor(d, "ordered"))

	// Hold the dialog lane until the handler reports a terminal outcome, or
	// shutdown abandons the wait.
	select {
	case <-p.sink.done:
	case <-s.quitc:
		s.router.Cancel(d)
		p.sink.cancel()
	}
}

func (s *Sequencer) signal() {
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

// reportUnhandled surfaces a directive nobody is registered for. Unlike a
// parse failure there is a valid message to report against.
func (s *Sequencer) reportUnhandled(d *message.Directive) {
	h := d.Header()
	detail := "no handler registered for " + h.Namespace + "." + h.Name
	s.logger.Warn("directive unhandled", "message_id", h.MessageID,
		"namespace", h.Namespace, "name", h.Name)
	s.reporter.SendExceptionEncountered(d.Raw(), message.ExceptionUnsupportedOperation, detail)
	s.trace.Publish(TraceFailed, traceFor(d, detail))
}

func traceFor(d *message.Directive, detail string) TraceEvent {
	h := d.Header()
	return TraceEvent{
		MessageID:       h.MessageID,
		Namespace:       h.Namespace,
		Name:            h.Name,
		DialogRequestID: h.DialogRequestID,
		Detail:          detail,
	}
}

type noopTracer struct{}

func (noopTracer) Publish(string, any) {}

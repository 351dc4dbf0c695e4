package dispatch

import (
	"log/slog"

	"github.com/calyptra/voxwire/internal/log"
	"github.com/calyptra/voxwire/internal/message"
)

// TraceReporter is the ExceptionReporter used when no transport is attached:
// exception notifications are logged and published on the trace stream
// instead of going over the wire. The raw directive text is truncated in the
// trace payload to keep events small.
type TraceReporter struct {
	trace  Tracer
	logger *slog.Logger
}

const maxRawEcho = 2 * 1024

// NewTraceReporter creates a TraceReporter. tracer may be nil.
func NewTraceReporter(tracer Tracer) *TraceReporter {
	if tracer == nil {
		tracer = noopTracer{}
	}
	return &TraceReporter{
		trace:  tracer,
		logger: log.WithComponent("exceptions"),
	}
}

// SendExceptionEncountered records one wire-level exception notification.
func (r *TraceReporter) SendExceptionEncountered(rawDirective string, kind message.ExceptionType, description string) {
	r.logger.Warn("exception encountered",
		"kind", kind.String(),
		"description", description,
	)
	if len(rawDirective) > maxRawEcho {
		rawDirective = rawDirective[:maxRawEcho]
	}
	r.trace.Publish("exception.sent", map[string]string{
		"kind":        kind.String(),
		"description": description,
		"directive":   rawDirective,
	})
}

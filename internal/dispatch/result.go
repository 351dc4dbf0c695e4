package dispatch

import (
	"sync"

	"github.com/calyptra/voxwire/internal/message"
)

// sequencedResult is the ResultSink the sequencer attaches to every
// dialog-ordered directive. Terminal states are final and idempotent to
// re-enter: only the first of Complete/Fail/cancel has any effect, and that
// first call releases the dialog lane.
type sequencedResult struct {
	seq       *Sequencer
	directive *message.Directive

	once sync.Once
	done chan struct{}
}

func newSequencedResult(s *Sequencer, d *message.Directive) *sequencedResult {
	return &sequencedResult{
		seq:       s,
		directive: d,
		done:      make(chan struct{}),
	}
}

// Complete releases the dialog lane with a success trace.
func (r *sequencedResult) Complete() {
	r.terminal(TraceCompleted, "")
}

// Fail releases the dialog lane with a failure trace.
func (r *sequencedResult) Fail(description string) {
	r.terminal(TraceFailed, description)
}

// cancel releases the lane without a terminal callback; used when the
// directive is aborted before handling.
func (r *sequencedResult) cancel() {
	r.once.Do(func() {
		close(r.done)
	})
}

func (r *sequencedResult) terminal(event, detail string) {
	r.once.Do(func() {
		r.seq.trace.Publish(event, traceFor(r.directive, detail))
		close(r.done)
	})
}

package attachment

import (
	"io"
	"sync"
	"sync/atomic"
)

// buffer is an append-only byte stream shared by one writer and any number of
// independent readers.
type buffer struct {
	mu       sync.Mutex
	cond     *sync.Cond
	data     []byte
	finished bool
}

func newBuffer() *buffer {
	b := &buffer{}
	b.cond = sync.NewCond(&b.mu)
	return b
}

func (b *buffer) write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.finished {
		return 0, io.ErrClosedPipe
	}
	b.data = append(b.data, p...)
	b.cond.Broadcast()
	return len(p), nil
}

func (b *buffer) finish() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.finished = true
	b.cond.Broadcast()
}

// reader tracks its own offset into the shared buffer.
type reader struct {
	buf    *buffer
	policy ReadPolicy
	closed atomic.Bool
	offset int
}

func newReader(buf *buffer, policy ReadPolicy) *reader {
	return &reader{buf: buf, policy: policy}
}

func (r *reader) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}

	r.buf.mu.Lock()
	defer r.buf.mu.Unlock()

	for r.offset >= len(r.buf.data) {
		if r.closed.Load() {
			return 0, io.ErrClosedPipe
		}
		if r.buf.finished {
			return 0, io.EOF
		}
		if r.policy == ReadNonBlocking {
			return 0, ErrNoData
		}
		r.buf.cond.Wait()
	}
	if r.closed.Load() {
		return 0, io.ErrClosedPipe
	}

	n := copy(p, r.buf.data[r.offset:])
	r.offset += n
	return n, nil
}

// Close releases the reader. The underlying attachment is unaffected and
// other readers keep working.
func (r *reader) Close() error {
	r.closed.Store(true)
	// Wake a blocking Read so it observes the close promptly.
	r.buf.mu.Lock()
	r.buf.cond.Broadcast()
	r.buf.mu.Unlock()
	return nil
}

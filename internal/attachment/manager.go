// Package attachment resolves binary content referenced by directive payloads.
//
// A directive payload never embeds binary data; it carries a content id that
// the transport delivers separately under an attachment context. The Manager
// turns (contextId, contentId) pairs into stable attachment ids and hands out
// readers over the delivered bytes.
package attachment

import (
	"encoding/hex"
	"errors"
	"io"
	"sync"

	"github.com/zeebo/blake3"

	"github.com/calyptra/voxwire/internal/log"
)

// ReadPolicy selects how a reader behaves when no bytes have arrived yet.
type ReadPolicy int

const (
	// ReadNonBlocking returns ErrNoData instead of waiting for the writer.
	ReadNonBlocking ReadPolicy = iota
	// ReadBlocking waits until bytes arrive or the write side is finished.
	ReadBlocking
)

// ErrNoData is returned by non-blocking readers when the attachment is still
// open but has no unread bytes.
var ErrNoData = errors.New("attachment: no data available")

// Reader reads attachment content. Close releases the reader without
// affecting the underlying attachment.
type Reader interface {
	io.ReadCloser
}

// Manager is the collaborator a Directive uses to resolve attachment content
// ids into readers. A failed resolution is reported through the boolean, not
// an error: the handler that asked decides how to treat it.
type Manager interface {
	// GenerateAttachmentID derives the attachment id for a content id scoped
	// to an attachment context. An empty contentID yields the context id
	// itself, matching transports that deliver a single unnamed attachment.
	GenerateAttachmentID(contextID, contentID string) string

	// CreateReader returns a reader for the given attachment id, or false if
	// no reader can be produced.
	CreateReader(attachmentID string, policy ReadPolicy) (Reader, bool)
}

// InProcessManager is a Manager whose attachments live in process memory.
// Writers and readers may attach in either order; the attachment is created
// on first touch.
type InProcessManager struct {
	mu          sync.Mutex
	attachments map[string]*buffer
	closed      bool
}

// NewInProcessManager creates an empty InProcessManager.
func NewInProcessManager() *InProcessManager {
	return &InProcessManager{
		attachments: make(map[string]*buffer),
	}
}

// GenerateAttachmentID derives a stable id from the context and content ids.
func (m *InProcessManager) GenerateAttachmentID(contextID, contentID string) string {
	if contentID == "" {
		return contextID
	}
	sum := blake3.Sum256([]byte(contextID + ":" + contentID))
	return hex.EncodeToString(sum[:])
}

// CreateReader returns a reader over the attachment's bytes, creating the
// attachment if no writer has touched it yet.
func (m *InProcessManager) CreateReader(attachmentID string, policy ReadPolicy) (Reader, bool) {
	if attachmentID == "" {
		log.WithComponent("attachment").Warn("create reader refused", "reason", "empty attachment id")
		return nil, false
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil, false
	}
	return newReader(m.bufferLocked(attachmentID), policy), true
}

// Write appends bytes to the attachment, creating it on first write.
// Returns the number of bytes accepted.
func (m *InProcessManager) Write(attachmentID string, p []byte) (int, error) {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return 0, errors.New("attachment: manager shut down")
	}
	buf := m.bufferLocked(attachmentID)
	m.mu.Unlock()

	return buf.write(p)
}

// Finish closes the write side of the attachment. Readers observe io.EOF once
// they have consumed all written bytes.
func (m *InProcessManager) Finish(attachmentID string) {
	m.mu.Lock()
	buf, ok := m.attachments[attachmentID]
	m.mu.Unlock()
	if ok {
		buf.finish()
	}
}

// Shutdown finishes every attachment and refuses further readers and writes.
// Calling it a second time is a no-op.
func (m *InProcessManager) Shutdown() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return
	}
	m.closed = true
	for _, buf := range m.attachments {
		buf.finish()
	}
}

func (m *InProcessManager) bufferLocked(attachmentID string) *buffer {
	buf, ok := m.attachments[attachmentID]
	if !ok {
		buf = newBuffer()
		m.attachments[attachmentID] = buf
	}
	return buf
}

package message

import (
	"errors"

	"github.com/calyptra/voxwire/internal/attachment"
)

var (
	// ErrEmptyHeader is returned when a synthesized directive is built from a
	// header with no message id.
	ErrEmptyHeader = errors.New("message: directive header has no message id")
	// ErrNilAttachmentManager is returned when a directive is built without
	// an attachment collaborator.
	ErrNilAttachmentManager = errors.New("message: nil attachment manager")
)

// Directive is the immutable envelope of one parsed directive: identity,
// still-serialized payload, optional endpoint, and the raw original text kept
// for diagnostics and wire-level error echo.
//
// Directives are shared read-only between the sequencer, the router and
// handlers. All state tracked about a directive lives outside of it.
type Directive struct {
	header      DirectiveHeader
	payload     string
	endpoint    *Endpoint
	raw         string
	contextID   string
	attachments attachment.Manager
}

// NewDirective builds a directive from an already-built header, bypassing
// JSON parsing. Used for locally synthesized directives. The raw text is
// optional and may be empty for directives that never existed on the wire.
func NewDirective(
	header DirectiveHeader,
	payload string,
	endpoint *Endpoint,
	raw string,
	attachments attachment.Manager,
	attachmentContextID string,
) (*Directive, error) {
	if header.MessageID == "" {
		return nil, ErrEmptyHeader
	}
	if attachments == nil {
		return nil, ErrNilAttachmentManager
	}
	return &Directive{
		header:      header,
		payload:     payload,
		endpoint:    cloneEndpoint(endpoint),
		raw:         raw,
		contextID:   attachmentContextID,
		attachments: attachments,
	}, nil
}

// Header returns the directive's identity.
func (d *Directive) Header() DirectiveHeader {
	return d.header
}

// Payload returns the still-serialized payload text. Decoding it is the
// business of the handler that understands its shape.
func (d *Directive) Payload() string {
	return d.payload
}

// Endpoint returns the target endpoint, if the directive carried one.
func (d *Directive) Endpoint() (Endpoint, bool) {
	if d.endpoint == nil {
		return Endpoint{}, false
	}
	return *d.endpoint, true
}

// Raw returns the original wire text of the directive.
func (d *Directive) Raw() string {
	return d.raw
}

// AttachmentContextID returns the context under which attachment content ids
// in the payload are resolved.
func (d *Directive) AttachmentContextID() string {
	return d.contextID
}

// AttachmentReader resolves a payload content id into a reader. A missing or
// failed reader is reported through the boolean; the calling handler decides
// how to treat it.
func (d *Directive) AttachmentReader(contentID string, policy attachment.ReadPolicy) (attachment.Reader, bool) {
	id := d.attachments.GenerateAttachmentID(d.contextID, contentID)
	return d.attachments.CreateReader(id, policy)
}

func cloneEndpoint(e *Endpoint) *Endpoint {
	if e == nil {
		return nil
	}
	cp := Endpoint{EndpointID: e.EndpointID}
	if len(e.Cookies) > 0 {
		cp.Cookies = make(map[string]string, len(e.Cookies))
		for k, v := range e.Cookies {
			cp.Cookies[k] = v
		}
	}
	return &cp
}

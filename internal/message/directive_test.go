package message

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/calyptra/voxwire/internal/attachment"
)

func TestNewDirective(t *testing.T) {
	mgr := attachment.NewInProcessManager()
	header := DirectiveHeader{Namespace: "NS", Name: "N", MessageID: "m1"}

	t.Run("valid", func(t *testing.T) {
		d, err := NewDirective(header, `{}`, nil, "", mgr, "ctx")
		require.NoError(t, err)
		assert.Equal(t, header, d.Header())
		assert.Equal(t, `{}`, d.Payload())
		assert.Equal(t, "", d.Raw())
		assert.Equal(t, "ctx", d.AttachmentContextID())
	})

	t.Run("missing message id", func(t *testing.T) {
		_, err := NewDirective(DirectiveHeader{Namespace: "NS", Name: "N"}, `{}`, nil, "", mgr, "")
		assert.ErrorIs(t, err, ErrEmptyHeader)
	})

	t.Run("nil attachment manager", func(t *testing.T) {
		_, err := NewDirective(header, `{}`, nil, "", nil, "")
		assert.ErrorIs(t, err, ErrNilAttachmentManager)
	})
}

// The endpoint is copied on construction: mutating the caller's value after
// the fact must not leak into the directive.
func TestNewDirectiveClonesEndpoint(t *testing.T) {
	mgr := attachment.NewInProcessManager()
	header := DirectiveHeader{Namespace: "NS", Name: "N", MessageID: "m1"}
	ep := &Endpoint{EndpointID: "ep-1", Cookies: map[string]string{"k": "v"}}

	d, err := NewDirective(header, `{}`, ep, "", mgr, "")
	require.NoError(t, err)

	ep.EndpointID = "mutated"
	ep.Cookies["k"] = "mutated"

	got, ok := d.Endpoint()
	require.True(t, ok)
	assert.Equal(t, "ep-1", got.EndpointID)
	assert.Equal(t, "v", got.Cookies["k"])
}

func TestHeaderUnordered(t *testing.T) {
	assert.True(t, DirectiveHeader{MessageID: "m1"}.Unordered())
	assert.False(t, DirectiveHeader{MessageID: "m1", DialogRequestID: "d1"}.Unordered())
}

func TestExceptionTypeStrings(t *testing.T) {
	assert.Equal(t, "UNEXPECTED_INFORMATION_RECEIVED", ExceptionUnexpectedInformation.String())
	assert.Equal(t, "UNSUPPORTED_OPERATION", ExceptionUnsupportedOperation.String())
	assert.Equal(t, "INTERNAL_ERROR", ExceptionInternalError.String())
}

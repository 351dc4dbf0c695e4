// Package message defines the directive envelope the cloud sends to the
// client and the parser that turns raw wire JSON into immutable values.
package message

// DirectiveHeader identifies one directive. Namespace, Name and MessageID are
// always set on a parsed header; the remaining fields default to "".
//
// A header is a plain value: copy it freely, never mutate a shared one.
type DirectiveHeader struct {
	Namespace             string
	Name                  string
	MessageID             string
	DialogRequestID       string
	CorrelationToken      string
	EventCorrelationToken string
	PayloadVersion        string
	Instance              string
}

// Unordered reports whether the directive bypasses dialog ordering.
// An empty DialogRequestID means "not part of any voice interaction turn".
func (h DirectiveHeader) Unordered() bool {
	return h.DialogRequestID == ""
}

// Endpoint identifies the target endpoint of a directive. EndpointID is
// required whenever an Endpoint is present at all.
type Endpoint struct {
	EndpointID string
	Cookies    map[string]string
}

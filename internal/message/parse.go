package message

import (
	"encoding/json"

	"github.com/calyptra/voxwire/internal/attachment"
	"github.com/calyptra/voxwire/internal/log"
)

// JSON keys of the directive wire format.
const (
	keyDirective             = "directive"
	keyHeader                = "header"
	keyNamespace             = "namespace"
	keyName                  = "name"
	keyMessageID             = "messageId"
	keyDialogRequestID       = "dialogRequestId"
	keyCorrelationToken      = "correlationToken"
	keyEventCorrelationToken = "eventCorrelationToken"
	keyPayloadVersion        = "payloadVersion"
	keyInstance              = "instance"
	keyPayload               = "payload"
	keyEndpoint              = "endpoint"
	keyEndpointID            = "endpointId"
	keyCookie                = "cookie"
)

// ParseStatus is the discriminated outcome of Parse. Anything other than
// ParseSuccess means no Directive was produced.
type ParseStatus int

const (
	ParseSuccess ParseStatus = iota
	ErrorInvalidJSON
	ErrorMissingDirectiveKey
	ErrorMissingHeaderKey
	ErrorMissingNamespaceKey
	ErrorMissingNameKey
	ErrorMissingMessageIDKey
	ErrorMissingPayloadKey
)

func (s ParseStatus) String() string {
	switch s {
	case ParseSuccess:
		return "SUCCESS"
	case ErrorInvalidJSON:
		return "ERROR_INVALID_JSON"
	case ErrorMissingDirectiveKey:
		return "ERROR_MISSING_DIRECTIVE_KEY"
	case ErrorMissingHeaderKey:
		return "ERROR_MISSING_HEADER_KEY"
	case ErrorMissingNamespaceKey:
		return "ERROR_MISSING_NAMESPACE_KEY"
	case ErrorMissingNameKey:
		return "ERROR_MISSING_NAME_KEY"
	case ErrorMissingMessageIDKey:
		return "ERROR_MISSING_MESSAGE_ID_KEY"
	case ErrorMissingPayloadKey:
		return "ERROR_MISSING_PAYLOAD_KEY"
	default:
		return "UNKNOWN"
	}
}

// Parse turns raw wire JSON into an immutable Directive. On any status other
// than ParseSuccess the returned directive is nil. Parse never reports to the
// wire itself: a message that failed to parse has no identity to report
// against.
//
// Required header fields that are absent or not strings yield that field's
// missing-key status. Optional header fields are read permissively: absence
// or a wrong type yields "". An endpoint object without an endpointId is
// dropped with an error log but does not fail the parse; a missing payload
// does. The asymmetry is deliberate and pinned by tests.
func Parse(raw string, attachments attachment.Manager, attachmentContextID string) (*Directive, ParseStatus) {
	logger := log.WithComponent("parser")

	if attachments == nil {
		logger.Error("parse refused", "reason", "nil attachment manager")
		return nil, ErrorInvalidJSON
	}

	if !json.Valid([]byte(raw)) {
		logger.Error("invalid directive JSON")
		return nil, ErrorInvalidJSON
	}

	// Valid JSON that is not an object has no directive key by definition.
	var top map[string]json.RawMessage
	if err := json.Unmarshal([]byte(raw), &top); err != nil {
		return nil, ErrorMissingDirectiveKey
	}

	var directive map[string]json.RawMessage
	if !objectField(top, keyDirective, &directive) {
		return nil, ErrorMissingDirectiveKey
	}

	var header map[string]json.RawMessage
	if !objectField(directive, keyHeader, &header) {
		return nil, ErrorMissingHeaderKey
	}

	namespace, ok := stringField(header, keyNamespace)
	if !ok {
		return nil, ErrorMissingNamespaceKey
	}
	name, ok := stringField(header, keyName)
	if !ok {
		return nil, ErrorMissingNameKey
	}
	messageID, ok := stringField(header, keyMessageID)
	if !ok {
		return nil, ErrorMissingMessageIDKey
	}

	h := DirectiveHeader{
		Namespace:             namespace,
		Name:                  name,
		MessageID:             messageID,
		DialogRequestID:       optionalString(header, keyDialogRequestID, logger),
		CorrelationToken:      optionalString(header, keyCorrelationToken, logger),
		EventCorrelationToken: optionalString(header, keyEventCorrelationToken, logger),
		PayloadVersion:        optionalString(header, keyPayloadVersion, logger),
		Instance:              optionalString(header, keyInstance, logger),
	}

	payloadRaw, ok := directive[keyPayload]
	if !ok {
		return nil, ErrorMissingPayloadKey
	}

	return &Directive{
		header:      h,
		payload:     string(payloadRaw),
		endpoint:    parseEndpoint(directive),
		raw:         raw,
		contextID:   attachmentContextID,
		attachments: attachments,
	}, ParseSuccess
}

// parseEndpoint reads the optional endpoint object. Absence is normal.
// Presence without an endpointId is an anomaly: the endpoint is dropped, not
// the message.
func parseEndpoint(directive map[string]json.RawMessage) *Endpoint {
	var endpoint map[string]json.RawMessage
	if !objectField(directive, keyEndpoint, &endpoint) {
		return nil
	}

	endpointID, ok := stringField(endpoint, keyEndpointID)
	if !ok {
		log.WithComponent("parser").Error("endpoint present without endpointId, dropping endpoint")
		return nil
	}

	return &Endpoint{
		EndpointID: endpointID,
		Cookies:    stringMapField(endpoint, keyCookie),
	}
}

// objectField extracts a JSON object child. Absence or a non-object value
// both count as "not there": field extraction failure is treated as absence.
func objectField(obj map[string]json.RawMessage, key string, out *map[string]json.RawMessage) bool {
	raw, ok := obj[key]
	if !ok {
		return false
	}
	return json.Unmarshal(raw, out) == nil
}

// stringField extracts a string child; a non-string value counts as absent.
func stringField(obj map[string]json.RawMessage, key string) (string, bool) {
	raw, ok := obj[key]
	if !ok {
		return "", false
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", false
	}
	return s, true
}

func optionalString(obj map[string]json.RawMessage, key string, logger interface{ Debug(string, ...any) }) string {
	s, ok := stringField(obj, key)
	if !ok {
		logger.Debug("optional header field absent", "key", key)
		return ""
	}
	return s
}

// stringMapField reads a flat string map permissively: a missing or malformed
// map yields an empty result, and non-string members are skipped.
func stringMapField(obj map[string]json.RawMessage, key string) map[string]string {
	raw, ok := obj[key]
	if !ok {
		return nil
	}
	var members map[string]json.RawMessage
	if err := json.Unmarshal(raw, &members); err != nil {
		return nil
	}
	out := make(map[string]string, len(members))
	for k, v := range members {
		var s string
		if err := json.Unmarshal(v, &s); err != nil {
			continue
		}
		out[k] = s
	}
	return out
}

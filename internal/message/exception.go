package message

// ExceptionType classifies a dispatch failure reported back over the wire.
type ExceptionType int

const (
	// ExceptionUnexpectedInformation means the envelope parsed but the
	// payload was malformed or missing required fields.
	ExceptionUnexpectedInformation ExceptionType = iota
	// ExceptionUnsupportedOperation means the directive name is not
	// recognized within an otherwise known namespace.
	ExceptionUnsupportedOperation
	// ExceptionInternalError covers handler-internal faults. These are
	// normally logged locally rather than reported, but the kind exists for
	// handlers that must surface them.
	ExceptionInternalError
)

func (t ExceptionType) String() string {
	switch t {
	case ExceptionUnexpectedInformation:
		return "UNEXPECTED_INFORMATION_RECEIVED"
	case ExceptionUnsupportedOperation:
		return "UNSUPPORTED_OPERATION"
	case ExceptionInternalError:
		return "INTERNAL_ERROR"
	default:
		return "UNKNOWN"
	}
}

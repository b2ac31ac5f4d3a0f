package errs

import "errors"

// Kind classifies which component boundary an error escaped from.
type Kind int

const (
	ScreenCapture Kind = iota + 1
	VoiceRecognition
	ActionExecution
	Configuration
)

func (k Kind) String() string {
	switch k {
	case ScreenCapture:
		return "screen capture"
	case VoiceRecognition:
		return "voice recognition"
	case ActionExecution:
		return "action execution"
	case Configuration:
		return "configuration"
	default:
		return "unknown"
	}
}

// Error is the typed error raised at component boundaries. Raw backend
// errors never cross a boundary; they travel in Details and Err.
type Error struct {
	Kind    Kind
	Message string
	Details string
	Err     error
}

func (e *Error) Error() string {
	if e.Details != "" {
		return e.Message + " - Details: " + e.Details
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// New builds an error with no underlying cause.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap attaches the cause as both Details and the unwrap target, so
// errors.Is still reaches sentinel causes through the boundary.
func Wrap(kind Kind, message string, cause error) *Error {
	e := &Error{Kind: kind, Message: message, Err: cause}
	if cause != nil {
		e.Details = cause.Error()
	}
	return e
}

// IsKind reports whether err is (or wraps) a boundary error of the given kind.
func IsKind(err error, kind Kind) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == kind
}

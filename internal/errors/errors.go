// Package errors provides a structured error type for textkit's
// construction-time failure modes. Decode errors,
// cancellation, and highlight failures are never surfaced as errors —
// only construction failures (unknown encoding name, grammar/query
// parse failure, malformed theme configuration) are.
package errors

import "fmt"

// Error categories. Only construction-time failures are represented;
// everything else is absorbed internally.
const (
	ErrUnknownEncoding     = "UNKNOWN_ENCODING"
	ErrDuplicateEncoding   = "DUPLICATE_ENCODING"
	ErrGrammarIncompatible = "GRAMMAR_INCOMPATIBLE"
	ErrQueryParse          = "QUERY_PARSE_ERROR"
	ErrThemeConfigInvalid  = "THEME_CONFIG_INVALID"
)

// TextkitError is a structured error carrying a category, message,
// optional cause, and free-form context for diagnostics.
type TextkitError struct {
	Type    string
	Message string
	Cause   error
	Context map[string]interface{}
}

func (e *TextkitError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Type, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

func (e *TextkitError) Unwrap() error {
	return e.Cause
}

// New creates a TextkitError with no cause.
func New(errorType, message string) *TextkitError {
	return &TextkitError{Type: errorType, Message: message, Context: make(map[string]interface{})}
}

// Wrap creates a TextkitError wrapping an existing error.
func Wrap(errorType, message string, cause error) *TextkitError {
	return &TextkitError{Type: errorType, Message: message, Cause: cause, Context: make(map[string]interface{})}
}

// WithContext attaches a diagnostic key/value and returns the receiver.
func (e *TextkitError) WithContext(key string, value interface{}) *TextkitError {
	e.Context[key] = value
	return e
}

// NewUnknownEncodingError reports a construction failure for an
// unregistered encoding name, optionally suggesting the closest match.
func NewUnknownEncodingError(name string, suggestion string, known []string) *TextkitError {
	msg := fmt.Sprintf("encoding %q is not registered", name)
	if suggestion != "" {
		msg = fmt.Sprintf("%s (did you mean %q?)", msg, suggestion)
	}
	return New(ErrUnknownEncoding, msg).
		WithContext("requested", name).
		WithContext("suggestion", suggestion).
		WithContext("known", known)
}

// NewDuplicateEncodingError reports that a name is already registered.
func NewDuplicateEncodingError(name string) *TextkitError {
	return New(ErrDuplicateEncoding, fmt.Sprintf("encoding %q is already registered", name)).
		WithContext("name", name)
}

// IsType reports whether err is a *TextkitError of the given category.
func IsType(err error, errorType string) bool {
	var te *TextkitError
	for err != nil {
		if t, ok := err.(*TextkitError); ok {
			te = t
			break
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			break
		}
		err = u.Unwrap()
	}
	return te != nil && te.Type == errorType
}

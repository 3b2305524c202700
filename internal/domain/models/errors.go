package models

import (
	"errors"
	"fmt"
)

// ErrorKind is the relay error taxonomy.
type ErrorKind string

const (
	KindTransport         ErrorKind = "TransportError"
	KindAuth              ErrorKind = "AuthError"
	KindSchema            ErrorKind = "SchemaError"
	KindParse             ErrorKind = "ParseError"
	KindPolicy            ErrorKind = "PolicyError"
	KindExecutionTimeout  ErrorKind = "ExecutionTimeout"
	KindExecutionRejected ErrorKind = "ExecutionRejected"
	KindExecutionFailed   ErrorKind = "ExecutionFailed"
)

// Error codes carried by RelayError.Code.
const (
	CodeUnsupportedMediaType = "UNSUPPORTED_MEDIA_TYPE"
	CodePayloadTooLarge      = "PAYLOAD_TOO_LARGE"
	CodeInvalidHost          = "INVALID_HOST"
	CodeForbidden            = "FORBIDDEN"
	CodeUnauthorized         = "UNAUTHORIZED"
	CodeInvalidJSON          = "INVALID_JSON"
	CodeSchema               = "SCHEMA_VIOLATION"
	CodeParse                = "PARSE_FAILED"
	CodeNoAction             = "NO_ACTION"
	CodeAssetMismatch        = "ASSET_MISMATCH"
	CodeLeverage             = "LEVERAGE_EXCEEDED"
	CodeInvalidLeverage      = "INVALID_LEVERAGE"
	CodeInvalidSize          = "INVALID_SIZE"
	CodeInconsistent         = "INCONSISTENT_POSITION"
	CodeStale                = "STALE_ALERT"
)

// RelayError is the single error type flowing out of the pipeline stages.
type RelayError struct {
	Kind   ErrorKind
	Code   string
	Field  string // dotted field path, when the error concerns one field
	Value  string // offending value, parse errors only
	Reason string
	Err    error
}

func (e *RelayError) Error() string {
	msg := string(e.Kind)
	if e.Field != "" {
		msg += " at " + e.Field
	}
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *RelayError) Unwrap() error {
	return e.Err
}

// Is matches another RelayError by kind and, when set, by code.
func (e *RelayError) Is(target error) bool {
	t, ok := target.(*RelayError)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && (t.Code == "" || t.Code == e.Code)
}

func TransportError(code, reason string) *RelayError {
	return &RelayError{Kind: KindTransport, Code: code, Reason: reason}
}

func AuthError(code, reason string) *RelayError {
	return &RelayError{Kind: KindAuth, Code: code, Reason: reason}
}

func SchemaError(path, reason string) *RelayError {
	return &RelayError{Kind: KindSchema, Code: CodeSchema, Field: path, Reason: reason}
}

func ParseError(field, value string, err error) *RelayError {
	return &RelayError{Kind: KindParse, Code: CodeParse, Field: field, Value: value, Reason: "invalid value", Err: err}
}

func PolicyError(code, reason string) *RelayError {
	return &RelayError{Kind: KindPolicy, Code: code, Reason: reason}
}

// KindOf extracts the taxonomy kind of err, or "" when err is not a RelayError.
func KindOf(err error) ErrorKind {
	var re *RelayError
	if errors.As(err, &re) {
		return re.Kind
	}
	return ""
}

// Sentinels for errors.Is.
var (
	ErrTransport = &RelayError{Kind: KindTransport}
	ErrAuth      = &RelayError{Kind: KindAuth}
	ErrSchema    = &RelayError{Kind: KindSchema}
	ErrParse     = &RelayError{Kind: KindParse}
	ErrPolicy    = &RelayError{Kind: KindPolicy}
	ErrNoAction  = &RelayError{Kind: KindPolicy, Code: CodeNoAction}
)

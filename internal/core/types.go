package core

import (
	"errors"
	"fmt"
	"strconv"
	"time"
)

// Priority is the urgency hint written to the X-Priority header.
// 1 is the highest, 5 the lowest. The zero value means normal.
type Priority int

const (
	// PriorityHigh flags the message as urgent in most mail clients.
	PriorityHigh Priority = 1

	// PriorityNormal is the default priority.
	PriorityNormal Priority = 3

	// PriorityLow indicates low priority email.
	PriorityLow Priority = 5
)

// Normalize maps the zero value to PriorityNormal.
func (p Priority) Normalize() Priority {
	if p == 0 {
		return PriorityNormal
	}
	return p
}

// Valid reports whether p is in the 1..5 range after normalization.
func (p Priority) Valid() bool {
	n := p.Normalize()
	return n >= PriorityHigh && n <= PriorityLow
}

// IsHigh reports whether p requests the extra high-priority headers.
func (p Priority) IsHigh() bool {
	return p.Normalize() == PriorityHigh
}

// String returns the header value for the priority.
func (p Priority) String() string {
	return strconv.Itoa(int(p.Normalize()))
}

// Message is a single notification to send.
type Message struct {
	// Subject is appended to the configured subject prefix.
	Subject string

	// Body is a trusted HTML fragment. It is embedded unescaped in the HTML part
	// and verbatim in the plain text part.
	Body string

	// Recipients overrides the configured default recipients when non-empty.
	Recipients []string

	// Priority defaults to PriorityNormal.
	Priority Priority
}

// Result is the outcome of one send. Err is nil when the relay accepted the message.
type Result struct {
	// MessageID is the Message-Id header of the composed message.
	MessageID string

	// Recipients is the envelope recipient list actually used.
	Recipients []string

	// Relay is the host:port the message was handed to.
	Relay string

	// Timestamp is when the send finished.
	Timestamp time.Time

	// Err describes why the message was not delivered.
	Err error
}

// Delivered reports whether the relay accepted the message.
func (r *Result) Delivered() bool {
	return r != nil && r.Err == nil
}

// Reason returns the failure reason, or an empty Reason on success.
func (r *Result) Reason() Reason {
	if r == nil || r.Err == nil {
		return ""
	}
	var se *SendError
	if errors.As(r.Err, &se) {
		return se.Reason
	}
	return ReasonUnknown
}

// Reason classifies a failed send.
type Reason string

const (
	ReasonUnknown           Reason = "UNKNOWN"
	ReasonInvalidMessage    Reason = "INVALID_MESSAGE"
	ReasonNoRecipients      Reason = "NO_RECIPIENTS"
	ReasonConnectFailed     Reason = "CONNECT_FAILED"
	ReasonTLSFailed         Reason = "TLS_FAILED"
	ReasonAuthFailed        Reason = "AUTH_FAILED"
	ReasonSenderRejected    Reason = "SENDER_REJECTED"
	ReasonRecipientRejected Reason = "RECIPIENT_REJECTED"
	ReasonDataFailed        Reason = "DATA_FAILED"
)

// SendError is the error carried by a failed Result.
type SendError struct {
	// Reason classifies the failure.
	Reason Reason

	// Message is a short description of the failed step.
	Message string

	// Cause is the underlying error.
	Cause error
}

// Error implements the error interface.
func (e *SendError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Reason, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Reason, e.Message)
}

// Unwrap returns the underlying error.
func (e *SendError) Unwrap() error {
	return e.Cause
}

// Is matches another *SendError with the same reason.
func (e *SendError) Is(target error) bool {
	t, ok := target.(*SendError)
	if !ok {
		return false
	}
	return e.Reason == t.Reason
}

// NewSendError creates a new send error.
func NewSendError(reason Reason, message string, cause error) *SendError {
	return &SendError{
		Reason:  reason,
		Message: message,
		Cause:   cause,
	}
}

// ValidationError represents a validation error with specific field information.
type ValidationError struct {
	// Field is the name of the field that failed validation.
	Field string

	// Message is the validation error message.
	Message string

	// Value is the invalid value (optional).
	Value interface{}
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	if e.Value != nil {
		return fmt.Sprintf("validation error in %s: %s (value: %v)", e.Field, e.Message, e.Value)
	}
	return fmt.Sprintf("validation error in %s: %s", e.Field, e.Message)
}

// Is implements error matching for errors.Is.
func (e *ValidationError) Is(target error) bool {
	_, ok := target.(*ValidationError)
	return ok
}

// NewValidationError creates a new validation error.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{
		Field:   field,
		Message: message,
	}
}

// NewValidationErrorWithValue creates a new validation error with a value.
func NewValidationErrorWithValue(field, message string, value interface{}) *ValidationError {
	return &ValidationError{
		Field:   field,
		Message: message,
		Value:   value,
	}
}

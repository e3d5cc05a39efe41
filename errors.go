package notifier

import (
	"errors"
	"fmt"
)

// Predefined sentinel errors for common cases.
var (
	// ErrNoRecipients indicates that neither the message nor the
	// configuration named a recipient.
	ErrNoRecipients = errors.New("no recipients")

	// ErrInvalidPriority indicates a priority outside 1..5.
	ErrInvalidPriority = errors.New("invalid priority")

	// ErrNoClient indicates an ExceptionNotifier created without a client.
	ErrNoClient = errors.New("no client")
)

// TemplateError represents an error in rendering one of the body layouts.
type TemplateError struct {
	// Template is the name of the layout that failed.
	Template string

	// Operation is the operation that failed (e.g., "render").
	Operation string

	// Message is the error message.
	Message string

	// Cause is the underlying error.
	Cause error
}

// Error implements the error interface.
func (e *TemplateError) Error() string {
	return fmt.Sprintf("template error in %s during %s: %s", e.Template, e.Operation, e.Message)
}

// Unwrap returns the underlying error.
func (e *TemplateError) Unwrap() error {
	return e.Cause
}

// NewTemplateError creates a new template error.
func NewTemplateError(template, operation, message string, cause error) *TemplateError {
	return &TemplateError{
		Template:  template,
		Operation: operation,
		Message:   message,
		Cause:     cause,
	}
}

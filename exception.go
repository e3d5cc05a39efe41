package notifier

import (
	"context"
	stderrors "errors"
	"fmt"
	"reflect"
	"runtime/debug"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/lattiq/notifier/internal/core"
)

// ExceptionConfig controls how error reports are worded.
type ExceptionConfig struct {
	// IncludeErrorInSubject appends the error type name to the subject.
	IncludeErrorInSubject bool

	// Salutation opens the body.
	Salutation string

	// Subject is the fixed part of the subject, before the error name.
	Subject string
}

// DefaultExceptionConfig returns the default wording.
func DefaultExceptionConfig() ExceptionConfig {
	return ExceptionConfig{
		IncludeErrorInSubject: true,
		Salutation:            "Hi,",
	}
}

// ExceptionOption configures an ExceptionNotifier.
type ExceptionOption func(*ExceptionConfig)

// WithSalutation sets the greeting at the top of the body.
func WithSalutation(salutation string) ExceptionOption {
	return func(c *ExceptionConfig) {
		c.Salutation = salutation
	}
}

// WithSubject sets the fixed part of the subject.
func WithSubject(subject string) ExceptionOption {
	return func(c *ExceptionConfig) {
		c.Subject = subject
	}
}

// WithoutErrorInSubject leaves the error type name out of the subject.
func WithoutErrorInSubject() ExceptionOption {
	return func(c *ExceptionConfig) {
		c.IncludeErrorInSubject = false
	}
}

// ExceptionNotifier emails high priority reports of errors and their stack traces.
type ExceptionNotifier struct {
	config   ExceptionConfig
	sender   Sender
	logger   *zap.Logger
	hostname string
}

var _ ErrorNotifier = (*ExceptionNotifier)(nil)

// NewExceptionNotifier creates a notifier that sends through client.
// With a nil client errors are still logged, through the global zap logger,
// and Notify reports ErrNoClient.
func NewExceptionNotifier(client *Client, opts ...ExceptionOption) *ExceptionNotifier {
	cfg := DefaultExceptionConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	n := &ExceptionNotifier{config: cfg}
	if client == nil {
		n.logger = zap.L()
		n.hostname = localHostname()
		return n
	}
	n.sender = client
	n.logger = client.logger
	n.hostname = client.hostname
	return n
}

// Config returns the wording in use.
func (n *ExceptionNotifier) Config() ExceptionConfig {
	return n.config
}

// Notify logs err at error level and emails a report of it with priority 1.
//
// The report shows the type name of the root cause and a trace. The trace is
// the error message followed by stack when stack is non-empty, the
// github.com/pkg/errors stack trace when err carries one, and the error
// message otherwise.
func (n *ExceptionNotifier) Notify(ctx context.Context, err error, stack []byte) *Result {
	if err == nil {
		return nil
	}

	name := ErrorName(err)
	trace := traceOf(err, stack)

	n.logger.Error(name+"\n"+trace, zap.String("error_type", name))

	if n.sender == nil {
		return &Result{
			Timestamp: time.Now(),
			Err:       core.NewSendError(core.ReasonUnknown, "no client to send the error report", ErrNoClient),
		}
	}

	body, rerr := renderException(n.config.Salutation, name, trace)
	if rerr != nil {
		return &Result{
			Err: core.NewSendError(core.ReasonInvalidMessage, "failed to render error report", rerr),
		}
	}

	return n.sender.Send(ctx, &Message{
		Subject:  n.subject(name),
		Body:     body,
		Priority: PriorityHigh,
	})
}

// Recover reports a panic in progress and stops it. It must be deferred directly:
//
//	defer notifier.Recover(ctx)
func (n *ExceptionNotifier) Recover(ctx context.Context) {
	r := recover()
	if r == nil {
		return
	}

	err, ok := r.(error)
	if !ok {
		err = &PanicError{Value: r}
	}
	n.Notify(ctx, err, debug.Stack())
}

func (n *ExceptionNotifier) subject(name string) string {
	subject := n.config.Subject
	if n.config.IncludeErrorInSubject {
		subject += " " + name
	}
	return subject + " on Host " + n.hostname
}

// PanicError wraps a recovered panic value that is not an error.
type PanicError struct {
	Value interface{}
}

// Error implements the error interface.
func (e *PanicError) Error() string {
	return fmt.Sprintf("panic: %v", e.Value)
}

// ErrorName returns the type name of err without package path or pointer,
// e.g. "PathError" for a *fs.PathError. Wrappers added by fmt.Errorf and
// github.com/pkg/errors are skipped so the name is that of the wrapped error.
func ErrorName(err error) string {
	err = unwrapAnnotations(err)
	if err == nil {
		return ""
	}

	t := reflect.TypeOf(err)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	if t.Name() != "" {
		return t.Name()
	}
	return t.String()
}

var errAnnotated = stderrors.New("annotated")

// annotationTypes are error types that only add a message or a stack to the
// error they wrap.
var annotationTypes = map[reflect.Type]bool{
	reflect.TypeOf(fmt.Errorf("%w", errAnnotated)):                  true,
	reflect.TypeOf(fmt.Errorf("%w %w", errAnnotated, errAnnotated)): true,
	reflect.TypeOf(errors.WithStack(errAnnotated)):                  true,
	reflect.TypeOf(errors.WithMessage(errAnnotated, "annotated")):   true,
}

// unwrapAnnotations strips annotation wrappers and stops at the first error
// of any other type. Of several joined errors the first is followed.
func unwrapAnnotations(err error) error {
	for err != nil && annotationTypes[reflect.TypeOf(err)] {
		var next error
		switch e := err.(type) {
		case interface{ Unwrap() []error }:
			if errs := e.Unwrap(); len(errs) > 0 {
				next = errs[0]
			}
		case interface{ Unwrap() error }:
			next = e.Unwrap()
		}
		if next == nil {
			return err
		}
		err = next
	}
	return err
}

type stackTracer interface {
	StackTrace() errors.StackTrace
}

func traceOf(err error, stack []byte) string {
	if len(stack) > 0 {
		return err.Error() + "\n" + string(stack)
	}

	var st stackTracer
	if stderrors.As(err, &st) {
		return fmt.Sprintf("%+v", err)
	}
	return err.Error()
}

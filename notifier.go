package notifier

import (
	"context"
)

// Public interfaces for the notifier library
type (
	// Sender delivers a single notification.
	// Implementations must be safe for concurrent use.
	Sender interface {
		// Send delivers msg and reports the outcome. A failed delivery is
		// described by the Result, never by a panic.
		Send(ctx context.Context, msg *Message) *Result
	}

	// ErrorNotifier reports errors by email.
	ErrorNotifier interface {
		// Notify reports err with the given stack trace. A nil err is ignored.
		Notify(ctx context.Context, err error, stack []byte) *Result
	}
)

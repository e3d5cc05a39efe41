package core

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPriority(t *testing.T) {
	tests := []struct {
		p     Priority
		valid bool
		high  bool
		str   string
	}{
		{p: 0, valid: true, str: "3"},
		{p: PriorityHigh, valid: true, high: true, str: "1"},
		{p: 2, valid: true, str: "2"},
		{p: PriorityNormal, valid: true, str: "3"},
		{p: PriorityLow, valid: true, str: "5"},
		{p: 6, valid: false, str: "6"},
		{p: -1, valid: false, str: "-1"},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprint(int(tt.p)), func(t *testing.T) {
			assert.Equal(t, tt.valid, tt.p.Valid())
			assert.Equal(t, tt.high, tt.p.IsHigh())
			assert.Equal(t, tt.str, tt.p.String())
		})
	}
}

func TestSendError(t *testing.T) {
	cause := errors.New("connection refused")
	err := NewSendError(ReasonConnectFailed, "failed to connect to relay:25", cause)

	assert.Equal(t, "CONNECT_FAILED: failed to connect to relay:25: connection refused", err.Error())
	assert.ErrorIs(t, err, cause)
	assert.ErrorIs(t, fmt.Errorf("wrapped: %w", err), &SendError{Reason: ReasonConnectFailed})
	assert.NotErrorIs(t, err, &SendError{Reason: ReasonAuthFailed})

	assert.Equal(t, "NO_RECIPIENTS: nobody to send to", NewSendError(ReasonNoRecipients, "nobody to send to", nil).Error())
}

func TestResult(t *testing.T) {
	var nilResult *Result
	assert.False(t, nilResult.Delivered())
	assert.Empty(t, nilResult.Reason())

	ok := &Result{MessageID: "<id@example.com>"}
	assert.True(t, ok.Delivered())
	assert.Empty(t, ok.Reason())

	failed := &Result{Err: NewSendError(ReasonAuthFailed, "bad login", nil)}
	assert.False(t, failed.Delivered())
	assert.Equal(t, ReasonAuthFailed, failed.Reason())

	other := &Result{Err: errors.New("boom")}
	assert.Equal(t, ReasonUnknown, other.Reason())
}

func TestValidationError(t *testing.T) {
	err := NewValidationErrorWithValue("port", "port must be between 1 and 65535", 0)
	assert.Equal(t, "validation error in port: port must be between 1 and 65535 (value: 0)", err.Error())
	assert.ErrorIs(t, err, &ValidationError{})

	assert.Equal(t, "validation error in host: host is required", NewValidationError("host", "host is required").Error())
}

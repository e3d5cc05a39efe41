package notifier

import (
	"context"
	"crypto/tls"
	"fmt"
	"os"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/lattiq/notifier/internal/core"
	"github.com/lattiq/notifier/internal/smtp"
)

// Type aliases to re-export core types for the public API.
type (
	Message         = core.Message
	Result          = core.Result
	Priority        = core.Priority
	Reason          = core.Reason
	SendError       = core.SendError
	ValidationError = core.ValidationError
)

// Priority constants
const (
	PriorityHigh   = core.PriorityHigh
	PriorityNormal = core.PriorityNormal
	PriorityLow    = core.PriorityLow
)

// Failure reasons carried by a failed Result.
const (
	ReasonUnknown           = core.ReasonUnknown
	ReasonInvalidMessage    = core.ReasonInvalidMessage
	ReasonNoRecipients      = core.ReasonNoRecipients
	ReasonConnectFailed     = core.ReasonConnectFailed
	ReasonTLSFailed         = core.ReasonTLSFailed
	ReasonAuthFailed        = core.ReasonAuthFailed
	ReasonSenderRejected    = core.ReasonSenderRejected
	ReasonRecipientRejected = core.ReasonRecipientRejected
	ReasonDataFailed        = core.ReasonDataFailed
)

// Error constructor functions
var (
	NewSendError                = core.NewSendError
	NewValidationError          = core.NewValidationError
	NewValidationErrorWithValue = core.NewValidationErrorWithValue
)

const tracerName = "github.com/lattiq/notifier"

// Client sends notifications through a single SMTP relay.
// It keeps no connection open between sends and is safe for concurrent use.
type Client struct {
	config    Config
	transport *smtp.Transport
	logger    *zap.Logger
	tracer    trace.Tracer
	metrics   *metrics
	hostname  string
	userAgent string
}

var _ Sender = (*Client)(nil)

// New creates a client with the given configuration.
func New(config Config, opts ...Option) (*Client, error) {
	o := &clientOptions{config: config}
	for _, opt := range opts {
		opt(o)
	}
	config = o.config
	config.DefaultRecipients = normalizeRecipients(config.DefaultRecipients)

	if err := config.Validate(); err != nil {
		return nil, err
	}

	logger := o.logger
	if logger == nil {
		built, err := NewLogger(config.Logging)
		if err != nil {
			return nil, err
		}
		logger = built
	}

	tp := o.tracerProvider
	if tp == nil {
		tp = otel.GetTracerProvider()
	}

	m := newMetrics(config.Metrics.Namespace)
	if o.registerer != nil {
		if err := m.register(o.registerer); err != nil {
			return nil, fmt.Errorf("failed to register metrics: %w", err)
		}
	}

	tlsConfig := o.tlsConfig
	if config.TLSSkipVerify {
		if tlsConfig == nil {
			tlsConfig = &tls.Config{MinVersion: tls.VersionTLS12}
		} else {
			tlsConfig = tlsConfig.Clone()
		}
		tlsConfig.InsecureSkipVerify = true //nolint:gosec // opt-in via MAIL_SERVER_TLS_SKIP_VERIFY
	}

	hostname := o.hostname
	if hostname == "" {
		hostname = localHostname()
	}

	transport := smtp.NewTransport(smtp.Settings{
		Host:      config.Host,
		Port:      config.Port,
		Username:  config.Username,
		Password:  string(config.Password),
		HelloName: config.HelloName,
		TLSConfig: tlsConfig,
	}, logger)

	return &Client{
		config:    config,
		transport: transport,
		logger:    logger,
		tracer:    tp.Tracer(tracerName),
		metrics:   m,
		hostname:  hostname,
		userAgent: GetVersionInfo().UserAgent(),
	}, nil
}

// Config returns a copy of the client configuration.
func (c *Client) Config() Config {
	cfg := c.config
	cfg.DefaultRecipients = append([]string(nil), c.config.DefaultRecipients...)
	return cfg
}

// Hostname returns the host name reported in error notifications.
func (c *Client) Hostname() string {
	return c.hostname
}

// Send composes msg and hands it to the relay. Send is best effort: it never
// returns an error or panics on a failed delivery. Failures are logged,
// counted and reported through the Result.
func (c *Client) Send(ctx context.Context, msg *Message) *Result {
	start := time.Now()

	ctx, span := c.tracer.Start(ctx, "notifier.Client.Send")
	defer span.End()

	result := c.send(ctx, msg)
	result.Timestamp = time.Now()

	reason := result.Reason()
	c.metrics.observe(reason, result.Timestamp.Sub(start))

	span.SetAttributes(
		attribute.String("notifier.relay", result.Relay),
		attribute.Int("notifier.recipients", len(result.Recipients)),
		attribute.Bool("notifier.delivered", result.Delivered()),
	)
	if msg != nil {
		span.SetAttributes(attribute.Int("notifier.priority", int(msg.Priority.Normalize())))
	}

	if result.Err != nil {
		span.RecordError(result.Err)
		span.SetStatus(codes.Error, string(reason))
		c.logger.Error("failed to send email",
			zap.String("reason", string(reason)),
			zap.String("relay", result.Relay),
			zap.Strings("recipients", result.Recipients),
			zap.Error(result.Err),
		)
		return result
	}

	span.SetStatus(codes.Ok, "email sent")
	c.logger.Debug("email sent",
		zap.String("message_id", result.MessageID),
		zap.String("relay", result.Relay),
		zap.Strings("recipients", result.Recipients),
	)
	return result
}

func (c *Client) send(ctx context.Context, msg *Message) *Result {
	result := &Result{Relay: c.transport.Addr()}

	if msg == nil {
		result.Err = core.NewSendError(core.ReasonInvalidMessage, "message is nil", nil)
		return result
	}

	result.Recipients = c.recipientsFor(msg)
	if len(result.Recipients) == 0 {
		result.Err = core.NewSendError(core.ReasonNoRecipients,
			"message has no recipients and no default recipients are configured", ErrNoRecipients)
		return result
	}

	m, id, err := c.compose(msg, result.Recipients)
	if err != nil {
		result.Err = err
		return result
	}
	result.MessageID = id

	if err := c.transport.Deliver(ctx, c.config.From(), result.Recipients, m); err != nil {
		result.Err = err
	}
	return result
}

// recipientsFor returns the message recipients, or a copy of the default
// recipients when the message names none.
func (c *Client) recipientsFor(msg *Message) []string {
	if recipients := normalizeRecipients(msg.Recipients); len(recipients) > 0 {
		return recipients
	}
	return append([]string(nil), c.config.DefaultRecipients...)
}

func localHostname() string {
	h, err := os.Hostname()
	if err != nil || h == "" {
		return "unknown"
	}
	return h
}

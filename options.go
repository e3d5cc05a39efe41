package notifier

import (
	"crypto/tls"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// Option is a functional option for configuring the notifier client.
type Option func(*clientOptions)

type clientOptions struct {
	config         Config
	logger         *zap.Logger
	tracerProvider trace.TracerProvider
	registerer     prometheus.Registerer
	tlsConfig      *tls.Config
	hostname       string
}

// WithRelay sets the SMTP relay address.
func WithRelay(host string, port int) Option {
	return func(o *clientOptions) {
		o.config.Host = host
		o.config.Port = port
	}
}

// WithCredentials sets the SMTP login. The username is also the From address.
func WithCredentials(username, password string) Option {
	return func(o *clientOptions) {
		o.config.Username = username
		o.config.Password = Secret(password)
	}
}

// WithSubjectPrefix sets the prefix prepended to every subject.
func WithSubjectPrefix(prefix string) Option {
	return func(o *clientOptions) {
		o.config.SubjectPrefix = prefix
	}
}

// WithSignature sets the signature appended to every body.
func WithSignature(signature string) Option {
	return func(o *clientOptions) {
		o.config.Signature = signature
	}
}

// WithDefaultRecipients sets the recipients used when a message names none.
func WithDefaultRecipients(recipients ...string) Option {
	return func(o *clientOptions) {
		o.config.DefaultRecipients = recipients
	}
}

// WithLogging configures the logger built by New.
// It has no effect together with WithLogger.
func WithLogging(level, format, output string) Option {
	return func(o *clientOptions) {
		o.config.Logging.Level = level
		o.config.Logging.Format = format
		o.config.Logging.Output = output
	}
}

// WithLogger uses an existing logger instead of building one from the configuration.
func WithLogger(logger *zap.Logger) Option {
	return func(o *clientOptions) {
		o.logger = logger
	}
}

// WithTracerProvider sets the provider for the Send span.
// The global provider is used by default.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(o *clientOptions) {
		o.tracerProvider = tp
	}
}

// WithMetrics registers the send counters and duration histogram with reg.
func WithMetrics(reg prometheus.Registerer) Option {
	return func(o *clientOptions) {
		o.registerer = reg
	}
}

// WithTLSConfig sets the TLS configuration used for STARTTLS.
func WithTLSConfig(cfg *tls.Config) Option {
	return func(o *clientOptions) {
		o.tlsConfig = cfg
	}
}

// WithHostname overrides the host name reported in error notifications.
func WithHostname(hostname string) Option {
	return func(o *clientOptions) {
		o.hostname = hostname
	}
}

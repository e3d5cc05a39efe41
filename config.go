package notifier

import (
	"fmt"
	"os"
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"
)

const secretToken = "<secret>"

// Secret is a string that is hidden when the configuration is printed.
type Secret string

// MarshalYAML always outputs "<secret>" for a non-empty value.
func (s Secret) MarshalYAML() (interface{}, error) {
	if s == "" {
		return "", nil
	}
	return secretToken, nil
}

// UnmarshalYAML sets the value unless the raw string equals "<secret>".
func (s *Secret) UnmarshalYAML(node *yaml.Node) error {
	var raw string
	if err := node.Decode(&raw); err != nil {
		return err
	}
	if raw == secretToken {
		return nil
	}
	*s = Secret(raw)
	return nil
}

// UnmarshalText lets environment variables populate a Secret.
func (s *Secret) UnmarshalText(text []byte) error {
	*s = Secret(text)
	return nil
}

// String redacts the value.
func (s Secret) String() string {
	if s == "" {
		return ""
	}
	return secretToken
}

// Config holds the complete notifier configuration.
// It is read once by New and never modified afterwards.
type Config struct {
	// Host is the SMTP relay host name.
	Host string `env:"MAIL_SERVER_HOST" yaml:"host"`

	// Port is the SMTP relay port.
	Port int `env:"MAIL_SERVER_PORT" yaml:"port"`

	// Username is used for SMTP authentication and as the From address.
	// Authentication is skipped when it is empty.
	Username string `env:"DEFAULT_SENDER_EMAIL_ADDRESS" yaml:"username"`

	// Password is the SMTP password.
	Password Secret `env:"DEFAULT_SENDER_EMAIL_PASSWORD" yaml:"password"`

	// SenderName is an optional display name for the From header.
	SenderName string `env:"DEFAULT_SENDER_NAME" yaml:"sender_name,omitempty"`

	// SubjectPrefix is prepended verbatim to every subject.
	SubjectPrefix string `env:"DEFAULT_EMAIL_SUBJECT_PREFIX" yaml:"subject_prefix"`

	// Signature is appended to both body parts.
	Signature string `env:"DEFAULT_EMAIL_SIGNATURE" yaml:"signature"`

	// DefaultRecipients is used when a message names no recipients.
	DefaultRecipients []string `env:"DEFAULT_EMAIL_RECIPIENTS" envSeparator:"," yaml:"default_recipients"`

	// HelloName is sent with EHLO.
	HelloName string `env:"MAIL_SERVER_HELO_NAME" yaml:"helo_name"`

	// TLSSkipVerify disables certificate verification for STARTTLS.
	// WARNING: only for relays with self-signed certificates on trusted networks.
	TLSSkipVerify bool `env:"MAIL_SERVER_TLS_SKIP_VERIFY" yaml:"tls_skip_verify,omitempty"`

	// Logging configures the logger built by New when no logger is injected.
	Logging LoggingConfig `envPrefix:"NOTIFIER_LOG_" yaml:"logging"`

	// Metrics configures the Prometheus collectors.
	Metrics MetricsConfig `envPrefix:"NOTIFIER_METRICS_" yaml:"metrics"`
}

// LoggingConfig contains logging configuration.
type LoggingConfig struct {
	// Level is the minimum log level (debug, info, warn, error).
	Level string `env:"LEVEL" yaml:"level"`

	// Format is the log format (json, console).
	Format string `env:"FORMAT" yaml:"format"`

	// Output is stdout, stderr or a file path.
	Output string `env:"OUTPUT" yaml:"output"`
}

// MetricsConfig contains metrics configuration.
type MetricsConfig struct {
	// Namespace prefixes every metric name.
	Namespace string `env:"NAMESPACE" yaml:"namespace"`
}

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Host:      "smtp.office365.com",
		Port:      587,
		HelloName: "localhost",
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stderr",
		},
		Metrics: MetricsConfig{
			Namespace: "email_notifier",
		},
	}
}

// LoadConfig reads the configuration from the environment on top of
// DefaultConfig. Without arguments a .env file in the working directory is
// loaded if present; otherwise the named files are loaded and must exist.
// Variables already set in the process environment win over .env files.
func LoadConfig(files ...string) (Config, error) {
	if len(files) == 0 {
		// The default .env file is optional.
		_ = godotenv.Load()
	} else if err := godotenv.Load(files...); err != nil {
		return Config{}, fmt.Errorf("failed to load env files: %w", err)
	}

	cfg := DefaultConfig()
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse environment: %w", err)
	}
	cfg.DefaultRecipients = normalizeRecipients(cfg.DefaultRecipients)

	return cfg, nil
}

// ParseConfig parses a YAML document. Values from the environment are applied
// first, so the document only overrides the fields it names.
func ParseConfig(s string) (Config, error) {
	cfg := DefaultConfig()
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse environment: %w", err)
	}

	if err := yaml.Unmarshal([]byte(s), &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}
	cfg.DefaultRecipients = normalizeRecipients(cfg.DefaultRecipients)

	return cfg, nil
}

// LoadConfigFile parses the YAML file at filename.
func LoadConfigFile(filename string) (Config, error) {
	content, err := os.ReadFile(filename)
	if err != nil {
		return Config{}, err
	}
	return ParseConfig(string(content))
}

// Validate checks if the configuration is valid and complete.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Host) == "" {
		return NewValidationError("host", "host is required")
	}

	if c.Port < 1 || c.Port > 65535 {
		return NewValidationErrorWithValue("port", "port must be between 1 and 65535", c.Port)
	}

	if c.Logging.Level != "" {
		if _, err := zapcore.ParseLevel(c.Logging.Level); err != nil {
			return NewValidationErrorWithValue("logging.level", "unknown log level", c.Logging.Level)
		}
	}

	switch c.Logging.Format {
	case "", "json", "console":
	default:
		return NewValidationErrorWithValue("logging.format", "format must be json or console", c.Logging.Format)
	}

	return nil
}

// String renders the configuration as YAML with the password redacted.
func (c Config) String() string {
	b, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Sprintf("<error creating config string: %s>", err)
	}
	return string(b)
}

// From returns the sender address.
func (c *Config) From() string {
	return c.Username
}

// normalizeRecipients trims every entry and drops empty ones, keeping order.
func normalizeRecipients(in []string) []string {
	if len(in) == 0 {
		return nil
	}
	out := make([]string, 0, len(in))
	for _, r := range in {
		if r = strings.TrimSpace(r); r != "" {
			out = append(out, r)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

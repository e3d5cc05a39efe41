// Package smtp hands composed messages to an SMTP relay over a single,
// short-lived connection.
package smtp

import (
	"context"
	"crypto/tls"
	"io"
	"net"
	"net/smtp"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/lattiq/notifier/internal/core"
)

const defaultHelloName = "localhost"

// Settings configures a Transport.
type Settings struct {
	Host      string
	Port      int
	Username  string
	Password  string
	HelloName string

	// TLSConfig is used for STARTTLS. ServerName defaults to Host.
	TLSConfig *tls.Config
}

// Transport delivers messages to one relay. It holds no connection between
// calls and is safe for concurrent use.
type Transport struct {
	host      string
	port      int
	username  string
	password  string
	helloName string
	tlsConfig *tls.Config
	logger    *zap.Logger
}

// NewTransport creates a transport for the relay described by settings.
func NewTransport(settings Settings, logger *zap.Logger) *Transport {
	if logger == nil {
		logger = zap.NewNop()
	}

	helloName := settings.HelloName
	if helloName == "" {
		helloName = defaultHelloName
	}

	var tlsConfig *tls.Config
	if settings.TLSConfig != nil {
		tlsConfig = settings.TLSConfig.Clone()
	} else {
		tlsConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	if tlsConfig.ServerName == "" {
		tlsConfig.ServerName = settings.Host
	}

	return &Transport{
		host:      settings.Host,
		port:      settings.Port,
		username:  settings.Username,
		password:  settings.Password,
		helloName: helloName,
		tlsConfig: tlsConfig,
		logger:    logger,
	}
}

// Addr returns the relay address as host:port.
func (t *Transport) Addr() string {
	return net.JoinHostPort(t.host, strconv.Itoa(t.port))
}

// Deliver runs one SMTP session: EHLO, optional STARTTLS, optional AUTH,
// MAIL FROM, RCPT TO for each recipient, DATA and QUIT. The connection is
// closed before Deliver returns. Failures are returned as *core.SendError.
func (t *Transport) Deliver(ctx context.Context, from string, to []string, msg io.WriterTo) error {
	conn, err := t.dial(ctx)
	if err != nil {
		return core.NewSendError(core.ReasonConnectFailed, "failed to connect to "+t.Addr(), err)
	}

	c, err := smtp.NewClient(conn, t.host)
	if err != nil {
		conn.Close()
		return core.NewSendError(core.ReasonConnectFailed, "relay greeting failed", err)
	}
	defer c.Close()

	if err := c.Hello(t.helloName); err != nil {
		return core.NewSendError(core.ReasonConnectFailed, "EHLO failed", err)
	}

	if err := t.startTLS(c); err != nil {
		return err
	}

	if err := t.login(c); err != nil {
		return err
	}

	if err := c.Mail(from); err != nil {
		return core.NewSendError(core.ReasonSenderRejected, "MAIL FROM rejected for "+from, err)
	}

	for _, rcpt := range to {
		if err := c.Rcpt(rcpt); err != nil {
			return core.NewSendError(core.ReasonRecipientRejected, "RCPT TO rejected for "+rcpt, err)
		}
	}

	wc, err := c.Data()
	if err != nil {
		return core.NewSendError(core.ReasonDataFailed, "DATA rejected", err)
	}
	if _, err := msg.WriteTo(wc); err != nil {
		wc.Close()
		return core.NewSendError(core.ReasonDataFailed, "failed to write message", err)
	}
	if err := wc.Close(); err != nil {
		return core.NewSendError(core.ReasonDataFailed, "relay did not accept message", err)
	}

	// The relay has accepted the message at this point.
	if err := c.Quit(); err != nil {
		t.logger.Debug("QUIT failed after delivery", zap.String("relay", t.Addr()), zap.Error(err))
	}

	return nil
}

func (t *Transport) dial(ctx context.Context) (net.Conn, error) {
	d := &net.Dialer{}
	conn, err := d.DialContext(ctx, "tcp", t.Addr())
	if err != nil {
		return nil, err
	}
	if deadline, ok := ctx.Deadline(); ok {
		if err := conn.SetDeadline(deadline); err != nil {
			conn.Close()
			return nil, err
		}
	}
	return conn, nil
}

// startTLS upgrades the session when the relay advertises STARTTLS.
func (t *Transport) startTLS(c *smtp.Client) error {
	if ok, _ := c.Extension("STARTTLS"); !ok {
		t.logger.Info("relay does not support STARTTLS, continuing unencrypted", zap.String("relay", t.Addr()))
		return nil
	}

	if err := c.StartTLS(t.tlsConfig); err != nil {
		return core.NewSendError(core.ReasonTLSFailed, "STARTTLS failed", err)
	}
	return nil
}

// login authenticates when credentials are configured and the relay
// advertises AUTH.
func (t *Transport) login(c *smtp.Client) error {
	if t.username == "" {
		t.logger.Debug("no credentials configured, skipping authentication", zap.String("relay", t.Addr()))
		return nil
	}

	ok, mechanisms := c.Extension("AUTH")
	if !ok {
		t.logger.Info("relay does not support authentication, continuing unauthenticated", zap.String("relay", t.Addr()))
		return nil
	}

	var auth smtp.Auth
	if strings.Contains(mechanisms, "CRAM-MD5") {
		auth = smtp.CRAMMD5Auth(t.username, t.password)
	} else {
		auth = smtp.PlainAuth("", t.username, t.password, t.host)
	}

	if err := c.Auth(auth); err != nil {
		return core.NewSendError(core.ReasonAuthFailed, "authentication failed for "+t.username, err)
	}
	return nil
}

// Package smtptest provides an in-process SMTP relay for tests. It records
// every accepted message and can advertise STARTTLS and AUTH PLAIN on demand.
package smtptest

import (
	"crypto/tls"
	"crypto/x509"
	"encoding/base64"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"
)

// Message is one message accepted by the server.
type Message struct {
	From string
	To   []string
	Data string

	// TLS reports whether the session had been upgraded with STARTTLS.
	TLS bool

	// User is the authenticated username, empty when no AUTH took place.
	User string
}

// Option configures a Server.
type Option func(*Server)

// WithSTARTTLS advertises STARTTLS and upgrades sessions using cfg.
func WithSTARTTLS(cfg *tls.Config) Option {
	return func(s *Server) {
		s.tlsConfig = cfg
	}
}

// WithAuth advertises AUTH PLAIN and accepts only the given credentials.
func WithAuth(username, password string) Option {
	return func(s *Server) {
		s.username = username
		s.password = password
	}
}

// WithRejectedRecipient makes RCPT TO fail for addr.
func WithRejectedRecipient(addr string) Option {
	return func(s *Server) {
		s.rejected[strings.ToLower(addr)] = true
	}
}

// Server is a minimal SMTP relay listening on 127.0.0.1.
type Server struct {
	Host string
	Port int

	tlsConfig *tls.Config
	username  string
	password  string
	rejected  map[string]bool

	ln net.Listener
	wg sync.WaitGroup

	mu       sync.Mutex
	messages []Message
	sessions int
}

type session struct {
	from string
	to   []string
	tls  bool
	user string
}

// NewServer starts a server on an ephemeral port. It is closed when the test ends.
func NewServer(tb testing.TB, opts ...Option) *Server {
	tb.Helper()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		tb.Fatalf("smtptest: failed to listen: %v", err)
	}

	addr := ln.Addr().(*net.TCPAddr)
	s := &Server{
		Host:     addr.IP.String(),
		Port:     addr.Port,
		rejected: make(map[string]bool),
		ln:       ln,
	}
	for _, opt := range opts {
		opt(s)
	}

	s.wg.Add(1)
	go s.serve()

	tb.Cleanup(s.Close)
	return s
}

// Addr returns host:port.
func (s *Server) Addr() string {
	return net.JoinHostPort(s.Host, strconv.Itoa(s.Port))
}

// Close stops accepting connections and waits for open sessions to finish.
func (s *Server) Close() {
	s.ln.Close()
	s.wg.Wait()
}

// Messages returns a copy of the accepted messages in arrival order.
func (s *Server) Messages() []Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Message, len(s.messages))
	copy(out, s.messages)
	return out
}

// Sessions returns how many connections the server has handled.
func (s *Server) Sessions() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sessions
}

// Reset forgets all recorded messages.
func (s *Server) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = nil
	s.sessions = 0
}

func (s *Server) serve() {
	defer s.wg.Done()
	for {
		conn, err := s.ln.Accept()
		if err != nil {
			return
		}
		s.mu.Lock()
		s.sessions++
		s.mu.Unlock()

		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.handle(conn)
		}()
	}
}

func (s *Server) handle(conn net.Conn) {
	defer func() { conn.Close() }()
	_ = conn.SetDeadline(time.Now().Add(30 * time.Second))

	tp := textproto.NewConn(conn)
	sess := &session{}

	_ = tp.PrintfLine("220 smtptest ESMTP ready")
	for {
		line, err := tp.ReadLine()
		if err != nil {
			return
		}
		verb, arg, _ := strings.Cut(line, " ")

		switch strings.ToUpper(verb) {
		case "EHLO":
			lines := []string{"smtptest greets " + arg}
			if s.tlsConfig != nil && !sess.tls {
				lines = append(lines, "STARTTLS")
			}
			if s.username != "" {
				lines = append(lines, "AUTH PLAIN")
			}
			for i, l := range lines {
				sep := "-"
				if i == len(lines)-1 {
					sep = " "
				}
				_ = tp.PrintfLine("250%s%s", sep, l)
			}
		case "HELO":
			_ = tp.PrintfLine("250 smtptest")
		case "STARTTLS":
			if s.tlsConfig == nil || sess.tls {
				_ = tp.PrintfLine("502 5.5.1 STARTTLS not available")
				continue
			}
			_ = tp.PrintfLine("220 2.0.0 Ready to start TLS")
			tlsConn := tls.Server(conn, s.tlsConfig)
			if err := tlsConn.Handshake(); err != nil {
				return
			}
			conn = tlsConn
			tp = textproto.NewConn(conn)
			sess = &session{tls: true}
		case "AUTH":
			mech, resp, _ := strings.Cut(arg, " ")
			if s.username == "" || !strings.EqualFold(mech, "PLAIN") {
				_ = tp.PrintfLine("504 5.5.4 Unrecognized authentication type")
				continue
			}
			if user, ok := s.checkPlain(resp); ok {
				sess.user = user
				_ = tp.PrintfLine("235 2.7.0 Authentication successful")
			} else {
				_ = tp.PrintfLine("535 5.7.8 Authentication credentials invalid")
			}
		case "MAIL":
			sess.from = path(arg)
			sess.to = nil
			_ = tp.PrintfLine("250 2.1.0 OK")
		case "RCPT":
			rcpt := path(arg)
			if s.rejected[strings.ToLower(rcpt)] {
				_ = tp.PrintfLine("550 5.1.1 Mailbox unavailable")
				continue
			}
			sess.to = append(sess.to, rcpt)
			_ = tp.PrintfLine("250 2.1.5 OK")
		case "DATA":
			if len(sess.to) == 0 {
				_ = tp.PrintfLine("503 5.5.1 RCPT first")
				continue
			}
			_ = tp.PrintfLine("354 End data with <CR><LF>.<CR><LF>")
			data, err := io.ReadAll(tp.DotReader())
			if err != nil {
				return
			}
			s.record(Message{
				From: sess.from,
				To:   sess.to,
				Data: string(data),
				TLS:  sess.tls,
				User: sess.user,
			})
			sess.from, sess.to = "", nil
			_ = tp.PrintfLine("250 2.0.0 OK queued")
		case "RSET":
			sess.from, sess.to = "", nil
			_ = tp.PrintfLine("250 2.0.0 OK")
		case "NOOP":
			_ = tp.PrintfLine("250 2.0.0 OK")
		case "QUIT":
			_ = tp.PrintfLine("221 2.0.0 Bye")
			return
		default:
			_ = tp.PrintfLine("500 5.5.2 Command not recognized")
		}
	}
}

func (s *Server) checkPlain(resp string) (string, bool) {
	decoded, err := base64.StdEncoding.DecodeString(resp)
	if err != nil {
		return "", false
	}
	parts := strings.Split(string(decoded), "\x00")
	if len(parts) != 3 || parts[1] != s.username || parts[2] != s.password {
		return "", false
	}
	return parts[1], true
}

func (s *Server) record(m Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = append(s.messages, m)
}

// path extracts the address from "FROM:<addr>" or "TO:<addr> PARAMS".
func path(arg string) string {
	start := strings.IndexByte(arg, '<')
	end := strings.IndexByte(arg, '>')
	if start < 0 || end < start {
		_, addr, _ := strings.Cut(arg, ":")
		return strings.TrimSpace(addr)
	}
	return arg[start+1 : end]
}

// NewTLSConfig returns a server TLS config for 127.0.0.1 and a pool that
// trusts it.
func NewTLSConfig(tb testing.TB) (*tls.Config, *x509.CertPool) {
	tb.Helper()

	ts := httptest.NewTLSServer(http.NotFoundHandler())
	tb.Cleanup(ts.Close)

	pool := x509.NewCertPool()
	pool.AddCert(ts.Certificate())

	return &tls.Config{Certificates: ts.TLS.Certificates}, pool
}

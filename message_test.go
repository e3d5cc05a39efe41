package notifier

import (
	"bytes"
	"errors"
	"io"
	"mime"
	"mime/multipart"
	"net/mail"
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type mimePart struct {
	contentType string
	body        string
}

type parsedMessage struct {
	header mail.Header
	parts  []mimePart
}

func (p parsedMessage) part(t *testing.T, contentType string) string {
	t.Helper()
	for _, part := range p.parts {
		if strings.HasPrefix(part.contentType, contentType) {
			return part.body
		}
	}
	t.Fatalf("no %s part in message", contentType)
	return ""
}

// parseMessage reads a multipart/alternative message and decodes its parts.
func parseMessage(t *testing.T, data string) parsedMessage {
	t.Helper()

	msg, err := mail.ReadMessage(strings.NewReader(data))
	require.NoError(t, err)

	mediaType, params, err := mime.ParseMediaType(msg.Header.Get("Content-Type"))
	require.NoError(t, err)
	require.Equal(t, "multipart/alternative", mediaType)

	parsed := parsedMessage{header: msg.Header}
	mr := multipart.NewReader(msg.Body, params["boundary"])
	for {
		p, err := mr.NextPart()
		if errors.Is(err, io.EOF) {
			break
		}
		require.NoError(t, err)
		body, err := io.ReadAll(p)
		require.NoError(t, err)
		parsed.parts = append(parsed.parts, mimePart{
			contentType: p.Header.Get("Content-Type"),
			body:        string(body),
		})
	}
	return parsed
}

func newOfflineClient(t *testing.T, mutate func(*Config)) *Client {
	t.Helper()
	cfg := DefaultConfig()
	cfg.Host = "relay.invalid"
	cfg.Username = "alerts@example.com"
	cfg.SubjectPrefix = "[ops] "
	cfg.Signature = "-- The ops team"
	if mutate != nil {
		mutate(&cfg)
	}
	c, err := New(cfg, WithLogger(zap.NewNop()))
	require.NoError(t, err)
	return c
}

func composeAndParse(t *testing.T, c *Client, msg *Message, recipients []string) (parsedMessage, string) {
	t.Helper()
	m, id, err := c.compose(msg, recipients)
	require.NoError(t, err)

	var buf bytes.Buffer
	_, err = m.WriteTo(&buf)
	require.NoError(t, err)
	return parseMessage(t, buf.String()), id
}

func TestCompose_Headers(t *testing.T) {
	c := newOfflineClient(t, nil)

	parsed, id := composeAndParse(t, c, &Message{Subject: "Disk almost full", Body: "<p>92%</p>"},
		[]string{"oncall@example.com", "lead@example.com"})

	assert.Equal(t, "[ops] Disk almost full", parsed.header.Get("Subject"))
	assert.Equal(t, "alerts@example.com", parsed.header.Get("From"))
	assert.Equal(t, "oncall@example.com, lead@example.com", parsed.header.Get("To"))
	assert.Equal(t, id, parsed.header.Get("Message-Id"))
	assert.Regexp(t, regexp.MustCompile(`^<[0-9a-f-]{36}@example\.com>$`), id)
	assert.True(t, strings.HasPrefix(parsed.header.Get("X-Mailer"), "lattiq-notifier/"))
	assert.NotEmpty(t, parsed.header.Get("Date"))
}

func TestCompose_SubjectPrefixIsVerbatim(t *testing.T) {
	c := newOfflineClient(t, func(cfg *Config) { cfg.SubjectPrefix = "ALERT:" })

	parsed, _ := composeAndParse(t, c, &Message{Subject: "x"}, []string{"a@example.com"})
	assert.Equal(t, "ALERT:x", parsed.header.Get("Subject"))
}

func TestCompose_SenderName(t *testing.T) {
	c := newOfflineClient(t, func(cfg *Config) { cfg.SenderName = "Ops Alerts" })

	parsed, _ := composeAndParse(t, c, &Message{Subject: "x"}, []string{"a@example.com"})
	from, err := mail.ParseAddress(parsed.header.Get("From"))
	require.NoError(t, err)
	assert.Equal(t, "Ops Alerts", from.Name)
	assert.Equal(t, "alerts@example.com", from.Address)
}

func TestCompose_Priority(t *testing.T) {
	tests := []struct {
		name     string
		priority Priority
		want     string
		high     bool
	}{
		{name: "zero means normal", priority: 0, want: "3"},
		{name: "normal", priority: PriorityNormal, want: "3"},
		{name: "low", priority: PriorityLow, want: "5"},
		{name: "two is not high", priority: 2, want: "2"},
		{name: "high", priority: PriorityHigh, want: "1", high: true},
	}

	c := newOfflineClient(t, nil)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			parsed, _ := composeAndParse(t, c, &Message{Subject: "x", Priority: tt.priority}, []string{"a@example.com"})

			assert.Equal(t, tt.want, parsed.header.Get("X-Priority"))
			if tt.high {
				assert.Equal(t, "High", parsed.header.Get("X-MSMail-Priority"))
				assert.Equal(t, "High", parsed.header.Get("Importance"))
			} else {
				assert.Empty(t, parsed.header.Get("X-MSMail-Priority"))
				assert.Empty(t, parsed.header.Get("Importance"))
			}
		})
	}
}

func TestCompose_InvalidPriority(t *testing.T) {
	c := newOfflineClient(t, nil)

	for _, p := range []Priority{-1, 6, 42} {
		_, _, err := c.compose(&Message{Subject: "x", Priority: p}, []string{"a@example.com"})
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrInvalidPriority)

		var se *SendError
		require.ErrorAs(t, err, &se)
		assert.Equal(t, ReasonInvalidMessage, se.Reason)
	}
}

func TestCompose_BodyParts(t *testing.T) {
	c := newOfflineClient(t, nil)

	parsed, _ := composeAndParse(t, c, &Message{Subject: "x", Body: "<p>Backup <b>failed</b></p>"}, []string{"a@example.com"})

	require.Len(t, parsed.parts, 2)
	assert.True(t, strings.HasPrefix(parsed.parts[0].contentType, "text/plain"), "plain part must come first")
	assert.True(t, strings.HasPrefix(parsed.parts[1].contentType, "text/html"), "html part must come last")

	plain := parsed.part(t, "text/plain")
	assert.Equal(t, "<p>Backup <b>failed</b></p>\n\n-- The ops team\n", strings.ReplaceAll(plain, "\r\n", "\n"))

	html := parsed.part(t, "text/html")
	assert.Contains(t, html, "<html><body><div><p>Backup <b>failed</b></p></div><br /><div>-- The ops team</div></body></html>")
}

func TestCompose_MessageIDFallsBackToHelloName(t *testing.T) {
	c := newOfflineClient(t, func(cfg *Config) {
		cfg.Username = ""
		cfg.HelloName = "worker-7.internal"
	})

	_, id, err := c.compose(&Message{Subject: "x"}, []string{"a@example.com"})
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(id, "@worker-7.internal>"), id)
}

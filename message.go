package notifier

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gopkg.in/gomail.v2"

	"github.com/lattiq/notifier/internal/core"
)

// compose builds the MIME message for msg addressed to recipients and
// returns it with its Message-Id. It performs no I/O.
//
// The plain text part comes first and the HTML part last, so readers that
// honour multipart/alternative display the HTML.
func (c *Client) compose(msg *Message, recipients []string) (*gomail.Message, string, error) {
	if !msg.Priority.Valid() {
		return nil, "", core.NewSendError(core.ReasonInvalidMessage,
			fmt.Sprintf("priority %d is outside 1..5", msg.Priority), ErrInvalidPriority)
	}

	plain, err := renderPlain(msg.Body, c.config.Signature)
	if err != nil {
		return nil, "", core.NewSendError(core.ReasonInvalidMessage, "failed to render plain text body", err)
	}
	html, err := renderHTML(msg.Body, c.config.Signature)
	if err != nil {
		return nil, "", core.NewSendError(core.ReasonInvalidMessage, "failed to render HTML body", err)
	}

	id := c.newMessageID()

	m := gomail.NewMessage()
	if c.config.SenderName != "" {
		m.SetAddressHeader("From", c.config.From(), c.config.SenderName)
	} else {
		m.SetHeader("From", c.config.From())
	}
	m.SetHeader("To", recipients...)
	m.SetHeader("Subject", c.config.SubjectPrefix+msg.Subject)
	m.SetHeader("Message-ID", id)
	m.SetHeader("X-Mailer", c.userAgent)

	m.SetHeader("X-Priority", msg.Priority.String())
	if msg.Priority.IsHigh() {
		m.SetHeader("X-MSMail-Priority", "High")
		m.SetHeader("Importance", "High")
	}

	m.SetBody("text/plain", plain)
	m.AddAlternative("text/html", html)

	return m, id, nil
}

// newMessageID returns "<uuid@domain>" where domain is taken from the sender
// address, falling back to the EHLO name.
func (c *Client) newMessageID() string {
	domain := c.config.HelloName
	if _, d, ok := strings.Cut(c.config.From(), "@"); ok && d != "" {
		domain = d
	}
	if domain == "" {
		domain = "localhost"
	}
	return fmt.Sprintf("<%s@%s>", uuid.NewString(), domain)
}

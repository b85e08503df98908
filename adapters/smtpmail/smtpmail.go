// Package smtpmail implements the mail collaborator over SMTP.
package smtpmail

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"

	"github.com/google/uuid"
	"github.com/luno/jettison/errors"
	"github.com/luno/jettison/j"

	"github.com/andrewwormald/notifier"
)

type Mailer struct {
	addr string
	auth smtp.Auth

	// send is swappable for testing.
	send func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

func New(addr string, auth smtp.Auth) *Mailer {
	return &Mailer{
		addr: addr,
		auth: auth,
		send: smtp.SendMail,
	}
}

var _ notifier.Mailer = (*Mailer)(nil)

func (m *Mailer) Send(ctx context.Context, e notifier.Email) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	messageID := uuid.New().String()

	var b strings.Builder
	fmt.Fprintf(&b, "Message-ID: <%s>\r\n", messageID)
	fmt.Fprintf(&b, "From: %s\r\n", e.From)
	fmt.Fprintf(&b, "To: %s\r\n", e.To)
	fmt.Fprintf(&b, "Subject: %s\r\n", e.Subject)
	b.WriteString("Content-Type: text/plain; charset=UTF-8\r\n")
	b.WriteString("\r\n")
	b.WriteString(e.Body)

	err := m.send(m.addr, m.auth, e.From, []string{e.To}, []byte(b.String()))
	if err != nil {
		return "", errors.Wrap(err, "smtp send", j.KV("to", e.To))
	}

	return messageID, nil
}

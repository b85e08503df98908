package notifier

import (
	"context"

	"github.com/luno/jettison/errors"
	"github.com/luno/jettison/j"

	"github.com/andrewwormald/notifier/internal/metrics"
)

// Email is a single-recipient plaintext message.
type Email struct {
	To      string
	From    string
	Subject string
	Body    string
}

// Mailer is the mail collaborator.
type Mailer interface {
	Send(ctx context.Context, e Email) (messageID string, err error)
}

// Dispatcher sends a rendered message to the record's recipient. The terminal
// SEND_SUCCESS status update is part of its success path. On mailer failure
// the record status is deliberately left at whatever preceded dispatch.
type Dispatcher struct {
	mailer   Mailer
	recorder *StatusRecorder
}

func NewDispatcher(mailer Mailer, recorder *StatusRecorder) *Dispatcher {
	return &Dispatcher{
		mailer:   mailer,
		recorder: recorder,
	}
}

func (d *Dispatcher) Send(ctx context.Context, r Record, body string) (string, error) {
	messageID, err := d.mailer.Send(ctx, Email{
		To:      r.Metadata.EmailRecipient,
		From:    r.Metadata.EmailSender,
		Subject: r.Metadata.Subject,
		Body:    body,
	})
	if err != nil {
		return "", errors.Wrap(ErrDispatchFailed, err.Error(), j.MKV{
			"record_id": r.ID,
			"recipient": r.Metadata.EmailRecipient,
		})
	}

	metrics.DispatchedEmails.WithLabelValues(r.Type).Inc()

	_, err = d.recorder.Update(ctx, r, StatusSendSuccess)
	if err != nil {
		return "", err
	}

	return messageID, nil
}

package mail

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"

	"marketplace/config"

	"go.uber.org/zap"
	"gopkg.in/gomail.v2"
)

// Attachment is a file sent along with a message.
type Attachment struct {
	Filename    string
	ContentType string
	Data        []byte
}

// Message is a plain-text mail with optional attachments.
type Message struct {
	To          []string
	Subject     string
	Body        string
	Attachments []Attachment
}

// Mailer delivers messages. Send returns once the transport accepted the message.
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

// NewMailer returns an SMTP mailer, or a log-only mailer in development when no host is set.
func NewMailer(cfg config.Config, logger *zap.Logger) Mailer {
	if cfg.EmailHost == "" {
		logger.Warn("EMAIL_HOST not set, confirmation emails will only be logged")
		return NewLogMailer(cfg.FromEmail, logger)
	}
	return NewSMTPMailer(cfg)
}

// SMTPMailer sends through an SMTP relay using gomail.
type SMTPMailer struct {
	dialer *gomail.Dialer
	from   string
}

func NewSMTPMailer(cfg config.Config) *SMTPMailer {
	d := gomail.NewDialer(cfg.EmailHost, cfg.EmailPort, cfg.EmailHostUser, cfg.EmailHostPassword)
	if cfg.EmailUseTLS {
		d.TLSConfig = &tls.Config{ServerName: cfg.EmailHost, MinVersion: tls.VersionTLS12}
	}
	return &SMTPMailer{dialer: d, from: cfg.FromEmail}
}

// Send returns ctx.Err() as soon as ctx is done, even while the SMTP
// exchange is stalled. The message is not handed to the server once ctx is
// done before the connection is up.
func (m *SMTPMailer) Send(ctx context.Context, msg Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	gm := buildMessage(m.from, msg)

	done := make(chan error, 1)
	go func() {
		s, err := m.dialer.Dial()
		if err != nil {
			done <- err
			return
		}
		defer s.Close()
		if err := ctx.Err(); err != nil {
			done <- err
			return
		}
		done <- gomail.Send(s, gm)
	}()

	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("failed to send mail %q: %w", msg.Subject, err)
		}
		return nil
	case <-ctx.Done():
		return fmt.Errorf("mail %q not confirmed: %w", msg.Subject, ctx.Err())
	}
}

func buildMessage(from string, msg Message) *gomail.Message {
	gm := gomail.NewMessage()
	gm.SetHeader("From", from)
	gm.SetHeader("To", msg.To...)
	gm.SetHeader("Subject", msg.Subject)
	gm.SetBody("text/plain", msg.Body)
	for _, a := range msg.Attachments {
		data := a.Data
		gm.Attach(a.Filename,
			gomail.SetCopyFunc(func(w io.Writer) error {
				_, err := w.Write(data)
				return err
			}),
			gomail.SetHeader(map[string][]string{"Content-Type": {a.ContentType}}),
		)
	}
	return gm
}

// LogMailer only logs what would have been sent.
type LogMailer struct {
	from   string
	logger *zap.Logger
}

func NewLogMailer(from string, logger *zap.Logger) *LogMailer {
	return &LogMailer{from: from, logger: logger}
}

func (m *LogMailer) Send(ctx context.Context, msg Message) error {
	names := make([]string, 0, len(msg.Attachments))
	for _, a := range msg.Attachments {
		names = append(names, a.Filename)
	}
	m.logger.Info("Mail sent (log transport)",
		zap.String("from", m.from),
		zap.Strings("to", msg.To),
		zap.String("subject", msg.Subject),
		zap.Strings("attachments", names),
	)
	return nil
}

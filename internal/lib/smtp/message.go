package smtp

import (
	"context"
	"fmt"
	"strings"
)

// BuildMessage собирает текстовое письмо с заголовками.
func BuildMessage(from, to, subject, body string) []byte {
	return []byte(strings.Join([]string{
		"From: " + from,
		"To: " + to,
		"Subject: " + subject,
		"MIME-Version: 1.0",
		"Content-Type: text/plain; charset=\"UTF-8\"",
		"",
		body,
	}, "\r\n"))
}

// Mailer отправляет письма через Connector, по одной сессии на письмо.
type Mailer struct {
	conn Connector
}

// NewMailer создает Mailer.
func NewMailer(conn Connector) *Mailer {
	return &Mailer{conn: conn}
}

// Send отправляет одно письмо.
func (m *Mailer) Send(ctx context.Context, to, subject, body string) error {
	const op = "smtp.Send"

	client, err := m.conn.Connect(ctx)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	defer client.Close()

	from := m.conn.From()
	if err := client.Mail(from); err != nil {
		return fmt.Errorf("%s: mail from: %w", op, err)
	}
	if err := client.Rcpt(to); err != nil {
		return fmt.Errorf("%s: rcpt to: %w", op, err)
	}

	wc, err := client.Data()
	if err != nil {
		return fmt.Errorf("%s: data: %w", op, err)
	}
	if _, err = wc.Write(BuildMessage(from, to, subject, body)); err != nil {
		_ = wc.Close()
		return fmt.Errorf("%s: write: %w", op, err)
	}
	if err = wc.Close(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if err = client.Quit(); err != nil {
		return fmt.Errorf("%s: quit: %w", op, err)
	}
	return nil
}

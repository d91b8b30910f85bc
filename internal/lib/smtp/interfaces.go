// Package smtp предоставляет SMTP транспорт и отправку писем.
package smtp

import (
	"context"
	"io"
)

// Client интерфейс для SMTP клиента.
type Client interface {
	Mail(from string) error
	Rcpt(to string) error
	Data() (io.WriteCloser, error)
	Quit() error
	Close() error
}

// Connector открывает авторизованную SMTP сессию.
type Connector interface {
	Connect(ctx context.Context) (Client, error)
	From() string
}

// Package smtp доставляет письма уведомлений через внешний почтовый
// сервер. Соединение обязательно переводится в TLS, сервер без
// поддержки STARTTLS считается недоступным.
package smtp

import (
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/smtp"

	"github.com/edlatam/lms-platform/internal/config"
	"github.com/edlatam/lms-platform/internal/lib/sl"
)

// Client описывает SMTP-сессию доставки одного письма. *smtp.Client
// из стандартной библиотеки удовлетворяет интерфейсу, в тестах
// отправителя его заменяет заглушка.
type Client interface {
	Mail(from string) error
	Rcpt(to string) error
	Data() (io.WriteCloser, error)
	Quit() error
	Close() error
}

// Transport открывает аутентифицированные SMTP-сессии по настройкам
// приложения.
type Transport struct {
	cfg *config.Config
	log *slog.Logger
}

// NewTransport создает новый экземпляр Transport.
func NewTransport(cfg *config.Config, log *slog.Logger) *Transport {
	return &Transport{cfg: cfg, log: log}
}

// Connect устанавливает соединение с почтовым сервером, переводит его
// в TLS и проходит аутентификацию. Возвращённую сессию закрывает
// вызывающая сторона.
func (t *Transport) Connect() (Client, error) {
	const op = "smtp.Connect"

	addr := net.JoinHostPort(t.cfg.SMTPHost, t.cfg.SMTPPort)
	client, err := smtp.Dial(addr)
	if err != nil {
		return nil, fmt.Errorf("%s: dial %s: %w", op, addr, err)
	}
	fail := func(step string, err error) (Client, error) {
		if cerr := client.Close(); cerr != nil {
			t.log.Warn("failed to close smtp client", sl.Err(cerr))
		}
		return nil, fmt.Errorf("%s: %s: %w", op, step, err)
	}

	if ok, _ := client.Extension("STARTTLS"); !ok {
		return fail("starttls", errors.New("server does not support STARTTLS"))
	}
	tlsCfg := &tls.Config{
		ServerName: t.cfg.SMTPHost,
		MinVersion: tls.VersionTLS12,
	}
	if err := client.StartTLS(tlsCfg); err != nil {
		return fail("starttls", err)
	}

	auth := smtp.PlainAuth("", t.cfg.SMTPUser, t.cfg.SMTPPass, t.cfg.SMTPHost)
	if err := client.Auth(auth); err != nil {
		return fail("auth", err)
	}
	return client, nil
}

// GetSMTPUser возвращает адрес отправителя для конверта и заголовка From.
// Если адрес from в конфигурации не задан, используется учетная запись SMTP.
func (t *Transport) GetSMTPUser() string {
	if t.cfg.SMTPFrom != "" {
		return t.cfg.SMTPFrom
	}
	return t.cfg.SMTPUser
}

package notify

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/smtp"
	"strconv"
	"strings"
	"time"

	"estate/internal/models"
)

type SMTPSettings struct {
	Host     string
	Port     int
	User     string
	Password string
	From     string
}

type EmailSink struct {
	settings SMTPSettings
	dial     func(ctx context.Context, network, addr string) (net.Conn, error)
}

func NewEmailSink(settings SMTPSettings) *EmailSink {
	var dialer net.Dialer
	return &EmailSink{settings: settings, dial: dialer.DialContext}
}

func (s *EmailSink) Name() string { return "email" }

func (s *EmailSink) Send(ctx context.Context, to models.Contact, n Notification) error {
	if to.Email == "" {
		return nil
	}
	addr := net.JoinHostPort(s.settings.Host, strconv.Itoa(s.settings.Port))
	conn, err := s.dial(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("dial smtp: %w", err)
	}
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}
	client, err := smtp.NewClient(conn, s.settings.Host)
	if err != nil {
		conn.Close()
		return fmt.Errorf("smtp handshake: %w", err)
	}
	defer client.Close()

	if ok, _ := client.Extension("STARTTLS"); ok {
		if err := client.StartTLS(tlsConfig(s.settings.Host)); err != nil {
			return fmt.Errorf("smtp starttls: %w", err)
		}
	}
	if s.settings.User != "" {
		auth := smtp.PlainAuth("", s.settings.User, s.settings.Password, s.settings.Host)
		if err := client.Auth(auth); err != nil {
			return fmt.Errorf("smtp auth: %w", err)
		}
	}
	if err := client.Mail(s.settings.From); err != nil {
		return err
	}
	if err := client.Rcpt(to.Email); err != nil {
		return err
	}
	w, err := client.Data()
	if err != nil {
		return err
	}
	if _, err := w.Write(buildMessage(s.settings.From, to.Email, n)); err != nil {
		w.Close()
		return err
	}
	if err := w.Close(); err != nil {
		return err
	}
	return client.Quit()
}

func buildMessage(from, to string, n Notification) []byte {
	var b strings.Builder
	b.WriteString("From: " + from + "\r\n")
	b.WriteString("To: " + to + "\r\n")
	b.WriteString("Subject: " + sanitizeHeader(n.Subject) + "\r\n")
	b.WriteString("Date: " + n.CreatedAt.UTC().Format(time.RFC1123Z) + "\r\n")
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=UTF-8\r\n")
	b.WriteString("\r\n")
	b.WriteString(strings.ReplaceAll(n.Body, "\n", "\r\n"))
	b.WriteString("\r\n")
	return []byte(b.String())
}

func sanitizeHeader(value string) string {
	return strings.NewReplacer("\r", " ", "\n", " ").Replace(value)
}

var errNoSMTPHost = errors.New("smtp host is not configured")

// Validate reports configuration that would make every send fail.
func (s SMTPSettings) Validate() error {
	if s.Host == "" {
		return errNoSMTPHost
	}
	if s.From == "" {
		return errors.New("smtp sender address is not configured")
	}
	return nil
}

package email

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"mime"
	"net"
	"net/mail"
	"net/smtp"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	FromName string
	// ImplicitTLS dials straight into TLS (port 465 style). Otherwise the
	// connection is upgraded with STARTTLS when the server offers it.
	ImplicitTLS bool
	Timeout     time.Duration
}

// SMTPSender renders account notifications and hands them to an SMTP relay.
type SMTPSender struct {
	cfg  SMTPConfig
	from mail.Address
	now  func() time.Time
}

// notification is a rendered plain-text email.
type notification struct {
	subject string
	body    string
}

func NewSMTPSender(cfg SMTPConfig) (*SMTPSender, error) {
	cfg.Host = strings.TrimSpace(cfg.Host)
	if cfg.Host == "" {
		return nil, errors.New("smtp host is required")
	}
	from, err := mail.ParseAddress(strings.TrimSpace(cfg.From))
	if err != nil {
		return nil, fmt.Errorf("smtp from address: %w", err)
	}
	from.Name = strings.TrimSpace(cfg.FromName)
	if cfg.Port == 0 {
		cfg.Port = 587
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	return &SMTPSender{cfg: cfg, from: *from, now: time.Now}, nil
}

func (s *SMTPSender) SendWelcome(ctx context.Context, toEmail, displayName string) error {
	return s.deliver(ctx, toEmail, welcomeNotification(displayName))
}

func (s *SMTPSender) SendAccountDeleted(ctx context.Context, toEmail string, deletedAt time.Time) error {
	return s.deliver(ctx, toEmail, accountDeletedNotification(deletedAt))
}

func welcomeNotification(displayName string) notification {
	greeting := "Welcome to WeatherGuard!"
	if name := strings.TrimSpace(displayName); name != "" {
		greeting = fmt.Sprintf("Welcome to WeatherGuard, %s!", name)
	}
	return notification{
		subject: "Welcome to WeatherGuard",
		body: greeting + "\n\n" +
			"Your account is ready. Open the app and sign in with this email address.\n" +
			"You can add a phone number, birthdate and profile picture from Settings.\n",
	}
}

func accountDeletedNotification(deletedAt time.Time) notification {
	return notification{
		subject: "Your WeatherGuard account was deleted",
		body: fmt.Sprintf("Your WeatherGuard account and profile were deleted on %s.\n\n"+
			"All devices have been signed out. If you did not request this, contact support.\n",
			deletedAt.UTC().Format("2 Jan 2006 at 15:04 UTC")),
	}
}

func (s *SMTPSender) deliver(ctx context.Context, toEmail string, n notification) error {
	to, err := mail.ParseAddress(strings.TrimSpace(toEmail))
	if err != nil {
		return fmt.Errorf("recipient: %w", err)
	}

	conn, err := s.dial(ctx)
	if err != nil {
		return fmt.Errorf("smtp dial: %w", err)
	}
	defer conn.Close()
	deadline := time.Now().Add(s.cfg.Timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	if err := conn.SetDeadline(deadline); err != nil {
		return err
	}

	client, err := smtp.NewClient(conn, s.cfg.Host)
	if err != nil {
		return fmt.Errorf("smtp greeting: %w", err)
	}
	defer client.Close()

	if !s.cfg.ImplicitTLS {
		if ok, _ := client.Extension("STARTTLS"); ok {
			if err := client.StartTLS(&tls.Config{ServerName: s.cfg.Host}); err != nil {
				return fmt.Errorf("smtp starttls: %w", err)
			}
		}
	}
	if s.cfg.Username != "" {
		if ok, _ := client.Extension("AUTH"); !ok {
			return errors.New("smtp server does not offer AUTH")
		}
		if err := client.Auth(smtp.PlainAuth("", s.cfg.Username, s.cfg.Password, s.cfg.Host)); err != nil {
			return fmt.Errorf("smtp auth: %w", err)
		}
	}

	if err := client.Mail(s.from.Address); err != nil {
		return err
	}
	if err := client.Rcpt(to.Address); err != nil {
		return err
	}
	w, err := client.Data()
	if err != nil {
		return err
	}
	if _, err := w.Write(s.compose(to.Address, n)); err != nil {
		_ = w.Close()
		return err
	}
	if err := w.Close(); err != nil {
		return err
	}
	return client.Quit()
}

func (s *SMTPSender) dial(ctx context.Context) (net.Conn, error) {
	addr := net.JoinHostPort(s.cfg.Host, strconv.Itoa(s.cfg.Port))
	dialer := &net.Dialer{Timeout: s.cfg.Timeout}
	if s.cfg.ImplicitTLS {
		tlsDialer := &tls.Dialer{NetDialer: dialer, Config: &tls.Config{ServerName: s.cfg.Host}}
		return tlsDialer.DialContext(ctx, "tcp", addr)
	}
	return dialer.DialContext(ctx, "tcp", addr)
}

// compose renders headers and body with CRLF line endings.
func (s *SMTPSender) compose(to string, n notification) []byte {
	headers := [][2]string{
		{"From", s.from.String()},
		{"To", to},
		{"Subject", mime.QEncoding.Encode("utf-8", n.subject)},
		{"Date", s.now().UTC().Format(time.RFC1123Z)},
		{"Message-ID", fmt.Sprintf("<%s@%s>", uuid.NewString(), s.cfg.Host)},
		{"MIME-Version", "1.0"},
		{"Content-Type", `text/plain; charset="UTF-8"`},
		{"Content-Transfer-Encoding", "8bit"},
	}
	var b strings.Builder
	for _, h := range headers {
		b.WriteString(h[0] + ": " + h[1] + "\r\n")
	}
	b.WriteString("\r\n")
	b.WriteString(strings.ReplaceAll(strings.ReplaceAll(n.body, "\r\n", "\n"), "\n", "\r\n"))
	return []byte(b.String())
}

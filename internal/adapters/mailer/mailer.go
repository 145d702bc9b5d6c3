// Package mailer delivers passcode messages.
package mailer

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"mime"
	"net"
	"net/mail"
	"net/smtp"
	"strconv"
	"time"

	"github.com/okian/peereval/pkg/logger"
)

const defaultDialTimeout = 15 * time.Second

// SMTPSender sends mail over implicit TLS (SMTPS, port 465 by default).
type SMTPSender struct {
	host     string
	port     int
	sender   string
	password string
	timeout  time.Duration
	tlsConf  *tls.Config
}

// Option applies a configuration option to the SMTPSender.
type Option func(*SMTPSender)

// WithPort sets the SMTPS port.
func WithPort(port int) Option {
	return func(s *SMTPSender) {
		if port > 0 {
			s.port = port
		}
	}
}

// WithDialTimeout bounds connection setup.
func WithDialTimeout(d time.Duration) Option {
	return func(s *SMTPSender) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// WithTLSConfig overrides the TLS client configuration.
func WithTLSConfig(c *tls.Config) Option {
	return func(s *SMTPSender) {
		if c != nil {
			s.tlsConf = c
		}
	}
}

// NewSMTPSender authenticates as sender with password against host.
func NewSMTPSender(host, sender, password string, opts ...Option) *SMTPSender {
	s := &SMTPSender{
		host:     host,
		port:     465,
		sender:   sender,
		password: password,
		timeout:  defaultDialTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.tlsConf == nil {
		s.tlsConf = &tls.Config{ServerName: host, MinVersion: tls.VersionTLS12}
	}
	return s
}

// Send delivers one plain-text message.
func (s *SMTPSender) Send(ctx context.Context, to, subject, body string) error {
	msg, err := BuildMessage(s.sender, to, subject, body)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrSend, err)
	}

	addr := net.JoinHostPort(s.host, strconv.Itoa(s.port))
	dialer := &tls.Dialer{NetDialer: &net.Dialer{Timeout: s.timeout}, Config: s.tlsConf}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("%w: %s: %w", ErrDial, addr, err)
	}
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}

	c, err := smtp.NewClient(conn, s.host)
	if err != nil {
		_ = conn.Close()
		return fmt.Errorf("%w: %w", ErrDial, err)
	}
	defer c.Close()

	if s.password != "" {
		if err := c.Auth(smtp.PlainAuth("", s.sender, s.password, s.host)); err != nil {
			return fmt.Errorf("%w: %w", ErrAuth, err)
		}
	}
	if err := c.Mail(s.sender); err != nil {
		return fmt.Errorf("%w: %w", ErrSend, err)
	}
	if err := c.Rcpt(to); err != nil {
		return fmt.Errorf("%w: %w", ErrSend, err)
	}
	w, err := c.Data()
	if err != nil {
		return fmt.Errorf("%w: %w", ErrSend, err)
	}
	if _, err := w.Write(msg); err != nil {
		_ = w.Close()
		return fmt.Errorf("%w: %w", ErrSend, err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("%w: %w", ErrSend, err)
	}
	return c.Quit()
}

// BuildMessage renders an RFC 5322 plain-text message.
func BuildMessage(from, to, subject, body string) ([]byte, error) {
	fromAddr, err := mail.ParseAddress(from)
	if err != nil {
		return nil, fmt.Errorf("invalid sender %q: %w", from, err)
	}
	toAddr, err := mail.ParseAddress(to)
	if err != nil {
		return nil, fmt.Errorf("invalid recipient %q: %w", to, err)
	}

	var b bytes.Buffer
	fmt.Fprintf(&b, "From: %s\r\n", fromAddr.String())
	fmt.Fprintf(&b, "To: %s\r\n", toAddr.String())
	fmt.Fprintf(&b, "Subject: %s\r\n", mime.QEncoding.Encode("utf-8", subject))
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=utf-8\r\n")
	b.WriteString("Content-Transfer-Encoding: 8bit\r\n")
	b.WriteString("\r\n")
	b.WriteString(body)
	b.WriteString("\r\n")
	return b.Bytes(), nil
}

// LogSender writes messages to the log instead of sending them. Development only.
type LogSender struct {
	logger logger.Logger
}

// NewLogSender constructs a LogSender.
func NewLogSender(log logger.Logger) *LogSender {
	return &LogSender{logger: log}
}

// Send logs the message, including the body.
func (s *LogSender) Send(ctx context.Context, to, subject, body string) error {
	s.logger.Info(ctx, "mail (log driver)",
		logger.String("to", to),
		logger.String("subject", subject),
		logger.String("body", body),
	)
	return nil
}

package mail

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"net/smtp"
	"net/textproto"
	"strconv"
	"time"
)

const (
	defaultSMTPPort    = 587
	defaultSMTPTimeout = 30 * time.Second
)

// SMTPSender delivers messages through an SMTP relay. STARTTLS is required
// unless AllowPlaintext is set, and PLAIN auth is used when Username is set.
type SMTPSender struct {
	Host           string
	Port           int
	Username       string
	Password       string
	Timeout        time.Duration
	AllowPlaintext bool
	TLSConfig      *tls.Config
}

// Send delivers msg in one SMTP session. The session is bounded by the
// earlier of ctx's deadline and Timeout.
func (s *SMTPSender) Send(ctx context.Context, msg Message) error {
	if err := s.send(ctx, msg); err != nil {
		return &SendError{Recipient: msg.To, Cause: err, Temporary: temporarySMTP(err)}
	}
	return nil
}

// temporarySMTP reports whether err is a 4xx reply or a network timeout.
func temporarySMTP(err error) bool {
	var protoErr *textproto.Error
	if errors.As(err, &protoErr) {
		return protoErr.Code >= 400 && protoErr.Code < 500
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

func (s *SMTPSender) send(ctx context.Context, msg Message) error {
	from, to, err := msg.addresses()
	if err != nil {
		return err
	}
	raw, err := BuildMIME(msg)
	if err != nil {
		return err
	}

	timeout := s.Timeout
	if timeout <= 0 {
		timeout = defaultSMTPTimeout
	}
	port := s.Port
	if port == 0 {
		port = defaultSMTPPort
	}

	dialer := net.Dialer{Timeout: timeout}
	conn, err := dialer.DialContext(ctx, "tcp", net.JoinHostPort(s.Host, strconv.Itoa(port)))
	if err != nil {
		return fmt.Errorf("failed to connect to smtp server: %w", err)
	}
	deadline := time.Now().Add(timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	_ = conn.SetDeadline(deadline)

	client, err := smtp.NewClient(conn, s.Host)
	if err != nil {
		_ = conn.Close()
		return fmt.Errorf("failed to start smtp session: %w", err)
	}
	defer client.Close()

	if ok, _ := client.Extension("STARTTLS"); ok {
		tlsConfig := s.TLSConfig
		if tlsConfig == nil {
			tlsConfig = &tls.Config{ServerName: s.Host, MinVersion: tls.VersionTLS12}
		}
		if err := client.StartTLS(tlsConfig); err != nil {
			return fmt.Errorf("failed to start tls: %w", err)
		}
	} else if !s.AllowPlaintext {
		return fmt.Errorf("smtp server %s does not support STARTTLS", s.Host)
	}

	if s.Username != "" {
		if err := client.Auth(smtp.PlainAuth("", s.Username, s.Password, s.Host)); err != nil {
			return fmt.Errorf("smtp auth failed: %w", err)
		}
	}

	if err := client.Mail(from.Address); err != nil {
		return fmt.Errorf("MAIL FROM rejected: %w", err)
	}
	if err := client.Rcpt(to.Address); err != nil {
		return fmt.Errorf("RCPT TO rejected: %w", err)
	}
	w, err := client.Data()
	if err != nil {
		return fmt.Errorf("DATA rejected: %w", err)
	}
	if _, err := w.Write(raw); err != nil {
		return fmt.Errorf("failed to write message: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("message rejected: %w", err)
	}
	return client.Quit()
}

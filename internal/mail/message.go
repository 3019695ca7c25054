// Package mail delivers rendered digests over SMTP, the Gmail API or to a
// local outbox directory.
package mail

import (
	"bytes"
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"mime"
	"mime/multipart"
	"mime/quotedprintable"
	"net/mail"
	"net/textproto"
	"strings"
	"time"
)

// Message is one outgoing email.
type Message struct {
	From    string
	To      string
	Subject string
	HTML    string
	Text    string
	// Headers are extra headers such as List-Unsubscribe.
	Headers map[string]string
}

// Sender delivers a message.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// SendError reports a failed delivery to one recipient. Temporary is set
// when the server signalled a transient condition (SMTP 4xx, HTTP 429/5xx,
// network timeouts).
type SendError struct {
	Recipient string
	Cause     error
	Temporary bool
}

func (e *SendError) Error() string {
	return fmt.Sprintf("failed to send to %s: %v", e.Recipient, e.Cause)
}

func (e *SendError) Unwrap() error {
	return e.Cause
}

func (m Message) addresses() (from, to *mail.Address, err error) {
	from, err = mail.ParseAddress(m.From)
	if err != nil {
		return nil, nil, fmt.Errorf("invalid sender %q: %w", m.From, err)
	}
	to, err = mail.ParseAddress(m.To)
	if err != nil {
		return nil, nil, fmt.Errorf("invalid recipient %q: %w", m.To, err)
	}
	return from, to, nil
}

// BuildMIME encodes msg as a multipart/alternative UTF-8 message with a
// plain-text part (when Text is set) followed by the HTML part.
func BuildMIME(msg Message) ([]byte, error) {
	from, to, err := msg.addresses()
	if err != nil {
		return nil, err
	}

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)

	parts := []struct {
		contentType string
		content     string
	}{
		{"text/plain; charset=UTF-8", msg.Text},
		{"text/html; charset=UTF-8", msg.HTML},
	}
	for _, part := range parts {
		if part.content == "" {
			continue
		}
		header := textproto.MIMEHeader{}
		header.Set("Content-Type", part.contentType)
		header.Set("Content-Transfer-Encoding", "quoted-printable")
		w, err := mw.CreatePart(header)
		if err != nil {
			return nil, fmt.Errorf("failed to create mime part: %w", err)
		}
		qp := quotedprintable.NewWriter(w)
		if _, err := qp.Write([]byte(part.content)); err != nil {
			return nil, fmt.Errorf("failed to encode mime part: %w", err)
		}
		if err := qp.Close(); err != nil {
			return nil, fmt.Errorf("failed to encode mime part: %w", err)
		}
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("failed to close mime body: %w", err)
	}

	var out bytes.Buffer
	writeHeader := func(key, value string) {
		fmt.Fprintf(&out, "%s: %s\r\n", key, value)
	}
	writeHeader("From", from.String())
	writeHeader("To", to.String())
	writeHeader("Subject", mime.BEncoding.Encode("UTF-8", msg.Subject))
	writeHeader("Date", time.Now().Format(time.RFC1123Z))
	writeHeader("Message-ID", messageID(from.Address))
	writeHeader("MIME-Version", "1.0")
	for key, value := range msg.Headers {
		writeHeader(textproto.CanonicalMIMEHeaderKey(key), value)
	}
	writeHeader("Content-Type", fmt.Sprintf("multipart/alternative; boundary=%q", mw.Boundary()))
	out.WriteString("\r\n")
	out.Write(body.Bytes())

	return out.Bytes(), nil
}

func messageID(from string) string {
	domain := "localhost"
	if i := strings.LastIndex(from, "@"); i >= 0 && i < len(from)-1 {
		domain = from[i+1:]
	}
	buf := make([]byte, 12)
	_, _ = rand.Read(buf)
	return fmt.Sprintf("<%s@%s>", hex.EncodeToString(buf), domain)
}

package mail

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// FileSender writes each message as an .eml file into Dir instead of
// delivering it.
type FileSender struct {
	Dir string
}

// Send writes msg to Dir/<recipient>-<id>.eml.
func (f *FileSender) Send(ctx context.Context, msg Message) error {
	if err := ctx.Err(); err != nil {
		return &SendError{Recipient: msg.To, Cause: err}
	}
	raw, err := BuildMIME(msg)
	if err != nil {
		return &SendError{Recipient: msg.To, Cause: err}
	}
	if err := os.MkdirAll(f.Dir, 0755); err != nil {
		return &SendError{Recipient: msg.To, Cause: fmt.Errorf("failed to create outbox: %w", err)}
	}
	name := fmt.Sprintf("%s-%s.eml", safeName(msg.To), uuid.NewString()[:8])
	if err := os.WriteFile(filepath.Join(f.Dir, name), raw, 0644); err != nil {
		return &SendError{Recipient: msg.To, Cause: fmt.Errorf("failed to write %s: %w", name, err)}
	}
	return nil
}

func safeName(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '-', r == '_', r == '@':
			return r
		}
		return '_'
	}, s)
}

package mail

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"

	"google.golang.org/api/gmail/v1"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

// GmailSender delivers messages with the Gmail API users.messages.send call.
type GmailSender struct {
	svc    *gmail.Service
	userID string
}

// NewGmailSender creates a sender acting as userID ("me" for the
// authenticated account).
func NewGmailSender(ctx context.Context, userID string, opts ...option.ClientOption) (*GmailSender, error) {
	svc, err := gmail.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create gmail service: %w", err)
	}
	if userID == "" {
		userID = "me"
	}
	return &GmailSender{svc: svc, userID: userID}, nil
}

// Send uploads msg as a raw RFC 822 message.
func (g *GmailSender) Send(ctx context.Context, msg Message) error {
	raw, err := BuildMIME(msg)
	if err != nil {
		return &SendError{Recipient: msg.To, Cause: err}
	}
	_, err = g.svc.Users.Messages.Send(g.userID, &gmail.Message{
		Raw: base64.URLEncoding.EncodeToString(raw),
	}).Context(ctx).Do()
	if err != nil {
		var apiErr *googleapi.Error
		temporary := errors.As(err, &apiErr) && (apiErr.Code == http.StatusTooManyRequests || apiErr.Code >= 500)
		return &SendError{Recipient: msg.To, Cause: err, Temporary: temporary}
	}
	return nil
}

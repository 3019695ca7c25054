package mail

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"
)

func newTestGmailSender(t *testing.T, handler http.HandlerFunc) *GmailSender {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	sender, err := NewGmailSender(context.Background(), "",
		option.WithEndpoint(srv.URL+"/"),
		option.WithoutAuthentication(),
		option.WithHTTPClient(srv.Client()),
	)
	require.NoError(t, err)
	return sender
}

func TestGmailSender_Send(t *testing.T) {
	var gotPath string
	var gotRaw []byte
	sender := newTestGmailSender(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		var msg gmail.Message
		require.NoError(t, json.NewDecoder(r.Body).Decode(&msg))
		raw, err := base64.URLEncoding.DecodeString(msg.Raw)
		require.NoError(t, err)
		gotRaw = raw
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(gmail.Message{Id: "msg-1"})
	})

	require.NoError(t, sender.Send(context.Background(), testMessage()))
	assert.True(t, strings.HasSuffix(gotPath, "/users/me/messages/send"), gotPath)
	bodies := mimeBodies(t, gotRaw)
	require.Len(t, bodies, 2)
	assert.Contains(t, bodies[1], "추천 공고")
}

func TestGmailSender_APIError(t *testing.T) {
	sender := newTestGmailSender(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"error": {"code": 403, "message": "insufficient scope"}}`))
	})

	err := sender.Send(context.Background(), testMessage())
	require.Error(t, err)
	var sendErr *SendError
	require.True(t, errors.As(err, &sendErr))
	assert.Contains(t, err.Error(), "insufficient scope")
	assert.False(t, sendErr.Temporary)
}

func TestGmailSender_RateLimitedIsTemporary(t *testing.T) {
	sender := newTestGmailSender(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error": {"code": 429, "message": "rate limit exceeded"}}`))
	})

	err := sender.Send(context.Background(), testMessage())
	var sendErr *SendError
	require.True(t, errors.As(err, &sendErr))
	assert.True(t, sendErr.Temporary)
}

func TestGmailSender_InvalidMessage(t *testing.T) {
	called := false
	sender := newTestGmailSender(t, func(w http.ResponseWriter, r *http.Request) { called = true })

	msg := testMessage()
	msg.To = ""
	assert.Error(t, sender.Send(context.Background(), msg))
	assert.False(t, called)
}

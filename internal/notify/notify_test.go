package notify

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type captureMailer struct {
	to, subject, body string
	err               error
}

func (m *captureMailer) Send(ctx context.Context, to, subject, body string) error {
	m.to, m.subject, m.body = to, subject, body
	return m.err
}

type capturePublisher struct {
	got []any
	err error
}

func (p *capturePublisher) Publish(ctx context.Context, v any) error {
	p.got = append(p.got, v)
	return p.err
}

func TestRender_AdminChatMessage(t *testing.T) {
	subject, body, err := Render(Notification{
		Kind: KindAdminChatMessage,
		To:   "staff@example.com",
		Fields: map[string]string{
			"sessionId":     "01J0SESSION",
			"customerEmail": "jo@example.com",
			"message":       "Do you have Blue Dream clones?",
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "New chat message from jo@example.com", subject)
	assert.Contains(t, body, "Session:  01J0SESSION")
	assert.Contains(t, body, "Name:     -")
	assert.Contains(t, body, "Do you have Blue Dream clones?")
	assert.NotContains(t, body, "Images:")
	assert.NotContains(t, body, "<no value>")
}

func TestRender_SpecialOrderAndUnknownKind(t *testing.T) {
	subject, body, err := Render(Notification{
		Kind:   KindSpecialOrder,
		Fields: map[string]string{"orderId": "01J0ORDER", "customerEmail": "a@b.c", "requestDetails": "10 clones"},
	})
	require.NoError(t, err)
	assert.Equal(t, "Special order request 01J0ORDER", subject)
	assert.Contains(t, body, "Customer:  - <a@b.c>")

	_, _, err = Render(Notification{Kind: "sms"})
	require.Error(t, err)
}

func TestInline_RequiresRecipient(t *testing.T) {
	m := &captureMailer{}
	n := NewInline(m, nil)

	err := n.Notify(context.Background(), Notification{Kind: KindSpecialOrder})
	require.Error(t, err)
	assert.Empty(t, m.to)

	require.NoError(t, n.Notify(context.Background(), Notification{Kind: KindSpecialOrder, To: "staff@example.com"}))
	assert.Equal(t, "staff@example.com", m.to)

	m.err = errors.New("connection refused")
	assert.Error(t, n.Notify(context.Background(), Notification{Kind: KindSpecialOrder, To: "staff@example.com"}))
}

func TestQueue_Publishes(t *testing.T) {
	p := &capturePublisher{}
	q := NewQueue(p, nil)

	note := Notification{Kind: KindAdminChatMessage, To: "staff@example.com"}
	require.NoError(t, q.Notify(context.Background(), note))
	require.Len(t, p.got, 1)
	assert.Equal(t, note, p.got[0])

	assert.Error(t, q.Notify(context.Background(), Notification{Kind: "fax"}))
}

func TestBuildMessage_Headers(t *testing.T) {
	msg := string(buildMessage("shop@example.com", "staff@example.com", "Hi\nthere", "line1\nline2", time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)))
	assert.True(t, strings.HasPrefix(msg, "From: shop@example.com\r\nTo: staff@example.com\r\nSubject: Hi there\r\n"))
	assert.True(t, strings.HasSuffix(msg, "\r\n\r\nline1\r\nline2"))
}

package ai

import (
	"context"
	"errors"
)

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

type Message struct {
	Role    string
	Content string
}

// Image is raw image bytes with a sniffed MIME type.
type Image struct {
	MIMEType string
	Data     []byte
}

type ChatRequest struct {
	System   string
	Messages []Message
	// Images are attached to the last user message.
	Images []Image
}

type Completion struct {
	Text       string
	TokensUsed int64
}

type Provider interface {
	Name() string
	Chat(ctx context.Context, req ChatRequest) (*Completion, error)
}

var ErrEmptyCompletion = errors.New("ai: empty completion")

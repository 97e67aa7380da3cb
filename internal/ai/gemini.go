package ai

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/genai"
)

type GeminiProvider struct {
	client *genai.Client
	model  string
}

func NewGeminiProvider(ctx context.Context, apiKey, model string) (*GeminiProvider, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, errors.New("gemini: api key is required")
	}
	if model == "" {
		model = "gemini-1.5-flash"
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("gemini: create client: %w", err)
	}
	return &GeminiProvider{client: client, model: model}, nil
}

func (p *GeminiProvider) Name() string { return "gemini" }

func (p *GeminiProvider) Chat(ctx context.Context, req ChatRequest) (*Completion, error) {
	contents, err := geminiContents(req)
	if err != nil {
		return nil, err
	}

	var cfg *genai.GenerateContentConfig
	if req.System != "" {
		cfg = &genai.GenerateContentConfig{
			SystemInstruction: genai.NewContentFromText(req.System, genai.RoleUser),
		}
	}

	resp, err := p.client.Models.GenerateContent(ctx, p.model, contents, cfg)
	if err != nil {
		return nil, fmt.Errorf("gemini: generate content: %w", err)
	}

	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return nil, ErrEmptyCompletion
	}

	out := &Completion{Text: text}
	if resp.UsageMetadata != nil {
		out.TokensUsed = int64(resp.UsageMetadata.TotalTokenCount)
	}
	return out, nil
}

// geminiContents maps the conversation onto gemini turns. Images ride on the
// last user turn.
func geminiContents(req ChatRequest) ([]*genai.Content, error) {
	contents := make([]*genai.Content, 0, len(req.Messages)+1)
	lastUser := -1
	for _, m := range req.Messages {
		var role genai.Role = genai.RoleUser
		if m.Role == RoleAssistant {
			role = genai.RoleModel
		} else {
			lastUser = len(contents)
		}
		contents = append(contents, genai.NewContentFromText(m.Content, role))
	}

	if len(req.Images) > 0 {
		parts := make([]*genai.Part, 0, len(req.Images))
		for _, img := range req.Images {
			parts = append(parts, genai.NewPartFromBytes(img.Data, img.MIMEType))
		}
		if lastUser >= 0 {
			contents[lastUser].Parts = append(contents[lastUser].Parts, parts...)
		} else {
			contents = append(contents, genai.NewContentFromParts(parts, genai.RoleUser))
		}
	}
	if len(contents) == 0 {
		return nil, errors.New("gemini: no content to send")
	}
	return contents, nil
}

package responder

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/suPer8Hu/dispensary/internal/ai"
	"github.com/suPer8Hu/dispensary/internal/common"
	"github.com/suPer8Hu/dispensary/internal/knowledge"
	"github.com/suPer8Hu/dispensary/internal/search"
	"github.com/suPer8Hu/dispensary/internal/usage"
)

type fakeProvider struct {
	reply  string
	tokens int64
	err    error
	last   ai.ChatRequest
	calls  int
}

func (p *fakeProvider) Name() string { return "fake" }

func (p *fakeProvider) Chat(ctx context.Context, req ai.ChatRequest) (*ai.Completion, error) {
	p.calls++
	p.last = req
	if p.err != nil {
		return nil, p.err
	}
	return &ai.Completion{Text: p.reply, TokensUsed: p.tokens}, nil
}

type fakeMeter struct {
	blocked  map[usage.APIType]bool
	gemini   []int64
	searches []int64
}

func (m *fakeMeter) CheckQuota(ctx context.Context, t usage.APIType) usage.Decision {
	if m.blocked[t] {
		return usage.Decision{Reason: "daily limit reached"}
	}
	return usage.Decision{Allowed: true}
}

func (m *fakeMeter) RecordGemini(ctx context.Context, endpoint string, tokens int64) {
	m.gemini = append(m.gemini, tokens)
}

func (m *fakeMeter) RecordSearch(ctx context.Context, endpoint string, calls int64) {
	m.searches = append(m.searches, calls)
}

type fakeSearcher struct {
	results []search.Result
	err     error
	queries []string
}

func (s *fakeSearcher) Search(ctx context.Context, q string, n int) ([]search.Result, error) {
	s.queries = append(s.queries, q)
	return s.results, s.err
}

type staticKB string

func (k staticKB) BuildContext(context.Context) (string, error) { return string(k), nil }

func newTestAssistant(p *fakeProvider, s search.Searcher, m *fakeMeter, kb KnowledgeSource) *Assistant {
	reg := ai.NewRegistry()
	reg.Register("fake", func(ctx context.Context, model string) (ai.Provider, error) { return p, nil })
	return NewAssistant(reg, kb, s, m, AssistantConfig{Provider: "fake"}, nil)
}

func TestAssistant_ConfidentAnswerSkipsSearch(t *testing.T) {
	p := &fakeProvider{reply: "RESPONSE: Classic nitrogen deficiency.\nCONFIDENCE: 95%\nRECOMMENDATIONS:\n- Feed nitrogen", tokens: 321}
	s := &fakeSearcher{}
	m := &fakeMeter{}
	a := newTestAssistant(p, s, m, staticKB("Nitrogen deficiency: yellow lower leaves"))

	r := a.Reply(context.Background(), Turn{
		SessionID: "s1",
		Message:   "my plant leaves are yellow",
		History:   []ai.Message{{Role: ai.RoleUser, Content: "hi"}, {Role: ai.RoleAssistant, Content: "hello"}},
	})

	assert.Equal(t, OutcomeAnswered, r.Outcome)
	assert.NoError(t, r.Err)
	assert.Equal(t, "Classic nitrogen deficiency.", r.Text)
	assert.Equal(t, []int64{321}, m.gemini)
	assert.Empty(t, s.queries)
	assert.Empty(t, m.searches)
	assert.Equal(t, 95, r.Metadata["confidence"])
	assert.Equal(t, false, r.Metadata["needsSearch"])

	require.Len(t, p.last.Messages, 3)
	assert.Equal(t, "my plant leaves are yellow", p.last.Messages[2].Content)
	assert.Contains(t, p.last.System, "Nitrogen deficiency: yellow lower leaves")
}

func TestAssistant_LowConfidenceSearches(t *testing.T) {
	p := &fakeProvider{reply: "Might be light burn, I'm unsure. Try to search online for cannabis light burn. Confidence: 60%", tokens: 50}
	s := &fakeSearcher{results: []search.Result{
		{Title: "a", Link: "https://a"}, {Title: "b", Link: "https://b"},
		{Title: "c", Link: "https://c"}, {Title: "d", Link: "https://d"},
	}}
	m := &fakeMeter{}
	a := newTestAssistant(p, s, m, nil)

	r := a.Reply(context.Background(), Turn{SessionID: "s1", Message: "tips are brown"})

	assert.Equal(t, OutcomeAnswered, r.Outcome)
	assert.Equal(t, []string{"cannabis light burn"}, s.queries)
	assert.Equal(t, []int64{1}, m.searches)
	assert.Len(t, r.SearchResults, MaxRankedResults)
	assert.Equal(t, true, r.Metadata["needsSearch"])
	assert.Contains(t, p.last.System, knowledge.EmptyContext)
}

func TestAssistant_QuotaExceededSkipsVendor(t *testing.T) {
	p := &fakeProvider{reply: "unused"}
	m := &fakeMeter{blocked: map[usage.APIType]bool{usage.APIGemini: true}}
	a := newTestAssistant(p, nil, m, nil)

	r := a.Reply(context.Background(), Turn{Message: "help"})
	assert.Equal(t, OutcomeQuotaExceeded, r.Outcome)
	assert.Equal(t, QuotaExceededMessage, r.Text)
	assert.ErrorIs(t, r.Err, common.ErrQuotaExceeded)
	assert.Contains(t, r.Err.Error(), "daily limit reached")
	assert.Zero(t, p.calls)
	assert.Empty(t, m.gemini)
}

func TestAssistant_SearchQuotaExceeded(t *testing.T) {
	p := &fakeProvider{reply: "Not sure. Confidence: 40%", tokens: 10}
	s := &fakeSearcher{}
	m := &fakeMeter{blocked: map[usage.APIType]bool{usage.APIGoogleSearch: true}}
	a := newTestAssistant(p, s, m, nil)

	r := a.Reply(context.Background(), Turn{Message: "help"})
	assert.Equal(t, OutcomeAnswered, r.Outcome)
	assert.Empty(t, s.queries)
	assert.Empty(t, r.SearchResults)
	assert.Equal(t, "daily limit reached", r.Metadata["searchSkipped"])
}

func TestAssistant_VendorErrorFallsBack(t *testing.T) {
	p := &fakeProvider{err: errors.New("503 from vendor")}
	m := &fakeMeter{}
	a := newTestAssistant(p, nil, m, nil)

	r := a.Reply(context.Background(), Turn{Message: "help"})
	assert.Equal(t, OutcomeVendorError, r.Outcome)
	assert.Equal(t, VendorErrorMessage, r.Text)
	assert.ErrorIs(t, r.Err, common.ErrVendor)
	assert.Contains(t, r.Err.Error(), "503 from vendor")
	assert.Equal(t, []int64{0}, m.gemini)
}

func TestAssistant_SearchErrorKeepsAnswer(t *testing.T) {
	p := &fakeProvider{reply: "Confidence: 50%. Could be pests.", tokens: 10}
	s := &fakeSearcher{err: errors.New("quota")}
	m := &fakeMeter{}
	a := newTestAssistant(p, s, m, nil)

	r := a.Reply(context.Background(), Turn{Message: "spots on leaves"})
	assert.Equal(t, OutcomeAnswered, r.Outcome)
	assert.NotEmpty(t, r.Text)
	assert.Equal(t, []int64{1}, m.searches)
	assert.Nil(t, r.SearchResults)
}

package responder

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/suPer8Hu/dispensary/internal/ai"
	"github.com/suPer8Hu/dispensary/internal/common"
	"github.com/suPer8Hu/dispensary/internal/knowledge"
	"github.com/suPer8Hu/dispensary/internal/metrics"
	"github.com/suPer8Hu/dispensary/internal/search"
	"github.com/suPer8Hu/dispensary/internal/usage"
)

const (
	QuotaExceededMessage = "Our plant-care assistant is taking a short break because its usage limit has been reached. " +
		"Please try again later, or switch to chatting with our staff for immediate help."
	VendorErrorMessage = "Sorry, I'm having trouble analysing that right now. Please try again in a moment."

	endpointGenerate = "generateContent"
	endpointSearch   = "customsearch"
)

type Outcome string

const (
	OutcomeAnswered      Outcome = "answered"
	OutcomeQuotaExceeded Outcome = "quota_exceeded"
	OutcomeVendorError   Outcome = "vendor_error"
)

// KnowledgeSource provides the prompt context built from the knowledge base.
type KnowledgeSource interface {
	BuildContext(ctx context.Context) (string, error)
}

// Meter is the slice of the usage ledger the assistant needs.
type Meter interface {
	CheckQuota(ctx context.Context, apiType usage.APIType) usage.Decision
	RecordGemini(ctx context.Context, endpoint string, tokens int64)
	RecordSearch(ctx context.Context, endpoint string, calls int64)
}

type Turn struct {
	SessionID string
	Message   string
	Language  string
	History   []ai.Message
	Images    []ai.Image
}

type Reply struct {
	Text          string
	Outcome       Outcome
	Parsed        *Parsed
	SearchResults []ScoredResult
	Metadata      map[string]any

	// Err explains a fallback reply. It wraps common.ErrQuotaExceeded or
	// common.ErrVendor and is nil for answers.
	Err error
}

type AssistantConfig struct {
	Provider      string
	Model         string
	SearchResults int
}

// Assistant answers plant-care questions with the AI vendor, falling back to
// a web search when the model is unsure.
type Assistant struct {
	registry  *ai.Registry
	knowledge KnowledgeSource
	searcher  search.Searcher
	meter     Meter
	cfg       AssistantConfig
	logger    *logrus.Logger
	now       func() time.Time
}

// NewAssistant builds an assistant. searcher may be nil when search is not configured.
func NewAssistant(reg *ai.Registry, kb KnowledgeSource, searcher search.Searcher, meter Meter, cfg AssistantConfig, logger *logrus.Logger) *Assistant {
	if logger == nil {
		logger = logrus.New()
	}
	if cfg.SearchResults <= 0 {
		cfg.SearchResults = 5
	}
	return &Assistant{
		registry:  reg,
		knowledge: kb,
		searcher:  searcher,
		meter:     meter,
		cfg:       cfg,
		logger:    logger,
		now:       time.Now,
	}
}

func (a *Assistant) Reply(ctx context.Context, turn Turn) Reply {
	log := a.logger.WithField("session_id", turn.SessionID)

	kbContext := knowledge.EmptyContext
	if a.knowledge != nil {
		c, err := a.knowledge.BuildContext(ctx)
		if err != nil {
			log.WithError(err).Warn("knowledge base unavailable, using placeholder context")
		} else {
			kbContext = c
		}
	}

	if d := a.meter.CheckQuota(ctx, usage.APIGemini); !d.Allowed {
		err := fmt.Errorf("%w: %s", common.ErrQuotaExceeded, d.Reason)
		log.WithError(err).Warn("gemini call skipped")
		return Reply{
			Text:    QuotaExceededMessage,
			Outcome: OutcomeQuotaExceeded,
			Metadata: map[string]any{
				"outcome":     OutcomeQuotaExceeded,
				"quotaReason": d.Reason,
			},
			Err: err,
		}
	}

	provider, err := a.registry.Get(ctx, a.cfg.Provider, a.cfg.Model)
	if err != nil {
		log.WithError(err).Error("ai provider unavailable")
		return vendorFailure(err)
	}

	req := ai.ChatRequest{
		System:   buildSystemPrompt(kbContext, turn.Language),
		Messages: append(append([]ai.Message(nil), turn.History...), ai.Message{Role: ai.RoleUser, Content: userPrompt(turn)}),
		Images:   turn.Images,
	}

	start := time.Now()
	completion, err := provider.Chat(ctx, req)
	metrics.Get().VendorCalls.WithLabelValues(provider.Name(), metrics.Result(err)).Inc()
	if err != nil {
		a.meter.RecordGemini(ctx, endpointGenerate, 0)
		log.WithError(err).WithField("latency", time.Since(start)).Error("ai vendor call failed")
		return vendorFailure(err)
	}

	tokens := completion.TokensUsed
	if tokens <= 0 {
		tokens = estimateTokens(req.System, turn.Message, completion.Text)
	}
	a.meter.RecordGemini(ctx, endpointGenerate, tokens)

	parsed := Parse(completion.Text)
	if parsed.Text == "" {
		parsed.Text = completion.Text
	}

	reply := Reply{
		Text:    parsed.Text,
		Outcome: OutcomeAnswered,
		Parsed:  &parsed,
		Metadata: map[string]any{
			"outcome":         OutcomeAnswered,
			"confidence":      parsed.ConfidencePercent,
			"needsSearch":     parsed.NeedsSearch,
			"recommendations": parsed.Recommendations,
			"tokensUsed":      tokens,
		},
	}

	if parsed.NeedsSearch {
		reply.Metadata["searchQuery"] = parsed.SearchQuery
		reply.SearchResults = a.search(ctx, log, parsed.SearchQuery, reply.Metadata)
	}
	return reply
}

func (a *Assistant) search(ctx context.Context, log *logrus.Entry, query string, meta map[string]any) []ScoredResult {
	if a.searcher == nil {
		meta["searchSkipped"] = "search not configured"
		return nil
	}
	if d := a.meter.CheckQuota(ctx, usage.APIGoogleSearch); !d.Allowed {
		log.WithField("reason", d.Reason).Warn("search quota exceeded")
		meta["searchSkipped"] = d.Reason
		return nil
	}

	results, err := a.searcher.Search(ctx, query, a.cfg.SearchResults)
	metrics.Get().VendorCalls.WithLabelValues("google_search", metrics.Result(err)).Inc()
	a.meter.RecordSearch(ctx, endpointSearch, 1)
	if err != nil {
		log.WithError(err).WithField("query", query).Warn("search vendor call failed")
		meta["searchSkipped"] = "search unavailable"
		return nil
	}
	return Rank(query, results, a.now())
}

func vendorFailure(cause error) Reply {
	return Reply{
		Text:     VendorErrorMessage,
		Outcome:  OutcomeVendorError,
		Metadata: map[string]any{"outcome": OutcomeVendorError},
		Err:      fmt.Errorf("%w: %w", common.ErrVendor, cause),
	}
}

func buildSystemPrompt(kbContext, language string) string {
	var b strings.Builder
	b.WriteString("You are a plant-care assistant for a cannabis cuttings and seedlings dispensary. ")
	b.WriteString("Diagnose plant problems from the customer's description and photos and give practical advice.\n\n")
	b.WriteString("Knowledge base:\n")
	b.WriteString(kbContext)
	b.WriteString("\n\nFormat your answer exactly as:\n")
	b.WriteString("RESPONSE: <diagnosis and advice>\n")
	b.WriteString("CONFIDENCE: <0-100>%\n")
	b.WriteString("RECOMMENDATIONS:\n- <short actionable item>\n")
	b.WriteString("If you are not confident, say so and state what to search for, e.g. \"search online for <topic>\".")
	if l := strings.TrimSpace(language); l != "" && !strings.EqualFold(l, "en") && !strings.EqualFold(l, "english") {
		fmt.Fprintf(&b, "\nReply in this language: %s.", l)
	}
	return b.String()
}

func userPrompt(turn Turn) string {
	msg := strings.TrimSpace(turn.Message)
	if msg == "" && len(turn.Images) > 0 {
		return "Please look at the attached photo of my plant and tell me what you see."
	}
	return msg
}

// estimateTokens approximates usage at four characters per token when the
// vendor does not report a count.
func estimateTokens(parts ...string) int64 {
	n := 0
	for _, p := range parts {
		n += len(p)
	}
	return int64(n/4 + 1)
}

package chat

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/suPer8Hu/dispensary/internal/ai"
	"github.com/suPer8Hu/dispensary/internal/common"
	"github.com/suPer8Hu/dispensary/internal/metrics"
	"github.com/suPer8Hu/dispensary/internal/notify"
	"github.com/suPer8Hu/dispensary/internal/responder"
)

// Turn states, logged as the "state" field.
const (
	stateReceived           = "received"
	stateLogged             = "logged"
	stateQuotaChecked       = "quota_checked"
	stateGeneratingResponse = "generating_response"
	stateQuotaExceeded      = "quota_exceeded"
	stateFallbackLogged     = "fallback_logged"
)

var errNoAssistant = errors.New("chat: ai assistant not configured")

// UploadedImage is an image already stored by the caller.
type UploadedImage struct {
	URL      string
	Path     string
	MIMEType string
	Data     []byte
}

type AITurnInput struct {
	SessionID string
	Message   string
	Language  string
	Images    []UploadedImage
}

type AITurnResult struct {
	CustomerMessage *Message
	ReplyMessage    *Message
	Reply           responder.Reply
}

// HandleAITurn logs the customer's message, asks the assistant for a reply
// and logs that reply. Quota and vendor failures still produce a logged reply.
func (s *Service) HandleAITurn(ctx context.Context, in AITurnInput) (*AITurnResult, error) {
	if s.assistant == nil {
		return nil, errNoAssistant
	}
	log := s.logger.WithField("session_id", in.SessionID)
	log.WithField("state", stateReceived).Debug("chat turn")

	text := strings.TrimSpace(in.Message)
	if text == "" && len(in.Images) == 0 {
		return nil, common.Invalid("message or image required")
	}

	customer, err := s.AppendMessage(ctx, customerInput(in.SessionID, text, in.Language, in.Images))
	if err != nil {
		return nil, err
	}
	log.WithField("state", stateLogged).Debug("chat turn")

	history, err := s.historyBefore(ctx, in.SessionID, customer.ID)
	if err != nil {
		return nil, err
	}

	images := make([]ai.Image, 0, len(in.Images))
	for _, img := range in.Images {
		images = append(images, ai.Image{MIMEType: img.MIMEType, Data: img.Data})
	}

	reply := s.assistant.Reply(ctx, responder.Turn{
		SessionID: in.SessionID,
		Message:   text,
		Language:  in.Language,
		History:   history,
		Images:    images,
	})
	log.WithField("state", stateQuotaChecked).Debug("chat turn")

	final := stateLogged
	if reply.Outcome == responder.OutcomeQuotaExceeded {
		log.WithField("state", stateQuotaExceeded).Debug("chat turn")
		final = stateFallbackLogged
	} else {
		log.WithField("state", stateGeneratingResponse).Debug("chat turn")
	}

	meta := map[string]any{}
	for k, v := range reply.Metadata {
		meta[k] = v
	}
	if len(reply.SearchResults) > 0 {
		meta["searchResults"] = reply.SearchResults
	}

	aiMsg, err := s.AppendMessage(ctx, AppendInput{
		SessionID:   in.SessionID,
		Content:     reply.Text,
		Sender:      SenderAI,
		MessageType: MessageText,
		Metadata:    meta,
	})
	if err != nil {
		return nil, err
	}
	entry := log.WithFields(logrus.Fields{"state": final, "outcome": reply.Outcome})
	if reply.Err != nil {
		entry = entry.WithError(reply.Err)
	}
	entry.Debug("chat turn")
	metrics.Get().ChatTurns.WithLabelValues("ai", string(reply.Outcome)).Inc()

	return &AITurnResult{CustomerMessage: customer, ReplyMessage: aiMsg, Reply: reply}, nil
}

func customerInput(sessionID, text, language string, images []UploadedImage) AppendInput {
	in := AppendInput{
		SessionID:   sessionID,
		Content:     text,
		Sender:      SenderCustomer,
		MessageType: MessageText,
	}
	meta := map[string]any{}
	if language != "" {
		meta["language"] = language
	}
	if len(images) > 0 {
		in.MessageType = MessageImage
		url := images[0].URL
		in.ImageURL = &url
		urls := make([]string, 0, len(images))
		for _, img := range images {
			urls = append(urls, img.URL)
		}
		meta["imageUrls"] = urls
	}
	if len(meta) > 0 {
		in.Metadata = meta
	}
	return in
}

// historyBefore returns the context window that precedes message id, oldest first.
func (s *Service) historyBefore(ctx context.Context, sessionID string, id uint64) ([]ai.Message, error) {
	recent, err := s.recentHistory(ctx, sessionID, s.contextWindowSize+1)
	if err != nil {
		return nil, err
	}
	out := make([]ai.Message, 0, len(recent))
	for _, m := range recent {
		if m.ID == id || m.MessageType == MessageSystem || strings.TrimSpace(m.Content) == "" {
			continue
		}
		role := ai.RoleAssistant
		if m.Sender == SenderCustomer {
			role = ai.RoleUser
		}
		out = append(out, ai.Message{Role: role, Content: m.Content})
	}
	if len(out) > s.contextWindowSize {
		out = out[len(out)-s.contextWindowSize:]
	}
	return out, nil
}

type KeywordTurnResult struct {
	Response        string
	Rule            string
	CustomerMessage *Message
	ReplyMessage    *Message
}

// HandleKeywordTurn answers from the canned keyword rules. No vendor is called.
// When sessionID is empty nothing is logged.
func (s *Service) HandleKeywordTurn(ctx context.Context, sessionID, message string) (*KeywordTurnResult, error) {
	text := strings.TrimSpace(message)
	if text == "" {
		return nil, common.Invalid("message required")
	}
	rule, resp := s.keywords.Match(text)
	out := &KeywordTurnResult{Response: resp, Rule: rule}

	if sessionID != "" {
		customer, err := s.AppendMessage(ctx, AppendInput{SessionID: sessionID, Content: text, Sender: SenderCustomer})
		if err != nil {
			return nil, err
		}
		reply, err := s.AppendMessage(ctx, AppendInput{
			SessionID: sessionID,
			Content:   resp,
			Sender:    SenderAI,
			Metadata:  map[string]any{"mode": "keyword", "rule": rule},
		})
		if err != nil {
			return nil, err
		}
		out.CustomerMessage, out.ReplyMessage = customer, reply
	}
	metrics.Get().ChatTurns.WithLabelValues("keyword", rule).Inc()
	return out, nil
}

type AdminChannelInput struct {
	SessionID     string
	Message       string
	CustomerEmail string
	CustomerName  string
	Images        []UploadedImage
}

// HandleAdminChannelMessage logs a customer message addressed to staff and
// emails the admin inbox. There is no synchronous reply.
func (s *Service) HandleAdminChannelMessage(ctx context.Context, in AdminChannelInput) (*Message, error) {
	text := strings.TrimSpace(in.Message)
	if text == "" && len(in.Images) == 0 {
		return nil, common.Invalid("message or image required")
	}

	ci := customerInput(in.SessionID, text, "", in.Images)
	if in.CustomerEmail != "" || in.CustomerName != "" {
		if ci.Metadata == nil {
			ci.Metadata = map[string]any{}
		}
		if in.CustomerEmail != "" {
			ci.Metadata["customerEmail"] = in.CustomerEmail
		}
		if in.CustomerName != "" {
			ci.Metadata["customerName"] = in.CustomerName
		}
	}
	msg, err := s.AppendMessage(ctx, ci)
	if err != nil {
		return nil, err
	}

	s.notifyAdmin(ctx, notify.Notification{
		Kind: notify.KindAdminChatMessage,
		Fields: map[string]string{
			"sessionId":     in.SessionID,
			"message":       text,
			"customerEmail": in.CustomerEmail,
			"customerName":  in.CustomerName,
			"imageCount":    countOrEmpty(len(in.Images)),
		},
	})
	return msg, nil
}

// PostAdminReply appends a staff reply to the session.
func (s *Service) PostAdminReply(ctx context.Context, sessionID, adminID, content string) (*Message, error) {
	text := strings.TrimSpace(content)
	if text == "" {
		return nil, common.Invalid("message required")
	}
	return s.AppendMessage(ctx, AppendInput{
		SessionID: sessionID,
		Content:   text,
		Sender:    SenderAdmin,
		Metadata:  map[string]any{"adminId": adminID},
	})
}

// notifyAdmin never fails the caller; delivery problems are only logged.
func (s *Service) notifyAdmin(ctx context.Context, n notify.Notification) {
	if s.adminEmail == "" {
		s.logger.WithField("kind", n.Kind).Warn("admin notify email not configured, skipping notification")
		return
	}
	n.To = s.adminEmail
	if err := s.notifier.Notify(ctx, n); err != nil {
		s.logger.WithError(err).WithField("kind", n.Kind).Error("admin notification failed")
	}
}

func countOrEmpty(n int) string {
	if n == 0 {
		return ""
	}
	return strconv.Itoa(n)
}

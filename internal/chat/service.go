package chat

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"
	"github.com/suPer8Hu/dispensary/internal/common"
	"github.com/suPer8Hu/dispensary/internal/notify"
	"github.com/suPer8Hu/dispensary/internal/responder"
	"gorm.io/datatypes"
)

// AIResponder produces the AI-assisted reply for one customer turn.
type AIResponder interface {
	Reply(ctx context.Context, turn responder.Turn) responder.Reply
}

// Service is the session manager and message log for customer chats.
type Service struct {
	repo     *Repo
	logger   *logrus.Logger
	validate *validator.Validate

	assistant         AIResponder
	keywords          *responder.KeywordResponder
	notifier          notify.Notifier
	adminEmail        string
	contextWindowSize int

	// rejectEnded turns the advisory "ended" status into a hard gate.
	rejectEnded bool
}

type Option func(*Service)

// WithEndedSessionGate makes appends and claims on ended sessions fail.
func WithEndedSessionGate(enabled bool) Option {
	return func(s *Service) { s.rejectEnded = enabled }
}

func WithAssistant(a AIResponder) Option {
	return func(s *Service) { s.assistant = a }
}

func WithKeywordResponder(k *responder.KeywordResponder) Option {
	return func(s *Service) { s.keywords = k }
}

// WithNotifier sets where admin notifications go and who receives them.
func WithNotifier(n notify.Notifier, adminEmail string) Option {
	return func(s *Service) {
		s.notifier = n
		s.adminEmail = adminEmail
	}
}

func WithContextWindow(n int) Option {
	return func(s *Service) { s.contextWindowSize = n }
}

func NewService(repo *Repo, logger *logrus.Logger, opts ...Option) *Service {
	if logger == nil {
		logger = logrus.New()
	}
	s := &Service{
		repo:              repo,
		logger:            logger,
		validate:          validator.New(validator.WithRequiredStructEnabled()),
		keywords:          responder.NewKeywordResponder(nil),
		notifier:          notify.Discard{Logger: logger},
		contextWindowSize: 20,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

func (s *Service) CreateSession(ctx context.Context, chatType ChatType, customerID *string) (*Session, error) {
	if !chatType.Valid() {
		return nil, common.Invalid("chatType must be %q or %q", ChatTypeAI, ChatTypeAdmin)
	}

	sid, err := common.NewULID()
	if err != nil {
		return nil, err
	}

	session := &Session{
		ID:         sid,
		ChatType:   chatType,
		Status:     StatusActive,
		CustomerID: customerID,
	}
	if err := s.repo.CreateSession(ctx, session); err != nil {
		return nil, err
	}
	s.logger.WithFields(logrus.Fields{"session_id": sid, "chat_type": chatType}).Info("chat session created")
	return session, nil
}

func (s *Service) GetSession(ctx context.Context, id string) (*Session, error) {
	return s.repo.GetSession(ctx, id)
}

func (s *Service) ListSessions(ctx context.Context, status SessionStatus, limit int) ([]Session, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	return s.repo.ListSessions(ctx, status, limit)
}

// ClaimForAdmin hands the session to a human admin. A second admin claiming
// the same session overwrites the first.
func (s *Service) ClaimForAdmin(ctx context.Context, id, adminID string) (*Session, error) {
	adminID = strings.TrimSpace(adminID)
	if adminID == "" {
		return nil, common.Invalid("adminId required")
	}
	sess, err := s.repo.GetSession(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.checkOpen(sess); err != nil {
		return nil, err
	}
	if sess.Status == StatusAdminActive && sess.AdminID != nil && *sess.AdminID == adminID {
		return sess, nil
	}
	if sess.Status == StatusAdminActive && sess.AdminID != nil {
		s.logger.WithFields(logrus.Fields{
			"session_id": id,
			"from_admin": *sess.AdminID,
			"to_admin":   adminID,
		}).Warn("session re-claimed by another admin")
	}

	if err := s.repo.UpdateSessionFields(ctx, id, map[string]any{
		"status":   StatusAdminActive,
		"admin_id": adminID,
	}); err != nil {
		return nil, err
	}
	return s.repo.GetSession(ctx, id)
}

func (s *Service) EndSession(ctx context.Context, id string) (*Session, error) {
	if err := s.repo.UpdateSessionFields(ctx, id, map[string]any{"status": StatusEnded}); err != nil {
		return nil, err
	}
	return s.repo.GetSession(ctx, id)
}

// OpenSession loads a session that still accepts new messages.
func (s *Service) OpenSession(ctx context.Context, id string) (*Session, error) {
	sess, err := s.repo.GetSession(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.checkOpen(sess); err != nil {
		return nil, err
	}
	return sess, nil
}

func (s *Service) checkOpen(sess *Session) error {
	if s.rejectEnded && sess.Status == StatusEnded {
		return fmt.Errorf("%w: session %s has ended", common.ErrConflict, sess.ID)
	}
	return nil
}

type AppendInput struct {
	SessionID   string
	Content     string
	Sender      Sender
	MessageType MessageType
	ImageURL    *string
	Metadata    map[string]any
}

// AppendMessage stores one message after checking that the session exists.
func (s *Service) AppendMessage(ctx context.Context, in AppendInput) (*Message, error) {
	if !in.Sender.Valid() {
		return nil, common.Invalid("invalid sender %q", in.Sender)
	}
	if in.MessageType == "" {
		in.MessageType = MessageText
	}
	if !in.MessageType.Valid() {
		return nil, common.Invalid("invalid messageType %q", in.MessageType)
	}

	sess, err := s.repo.GetSession(ctx, in.SessionID)
	if err != nil {
		return nil, err
	}
	if err := s.checkOpen(sess); err != nil {
		return nil, err
	}

	msg := &Message{
		SessionID:   in.SessionID,
		Content:     in.Content,
		Sender:      in.Sender,
		MessageType: in.MessageType,
		ImageURL:    in.ImageURL,
	}
	if len(in.Metadata) > 0 {
		b, err := json.Marshal(in.Metadata)
		if err != nil {
			return nil, fmt.Errorf("marshal message metadata: %w", err)
		}
		msg.Metadata = datatypes.JSON(b)
	}

	if err := s.repo.InsertMessage(ctx, msg); err != nil {
		return nil, err
	}
	if err := s.repo.TouchSession(ctx, in.SessionID); err != nil {
		s.logger.WithError(err).WithField("session_id", in.SessionID).Warn("failed to touch session")
	}
	return msg, nil
}

// ListMessages is a point-in-time snapshot of the session log, oldest first.
func (s *Service) ListMessages(ctx context.Context, sessionID string) ([]Message, error) {
	if _, err := s.repo.GetSession(ctx, sessionID); err != nil {
		return nil, err
	}
	return s.repo.ListMessages(ctx, sessionID)
}

// recentHistory returns up to limit messages, oldest first.
func (s *Service) recentHistory(ctx context.Context, sessionID string, limit int) ([]Message, error) {
	recentDesc, err := s.repo.ListRecentMessagesDesc(ctx, sessionID, limit)
	if err != nil {
		return nil, err
	}
	out := make([]Message, 0, len(recentDesc))
	for i := len(recentDesc) - 1; i >= 0; i-- {
		out = append(out, recentDesc[i])
	}
	return out, nil
}

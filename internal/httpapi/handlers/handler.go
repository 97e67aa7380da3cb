package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/suPer8Hu/dispensary/internal/ai"
	"github.com/suPer8Hu/dispensary/internal/auth"
	"github.com/suPer8Hu/dispensary/internal/chat"
	"github.com/suPer8Hu/dispensary/internal/common"
	"github.com/suPer8Hu/dispensary/internal/config"
	"github.com/suPer8Hu/dispensary/internal/knowledge"
	"github.com/suPer8Hu/dispensary/internal/notify"
	"github.com/suPer8Hu/dispensary/internal/responder"
	"github.com/suPer8Hu/dispensary/internal/search"
	"github.com/suPer8Hu/dispensary/internal/storage"
	"github.com/suPer8Hu/dispensary/internal/usage"
	"gorm.io/gorm"
)

type Handler struct {
	Cfg       config.Config
	Logger    *logrus.Logger
	ChatSvc   *chat.Service
	Ledger    *usage.Ledger
	Knowledge *knowledge.Service
	Auth      *auth.Service
	Images    *storage.ImageStore
}

// Deps are the process-level collaborators. Registry, Searcher and Notifier
// may be nil: the defaults from Cfg are used, search is disabled and
// notifications are dropped.
type Deps struct {
	DB       *gorm.DB
	Cfg      config.Config
	Logger   *logrus.Logger
	Registry *ai.Registry
	Searcher search.Searcher
	Notifier notify.Notifier
	Images   *storage.ImageStore
}

func NewHandler(d Deps) (*Handler, error) {
	log := d.Logger
	if log == nil {
		log = logrus.New()
	}
	reg := d.Registry
	if reg == nil {
		reg = ai.NewDefaultRegistry(d.Cfg.AI)
	}
	notifier := d.Notifier
	if notifier == nil {
		notifier = notify.Discard{Logger: log}
	}
	images := d.Images
	if images == nil {
		var err error
		images, err = storage.NewImageStore(d.Cfg.Upload.Dir, d.Cfg.Upload.PublicPath, d.Cfg.Upload.MaxBytes)
		if err != nil {
			return nil, err
		}
	}

	ledger := usage.NewLedger(usage.NewGormStore(d.DB), d.Cfg.Quota, log)
	kb := knowledge.NewService(d.DB)
	assistant := responder.NewAssistant(reg, kb, d.Searcher, ledger, responder.AssistantConfig{
		Provider:      d.Cfg.AI.Provider,
		SearchResults: d.Cfg.Search.MaxResults,
	}, log)

	chatSvc := chat.NewService(chat.NewRepo(d.DB), log,
		chat.WithAssistant(assistant),
		chat.WithNotifier(notifier, d.Cfg.AdminNotifyEmail),
		chat.WithContextWindow(d.Cfg.AI.ContextWindowSize),
		chat.WithEndedSessionGate(d.Cfg.RejectEndedSessions),
	)

	return &Handler{
		Cfg:       d.Cfg,
		Logger:    log,
		ChatSvc:   chatSvc,
		Ledger:    ledger,
		Knowledge: kb,
		Auth:      auth.NewService(d.DB, d.Cfg.JWTSecret, d.Cfg.TokenTTL),
		Images:    images,
	}, nil
}

func (h *Handler) Ping(c *gin.Context) {
	common.OK(c, gin.H{"pong": true})
}

// fail maps service errors onto the response envelope.
func (h *Handler) fail(c *gin.Context, err error, action string) {
	switch {
	case errors.Is(err, common.ErrValidation):
		common.Fail(c, http.StatusBadRequest, 10002, err.Error())
	case errors.Is(err, common.ErrUnauthorized):
		common.Fail(c, http.StatusUnauthorized, 40101, "unauthorized")
	case errors.Is(err, common.ErrNotFound):
		common.Fail(c, http.StatusNotFound, 40004, err.Error())
	case errors.Is(err, common.ErrConflict):
		common.Fail(c, http.StatusConflict, 40901, err.Error())
	default:
		h.Logger.WithError(err).WithField("path", c.FullPath()).Error(action)
		common.Fail(c, http.StatusInternalServerError, 50001, action)
	}
}

func badJSON(c *gin.Context) {
	common.Fail(c, http.StatusBadRequest, 10001, "invalid json")
}

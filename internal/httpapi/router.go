package httpapi

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/suPer8Hu/dispensary/internal/common"
	"github.com/suPer8Hu/dispensary/internal/httpapi/handlers"
	"github.com/suPer8Hu/dispensary/internal/httpapi/middleware"
	"github.com/suPer8Hu/dispensary/internal/store/redisstore"
)

// NewRouter wires every route. rds may be nil; rate limit counters then
// live in process memory.
func NewRouter(h *handlers.Handler, rds *redisstore.Store) (*gin.Engine, error) {
	cfg := h.Cfg
	r := gin.New()
	r.HandleMethodNotAllowed = true
	r.Use(middleware.RequestID())
	r.Use(middleware.AccessLog(h.Logger))
	r.Use(middleware.Recovery(h.Logger))
	if origins := cfg.CORSAllowedOrigins; len(origins) > 0 {
		cc := cors.Config{
			AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
			AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", middleware.RequestIDHeader},
			ExposeHeaders:    []string{middleware.RequestIDHeader},
			AllowCredentials: true,
			MaxAge:           12 * time.Hour,
		}
		if len(origins) == 1 && origins[0] == "*" {
			cc.AllowAllOrigins = true
			cc.AllowCredentials = false
		} else {
			cc.AllowOrigins = origins
		}
		r.Use(cors.New(cc))
	}

	r.NoRoute(func(c *gin.Context) {
		common.Fail(c, http.StatusNotFound, 40400, "route not found")
	})
	r.NoMethod(func(c *gin.Context) {
		common.Fail(c, http.StatusMethodNotAllowed, 40500, "method not allowed")
	})

	r.GET("/ping", h.Ping)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.Static(h.Images.PublicPath(), h.Images.Dir())

	api := r.Group("/api")

	// public chat, rate limited per client ip
	chatGroup := api.Group("/chat")
	if cfg.RateLimitEnabled {
		var rdb *redis.Client
		if rds != nil {
			rdb = rds.Client()
		}
		limit, err := middleware.RateLimit(cfg.RateLimitRate, rdb, h.Logger)
		if err != nil {
			return nil, err
		}
		chatGroup.Use(limit)
	}
	chatGroup.POST("/sessions", h.CreateChatSession)
	chatGroup.GET("/sessions/:id", h.GetChatSession)
	chatGroup.GET("/sessions/:id/messages", h.ListChatMessages)
	chatGroup.POST("/sessions/:id/end", h.EndChatSession)
	chatGroup.POST("/message", h.SendKeywordMessage)
	chatGroup.POST("/ai/message", h.SendAIMessage)
	chatGroup.POST("/admin/message", h.SendAdminChannelMessage)
	chatGroup.POST("/special-order", h.SubmitSpecialOrder)

	api.POST("/admin/login", h.Login)

	admin := api.Group("/admin")
	admin.Use(middleware.AuthRequired(cfg.JWTSecret))
	admin.GET("/me", h.Me)
	admin.GET("/api-usage", h.APIUsage)

	admin.GET("/knowledge-base", h.ListKnowledge)
	admin.POST("/knowledge-base", h.CreateKnowledge)
	admin.GET("/knowledge-base/:id", h.GetKnowledge)
	admin.PUT("/knowledge-base/:id", h.UpdateKnowledge)
	admin.DELETE("/knowledge-base/:id", h.DeleteKnowledge)

	admin.GET("/chat/sessions", h.AdminListSessions)
	admin.GET("/chat/sessions/:id/messages", h.ListChatMessages)
	admin.POST("/chat/sessions/:id/claim", h.ClaimSession)
	admin.POST("/chat/sessions/:id/end", h.EndChatSession)
	admin.POST("/chat/sessions/:id/messages", h.AdminReply)

	admin.GET("/special-orders", h.ListSpecialOrders)
	admin.PUT("/special-orders/:id", h.UpdateSpecialOrder)

	return r, nil
}

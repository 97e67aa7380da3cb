package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/suPer8Hu/dispensary/internal/chat"
	"github.com/suPer8Hu/dispensary/internal/common"
	"github.com/suPer8Hu/dispensary/internal/httpapi/middleware"
)

type loginReq struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

func (h *Handler) Login(c *gin.Context) {
	var req loginReq
	if err := c.ShouldBindJSON(&req); err != nil {
		badJSON(c)
		return
	}
	token, admin, err := h.Auth.Login(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		h.fail(c, err, "login failed")
		return
	}
	common.OK(c, gin.H{"token": token, "admin": admin})
}

// Me echoes the caller's token claims.
func (h *Handler) Me(c *gin.Context) {
	claims := middleware.Claims(c)
	if claims == nil {
		common.Fail(c, http.StatusUnauthorized, 40101, "missing bearer token")
		return
	}
	out := gin.H{"id": claims.AdminID, "username": claims.Username, "role": claims.Role}
	if claims.ExpiresAt != nil {
		out["expiresAt"] = claims.ExpiresAt.Time
	}
	common.OK(c, out)
}

func (h *Handler) APIUsage(c *gin.Context) {
	sum, err := h.Ledger.Summary(c.Request.Context())
	if err != nil {
		h.fail(c, err, "failed to load api usage")
		return
	}
	common.OK(c, sum)
}

func (h *Handler) AdminListSessions(c *gin.Context) {
	status := chat.SessionStatus(c.Query("status"))
	switch status {
	case "", chat.StatusActive, chat.StatusAdminActive, chat.StatusEnded:
	default:
		common.Fail(c, http.StatusBadRequest, 10002, "status must be one of active, admin_active, ended")
		return
	}
	limit, _ := strconv.Atoi(c.Query("limit"))

	sessions, err := h.ChatSvc.ListSessions(c.Request.Context(), status, limit)
	if err != nil {
		h.fail(c, err, "failed to list sessions")
		return
	}
	common.OK(c, gin.H{"sessions": sessions})
}

func (h *Handler) ClaimSession(c *gin.Context) {
	sess, err := h.ChatSvc.ClaimForAdmin(c.Request.Context(), c.Param("id"), middleware.AdminID(c))
	if err != nil {
		h.fail(c, err, "failed to claim session")
		return
	}
	common.OK(c, sess)
}

type adminReplyReq struct {
	Message string `json:"message" binding:"required"`
}

func (h *Handler) AdminReply(c *gin.Context) {
	var req adminReplyReq
	if err := c.ShouldBindJSON(&req); err != nil {
		badJSON(c)
		return
	}
	msg, err := h.ChatSvc.PostAdminReply(c.Request.Context(), c.Param("id"), middleware.AdminID(c), req.Message)
	if err != nil {
		h.fail(c, err, "failed to send reply")
		return
	}
	common.Created(c, msg)
}

func (h *Handler) ListSpecialOrders(c *gin.Context) {
	status := chat.OrderStatus(c.Query("status"))
	if status != "" && !status.Valid() {
		common.Fail(c, http.StatusBadRequest, 10002, "status must be one of pending, confirmed, rejected, completed")
		return
	}
	orders, err := h.ChatSvc.ListSpecialOrders(c.Request.Context(), status)
	if err != nil {
		h.fail(c, err, "failed to list special orders")
		return
	}
	common.OK(c, gin.H{"orders": orders})
}

func (h *Handler) UpdateSpecialOrder(c *gin.Context) {
	var req chat.SpecialOrderUpdate
	if err := c.ShouldBindJSON(&req); err != nil {
		badJSON(c)
		return
	}
	order, err := h.ChatSvc.UpdateSpecialOrder(c.Request.Context(), c.Param("id"), middleware.AdminID(c), req)
	if err != nil {
		h.fail(c, err, "failed to update special order")
		return
	}
	common.OK(c, order)
}

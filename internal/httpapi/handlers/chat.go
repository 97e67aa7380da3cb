package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/suPer8Hu/dispensary/internal/chat"
	"github.com/suPer8Hu/dispensary/internal/common"
)

type createSessionReq struct {
	ChatType   chat.ChatType `json:"chatType" binding:"required"`
	CustomerID *string       `json:"customerId"`
}

func (h *Handler) CreateChatSession(c *gin.Context) {
	var req createSessionReq
	if err := c.ShouldBindJSON(&req); err != nil {
		badJSON(c)
		return
	}
	sess, err := h.ChatSvc.CreateSession(c.Request.Context(), req.ChatType, req.CustomerID)
	if err != nil {
		h.fail(c, err, "failed to create session")
		return
	}
	common.Created(c, gin.H{"sessionId": sess.ID, "session": sess})
}

func (h *Handler) GetChatSession(c *gin.Context) {
	sess, err := h.ChatSvc.GetSession(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err, "failed to load session")
		return
	}
	common.OK(c, sess)
}

func (h *Handler) ListChatMessages(c *gin.Context) {
	msgs, err := h.ChatSvc.ListMessages(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err, "failed to list messages")
		return
	}
	common.OK(c, gin.H{"messages": msgs})
}

func (h *Handler) EndChatSession(c *gin.Context) {
	sess, err := h.ChatSvc.EndSession(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err, "failed to end session")
		return
	}
	common.OK(c, sess)
}

type keywordMessageReq struct {
	SessionID string `json:"sessionId"`
	Message   string `json:"message" binding:"required"`
}

// SendKeywordMessage answers from the canned rules without calling a vendor.
func (h *Handler) SendKeywordMessage(c *gin.Context) {
	var req keywordMessageReq
	if err := c.ShouldBindJSON(&req); err != nil {
		badJSON(c)
		return
	}
	res, err := h.ChatSvc.HandleKeywordTurn(c.Request.Context(), req.SessionID, req.Message)
	if err != nil {
		h.fail(c, err, "failed to send message")
		return
	}
	common.OK(c, gin.H{"response": res.Response})
}

type aiMessageReq struct {
	SessionID string `form:"sessionId" json:"sessionId" binding:"required"`
	Message   string `form:"message" json:"message"`
	Language  string `form:"language" json:"language"`
}

func (h *Handler) SendAIMessage(c *gin.Context) {
	var req aiMessageReq
	if err := c.ShouldBind(&req); err != nil {
		common.Fail(c, http.StatusBadRequest, 10002, "sessionId required")
		return
	}
	ctx := c.Request.Context()
	if _, err := h.ChatSvc.OpenSession(ctx, req.SessionID); err != nil {
		h.fail(c, err, "failed to load session")
		return
	}
	images, err := h.saveImages(c)
	if err != nil {
		h.fail(c, err, "failed to store images")
		return
	}

	res, err := h.ChatSvc.HandleAITurn(ctx, chat.AITurnInput{
		SessionID: req.SessionID,
		Message:   req.Message,
		Language:  req.Language,
		Images:    images,
	})
	if err != nil {
		if rejectedBeforeWrite(err) {
			h.discardImages(images)
		}
		h.fail(c, err, "failed to process message")
		return
	}

	out := gin.H{
		"sessionId":  req.SessionID,
		"messageId":  res.ReplyMessage.ID,
		"aiResponse": res.Reply.Text,
		"outcome":    res.Reply.Outcome,
		"metadata":   res.Reply.Metadata,
	}
	if len(res.Reply.SearchResults) > 0 {
		out["searchResults"] = res.Reply.SearchResults
	}
	common.OK(c, out)
}

type adminChannelReq struct {
	SessionID     string `form:"sessionId" json:"sessionId" binding:"required"`
	Message       string `form:"message" json:"message"`
	CustomerEmail string `form:"customerEmail" json:"customerEmail"`
	CustomerName  string `form:"customerName" json:"customerName"`
}

// SendAdminChannelMessage stores a message for staff and emails the admin inbox.
func (h *Handler) SendAdminChannelMessage(c *gin.Context) {
	var req adminChannelReq
	if err := c.ShouldBind(&req); err != nil {
		common.Fail(c, http.StatusBadRequest, 10002, "sessionId required")
		return
	}
	ctx := c.Request.Context()
	if _, err := h.ChatSvc.OpenSession(ctx, req.SessionID); err != nil {
		h.fail(c, err, "failed to load session")
		return
	}
	images, err := h.saveImages(c)
	if err != nil {
		h.fail(c, err, "failed to store images")
		return
	}
	msg, err := h.ChatSvc.HandleAdminChannelMessage(ctx, chat.AdminChannelInput{
		SessionID:     req.SessionID,
		Message:       req.Message,
		CustomerEmail: req.CustomerEmail,
		CustomerName:  req.CustomerName,
		Images:        images,
	})
	if err != nil {
		if rejectedBeforeWrite(err) {
			h.discardImages(images)
		}
		h.fail(c, err, "failed to send message")
		return
	}
	common.OK(c, gin.H{"message": "sent", "messageId": msg.ID})
}

type specialOrderReq struct {
	SessionID *string                `json:"sessionId"`
	OrderData chat.SpecialOrderInput `json:"orderData"`
}

func (h *Handler) SubmitSpecialOrder(c *gin.Context) {
	var req specialOrderReq
	if err := c.ShouldBindJSON(&req); err != nil {
		badJSON(c)
		return
	}
	in := req.OrderData
	if req.SessionID != nil {
		in.SessionID = req.SessionID
	}
	order, err := h.ChatSvc.SubmitSpecialOrder(c.Request.Context(), in)
	if err != nil {
		h.fail(c, err, "failed to submit special order")
		return
	}
	common.Created(c, gin.H{
		"message": "Special order request submitted successfully",
		"orderId": order.ID,
		"status":  order.Status,
	})
}

// saveImages stores the "images" parts of a multipart request. Nothing is
// left on disk when any part is rejected.
func (h *Handler) saveImages(c *gin.Context) ([]chat.UploadedImage, error) {
	if c.ContentType() != binding.MIMEMultipartPOSTForm {
		return nil, nil
	}
	form, err := c.MultipartForm()
	if err != nil {
		return nil, common.Invalid("invalid multipart form")
	}
	files := form.File["images"]
	if len(files) == 0 {
		files = form.File["images[]"]
	}
	if limit := h.Cfg.Upload.MaxFiles; limit > 0 && len(files) > limit {
		return nil, common.Invalid("at most %d images per message", limit)
	}

	out := make([]chat.UploadedImage, 0, len(files))
	for _, fh := range files {
		f, err := fh.Open()
		if err != nil {
			h.discardImages(out)
			return nil, common.Invalid("unreadable image %s", fh.Filename)
		}
		img, err := h.Images.Save(f)
		_ = f.Close()
		if err != nil {
			h.discardImages(out)
			return nil, err
		}
		out = append(out, chat.UploadedImage{URL: img.URL, Path: img.Path, MIMEType: img.MIMEType, Data: img.Data})
	}
	return out, nil
}

func (h *Handler) discardImages(images []chat.UploadedImage) {
	for _, img := range images {
		if err := h.Images.Remove(img.Path); err != nil {
			h.Logger.WithError(err).WithField("path", img.Path).Warn("failed to remove orphaned upload")
		}
	}
}

// rejectedBeforeWrite reports errors raised before the customer message was
// stored. Later failures keep the files since the message points at them.
func rejectedBeforeWrite(err error) bool {
	return errors.Is(err, common.ErrValidation) ||
		errors.Is(err, common.ErrNotFound) ||
		errors.Is(err, common.ErrConflict)
}

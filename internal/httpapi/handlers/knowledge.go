package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/suPer8Hu/dispensary/internal/common"
	"github.com/suPer8Hu/dispensary/internal/knowledge"
)

func entryID(c *gin.Context) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		common.Fail(c, http.StatusBadRequest, 10003, "invalid id")
		return 0, false
	}
	return id, true
}

func (h *Handler) ListKnowledge(c *gin.Context) {
	activeOnly := c.Query("active") == "true"
	entries, err := h.Knowledge.List(c.Request.Context(), activeOnly)
	if err != nil {
		h.fail(c, err, "failed to list knowledge base")
		return
	}
	common.OK(c, gin.H{"entries": entries})
}

func (h *Handler) GetKnowledge(c *gin.Context) {
	id, ok := entryID(c)
	if !ok {
		return
	}
	e, err := h.Knowledge.Get(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err, "failed to load knowledge base entry")
		return
	}
	common.OK(c, e)
}

func (h *Handler) CreateKnowledge(c *gin.Context) {
	var in knowledge.Input
	if err := c.ShouldBindJSON(&in); err != nil {
		badJSON(c)
		return
	}
	e, err := h.Knowledge.Create(c.Request.Context(), in)
	if err != nil {
		h.fail(c, err, "failed to create knowledge base entry")
		return
	}
	common.Created(c, e)
}

func (h *Handler) UpdateKnowledge(c *gin.Context) {
	id, ok := entryID(c)
	if !ok {
		return
	}
	var in knowledge.Input
	if err := c.ShouldBindJSON(&in); err != nil {
		badJSON(c)
		return
	}
	e, err := h.Knowledge.Update(c.Request.Context(), id, in)
	if err != nil {
		h.fail(c, err, "failed to update knowledge base entry")
		return
	}
	common.OK(c, e)
}

func (h *Handler) DeleteKnowledge(c *gin.Context) {
	id, ok := entryID(c)
	if !ok {
		return
	}
	if err := h.Knowledge.Delete(c.Request.Context(), id); err != nil {
		h.fail(c, err, "failed to delete knowledge base entry")
		return
	}
	common.OK(c, gin.H{"deleted": id})
}

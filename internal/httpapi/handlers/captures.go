package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/restlab/study-backend/internal/capture"
	"github.com/restlab/study-backend/internal/common"
	"gorm.io/gorm"
)

type createCaptureReq struct {
	SessionID       string  `json:"session_id" binding:"required"`
	Title           string  `json:"title"`
	Content         string  `json:"content" binding:"required"`
	SourceMessageID *uint64 `json:"source_message_id"`
}

type updateCaptureReq struct {
	Title           *string `json:"title"`
	Content         *string `json:"content"`
	SourceMessageID *uint64 `json:"source_message_id"`
}

func failCapture(c *gin.Context, err error) {
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		common.Fail(c, http.StatusNotFound, 40404, "not found")
	case errors.Is(err, capture.ErrContentRequired):
		common.Fail(c, http.StatusBadRequest, 10010, "content is required")
	case errors.Is(err, capture.ErrTitleTooLong):
		common.Fail(c, http.StatusBadRequest, 10011, "title too long")
	case errors.Is(err, capture.ErrBadSourceMessage):
		common.Fail(c, http.StatusBadRequest, 10012, "source message not in session")
	default:
		common.Fail(c, http.StatusInternalServerError, 50005, "internal error")
	}
}

func idParam(c *gin.Context, name string) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		common.Fail(c, http.StatusBadRequest, 10004, "invalid id")
		return 0, false
	}
	return id, true
}

func (h *Handler) ListPrompts(c *gin.Context) {
	uid, okk := userIDFromContext(c)
	if !okk {
		common.Fail(c, http.StatusUnauthorized, 40101, "unauthorized")
		return
	}

	prompts, err := h.CaptureSvc.ListPrompts(c.Request.Context(), uid, c.Param("session_id"))
	if err != nil {
		failCapture(c, err)
		return
	}
	common.OK(c, gin.H{"prompts": prompts})
}

func (h *Handler) CreatePrompt(c *gin.Context) {
	uid, okk := userIDFromContext(c)
	if !okk {
		common.Fail(c, http.StatusUnauthorized, 40101, "unauthorized")
		return
	}

	var req createCaptureReq
	if err := c.ShouldBindJSON(&req); err != nil {
		common.Fail(c, http.StatusBadRequest, 10001, "invalid json")
		return
	}

	p, err := h.CaptureSvc.CreatePrompt(c.Request.Context(), uid, req.SessionID, capture.Input{
		Title:           req.Title,
		Content:         req.Content,
		SourceMessageID: req.SourceMessageID,
	})
	if err != nil {
		failCapture(c, err)
		return
	}
	common.OK(c, gin.H{"prompt": p})
}

func (h *Handler) UpdatePrompt(c *gin.Context) {
	uid, okk := userIDFromContext(c)
	if !okk {
		common.Fail(c, http.StatusUnauthorized, 40101, "unauthorized")
		return
	}
	id, ok := idParam(c, "prompt_id")
	if !ok {
		return
	}

	var req updateCaptureReq
	if err := c.ShouldBindJSON(&req); err != nil {
		common.Fail(c, http.StatusBadRequest, 10001, "invalid json")
		return
	}

	p, err := h.CaptureSvc.UpdatePrompt(c.Request.Context(), uid, id, req.Content, req.Title, req.SourceMessageID)
	if err != nil {
		failCapture(c, err)
		return
	}
	common.OK(c, gin.H{"prompt": p})
}

func (h *Handler) DeletePrompt(c *gin.Context) {
	uid, okk := userIDFromContext(c)
	if !okk {
		common.Fail(c, http.StatusUnauthorized, 40101, "unauthorized")
		return
	}
	id, ok := idParam(c, "prompt_id")
	if !ok {
		return
	}

	if err := h.CaptureSvc.DeletePrompt(c.Request.Context(), uid, id); err != nil {
		failCapture(c, err)
		return
	}
	common.OK(c, gin.H{"deleted": id})
}

func (h *Handler) ListConcepts(c *gin.Context) {
	uid, okk := userIDFromContext(c)
	if !okk {
		common.Fail(c, http.StatusUnauthorized, 40101, "unauthorized")
		return
	}

	concepts, err := h.CaptureSvc.ListConcepts(c.Request.Context(), uid, c.Param("session_id"))
	if err != nil {
		failCapture(c, err)
		return
	}
	common.OK(c, gin.H{"concepts": concepts})
}

func (h *Handler) CreateConcept(c *gin.Context) {
	uid, okk := userIDFromContext(c)
	if !okk {
		common.Fail(c, http.StatusUnauthorized, 40101, "unauthorized")
		return
	}

	var req createCaptureReq
	if err := c.ShouldBindJSON(&req); err != nil {
		common.Fail(c, http.StatusBadRequest, 10001, "invalid json")
		return
	}

	concept, err := h.CaptureSvc.CreateConcept(c.Request.Context(), uid, req.SessionID, capture.Input{
		Title:           req.Title,
		Content:         req.Content,
		SourceMessageID: req.SourceMessageID,
	})
	if err != nil {
		failCapture(c, err)
		return
	}
	common.OK(c, gin.H{"concept": concept})
}

func (h *Handler) UpdateConcept(c *gin.Context) {
	uid, okk := userIDFromContext(c)
	if !okk {
		common.Fail(c, http.StatusUnauthorized, 40101, "unauthorized")
		return
	}
	id, ok := idParam(c, "concept_id")
	if !ok {
		return
	}

	var req updateCaptureReq
	if err := c.ShouldBindJSON(&req); err != nil {
		common.Fail(c, http.StatusBadRequest, 10001, "invalid json")
		return
	}

	concept, err := h.CaptureSvc.UpdateConcept(c.Request.Context(), uid, id, req.Content, req.Title, req.SourceMessageID)
	if err != nil {
		failCapture(c, err)
		return
	}
	common.OK(c, gin.H{"concept": concept})
}

func (h *Handler) DeleteConcept(c *gin.Context) {
	uid, okk := userIDFromContext(c)
	if !okk {
		common.Fail(c, http.StatusUnauthorized, 40101, "unauthorized")
		return
	}
	id, ok := idParam(c, "concept_id")
	if !ok {
		return
	}

	if err := h.CaptureSvc.DeleteConcept(c.Request.Context(), uid, id); err != nil {
		failCapture(c, err)
		return
	}
	common.OK(c, gin.H{"deleted": id})
}

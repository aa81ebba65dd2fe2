package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/restlab/study-backend/internal/common"
	"github.com/restlab/study-backend/internal/survey"
	"gorm.io/gorm"
)

type submitQuestionnaireReq struct {
	SessionID         string          `json:"session_id"`
	QuestionnaireType string          `json:"questionnaire_type" binding:"required"`
	Responses         json.RawMessage `json:"responses" binding:"required"`
}

func (h *Handler) SubmitQuestionnaire(c *gin.Context) {
	uid, okk := userIDFromContext(c)
	if !okk {
		common.Fail(c, http.StatusUnauthorized, 40101, "unauthorized")
		return
	}

	var req submitQuestionnaireReq
	if err := c.ShouldBindJSON(&req); err != nil {
		common.Fail(c, http.StatusBadRequest, 10001, "invalid json")
		return
	}

	resp, err := h.SurveySvc.Submit(c.Request.Context(), uid, req.SessionID, req.QuestionnaireType, req.Responses)
	if err != nil {
		switch {
		case errors.Is(err, survey.ErrInvalidType):
			common.Fail(c, http.StatusBadRequest, 10020, "invalid questionnaire type")
		case errors.Is(err, survey.ErrSessionRequired):
			common.Fail(c, http.StatusBadRequest, 10021, "session_id required for post-activity")
		case errors.Is(err, survey.ErrBadResponses):
			common.Fail(c, http.StatusBadRequest, 10022, "responses must be a JSON object")
		case errors.Is(err, gorm.ErrRecordNotFound):
			common.Fail(c, http.StatusNotFound, 40404, "session not found")
		default:
			common.Fail(c, http.StatusInternalServerError, 50008, "failed to store response")
		}
		return
	}
	common.OK(c, gin.H{"response": resp})
}

// ListQuestionnaires filters by questionnaire_type and session_id query params.
func (h *Handler) ListQuestionnaires(c *gin.Context) {
	uid, okk := userIDFromContext(c)
	if !okk {
		common.Fail(c, http.StatusUnauthorized, 40101, "unauthorized")
		return
	}

	out, err := h.SurveySvc.ListByUser(c.Request.Context(), uid, c.Query("questionnaire_type"), c.Query("session_id"))
	if err != nil {
		common.Fail(c, http.StatusInternalServerError, 50001, "internal error")
		return
	}
	common.OK(c, gin.H{"responses": out})
}

func (h *Handler) GetQuestionnaire(c *gin.Context) {
	uid, okk := userIDFromContext(c)
	if !okk {
		common.Fail(c, http.StatusUnauthorized, 40101, "unauthorized")
		return
	}
	id, ok := idParam(c, "response_id")
	if !ok {
		return
	}

	resp, err := h.SurveySvc.GetForUser(c.Request.Context(), uid, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			common.Fail(c, http.StatusNotFound, 40404, "response not found")
			return
		}
		common.Fail(c, http.StatusInternalServerError, 50001, "internal error")
		return
	}
	common.OK(c, gin.H{"response": resp})
}

// CheckQuestionnaireCompletion reports whether the given questionnaire was
// already submitted.
func (h *Handler) CheckQuestionnaireCompletion(c *gin.Context) {
	uid, okk := userIDFromContext(c)
	if !okk {
		common.Fail(c, http.StatusUnauthorized, 40101, "unauthorized")
		return
	}

	done, id, err := h.SurveySvc.CheckCompletion(c.Request.Context(), uid, c.Query("questionnaire_type"), c.Query("session_id"))
	if err != nil {
		if errors.Is(err, survey.ErrInvalidType) {
			common.Fail(c, http.StatusBadRequest, 10020, "invalid questionnaire type")
			return
		}
		common.Fail(c, http.StatusInternalServerError, 50001, "internal error")
		return
	}

	payload := gin.H{"completed": done}
	if done {
		payload["response_id"] = id
	}
	common.OK(c, payload)
}

// StudyStatus summarizes the caller's progress through the study.
func (h *Handler) StudyStatus(c *gin.Context) {
	uid, okk := userIDFromContext(c)
	if !okk {
		common.Fail(c, http.StatusUnauthorized, 40101, "unauthorized")
		return
	}

	st, err := h.SurveySvc.StudyStatus(c.Request.Context(), uid)
	if err != nil {
		common.Fail(c, http.StatusInternalServerError, 50001, "internal error")
		return
	}
	common.OK(c, st)
}

package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/restlab/study-backend/internal/capture"
	"github.com/restlab/study-backend/internal/chat"
	"github.com/restlab/study-backend/internal/common"
	"github.com/restlab/study-backend/internal/imagegen"
	"github.com/restlab/study-backend/internal/logging"
	"github.com/restlab/study-backend/internal/models"
	"github.com/restlab/study-backend/internal/moodboard"
	"github.com/restlab/study-backend/internal/survey"
)

const statsCacheTTL = 30 * time.Second

type sessionExport struct {
	chat.Session
	Messages []chat.Message            `json:"messages"`
	Prompts  []capture.Prompt          `json:"prompts"`
	Concepts []capture.Concept         `json:"concepts"`
	Images   []imagegen.GeneratedImage `json:"generated_images"`
}

type userExport struct {
	models.User
	Sessions       []sessionExport   `json:"sessions"`
	Moodboard      []moodboard.Image `json:"moodboard_images"`
	Questionnaires []survey.Response `json:"questionnaire_responses"`
}

// ExportData dumps the entire study dataset as nested JSON. Message history is
// complete, including turns excluded from context by resets.
func (h *Handler) ExportData(c *gin.Context) {
	ctx := c.Request.Context()
	db := h.DB.WithContext(ctx)

	var users []models.User
	if err := db.Order("id ASC").Find(&users).Error; err != nil {
		common.Fail(c, http.StatusInternalServerError, 20001, "db error")
		return
	}

	var totalSessions, totalMessages int
	out := make([]userExport, 0, len(users))
	for _, u := range users {
		ue := userExport{User: u}

		var sessions []chat.Session
		if err := db.Where("user_id = ?", u.ID).Order("created_at ASC").Find(&sessions).Error; err != nil {
			common.Fail(c, http.StatusInternalServerError, 20001, "db error")
			return
		}
		for _, s := range sessions {
			se := sessionExport{Session: s}
			if err := db.Where("session_id = ?", s.SessionID).Order("timestamp ASC, id ASC").Find(&se.Messages).Error; err != nil {
				common.Fail(c, http.StatusInternalServerError, 20001, "db error")
				return
			}
			if err := db.Where("session_id = ?", s.SessionID).Order("created_at ASC").Find(&se.Prompts).Error; err != nil {
				common.Fail(c, http.StatusInternalServerError, 20001, "db error")
				return
			}
			if err := db.Where("session_id = ?", s.SessionID).Order("created_at ASC").Find(&se.Concepts).Error; err != nil {
				common.Fail(c, http.StatusInternalServerError, 20001, "db error")
				return
			}
			if err := db.Where("session_id = ?", s.SessionID).Order("created_at ASC").Find(&se.Images).Error; err != nil {
				common.Fail(c, http.StatusInternalServerError, 20001, "db error")
				return
			}
			totalSessions++
			totalMessages += len(se.Messages)
			ue.Sessions = append(ue.Sessions, se)
		}

		if err := db.Where("user_id = ?", u.ID).Order("created_at ASC").Find(&ue.Moodboard).Error; err != nil {
			common.Fail(c, http.StatusInternalServerError, 20001, "db error")
			return
		}
		if err := db.Where("user_id = ?", u.ID).Order("created_at ASC").Find(&ue.Questionnaires).Error; err != nil {
			common.Fail(c, http.StatusInternalServerError, 20001, "db error")
			return
		}

		out = append(out, ue)
	}

	common.OK(c, gin.H{
		"exported_at": time.Now().UTC(),
		"summary": gin.H{
			"total_users":    len(users),
			"total_sessions": totalSessions,
			"total_messages": totalMessages,
		},
		"users": out,
	})
}

type statsPayload struct {
	Users            int64     `json:"users"`
	Sessions         int64     `json:"sessions"`
	Messages         int64     `json:"messages"`
	Prompts          int64     `json:"prompts"`
	Concepts         int64     `json:"concepts"`
	GeneratedImages  int64     `json:"generated_images"`
	MoodboardImages  int64     `json:"moodboard_images"`
	Questionnaires   int64     `json:"questionnaire_responses"`
	CompletedStudies int64     `json:"completed_studies"`

	SessionsByModel map[string]int64 `json:"sessions_by_model"`
	ConceptsByModel map[string]int64 `json:"concepts_by_model"`

	GeneratedAt     time.Time `json:"generated_at"`
	ServedFromCache bool      `json:"served_from_cache"`
}

type modelCount struct {
	ModelName string
	N         int64
}

// Stats serves aggregate counts, briefly cached in Redis since the dashboard
// polls this while the export tables grow mid-study.
func (h *Handler) Stats(c *gin.Context) {
	ctx := c.Request.Context()

	if h.Redis != nil {
		if cached, err := h.Redis.GetStats(ctx); err == nil {
			var p statsPayload
			if json.Unmarshal([]byte(cached), &p) == nil {
				p.ServedFromCache = true
				common.OK(c, p)
				return
			}
		} else if err != redis.Nil {
			logging.Warnf("stats cache read: %v", err)
		}
	}

	db := h.DB.WithContext(ctx)
	p := statsPayload{GeneratedAt: time.Now().UTC()}

	counts := []struct {
		model any
		dst   *int64
	}{
		{&models.User{}, &p.Users},
		{&chat.Session{}, &p.Sessions},
		{&chat.Message{}, &p.Messages},
		{&capture.Prompt{}, &p.Prompts},
		{&capture.Concept{}, &p.Concepts},
		{&imagegen.GeneratedImage{}, &p.GeneratedImages},
		{&moodboard.Image{}, &p.MoodboardImages},
		{&survey.Response{}, &p.Questionnaires},
	}
	for _, q := range counts {
		if err := db.Model(q.model).Count(q.dst).Error; err != nil {
			common.Fail(c, http.StatusInternalServerError, 20001, "db error")
			return
		}
	}

	var perModel []modelCount
	if err := db.Model(&chat.Session{}).
		Select("model_name, COUNT(*) AS n").
		Group("model_name").
		Scan(&perModel).Error; err != nil {
		common.Fail(c, http.StatusInternalServerError, 20001, "db error")
		return
	}
	p.SessionsByModel = make(map[string]int64, len(perModel))
	for _, m := range perModel {
		p.SessionsByModel[m.ModelName] = m.N
	}

	perModel = perModel[:0]
	if err := db.Model(&capture.Concept{}).
		Select("chat_sessions.model_name AS model_name, COUNT(*) AS n").
		Joins("JOIN chat_sessions ON chat_sessions.session_id = concepts.session_id").
		Group("chat_sessions.model_name").
		Scan(&perModel).Error; err != nil {
		common.Fail(c, http.StatusInternalServerError, 20001, "db error")
		return
	}
	p.ConceptsByModel = make(map[string]int64, len(perModel))
	for _, m := range perModel {
		p.ConceptsByModel[m.ModelName] = m.N
	}

	// Participants with a full set of post-activity questionnaires.
	completed := db.Model(&survey.Response{}).
		Select("user_id").
		Where("type = ?", survey.TypePostActivity).
		Group("user_id").
		Having("COUNT(*) >= ?", h.Catalog.Size())
	if err := db.Table("(?) AS completed", completed).Count(&p.CompletedStudies).Error; err != nil {
		common.Fail(c, http.StatusInternalServerError, 20001, "db error")
		return
	}

	if h.Redis != nil {
		if b, err := json.Marshal(p); err == nil {
			if err := h.Redis.SetStats(ctx, string(b), statsCacheTTL); err != nil {
				logging.Warnf("stats cache write: %v", err)
			}
		}
	}

	common.OK(c, p)
}

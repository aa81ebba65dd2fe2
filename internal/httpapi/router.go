package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/restlab/study-backend/internal/common"
	"github.com/restlab/study-backend/internal/config"
	"github.com/restlab/study-backend/internal/httpapi/handlers"
	"github.com/restlab/study-backend/internal/httpapi/middleware"
	"github.com/restlab/study-backend/internal/imagegen"
	"github.com/restlab/study-backend/internal/store/redisstore"
	"gorm.io/gorm"
)

func NewRouter(db *gorm.DB, cfg config.Config, rds *redisstore.Store, queue imagegen.Publisher) *gin.Engine {
	r := gin.New()
	r.HandleMethodNotAllowed = true
	r.Use(gin.Logger())
	r.Use(middleware.Recovery())

	r.NoRoute(func(c *gin.Context) {
		common.Fail(c, http.StatusNotFound, 40400, "route not found")
	})
	r.NoMethod(func(c *gin.Context) {
		common.Fail(c, http.StatusMethodNotAllowed, 40500, "method not allowed")
	})

	r.Use(middleware.RequestID())

	h := handlers.NewHandler(db, cfg, rds, queue)

	r.GET("/ping", h.Ping)
	r.GET("/health", h.Ping)

	// public
	r.POST("/api/login", h.Login)
	r.POST("/api/admin/login", h.AdminLogin)
	r.GET("/api/models", h.ListModels)

	// participant (JWT required)
	api := r.Group("/api")
	api.Use(middleware.AuthRequired(cfg.JWTSecret))

	api.GET("/me", h.Me)
	api.GET("/study/status", h.StudyStatus)

	// chat
	api.POST("/chat/sessions", h.CreateChatSession)
	api.GET("/chat/sessions", h.ListChatSessions)
	api.POST("/chat/messages", h.SendChatMessage)
	api.POST("/chat/messages/stream", h.SendChatMessageStream)
	api.POST("/chat/sessions/:session_id/reset", h.ResetChatContext)
	api.GET("/chat/sessions/:session_id/messages", h.ListChatMessages)

	// captured prompts and concepts
	api.GET("/chat/sessions/:session_id/prompts", h.ListPrompts)
	api.POST("/prompts", h.CreatePrompt)
	api.PUT("/prompts/:prompt_id", h.UpdatePrompt)
	api.DELETE("/prompts/:prompt_id", h.DeletePrompt)
	api.GET("/chat/sessions/:session_id/concepts", h.ListConcepts)
	api.POST("/concepts", h.CreateConcept)
	api.PUT("/concepts/:concept_id", h.UpdateConcept)
	api.DELETE("/concepts/:concept_id", h.DeleteConcept)

	// image generation
	api.POST("/chat/sessions/:session_id/images", h.GenerateImages)
	api.GET("/chat/sessions/:session_id/images", h.ListGeneratedImages)
	api.GET("/images/jobs/:job_id", h.GetImageJob)
	api.GET("/images/files/:image_id", h.ServeGeneratedImage)

	// moodboard
	api.POST("/moodboard", h.UploadMoodboardImage)
	api.GET("/moodboard", h.ListMoodboardImages)
	api.GET("/moodboard/:image_id", h.ServeMoodboardImage)
	api.DELETE("/moodboard/:image_id", h.DeleteMoodboardImage)
	api.DELETE("/moodboard", h.ClearMoodboard)

	// questionnaires
	api.POST("/questionnaires", h.SubmitQuestionnaire)
	api.GET("/questionnaires", h.ListQuestionnaires)
	api.GET("/questionnaires/completion", h.CheckQuestionnaireCompletion)
	api.GET("/questionnaires/responses/:response_id", h.GetQuestionnaire)

	// admin (admin JWT required)
	admin := r.Group("/admin")
	admin.Use(middleware.AuthRequired(cfg.JWTSecret), middleware.AdminRequired())
	admin.GET("/export", h.ExportData)
	admin.GET("/stats", h.Stats)

	return r
}

package handlers

import (
	"context"

	"github.com/restlab/study-backend/internal/ai"
	"github.com/restlab/study-backend/internal/capture"
	"github.com/restlab/study-backend/internal/catalog"
	"github.com/restlab/study-backend/internal/chat"
	"github.com/restlab/study-backend/internal/config"
	"github.com/restlab/study-backend/internal/imagegen"
	"github.com/restlab/study-backend/internal/moodboard"
	"github.com/restlab/study-backend/internal/store/redisstore"
	"github.com/restlab/study-backend/internal/survey"
	"gorm.io/gorm"
)

type Handler struct {
	DB    *gorm.DB
	Cfg   config.Config
	Redis *redisstore.Store

	Catalog      *catalog.Catalog
	ChatSvc      *chat.Service
	CaptureSvc   *capture.Service
	SurveySvc    *survey.Service
	MoodboardSvc *moodboard.Service
	ImageSvc     *imagegen.Service
}

// newRegistry routes catalog provider kinds onto configured backends.
func newRegistry(cfg config.Config) *ai.Registry {
	reg := ai.NewRegistry()

	reg.Register(catalog.ProviderOllama, func(ctx context.Context, model string) (ai.Provider, error) {
		_ = ctx
		return ai.NewOllamaProvider(cfg.OllamaBaseURL, model), nil
	})

	reg.Register(catalog.ProviderHuggingFace, func(ctx context.Context, model string) (ai.Provider, error) {
		_ = ctx
		return ai.NewHuggingFaceProvider(cfg.HuggingFaceEndpoint, cfg.HuggingFaceToken, model), nil
	})

	reg.Register(catalog.ProviderOpenRouter, func(ctx context.Context, model string) (ai.Provider, error) {
		_ = ctx
		return ai.NewOpenRouterProvider(
			cfg.OpenRouterBaseURL,
			cfg.OpenRouterAPIKey,
			model,
			cfg.OpenRouterSiteURL,
			cfg.OpenRouterAppName,
		), nil
	})

	return reg
}

func NewHandler(db *gorm.DB, cfg config.Config, rds *redisstore.Store, queue imagegen.Publisher) *Handler {
	cat := catalog.Default()
	reg := newRegistry(cfg)

	chatSvc := chat.NewService(chat.NewRepo(db), reg, cat)
	captureSvc := capture.NewService(capture.NewRepo(db), chatSvc)
	surveySvc := survey.NewService(survey.NewRepo(db), chatSvc)
	moodboardSvc := moodboard.NewService(moodboard.NewRepo(db), cfg.DataDir)

	gen := imagegen.NewReplicateClient(cfg.ReplicateBaseURL, cfg.ReplicateToken, cfg.ReplicateModel)
	imageSvc := imagegen.NewService(
		imagegen.NewRepo(db), gen, captureSvc, chatSvc, queue,
		cfg.DataDir, cfg.ImageStylePrefix,
	)

	return &Handler{
		DB:    db,
		Cfg:   cfg,
		Redis: rds,

		Catalog:      cat,
		ChatSvc:      chatSvc,
		CaptureSvc:   captureSvc,
		SurveySvc:    surveySvc,
		MoodboardSvc: moodboardSvc,
		ImageSvc:     imageSvc,
	}
}

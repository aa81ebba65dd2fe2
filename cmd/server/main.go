package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/restlab/study-backend/internal/capture"
	"github.com/restlab/study-backend/internal/chat"
	"github.com/restlab/study-backend/internal/config"
	"github.com/restlab/study-backend/internal/db"
	"github.com/restlab/study-backend/internal/httpapi"
	"github.com/restlab/study-backend/internal/imagegen"
	"github.com/restlab/study-backend/internal/logging"
	"github.com/restlab/study-backend/internal/models"
	"github.com/restlab/study-backend/internal/moodboard"
	"github.com/restlab/study-backend/internal/store/rabbitmq"
	"github.com/restlab/study-backend/internal/store/redisstore"
	"github.com/restlab/study-backend/internal/survey"
)

func main() {
	cfg := config.Load()
	logging.Init(cfg.LogLevel, cfg.LogFormat)
	defer logging.Sync()

	gin.SetMode(cfg.Mode)

	gdb, err := db.Connect(cfg.DBDriver, cfg.DBDSN, cfg.SQLitePath)
	if err != nil {
		logging.Fatalf("db connect: %v", err)
	}

	if err := gdb.AutoMigrate(
		&models.User{},
		&chat.Session{},
		&chat.Message{},
		&capture.Prompt{},
		&capture.Concept{},
		&survey.Response{},
		&moodboard.Image{},
		&imagegen.Job{},
		&imagegen.GeneratedImage{},
	); err != nil {
		logging.Fatalf("migrate: %v", err)
	}

	// Redis only backs the admin stats cache; the service runs without it.
	var rds *redisstore.Store
	if cfg.RedisAddr != "" {
		rds, err = redisstore.New(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			logging.Warnf("redis unavailable, stats cache disabled: %v", err)
			rds = nil
		} else {
			defer rds.Close()
		}
	}

	// Without RabbitMQ, image jobs run inline on the request path.
	var queue imagegen.Publisher
	if cfg.RabbitURL != "" {
		pub, err := rabbitmq.NewPublisher(cfg.RabbitURL, cfg.RabbitQueue)
		if err != nil {
			logging.Warnf("rabbitmq unavailable, image jobs will run inline: %v", err)
		} else {
			defer pub.Close()
			queue = pub
		}
	}

	router := httpapi.NewRouter(gdb, cfg, rds, queue)

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		logging.Infof("server listening on :%s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logging.Fatalf("listen: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	logging.Infof("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logging.Errorf("shutdown: %v", err)
	}
}

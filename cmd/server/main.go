package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/danielladerman/speakflow/internal/cache"
	"github.com/danielladerman/speakflow/internal/config"
	"github.com/danielladerman/speakflow/internal/events"
	"github.com/danielladerman/speakflow/internal/model"
	"github.com/danielladerman/speakflow/internal/queue"
	"github.com/danielladerman/speakflow/internal/repository"
	"github.com/danielladerman/speakflow/internal/service"
	"github.com/danielladerman/speakflow/internal/storage"
	"github.com/danielladerman/speakflow/internal/transport/rest"
	"github.com/danielladerman/speakflow/internal/transport/ws"
)

func main() {
	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	log := logrus.WithField("app", "speakflow-api")

	cfg, err := config.Load()
	if err != nil {
		log.WithError(err).Fatal("failed to load config")
	}

	ctx := context.Background()

	// MongoDB
	mongoClient, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		log.WithError(err).Fatal("failed to connect to MongoDB")
	}
	defer mongoClient.Disconnect(ctx)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := mongoClient.Ping(pingCtx, nil); err != nil {
		log.WithError(err).Fatal("failed to ping MongoDB")
	}
	log.Info("connected to MongoDB")

	// Redis
	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	defer rdb.Close()
	if err := rdb.Ping(ctx).Err(); err != nil {
		log.WithError(err).Fatal("failed to ping Redis")
	}
	log.Info("connected to Redis")

	// Object storage
	store, err := storage.NewFromBackend(cfg.StorageBackend, cfg.LocalStorage, storage.S3Options{
		Endpoint:  cfg.S3Endpoint,
		Bucket:    cfg.S3Bucket,
		Region:    cfg.S3Region,
		AccessKey: cfg.S3AccessKey,
		SecretKey: cfg.S3SecretKey,
		UseSSL:    cfg.S3UseSSL,
	})
	if err != nil {
		log.WithError(err).Fatal("failed to initialize storage")
	}

	repo := repository.NewSessionRepo(mongoClient.Database(cfg.MongoDB))
	jobs := queue.New(rdb, cfg.QueueName)
	reports := cache.NewReportCache(rdb)

	authSvc := service.NewAuthService(cfg.AuthUsername, cfg.AuthPassword, cfg.JWTSecret)
	sessionSvc := service.NewSessionService(repo, store, jobs, reports, cfg.MaxUploadMB)

	// Live status: bridge worker events from redis into the ws hub.
	wsHub := ws.NewHub()
	subCtx, stopSub := context.WithCancel(ctx)
	defer stopSub()
	go events.Subscribe(subCtx, rdb, cfg.EventChannel, func(event model.StatusEvent) {
		wsHub.Broadcast(event)
	})

	router := rest.NewRouter(&rest.Container{
		AuthService:    authSvc,
		SessionService: sessionSvc,
		WSHub:          wsHub,
	})

	srv := &http.Server{
		Addr:    ":" + cfg.HTTPPort,
		Handler: router,
	}

	go func() {
		log.WithField("port", cfg.HTTPPort).Info("server starting")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Fatal("ListenAndServe failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("shutting down server")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Fatal("server forced to shutdown")
	}
	log.Info("server exited")
}

package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/danielladerman/speakflow/internal/analysis"
	"github.com/danielladerman/speakflow/internal/asr"
	"github.com/danielladerman/speakflow/internal/coaching"
	"github.com/danielladerman/speakflow/internal/config"
	"github.com/danielladerman/speakflow/internal/contract"
	"github.com/danielladerman/speakflow/internal/events"
	"github.com/danielladerman/speakflow/internal/queue"
	"github.com/danielladerman/speakflow/internal/repository"
	"github.com/danielladerman/speakflow/internal/storage"
	"github.com/danielladerman/speakflow/internal/worker"
)

func main() {
	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	log := logrus.WithField("app", "speakflow-worker")

	cfg, err := config.Load()
	if err != nil {
		log.WithError(err).Fatal("failed to load config")
	}
	log.WithFields(logrus.Fields{
		"queue":       cfg.QueueName,
		"asr_backend": cfg.ASRBackend,
		"storage":     cfg.StorageBackend,
	}).Info("starting worker")

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
	repo := repository.NewSessionRepo(mongoClient.Database(cfg.MongoDB))

	// Redis
	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	defer rdb.Close()
	if err := rdb.Ping(ctx).Err(); err != nil {
		log.WithError(err).Fatal("failed to ping Redis")
	}
	jobs := queue.New(rdb, cfg.QueueName)
	publisher := events.NewPublisher(rdb, cfg.EventChannel)

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

	// Transcriber: constructed once here, heavy initialization happens
	// lazily on the first job.
	var transcriber asr.Transcriber
	switch cfg.ASRBackend {
	case "http":
		transcriber = asr.NewHTTPTranscriber(cfg.ASRServerURL)
	default:
		transcriber = asr.NewWhisperTranscriber(cfg.WhisperPath, cfg.WhisperModel)
	}

	// Coaching: optional, gated on the API key.
	var coach worker.CoachingSelector
	library, err := contract.LoadDrillLibrary(cfg.DrillLibraryPath)
	if err != nil {
		log.WithError(err).Fatal("failed to load drill library")
	}
	log.WithFields(logrus.Fields{
		"version": library.Version,
		"drills":  len(library.Drills),
	}).Info("drill library loaded")
	if cfg.OpenAIAPIKey != "" {
		coach = coaching.NewCoach(library, coaching.Options{
			APIKey:  cfg.OpenAIAPIKey,
			Model:   cfg.OpenAIModel,
			BaseURL: cfg.OpenAIBaseURL,
		})
	} else {
		log.Warn("no API key configured, coaching disabled")
	}

	engine := analysis.NewEngine(analysis.DefaultScoringConfig())
	w := worker.New(repo, jobs, store, transcriber, engine, coach, publisher, cfg.PollInterval)

	// Shutdown is coarse: the flag flips and the in-flight job runs to
	// completion or failure; the loop exits at the next dequeue timeout.
	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit
		log.Info("shutdown signal received, finishing current job")
		w.Stop()
	}()

	w.Run(ctx)
}

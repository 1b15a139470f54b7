package main

import (
	"context"
	"flag"
	"os"
	"path/filepath"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/danielladerman/speakflow/internal/cache"
	"github.com/danielladerman/speakflow/internal/config"
	"github.com/danielladerman/speakflow/internal/contract"
	"github.com/danielladerman/speakflow/internal/queue"
	"github.com/danielladerman/speakflow/internal/repository"
	"github.com/danielladerman/speakflow/internal/service"
	"github.com/danielladerman/speakflow/internal/storage"
)

var contentTypeByExt = map[string]string{
	".wav": "audio/wav",
	".mp3": "audio/mpeg",
	".m4a": "audio/mp4",
}

// seed is a dev utility: it validates the drill library and, when given
// an audio file, creates a session and queues it for analysis.
func main() {
	audioPath := flag.String("audio", "", "path to a local audio file to queue for analysis")
	flag.Parse()

	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	log := logrus.WithField("app", "speakflow-seed")

	cfg, err := config.Load()
	if err != nil {
		log.WithError(err).Fatal("failed to load config")
	}

	library, err := contract.LoadDrillLibrary(cfg.DrillLibraryPath)
	if err != nil {
		log.WithError(err).Fatal("drill library is invalid")
	}
	log.WithFields(logrus.Fields{
		"version": library.Version,
		"drills":  len(library.Drills),
	}).Info("drill library is valid")

	if *audioPath == "" {
		return
	}

	contentType, ok := contentTypeByExt[filepath.Ext(*audioPath)]
	if !ok {
		log.WithField("path", *audioPath).Fatal("unsupported audio extension")
	}
	audio, err := os.ReadFile(*audioPath)
	if err != nil {
		log.WithError(err).Fatal("failed to read audio file")
	}

	ctx := context.Background()

	mongoClient, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		log.WithError(err).Fatal("failed to connect to MongoDB")
	}
	defer mongoClient.Disconnect(ctx)

	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	defer rdb.Close()
	if err := rdb.Ping(ctx).Err(); err != nil {
		log.WithError(err).Fatal("failed to ping Redis")
	}

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
	svc := service.NewSessionService(repo, store, jobs, reports, cfg.MaxUploadMB)

	session, err := svc.CreateFromUpload(ctx, audio, contentType)
	if err != nil {
		log.WithError(err).Fatal("failed to create session")
	}
	log.WithFields(logrus.Fields{
		"session_id": session.ID,
		"audio_key":  session.AudioKey,
	}).Info("session queued for analysis")
}

package main

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/cppla/threadbbs/config"
	"github.com/cppla/threadbbs/models"
	"github.com/cppla/threadbbs/routes"
	"github.com/cppla/threadbbs/services"
	"github.com/cppla/threadbbs/storage"
	"github.com/cppla/threadbbs/utils"
)

func main() {
	cfg := config.Load()

	if err := utils.InitLogger(cfg); err != nil {
		panic(err)
	}
	defer utils.Logger.Sync()

	sentryOn, err := utils.InitSentry(cfg.SentryDSN, cfg.GinMode)
	if err != nil {
		utils.Sugar.Warnf("sentry init failed: %v", err)
	}
	if sentryOn {
		defer utils.FlushSentry()
	}

	db := config.InitDatabase(models.All()...)

	store, err := newStore(cfg)
	if err != nil {
		utils.Sugar.Fatalf("storage init failed: %v", err)
	}
	counter, err := newCounter(cfg, db)
	if err != nil {
		utils.Sugar.Fatalf("counter init failed: %v", err)
	}

	purger, err := utils.StartAttachmentPurge(db, store, cfg.PurgeSchedule, time.Duration(cfg.PurgeAfterHours)*time.Hour)
	if err != nil {
		utils.Sugar.Fatalf("purge schedule failed: %v", err)
	}

	r := routes.SetupRouter(routes.Deps{DB: db, Store: store, Counter: counter, Sentry: sentryOn})

	srv := utils.GraceServer(":"+cfg.AppPort, r)
	if purger != nil {
		srv.OnShutdown(func() { <-purger.Stop().Done() })
	}
	utils.Sugar.Infof("starting server on port %s (graceful)", cfg.AppPort)
	if err := srv.ListenAndServe(); err != nil {
		utils.Sugar.Fatalf("server stopped with error: %v", err)
	}
}

func newStore(cfg config.AppConfig) (storage.Store, error) {
	switch cfg.StorageBackend {
	case "s3":
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return storage.NewS3Store(ctx, storage.S3Config{
			Region:    cfg.S3Region,
			Bucket:    cfg.S3Bucket,
			AccessKey: cfg.S3AccessKey,
			SecretKey: cfg.S3SecretKey,
			Endpoint:  cfg.S3Endpoint,
		})
	case "local", "":
		return storage.NewLocalStore(cfg.UploadDir)
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.StorageBackend)
	}
}

func newCounter(cfg config.AppConfig, db *gorm.DB) (services.SequenceCounter, error) {
	switch cfg.CounterBackend {
	case "redis":
		rc := utils.GetRedis()
		if rc == nil {
			return nil, fmt.Errorf("redis counter needs RedisHost")
		}
		return services.NewRedisCounter(rc, services.MaxPostNumber(db)), nil
	case "db", "":
		return services.NewDBCounter(db), nil
	default:
		return nil, fmt.Errorf("unknown counter backend %q", cfg.CounterBackend)
	}
}

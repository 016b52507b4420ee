package bootstrap

import (
	"context"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"chartqa/internal/config"
	"chartqa/internal/extract"
	"chartqa/internal/model"
	rabbitmqClient "chartqa/internal/platform/rabbitmq"
	redisClient "chartqa/internal/platform/redis"
	sqliteClient "chartqa/internal/platform/sqlite"
	"chartqa/internal/pkg/filestore"
	"chartqa/internal/pkg/logger"
	"chartqa/internal/repository"
	"chartqa/internal/vision"
	"chartqa/internal/worker"
)

type App struct {
	Config      *config.Config
	Log         *zap.Logger
	DB          *gorm.DB
	Redis       *redis.Client
	MQConn      *amqp.Connection
	Files       *filestore.Store
	Extractor   *extract.Service
	Describer   *vision.Describer
	ImageWorker *worker.ImagePersistWorker

	StartedAt time.Time
}

func New(ctx context.Context) (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config failed: %w", err)
	}

	log, err := logger.New(cfg.App.Env)
	if err != nil {
		return nil, fmt.Errorf("build logger failed: %w", err)
	}

	db, err := sqliteClient.New(ctx, cfg.SQLiteDSN())
	if err != nil {
		return nil, err
	}
	if err := db.AutoMigrate(&model.User{}, &model.Session{}, &model.Image{}, &model.Conversation{}); err != nil {
		return nil, fmt.Errorf("auto migrate tables failed: %w", err)
	}

	files, err := filestore.New(cfg.Store.UploadsDir, cfg.Store.ExtractDir)
	if err != nil {
		return nil, err
	}

	app := &App{
		Config:    cfg,
		Log:       log,
		DB:        db,
		Files:     files,
		Extractor: extract.NewService(files.ExtractDir(), log),
		StartedAt: time.Now(),
	}

	if cfg.Vision.Enabled {
		app.Describer = vision.NewDescriber(
			cfg.Vision.ModelPath,
			cfg.Vision.LabelsPath,
			cfg.Vision.ONNXSharedLibPath,
			cfg.Vision.TopK,
		)
	}

	if cfg.Redis.Enabled {
		redisCli, err := redisClient.New(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			return nil, err
		}
		app.Redis = redisCli
	}

	if cfg.RabbitMQ.Enabled {
		mqConn, err := rabbitmqClient.New(ctx, cfg.RabbitMQ.URL)
		if err != nil {
			return nil, err
		}
		app.MQConn = mqConn

		imageRepo := repository.NewImageRepository(db)
		imageWorker := worker.NewImagePersistWorker(mqConn, imageRepo, cfg.RabbitMQ.ImagePersistQueue, log)
		if err := imageWorker.Start(ctx); err != nil {
			return nil, fmt.Errorf("start image worker failed: %w", err)
		}
		app.ImageWorker = imageWorker
	}

	return app, nil
}

func (a *App) Close() error {
	var closeErr error
	if a.Redis != nil {
		if err := a.Redis.Close(); err != nil {
			closeErr = err
		}
	}
	if a.ImageWorker != nil {
		a.ImageWorker.Close()
	}
	if a.MQConn != nil {
		if err := a.MQConn.Close(); err != nil {
			closeErr = err
		}
	}
	if a.DB != nil {
		sqlDB, err := a.DB.DB()
		if err == nil {
			if err := sqlDB.Close(); err != nil {
				closeErr = err
			}
		}
	}
	if a.Log != nil {
		_ = a.Log.Sync()
	}
	return closeErr
}

package di

import (
	"context"
	"fmt"
	"log/slog"

	blobstorage "github.com/GoArmGo/GeoPhoto/internal/adapter/storage"
	"github.com/GoArmGo/GeoPhoto/internal/adapter/storage/legacy"
	"github.com/GoArmGo/GeoPhoto/internal/app"
	"github.com/GoArmGo/GeoPhoto/internal/auth"
	"github.com/GoArmGo/GeoPhoto/internal/config"
	"github.com/GoArmGo/GeoPhoto/internal/core/ports"
	"github.com/GoArmGo/GeoPhoto/internal/database/client"
	"github.com/GoArmGo/GeoPhoto/internal/database/storage"
	"github.com/GoArmGo/GeoPhoto/internal/logger"
	"github.com/GoArmGo/GeoPhoto/internal/metadata"
	"github.com/GoArmGo/GeoPhoto/internal/rabbitmq"
	"github.com/GoArmGo/GeoPhoto/internal/usecase"
)

// loadConfig загружает конфигурацию и создаёт основной логгер
func loadConfig() (*config.Config, *slog.Logger, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, nil, err
	}

	slogger := logger.NewSlog(logger.SlogConfig{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
	})
	slogger.Info("logger initialized", "level", cfg.Log.Level, "format", cfg.Log.Format)
	return cfg, slogger, nil
}

// BuildApp инициализирует все зависимости и возвращает готовый объект App.
// Схема БД приводится к последней версии до старта.
func BuildApp(ctx context.Context, mode string) (*app.App, error) {
	// 1. Загрузка конфигурации
	cfg, slogger, err := loadConfig()
	if err != nil {
		return nil, err
	}
	// до открытия хранилищ: worker на local не должен бороться с сервером за каталог badger
	if mode == app.ModeWorker {
		if err := cfg.CheckWorker(); err != nil {
			return nil, err
		}
	}

	var closers []func() error
	fail := func(err error) (*app.App, error) {
		for i := len(closers) - 1; i >= 0; i-- {
			_ = closers[i]()
		}
		return nil, err
	}

	// 2. Инициализация PostgreSQL клиента и миграции
	dbClient, err := client.NewClient(cfg, slogger)
	if err != nil {
		return nil, err
	}
	closers = append(closers, dbClient.Close)

	if err := dbClient.Migrate(); err != nil {
		return fail(err)
	}

	// 3. Инициализация хранилищ
	photoStorage := storage.NewPhotoStorage(dbClient.DB, slogger)
	userStorage := storage.NewGormUserStorage(dbClient.Gorm, slogger)

	blobs, closeBlobs, err := blobstorage.NewBlobStorageFromConfig(ctx, cfg, slogger)
	if err != nil {
		return fail(err)
	}
	closers = append(closers, closeBlobs)

	legacyFiles := legacy.NewFileStore(cfg.LegacyUploadDir)

	// 4. Очередь заданий очистки
	var (
		publisher ports.CleanupPublisher
		consumer  ports.CleanupConsumer
	)
	if cfg.RabbitMQ.URL != "" {
		rabbitMQClient, err := rabbitmq.NewClient(cfg, slogger)
		if err != nil {
			return fail(err)
		}
		closers = append(closers, func() error {
			rabbitMQClient.Close()
			return nil
		})
		publisher, consumer = rabbitMQClient, rabbitMQClient
	} else {
		slogger.Warn("RABBITMQ_URL is not set, cleanup jobs will only be logged")
		publisher = rabbitmq.NewDropPublisher(slogger)
	}

	// 5. Аутентификация
	tokens := auth.NewTokenService(cfg.JWT.Secret, cfg.JWT.TTL, cfg.JWT.Issuer)
	gate := auth.NewGate(auth.DefaultRules, tokens, userStorage, slogger)

	// 6. Инициализация бизнес-логики (usecases)
	photoUseCase := usecase.NewPhotoUseCase(usecase.PhotoDeps{
		Photos:    photoStorage,
		Blobs:     blobs,
		Legacy:    legacyFiles,
		Extractor: metadata.NewExtractor(),
		Cleanup:   publisher,
		Logger:    slogger,
	})
	authUseCase := usecase.NewAuthUseCase(userStorage, tokens, 0, slogger)
	cleanupUseCase := usecase.NewCleanupUseCase(blobs, legacyFiles, slogger)

	// 7. Сборка итогового приложения
	application := app.NewApp(cfg, slogger, app.Deps{
		PhotoUseCase:    photoUseCase,
		AuthUseCase:     authUseCase,
		CleanupUseCase:  cleanupUseCase,
		Gate:            gate,
		CleanupConsumer: consumer,
		UploadLimiter:   make(chan struct{}, cfg.Server.UploadConcurrency),
		Closers:         closers,
	})

	slogger.Info("all dependencies initialized", "blob_backend", cfg.BlobBackend)
	return application, nil
}

// RunMigrations применяет миграции или, при checkOnly, только проверяет версию схемы.
func RunMigrations(checkOnly bool) error {
	cfg, slogger, err := loadConfig()
	if err != nil {
		return err
	}

	dbClient, err := client.NewClient(cfg, slogger)
	if err != nil {
		return err
	}
	defer dbClient.Close()

	if checkOnly {
		if err := dbClient.CheckMigrations(); err != nil {
			return fmt.Errorf("схема БД не актуальна: %w", err)
		}
		slogger.Info("database schema is up to date")
		return nil
	}
	return dbClient.Migrate()
}

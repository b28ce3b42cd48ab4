// Package storage выбирает реализацию blob storage по конфигурации.
package storage

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/GoArmGo/GeoPhoto/internal/adapter/storage/local"
	"github.com/GoArmGo/GeoPhoto/internal/adapter/storage/memory"
	"github.com/GoArmGo/GeoPhoto/internal/adapter/storage/minio"
	"github.com/GoArmGo/GeoPhoto/internal/adapter/storage/s3"
	"github.com/GoArmGo/GeoPhoto/internal/config"
	"github.com/GoArmGo/GeoPhoto/internal/core/ports"
)

// NewBlobStorageFromConfig создаёт blob storage по BLOB_BACKEND.
// Возвращаемая функция освобождает ресурсы backend'а (индекс local).
func NewBlobStorageFromConfig(ctx context.Context, cfg *config.Config, logger *slog.Logger) (ports.BlobStorage, func() error, error) {
	noop := func() error { return nil }

	switch cfg.BlobBackend {
	case config.BlobBackendS3:
		c, err := s3.NewS3Client(ctx, cfg, logger)
		if err != nil {
			return nil, nil, err
		}
		return c, noop, nil
	case config.BlobBackendMinio:
		c, err := minio.NewMinioClient(ctx, cfg, logger)
		if err != nil {
			return nil, nil, err
		}
		return c, noop, nil
	case config.BlobBackendLocal:
		s, err := local.NewStore(cfg.Local.Dir, cfg.Local.IndexDir, logger)
		if err != nil {
			return nil, nil, err
		}
		return s, s.Close, nil
	case config.BlobBackendMemory:
		logger.Warn("using in-memory blob storage, photos will not survive a restart")
		return memory.NewStore(), noop, nil
	default:
		return nil, nil, fmt.Errorf("storage: неизвестный backend %q", cfg.BlobBackend)
	}
}

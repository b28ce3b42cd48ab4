package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/GoArmGo/GeoPhoto/internal/core/ports"
	"github.com/GoArmGo/GeoPhoto/internal/messaging/payloads"
)

// CleanupUseCase удаляет файлы, оставшиеся без записи
type CleanupUseCase struct {
	blobs  ports.BlobStorage
	legacy ports.LegacyFileStore
	logger *slog.Logger
}

func NewCleanupUseCase(blobs ports.BlobStorage, legacy ports.LegacyFileStore, logger *slog.Logger) *CleanupUseCase {
	return &CleanupUseCase{blobs: blobs, legacy: legacy, logger: logger}
}

// HandleCleanupJob выполняет одно задание. Ошибка означает "повторить позже";
// задания, которые никогда не выполнятся, подтверждаются и логируются.
func (uc *CleanupUseCase) HandleCleanupJob(ctx context.Context, job payloads.CleanupPayload) error {
	switch job.Kind {
	case payloads.CleanupKindBlob:
		if job.Key == "" {
			uc.logger.Warn("cleanup job without key dropped", "kind", job.Kind)
			return nil
		}
		if err := uc.blobs.Delete(ctx, job.Key); err != nil {
			return fmt.Errorf("usecase: ошибка при удалении блоба %s: %w", job.Key, err)
		}
	case payloads.CleanupKindLegacyFile:
		err := uc.legacy.Remove(job.Key)
		if errors.Is(err, ports.ErrInvalidFileName) {
			uc.logger.Warn("cleanup job with invalid file name dropped", "file", job.Key)
			return nil
		}
		if err != nil {
			return fmt.Errorf("usecase: ошибка при удалении файла %s: %w", job.Key, err)
		}
	default:
		uc.logger.Warn("unknown cleanup job kind dropped", "kind", job.Kind, "key", job.Key)
		return nil
	}

	uc.logger.Info("orphan removed", "kind", job.Kind, "key", job.Key, "reason", job.Reason)
	return nil
}

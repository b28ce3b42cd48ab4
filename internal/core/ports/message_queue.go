package ports

import (
	"context"

	"github.com/GoArmGo/GeoPhoto/internal/messaging/payloads"
)

// CleanupPublisher публикует задания на удаление осиротевших файлов.
// Используется пайплайном загрузки и удалением фото.
type CleanupPublisher interface {
	PublishCleanupJob(ctx context.Context, payload payloads.CleanupPayload) error
}

// CleanupConsumer потребляет задания очистки, используется воркером
type CleanupConsumer interface {
	// StartConsumingCleanupJobs начинает прослушивание очереди;
	// handler вызывается для каждого полученного сообщения
	StartConsumingCleanupJobs(ctx context.Context, handler func(context.Context, payloads.CleanupPayload) error) error
}

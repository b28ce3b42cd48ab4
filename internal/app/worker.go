package app

import (
	"context"
	"errors"
	"fmt"
)

// runWorker потребляет задания очистки из RabbitMQ до отмены ctx
func runWorker(ctx context.Context, a *App) error {
	if err := a.Config.CheckWorker(); err != nil {
		return err
	}
	if a.deps.CleanupConsumer == nil {
		return errors.New("режим worker требует RABBITMQ_URL")
	}

	if err := startCleanupConsumer(ctx, a); err != nil {
		return err
	}
	a.logger.Info("worker started, waiting for cleanup jobs")

	<-ctx.Done()
	a.logger.Info("shutdown signal received, stopping worker")
	return nil
}

// consumeCleanupInProcess запускает потребителя очистки внутри сервера, если
// блобы доступны только этому процессу. Возвращает true, если потребитель запущен.
func consumeCleanupInProcess(ctx context.Context, a *App) (bool, error) {
	if a.deps.CleanupConsumer == nil || a.Config.SharedBlobBackend() {
		return false, nil
	}
	if err := startCleanupConsumer(ctx, a); err != nil {
		return false, err
	}
	a.logger.Info("cleanup jobs are consumed in-process", "blob_backend", a.Config.BlobBackend)
	return true, nil
}

func startCleanupConsumer(ctx context.Context, a *App) error {
	if err := a.deps.CleanupConsumer.StartConsumingCleanupJobs(ctx, a.deps.CleanupUseCase.HandleCleanupJob); err != nil {
		return fmt.Errorf("ошибка при запуске потребителя RabbitMQ: %w", err)
	}
	return nil
}

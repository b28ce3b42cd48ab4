package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/GoArmGo/GeoPhoto/internal/auth"
	"github.com/GoArmGo/GeoPhoto/internal/config"
	"github.com/GoArmGo/GeoPhoto/internal/core/ports"
	"github.com/GoArmGo/GeoPhoto/internal/usecase"
)

// Режимы запуска
const (
	ModeServer = "server"
	ModeWorker = "worker"
)

// Deps — собранные зависимости приложения
type Deps struct {
	PhotoUseCase    usecase.PhotoUseCase
	AuthUseCase     usecase.AuthUseCase
	CleanupUseCase  *usecase.CleanupUseCase
	Gate            *auth.Gate
	CleanupConsumer ports.CleanupConsumer // nil, если RabbitMQ не настроен
	UploadLimiter   chan struct{}
	// Closers вызываются при Shutdown в обратном порядке
	Closers []func() error
}

type App struct {
	Config *config.Config
	logger *slog.Logger
	deps   Deps
}

func NewApp(cfg *config.Config, logger *slog.Logger, deps Deps) *App {
	if deps.UploadLimiter == nil {
		deps.UploadLimiter = make(chan struct{}, max(cfg.Server.UploadConcurrency, 1))
	}
	return &App{Config: cfg, logger: logger, deps: deps}
}

// LoggerIns возвращает основной логгер приложения
func (a *App) LoggerIns() *slog.Logger {
	return a.logger
}

// Run запускает приложение в выбранном режиме и блокируется до SIGINT/SIGTERM.
func (a *App) Run(ctx context.Context, mode string) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a.logger.Info("starting application", "mode", mode)

	var err error
	switch mode {
	case ModeServer:
		err = runServer(ctx, a)
	case ModeWorker:
		err = runWorker(ctx, a)
	default:
		err = fmt.Errorf("неизвестный режим: %s (используйте 'server' или 'worker')", mode)
	}

	if closeErr := a.Shutdown(); closeErr != nil {
		a.logger.Error("shutdown finished with errors", "error", closeErr)
	}
	if err != nil {
		return err
	}

	a.logger.Info("application stopped gracefully", "mode", mode)
	return nil
}

// Shutdown закрывает все ресурсы приложения. Повторный вызов ничего не делает.
func (a *App) Shutdown() error {
	var errs []error
	for i := len(a.deps.Closers) - 1; i >= 0; i-- {
		if err := a.deps.Closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.deps.Closers = nil
	return errors.Join(errs...)
}

package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/GoArmGo/GeoPhoto/internal/handler"
)

// shutdownTimeout — сколько ждать завершения активных запросов
const shutdownTimeout = 30 * time.Second

// Router собирает HTTP-маршруты. Шлюз аутентификации стоит перед всеми обработчиками.
func (a *App) Router() http.Handler {
	cfg := a.Config
	photoHandler := handler.NewPhotoHandler(a.deps.PhotoUseCase, a.deps.UploadLimiter, cfg.Server.MaxUploadBytes, a.logger)
	authHandler := handler.NewAuthHandler(a.deps.AuthUseCase, a.logger)
	require := func(h handler.PrincipalHandlerFunc) http.HandlerFunc {
		return handler.Require(a.logger, h)
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(handler.RequestLogger(a.logger))
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.Server.CORSOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           3600,
	}))
	r.Use(middleware.Timeout(cfg.Server.RequestTimeout))
	r.Use(a.deps.Gate.Middleware)

	r.Get("/health", handler.Health(a.logger))

	r.Route("/api/auth", func(r chi.Router) {
		r.Post("/register", authHandler.Register)
		r.Post("/login", authHandler.Login)
		r.Get("/me", require(authHandler.Me))
	})

	r.Route("/api/photos", func(r chi.Router) {
		r.Get("/", require(photoHandler.List))
		r.Get("/with-gps", require(photoHandler.ListWithGPS))
		r.Post("/upload", require(photoHandler.Upload))
		r.Get("/image/{filename}", photoHandler.ServeImage)
		r.Get("/{id}", require(photoHandler.Get))
		r.Delete("/{id}", require(photoHandler.Delete))
		r.Put("/{id}/location", require(photoHandler.UpdateLocation))
	})

	r.Handle("/uploads/*", http.StripPrefix("/uploads/", legacyFiles(cfg.LegacyUploadDir)))

	return r
}

// legacyFiles раздаёт старые загрузки без листинга каталогов
func legacyFiles(dir string) http.Handler {
	files := http.FileServer(http.Dir(dir))
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "" || strings.HasSuffix(r.URL.Path, "/") {
			http.NotFound(w, r)
			return
		}
		files.ServeHTTP(w, r)
	})
}

// runServer запускает HTTP сервер и ждёт отмены ctx
func runServer(ctx context.Context, a *App) error {
	if _, err := consumeCleanupInProcess(ctx, a); err != nil {
		return err
	}

	serverAddr := fmt.Sprintf(":%s", a.Config.Server.Port)
	server := &http.Server{
		Addr:              serverAddr,
		Handler:           a.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		a.logger.Info("http server started", "addr", serverAddr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("ошибка при запуске сервера: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	a.logger.Info("shutdown signal received, stopping http server")
	start := time.Now()

	ctxServer, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()

	if err := server.Shutdown(ctxServer); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}

	a.logger.Info("http server stopped", "duration_ms", time.Since(start).Milliseconds())
	return nil
}

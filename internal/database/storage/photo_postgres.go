package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/GoArmGo/GeoPhoto/internal/core/ports"
	"github.com/GoArmGo/GeoPhoto/internal/domain"
)

const photoColumns = `id, owner_id, storage_key, original_name, url, description, latitude, longitude, captured_at, uploaded_at`

// PhotoStorage хранит записи о фото через sqlx. Запросы пишутся с ? и
// переводятся в плейсхолдеры драйвера через Rebind, поэтому те же запросы
// работают на PostgreSQL и на SQLite в тестах.
type PhotoStorage struct {
	db     *sqlx.DB
	logger *slog.Logger
}

var _ ports.PhotoStorage = (*PhotoStorage)(nil)

func NewPhotoStorage(db *sqlx.DB, logger *slog.Logger) *PhotoStorage {
	return &PhotoStorage{db: db, logger: logger}
}

// SavePhoto сохраняет метаданные фотографии в базе данных
func (s *PhotoStorage) SavePhoto(ctx context.Context, photo *domain.Photo) error {
	start := time.Now()

	if photo.ID == uuid.Nil {
		photo.ID = uuid.New()
	}

	query := `
	INSERT INTO photos (` + photoColumns + `)
	VALUES (:id, :owner_id, :storage_key, :original_name, :url, :description, :latitude, :longitude, :captured_at, :uploaded_at)
	`

	if _, err := s.db.NamedExecContext(ctx, query, photo); err != nil {
		s.logger.Error("failed to save photo", "storage_key", photo.StorageKey, "error", err)
		return fmt.Errorf("ошибка при сохранении фото: %w", err)
	}

	s.logger.Info("photo saved successfully",
		"id", photo.ID,
		"storage_key", photo.StorageKey,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return nil
}

// GetPhotoByID получает фото по ID; (nil, nil), если записи нет
func (s *PhotoStorage) GetPhotoByID(ctx context.Context, id uuid.UUID) (*domain.Photo, error) {
	start := time.Now()

	var photo domain.Photo
	query := s.db.Rebind(`SELECT ` + photoColumns + ` FROM photos WHERE id = ? LIMIT 1`)

	if err := s.db.GetContext(ctx, &photo, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			s.logger.Warn("photo not found by id", "id", id)
			return nil, nil
		}
		s.logger.Error("failed to get photo by id", "id", id, "error", err)
		return nil, fmt.Errorf("ошибка при получении фото по ID: %w", err)
	}

	s.logger.Debug("photo retrieved by id",
		"id", id,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return &photo, nil
}

// ListPhotosByOwner — все фото владельца, новые первыми
func (s *PhotoStorage) ListPhotosByOwner(ctx context.Context, ownerID uuid.UUID) ([]domain.Photo, error) {
	return s.list(ctx, "list photos by owner",
		`SELECT `+photoColumns+` FROM photos WHERE owner_id = ? ORDER BY uploaded_at DESC`, ownerID)
}

// ListPhotosWithGPSByOwner — фото владельца с координатами
func (s *PhotoStorage) ListPhotosWithGPSByOwner(ctx context.Context, ownerID uuid.UUID) ([]domain.Photo, error) {
	return s.list(ctx, "list photos with gps by owner",
		`SELECT `+photoColumns+` FROM photos
		WHERE owner_id = ? AND latitude IS NOT NULL AND longitude IS NOT NULL
		ORDER BY uploaded_at DESC`, ownerID)
}

func (s *PhotoStorage) list(ctx context.Context, op, query string, ownerID uuid.UUID) ([]domain.Photo, error) {
	start := time.Now()

	photos := []domain.Photo{}
	if err := s.db.SelectContext(ctx, &photos, s.db.Rebind(query), ownerID); err != nil {
		s.logger.Error("failed to "+op, "owner_id", ownerID, "error", err)
		return nil, fmt.Errorf("ошибка при получении списка фото: %w", err)
	}

	s.logger.Debug(op,
		"owner_id", ownerID,
		"count", len(photos),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return photos, nil
}

// UpdatePhotoLocation перезаписывает обе координаты одним запросом
func (s *PhotoStorage) UpdatePhotoLocation(ctx context.Context, id uuid.UUID, point domain.GeoPoint) error {
	start := time.Now()

	query := s.db.Rebind(`UPDATE photos SET latitude = ?, longitude = ? WHERE id = ?`)
	res, err := s.db.ExecContext(ctx, query, point.Latitude, point.Longitude, id)
	if err != nil {
		s.logger.Error("failed to update photo location", "id", id, "error", err)
		return fmt.Errorf("ошибка при обновлении координат фото: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("обновление координат фото %s: %w", id, ports.ErrNoRowsAffected)
	}

	s.logger.Info("photo location updated",
		"id", id,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return nil
}

// DeletePhoto удаляет запись. Отсутствие записи не ошибка.
func (s *PhotoStorage) DeletePhoto(ctx context.Context, id uuid.UUID) error {
	start := time.Now()

	if _, err := s.db.ExecContext(ctx, s.db.Rebind(`DELETE FROM photos WHERE id = ?`), id); err != nil {
		s.logger.Error("failed to delete photo", "id", id, "error", err)
		return fmt.Errorf("ошибка при удалении фото: %w", err)
	}

	s.logger.Info("photo deleted",
		"id", id,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return nil
}

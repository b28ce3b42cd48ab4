package usecase

import (
	"context"
	"io"

	"github.com/google/uuid"

	"github.com/GoArmGo/GeoPhoto/internal/core/ports"
	"github.com/GoArmGo/GeoPhoto/internal/domain"
)

// UploadInput — загружаемый файл. Content читается один раз, до конца.
type UploadInput struct {
	Content      io.Reader
	ContentType  string
	OriginalName string
	// Description пустая строка — описания нет
	Description string
}

// PhotoUseCase определяет интерфейс для бизнес-логики работы с фото
type PhotoUseCase interface {
	// UploadPhoto проверяет файл, пишет его в blob storage, извлекает EXIF
	// (GPS и время съёмки) двумя независимыми чтениями из хранилища и сохраняет запись.
	UploadPhoto(ctx context.Context, principal domain.Principal, in UploadInput) (*domain.Photo, error)

	// ListPhotos возвращает фото пользователя, новые первыми
	ListPhotos(ctx context.Context, principal domain.Principal) ([]domain.Photo, error)

	// ListPhotosWithGPS возвращает только фото с координатами
	ListPhotosWithGPS(ctx context.Context, principal domain.Principal) ([]domain.Photo, error)

	// GetPhoto возвращает фото по id; чужое фото видит только администратор
	GetPhoto(ctx context.Context, principal domain.Principal, id uuid.UUID) (*domain.Photo, error)

	// ServeImage открывает файл изображения по ключу хранения. Body закрывает вызывающий.
	ServeImage(ctx context.Context, key string) (*ports.Blob, error)

	// DeletePhoto удаляет файл (или legacy-файл), затем запись
	DeletePhoto(ctx context.Context, principal domain.Principal, id uuid.UUID) error

	// UpdateLocation перезаписывает обе координаты; обе обязательны
	UpdateLocation(ctx context.Context, principal domain.Principal, id uuid.UUID, latitude, longitude *float64) (*domain.Photo, error)
}

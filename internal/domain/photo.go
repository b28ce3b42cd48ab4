package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	// ImageURLPrefix — текущий формат URL: блоб отдаётся по ключу через API.
	ImageURLPrefix = "/api/photos/image/"
	// LegacyURLPrefix — старый формат, файл лежал на диске до перехода на blob storage.
	LegacyURLPrefix = "/uploads/"
)

// Photo представляет запись о фотографии,
// соответствует таблице photos в бд
type Photo struct {
	ID           uuid.UUID  `json:"id" db:"id"`
	OwnerID      uuid.UUID  `json:"owner_id" db:"owner_id"`
	StorageKey   string     `json:"storage_key" db:"storage_key"`
	OriginalName string     `json:"file_name" db:"original_name"`
	URL          string     `json:"url" db:"url"`
	Description  *string    `json:"description,omitempty" db:"description"`
	Latitude     *float64   `json:"latitude,omitempty" db:"latitude"`
	Longitude    *float64   `json:"longitude,omitempty" db:"longitude"`
	CapturedAt   *time.Time `json:"taken_at,omitempty" db:"captured_at"`
	UploadedAt   time.Time  `json:"uploaded_at" db:"uploaded_at"`
}

func (Photo) TableName() string {
	return "photos"
}

// GeoPoint — пара координат. Отдельный тип, чтобы широта не жила без долготы.
type GeoPoint struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Location возвращает координаты фото или nil, если их нет.
func (p *Photo) Location() *GeoPoint {
	if p.Latitude == nil || p.Longitude == nil {
		return nil
	}
	return &GeoPoint{Latitude: *p.Latitude, Longitude: *p.Longitude}
}

// SetLocation записывает обе координаты сразу; nil очищает обе.
func (p *Photo) SetLocation(point *GeoPoint) {
	if point == nil {
		p.Latitude, p.Longitude = nil, nil
		return
	}
	lat, lon := point.Latitude, point.Longitude
	p.Latitude, p.Longitude = &lat, &lon
}

// ImageURL строит URL для отдачи блоба по ключу.
func ImageURL(storageKey string) string {
	return ImageURLPrefix + storageKey
}

// BlobLocationKind описывает, где физически лежат байты фото.
type BlobLocationKind int

const (
	BlobLocationUnknown BlobLocationKind = iota
	BlobLocationStore
	BlobLocationLegacyFile
)

// BlobLocation — результат разбора URL записи.
type BlobLocation struct {
	Kind BlobLocationKind
	Key  string
}

// ResolveBlobLocation определяет по URL записи, где лежит файл:
// в blob storage (текущий формат) или на диске (legacy).
func ResolveBlobLocation(url string) BlobLocation {
	switch {
	case strings.HasPrefix(url, ImageURLPrefix) && len(url) > len(ImageURLPrefix):
		return BlobLocation{Kind: BlobLocationStore, Key: strings.TrimPrefix(url, ImageURLPrefix)}
	case strings.HasPrefix(url, LegacyURLPrefix) && len(url) > len(LegacyURLPrefix):
		return BlobLocation{Kind: BlobLocationLegacyFile, Key: strings.TrimPrefix(url, LegacyURLPrefix)}
	default:
		return BlobLocation{Kind: BlobLocationUnknown}
	}
}

// FileExtension возвращает расширение имени файла вместе с точкой
// ("photo.JPG" -> ".JPG") или пустую строку.
func FileExtension(name string) string {
	idx := strings.LastIndex(name, ".")
	if idx == -1 {
		return ""
	}
	return name[idx:]
}

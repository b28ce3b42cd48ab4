package ports

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/GoArmGo/GeoPhoto/internal/domain"
	"github.com/google/uuid"
)

var (
	// ErrBlobNotFound возвращается blob storage, если ключа нет.
	ErrBlobNotFound = errors.New("blob not found")
	// ErrInvalidFileName — имя legacy-файла выходит за пределы каталога загрузок
	ErrInvalidFileName = errors.New("invalid file name")
	// ErrNoRowsAffected — запрос на изменение не нашёл строку
	ErrNoRowsAffected = errors.New("no rows affected")
	// ErrDuplicateUsername и ErrDuplicateEmail — нарушено ограничение уникальности users
	ErrDuplicateUsername = errors.New("duplicate username")
	ErrDuplicateEmail    = errors.New("duplicate email")
)

// PhotoStorage определяет методы для работы с записями о фотографиях.
// Отсутствие записи — (nil, nil), как и в остальных хранилищах.
type PhotoStorage interface {
	SavePhoto(ctx context.Context, photo *domain.Photo) error
	GetPhotoByID(ctx context.Context, id uuid.UUID) (*domain.Photo, error)
	ListPhotosByOwner(ctx context.Context, ownerID uuid.UUID) ([]domain.Photo, error)
	ListPhotosWithGPSByOwner(ctx context.Context, ownerID uuid.UUID) ([]domain.Photo, error)
	UpdatePhotoLocation(ctx context.Context, id uuid.UUID, point domain.GeoPoint) error
	DeletePhoto(ctx context.Context, id uuid.UUID) error
}

// UserStorage определяет методы для работы с пользователями
type UserStorage interface {
	CreateUser(ctx context.Context, user *domain.User) error
	GetUserByUsername(ctx context.Context, username string) (*domain.User, error)
	GetUserByID(ctx context.Context, id uuid.UUID) (*domain.User, error)
	ExistsByUsername(ctx context.Context, username string) (bool, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
}

// BlobInfo — то, что хранилище знает о блобе помимо байтов.
type BlobInfo struct {
	Key         string
	ContentType string
	OwnerID     string
	Size        int64
	StoredAt    time.Time
}

// Blob — открытый на чтение блоб. Body закрывает вызывающий.
type Blob struct {
	BlobInfo
	Body io.ReadCloser
}

// BlobStorage — порт для хранения бинарных данных (самих изображений).
// Каждый вызов Open возвращает независимый поток с начала блоба.
type BlobStorage interface {
	// Store пишет весь поток под ключом key. ownerTag сохраняется рядом с блобом.
	Store(ctx context.Context, key string, r io.Reader, contentType string, ownerTag string) error

	// Open открывает блоб на чтение или возвращает ErrBlobNotFound.
	Open(ctx context.Context, key string) (*Blob, error)

	// Delete удаляет блоб. Отсутствующий ключ ошибкой не считается.
	Delete(ctx context.Context, key string) error
}

// LegacyFileStore — старые файлы на диске (/uploads/...).
type LegacyFileStore interface {
	Remove(name string) error
}

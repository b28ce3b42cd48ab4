package usecase

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/GoArmGo/GeoPhoto/internal/core/ports"
	"github.com/GoArmGo/GeoPhoto/internal/domain"
	"github.com/GoArmGo/GeoPhoto/internal/messaging/payloads"
)

// defaultServeContentType отдаётся, если хранилище не знает точный тип изображения
const defaultServeContentType = "image/jpeg"

// PhotoDeps — зависимости photoUseCase
type PhotoDeps struct {
	Photos    ports.PhotoStorage
	Blobs     ports.BlobStorage
	Legacy    ports.LegacyFileStore
	Extractor ports.MetadataExtractor
	Cleanup   ports.CleanupPublisher
	Clock     Clock
	Keys      KeyGenerator
	Logger    *slog.Logger
}

// photoUseCase implements PhotoUseCase
type photoUseCase struct {
	photos    ports.PhotoStorage
	blobs     ports.BlobStorage
	legacy    ports.LegacyFileStore
	extractor ports.MetadataExtractor
	cleanup   ports.CleanupPublisher
	clock     Clock
	keys      KeyGenerator
	logger    *slog.Logger
}

// NewPhotoUseCase создает новый экземпляр PhotoUseCase.
// Clock и Keys по умолчанию — системные часы и UUID.
func NewPhotoUseCase(deps PhotoDeps) PhotoUseCase {
	if deps.Clock == nil {
		deps.Clock = SystemClock{}
	}
	if deps.Keys == nil {
		deps.Keys = UUIDKeyGenerator{}
	}
	return &photoUseCase{
		photos:    deps.Photos,
		blobs:     deps.Blobs,
		legacy:    deps.Legacy,
		extractor: deps.Extractor,
		cleanup:   deps.Cleanup,
		clock:     deps.Clock,
		keys:      deps.Keys,
		logger:    deps.Logger,
	}
}

func (uc *photoUseCase) UploadPhoto(ctx context.Context, principal domain.Principal, in UploadInput) (*domain.Photo, error) {
	start := time.Now()

	// Peek, чтобы проверить пустоту, не буферизуя файл целиком
	content := bufio.NewReader(in.Content)
	if _, err := content.Peek(1); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, newValidationError("file", "file must not be empty")
		}
		return nil, &StorageError{Op: "read upload", Err: err}
	}
	if !strings.HasPrefix(in.ContentType, "image/") {
		return nil, newValidationError("file", fmt.Sprintf("only image files are accepted, got %q", in.ContentType))
	}

	key := uc.keys.NewKey(in.OriginalName)
	if err := uc.blobs.Store(ctx, key, content, in.ContentType, principal.UserID.String()); err != nil {
		uc.logger.Error("blob write failed", "key", key, "owner_id", principal.UserID, "error", err)
		return nil, &StorageError{Op: "store", Err: err}
	}

	// Два независимых чтения из хранилища: извлечение EXIF поглощает поток.
	location := extract(ctx, uc, key, "gps", uc.extractor.ExtractGPS)
	capturedAt := extract(ctx, uc, key, "captured_at", uc.extractor.ExtractCapturedAt)

	photo := &domain.Photo{
		ID:           uuid.New(),
		OwnerID:      principal.UserID,
		StorageKey:   key,
		OriginalName: in.OriginalName,
		URL:          domain.ImageURL(key),
		Description:  optionalString(in.Description),
		CapturedAt:   capturedAt,
		UploadedAt:   uc.clock.Now().UTC().Truncate(time.Microsecond),
	}
	photo.SetLocation(location)

	if err := uc.photos.SavePhoto(ctx, photo); err != nil {
		uc.discardBlob(ctx, key, err)
		return nil, fmt.Errorf("usecase: ошибка при сохранении записи о фото: %w", err)
	}

	uc.logger.Info("photo uploaded",
		"id", photo.ID,
		"owner_id", principal.UserID,
		"key", key,
		"has_gps", location != nil,
		"has_captured_at", capturedAt != nil,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return photo, nil
}

// extract открывает блоб заново и запускает один проход извлечения.
// Любой сбой, включая панику разборщика, даёт nil.
func extract[T any](ctx context.Context, uc *photoUseCase, key, field string, fn func(io.Reader) (*T, error)) (value *T) {
	defer func() {
		if r := recover(); r != nil {
			uc.logger.Warn("metadata extraction panicked", "key", key, "field", field, "panic", r)
			value = nil
		}
	}()

	blob, err := uc.blobs.Open(ctx, key)
	if err != nil {
		uc.logger.Warn("cannot reopen blob for metadata", "key", key, "field", field, "error", err)
		return nil
	}
	defer blob.Body.Close()

	v, err := fn(blob.Body)
	if err != nil {
		uc.logger.Warn("metadata extraction failed", "key", key, "field", field, "error", err)
		return nil
	}
	return v
}

// discardBlob удаляет блоб, для которого не удалось сохранить запись.
// Если и это не вышло, блоб уходит в очередь очистки.
func (uc *photoUseCase) discardBlob(ctx context.Context, key string, cause error) {
	ctx = context.WithoutCancel(ctx)
	err := uc.blobs.Delete(ctx, key)
	if err == nil {
		return
	}
	uc.logger.Error("orphan blob left after failed save", "key", key, "error", err)

	job := payloads.CleanupPayload{
		Kind:   payloads.CleanupKindBlob,
		Key:    key,
		Reason: "record save failed: " + cause.Error(),
	}
	if err := uc.cleanup.PublishCleanupJob(ctx, job); err != nil {
		uc.logger.Error("failed to publish cleanup job", "key", key, "error", err)
	}
}

func (uc *photoUseCase) ListPhotos(ctx context.Context, principal domain.Principal) ([]domain.Photo, error) {
	photos, err := uc.photos.ListPhotosByOwner(ctx, principal.UserID)
	if err != nil {
		return nil, fmt.Errorf("usecase: ошибка при получении списка фото: %w", err)
	}
	return photos, nil
}

func (uc *photoUseCase) ListPhotosWithGPS(ctx context.Context, principal domain.Principal) ([]domain.Photo, error) {
	photos, err := uc.photos.ListPhotosWithGPSByOwner(ctx, principal.UserID)
	if err != nil {
		return nil, fmt.Errorf("usecase: ошибка при получении фото с GPS: %w", err)
	}
	return photos, nil
}

func (uc *photoUseCase) GetPhoto(ctx context.Context, principal domain.Principal, id uuid.UUID) (*domain.Photo, error) {
	return uc.ownedPhoto(ctx, principal, id)
}

// ownedPhoto — запись, видимая принципалу; чужая для него не существует
func (uc *photoUseCase) ownedPhoto(ctx context.Context, principal domain.Principal, id uuid.UUID) (*domain.Photo, error) {
	photo, err := uc.photos.GetPhotoByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("usecase: ошибка при получении фото %s: %w", id, err)
	}
	if photo == nil {
		return nil, ErrPhotoNotFound
	}
	if photo.OwnerID != principal.UserID && !principal.IsAdmin() {
		return nil, ErrPhotoNotFound
	}
	return photo, nil
}

func (uc *photoUseCase) ServeImage(ctx context.Context, key string) (*ports.Blob, error) {
	blob, err := uc.blobs.Open(ctx, key)
	if errors.Is(err, ports.ErrBlobNotFound) {
		return nil, ErrBlobNotFound
	}
	if err != nil {
		return nil, &StorageError{Op: "open", Err: err}
	}

	if !strings.HasPrefix(blob.ContentType, "image/") {
		blob.ContentType = defaultServeContentType
	}
	return blob, nil
}

// DeletePhoto: сначала файл, потом запись. Если файл в blob storage удалить
// не удалось, запись остаётся. Legacy-файл удаляется по возможности.
func (uc *photoUseCase) DeletePhoto(ctx context.Context, principal domain.Principal, id uuid.UUID) error {
	photo, err := uc.ownedPhoto(ctx, principal, id)
	if err != nil {
		return err
	}

	loc := domain.ResolveBlobLocation(photo.URL)
	switch loc.Kind {
	case domain.BlobLocationStore:
		if err := uc.blobs.Delete(ctx, loc.Key); err != nil {
			uc.logger.Error("blob delete failed, record kept", "id", id, "key", loc.Key, "error", err)
			return &StorageError{Op: "delete", Err: err}
		}
	case domain.BlobLocationLegacyFile:
		if err := uc.legacy.Remove(loc.Key); err != nil {
			uc.logger.Warn("legacy file delete failed", "id", id, "file", loc.Key, "error", err)
			uc.publishLegacyCleanup(ctx, loc.Key, err)
		}
	default:
		uc.logger.Warn("unrecognized photo url, no file removed", "id", id, "url", photo.URL)
	}

	if err := uc.photos.DeletePhoto(ctx, id); err != nil {
		return fmt.Errorf("usecase: ошибка при удалении записи о фото: %w", err)
	}

	uc.logger.Info("photo deleted", "id", id, "owner_id", photo.OwnerID)
	return nil
}

func (uc *photoUseCase) publishLegacyCleanup(ctx context.Context, name string, cause error) {
	if errors.Is(cause, ports.ErrInvalidFileName) {
		return
	}
	job := payloads.CleanupPayload{
		Kind:   payloads.CleanupKindLegacyFile,
		Key:    name,
		Reason: "legacy delete failed: " + cause.Error(),
	}
	if err := uc.cleanup.PublishCleanupJob(context.WithoutCancel(ctx), job); err != nil {
		uc.logger.Error("failed to publish cleanup job", "file", name, "error", err)
	}
}

func (uc *photoUseCase) UpdateLocation(ctx context.Context, principal domain.Principal, id uuid.UUID, latitude, longitude *float64) (*domain.Photo, error) {
	if latitude == nil || longitude == nil {
		return nil, newValidationError("location", "latitude and longitude are both required")
	}

	photo, err := uc.ownedPhoto(ctx, principal, id)
	if err != nil {
		return nil, err
	}

	point := domain.GeoPoint{Latitude: *latitude, Longitude: *longitude}
	err = uc.photos.UpdatePhotoLocation(ctx, id, point)
	if errors.Is(err, ports.ErrNoRowsAffected) {
		// запись удалили между чтением и обновлением
		return nil, ErrPhotoNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("usecase: ошибка при обновлении координат: %w", err)
	}

	photo.SetLocation(&point)
	uc.logger.Info("photo location updated", "id", id, "latitude", point.Latitude, "longitude", point.Longitude)
	return photo, nil
}

func optionalString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

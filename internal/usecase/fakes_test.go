package usecase

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/GoArmGo/GeoPhoto/internal/adapter/storage/memory"
	"github.com/GoArmGo/GeoPhoto/internal/core/ports"
	"github.com/GoArmGo/GeoPhoto/internal/domain"
	"github.com/GoArmGo/GeoPhoto/internal/messaging/payloads"
)

var errBoom = errors.New("boom")

// fakePhotos — хранилище записей в памяти
type fakePhotos struct {
	mu      sync.Mutex
	rows    map[uuid.UUID]domain.Photo
	saveErr error
	updates int
	// beforeUpdate вызывается перед UpdatePhotoLocation без блокировки
	beforeUpdate func()
}

func newFakePhotos() *fakePhotos {
	return &fakePhotos{rows: make(map[uuid.UUID]domain.Photo)}
}

func (f *fakePhotos) SavePhoto(_ context.Context, photo *domain.Photo) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.saveErr != nil {
		return f.saveErr
	}
	f.rows[photo.ID] = *photo
	return nil
}

func (f *fakePhotos) GetPhotoByID(_ context.Context, id uuid.UUID) (*domain.Photo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.rows[id]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

func (f *fakePhotos) ListPhotosByOwner(_ context.Context, ownerID uuid.UUID) ([]domain.Photo, error) {
	return f.list(ownerID, false), nil
}

func (f *fakePhotos) ListPhotosWithGPSByOwner(_ context.Context, ownerID uuid.UUID) ([]domain.Photo, error) {
	return f.list(ownerID, true), nil
}

func (f *fakePhotos) list(ownerID uuid.UUID, gpsOnly bool) []domain.Photo {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []domain.Photo{}
	for _, p := range f.rows {
		if p.OwnerID != ownerID || (gpsOnly && p.Location() == nil) {
			continue
		}
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UploadedAt.After(out[j].UploadedAt) })
	return out
}

func (f *fakePhotos) UpdatePhotoLocation(_ context.Context, id uuid.UUID, point domain.GeoPoint) error {
	if f.beforeUpdate != nil {
		f.beforeUpdate()
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updates++
	p, ok := f.rows[id]
	if !ok {
		return fmt.Errorf("update %s: %w", id, ports.ErrNoRowsAffected)
	}
	p.SetLocation(&point)
	f.rows[id] = p
	return nil
}

func (f *fakePhotos) DeletePhoto(_ context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.rows, id)
	return nil
}

func (f *fakePhotos) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.rows)
}

// flakyBlobs — memory.Store с управляемыми сбоями и счётчиком открытий
type flakyBlobs struct {
	mem       *memory.Store
	storeErr  error
	deleteErr error
	opens     int
	deletes   []string
}

func newFlakyBlobs() *flakyBlobs {
	return &flakyBlobs{mem: memory.NewStore()}
}

func (b *flakyBlobs) Store(ctx context.Context, key string, r io.Reader, contentType, ownerTag string) error {
	if b.storeErr != nil {
		return b.storeErr
	}
	return b.mem.Store(ctx, key, r, contentType, ownerTag)
}

func (b *flakyBlobs) Open(ctx context.Context, key string) (*ports.Blob, error) {
	b.opens++
	return b.mem.Open(ctx, key)
}

func (b *flakyBlobs) Delete(ctx context.Context, key string) error {
	b.deletes = append(b.deletes, key)
	if b.deleteErr != nil {
		return b.deleteErr
	}
	return b.mem.Delete(ctx, key)
}

func (b *flakyBlobs) Keys() []string {
	return b.mem.Keys()
}

type fakeLegacy struct {
	removed []string
	err     error
}

func (l *fakeLegacy) Remove(name string) error {
	l.removed = append(l.removed, name)
	return l.err
}

type recordingPublisher struct {
	jobs []payloads.CleanupPayload
}

func (p *recordingPublisher) PublishCleanupJob(_ context.Context, job payloads.CleanupPayload) error {
	p.jobs = append(p.jobs, job)
	return nil
}

// panickingExtractor имитирует падение разборщика EXIF
type panickingExtractor struct{}

func (panickingExtractor) ExtractGPS(io.Reader) (*domain.GeoPoint, error) {
	panic("corrupt ifd")
}

func (panickingExtractor) ExtractCapturedAt(r io.Reader) (*time.Time, error) {
	return nil, errBoom
}

// fakeUsers — хранилище пользователей в памяти
type fakeUsers struct {
	byName map[string]*domain.User
	err    error
	// createErr — ответ CreateUser, когда запись уже вставил кто-то другой
	createErr error
}

func newFakeUsers() *fakeUsers {
	return &fakeUsers{byName: make(map[string]*domain.User)}
}

func (f *fakeUsers) CreateUser(_ context.Context, user *domain.User) error {
	if f.err != nil {
		return f.err
	}
	if f.createErr != nil {
		return f.createErr
	}
	u := *user
	f.byName[user.Username] = &u
	return nil
}

func (f *fakeUsers) GetUserByUsername(_ context.Context, username string) (*domain.User, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.byName[username], nil
}

func (f *fakeUsers) GetUserByID(_ context.Context, id uuid.UUID) (*domain.User, error) {
	if f.err != nil {
		return nil, f.err
	}
	for _, u := range f.byName {
		if u.ID == id {
			return u, nil
		}
	}
	return nil, nil
}

func (f *fakeUsers) ExistsByUsername(_ context.Context, username string) (bool, error) {
	_, ok := f.byName[username]
	return ok, f.err
}

func (f *fakeUsers) ExistsByEmail(_ context.Context, email string) (bool, error) {
	for _, u := range f.byName {
		if u.Email == email {
			return true, f.err
		}
	}
	return false, f.err
}

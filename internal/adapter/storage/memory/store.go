// Package memory — blob storage в памяти процесса (BLOB_BACKEND=memory и тесты).
package memory

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sort"
	"sync"
	"time"

	"github.com/GoArmGo/GeoPhoto/internal/core/ports"
)

type object struct {
	data []byte
	info ports.BlobInfo
}

// Store хранит блобы в map. Безопасен для конкурентного использования.
type Store struct {
	objects map[string]object
	mu      sync.RWMutex
}

var _ ports.BlobStorage = (*Store)(nil)

// NewStore создаёт пустое хранилище
func NewStore() *Store {
	return &Store{objects: make(map[string]object)}
}

func (s *Store) Store(ctx context.Context, key string, r io.Reader, contentType string, ownerTag string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("memory: failed to read content: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[key] = object{
		data: data,
		info: ports.BlobInfo{
			Key:         key,
			ContentType: contentType,
			OwnerID:     ownerTag,
			Size:        int64(len(data)),
			StoredAt:    time.Now().UTC(),
		},
	}
	return nil
}

// Open возвращает новый reader поверх сохранённых байтов.
func (s *Store) Open(ctx context.Context, key string) (*ports.Blob, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	obj, ok := s.objects[key]
	if !ok {
		return nil, ports.ErrBlobNotFound
	}
	return &ports.Blob{BlobInfo: obj.info, Body: io.NopCloser(bytes.NewReader(obj.data))}, nil
}

func (s *Store) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.objects, key)
	return nil
}

// Keys возвращает отсортированный список ключей.
func (s *Store) Keys() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	keys := make([]string, 0, len(s.objects))
	for k := range s.objects {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Package local хранит блобы файлами на диске, а индекс ключей — в badger.
package local

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/GoArmGo/GeoPhoto/internal/core/ports"
)

// indexEntry — запись индекса: где лежит файл и что о нём известно
type indexEntry struct {
	File        string    `json:"file"`
	ContentType string    `json:"content_type"`
	OwnerID     string    `json:"owner_id"`
	Size        int64     `json:"size"`
	StoredAt    time.Time `json:"stored_at"`
}

// Store — blob storage на локальной файловой системе.
type Store struct {
	root   string
	db     *badger.DB
	mu     sync.RWMutex
	now    func() time.Time
	logger *slog.Logger
}

var _ ports.BlobStorage = (*Store)(nil)

// NewStore открывает (или создаёт) хранилище в каталоге root с индексом в indexDir.
func NewStore(root, indexDir string, logger *slog.Logger) (*Store, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("local: не удалось создать каталог %s: %w", root, err)
	}

	opts := badger.DefaultOptions(indexDir)
	opts.Logger = nil
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("local: не удалось открыть индекс: %w", err)
	}

	return &Store{root: root, db: db, now: time.Now, logger: logger}, nil
}

// Store пишет файл атомарно (временный файл + rename), затем записывает индекс.
func (s *Store) Store(ctx context.Context, key string, r io.Reader, contentType string, ownerTag string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	file := fileName(key)
	size, err := s.writeFile(filepath.Join(s.root, file), r)
	if err != nil {
		return fmt.Errorf("local: ошибка записи %s: %w", key, err)
	}

	entry := indexEntry{
		File:        file,
		ContentType: contentType,
		OwnerID:     ownerTag,
		Size:        size,
		StoredAt:    s.now().UTC(),
	}
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("local: ошибка сериализации индекса: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key), data)
	}); err != nil {
		_ = os.Remove(filepath.Join(s.root, file))
		return fmt.Errorf("local: ошибка записи индекса %s: %w", key, err)
	}

	s.logger.Debug("blob stored", "backend", "local", "key", key, "size", size)
	return nil
}

// Open открывает файл блоба. Ключа нет в индексе или файла нет на диске — ErrBlobNotFound.
func (s *Store) Open(ctx context.Context, key string) (*ports.Blob, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	entry, err := s.lookup(key)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(filepath.Join(s.root, entry.File))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ports.ErrBlobNotFound
		}
		return nil, fmt.Errorf("local: не удалось открыть %s: %w", key, err)
	}

	return &ports.Blob{
		BlobInfo: ports.BlobInfo{
			Key:         key,
			ContentType: entry.ContentType,
			OwnerID:     entry.OwnerID,
			Size:        entry.Size,
			StoredAt:    entry.StoredAt,
		},
		Body: f,
	}, nil
}

// Delete удаляет файл и запись индекса
func (s *Store) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	entry, err := s.lookup(key)
	if errors.Is(err, ports.ErrBlobNotFound) {
		return nil
	}
	if err != nil {
		return err
	}

	if err := os.Remove(filepath.Join(s.root, entry.File)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("local: не удалось удалить файл %s: %w", key, err)
	}

	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete([]byte(key))
	})
}

// Close закрывает индекс
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func (s *Store) lookup(key string) (*indexEntry, error) {
	var entry indexEntry
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &entry)
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, ports.ErrBlobNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("local: ошибка чтения индекса %s: %w", key, err)
	}
	return &entry, nil
}

func (s *Store) writeFile(destPath string, r io.Reader) (int64, error) {
	tmp, err := os.CreateTemp(filepath.Dir(destPath), ".tmp-*")
	if err != nil {
		return 0, fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmp.Name()

	success := false
	defer func() {
		if !success {
			_ = os.Remove(tmpPath)
		}
	}()

	written, err := io.Copy(tmp, r)
	if err != nil {
		_ = tmp.Close()
		return 0, fmt.Errorf("failed to write data: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return 0, fmt.Errorf("failed to sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return 0, fmt.Errorf("failed to close temp file: %w", err)
	}

	if err := os.Rename(tmpPath, destPath); err != nil {
		return 0, fmt.Errorf("failed to rename temp file: %w", err)
	}

	success = true
	return written, nil
}

// fileName — имя файла на диске. Ключ содержит пользовательское расширение,
// поэтому в путь он не попадает.
func fileName(key string) string {
	sum := sha256.Sum256([]byte(key))
	return hex.EncodeToString(sum[:])
}

// Package legacy работает с файлами, загруженными до перехода на blob storage.
// Они лежат в одном каталоге и доступны по URL /uploads/{имя}.
package legacy

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/GoArmGo/GeoPhoto/internal/core/ports"
)

// FileStore — каталог старых загрузок
type FileStore struct {
	dir string
}

var _ ports.LegacyFileStore = (*FileStore)(nil)

// NewFileStore создаёт FileStore для каталога dir
func NewFileStore(dir string) *FileStore {
	return &FileStore{dir: dir}
}

// Dir возвращает каталог, из которого раздаётся /uploads/
func (f *FileStore) Dir() string {
	return f.dir
}

// Remove удаляет файл. Отсутствующий файл ошибкой не считается.
func (f *FileStore) Remove(name string) error {
	path, err := f.resolve(name)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("legacy: не удалось удалить %s: %w", name, err)
	}
	return nil
}

func (f *FileStore) resolve(name string) (string, error) {
	if name == "" || strings.ContainsAny(name, `/\`) || name == "." || name == ".." {
		return "", fmt.Errorf("legacy: %w: %q", ports.ErrInvalidFileName, name)
	}
	return filepath.Join(f.dir, name), nil
}

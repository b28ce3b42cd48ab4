package legacy

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GoArmGo/GeoPhoto/internal/core/ports"
)

func TestRemove(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "old.jpg")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))

	fs := NewFileStore(dir)
	require.NoError(t, fs.Remove("old.jpg"))

	_, err := os.Stat(path)
	assert.True(t, os.IsNotExist(err))

	assert.NoError(t, fs.Remove("old.jpg"), "already gone")
}

func TestRemoveRejectsTraversal(t *testing.T) {
	fs := NewFileStore(t.TempDir())

	for _, name := range []string{"", ".", "..", "../etc/passwd", `..\boot.ini`, "sub/file.jpg"} {
		err := fs.Remove(name)
		assert.ErrorIs(t, err, ports.ErrInvalidFileName, name)
	}
}

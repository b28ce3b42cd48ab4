package memory

import (
	"bytes"
	"context"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GoArmGo/GeoPhoto/internal/core/ports"
)

func TestStore(t *testing.T) {
	ctx := context.Background()
	s := NewStore()

	content := []byte("payload")
	require.NoError(t, s.Store(ctx, "a.jpg", bytes.NewReader(content), "image/jpeg", "u1"))
	assert.Equal(t, []string{"a.jpg"}, s.Keys())

	first, err := s.Open(ctx, "a.jpg")
	require.NoError(t, err)
	second, err := s.Open(ctx, "a.jpg")
	require.NoError(t, err)

	b1, _ := io.ReadAll(first.Body)
	b2, _ := io.ReadAll(second.Body)
	assert.Equal(t, content, b1)
	assert.Equal(t, content, b2)
	assert.Equal(t, "u1", first.OwnerID)

	require.NoError(t, s.Delete(ctx, "a.jpg"))
	_, err = s.Open(ctx, "a.jpg")
	assert.ErrorIs(t, err, ports.ErrBlobNotFound)
	assert.NoError(t, s.Delete(ctx, "a.jpg"))
}

func TestStoreCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	s := NewStore()
	assert.ErrorIs(t, s.Store(ctx, "a", bytes.NewReader(nil), "image/jpeg", "u"), context.Canceled)
	assert.Empty(t, s.Keys())
}

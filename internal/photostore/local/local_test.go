package local

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"treeplant/api/internal/photostore"
)

func TestSaveGetDelete(t *testing.T) {
	dir := t.TempDir()
	store, err := New(dir, nil)
	require.NoError(t, err)
	ctx := context.Background()

	key, err := store.Save(ctx, "visit", "image/png", strings.NewReader("png-bytes"))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(key, "visit_"))
	assert.Equal(t, ".png", filepath.Ext(key))

	rc, mimeType, err := store.Get(ctx, key)
	require.NoError(t, err)
	data, err := io.ReadAll(rc)
	require.NoError(t, rc.Close())
	require.NoError(t, err)
	assert.Equal(t, "png-bytes", string(data))
	assert.Equal(t, "image/png", mimeType)

	require.NoError(t, store.Delete(ctx, key))
	_, _, err = store.Get(ctx, key)
	assert.True(t, errors.Is(err, photostore.ErrNotFound))
	assert.True(t, errors.Is(store.Delete(ctx, key), photostore.ErrNotFound))
}

func TestGetRejectsTraversal(t *testing.T) {
	parent := t.TempDir()
	dir := filepath.Join(parent, "photos")
	store, err := New(dir, nil)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(parent, "secret.jpg"), []byte("x"), 0o644))

	for _, key := range []string{"../secret.jpg", "..", "", "a/b.jpg"} {
		_, _, err := store.Get(context.Background(), key)
		assert.ErrorIs(t, err, photostore.ErrNotFound, key)
	}
}

func TestSaveDefaultsToJPEG(t *testing.T) {
	store, err := New(t.TempDir(), nil)
	require.NoError(t, err)

	key, err := store.Save(context.Background(), "planting", "application/octet-stream", strings.NewReader("x"))
	require.NoError(t, err)
	assert.Equal(t, ".jpg", filepath.Ext(key))
	assert.Equal(t, "image/jpeg", photostore.MimeTypeForKey(key))
}

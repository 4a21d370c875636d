package storage

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalBackendSaveAndDelete(t *testing.T) {
	root := t.TempDir()
	backend := NewLocalBackend(root)
	key := "media/avatars/u1/a.png"

	require.NoError(t, backend.Save(context.Background(), key, bytes.NewReader([]byte("png")), 3, "image/png"))

	content, err := os.ReadFile(filepath.Join(root, "media", "avatars", "u1", "a.png"))
	require.NoError(t, err)
	assert.Equal(t, "png", string(content))

	require.NoError(t, backend.Delete(context.Background(), key))
	_, err = os.Stat(filepath.Join(root, "media", "avatars", "u1", "a.png"))
	assert.True(t, os.IsNotExist(err))

	// 再次删除不存在的文件不报错
	assert.NoError(t, backend.Delete(context.Background(), key))
}

func TestLocalBackendRejectsEscapingKeys(t *testing.T) {
	backend := NewLocalBackend(t.TempDir())

	err := backend.Save(context.Background(), "media/avatars/u1/../../../../etc/passwd", bytes.NewReader(nil), 0, "image/png")
	assert.True(t, errors.Is(err, ErrOutsideRoot), "unexpected error: %v", err)

	err = backend.Delete(context.Background(), "../outside.png")
	assert.True(t, errors.Is(err, ErrOutsideRoot), "unexpected error: %v", err)
}

func TestLocalBackendUploadTargetAndURL(t *testing.T) {
	backend := NewLocalBackend("public")

	target, err := backend.PrepareUpload(context.Background(), "media/avatars/u1/a b.png", "image/png")
	require.NoError(t, err)
	assert.Equal(t, "/api/dashboard/avatars/upload?key=media%2Favatars%2Fu1%2Fa+b.png", target.URL)
	assert.Equal(t, "POST", target.Method)
	assert.False(t, target.RequiresFinalize)

	assert.Equal(t, "/media/avatars/u/x.png", backend.PublicURL("//media/avatars/u/x.png"))
	assert.Equal(t, "media/avatars", backend.KeyPrefix())
	assert.Equal(t, ModeLocal, backend.Mode())
}

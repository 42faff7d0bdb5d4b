package storage

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	cfg "github.com/portalautarca/portal/internal/config"
)

func TestValidKey(t *testing.T) {
	tests := []struct {
		key  string
		want bool
	}{
		{"1700000000000-abc.pdf", true},
		{"cover-1-x.png", true},
		{"", false},
		{"..", false},
		{"../etc/passwd", false},
		{"a/b.pdf", false},
		{`a\b.pdf`, false},
		{"a..b", false},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			assert.Equal(t, tt.want, ValidKey(tt.key))
		})
	}
}

func TestLocalStorage(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "uploads")
	s, err := NewLocalStorage(dir)
	require.NoError(t, err)
	ctx := context.Background()

	n, err := s.Save(ctx, "doc.txt", strings.NewReader("hello"))
	require.NoError(t, err)
	assert.Equal(t, int64(5), n)

	_, err = s.Save(ctx, "doc.txt", strings.NewReader("again"))
	assert.Error(t, err, "keys are never overwritten")

	rc, err := s.Open(ctx, "doc.txt")
	require.NoError(t, err)
	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	require.NoError(t, rc.Close())
	assert.Equal(t, "hello", string(data))

	require.NoError(t, s.Delete(ctx, "doc.txt"))
	require.NoError(t, s.Delete(ctx, "doc.txt"), "missing key is not an error")

	_, err = s.Open(ctx, "doc.txt")
	assert.ErrorIs(t, err, ErrObjectNotFound)

	_, err = s.Open(ctx, "../secret")
	assert.ErrorIs(t, err, ErrObjectNotFound)

	_, err = s.Save(ctx, "../escape.txt", strings.NewReader("x"))
	assert.Error(t, err)
	_, statErr := os.Stat(filepath.Join(filepath.Dir(dir), "escape.txt"))
	assert.True(t, os.IsNotExist(statErr))
}

func TestNewSelectsDriver(t *testing.T) {
	s, err := New(&cfg.Config{StorageDriver: "local", UploadsDir: t.TempDir()})
	require.NoError(t, err)
	assert.IsType(t, &LocalStorage{}, s)

	_, err = New(&cfg.Config{StorageDriver: "ftp"})
	assert.Error(t, err)
}

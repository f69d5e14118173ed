package storage

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObjectKey(t *testing.T) {
	key := Object{Prefix: "/logos/abc/", Filename: "Logo.PNG"}.Key()
	assert.True(t, strings.HasPrefix(key, "logos/abc/"))
	assert.True(t, strings.HasSuffix(key, ".png"))

	bare := Object{Filename: "logo.svg"}.Key()
	assert.NotContains(t, bare, "/")
}

func TestLocalStorage_RoundTrip(t *testing.T) {
	ctx := context.Background()
	s, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	key, size, err := s.Upload(ctx, Object{Prefix: "logos/u1", Filename: "logo.png", ContentType: "image/png"}, bytes.NewReader([]byte("png-bytes")))
	require.NoError(t, err)
	assert.Equal(t, int64(9), size)

	rc, err := s.Download(ctx, key)
	require.NoError(t, err)
	data, err := io.ReadAll(rc)
	rc.Close()
	require.NoError(t, err)
	assert.Equal(t, "png-bytes", string(data))

	require.NoError(t, s.Delete(ctx, key))
	require.NoError(t, s.Delete(ctx, key), "deleting twice is fine")

	_, err = s.Download(ctx, key)
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestLocalStorage_RejectsTraversal(t *testing.T) {
	s, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	_, err = s.Download(context.Background(), "../../etc/passwd")
	assert.Error(t, err)
	assert.False(t, errors.Is(err, ErrNotFound))
}

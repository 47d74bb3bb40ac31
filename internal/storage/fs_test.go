package storage

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMemStorage(t *testing.T) Storage {
	t.Helper()
	s, err := NewFS(afero.NewMemMapFs(), "vault", "documents")
	require.NoError(t, err)
	return s
}

func TestFSStorage_PutGetRoundTrip(t *testing.T) {
	s := newMemStorage(t)
	ctx := context.Background()

	info, err := s.Put(ctx, "a_1.txt", strings.NewReader("hello"), PutObjectOptions{Size: 5, ContentType: "text/plain"})
	require.NoError(t, err)
	assert.Equal(t, "a_1.txt", info.Key)
	assert.Equal(t, int64(5), info.Size)
	assert.Equal(t, "text/plain", info.ContentType)

	rc, got, err := s.Get(ctx, "a_1.txt")
	require.NoError(t, err)
	defer rc.Close()
	body, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(body))
	assert.Equal(t, int64(5), got.Size)
	assert.False(t, got.LastModified.IsZero())
}

func TestFSStorage_Missing(t *testing.T) {
	s := newMemStorage(t)
	ctx := context.Background()

	_, _, err := s.Get(ctx, "nope.pdf")
	assert.True(t, errors.Is(err, ErrObjectNotFound))

	ok, err := Exists(ctx, s, "nope.pdf")
	assert.NoError(t, err)
	assert.False(t, ok)

	// Deleting a missing object is not an error.
	assert.NoError(t, s.Delete(ctx, "nope.pdf"))
}

func TestFSStorage_RejectsTraversal(t *testing.T) {
	s := newMemStorage(t)
	ctx := context.Background()

	for _, key := range []string{"", "..", "../secret", "a/b.txt"} {
		_, err := s.Stat(ctx, key)
		assert.ErrorIs(t, err, ErrObjectNotFound, key)
	}
}

func TestFSStorage_ListSortedFilesOnly(t *testing.T) {
	fsys := afero.NewMemMapFs()
	s, err := NewFS(fsys, "vault", "documents")
	require.NoError(t, err)
	ctx := context.Background()

	for _, k := range []string{"b.txt", "a.txt", "c.pdf"} {
		_, err := s.Put(ctx, k, strings.NewReader(k), PutObjectOptions{Size: -1})
		require.NoError(t, err)
	}
	require.NoError(t, fsys.MkdirAll("vault/documents/sub", 0o755))

	list, err := s.List(ctx)
	require.NoError(t, err)

	keys := make([]string, 0, len(list))
	for _, o := range list {
		keys = append(keys, o.Key)
	}
	assert.Equal(t, []string{"a.txt", "b.txt", "c.pdf"}, keys)
}

func TestFSStorage_DeleteAndReadAll(t *testing.T) {
	s := newMemStorage(t)
	ctx := context.Background()

	_, err := s.Put(ctx, "doc.txt", strings.NewReader("content"), PutObjectOptions{Size: 7})
	require.NoError(t, err)

	data, _, err := ReadAll(ctx, s, "doc.txt")
	require.NoError(t, err)
	assert.Equal(t, "content", string(data))

	require.NoError(t, s.Delete(ctx, "doc.txt"))
	ok, err := Exists(ctx, s, "doc.txt")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestNewFS_RequiresRoot(t *testing.T) {
	_, err := NewFS(afero.NewMemMapFs(), "", "")
	assert.Error(t, err)
}

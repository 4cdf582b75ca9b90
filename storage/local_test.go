package storage

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalStoreLifecycle(t *testing.T) {
	s, err := NewLocalStore(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	ok, err := s.Exists(ctx, "a.txt")
	require.NoError(t, err)
	assert.False(t, ok)

	n, err := s.Save(ctx, "a.txt", strings.NewReader("hello"))
	require.NoError(t, err)
	assert.EqualValues(t, 5, n)

	_, err = s.Save(ctx, "a.txt", strings.NewReader("again"))
	assert.Error(t, err, "existing objects are never overwritten")

	rc, err := s.Open(ctx, "a.txt")
	require.NoError(t, err)
	b, err := io.ReadAll(rc)
	require.NoError(t, err)
	require.NoError(t, rc.Close())
	assert.Equal(t, "hello", string(b))

	require.NoError(t, s.Remove(ctx, "a.txt"))
	require.NoError(t, s.Remove(ctx, "a.txt"))

	_, err = s.Open(ctx, "a.txt")
	assert.True(t, errors.Is(err, ErrNotExist))
}

func TestLocalStoreRejectsTraversal(t *testing.T) {
	s, err := NewLocalStore(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	for _, name := range []string{"../escape", "sub/file", ".hidden", ""} {
		_, err := s.Save(ctx, name, strings.NewReader("x"))
		assert.Error(t, err, name)
		ok, err := s.Exists(ctx, name)
		assert.NoError(t, err)
		assert.False(t, ok)
	}
}

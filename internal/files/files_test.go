package files

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUnconfinedRoundTrip(t *testing.T) {
	s, err := NewStore("")
	require.NoError(t, err)
	ctx := context.Background()

	path := filepath.Join(t.TempDir(), "nested", "x.txt")
	ok, err := s.Exists(ctx, path)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.Write(ctx, path, "héllo\n"))
	got, err := s.Read(ctx, path)
	require.NoError(t, err)
	assert.Equal(t, "héllo\n", got)

	ok, err = s.Exists(ctx, path)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestReadMissing(t *testing.T) {
	s, _ := NewStore("")
	_, err := s.Read(context.Background(), filepath.Join(t.TempDir(), "missing"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestConfinedRoot(t *testing.T) {
	root := t.TempDir()
	s, err := NewStore(root)
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, s.Write(ctx, "docs/a.txt", "a"))
	_, err = os.Stat(filepath.Join(root, "docs", "a.txt"))
	require.NoError(t, err)

	got, err := s.Read(ctx, filepath.Join(root, "docs", "a.txt"))
	require.NoError(t, err)
	assert.Equal(t, "a", got)

	for _, p := range []string{"../escape.txt", "docs/../../escape.txt", "/etc/passwd"} {
		_, err := s.Resolve(p)
		assert.ErrorIs(t, err, ErrOutsideRoot, p)

		assert.ErrorIs(t, s.Write(ctx, p, "x"), ErrOutsideRoot, p)

		ok, err := s.Exists(ctx, p)
		assert.NoError(t, err)
		assert.False(t, ok, p)
	}

	// A sibling sharing the root's name prefix is still outside.
	_, err = s.Resolve(root + "-other/file")
	assert.ErrorIs(t, err, ErrOutsideRoot)
}

func TestEmptyPath(t *testing.T) {
	s, _ := NewStore("")
	_, err := s.Read(context.Background(), "")
	assert.Error(t, err)
}

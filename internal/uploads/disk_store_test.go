package uploads

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDiskStoreRoundTrip(t *testing.T) {
	s, err := NewDiskStore(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, "u1", "main.js", []byte("console.log(1)")))
	got, err := s.Get(ctx, "u1", "main.js")
	require.NoError(t, err)
	require.Equal(t, "console.log(1)", string(got))
}

func TestDiskStoreIsolatesUsers(t *testing.T) {
	s, err := NewDiskStore(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, "u1", "a.txt", []byte("one")))
	require.NoError(t, s.Put(ctx, "u2", "a.txt", []byte("two")))

	got, err := s.Get(ctx, "u2", "a.txt")
	require.NoError(t, err)
	require.Equal(t, "two", string(got))

	names, err := s.List(ctx, "u1")
	require.NoError(t, err)
	require.Equal(t, []string{"a.txt"}, names)
}

func TestDiskStoreDelete(t *testing.T) {
	s, err := NewDiskStore(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, "u1", "a.txt", []byte("x")))
	require.NoError(t, s.Delete(ctx, "u1", "a.txt"))

	_, err = s.Get(ctx, "u1", "a.txt")
	require.ErrorIs(t, err, ErrNotFound)

	err = s.Delete(ctx, "u1", "a.txt")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestDiskStoreRejectsTraversal(t *testing.T) {
	s, err := NewDiskStore(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	require.Error(t, s.Put(ctx, "u1", "../escape.txt", []byte("x")))
	require.Error(t, s.Put(ctx, "u1", "a/b.txt", []byte("x")))
	require.Error(t, s.Put(ctx, "../u1", "a.txt", []byte("x")))
	_, err = s.Get(ctx, "u1", "")
	require.Error(t, err)
}

func TestDiskStoreListEmptyUser(t *testing.T) {
	s, err := NewDiskStore(t.TempDir())
	require.NoError(t, err)
	names, err := s.List(context.Background(), "nobody")
	require.NoError(t, err)
	require.Empty(t, names)
}

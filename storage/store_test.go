package storage

import (
	"context"
	"errors"
	"io"
	"path/filepath"
	"strings"
	"testing"

	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-billy/v5/util"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMemStore() *LocalStore {
	return NewLocalStoreFS(memfs.New(), "/storage")
}

func TestLocalStore_WriteAndList(t *testing.T) {
	ctx := context.Background()
	s := newMemStore()

	require.NoError(t, s.EnsureUserDirectory(ctx, "alice"))

	p, n, err := s.WriteFile(ctx, "alice", "report.pdf", "application/pdf", strings.NewReader("hello"))
	require.NoError(t, err)
	assert.Equal(t, int64(5), n)
	assert.Equal(t, filepath.Join(s.Root(), "alice", "report.pdf"), p)
	assert.Equal(t, "/storage/alice/report.pdf", s.LogicalPath("alice", "report.pdf"))

	files, err := s.ListUserFiles(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, []string{p}, files)

	data, err := util.ReadFile(s.fs, "alice/report.pdf")
	require.NoError(t, err)
	assert.Equal(t, "hello", string(data))
}

func TestLocalStore_LastWriteWins(t *testing.T) {
	ctx := context.Background()
	s := newMemStore()

	p1, _, err := s.WriteFile(ctx, "alice", "a.txt", "", strings.NewReader("first version"))
	require.NoError(t, err)
	p2, n, err := s.WriteFile(ctx, "alice", "a.txt", "", strings.NewReader("v2"))
	require.NoError(t, err)

	assert.Equal(t, p1, p2)
	assert.Equal(t, int64(2), n)
	data, err := util.ReadFile(s.fs, "alice/a.txt")
	require.NoError(t, err)
	assert.Equal(t, "v2", string(data))
}

func TestLocalStore_UsersAreIsolated(t *testing.T) {
	ctx := context.Background()
	s := newMemStore()

	pa, _, err := s.WriteFile(ctx, "alice", "report.pdf", "", strings.NewReader("alice"))
	require.NoError(t, err)
	pb, _, err := s.WriteFile(ctx, "bob", "report.pdf", "", strings.NewReader("bob"))
	require.NoError(t, err)
	assert.NotEqual(t, pa, pb)

	require.NoError(t, s.DeleteFile(ctx, pa))

	files, err := s.ListUserFiles(ctx, "bob")
	require.NoError(t, err)
	assert.Equal(t, []string{pb}, files)
}

func TestLocalStore_RejectsBadNames(t *testing.T) {
	ctx := context.Background()
	s := newMemStore()

	for _, name := range []string{"", ".", "..", "../x", "a/b", `a\b`} {
		_, _, err := s.WriteFile(ctx, "alice", name, "", strings.NewReader("x"))
		assert.ErrorIs(t, err, ErrInvalidName, name)
	}
	_, _, err := s.WriteFile(ctx, "..", "x.txt", "", strings.NewReader("x"))
	assert.ErrorIs(t, err, ErrInvalidName)
}

func TestLocalStore_DeleteFile(t *testing.T) {
	ctx := context.Background()
	s := newMemStore()

	p, _, err := s.WriteFile(ctx, "alice", "a.txt", "", strings.NewReader("x"))
	require.NoError(t, err)

	require.NoError(t, s.DeleteFile(ctx, p))
	// already gone
	require.NoError(t, s.DeleteFile(ctx, p))

	assert.ErrorIs(t, s.DeleteFile(ctx, s.Root()), ErrOutsideStore)
}

func TestLocalStore_DeleteUserDirectory(t *testing.T) {
	ctx := context.Background()
	s := newMemStore()

	for _, name := range []string{"a.txt", "b.txt"} {
		_, _, err := s.WriteFile(ctx, "alice", name, "", strings.NewReader(name))
		require.NoError(t, err)
	}
	require.NoError(t, s.DeleteUserDirectory(ctx, "alice"))

	files, err := s.ListUserFiles(ctx, "alice")
	require.NoError(t, err)
	assert.Empty(t, files)

	require.NoError(t, s.DeleteUserDirectory(ctx, "nobody"))
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, errors.New("connection reset") }

func TestLocalStore_WriteFailureLeavesNoFile(t *testing.T) {
	ctx := context.Background()
	s := newMemStore()

	_, _, err := s.WriteFile(ctx, "alice", "broken.bin", "", io.MultiReader(strings.NewReader("partial"), failingReader{}))
	require.Error(t, err)

	files, err := s.ListUserFiles(ctx, "alice")
	require.NoError(t, err)
	assert.Empty(t, files)
}

func TestLocalStore_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, _, err := newMemStore().WriteFile(ctx, "alice", "a.txt", "", strings.NewReader("x"))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestLocalStore_OnDisk(t *testing.T) {
	ctx := context.Background()
	s, err := NewLocalStore(t.TempDir(), "/storage")
	require.NoError(t, err)

	p, _, err := s.WriteFile(ctx, "alice", "a.txt", "text/plain", strings.NewReader("disk"))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(p, s.Root()))
	require.NoError(t, s.DeleteFile(ctx, p))

	outside := filepath.Join(filepath.Dir(s.Root()), "elsewhere", "a.txt")
	assert.ErrorIs(t, s.DeleteFile(ctx, outside), ErrOutsideStore)
}

func TestLocalStore_ListUserDirectories(t *testing.T) {
	ctx := context.Background()
	s := newMemStore()

	dirs, err := s.ListUserDirectories(ctx)
	require.NoError(t, err)
	assert.Empty(t, dirs)

	require.NoError(t, s.EnsureUserDirectory(ctx, "alice"))
	_, _, err = s.WriteFile(ctx, "bob", "a.txt", "", strings.NewReader("a"))
	require.NoError(t, err)
	require.NoError(t, util.WriteFile(s.fs, "stray.txt", []byte("x"), 0o644))

	dirs, err = s.ListUserDirectories(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"alice", "bob"}, dirs)
}

func TestDirectoryOf(t *testing.T) {
	tests := []struct {
		key  string
		want string
	}{
		{"users/alice/report.pdf", "alice"},
		{"users/bob/", "bob"},
		{"users/", ""},
		{"users/loose", ""},
		{"other/alice/report.pdf", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, directoryOf(tt.key), tt.key)
	}

	seen := make(map[string]bool)
	var dirs []string
	for _, key := range []string{"users/alice/a", "users/alice/b", "users/bob/a", "misc"} {
		dirs = appendDirectory(dirs, seen, key)
	}
	assert.Equal(t, []string{"alice", "bob"}, dirs)
}

package media

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reelforge/reelforge-agent/internal/apperr"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewStore(filepath.Join(t.TempDir(), "media"), 0, nil)
	require.NoError(t, err)
	return s
}

func blobFiles(t *testing.T, s *Store) []string {
	t.Helper()
	entries, err := os.ReadDir(s.Dir())
	require.NoError(t, err)
	var names []string
	for _, e := range entries {
		if e.Type().IsRegular() {
			names = append(names, e.Name())
		}
	}
	return names
}

func TestComputeKey(t *testing.T) {
	k1, err := ComputeKey([]byte("hello"), ".JPG")
	require.NoError(t, err)
	// sha256("hello") = 2cf24dba5fb0a30e...
	assert.Equal(t, Key("2cf24dba5fb0a30e.jpg"), k1)
	assert.True(t, k1.Valid())
	assert.Equal(t, ".jpg", k1.Ext())

	k2, err := ComputeKey([]byte("hello"), "jpg")
	require.NoError(t, err)
	assert.Equal(t, k1, k2, "same bytes and extension must give the same key")

	k3, err := ComputeKey([]byte("hello"), ".png")
	require.NoError(t, err)
	assert.NotEqual(t, k1, k3)
}

func TestNormalizeExt(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{".MP4", ".mp4", false},
		{"mov", ".mov", false},
		{"holiday.JPEG", ".jpeg", false},
		{"", "", true},
		{".", "", true},
		{"../../x", "", true},
		{".toolongextension", "", true},
		{".mp 4", "", true},
	}
	for _, tt := range tests {
		got, err := NormalizeExt(tt.in)
		if tt.wantErr {
			assert.ErrorIs(t, err, apperr.ErrInvalidInput, "NormalizeExt(%q)", tt.in)
			continue
		}
		require.NoError(t, err, "NormalizeExt(%q)", tt.in)
		assert.Equal(t, tt.want, got)
	}
}

func TestParseKey_RejectsTraversal(t *testing.T) {
	for _, s := range []string{
		"../../etc/passwd",
		"2cf24dba5fb0a30e.jpg/../x",
		"2CF24DBA5FB0A30E.jpg",
		"2cf24dba5fb0a30e",
		"",
	} {
		_, err := ParseKey(s)
		assert.ErrorIs(t, err, apperr.ErrNotFound, "ParseKey(%q)", s)
	}
}

func TestStore_PutGet(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	key, err := s.Put(ctx, []byte("frame data"), ".png")
	require.NoError(t, err)
	assert.True(t, s.Has(key))

	got, err := s.Get(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, []byte("frame data"), got)

	f, err := s.Open(key)
	require.NoError(t, err)
	f.Close()
}

func TestStore_PutIsIdempotent(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	k1, err := s.Put(ctx, []byte("same"), ".mp4")
	require.NoError(t, err)

	info1, err := os.Stat(s.Path(k1))
	require.NoError(t, err)

	k2, err := s.Put(ctx, []byte("same"), ".MP4")
	require.NoError(t, err)
	assert.Equal(t, k1, k2)

	info2, err := os.Stat(s.Path(k2))
	require.NoError(t, err)
	assert.Equal(t, info1.ModTime(), info2.ModTime(), "existing blob must not be rewritten")

	assert.Equal(t, []string{string(k1)}, blobFiles(t, s))
}

func TestStore_ConcurrentPutsSameKey(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	data := []byte("contended bytes")

	const writers = 16
	keys := make([]Key, writers)
	errs := make([]error, writers)

	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			keys[i], errs[i] = s.Put(ctx, data, ".bin")
		}(i)
	}
	wg.Wait()

	for i := 0; i < writers; i++ {
		require.NoError(t, errs[i])
		assert.Equal(t, keys[0], keys[i])
	}
	assert.Len(t, blobFiles(t, s), 1)

	tmp, err := os.ReadDir(filepath.Join(s.Dir(), tmpDirName))
	require.NoError(t, err)
	assert.Empty(t, tmp, "pending files must be cleaned up")
}

func TestStore_WriteSkipsPublishedBlob(t *testing.T) {
	s := newTestStore(t)
	data := []byte("raced")
	key, err := ComputeKey(data, ".jpg")
	require.NoError(t, err)

	// Another process already published the blob.
	require.NoError(t, os.WriteFile(s.Path(key), []byte("raced"), 0644))

	stored, err := s.write(key, data)
	require.NoError(t, err)
	assert.False(t, stored)
}

func TestStore_GetMissing(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.Get(ctx, Key("0000000000000000.jpg"))
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	_, err = s.Get(ctx, Key("../secret.jpg"))
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	assert.False(t, s.Has(Key("../secret.jpg")))
}

func TestStore_BadExtension(t *testing.T) {
	s := newTestStore(t)
	_, err := s.Put(context.Background(), []byte("x"), "")
	assert.ErrorIs(t, err, apperr.ErrInvalidInput)
}

func TestStore_FreeSpacePreflight(t *testing.T) {
	s := newTestStore(t)
	s.minFreeBytes = 1024
	s.freeBytes = func(string) (uint64, error) { return 1000, nil }

	_, err := s.Put(context.Background(), []byte("big"), ".png")
	assert.ErrorIs(t, err, apperr.ErrStorageExhausted)
	assert.Empty(t, blobFiles(t, s))
	assert.Equal(t, apperr.CodeStorageExhausted, apperr.Code(err))
}

func TestStore_PreflightIgnoresUsageErrors(t *testing.T) {
	s := newTestStore(t)
	s.minFreeBytes = 1024
	s.freeBytes = func(string) (uint64, error) { return 0, errors.New("unsupported") }

	_, err := s.Put(context.Background(), []byte("ok"), ".png")
	assert.NoError(t, err)
}

func TestStore_Stats(t *testing.T) {
	s := newTestStore(t)
	s.freeBytes = func(string) (uint64, error) { return 4096, nil }
	ctx := context.Background()

	_, err := s.Put(ctx, []byte("one"), ".jpg")
	require.NoError(t, err)
	_, err = s.Put(ctx, []byte("three"), ".jpg")
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(s.Dir(), "notes.txt"), []byte("ignored"), 0644))

	st, err := s.Stats()
	require.NoError(t, err)
	assert.Equal(t, 2, st.Blobs)
	assert.Equal(t, int64(8), st.Bytes)
	assert.Equal(t, uint64(4096), st.FreeBytes)
}

func TestStore_CanceledContext(t *testing.T) {
	s := newTestStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.Put(ctx, []byte("x"), ".jpg")
	assert.ErrorIs(t, err, context.Canceled)
}

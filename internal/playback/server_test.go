package playback

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reelforge/reelforge-agent/internal/apperr"
	"github.com/reelforge/reelforge-agent/internal/media"
	"github.com/reelforge/reelforge-agent/internal/project"
)

type fixture struct {
	srv   *Server
	blobs *media.Store
	root  string
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	dir := t.TempDir()
	blobs, err := media.NewStore(filepath.Join(dir, "media"), 0, nil)
	require.NoError(t, err)
	root := filepath.Join(dir, "projects")
	projects, err := project.NewFileStore(root, nil)
	require.NoError(t, err)
	return fixture{srv: NewServer(blobs, projects, nil), blobs: blobs, root: root}
}

func TestServeBlob_Full(t *testing.T) {
	f := newFixture(t)
	key, err := f.blobs.Put(context.Background(), []byte("0123456789"), ".mp4")
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/media/"+key.String(), nil)
	require.NoError(t, f.srv.ServeBlob(rec, req, key))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "video/mp4", rec.Header().Get("Content-Type"))
	assert.Equal(t, "bytes", rec.Header().Get("Accept-Ranges"))
	assert.Equal(t, `"`+key.String()+`"`, rec.Header().Get("ETag"))
	assert.Contains(t, rec.Header().Get("Cache-Control"), "immutable")
	assert.Equal(t, "0123456789", rec.Body.String())
}

func TestServeBlob_Range(t *testing.T) {
	f := newFixture(t)
	key, err := f.blobs.Put(context.Background(), []byte("0123456789"), ".webm")
	require.NoError(t, err)

	tests := []struct {
		name      string
		header    string
		wantCode  int
		wantBody  string
		wantRange string
	}{
		{"partial", "bytes=2-5", http.StatusPartialContent, "2345", "bytes 2-5/10"},
		{"suffix", "bytes=-3", http.StatusPartialContent, "789", "bytes 7-9/10"},
		{"unsatisfiable", "bytes=50-", http.StatusRequestedRangeNotSatisfiable, "", "bytes */10"},
		{"malformed is ignored", "lines=1-2", http.StatusOK, "0123456789", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, "/media/"+key.String(), nil)
			req.Header.Set("Range", tt.header)
			require.NoError(t, f.srv.ServeBlob(rec, req, key))

			assert.Equal(t, tt.wantCode, rec.Code)
			assert.Equal(t, tt.wantRange, rec.Header().Get("Content-Range"))
			if tt.wantCode != http.StatusRequestedRangeNotSatisfiable {
				body, _ := io.ReadAll(rec.Body)
				assert.Equal(t, tt.wantBody, string(body))
			}
		})
	}
}

func TestServeBlob_NotModified(t *testing.T) {
	f := newFixture(t)
	key, err := f.blobs.Put(context.Background(), []byte("img"), ".png")
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/media/"+key.String(), nil)
	req.Header.Set("If-None-Match", `"`+key.String()+`"`)
	require.NoError(t, f.srv.ServeBlob(rec, req, key))
	assert.Equal(t, http.StatusNotModified, rec.Code)
	assert.Zero(t, rec.Body.Len())
}

func TestServeBlob_Missing(t *testing.T) {
	f := newFixture(t)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)

	err := f.srv.ServeBlob(rec, req, "ffffffffffffffff.jpg")
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	err = f.srv.ServeBlob(rec, req, "../../etc/passwd")
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestServePrivate(t *testing.T) {
	f := newFixture(t)
	dir := filepath.Join(f.root, "Old-Reel", "music")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "song.mp3"), []byte("ID3"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(f.root, "Old-Reel", project.ManifestFilename), []byte("{}"), 0o644))

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	require.NoError(t, f.srv.ServePrivate(rec, req, "Old Reel", "music/song.mp3"))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "audio/mpeg", rec.Header().Get("Content-Type"))
	assert.Equal(t, "ID3", rec.Body.String())

	for _, rel := range []string{"project.json", "../other/x.mp3", "music/missing.mp3", "music"} {
		err := f.srv.ServePrivate(httptest.NewRecorder(), req, "Old-Reel", rel)
		assert.ErrorIs(t, err, apperr.ErrNotFound, rel)
	}
}

func TestServeBlob_ETagIsContentKey(t *testing.T) {
	f := newFixture(t)
	clip, err := f.blobs.Put(context.Background(), []byte("ftypisom"), ".mp4")
	require.NoError(t, err)
	other, err := f.blobs.Put(context.Background(), []byte("ftypmp42"), ".mp4")
	require.NoError(t, err)
	require.NotEqual(t, clip, other)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/media/"+clip.String(), nil)
	req.Header.Set("If-None-Match", `"`+other.String()+`"`)
	require.NoError(t, f.srv.ServeBlob(rec, req, clip))
	assert.Equal(t, http.StatusOK, rec.Code, "another blob's key must not match")
	assert.Equal(t, "ftypisom", rec.Body.String())
}

func TestServeBlob_HeadTail(t *testing.T) {
	f := newFixture(t)
	key, err := f.blobs.Put(context.Background(), []byte("ftyp....moov"), ".mov")
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodHead, "/media/"+key.String(), nil)
	req.Header.Set("Range", "bytes=-4")
	require.NoError(t, f.srv.ServeBlob(rec, req, key))
	assert.Equal(t, http.StatusPartialContent, rec.Code)
	assert.Equal(t, "bytes 8-11/12", rec.Header().Get("Content-Range"))
	assert.Equal(t, "4", rec.Header().Get("Content-Length"))
	assert.Zero(t, rec.Body.Len())
}

func TestServePrivate_NoETag(t *testing.T) {
	f := newFixture(t)
	dir := filepath.Join(f.root, "Old-Reel", "media")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "0-beach.jpg"), []byte("jpeg"), 0o644))

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Range", "bytes=1-2")
	require.NoError(t, f.srv.ServePrivate(rec, req, "Old-Reel", "media/0-beach.jpg"))
	assert.Equal(t, http.StatusPartialContent, rec.Code)
	assert.Equal(t, "pe", rec.Body.String())
	assert.Empty(t, rec.Header().Get("ETag"))
	assert.Equal(t, "no-cache", rec.Header().Get("Cache-Control"))
}

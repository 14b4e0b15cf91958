package updater

import (
	"archive/tar"
	"bytes"
	"compress/gzip"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNeedsUpdate(t *testing.T) {
	tests := []struct {
		name    string
		current string
		latest  string
		want    bool
	}{
		{"same version", "v0.3.19", "v0.3.19", false},
		{"patch update", "v0.3.19", "v0.3.20", true},
		{"minor update", "v0.3.19", "v0.4.0", true},
		{"major update", "v0.3.19", "v1.0.0", true},
		{"current is newer", "v0.4.0", "v0.3.19", false},
		{"without v prefix", "0.3.19", "0.3.20", true},
		{"mixed prefixes", "v0.3.19", "0.3.20", true},
		{"dev version needs update", "dev", "v0.3.20", true},
		{"dev to dev", "dev", "dev", false},
		{"multi-digit versions", "v0.3.9", "v0.3.10", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NeedsUpdate(tt.current, tt.latest))
		})
	}
}

func TestParseVersion(t *testing.T) {
	assert.Equal(t, [3]int{0, 3, 19}, parseVersion("0.3.19"))
	assert.Equal(t, [3]int{1, 2, 0}, parseVersion("1.2"))
	assert.Equal(t, [3]int{0, 0, 0}, parseVersion("invalid"))
}

func TestLatest(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/repos/acme/twodo/releases/latest", r.URL.Path)
		_, _ = w.Write([]byte(`{"tag_name": "v1.2.3", "name": "1.2.3"}`))
	}))
	defer srv.Close()

	u := New("acme/twodo", WithBaseURLs(srv.URL, srv.URL))
	rel, err := u.Latest(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "v1.2.3", rel.TagName)
}

func TestLatest_HTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := New("acme/twodo", WithBaseURLs(srv.URL, srv.URL)).Latest(context.Background())
	assert.ErrorContains(t, err, "404")
}

func tarGz(t *testing.T, name string, content []byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	tw := tar.NewWriter(gz)
	require.NoError(t, tw.WriteHeader(&tar.Header{Name: name, Mode: 0o755, Size: int64(len(content)), Typeflag: tar.TypeReg}))
	_, err := tw.Write(content)
	require.NoError(t, err)
	require.NoError(t, tw.Close())
	require.NoError(t, gz.Close())
	return buf.Bytes()
}

func TestSelfUpdate(t *testing.T) {
	archive := tarGz(t, "dist/twodo", []byte("new binary"))
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/acme/twodo/releases/download/v1.2.3/"+ArchiveName("v1.2.3"), r.URL.Path)
		_, _ = w.Write(archive)
	}))
	defer srv.Close()

	exe := filepath.Join(t.TempDir(), "twodo")
	require.NoError(t, os.WriteFile(exe, []byte("old binary"), 0o755))

	u := New("acme/twodo", WithBaseURLs(srv.URL, srv.URL), WithExecutable(exe))
	require.NoError(t, u.SelfUpdate(context.Background(), "v1.2.3"))

	data, err := os.ReadFile(exe)
	require.NoError(t, err)
	assert.Equal(t, "new binary", string(data))
	_, err = os.Stat(exe + ".old")
	assert.True(t, os.IsNotExist(err))
}

func TestSelfUpdate_MissingBinaryKeepsOld(t *testing.T) {
	archive := tarGz(t, "README.md", []byte("docs"))
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(archive)
	}))
	defer srv.Close()

	exe := filepath.Join(t.TempDir(), "twodo")
	require.NoError(t, os.WriteFile(exe, []byte("old binary"), 0o755))

	err := New("acme/twodo", WithBaseURLs(srv.URL, srv.URL), WithExecutable(exe)).SelfUpdate(context.Background(), "v1.2.3")
	assert.ErrorContains(t, err, "not found in archive")

	data, err := os.ReadFile(exe)
	require.NoError(t, err)
	assert.Equal(t, "old binary", string(data))
}

func TestArchiveName(t *testing.T) {
	assert.Contains(t, ArchiveName("v0.3.1"), "twodo_0.3.1_")
	assert.Equal(t, ".gz", filepath.Ext(ArchiveName("v0.3.1")))
}

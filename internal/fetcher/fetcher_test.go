package fetcher

import (
	"bytes"
	"compress/gzip"
	"compress/zlib"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/andybalholm/brotli"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFetchWritesFile(t *testing.T) {
	var gotUA string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		w.Write([]byte("%PDF-1.4 resume"))
	}))
	defer srv.Close()

	dest := filepath.Join(t.TempDir(), "resume.pdf")
	ok := New(Options{}, nil).Fetch(context.Background(), srv.URL, dest)

	require.True(t, ok)
	data, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, "%PDF-1.4 resume", string(data))
	assert.Equal(t, DefaultUserAgent, gotUA)
}

func TestFetchFollowsRedirects(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/old", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/new", http.StatusFound)
	})
	mux.HandleFunc("/new", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("moved"))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	dest := filepath.Join(t.TempDir(), "resume.txt")
	require.True(t, New(Options{}, nil).Fetch(context.Background(), srv.URL+"/old", dest))
}

func TestFetchFailures(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{
			name: "not found",
			handler: func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, "missing", http.StatusNotFound)
			},
		},
		{
			name:    "empty body",
			handler: func(w http.ResponseWriter, r *http.Request) {},
		},
		{
			name: "timeout",
			handler: func(w http.ResponseWriter, r *http.Request) {
				time.Sleep(200 * time.Millisecond)
				w.Write([]byte("late"))
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(tt.handler)
			defer srv.Close()

			dest := filepath.Join(t.TempDir(), "resume.pdf")
			ok := New(Options{Timeout: 50 * time.Millisecond}, nil).Fetch(context.Background(), srv.URL, dest)

			assert.False(t, ok)
			_, err := os.Stat(dest)
			assert.True(t, os.IsNotExist(err), "no partial file should remain")
		})
	}
}

func TestFetchUnreachable(t *testing.T) {
	dest := filepath.Join(t.TempDir(), "resume.pdf")
	assert.False(t, New(Options{}, nil).Fetch(context.Background(), "http://127.0.0.1:1/none.pdf", dest))
}

func TestDownloadDecodesCompressedBodies(t *testing.T) {
	var gz bytes.Buffer
	zw := gzip.NewWriter(&gz)
	zw.Write([]byte("gzipped resume"))
	zw.Close()

	var zl bytes.Buffer
	zlw := zlib.NewWriter(&zl)
	zlw.Write([]byte("deflated resume"))
	zlw.Close()

	var br bytes.Buffer
	bw := brotli.NewWriter(&br)
	bw.Write([]byte("brotli resume"))
	bw.Close()

	bodies := map[string][]byte{"gzip": gz.Bytes(), "deflate": zl.Bytes(), "br": br.Bytes()}
	want := map[string]string{"gzip": "gzipped resume", "deflate": "deflated resume", "br": "brotli resume"}

	for encoding, body := range bodies {
		t.Run(encoding, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Encoding", encoding)
				w.Write(body)
			}))
			defer srv.Close()

			dest := filepath.Join(t.TempDir(), "resume.txt")
			require.NoError(t, New(Options{}, nil).Download(context.Background(), srv.URL, dest))

			data, err := os.ReadFile(dest)
			require.NoError(t, err)
			assert.Equal(t, want[encoding], string(data))
		})
	}
}

func TestDownloadErrorUnwraps(t *testing.T) {
	err := New(Options{}, nil).Download(context.Background(), "", filepath.Join(t.TempDir(), "x"))

	var fetchErr *Error
	require.ErrorAs(t, err, &fetchErr)
	assert.Equal(t, "empty url", fetchErr.Message)
}

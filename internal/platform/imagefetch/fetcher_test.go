package imagefetch

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/visionsmith/argus-api/internal/config"
)

func testFetcher(maxBytes int64) *Fetcher {
	return NewFetcher(config.FetchConfig{
		MaxBytes:       maxBytes,
		TimeoutSeconds: 5,
		UserAgent:      "argus-test/1.0",
	}, nil)
}

func TestFetch(t *testing.T) {
	t.Parallel()

	t.Run("successful fetch", func(t *testing.T) {
		t.Parallel()

		body := bytes.Repeat([]byte{0xAB}, 128)
		var gotUserAgent string
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotUserAgent = r.Header.Get("User-Agent")
			w.Header().Set("Content-Type", "image/jpeg")
			_, _ = w.Write(body)
		}))
		defer server.Close()

		img, err := testFetcher(1024).Fetch(context.Background(), server.URL+"/cat.jpg")
		require.NoError(t, err)

		assert.Equal(t, body, img.Data)
		assert.Equal(t, "image/jpeg", img.MIMEType)
		assert.Equal(t, server.URL+"/cat.jpg", img.SourceURL)
		assert.Equal(t, "argus-test/1.0", gotUserAgent)
	})

	t.Run("content type with parameters", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "image/PNG; charset=binary")
			_, _ = w.Write([]byte{0x89, 0x50})
		}))
		defer server.Close()

		img, err := testFetcher(1024).Fetch(context.Background(), server.URL)
		require.NoError(t, err)
		assert.Equal(t, "image/png", img.MIMEType)
	})

	t.Run("non-image content type", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "text/html")
			_, _ = w.Write([]byte("<html>not an image</html>"))
		}))
		defer server.Close()

		_, err := testFetcher(1024).Fetch(context.Background(), server.URL)
		assert.ErrorIs(t, err, ErrUnsupportedType)
	})

	t.Run("body over the size cap", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "image/png")
			_, _ = w.Write(bytes.Repeat([]byte{0x01}, 64))
		}))
		defer server.Close()

		_, err := testFetcher(32).Fetch(context.Background(), server.URL)
		assert.ErrorIs(t, err, ErrImageTooLarge)
	})

	t.Run("body exactly at the cap passes", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "image/png")
			_, _ = w.Write(bytes.Repeat([]byte{0x01}, 32))
		}))
		defer server.Close()

		img, err := testFetcher(32).Fetch(context.Background(), server.URL)
		require.NoError(t, err)
		assert.Len(t, img.Data, 32)
	})

	t.Run("non-OK status", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.NotFound(w, r)
		}))
		defer server.Close()

		_, err := testFetcher(1024).Fetch(context.Background(), server.URL)
		assert.ErrorIs(t, err, ErrFetchFailed)
	})

	t.Run("unreachable host", func(t *testing.T) {
		t.Parallel()

		_, err := testFetcher(1024).Fetch(context.Background(), "http://127.0.0.1:1/none.jpg")
		assert.ErrorIs(t, err, ErrFetchFailed)
	})

	t.Run("cancelled context", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			<-r.Context().Done()
		}))
		defer server.Close()

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err := testFetcher(1024).Fetch(ctx, server.URL)
		assert.ErrorIs(t, err, ErrFetchFailed)
	})
}

func TestNormalizeContentType(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name    string
		header  string
		want    string
		wantErr bool
	}{
		{name: "jpeg", header: "image/jpeg", want: "image/jpeg"},
		{name: "webp", header: "image/webp", want: "image/webp"},
		{name: "uppercase", header: "IMAGE/GIF", want: "image/gif"},
		{name: "with charset", header: "image/png; charset=binary", want: "image/png"},
		{name: "missing", header: "", wantErr: true},
		{name: "svg not allowed", header: "image/svg+xml", wantErr: true},
		{name: "garbage", header: ";;;", wantErr: true},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			got, err := normalizeContentType(tc.header)
			if tc.wantErr {
				assert.ErrorIs(t, err, ErrUnsupportedType)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

package shortener

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestShortenSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "key", r.URL.Query().Get("api"))
		assert.Equal(t, "http://example.com/long", r.URL.Query().Get("url"))
		assert.Equal(t, "text", r.URL.Query().Get("format"))
		_, _ = w.Write([]byte("  https://short.io/abc\n"))
	}))
	defer srv.Close()

	c := New(Config{Endpoint: srv.URL, APIKey: "key"})
	got := c.Shorten(context.Background(), "http://example.com/long")
	assert.Equal(t, "https://short.io/abc", got)
}

func TestShortenFallsBack(t *testing.T) {
	t.Run("non-200", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		}))
		defer srv.Close()

		c := New(Config{Endpoint: srv.URL, APIKey: "key"})
		assert.Equal(t, "http://x", c.Shorten(context.Background(), "http://x"))
	})

	t.Run("empty body", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte("   \n"))
		}))
		defer srv.Close()

		c := New(Config{Endpoint: srv.URL, APIKey: "key"})
		assert.Equal(t, "http://x", c.Shorten(context.Background(), "http://x"))
	})

	t.Run("unreachable endpoint", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
		srv.Close()

		c := New(Config{Endpoint: srv.URL, APIKey: "key"})
		assert.Equal(t, "http://x", c.Shorten(context.Background(), "http://x"))
	})
}

func TestShortenIdentity(t *testing.T) {
	assert.Equal(t, "http://x", New(Config{}).Shorten(context.Background(), "http://x"))
	assert.Equal(t, "http://x", New(Config{Endpoint: "http://api"}).Shorten(context.Background(), "http://x"))
	assert.Equal(t, "", New(Config{Endpoint: "http://api", APIKey: "k"}).Shorten(context.Background(), ""))

	var nilClient *Client
	assert.Equal(t, "http://x", nilClient.Shorten(context.Background(), "http://x"))
}

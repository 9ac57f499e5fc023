package weather

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"agentsouk/internal/apperr"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCurrent(t *testing.T) {
	t.Run("successful lookup", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "test-key", r.URL.Query().Get("key"))
			assert.Equal(t, "Dubai", r.URL.Query().Get("q"))

			w.Write([]byte(`{"location":{"name":"Dubai"},"current":{"temp_c":41.5,"condition":{"text":"Sunny"}}}`))
		}))
		defer srv.Close()

		client := NewClient(srv.URL, "test-key")
		cond, err := client.Current(context.Background(), "Dubai")
		require.NoError(t, err)
		assert.Equal(t, "Dubai", cond.City)
		assert.Equal(t, 41.5, cond.TempC)
		assert.Equal(t, "Sunny", cond.Description)
	})

	t.Run("missing key is a config error", func(t *testing.T) {
		client := NewClient("http://example.com", "")
		_, err := client.Current(context.Background(), "Dubai")
		require.Error(t, err)
		assert.Equal(t, apperr.KindConfig, apperr.KindOf(err))
	})

	t.Run("forbidden maps to forbidden kind", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusForbidden)
		}))
		defer srv.Close()

		client := NewClient(srv.URL, "bad-key")
		_, err := client.Current(context.Background(), "Dubai")
		require.Error(t, err)
		assert.Equal(t, apperr.KindForbidden, apperr.KindOf(err))
	})
}

package shared

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeJSON(t *testing.T) {
	t.Parallel()

	type body struct {
		URL      string `json:"url"`
		Priority int    `json:"priority"`
	}

	t.Run("valid body", func(t *testing.T) {
		t.Parallel()

		req := httptest.NewRequest(http.MethodPost, "/",
			bytes.NewBufferString(`{"url":"https://img.example.com/a.png","priority":4}`))

		var decoded body
		require.NoError(t, DecodeJSON(req, &decoded))
		assert.Equal(t, "https://img.example.com/a.png", decoded.URL)
		assert.Equal(t, 4, decoded.Priority)
	})

	t.Run("malformed body", func(t *testing.T) {
		t.Parallel()

		req := httptest.NewRequest(http.MethodPost, "/", bytes.NewBufferString(`{"url":`))

		var decoded body
		assert.Error(t, DecodeJSON(req, &decoded))
	})

	t.Run("empty body", func(t *testing.T) {
		t.Parallel()

		req := httptest.NewRequest(http.MethodPost, "/", bytes.NewBufferString(""))

		var decoded body
		assert.Error(t, DecodeJSON(req, &decoded))
	})
}

package newsletter

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubscribeForwardsToProvider(t *testing.T) {
	var gotAuth, gotContentType string
	var gotBody []byte
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotContentType = r.Header.Get("Content-Type")
		gotBody, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusCreated)
	}))
	defer upstream.Close()

	c := New(upstream.URL, "secret-key", time.Second)
	status, err := c.Subscribe(context.Background(), "reader@example.com")
	require.NoError(t, err)
	assert.Equal(t, http.StatusCreated, status)
	assert.Equal(t, "Token secret-key", gotAuth)
	assert.Equal(t, "application/json", gotContentType)

	var payload map[string]string
	require.NoError(t, json.Unmarshal(gotBody, &payload))
	assert.Equal(t, "reader@example.com", payload["email_address"])
}

func TestSubscribeNoAuthHeaderWithoutKey(t *testing.T) {
	var gotAuth string
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
	}))
	defer upstream.Close()

	c := New(upstream.URL, "", time.Second)
	_, err := c.Subscribe(context.Background(), "reader@example.com")
	require.NoError(t, err)
	assert.Empty(t, gotAuth)
}

func TestSubscribeStatusPassthrough(t *testing.T) {
	for _, code := range []int{http.StatusOK, http.StatusConflict, http.StatusTooManyRequests} {
		upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(code)
		}))
		c := New(upstream.URL, "k", time.Second)
		status, err := c.Subscribe(context.Background(), "reader@example.com")
		upstream.Close()

		require.NoError(t, err)
		assert.Equal(t, code, status)
	}
}

func TestSubscribeRejectsMalformedAddress(t *testing.T) {
	called := false
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	defer upstream.Close()

	c := New(upstream.URL, "k", time.Second)
	for _, email := range []string{"", "not-an-email", "a@", "@example.com"} {
		status, err := c.Subscribe(context.Background(), email)
		assert.Error(t, err, "email %q", email)
		assert.Equal(t, http.StatusBadRequest, status, "email %q", email)
	}
	assert.False(t, called, "malformed addresses must never reach the provider")
}

func TestSubscribeUpstreamUnreachable(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	upstream.Close()

	c := New(upstream.URL, "k", time.Second)
	status, err := c.Subscribe(context.Background(), "reader@example.com")
	assert.Error(t, err)
	assert.Equal(t, http.StatusBadGateway, status)
}

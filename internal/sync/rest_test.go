package sync

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPeerClientFetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/api/data", r.URL.Path)
		w.Write([]byte(`{"weeks":{}}`))
	}))
	defer srv.Close()

	c := NewPeerClient(srv.URL, 5*time.Second)
	data, err := c.Fetch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, `{"weeks":{}}`, string(data))
}

func TestPeerClientFetchPristinePeer(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	c := NewPeerClient(srv.URL, 5*time.Second)
	_, err := c.Fetch(context.Background())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestPeerClientPush(t *testing.T) {
	var received []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/data", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		received = body
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	c := NewPeerClient(srv.URL+"/", 5*time.Second)
	require.NoError(t, c.Push(context.Background(), []byte(`{"weeks":{}}`)))
	assert.Equal(t, `{"weeks":{}}`, string(received))
}

func TestPeerClientPushErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := NewPeerClient(srv.URL, 5*time.Second)
	err := c.Push(context.Background(), []byte("x"))
	assert.ErrorContains(t, err, "status 500")
}

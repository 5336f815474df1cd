package backend

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/yourusername/authgate/internal/logger"
)

type fakeBackend struct {
	mu       sync.Mutex
	requests []map[string]any
	handler  func(w http.ResponseWriter, body map[string]any)
}

func (f *fakeBackend) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost || r.URL.Path != loginPath {
		http.NotFound(w, r)
		return
	}
	var body map[string]any
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	f.mu.Lock()
	f.requests = append(f.requests, body)
	f.mu.Unlock()
	f.handler(w, body)
}

func (f *fakeBackend) recorded() []map[string]any {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]map[string]any(nil), f.requests...)
}

func newTestPool(t *testing.T, fb *fakeBackend, maxConns int) *Pool {
	t.Helper()
	srv := httptest.NewServer(fb)
	t.Cleanup(srv.Close)

	pool, err := NewPool(Options{
		BaseURL:  srv.URL + "/",
		MaxConns: maxConns,
		Timeout:  2 * time.Second,
	}, logger.Discard())
	require.NoError(t, err)
	return pool
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func TestLoginSuccess(t *testing.T) {
	fb := &fakeBackend{handler: func(w http.ResponseWriter, body map[string]any) {
		writeJSON(w, http.StatusOK, map[string]any{"session-id": "s1", "user-id": 42})
	}}
	pool := newTestPool(t, fb, 2)

	session, err := pool.Login(context.Background(), "alice", "correct", "203.0.113.9")
	require.NoError(t, err)
	require.Equal(t, &Session{SessionID: "s1", UserID: 42}, session)
	require.Equal(t, int64(0), pool.InUse())

	requests := fb.recorded()
	require.Len(t, requests, 1)
	require.Equal(t, "alice", requests[0]["name-or-email"])
	require.Equal(t, "correct", requests[0]["password"])
	require.Equal(t, "203.0.113.9", requests[0]["remote-address"])
}

func TestLoginWithoutAddressSendsNull(t *testing.T) {
	fb := &fakeBackend{handler: func(w http.ResponseWriter, body map[string]any) {
		writeJSON(w, http.StatusOK, map[string]any{"session-id": "s1", "user-id": 42})
	}}
	pool := newTestPool(t, fb, 1)

	_, err := pool.Login(context.Background(), "alice", "correct", "")
	require.NoError(t, err)
	value, present := fb.recorded()[0]["remote-address"]
	require.True(t, present)
	require.Nil(t, value)
}

func TestLoginInvalidCredentials(t *testing.T) {
	fb := &fakeBackend{handler: func(w http.ResponseWriter, body map[string]any) {
		writeJSON(w, http.StatusUnauthorized, map[string]any{"name": "invalid-credentials", "message": "bad login"})
	}}
	pool := newTestPool(t, fb, 1)

	_, err := pool.Login(context.Background(), "alice", "wrong", "")
	var apiErr *Error
	require.True(t, errors.As(err, &apiErr), "expected *Error, got %T", err)
	require.Equal(t, "invalid-credentials", apiErr.Name)
	require.Equal(t, http.StatusUnauthorized, apiErr.Status)

	var transportErr *TransportError
	require.False(t, errors.As(err, &transportErr))
	require.Equal(t, int64(0), pool.InUse())
}

func TestLoginServerErrorIsTransport(t *testing.T) {
	fb := &fakeBackend{handler: func(w http.ResponseWriter, body map[string]any) {
		writeJSON(w, http.StatusInternalServerError, map[string]any{"name": "database", "message": "down"})
	}}
	pool := newTestPool(t, fb, 1)

	_, err := pool.Login(context.Background(), "alice", "correct", "")
	var transportErr *TransportError
	require.True(t, errors.As(err, &transportErr), "expected *TransportError, got %T", err)
	require.Equal(t, "status", transportErr.Op)
}

func TestLoginMalformedResponsesAreTransport(t *testing.T) {
	cases := map[string]func(w http.ResponseWriter, body map[string]any){
		"garbage success": func(w http.ResponseWriter, body map[string]any) {
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte("<html>"))
		},
		"unnamed error": func(w http.ResponseWriter, body map[string]any) {
			writeJSON(w, http.StatusBadRequest, map[string]any{"message": "?"})
		},
	}
	for name, handler := range cases {
		t.Run(name, func(t *testing.T) {
			pool := newTestPool(t, &fakeBackend{handler: handler}, 1)
			_, err := pool.Login(context.Background(), "alice", "correct", "")
			var transportErr *TransportError
			require.True(t, errors.As(err, &transportErr), "expected *TransportError, got %T", err)
			require.Equal(t, "decode", transportErr.Op)
		})
	}
}

func TestLoginUnreachableBackend(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	pool, err := NewPool(Options{BaseURL: url, MaxConns: 1, Timeout: time.Second}, logger.Discard())
	require.NoError(t, err)

	_, err = pool.Login(context.Background(), "alice", "correct", "")
	var transportErr *TransportError
	require.True(t, errors.As(err, &transportErr), "expected *TransportError, got %T", err)
	require.Equal(t, "send", transportErr.Op)
	require.Equal(t, int64(0), pool.InUse())
}

func TestPoolBoundsCheckouts(t *testing.T) {
	pool, err := NewPool(Options{BaseURL: "http://backend.invalid", MaxConns: 1}, logger.Discard())
	require.NoError(t, err)

	conn, err := pool.Get(context.Background())
	require.NoError(t, err)
	require.Equal(t, int64(1), pool.InUse())

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = pool.Get(ctx)
	var transportErr *TransportError
	require.True(t, errors.As(err, &transportErr))
	require.Equal(t, "acquire", transportErr.Op)
	require.ErrorIs(t, err, context.DeadlineExceeded)

	conn.Release()
	conn.Release()
	require.Equal(t, int64(0), pool.InUse())

	again, err := pool.Get(context.Background())
	require.NoError(t, err)
	again.Release()
}

func TestNewPoolValidation(t *testing.T) {
	_, err := NewPool(Options{BaseURL: "", MaxConns: 1}, nil)
	require.Error(t, err)
	_, err = NewPool(Options{BaseURL: "ftp://backend", MaxConns: 1}, nil)
	require.Error(t, err)
	_, err = NewPool(Options{BaseURL: "http://backend", MaxConns: 0}, nil)
	require.Error(t, err)
}

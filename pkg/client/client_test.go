package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// apiStub is a minimal fake of the auth and profile endpoints. It issues
// opaque tokens and counts refresh calls.
type apiStub struct {
	mu            sync.Mutex
	accessToken   string
	refreshToken  string
	expiresIn     int64
	refreshCalls  atomic.Int32
	refreshDelay  time.Duration
	rejectRefresh bool
}

func (s *apiStub) currentAccessToken() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.accessToken
}

func (s *apiStub) rotate() (string, string, int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.accessToken = s.accessToken + "+"
	s.refreshToken = s.refreshToken + "+"
	return s.accessToken, s.refreshToken, s.expiresIn
}

func (s *apiStub) handler() http.Handler {
	mux := http.NewServeMux()

	writeError := func(w http.ResponseWriter, status int, code string) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"error": map[string]string{"code": code, "message": "rejected"},
		})
	}

	writePair := func(w http.ResponseWriter, access, refresh string, expiresIn int64) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(TokenPair{
			AccessToken:  access,
			RefreshToken: refresh,
			TokenType:    "bearer",
			ExpiresIn:    expiresIn,
		})
	}

	mux.HandleFunc("/api/v1/auth/login", func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		access, refresh, expiresIn := s.accessToken, s.refreshToken, s.expiresIn
		s.mu.Unlock()
		writePair(w, access, refresh, expiresIn)
	})

	mux.HandleFunc("/api/v1/auth/refresh", func(w http.ResponseWriter, r *http.Request) {
		s.refreshCalls.Add(1)
		if s.refreshDelay > 0 {
			time.Sleep(s.refreshDelay)
		}
		if s.rejectRefresh {
			writeError(w, http.StatusUnauthorized, "ERR-006")
			return
		}

		// After a refresh the new pair is long-lived.
		access, refresh, _ := s.rotate()
		writePair(w, access, refresh, 1800)
	})

	mux.HandleFunc("/api/v1/users/me", func(w http.ResponseWriter, r *http.Request) {
		token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
		if token != s.currentAccessToken() {
			writeError(w, http.StatusUnauthorized, "ERR-006")
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(Account{ID: "user-1", Username: "testUser"})
	})

	mux.HandleFunc("/api/v1/auth/logout", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{"message": "bye"})
	})

	return mux
}

func newStubClient(t *testing.T, stub *apiStub) *Client {
	server := httptest.NewServer(stub.handler())
	t.Cleanup(server.Close)

	c, err := New(server.URL)
	require.NoError(t, err)
	return c
}

func TestLoginAndMe(t *testing.T) {
	stub := &apiStub{accessToken: "access", refreshToken: "refresh", expiresIn: 1800}
	c := newStubClient(t, stub)

	assert.Equal(t, StateAnonymous, c.State())

	require.NoError(t, c.Login(context.Background(), "testUser", "test.Password123"))
	assert.Equal(t, StateAuthenticated, c.State())

	account, err := c.Me(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "testUser", account.Username)

	// No refresh was needed for a fresh token.
	assert.Equal(t, int32(0), stub.refreshCalls.Load())
}

func TestMeWithoutSession(t *testing.T) {
	stub := &apiStub{accessToken: "access", refreshToken: "refresh", expiresIn: 1800}
	c := newStubClient(t, stub)

	_, err := c.Me(context.Background())
	assert.ErrorIs(t, err, ErrNotAuthenticated)
}

func TestReactiveRefreshRetriesOnce(t *testing.T) {
	stub := &apiStub{accessToken: "access", refreshToken: "refresh", expiresIn: 1800}
	c := newStubClient(t, stub)

	require.NoError(t, c.Login(context.Background(), "testUser", "test.Password123"))

	// Invalidate the client's access token server-side: the next call gets
	// a 401, refreshes, and retries with the rotated token.
	stub.rotate()

	account, err := c.Me(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "testUser", account.Username)
	assert.Equal(t, int32(1), stub.refreshCalls.Load())
}

func TestProactiveRefreshBeforeExpiry(t *testing.T) {
	// The issued access token expires within the lookahead window, so the
	// client refreshes before even sending the first request.
	stub := &apiStub{accessToken: "access", refreshToken: "refresh", expiresIn: 60}
	c := newStubClient(t, stub)

	require.NoError(t, c.Login(context.Background(), "testUser", "test.Password123"))

	_, err := c.Me(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int32(1), stub.refreshCalls.Load())
}

func TestConcurrentRequestsShareOneRefresh(t *testing.T) {
	stub := &apiStub{accessToken: "access", refreshToken: "refresh", expiresIn: 60, refreshDelay: 50 * time.Millisecond}
	c := newStubClient(t, stub)

	require.NoError(t, c.Login(context.Background(), "testUser", "test.Password123"))

	start := make(chan struct{})
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			_, err := c.Me(context.Background())
			assert.NoError(t, err)
		}()
	}
	close(start)
	wg.Wait()

	assert.Equal(t, int32(1), stub.refreshCalls.Load())
}

func TestRejectedRefreshPurgesSession(t *testing.T) {
	stub := &apiStub{accessToken: "access", refreshToken: "refresh", expiresIn: 60, rejectRefresh: true}
	c := newStubClient(t, stub)

	require.NoError(t, c.Login(context.Background(), "testUser", "test.Password123"))

	_, err := c.Me(context.Background())
	assert.ErrorIs(t, err, ErrSessionExpired)
	assert.Equal(t, StateAnonymous, c.State())

	// The purge is durable: the next call fails locally without a session.
	_, err = c.Me(context.Background())
	assert.ErrorIs(t, err, ErrNotAuthenticated)
}

func TestLogoutPurgesSession(t *testing.T) {
	stub := &apiStub{accessToken: "access", refreshToken: "refresh", expiresIn: 1800}
	c := newStubClient(t, stub)

	require.NoError(t, c.Login(context.Background(), "testUser", "test.Password123"))
	require.NoError(t, c.Logout(context.Background()))

	assert.Equal(t, StateAnonymous, c.State())
	_, err := c.Me(context.Background())
	assert.ErrorIs(t, err, ErrNotAuthenticated)
}

func TestFileStorePersistsSession(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	store := NewFileStore(path)

	session := &Session{
		AccessToken:     "access",
		RefreshToken:    "refresh",
		AccessExpiresAt: time.Now().Add(30 * time.Minute).Truncate(time.Second),
		Username:        "testUser",
	}
	require.NoError(t, store.Save(session))

	loaded, err := store.Load()
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Equal(t, session.AccessToken, loaded.AccessToken)
	assert.Equal(t, session.RefreshToken, loaded.RefreshToken)
	assert.Equal(t, session.Username, loaded.Username)

	require.NoError(t, store.Clear())
	loaded, err = store.Load()
	require.NoError(t, err)
	assert.Nil(t, loaded)
}

func TestClientRestoresPersistedSession(t *testing.T) {
	stub := &apiStub{accessToken: "access", refreshToken: "refresh", expiresIn: 1800}
	server := httptest.NewServer(stub.handler())
	t.Cleanup(server.Close)

	path := filepath.Join(t.TempDir(), "session.json")
	store := NewFileStore(path)

	first, err := New(server.URL, WithStore(store))
	require.NoError(t, err)
	require.NoError(t, first.Login(context.Background(), "testUser", "test.Password123"))

	// A new client over the same store starts authenticated.
	second, err := New(server.URL, WithStore(store))
	require.NoError(t, err)
	assert.Equal(t, StateAuthenticated, second.State())

	account, err := second.Me(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "testUser", account.Username)
}

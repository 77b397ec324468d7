package client_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/habedi/pldl/auth"
	"github.com/habedi/pldl/client"
)

// backend is a fake playlist backend. Protected routes accept only the current valid token.
type backend struct {
	*httptest.Server

	mu         sync.Mutex
	calls      []string
	requestIDs map[string][]string // path -> X-Request-ID per call
	validToken string
	rejectAll  bool
	routes     map[string]http.HandlerFunc

	// unauthorizedHold, when set, holds the first 401 response until it is closed.
	unauthorizedHold chan struct{}
	unauthorizedSeen chan struct{}

	refreshes    atomic.Int64
	refreshFail  bool
	refreshHold  chan struct{}
	newToken     string
	lifetime     int64
	refreshSeen  atomic.Value
	callbackSeen atomic.Value
}

func newBackend(t *testing.T, validToken string) *backend {
	t.Helper()
	b := &backend{
		validToken: validToken,
		newToken:   "fresh-access",
		lifetime:   3600,
		routes:     map[string]http.HandlerFunc{},
		requestIDs: map[string][]string{},
	}
	b.Server = httptest.NewServer(http.HandlerFunc(b.serve))
	t.Cleanup(b.Close)
	return b
}

func (b *backend) serve(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	b.calls = append(b.calls, r.Method+" "+r.URL.Path)
	b.requestIDs[r.URL.Path] = append(b.requestIDs[r.URL.Path], r.Header.Get("X-Request-ID"))
	b.mu.Unlock()

	switch r.URL.Path {
	case "/refresh_token":
		b.refreshes.Add(1)
		if b.refreshHold != nil {
			<-b.refreshHold
		}
		var body struct {
			RefreshToken string `json:"refresh_token"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		b.refreshSeen.Store(body.RefreshToken)
		if b.refreshFail {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid_grant", "error_description": "Refresh token revoked"})
			return
		}
		b.mu.Lock()
		b.validToken = b.newToken
		b.mu.Unlock()
		writeJSON(w, http.StatusOK, map[string]any{
			"access_token": b.newToken,
			"expires_in":   b.lifetime,
			"token_type":   "Bearer",
			"scope":        "playlist-read-private",
		})
	case "/callback":
		code := r.URL.Query().Get("code")
		b.callbackSeen.Store(code)
		if code == "bad" {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid_grant"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"access_token":  "access-for-" + code,
			"refresh_token": "refresh-for-" + code,
			"expires_at":    time.Now().Add(time.Hour).Unix(),
			"expires_in":    3600,
			"token_type":    "Bearer",
		})
	default:
		b.mu.Lock()
		valid := b.validToken
		reject := b.rejectAll
		handler := b.routes[r.URL.Path]
		b.mu.Unlock()

		if reject || r.Header.Get("Authorization") != "Bearer "+valid {
			if b.unauthorizedHold != nil {
				select {
				case b.unauthorizedSeen <- struct{}{}:
				default:
				}
				<-b.unauthorizedHold
			}
			writeJSON(w, http.StatusUnauthorized, map[string]bool{"authenticated": false})
			return
		}
		if handler != nil {
			handler(w, r)
			return
		}
		writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
	}
}

func (b *backend) route(path string, h http.HandlerFunc) {
	b.mu.Lock()
	b.routes[path] = h
	b.mu.Unlock()
}

func (b *backend) callLog() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.calls...)
}

func (b *backend) idsFor(path string) []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.requestIDs[path]...)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

type stack struct {
	client      *client.Client
	api         *client.API
	store       *auth.MemoryStore
	coordinator *auth.Coordinator
	session     *auth.Session
}

func newStack(b *backend, rec *auth.TokenRecord) *stack {
	store := auth.NewMemoryStore(rec)
	endpoint := client.NewTokenEndpoint(b.URL, b.Client())
	coordinator := auth.NewCoordinator(store, endpoint)
	c := client.New(b.URL, b.Client(), store, coordinator)
	return &stack{
		client:      c,
		api:         client.NewAPI(c),
		store:       store,
		coordinator: coordinator,
		session:     auth.NewSession(store, endpoint, coordinator, time.Hour),
	}
}

func tokenRecord(access string, expiresIn time.Duration) *auth.TokenRecord {
	return &auth.TokenRecord{
		AccessToken:  access,
		RefreshToken: "refresh-1",
		ExpiresAt:    time.Now().Add(expiresIn).Unix(),
		TokenType:    "Bearer",
	}
}

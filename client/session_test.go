package client

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
)

// apiStub simulates the token lifecycle of the chat API: protected routes
// accept only the current access token, and the refresh route rotates the
// pair exactly once per presented refresh token.
type apiStub struct {
	validAccess    string
	validRefresh   string
	refreshCalls   int32
	logoutCalls    int32
	logoutStatus   int
	rejectRefresh  bool
	lastBody       string
	lastAuthHeader string
}

func newAPIStub() *apiStub {
	return &apiStub{
		validAccess:  "access-1",
		validRefresh: "refresh-1",
		logoutStatus: http.StatusOK,
	}
}

func (a *apiStub) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/auth/refresh", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&a.refreshCalls, 1)

		var body struct {
			RefreshToken string `json:"refreshToken"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)

		if a.rejectRefresh || body.RefreshToken != a.validRefresh {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}

		a.validAccess = "access-2"
		a.validRefresh = "refresh-2"
		_ = json.NewEncoder(w).Encode(map[string]string{
			"accessToken":  a.validAccess,
			"refreshToken": a.validRefresh,
		})
	})
	mux.HandleFunc("/api/v1/auth/logout", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&a.logoutCalls, 1)
		a.lastAuthHeader = r.Header.Get("Authorization")
		w.WriteHeader(a.logoutStatus)
	})
	mux.HandleFunc("/api/v1/chat/message", func(w http.ResponseWriter, r *http.Request) {
		a.lastAuthHeader = r.Header.Get("Authorization")
		if r.Header.Get("Authorization") != "Bearer "+a.validAccess {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		data, _ := io.ReadAll(r.Body)
		a.lastBody = string(data)
		w.WriteHeader(http.StatusOK)
	})
	return mux
}

func TestSessionAttachesBearerToken(t *testing.T) {
	stub := newAPIStub()
	server := httptest.NewServer(stub.handler())
	defer server.Close()

	store := NewMemoryStore()
	if err := store.Save("access-1", "refresh-1"); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	session := NewSession(server.URL, store)

	resp, err := session.Client().Get(server.URL + "/api/v1/chat/message")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusOK)
	}
	if stub.lastAuthHeader != "Bearer access-1" {
		t.Errorf("Authorization = %q, want %q", stub.lastAuthHeader, "Bearer access-1")
	}
}

func TestSessionRefreshesOnceAndRetries(t *testing.T) {
	stub := newAPIStub()
	server := httptest.NewServer(stub.handler())
	defer server.Close()

	store := NewMemoryStore()
	// Stale access token paired with a still-valid refresh token.
	if err := store.Save("stale", "refresh-1"); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	session := NewSession(server.URL, store)

	body := strings.NewReader(`{"message":"hola"}`)
	req, err := http.NewRequest(http.MethodPost, server.URL+"/api/v1/chat/message", body)
	if err != nil {
		t.Fatalf("NewRequest() error = %v", err)
	}
	resp, err := session.Client().Do(req)
	if err != nil {
		t.Fatalf("Do() error = %v", err)
	}
	resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusOK)
	}
	if got := atomic.LoadInt32(&stub.refreshCalls); got != 1 {
		t.Errorf("refresh calls = %d, want 1", got)
	}
	if stub.lastBody != `{"message":"hola"}` {
		t.Errorf("replayed body = %q, want original body", stub.lastBody)
	}

	access, refresh := store.Tokens()
	if access != "access-2" || refresh != "refresh-2" {
		t.Errorf("stored pair = (%q, %q), want rotated pair", access, refresh)
	}
}

func TestSessionExpiresOnRefreshFailure(t *testing.T) {
	stub := newAPIStub()
	stub.rejectRefresh = true
	server := httptest.NewServer(stub.handler())
	defer server.Close()

	store := NewMemoryStore()
	if err := store.Save("stale", "refresh-1"); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	var expiredWith string
	expired := false
	session := NewSession(server.URL, store,
		WithLocation(func() string { return "/chat" }),
		WithExpiryCallback(func(returnTo string) {
			expired = true
			expiredWith = returnTo
		}),
	)

	resp, err := session.Client().Get(server.URL + "/api/v1/chat/message")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	resp.Body.Close()

	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusUnauthorized)
	}
	if got := atomic.LoadInt32(&stub.refreshCalls); got != 1 {
		t.Errorf("refresh calls = %d, want 1", got)
	}
	if !expired {
		t.Fatal("expiry callback was not invoked")
	}
	if expiredWith != "/chat" {
		t.Errorf("returnTo = %q, want %q", expiredWith, "/chat")
	}
	if session.ReturnTo() != "/chat" {
		t.Errorf("ReturnTo() = %q, want %q", session.ReturnTo(), "/chat")
	}

	access, refresh := store.Tokens()
	if access != "" || refresh != "" {
		t.Errorf("stored pair = (%q, %q), want cleared", access, refresh)
	}
}

func TestSessionSkipsAuthLocationsOnExpiry(t *testing.T) {
	tests := []struct {
		name     string
		location string
		want     string
	}{
		{name: "chat page recorded", location: "/chat", want: "/chat"},
		{name: "login page skipped", location: "/login", want: ""},
		{name: "auth page skipped", location: "/auth/confirm", want: ""},
		{name: "register page skipped", location: "/register", want: ""},
		{name: "empty location skipped", location: "", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stub := newAPIStub()
			stub.rejectRefresh = true
			server := httptest.NewServer(stub.handler())
			defer server.Close()

			store := NewMemoryStore()
			_ = store.Save("stale", "refresh-1")

			var got string
			session := NewSession(server.URL, store,
				WithLocation(func() string { return tt.location }),
				WithExpiryCallback(func(returnTo string) { got = returnTo }),
			)

			resp, err := session.Client().Get(server.URL + "/api/v1/chat/message")
			if err != nil {
				t.Fatalf("Get() error = %v", err)
			}
			resp.Body.Close()

			if got != tt.want {
				t.Errorf("returnTo = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestSessionWithoutRefreshTokenDoesNotCallRefresh(t *testing.T) {
	stub := newAPIStub()
	server := httptest.NewServer(stub.handler())
	defer server.Close()

	store := NewMemoryStore()
	if err := store.Save("stale", ""); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	expired := false
	session := NewSession(server.URL, store,
		WithExpiryCallback(func(string) { expired = true }),
	)

	resp, err := session.Client().Get(server.URL + "/api/v1/chat/message")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	resp.Body.Close()

	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusUnauthorized)
	}
	if got := atomic.LoadInt32(&stub.refreshCalls); got != 0 {
		t.Errorf("refresh calls = %d, want 0", got)
	}
	if !expired {
		t.Error("expiry callback was not invoked")
	}
}

func TestLogoutClearsTokensEvenWhenServerFails(t *testing.T) {
	tests := []struct {
		name         string
		logoutStatus int
		wantErr      bool
	}{
		{name: "server accepts", logoutStatus: http.StatusOK, wantErr: false},
		{name: "server fails", logoutStatus: http.StatusInternalServerError, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stub := newAPIStub()
			stub.logoutStatus = tt.logoutStatus
			server := httptest.NewServer(stub.handler())
			defer server.Close()

			store := NewMemoryStore()
			_ = store.Save("access-1", "refresh-1")
			session := NewSession(server.URL, store)

			err := session.Logout(context.Background())
			if (err != nil) != tt.wantErr {
				t.Errorf("Logout() error = %v, wantErr %v", err, tt.wantErr)
			}
			if got := atomic.LoadInt32(&stub.logoutCalls); got != 1 {
				t.Errorf("logout calls = %d, want 1", got)
			}
			if stub.lastAuthHeader != "Bearer access-1" {
				t.Errorf("Authorization = %q, want bearer header", stub.lastAuthHeader)
			}

			access, refresh := store.Tokens()
			if access != "" || refresh != "" {
				t.Errorf("stored pair = (%q, %q), want cleared", access, refresh)
			}
		})
	}
}

func TestFileStorePersistsAcrossInstances(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tokens.json")

	first := NewFileStore(path)
	if err := first.Save("access-1", "refresh-1"); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	// A fresh instance reads the same file, covering use before any
	// in-process initialization has happened.
	second := NewFileStore(path)
	access, refresh := second.Tokens()
	if access != "access-1" || refresh != "refresh-1" {
		t.Errorf("Tokens() = (%q, %q), want persisted pair", access, refresh)
	}

	if err := second.Clear(); err != nil {
		t.Fatalf("Clear() error = %v", err)
	}
	access, refresh = second.Tokens()
	if access != "" || refresh != "" {
		t.Errorf("Tokens() after Clear = (%q, %q), want empty", access, refresh)
	}
	if err := second.Clear(); err != nil {
		t.Errorf("Clear() on missing file error = %v, want nil", err)
	}
}

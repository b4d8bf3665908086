// Package client provides a session-aware HTTP transport for programs that
// talk to the chatbot API: it stores the access/refresh token pair, attaches
// the bearer header to outgoing requests, silently rotates the pair once on a
// 401 and hands control back to the caller when the session cannot be saved.
package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strings"
	"sync"

	"github.com/go-resty/resty/v2"
)

// TokenStore holds the current token pair. Implementations must be safe for
// concurrent use.
type TokenStore interface {
	Tokens() (accessToken, refreshToken string)
	Save(accessToken, refreshToken string) error
	Clear() error
}

// MemoryStore keeps the token pair in process memory only.
type MemoryStore struct {
	mu      sync.RWMutex
	access  string
	refresh string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Tokens() (string, string) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.access, s.refresh
}

func (s *MemoryStore) Save(accessToken, refreshToken string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.access = accessToken
	s.refresh = refreshToken
	return nil
}

func (s *MemoryStore) Clear() error {
	return s.Save("", "")
}

// FileStore persists the token pair as a JSON file so sessions survive
// process restarts. The file is written with owner-only permissions.
type FileStore struct {
	mu   sync.Mutex
	path string
}

func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

type storedTokens struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

func (s *FileStore) Tokens() (string, string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if err != nil {
		return "", ""
	}
	var tokens storedTokens
	if err := json.Unmarshal(data, &tokens); err != nil {
		return "", ""
	}
	return tokens.AccessToken, tokens.RefreshToken
}

func (s *FileStore) Save(accessToken, refreshToken string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := json.Marshal(storedTokens{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
	})
	if err != nil {
		return fmt.Errorf("failed to encode tokens: %w", err)
	}
	return os.WriteFile(s.path, data, 0o600)
}

func (s *FileStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := os.Remove(s.path)
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// Session is an http.RoundTripper that mirrors the server's token lifecycle:
// every request carries the current access token, a 401 response triggers at
// most one refresh-and-retry, and a failed refresh clears the local session
// and notifies the expiry callback.
type Session struct {
	store   TokenStore
	baseURL string
	base    http.RoundTripper
	api     *resty.Client

	// location reports the caller's current page or screen so it can be
	// restored after re-login. Optional.
	location func() string
	// onExpired is invoked after the local session has been cleared. The
	// argument is the recorded return location, empty when none applies.
	onExpired func(returnTo string)

	refreshMu sync.Mutex

	mu       sync.Mutex
	returnTo string
}

// SessionOption configures a Session.
type SessionOption func(*Session)

// WithTransport sets the underlying transport for API requests.
func WithTransport(rt http.RoundTripper) SessionOption {
	return func(s *Session) { s.base = rt }
}

// WithLocation sets the provider for the caller's current location.
func WithLocation(fn func() string) SessionOption {
	return func(s *Session) { s.location = fn }
}

// WithExpiryCallback sets the function invoked when the session cannot be
// refreshed and the caller must re-authenticate.
func WithExpiryCallback(fn func(returnTo string)) SessionOption {
	return func(s *Session) { s.onExpired = fn }
}

func NewSession(baseURL string, store TokenStore, opts ...SessionOption) *Session {
	s := &Session{
		store:   store,
		baseURL: strings.TrimRight(baseURL, "/"),
		base:    http.DefaultTransport,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.api = resty.New().
		SetBaseURL(s.baseURL).
		SetTransport(s.base).
		SetHeader("Content-Type", "application/json")
	return s
}

// Client returns an http.Client that routes through the session.
func (s *Session) Client() *http.Client {
	return &http.Client{Transport: s}
}

// ReturnTo reports the location recorded when the session last expired, for
// post-login restoration.
func (s *Session) ReturnTo() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.returnTo
}

// RoundTrip attaches the bearer token, and on a 401 rotates the token pair
// once and replays the request with the new access token.
func (s *Session) RoundTrip(req *http.Request) (*http.Response, error) {
	access, _ := s.store.Tokens()

	resp, err := s.send(req, access)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusUnauthorized {
		return resp, nil
	}
	if req.Body != nil && req.GetBody == nil {
		// The body was consumed and cannot be replayed.
		return resp, nil
	}

	newAccess, refreshErr := s.refreshOnce(req.Context(), access)
	if refreshErr != nil {
		s.expire()
		return resp, nil
	}

	resp.Body.Close()
	return s.send(req, newAccess)
}

func (s *Session) send(req *http.Request, access string) (*http.Response, error) {
	clone := req.Clone(req.Context())
	if req.GetBody != nil {
		body, err := req.GetBody()
		if err != nil {
			return nil, err
		}
		clone.Body = body
	}
	if access != "" {
		clone.Header.Set("Authorization", "Bearer "+access)
	}
	return s.base.RoundTrip(clone)
}

type tokenPair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

// refreshOnce rotates the token pair at most once per expiry. Concurrent
// callers that raced the same stale access token reuse the pair produced by
// the winning refresh instead of presenting an already-consumed refresh
// token.
func (s *Session) refreshOnce(ctx context.Context, staleAccess string) (string, error) {
	s.refreshMu.Lock()
	defer s.refreshMu.Unlock()

	access, refresh := s.store.Tokens()
	if access != staleAccess && access != "" {
		return access, nil
	}
	if refresh == "" {
		return "", fmt.Errorf("no refresh token available")
	}

	var pair tokenPair
	resp, err := s.api.R().
		SetContext(ctx).
		SetBody(map[string]string{"refreshToken": refresh}).
		SetResult(&pair).
		ForceContentType("application/json").
		Post("/api/v1/auth/refresh")
	if err != nil {
		return "", fmt.Errorf("refresh request failed: %w", err)
	}
	if resp.StatusCode() != http.StatusOK {
		return "", fmt.Errorf("refresh rejected with status %d", resp.StatusCode())
	}
	if pair.AccessToken == "" || pair.RefreshToken == "" {
		return "", fmt.Errorf("refresh response missing tokens")
	}

	if err := s.store.Save(pair.AccessToken, pair.RefreshToken); err != nil {
		return "", fmt.Errorf("failed to persist rotated tokens: %w", err)
	}
	return pair.AccessToken, nil
}

// expire clears the local session, records the current location for
// post-login restoration and invokes the expiry callback. Locations on auth
// screens are not recorded so a failed refresh during login cannot redirect
// back into the login flow.
func (s *Session) expire() {
	_ = s.store.Clear()

	returnTo := ""
	if s.location != nil {
		loc := s.location()
		if loc != "" && !isAuthLocation(loc) {
			returnTo = loc
		}
	}

	s.mu.Lock()
	s.returnTo = returnTo
	s.mu.Unlock()

	if s.onExpired != nil {
		s.onExpired(returnTo)
	}
}

func isAuthLocation(loc string) bool {
	trimmed := strings.TrimPrefix(loc, "/")
	return strings.HasPrefix(trimmed, "auth/") || trimmed == "auth" ||
		strings.HasPrefix(trimmed, "login") || strings.HasPrefix(trimmed, "register")
}

// Logout notifies the server, then clears the local session regardless of
// whether the server call succeeded.
func (s *Session) Logout(ctx context.Context) error {
	access, _ := s.store.Tokens()

	req := s.api.R().SetContext(ctx)
	if access != "" {
		req.SetHeader("Authorization", "Bearer "+access)
	}
	resp, err := req.Post("/api/v1/auth/logout")

	if clearErr := s.store.Clear(); clearErr != nil {
		return clearErr
	}
	if err != nil {
		return fmt.Errorf("logout request failed: %w", err)
	}
	if resp.StatusCode() != http.StatusOK {
		return fmt.Errorf("logout rejected with status %d", resp.StatusCode())
	}
	return nil
}

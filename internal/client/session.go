package client

import (
	"context"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"
)

// User is the client-side view of the current identity.
type User struct {
	ID        int64     `json:"id"`
	Email     string    `json:"email"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"createdAt"`
}

const AdminRole = "ADMIN"

// DefaultRefreshInterval fires the proactive refresh one minute before the
// 15-minute access token expires.
const DefaultRefreshInterval = 14 * time.Minute

// SessionStore caches the current identity and drives the auth endpoints.
// It owns the proactive refresh timer: started on successful
// login/registration, always cancelled on reset.
type SessionStore struct {
	api             *Client
	logger          *zap.Logger
	refreshInterval time.Duration

	mu          sync.Mutex
	user        *User
	loading     bool
	initialized bool
	stopRefresh chan struct{}
}

// NewSessionStore creates a session store. A non-positive refreshInterval
// falls back to DefaultRefreshInterval.
func NewSessionStore(api *Client, refreshInterval time.Duration, logger *zap.Logger) *SessionStore {
	if refreshInterval <= 0 {
		refreshInterval = DefaultRefreshInterval
	}
	return &SessionStore{
		api:             api,
		logger:          logger,
		refreshInterval: refreshInterval,
	}
}

type userResponse struct {
	User *User `json:"user"`
}

// User returns the cached identity, or nil when there is no session.
func (s *SessionStore) User() *User {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.user
}

// Initialized reports whether an auth check has completed at least once.
func (s *SessionStore) Initialized() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.initialized
}

// Loading reports whether a session operation is in flight.
func (s *SessionStore) Loading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loading
}

// Register creates an account and starts the session.
func (s *SessionStore) Register(ctx context.Context, email, password, confirmPassword string) error {
	s.setLoading(true)
	defer s.setLoading(false)

	var resp userResponse
	err := s.api.doJSON(ctx, http.MethodPost, "/api/auth/register", map[string]string{
		"email":           email,
		"password":        password,
		"confirmPassword": confirmPassword,
	}, &resp)
	if err != nil {
		return err
	}

	s.setUser(resp.User)
	s.startRefreshTimer()
	return nil
}

// Login authenticates and starts the session.
func (s *SessionStore) Login(ctx context.Context, email, password string) error {
	s.setLoading(true)
	defer s.setLoading(false)

	var resp userResponse
	err := s.api.doJSON(ctx, http.MethodPost, "/api/auth/login", map[string]string{
		"email":    email,
		"password": password,
	}, &resp)
	if err != nil {
		return err
	}

	s.setUser(resp.User)
	s.startRefreshTimer()
	return nil
}

// CheckAuth initializes the session from existing cookies. It is a no-op
// once initialized, and a failed check is tolerated: it just means there is
// no session.
func (s *SessionStore) CheckAuth(ctx context.Context) error {
	s.mu.Lock()
	if s.initialized {
		s.mu.Unlock()
		return nil
	}
	s.mu.Unlock()

	var resp userResponse
	err := s.api.doJSON(ctx, http.MethodGet, "/api/auth/me", nil, &resp)

	s.mu.Lock()
	s.initialized = true
	if err != nil {
		s.user = nil
		s.mu.Unlock()
		return err
	}
	s.user = resp.User
	s.mu.Unlock()

	s.startRefreshTimer()
	return nil
}

// Logout ends the session server-side and resets local state regardless of
// the call's outcome.
func (s *SessionStore) Logout(ctx context.Context) error {
	err := s.api.doJSON(ctx, http.MethodPost, "/api/auth/logout", nil, nil)
	s.Reset()
	return err
}

// Reset clears identity and flags and cancels the refresh timer.
func (s *SessionStore) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.user = nil
	s.loading = false
	s.initialized = false
	s.stopRefreshLocked()
}

func (s *SessionStore) setUser(u *User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.user = u
	s.initialized = true
}

func (s *SessionStore) setLoading(v bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loading = v
}

// startRefreshTimer launches the proactive refresh loop, replacing any
// previous one. A failed proactive refresh ends the session.
func (s *SessionStore) startRefreshTimer() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.stopRefreshLocked()
	stop := make(chan struct{})
	s.stopRefresh = stop

	go func() {
		ticker := time.NewTicker(s.refreshInterval)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				err := s.api.doJSON(context.Background(), http.MethodPost, "/api/auth/refresh-token", nil, nil)
				if err != nil {
					s.logger.Warn("Proactive token refresh failed, ending session", zap.Error(err))
					_ = s.Logout(context.Background())
					return
				}
			}
		}
	}()
}

// stopRefreshLocked cancels the refresh loop. Caller must hold mu.
func (s *SessionStore) stopRefreshLocked() {
	if s.stopRefresh != nil {
		close(s.stopRefresh)
		s.stopRefresh = nil
	}
}

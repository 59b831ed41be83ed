package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/lrx/internal/models"
	"github.com/desertthunder/lrx/internal/shared"
	"golang.org/x/sync/singleflight"
)

// DefaultInitTimeout bounds [Manager.Initialize].
const DefaultInitTimeout = 10 * time.Second

// storeTimeout bounds credential store writes that must outlive the caller's context.
const storeTimeout = 5 * time.Second

// refreshTimeout bounds a shared refresh, which no single caller's context owns.
const refreshTimeout = 30 * time.Second

// AuthClient is the subset of the auth endpoints the manager needs.
type AuthClient interface {
	Login(ctx context.Context, email, password string) (*models.AuthResponse, error)
	Signup(ctx context.Context, email, password, name string) (*models.AuthResponse, error)
	GoogleLogin(ctx context.Context, idToken string) (*models.AuthResponse, error)
	CurrentUser(ctx context.Context, token string) (*models.Identity, error)
	Refresh(ctx context.Context, token string) (string, error)
	Logout(ctx context.Context, token string) error
}

// Options configures a [Manager]. Auth and Store are required.
type Options struct {
	Auth        AuthClient
	Store       CredentialStore
	Navigator   Navigator
	Notifier    shared.Notifier
	Logger      *log.Logger
	Clock       func() time.Time
	InitTimeout time.Duration
}

// Manager maintains the single authoritative [Session].
//
// All reads return copies. All writes (status, identity, credential and the persisted
// store) commit together under one lock so no reader observes a partial transition.
type Manager struct {
	auth        AuthClient
	store       CredentialStore
	nav         Navigator
	notifier    shared.Notifier
	logger      *log.Logger
	now         func() time.Time
	initTimeout time.Duration

	mu    sync.RWMutex
	state Session

	initOnce sync.Once
	refresh  singleflight.Group

	subsMu sync.Mutex
	subs   map[chan Session]struct{}
}

// NewManager creates a Manager in the Initializing state.
func NewManager(opts Options) *Manager {
	m := &Manager{
		auth:        opts.Auth,
		store:       opts.Store,
		nav:         opts.Navigator,
		notifier:    opts.Notifier,
		logger:      opts.Logger,
		now:         opts.Clock,
		initTimeout: opts.InitTimeout,
		state:       Session{Status: Initializing},
		subs:        make(map[chan Session]struct{}),
	}
	if m.store == nil {
		m.store = NewMemoryStore(nil)
	}
	if m.nav == nil {
		m.nav = NopNavigator{}
	}
	if m.notifier == nil {
		m.notifier = shared.NopNotifier{}
	}
	if m.logger == nil {
		m.logger = log.New(io.Discard)
	}
	if m.now == nil {
		m.now = time.Now
	}
	if m.initTimeout <= 0 {
		m.initTimeout = DefaultInitTimeout
	}
	return m
}

// Snapshot returns a copy of the current session.
func (m *Manager) Snapshot() Session {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state.clone()
}

// Status returns the current status.
func (m *Manager) Status() Status {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state.Status
}

// User returns a copy of the current identity, or nil.
func (m *Manager) User() *models.Identity {
	return m.Snapshot().User
}

// IsAuthenticated reports whether the session is authenticated.
func (m *Manager) IsAuthenticated() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state.IsAuthenticated()
}

// Token returns the current bearer credential, or "" when there is none or it has expired.
func (m *Manager) Token() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.state.Credential == nil || !m.state.Credential.Valid(m.now()) {
		return ""
	}
	return m.state.Credential.Token
}

// Subscribe returns a channel that receives the latest session after every transition.
//
// Only the most recent session is buffered; a slow reader skips intermediate states.
func (m *Manager) Subscribe() <-chan Session {
	ch := make(chan Session, 1)
	m.subsMu.Lock()
	m.subs[ch] = struct{}{}
	m.subsMu.Unlock()
	return ch
}

// Unsubscribe stops delivery to ch and closes it.
func (m *Manager) Unsubscribe(ch <-chan Session) {
	m.subsMu.Lock()
	defer m.subsMu.Unlock()
	for sub := range m.subs {
		if sub == ch {
			delete(m.subs, sub)
			close(sub)
			return
		}
	}
}

func (m *Manager) publish(s Session) {
	m.subsMu.Lock()
	defer m.subsMu.Unlock()
	for ch := range m.subs {
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- s.clone():
		default:
		}
	}
}

// commit applies fn to the state under the write lock and publishes the result.
//
// When fn returns an error the state is left as it was.
func (m *Manager) commit(fn func(s *Session) error) (Session, error) {
	m.mu.Lock()
	next := m.state.clone()
	if err := fn(&next); err != nil {
		m.mu.Unlock()
		return Session{}, err
	}
	m.state = next
	snapshot := next.clone()
	m.mu.Unlock()

	m.publish(snapshot)
	return snapshot, nil
}

// Initialize resolves the Initializing state once, by validating any persisted credential.
//
// It never returns an error: every failure resolves to Anonymous with the persisted
// credential discarded. Later calls return the current session without doing any work.
func (m *Manager) Initialize(ctx context.Context) Session {
	m.initOnce.Do(func() {
		ctx, cancel := context.WithTimeout(ctx, m.initTimeout)
		defer cancel()

		user, cred := m.validateStored(ctx)

		_, _ = m.commit(func(s *Session) error {
			if s.Status != Initializing {
				return errAlreadyResolved
			}
			if user != nil && cred != nil {
				s.Status, s.User, s.Credential = Authenticated, user, cred
				return nil
			}
			m.clearStore(ctx)
			s.Status, s.User, s.Credential = Anonymous, nil, nil
			return nil
		})
		m.logger.Debug("session initialized", "status", m.Status())
	})
	return m.Snapshot()
}

var errAlreadyResolved = errors.New("session already resolved")

func (m *Manager) validateStored(ctx context.Context) (*models.Identity, *models.Credential) {
	cred, err := m.store.Load(ctx)
	if err != nil {
		m.logger.Warn("failed to load stored credential", "error", err)
		return nil, nil
	}
	if cred == nil {
		return nil, nil
	}
	if !cred.Valid(m.now()) {
		m.logger.Debug("stored credential expired", "expires_at", cred.ExpiresAt)
		return nil, nil
	}

	user, err := m.auth.CurrentUser(ctx, cred.Token)
	if err != nil {
		m.logger.Info("stored credential rejected", "error", err)
		return nil, nil
	}
	return user, cred
}

// Login signs in with email and password.
func (m *Manager) Login(ctx context.Context, email, password string) (*models.Identity, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return nil, validationError("login", "Email and password are required")
	}

	resp, err := m.auth.Login(ctx, email, password)
	if err != nil {
		return nil, newAuthError("login", defaultLoginMessage, err)
	}
	return m.establish(ctx, resp)
}

// Signup registers and signs in. name is optional.
func (m *Manager) Signup(ctx context.Context, email, password, name string) (*models.Identity, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return nil, validationError("signup", "Email and password are required")
	}

	resp, err := m.auth.Signup(ctx, email, password, strings.TrimSpace(name))
	if err != nil {
		return nil, newAuthError("signup", defaultSignupMessage, err)
	}
	return m.establish(ctx, resp)
}

// OAuthLogin signs in with a token issued by the federated identity provider.
func (m *Manager) OAuthLogin(ctx context.Context, providerToken string) (*models.Identity, error) {
	if strings.TrimSpace(providerToken) == "" {
		return nil, validationError("google login", "Google token is required")
	}

	resp, err := m.auth.GoogleLogin(ctx, providerToken)
	if err != nil {
		return nil, newAuthError("google login", defaultGoogleMessage, err)
	}
	return m.establish(ctx, resp)
}

// establish persists the credential, then sets identity and status in the same commit.
func (m *Manager) establish(ctx context.Context, resp *models.AuthResponse) (*models.Identity, error) {
	cred := models.NewCredential(resp.AccessToken, m.now())
	user := *resp.User

	s, err := m.commit(func(s *Session) error {
		if err := m.store.Save(ctx, cred); err != nil {
			return fmt.Errorf("failed to persist credential: %w", err)
		}
		s.Status, s.User, s.Credential = Authenticated, &user, &cred
		return nil
	})
	if err != nil {
		return nil, err
	}

	m.logger.Info("signed in", "user", user.ID)
	m.nav.Navigate(SurfaceLanding)
	return s.User, nil
}

// Logout discards the credential and identity and navigates to the login surface.
//
// The server-side logout is best effort. Logout is idempotent and never fails.
func (m *Manager) Logout(ctx context.Context) {
	if token := m.Token(); token != "" {
		if err := m.auth.Logout(ctx, token); err != nil {
			m.logger.Debug("server logout failed", "error", err)
		}
	}

	m.reset(ctx)
	m.nav.Navigate(SurfaceLogin)
}

// Expire forces the session to Anonymous after an irrecoverable refresh failure.
//
// Only the call that moves the session out of Authenticated navigates to the login surface
// and, if a credential was in use, notifies the user; concurrent failures after it are quiet.
func (m *Manager) Expire(ctx context.Context, cause error) {
	prev, had := m.reset(ctx)
	m.logger.Warn("session expired", "cause", cause)

	if prev == Anonymous {
		return
	}
	m.nav.Navigate(SurfaceLogin)
	if had {
		m.notifier.Notify(shared.Notice{Level: shared.NoticeWarn, Message: MessageSessionExpired})
	}
}

// reset clears the store and moves to Anonymous. It reports the previous status and whether
// a credential was present.
func (m *Manager) reset(ctx context.Context) (Status, bool) {
	var (
		prev Status
		had  bool
	)
	_, _ = m.commit(func(s *Session) error {
		prev, had = s.Status, s.Credential != nil
		m.clearStore(ctx)
		s.Status, s.User, s.Credential = Anonymous, nil, nil
		return nil
	})
	return prev, had
}

// clearStore discards the persisted credential even when ctx is already done, so a timed out
// or canceled caller never leaves a token behind an Anonymous session.
func (m *Manager) clearStore(ctx context.Context) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), storeTimeout)
	defer cancel()
	if err := m.store.Clear(ctx); err != nil {
		m.logger.Warn("failed to clear stored credential", "error", err)
	}
}

// Refresh exchanges the current credential for a new one. The identity is unchanged.
//
// Concurrent calls share a single request. The shared request is detached from every caller's
// context; a caller whose ctx ends first gets ctx.Err() while the others keep waiting.
func (m *Manager) Refresh(ctx context.Context) (string, error) {
	ch := m.refresh.DoChan("refresh", func() (any, error) {
		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), refreshTimeout)
		defer cancel()

		token := m.Token()
		if token == "" {
			return "", shared.ErrNotAuthenticated
		}

		next, err := m.auth.Refresh(ctx, token)
		if err != nil {
			return "", err
		}

		cred := models.NewCredential(next, m.now())
		_, err = m.commit(func(s *Session) error {
			if s.Status != Authenticated || s.Credential == nil {
				return shared.ErrNotAuthenticated
			}
			if s.Credential.Token != token {
				// Replaced by a concurrent sign-in; keep the newer credential.
				cred = *s.Credential
				return nil
			}
			if err := m.store.Save(ctx, cred); err != nil {
				return fmt.Errorf("failed to persist credential: %w", err)
			}
			s.Credential = &cred
			return nil
		})
		if err != nil {
			return "", err
		}
		m.logger.Debug("credential refreshed")
		return cred.Token, nil
	})

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return "", res.Err
		}
		return res.Val.(string), nil
	}
}

package session

import (
	"context"
	"sync"

	"github.com/desertthunder/lrx/internal/models"
)

// Status is the authentication status of a [Session].
type Status int

const (
	Initializing Status = iota
	Authenticated
	Anonymous
)

func (s Status) String() string {
	switch s {
	case Initializing:
		return "initializing"
	case Authenticated:
		return "authenticated"
	case Anonymous:
		return "anonymous"
	default:
		return "unknown"
	}
}

// Session is a point-in-time copy of the authentication state.
type Session struct {
	Status     Status
	User       *models.Identity
	Credential *models.Credential
}

// IsAuthenticated reports whether the session is authenticated.
func (s Session) IsAuthenticated() bool {
	return s.Status == Authenticated && s.User != nil && s.Credential != nil
}

func (s Session) clone() Session {
	out := Session{Status: s.Status}
	if s.User != nil {
		u := *s.User
		out.User = &u
	}
	if s.Credential != nil {
		c := *s.Credential
		out.Credential = &c
	}
	return out
}

// Surface is a navigation target in the presentation layer.
type Surface int

const (
	// SurfaceLanding is where the user lands after signing in.
	SurfaceLanding Surface = iota
	// SurfaceLogin is the sign-in surface.
	SurfaceLogin
)

// Path returns the route of the surface.
func (s Surface) Path() string {
	switch s {
	case SurfaceLogin:
		return "/login"
	default:
		return "/"
	}
}

func (s Surface) String() string {
	switch s {
	case SurfaceLogin:
		return "login"
	default:
		return "landing"
	}
}

// Navigator receives navigation side effects.
type Navigator interface {
	Navigate(Surface)
}

// NavigatorFunc adapts a function to [Navigator].
type NavigatorFunc func(Surface)

func (f NavigatorFunc) Navigate(s Surface) { f(s) }

// NopNavigator ignores navigation.
type NopNavigator struct{}

func (NopNavigator) Navigate(Surface) {}

// CredentialStore persists the bearer credential under a single fixed key.
//
// Load returns nil, nil when nothing is stored.
type CredentialStore interface {
	Load(ctx context.Context) (*models.Credential, error)
	Save(ctx context.Context, c models.Credential) error
	Clear(ctx context.Context) error
}

// MemoryStore is an in-process [CredentialStore].
type MemoryStore struct {
	mu   sync.Mutex
	cred *models.Credential
}

// NewMemoryStore returns a store optionally seeded with c.
func NewMemoryStore(c *models.Credential) *MemoryStore {
	s := &MemoryStore{}
	if c != nil {
		cp := *c
		s.cred = &cp
	}
	return s
}

func (s *MemoryStore) Load(context.Context) (*models.Credential, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cred == nil {
		return nil, nil
	}
	c := *s.cred
	return &c, nil
}

func (s *MemoryStore) Save(_ context.Context, c models.Credential) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cred = &c
	return nil
}

func (s *MemoryStore) Clear(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cred = nil
	return nil
}

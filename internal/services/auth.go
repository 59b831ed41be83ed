package services

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/desertthunder/lrx/internal/models"
	"github.com/desertthunder/lrx/internal/shared"
)

// AuthService calls the /auth endpoints.
type AuthService struct {
	api *APIService
}

// NewAuthService creates an [AuthService] on top of api.
func NewAuthService(api *APIService) *AuthService {
	return &AuthService{api: api}
}

// Login exchanges email and password for an identity and bearer token.
func (s *AuthService) Login(ctx context.Context, email, password string) (*models.AuthResponse, error) {
	return s.authenticate(ctx, "/auth/login", models.LoginRequest{Email: email, Password: password})
}

// Signup registers a new account and signs it in.
func (s *AuthService) Signup(ctx context.Context, email, password, name string) (*models.AuthResponse, error) {
	return s.authenticate(ctx, "/auth/signup", models.SignupRequest{Email: email, Password: password, Name: name})
}

// GoogleLogin exchanges a Google ID token for an identity and bearer token.
func (s *AuthService) GoogleLogin(ctx context.Context, idToken string) (*models.AuthResponse, error) {
	return s.authenticate(ctx, "/auth/google", models.GoogleLoginRequest{Token: idToken})
}

func (s *AuthService) authenticate(ctx context.Context, path string, body any) (*models.AuthResponse, error) {
	var out models.AuthResponse
	err := s.api.Call(ctx, Request{
		Method:    http.MethodPost,
		Path:      path,
		Body:      body,
		NoRefresh: true,
		Anonymous: true,
	}, &out)
	if err != nil {
		return nil, err
	}
	if out.User == nil || out.AccessToken == "" {
		return nil, &APIError{
			Kind:    KindDecode,
			Method:  http.MethodPost,
			Path:    path,
			Status:  http.StatusOK,
			Message: "response is missing user or access token",
		}
	}
	return &out, nil
}

// CurrentUser validates token against /auth/me and returns its identity.
//
// The token is sent explicitly and the refresh path is disabled; this is used while the session is still initializing.
func (s *AuthService) CurrentUser(ctx context.Context, token string) (*models.Identity, error) {
	if token == "" {
		return nil, shared.ErrNotAuthenticated
	}

	var raw map[string]json.RawMessage
	err := s.api.Call(ctx, Request{
		Method:    http.MethodGet,
		Path:      "/auth/me",
		NoRefresh: true,
		bearer:    token,
	}, &raw)
	if err != nil {
		return nil, err
	}

	// The identity is either the body itself or wrapped in a "user" field.
	var user models.Identity
	data, err := json.Marshal(raw)
	if wrapped, ok := raw["user"]; ok {
		data = wrapped
	}
	if err == nil {
		err = json.Unmarshal(data, &user)
	}
	if err != nil || user.ID == "" {
		return nil, &APIError{Kind: KindDecode, Method: http.MethodGet, Path: "/auth/me", Status: http.StatusOK, Message: "response is missing user", Err: err}
	}
	return &user, nil
}

// Refresh exchanges token for a new bearer token.
func (s *AuthService) Refresh(ctx context.Context, token string) (string, error) {
	if token == "" {
		return "", shared.ErrNotAuthenticated
	}

	var out models.RefreshResponse
	err := s.api.Call(ctx, Request{
		Method:    http.MethodPost,
		Path:      "/auth/refresh",
		NoRefresh: true,
		bearer:    token,
	}, &out)
	if err != nil {
		return "", errors.Join(shared.ErrRefreshFailed, err)
	}
	if out.AccessToken == "" {
		return "", shared.ErrRefreshFailed
	}
	return out.AccessToken, nil
}

// Logout tells the server to end the session for token.
func (s *AuthService) Logout(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	_, err := s.api.Do(ctx, Request{
		Method:    http.MethodPost,
		Path:      "/auth/logout",
		NoRefresh: true,
		bearer:    token,
	})
	return err
}

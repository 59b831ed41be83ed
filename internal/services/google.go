package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/desertthunder/lrx/internal/shared"
	"golang.org/x/oauth2"
)

// GoogleIssuer is the OpenID Connect issuer for Google accounts.
const GoogleIssuer = "https://accounts.google.com"

// GoogleClaims are the ID token claims needed before handing the token to the API.
type GoogleClaims struct {
	Subject       string `json:"sub"`
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
	Name          string `json:"name"`
	Picture       string `json:"picture"`
}

// GoogleProvider runs the authorization code flow with PKCE against Google and
// verifies the returned ID token locally.
type GoogleProvider struct {
	oauthConfig *oauth2.Config
	verifier    *oidc.IDTokenVerifier
}

// NewGoogleProvider discovers Google's OIDC endpoints and builds a provider from cfg.
func NewGoogleProvider(ctx context.Context, cfg shared.AuthConfig) (*GoogleProvider, error) {
	if !cfg.GoogleEnabled() || cfg.RedirectURI == "" {
		return nil, fmt.Errorf("%w: google client id, secret and redirect uri are required", shared.ErrMissingConfig)
	}

	provider, err := oidc.NewProvider(ctx, GoogleIssuer)
	if err != nil {
		return nil, fmt.Errorf("failed to init google oidc provider: %w", err)
	}

	oauthCfg := &oauth2.Config{
		ClientID:     cfg.GoogleClientID,
		ClientSecret: cfg.GoogleClientSecret,
		RedirectURL:  cfg.RedirectURI,
		Endpoint:     provider.Endpoint(),
		Scopes:       []string{oidc.ScopeOpenID, "profile", "email"},
	}

	return NewGoogleProviderWith(oauthCfg, provider.Verifier(&oidc.Config{ClientID: cfg.GoogleClientID})), nil
}

// NewGoogleProviderWith builds a provider from an explicit OAuth config and verifier.
func NewGoogleProviderWith(cfg *oauth2.Config, verifier *oidc.IDTokenVerifier) *GoogleProvider {
	return &GoogleProvider{oauthConfig: cfg, verifier: verifier}
}

// Config returns the underlying OAuth2 configuration.
func (p *GoogleProvider) Config() *oauth2.Config { return p.oauthConfig }

// AuthCodeURL builds the consent URL carrying state and the S256 challenge for verifier.
func (p *GoogleProvider) AuthCodeURL(state, verifier string) string {
	return p.oauthConfig.AuthCodeURL(state, oauth2.AccessTypeOnline, oauth2.S256ChallengeOption(verifier))
}

// VerifyIDToken checks the ID token's signature, issuer, audience and expiry.
func (p *GoogleProvider) VerifyIDToken(ctx context.Context, raw string) (*GoogleClaims, error) {
	idToken, err := p.verifier.Verify(ctx, raw)
	if err != nil {
		return nil, fmt.Errorf("google id_token verification failed: %w", err)
	}

	var claims GoogleClaims
	if err := idToken.Claims(&claims); err != nil {
		return nil, fmt.Errorf("google id_token claims parse failed: %w", err)
	}
	if claims.Subject == "" || claims.Email == "" {
		return nil, errors.New("google id_token missing required claims")
	}
	return &claims, nil
}

// IDTokenFrom extracts the raw id_token returned alongside an OAuth2 token.
func IDTokenFrom(tok *oauth2.Token) (string, error) {
	if tok == nil {
		return "", errors.New("no token")
	}
	raw, ok := tok.Extra("id_token").(string)
	if !ok || raw == "" {
		return "", errors.New("google did not return id_token")
	}
	return raw, nil
}

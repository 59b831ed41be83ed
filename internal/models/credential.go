package models

import (
	"fmt"
	"time"
)

const (
	// CredentialKey is the fixed name the bearer token is persisted under.
	CredentialKey = "token"
	// CredentialTTL is the lifetime of a persisted bearer token.
	CredentialTTL = 7 * 24 * time.Hour
)

// Credential is an opaque bearer token with a client-side expiry.
type Credential struct {
	Token     string    `json:"-"`
	ExpiresAt time.Time `json:"expires_at"`
}

// NewCredential returns a credential for token that expires [CredentialTTL] after now.
func NewCredential(token string, now time.Time) Credential {
	return Credential{Token: token, ExpiresAt: now.Add(CredentialTTL)}
}

// Valid reports whether the credential has a token and has not expired at now.
func (c Credential) Valid(now time.Time) bool {
	return c.Token != "" && now.Before(c.ExpiresAt)
}

// String redacts the token.
func (c Credential) String() string {
	if c.Token == "" {
		return "Credential(empty)"
	}
	return fmt.Sprintf("Credential(redacted, expires %s)", c.ExpiresAt.Format(time.RFC3339))
}

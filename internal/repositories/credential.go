package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/desertthunder/lrx/internal/models"
	"github.com/desertthunder/lrx/internal/shared"
)

// GuestSessionKey is the key the anonymous search session id is stored under.
const GuestSessionKey = "guest_session_id"

// CredentialRepository persists the bearer credential in the credentials table.
//
// Rows past their expiry are treated as absent and removed on read.
type CredentialRepository struct {
	db  *sql.DB
	now func() time.Time
}

// NewCredentialRepository creates a new CredentialRepository with the given database connection
func NewCredentialRepository(db *sql.DB) *CredentialRepository {
	return &CredentialRepository{db: db, now: time.Now}
}

// Load returns the stored credential, or nil when none is stored or it has expired.
func (r *CredentialRepository) Load(ctx context.Context) (*models.Credential, error) {
	value, expiresAt, err := r.get(ctx, models.CredentialKey)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	cred := &models.Credential{Token: value}
	if expiresAt.Valid {
		cred.ExpiresAt = expiresAt.Time
	}
	if !cred.Valid(r.now()) {
		if err := r.delete(ctx, models.CredentialKey); err != nil {
			return nil, err
		}
		return nil, nil
	}
	return cred, nil
}

// Save stores c, replacing any previous credential.
func (r *CredentialRepository) Save(ctx context.Context, c models.Credential) error {
	if c.Token == "" {
		return fmt.Errorf("%w: credential token is empty", shared.ErrValidation)
	}
	return r.put(ctx, models.CredentialKey, c.Token, sql.NullTime{Time: c.ExpiresAt, Valid: !c.ExpiresAt.IsZero()})
}

// Clear removes the stored credential. Clearing an empty store is not an error.
func (r *CredentialRepository) Clear(ctx context.Context) error {
	return r.delete(ctx, models.CredentialKey)
}

// GuestSessionID returns the stable id anonymous searches are counted under, creating it on first use.
func (r *CredentialRepository) GuestSessionID(ctx context.Context) (string, error) {
	value, _, err := r.get(ctx, GuestSessionKey)
	if err == nil && value != "" {
		return value, nil
	}
	if err != nil && !errors.Is(err, ErrNotFound) {
		return "", err
	}

	id := shared.GenerateID()
	if err := r.put(ctx, GuestSessionKey, id, sql.NullTime{}); err != nil {
		return "", err
	}
	return id, nil
}

func (r *CredentialRepository) get(ctx context.Context, key string) (string, sql.NullTime, error) {
	var (
		value     string
		expiresAt sql.NullTime
	)
	err := r.db.QueryRowContext(ctx, `SELECT value, expires_at FROM credentials WHERE key = ?`, key).Scan(&value, &expiresAt)
	if err == sql.ErrNoRows {
		return "", expiresAt, ErrNotFound
	}
	if err != nil {
		return "", expiresAt, fmt.Errorf("failed to read %s: %w", key, err)
	}
	return value, expiresAt, nil
}

func (r *CredentialRepository) put(ctx context.Context, key, value string, expiresAt sql.NullTime) error {
	now := r.now().UTC()
	query := `
		INSERT INTO credentials (key, value, expires_at, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, expires_at = excluded.expires_at, updated_at = excluded.updated_at
	`
	if _, err := r.db.ExecContext(ctx, query, key, value, expiresAt, now, now); err != nil {
		return fmt.Errorf("failed to store %s: %w", key, err)
	}
	return nil
}

func (r *CredentialRepository) delete(ctx context.Context, key string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM credentials WHERE key = ?`, key); err != nil {
		return fmt.Errorf("failed to delete %s: %w", key, err)
	}
	return nil
}

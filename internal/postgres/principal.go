package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const (
	resolveSessionSQL = `
		SELECT user_id::text
		FROM user_sessions
		WHERE token = $1 AND expires_at > now()`

	isMemberSQL = `
		SELECT EXISTS (
			SELECT 1 FROM organization_members
			WHERE organization_id = $1 AND user_id = $2
		)`
)

// SessionStore resolves session tokens issued by the authentication provider.
type SessionStore struct {
	pool DBPool
}

// NewSessionStore creates a new PostgreSQL-backed session store.
func NewSessionStore(pool DBPool) *SessionStore {
	return &SessionStore{pool: pool}
}

// ResolveUser returns the user signed in with token, or uuid.Nil for a
// guest or expired session.
func (s *SessionStore) ResolveUser(ctx context.Context, token string) (uuid.UUID, error) {
	var raw string
	err := s.pool.QueryRow(ctx, resolveSessionSQL, token).Scan(&raw)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return uuid.Nil, nil
		}
		return uuid.Nil, fmt.Errorf("resolve session: %w", err)
	}

	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, fmt.Errorf("resolve session: invalid user id %q: %w", raw, err)
	}
	return id, nil
}

// OrganizationDirectory reads organization membership.
type OrganizationDirectory struct {
	pool DBPool
}

// NewOrganizationDirectory creates a new PostgreSQL-backed organization directory.
func NewOrganizationDirectory(pool DBPool) *OrganizationDirectory {
	return &OrganizationDirectory{pool: pool}
}

// IsMember reports whether userID belongs to organizationID.
func (d *OrganizationDirectory) IsMember(ctx context.Context, userID, organizationID uuid.UUID) (bool, error) {
	var member bool
	if err := d.pool.QueryRow(ctx, isMemberSQL, organizationID, userID).Scan(&member); err != nil {
		return false, fmt.Errorf("check organization membership: %w", err)
	}
	return member, nil
}

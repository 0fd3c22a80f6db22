package postgres

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"clinic-authz/internal/policy"
	"clinic-authz/internal/principal"
)

// PrincipalRepository resolves principals from the user_roles table
type PrincipalRepository struct {
	db dbtx
}

func NewPrincipalRepository(db *DB) *PrincipalRepository {
	return &PrincipalRepository{db: db.Pool}
}

func (r *PrincipalRepository) Resolve(ctx context.Context, userID uuid.UUID) (principal.Principal, error) {
	query := `
		SELECT user_id, role, unit_id
		FROM user_roles
		WHERE user_id = $1
	`

	var (
		p    principal.Principal
		role string
	)
	err := r.db.QueryRow(ctx, query, userID).Scan(
		&p.UserID,
		&role,
		&p.UnitID,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return principal.Principal{}, principal.ErrNotFound
		}
		return principal.Principal{}, errFailedGetPrincipal(err)
	}

	p.Role = policy.Role(role)
	return p, nil
}

package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/funnelhq/funnel-api/internal/model"
	"github.com/funnelhq/funnel-api/internal/repository"
)

type membershipRepository struct {
	db *sqlx.DB
}

func NewMembershipRepository(db *sqlx.DB) repository.MembershipRepository {
	return &membershipRepository{db: db}
}

func (r *membershipRepository) Create(ctx context.Context, m *model.Membership) error {
	query := `
		INSERT INTO memberships (
			id, organization_id, user_id, role, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6)
	`

	m.ID = uuid.New()
	m.CreatedAt = time.Now()
	m.UpdatedAt = time.Now()

	_, err := r.db.ExecContext(ctx, query,
		m.ID,
		m.OrganizationID,
		m.UserID,
		m.Role,
		m.CreatedAt,
		m.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create membership: %w", err)
	}
	return nil
}

func (r *membershipRepository) GetRole(ctx context.Context, orgID, userID uuid.UUID) (string, error) {
	query := `
		SELECT role FROM memberships
		WHERE organization_id = $1 AND user_id = $2
	`
	var role string
	if err := r.db.GetContext(ctx, &role, query, orgID, userID); err != nil {
		return "", fmt.Errorf("failed to get membership role: %w", err)
	}
	return role, nil
}

func (r *membershipRepository) List(ctx context.Context, orgID uuid.UUID) ([]*model.Member, error) {
	query := `
		SELECT m.user_id, u.email, u.name, m.role, m.created_at
		FROM memberships m
		JOIN users u ON u.id = m.user_id
		WHERE m.organization_id = $1
		ORDER BY m.created_at ASC
	`
	var members []*model.Member
	if err := r.db.SelectContext(ctx, &members, query, orgID); err != nil {
		return nil, fmt.Errorf("failed to list members: %w", err)
	}
	return members, nil
}

func (r *membershipRepository) UpdateRole(ctx context.Context, orgID, userID uuid.UUID, role string) error {
	query := `
		UPDATE memberships
		SET role = $1, updated_at = $2
		WHERE organization_id = $3 AND user_id = $4
	`
	result, err := r.db.ExecContext(ctx, query, role, time.Now(), orgID, userID)
	if err != nil {
		return fmt.Errorf("failed to update membership role: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("membership not found")
	}

	return nil
}

func (r *membershipRepository) Delete(ctx context.Context, orgID, userID uuid.UUID) error {
	query := `
		DELETE FROM memberships
		WHERE organization_id = $1 AND user_id = $2
	`
	result, err := r.db.ExecContext(ctx, query, orgID, userID)
	if err != nil {
		return fmt.Errorf("failed to delete membership: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("membership not found")
	}

	return nil
}

func (r *membershipRepository) CountByRole(ctx context.Context, orgID uuid.UUID, role string) (int, error) {
	query := `
		SELECT COUNT(*) FROM memberships
		WHERE organization_id = $1 AND role = $2
	`
	var count int
	if err := r.db.GetContext(ctx, &count, query, orgID, role); err != nil {
		return 0, fmt.Errorf("failed to count memberships: %w", err)
	}
	return count, nil
}

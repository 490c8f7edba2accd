// Package repository provides PostgreSQL and MySQL persistence for
// authorization policies.
package repository

import (
	"context"
	"database/sql"
	"strings"

	authzDomain "github.com/usphq/usp/internal/authz/domain"
	"github.com/usphq/usp/internal/database"
	apperrors "github.com/usphq/usp/internal/errors"
)

// PostgreSQLPolicyRepository implements policy persistence for PostgreSQL.
type PostgreSQLPolicyRepository struct {
	db *sql.DB
}

// NewPostgreSQLPolicyRepository creates a new PostgreSQL policy repository.
func NewPostgreSQLPolicyRepository(db *sql.DB) *PostgreSQLPolicyRepository {
	return &PostgreSQLPolicyRepository{db: db}
}

const pgPolicyColumns = `id, policy_type, priority, active, body, created_at, updated_at`

// GetByID retrieves the policy with the given id.
func (p *PostgreSQLPolicyRepository) GetByID(ctx context.Context, id string) (*authzDomain.Policy, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT ` + pgPolicyColumns + ` FROM policies WHERE id = $1`

	return scanPolicy(querier.QueryRowContext(ctx, query, id))
}

// Create inserts a new policy.
func (p *PostgreSQLPolicyRepository) Create(ctx context.Context, policy *authzDomain.Policy) error {
	querier := database.GetTx(ctx, p.db)

	query := `INSERT INTO policies (id, policy_type, priority, active, body, created_at, updated_at)
			  VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, err := querier.ExecContext(
		ctx,
		query,
		policy.ID,
		string(policy.Type),
		policy.Priority,
		policy.Active,
		policy.Body,
		policy.CreatedAt,
		policy.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperrors.Wrap(apperrors.ErrConflict, "policy id already exists")
		}
		return apperrors.Wrap(err, "failed to create policy")
	}

	return nil
}

// Update persists the mutable policy fields. The type is immutable.
func (p *PostgreSQLPolicyRepository) Update(ctx context.Context, policy *authzDomain.Policy) error {
	querier := database.GetTx(ctx, p.db)

	query := `UPDATE policies
			  SET priority = $2, active = $3, body = $4, updated_at = $5
			  WHERE id = $1`

	result, err := querier.ExecContext(
		ctx,
		query,
		policy.ID,
		policy.Priority,
		policy.Active,
		policy.Body,
		policy.UpdatedAt,
	)
	if err != nil {
		return apperrors.Wrap(err, "failed to update policy")
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return apperrors.Wrap(err, "failed to read affected row count")
	}
	if affected == 0 {
		return authzDomain.ErrPolicyNotFound
	}

	return nil
}

// DeleteByID removes the policy row.
func (p *PostgreSQLPolicyRepository) DeleteByID(ctx context.Context, id string) error {
	querier := database.GetTx(ctx, p.db)

	result, err := querier.ExecContext(ctx, `DELETE FROM policies WHERE id = $1`, id)
	if err != nil {
		return apperrors.Wrap(err, "failed to delete policy")
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return apperrors.Wrap(err, "failed to read affected row count")
	}
	if affected == 0 {
		return authzDomain.ErrPolicyNotFound
	}

	return nil
}

// List returns every policy ordered by id.
func (p *PostgreSQLPolicyRepository) List(ctx context.Context) ([]*authzDomain.Policy, error) {
	return p.queryPolicies(ctx, `SELECT `+pgPolicyColumns+` FROM policies ORDER BY id ASC`)
}

// ListActive returns every active policy ordered by id. The evaluator loads
// this set per decision.
func (p *PostgreSQLPolicyRepository) ListActive(ctx context.Context) ([]*authzDomain.Policy, error) {
	return p.queryPolicies(ctx, `SELECT `+pgPolicyColumns+` FROM policies WHERE active = TRUE ORDER BY id ASC`)
}

func (p *PostgreSQLPolicyRepository) queryPolicies(ctx context.Context, query string) ([]*authzDomain.Policy, error) {
	querier := database.GetTx(ctx, p.db)

	rows, err := querier.QueryContext(ctx, query)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list policies")
	}
	defer func() {
		_ = rows.Close()
	}()

	policies := make([]*authzDomain.Policy, 0)
	for rows.Next() {
		var policy authzDomain.Policy
		var policyType string
		err := rows.Scan(
			&policy.ID,
			&policyType,
			&policy.Priority,
			&policy.Active,
			&policy.Body,
			&policy.CreatedAt,
			&policy.UpdatedAt,
		)
		if err != nil {
			return nil, apperrors.Wrap(err, "failed to scan policy")
		}
		policy.Type = authzDomain.PolicyType(policyType)
		policies = append(policies, &policy)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(err, "failed to iterate policies")
	}

	return policies, nil
}

func scanPolicy(row *sql.Row) (*authzDomain.Policy, error) {
	var policy authzDomain.Policy
	var policyType string
	err := row.Scan(
		&policy.ID,
		&policyType,
		&policy.Priority,
		&policy.Active,
		&policy.Body,
		&policy.CreatedAt,
		&policy.UpdatedAt,
	)
	if err != nil {
		if apperrors.Is(err, sql.ErrNoRows) {
			return nil, authzDomain.ErrPolicyNotFound
		}
		return nil, apperrors.Wrap(err, "failed to scan policy")
	}
	policy.Type = authzDomain.PolicyType(policyType)
	return &policy, nil
}

// isUniqueViolation checks if the error is a unique constraint violation
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	errMsg := strings.ToLower(err.Error())
	return strings.Contains(errMsg, "duplicate key") ||
		strings.Contains(errMsg, "unique constraint") ||
		strings.Contains(errMsg, "duplicate entry")
}

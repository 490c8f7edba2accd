package repository

import (
	"context"
	"database/sql"

	authzDomain "github.com/usphq/usp/internal/authz/domain"
	"github.com/usphq/usp/internal/database"
	apperrors "github.com/usphq/usp/internal/errors"
)

// MySQLPolicyRepository implements policy persistence for MySQL.
type MySQLPolicyRepository struct {
	db *sql.DB
}

// NewMySQLPolicyRepository creates a new MySQL policy repository.
func NewMySQLPolicyRepository(db *sql.DB) *MySQLPolicyRepository {
	return &MySQLPolicyRepository{db: db}
}

const mysqlPolicyColumns = `id, policy_type, priority, active, body, created_at, updated_at`

// GetByID retrieves the policy with the given id.
func (m *MySQLPolicyRepository) GetByID(ctx context.Context, id string) (*authzDomain.Policy, error) {
	querier := database.GetTx(ctx, m.db)

	query := `SELECT ` + mysqlPolicyColumns + ` FROM policies WHERE id = ?`

	return scanPolicy(querier.QueryRowContext(ctx, query, id))
}

// Create inserts a new policy.
func (m *MySQLPolicyRepository) Create(ctx context.Context, policy *authzDomain.Policy) error {
	querier := database.GetTx(ctx, m.db)

	query := `INSERT INTO policies (id, policy_type, priority, active, body, created_at, updated_at)
			  VALUES (?, ?, ?, ?, ?, ?, ?)`

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
func (m *MySQLPolicyRepository) Update(ctx context.Context, policy *authzDomain.Policy) error {
	querier := database.GetTx(ctx, m.db)

	query := `UPDATE policies
			  SET priority = ?, active = ?, body = ?, updated_at = ?
			  WHERE id = ?`

	_, err := querier.ExecContext(
		ctx,
		query,
		policy.Priority,
		policy.Active,
		policy.Body,
		policy.UpdatedAt,
		policy.ID,
	)
	if err != nil {
		return apperrors.Wrap(err, "failed to update policy")
	}

	// MySQL reports zero affected rows for no-op updates, so existence is
	// re-checked instead of trusting the count.
	if _, err := m.GetByID(ctx, policy.ID); err != nil {
		return err
	}

	return nil
}

// DeleteByID removes the policy row.
func (m *MySQLPolicyRepository) DeleteByID(ctx context.Context, id string) error {
	querier := database.GetTx(ctx, m.db)

	result, err := querier.ExecContext(ctx, `DELETE FROM policies WHERE id = ?`, id)
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
func (m *MySQLPolicyRepository) List(ctx context.Context) ([]*authzDomain.Policy, error) {
	return m.queryPolicies(ctx, `SELECT `+mysqlPolicyColumns+` FROM policies ORDER BY id ASC`)
}

// ListActive returns every active policy ordered by id.
func (m *MySQLPolicyRepository) ListActive(ctx context.Context) ([]*authzDomain.Policy, error) {
	return m.queryPolicies(ctx, `SELECT `+mysqlPolicyColumns+` FROM policies WHERE active = TRUE ORDER BY id ASC`)
}

func (m *MySQLPolicyRepository) queryPolicies(ctx context.Context, query string) ([]*authzDomain.Policy, error) {
	querier := database.GetTx(ctx, m.db)

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

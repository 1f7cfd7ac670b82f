package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/escalation-engine/internal/domain"
)

// EscalationRuleRepository persists escalation rules. Conditions and
// actions are stored as JSONB documents.
type EscalationRuleRepository interface {
	Create(ctx context.Context, rule *domain.EscalationRule) error
	Update(ctx context.Context, rule *domain.EscalationRule) error
	GetByID(ctx context.Context, id string) (*domain.EscalationRule, error)
	GetByName(ctx context.Context, name string) (*domain.EscalationRule, error)
	List(ctx context.Context) ([]domain.EscalationRule, error)
	ListActive(ctx context.Context) ([]domain.EscalationRule, error)
	IncrementExecution(ctx context.Context, id string, at time.Time) error
}

type escalationRuleRepository struct {
	pool *pgxpool.Pool
}

// NewEscalationRuleRepository builds repository.
func NewEscalationRuleRepository(pool *pgxpool.Pool) EscalationRuleRepository {
	return &escalationRuleRepository{pool: pool}
}

const ruleColumns = `id, name, is_active, conditions, actions, execution_count, last_executed, created_at, updated_at`

func (r *escalationRuleRepository) Create(ctx context.Context, rule *domain.EscalationRule) error {
	const query = `
        INSERT INTO escalation_rules (id, name, is_active, conditions, actions)
        VALUES ($1,$2,$3,$4,$5)
        RETURNING created_at, updated_at`
	return r.pool.QueryRow(ctx, query,
		rule.ID,
		rule.Name,
		rule.IsActive,
		rule.Conditions,
		rule.Actions,
	).Scan(&rule.CreatedAt, &rule.UpdatedAt)
}

func (r *escalationRuleRepository) Update(ctx context.Context, rule *domain.EscalationRule) error {
	const query = `
        UPDATE escalation_rules SET name=$1, is_active=$2, conditions=$3, actions=$4, updated_at=NOW()
        WHERE id=$5
        RETURNING updated_at`
	return r.pool.QueryRow(ctx, query,
		rule.Name,
		rule.IsActive,
		rule.Conditions,
		rule.Actions,
		rule.ID,
	).Scan(&rule.UpdatedAt)
}

func (r *escalationRuleRepository) GetByID(ctx context.Context, id string) (*domain.EscalationRule, error) {
	return r.fetchSingle(ctx, `SELECT `+ruleColumns+` FROM escalation_rules WHERE id=$1`, id)
}

func (r *escalationRuleRepository) GetByName(ctx context.Context, name string) (*domain.EscalationRule, error) {
	return r.fetchSingle(ctx, `SELECT `+ruleColumns+` FROM escalation_rules WHERE name=$1`, name)
}

func (r *escalationRuleRepository) List(ctx context.Context) ([]domain.EscalationRule, error) {
	return r.fetchMany(ctx, `SELECT `+ruleColumns+` FROM escalation_rules ORDER BY created_at ASC`)
}

func (r *escalationRuleRepository) ListActive(ctx context.Context) ([]domain.EscalationRule, error) {
	return r.fetchMany(ctx, `SELECT `+ruleColumns+` FROM escalation_rules WHERE is_active ORDER BY created_at ASC`)
}

func (r *escalationRuleRepository) IncrementExecution(ctx context.Context, id string, at time.Time) error {
	const query = `
        UPDATE escalation_rules SET execution_count=execution_count+1, last_executed=$1
        WHERE id=$2`
	cmd, err := r.pool.Exec(ctx, query, at, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *escalationRuleRepository) fetchSingle(ctx context.Context, query string, arg any) (*domain.EscalationRule, error) {
	var rule domain.EscalationRule
	if err := scanRule(r.pool.QueryRow(ctx, query, arg), &rule); err != nil {
		return nil, err
	}
	return &rule, nil
}

func (r *escalationRuleRepository) fetchMany(ctx context.Context, query string) ([]domain.EscalationRule, error) {
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.EscalationRule
	for rows.Next() {
		var rule domain.EscalationRule
		if err := scanRule(rows, &rule); err != nil {
			return nil, err
		}
		result = append(result, rule)
	}
	return result, rows.Err()
}

func scanRule(row pgx.Row, rule *domain.EscalationRule) error {
	return row.Scan(
		&rule.ID,
		&rule.Name,
		&rule.IsActive,
		&rule.Conditions,
		&rule.Actions,
		&rule.ExecutionCount,
		&rule.LastExecuted,
		&rule.CreatedAt,
		&rule.UpdatedAt,
	)
}

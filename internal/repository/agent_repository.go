package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/escalation-engine/internal/domain"
)

// AgentRepository handles persistence for the agent roster.
type AgentRepository interface {
	Create(ctx context.Context, agent *domain.Agent) error
	UpdateStatus(ctx context.Context, id string, status domain.AgentStatus) error
	IncrementResolved(ctx context.Context, id string) error
	GetByID(ctx context.Context, id string) (*domain.Agent, error)
	List(ctx context.Context, filter AgentFilter) ([]domain.Agent, error)
}

// AgentFilter defines query params for roster listing. Agents are returned
// in roster order (creation time, then id) so selection is deterministic.
type AgentFilter struct {
	TeamID         *string
	Roles          []domain.AgentRole
	ExcludeOffline bool
}

type agentRepository struct {
	pool *pgxpool.Pool
}

// NewAgentRepository instantiates the repository.
func NewAgentRepository(pool *pgxpool.Pool) AgentRepository {
	return &agentRepository{pool: pool}
}

const agentColumns = `id, name, email, role, status, team_id, total_resolved, created_at, updated_at`

func (r *agentRepository) Create(ctx context.Context, agent *domain.Agent) error {
	const query = `
        INSERT INTO agents (id, name, email, role, status, team_id, total_resolved)
        VALUES ($1,$2,$3,$4,$5,$6,$7)
        RETURNING created_at, updated_at`

	return r.pool.QueryRow(ctx, query,
		agent.ID,
		agent.Name,
		agent.Email,
		agent.Role,
		agent.Status,
		agent.TeamID,
		agent.TotalResolved,
	).Scan(&agent.CreatedAt, &agent.UpdatedAt)
}

func (r *agentRepository) UpdateStatus(ctx context.Context, id string, status domain.AgentStatus) error {
	cmd, err := r.pool.Exec(ctx, `UPDATE agents SET status=$1, updated_at=NOW() WHERE id=$2`, status, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *agentRepository) IncrementResolved(ctx context.Context, id string) error {
	cmd, err := r.pool.Exec(ctx, `UPDATE agents SET total_resolved=total_resolved+1, updated_at=NOW() WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *agentRepository) GetByID(ctx context.Context, id string) (*domain.Agent, error) {
	query := `SELECT ` + agentColumns + ` FROM agents WHERE id=$1`

	var agent domain.Agent
	if err := scanAgent(r.pool.QueryRow(ctx, query, id), &agent); err != nil {
		return nil, err
	}
	return &agent, nil
}

func (r *agentRepository) List(ctx context.Context, filter AgentFilter) ([]domain.Agent, error) {
	query := `SELECT ` + agentColumns + ` FROM agents`
	args := []any{}
	clauses := []string{}

	if filter.TeamID != nil {
		args = append(args, *filter.TeamID)
		clauses = append(clauses, fmt.Sprintf("team_id=$%d", len(args)))
	}
	if len(filter.Roles) > 0 {
		placeholders := make([]string, len(filter.Roles))
		for i, role := range filter.Roles {
			args = append(args, role)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		clauses = append(clauses, fmt.Sprintf("role IN (%s)", strings.Join(placeholders, ",")))
	}
	if filter.ExcludeOffline {
		args = append(args, domain.AgentStatusOffline)
		clauses = append(clauses, fmt.Sprintf("status<>$%d", len(args)))
	}
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	query += " ORDER BY created_at ASC, id ASC"

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Agent
	for rows.Next() {
		var agent domain.Agent
		if err := scanAgent(rows, &agent); err != nil {
			return nil, err
		}
		result = append(result, agent)
	}
	return result, rows.Err()
}

func scanAgent(row pgx.Row, agent *domain.Agent) error {
	return row.Scan(
		&agent.ID,
		&agent.Name,
		&agent.Email,
		&agent.Role,
		&agent.Status,
		&agent.TeamID,
		&agent.TotalResolved,
		&agent.CreatedAt,
		&agent.UpdatedAt,
	)
}

package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/escalation-engine/internal/domain"
)

// TicketDependencyRepository stores edges between tickets.
type TicketDependencyRepository interface {
	Create(ctx context.Context, dep *domain.TicketDependency) error
	// ListByTicket returns edges where the ticket is source or target.
	ListByTicket(ctx context.Context, ticketID string) ([]domain.TicketDependency, error)
}

type ticketDependencyRepository struct {
	pool *pgxpool.Pool
}

// NewTicketDependencyRepository builds repository.
func NewTicketDependencyRepository(pool *pgxpool.Pool) TicketDependencyRepository {
	return &ticketDependencyRepository{pool: pool}
}

func (r *ticketDependencyRepository) Create(ctx context.Context, dep *domain.TicketDependency) error {
	const query = `
        INSERT INTO ticket_dependencies (source_ticket_id, target_ticket_id, dependency_type)
        VALUES ($1,$2,$3)
        RETURNING id, created_at`
	return r.pool.QueryRow(ctx, query,
		dep.SourceTicketID,
		dep.TargetTicketID,
		dep.Type,
	).Scan(&dep.ID, &dep.CreatedAt)
}

func (r *ticketDependencyRepository) ListByTicket(ctx context.Context, ticketID string) ([]domain.TicketDependency, error) {
	const query = `
        SELECT id, source_ticket_id, target_ticket_id, dependency_type, created_at
        FROM ticket_dependencies
        WHERE source_ticket_id=$1 OR target_ticket_id=$1
        ORDER BY created_at ASC`
	rows, err := r.pool.Query(ctx, query, ticketID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.TicketDependency
	for rows.Next() {
		var dep domain.TicketDependency
		if err := rows.Scan(
			&dep.ID,
			&dep.SourceTicketID,
			&dep.TargetTicketID,
			&dep.Type,
			&dep.CreatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, dep)
	}
	return result, rows.Err()
}

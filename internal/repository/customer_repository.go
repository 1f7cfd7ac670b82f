package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// CustomerRepository reads customer attributes owned by the CRM side of
// the platform. Only the tier is needed for escalation.
type CustomerRepository interface {
	GetTier(ctx context.Context, customerID string) (string, error)
}

type customerRepository struct {
	pool *pgxpool.Pool
}

// NewCustomerRepository builds repository.
func NewCustomerRepository(pool *pgxpool.Pool) CustomerRepository {
	return &customerRepository{pool: pool}
}

// GetTier returns "" for unknown customers.
func (r *customerRepository) GetTier(ctx context.Context, customerID string) (string, error) {
	var tier string
	err := r.pool.QueryRow(ctx, `SELECT COALESCE(tier, '') FROM customers WHERE id=$1`, customerID).Scan(&tier)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", nil
	}
	return tier, err
}

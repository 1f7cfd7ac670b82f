package domain

import "time"

// Team groups agents that share a queue of work.
type Team struct {
	ID        string
	Name      string
	IsActive  bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

package domain

import "time"

// DependencyType describes how two tickets relate.
type DependencyType string

const (
	DependencyBlocks    DependencyType = "blocks"
	DependencyDependsOn DependencyType = "depends_on"
	DependencyDuplicate DependencyType = "duplicate"
	DependencyRelated   DependencyType = "related"
)

// TicketDependency is a directed edge between two tickets. Cycles are
// permitted; the graph is informational only.
type TicketDependency struct {
	ID             string
	SourceTicketID string
	TargetTicketID string
	Type           DependencyType
	CreatedAt      time.Time
}

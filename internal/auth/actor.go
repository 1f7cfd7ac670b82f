// Package auth identifies who is performing a ticket mutation.
package auth

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/escalation-engine/internal/domain"
	"github.com/spec-kit/escalation-engine/internal/repository"
	apperrors "github.com/spec-kit/escalation-engine/pkg/util/errorutil"
)

// ActorHeader carries the id of the agent performing a mutation. Requests
// without it are attributed to the system.
const ActorHeader = "X-Actor-ID"

const actorKey = "auth_actor"

// ActorMiddleware resolves the calling agent and stores it on the request.
type ActorMiddleware struct {
	agents repository.AgentRepository
}

// NewActorMiddleware constructs middleware. A nil repository skips the
// roster check.
func NewActorMiddleware(agents repository.AgentRepository) *ActorMiddleware {
	return &ActorMiddleware{agents: agents}
}

// Handle rejects unknown agent ids and records the actor.
func (m *ActorMiddleware) Handle(c *fiber.Ctx) error {
	id := strings.TrimSpace(c.Get(ActorHeader))
	if id == "" {
		c.Locals(actorKey, domain.SystemActor)
		return c.Next()
	}

	if m.agents != nil {
		if _, err := m.agents.GetByID(c.UserContext(), id); err != nil {
			if apperrors.IsNotFound(err) {
				return apperrors.NewValidationError("unknown actor", map[string]any{"actor_id": id})
			}
			return apperrors.MapError(err)
		}
	}

	c.Locals(actorKey, domain.AgentActor(id))
	return c.Next()
}

// ActorFromContext returns the actor stored by Handle. Without the
// middleware it falls back to the raw header.
func ActorFromContext(c *fiber.Ctx) domain.Actor {
	if actor, ok := c.Locals(actorKey).(domain.Actor); ok {
		return actor
	}
	return domain.AgentActor(strings.TrimSpace(c.Get(ActorHeader)))
}

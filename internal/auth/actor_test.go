package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/escalation-engine/internal/domain"
	"github.com/spec-kit/escalation-engine/internal/repository"
)

type rosterStub struct {
	repository.AgentRepository
	agents map[string]domain.Agent
}

func (r rosterStub) GetByID(_ context.Context, id string) (*domain.Agent, error) {
	agent, ok := r.agents[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &agent, nil
}

func newActorApp(agents repository.AgentRepository, seen *[]domain.Actor) *fiber.App {
	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
		},
	})
	app.Use(NewActorMiddleware(agents).Handle)
	app.Get("/", func(c *fiber.Ctx) error {
		*seen = append(*seen, ActorFromContext(c))
		return c.SendStatus(http.StatusOK)
	})
	return app
}

func TestActorMiddleware(t *testing.T) {
	roster := rosterStub{agents: map[string]domain.Agent{"agent-7": {ID: "agent-7"}}}

	tests := []struct {
		name       string
		header     string
		wantStatus int
		wantActor  *domain.Actor
	}{
		{name: "no header is system", wantStatus: http.StatusOK, wantActor: &domain.SystemActor},
		{name: "known agent", header: "agent-7", wantStatus: http.StatusOK, wantActor: ptrActor(domain.AgentActor("agent-7"))},
		{name: "unknown agent rejected", header: "ghost", wantStatus: http.StatusBadRequest},
		{name: "whitespace only is system", header: "   ", wantStatus: http.StatusOK, wantActor: &domain.SystemActor},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var seen []domain.Actor
			app := newActorApp(roster, &seen)

			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				req.Header.Set(ActorHeader, tt.header)
			}
			resp, err := app.Test(req)
			require.NoError(t, err)
			assert.Equal(t, tt.wantStatus, resp.StatusCode)

			if tt.wantActor == nil {
				assert.Empty(t, seen)
				var body map[string]any
				require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
				assert.Contains(t, body["error"], "unknown actor")
				return
			}
			require.Len(t, seen, 1)
			assert.Equal(t, *tt.wantActor, seen[0])
		})
	}
}

func TestActorFromContextWithoutMiddleware(t *testing.T) {
	app := fiber.New()
	var actors []domain.Actor
	app.Get("/", func(c *fiber.Ctx) error {
		actors = append(actors, ActorFromContext(c))
		return nil
	})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(ActorHeader, "agent-7")
	_, err := app.Test(req)
	require.NoError(t, err)
	_, err = app.Test(httptest.NewRequest(http.MethodGet, "/", nil))
	require.NoError(t, err)

	require.Len(t, actors, 2)
	assert.Equal(t, domain.ActorTypeAgent, actors[0].Type)
	require.NotNil(t, actors[0].ID)
	assert.Equal(t, "agent-7", *actors[0].ID)
	assert.Equal(t, domain.SystemActor, actors[1])
}

func ptrActor(a domain.Actor) *domain.Actor { return &a }

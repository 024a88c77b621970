package middleware

import (
	"context"
	"strings"

	"github.com/aws/aws-lambda-go/events"
	"go.uber.org/zap"

	"github.com/SafetyDady/moobaan-smart-sub000/internal/common/config"
	"github.com/SafetyDady/moobaan-smart-sub000/internal/domain/audit"
)

type contextKey string

const actorContextKey contextKey = "actor"

// ActorMiddleware reads the acting identity from the headers the upstream
// authorizer sets and puts it on the context. It never rejects a request:
// read-only operations work without an actor, and mutating services refuse
// an empty one themselves.
type ActorMiddleware struct {
	idHeader   string
	roleHeader string
	nameHeader string
}

// NewActorMiddleware creates a new actor middleware
func NewActorMiddleware(cfg *config.Config) ActorMiddleware {
	return ActorMiddleware{
		idHeader:   cfg.ActorIDHeader,
		roleHeader: cfg.ActorRoleHeader,
		nameHeader: cfg.ActorNameHeader,
	}
}

// Handle handles the actor middleware
func (m ActorMiddleware) Handle(next APIGatewayHandler) APIGatewayHandler {
	return func(ctx context.Context, logger *zap.Logger, request events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
		actor := audit.Actor{
			ID:   header(request.Headers, m.idHeader),
			Role: strings.ToUpper(header(request.Headers, m.roleHeader)),
			Name: header(request.Headers, m.nameHeader),
		}
		if actor.Valid() {
			logger = logger.With(zap.String("actorId", actor.ID), zap.String("actorRole", actor.Role))
		}
		return next(WithActor(ctx, actor), logger, request)
	}
}

// WithActor returns a context carrying the acting identity.
func WithActor(ctx context.Context, actor audit.Actor) context.Context {
	return context.WithValue(ctx, actorContextKey, actor)
}

// GetActor returns the acting identity from the context, or a zero Actor
// when none was set.
func GetActor(ctx context.Context) audit.Actor {
	if actor, ok := ctx.Value(actorContextKey).(audit.Actor); ok {
		return actor
	}
	return audit.Actor{}
}

// header looks a header up without assuming how the gateway cased it.
func header(headers map[string]string, name string) string {
	if v, ok := headers[name]; ok {
		return v
	}
	for k, v := range headers {
		if strings.EqualFold(k, name) {
			return v
		}
	}
	return ""
}

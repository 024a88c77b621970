package middleware

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"testing"

	"github.com/aws/aws-lambda-go/events"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/SafetyDady/moobaan-smart-sub000/internal/api/response"
	"github.com/SafetyDady/moobaan-smart-sub000/internal/common/config"
	"github.com/SafetyDady/moobaan-smart-sub000/internal/domain/audit"
	"github.com/SafetyDady/moobaan-smart-sub000/internal/domain/errors"
)

func okHandler(ctx context.Context, logger *zap.Logger, request events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	return events.APIGatewayProxyResponse{StatusCode: http.StatusOK, Body: `{"ok":true}`}, nil
}

type tagMiddleware struct {
	tag   string
	order *[]string
}

func (m tagMiddleware) Handle(next APIGatewayHandler) APIGatewayHandler {
	return func(ctx context.Context, logger *zap.Logger, request events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
		*m.order = append(*m.order, m.tag)
		return next(ctx, logger, request)
	}
}

func TestChain(t *testing.T) {
	t.Run("first middleware runs outermost", func(t *testing.T) {
		var order []string
		handler := func(ctx context.Context, logger *zap.Logger, request events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
			order = append(order, "handler")
			return events.APIGatewayProxyResponse{StatusCode: http.StatusOK}, nil
		}

		chained := Chain(handler, tagMiddleware{"outer", &order}, tagMiddleware{"inner", &order})
		_, err := chained(context.Background(), zap.NewNop(), events.APIGatewayProxyRequest{})

		require.NoError(t, err)
		assert.Equal(t, []string{"outer", "inner", "handler"}, order)
	})

	t.Run("no middleware leaves the handler untouched", func(t *testing.T) {
		resp, err := Chain(okHandler)(context.Background(), zap.NewNop(), events.APIGatewayProxyRequest{})
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
	})
}

func decodeError(t *testing.T, resp events.APIGatewayProxyResponse) response.ErrorResponse {
	t.Helper()
	var body response.ErrorResponse
	require.NoError(t, json.Unmarshal([]byte(resp.Body), &body))
	return body
}

func TestRecoveryMiddleware(t *testing.T) {
	ctx := context.Background()
	logger := zap.NewNop()
	request := events.APIGatewayProxyRequest{
		RequestContext: events.APIGatewayProxyRequestContext{RequestID: "req-1"},
	}

	t.Run("maps domain errors onto the error envelope", func(t *testing.T) {
		handler := NewRecoveryMiddleware().Handle(func(ctx context.Context, logger *zap.Logger, request events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
			return events.APIGatewayProxyResponse{}, errors.NewNotFoundError("pay-in not found")
		})

		resp, err := handler(ctx, logger, request)

		require.NoError(t, err)
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
		body := decodeError(t, resp)
		assert.Equal(t, errors.CodeNotFound, body.Error)
		assert.Equal(t, "pay-in not found", body.ErrorDescription.Message)
		assert.Equal(t, "req-1", body.Metadata.RequestID)
	})

	t.Run("keeps error details", func(t *testing.T) {
		handler := NewRecoveryMiddleware().Handle(func(ctx context.Context, logger *zap.Logger, request events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
			return events.APIGatewayProxyResponse{}, errors.NewInvalidStateError("only submitted pay-ins can be accepted", "ACCEPTED")
		})

		resp, err := handler(ctx, logger, request)

		require.NoError(t, err)
		assert.Equal(t, http.StatusConflict, resp.StatusCode)
		body := decodeError(t, resp)
		assert.Equal(t, errors.CodeInvalidState, body.Error)
		assert.Equal(t, "ACCEPTED", body.ErrorDescription.Details["currentStatus"])
	})

	t.Run("wraps unknown errors as internal", func(t *testing.T) {
		handler := NewRecoveryMiddleware().Handle(func(ctx context.Context, logger *zap.Logger, request events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
			return events.APIGatewayProxyResponse{}, fmt.Errorf("dynamodb exploded")
		})

		resp, err := handler(ctx, logger, request)

		require.NoError(t, err)
		assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
		assert.Equal(t, errors.CodeInternal, decodeError(t, resp).Error)
	})

	t.Run("recovers from panics", func(t *testing.T) {
		handler := NewRecoveryMiddleware().Handle(func(ctx context.Context, logger *zap.Logger, request events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
			panic("nil map write")
		})

		resp, err := handler(ctx, logger, request)

		require.NoError(t, err)
		assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
		assert.Equal(t, errors.CodeInternal, decodeError(t, resp).Error)
	})

	t.Run("passes successful responses through", func(t *testing.T) {
		resp, err := NewRecoveryMiddleware().Handle(okHandler)(ctx, logger, request)
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, `{"ok":true}`, resp.Body)
	})
}

func TestActorMiddleware(t *testing.T) {
	cfg := &config.Config{
		ActorIDHeader:   "X-Actor-Id",
		ActorRoleHeader: "X-Actor-Role",
		ActorNameHeader: "X-Actor-Name",
	}
	ctx := context.Background()
	logger := zap.NewNop()

	capture := func(got *audit.Actor) APIGatewayHandler {
		return func(ctx context.Context, logger *zap.Logger, request events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
			*got = GetActor(ctx)
			return events.APIGatewayProxyResponse{StatusCode: http.StatusOK}, nil
		}
	}

	t.Run("extracts the actor from headers", func(t *testing.T) {
		var got audit.Actor
		handler := NewActorMiddleware(cfg).Handle(capture(&got))

		_, err := handler(ctx, logger, events.APIGatewayProxyRequest{Headers: map[string]string{
			"X-Actor-Id":   "admin-1",
			"X-Actor-Role": "ADMIN",
			"X-Actor-Name": "Khun Somsri",
		}})

		require.NoError(t, err)
		assert.Equal(t, audit.Actor{ID: "admin-1", Role: audit.RoleAdmin, Name: "Khun Somsri"}, got)
	})

	t.Run("matches header names case-insensitively", func(t *testing.T) {
		var got audit.Actor
		handler := NewActorMiddleware(cfg).Handle(capture(&got))

		_, err := handler(ctx, logger, events.APIGatewayProxyRequest{Headers: map[string]string{
			"x-actor-id":   "res-88",
			"x-actor-role": "resident",
		}})

		require.NoError(t, err)
		assert.Equal(t, "res-88", got.ID)
		assert.Equal(t, audit.RoleResident, got.Role)
	})

	t.Run("missing headers produce an invalid actor", func(t *testing.T) {
		var got audit.Actor
		handler := NewActorMiddleware(cfg).Handle(capture(&got))

		_, err := handler(ctx, logger, events.APIGatewayProxyRequest{})

		require.NoError(t, err)
		assert.False(t, got.Valid())
	})
}

func TestGetActorWithoutMiddleware(t *testing.T) {
	assert.False(t, GetActor(context.Background()).Valid())
}

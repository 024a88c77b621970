package handlers

import (
	"context"

	"github.com/aws/aws-lambda-go/events"
	"go.uber.org/zap"

	"github.com/SafetyDady/moobaan-smart-sub000/internal/api/response"
	"github.com/SafetyDady/moobaan-smart-sub000/internal/buildinfo"
	"github.com/SafetyDady/moobaan-smart-sub000/internal/common/config"
)

// HealthHandler handles the health check endpoint
type HealthHandler struct {
	cfg *config.Config
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(cfg *config.Config) *HealthHandler {
	return &HealthHandler{cfg: cfg}
}

// Check handles GET /health
func (h *HealthHandler) Check(ctx context.Context, logger *zap.Logger, request events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	return response.OK(map[string]string{
		"status":      "ok",
		"version":     buildinfo.Version,
		"commit":      buildinfo.Commit,
		"environment": h.cfg.Environment,
	}, request.RequestContext.RequestID), nil
}

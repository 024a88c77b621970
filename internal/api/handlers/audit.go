package handlers

import (
	"context"

	"github.com/aws/aws-lambda-go/events"
	"go.uber.org/zap"

	"github.com/SafetyDady/moobaan-smart-sub000/internal/api/response"
	"github.com/SafetyDady/moobaan-smart-sub000/internal/domain/audit"
)

// AuditHandler handles audit trail endpoints
type AuditHandler struct {
	service *audit.Service
}

// NewAuditHandler creates a new audit handler
func NewAuditHandler(service *audit.Service) *AuditHandler {
	return &AuditHandler{service: service}
}

// Trail handles GET /audit/{entityType}/{entityId}
func (h *AuditHandler) Trail(ctx context.Context, logger *zap.Logger, request events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	trail, err := h.service.Trail(ctx, request.PathParameters["entityType"], request.PathParameters["entityId"])
	if err != nil {
		return events.APIGatewayProxyResponse{}, err
	}
	return response.OK(trail, request.RequestContext.RequestID), nil
}

package handlers

import (
	"context"

	"github.com/aws/aws-lambda-go/events"
	"go.uber.org/zap"

	"github.com/SafetyDady/moobaan-smart-sub000/internal/api/middleware"
	"github.com/SafetyDady/moobaan-smart-sub000/internal/api/response"
	"github.com/SafetyDady/moobaan-smart-sub000/internal/domain/payin"
)

// PayInHandler handles pay-in lifecycle endpoints
type PayInHandler struct {
	service *payin.Service
}

// NewPayInHandler creates a new pay-in handler
func NewPayInHandler(service *payin.Service) *PayInHandler {
	return &PayInHandler{service: service}
}

// Submit handles POST /payins
func (h *PayInHandler) Submit(ctx context.Context, logger *zap.Logger, request events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	var req payin.SubmitPayInRequest
	if err := parseBody(request.Body, &req); err != nil {
		return events.APIGatewayProxyResponse{}, err
	}

	p, err := h.service.Submit(ctx, middleware.GetActor(ctx), &req)
	if err != nil {
		return events.APIGatewayProxyResponse{}, err
	}
	return response.Created(p, request.RequestContext.RequestID), nil
}

// Get handles GET /payins/{payinId}
func (h *PayInHandler) Get(ctx context.Context, logger *zap.Logger, request events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	p, err := h.service.Get(ctx, request.PathParameters["payinId"])
	if err != nil {
		return events.APIGatewayProxyResponse{}, err
	}
	return response.OK(p, request.RequestContext.RequestID), nil
}

// Update handles PUT /payins/{payinId}
func (h *PayInHandler) Update(ctx context.Context, logger *zap.Logger, request events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	var req payin.UpdatePayInRequest
	if err := parseBody(request.Body, &req); err != nil {
		return events.APIGatewayProxyResponse{}, err
	}

	p, err := h.service.Update(ctx, middleware.GetActor(ctx), request.PathParameters["payinId"], &req)
	if err != nil {
		return events.APIGatewayProxyResponse{}, err
	}
	return response.OK(p, request.RequestContext.RequestID), nil
}

// Accept handles POST /payins/{payinId}/accept
func (h *PayInHandler) Accept(ctx context.Context, logger *zap.Logger, request events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	p, err := h.service.Accept(ctx, middleware.GetActor(ctx), request.PathParameters["payinId"])
	if err != nil {
		return events.APIGatewayProxyResponse{}, err
	}
	return response.OK(p, request.RequestContext.RequestID), nil
}

// Reject handles POST /payins/{payinId}/reject
func (h *PayInHandler) Reject(ctx context.Context, logger *zap.Logger, request events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	var req reasonRequest
	if err := parseBody(request.Body, &req); err != nil {
		return events.APIGatewayProxyResponse{}, err
	}

	p, err := h.service.Reject(ctx, middleware.GetActor(ctx), request.PathParameters["payinId"], req.Reason)
	if err != nil {
		return events.APIGatewayProxyResponse{}, err
	}
	return response.OK(p, request.RequestContext.RequestID), nil
}

// Cancel handles POST /payins/{payinId}/cancel
func (h *PayInHandler) Cancel(ctx context.Context, logger *zap.Logger, request events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	var req reasonRequest
	if request.Body != "" {
		if err := parseBody(request.Body, &req); err != nil {
			return events.APIGatewayProxyResponse{}, err
		}
	}

	if err := h.service.Cancel(ctx, middleware.GetActor(ctx), request.PathParameters["payinId"], req.Reason); err != nil {
		return events.APIGatewayProxyResponse{}, err
	}
	return response.NoContent(), nil
}

// Delete handles DELETE /payins/{payinId}
func (h *PayInHandler) Delete(ctx context.Context, logger *zap.Logger, request events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	if err := h.service.Delete(ctx, middleware.GetActor(ctx), request.PathParameters["payinId"]); err != nil {
		return events.APIGatewayProxyResponse{}, err
	}
	return response.NoContent(), nil
}

// CreateFromBankCredit handles POST /payins/from-bank-credit
func (h *PayInHandler) CreateFromBankCredit(ctx context.Context, logger *zap.Logger, request events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	var req payin.CreateFromBankCreditRequest
	if err := parseBody(request.Body, &req); err != nil {
		return events.APIGatewayProxyResponse{}, err
	}

	p, err := h.service.CreateFromBankCredit(ctx, middleware.GetActor(ctx), &req)
	if err != nil {
		return events.APIGatewayProxyResponse{}, err
	}
	return response.Created(p, request.RequestContext.RequestID), nil
}

// ReviewQueue handles GET /payins/review-queue
func (h *PayInHandler) ReviewQueue(ctx context.Context, logger *zap.Logger, request events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	payins, err := h.service.ListOpen(ctx)
	if err != nil {
		return events.APIGatewayProxyResponse{}, err
	}
	return response.OK(payins, request.RequestContext.RequestID), nil
}

// ListByHouse handles GET /houses/{houseId}/payins
func (h *PayInHandler) ListByHouse(ctx context.Context, logger *zap.Logger, request events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	payins, err := h.service.ListByHouse(ctx, request.PathParameters["houseId"], request.QueryStringParameters["status"])
	if err != nil {
		return events.APIGatewayProxyResponse{}, err
	}
	return response.OK(payins, request.RequestContext.RequestID), nil
}

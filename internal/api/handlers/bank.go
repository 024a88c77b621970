package handlers

import (
	"context"

	"github.com/aws/aws-lambda-go/events"
	"go.uber.org/zap"

	"github.com/SafetyDady/moobaan-smart-sub000/internal/api/middleware"
	"github.com/SafetyDady/moobaan-smart-sub000/internal/api/response"
	"github.com/SafetyDady/moobaan-smart-sub000/internal/domain/bank"
)

// BankHandler handles bank statement endpoints
type BankHandler struct {
	service *bank.Service
}

// NewBankHandler creates a new bank handler
func NewBankHandler(service *bank.Service) *BankHandler {
	return &BankHandler{service: service}
}

// Import handles POST /bank/import
func (h *BankHandler) Import(ctx context.Context, logger *zap.Logger, request events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	var req bank.ImportStatementRequest
	if err := parseBody(request.Body, &req); err != nil {
		return events.APIGatewayProxyResponse{}, err
	}

	result, err := h.service.ImportStatement(ctx, middleware.GetActor(ctx), &req)
	if err != nil {
		return events.APIGatewayProxyResponse{}, err
	}
	return response.OK(result, request.RequestContext.RequestID), nil
}

// Get handles GET /bank/transactions/{txnId}
func (h *BankHandler) Get(ctx context.Context, logger *zap.Logger, request events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	txn, err := h.service.Get(ctx, request.PathParameters["txnId"])
	if err != nil {
		return events.APIGatewayProxyResponse{}, err
	}
	return response.OK(txn, request.RequestContext.RequestID), nil
}

// ListDebits handles GET /bank/debits
func (h *BankHandler) ListDebits(ctx context.Context, logger *zap.Logger, request events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	unallocatedOnly := request.QueryStringParameters["unallocatedOnly"] == "true"
	txns, err := h.service.ListDebits(ctx, unallocatedOnly)
	if err != nil {
		return events.APIGatewayProxyResponse{}, err
	}
	return response.OK(txns, request.RequestContext.RequestID), nil
}

// ListUnidentifiedCredits handles GET /bank/credits/unidentified
func (h *BankHandler) ListUnidentifiedCredits(ctx context.Context, logger *zap.Logger, request events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	txns, err := h.service.ListUnidentifiedCredits(ctx)
	if err != nil {
		return events.APIGatewayProxyResponse{}, err
	}
	return response.OK(txns, request.RequestContext.RequestID), nil
}

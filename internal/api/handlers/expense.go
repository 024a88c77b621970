package handlers

import (
	"context"

	"github.com/aws/aws-lambda-go/events"
	"go.uber.org/zap"

	"github.com/SafetyDady/moobaan-smart-sub000/internal/api/middleware"
	"github.com/SafetyDady/moobaan-smart-sub000/internal/api/response"
	"github.com/SafetyDady/moobaan-smart-sub000/internal/domain/allocation"
	"github.com/SafetyDady/moobaan-smart-sub000/internal/domain/expense"
)

// ExpenseHandler handles expense and expense allocation endpoints
type ExpenseHandler struct {
	service *expense.Service
}

// NewExpenseHandler creates a new expense handler
func NewExpenseHandler(service *expense.Service) *ExpenseHandler {
	return &ExpenseHandler{service: service}
}

// Create handles POST /expenses
func (h *ExpenseHandler) Create(ctx context.Context, logger *zap.Logger, request events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	var req expense.CreateExpenseRequest
	if err := parseBody(request.Body, &req); err != nil {
		return events.APIGatewayProxyResponse{}, err
	}

	e, err := h.service.Create(ctx, middleware.GetActor(ctx), &req)
	if err != nil {
		return events.APIGatewayProxyResponse{}, err
	}
	return response.Created(e, request.RequestContext.RequestID), nil
}

// Get handles GET /expenses/{expenseId}
func (h *ExpenseHandler) Get(ctx context.Context, logger *zap.Logger, request events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	e, err := h.service.Get(ctx, request.PathParameters["expenseId"])
	if err != nil {
		return events.APIGatewayProxyResponse{}, err
	}
	return response.OK(e, request.RequestContext.RequestID), nil
}

// List handles GET /expenses
func (h *ExpenseHandler) List(ctx context.Context, logger *zap.Logger, request events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	expenses, err := h.service.List(ctx, request.QueryStringParameters["status"])
	if err != nil {
		return events.APIGatewayProxyResponse{}, err
	}
	return response.OK(expenses, request.RequestContext.RequestID), nil
}

// Allocate handles POST /expense-allocations
func (h *ExpenseHandler) Allocate(ctx context.Context, logger *zap.Logger, request events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	var req expense.AllocateRequest
	if err := parseBody(request.Body, &req); err != nil {
		return events.APIGatewayProxyResponse{}, err
	}

	a, err := h.service.AllocateToBankDebit(ctx, middleware.GetActor(ctx), &req)
	if err != nil {
		return events.APIGatewayProxyResponse{}, err
	}
	return response.Created(a, request.RequestContext.RequestID), nil
}

// RemoveAllocation handles DELETE /expense-allocations/{allocationId}
func (h *ExpenseHandler) RemoveAllocation(ctx context.Context, logger *zap.Logger, request events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	var req reasonRequest
	if request.Body != "" {
		if err := parseBody(request.Body, &req); err != nil {
			return events.APIGatewayProxyResponse{}, err
		}
	}

	if err := h.service.RemoveAllocation(ctx, middleware.GetActor(ctx), request.PathParameters["allocationId"], req.Reason); err != nil {
		return events.APIGatewayProxyResponse{}, err
	}
	return response.NoContent(), nil
}

// ListAllocations handles GET /expense-allocations
func (h *ExpenseHandler) ListAllocations(ctx context.Context, logger *zap.Logger, request events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	q := request.QueryStringParameters
	allocations, err := h.service.ListAllocations(ctx, allocation.Filter{
		SourceID:        q["bankTxnId"],
		TargetID:        q["expenseId"],
		IncludeReversed: q["includeReversed"] == "true",
	})
	if err != nil {
		return events.APIGatewayProxyResponse{}, err
	}
	return response.OK(allocations, request.RequestContext.RequestID), nil
}

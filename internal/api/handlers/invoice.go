package handlers

import (
	"context"

	"github.com/aws/aws-lambda-go/events"
	"go.uber.org/zap"

	"github.com/SafetyDady/moobaan-smart-sub000/internal/api/middleware"
	"github.com/SafetyDady/moobaan-smart-sub000/internal/api/response"
	"github.com/SafetyDady/moobaan-smart-sub000/internal/domain/invoice"
)

// InvoiceHandler handles invoice lifecycle endpoints
type InvoiceHandler struct {
	service *invoice.Service
}

// NewInvoiceHandler creates a new invoice handler
func NewInvoiceHandler(service *invoice.Service) *InvoiceHandler {
	return &InvoiceHandler{service: service}
}

// Create handles POST /invoices
func (h *InvoiceHandler) Create(ctx context.Context, logger *zap.Logger, request events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	var req invoice.CreateInvoiceRequest
	if err := parseBody(request.Body, &req); err != nil {
		return events.APIGatewayProxyResponse{}, err
	}

	inv, err := h.service.Create(ctx, middleware.GetActor(ctx), &req)
	if err != nil {
		return events.APIGatewayProxyResponse{}, err
	}
	return response.Created(inv, request.RequestContext.RequestID), nil
}

// Get handles GET /invoices/{invoiceId}
func (h *InvoiceHandler) Get(ctx context.Context, logger *zap.Logger, request events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	inv, err := h.service.Get(ctx, request.PathParameters["invoiceId"])
	if err != nil {
		return events.APIGatewayProxyResponse{}, err
	}
	return response.OK(inv, request.RequestContext.RequestID), nil
}

// List handles GET /invoices
func (h *InvoiceHandler) List(ctx context.Context, logger *zap.Logger, request events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	q := request.QueryStringParameters
	invoices, err := h.service.List(ctx, q["houseId"], q["status"])
	if err != nil {
		return events.APIGatewayProxyResponse{}, err
	}
	return response.OK(invoices, request.RequestContext.RequestID), nil
}

// Cancel handles POST /invoices/{invoiceId}/cancel
func (h *InvoiceHandler) Cancel(ctx context.Context, logger *zap.Logger, request events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	var req reasonRequest
	if err := parseBody(request.Body, &req); err != nil {
		return events.APIGatewayProxyResponse{}, err
	}

	inv, err := h.service.Cancel(ctx, middleware.GetActor(ctx), request.PathParameters["invoiceId"], req.Reason)
	if err != nil {
		return events.APIGatewayProxyResponse{}, err
	}
	return response.OK(inv, request.RequestContext.RequestID), nil
}

// ApplyCredit handles POST /invoices/{invoiceId}/credits
func (h *InvoiceHandler) ApplyCredit(ctx context.Context, logger *zap.Logger, request events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	var req invoice.ApplyCreditRequest
	if err := parseBody(request.Body, &req); err != nil {
		return events.APIGatewayProxyResponse{}, err
	}

	inv, err := h.service.ApplyCredit(ctx, middleware.GetActor(ctx), request.PathParameters["invoiceId"], &req)
	if err != nil {
		return events.APIGatewayProxyResponse{}, err
	}
	return response.Created(inv, request.RequestContext.RequestID), nil
}

// Credits handles GET /invoices/{invoiceId}/credits
func (h *InvoiceHandler) Credits(ctx context.Context, logger *zap.Logger, request events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	credits, err := h.service.Credits(ctx, request.PathParameters["invoiceId"])
	if err != nil {
		return events.APIGatewayProxyResponse{}, err
	}
	return response.OK(credits, request.RequestContext.RequestID), nil
}

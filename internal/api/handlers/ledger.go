package handlers

import (
	"context"

	"github.com/aws/aws-lambda-go/events"
	"go.uber.org/zap"

	"github.com/SafetyDady/moobaan-smart-sub000/internal/api/middleware"
	"github.com/SafetyDady/moobaan-smart-sub000/internal/api/response"
	"github.com/SafetyDady/moobaan-smart-sub000/internal/domain/allocation"
	"github.com/SafetyDady/moobaan-smart-sub000/internal/domain/ledger"
)

// LedgerHandler handles ledger entry and payment allocation endpoints
type LedgerHandler struct {
	service *ledger.Service
}

// NewLedgerHandler creates a new ledger handler
func NewLedgerHandler(service *ledger.Service) *LedgerHandler {
	return &LedgerHandler{service: service}
}

// ListEntries handles GET /houses/{houseId}/ledger-entries
func (h *LedgerHandler) ListEntries(ctx context.Context, logger *zap.Logger, request events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	houseID := request.PathParameters["houseId"]

	var entries []ledger.Entry
	var err error
	if request.QueryStringParameters["allocatable"] == "true" {
		entries, err = h.service.ListAllocatable(ctx, houseID)
	} else {
		entries, err = h.service.ListEntries(ctx, houseID)
	}
	if err != nil {
		return events.APIGatewayProxyResponse{}, err
	}
	return response.OK(entries, request.RequestContext.RequestID), nil
}

// GetEntry handles GET /ledger-entries/{entryId}
func (h *LedgerHandler) GetEntry(ctx context.Context, logger *zap.Logger, request events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	entry, err := h.service.GetEntry(ctx, request.PathParameters["entryId"])
	if err != nil {
		return events.APIGatewayProxyResponse{}, err
	}
	return response.OK(entry, request.RequestContext.RequestID), nil
}

// ApplyPayment handles POST /allocations
func (h *LedgerHandler) ApplyPayment(ctx context.Context, logger *zap.Logger, request events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	var req ledger.ApplyPaymentRequest
	if err := parseBody(request.Body, &req); err != nil {
		return events.APIGatewayProxyResponse{}, err
	}

	a, err := h.service.ApplyPayment(ctx, middleware.GetActor(ctx), &req)
	if err != nil {
		return events.APIGatewayProxyResponse{}, err
	}
	return response.Created(a, request.RequestContext.RequestID), nil
}

// RemoveAllocation handles DELETE /allocations/{allocationId}
func (h *LedgerHandler) RemoveAllocation(ctx context.Context, logger *zap.Logger, request events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
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

// ListAllocations handles GET /allocations
func (h *LedgerHandler) ListAllocations(ctx context.Context, logger *zap.Logger, request events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	q := request.QueryStringParameters
	allocations, err := h.service.ListAllocations(ctx, allocation.Filter{
		SourceID:        q["ledgerEntryId"],
		TargetID:        q["invoiceId"],
		HouseID:         q["houseId"],
		IncludeReversed: q["includeReversed"] == "true",
	})
	if err != nil {
		return events.APIGatewayProxyResponse{}, err
	}
	return response.OK(allocations, request.RequestContext.RequestID), nil
}

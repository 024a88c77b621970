package handlers

import (
	"context"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"go.uber.org/zap"

	"github.com/SafetyDady/moobaan-smart-sub000/internal/api/response"
	"github.com/SafetyDady/moobaan-smart-sub000/internal/domain/report"
)

// ReportHandler handles reconciliation report endpoints
type ReportHandler struct {
	service *report.Service
}

// NewReportHandler creates a new report handler
func NewReportHandler(service *report.Service) *ReportHandler {
	return &ReportHandler{service: service}
}

// InvoiceAging handles GET /reports/invoice-aging
func (h *ReportHandler) InvoiceAging(ctx context.Context, logger *zap.Logger, request events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	q := request.QueryStringParameters

	var asOf time.Time
	if q["asOf"] != "" {
		parsed, err := report.ParseAsOf(q["asOf"])
		if err != nil {
			return events.APIGatewayProxyResponse{}, err
		}
		asOf = parsed
	}

	aging, err := h.service.InvoiceAging(ctx, q["houseId"], asOf)
	if err != nil {
		return events.APIGatewayProxyResponse{}, err
	}
	return response.OK(aging, request.RequestContext.RequestID), nil
}

package api

import (
	"context"
	"net/http"
	"strings"

	"github.com/aws/aws-lambda-go/events"
	"go.uber.org/zap"

	"github.com/SafetyDady/moobaan-smart-sub000/internal/api/handlers"
	"github.com/SafetyDady/moobaan-smart-sub000/internal/api/middleware"
	"github.com/SafetyDady/moobaan-smart-sub000/internal/api/response"
	"github.com/SafetyDady/moobaan-smart-sub000/internal/common/config"
	"github.com/SafetyDady/moobaan-smart-sub000/internal/domain/audit"
	"github.com/SafetyDady/moobaan-smart-sub000/internal/domain/bank"
	"github.com/SafetyDady/moobaan-smart-sub000/internal/domain/expense"
	"github.com/SafetyDady/moobaan-smart-sub000/internal/domain/invoice"
	"github.com/SafetyDady/moobaan-smart-sub000/internal/domain/ledger"
	"github.com/SafetyDady/moobaan-smart-sub000/internal/domain/payin"
	"github.com/SafetyDady/moobaan-smart-sub000/internal/domain/report"
	"github.com/SafetyDady/moobaan-smart-sub000/internal/platform/dynamodb/client"
	"github.com/SafetyDady/moobaan-smart-sub000/internal/platform/dynamodb/repository"
)

// route binds one method and path pattern to a handler. Pattern segments
// wrapped in braces capture into request.PathParameters.
type route struct {
	method  string
	pattern string
	handler middleware.APIGatewayHandler
}

// Router dispatches API Gateway requests to handlers through the middleware
// chain. The same router serves the Lambda entrypoint and the local HTTP
// server.
type Router struct {
	routes []route
	logger *zap.Logger
	handle middleware.APIGatewayHandler
}

// New wires repositories, services and handlers against the given DynamoDB
// client and returns the ready router.
func New(cfg *config.Config, db client.Client, logger *zap.Logger) *Router {
	factory := repository.NewFactory(db, cfg.DynamoDBTableName, logger)

	bankRepo := factory.BankRepository()
	invoiceRepo := factory.InvoiceRepository()

	payinHandler := handlers.NewPayInHandler(payin.NewService(factory.PayInRepository(), bankRepo))
	ledgerHandler := handlers.NewLedgerHandler(ledger.NewService(factory.LedgerRepository(), invoiceRepo))
	invoiceHandler := handlers.NewInvoiceHandler(invoice.NewService(invoiceRepo))
	expenseHandler := handlers.NewExpenseHandler(expense.NewService(factory.ExpenseRepository(), bankRepo))
	bankHandler := handlers.NewBankHandler(bank.NewService(bankRepo))
	reportHandler := handlers.NewReportHandler(report.NewService(invoiceRepo))
	auditHandler := handlers.NewAuditHandler(audit.NewService(factory.AuditRepository()))
	healthHandler := handlers.NewHealthHandler(cfg)

	// Literal routes are listed before parameter routes sharing a prefix;
	// dispatch takes the first match.
	routes := []route{
		{http.MethodGet, "/health", healthHandler.Check},

		{http.MethodPost, "/payins", payinHandler.Submit},
		{http.MethodPost, "/payins/from-bank-credit", payinHandler.CreateFromBankCredit},
		{http.MethodGet, "/payins/review-queue", payinHandler.ReviewQueue},
		{http.MethodGet, "/payins/{payinId}", payinHandler.Get},
		{http.MethodPut, "/payins/{payinId}", payinHandler.Update},
		{http.MethodDelete, "/payins/{payinId}", payinHandler.Delete},
		{http.MethodPost, "/payins/{payinId}/accept", payinHandler.Accept},
		{http.MethodPost, "/payins/{payinId}/reject", payinHandler.Reject},
		{http.MethodPost, "/payins/{payinId}/cancel", payinHandler.Cancel},
		{http.MethodGet, "/houses/{houseId}/payins", payinHandler.ListByHouse},

		{http.MethodGet, "/houses/{houseId}/ledger-entries", ledgerHandler.ListEntries},
		{http.MethodGet, "/ledger-entries/{entryId}", ledgerHandler.GetEntry},
		{http.MethodPost, "/allocations", ledgerHandler.ApplyPayment},
		{http.MethodGet, "/allocations", ledgerHandler.ListAllocations},
		{http.MethodDelete, "/allocations/{allocationId}", ledgerHandler.RemoveAllocation},

		{http.MethodPost, "/invoices", invoiceHandler.Create},
		{http.MethodGet, "/invoices", invoiceHandler.List},
		{http.MethodGet, "/invoices/{invoiceId}", invoiceHandler.Get},
		{http.MethodPost, "/invoices/{invoiceId}/cancel", invoiceHandler.Cancel},
		{http.MethodPost, "/invoices/{invoiceId}/credits", invoiceHandler.ApplyCredit},
		{http.MethodGet, "/invoices/{invoiceId}/credits", invoiceHandler.Credits},

		{http.MethodPost, "/expenses", expenseHandler.Create},
		{http.MethodGet, "/expenses", expenseHandler.List},
		{http.MethodGet, "/expenses/{expenseId}", expenseHandler.Get},
		{http.MethodPost, "/expense-allocations", expenseHandler.Allocate},
		{http.MethodGet, "/expense-allocations", expenseHandler.ListAllocations},
		{http.MethodDelete, "/expense-allocations/{allocationId}", expenseHandler.RemoveAllocation},

		{http.MethodPost, "/bank/import", bankHandler.Import},
		{http.MethodGet, "/bank/transactions/{txnId}", bankHandler.Get},
		{http.MethodGet, "/bank/debits", bankHandler.ListDebits},
		{http.MethodGet, "/bank/credits/unidentified", bankHandler.ListUnidentifiedCredits},

		{http.MethodGet, "/reports/invoice-aging", reportHandler.InvoiceAging},

		{http.MethodGet, "/audit/{entityType}/{entityId}", auditHandler.Trail},
	}

	r := &Router{routes: routes, logger: logger}
	r.handle = middleware.Chain(
		r.dispatch,
		middleware.NewLoggingMiddleware(),
		middleware.NewRecoveryMiddleware(),
		middleware.NewActorMiddleware(cfg),
	)
	return r
}

// Handle routes one request through the middleware chain.
func (r *Router) Handle(ctx context.Context, request events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	return r.handle(ctx, r.logger, request)
}

func (r *Router) dispatch(ctx context.Context, logger *zap.Logger, request events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	// Handle CORS preflight
	if request.HTTPMethod == http.MethodOptions {
		return events.APIGatewayProxyResponse{
			StatusCode: http.StatusOK,
			Headers:    response.DefaultHeaders(),
		}, nil
	}

	for _, rt := range r.routes {
		if rt.method != request.HTTPMethod {
			continue
		}
		params, ok := match(rt.pattern, request.Path)
		if !ok {
			continue
		}
		if len(params) > 0 {
			if request.PathParameters == nil {
				request.PathParameters = params
			} else {
				for k, v := range params {
					request.PathParameters[k] = v
				}
			}
		}
		return rt.handler(ctx, logger, request)
	}
	return response.NotFound("endpoint not found"), nil
}

// match compares a pattern such as /payins/{payinId}/accept against a
// request path and returns the captured parameters.
func match(pattern, path string) (map[string]string, bool) {
	want := strings.Split(strings.Trim(pattern, "/"), "/")
	got := strings.Split(strings.Trim(path, "/"), "/")
	if len(want) != len(got) {
		return nil, false
	}

	var params map[string]string
	for i := range want {
		if strings.HasPrefix(want[i], "{") && strings.HasSuffix(want[i], "}") {
			if got[i] == "" {
				return nil, false
			}
			if params == nil {
				params = make(map[string]string)
			}
			params[strings.Trim(want[i], "{}")] = got[i]
			continue
		}
		if want[i] != got[i] {
			return nil, false
		}
	}
	return params, true
}

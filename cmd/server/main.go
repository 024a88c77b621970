package main

import (
	"context"
	"io"
	"log"
	"net/http"

	"github.com/aws/aws-lambda-go/events"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/SafetyDady/moobaan-smart-sub000/internal/api"
	"github.com/SafetyDady/moobaan-smart-sub000/internal/common/config"
	ddbclient "github.com/SafetyDady/moobaan-smart-sub000/internal/platform/dynamodb/client"
)

func main() {
	cfg, err := config.LoadFromEnv()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := newLogger(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	dbClient, err := ddbclient.NewDynamoDBClient(context.Background(), cfg.AWSRegion, cfg.DynamoDBEndpoint)
	if err != nil {
		logger.Fatal("failed to create DynamoDB client", zap.Error(err))
	}

	router := api.New(cfg, dbClient, logger)

	logger.Info("listening",
		zap.String("addr", cfg.HTTPAddr),
		zap.String("table", cfg.DynamoDBTableName),
		zap.String("environment", cfg.Environment),
	)
	if err := http.ListenAndServe(cfg.HTTPAddr, adapter{router: router}); err != nil {
		logger.Fatal("server stopped", zap.Error(err))
	}
}

func newLogger(cfg *config.Config) (*zap.Logger, error) {
	if cfg.IsProd() {
		return zap.NewProduction()
	}
	return zap.NewDevelopment()
}

// adapter translates plain HTTP requests into the API Gateway shape the
// router speaks, so local development exercises the same code path as the
// deployed Lambda.
type adapter struct {
	router *api.Router
}

func (a adapter) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "failed to read request body", http.StatusBadRequest)
		return
	}

	headers := make(map[string]string, len(r.Header))
	for name := range r.Header {
		headers[name] = r.Header.Get(name)
	}

	query := make(map[string]string)
	for name, values := range r.URL.Query() {
		if len(values) > 0 {
			query[name] = values[0]
		}
	}

	request := events.APIGatewayProxyRequest{
		HTTPMethod:            r.Method,
		Path:                  r.URL.Path,
		Headers:               headers,
		QueryStringParameters: query,
		Body:                  string(body),
		RequestContext: events.APIGatewayProxyRequestContext{
			RequestID: uuid.NewString(),
		},
	}

	resp, err := a.router.Handle(r.Context(), request)
	if err != nil {
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	for k, v := range resp.Headers {
		w.Header().Set(k, v)
	}
	w.WriteHeader(resp.StatusCode)
	if resp.Body != "" {
		_, _ = io.WriteString(w, resp.Body)
	}
}

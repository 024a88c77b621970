package main

import (
	"context"
	"log"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	"go.uber.org/zap"

	"github.com/SafetyDady/moobaan-smart-sub000/internal/api"
	"github.com/SafetyDady/moobaan-smart-sub000/internal/common/config"
	ddbclient "github.com/SafetyDady/moobaan-smart-sub000/internal/platform/dynamodb/client"
)

var router *api.Router

func init() {
	cfg, err := config.LoadFromEnv()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}

	dbClient, err := ddbclient.NewDynamoDBClient(context.Background(), cfg.AWSRegion, cfg.DynamoDBEndpoint)
	if err != nil {
		log.Fatalf("Failed to create DynamoDB client: %v", err)
	}

	router = api.New(cfg, dbClient, logger)
}

func handler(ctx context.Context, request events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	return router.Handle(ctx, request)
}

func main() {
	lambda.Start(handler)
}

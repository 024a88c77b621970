package commands

import (
	"context"

	"go.uber.org/zap"

	"github.com/SafetyDady/moobaan-smart-sub000/internal/common/config"
	ddbclient "github.com/SafetyDady/moobaan-smart-sub000/internal/platform/dynamodb/client"
	"github.com/SafetyDady/moobaan-smart-sub000/internal/platform/dynamodb/repository"
)

// deps bundles the configuration and storage wiring every command needs.
type deps struct {
	cfg     *config.Config
	logger  *zap.Logger
	db      *ddbclient.DynamoDBClient
	factory *repository.Factory
}

func connect(ctx context.Context) (*deps, error) {
	cfg, err := config.LoadFromEnv()
	if err != nil {
		return nil, err
	}

	logger, err := zap.NewDevelopment()
	if err != nil {
		return nil, err
	}

	db, err := ddbclient.NewDynamoDBClient(ctx, cfg.AWSRegion, cfg.DynamoDBEndpoint)
	if err != nil {
		return nil, err
	}

	return &deps{
		cfg:     cfg,
		logger:  logger,
		db:      db,
		factory: repository.NewFactory(db, cfg.DynamoDBTableName, logger),
	}, nil
}

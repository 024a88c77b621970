package repository

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"go.uber.org/zap"

	"github.com/SafetyDady/moobaan-smart-sub000/internal/domain/audit"
	commonErrors "github.com/SafetyDady/moobaan-smart-sub000/internal/domain/errors"
	"github.com/SafetyDady/moobaan-smart-sub000/internal/platform/dynamodb/client"
)

// DynamoDBAuditRepository implements the audit.Repository interface using DynamoDB
//
// Events are written by the aggregate repositories inside their own
// transactions; this type only reads the trail back.
type DynamoDBAuditRepository struct {
	client client.Client
	table  string
	logger *zap.Logger
}

// NewDynamoDBAuditRepository creates a new DynamoDB audit repository
func NewDynamoDBAuditRepository(dbClient client.Client, table string, logger *zap.Logger) *DynamoDBAuditRepository {
	return &DynamoDBAuditRepository{
		client: dbClient,
		table:  table,
		logger: logger,
	}
}

// Trail returns all events for one entity in chronological order. The sort
// key embeds a fixed-width timestamp, so index order is time order.
func (r *DynamoDBAuditRepository) Trail(ctx context.Context, entityType, entityID string) ([]audit.Event, error) {
	keyCond := expression.Key("PK").Equal(expression.Value(auditKey(entityType, entityID))).
		And(expression.Key("SK").BeginsWith("EVT#"))
	expr, err := expression.NewBuilder().WithKeyCondition(keyCond).Build()
	if err != nil {
		return nil, commonErrors.NewInternalError("failed to build query expression", err)
	}

	result, err := r.client.Query(ctx, &dynamodb.QueryInput{
		TableName:                 aws.String(r.table),
		KeyConditionExpression:    expr.KeyCondition(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
		ScanIndexForward:          aws.Bool(true),
	})
	if err != nil {
		return nil, commonErrors.NewInternalError("failed to read audit trail", err)
	}

	var events []audit.Event
	if err := attributevalue.UnmarshalListOfMaps(result.Items, &events); err != nil {
		return nil, commonErrors.NewInternalError("failed to unmarshal audit events", err)
	}
	return events, nil
}

package repository

import (
	"context"
	"sort"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"go.uber.org/zap"

	"github.com/SafetyDady/moobaan-smart-sub000/internal/domain/audit"
	"github.com/SafetyDady/moobaan-smart-sub000/internal/domain/bank"
	commonErrors "github.com/SafetyDady/moobaan-smart-sub000/internal/domain/errors"
	"github.com/SafetyDady/moobaan-smart-sub000/internal/platform/dynamodb/client"
)

// DynamoDBBankRepository implements the bank.Repository interface using DynamoDB
type DynamoDBBankRepository struct {
	client client.Client
	table  string
	logger *zap.Logger
}

// NewDynamoDBBankRepository creates a new DynamoDB bank repository
func NewDynamoDBBankRepository(dbClient client.Client, table string, logger *zap.Logger) *DynamoDBBankRepository {
	return &DynamoDBBankRepository{
		client: dbClient,
		table:  table,
		logger: logger,
	}
}

// bankTxnItem marshals a bank statement line with its table keys.
func bankTxnItem(t *bank.Transaction) (map[string]types.AttributeValue, error) {
	item, err := marshalItem(t, bankPartition, bankTxnSK(t.TxnID), typeBankTxn)
	if err != nil {
		return nil, err
	}
	gpk, gsk := bankTxnGSI1(t.TxnID)
	return withGSI1(item, gpk, gsk), nil
}

// Import stores the lines one by one, each behind a create condition, so a
// line that arrived in an earlier upload is skipped rather than overwritten.
// Lines are independent: a failure partway leaves earlier lines imported,
// and re-uploading the same file resumes where it stopped.
func (r *DynamoDBBankRepository) Import(ctx context.Context, lines []bank.Transaction) (int, int, error) {
	imported, skipped := 0, 0
	for i := range lines {
		item, err := bankTxnItem(&lines[i])
		if err != nil {
			return imported, skipped, commonErrors.NewInternalError("failed to marshal bank transaction", err)
		}
		_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
			TableName:           aws.String(r.table),
			Item:                item,
			ConditionExpression: aws.String("attribute_not_exists(PK)"),
		})
		if err != nil {
			if conditionFailed(err) {
				skipped++
				continue
			}
			return imported, skipped, commonErrors.NewInternalError("failed to store bank transaction", err)
		}
		imported++
	}
	r.logger.Info("bank statement imported",
		zap.Int("imported", imported),
		zap.Int("skipped", skipped))
	return imported, skipped, nil
}

// AppendEvent records the audit event for a completed import.
func (r *DynamoDBBankRepository) AppendEvent(ctx context.Context, evt *audit.Event) error {
	item, err := eventItem(evt)
	if err != nil {
		return commonErrors.NewInternalError("failed to marshal audit event", err)
	}
	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(r.table),
		Item:      item,
	})
	if err != nil {
		return commonErrors.NewInternalError("failed to store audit event", err)
	}
	return nil
}

// Get looks a transaction up by id.
func (r *DynamoDBBankRepository) Get(ctx context.Context, txnID string) (*bank.Transaction, error) {
	gpk, _ := bankTxnGSI1(txnID)
	keyCond := expression.Key("GSI1PK").Equal(expression.Value(gpk))
	expr, err := expression.NewBuilder().WithKeyCondition(keyCond).Build()
	if err != nil {
		return nil, commonErrors.NewInternalError("failed to build query expression", err)
	}

	result, err := r.client.Query(ctx, &dynamodb.QueryInput{
		TableName:                 aws.String(r.table),
		IndexName:                 aws.String(gsi1),
		KeyConditionExpression:    expr.KeyCondition(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
		Limit:                     aws.Int32(1),
	})
	if err != nil {
		return nil, commonErrors.NewInternalError("failed to get bank transaction", err)
	}
	if len(result.Items) == 0 {
		return nil, commonErrors.NewNotFoundError("bank transaction not found")
	}

	var t bank.Transaction
	if err := attributevalue.UnmarshalMap(result.Items[0], &t); err != nil {
		return nil, commonErrors.NewInternalError("failed to unmarshal bank transaction", err)
	}
	return &t, nil
}

// ListDebits returns debit lines, oldest effective first.
func (r *DynamoDBBankRepository) ListDebits(ctx context.Context, unallocatedOnly bool) ([]bank.Transaction, error) {
	txns, err := r.listAll(ctx)
	if err != nil {
		return nil, err
	}
	debits := make([]bank.Transaction, 0, len(txns))
	for _, t := range txns {
		if !t.IsDebit() {
			continue
		}
		if unallocatedOnly && !t.Unallocated.IsPositive() {
			continue
		}
		debits = append(debits, t)
	}
	return debits, nil
}

// ListUnidentifiedCredits returns credit lines no pay-in has claimed,
// oldest effective first.
func (r *DynamoDBBankRepository) ListUnidentifiedCredits(ctx context.Context) ([]bank.Transaction, error) {
	txns, err := r.listAll(ctx)
	if err != nil {
		return nil, err
	}
	credits := make([]bank.Transaction, 0, len(txns))
	for _, t := range txns {
		if t.Unidentified() {
			credits = append(credits, t)
		}
	}
	return credits, nil
}

func (r *DynamoDBBankRepository) listAll(ctx context.Context) ([]bank.Transaction, error) {
	keyCond := expression.Key("PK").Equal(expression.Value(bankPartition)).
		And(expression.Key("SK").BeginsWith("TXN#"))
	expr, err := expression.NewBuilder().WithKeyCondition(keyCond).Build()
	if err != nil {
		return nil, commonErrors.NewInternalError("failed to build query expression", err)
	}

	result, err := r.client.Query(ctx, &dynamodb.QueryInput{
		TableName:                 aws.String(r.table),
		KeyConditionExpression:    expr.KeyCondition(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
	})
	if err != nil {
		return nil, commonErrors.NewInternalError("failed to list bank transactions", err)
	}

	var txns []bank.Transaction
	if err := attributevalue.UnmarshalListOfMaps(result.Items, &txns); err != nil {
		return nil, commonErrors.NewInternalError("failed to unmarshal bank transactions", err)
	}
	sort.Slice(txns, func(i, j int) bool {
		if txns[i].EffectiveAt.Equal(txns[j].EffectiveAt) {
			return txns[i].TxnID < txns[j].TxnID
		}
		return txns[i].EffectiveAt.Before(txns[j].EffectiveAt)
	})
	return txns, nil
}

package repository

import (
	"context"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"go.uber.org/zap"

	"github.com/SafetyDady/moobaan-smart-sub000/internal/domain/audit"
	"github.com/SafetyDady/moobaan-smart-sub000/internal/domain/bank"
	commonErrors "github.com/SafetyDady/moobaan-smart-sub000/internal/domain/errors"
	"github.com/SafetyDady/moobaan-smart-sub000/internal/domain/ledger"
	"github.com/SafetyDady/moobaan-smart-sub000/internal/domain/payin"
	"github.com/SafetyDady/moobaan-smart-sub000/internal/platform/dynamodb/client"
)

// openSlot is the guard item that enforces one blocking pay-in per house.
// It lives at a fixed sort key in the house partition, so claiming the slot
// is a conditional create and releasing it is a conditional delete.
type openSlot struct {
	HouseID   string    `json:"houseId"`
	PayInID   string    `json:"payinId"`
	ClaimedAt time.Time `json:"claimedAt"`
}

// DynamoDBPayInRepository implements the payin.Repository interface using DynamoDB
type DynamoDBPayInRepository struct {
	client client.Client
	table  string
	logger *zap.Logger
}

// NewDynamoDBPayInRepository creates a new DynamoDB pay-in repository
func NewDynamoDBPayInRepository(dbClient client.Client, table string, logger *zap.Logger) *DynamoDBPayInRepository {
	return &DynamoDBPayInRepository{
		client: dbClient,
		table:  table,
		logger: logger,
	}
}

// payinItem marshals a pay-in with its table keys. Only SUBMITTED pay-ins
// carry the review-queue index attributes; writing any other status drops
// the pay-in out of the queue.
func (r *DynamoDBPayInRepository) payinItem(p *payin.PayIn) (map[string]types.AttributeValue, error) {
	item, err := marshalItem(p, houseKey(p.HouseID), payinSK(p.PayInID), typePayIn)
	if err != nil {
		return nil, err
	}
	gpk, gsk := payinGSI1(p.PayInID)
	withGSI1(item, gpk, gsk)
	if p.Status == payin.StatusSubmitted {
		withGSI2(item, reviewQueuePK, reviewQueueSK(p.CreatedAt, p.PayInID))
	}
	return item, nil
}

func (r *DynamoDBPayInRepository) guardItem(p *payin.PayIn) (map[string]types.AttributeValue, error) {
	slot := openSlot{HouseID: p.HouseID, PayInID: p.PayInID, ClaimedAt: p.CreatedAt}
	return marshalItem(slot, houseKey(p.HouseID), openPayInSK, typeOpenPayIn)
}

// guardDelete releases the house's open slot, asserting it is still claimed
// by this pay-in.
func (r *DynamoDBPayInRepository) guardDelete(p *payin.PayIn) types.TransactWriteItem {
	return types.TransactWriteItem{
		Delete: &types.Delete{
			TableName: aws.String(r.table),
			Key: map[string]types.AttributeValue{
				"PK": stringValue(houseKey(p.HouseID)),
				"SK": stringValue(openPayInSK),
			},
			ConditionExpression:       aws.String("payinId = :pid"),
			ExpressionAttributeValues: map[string]types.AttributeValue{":pid": stringValue(p.PayInID)},
		},
	}
}

// statusPut replaces the pay-in item on the condition that its stored
// status is still the one the caller read.
func (r *DynamoDBPayInRepository) statusPut(item map[string]types.AttributeValue, expected payin.Status) types.TransactWriteItem {
	return types.TransactWriteItem{
		Put: &types.Put{
			TableName:                 aws.String(r.table),
			Item:                      item,
			ConditionExpression:       aws.String("#st = :expected"),
			ExpressionAttributeNames:  map[string]string{"#st": "status"},
			ExpressionAttributeValues: map[string]types.AttributeValue{":expected": stringValue(string(expected))},
		},
	}
}

// Create stores a new pay-in and claims the house's open slot in one
// transaction.
func (r *DynamoDBPayInRepository) Create(ctx context.Context, p *payin.PayIn, evt *audit.Event) error {
	item, err := r.payinItem(p)
	if err != nil {
		return commonErrors.NewInternalError("failed to marshal pay-in", err)
	}
	guard, err := r.guardItem(p)
	if err != nil {
		return commonErrors.NewInternalError("failed to marshal open slot", err)
	}
	evtItem, err := eventPut(r.table, evt)
	if err != nil {
		return commonErrors.NewInternalError("failed to marshal audit event", err)
	}

	_, err = r.client.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{
		TransactItems: []types.TransactWriteItem{
			createPut(r.table, item),
			createPut(r.table, guard),
			evtItem,
		},
	})
	if err == nil {
		return nil
	}

	failed := canceledIndexes(err)
	switch {
	case indexFailed(failed, 1):
		existing, lookupErr := r.GetOpenByHouse(ctx, p.HouseID)
		if lookupErr != nil {
			return commonErrors.NewConflictError("house already has an open pay-in")
		}
		return commonErrors.NewPayInPendingExistsError(existing.PayInID, string(existing.Status))
	case indexFailed(failed, 0):
		return commonErrors.NewConflictError("pay-in already exists")
	}
	return commonErrors.NewInternalError("failed to store pay-in", err)
}

// Get returns a pay-in by ID.
func (r *DynamoDBPayInRepository) Get(ctx context.Context, payinID string) (*payin.PayIn, error) {
	gpk, _ := payinGSI1(payinID)
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
		return nil, commonErrors.NewInternalError("failed to get pay-in", err)
	}
	if len(result.Items) == 0 {
		return nil, commonErrors.NewNotFoundError("pay-in not found")
	}

	var p payin.PayIn
	if err := attributevalue.UnmarshalMap(result.Items[0], &p); err != nil {
		return nil, commonErrors.NewInternalError("failed to unmarshal pay-in", err)
	}
	return &p, nil
}

// GetOpenByHouse returns the pay-in occupying the house's open slot.
func (r *DynamoDBPayInRepository) GetOpenByHouse(ctx context.Context, houseID string) (*payin.PayIn, error) {
	result, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(r.table),
		Key: map[string]types.AttributeValue{
			"PK": stringValue(houseKey(houseID)),
			"SK": stringValue(openPayInSK),
		},
	})
	if err != nil {
		return nil, commonErrors.NewInternalError("failed to get open slot", err)
	}
	if result.Item == nil {
		return nil, commonErrors.NewNotFoundError("house has no open pay-in")
	}

	var slot openSlot
	if err := attributevalue.UnmarshalMap(result.Item, &slot); err != nil {
		return nil, commonErrors.NewInternalError("failed to unmarshal open slot", err)
	}
	return r.Get(ctx, slot.PayInID)
}

// ListByHouse returns the house's pay-ins, newest first, optionally
// narrowed to one status.
func (r *DynamoDBPayInRepository) ListByHouse(ctx context.Context, houseID string, status payin.Status) ([]payin.PayIn, error) {
	keyCond := expression.Key("PK").Equal(expression.Value(houseKey(houseID))).
		And(expression.Key("SK").BeginsWith("PAYIN#"))
	expr, err := expression.NewBuilder().WithKeyCondition(keyCond).Build()
	if err != nil {
		return nil, commonErrors.NewInternalError("failed to build query expression", err)
	}

	result, err := r.client.Query(ctx, &dynamodb.QueryInput{
		TableName:                 aws.String(r.table),
		KeyConditionExpression:    expr.KeyCondition(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
		ScanIndexForward:          aws.Bool(false),
	})
	if err != nil {
		return nil, commonErrors.NewInternalError("failed to list pay-ins", err)
	}

	var all []payin.PayIn
	if err := attributevalue.UnmarshalListOfMaps(result.Items, &all); err != nil {
		return nil, commonErrors.NewInternalError("failed to unmarshal pay-ins", err)
	}
	if status == "" {
		return all, nil
	}
	filtered := make([]payin.PayIn, 0, len(all))
	for _, p := range all {
		if p.Status == status {
			filtered = append(filtered, p)
		}
	}
	return filtered, nil
}

// ListOpen returns all SUBMITTED pay-ins across houses, oldest first, which
// is the admin review queue.
func (r *DynamoDBPayInRepository) ListOpen(ctx context.Context) ([]payin.PayIn, error) {
	keyCond := expression.Key("GSI2PK").Equal(expression.Value(reviewQueuePK))
	expr, err := expression.NewBuilder().WithKeyCondition(keyCond).Build()
	if err != nil {
		return nil, commonErrors.NewInternalError("failed to build query expression", err)
	}

	result, err := r.client.Query(ctx, &dynamodb.QueryInput{
		TableName:                 aws.String(r.table),
		IndexName:                 aws.String(gsi2),
		KeyConditionExpression:    expr.KeyCondition(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
	})
	if err != nil {
		return nil, commonErrors.NewInternalError("failed to list review queue", err)
	}

	var pays []payin.PayIn
	if err := attributevalue.UnmarshalListOfMaps(result.Items, &pays); err != nil {
		return nil, commonErrors.NewInternalError("failed to unmarshal pay-ins", err)
	}
	return pays, nil
}

// Update replaces the stored pay-in if its status has not moved since the
// caller read it.
func (r *DynamoDBPayInRepository) Update(ctx context.Context, p *payin.PayIn, expectedStatus payin.Status, evt *audit.Event) error {
	item, err := r.payinItem(p)
	if err != nil {
		return commonErrors.NewInternalError("failed to marshal pay-in", err)
	}
	evtItem, err := eventPut(r.table, evt)
	if err != nil {
		return commonErrors.NewInternalError("failed to marshal audit event", err)
	}

	_, err = r.client.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{
		TransactItems: []types.TransactWriteItem{
			r.statusPut(item, expectedStatus),
			evtItem,
		},
	})
	if err == nil {
		return nil
	}

	if indexFailed(canceledIndexes(err), 0) {
		return r.staleStatus(ctx, p.PayInID, "pay-in status changed since it was read")
	}
	return commonErrors.NewInternalError("failed to update pay-in", err)
}

// Accept writes the accepted pay-in, its ledger entry and the slot release
// in one transaction.
func (r *DynamoDBPayInRepository) Accept(ctx context.Context, p *payin.PayIn, entry *ledger.Entry, evt *audit.Event) error {
	item, err := r.payinItem(p)
	if err != nil {
		return commonErrors.NewInternalError("failed to marshal pay-in", err)
	}
	entryItem, err := ledgerEntryItem(entry)
	if err != nil {
		return commonErrors.NewInternalError("failed to marshal ledger entry", err)
	}
	evtItem, err := eventPut(r.table, evt)
	if err != nil {
		return commonErrors.NewInternalError("failed to marshal audit event", err)
	}

	_, err = r.client.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{
		TransactItems: []types.TransactWriteItem{
			r.statusPut(item, payin.StatusSubmitted),
			r.guardDelete(p),
			createPut(r.table, entryItem),
			evtItem,
		},
	})
	if err == nil {
		return nil
	}

	failed := canceledIndexes(err)
	switch {
	case indexFailed(failed, 0):
		return r.staleStatus(ctx, p.PayInID, "only submitted pay-ins can be accepted")
	case indexFailed(failed, 1):
		return commonErrors.NewConflictError("open slot is no longer claimed by this pay-in")
	case indexFailed(failed, 2):
		return commonErrors.NewConflictError("ledger entry already exists")
	}
	return commonErrors.NewInternalError("failed to accept pay-in", err)
}

// Reject stores the rejected pay-in. The guard item is untouched: the house
// slot stays claimed until the resident fixes or withdraws the submission.
func (r *DynamoDBPayInRepository) Reject(ctx context.Context, p *payin.PayIn, evt *audit.Event) error {
	item, err := r.payinItem(p)
	if err != nil {
		return commonErrors.NewInternalError("failed to marshal pay-in", err)
	}
	evtItem, err := eventPut(r.table, evt)
	if err != nil {
		return commonErrors.NewInternalError("failed to marshal audit event", err)
	}

	_, err = r.client.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{
		TransactItems: []types.TransactWriteItem{
			r.statusPut(item, payin.StatusSubmitted),
			evtItem,
		},
	})
	if err == nil {
		return nil
	}

	if indexFailed(canceledIndexes(err), 0) {
		return r.staleStatus(ctx, p.PayInID, "only submitted pay-ins can be rejected")
	}
	return commonErrors.NewInternalError("failed to reject pay-in", err)
}

// Remove deletes the pay-in and releases the open slot in one transaction.
func (r *DynamoDBPayInRepository) Remove(ctx context.Context, p *payin.PayIn, evt *audit.Event) error {
	evtItem, err := eventPut(r.table, evt)
	if err != nil {
		return commonErrors.NewInternalError("failed to marshal audit event", err)
	}

	payinDelete := types.TransactWriteItem{
		Delete: &types.Delete{
			TableName: aws.String(r.table),
			Key: map[string]types.AttributeValue{
				"PK": stringValue(houseKey(p.HouseID)),
				"SK": stringValue(payinSK(p.PayInID)),
			},
			ConditionExpression:       aws.String("#st = :expected"),
			ExpressionAttributeNames:  map[string]string{"#st": "status"},
			ExpressionAttributeValues: map[string]types.AttributeValue{":expected": stringValue(string(p.Status))},
		},
	}

	_, err = r.client.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{
		TransactItems: []types.TransactWriteItem{
			payinDelete,
			r.guardDelete(p),
			evtItem,
		},
	})
	if err == nil {
		return nil
	}

	failed := canceledIndexes(err)
	switch {
	case indexFailed(failed, 0):
		return r.staleStatus(ctx, p.PayInID, "pay-in status changed since it was read")
	case indexFailed(failed, 1):
		return commonErrors.NewConflictError("open slot is no longer claimed by this pay-in")
	}
	return commonErrors.NewInternalError("failed to remove pay-in", err)
}

// CreateFromBankCredit stores the pay-in, claims the open slot and stamps
// the bank credit line, all in one transaction. The stamp is conditioned on
// the line being unclaimed, so a credit can never seed two pay-ins.
func (r *DynamoDBPayInRepository) CreateFromBankCredit(ctx context.Context, p *payin.PayIn, txn *bank.Transaction, evt *audit.Event) error {
	item, err := r.payinItem(p)
	if err != nil {
		return commonErrors.NewInternalError("failed to marshal pay-in", err)
	}
	guard, err := r.guardItem(p)
	if err != nil {
		return commonErrors.NewInternalError("failed to marshal open slot", err)
	}

	stamped := *txn
	stamped.PayInID = p.PayInID
	txnItem, err := bankTxnItem(&stamped)
	if err != nil {
		return commonErrors.NewInternalError("failed to marshal bank transaction", err)
	}
	txnPut := types.TransactWriteItem{
		Put: &types.Put{
			TableName:           aws.String(r.table),
			Item:                txnItem,
			ConditionExpression: aws.String("attribute_not_exists(payinId)"),
		},
	}

	evtItem, err := eventPut(r.table, evt)
	if err != nil {
		return commonErrors.NewInternalError("failed to marshal audit event", err)
	}

	_, err = r.client.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{
		TransactItems: []types.TransactWriteItem{
			createPut(r.table, item),
			createPut(r.table, guard),
			txnPut,
			evtItem,
		},
	})
	if err == nil {
		return nil
	}

	failed := canceledIndexes(err)
	switch {
	case indexFailed(failed, 1):
		existing, lookupErr := r.GetOpenByHouse(ctx, p.HouseID)
		if lookupErr != nil {
			return commonErrors.NewConflictError("house already has an open pay-in")
		}
		return commonErrors.NewPayInPendingExistsError(existing.PayInID, string(existing.Status))
	case indexFailed(failed, 2):
		return commonErrors.NewConflictError("bank credit is already claimed by a pay-in")
	case indexFailed(failed, 0):
		return commonErrors.NewConflictError("pay-in already exists")
	}
	return commonErrors.NewInternalError("failed to store pay-in", err)
}

// staleStatus re-reads the pay-in after a failed status condition and
// reports its current state. A pay-in deleted in the meantime surfaces as
// not found.
func (r *DynamoDBPayInRepository) staleStatus(ctx context.Context, payinID, message string) error {
	current, err := r.Get(ctx, payinID)
	if err != nil {
		return err
	}
	r.logger.Debug("pay-in write lost a race",
		zap.String("payinId", payinID),
		zap.String("currentStatus", string(current.Status)))
	return commonErrors.NewInvalidStateError(message, string(current.Status))
}

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

	"github.com/SafetyDady/moobaan-smart-sub000/internal/domain/allocation"
	"github.com/SafetyDady/moobaan-smart-sub000/internal/domain/audit"
	commonErrors "github.com/SafetyDady/moobaan-smart-sub000/internal/domain/errors"
	"github.com/SafetyDady/moobaan-smart-sub000/internal/domain/ledger"
	"github.com/SafetyDady/moobaan-smart-sub000/internal/platform/dynamodb/client"
)

// DynamoDBLedgerRepository implements the ledger.Repository interface using DynamoDB
type DynamoDBLedgerRepository struct {
	client client.Client
	table  string
	logger *zap.Logger
}

// NewDynamoDBLedgerRepository creates a new DynamoDB ledger repository
func NewDynamoDBLedgerRepository(dbClient client.Client, table string, logger *zap.Logger) *DynamoDBLedgerRepository {
	return &DynamoDBLedgerRepository{
		client: dbClient,
		table:  table,
		logger: logger,
	}
}

// ledgerEntryItem marshals a ledger entry with its table keys.
func ledgerEntryItem(e *ledger.Entry) (map[string]types.AttributeValue, error) {
	item, err := marshalItem(e, houseKey(e.HouseID), ledgerSK(e.EntryID), typeLedger)
	if err != nil {
		return nil, err
	}
	gpk, gsk := ledgerGSI1(e.EntryID)
	return withGSI1(item, gpk, gsk), nil
}

// paymentAllocationItem marshals a payment allocation under its invoice
// partition, with a reverse lookup by ledger entry on GSI2.
func paymentAllocationItem(a *allocation.Allocation) (map[string]types.AttributeValue, error) {
	item, err := marshalItem(a, invoiceKey(a.TargetID), allocSK(a.AllocationID), typeAllocation)
	if err != nil {
		return nil, err
	}
	gpk, gsk := allocGSI1(a.AllocationID)
	withGSI1(item, gpk, gsk)
	return withGSI2(item, allocSourcePK("LEDGER", a.SourceID), allocSK(a.AllocationID)), nil
}

// GetEntry looks a ledger entry up by id.
func (r *DynamoDBLedgerRepository) GetEntry(ctx context.Context, entryID string) (*ledger.Entry, error) {
	gpk, _ := ledgerGSI1(entryID)
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
		return nil, commonErrors.NewInternalError("failed to get ledger entry", err)
	}
	if len(result.Items) == 0 {
		return nil, commonErrors.NewNotFoundError("ledger entry not found")
	}

	var entry ledger.Entry
	if err := attributevalue.UnmarshalMap(result.Items[0], &entry); err != nil {
		return nil, commonErrors.NewInternalError("failed to unmarshal ledger entry", err)
	}
	return &entry, nil
}

// ListEntries returns all of a house's ledger entries, oldest received
// first.
func (r *DynamoDBLedgerRepository) ListEntries(ctx context.Context, houseID string) ([]ledger.Entry, error) {
	entries, err := r.queryHouseEntries(ctx, houseID)
	if err != nil {
		return nil, err
	}
	sortByReceived(entries)
	return entries, nil
}

// ListAllocatable returns the house's entries with money left to allocate,
// oldest received first.
func (r *DynamoDBLedgerRepository) ListAllocatable(ctx context.Context, houseID string) ([]ledger.Entry, error) {
	entries, err := r.queryHouseEntries(ctx, houseID)
	if err != nil {
		return nil, err
	}
	open := make([]ledger.Entry, 0, len(entries))
	for _, e := range entries {
		if e.Remaining.IsPositive() {
			open = append(open, e)
		}
	}
	sortByReceived(open)
	return open, nil
}

func (r *DynamoDBLedgerRepository) queryHouseEntries(ctx context.Context, houseID string) ([]ledger.Entry, error) {
	keyCond := expression.Key("PK").Equal(expression.Value(houseKey(houseID))).
		And(expression.Key("SK").BeginsWith("LEDGER#"))
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
		return nil, commonErrors.NewInternalError("failed to list ledger entries", err)
	}

	var entries []ledger.Entry
	if err := attributevalue.UnmarshalListOfMaps(result.Items, &entries); err != nil {
		return nil, commonErrors.NewInternalError("failed to unmarshal ledger entries", err)
	}
	return entries, nil
}

// sortByReceived orders entries by when the money arrived, not by when the
// pay-in was accepted; the id breaks ties between same-instant transfers.
func sortByReceived(entries []ledger.Entry) {
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].ReceivedAt.Equal(entries[j].ReceivedAt) {
			return entries[i].EntryID < entries[j].EntryID
		}
		return entries[i].ReceivedAt.Before(entries[j].ReceivedAt)
	})
}

// GetAllocation looks a payment allocation up by id.
func (r *DynamoDBLedgerRepository) GetAllocation(ctx context.Context, allocationID string) (*allocation.Allocation, error) {
	return getAllocationByID(ctx, r.client, r.table, allocationID)
}

// ListAllocations returns payment allocations matching the filter.
func (r *DynamoDBLedgerRepository) ListAllocations(ctx context.Context, f allocation.Filter) ([]allocation.Allocation, error) {
	var (
		allocs []allocation.Allocation
		err    error
	)
	switch {
	case f.TargetID != "":
		allocs, err = listAllocationsByPartition(ctx, r.client, r.table, invoiceKey(f.TargetID))
	case f.SourceID != "":
		allocs, err = listAllocationsBySource(ctx, r.client, r.table, allocSourcePK("LEDGER", f.SourceID))
	case f.HouseID != "":
		allocs, err = r.listHouseAllocations(ctx, f.HouseID)
	default:
		allocs, err = scanAllocations(ctx, r.client, r.table)
	}
	if err != nil {
		return nil, err
	}
	return filterAllocations(allocs, allocation.KindPayment, f.IncludeReversed), nil
}

// listHouseAllocations fans out across the house's ledger entries, since
// allocations are keyed by invoice and indexed by source entry.
func (r *DynamoDBLedgerRepository) listHouseAllocations(ctx context.Context, houseID string) ([]allocation.Allocation, error) {
	entries, err := r.queryHouseEntries(ctx, houseID)
	if err != nil {
		return nil, err
	}
	var all []allocation.Allocation
	for _, e := range entries {
		allocs, err := listAllocationsBySource(ctx, r.client, r.table, allocSourcePK("LEDGER", e.EntryID))
		if err != nil {
			return nil, err
		}
		all = append(all, allocs...)
	}
	return all, nil
}

// Apply writes the allocation record, both rebalanced sides and the audit
// event in one transaction. Each balance write is conditioned on the value
// the service read, reconstructed as the new balance plus the allocated
// amount.
func (r *DynamoDBLedgerRepository) Apply(ctx context.Context, app *ledger.Application, evt *audit.Event) error {
	allocItem, err := paymentAllocationItem(app.Allocation)
	if err != nil {
		return commonErrors.NewInternalError("failed to marshal allocation", err)
	}
	entryItem, err := ledgerEntryItem(app.Entry)
	if err != nil {
		return commonErrors.NewInternalError("failed to marshal ledger entry", err)
	}
	invItem, err := invoiceItem(app.Invoice)
	if err != nil {
		return commonErrors.NewInternalError("failed to marshal invoice", err)
	}
	evtItem, err := eventPut(r.table, evt)
	if err != nil {
		return commonErrors.NewInternalError("failed to marshal audit event", err)
	}

	amount := app.Allocation.Amount
	_, err = r.client.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{
		TransactItems: []types.TransactWriteItem{
			createPut(r.table, allocItem),
			balancePut(r.table, entryItem, "remaining", app.Entry.Remaining.Add(amount)),
			balancePut(r.table, invItem, "outstanding", app.Invoice.Outstanding.Add(amount)),
			evtItem,
		},
	})
	if err == nil {
		return nil
	}

	failed := canceledIndexes(err)
	switch {
	case indexFailed(failed, 1):
		r.logger.Debug("allocation lost a race on the ledger entry",
			zap.String("entryId", app.Entry.EntryID))
		return commonErrors.NewAmountExceedsAvailableConflict("ledger entry balance changed, retry the allocation")
	case indexFailed(failed, 2):
		r.logger.Debug("allocation lost a race on the invoice",
			zap.String("invoiceId", app.Invoice.InvoiceID))
		return commonErrors.NewAmountExceedsAvailableConflict("invoice outstanding changed, retry the allocation")
	case indexFailed(failed, 0):
		return commonErrors.NewConflictError("allocation already exists")
	}
	return commonErrors.NewInternalError("failed to apply payment", err)
}

// Reverse writes the reversal mark, both restored balances and the audit
// event in one transaction.
func (r *DynamoDBLedgerRepository) Reverse(ctx context.Context, rev *ledger.Reversal, evt *audit.Event) error {
	allocItem, err := paymentAllocationItem(rev.Allocation)
	if err != nil {
		return commonErrors.NewInternalError("failed to marshal allocation", err)
	}
	entryItem, err := ledgerEntryItem(rev.Entry)
	if err != nil {
		return commonErrors.NewInternalError("failed to marshal ledger entry", err)
	}
	invItem, err := invoiceItem(rev.Invoice)
	if err != nil {
		return commonErrors.NewInternalError("failed to marshal invoice", err)
	}
	evtItem, err := eventPut(r.table, evt)
	if err != nil {
		return commonErrors.NewInternalError("failed to marshal audit event", err)
	}

	allocPut := types.TransactWriteItem{
		Put: &types.Put{
			TableName:           aws.String(r.table),
			Item:                allocItem,
			ConditionExpression: aws.String("attribute_not_exists(reversedAt)"),
		},
	}

	amount := rev.Allocation.Amount
	_, err = r.client.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{
		TransactItems: []types.TransactWriteItem{
			allocPut,
			balancePut(r.table, entryItem, "remaining", rev.Entry.Remaining.Sub(amount)),
			balancePut(r.table, invItem, "outstanding", rev.Invoice.Outstanding.Sub(amount)),
			evtItem,
		},
	})
	if err == nil {
		return nil
	}

	failed := canceledIndexes(err)
	switch {
	case indexFailed(failed, 0):
		return commonErrors.NewNotFoundError("allocation is already reversed")
	case indexFailed(failed, 1), indexFailed(failed, 2):
		return commonErrors.NewConflictError("balances changed concurrently, retry the reversal")
	}
	return commonErrors.NewInternalError("failed to reverse allocation", err)
}

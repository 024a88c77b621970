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
	"github.com/SafetyDady/moobaan-smart-sub000/internal/domain/expense"
	"github.com/SafetyDady/moobaan-smart-sub000/internal/platform/dynamodb/client"
)

// DynamoDBExpenseRepository implements the expense.Repository interface using DynamoDB
type DynamoDBExpenseRepository struct {
	client client.Client
	table  string
	logger *zap.Logger
}

// NewDynamoDBExpenseRepository creates a new DynamoDB expense repository
func NewDynamoDBExpenseRepository(dbClient client.Client, table string, logger *zap.Logger) *DynamoDBExpenseRepository {
	return &DynamoDBExpenseRepository{
		client: dbClient,
		table:  table,
		logger: logger,
	}
}

// expenseItem marshals an expense with its table keys. Expenses with money
// still unmatched carry the open-expense index attributes, ordered by
// expense date.
func expenseItem(e *expense.Expense) (map[string]types.AttributeValue, error) {
	item, err := marshalItem(e, expensePartition, expenseSK(e.ExpenseID), typeExpense)
	if err != nil {
		return nil, err
	}
	gpk, gsk := expenseGSI1(e.ExpenseID)
	withGSI1(item, gpk, gsk)
	if e.Remaining.IsPositive() {
		withGSI2(item, openExpensePK, openExpenseSK(e.ExpenseDate, e.ExpenseID))
	}
	return item, nil
}

// expenseAllocationItem marshals an expense allocation under its expense
// partition, with a reverse lookup by bank line on GSI2.
func expenseAllocationItem(a *allocation.Allocation) (map[string]types.AttributeValue, error) {
	item, err := marshalItem(a, expenseKey(a.TargetID), allocSK(a.AllocationID), typeAllocation)
	if err != nil {
		return nil, err
	}
	gpk, gsk := allocGSI1(a.AllocationID)
	withGSI1(item, gpk, gsk)
	return withGSI2(item, allocSourcePK("BANKTXN", a.SourceID), allocSK(a.AllocationID)), nil
}

// Create stores a new expense.
func (r *DynamoDBExpenseRepository) Create(ctx context.Context, e *expense.Expense, evt *audit.Event) error {
	item, err := expenseItem(e)
	if err != nil {
		return commonErrors.NewInternalError("failed to marshal expense", err)
	}
	evtItem, err := eventPut(r.table, evt)
	if err != nil {
		return commonErrors.NewInternalError("failed to marshal audit event", err)
	}

	_, err = r.client.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{
		TransactItems: []types.TransactWriteItem{
			createPut(r.table, item),
			evtItem,
		},
	})
	if err == nil {
		return nil
	}

	if indexFailed(canceledIndexes(err), 0) {
		return commonErrors.NewConflictError("expense already exists")
	}
	return commonErrors.NewInternalError("failed to store expense", err)
}

// Get looks an expense up by id.
func (r *DynamoDBExpenseRepository) Get(ctx context.Context, expenseID string) (*expense.Expense, error) {
	gpk, _ := expenseGSI1(expenseID)
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
		return nil, commonErrors.NewInternalError("failed to get expense", err)
	}
	if len(result.Items) == 0 {
		return nil, commonErrors.NewNotFoundError("expense not found")
	}

	var e expense.Expense
	if err := attributevalue.UnmarshalMap(result.Items[0], &e); err != nil {
		return nil, commonErrors.NewInternalError("failed to unmarshal expense", err)
	}
	return &e, nil
}

// List returns expenses ordered by expense date. The PENDING filter reads
// the sparse open-expense index; anything else walks the expense partition.
func (r *DynamoDBExpenseRepository) List(ctx context.Context, status expense.Status) ([]expense.Expense, error) {
	var (
		expenses []expense.Expense
		err      error
	)
	if status == expense.StatusPending {
		expenses, err = r.listOpen(ctx)
	} else {
		expenses, err = r.listAll(ctx, status)
	}
	if err != nil {
		return nil, err
	}
	sort.Slice(expenses, func(i, j int) bool {
		if expenses[i].ExpenseDate.Equal(expenses[j].ExpenseDate) {
			return expenses[i].ExpenseID < expenses[j].ExpenseID
		}
		return expenses[i].ExpenseDate.Before(expenses[j].ExpenseDate)
	})
	return expenses, nil
}

func (r *DynamoDBExpenseRepository) listOpen(ctx context.Context) ([]expense.Expense, error) {
	keyCond := expression.Key("GSI2PK").Equal(expression.Value(openExpensePK))
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
		return nil, commonErrors.NewInternalError("failed to list open expenses", err)
	}

	var expenses []expense.Expense
	if err := attributevalue.UnmarshalListOfMaps(result.Items, &expenses); err != nil {
		return nil, commonErrors.NewInternalError("failed to unmarshal expenses", err)
	}
	return expenses, nil
}

func (r *DynamoDBExpenseRepository) listAll(ctx context.Context, status expense.Status) ([]expense.Expense, error) {
	keyCond := expression.Key("PK").Equal(expression.Value(expensePartition)).
		And(expression.Key("SK").BeginsWith("EXPENSE#"))
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
		return nil, commonErrors.NewInternalError("failed to list expenses", err)
	}

	var all []expense.Expense
	if err := attributevalue.UnmarshalListOfMaps(result.Items, &all); err != nil {
		return nil, commonErrors.NewInternalError("failed to unmarshal expenses", err)
	}
	if status == "" {
		return all, nil
	}
	filtered := make([]expense.Expense, 0, len(all))
	for _, e := range all {
		if e.Status == status {
			filtered = append(filtered, e)
		}
	}
	return filtered, nil
}

// GetAllocation looks an expense allocation up by id.
func (r *DynamoDBExpenseRepository) GetAllocation(ctx context.Context, allocationID string) (*allocation.Allocation, error) {
	return getAllocationByID(ctx, r.client, r.table, allocationID)
}

// ListAllocations returns expense allocations matching the filter.
func (r *DynamoDBExpenseRepository) ListAllocations(ctx context.Context, f allocation.Filter) ([]allocation.Allocation, error) {
	var (
		allocs []allocation.Allocation
		err    error
	)
	switch {
	case f.TargetID != "":
		allocs, err = listAllocationsByPartition(ctx, r.client, r.table, expenseKey(f.TargetID))
	case f.SourceID != "":
		allocs, err = listAllocationsBySource(ctx, r.client, r.table, allocSourcePK("BANKTXN", f.SourceID))
	default:
		allocs, err = scanAllocations(ctx, r.client, r.table)
	}
	if err != nil {
		return nil, err
	}
	return filterAllocations(allocs, allocation.KindExpense, f.IncludeReversed), nil
}

// Allocate writes the allocation record, both rebalanced sides and the
// audit event in one transaction, each balance write conditioned on the
// value the service read.
func (r *DynamoDBExpenseRepository) Allocate(ctx context.Context, app *expense.Application, evt *audit.Event) error {
	allocItem, err := expenseAllocationItem(app.Allocation)
	if err != nil {
		return commonErrors.NewInternalError("failed to marshal allocation", err)
	}
	expItem, err := expenseItem(app.Expense)
	if err != nil {
		return commonErrors.NewInternalError("failed to marshal expense", err)
	}
	txnItem, err := bankTxnItem(app.Txn)
	if err != nil {
		return commonErrors.NewInternalError("failed to marshal bank transaction", err)
	}
	evtItem, err := eventPut(r.table, evt)
	if err != nil {
		return commonErrors.NewInternalError("failed to marshal audit event", err)
	}

	amount := app.Allocation.Amount
	_, err = r.client.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{
		TransactItems: []types.TransactWriteItem{
			createPut(r.table, allocItem),
			balancePut(r.table, expItem, "remaining", app.Expense.Remaining.Add(amount)),
			balancePut(r.table, txnItem, "unallocated", app.Txn.Unallocated.Add(amount)),
			evtItem,
		},
	})
	if err == nil {
		return nil
	}

	failed := canceledIndexes(err)
	switch {
	case indexFailed(failed, 1):
		r.logger.Debug("allocation lost a race on the expense",
			zap.String("expenseId", app.Expense.ExpenseID))
		return commonErrors.NewAmountExceedsAvailableConflict("expense remaining changed, retry the allocation")
	case indexFailed(failed, 2):
		r.logger.Debug("allocation lost a race on the bank line",
			zap.String("txnId", app.Txn.TxnID))
		return commonErrors.NewAmountExceedsAvailableConflict("bank line unallocated balance changed, retry the allocation")
	case indexFailed(failed, 0):
		return commonErrors.NewConflictError("allocation already exists")
	}
	return commonErrors.NewInternalError("failed to allocate expense", err)
}

// Reverse writes the reversal mark, both restored balances and the audit
// event in one transaction.
func (r *DynamoDBExpenseRepository) Reverse(ctx context.Context, rev *expense.Reversal, evt *audit.Event) error {
	allocItem, err := expenseAllocationItem(rev.Allocation)
	if err != nil {
		return commonErrors.NewInternalError("failed to marshal allocation", err)
	}
	expItem, err := expenseItem(rev.Expense)
	if err != nil {
		return commonErrors.NewInternalError("failed to marshal expense", err)
	}
	txnItem, err := bankTxnItem(rev.Txn)
	if err != nil {
		return commonErrors.NewInternalError("failed to marshal bank transaction", err)
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
			balancePut(r.table, expItem, "remaining", rev.Expense.Remaining.Sub(amount)),
			balancePut(r.table, txnItem, "unallocated", rev.Txn.Unallocated.Sub(amount)),
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

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
	"github.com/SafetyDady/moobaan-smart-sub000/internal/domain/invoice"
	"github.com/SafetyDady/moobaan-smart-sub000/internal/platform/dynamodb/client"
)

// DynamoDBInvoiceRepository implements the invoice.Repository interface using DynamoDB
type DynamoDBInvoiceRepository struct {
	client client.Client
	table  string
	logger *zap.Logger
}

// NewDynamoDBInvoiceRepository creates a new DynamoDB invoice repository
func NewDynamoDBInvoiceRepository(dbClient client.Client, table string, logger *zap.Logger) *DynamoDBInvoiceRepository {
	return &DynamoDBInvoiceRepository{
		client: dbClient,
		table:  table,
		logger: logger,
	}
}

// invoiceItem marshals an invoice with its table keys. Invoices with money
// still owed carry the open-invoice index attributes, ordered by due date;
// settling or cancelling drops them out of that index.
func invoiceItem(inv *invoice.Invoice) (map[string]types.AttributeValue, error) {
	item, err := marshalItem(inv, houseKey(inv.HouseID), invoiceSK(inv.InvoiceID), typeInvoice)
	if err != nil {
		return nil, err
	}
	gpk, gsk := invoiceGSI1(inv.InvoiceID)
	withGSI1(item, gpk, gsk)
	if inv.Outstanding.IsPositive() && !inv.Cancelled() {
		withGSI2(item, openInvoicePK, openInvoiceSK(inv.DueDate, inv.InvoiceID))
	}
	return item, nil
}

// Create stores a new invoice.
func (r *DynamoDBInvoiceRepository) Create(ctx context.Context, inv *invoice.Invoice, evt *audit.Event) error {
	item, err := invoiceItem(inv)
	if err != nil {
		return commonErrors.NewInternalError("failed to marshal invoice", err)
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
		return commonErrors.NewConflictError("invoice already exists")
	}
	return commonErrors.NewInternalError("failed to store invoice", err)
}

// Get looks an invoice up by id.
func (r *DynamoDBInvoiceRepository) Get(ctx context.Context, invoiceID string) (*invoice.Invoice, error) {
	gpk, _ := invoiceGSI1(invoiceID)
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
		return nil, commonErrors.NewInternalError("failed to get invoice", err)
	}
	if len(result.Items) == 0 {
		return nil, commonErrors.NewNotFoundError("invoice not found")
	}

	var inv invoice.Invoice
	if err := attributevalue.UnmarshalMap(result.Items[0], &inv); err != nil {
		return nil, commonErrors.NewInternalError("failed to unmarshal invoice", err)
	}
	return &inv, nil
}

// List returns invoices matching the filter, ordered by due date.
func (r *DynamoDBInvoiceRepository) List(ctx context.Context, f invoice.Filter) ([]invoice.Invoice, error) {
	var (
		invoices []invoice.Invoice
		err      error
	)
	switch {
	case f.HouseID != "":
		invoices, err = r.listByHouse(ctx, f.HouseID)
	case f.OnlyOutstanding:
		invoices, err = r.listOpen(ctx)
	default:
		invoices, err = r.scanAll(ctx)
	}
	if err != nil {
		return nil, err
	}

	filtered := make([]invoice.Invoice, 0, len(invoices))
	for _, inv := range invoices {
		if f.Status != "" && inv.Status != f.Status {
			continue
		}
		if f.OnlyOutstanding && !inv.Outstanding.IsPositive() {
			continue
		}
		filtered = append(filtered, inv)
	}
	sort.Slice(filtered, func(i, j int) bool {
		if filtered[i].DueDate.Equal(filtered[j].DueDate) {
			return filtered[i].InvoiceID < filtered[j].InvoiceID
		}
		return filtered[i].DueDate.Before(filtered[j].DueDate)
	})
	return filtered, nil
}

func (r *DynamoDBInvoiceRepository) listByHouse(ctx context.Context, houseID string) ([]invoice.Invoice, error) {
	keyCond := expression.Key("PK").Equal(expression.Value(houseKey(houseID))).
		And(expression.Key("SK").BeginsWith("INVOICE#"))
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
		return nil, commonErrors.NewInternalError("failed to list invoices", err)
	}

	var invoices []invoice.Invoice
	if err := attributevalue.UnmarshalListOfMaps(result.Items, &invoices); err != nil {
		return nil, commonErrors.NewInternalError("failed to unmarshal invoices", err)
	}
	return invoices, nil
}

// listOpen reads the sparse open-invoice index, which holds exactly the
// invoices with outstanding > 0 that are not cancelled.
func (r *DynamoDBInvoiceRepository) listOpen(ctx context.Context) ([]invoice.Invoice, error) {
	keyCond := expression.Key("GSI2PK").Equal(expression.Value(openInvoicePK))
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
		return nil, commonErrors.NewInternalError("failed to list open invoices", err)
	}

	var invoices []invoice.Invoice
	if err := attributevalue.UnmarshalListOfMaps(result.Items, &invoices); err != nil {
		return nil, commonErrors.NewInternalError("failed to unmarshal invoices", err)
	}
	return invoices, nil
}

func (r *DynamoDBInvoiceRepository) scanAll(ctx context.Context) ([]invoice.Invoice, error) {
	var invoices []invoice.Invoice
	var startKey map[string]types.AttributeValue
	for {
		result, err := r.client.Scan(ctx, &dynamodb.ScanInput{
			TableName:         aws.String(r.table),
			ExclusiveStartKey: startKey,
		})
		if err != nil {
			return nil, commonErrors.NewInternalError("failed to scan invoices", err)
		}
		for _, item := range result.Items {
			t, ok := item["Type"].(*types.AttributeValueMemberS)
			if !ok || t.Value != typeInvoice {
				continue
			}
			var inv invoice.Invoice
			if err := attributevalue.UnmarshalMap(item, &inv); err != nil {
				return nil, commonErrors.NewInternalError("failed to unmarshal invoice", err)
			}
			invoices = append(invoices, inv)
		}
		if result.LastEvaluatedKey == nil {
			return invoices, nil
		}
		startKey = result.LastEvaluatedKey
	}
}

// Cancel replaces the invoice with its cancelled form. The write asserts
// that nothing has been applied in the meantime: outstanding must still
// equal the full total and the status must still be ISSUED.
func (r *DynamoDBInvoiceRepository) Cancel(ctx context.Context, inv *invoice.Invoice, evt *audit.Event) error {
	item, err := invoiceItem(inv)
	if err != nil {
		return commonErrors.NewInternalError("failed to marshal invoice", err)
	}
	evtItem, err := eventPut(r.table, evt)
	if err != nil {
		return commonErrors.NewInternalError("failed to marshal audit event", err)
	}

	cancelPut := types.TransactWriteItem{
		Put: &types.Put{
			TableName:                aws.String(r.table),
			Item:                     item,
			ConditionExpression:      aws.String("outstanding = :expected AND #st = :st"),
			ExpressionAttributeNames: map[string]string{"#st": "status"},
			ExpressionAttributeValues: map[string]types.AttributeValue{
				":expected": amountValue(inv.TotalAmount),
				":st":       stringValue(string(invoice.StatusIssued)),
			},
		},
	}

	_, err = r.client.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{
		TransactItems: []types.TransactWriteItem{cancelPut, evtItem},
	})
	if err == nil {
		return nil
	}

	if indexFailed(canceledIndexes(err), 0) {
		current, lookupErr := r.Get(ctx, inv.InvoiceID)
		if lookupErr != nil {
			return lookupErr
		}
		if current.Cancelled() {
			return commonErrors.NewInvalidStateError("invoice is already cancelled", string(current.Status))
		}
		return commonErrors.NewInvalidStateError("invoice with applied payments or credits cannot be cancelled", string(current.Status))
	}
	return commonErrors.NewInternalError("failed to cancel invoice", err)
}

// ApplyCredit stores the credit and the rebalanced invoice in one
// transaction, conditioned on the outstanding balance the credit was
// planned against.
func (r *DynamoDBInvoiceRepository) ApplyCredit(ctx context.Context, inv *invoice.Invoice, credit *invoice.Credit, evt *audit.Event) error {
	creditItem, err := marshalItem(credit, invoiceKey(credit.InvoiceID), creditSK(credit.CreditID), typeCredit)
	if err != nil {
		return commonErrors.NewInternalError("failed to marshal credit", err)
	}
	invItem, err := invoiceItem(inv)
	if err != nil {
		return commonErrors.NewInternalError("failed to marshal invoice", err)
	}
	evtItem, err := eventPut(r.table, evt)
	if err != nil {
		return commonErrors.NewInternalError("failed to marshal audit event", err)
	}

	_, err = r.client.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{
		TransactItems: []types.TransactWriteItem{
			createPut(r.table, creditItem),
			balancePut(r.table, invItem, "outstanding", inv.Outstanding.Add(credit.Amount)),
			evtItem,
		},
	})
	if err == nil {
		return nil
	}

	failed := canceledIndexes(err)
	switch {
	case indexFailed(failed, 1):
		r.logger.Debug("credit lost a race on the invoice",
			zap.String("invoiceId", inv.InvoiceID))
		return commonErrors.NewAmountExceedsAvailableConflict("invoice outstanding changed, retry the credit")
	case indexFailed(failed, 0):
		return commonErrors.NewConflictError("credit already exists")
	}
	return commonErrors.NewInternalError("failed to apply credit", err)
}

// ListCredits returns all credits ever applied to an invoice, oldest first.
func (r *DynamoDBInvoiceRepository) ListCredits(ctx context.Context, invoiceID string) ([]invoice.Credit, error) {
	keyCond := expression.Key("PK").Equal(expression.Value(invoiceKey(invoiceID))).
		And(expression.Key("SK").BeginsWith("CREDIT#"))
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
		return nil, commonErrors.NewInternalError("failed to list credits", err)
	}

	var credits []invoice.Credit
	if err := attributevalue.UnmarshalListOfMaps(result.Items, &credits); err != nil {
		return nil, commonErrors.NewInternalError("failed to unmarshal credits", err)
	}
	return credits, nil
}

// HasActiveAllocation reports whether any unreversed payment allocation
// exists for the invoice.
func (r *DynamoDBInvoiceRepository) HasActiveAllocation(ctx context.Context, invoiceID string) (bool, error) {
	allocs, err := listAllocationsByPartition(ctx, r.client, r.table, invoiceKey(invoiceID))
	if err != nil {
		return false, err
	}
	for _, a := range allocs {
		if a.Kind == allocation.KindPayment && a.Active() {
			return true, nil
		}
	}
	return false, nil
}

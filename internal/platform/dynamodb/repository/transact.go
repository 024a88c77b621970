package repository

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/SafetyDady/moobaan-smart-sub000/internal/common/money"
	"github.com/SafetyDady/moobaan-smart-sub000/internal/domain/audit"
)

// marshalItem converts an entity to a DynamoDB item and injects the table
// keys and type discriminator.
func marshalItem(entity interface{}, pk, sk, itemType string) (map[string]types.AttributeValue, error) {
	item, err := attributevalue.MarshalMap(entity)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s: %w", itemType, err)
	}
	item["PK"] = &types.AttributeValueMemberS{Value: pk}
	item["SK"] = &types.AttributeValueMemberS{Value: sk}
	item["Type"] = &types.AttributeValueMemberS{Value: itemType}
	return item, nil
}

func withGSI1(item map[string]types.AttributeValue, pk, sk string) map[string]types.AttributeValue {
	item["GSI1PK"] = &types.AttributeValueMemberS{Value: pk}
	item["GSI1SK"] = &types.AttributeValueMemberS{Value: sk}
	return item
}

func withGSI2(item map[string]types.AttributeValue, pk, sk string) map[string]types.AttributeValue {
	item["GSI2PK"] = &types.AttributeValueMemberS{Value: pk}
	item["GSI2SK"] = &types.AttributeValueMemberS{Value: sk}
	return item
}

func amountValue(a money.Amount) types.AttributeValue {
	return &types.AttributeValueMemberN{Value: strconv.FormatInt(int64(a), 10)}
}

func stringValue(s string) types.AttributeValue {
	return &types.AttributeValueMemberS{Value: s}
}

// createPut is a Put that must not overwrite an existing item.
func createPut(table string, item map[string]types.AttributeValue) types.TransactWriteItem {
	return types.TransactWriteItem{
		Put: &types.Put{
			TableName:           aws.String(table),
			Item:                item,
			ConditionExpression: aws.String("attribute_not_exists(PK)"),
		},
	}
}

// balancePut replaces an item on the condition that its balance attribute
// still holds the value the caller read. The expected value is derived from
// the post-mutation entity, so a concurrent writer makes the equality fail
// instead of silently losing an update.
func balancePut(table string, item map[string]types.AttributeValue, attr string, expected money.Amount) types.TransactWriteItem {
	return types.TransactWriteItem{
		Put: &types.Put{
			TableName:                 aws.String(table),
			Item:                      item,
			ConditionExpression:       aws.String(attr + " = :expected"),
			ExpressionAttributeValues: map[string]types.AttributeValue{":expected": amountValue(expected)},
		},
	}
}

// eventItem marshals an audit event with its trail keys.
func eventItem(evt *audit.Event) (map[string]types.AttributeValue, error) {
	return marshalItem(evt, auditKey(evt.EntityType, evt.EntityID), auditEventSK(evt.Timestamp, evt.EventID), typeAuditEvent)
}

// eventPut marshals an audit event for the same transaction as the state
// change it records.
func eventPut(table string, evt *audit.Event) (types.TransactWriteItem, error) {
	item, err := eventItem(evt)
	if err != nil {
		return types.TransactWriteItem{}, err
	}
	return types.TransactWriteItem{
		Put: &types.Put{
			TableName: aws.String(table),
			Item:      item,
		},
	}, nil
}

// conditionFailed reports whether err is a single-item conditional write
// rejection.
func conditionFailed(err error) bool {
	var condErr *types.ConditionalCheckFailedException
	return errors.As(err, &condErr)
}

// canceledIndexes returns the positions of the transaction items whose
// condition checks failed, or nil when err is not a transaction
// cancellation.
func canceledIndexes(err error) []int {
	var txErr *types.TransactionCanceledException
	if !errors.As(err, &txErr) {
		return nil
	}
	var failed []int
	for i, reason := range txErr.CancellationReasons {
		if reason.Code != nil && *reason.Code == "ConditionalCheckFailed" {
			failed = append(failed, i)
		}
	}
	return failed
}

func indexFailed(indexes []int, i int) bool {
	for _, idx := range indexes {
		if idx == i {
			return true
		}
	}
	return false
}

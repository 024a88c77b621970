package repository

import (
	"context"
	"sort"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/SafetyDady/moobaan-smart-sub000/internal/domain/allocation"
	commonErrors "github.com/SafetyDady/moobaan-smart-sub000/internal/domain/errors"
	"github.com/SafetyDady/moobaan-smart-sub000/internal/platform/dynamodb/client"
)

// Allocation lookups shared by the ledger and expense repositories. Both
// flavors store the same record shape: under the target's partition, with a
// GSI1 id lookup and a GSI2 reverse lookup by source.

func getAllocationByID(ctx context.Context, c client.Client, table, allocationID string) (*allocation.Allocation, error) {
	gpk, _ := allocGSI1(allocationID)
	keyCond := expression.Key("GSI1PK").Equal(expression.Value(gpk))
	expr, err := expression.NewBuilder().WithKeyCondition(keyCond).Build()
	if err != nil {
		return nil, commonErrors.NewInternalError("failed to build query expression", err)
	}

	result, err := c.Query(ctx, &dynamodb.QueryInput{
		TableName:                 aws.String(table),
		IndexName:                 aws.String(gsi1),
		KeyConditionExpression:    expr.KeyCondition(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
		Limit:                     aws.Int32(1),
	})
	if err != nil {
		return nil, commonErrors.NewInternalError("failed to get allocation", err)
	}
	if len(result.Items) == 0 {
		return nil, commonErrors.NewNotFoundError("allocation not found")
	}

	var a allocation.Allocation
	if err := attributevalue.UnmarshalMap(result.Items[0], &a); err != nil {
		return nil, commonErrors.NewInternalError("failed to unmarshal allocation", err)
	}
	return &a, nil
}

// listAllocationsByPartition returns the allocations stored under a
// target's partition (INVOICE#id or EXPENSE#id).
func listAllocationsByPartition(ctx context.Context, c client.Client, table, pk string) ([]allocation.Allocation, error) {
	keyCond := expression.Key("PK").Equal(expression.Value(pk)).
		And(expression.Key("SK").BeginsWith("ALLOC#"))
	expr, err := expression.NewBuilder().WithKeyCondition(keyCond).Build()
	if err != nil {
		return nil, commonErrors.NewInternalError("failed to build query expression", err)
	}

	result, err := c.Query(ctx, &dynamodb.QueryInput{
		TableName:                 aws.String(table),
		KeyConditionExpression:    expr.KeyCondition(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
	})
	if err != nil {
		return nil, commonErrors.NewInternalError("failed to list allocations", err)
	}
	return unmarshalAllocations(result.Items)
}

// listAllocationsBySource returns the allocations drawing on one source,
// via the GSI2 reverse lookup.
func listAllocationsBySource(ctx context.Context, c client.Client, table, sourcePK string) ([]allocation.Allocation, error) {
	keyCond := expression.Key("GSI2PK").Equal(expression.Value(sourcePK))
	expr, err := expression.NewBuilder().WithKeyCondition(keyCond).Build()
	if err != nil {
		return nil, commonErrors.NewInternalError("failed to build query expression", err)
	}

	result, err := c.Query(ctx, &dynamodb.QueryInput{
		TableName:                 aws.String(table),
		IndexName:                 aws.String(gsi2),
		KeyConditionExpression:    expr.KeyCondition(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
	})
	if err != nil {
		return nil, commonErrors.NewInternalError("failed to list allocations", err)
	}
	return unmarshalAllocations(result.Items)
}

// scanAllocations walks the whole table for allocation items. Only the
// unfiltered admin listing pays this cost.
func scanAllocations(ctx context.Context, c client.Client, table string) ([]allocation.Allocation, error) {
	var allocs []allocation.Allocation
	var startKey map[string]types.AttributeValue
	for {
		result, err := c.Scan(ctx, &dynamodb.ScanInput{
			TableName:         aws.String(table),
			ExclusiveStartKey: startKey,
		})
		if err != nil {
			return nil, commonErrors.NewInternalError("failed to scan allocations", err)
		}
		page, err := unmarshalAllocations(result.Items)
		if err != nil {
			return nil, err
		}
		allocs = append(allocs, page...)
		if result.LastEvaluatedKey == nil {
			return allocs, nil
		}
		startKey = result.LastEvaluatedKey
	}
}

// unmarshalAllocations decodes allocation items, ignoring items of other
// types that share the scanned or queried range.
func unmarshalAllocations(items []map[string]types.AttributeValue) ([]allocation.Allocation, error) {
	allocs := make([]allocation.Allocation, 0, len(items))
	for _, item := range items {
		t, ok := item["Type"].(*types.AttributeValueMemberS)
		if !ok || t.Value != typeAllocation {
			continue
		}
		var a allocation.Allocation
		if err := attributevalue.UnmarshalMap(item, &a); err != nil {
			return nil, commonErrors.NewInternalError("failed to unmarshal allocation", err)
		}
		allocs = append(allocs, a)
	}
	return allocs, nil
}

// filterAllocations narrows to one kind, hides reversed records unless
// asked for, and orders by creation.
func filterAllocations(allocs []allocation.Allocation, kind allocation.Kind, includeReversed bool) []allocation.Allocation {
	filtered := make([]allocation.Allocation, 0, len(allocs))
	for _, a := range allocs {
		if kind != "" && a.Kind != kind {
			continue
		}
		if !includeReversed && !a.Active() {
			continue
		}
		filtered = append(filtered, a)
	}
	sort.Slice(filtered, func(i, j int) bool {
		return filtered[i].AllocationID < filtered[j].AllocationID
	})
	return filtered
}

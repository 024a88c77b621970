package repository

import (
	"context"
	"regexp"
	"sort"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// TestClient is an in-memory stand-in for DynamoDB. It stores items keyed
// by PK#SK and evaluates the condition and key-condition expressions the
// repositories actually emit: attribute_not_exists, attribute_exists,
// equality and begins_with, joined by AND.
type TestClient struct {
	items map[string]map[string]types.AttributeValue
}

func newTestClient() *TestClient {
	return &TestClient{items: make(map[string]map[string]types.AttributeValue)}
}

// seed stores an item directly, bypassing conditions.
func (c *TestClient) seed(item map[string]types.AttributeValue) {
	c.items[itemKey(item)] = item
}

func itemKey(item map[string]types.AttributeValue) string {
	pk := item["PK"].(*types.AttributeValueMemberS).Value
	sk := item["SK"].(*types.AttributeValueMemberS).Value
	return pk + "#" + sk
}

func keyOf(key map[string]types.AttributeValue) string {
	pk := key["PK"].(*types.AttributeValueMemberS).Value
	sk := key["SK"].(*types.AttributeValueMemberS).Value
	return pk + "#" + sk
}

// GetItem implements client.Client.
func (c *TestClient) GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
	item, ok := c.items[keyOf(params.Key)]
	if !ok {
		return &dynamodb.GetItemOutput{}, nil
	}
	return &dynamodb.GetItemOutput{Item: item}, nil
}

// PutItem implements client.Client.
func (c *TestClient) PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	key := itemKey(params.Item)
	if !evalCondition(c.items[key], params.ConditionExpression, params.ExpressionAttributeNames, params.ExpressionAttributeValues) {
		return nil, &types.ConditionalCheckFailedException{Message: aws.String("The conditional request failed")}
	}
	c.items[key] = params.Item
	return &dynamodb.PutItemOutput{}, nil
}

// Query implements client.Client.
func (c *TestClient) Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error) {
	clauses := parseKeyCondition(aws.ToString(params.KeyConditionExpression), params.ExpressionAttributeNames)

	sortAttr := "SK"
	switch aws.ToString(params.IndexName) {
	case gsi1:
		sortAttr = "GSI1SK"
	case gsi2:
		sortAttr = "GSI2SK"
	}

	var matched []map[string]types.AttributeValue
	for _, item := range c.items {
		if matchesClauses(item, clauses, params.ExpressionAttributeValues) {
			matched = append(matched, item)
		}
	}

	forward := params.ScanIndexForward == nil || *params.ScanIndexForward
	sort.Slice(matched, func(i, j int) bool {
		a, b := stringAttr(matched[i], sortAttr), stringAttr(matched[j], sortAttr)
		if forward {
			return a < b
		}
		return a > b
	})

	if params.Limit != nil && int(*params.Limit) < len(matched) {
		matched = matched[:*params.Limit]
	}
	return &dynamodb.QueryOutput{Items: matched}, nil
}

// Scan implements client.Client. Everything fits one page.
func (c *TestClient) Scan(ctx context.Context, params *dynamodb.ScanInput, optFns ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error) {
	var items []map[string]types.AttributeValue
	for _, item := range c.items {
		items = append(items, item)
	}
	return &dynamodb.ScanOutput{Items: items}, nil
}

// TransactWriteItems implements client.Client. All conditions are checked
// against the current state first; any failure cancels the whole
// transaction with per-item reasons, exactly like the real service.
func (c *TestClient) TransactWriteItems(ctx context.Context, params *dynamodb.TransactWriteItemsInput, optFns ...func(*dynamodb.Options)) (*dynamodb.TransactWriteItemsOutput, error) {
	reasons := make([]types.CancellationReason, len(params.TransactItems))
	failed := false
	for i, item := range params.TransactItems {
		ok := true
		switch {
		case item.Put != nil:
			ok = evalCondition(c.items[itemKey(item.Put.Item)], item.Put.ConditionExpression, item.Put.ExpressionAttributeNames, item.Put.ExpressionAttributeValues)
		case item.Delete != nil:
			ok = evalCondition(c.items[keyOf(item.Delete.Key)], item.Delete.ConditionExpression, item.Delete.ExpressionAttributeNames, item.Delete.ExpressionAttributeValues)
		}
		if ok {
			reasons[i] = types.CancellationReason{Code: aws.String("None")}
		} else {
			reasons[i] = types.CancellationReason{Code: aws.String("ConditionalCheckFailed")}
			failed = true
		}
	}
	if failed {
		return nil, &types.TransactionCanceledException{
			Message:             aws.String("Transaction cancelled, please refer cancellation reasons for specific reasons"),
			CancellationReasons: reasons,
		}
	}

	for _, item := range params.TransactItems {
		switch {
		case item.Put != nil:
			c.items[itemKey(item.Put.Item)] = item.Put.Item
		case item.Delete != nil:
			delete(c.items, keyOf(item.Delete.Key))
		}
	}
	return &dynamodb.TransactWriteItemsOutput{}, nil
}

// GetRawClient implements client.Client. Tests never touch the raw SDK.
func (c *TestClient) GetRawClient() *dynamodb.Client {
	return nil
}

var (
	notExistsRe = regexp.MustCompile(`^attribute_not_exists\((\w+)\)$`)
	existsRe    = regexp.MustCompile(`^attribute_exists\((\w+)\)$`)
	equalityRe  = regexp.MustCompile(`^(#?\w+)\s*=\s*(:\w+)$`)
	beginsRe    = regexp.MustCompile(`^begins_with\s*\((#?\w+),\s*(:\w+)\)$`)
)

// evalCondition evaluates a write condition against the stored item, nil
// meaning the item does not exist.
func evalCondition(existing map[string]types.AttributeValue, expr *string, names map[string]string, values map[string]types.AttributeValue) bool {
	if expr == nil {
		return true
	}
	for _, clause := range splitAnd(*expr) {
		if m := notExistsRe.FindStringSubmatch(clause); m != nil {
			attr := resolveName(m[1], names)
			if existing != nil && existing[attr] != nil {
				return false
			}
			continue
		}
		if m := existsRe.FindStringSubmatch(clause); m != nil {
			attr := resolveName(m[1], names)
			if existing == nil || existing[attr] == nil {
				return false
			}
			continue
		}
		if m := equalityRe.FindStringSubmatch(clause); m != nil {
			attr := resolveName(m[1], names)
			if existing == nil || !attrEqual(existing[attr], values[m[2]]) {
				return false
			}
			continue
		}
		// An unsupported form slipping in should fail loudly, not pass.
		return false
	}
	return true
}

type keyClause struct {
	attr   string
	value  string // expression value placeholder
	prefix bool
}

func parseKeyCondition(expr string, names map[string]string) []keyClause {
	var clauses []keyClause
	for _, part := range splitAnd(expr) {
		if m := equalityRe.FindStringSubmatch(part); m != nil {
			clauses = append(clauses, keyClause{attr: resolveName(m[1], names), value: m[2]})
			continue
		}
		if m := beginsRe.FindStringSubmatch(part); m != nil {
			clauses = append(clauses, keyClause{attr: resolveName(m[1], names), value: m[2], prefix: true})
		}
	}
	return clauses
}

func matchesClauses(item map[string]types.AttributeValue, clauses []keyClause, values map[string]types.AttributeValue) bool {
	if len(clauses) == 0 {
		return false
	}
	for _, c := range clauses {
		want, ok := values[c.value].(*types.AttributeValueMemberS)
		if !ok {
			return false
		}
		got, ok := item[c.attr].(*types.AttributeValueMemberS)
		if !ok {
			return false
		}
		if c.prefix {
			if !strings.HasPrefix(got.Value, want.Value) {
				return false
			}
		} else if got.Value != want.Value {
			return false
		}
	}
	return true
}

func splitAnd(expr string) []string {
	parts := strings.Split(expr, " AND ")
	for i := range parts {
		p := strings.TrimSpace(parts[i])
		// Strip only a wrapping parenthesis pair; a lone trailing ")" is
		// part of a function call like attribute_not_exists(PK).
		if strings.HasPrefix(p, "(") && strings.HasSuffix(p, ")") {
			p = strings.TrimSpace(strings.TrimSuffix(strings.TrimPrefix(p, "("), ")"))
		}
		parts[i] = p
	}
	return parts
}

func resolveName(name string, names map[string]string) string {
	if strings.HasPrefix(name, "#") {
		if resolved, ok := names[name]; ok {
			return resolved
		}
	}
	return name
}

func attrEqual(a, b types.AttributeValue) bool {
	switch av := a.(type) {
	case *types.AttributeValueMemberS:
		bv, ok := b.(*types.AttributeValueMemberS)
		return ok && av.Value == bv.Value
	case *types.AttributeValueMemberN:
		bv, ok := b.(*types.AttributeValueMemberN)
		return ok && av.Value == bv.Value
	case *types.AttributeValueMemberBOOL:
		bv, ok := b.(*types.AttributeValueMemberBOOL)
		return ok && av.Value == bv.Value
	}
	return false
}

func stringAttr(item map[string]types.AttributeValue, attr string) string {
	if s, ok := item[attr].(*types.AttributeValueMemberS); ok {
		return s.Value
	}
	return ""
}

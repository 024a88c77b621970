package commands

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/spf13/cobra"
)

func newCreateTableCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "create-table",
		Short: "Create the DynamoDB table with its indexes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := connect(cmd.Context())
			if err != nil {
				return err
			}
			return createTable(cmd.Context(), d)
		},
	}
}

func createTable(ctx context.Context, d *deps) error {
	stringAttr := func(name string) types.AttributeDefinition {
		return types.AttributeDefinition{
			AttributeName: aws.String(name),
			AttributeType: types.ScalarAttributeTypeS,
		}
	}
	index := func(name, pk, sk string) types.GlobalSecondaryIndex {
		return types.GlobalSecondaryIndex{
			IndexName: aws.String(name),
			KeySchema: []types.KeySchemaElement{
				{AttributeName: aws.String(pk), KeyType: types.KeyTypeHash},
				{AttributeName: aws.String(sk), KeyType: types.KeyTypeRange},
			},
			Projection: &types.Projection{ProjectionType: types.ProjectionTypeAll},
		}
	}

	_, err := d.db.GetRawClient().CreateTable(ctx, &dynamodb.CreateTableInput{
		TableName: aws.String(d.cfg.DynamoDBTableName),
		AttributeDefinitions: []types.AttributeDefinition{
			stringAttr("PK"), stringAttr("SK"),
			stringAttr("GSI1PK"), stringAttr("GSI1SK"),
			stringAttr("GSI2PK"), stringAttr("GSI2SK"),
		},
		KeySchema: []types.KeySchemaElement{
			{AttributeName: aws.String("PK"), KeyType: types.KeyTypeHash},
			{AttributeName: aws.String("SK"), KeyType: types.KeyTypeRange},
		},
		GlobalSecondaryIndexes: []types.GlobalSecondaryIndex{
			index("GSI1", "GSI1PK", "GSI1SK"),
			index("GSI2", "GSI2PK", "GSI2SK"),
		},
		BillingMode: types.BillingModePayPerRequest,
	})
	if err != nil {
		var inUse *types.ResourceInUseException
		if errors.As(err, &inUse) {
			fmt.Printf("Table %s already exists\n", d.cfg.DynamoDBTableName)
			return nil
		}
		return fmt.Errorf("creating table: %w", err)
	}

	fmt.Printf("Created table %s\n", d.cfg.DynamoDBTableName)
	return nil
}

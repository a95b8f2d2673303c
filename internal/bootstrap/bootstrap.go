package bootstrap

import (
	"context"
	"fmt"
)

// Bootstrap creates all required infrastructure (the Users DynamoDB table)
// If CleanResources is true, deletes existing resources first to ensure clean state
// If CleanResources is false, creates resources only if they don't exist (preserves data)
func Bootstrap(ctx context.Context, cfg Config) (*Resources, error) {
	if cfg.DynamoClient == nil {
		return nil, fmt.Errorf("DynamoClient is required")
	}
	if cfg.Environment == "" {
		cfg.Environment = "dev" // Default environment
	}

	if err := WaitForDynamoDB(ctx, cfg.DynamoClient); err != nil {
		return nil, err
	}

	tableName := cfg.TableName
	if tableName == "" {
		tableName = UsersTableName(cfg.Environment)
	}

	if err := CreateUsersTable(ctx, cfg.DynamoClient, tableName, cfg.CleanResources); err != nil {
		return nil, fmt.Errorf("failed to create DynamoDB tables: %w", err)
	}

	resources := &Resources{}
	resources.TableNames.Users = tableName

	return resources, nil
}

// Cleanup deletes all resources created by Bootstrap
func Cleanup(ctx context.Context, cfg Config, res *Resources) error {
	if err := deleteTableIfExists(ctx, cfg.DynamoClient, res.TableNames.Users); err != nil {
		return fmt.Errorf("failed to delete users table: %w", err)
	}

	return nil
}

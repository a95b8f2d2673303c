package bootstrap

import (
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
)

// Config holds configuration for bootstrapping DynamoDB Local / LocalStack infrastructure
type Config struct {
	// AWS SDK client
	DynamoClient *dynamodb.Client

	// Resource naming
	Environment string // e.g., "dev", "test" - used as prefix for resource names

	// TableName overrides the generated "<env>_users" name when set
	TableName string

	// CleanResources controls whether to delete existing resources before creating
	// Set to false to preserve data across restarts (useful for development with live reload)
	CleanResources bool
}

// Resources holds identifiers for created infrastructure resources
type Resources struct {
	// DynamoDB table names
	TableNames struct {
		Users string
	}
}

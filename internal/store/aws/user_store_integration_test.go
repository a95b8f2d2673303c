//go:build integration

package aws

import (
	"context"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/wolfeidau/mudskipper/internal/bootstrap"
	"github.com/wolfeidau/mudskipper/internal/store"
)

const (
	testDynamoDBEndpoint = "http://localhost:4101"
	testDynamoDBRegion   = "us-east-1"
	testUsersTable       = "test_users_integration"
)

// getDynamoDBClient creates a DynamoDB client for testing
func getDynamoDBClient(t *testing.T, ctx context.Context) *dynamodb.Client {
	cfg, err := config.LoadDefaultConfig(ctx,
		config.WithRegion(testDynamoDBRegion),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider("test", "test", "test")),
	)
	require.NoError(t, err)

	return dynamodb.NewFromConfig(cfg, func(o *dynamodb.Options) {
		o.BaseEndpoint = aws.String(testDynamoDBEndpoint)
	})
}

func setupUsersTable(t *testing.T, ctx context.Context) *UserStore {
	client := getDynamoDBClient(t, ctx)
	require.NoError(t, bootstrap.WaitForDynamoDB(ctx, client))
	require.NoError(t, bootstrap.CreateUsersTable(ctx, client, testUsersTable, true))

	t.Cleanup(func() {
		_, _ = client.DeleteTable(context.Background(), &dynamodb.DeleteTableInput{TableName: aws.String(testUsersTable)})
	})

	return NewUserStore(client, testUsersTable)
}

func TestDynamoDB_UserLifecycle(t *testing.T) {
	ctx := context.Background()
	st := setupUsersTable(t, ctx)

	id := uuid.Must(uuid.NewV7()).String()
	u := newTestUser(id, "a@x.com", 2)
	require.NoError(t, st.Insert(ctx, u))

	got, err := st.FindByEmail(ctx, "A@X.com")
	require.NoError(t, err)
	require.Equal(t, id, got.ID)
	require.Equal(t, 2, got.PermissionLevel)

	later := u.UpdatedAt.Add(time.Minute)
	require.NoError(t, st.UpdatePermission(ctx, id, 5, later))

	got, err = st.FindByEmail(ctx, "a@x.com")
	require.NoError(t, err)
	require.Equal(t, 5, got.PermissionLevel)
	require.True(t, later.Equal(got.UpdatedAt))

	err = st.UpdatePermission(ctx, "missing", 3, time.Now())
	require.ErrorIs(t, err, store.ErrUserNotFound)

	users, err := st.List(ctx)
	require.NoError(t, err)
	require.Len(t, users, 1)
}

package aws

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/rs/zerolog/log"
	"github.com/wolfeidau/mudskipper/internal/models"
	"github.com/wolfeidau/mudskipper/internal/store"
)

var _ store.UserStore = (*UserStore)(nil)

// DynamoDBAPI is the subset of the DynamoDB client used by UserStore.
type DynamoDBAPI interface {
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	UpdateItem(ctx context.Context, params *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error)
	Scan(ctx context.Context, params *dynamodb.ScanInput, optFns ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error)
}

// UserStore is a DynamoDB implementation of store.UserStore
type UserStore struct {
	client    DynamoDBAPI
	tableName string
}

// NewUserStore creates a new DynamoDB user store
func NewUserStore(client DynamoDBAPI, tableName string) *UserStore {
	return &UserStore{
		client:    client,
		tableName: tableName,
	}
}

// Insert writes a new user item
func (s *UserStore) Insert(ctx context.Context, user *models.User) error {
	item, err := attributevalue.MarshalMap(user)
	if err != nil {
		return fmt.Errorf("failed to marshal user: %w", err)
	}

	_, err = s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.tableName),
		Item:      item,
	})
	if err != nil {
		return wrapAWSError(err, "failed to insert user")
	}

	log.Debug().
		Str("id", user.ID).
		Str("email", user.Email).
		Msg("user inserted")

	return nil
}

// UpdatePermission sets permission_level and updated_at, conditional on the item existing
func (s *UserStore) UpdatePermission(ctx context.Context, id string, level int, now time.Time) error {
	update := expression.Set(
		expression.Name("permission_level"),
		expression.Value(level),
	).Set(
		expression.Name("updated_at"),
		expression.Value(now),
	)

	condition := expression.AttributeExists(expression.Name("id"))

	expr, err := expression.NewBuilder().
		WithUpdate(update).
		WithCondition(condition).
		Build()
	if err != nil {
		return fmt.Errorf("failed to build expression: %w", err)
	}

	_, err = s.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                 aws.String(s.tableName),
		Key:                       map[string]types.AttributeValue{"id": &types.AttributeValueMemberS{Value: id}},
		UpdateExpression:          expr.Update(),
		ConditionExpression:       expr.Condition(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
	})
	if err != nil {
		var condErr *types.ConditionalCheckFailedException
		if errors.As(err, &condErr) {
			return store.ErrUserNotFound
		}
		return wrapAWSError(err, "failed to update user permission")
	}

	log.Info().
		Str("id", id).
		Int("permission_level", level).
		Msg("user permission updated")

	return nil
}

// List scans the whole table, following pagination
func (s *UserStore) List(ctx context.Context) ([]*models.User, error) {
	return s.scan(ctx, nil)
}

// FindByEmail scans for a user with a matching lowercased email.
//
// Emails are lowercased at write time, but the comparison is repeated here so
// items written by other tools with mixed case still match.
func (s *UserStore) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	email = models.NormalizeEmail(email)

	users, err := s.scan(ctx, func(u *models.User) bool {
		return models.NormalizeEmail(u.Email) == email
	})
	if err != nil {
		return nil, err
	}

	if len(users) == 0 {
		return nil, store.ErrUserNotFound
	}

	return users[0], nil
}

func (s *UserStore) scan(ctx context.Context, match func(*models.User) bool) ([]*models.User, error) {
	input := &dynamodb.ScanInput{
		TableName: aws.String(s.tableName),
	}

	users := make([]*models.User, 0)
	for {
		result, err := s.client.Scan(ctx, input)
		if err != nil {
			return nil, wrapAWSError(err, "failed to scan users")
		}

		for _, item := range result.Items {
			var user models.User
			if err := attributevalue.UnmarshalMap(item, &user); err != nil {
				log.Error().Err(err).Msg("failed to unmarshal user, skipping")
				continue
			}
			if match != nil && !match(&user) {
				continue
			}
			users = append(users, &user)
		}

		if len(result.LastEvaluatedKey) == 0 {
			break
		}
		input.ExclusiveStartKey = result.LastEvaluatedKey
	}

	return users, nil
}

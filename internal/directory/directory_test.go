package directory

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider"
	"github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider/types"
	"github.com/stretchr/testify/require"
)

type fakeCognito struct {
	input *cognitoidentityprovider.AdminCreateUserInput
	err   error
}

func (f *fakeCognito) AdminCreateUser(ctx context.Context, params *cognitoidentityprovider.AdminCreateUserInput, optFns ...func(*cognitoidentityprovider.Options)) (*cognitoidentityprovider.AdminCreateUserOutput, error) {
	f.input = params
	if f.err != nil {
		return nil, f.err
	}
	return &cognitoidentityprovider.AdminCreateUserOutput{}, nil
}

func attributeMap(attrs []types.AttributeType) map[string]string {
	out := make(map[string]string, len(attrs))
	for _, a := range attrs {
		out[aws.ToString(a.Name)] = aws.ToString(a.Value)
	}
	return out
}

func TestCognito_EnsureAccount(t *testing.T) {
	t.Run("creates account with attributes", func(t *testing.T) {
		client := &fakeCognito{}
		dir := NewCognito(client, "eu-north-1_pool")

		created, err := dir.EnsureAccount(context.Background(), "A@x.com", Attributes{GivenName: "Ada", FamilyName: "Lovelace"})
		require.NoError(t, err)
		require.True(t, created)

		require.Equal(t, "eu-north-1_pool", aws.ToString(client.input.UserPoolId))
		require.Equal(t, "A@x.com", aws.ToString(client.input.Username))
		require.Equal(t, map[string]string{
			"email":          "A@x.com",
			"email_verified": "true",
			"given_name":     "Ada",
			"family_name":    "Lovelace",
		}, attributeMap(client.input.UserAttributes))
	})

	t.Run("omits empty names", func(t *testing.T) {
		client := &fakeCognito{}
		dir := NewCognito(client, "pool")

		_, err := dir.EnsureAccount(context.Background(), "a@x.com", Attributes{})
		require.NoError(t, err)

		attrs := attributeMap(client.input.UserAttributes)
		require.Len(t, attrs, 2)
		require.NotContains(t, attrs, "given_name")
		require.NotContains(t, attrs, "family_name")
	})

	t.Run("already exists is success", func(t *testing.T) {
		client := &fakeCognito{err: &types.UsernameExistsException{Message: aws.String("exists")}}
		dir := NewCognito(client, "pool")

		created, err := dir.EnsureAccount(context.Background(), "a@x.com", Attributes{})
		require.NoError(t, err)
		require.False(t, created)
	})

	t.Run("other errors propagate", func(t *testing.T) {
		cause := &types.InvalidParameterException{Message: aws.String("bad")}
		client := &fakeCognito{err: cause}
		dir := NewCognito(client, "pool")

		created, err := dir.EnsureAccount(context.Background(), "a@x.com", Attributes{})
		require.False(t, created)
		require.ErrorIs(t, err, ErrDirectory)

		var invalid *types.InvalidParameterException
		require.True(t, errors.As(err, &invalid))
	})
}

func TestMemory_EnsureAccount(t *testing.T) {
	dir := NewMemory()
	ctx := context.Background()

	created, err := dir.EnsureAccount(ctx, "a@x.com", Attributes{GivenName: "Ada"})
	require.NoError(t, err)
	require.True(t, created)

	created, err = dir.EnsureAccount(ctx, "a@x.com", Attributes{GivenName: "Other"})
	require.NoError(t, err)
	require.False(t, created)

	attrs, ok := dir.Account("a@x.com")
	require.True(t, ok)
	require.Equal(t, "Ada", attrs.GivenName)
}

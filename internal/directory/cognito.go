package directory

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider"
	"github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider/types"
	"github.com/rs/zerolog/log"
)

var _ Directory = (*Cognito)(nil)

// CognitoAPI is the subset of the Cognito client used by Cognito.
type CognitoAPI interface {
	AdminCreateUser(ctx context.Context, params *cognitoidentityprovider.AdminCreateUserInput, optFns ...func(*cognitoidentityprovider.Options)) (*cognitoidentityprovider.AdminCreateUserOutput, error)
}

// Cognito creates accounts in a Cognito user pool.
type Cognito struct {
	client     CognitoAPI
	userPoolID string
}

// NewCognito creates a directory backed by the given user pool.
func NewCognito(client CognitoAPI, userPoolID string) *Cognito {
	return &Cognito{
		client:     client,
		userPoolID: userPoolID,
	}
}

// EnsureAccount calls AdminCreateUser, treating UsernameExistsException as success.
// The email is marked verified so the invite message can be delivered immediately.
func (c *Cognito) EnsureAccount(ctx context.Context, email string, attrs Attributes) (bool, error) {
	_, err := c.client.AdminCreateUser(ctx, &cognitoidentityprovider.AdminCreateUserInput{
		UserPoolId:     aws.String(c.userPoolID),
		Username:       aws.String(email),
		UserAttributes: userAttributes(email, attrs),
	})
	if err != nil {
		var exists *types.UsernameExistsException
		if errors.As(err, &exists) {
			log.Debug().Str("email", email).Msg("directory account already exists")
			return false, nil
		}
		return false, fmt.Errorf("%w: admin create user: %w", ErrDirectory, err)
	}

	log.Info().Str("email", email).Msg("directory account created")

	return true, nil
}

func userAttributes(email string, attrs Attributes) []types.AttributeType {
	out := []types.AttributeType{
		{Name: aws.String("email"), Value: aws.String(email)},
		{Name: aws.String("email_verified"), Value: aws.String("true")},
	}
	if attrs.GivenName != "" {
		out = append(out, types.AttributeType{Name: aws.String("given_name"), Value: aws.String(attrs.GivenName)})
	}
	if attrs.FamilyName != "" {
		out = append(out, types.AttributeType{Name: aws.String("family_name"), Value: aws.String(attrs.FamilyName)})
	}
	return out
}

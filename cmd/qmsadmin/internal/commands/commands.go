package commands

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"

	"github.com/wolfeidau/mudskipper/internal/api"
	"github.com/wolfeidau/mudskipper/internal/auth"
	"github.com/wolfeidau/mudskipper/internal/client"
	"github.com/wolfeidau/mudskipper/internal/directory"
	"github.com/wolfeidau/mudskipper/internal/store"
	awsstore "github.com/wolfeidau/mudskipper/internal/store/aws"
	memorystore "github.com/wolfeidau/mudskipper/internal/store/memory"
	postgresstore "github.com/wolfeidau/mudskipper/internal/store/postgres"
	"github.com/wolfeidau/mudskipper/internal/users"
)

type Globals struct {
	Debug   bool
	Version string
}

func configureHTTPServer(addr string, handler http.Handler) *http.Server {
	// Create HTTP server
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       5 * time.Minute,
		MaxHeaderBytes:    8 * 1024, // 8KiB
	}
}

// AWSFlags configures the AWS SDK clients.
type AWSFlags struct {
	Region              string `help:"AWS region" env:"AWS_REGION"`
	DynamoDBEndpointURL string `help:"DynamoDB endpoint override (DynamoDB Local, LocalStack)" env:"MUDSKIPPER_DYNAMODB_ENDPOINT"`
	CognitoEndpointURL  string `help:"Cognito endpoint override (LocalStack)" env:"MUDSKIPPER_COGNITO_ENDPOINT"`
	Local               bool   `help:"use static test credentials for local emulators" default:"false" env:"MUDSKIPPER_AWS_LOCAL"`
}

func (a *AWSFlags) load(ctx context.Context) (aws.Config, error) {
	opts := []func(*config.LoadOptions) error{}
	if a.Region != "" {
		opts = append(opts, config.WithRegion(a.Region))
	}
	if a.Local {
		if a.Region == "" {
			opts = append(opts, config.WithRegion("us-east-1"))
		}
		opts = append(opts, config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider("test", "test", "test")))
	}

	awsConfig, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return aws.Config{}, fmt.Errorf("failed to load AWS config: %w", err)
	}
	return awsConfig, nil
}

func (a *AWSFlags) dynamoClient(awsConfig aws.Config) *dynamodb.Client {
	dynamoClientOpts := []func(*dynamodb.Options){}
	if a.DynamoDBEndpointURL != "" {
		dynamoClientOpts = append(dynamoClientOpts, func(o *dynamodb.Options) {
			o.BaseEndpoint = aws.String(a.DynamoDBEndpointURL)
		})
	}
	return dynamodb.NewFromConfig(awsConfig, dynamoClientOpts...)
}

func (a *AWSFlags) cognitoClient(awsConfig aws.Config) *cognitoidentityprovider.Client {
	cognitoClientOpts := []func(*cognitoidentityprovider.Options){}
	if a.CognitoEndpointURL != "" {
		cognitoClientOpts = append(cognitoClientOpts, func(o *cognitoidentityprovider.Options) {
			o.BaseEndpoint = aws.String(a.CognitoEndpointURL)
		})
	}
	return cognitoidentityprovider.NewFromConfig(awsConfig, cognitoClientOpts...)
}

type PostgresStoreFlags struct {
	// Connection Configuration
	ConnString string `help:"PostgreSQL connection string" env:"POSTGRES_CONNECTION_STRING"`

	// Connection Pool Configuration
	MaxConns        int32         `help:"maximum number of connections in pool" default:"10"`
	MinConns        int32         `help:"minimum number of connections in pool" default:"1"`
	MaxConnLifetime time.Duration `help:"maximum connection lifetime" default:"1h"`
	MaxConnIdleTime time.Duration `help:"maximum connection idle time" default:"30m"`

	// Migration Configuration
	AutoMigrate bool `help:"run database migrations on startup" default:"false" env:"MUDSKIPPER_POSTGRES_AUTO_MIGRATE"`
}

func (s *PostgresStoreFlags) validate() error {
	if s.ConnString == "" {
		return errors.New("PostgreSQL connection string is required (--postgres-conn-string or POSTGRES_CONNECTION_STRING)")
	}
	return nil
}

func (s *PostgresStoreFlags) pool(ctx context.Context) (*pgxpool.Pool, error) {
	if err := s.validate(); err != nil {
		return nil, fmt.Errorf("failed to validate postgres flags: %w", err)
	}

	pool, err := postgresstore.NewPool(ctx, &postgresstore.PoolConfig{
		ConnString:      s.ConnString,
		MaxConns:        s.MaxConns,
		MinConns:        s.MinConns,
		MaxConnLifetime: s.MaxConnLifetime,
		MaxConnIdleTime: s.MaxConnIdleTime,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}
	return pool, nil
}

// WorkflowFlags are shared by every command that runs the user workflows.
type WorkflowFlags struct {
	// Names kept from the Amplify functions so existing deployments keep working
	UserPoolID string `help:"Cognito user pool id" env:"USER_POOL_ID"`
	UsersTable string `help:"users table name" env:"TABLE_USERS"`

	StoreType     string             `help:"store type (memory, aws, or postgres)" default:"aws" env:"MUDSKIPPER_STORE_TYPE" enum:"memory,aws,postgres"`
	DirectoryType string             `help:"directory type (memory or cognito)" default:"cognito" env:"MUDSKIPPER_DIRECTORY_TYPE" enum:"memory,cognito"`
	AWS           AWSFlags           `embed:"" prefix:"aws-"`
	PostgresStore PostgresStoreFlags `embed:"" prefix:"postgres-"`

	// Authentication and authorization
	NoAuth       bool          `help:"disable authentication, callers are taken from invitedBy/updatedBy (development only)" default:"false" env:"MUDSKIPPER_NO_AUTH"`
	NoEnforce    bool          `help:"skip the super-admin check on workflows (bootstrapping only)" default:"false" env:"MUDSKIPPER_NO_ENFORCE"`
	AuthIssuer   string        `help:"token issuer, defaults to the Cognito user pool issuer" env:"MUDSKIPPER_AUTH_ISSUER"`
	AuthClientID string        `help:"expected audience (user pool app client id)" env:"MUDSKIPPER_AUTH_CLIENT_ID"`
	JWKSCacheDir string        `help:"directory for caching JWKS responses, in memory when empty" env:"MUDSKIPPER_JWKS_CACHE_DIR"`
	JWKSTTL      time.Duration `help:"how long signing keys are held in memory" default:"1h"`
}

// app holds the wired dependencies for one process.
type app struct {
	handler http.Handler
	close   func()
}

// buildApp constructs the store, directory and service once and returns the
// HTTP handler exposing them.
func (w *WorkflowFlags) buildApp(ctx context.Context) (*app, error) {
	var (
		awsConfig aws.Config
		err       error
	)
	if w.StoreType == "aws" || w.DirectoryType == "cognito" || !w.NoAuth {
		awsConfig, err = w.AWS.load(ctx)
		if err != nil {
			return nil, err
		}
	}

	userStore, closeStore, err := w.createStore(ctx, awsConfig)
	if err != nil {
		return nil, err
	}

	dir := w.createDirectory(awsConfig)

	svc := users.NewService(users.Config{
		UserPoolID: w.UserPoolID,
		UsersTable: w.UsersTable,
		Enforce:    !w.NoEnforce,
	}, userStore, dir)

	if w.NoEnforce {
		log.Warn().Msg("Super-admin enforcement is disabled (--no-enforce). Any caller may manage users!")
	}

	var authMiddleware func(http.Handler) http.Handler
	if w.NoAuth {
		log.Warn().Msg("Authentication is disabled (--no-auth). This should only be used in development!")
	} else {
		issuer := w.AuthIssuer
		if issuer == "" {
			if w.UserPoolID == "" || awsConfig.Region == "" {
				closeStore()
				return nil, errors.New("an auth issuer, or a user pool id and region, is required unless --no-auth is set")
			}
			issuer = auth.CognitoIssuer(awsConfig.Region, w.UserPoolID)
		}

		keys := auth.NewKeyCache(client.NewCachingHTTPClient(w.JWKSCacheDir, 10*time.Second), w.JWKSTTL)
		authMiddleware = auth.NewVerifier(issuer, w.AuthClientID, keys).Middleware()

		log.Info().Str("issuer", issuer).Msg("Token authentication enabled")
	}

	handlers := api.NewHandlers(svc, w.NoAuth)

	return &app{
		handler: handlers.Routes(authMiddleware),
		close:   closeStore,
	}, nil
}

func (w *WorkflowFlags) createStore(ctx context.Context, awsConfig aws.Config) (store.UserStore, func(), error) {
	switch w.StoreType {
	case "aws":
		if w.UsersTable == "" {
			// Reported per request so the handlers keep their misconfiguration response.
			log.Warn().Msg("TABLE_USERS is not set")
		}
		log.Info().Str("table", w.UsersTable).Msg("Using DynamoDB user store")
		return awsstore.NewUserStore(w.AWS.dynamoClient(awsConfig), w.UsersTable), func() {}, nil

	case "postgres":
		pool, err := w.PostgresStore.pool(ctx)
		if err != nil {
			return nil, nil, err
		}

		if w.PostgresStore.AutoMigrate {
			if err := postgresstore.RunMigrations(ctx, pool); err != nil {
				pool.Close()
				return nil, nil, fmt.Errorf("failed to run migrations: %w", err)
			}
			log.Info().Msg("Database migrations completed")
		}

		log.Info().Msg("Using PostgreSQL user store")
		return postgresstore.NewUserStore(pool), pool.Close, nil

	default:
		log.Info().Msg("Using in-memory user store")
		return memorystore.NewUserStore(), func() {}, nil
	}
}

func (w *WorkflowFlags) createDirectory(awsConfig aws.Config) directory.Directory {
	if w.DirectoryType == "memory" {
		log.Info().Msg("Using in-memory directory")
		return directory.NewMemory()
	}

	log.Info().Str("user_pool_id", w.UserPoolID).Msg("Using Cognito directory")
	return directory.NewCognito(w.AWS.cognitoClient(awsConfig), w.UserPoolID)
}

package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/wolfeidau/mudskipper/internal/bootstrap"
	"github.com/wolfeidau/mudskipper/internal/store"
	awsstore "github.com/wolfeidau/mudskipper/internal/store/aws"
	postgresstore "github.com/wolfeidau/mudskipper/internal/store/postgres"
)

// BootstrapCmd prepares the users table and optionally seeds super-admins so the
// gate has someone to grant access to.
type BootstrapCmd struct {
	StoreType   string `help:"store type (aws or postgres)" default:"aws" env:"MUDSKIPPER_STORE_TYPE" enum:"aws,postgres"`
	Environment string `help:"environment name, used for the default table name" default:"dev" env:"MUDSKIPPER_ENVIRONMENT"`
	UsersTable  string `help:"users table name, defaults to <environment>_users" env:"TABLE_USERS"`
	Clean       bool   `help:"delete the existing table first (deletes all data)" default:"false"`
	SeedFile    string `help:"YAML file of users to create" type:"existingfile" env:"MUDSKIPPER_SEED_FILE"`

	AWS           AWSFlags           `embed:"" prefix:"aws-"`
	PostgresStore PostgresStoreFlags `embed:"" prefix:"postgres-"`
}

// Run executes the bootstrap command
func (cmd *BootstrapCmd) Run(ctx context.Context, globals *Globals) error {
	log.Info().
		Str("store_type", cmd.StoreType).
		Str("environment", cmd.Environment).
		Msg("Starting bootstrap")

	var seed *bootstrap.SeedFile
	if cmd.SeedFile != "" {
		var err error
		seed, err = bootstrap.LoadSeedFile(cmd.SeedFile)
		if err != nil {
			return err
		}
	}

	userStore, closeStore, err := cmd.prepareStore(ctx)
	if err != nil {
		return err
	}
	defer closeStore()

	if seed == nil {
		log.Info().Msg("No seed file supplied, bootstrap complete")
		return nil
	}

	created, err := bootstrap.SeedUsers(ctx, userStore, seed, time.Now().UTC())
	if err != nil {
		return err
	}

	log.Info().Int("created", created).Int("total", len(seed.Users)).Msg("Bootstrap complete")
	return nil
}

func (cmd *BootstrapCmd) prepareStore(ctx context.Context) (store.UserStore, func(), error) {
	switch cmd.StoreType {
	case "postgres":
		pool, err := cmd.PostgresStore.pool(ctx)
		if err != nil {
			return nil, nil, err
		}
		if err := postgresstore.RunMigrations(ctx, pool); err != nil {
			pool.Close()
			return nil, nil, fmt.Errorf("failed to run migrations: %w", err)
		}
		log.Info().Msg("Database migrations completed")
		return postgresstore.NewUserStore(pool), pool.Close, nil

	default:
		awsConfig, err := cmd.AWS.load(ctx)
		if err != nil {
			return nil, nil, err
		}
		dynamoClient := cmd.AWS.dynamoClient(awsConfig)

		resources, err := bootstrap.Bootstrap(ctx, bootstrap.Config{
			DynamoClient:   dynamoClient,
			Environment:    cmd.Environment,
			TableName:      cmd.UsersTable,
			CleanResources: cmd.Clean,
		})
		if err != nil {
			return nil, nil, err
		}

		log.Info().Str("table", resources.TableNames.Users).Msg("Users table ready")
		return awsstore.NewUserStore(dynamoClient, resources.TableNames.Users), func() {}, nil
	}
}

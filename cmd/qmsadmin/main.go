package main

import (
	"context"
	"errors"
	"io/fs"
	"os"

	"github.com/alecthomas/kong"
	"github.com/joho/godotenv"
	"github.com/wolfeidau/mudskipper/cmd/qmsadmin/internal/commands"
)

var (
	version = "dev"
	cli     struct {
		Serve     commands.ServeCmd     `cmd:"" help:"Serve the admin API over HTTP"`
		Lambda    commands.LambdaCmd    `cmd:"" help:"Run one workflow as a Lambda function URL handler"`
		Bootstrap commands.BootstrapCmd `cmd:"" help:"Create the users table and seed initial administrators"`
		Debug     bool                  `help:"Enable debug mode."`
		Version   kong.VersionFlag
	}
)

func main() {
	// .env is optional, real environment variables take precedence
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		_, _ = os.Stderr.WriteString("failed to load .env: " + err.Error() + "\n")
		os.Exit(1)
	}

	ctx := context.Background()
	cmd := kong.Parse(&cli,
		kong.Vars{
			"version": version,
		},
		kong.BindTo(ctx, (*context.Context)(nil)))
	err := cmd.Run(&commands.Globals{Debug: cli.Debug, Version: version})
	cmd.FatalIfErrorf(err)
}

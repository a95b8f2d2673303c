package commands

import (
	"context"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/rs/zerolog"

	"github.com/wolfeidau/mudskipper/internal/api"
	httpmiddleware "github.com/wolfeidau/mudskipper/internal/http"
	"github.com/wolfeidau/mudskipper/internal/logger"
)

// handlerPaths maps Lambda handler names to routes.
var handlerPaths = map[string]string{
	"invite":            "/invite",
	"update-permission": "/update-permission",
}

type LambdaCmd struct {
	Handler string `help:"workflow served by this function" enum:"invite,update-permission" required:"" env:"MUDSKIPPER_LAMBDA_HANDLER"`

	Workflow WorkflowFlags `embed:""`
}

func (c *LambdaCmd) Run(ctx context.Context, globals *Globals) error {
	log := logger.Setup(globals.Debug)
	zerolog.DefaultContextLogger = &log

	log.Info().Str("version", globals.Version).Str("handler", c.Handler).Msg("Starting Lambda handler")

	// Built once per cold start and reused across invocations.
	a, err := c.Workflow.buildApp(log.WithContext(ctx))
	if err != nil {
		return err
	}
	defer a.close()

	handler := httpmiddleware.Chain(a.handler,
		logger.Requests(log),
		httpmiddleware.RecoverMiddleware(),
		httpmiddleware.ClientIPMiddleware(),
	)

	lambda.StartWithOptions(api.NewLambdaHandler(handler, handlerPaths[c.Handler]).Invoke, lambda.WithContext(ctx))

	return nil
}

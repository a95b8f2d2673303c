package commands

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/rs/cors"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/wolfeidau/mudskipper/internal/certs"
	httpmiddleware "github.com/wolfeidau/mudskipper/internal/http"
	"github.com/wolfeidau/mudskipper/internal/logger"
	"github.com/wolfeidau/mudskipper/internal/telemetry"
)

type ServeCmd struct {
	// Server configuration
	Listen  string `help:"HTTP server listen address" default:"0.0.0.0:8080" env:"MUDSKIPPER_LISTEN"`
	Cert    string `help:"path to TLS cert file" default:"" env:"MUDSKIPPER_TLS_CERT"`
	Key     string `help:"path to TLS key file" default:"" env:"MUDSKIPPER_TLS_KEY"`
	CertSSM string `help:"SSM parameter holding the TLS cert" default:"" env:"MUDSKIPPER_TLS_CERT_SSM"`
	KeySSM  string `help:"SSM parameter holding the TLS key" default:"" env:"MUDSKIPPER_TLS_KEY_SSM"`

	// CORS configuration
	CORSOrigins []string `help:"allowed CORS origins for the admin UI" default:"http://localhost:5173" env:"MUDSKIPPER_CORS_ORIGINS"`

	// Telemetry
	Tracing     bool    `help:"enable tracing and metrics export" default:"false" env:"MUDSKIPPER_TRACING"`
	SampleRatio float64 `help:"fraction of traces to sample" default:"1" env:"MUDSKIPPER_TRACE_SAMPLE_RATIO"`

	Workflow WorkflowFlags `embed:""`
}

func (c *ServeCmd) certConfig() certs.Config {
	return certs.Config{
		ServerCertPath: c.Cert,
		ServerKeyPath:  c.Key,
		ServerCertSSM:  c.CertSSM,
		ServerKeySSM:   c.KeySSM,
	}
}

func (c *ServeCmd) Validate() error {
	return c.certConfig().Validate()
}

// tlsConfig returns nil when TLS is not configured.
func (c *ServeCmd) tlsConfig(ctx context.Context) (*tls.Config, error) {
	cfg := c.certConfig()
	if !cfg.Enabled() {
		return nil, nil
	}

	var client certs.SSMAPI
	if cfg.ServerCertSSM != "" {
		awsConfig, err := c.Workflow.AWS.load(ctx)
		if err != nil {
			return nil, err
		}
		client = ssm.NewFromConfig(awsConfig)
	}

	loaded, err := certs.Load(ctx, client, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to load TLS certificates: %w", err)
	}
	return loaded.TLSConfig()
}

func (c *ServeCmd) Run(globals *Globals) error {
	log := logger.Setup(globals.Debug)
	zerolog.DefaultContextLogger = &log
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Info().Str("version", globals.Version).Bool("debug", globals.Debug).Msg("Starting server")

	if c.Tracing {
		log.Info().Msg("Tracing is enabled")
		shutdown, err := telemetry.InitTelemetry(ctx, telemetry.Config{
			ServiceName: "mudskipper-qmsadmin",
			Version:     globals.Version,
			SampleRatio: c.SampleRatio,
		})
		if err != nil {
			log.Warn().Err(err).Msg("Failed to initialize telemetry, continuing without metrics")
			shutdown = func(ctx context.Context) error { return nil }
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := shutdown(shutdownCtx); err != nil {
				log.Error().Err(err).Msg("Failed to shutdown telemetry")
			}
		}()
	}

	a, err := c.Workflow.buildApp(log.WithContext(ctx))
	if err != nil {
		return err
	}
	defer a.close()

	var handler http.Handler = httpmiddleware.Chain(a.handler,
		logger.Requests(log),
		httpmiddleware.RecoverMiddleware(),
		httpmiddleware.ClientIPMiddleware(),
	)
	handler = withCORS(c.CORSOrigins, handler)
	if c.Tracing {
		handler = otelhttp.NewHandler(handler, "qmsadmin")
	}

	tlsConfig, err := c.tlsConfig(ctx)
	if err != nil {
		return err
	}

	srv := configureHTTPServer(c.Listen, handler)
	srv.TLSConfig = tlsConfig

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", c.Listen).Bool("tls", tlsConfig != nil).Bool("auth", !c.Workflow.NoAuth).Msg("Starting HTTP server")
		if tlsConfig != nil {
			errCh <- srv.ListenAndServeTLS("", "")
			return
		}
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("http server failed: %w", err)
	case <-ctx.Done():
	}

	log.Info().Msg("Shutting down HTTP server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	return srv.Shutdown(shutdownCtx)
}

// withCORS allows the admin UI origin to call the JSON endpoints with a bearer token.
func withCORS(allowedOrigins []string, h http.Handler) http.Handler {
	middleware := cors.New(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost},
		AllowedHeaders: []string{"Authorization", "Content-Type"},
		ExposedHeaders: []string{"X-Request-Id"},
	})
	return middleware.Handler(h)
}

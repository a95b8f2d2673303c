package certs

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"os"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
)

// SSMAPI is the subset of the SSM client used to read certificate parameters.
type SSMAPI interface {
	GetParameter(ctx context.Context, params *ssm.GetParameterInput, optFns ...func(*ssm.Options)) (*ssm.GetParameterOutput, error)
}

// Certificates holds the server key pair in memory
type Certificates struct {
	ServerCert []byte
	ServerKey  []byte
}

// Config for loading certificates
type Config struct {
	// File paths (for local development)
	ServerCertPath string
	ServerKeyPath  string

	// SSM parameter names (for production), take precedence over files
	ServerCertSSM string
	ServerKeySSM  string
}

// Enabled reports whether any certificate source is configured.
func (c Config) Enabled() bool {
	return c.ServerCertPath != "" || c.ServerCertSSM != ""
}

// Validate checks that each source is configured as a complete pair.
func (c Config) Validate() error {
	if (c.ServerCertPath == "") != (c.ServerKeyPath == "") {
		return errors.New("certificate and key files must be supplied together")
	}
	if (c.ServerCertSSM == "") != (c.ServerKeySSM == "") {
		return errors.New("certificate and key SSM parameters must be supplied together")
	}
	return nil
}

// Load loads certificates from either SSM or files. client is only used for SSM.
func Load(ctx context.Context, client SSMAPI, cfg Config) (*Certificates, error) {
	if cfg.ServerCertSSM != "" {
		if client == nil {
			return nil, errors.New("SSM client is required to load certificates from SSM")
		}
		return loadFromSSM(ctx, client, cfg)
	}

	return loadFromFiles(cfg)
}

// loadFromSSM loads certificates from AWS SSM Parameter Store
func loadFromSSM(ctx context.Context, client SSMAPI, cfg Config) (*Certificates, error) {
	serverCert, err := getParameter(ctx, client, cfg.ServerCertSSM)
	if err != nil {
		return nil, fmt.Errorf("failed to load server cert from SSM: %w", err)
	}

	serverKey, err := getParameter(ctx, client, cfg.ServerKeySSM)
	if err != nil {
		return nil, fmt.Errorf("failed to load server key from SSM: %w", err)
	}

	return &Certificates{ServerCert: []byte(serverCert), ServerKey: []byte(serverKey)}, nil
}

// loadFromFiles loads certificates from file paths
func loadFromFiles(cfg Config) (*Certificates, error) {
	serverCert, err := os.ReadFile(cfg.ServerCertPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read server cert: %w", err)
	}

	serverKey, err := os.ReadFile(cfg.ServerKeyPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read server key: %w", err)
	}

	return &Certificates{ServerCert: serverCert, ServerKey: serverKey}, nil
}

// getParameter fetches a decrypted parameter from SSM
func getParameter(ctx context.Context, client SSMAPI, name string) (string, error) {
	output, err := client.GetParameter(ctx, &ssm.GetParameterInput{
		Name:           aws.String(name),
		WithDecryption: aws.Bool(true),
	})
	if err != nil {
		return "", err
	}
	if output.Parameter == nil || output.Parameter.Value == nil {
		return "", fmt.Errorf("parameter %s has no value", name)
	}
	return *output.Parameter.Value, nil
}

// TLSConfig creates a server tls.Config. Browsers authenticate with bearer
// tokens so client certificates are not requested.
func (c *Certificates) TLSConfig() (*tls.Config, error) {
	serverCert, err := tls.X509KeyPair(c.ServerCert, c.ServerKey)
	if err != nil {
		return nil, fmt.Errorf("failed to parse server certificate: %w", err)
	}

	return &tls.Config{
		Certificates: []tls.Certificate{serverCert},
		MinVersion:   tls.VersionTLS12,
	}, nil
}

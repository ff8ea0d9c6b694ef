// Package awsutil builds AWS SDK configuration for an integration.
package awsutil

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"

	"github.com/kiranshivaraju/lambdapulse/internal/secrets"
	"github.com/kiranshivaraju/lambdapulse/pkg/models"
)

// ConfigFor returns an AWS config in the integration's region. Sealed
// access keys on the integration are opened with box and used as static
// credentials; without them the default credential chain applies.
// A non-empty endpoint overrides the service endpoint (LocalStack).
func ConfigFor(ctx context.Context, box *secrets.Box, endpoint string, in *models.Integration) (aws.Config, error) {
	opts := []func(*config.LoadOptions) error{config.WithRegion(in.Region)}

	if in.AccessKeySealed != "" && in.SecretKeySealed != "" {
		accessKey, err := box.Open(in.AccessKeySealed)
		if err != nil {
			return aws.Config{}, fmt.Errorf("opening access key: %w", err)
		}
		secretKey, err := box.Open(in.SecretKeySealed)
		if err != nil {
			return aws.Config{}, fmt.Errorf("opening secret key: %w", err)
		}
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(accessKey, secretKey, ""),
		))
	}

	cfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return aws.Config{}, fmt.Errorf("failed to load AWS config: %w", err)
	}
	if endpoint != "" {
		cfg.BaseEndpoint = aws.String(endpoint)
	}
	return cfg, nil
}

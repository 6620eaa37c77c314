package mainconfig

import (
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"

	appconfig "github.com/ikjoobang/xivix-ai-core-sub000/internal/config"
	"github.com/ikjoobang/xivix-ai-core-sub000/internal/notify"
)

// r2Region is the signing region Cloudflare R2 expects.
const r2Region = "auto"

// LoadAWSConfig centralizes AWS SDK initialization so every binary shares the
// same credential wiring.
func LoadAWSConfig(ctx context.Context, cfg *appconfig.Config) (aws.Config, error) {
	loaders := []func(*config.LoadOptions) error{config.WithRegion(cfg.AWSRegion)}
	if strings.TrimSpace(cfg.AWSAccessKeyID) != "" && strings.TrimSpace(cfg.AWSSecretAccessKey) != "" {
		loaders = append(loaders, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AWSAccessKeyID, cfg.AWSSecretAccessKey, ""),
		))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, loaders...)
	if err != nil {
		return aws.Config{}, err
	}
	return awsCfg, nil
}

// NewR2Client returns an S3 client pointed at Cloudflare R2, or nil when R2
// is not configured.
func NewR2Client(ctx context.Context, cfg *appconfig.Config) (*s3.Client, error) {
	endpoint := cfg.R2Endpoint()
	if endpoint == "" || cfg.R2Bucket == "" {
		return nil, nil
	}
	if cfg.R2AccessKeyID == "" || cfg.R2SecretAccessKey == "" {
		return nil, fmt.Errorf("mainconfig: R2 credentials are required when R2_BUCKET is set")
	}

	awsCfg, err := config.LoadDefaultConfig(ctx,
		config.WithRegion(r2Region),
		config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.R2AccessKeyID, cfg.R2SecretAccessKey, ""),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("mainconfig: load r2 config: %w", err)
	}
	return s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(endpoint)
		o.UsePathStyle = true
	}), nil
}

// NewSESClient returns an SES client when the email provider is "ses", and a
// nil interface otherwise.
func NewSESClient(ctx context.Context, cfg *appconfig.Config) (notify.SESAPI, error) {
	if cfg.EmailProvider != "ses" {
		return nil, nil
	}
	awsCfg, err := LoadAWSConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("mainconfig: load aws config: %w", err)
	}
	return sesv2.NewFromConfig(awsCfg), nil
}

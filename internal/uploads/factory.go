package uploads

import (
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rs/zerolog/log"

	"github.com/luckyjohnb/rfpo-application-sub000/internal/config"
	"github.com/luckyjohnb/rfpo-application-sub000/internal/uploads/drivers"
)

// NewStorageFromConfig builds the attachment store selected by STORAGE_TYPE.
func NewStorageFromConfig(ctx context.Context, cfg config.StorageConfig) (StorageDriver, error) {
	switch cfg.Type {
	case "local":
		log.Info().Str("dir", cfg.LocalBaseDir).Str("public_url", cfg.LocalPublicURL).
			Msg("attachments stored on local disk")
		return drivers.NewLocalFSDriver(cfg.LocalBaseDir, cfg.LocalPublicURL)
	case "s3":
		client, err := newS3Client(ctx, cfg)
		if err != nil {
			return nil, err
		}
		log.Info().Str("endpoint", cfg.S3Endpoint).Str("bucket", cfg.S3Bucket).Str("prefix", cfg.S3Prefix).
			Msg("attachments stored in S3")
		return drivers.NewS3Driver(client, cfg.S3Bucket, cfg.S3Prefix, cfg.S3PublicURL), nil
	default:
		return nil, fmt.Errorf("unsupported storage type %q", cfg.Type)
	}
}

// newS3Client uses static credentials when both keys are configured and the default AWS
// credential chain otherwise. Path-style addressing keeps MinIO endpoints working.
func newS3Client(ctx context.Context, cfg config.StorageConfig) (*s3.Client, error) {
	loadOpts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(cfg.S3Region)}
	if cfg.S3AccessKey != "" && cfg.S3SecretKey != "" {
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.S3AccessKey, cfg.S3SecretKey, ""),
		))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	endpoint := s3Endpoint(cfg)
	return s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
		}
		o.UsePathStyle = true
	}), nil
}

// s3Endpoint adds a scheme to bare host:port endpoints such as MinIO's.
func s3Endpoint(cfg config.StorageConfig) string {
	if cfg.S3Endpoint == "" || strings.Contains(cfg.S3Endpoint, "://") {
		return cfg.S3Endpoint
	}
	if cfg.S3UseSSL {
		return "https://" + cfg.S3Endpoint
	}
	return "http://" + cfg.S3Endpoint
}

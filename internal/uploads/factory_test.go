package uploads

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/luckyjohnb/rfpo-application-sub000/internal/config"
	"github.com/luckyjohnb/rfpo-application-sub000/internal/uploads/drivers"
)

func TestNewStorageFromConfig(t *testing.T) {
	ctx := context.Background()

	driver, err := NewStorageFromConfig(ctx, config.StorageConfig{Type: "local", LocalBaseDir: t.TempDir(), LocalPublicURL: "/api/v1/uploads"})
	require.NoError(t, err)
	assert.IsType(t, &drivers.LocalFSDriver{}, driver)

	driver, err = NewStorageFromConfig(ctx, config.StorageConfig{
		Type:        "s3",
		S3Endpoint:  "localhost:9000",
		S3Bucket:    "rfpo",
		S3Region:    "us-east-1",
		S3AccessKey: "minio",
		S3SecretKey: "minio-secret",
	})
	require.NoError(t, err)
	assert.IsType(t, &drivers.S3Driver{}, driver)

	_, err = NewStorageFromConfig(ctx, config.StorageConfig{Type: "ftp"})
	assert.Error(t, err)
}

func TestS3Endpoint(t *testing.T) {
	assert.Equal(t, "", s3Endpoint(config.StorageConfig{}))
	assert.Equal(t, "http://minio:9000", s3Endpoint(config.StorageConfig{S3Endpoint: "minio:9000"}))
	assert.Equal(t, "https://minio:9000", s3Endpoint(config.StorageConfig{S3Endpoint: "minio:9000", S3UseSSL: true}))
	assert.Equal(t, "https://s3.example.org", s3Endpoint(config.StorageConfig{S3Endpoint: "https://s3.example.org"}))
}

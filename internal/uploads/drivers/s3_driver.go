package drivers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

const defaultPresignTTL = time.Hour

// S3Driver keeps attachments in an S3-compatible bucket, optionally under a key prefix so the
// bucket can be shared with other data.
type S3Driver struct {
	client    *s3.Client
	presigner *s3.PresignClient
	bucket    string
	prefix    string
	publicURL string // links are public rather than presigned when set
}

func NewS3Driver(client *s3.Client, bucket, prefix, publicURL string) *S3Driver {
	return &S3Driver{
		client:    client,
		presigner: s3.NewPresignClient(client),
		bucket:    bucket,
		prefix:    strings.Trim(prefix, "/"),
		publicURL: strings.TrimSuffix(publicURL, "/"),
	}
}

// objectKey validates an attachment key and places it under the driver prefix.
func (d *S3Driver) objectKey(key string) (*string, error) {
	if err := validKey(key); err != nil {
		return nil, err
	}
	if d.prefix == "" {
		return aws.String(key), nil
	}
	return aws.String(path.Join(d.prefix, key)), nil
}

func (d *S3Driver) Save(ctx context.Context, key string, body io.Reader, contentType string) error {
	objectKey, err := d.objectKey(key)
	if err != nil {
		return err
	}
	if _, err := d.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(d.bucket),
		Key:         objectKey,
		Body:        body,
		ContentType: aws.String(contentType),
	}); err != nil {
		return fmt.Errorf("failed to put attachment %s: %w", key, err)
	}
	return nil
}

func (d *S3Driver) Get(ctx context.Context, key string) (io.ReadCloser, string, error) {
	objectKey, err := d.objectKey(key)
	if err != nil {
		return nil, "", err
	}
	out, err := d.client.GetObject(ctx, &s3.GetObjectInput{Bucket: aws.String(d.bucket), Key: objectKey})
	if err != nil {
		if isNotFound(err) {
			return nil, "", fmt.Errorf("%w: %s", ErrObjectNotFound, key)
		}
		return nil, "", fmt.Errorf("failed to get attachment %s: %w", key, err)
	}
	contentType := aws.ToString(out.ContentType)
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	return out.Body, contentType, nil
}

// Delete is idempotent; a missing object is not an error.
func (d *S3Driver) Delete(ctx context.Context, key string) error {
	objectKey, err := d.objectKey(key)
	if err != nil {
		return err
	}
	_, err = d.client.DeleteObject(ctx, &s3.DeleteObjectInput{Bucket: aws.String(d.bucket), Key: objectKey})
	if err != nil && !isNotFound(err) {
		return fmt.Errorf("failed to delete attachment %s: %w", key, err)
	}
	return nil
}

func (d *S3Driver) GenerateURL(ctx context.Context, key string, expires time.Duration) (string, error) {
	objectKey, err := d.objectKey(key)
	if err != nil {
		return "", err
	}
	if d.publicURL != "" {
		return d.publicURL + "/" + *objectKey, nil
	}
	if expires <= 0 {
		expires = defaultPresignTTL
	}

	req, err := d.presigner.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(d.bucket),
		Key:    objectKey,
	}, s3.WithPresignExpires(expires))
	if err != nil {
		return "", fmt.Errorf("failed to presign attachment %s: %w", key, err)
	}
	return req.URL, nil
}

func isNotFound(err error) bool {
	var noSuchKey *types.NoSuchKey
	var notFound *types.NotFound
	return errors.As(err, &noSuchKey) || errors.As(err, &notFound)
}

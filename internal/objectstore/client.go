package objectstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"

	"colourstream/internal/config"
	"colourstream/internal/logging"
)

// ErrDisabled is returned when object storage is not configured.
var ErrDisabled = errors.New("object storage disabled")

const defaultPresignTTL = 15 * time.Minute

// Client wraps the S3 API for the configured upload bucket.
type Client struct {
	api        *s3.Client
	presigner  *s3.PresignClient
	bucket     string
	presignTTL time.Duration
	logger     *slog.Logger
}

// New builds a client from the storage section of cfg. A nil client and
// ErrDisabled are returned when storage is turned off.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Client, error) {
	if cfg == nil || !cfg.Storage.Enabled {
		return nil, ErrDisabled
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.Storage.Region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.Storage.AccessKey, cfg.Storage.SecretKey, "")),
	)
	if err != nil {
		return nil, fmt.Errorf("load storage config: %w", err)
	}

	api := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Storage.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Storage.Endpoint)
		}
		o.UsePathStyle = cfg.Storage.ForcePathStyle
	})

	presignTTL := time.Duration(cfg.Storage.PresignTTL) * time.Second
	if presignTTL <= 0 {
		presignTTL = defaultPresignTTL
	}

	return &Client{
		api:        api,
		presigner:  s3.NewPresignClient(api),
		bucket:     cfg.Storage.Bucket,
		presignTTL: presignTTL,
		logger:     logging.NewComponentLogger(logger, "objectstore"),
	}, nil
}

// Bucket returns the configured bucket name.
func (c *Client) Bucket() string {
	return c.bucket
}

// ObjectKey builds the canonical key for an uploaded file, namespaced by
// client and project so concurrent shoots never collide.
func ObjectKey(clientName, projectName, filename string) string {
	return path.Join(cleanSegment(clientName), cleanSegment(projectName), path.Base(filename))
}

// ObjectPrefix returns the key prefix holding every upload for a client and
// project pairing.
func ObjectPrefix(clientName, projectName string) string {
	return cleanSegment(clientName) + "/" + cleanSegment(projectName) + "/"
}

func cleanSegment(s string) string {
	s = strings.TrimSpace(s)
	s = strings.ReplaceAll(s, "/", "-")
	if s == "" {
		s = "default"
	}
	return s
}

// Put stores body under key.
func (c *Client) Put(ctx context.Context, key string, body io.Reader, size int64, contentType string) error {
	input := &s3.PutObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(key),
		Body:   body,
	}
	if size > 0 {
		input.ContentLength = aws.Int64(size)
	}
	if contentType != "" {
		input.ContentType = aws.String(contentType)
	}
	if _, err := c.api.PutObject(ctx, input); err != nil {
		return fmt.Errorf("put object %s: %w", key, err)
	}
	c.logger.Info("object stored", logging.String("key", key), logging.Int64("size", size))
	return nil
}

// Exists reports whether key is present in the bucket.
func (c *Client) Exists(ctx context.Context, key string) (bool, error) {
	_, err := c.api.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(key),
	})
	if err == nil {
		return true, nil
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) && apiErr.ErrorCode() == "NotFound" {
		return false, nil
	}
	return false, fmt.Errorf("head object %s: %w", key, err)
}

// PresignGet returns a time limited download URL for key.
func (c *Client) PresignGet(ctx context.Context, key string) (string, error) {
	presigned, err := c.presigner.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(c.presignTTL))
	if err != nil {
		return "", fmt.Errorf("presign get %s: %w", key, err)
	}
	return presigned.URL, nil
}

// PresignPut returns a time limited upload URL for key.
func (c *Client) PresignPut(ctx context.Context, key string) (string, error) {
	presigned, err := c.presigner.PresignPutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(c.presignTTL))
	if err != nil {
		return "", fmt.Errorf("presign put %s: %w", key, err)
	}
	return presigned.URL, nil
}

// Delete removes a single object.
func (c *Client) Delete(ctx context.Context, key string) error {
	if _, err := c.api.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(key),
	}); err != nil {
		return fmt.Errorf("delete object %s: %w", key, err)
	}
	return nil
}

package objectstore

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"colourstream/internal/logging"
)

// CompletedPart identifies one uploaded part of a multipart session.
type CompletedPart struct {
	ETag       string `json:"etag"`
	PartNumber int32  `json:"partNumber"`
}

// CreateMultipart opens a multipart upload session for key.
func (c *Client) CreateMultipart(ctx context.Context, key, contentType string) (string, error) {
	input := &s3.CreateMultipartUploadInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(key),
	}
	if contentType != "" {
		input.ContentType = aws.String(contentType)
	}
	out, err := c.api.CreateMultipartUpload(ctx, input)
	if err != nil {
		return "", fmt.Errorf("create multipart upload %s: %w", key, err)
	}
	uploadID := aws.ToString(out.UploadId)
	c.logger.Info("multipart upload created",
		logging.String("key", key),
		logging.String("multipart_id", uploadID))
	return uploadID, nil
}

// PresignPart returns an upload URL for one part of a multipart session.
func (c *Client) PresignPart(ctx context.Context, key, uploadID string, partNumber int32) (string, error) {
	presigned, err := c.presigner.PresignUploadPart(ctx, &s3.UploadPartInput{
		Bucket:     aws.String(c.bucket),
		Key:        aws.String(key),
		UploadId:   aws.String(uploadID),
		PartNumber: aws.Int32(partNumber),
	}, s3.WithPresignExpires(c.presignTTL))
	if err != nil {
		return "", fmt.Errorf("presign part %d of %s: %w", partNumber, key, err)
	}
	return presigned.URL, nil
}

// CompleteMultipart finalizes a multipart session from its uploaded parts.
func (c *Client) CompleteMultipart(ctx context.Context, key, uploadID string, parts []CompletedPart) error {
	completed := make([]types.CompletedPart, 0, len(parts))
	for _, part := range parts {
		completed = append(completed, types.CompletedPart{
			ETag:       aws.String(part.ETag),
			PartNumber: aws.Int32(part.PartNumber),
		})
	}
	_, err := c.api.CompleteMultipartUpload(ctx, &s3.CompleteMultipartUploadInput{
		Bucket:          aws.String(c.bucket),
		Key:             aws.String(key),
		UploadId:        aws.String(uploadID),
		MultipartUpload: &types.CompletedMultipartUpload{Parts: completed},
	})
	if err != nil {
		return fmt.Errorf("complete multipart upload %s: %w", key, err)
	}
	c.logger.Info("multipart upload completed",
		logging.String("key", key),
		logging.Int("parts", len(parts)))
	return nil
}

// AbortMultipart discards a multipart session and its uploaded parts.
func (c *Client) AbortMultipart(ctx context.Context, key, uploadID string) error {
	_, err := c.api.AbortMultipartUpload(ctx, &s3.AbortMultipartUploadInput{
		Bucket:   aws.String(c.bucket),
		Key:      aws.String(key),
		UploadId: aws.String(uploadID),
	})
	if err != nil {
		return fmt.Errorf("abort multipart upload %s: %w", key, err)
	}
	c.logger.Warn("multipart upload aborted", logging.String("key", key))
	return nil
}

// DeletePrefix removes every object under prefix, paging through results.
func (c *Client) DeletePrefix(ctx context.Context, prefix string) (int, error) {
	paginator := s3.NewListObjectsV2Paginator(c.api, &s3.ListObjectsV2Input{
		Bucket: aws.String(c.bucket),
		Prefix: aws.String(prefix),
	})

	deleted := 0
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return deleted, fmt.Errorf("list objects under %s: %w", prefix, err)
		}
		if len(page.Contents) == 0 {
			continue
		}

		identifiers := make([]types.ObjectIdentifier, 0, len(page.Contents))
		for _, obj := range page.Contents {
			identifiers = append(identifiers, types.ObjectIdentifier{Key: obj.Key})
		}
		if _, err := c.api.DeleteObjects(ctx, &s3.DeleteObjectsInput{
			Bucket: aws.String(c.bucket),
			Delete: &types.Delete{Objects: identifiers, Quiet: aws.Bool(true)},
		}); err != nil {
			return deleted, fmt.Errorf("delete objects under %s: %w", prefix, err)
		}
		deleted += len(identifiers)
	}

	if deleted > 0 {
		c.logger.Info("prefix deleted",
			logging.String("prefix", prefix),
			logging.Int("objects", deleted))
	}
	return deleted, nil
}

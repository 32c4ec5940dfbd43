// Package archive copies shipped log batches to S3-compatible object storage
// (MinIO in development) next to the database copy.
package archive

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	sc "github.com/dmitrijs2005/serialgate/internal/server/config"
	"github.com/dmitrijs2005/serialgate/internal/server/models"
)

var (
	loadDefaultAWSConfig = config.LoadDefaultConfig

	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) *s3.Client {
		return s3.NewFromConfig(cfg, optFns...)
	}
)

type objectPutter interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

type S3Sink struct {
	client objectPutter
	bucket string
}

// NewS3Sink builds a sink from the S3 settings. It returns nil, nil when no
// bucket is configured.
func NewS3Sink(ctx context.Context, c *sc.Config) (*S3Sink, error) {
	if c.S3Bucket == "" {
		return nil, nil
	}

	cfg, err := loadDefaultAWSConfig(ctx,
		config.WithRegion(c.S3Region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			c.S3RootUser,
			c.S3RootPassword,
			"",
		)))
	if err != nil {
		return nil, fmt.Errorf("aws config: %w", err)
	}

	client := newS3ClientFromConfig(cfg, func(o *s3.Options) {
		if c.S3BaseEndpoint != "" {
			o.BaseEndpoint = aws.String(c.S3BaseEndpoint)
			o.UsePathStyle = true
		}
	})

	return &S3Sink{client: client, bucket: c.S3Bucket}, nil
}

// ObjectKey places a batch under its UTC day.
func ObjectKey(b *models.LogBatch) string {
	d := b.Timestamp.UTC()
	return fmt.Sprintf("audit-logs/%04d/%02d/%02d/%s.json", d.Year(), d.Month(), d.Day(), b.ID)
}

type object struct {
	ID        string   `json:"id"`
	Timestamp float64  `json:"timestamp"`
	Logs      []string `json:"logs"`
}

func (s *S3Sink) Write(ctx context.Context, b *models.LogBatch) error {
	body, err := json.Marshal(object{ID: b.ID, Timestamp: b.UnixSeconds(), Logs: b.Logs})
	if err != nil {
		return fmt.Errorf("marshal batch: %w", err)
	}

	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(ObjectKey(b)),
		Body:        bytes.NewReader(body),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return fmt.Errorf("put %s: %w", ObjectKey(b), err)
	}
	return nil
}

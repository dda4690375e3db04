// Package archive uploads scan snapshots to S3 or an S3-compatible store
// such as MinIO or Cloudflare R2.
package archive

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"path"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"surebet/internal/config"
	"surebet/internal/model"
)

// ObjectPutter is the part of the S3 client the archiver needs.
type ObjectPutter interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// Archiver writes one JSON object per scan run.
type Archiver struct {
	client ObjectPutter
	bucket string
	prefix string
}

// New builds an S3 client from cfg. Static credentials are used when both keys
// are set; otherwise the default AWS credential chain applies.
func New(ctx context.Context, cfg config.ArchiveConfig) (*Archiver, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("archive: bucket name is required")
	}

	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(cfg.Region)}
	if cfg.AccessKey != "" && cfg.SecretKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("archive: load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = cfg.ForcePathStyle
	})
	return NewArchiver(client, cfg.Bucket, cfg.Prefix), nil
}

func NewArchiver(client ObjectPutter, bucket, prefix string) *Archiver {
	return &Archiver{client: client, bucket: bucket, prefix: prefix}
}

func (a *Archiver) Name() string { return "s3" }

// Key returns <prefix>/YYYY/MM/DD/<run id>.json, dated by the run's UTC start.
func (a *Archiver) Key(report model.ScanReport) string {
	return path.Join(a.prefix, report.StartedAt.UTC().Format("2006/01/02"), report.RunID+".json")
}

// Publish uploads the full report, failed sources included.
func (a *Archiver) Publish(ctx context.Context, report model.ScanReport) error {
	body, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("archive: marshal report: %w", err)
	}

	key := a.Key(report)
	_, err = a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(a.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return fmt.Errorf("archive: put object %s: %w", key, err)
	}
	return nil
}

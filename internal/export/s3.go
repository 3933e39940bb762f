// Package export uploads finished workbooks and run reports to S3 or any
// S3-compatible store such as MinIO.
package export

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// XLSXContentType is the MIME type of an .xlsx workbook.
const XLSXContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// Options configures the S3 exporter.
type Options struct {
	Bucket   string // required
	Region   string // e.g. "us-east-1"
	Prefix   string // key prefix, e.g. "runs/"
	Endpoint string // custom endpoint for MinIO
}

// putter is the subset of *s3.Client used here.
type putter interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

var _ putter = (*s3.Client)(nil)

// S3 uploads run artifacts under <prefix><run id>/.
type S3 struct {
	client putter
	bucket string
	prefix string
}

// New creates an exporter using the default AWS credential chain.
func New(ctx context.Context, opts Options) (*S3, error) {
	if opts.Bucket == "" {
		return nil, errors.New("export: bucket is required")
	}

	optFns := []func(*awsconfig.LoadOptions) error{}
	if opts.Region != "" {
		optFns = append(optFns, awsconfig.WithRegion(opts.Region))
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, optFns...)
	if err != nil {
		return nil, fmt.Errorf("export: load aws config: %w", err)
	}

	s3Opts := []func(*s3.Options){}
	if opts.Endpoint != "" {
		s3Opts = append(s3Opts, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(opts.Endpoint)
			o.UsePathStyle = true
		})
	}

	return &S3{
		client: s3.NewFromConfig(cfg, s3Opts...),
		bucket: opts.Bucket,
		prefix: opts.Prefix,
	}, nil
}

// Key returns the object key for name within a run.
func (s *S3) Key(runID, name string) string {
	return s.prefix + path.Join(runID, name)
}

// Upload stores data at the run-scoped key for name and returns the key.
func (s *S3) Upload(ctx context.Context, runID, name, contentType string, data []byte) (string, error) {
	key := s.Key(runID, name)
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(data),
		ContentLength: aws.Int64(int64(len(data))),
		ContentType:   aws.String(contentType),
	})
	if err != nil {
		return "", fmt.Errorf("export: put s3://%s/%s: %w", s.bucket, key, err)
	}
	return key, nil
}

// UploadWorkbook uploads the saved workbook at file under its base name.
func (s *S3) UploadWorkbook(ctx context.Context, runID, file string) (string, error) {
	data, err := os.ReadFile(file)
	if err != nil {
		return "", fmt.Errorf("export: read workbook: %w", err)
	}
	return s.Upload(ctx, runID, filepath.Base(file), XLSXContentType, data)
}

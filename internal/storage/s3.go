package storage

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/ivlev/verse2video/internal/config"
)

var ErrNoBucket = errors.New("publish bucket cannot be empty")

// S3Publisher uploads videos with the AWS SDK v2. Credentials come from the
// standard AWS chain.
type S3Publisher struct {
	client *s3.Client
	bucket string
	prefix string
}

func NewS3Publisher(ctx context.Context, cfg config.Publish) (*S3Publisher, error) {
	if cfg.Bucket == "" {
		return nil, ErrNoBucket
	}

	var loadOpts []func(*awsconfig.LoadOptions) error
	if cfg.Region != "" {
		loadOpts = append(loadOpts, awsconfig.WithRegion(cfg.Region))
	}
	if cfg.Profile != "" {
		loadOpts = append(loadOpts, awsconfig.WithSharedConfigProfile(cfg.Profile))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	c := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = cfg.UsePathStyle
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
	})
	return &S3Publisher{client: c, bucket: cfg.Bucket, prefix: cfg.Prefix}, nil
}

func (s *S3Publisher) Publish(ctx context.Context, key, filePath string) (string, error) {
	f, err := os.Open(filePath)
	if err != nil {
		return "", err
	}
	defer f.Close()

	objKey := objectKey(s.prefix, key)
	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(objKey),
		Body:        f,
		ContentType: aws.String("video/mp4"),
	})
	if err != nil {
		return "", fmt.Errorf("put s3://%s/%s: %w", s.bucket, objKey, err)
	}
	return fmt.Sprintf("s3://%s/%s", s.bucket, objKey), nil
}

func (s *S3Publisher) Close() error { return nil }

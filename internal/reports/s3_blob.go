package reports

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	awss3 "github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"go.uber.org/zap"

	"github.com/edgecomet/catalog/internal/common/configtypes"
)

// s3API is the part of the S3 client the blob store uses
type s3API interface {
	PutObject(ctx context.Context, params *awss3.PutObjectInput, optFns ...func(*awss3.Options)) (*awss3.PutObjectOutput, error)
	GetObject(ctx context.Context, params *awss3.GetObjectInput, optFns ...func(*awss3.Options)) (*awss3.GetObjectOutput, error)
}

// S3BlobStore stores blobs in an S3 bucket (or an S3-compatible service)
type S3BlobStore struct {
	client s3API
	bucket string
	prefix string
	logger *zap.Logger
}

func NewS3BlobStore(ctx context.Context, cfg configtypes.S3StorageConfig, logger *zap.Logger) (*S3BlobStore, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("s3 bucket is required")
	}

	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.Region),
	}
	if cfg.AccessKey != "" && cfg.SecretKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := awss3.NewFromConfig(awsCfg, func(o *awss3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
		if cfg.ForcePathStyle {
			o.UsePathStyle = true
		}
	})

	logger.Info("S3 blob store configured",
		zap.String("bucket", cfg.Bucket),
		zap.String("region", cfg.Region),
		zap.String("prefix", cfg.Prefix))

	return newS3BlobStore(client, cfg.Bucket, cfg.Prefix, logger), nil
}

func newS3BlobStore(client s3API, bucket, prefix string, logger *zap.Logger) *S3BlobStore {
	return &S3BlobStore{client: client, bucket: bucket, prefix: prefix, logger: logger}
}

func (s *S3BlobStore) objectKey(key string) string {
	if s.prefix == "" {
		return key
	}
	return path.Join(s.prefix, key)
}

func (s *S3BlobStore) Store(ctx context.Context, key string, data []byte) error {
	if err := ValidateBlobKey(key); err != nil {
		return err
	}

	objectKey := s.objectKey(key)
	_, err := s.client.PutObject(ctx, &awss3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(objectKey),
		Body:          bytes.NewReader(data),
		ContentLength: aws.Int64(int64(len(data))),
		ContentType:   aws.String(contentTypeForKey(key)),
	})
	if err != nil {
		s.logger.Error("S3 upload failed",
			zap.String("bucket", s.bucket),
			zap.String("key", objectKey),
			zap.Error(err))
		return fmt.Errorf("s3 upload %s: %w", objectKey, err)
	}

	s.logger.Debug("Blob stored in S3",
		zap.String("bucket", s.bucket),
		zap.String("key", objectKey),
		zap.Int("size_bytes", len(data)))
	return nil
}

func (s *S3BlobStore) Fetch(ctx context.Context, key string) ([]byte, error) {
	if err := ValidateBlobKey(key); err != nil {
		return nil, err
	}

	objectKey := s.objectKey(key)
	out, err := s.client.GetObject(ctx, &awss3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(objectKey),
	})
	if err != nil {
		var noSuchKey *s3types.NoSuchKey
		if errors.As(err, &noSuchKey) {
			return nil, fmt.Errorf("%w: %s", ErrBlobNotFound, key)
		}
		return nil, fmt.Errorf("s3 download %s: %w", objectKey, err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("s3 read %s: %w", objectKey, err)
	}
	return data, nil
}

func contentTypeForKey(key string) string {
	ext := path.Ext(key)
	if ext == "" {
		return "application/octet-stream"
	}
	return Format(ext[1:]).ContentType()
}

package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3iface"
)

// S3Config holds the connection settings for an S3 compatible endpoint
type S3Config struct {
	Endpoint  string
	Region    string
	AccessKey string
	SecretKey string
	// Insecure talks plain HTTP to a custom Endpoint. AWS itself is always reached over TLS.
	Insecure  bool
}

// S3Storage implements the Storage interface on top of S3. Bucket ids map to
// S3 buckets and file ids to object keys.
type S3Storage struct {
	client s3iface.S3API
}

// NewS3Storage creates a client for the configured endpoint
func NewS3Storage(cfg S3Config) (*S3Storage, error) {
	sess, err := session.NewSession(awsConfig(cfg))
	if err != nil {
		return nil, fmt.Errorf("creating s3 session: %w", err)
	}

	return NewS3StorageWithClient(s3.New(sess)), nil
}

func awsConfig(cfg S3Config) *aws.Config {
	c := &aws.Config{
		Credentials:      credentials.NewStaticCredentials(cfg.AccessKey, cfg.SecretKey, ""),
		Region:           aws.String(cfg.Region),
		DisableSSL:       aws.Bool(cfg.Insecure && cfg.Endpoint != ""),
		S3ForcePathStyle: aws.Bool(true),
	}
	if cfg.Endpoint != "" {
		c.Endpoint = aws.String(cfg.Endpoint)
	}
	return c
}

// NewS3StorageWithClient wraps an existing client, used by tests
func NewS3StorageWithClient(client s3iface.S3API) *S3Storage {
	return &S3Storage{client: client}
}

// Download fetches an object
func (s *S3Storage) Download(ctx context.Context, bucketID, fileID string) ([]byte, error) {
	result, err := s.client.GetObjectWithContext(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucketID),
		Key:    aws.String(fileID),
	})
	if err != nil {
		var aerr awserr.Error
		if errors.As(err, &aerr) && aerr.Code() == s3.ErrCodeNoSuchKey {
			return nil, fmt.Errorf("%w: %s/%s", ErrNotFound, bucketID, fileID)
		}
		return nil, fmt.Errorf("getting object: %w", err)
	}
	defer result.Body.Close()

	data, err := io.ReadAll(result.Body)
	if err != nil {
		return nil, fmt.Errorf("reading object: %w", err)
	}
	return data, nil
}

// Save uploads an object
func (s *S3Storage) Save(ctx context.Context, bucketID, fileID string, data []byte) error {
	_, err := s.client.PutObjectWithContext(ctx, &s3.PutObjectInput{
		Bucket: aws.String(bucketID),
		Key:    aws.String(fileID),
		Body:   bytes.NewReader(data),
	})
	if err != nil {
		return fmt.Errorf("putting object: %w", err)
	}
	return nil
}

// Package storage keeps user uploads in an S3-compatible object store
// (AWS S3 or MinIO).
package storage

import (
	"context"
	"fmt"
	"io"
	"path"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
)

// Config describes the bucket avatars go to.
type Config struct {
	Bucket    string
	Region    string
	Endpoint  string // empty for AWS; e.g. http://localhost:9000 for MinIO
	AccessKey string
	SecretKey string
	// PublicBaseURL is prepended to object keys to build the URL stored on
	// the user. When empty the URL is derived from Endpoint or the AWS
	// virtual-hosted address.
	PublicBaseURL string
}

// PutObjectAPI is the slice of *s3.Client the store needs.
type PutObjectAPI interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

var _ PutObjectAPI = (*s3.Client)(nil)

// S3 uploads avatars to one bucket.
type S3 struct {
	api        PutObjectAPI
	bucket     string
	publicBase string
	newID      func() string
}

// NewS3 builds an S3 client from cfg. Static credentials are used when
// AccessKey is set; otherwise the default AWS credential chain applies.
func NewS3(ctx context.Context, cfg Config) (*S3, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("storage: bucket is required")
	}
	if cfg.Region == "" {
		cfg.Region = "us-east-1"
	}

	opts := []func(*config.LoadOptions) error{config.WithRegion(cfg.Region)}
	if cfg.AccessKey != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("storage: loading AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})

	return NewS3WithAPI(client, cfg.Bucket, publicBase(cfg)), nil
}

// NewS3WithAPI wires an existing client. publicBase is the URL prefix
// object keys are appended to.
func NewS3WithAPI(api PutObjectAPI, bucket, publicBase string) *S3 {
	return &S3{
		api:        api,
		bucket:     bucket,
		publicBase: strings.TrimRight(publicBase, "/"),
		newID:      uuid.NewString,
	}
}

// AvatarKey returns the object key for a new avatar of userID.
func (s *S3) AvatarKey(userID int64, filename string) string {
	return path.Join("avatars", fmt.Sprint(userID), s.newID()+imageExt(filename))
}

// UploadAvatar stores body under a fresh key and returns its public URL.
func (s *S3) UploadAvatar(ctx context.Context, userID int64, filename, contentType string, body io.Reader, size int64) (string, error) {
	key := s.AvatarKey(userID, filename)

	_, err := s.api.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(key),
		Body:          body,
		ContentType:   aws.String(contentType),
		ContentLength: aws.Int64(size),
	})
	if err != nil {
		return "", fmt.Errorf("storage: uploading %s: %w", key, err)
	}
	return s.publicBase + "/" + key, nil
}

func publicBase(cfg Config) string {
	switch {
	case cfg.PublicBaseURL != "":
		return cfg.PublicBaseURL
	case cfg.Endpoint != "":
		return strings.TrimRight(cfg.Endpoint, "/") + "/" + cfg.Bucket
	default:
		return fmt.Sprintf("https://%s.s3.%s.amazonaws.com", cfg.Bucket, cfg.Region)
	}
}

// imageExt keeps a short lower-case extension from the uploaded name.
func imageExt(filename string) string {
	ext := strings.ToLower(filepath.Ext(filename))
	if len(ext) < 2 || len(ext) > 6 {
		return ""
	}
	return ext
}

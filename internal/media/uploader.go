// Package media uploads post images to Cloudflare R2 through its S3 API.
package media

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
)

var (
	// ErrUnsupportedType is returned for files that are not images
	ErrUnsupportedType = errors.New("unsupported media type")
	// ErrTooLarge is returned when a file exceeds the configured size limit
	ErrTooLarge = errors.New("file too large")
)

var extensions = map[string]string{
	"image/jpeg":    ".jpg",
	"image/png":     ".png",
	"image/gif":     ".gif",
	"image/webp":    ".webp",
	"image/avif":    ".avif",
	"image/svg+xml": ".svg",
}

// putObjectAPI is the part of the S3 client the uploader uses
type putObjectAPI interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

type Config struct {
	Endpoint  string
	AccountID string
	AccessKey string
	SecretKey string
	Bucket    string
	PublicURL string
	MaxSize   int64
}

// endpoint returns the configured endpoint or the account's default R2 endpoint
func (c Config) endpoint() string {
	if c.Endpoint != "" {
		return strings.TrimRight(c.Endpoint, "/")
	}
	return fmt.Sprintf("https://%s.r2.cloudflarestorage.com", c.AccountID)
}

type R2Uploader struct {
	client  putObjectAPI
	cfg     Config
	now     func() time.Time
	newName func() string
}

func NewR2Uploader(ctx context.Context, cfg Config) (*R2Uploader, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion("auto"),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load R2 config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(cfg.endpoint())
		o.UsePathStyle = true
	})

	return newUploader(client, cfg), nil
}

func newUploader(client putObjectAPI, cfg Config) *R2Uploader {
	return &R2Uploader{
		client:  client,
		cfg:     cfg,
		now:     time.Now,
		newName: uuid.NewString,
	}
}

// Upload stores body under posts/YYYY/MM/<uuid><ext> and returns the public URL of the object
func (u *R2Uploader) Upload(ctx context.Context, contentType string, size int64, body io.Reader) (string, error) {
	contentType = strings.ToLower(strings.TrimSpace(strings.SplitN(contentType, ";", 2)[0]))
	ext, ok := extensions[contentType]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnsupportedType, contentType)
	}
	if u.cfg.MaxSize > 0 && size > u.cfg.MaxSize {
		return "", fmt.Errorf("%w: %d bytes (max %d)", ErrTooLarge, size, u.cfg.MaxSize)
	}

	key := path.Join("posts", u.now().UTC().Format("2006/01"), u.newName()+ext)

	_, err := u.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(u.cfg.Bucket),
		Key:           aws.String(key),
		Body:          body,
		ContentType:   aws.String(contentType),
		ContentLength: aws.Int64(size),
		CacheControl:  aws.String("public, max-age=31536000, immutable"),
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload %s: %w", key, err)
	}

	return u.publicURL(key), nil
}

func (u *R2Uploader) publicURL(key string) string {
	if u.cfg.PublicURL != "" {
		return strings.TrimRight(u.cfg.PublicURL, "/") + "/" + key
	}
	return u.cfg.endpoint() + "/" + u.cfg.Bucket + "/" + key
}

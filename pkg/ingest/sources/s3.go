package sources

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	mferrors "github.com/mesflow/mesflow/pkg/errors"
)

// S3Config holds S3 client configuration.
type S3Config struct {
	// Region is the AWS region (e.g., "eu-west-1").
	Region string `yaml:"region"`

	// Endpoint overrides the default S3 endpoint (MinIO, LocalStack).
	Endpoint string `yaml:"endpoint"`

	// UsePathStyle forces path-style addressing.
	UsePathStyle bool `yaml:"use_path_style"`

	// Static credentials; the default chain is used when empty.
	AccessKeyID     string `yaml:"access_key_id"`
	SecretAccessKey string `yaml:"secret_access_key"`
	SessionToken    string `yaml:"session_token"`

	DownloadTimeout time.Duration `yaml:"download_timeout"`
}

// objectGetter is the slice of the S3 API a source needs.
type objectGetter interface {
	GetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// S3Source reads one object.
type S3Source struct {
	bucket  string
	key     string
	timeout time.Duration
	client  objectGetter
}

// ParseS3URL splits "s3://bucket/key" into bucket and key.
func ParseS3URL(raw string) (bucket, key string, err error) {
	rest, ok := strings.CutPrefix(raw, "s3://")
	if !ok {
		return "", "", fmt.Errorf("not an s3 url: %q", raw)
	}
	bucket, key, _ = strings.Cut(rest, "/")
	if bucket == "" || key == "" {
		return "", "", fmt.Errorf("s3 url needs bucket and key: %q", raw)
	}
	return bucket, key, nil
}

// NewS3Source creates a source for an s3:// URL.
func NewS3Source(ctx context.Context, rawURL string, cfg S3Config) (*S3Source, error) {
	bucket, key, err := ParseS3URL(rawURL)
	if err != nil {
		return nil, mferrors.Wrap(err, mferrors.CodeSource, "invalid source")
	}

	client, err := newS3Client(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return newS3Source(bucket, key, cfg.DownloadTimeout, client), nil
}

func newS3Source(bucket, key string, timeout time.Duration, client objectGetter) *S3Source {
	if timeout <= 0 {
		timeout = 5 * time.Minute
	}
	return &S3Source{bucket: bucket, key: key, timeout: timeout, client: client}
}

func newS3Client(ctx context.Context, cfg S3Config) (*s3.Client, error) {
	var opts []func(*config.LoadOptions) error

	if cfg.Region != "" {
		opts = append(opts, config.WithRegion(cfg.Region))
	}
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, cfg.SessionToken),
		))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, mferrors.Wrap(err, mferrors.CodeSource, "failed to load AWS config")
	}

	return s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = cfg.UsePathStyle
	}), nil
}

func (s *S3Source) Name() string { return "s3://" + s.bucket + "/" + s.key }

// Open downloads the object. The returned reader must be closed to release
// both the body and the download deadline.
func (s *S3Source) Open(ctx context.Context) (io.ReadCloser, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)

	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key),
	})
	if err != nil {
		cancel()
		return nil, mferrors.Wrap(err, mferrors.CodeSource, "get object failed").
			WithContext("bucket", s.bucket).
			WithContext("key", s.key)
	}
	return &cancelOnClose{ReadCloser: out.Body, cancel: cancel}, nil
}

type cancelOnClose struct {
	io.ReadCloser
	cancel context.CancelFunc
}

func (c *cancelOnClose) Close() error {
	defer c.cancel()
	return c.ReadCloser.Close()
}

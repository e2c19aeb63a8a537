package blob

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"

	"printpoller/internal/domain/entity"
	"printpoller/internal/domain/repository"
	"printpoller/internal/infrastructure/metrics"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// S3Config works with AWS S3 and S3-compatible servers (MinIO, RustFS).
type S3Config struct {
	Bucket       string
	Prefix       string
	Region       string
	Endpoint     string
	UsePathStyle bool
	// Static credentials; when empty the default AWS chain is used.
	AccessKey string
	SecretKey string
	// MaxAttempts bounds SDK retries; 0 keeps the SDK default.
	MaxAttempts int
}

type S3ContentStore struct {
	client *s3.Client
	bucket string
	prefix string
}

func NewS3ContentStore(ctx context.Context, cfg S3Config) (*S3ContentStore, error) {
	if cfg.Bucket == "" {
		return nil, errors.New("s3 bucket is required")
	}
	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}

	loadOpts := []func(*config.LoadOptions) error{config.WithRegion(region)}
	if cfg.AccessKey != "" {
		loadOpts = append(loadOpts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}
	awsCfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create AWS config: %w", err)
	}

	endpoint := cfg.Endpoint
	if endpoint != "" && !strings.HasPrefix(endpoint, "http://") && !strings.HasPrefix(endpoint, "https://") {
		endpoint = "https://" + endpoint
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = cfg.UsePathStyle
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
		}
		if cfg.MaxAttempts > 0 {
			o.RetryMaxAttempts = cfg.MaxAttempts
		}
	})

	return &S3ContentStore{client: client, bucket: cfg.Bucket, prefix: cfg.Prefix}, nil
}

var _ repository.ContentStore = (*S3ContentStore)(nil)

func (s *S3ContentStore) Fetch(ctx context.Context, id primitive.ObjectID, w io.Writer) (int64, error) {
	metrics.IncDBFileOp("fetch")

	key := objectKey(s.prefix, id)

	head, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return 0, s3Err(id, "head s3://"+s.bucket+"/"+key, err)
	}

	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return 0, s3Err(id, "get s3://"+s.bucket+"/"+key, err)
	}
	defer out.Body.Close()

	n, err := io.Copy(w, out.Body)
	if err != nil {
		metrics.IncError("s3_content_store", "download_error")
		return n, s3Err(id, "copy s3://"+s.bucket+"/"+key, err)
	}
	if head.ContentLength != nil && n != *head.ContentLength {
		return n, fmt.Errorf("copy s3://%s/%s: got %d of %d bytes", s.bucket, key, n, *head.ContentLength)
	}
	return n, nil
}

func (s *S3ContentStore) Ping(ctx context.Context) error {
	_, err := s.client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(s.bucket)})
	if err != nil {
		if isTransientS3(err) {
			return fmt.Errorf("ping s3://%s: %w: %v", s.bucket, entity.ErrStoreUnavailable, err)
		}
		return fmt.Errorf("ping s3://%s: %w", s.bucket, err)
	}
	return nil
}

func s3Err(id primitive.ObjectID, op string, err error) error {
	var notFound *types.NotFound
	var noSuchKey *types.NoSuchKey
	if errors.As(err, &notFound) || errors.As(err, &noSuchKey) {
		return fmt.Errorf("%w: file %s not found", entity.ErrContentNotFound, id.Hex())
	}
	if isTransientS3(err) {
		metrics.IncError("s3_content_store", "unavailable")
		return fmt.Errorf("%s: %w: %v", op, entity.ErrStoreUnavailable, err)
	}
	metrics.IncError("s3_content_store", "request_error")
	return fmt.Errorf("%s: %w", op, err)
}

func isTransientS3(err error) bool {
	// the SDK wraps failed sends too; status 0 means no response arrived
	var status interface{ HTTPStatusCode() int }
	if errors.As(err, &status) {
		if code := status.HTTPStatusCode(); code != 0 {
			return code >= http.StatusInternalServerError || code == http.StatusTooManyRequests
		}
	}
	var nerr net.Error
	return errors.As(err, &nerr) || errors.Is(err, context.DeadlineExceeded)
}

package blob

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"

	"printpoller/internal/domain/entity"
	"printpoller/internal/domain/repository"
	"printpoller/internal/infrastructure/metrics"

	"cloud.google.com/go/storage"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

type GCSConfig struct {
	Bucket string
	Prefix string
	// Endpoint overrides the API endpoint, e.g. for a local emulator.
	Endpoint string
	// Anonymous disables credential lookup.
	Anonymous bool
}

// GCSContentStore reads payloads stored as <prefix><hex id> objects in a bucket.
type GCSContentStore struct {
	client *storage.Client
	bucket string
	prefix string
}

func NewGCSContentStore(ctx context.Context, cfg GCSConfig) (*GCSContentStore, error) {
	if cfg.Bucket == "" {
		return nil, errors.New("gcs bucket is required")
	}

	var opts []option.ClientOption
	if cfg.Endpoint != "" {
		opts = append(opts, option.WithEndpoint(cfg.Endpoint))
	}
	if cfg.Anonymous {
		opts = append(opts, option.WithoutAuthentication())
	}

	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create Storage client: %w", err)
	}
	return &GCSContentStore{client: client, bucket: cfg.Bucket, prefix: cfg.Prefix}, nil
}

var _ repository.ContentStore = (*GCSContentStore)(nil)

func (s *GCSContentStore) Fetch(ctx context.Context, id primitive.ObjectID, w io.Writer) (int64, error) {
	metrics.IncDBFileOp("fetch")

	key := objectKey(s.prefix, id)
	obj := s.client.Bucket(s.bucket).Object(key)

	attrs, err := obj.Attrs(ctx)
	if err != nil {
		return 0, gcsErr(id, "stat gs://"+s.bucket+"/"+key, err)
	}

	r, err := obj.NewReader(ctx)
	if err != nil {
		return 0, gcsErr(id, "open gs://"+s.bucket+"/"+key, err)
	}
	defer r.Close()

	n, err := io.Copy(w, r)
	if err != nil {
		metrics.IncError("gcs_content_store", "download_error")
		return n, gcsErr(id, "copy gs://"+s.bucket+"/"+key, err)
	}
	if n != attrs.Size {
		return n, fmt.Errorf("copy gs://%s/%s: got %d of %d bytes", s.bucket, key, n, attrs.Size)
	}
	return n, nil
}

func (s *GCSContentStore) Ping(ctx context.Context) error {
	if _, err := s.client.Bucket(s.bucket).Attrs(ctx); err != nil {
		if isTransientGCS(err) {
			return fmt.Errorf("ping gs://%s: %w: %v", s.bucket, entity.ErrStoreUnavailable, err)
		}
		return fmt.Errorf("ping gs://%s: %w", s.bucket, err)
	}
	return nil
}

func (s *GCSContentStore) Close() error {
	return s.client.Close()
}

func gcsErr(id primitive.ObjectID, op string, err error) error {
	if errors.Is(err, storage.ErrObjectNotExist) {
		return fmt.Errorf("%w: file %s not found", entity.ErrContentNotFound, id.Hex())
	}
	if isTransientGCS(err) {
		metrics.IncError("gcs_content_store", "unavailable")
		return fmt.Errorf("%s: %w: %v", op, entity.ErrStoreUnavailable, err)
	}
	metrics.IncError("gcs_content_store", "request_error")
	return fmt.Errorf("%s: %w", op, err)
}

func isTransientGCS(err error) bool {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		return gerr.Code >= http.StatusInternalServerError || gerr.Code == http.StatusTooManyRequests
	}
	var nerr net.Error
	return errors.As(err, &nerr) || errors.Is(err, context.DeadlineExceeded)
}

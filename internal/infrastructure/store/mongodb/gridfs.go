package mongodb

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"printpoller/internal/domain/entity"
	"printpoller/internal/domain/repository"
	"printpoller/internal/infrastructure/metrics"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/gridfs"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const DefaultBucket = "pdfs"

// GridFSContentStore reads payloads from the GridFS bucket the upload path writes to.
type GridFSContentStore struct {
	db         *mongo.Database
	bucketName string
	// upper bound for a single transfer when ctx carries no deadline
	readTimeout time.Duration
}

func NewGridFSContentStore(db *mongo.Database, bucketName string, readTimeout time.Duration) *GridFSContentStore {
	if bucketName == "" {
		bucketName = DefaultBucket
	}
	if readTimeout <= 0 {
		readTimeout = 2 * time.Minute
	}
	return &GridFSContentStore{db: db, bucketName: bucketName, readTimeout: readTimeout}
}

var _ repository.ContentStore = (*GridFSContentStore)(nil)

type gridFSFile struct {
	ID       primitive.ObjectID `bson:"_id"`
	Length   int64              `bson:"length"`
	Filename string             `bson:"filename"`
}

func (s *GridFSContentStore) Fetch(ctx context.Context, id primitive.ObjectID, w io.Writer) (int64, error) {
	metrics.IncDBFileOp("fetch")

	var meta gridFSFile
	err := s.db.Collection(s.bucketName+".files").FindOne(ctx, bson.M{"_id": id}).Decode(&meta)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return 0, fmt.Errorf("%w: file %s not found in GridFS", entity.ErrContentNotFound, id.Hex())
		}
		metrics.IncError("gridfs_content_store", "lookup_error")
		return 0, storeErr("lookup file "+id.Hex(), err)
	}

	// Bucket carries its own read deadline, so one per transfer keeps fetches independent.
	bucket, err := gridfs.NewBucket(s.db, options.GridFSBucket().SetName(s.bucketName))
	if err != nil {
		return 0, fmt.Errorf("open bucket %s: %w", s.bucketName, err)
	}
	deadline, ok := ctx.Deadline()
	if !ok {
		deadline = time.Now().Add(s.readTimeout)
	}
	if err := bucket.SetReadDeadline(deadline); err != nil {
		return 0, fmt.Errorf("set read deadline: %w", err)
	}

	n, err := bucket.DownloadToStream(id, w)
	if err != nil {
		metrics.IncError("gridfs_content_store", "download_error")
		if errors.Is(err, gridfs.ErrFileNotFound) {
			return n, fmt.Errorf("%w: file %s not found in GridFS", entity.ErrContentNotFound, id.Hex())
		}
		return n, storeErr("download file "+id.Hex(), err)
	}
	if n != meta.Length {
		return n, fmt.Errorf("download file %s: got %d of %d bytes", id.Hex(), n, meta.Length)
	}
	return n, nil
}

func (s *GridFSContentStore) Ping(ctx context.Context) error {
	if err := s.db.Client().Ping(ctx, nil); err != nil {
		return storeErr("ping content store", err)
	}
	return nil
}

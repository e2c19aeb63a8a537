package mongodb

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"printpoller/internal/domain/entity"
	"printpoller/internal/domain/repository"
	"printpoller/internal/infrastructure/metrics"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.mongodb.org/mongo-driver/x/mongo/driver/topology"
)

const DefaultJobsCollection = "printjobs"

type MongoJobRepo struct {
	jobsCol *mongo.Collection
	logger  *slog.Logger
	now     func() time.Time
}

func NewMongoJobRepo(db *mongo.Database, collection string, logger *slog.Logger) *MongoJobRepo {
	if collection == "" {
		collection = DefaultJobsCollection
	}
	return &MongoJobRepo{
		jobsCol: db.Collection(collection),
		logger:  logger,
		now:     time.Now,
	}
}

var _ repository.JobRepository = (*MongoJobRepo)(nil)

// EnsureIndexes creates the status and jobId indexes used by the poller.
func (r *MongoJobRepo) EnsureIndexes(ctx context.Context) error {
	_, err := r.jobsCol.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{bson.E{Key: "status", Value: 1}}},
		{Keys: bson.D{bson.E{Key: "jobId", Value: 1}}},
	})
	if err != nil {
		return storeErr("create indexes", err)
	}
	return nil
}

func (r *MongoJobRepo) FindActionable(ctx context.Context, exclude []string) ([]*entity.Job, error) {
	metrics.IncDBFileOp("list")

	filter := bson.M{"status": entity.JobStatusProcessing}
	if len(exclude) > 0 {
		filter["jobId"] = bson.M{"$nin": exclude}
	}

	cur, err := r.jobsCol.Find(ctx, filter)
	if err != nil {
		metrics.IncError("mongo_job_repo", "find_actionable_error")
		return nil, storeErr("find actionable jobs", err)
	}
	defer func() {
		if err := cur.Close(ctx); err != nil {
			r.logger.Warn("close cursor failed", "err", err)
		}
	}()

	var jobs []*entity.Job
	for cur.Next(ctx) {
		var j entity.Job
		if err := cur.Decode(&j); err != nil {
			// one undecodable document must not block every other job
			metrics.IncError("mongo_job_repo", "find_actionable_decode_error")
			jobID, _ := cur.Current.Lookup("jobId").StringValueOK()
			r.logger.Error("skip undecodable job document", "job_id", jobID, "err", err)
			continue
		}
		jobs = append(jobs, &j)
	}
	if err := cur.Err(); err != nil {
		metrics.IncError("mongo_job_repo", "find_actionable_cursor_error")
		return nil, storeErr("iterate actionable jobs", err)
	}
	return jobs, nil
}

func (r *MongoJobRepo) GetByID(ctx context.Context, jobID string) (*entity.Job, error) {
	metrics.IncDBFileOp("get")

	var job entity.Job
	err := r.jobsCol.FindOne(ctx, bson.M{"jobId": jobID}).Decode(&job)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("%w: %s", entity.ErrJobNotFound, jobID)
		}
		metrics.IncError("mongo_job_repo", "get_error")
		return nil, storeErr("get job", err)
	}
	return &job, nil
}

// MarkStarted stamps timeline.processingStarted once, leaving an existing stamp untouched.
func (r *MongoJobRepo) MarkStarted(ctx context.Context, jobID string) error {
	metrics.IncDBFileOp("put")

	filter := bson.M{
		"jobId":                      jobID,
		"status":                     entity.JobStatusProcessing,
		"timeline.processingStarted": bson.M{"$exists": false},
	}
	update := bson.M{"$set": bson.M{"timeline.processingStarted": r.now()}}
	if _, err := r.jobsCol.UpdateOne(ctx, filter, update); err != nil {
		metrics.IncError("mongo_job_repo", "mark_started_error")
		return storeErr("mark started", err)
	}
	return nil
}

func (r *MongoJobRepo) MarkCompleted(ctx context.Context, jobID string) error {
	return r.commit(ctx, jobID, entity.JobStatusCompleted, bson.M{
		"status":             entity.JobStatusCompleted,
		"timeline.completed": r.now(),
	})
}

func (r *MongoJobRepo) MarkFailed(ctx context.Context, jobID string, reason string) error {
	if reason == "" {
		reason = "Unknown error"
	}
	return r.commit(ctx, jobID, entity.JobStatusFailed, bson.M{
		"status":          entity.JobStatusFailed,
		"timeline.failed": r.now(),
		"error":           reason,
	})
}

// commit applies a terminal transition. Re-applying the same transition is a no-op
// so the stored timestamps of the first commit are kept.
func (r *MongoJobRepo) commit(ctx context.Context, jobID string, to entity.JobStatus, set bson.M) error {
	metrics.IncDBFileOp("put")

	filter := bson.M{
		"jobId":  jobID,
		"status": bson.M{"$in": bson.A{entity.JobStatusPending, entity.JobStatusProcessing}},
	}
	opts := options.FindOneAndUpdate().
		SetReturnDocument(options.Before).
		SetProjection(bson.M{"status": 1})

	var before struct {
		Status entity.JobStatus `bson:"status"`
	}
	err := r.jobsCol.FindOneAndUpdate(ctx, filter, bson.M{"$set": set}, opts).Decode(&before)
	if err == nil {
		metrics.IncJobStatusChange(string(before.Status), string(to))
		return nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		metrics.IncError("mongo_job_repo", "commit_error")
		return storeErr("commit "+string(to), err)
	}

	current, err := r.GetByID(ctx, jobID)
	if err != nil {
		return err
	}
	if current.Status == to {
		return nil
	}
	return fmt.Errorf("%w: job %s is %s, cannot become %s", entity.ErrInvalidTransition, jobID, current.Status, to)
}

func (r *MongoJobRepo) Ping(ctx context.Context) error {
	if err := r.jobsCol.Database().Client().Ping(ctx, readpref.Primary()); err != nil {
		return storeErr("ping", err)
	}
	return nil
}

// storeErr maps driver connectivity failures onto entity.ErrStoreUnavailable.
func storeErr(op string, err error) error {
	var sse topology.ServerSelectionError
	if mongo.IsNetworkError(err) || mongo.IsTimeout(err) || errors.As(err, &sse) ||
		errors.Is(err, mongo.ErrClientDisconnected) {
		return fmt.Errorf("%s: %w: %v", op, entity.ErrStoreUnavailable, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}

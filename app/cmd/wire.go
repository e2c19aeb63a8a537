package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"printpoller/app/config"
	"printpoller/app/usecase"
	"printpoller/internal/domain/repository"
	"printpoller/internal/infrastructure/pdf"
	"printpoller/internal/infrastructure/printer"
	"printpoller/internal/infrastructure/store/blob"
	"printpoller/internal/infrastructure/store/filesystem"
	mongorepo "printpoller/internal/infrastructure/store/mongodb"
)

func newLogger(cfg *config.Config) *slog.Logger {
	level, _ := config.ParseLevel(cfg.Logging.Level)
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	}))
}

// app holds the wired components shared by run and probe.
type app struct {
	cfg         *config.Config
	logger      *slog.Logger
	mongoClient *mongo.Client
	jobRepo     *mongorepo.MongoJobRepo
	content     repository.ContentStore
	dispatcher  repository.Dispatcher
	workspace   *filesystem.Workspace
	poller      *usecase.PrintPoller

	closers []io.Closer
}

func newApp(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*app, error) {
	a := &app{cfg: cfg, logger: logger}

	// Connect to MongoDB
	connectCtx, cancel := context.WithTimeout(ctx, cfg.Poller.StoreTimeout)
	defer cancel()
	mongoClient, err := mongo.Connect(connectCtx, options.Client().
		ApplyURI(cfg.Mongo.URI).
		SetServerSelectionTimeout(cfg.Poller.StoreTimeout))
	if err != nil {
		return nil, fmt.Errorf("mongo connect: %w", err)
	}
	a.mongoClient = mongoClient
	db := mongoClient.Database(cfg.Mongo.Database)

	// Ping is left to the poller's first probe so a store that is down at
	// startup only delays discovery.
	a.jobRepo = mongorepo.NewMongoJobRepo(db, cfg.Mongo.JobsCollection, logger)

	a.content, err = a.newContentStore(ctx, db)
	if err != nil {
		a.Close(context.Background())
		return nil, err
	}

	a.dispatcher, err = newDispatcher(cfg, logger)
	if err != nil {
		a.Close(context.Background())
		return nil, err
	}

	a.workspace, err = filesystem.NewWorkspace(cfg.Poller.TempDir)
	if err != nil {
		a.Close(context.Background())
		return nil, fmt.Errorf("init workspace: %w", err)
	}

	a.poller = usecase.NewPrintPoller(
		a.jobRepo,
		a.content,
		pdf.NewTransformer(),
		a.dispatcher,
		a.workspace,
		usecase.NewClaimSet(),
		logger,
		usecase.PollerConfig{
			Interval:     cfg.Poller.Interval,
			StoreTimeout: cfg.Poller.StoreTimeout,
			FetchTimeout: cfg.Poller.FetchTimeout,
			PrintTimeout: cfg.Poller.PrintTimeout,
		},
	)
	return a, nil
}

func (a *app) newContentStore(ctx context.Context, db *mongo.Database) (repository.ContentStore, error) {
	c := a.cfg.Content
	switch c.Backend {
	case config.BackendGCS:
		store, err := blob.NewGCSContentStore(ctx, blob.GCSConfig{
			Bucket:    c.Bucket,
			Prefix:    c.Prefix,
			Endpoint:  c.Endpoint,
			Anonymous: c.Anonymous,
		})
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, store)
		a.logger.Info("content backend ready", "backend", c.Backend, "bucket", c.Bucket)
		return store, nil
	case config.BackendS3:
		store, err := blob.NewS3ContentStore(ctx, blob.S3Config{
			Bucket:       c.Bucket,
			Prefix:       c.Prefix,
			Region:       c.Region,
			Endpoint:     c.Endpoint,
			UsePathStyle: c.PathStyle,
			AccessKey:    c.AccessKey,
			SecretKey:    c.SecretKey,
		})
		if err != nil {
			return nil, err
		}
		a.logger.Info("content backend ready", "backend", c.Backend, "bucket", c.Bucket)
		return store, nil
	default:
		a.logger.Info("content backend ready", "backend", config.BackendGridFS, "bucket", a.cfg.Mongo.Bucket)
		return mongorepo.NewGridFSContentStore(db, a.cfg.Mongo.Bucket, a.cfg.Poller.FetchTimeout), nil
	}
}

func newDispatcher(cfg *config.Config, logger *slog.Logger) (repository.Dispatcher, error) {
	p := cfg.Printer
	switch p.Mode {
	case config.PrintModeHTTP:
		logger.Info("print dispatcher ready", "mode", printer.ModeHTTP, "url", p.ServerURL)
		return printer.NewHTTPDispatcher(p.ServerURL, p.Name, cfg.Poller.PrintTimeout, logger), nil
	case config.PrintModeLP:
		logger.Info("print dispatcher ready", "mode", printer.ModeLP, "printer", p.Name)
		return printer.NewLPDispatcher(printer.LPConfig{
			LPBinary:     p.LPBinary,
			LPStatBinary: p.LPStatBinary,
			Printer:      p.Name,
		}, logger), nil
	default:
		return nil, fmt.Errorf("invalid print mode: %s", p.Mode)
	}
}

func (a *app) Close(ctx context.Context) {
	for _, c := range a.closers {
		if err := c.Close(); err != nil {
			a.logger.Error("close failed", "err", err)
		}
	}
	if a.mongoClient != nil {
		a.logger.Info("disconnecting mongo")
		if err := a.mongoClient.Disconnect(ctx); err != nil {
			a.logger.Error("mongo disconnect error", "err", err)
		}
	}
}

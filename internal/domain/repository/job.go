package repository

import (
	"context"

	"printpoller/internal/domain/entity"
)

// JobRepository определяет интерфейс доступа к хранилищу задач печати.
type JobRepository interface {
	// FindActionable returns processing jobs whose id is not in exclude.
	FindActionable(ctx context.Context, exclude []string) ([]*entity.Job, error)
	GetByID(ctx context.Context, jobID string) (*entity.Job, error)
	MarkStarted(ctx context.Context, jobID string) error
	MarkCompleted(ctx context.Context, jobID string) error
	MarkFailed(ctx context.Context, jobID string, reason string) error
	Ping(ctx context.Context) error
}

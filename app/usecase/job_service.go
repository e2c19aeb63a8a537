package usecase

import (
	"context"
	"fmt"
	"time"

	"printpoller/internal/domain/entity"
	"printpoller/internal/domain/repository"
)

// JobUsecase is the read-only operator view of the poller.
type JobUsecase interface {
	GetJob(ctx context.Context, id string) (*entity.Job, error)
	ListClaims() []Claim
	Health(ctx context.Context) Health
}

var _ JobUsecase = (*JobService)(nil)

type JobService struct {
	jobsRepo repository.JobRepository
	poller   *PrintPoller
}

func NewJobService(jr repository.JobRepository, p *PrintPoller) *JobService {
	return &JobService{jobsRepo: jr, poller: p}
}

func (u *JobService) GetJob(ctx context.Context, id string) (*entity.Job, error) {
	if id == "" {
		return nil, fmt.Errorf("%w: empty id", entity.ErrJobNotFound)
	}
	return u.jobsRepo.GetByID(ctx, id)
}

func (u *JobService) ListClaims() []Claim {
	return u.poller.Claims().Claims()
}

type Health struct {
	OK       bool       `json:"ok"`
	Error    string     `json:"error,omitempty"`
	Degraded bool       `json:"degraded"`
	Claims   int        `json:"claims"`
	LastTick *time.Time `json:"lastTick,omitempty"` // nil until the first discovery completes
}

// Health probes every dependency now, independent of the poller's cached state.
func (u *JobService) Health(ctx context.Context) Health {
	h := Health{
		OK:       true,
		Degraded: u.poller.isDegraded(),
		Claims:   u.poller.Claims().Len(),
	}
	if last := u.poller.LastTick(); !last.IsZero() {
		h.LastTick = &last
	}
	if err := u.poller.Probe(ctx); err != nil {
		h.OK = false
		h.Error = err.Error()
	}
	return h
}

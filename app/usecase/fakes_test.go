package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"
	"time"

	"printpoller/internal/domain/entity"
	"printpoller/internal/domain/repository"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeJobRepo struct {
	mu       sync.Mutex
	jobs     map[string]*entity.Job
	down     bool
	excludes [][]string
	// ignoreExclude returns claimed jobs anyway, as a lagging replica might
	ignoreExclude bool
	commits       int
}

func newFakeJobRepo(jobs ...*entity.Job) *fakeJobRepo {
	r := &fakeJobRepo{jobs: make(map[string]*entity.Job)}
	for _, j := range jobs {
		r.jobs[j.JobID] = j
	}
	return r
}

func (r *fakeJobRepo) setDown(v bool) {
	r.mu.Lock()
	r.down = v
	r.mu.Unlock()
}

func (r *fakeJobRepo) unavailable(op string) error {
	return fmt.Errorf("%s: %w: connection refused", op, entity.ErrStoreUnavailable)
}

func (r *fakeJobRepo) FindActionable(_ context.Context, exclude []string) ([]*entity.Job, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.down {
		return nil, r.unavailable("find actionable jobs")
	}
	r.excludes = append(r.excludes, append([]string(nil), exclude...))

	skip := make(map[string]bool, len(exclude))
	if !r.ignoreExclude {
		for _, id := range exclude {
			skip[id] = true
		}
	}

	var out []*entity.Job
	for id, j := range r.jobs {
		if j.Status == entity.JobStatusProcessing && !skip[id] {
			cp := *j
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *fakeJobRepo) GetByID(_ context.Context, jobID string) (*entity.Job, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	j, ok := r.jobs[jobID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", entity.ErrJobNotFound, jobID)
	}
	cp := *j
	return &cp, nil
}

func (r *fakeJobRepo) MarkStarted(_ context.Context, jobID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.down {
		return r.unavailable("mark started")
	}
	j, ok := r.jobs[jobID]
	if !ok {
		return nil
	}
	r.stamp(j, entity.TimelineProcessingStarted)
	return nil
}

func (r *fakeJobRepo) MarkCompleted(_ context.Context, jobID string) error {
	return r.commit(jobID, entity.JobStatusCompleted, "")
}

func (r *fakeJobRepo) MarkFailed(_ context.Context, jobID, reason string) error {
	return r.commit(jobID, entity.JobStatusFailed, reason)
}

func (r *fakeJobRepo) commit(jobID string, to entity.JobStatus, reason string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.down {
		return r.unavailable("commit")
	}
	j, ok := r.jobs[jobID]
	if !ok {
		return fmt.Errorf("%w: %s", entity.ErrJobNotFound, jobID)
	}
	if j.Status == to {
		return nil
	}
	if !j.Status.CanCommit() {
		return fmt.Errorf("%w: %s", entity.ErrInvalidTransition, j.Status)
	}
	r.commits++
	j.Status = to
	if to == entity.JobStatusFailed {
		j.Error = reason
		r.stamp(j, entity.TimelineFailed)
	} else {
		r.stamp(j, entity.TimelineCompleted)
	}
	return nil
}

func (r *fakeJobRepo) stamp(j *entity.Job, event string) {
	if j.Timeline == nil {
		j.Timeline = map[string]time.Time{}
	}
	if _, ok := j.Timeline[event]; !ok {
		j.Timeline[event] = time.Now()
	}
}

func (r *fakeJobRepo) Ping(context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.down {
		return r.unavailable("ping")
	}
	return nil
}

func (r *fakeJobRepo) job(id string) entity.Job {
	r.mu.Lock()
	defer r.mu.Unlock()
	return *r.jobs[id]
}

type fakeContent struct {
	mu      sync.Mutex
	files   map[primitive.ObjectID][]byte
	fetched []primitive.ObjectID
}

func newFakeContent() *fakeContent {
	return &fakeContent{files: make(map[primitive.ObjectID][]byte)}
}

func (c *fakeContent) add(data string) primitive.ObjectID {
	id := primitive.NewObjectID()
	c.mu.Lock()
	c.files[id] = []byte(data)
	c.mu.Unlock()
	return id
}

func (c *fakeContent) Fetch(_ context.Context, id primitive.ObjectID, w io.Writer) (int64, error) {
	c.mu.Lock()
	c.fetched = append(c.fetched, id)
	data, ok := c.files[id]
	c.mu.Unlock()
	if !ok {
		return 0, fmt.Errorf("%w: file %s not found in GridFS", entity.ErrContentNotFound, id.Hex())
	}
	n, err := w.Write(data)
	return int64(n), err
}

func (c *fakeContent) Ping(context.Context) error { return nil }

func (c *fakeContent) fetchCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.fetched)
}

type extractCall struct {
	src, dst, expr string
}

type fakeTransformer struct {
	mu    sync.Mutex
	calls []extractCall
	err   error
}

func (t *fakeTransformer) ExtractPages(_ context.Context, src, dst, expr string) (int, error) {
	t.mu.Lock()
	t.calls = append(t.calls, extractCall{src, dst, expr})
	err := t.err
	t.mu.Unlock()
	if err != nil {
		return 0, err
	}
	return 1, nil
}

type submitCall struct {
	docPath    string
	ticketPath string
	// ticket is decoded at submit time, before the scope is cleaned up
	ticket    entity.PrintTicket
	ticketErr error
	opts      entity.PrintOptions
}

type fakeDispatcher struct {
	mu       sync.Mutex
	calls    []submitCall
	submit   func(docPath string, opts entity.PrintOptions) (entity.DispatchResult, error)
	probeErr error
}

func (d *fakeDispatcher) Submit(_ context.Context, doc repository.Document, opts entity.PrintOptions) (entity.DispatchResult, error) {
	call := submitCall{docPath: doc.Path, ticketPath: doc.TicketPath, opts: opts}
	raw, err := os.ReadFile(doc.TicketPath)
	if err == nil {
		err = json.Unmarshal(raw, &call.ticket)
	}
	call.ticketErr = err

	d.mu.Lock()
	d.calls = append(d.calls, call)
	fn := d.submit
	d.mu.Unlock()
	if fn != nil {
		return fn(doc.Path, opts)
	}
	return entity.DispatchResult{Accepted: true, Message: "queued", JobReference: "Office-1"}, nil
}

func (d *fakeDispatcher) Probe(context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.probeErr
}

func (d *fakeDispatcher) submitted() []submitCall {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]submitCall(nil), d.calls...)
}

package transport

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"printpoller/app/usecase"
	"printpoller/internal/domain/entity"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeJobService struct {
	jobs   map[string]*entity.Job
	getErr error
	claims []usecase.Claim
	health usecase.Health
}

func (f *fakeJobService) GetJob(_ context.Context, id string) (*entity.Job, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	j, ok := f.jobs[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", entity.ErrJobNotFound, id)
	}
	return j, nil
}

func (f *fakeJobService) ListClaims() []usecase.Claim {
	return f.claims
}

func (f *fakeJobService) Health(context.Context) usecase.Health {
	return f.health
}

func newTestRouter(t *testing.T, svc usecase.JobUsecase) *mux.Router {
	t.Helper()
	reg := prometheus.NewRegistry()
	h := NewOpsHandler(svc, slog.New(slog.NewTextHandler(io.Discard, nil)), reg, reg)
	r := mux.NewRouter()
	h.RegisterRoutes(r)
	return r
}

func do(r http.Handler, method, path string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(method, path, nil))
	return rec
}

func TestOpsHandler_Health(t *testing.T) {
	svc := &fakeJobService{health: usecase.Health{OK: true, Claims: 2}}
	r := newTestRouter(t, svc)

	rec := do(r, http.MethodGet, "/api/v1/health")
	assert.Equal(t, http.StatusOK, rec.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, true, body["ok"])
	assert.EqualValues(t, 2, body["claims"])
	assert.Contains(t, body, "ts")

	svc.health = usecase.Health{OK: false, Error: "store unavailable", Degraded: true}
	rec = do(r, http.MethodGet, "/api/v1/health")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "store unavailable")
}

func TestOpsHandler_Claims(t *testing.T) {
	at := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	svc := &fakeJobService{claims: []usecase.Claim{{JobID: "job-1", ClaimedAt: at}}}
	r := newTestRouter(t, svc)

	rec := do(r, http.MethodGet, "/api/v1/claims")
	assert.Equal(t, http.StatusOK, rec.Code)

	var claims []usecase.Claim
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &claims))
	require.Len(t, claims, 1)
	assert.Equal(t, "job-1", claims[0].JobID)
}

func TestOpsHandler_GetJob(t *testing.T) {
	svc := &fakeJobService{jobs: map[string]*entity.Job{
		"job-1": {JobID: "job-1", OrderID: "ORD-1", Status: entity.JobStatusProcessing},
	}}
	r := newTestRouter(t, svc)

	rec := do(r, http.MethodGet, "/api/v1/jobs/job-1")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"orderId":"ORD-1"`)

	rec = do(r, http.MethodGet, "/api/v1/jobs/missing")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	svc.getErr = fmt.Errorf("get job: %w: timeout", entity.ErrStoreUnavailable)
	rec = do(r, http.MethodGet, "/api/v1/jobs/job-1")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestOpsHandler_GetJobWithControlBytes(t *testing.T) {
	svc := &fakeJobService{jobs: map[string]*entity.Job{
		"job-1": {
			JobID:  "job-1",
			Status: entity.JobStatusFailed,
			Files:  []entity.FileEntry{{FileID: entity.StringRef("bad\x01id"), Filename: "a.pdf"}},
		},
	}}
	r := newTestRouter(t, svc)

	rec := do(r, http.MethodGet, "/api/v1/jobs/job-1")
	assert.Equal(t, http.StatusOK, rec.Code)
	require.True(t, json.Valid(rec.Body.Bytes()))

	var job struct {
		Files []struct {
			FileID string `json:"fileId"`
		} `json:"files"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &job))
	require.Len(t, job.Files, 1)
	assert.Equal(t, "bad\x01id", job.Files[0].FileID)
}

func TestWriteJSON_EncodeFailure(t *testing.T) {
	rec := httptest.NewRecorder()
	writeJSON(rec, http.StatusOK, map[string]any{"bad": make(chan int)})

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.True(t, json.Valid(rec.Body.Bytes()))
	assert.Contains(t, rec.Body.String(), "failed to encode response")
}

func TestOpsHandler_Metrics(t *testing.T) {
	r := newTestRouter(t, &fakeJobService{jobs: map[string]*entity.Job{}})

	do(r, http.MethodGet, "/api/v1/jobs/abc")
	rec := do(r, http.MethodGet, "/metrics")
	assert.Equal(t, http.StatusOK, rec.Code)

	body := rec.Body.String()
	assert.True(t, strings.Contains(body, `printpoller_http_requests_total{method="GET",path="/api/v1/jobs/{id}"} 1`), body)
	assert.Contains(t, body, "printpoller_http_errors_total")
}

package handlers

import (
	"context"
	"net/http"
	"slices"
	"sort"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/donaldgifford/hotel-price-tracker/internal/engine"
	domain "github.com/donaldgifford/hotel-price-tracker/pkg/types"
)

// JobsProvider defines the store methods required by the jobs handler.
type JobsProvider interface {
	ListLatestJobRuns(ctx context.Context) ([]domain.JobRun, error)
	ListJobRuns(ctx context.Context, jobName string, limit int) ([]domain.JobRun, error)
}

// JobSchedule reports the next fire time of each registered job.
type JobSchedule interface {
	NextRuns() map[string]time.Time
}

// JobsHandler serves scheduler state: what is registered, when it fires
// next and how its runs went.
type JobsHandler struct {
	store    JobsProvider
	schedule JobSchedule
}

// NewJobsHandler creates a new JobsHandler. A nil schedule reports every
// job as unscheduled.
func NewJobsHandler(s JobsProvider, schedule JobSchedule) *JobsHandler {
	return &JobsHandler{store: s, schedule: schedule}
}

// ListJobsOutput is the response body for the job overview.
type ListJobsOutput struct {
	Body []domain.JobStatus
}

// GetJobHistoryInput selects a job's history.
type GetJobHistoryInput struct {
	JobName string `path:"job_name" doc:"Scheduled job name (price_check, alert_cleanup, alert_digest_daily, alert_digest_weekly)"`
	Limit   int    `query:"limit"   doc:"Number of runs (default 20)" minimum:"0" maximum:"200"`
}

// GetJobHistoryOutput is the response body for a single job's history.
type GetJobHistoryOutput struct {
	Body []domain.JobRun
}

const defaultJobHistoryLimit = 20

// ListJobs returns one entry per known job with its schedule and latest
// run. Jobs that are neither scheduled nor have ever run are omitted; runs
// recorded under names this build does not know are appended at the end.
func (h *JobsHandler) ListJobs(
	ctx context.Context,
	_ *struct{},
) (*ListJobsOutput, error) {
	runs, err := h.store.ListLatestJobRuns(ctx)
	if err != nil {
		return nil, huma.Error500InternalServerError("listing jobs failed: " + err.Error())
	}

	latest := make(map[string]*domain.JobRun, len(runs))
	for i := range runs {
		latest[runs[i].JobName] = &runs[i]
	}
	var next map[string]time.Time
	if h.schedule != nil {
		next = h.schedule.NextRuns()
	}

	out := []domain.JobStatus{}
	for _, name := range engine.KnownJobs {
		at, scheduled := next[name]
		last := latest[name]
		if !scheduled && last == nil {
			continue
		}
		js := domain.JobStatus{Name: name, Scheduled: scheduled, LastRun: last}
		if !at.IsZero() {
			js.NextRun = &at
		}
		out = append(out, js)
		delete(latest, name)
	}

	var orphans []string
	for name := range latest {
		orphans = append(orphans, name)
	}
	sort.Strings(orphans)
	for _, name := range orphans {
		out = append(out, domain.JobStatus{Name: name, LastRun: latest[name]})
	}

	return &ListJobsOutput{Body: out}, nil
}

// GetJobHistory returns the run history for a specific scheduler job.
func (h *JobsHandler) GetJobHistory(
	ctx context.Context,
	input *GetJobHistoryInput,
) (*GetJobHistoryOutput, error) {
	if !slices.Contains(engine.KnownJobs, input.JobName) {
		return nil, huma.Error404NotFound("unknown job " + input.JobName)
	}

	limit := input.Limit
	if limit == 0 {
		limit = defaultJobHistoryLimit
	}

	runs, err := h.store.ListJobRuns(ctx, input.JobName, limit)
	if err != nil {
		return nil, huma.Error500InternalServerError("fetching job history failed: " + err.Error())
	}
	if runs == nil {
		runs = []domain.JobRun{}
	}

	return &GetJobHistoryOutput{Body: runs}, nil
}

// RegisterJobRoutes registers scheduler job endpoints with the Huma API.
func RegisterJobRoutes(api huma.API, h *JobsHandler) {
	huma.Register(api, huma.Operation{
		OperationID: "list-jobs",
		Method:      http.MethodGet,
		Path:        "/api/v1/jobs",
		Summary:     "List scheduled jobs",
		Description: "Returns each job's schedule state, next fire time and latest run, including crashed runs recovered at startup.",
		Tags:        []string{"scheduler"},
		Errors:      []int{http.StatusInternalServerError},
	}, h.ListJobs)

	huma.Register(api, huma.Operation{
		OperationID: "get-job-history",
		Method:      http.MethodGet,
		Path:        "/api/v1/jobs/{job_name}",
		Summary:     "Get scheduler job history",
		Description: "Returns the run history for a scheduled job, newest first.",
		Tags:        []string{"scheduler"},
		Errors:      []int{http.StatusNotFound, http.StatusInternalServerError},
	}, h.GetJobHistory)
}

package client

import (
	"context"
	"net/url"
	"strconv"

	domain "github.com/donaldgifford/hotel-price-tracker/pkg/types"
)

// ListJobs returns each job's schedule state and latest run.
func (c *Client) ListJobs(ctx context.Context) ([]domain.JobStatus, error) {
	var jobs []domain.JobStatus
	if err := c.get(ctx, "/api/v1/jobs", nil, &jobs); err != nil {
		return nil, err
	}
	return jobs, nil
}

// GetJobHistory returns up to limit runs of one job, newest first. A zero
// limit uses the server default.
func (c *Client) GetJobHistory(ctx context.Context, jobName string, limit int) ([]domain.JobRun, error) {
	q := url.Values{}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	var runs []domain.JobRun
	if err := c.get(ctx, "/api/v1/jobs/"+url.PathEscape(jobName), q, &runs); err != nil {
		return nil, err
	}
	return runs, nil
}

package engine

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/donaldgifford/hotel-price-tracker/internal/metrics"
)

// ErrQueueFull is returned when the check queue cannot take more requests.
var ErrQueueFull = errors.New("check queue full")

const defaultQueueSize = 64

// CheckRequest asks for a check cycle, a single booking check, or an
// alert cleanup to run in the background.
type CheckRequest struct {
	ID          string `json:"id"`
	BookingID   string `json:"booking_id,omitempty"`
	Force       bool   `json:"force,omitempty"`
	CleanupOnly bool   `json:"cleanup_only,omitempty"`
}

// Queue runs check requests one at a time on a background worker.
type Queue struct {
	monitor *Monitor
	reqs    chan CheckRequest
	log     *slog.Logger
	wg      sync.WaitGroup
}

// NewQueue creates a queue holding up to size pending requests.
func NewQueue(m *Monitor, size int, log *slog.Logger) *Queue {
	if size <= 0 {
		size = defaultQueueSize
	}
	return &Queue{
		monitor: m,
		reqs:    make(chan CheckRequest, size),
		log:     log,
	}
}

// Enqueue adds req without blocking and returns it with its assigned ID.
func (q *Queue) Enqueue(req CheckRequest) (CheckRequest, error) {
	if req.ID == "" {
		req.ID = uuid.NewString()
	}
	select {
	case q.reqs <- req:
		metrics.CheckQueueDepth.Set(float64(len(q.reqs)))
		return req, nil
	default:
		return req, ErrQueueFull
	}
}

// Len returns the number of pending requests.
func (q *Queue) Len() int {
	return len(q.reqs)
}

// Start runs the worker until ctx is done.
func (q *Queue) Start(ctx context.Context) {
	q.wg.Add(1)
	go func() {
		defer q.wg.Done()
		for {
			select {
			case <-ctx.Done():
				return
			case req := <-q.reqs:
				metrics.CheckQueueDepth.Set(float64(len(q.reqs)))
				q.process(ctx, req)
			}
		}
	}()
}

// Wait blocks until the worker has exited.
func (q *Queue) Wait() {
	q.wg.Wait()
}

func (q *Queue) process(ctx context.Context, req CheckRequest) {
	log := q.log.With("request_id", req.ID)

	switch {
	case req.CleanupOnly:
		n, err := q.monitor.CleanupOldAlerts(ctx)
		if err != nil {
			log.Error("queued cleanup failed", "error", err)
			return
		}
		log.Info("queued cleanup complete", "deleted", n)

	case req.BookingID != "":
		res, err := q.monitor.CheckBooking(ctx, req.BookingID, req.Force)
		if err != nil {
			log.Error("queued booking check failed", "booking_id", req.BookingID, "error", err)
			return
		}
		log.Info("queued booking check complete", "booking_id", req.BookingID, "outcome", res.Outcome)

	default:
		n, err := q.monitor.RunCycle(ctx, "")
		if err != nil {
			log.Error("queued check cycle failed", "error", err)
			return
		}
		log.Info("queued check cycle complete", "alerts_created", n)
	}
}

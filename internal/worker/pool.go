package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const (
	QueueBillArchive = "jobs:bill_archive"
	QueueEmail       = "jobs:email"

	JobBillArchive = "bill_archive"
	JobEmail       = "email"

	// MaxAttempts is how many times a job runs before it goes to the DLQ.
	MaxAttempts = 3
)

// Job is the generic envelope for all async tasks.
type Job struct {
	Type     string          `json:"type"`
	Payload  json.RawMessage `json:"payload"`
	Attempts int             `json:"attempts"`
}

// Handler processes one job payload. A returned error schedules a retry.
type Handler interface {
	Process(ctx context.Context, raw json.RawMessage) error
}

// WorkerHandlers maps job types onto their handlers. Nil handlers drop the job.
type WorkerHandlers struct {
	BillArchive Handler
	Email       Handler
}

func (h *WorkerHandlers) forType(jobType string) (Handler, bool) {
	if h == nil {
		return nil, false
	}
	switch jobType {
	case JobBillArchive:
		return h.BillArchive, h.BillArchive != nil
	case JobEmail:
		return h.Email, h.Email != nil
	}
	return nil, false
}

// Dispatcher enqueues async jobs into Redis lists.
// The worker pool dequeues them via BRPOP.
type Dispatcher struct {
	rdb *redis.Client
}

func NewDispatcher(rdb *redis.Client) *Dispatcher {
	return &Dispatcher{rdb: rdb}
}

// EnqueueBillArchive pushes a receipt archive job to Redis.
func (d *Dispatcher) EnqueueBillArchive(ctx context.Context, payload BillArchivePayload) error {
	return d.enqueue(ctx, QueueBillArchive, JobBillArchive, payload)
}

// EnqueueEmail pushes an email job to Redis.
func (d *Dispatcher) EnqueueEmail(ctx context.Context, payload EmailJobPayload) error {
	return d.enqueue(ctx, QueueEmail, JobEmail, payload)
}

func (d *Dispatcher) enqueue(ctx context.Context, queue, jobType string, payload interface{}) error {
	if d == nil || d.rdb == nil {
		return fmt.Errorf("worker: queue unavailable")
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	return d.push(ctx, queue, Job{Type: jobType, Payload: data})
}

func (d *Dispatcher) push(ctx context.Context, queue string, job Job) error {
	encoded, err := json.Marshal(job)
	if err != nil {
		return err
	}
	return d.rdb.LPush(ctx, queue, encoded).Err()
}

func queueFor(jobType string) string {
	if jobType == JobEmail {
		return QueueEmail
	}
	return QueueBillArchive
}

// StartWorkerPool launches numWorkers goroutines consuming both queues.
// Each goroutine blocks on BRPOP, zero CPU when idle.
func StartWorkerPool(ctx context.Context, rdb *redis.Client, handlers *WorkerHandlers, numWorkers int) {
	if numWorkers < 1 {
		numWorkers = 1
	}
	d := NewDispatcher(rdb)
	for i := 0; i < numWorkers; i++ {
		go runWorker(ctx, d, handlers, i)
	}
	log.Info().Msgf("worker pool started with %d workers", numWorkers)
}

func runWorker(ctx context.Context, d *Dispatcher, handlers *WorkerHandlers, id int) {
	queues := []string{QueueBillArchive, QueueEmail}
	for {
		select {
		case <-ctx.Done():
			log.Info().Msgf("worker %d shutting down", id)
			return
		default:
			// Blocking pop: waits up to 5s then loops to check ctx
			result, err := d.rdb.BRPop(ctx, 5*time.Second, queues...).Result()
			if err != nil {
				continue // timeout or context cancelled
			}
			if len(result) < 2 {
				continue
			}
			processJob(ctx, d, handlers, result[0], result[1])
		}
	}
}

// outcome of one job run
type outcome int

const (
	outcomeDone outcome = iota
	outcomeRetry
	outcomeDead
)

// runJob executes job and decides what happens to it next.
func runJob(ctx context.Context, handlers *WorkerHandlers, job *Job) (outcome, error) {
	h, ok := handlers.forType(job.Type)
	if !ok {
		return outcomeDead, fmt.Errorf("no handler for job type %q", job.Type)
	}
	job.Attempts++
	if err := h.Process(ctx, job.Payload); err != nil {
		if job.Attempts >= MaxAttempts {
			return outcomeDead, err
		}
		return outcomeRetry, err
	}
	return outcomeDone, nil
}

func processJob(ctx context.Context, d *Dispatcher, handlers *WorkerHandlers, queue, raw string) {
	var job Job
	if err := json.Unmarshal([]byte(raw), &job); err != nil {
		log.Error().Str("queue", queue).Err(err).Msg("failed to unmarshal job")
		SendToDLQ(ctx, d.rdb, queue, "unknown", json.RawMessage(raw), "malformed envelope", 0)
		return
	}

	switch res, err := runJob(ctx, handlers, &job); res {
	case outcomeDone:
		log.Debug().Str("type", job.Type).Int("attempt", job.Attempts).Msg("job done")
	case outcomeRetry:
		log.Warn().Err(err).Str("type", job.Type).Int("attempt", job.Attempts).Msg("job failed, requeueing")
		backoff(ctx, job.Attempts)
		if perr := d.push(ctx, queueFor(job.Type), job); perr != nil {
			SendToDLQ(ctx, d.rdb, queue, job.Type, job.Payload, "requeue failed: "+perr.Error(), job.Attempts)
		}
	case outcomeDead:
		SendToDLQ(ctx, d.rdb, queue, job.Type, job.Payload, err.Error(), job.Attempts)
	}
}

// backoff sleeps 1s, 2s, 4s… after the given attempt, or until ctx ends.
func backoff(ctx context.Context, attempt int) {
	wait := time.Duration(1<<uint(attempt-1)) * time.Second
	select {
	case <-ctx.Done():
	case <-time.After(wait):
	}
}

package worker

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const (
	QueueResumo = "jobs:resumo"
	QueueEmail  = "jobs:email"

	JobResumo = "resumo"
	JobEmail  = "email"

	// MaxJobAttempts bounds retries before a job is moved to the DLQ.
	MaxJobAttempts = 3
)

// Job is the generic envelope for all async tasks.
type Job struct {
	Type     string          `json:"type"`
	Payload  json.RawMessage `json:"payload"`
	Attempts int             `json:"attempts"`
	Redrives int             `json:"redrives,omitempty"` // times moved back from the DLQ
}

// JobHandler processes one payload. Returning ErrPermanent (or wrapping it)
// drops the job without retry.
type JobHandler func(ctx context.Context, payload json.RawMessage) error

// ErrPermanent marks failures that retrying cannot fix (bad payload, missing row).
var ErrPermanent = errors.New("permanent job failure")

// Dispatcher enqueues async jobs into Redis lists.
// The worker pool dequeues them via BRPOP.
type Dispatcher struct {
	rdb *redis.Client
}

func NewDispatcher(rdb *redis.Client) *Dispatcher {
	return &Dispatcher{rdb: rdb}
}

// EnqueueResumo schedules PDF generation for a freshly stored closing.
func (d *Dispatcher) EnqueueResumo(ctx context.Context, fechamentoID string) error {
	return d.enqueue(ctx, QueueResumo, JobResumo, ResumoJobPayload{FechamentoID: fechamentoID})
}

// EnqueueEmail pushes an email job to Redis.
func (d *Dispatcher) EnqueueEmail(ctx context.Context, payload EmailJobPayload) error {
	return d.enqueue(ctx, QueueEmail, JobEmail, payload)
}

func (d *Dispatcher) enqueue(ctx context.Context, queue, jobType string, payload interface{}) error {
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

// queueFor maps a job type back to its list.
func queueFor(jobType string) string {
	if jobType == JobEmail {
		return QueueEmail
	}
	return QueueResumo
}

// StartWorkerPool launches numWorkers goroutines consuming both queues.
// Each goroutine blocks on BRPOP — zero CPU when idle. The returned
// WaitGroup is done once every worker has observed ctx cancellation.
func StartWorkerPool(ctx context.Context, rdb *redis.Client, numWorkers int, handlers map[string]JobHandler) *sync.WaitGroup {
	p := &pool{dispatcher: NewDispatcher(rdb), rdb: rdb, handlers: handlers}
	var wg sync.WaitGroup
	for i := 0; i < numWorkers; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			p.run(ctx, id)
		}(i)
	}
	log.Info().Msgf("worker pool started with %d workers", numWorkers)
	return &wg
}

type pool struct {
	dispatcher *Dispatcher
	rdb        *redis.Client
	handlers   map[string]JobHandler
}

func (p *pool) run(ctx context.Context, id int) {
	queues := []string{QueueResumo, QueueEmail}
	for {
		select {
		case <-ctx.Done():
			log.Info().Msgf("worker %d shutting down", id)
			return
		default:
			// Blocking pop — waits up to 5s then loops to check ctx
			result, err := p.rdb.BRPop(ctx, 5*time.Second, queues...).Result()
			if err != nil {
				continue // timeout or context cancelled
			}
			if len(result) < 2 {
				continue
			}
			p.process(ctx, result[0], result[1])
		}
	}
}

func (p *pool) process(ctx context.Context, queue, raw string) {
	var job Job
	if err := json.Unmarshal([]byte(raw), &job); err != nil {
		log.Error().Str("queue", queue).Err(err).Msg("failed to unmarshal job")
		return
	}

	handler, ok := p.handlers[job.Type]
	if !ok {
		SendToDLQ(ctx, p.rdb, queue, job, "no handler registered")
		return
	}

	job.Attempts++
	err := handler(ctx, job.Payload)
	switch {
	case err == nil:
		log.Debug().Str("type", job.Type).Int("attempt", job.Attempts).Msg("job done")
	case errors.Is(err, ErrPermanent):
		log.Error().Err(err).Str("type", job.Type).Msg("job dropped")
	case job.Attempts >= MaxJobAttempts:
		SendToDLQ(ctx, p.rdb, queue, job, err.Error())
	default:
		log.Warn().Err(err).Str("type", job.Type).Int("attempt", job.Attempts).Msg("job failed, requeueing")
		if err := p.dispatcher.push(ctx, queueFor(job.Type), job); err != nil {
			log.Error().Err(err).Str("type", job.Type).Msg("requeue failed")
		}
	}
}

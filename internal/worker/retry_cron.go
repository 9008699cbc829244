package worker

// retry_cron.go
// Background goroutine that periodically moves dead-lettered e-mail jobs back
// to their queue once the SMTP circuit breaker is closed again. Each job is
// redriven at most MaxRedrives times; after that it stays in the DLQ.

import (
	"context"
	"encoding/json"
	"time"

	"caixadiario/internal/infra"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const (
	redriveTickInterval = 15 * time.Minute
	redriveBatchSize    = 20

	// MaxRedrives bounds how often one job may leave the DLQ.
	MaxRedrives = 3
)

// RetryCronConfig holds all dependencies for the redrive goroutine.
type RetryCronConfig struct {
	RDB      *redis.Client
	CB       *infra.CircuitBreaker // skip ticks while open
	Queue    string                // source queue, e.g. QueueEmail
	Interval time.Duration         // defaults to redriveTickInterval
}

// StartRetryCron launches the redrive loop. It respects ctx for graceful
// shutdown.
func StartRetryCron(ctx context.Context, cfg RetryCronConfig) {
	interval := cfg.Interval
	if interval <= 0 {
		interval = redriveTickInterval
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		log.Info().Str("queue", cfg.Queue).Dur("interval", interval).Msg("retry_cron: started")

		for {
			select {
			case <-ctx.Done():
				log.Info().Msg("retry_cron: shutting down")
				return
			case <-ticker.C:
				processRetries(ctx, cfg)
			}
		}
	}()
}

func processRetries(ctx context.Context, cfg RetryCronConfig) {
	// Redriving into a downed SMTP server only refills the DLQ.
	if cfg.CB != nil && cfg.CB.State() == infra.CBOpen {
		log.Debug().Msg("retry_cron: circuit breaker is open, skipping tick")
		return
	}

	dlqKey := DLQPrefix + cfg.Queue
	pending, err := cfg.RDB.LLen(ctx, dlqKey).Result()
	if err != nil {
		log.Error().Err(err).Str("dlq_key", dlqKey).Msg("retry_cron: failed to read DLQ length")
		return
	}
	if pending > redriveBatchSize {
		pending = redriveBatchSize
	}

	moved := 0
	for i := int64(0); i < pending; i++ {
		raw, err := cfg.RDB.RPop(ctx, dlqKey).Result()
		if err == redis.Nil {
			break
		}
		if err != nil {
			log.Error().Err(err).Str("dlq_key", dlqKey).Msg("retry_cron: pop failed")
			return
		}

		job, ok := redrivable(raw)
		if !ok {
			// Exhausted or unreadable: rotate it back for manual inspection.
			if err := cfg.RDB.LPush(ctx, dlqKey, raw).Err(); err != nil {
				log.Error().Err(err).Str("dlq_key", dlqKey).Msg("retry_cron: failed to park entry")
			}
			continue
		}

		encoded, err := json.Marshal(job)
		if err != nil {
			continue
		}
		if err := cfg.RDB.LPush(ctx, cfg.Queue, encoded).Err(); err != nil {
			log.Error().Err(err).Str("queue", cfg.Queue).Msg("retry_cron: requeue failed, restoring DLQ entry")
			_ = cfg.RDB.RPush(ctx, dlqKey, raw).Err()
			return
		}
		moved++
	}

	if moved > 0 {
		log.Info().Int("count", moved).Str("queue", cfg.Queue).Msg("retry_cron: jobs redriven")
	}
}

// redrivable turns a DLQ entry back into a fresh job, or reports false when
// the entry is unreadable, has no type, or has used up its redrives.
func redrivable(raw string) (Job, bool) {
	var entry DLQEntry
	if err := json.Unmarshal([]byte(raw), &entry); err != nil || entry.JobType == "" {
		return Job{}, false
	}
	if entry.Redrives >= MaxRedrives {
		return Job{}, false
	}
	return Job{Type: entry.JobType, Payload: entry.Payload, Redrives: entry.Redrives + 1}, true
}

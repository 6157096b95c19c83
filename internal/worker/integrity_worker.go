package worker

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stemsi/proctor-backend/internal/config"
	"github.com/stemsi/proctor-backend/internal/model"
	"github.com/stemsi/proctor-backend/internal/session"
)

const (
	BatchSize    = 50
	BatchTimeout = 2 * time.Second
	PollTimeout  = 1 * time.Second // Must be >= 1s to satisfy Redis
)

// IntegrityEventStore is where drained events end up.
type IntegrityEventStore interface {
	BulkInsert(ctx context.Context, events []model.IntegrityEvent) error
	Insert(ctx context.Context, e model.IntegrityEvent) error
}

// IntegrityQueue pushes counted violations onto the Redis audit queue.
// It implements session.ViolationRecorder.
type IntegrityQueue struct {
	rdb *redis.Client
	log zerolog.Logger
}

// NewIntegrityQueue creates a new IntegrityQueue.
func NewIntegrityQueue(rdb *redis.Client, log zerolog.Logger) *IntegrityQueue {
	return &IntegrityQueue{
		rdb: rdb,
		log: log.With().Str("component", "integrity_queue").Logger(),
	}
}

var _ session.ViolationRecorder = (*IntegrityQueue)(nil)

// RecordViolation enqueues the event. Failures are logged and dropped; the
// authoritative count lives in the attempt state.
func (q *IntegrityQueue) RecordViolation(ctx context.Context, key session.AttemptKey, count int, at time.Time) {
	data, err := json.Marshal(model.IntegrityEvent{
		StudentID:  key.StudentID,
		ExamID:     key.ExamID,
		Violations: count,
		OccurredAt: at,
	})
	if err != nil {
		q.log.Error().Err(err).Msg("Failed to encode integrity event")
		return
	}
	if err := q.rdb.RPush(ctx, config.WorkerKey.PersistIntegrityQueue, data).Err(); err != nil {
		q.log.Error().Err(err).Str("attempt", key.String()).Msg("Failed to enqueue integrity event")
	}
}

// IntegrityWorker drains the audit queue into the database in batches.
type IntegrityWorker struct {
	store IntegrityEventStore
	rdb   *redis.Client
	log   zerolog.Logger

	batchSize      int
	batchTimeout   time.Duration
	requeueBackoff time.Duration
}

func NewIntegrityWorker(store IntegrityEventStore, rdb *redis.Client, log zerolog.Logger) *IntegrityWorker {
	return &IntegrityWorker{
		store:          store,
		rdb:            rdb,
		log:            log.With().Str("component", "integrity_worker").Logger(),
		batchSize:      BatchSize,
		batchTimeout:   BatchTimeout,
		requeueBackoff: 2 * time.Second,
	}
}

func (w *IntegrityWorker) Start(ctx context.Context) {
	w.log.Info().Msg("IntegrityWorker started")

	buffer := make([]model.IntegrityEvent, 0, w.batchSize)
	lastFlushTime := time.Now()

	for {
		if len(buffer) > 0 && (len(buffer) >= w.batchSize || time.Since(lastFlushTime) >= w.batchTimeout) {
			w.flushSafe(ctx, buffer)
			buffer = buffer[:0]
			lastFlushTime = time.Now()
		}

		select {
		case <-ctx.Done():
			w.shutdown(buffer)
			return
		default:
		}

		// BLPop blocks for PollTimeout and returns immediately if data exists.
		result, err := w.rdb.BLPop(ctx, PollTimeout, config.WorkerKey.PersistIntegrityQueue).Result()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				continue
			}
			if ctx.Err() != nil {
				w.shutdown(buffer)
				return
			}
			w.log.Error().Err(err).Msg("Redis connection error, sleeping 3s")
			time.Sleep(3 * time.Second)
			continue
		}

		if len(result) < 2 {
			continue
		}

		var event model.IntegrityEvent
		if err := json.Unmarshal([]byte(result[1]), &event); err != nil {
			// Malformed payloads can never succeed; drop them.
			w.log.Error().Err(err).Str("data", result[1]).Msg("Discarding malformed JSON")
			continue
		}

		buffer = append(buffer, event)
	}
}

// flushSafe attempts bulk insert, then row-by-row insert, then requeue.
func (w *IntegrityWorker) flushSafe(ctx context.Context, batch []model.IntegrityEvent) {
	if err := w.store.BulkInsert(ctx, batch); err != nil {
		w.log.Warn().Err(err).Int("count", len(batch)).Msg("Bulk insert failed, attempting row-by-row recovery")
		w.fallbackInsert(ctx, batch)
		return
	}
	w.log.Debug().Int("count", len(batch)).Msg("Integrity events persisted")
}

func (w *IntegrityWorker) fallbackInsert(ctx context.Context, batch []model.IntegrityEvent) {
	var requeueList []model.IntegrityEvent

	for _, e := range batch {
		if err := w.store.Insert(ctx, e); err != nil {
			w.log.Error().Err(err).
				Str("student_id", e.StudentID.String()).
				Str("exam_id", e.ExamID.String()).
				Msg("Insert failed, requeueing")
			requeueList = append(requeueList, e)
		}
	}

	if len(requeueList) > 0 {
		w.requeue(ctx, requeueList)
	}
}

func (w *IntegrityWorker) requeue(ctx context.Context, items []model.IntegrityEvent) {
	pipe := w.rdb.Pipeline()
	for _, e := range items {
		data, _ := json.Marshal(e)
		pipe.RPush(ctx, config.WorkerKey.PersistIntegrityQueue, data)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		w.log.Error().Err(err).Int("count", len(items)).Msg("CRITICAL: Failed to requeue integrity events. Data loss occurred.")
		return
	}

	w.log.Info().Int("count", len(items)).Msg("Requeued failed items back to Redis")
	time.Sleep(w.requeueBackoff)
}

func (w *IntegrityWorker) shutdown(buffer []model.IntegrityEvent) {
	w.log.Info().Msg("Worker stopping, flushing remaining buffer...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if len(buffer) > 0 {
		w.flushSafe(shutdownCtx, buffer)
	}
}

package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stemsi/proctor-backend/internal/config"
	"github.com/stemsi/proctor-backend/internal/model"
	"github.com/stemsi/proctor-backend/internal/session"
)

// AttemptStateRepository keeps in-progress attempt state in Redis: the
// deadline, the answer hash and the violation counter. Keys carry no TTL and
// live until Clear; an expired deadline key would let a returning student
// start the attempt over.
type AttemptStateRepository struct {
	rdb *redis.Client
}

// NewAttemptStateRepository creates a new AttemptStateRepository.
func NewAttemptStateRepository(rdb *redis.Client) *AttemptStateRepository {
	return &AttemptStateRepository{rdb: rdb}
}

var _ session.AttemptStore = (*AttemptStateRepository)(nil)

// LoadDeadline returns the stored deadline and whether one exists.
func (r *AttemptStateRepository) LoadDeadline(ctx context.Context, key session.AttemptKey) (time.Time, bool, error) {
	ms, err := r.rdb.Get(ctx, config.CacheKey.AttemptDeadlineKey(key.StudentID, key.ExamID)).Int64()
	if errors.Is(err, redis.Nil) {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, fmt.Errorf("get deadline: %w", err)
	}
	return time.UnixMilli(ms), true, nil
}

// InitDeadline stores deadline with SETNX and returns whichever value won.
func (r *AttemptStateRepository) InitDeadline(ctx context.Context, key session.AttemptKey, deadline time.Time) (time.Time, error) {
	k := config.CacheKey.AttemptDeadlineKey(key.StudentID, key.ExamID)

	set, err := r.rdb.SetNX(ctx, k, deadline.UnixMilli(), 0).Result()
	if err != nil {
		return time.Time{}, fmt.Errorf("set deadline: %w", err)
	}
	if set {
		return time.UnixMilli(deadline.UnixMilli()), nil
	}

	ms, err := r.rdb.Get(ctx, k).Int64()
	if err != nil {
		return time.Time{}, fmt.Errorf("get deadline: %w", err)
	}
	return time.UnixMilli(ms), nil
}

// SaveAnswer writes one answer into the attempt hash.
func (r *AttemptStateRepository) SaveAnswer(ctx context.Context, key session.AttemptKey, questionID uuid.UUID, label model.OptionLabel) error {
	k := config.CacheKey.AttemptAnswersKey(key.StudentID, key.ExamID)
	if err := r.rdb.HSet(ctx, k, questionID.String(), string(label)).Err(); err != nil {
		return fmt.Errorf("hset answer: %w", err)
	}
	return nil
}

// LoadAnswers reads the attempt hash. Malformed fields are skipped.
func (r *AttemptStateRepository) LoadAnswers(ctx context.Context, key session.AttemptKey) (model.Answers, error) {
	raw, err := r.rdb.HGetAll(ctx, config.CacheKey.AttemptAnswersKey(key.StudentID, key.ExamID)).Result()
	if err != nil {
		return nil, fmt.Errorf("hgetall answers: %w", err)
	}

	answers := make(model.Answers, len(raw))
	for field, value := range raw {
		qid, err := uuid.Parse(field)
		if err != nil {
			continue
		}
		label := model.OptionLabel(value)
		if !label.Valid() {
			continue
		}
		answers[qid] = label
	}
	return answers, nil
}

// SaveViolations overwrites the violation counter.
func (r *AttemptStateRepository) SaveViolations(ctx context.Context, key session.AttemptKey, count int) error {
	k := config.CacheKey.AttemptViolationsKey(key.StudentID, key.ExamID)
	if err := r.rdb.Set(ctx, k, count, 0).Err(); err != nil {
		return fmt.Errorf("set violations: %w", err)
	}
	return nil
}

// LoadViolations returns the stored violation count, zero when absent.
func (r *AttemptStateRepository) LoadViolations(ctx context.Context, key session.AttemptKey) (int, error) {
	n, err := r.rdb.Get(ctx, config.CacheKey.AttemptViolationsKey(key.StudentID, key.ExamID)).Int()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("get violations: %w", err)
	}
	return n, nil
}

// Clear deletes every key of the attempt.
func (r *AttemptStateRepository) Clear(ctx context.Context, key session.AttemptKey) error {
	err := r.rdb.Del(ctx,
		config.CacheKey.AttemptDeadlineKey(key.StudentID, key.ExamID),
		config.CacheKey.AttemptAnswersKey(key.StudentID, key.ExamID),
		config.CacheKey.AttemptViolationsKey(key.StudentID, key.ExamID),
	).Err()
	if err != nil {
		return fmt.Errorf("del attempt state: %w", err)
	}
	return nil
}

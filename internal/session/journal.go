package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/stemsi/proctor-backend/internal/model"
)

const journalRetryBackoff = 50 * time.Millisecond

// AnswerJournal keeps the latest selected option per question. Every record
// is written to the attempt store before the in-memory copy changes.
type AnswerJournal struct {
	store   AttemptStore
	key     AttemptKey
	retries int

	mu      sync.RWMutex
	answers model.Answers
}

// NewAnswerJournal creates a journal for one attempt. retries is the number of
// extra write attempts made before Record gives up.
func NewAnswerJournal(store AttemptStore, key AttemptKey, retries int) *AnswerJournal {
	if retries < 0 {
		retries = 0
	}
	return &AnswerJournal{
		store:   store,
		key:     key,
		retries: retries,
		answers: model.Answers{},
	}
}

// LoadAll seeds the journal from the attempt store and returns a copy.
func (j *AnswerJournal) LoadAll(ctx context.Context) (model.Answers, error) {
	answers, err := j.store.LoadAnswers(ctx, j.key)
	if err != nil {
		return nil, fmt.Errorf("load answers: %w", err)
	}
	if answers == nil {
		answers = model.Answers{}
	}

	j.mu.Lock()
	j.answers = answers
	j.mu.Unlock()

	return answers.Clone(), nil
}

// Record overwrites the answer for questionID and persists it immediately.
func (j *AnswerJournal) Record(ctx context.Context, questionID uuid.UUID, label model.OptionLabel) error {
	var err error
	for attempt := 0; attempt <= j.retries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return fmt.Errorf("save answer: %w", ctx.Err())
			case <-time.After(time.Duration(attempt) * journalRetryBackoff):
			}
		}
		if err = j.store.SaveAnswer(ctx, j.key, questionID, label); err == nil {
			break
		}
	}
	if err != nil {
		return fmt.Errorf("save answer: %w", err)
	}

	j.mu.Lock()
	j.answers[questionID] = label
	j.mu.Unlock()
	return nil
}

// Snapshot returns a copy of the current answers.
func (j *AnswerJournal) Snapshot() model.Answers {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.answers.Clone()
}

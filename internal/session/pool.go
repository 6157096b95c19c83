package session

import (
	"math/rand/v2"
	"sync"

	"github.com/google/uuid"
	"github.com/stemsi/proctor-backend/internal/model"
)

// QuestionPool draws questions per difficulty tier without replacement.
// It is safe for concurrent use.
type QuestionPool struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewQuestionPool returns a pool whose draws are reproducible for the given seed.
func NewQuestionPool(seed1, seed2 uint64) *QuestionPool {
	return &QuestionPool{rng: rand.New(rand.NewPCG(seed1, seed2))}
}

// NewRandomQuestionPool returns a pool seeded from the runtime source.
func NewRandomQuestionPool() *QuestionPool {
	return NewQuestionPool(rand.Uint64(), rand.Uint64())
}

// Select partitions available by tier and takes min(count, poolSize) random
// questions from each, concatenated Easy, Moderate, Hard. Questions with a
// duplicate ID or an unknown tier are ignored.
func (p *QuestionPool) Select(available []model.Question, counts model.TierCounts) []model.Question {
	tiers := make(map[model.Difficulty][]model.Question, len(model.Difficulties))
	seen := make(map[uuid.UUID]struct{}, len(available))
	for _, q := range available {
		if !q.Difficulty.Valid() {
			continue
		}
		if _, dup := seen[q.ID]; dup {
			continue
		}
		seen[q.ID] = struct{}{}
		tiers[q.Difficulty] = append(tiers[q.Difficulty], q)
	}

	selected := make([]model.Question, 0, counts.Total())
	for _, d := range model.Difficulties {
		pool := p.Shuffle(tiers[d])
		n := counts.For(d)
		if n > len(pool) {
			n = len(pool)
		}
		selected = append(selected, pool[:n]...)
	}
	return selected
}

// Shuffle returns a randomly reordered copy of qs.
func (p *QuestionPool) Shuffle(qs []model.Question) []model.Question {
	out := append([]model.Question(nil), qs...)
	p.mu.Lock()
	p.rng.Shuffle(len(out), func(i, j int) { out[i], out[j] = out[j], out[i] })
	p.mu.Unlock()
	return out
}

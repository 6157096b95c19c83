package session

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestSessionClockDeadlineSurvivesReload(t *testing.T) {
	ctx := context.Background()
	clk := newFakeClock()
	clock := NewSessionClock(newMemoryAttempts(), clk.Now)
	key := AttemptKey{StudentID: uuid.New(), ExamID: uuid.New()}

	first, err := clock.Deadline(ctx, key, 30*time.Minute)
	if err != nil {
		t.Fatalf("Deadline: %v", err)
	}

	clk.Advance(5 * time.Minute)
	if _, err := clock.Deadline(ctx, key, 30*time.Minute); err != nil {
		t.Fatalf("Deadline after 5m: %v", err)
	}

	clk.Advance(10 * time.Minute)
	again, err := clock.Deadline(ctx, key, 30*time.Minute)
	if err != nil {
		t.Fatalf("Deadline after 15m: %v", err)
	}
	if !again.Equal(first) {
		t.Fatalf("deadline moved from %v to %v", first, again)
	}

	remaining := clock.Remaining(again)
	if diff := remaining - 15*time.Minute; diff > time.Second || diff < -time.Second {
		t.Fatalf("remaining %v, want about 15m", remaining)
	}
}

func TestRemaining(t *testing.T) {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name     string
		deadline time.Time
		want     time.Duration
		seconds  int
	}{
		{"future", base.Add(90 * time.Second), 90 * time.Second, 90},
		{"fractional", base.Add(1500 * time.Millisecond), 1500 * time.Millisecond, 1},
		{"exactly now", base, 0, 0},
		{"past", base.Add(-time.Minute), 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Remaining(tt.deadline, base)
			if got != tt.want {
				t.Errorf("Remaining = %v, want %v", got, tt.want)
			}
			if s := Seconds(got); s != tt.seconds {
				t.Errorf("Seconds = %d, want %d", s, tt.seconds)
			}
		})
	}
}

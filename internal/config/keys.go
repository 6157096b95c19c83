package config

import (
	"fmt"

	"github.com/google/uuid"
)

type CacheKeyStruct struct{}

// StudentSessionKey holds the jti of the student's current login.
func (CacheKeyStruct) StudentSessionKey(studentID uuid.UUID) string {
	return fmt.Sprintf("login:%s", studentID)
}

// AttemptDeadlineKey holds the attempt deadline as unix milliseconds.
func (CacheKeyStruct) AttemptDeadlineKey(studentID, examID uuid.UUID) string {
	return fmt.Sprintf("student:%s:exam:%s:deadline", studentID, examID)
}

// AttemptAnswersKey is a hash of question id to option label.
func (CacheKeyStruct) AttemptAnswersKey(studentID, examID uuid.UUID) string {
	return fmt.Sprintf("student:%s:exam:%s:answers", studentID, examID)
}

// AttemptViolationsKey holds the integrity violation count.
func (CacheKeyStruct) AttemptViolationsKey(studentID, examID uuid.UUID) string {
	return fmt.Sprintf("student:%s:exam:%s:violations", studentID, examID)
}

// RateLimitKey counts requests for one client in one window.
func (CacheKeyStruct) RateLimitKey(scope, client string, window int64) string {
	return fmt.Sprintf("ratelimit:%s:%s:%d", scope, client, window)
}

var CacheKey = CacheKeyStruct{}

type WorkerKeyStruct struct {
	PersistIntegrityQueue string
}

var WorkerKey = &WorkerKeyStruct{
	PersistIntegrityQueue: "persist_integrity_queue",
}

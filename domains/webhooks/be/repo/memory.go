package repo

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/zenGate-Global/rentboard/platform/go/persistence"
)

// MemoryFailureLog keeps failures in process. Used by tests and the dev server.
type MemoryFailureLog struct {
	mu       sync.Mutex
	failures []persistence.WebhookFailure
	now      func() time.Time
}

func NewMemoryFailureLog() *MemoryFailureLog {
	return &MemoryFailureLog{now: time.Now}
}

func (l *MemoryFailureLog) Record(_ context.Context, failure persistence.WebhookFailure) (persistence.WebhookFailure, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if failure.FailureID == uuid.Nil {
		failure.FailureID = uuid.New()
	}
	failure.OccurredAt = l.now().UTC()
	failure.Payload = append(json.RawMessage(nil), failure.Payload...)
	l.failures = append(l.failures, failure)
	return failure, nil
}

// List returns the newest failures first, mirroring the postgres ordering.
func (l *MemoryFailureLog) List(_ context.Context, limit int) ([]persistence.WebhookFailure, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if limit <= 0 || limit > len(l.failures) {
		limit = len(l.failures)
	}
	out := make([]persistence.WebhookFailure, 0, limit)
	for i := len(l.failures) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, l.failures[i])
	}
	return out, nil
}

// Package queue hands verified webhook notifications to background workers so the HTTP
// acknowledgment never waits on reconciliation.
package queue

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/zenGate-Global/rentboard/platform/go/rental"
)

// ErrQueueFull is returned by Enqueue when the in-process buffer has no room left.
var ErrQueueFull = errors.New("webhook queue is full")

// ErrQueueClosed is returned by Enqueue after the queue stopped accepting work.
var ErrQueueClosed = errors.New("webhook queue is closed")

// Notification is the publish-flow payload as delivered by the platform.
type Notification struct {
	Flow          string          `json:"flow"`
	EventType     string          `json:"event_type"`
	ObjectID      string          `json:"object_id"`
	TransactionID string          `json:"transaction_id"`
	Data          json.RawMessage `json:"data,omitempty"`
}

// Task is one unit of background reconciliation work.
type Task struct {
	ID           uuid.UUID       `json:"id"`
	Platform     rental.Platform `json:"platform"`
	Notification Notification    `json:"notification"`
	// Verified is false when the payload was accepted without a signature check.
	Verified   bool            `json:"verified"`
	Raw        json.RawMessage `json:"raw"`
	ReceivedAt time.Time       `json:"receivedAt"`
}

// Handler processes one task. Returned errors are logged by the queue and never retried.
type Handler func(ctx context.Context, task Task) error

// Queue accepts tasks from the HTTP layer and runs them on background workers until ctx ends.
type Queue interface {
	Enqueue(ctx context.Context, task Task) error
	Run(ctx context.Context, handle Handler) error
}

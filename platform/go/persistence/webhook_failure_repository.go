package persistence

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

const WebhookFailuresTable = "webhook_failures"

// WebhookFailure is one undeliverable or unmatched webhook notification.
type WebhookFailure struct {
	FailureID     uuid.UUID       `db:"failure_id" json:"failureId"`
	TaskID        uuid.UUID       `db:"task_id" json:"taskId"`
	Platform      string          `db:"platform" json:"platform"`
	EventType     string          `db:"event_type" json:"eventType"`
	TransactionID string          `db:"transaction_id" json:"transactionId"`
	ObjectID      string          `db:"object_id" json:"objectId"`
	Reason        string          `db:"reason" json:"reason"`
	Payload       json.RawMessage `db:"payload" json:"payload,omitempty"`
	OccurredAt    time.Time       `db:"occurred_at" json:"occurredAt"`
}

// WebhookFailureStore appends to and reads the webhook failure log.
type WebhookFailureStore struct {
	pool *pgxpool.Pool
}

// NewWebhookFailureStore returns a store bound to the pool.
func NewWebhookFailureStore(pool *pgxpool.Pool) (*WebhookFailureStore, error) {
	if pool == nil {
		return nil, errors.New("pool is required")
	}
	return &WebhookFailureStore{pool: pool}, nil
}

// RecordWebhookFailure appends a failure entry. A zero FailureID is replaced with a fresh UUID.
func (s *WebhookFailureStore) RecordWebhookFailure(ctx context.Context, failure WebhookFailure) (WebhookFailure, error) {
	if failure.FailureID == uuid.Nil {
		failure.FailureID = uuid.New()
	}
	var payload any
	if len(failure.Payload) > 0 && json.Valid(failure.Payload) {
		payload = string(failure.Payload)
	}

	row := s.pool.QueryRow(ctx, fmt.Sprintf(`
        INSERT INTO %s (failure_id, task_id, platform, event_type, transaction_id, object_id, reason, payload)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8::jsonb)
        RETURNING occurred_at
    `, WebhookFailuresTable),
		failure.FailureID, failure.TaskID, failure.Platform, failure.EventType,
		failure.TransactionID, failure.ObjectID, failure.Reason, payload,
	)
	if err := row.Scan(&failure.OccurredAt); err != nil {
		return WebhookFailure{}, fmt.Errorf("record webhook failure: %w", err)
	}
	return failure, nil
}

// ListWebhookFailures returns the most recent failures first.
func (s *WebhookFailureStore) ListWebhookFailures(ctx context.Context, limit int) ([]WebhookFailure, error) {
	if limit <= 0 {
		limit = 50
	}
	if limit > 500 {
		limit = 500
	}

	rows, err := s.pool.Query(ctx, fmt.Sprintf(`
        SELECT failure_id, task_id, platform, event_type, transaction_id, object_id, reason,
            COALESCE(payload::text, ''), occurred_at
        FROM %s
        ORDER BY occurred_at DESC
        LIMIT $1
    `, WebhookFailuresTable), limit)
	if err != nil {
		return nil, fmt.Errorf("list webhook failures: %w", err)
	}
	defer rows.Close()

	failures := make([]WebhookFailure, 0)
	for rows.Next() {
		var (
			f       WebhookFailure
			payload string
		)
		if err := rows.Scan(&f.FailureID, &f.TaskID, &f.Platform, &f.EventType, &f.TransactionID,
			&f.ObjectID, &f.Reason, &payload, &f.OccurredAt); err != nil {
			return nil, fmt.Errorf("scan webhook failure: %w", err)
		}
		if payload != "" {
			f.Payload = json.RawMessage(payload)
		}
		failures = append(failures, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate webhook failures: %w", err)
	}
	return failures, nil
}

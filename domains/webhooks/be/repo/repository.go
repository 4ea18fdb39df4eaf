package repo

import (
	"context"

	"github.com/zenGate-Global/rentboard/platform/go/persistence"
)

// FailureLog records webhook notifications that could not be applied.
type FailureLog interface {
	Record(ctx context.Context, failure persistence.WebhookFailure) (persistence.WebhookFailure, error)
	List(ctx context.Context, limit int) ([]persistence.WebhookFailure, error)
}

type postgresFailureLog struct {
	store *persistence.WebhookFailureStore
}

// NewPostgresFailureLog returns a failure log backed by the webhook_failures table.
func NewPostgresFailureLog(store *persistence.WebhookFailureStore) FailureLog {
	if store == nil {
		panic("webhook failure store is required")
	}
	return &postgresFailureLog{store: store}
}

func (l *postgresFailureLog) Record(ctx context.Context, failure persistence.WebhookFailure) (persistence.WebhookFailure, error) {
	return l.store.RecordWebhookFailure(ctx, failure)
}

func (l *postgresFailureLog) List(ctx context.Context, limit int) ([]persistence.WebhookFailure, error) {
	return l.store.ListWebhookFailures(ctx, limit)
}

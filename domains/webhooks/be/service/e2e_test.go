package service_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	apartmentrepo "github.com/zenGate-Global/rentboard/domains/apartments/be/repo"
	listings "github.com/zenGate-Global/rentboard/domains/listings/be/service"
	"github.com/zenGate-Global/rentboard/domains/webhooks/be/queue"
	"github.com/zenGate-Global/rentboard/domains/webhooks/be/repo"
	webhooks "github.com/zenGate-Global/rentboard/domains/webhooks/be/service"
	"github.com/zenGate-Global/rentboard/platform/go/rental"
)

type pipeline struct {
	apartments *apartmentrepo.MemoryRepository
	failures   *repo.MemoryFailureLog
	intake     webhooks.Service
}

func startPipeline(t *testing.T, seed ...rental.Apartment) pipeline {
	t.Helper()

	logger := zaptest.NewLogger(t)
	apartments := apartmentrepo.NewMemoryRepository(seed...)
	failures := repo.NewMemoryFailureLog()
	q := queue.NewMemoryQueue(queue.MemoryConfig{Workers: 2, TaskTimeout: time.Second, Logger: logger})
	processor := webhooks.NewProcessor(listings.NewReconciler(apartments, logger), failures, logger)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- q.Run(ctx, processor.Handle) }()
	t.Cleanup(func() {
		cancel()
		require.NoError(t, <-done)
	})

	return pipeline{
		apartments: apartments,
		failures:   failures,
		intake:     webhooks.New(q, failures, webhooks.Config{Secret: "s3cret"}, logger),
	}
}

func notification(t *testing.T, eventType, objectID, txID string) []byte {
	t.Helper()
	raw, err := json.Marshal(map[string]any{
		"flow":           "publish_advert",
		"event_type":     eventType,
		"object_id":      objectID,
		"transaction_id": txID,
		"data":           map[string]any{"message": "street not found"},
	})
	require.NoError(t, err)
	return raw
}

func TestSignedWebhookConfirmsPendingListing(t *testing.T) {
	t.Parallel()

	apt := rental.Apartment{
		ID:           uuid.New(),
		Title:        "Flat",
		Status:       rental.StatusAvailable,
		ExternalRefs: map[rental.Platform]rental.ExternalRef{rental.PlatformOtodom: rental.PendingRef("txn-123")},
	}
	p := startPipeline(t, apt)
	ctx := context.Background()

	receipt, err := p.intake.Receive(ctx, rental.PlatformOtodom,
		notification(t, "advert_posted_success", "obj-999", "txn-123"),
		webhooks.Sign("obj-999", "txn-123", "s3cret"))
	require.NoError(t, err)
	require.True(t, receipt.Verified)
	require.True(t, receipt.Queued)

	require.Eventually(t, func() bool {
		got, err := p.apartments.Get(ctx, apt.ID)
		if err != nil {
			return false
		}
		id, ok := got.Ref(rental.PlatformOtodom).ListingID()
		return ok && id == "obj-999"
	}, 2*time.Second, 10*time.Millisecond)

	recorded, err := p.failures.List(ctx, 0)
	require.NoError(t, err)
	require.Empty(t, recorded)
}

func TestUnmatchedAndFailedWebhooksLandInFailureLog(t *testing.T) {
	t.Parallel()

	apt := rental.Apartment{
		ID:           uuid.New(),
		Title:        "Flat",
		Status:       rental.StatusAvailable,
		ExternalRefs: map[rental.Platform]rental.ExternalRef{rental.PlatformOtodom: rental.PendingRef("txn-1")},
	}
	p := startPipeline(t, apt)
	ctx := context.Background()

	_, err := p.intake.Receive(ctx, rental.PlatformOtodom,
		notification(t, "advert_posted_success", "obj-1", "txn-unknown"),
		webhooks.Sign("obj-1", "txn-unknown", "s3cret"))
	require.NoError(t, err)

	_, err = p.intake.Receive(ctx, rental.PlatformOtodom,
		notification(t, "advert_location_error", "obj-2", "txn-1"),
		webhooks.Sign("obj-2", "txn-1", "s3cret"))
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		recorded, err := p.failures.List(ctx, 0)
		return err == nil && len(recorded) == 2
	}, 2*time.Second, 10*time.Millisecond)

	got, err := p.apartments.Get(ctx, apt.ID)
	require.NoError(t, err)
	ref := got.Ref(rental.PlatformOtodom)
	require.True(t, ref.IsPending())
	require.Equal(t, "txn-1", ref.Value)
	require.Equal(t, "street not found", ref.LastError)
}

func TestForgedWebhookIsRejectedBeforeQueueing(t *testing.T) {
	t.Parallel()

	apt := rental.Apartment{
		ID:           uuid.New(),
		Status:       rental.StatusAvailable,
		ExternalRefs: map[rental.Platform]rental.ExternalRef{rental.PlatformOtodom: rental.PendingRef("txn-123")},
	}
	p := startPipeline(t, apt)
	ctx := context.Background()

	_, err := p.intake.Receive(ctx, rental.PlatformOtodom,
		notification(t, "advert_posted_success", "obj-999", "txn-123"),
		webhooks.Sign("obj-999", "txn-123", "guess"))
	require.ErrorIs(t, err, webhooks.ErrInvalidSignature)

	got, err := p.apartments.Get(ctx, apt.ID)
	require.NoError(t, err)
	require.True(t, got.Ref(rental.PlatformOtodom).IsPending())
}

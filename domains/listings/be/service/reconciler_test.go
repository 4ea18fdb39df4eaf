package service

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/zenGate-Global/rentboard/domains/apartments/be/repo"
	"github.com/zenGate-Global/rentboard/platform/go/rental"
)

func pendingApartment(txID string) rental.Apartment {
	return rental.Apartment{
		ID:           uuid.New(),
		Title:        "Flat",
		Status:       rental.StatusAvailable,
		ExternalRefs: map[rental.Platform]rental.ExternalRef{rental.PlatformOtodom: rental.PendingRef(txID)},
	}
}

func TestReconcileConfirmsMatchingTransaction(t *testing.T) {
	t.Parallel()

	apt := pendingApartment("txn-123")
	other := pendingApartment("txn-456")
	apartments := repo.NewMemoryRepository(apt, other)
	rec := NewReconciler(apartments, zaptest.NewLogger(t))
	ctx := context.Background()

	res, err := rec.Reconcile(ctx, Notification{
		Platform: rental.PlatformOtodom, Flow: FlowPublishAdvert, EventType: EventPostedSuccess,
		TransactionID: "txn-123", ObjectID: "obj-999",
	})
	require.NoError(t, err)
	require.Equal(t, ActionConfirmed, res.Action)
	require.Equal(t, apt.ID, res.ApartmentID)

	got, err := apartments.Get(ctx, apt.ID)
	require.NoError(t, err)
	listingID, ok := got.Ref(rental.PlatformOtodom).ListingID()
	require.True(t, ok)
	require.Equal(t, "obj-999", listingID)

	untouched, err := apartments.Get(ctx, other.ID)
	require.NoError(t, err)
	require.Equal(t, rental.PendingRef("txn-456").Value, untouched.Ref(rental.PlatformOtodom).Value)
	require.True(t, untouched.Ref(rental.PlatformOtodom).IsPending())
}

func TestReconcileUnmatchedLeavesApartmentsUnchanged(t *testing.T) {
	t.Parallel()

	apt := pendingApartment("txn-123")
	apartments := repo.NewMemoryRepository(apt)
	rec := NewReconciler(apartments, zaptest.NewLogger(t))

	_, err := rec.Reconcile(context.Background(), Notification{
		Platform: rental.PlatformOtodom, EventType: EventPostedSuccess, TransactionID: "txn-unknown", ObjectID: "obj-1",
	})
	require.ErrorIs(t, err, ErrNoPendingMatch)

	got, err := apartments.Get(context.Background(), apt.ID)
	require.NoError(t, err)
	require.True(t, got.Ref(rental.PlatformOtodom).IsPending())
	require.Equal(t, "txn-123", got.Ref(rental.PlatformOtodom).Value)
}

func TestReconcileFailureEventKeepsPending(t *testing.T) {
	t.Parallel()

	apt := pendingApartment("txn-1")
	apartments := repo.NewMemoryRepository(apt)
	rec := NewReconciler(apartments, zaptest.NewLogger(t))

	res, err := rec.Reconcile(context.Background(), Notification{
		Platform: rental.PlatformOtodom, Flow: FlowPublishAdvert, EventType: EventLocationError,
		TransactionID: "txn-1", Message: "unknown street",
	})
	require.ErrorIs(t, err, ErrPlatformReportedFailure)
	require.Equal(t, ActionErrorRecorded, res.Action)

	got, err := apartments.Get(context.Background(), apt.ID)
	require.NoError(t, err)
	ref := got.Ref(rental.PlatformOtodom)
	require.True(t, ref.IsPending())
	require.Equal(t, "unknown street", ref.LastError)
}

func TestReconcileIgnoresOtherFlowsAndEvents(t *testing.T) {
	t.Parallel()

	apt := pendingApartment("txn-1")
	apartments := repo.NewMemoryRepository(apt)
	rec := NewReconciler(apartments, zaptest.NewLogger(t))

	for _, n := range []Notification{
		{Platform: rental.PlatformOtodom, Flow: "delete_advert", EventType: EventPostedSuccess, TransactionID: "txn-1", ObjectID: "x"},
		{Platform: rental.PlatformOtodom, Flow: FlowPublishAdvert, EventType: "advert_refreshed", TransactionID: "txn-1", ObjectID: "x"},
	} {
		res, err := rec.Reconcile(context.Background(), n)
		require.NoError(t, err)
		require.Equal(t, ActionIgnored, res.Action)
	}

	got, err := apartments.Get(context.Background(), apt.ID)
	require.NoError(t, err)
	require.True(t, got.Ref(rental.PlatformOtodom).IsPending())
}

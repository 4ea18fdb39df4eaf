package persistence

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/zenGate-Global/rentboard/platform/go/rental"
)

func TestStoresAgainstPostgres(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping persistence integration test in short mode")
	}

	pool := mustTestPool(t)
	ctx := context.Background()

	apartments, err := NewApartmentStore(pool)
	require.NoError(t, err)
	credentials, err := NewCredentialStore(pool)
	require.NoError(t, err)
	failures, err := NewWebhookFailureStore(pool)
	require.NoError(t, err)

	owner := "owner-1"
	first := rental.Apartment{
		ID:          uuid.MustParse("00000000-0000-0000-0000-000000000001"),
		OwnerID:     &owner,
		Title:       "Sunny flat",
		Address:     "Prosta 1, Warszawa",
		Price:       3200,
		AreaM2:      48.5,
		Description: "Two rooms close to the metro.",
		PhotoURLs:   []string{"/uploads/a.jpg"},
		Status:      rental.StatusAvailable,
	}
	second := first
	second.ID = uuid.MustParse("00000000-0000-0000-0000-000000000002")
	second.OwnerID = nil
	rented := first
	rented.ID = uuid.MustParse("00000000-0000-0000-0000-000000000003")
	rented.Status = rental.StatusRented

	for _, apt := range []rental.Apartment{second, first, rented} {
		_, err := apartments.UpsertApartment(ctx, apt)
		require.NoError(t, err)
	}

	t.Run("get missing apartment", func(t *testing.T) {
		_, err := apartments.GetApartment(ctx, uuid.New())
		require.ErrorIs(t, err, ErrApartmentNotFound)
	})

	t.Run("list by status is ordered and owner filtered", func(t *testing.T) {
		all, err := apartments.ListApartmentsByStatus(ctx, rental.StatusAvailable, nil)
		require.NoError(t, err)
		require.Len(t, all, 2)
		require.Equal(t, first.ID, all[0].ID)
		require.Equal(t, second.ID, all[1].ID)
		require.InDelta(t, 3200, all[0].Price, 0.001)

		mine, err := apartments.ListApartmentsByStatus(ctx, rental.StatusAvailable, &owner)
		require.NoError(t, err)
		require.Len(t, mine, 1)
		require.Equal(t, first.ID, mine[0].ID)
	})

	t.Run("pending reference is confirmed once", func(t *testing.T) {
		require.NoError(t, apartments.SetExternalRef(ctx, first.ID, rental.PlatformOtodom, rental.PendingRef("tx-1")))

		_, err := apartments.MarkPendingRefError(ctx, rental.PlatformOtodom, "tx-1", "image rejected")
		require.NoError(t, err)
		got, err := apartments.GetApartment(ctx, first.ID)
		require.NoError(t, err)
		require.True(t, got.Ref(rental.PlatformOtodom).IsPending())
		require.Equal(t, "image rejected", got.Ref(rental.PlatformOtodom).LastError)

		id, err := apartments.ConfirmPendingRef(ctx, rental.PlatformOtodom, "tx-1", "OT-99")
		require.NoError(t, err)
		require.Equal(t, first.ID, id)

		got, err = apartments.GetApartment(ctx, first.ID)
		require.NoError(t, err)
		ref := got.Ref(rental.PlatformOtodom)
		require.True(t, ref.IsConfirmed())
		require.Equal(t, "OT-99", ref.Value)
		require.Empty(t, ref.LastError)

		_, err = apartments.ConfirmPendingRef(ctx, rental.PlatformOtodom, "tx-1", "OT-99")
		require.ErrorIs(t, err, ErrExternalRefNotFound)
	})

	t.Run("duplicate pending transaction conflicts", func(t *testing.T) {
		require.NoError(t, apartments.SetExternalRef(ctx, second.ID, rental.PlatformOtodom, rental.PendingRef("tx-dup")))
		err := apartments.SetExternalRef(ctx, rented.ID, rental.PlatformOtodom, rental.PendingRef("tx-dup"))
		require.ErrorIs(t, err, ErrExternalRefConflict)
	})

	t.Run("empty reference clears", func(t *testing.T) {
		require.NoError(t, apartments.SetExternalRef(ctx, second.ID, rental.PlatformOLX, rental.ConfirmedRef("olx-1", "https://olx.pl/d/1")))
		require.NoError(t, apartments.SetExternalRef(ctx, second.ID, rental.PlatformOLX, rental.ExternalRef{}))

		got, err := apartments.GetApartment(ctx, second.ID)
		require.NoError(t, err)
		require.True(t, got.Ref(rental.PlatformOLX).IsEmpty())
	})

	t.Run("credentials round trip", func(t *testing.T) {
		_, err := credentials.GetAppCredential(ctx, "olx")
		require.ErrorIs(t, err, ErrAppCredentialNotFound)

		saved, err := credentials.UpsertAppCredential(ctx, AppCredentialRecord{Platform: "olx", ClientID: " cid ", ClientSecret: "secret"})
		require.NoError(t, err)
		require.Equal(t, "cid", saved.ClientID)

		expires := time.Now().Add(time.Hour).UTC().Truncate(time.Second)
		_, err = credentials.UpsertUserToken(ctx, UpsertUserTokenParams{
			Platform: "olx", PrincipalID: "u1", AccessToken: "a", RefreshToken: "r", ExpiresAt: &expires,
		})
		require.NoError(t, err)

		require.NoError(t, credentials.RecordUserTokenError(ctx, "olx", "u1", "refresh failed"))
		tok, err := credentials.GetUserToken(ctx, "olx", "u1")
		require.NoError(t, err)
		require.Equal(t, "a", tok.AccessToken)
		require.True(t, tok.IsActive)
		require.NotNil(t, tok.LastError)
		require.NotNil(t, tok.LastSyncAt)

		require.NoError(t, credentials.DeactivateUserToken(ctx, "olx", "u1"))
		tok, err = credentials.GetUserToken(ctx, "olx", "u1")
		require.NoError(t, err)
		require.False(t, tok.IsActive)
		require.Empty(t, tok.RefreshToken)

		require.ErrorIs(t, credentials.RecordUserTokenError(ctx, "olx", "nobody", "x"), ErrUserTokenNotFound)
	})

	t.Run("webhook failures are listed newest first", func(t *testing.T) {
		for _, reason := range []string{"first", "second"} {
			_, err := failures.RecordWebhookFailure(ctx, WebhookFailure{
				TaskID:   uuid.New(),
				Platform: "otodom",
				Reason:   reason,
				Payload:  json.RawMessage(`{"event_type":"advert_posted_success"}`),
			})
			require.NoError(t, err)
		}

		list, err := failures.ListWebhookFailures(ctx, 10)
		require.NoError(t, err)
		require.Len(t, list, 2)
		require.Equal(t, "second", list[0].Reason)
		require.JSONEq(t, `{"event_type":"advert_posted_success"}`, string(list[0].Payload))
	})
}

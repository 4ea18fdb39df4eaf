package repo

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/zenGate-Global/rentboard/platform/go/persistence"
)

func TestMemoryFailureLogNewestFirst(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	log := NewMemoryFailureLog()

	first, err := log.Record(ctx, persistence.WebhookFailure{TaskID: uuid.New(), Reason: "first"})
	require.NoError(t, err)
	require.NotEqual(t, uuid.Nil, first.FailureID)
	require.False(t, first.OccurredAt.IsZero())

	_, err = log.Record(ctx, persistence.WebhookFailure{TaskID: uuid.New(), Reason: "second"})
	require.NoError(t, err)

	all, err := log.List(ctx, 0)
	require.NoError(t, err)
	require.Len(t, all, 2)
	require.Equal(t, "second", all[0].Reason)
	require.Equal(t, "first", all[1].Reason)

	limited, err := log.List(ctx, 1)
	require.NoError(t, err)
	require.Len(t, limited, 1)
	require.Equal(t, "second", limited[0].Reason)
}

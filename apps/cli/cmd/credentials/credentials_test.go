package credentials

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	credentialsrepo "github.com/zenGate-Global/rentboard/domains/credentials/be/repo"
)

func memoryOpener(r *credentialsrepo.MemoryRepository) openRepo {
	return func(context.Context, string) (credentialsrepo.Repository, func(), error) {
		return r, func() {}, nil
	}
}

func TestSetStoresCredentials(t *testing.T) {
	r := credentialsrepo.NewMemoryRepository()
	cmd := newCommand(memoryOpener(r))
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"set", "--platform", "OTODOM", "--client-id", "cid", "--client-secret", "sec", "--api-key", "key"})

	require.NoError(t, cmd.ExecuteContext(context.Background()))
	require.Contains(t, out.String(), "Otodom app configured (client cid)")

	stored, err := r.GetApp(context.Background(), "otodom")
	require.NoError(t, err)
	require.Equal(t, "cid", stored.ClientID)
	require.Equal(t, "key", stored.APIKey)
}

func TestSetRejectsMissingOtodomAPIKey(t *testing.T) {
	r := credentialsrepo.NewMemoryRepository()
	cmd := newCommand(memoryOpener(r))
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"set", "--platform", "otodom", "--client-id", "cid", "--client-secret", "sec"})

	require.Error(t, cmd.ExecuteContext(context.Background()))
}

func TestSetRejectsUnknownPlatformBeforeOpening(t *testing.T) {
	opened := false
	cmd := newCommand(func(context.Context, string) (credentialsrepo.Repository, func(), error) {
		opened = true
		return nil, nil, errors.New("unexpected")
	})
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"set", "--platform", "allegro", "--client-id", "cid", "--client-secret", "sec"})

	err := cmd.ExecuteContext(context.Background())
	require.ErrorContains(t, err, "unsupported platform")
	require.False(t, opened)
}

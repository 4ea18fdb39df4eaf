package auth

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	platformauth "github.com/zenGate-Global/rentboard/platform/go/auth"
)

func runDevToken(t *testing.T, args ...string) string {
	t.Helper()
	cmd := Command()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs(append([]string{"devtoken"}, args...))
	require.NoError(t, cmd.Execute())
	return strings.TrimSpace(out.String())
}

func TestDevTokenIdentifiesOwner(t *testing.T) {
	token := runDevToken(t, "--owner", "landlord-1", "--admin")

	claims, err := platformauth.UnsignedVerifier()(context.Background(), token)
	require.NoError(t, err)
	p, err := claims.Principal()
	require.NoError(t, err)
	require.Equal(t, "landlord-1", p.ID)
	require.Equal(t, "landlord-1@rentboard.local", p.Email)
	require.True(t, p.HasRole(platformauth.RoleAdmin))
}

func TestDevTokenHeaderOutput(t *testing.T) {
	out := runDevToken(t, "--owner", "landlord-2", "--header")
	require.True(t, strings.HasPrefix(out, "Authorization: Bearer "))
}

func TestDevTokenRequiresOwner(t *testing.T) {
	cmd := Command()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"devtoken"})
	require.Error(t, cmd.Execute())
}

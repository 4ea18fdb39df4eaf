package gcp

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/zenGate-Global/rentboard/platform/go/setups"
)

func TestFirebaseOptionsFromEnv(t *testing.T) {
	t.Setenv(setups.DevCredentialsPathEnv, "/secrets/firebase.json")
	t.Setenv(setups.DevProjectEnv, " rentboard-prod ")

	require.Equal(t, FirebaseOptions{CredentialsFile: "/secrets/firebase.json", ProjectID: "rentboard-prod"}, FirebaseOptionsFromEnv())

	t.Setenv(setups.DevCredentialsPathEnv, "  ")
	t.Setenv(setups.DevProjectEnv, "")
	require.Equal(t, FirebaseOptions{}, FirebaseOptionsFromEnv())
}

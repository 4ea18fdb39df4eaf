package service

import (
	"crypto/hmac"
	"crypto/sha1"
	"encoding/hex"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/zenGate-Global/rentboard/domains/webhooks/be/queue"
)

func TestSignMatchesHMACSHA1(t *testing.T) {
	t.Parallel()

	mac := hmac.New(sha1.New, []byte("s3cret"))
	mac.Write([]byte("42,abc"))
	expected := hex.EncodeToString(mac.Sum(nil))

	require.Equal(t, expected, Sign("42", "abc", "s3cret"))
	require.Len(t, expected, 40)
}

func TestVerifyAcceptsValidSignature(t *testing.T) {
	t.Parallel()

	n := queue.Notification{ObjectID: "42", TransactionID: "abc"}
	sig := Sign("42", "abc", "s3cret")

	require.True(t, Verify(n, sig, "s3cret"))
	require.True(t, Verify(n, " "+strings.ToUpper(sig)+" ", "s3cret"))
	require.False(t, Verify(n, sig, "other"))
}

func TestVerifyRejectsEverySingleBitFlip(t *testing.T) {
	t.Parallel()

	n := queue.Notification{ObjectID: "42", TransactionID: "abc"}
	raw, err := hex.DecodeString(Sign("42", "abc", "s3cret"))
	require.NoError(t, err)

	for i := 0; i < len(raw)*8; i++ {
		flipped := append([]byte(nil), raw...)
		flipped[i/8] ^= 1 << (i % 8)
		require.False(t, Verify(n, hex.EncodeToString(flipped), "s3cret"), "bit %d", i)
	}
}

func TestVerifyRejectsMissingIdentifiersAndLengthMismatch(t *testing.T) {
	t.Parallel()

	sig := Sign("42", "", "s3cret")
	require.False(t, Verify(queue.Notification{ObjectID: "42"}, sig, "s3cret"))
	require.False(t, Verify(queue.Notification{TransactionID: "abc"}, Sign("", "abc", "s3cret"), "s3cret"))

	n := queue.Notification{ObjectID: "42", TransactionID: "abc"}
	full := Sign("42", "abc", "s3cret")
	require.False(t, Verify(n, full[:len(full)-2], "s3cret"))
	require.False(t, Verify(n, full+"00", "s3cret"))
	require.False(t, Verify(n, "", "s3cret"))
}

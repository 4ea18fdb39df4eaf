package service

import (
	"crypto/hmac"
	"crypto/sha1"
	"crypto/subtle"
	"encoding/hex"
	"strings"

	"github.com/zenGate-Global/rentboard/domains/webhooks/be/queue"
)

// Sign returns the hex encoded HMAC-SHA1 of "object_id,transaction_id" keyed by secret.
func Sign(objectID, transactionID, secret string) string {
	mac := hmac.New(sha1.New, []byte(secret))
	mac.Write([]byte(objectID + "," + transactionID))
	return hex.EncodeToString(mac.Sum(nil))
}

// Verify reports whether signature authenticates n under secret. Notifications without both
// identifiers never verify, and a length mismatch is a plain failure.
func Verify(n queue.Notification, signature, secret string) bool {
	if n.ObjectID == "" || n.TransactionID == "" || secret == "" {
		return false
	}
	expected := Sign(n.ObjectID, n.TransactionID, secret)
	provided := strings.ToLower(strings.TrimSpace(signature))
	return subtle.ConstantTimeCompare([]byte(expected), []byte(provided)) == 1
}

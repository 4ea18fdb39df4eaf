package rental

import (
	"fmt"
	"time"
)

// RefState tags what an ExternalRef value means.
type RefState string

const (
	// RefNone: never published, or removed from the platform.
	RefNone RefState = ""
	// RefPending: the platform accepted a publish request and returned a transaction id;
	// the durable listing id has not been delivered yet.
	RefPending RefState = "pending"
	// RefConfirmed: the value is a durable listing id usable for update and delete.
	RefConfirmed RefState = "confirmed"
)

// ParseRefState validates a persisted state value.
func ParseRefState(raw string) (RefState, error) {
	switch s := RefState(raw); s {
	case RefNone, RefPending, RefConfirmed:
		return s, nil
	default:
		return "", fmt.Errorf("unknown external reference state %q", raw)
	}
}

// ExternalRef is the per-platform listing reference of an apartment.
type ExternalRef struct {
	State     RefState
	Value     string
	URL       string
	LastError string
	UpdatedAt time.Time
}

// PendingRef builds a reference for an accepted but unconfirmed publish.
func PendingRef(transactionID string) ExternalRef {
	return ExternalRef{State: RefPending, Value: transactionID}
}

// ConfirmedRef builds a reference for a durable listing id.
func ConfirmedRef(listingID, url string) ExternalRef {
	return ExternalRef{State: RefConfirmed, Value: listingID, URL: url}
}

func (r ExternalRef) IsEmpty() bool     { return r.State == RefNone }
func (r ExternalRef) IsPending() bool   { return r.State == RefPending }
func (r ExternalRef) IsConfirmed() bool { return r.State == RefConfirmed }

// TransactionID returns the transaction id when the reference is pending.
func (r ExternalRef) TransactionID() (string, bool) {
	if r.State != RefPending {
		return "", false
	}
	return r.Value, true
}

// ListingID returns the durable listing id when the reference is confirmed.
func (r ExternalRef) ListingID() (string, bool) {
	if r.State != RefConfirmed {
		return "", false
	}
	return r.Value, true
}

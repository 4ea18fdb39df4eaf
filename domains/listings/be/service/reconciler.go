package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/zenGate-Global/rentboard/domains/apartments/be/repo"
	"github.com/zenGate-Global/rentboard/platform/go/persistence"
	"github.com/zenGate-Global/rentboard/platform/go/rental"
)

// Webhook vocabulary of the publish flow.
const (
	FlowPublishAdvert = "publish_advert"

	EventPostedSuccess = "advert_posted_success"
	EventPostedError   = "advert_posted_error"
	EventLocationError = "advert_location_error"
)

var (
	// ErrNoPendingMatch means no apartment holds the notified transaction id as a pending reference.
	ErrNoPendingMatch = errors.New("no pending listing matches the transaction id")
	// ErrPlatformReportedFailure means the platform refused the advert asynchronously.
	ErrPlatformReportedFailure = errors.New("platform reported a publish failure")
)

// Notification is a publish-flow event delivered by a platform.
type Notification struct {
	Platform      rental.Platform
	Flow          string
	EventType     string
	TransactionID string
	ObjectID      string
	// Message is the platform's explanation for failure events.
	Message string
}

// Action says what reconciliation did with a notification.
type Action string

const (
	ActionConfirmed     Action = "confirmed"
	ActionErrorRecorded Action = "error_recorded"
	ActionIgnored       Action = "ignored"
)

// ReconcileResult describes a handled notification.
type ReconcileResult struct {
	Action      Action
	ApartmentID uuid.UUID
}

// Reconciler resolves pending transaction ids into durable listing ids.
type Reconciler interface {
	Reconcile(ctx context.Context, n Notification) (ReconcileResult, error)
}

type reconciler struct {
	apartments repo.Repository
	logger     *zap.Logger
}

// NewReconciler constructs a Reconciler over the apartments repository.
func NewReconciler(apartments repo.Repository, logger *zap.Logger) Reconciler {
	if apartments == nil {
		panic("apartments repository is required")
	}
	if logger == nil {
		panic("logger is required")
	}
	return &reconciler{apartments: apartments, logger: logger}
}

// Reconcile applies a notification. A success event promotes the matching pending reference
// to confirmed; failure events keep the reference pending and record the platform's message,
// returning ErrPlatformReportedFailure so the caller can log it for operators. Other flows and
// events are ignored.
func (r *reconciler) Reconcile(ctx context.Context, n Notification) (ReconcileResult, error) {
	logger := r.logger.With(
		zap.String("platform", string(n.Platform)),
		zap.String("event_type", n.EventType),
		zap.String("transaction_id", n.TransactionID),
		zap.String("object_id", n.ObjectID),
	)

	if n.Flow != "" && n.Flow != FlowPublishAdvert {
		logger.Info("ignoring notification for unhandled flow", zap.String("flow", n.Flow))
		return ReconcileResult{Action: ActionIgnored}, nil
	}
	if strings.TrimSpace(n.TransactionID) == "" {
		return ReconcileResult{}, fmt.Errorf("%w: empty transaction id", ErrNoPendingMatch)
	}

	switch n.EventType {
	case EventPostedSuccess:
		if strings.TrimSpace(n.ObjectID) == "" {
			return ReconcileResult{}, errors.New("success notification carries no object id")
		}
		id, err := r.apartments.ConfirmPendingRef(ctx, n.Platform, n.TransactionID, n.ObjectID)
		if err != nil {
			return ReconcileResult{}, mapReconcileError(err)
		}
		logger.Info("listing confirmed", zap.String("apartment_id", id.String()))
		return ReconcileResult{Action: ActionConfirmed, ApartmentID: id}, nil

	case EventPostedError, EventLocationError:
		message := strings.TrimSpace(n.Message)
		if message == "" {
			message = n.EventType
		}
		id, err := r.apartments.MarkPendingRefError(ctx, n.Platform, n.TransactionID, message)
		if err != nil {
			return ReconcileResult{}, mapReconcileError(err)
		}
		logger.Warn("platform rejected pending listing",
			zap.String("apartment_id", id.String()),
			zap.String("reason", message),
		)
		return ReconcileResult{Action: ActionErrorRecorded, ApartmentID: id},
			fmt.Errorf("%w: %s", ErrPlatformReportedFailure, message)

	default:
		logger.Info("ignoring unhandled notification event")
		return ReconcileResult{Action: ActionIgnored}, nil
	}
}

func mapReconcileError(err error) error {
	if errors.Is(err, persistence.ErrExternalRefNotFound) {
		return ErrNoPendingMatch
	}
	return err
}

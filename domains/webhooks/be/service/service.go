package service

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/zenGate-Global/rentboard/domains/webhooks/be/queue"
	"github.com/zenGate-Global/rentboard/domains/webhooks/be/repo"
	"github.com/zenGate-Global/rentboard/platform/go/payload"
	"github.com/zenGate-Global/rentboard/platform/go/persistence"
	"github.com/zenGate-Global/rentboard/platform/go/rental"
)

var (
	// ErrInvalidSignature means the signature did not authenticate the payload.
	ErrInvalidSignature = errors.New("invalid webhook signature")
	// ErrMalformedPayload means the body is not a notification with the required fields.
	ErrMalformedPayload = errors.New("malformed webhook payload")
)

const notificationSchema = "webhook-notification"

//go:embed notification.schema.json
var notificationSchemaJSON []byte

// Config holds the signature policy.
type Config struct {
	Secret string
	// RequireSignature rejects payloads when the secret or the signature header is missing.
	RequireSignature bool
}

// Receipt acknowledges an accepted notification.
type Receipt struct {
	TaskID   uuid.UUID
	Verified bool
	Queued   bool
}

// Service accepts inbound notifications and hands them to the background queue.
type Service interface {
	Receive(ctx context.Context, platform rental.Platform, raw []byte, signature string) (Receipt, error)
}

type service struct {
	queue     queue.Queue
	failures  repo.FailureLog
	validator *payload.Validator
	cfg       Config
	logger    *zap.Logger
	now       func() time.Time
}

// New constructs the webhook intake service.
func New(q queue.Queue, failures repo.FailureLog, cfg Config, logger *zap.Logger) Service {
	if q == nil {
		panic("webhook queue is required")
	}
	if failures == nil {
		panic("failure log is required")
	}
	if logger == nil {
		panic("logger is required")
	}

	validator := payload.NewValidator()
	validator.Register(notificationSchema, notificationSchemaJSON)

	return &service{
		queue:     q,
		failures:  failures,
		validator: validator,
		cfg:       cfg,
		logger:    logger,
		now:       time.Now,
	}
}

// Receive validates and authenticates raw, then enqueues it. Queueing problems are recorded
// and logged but never fail the call: the sender is acknowledged either way.
func (s *service) Receive(ctx context.Context, platform rental.Platform, raw []byte, signature string) (Receipt, error) {
	if err := s.validator.Validate(notificationSchema, raw); err != nil {
		return Receipt{}, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	var n queue.Notification
	if err := json.Unmarshal(raw, &n); err != nil {
		return Receipt{}, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}

	verified, err := s.authenticate(n, signature)
	if err != nil {
		return Receipt{}, err
	}

	logger := s.logger.With(
		zap.String("platform", string(platform)),
		zap.String("event_type", n.EventType),
		zap.String("transaction_id", n.TransactionID),
		zap.String("object_id", n.ObjectID),
	)
	if !verified {
		logger.Warn("processing unverified webhook notification")
	}

	task := queue.Task{
		ID:           uuid.New(),
		Platform:     platform,
		Notification: n,
		Verified:     verified,
		Raw:          append(json.RawMessage(nil), raw...),
		ReceivedAt:   s.now().UTC(),
	}
	receipt := Receipt{TaskID: task.ID, Verified: verified}

	if err := s.queue.Enqueue(ctx, task); err != nil {
		logger.Error("webhook task could not be queued", zap.String("task_id", task.ID.String()), zap.Error(err))
		if _, recErr := s.failures.Record(ctx, failureFor(task, "enqueue: "+err.Error())); recErr != nil {
			logger.Error("webhook failure could not be recorded", zap.Error(recErr))
		}
		return receipt, nil
	}
	receipt.Queued = true
	return receipt, nil
}

func (s *service) authenticate(n queue.Notification, signature string) (bool, error) {
	hasSecret := s.cfg.Secret != ""
	hasSignature := signature != ""

	if hasSecret && hasSignature {
		if !Verify(n, signature, s.cfg.Secret) {
			return false, ErrInvalidSignature
		}
		return true, nil
	}
	if s.cfg.RequireSignature {
		if !hasSecret {
			return false, fmt.Errorf("%w: no webhook secret configured", ErrInvalidSignature)
		}
		return false, fmt.Errorf("%w: signature header missing", ErrInvalidSignature)
	}
	return false, nil
}

func failureFor(task queue.Task, reason string) persistence.WebhookFailure {
	return persistence.WebhookFailure{
		TaskID:        task.ID,
		Platform:      string(task.Platform),
		EventType:     task.Notification.EventType,
		TransactionID: task.Notification.TransactionID,
		ObjectID:      task.Notification.ObjectID,
		Reason:        reason,
		Payload:       task.Raw,
	}
}

package service

import (
	"context"
	"encoding/json"
	"strings"

	"go.uber.org/zap"

	listings "github.com/zenGate-Global/rentboard/domains/listings/be/service"
	"github.com/zenGate-Global/rentboard/domains/webhooks/be/queue"
	"github.com/zenGate-Global/rentboard/domains/webhooks/be/repo"
	"github.com/zenGate-Global/rentboard/platform/go/requesttrace"
)

// Processor is the queue handler that reconciles notifications and records every failure.
type Processor struct {
	reconciler listings.Reconciler
	failures   repo.FailureLog
	logger     *zap.Logger
}

func NewProcessor(reconciler listings.Reconciler, failures repo.FailureLog, logger *zap.Logger) *Processor {
	if reconciler == nil {
		panic("reconciler is required")
	}
	if failures == nil {
		panic("failure log is required")
	}
	if logger == nil {
		panic("logger is required")
	}
	return &Processor{reconciler: reconciler, failures: failures, logger: logger}
}

// Handle reconciles one task. Failures are written to the failure log and returned so the
// queue logs them; nothing is retried.
func (p *Processor) Handle(ctx context.Context, task queue.Task) error {
	trace := requesttrace.ForTask(task.Platform, task.ID.String())
	ctx = requesttrace.Into(ctx, trace)
	logger := p.logger.With(trace.Fields()...)

	n := listings.Notification{
		Platform:      task.Platform,
		Flow:          task.Notification.Flow,
		EventType:     task.Notification.EventType,
		TransactionID: task.Notification.TransactionID,
		ObjectID:      task.Notification.ObjectID,
		Message:       failureMessage(task.Notification.Data),
	}

	result, err := p.reconciler.Reconcile(ctx, n)
	if err == nil {
		logger.Debug("webhook reconciled", zap.String("action", string(result.Action)))
		return nil
	}

	if _, recErr := p.failures.Record(ctx, failureFor(task, err.Error())); recErr != nil {
		logger.Error("webhook failure could not be recorded",
			zap.NamedError("reconcile_error", err),
			zap.Error(recErr),
		)
	}
	return err
}

// failureMessage pulls a readable reason out of the optional data object.
func failureMessage(data json.RawMessage) string {
	if len(data) == 0 {
		return ""
	}
	var body struct {
		Message string `json:"message"`
		Reason  string `json:"reason"`
		Errors  []struct {
			Message string `json:"message"`
			Field   string `json:"field"`
		} `json:"errors"`
	}
	if err := json.Unmarshal(data, &body); err != nil {
		return ""
	}
	if msg := strings.TrimSpace(body.Message); msg != "" {
		return msg
	}
	parts := make([]string, 0, len(body.Errors))
	for _, e := range body.Errors {
		msg := strings.TrimSpace(e.Message)
		if msg == "" {
			continue
		}
		if e.Field != "" {
			msg = e.Field + ": " + msg
		}
		parts = append(parts, msg)
	}
	if len(parts) > 0 {
		return strings.Join(parts, "; ")
	}
	return strings.TrimSpace(body.Reason)
}

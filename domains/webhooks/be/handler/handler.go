package handler

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/zenGate-Global/rentboard/domains/webhooks/be/service"
	platformlogging "github.com/zenGate-Global/rentboard/platform/go/logging"
	"github.com/zenGate-Global/rentboard/platform/go/problem"
	"github.com/zenGate-Global/rentboard/platform/go/rental"
	"github.com/zenGate-Global/rentboard/platform/go/requesttrace"
)

const (
	// SignatureHeader carries the hex HMAC of "object_id,transaction_id".
	SignatureHeader = "x-signature"
	// MaxBodyBytes bounds the notification body read from the platform.
	MaxBodyBytes = 1 << 20
)

// Handler receives partner notifications. The route is unauthenticated; the signature policy
// lives in the service.
type Handler struct {
	svc    service.Service
	logger *zap.Logger
}

// New constructs a Handler instance.
func New(svc service.Service, logger *zap.Logger) *Handler {
	if svc == nil {
		panic("webhooks service is required")
	}
	if logger == nil {
		panic("logger is required")
	}
	return &Handler{svc: svc, logger: logger}
}

type receivedResponse struct {
	Received bool `json:"received"`
}

// Receive handles POST /api/v1/webhooks/{platform}. Accepted notifications are acknowledged
// before any reconciliation happens.
func (h *Handler) Receive(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	platform, err := rental.ParsePlatform(chi.URLParam(r, "platform"))
	if err != nil {
		problem.Write(w, buildProblem("Resource not found", err.Error(), problem.TypeNotFound, http.StatusNotFound))
		return
	}

	trace := requesttrace.ForPartner(platform, middleware.GetReqID(ctx))
	ctx = requesttrace.Into(ctx, trace)
	ctx = platformlogging.WithLogger(ctx, h.loggerFrom(ctx).With(trace.Fields()...))

	raw, err := io.ReadAll(http.MaxBytesReader(w, r.Body, MaxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			problem.Write(w, buildProblem("Payload too large", "notification body exceeds 1 MiB", problem.TypeValidation, http.StatusRequestEntityTooLarge))
			return
		}
		problem.Write(w, buildProblem("Invalid request body", "notification body could not be read", problem.TypeValidation, http.StatusBadRequest))
		return
	}

	receipt, err := h.svc.Receive(ctx, platform, raw, r.Header.Get(SignatureHeader))
	if err != nil {
		problem.Write(w, h.problemForError(ctx, err))
		return
	}

	h.loggerFrom(ctx).Info("webhook accepted",
		zap.String("task_id", receipt.TaskID.String()),
		zap.Bool("verified", receipt.Verified),
		zap.Bool("queued", receipt.Queued),
	)
	problem.WriteJSON(w, http.StatusOK, receivedResponse{Received: true})
}

func (h *Handler) problemForError(ctx context.Context, err error) problem.Details {
	p := classifyError(err)

	fields := []zap.Field{zap.Int("status", p.Status), zap.Error(err)}
	if p.Status >= http.StatusInternalServerError {
		h.loggerFrom(ctx).Error("webhook intake failed", fields...)
	} else {
		h.loggerFrom(ctx).Warn("webhook rejected", fields...)
	}
	return p
}

func classifyError(err error) problem.Details {
	switch {
	case errors.Is(err, service.ErrMalformedPayload):
		return buildProblem("Malformed notification", err.Error(), problem.TypeValidation, http.StatusBadRequest)
	case errors.Is(err, service.ErrInvalidSignature):
		return buildProblem("Invalid signature", "signature verification failed", problem.TypeUnauthorized, http.StatusUnauthorized)
	default:
		return buildProblem("Internal server error", "an unexpected error occurred", problem.TypeInternal, http.StatusInternalServerError)
	}
}

func buildProblem(title, detail, problemType string, status int) problem.Details {
	p := problem.Details{Title: title, Status: status}
	if detail != "" {
		p.Detail = &detail
	}
	if problemType != "" {
		p.Type = &problemType
	}
	return p
}

func (h *Handler) loggerFrom(ctx context.Context) *zap.Logger {
	if logger, ok := platformlogging.FromContext(ctx); ok {
		return logger
	}
	return h.logger
}

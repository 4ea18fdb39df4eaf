package handler

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	credentials "github.com/zenGate-Global/rentboard/domains/credentials/be/service"
	"github.com/zenGate-Global/rentboard/domains/listings/be/partner"
	"github.com/zenGate-Global/rentboard/domains/listings/be/service"
	platformauth "github.com/zenGate-Global/rentboard/platform/go/auth"
	platformlogging "github.com/zenGate-Global/rentboard/platform/go/logging"
	"github.com/zenGate-Global/rentboard/platform/go/problem"
	"github.com/zenGate-Global/rentboard/platform/go/rental"
)

type operation string

const (
	publishOperation operation = "listingsPublish"
	updateOperation  operation = "listingsUpdate"
	deleteOperation  operation = "listingsDelete"
	statusOperation  operation = "listingsStatus"
)

// Problem codes that tell the dashboard which action to offer.
const (
	CodeAlreadyPublished = "already_published"
	CodeStillPending     = "still_pending"
	CodeTransient        = "transient_failure"
	CodeRejected         = "rejected"
	CodeReconnect        = "reconnect_required"
)

// Handler exposes the listings service over HTTP.
type Handler struct {
	svc    service.Service
	logger *zap.Logger
}

// New constructs a Handler instance.
func New(svc service.Service, logger *zap.Logger) *Handler {
	if svc == nil {
		panic("listings service is required")
	}
	if logger == nil {
		panic("logger is required")
	}

	return &Handler{svc: svc, logger: logger}
}

type outcomeResponse struct {
	Success  bool   `json:"success"`
	Message  string `json:"message"`
	URL      string `json:"url,omitempty"`
	AdvertID string `json:"advertId,omitempty"`
	Pending  bool   `json:"pending"`
}

type action func(ctx context.Context, platform rental.Platform, principal string, apartmentID uuid.UUID) (service.Outcome, error)

// Publish handles POST /api/v1/apartments/{apartmentId}/listings/{platform}.
func (h *Handler) Publish(w http.ResponseWriter, r *http.Request) {
	h.run(w, r, publishOperation, http.StatusCreated, h.svc.Publish)
}

// Update handles PUT /api/v1/apartments/{apartmentId}/listings/{platform}.
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	h.run(w, r, updateOperation, http.StatusOK, h.svc.Update)
}

// Delete handles DELETE /api/v1/apartments/{apartmentId}/listings/{platform}.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	h.run(w, r, deleteOperation, http.StatusOK, h.svc.Delete)
}

// Status handles GET /api/v1/apartments/{apartmentId}/listings/{platform}.
func (h *Handler) Status(w http.ResponseWriter, r *http.Request) {
	h.run(w, r, statusOperation, http.StatusOK, h.svc.Status)
}

func (h *Handler) run(w http.ResponseWriter, r *http.Request, op operation, successStatus int, fn action) {
	ctx := r.Context()

	principal, ok := platformauth.PrincipalID(ctx)
	if !ok {
		problem.Write(w, buildProblem("Unauthorized", "missing credentials", problem.TypeUnauthorized, "", http.StatusUnauthorized))
		return
	}

	platform, err := rental.ParsePlatform(chi.URLParam(r, "platform"))
	if err != nil {
		h.loggerFrom(ctx).Info("unknown platform", zap.String("operation", string(op)), zap.Error(err))
		problem.Write(w, buildProblem("Resource not found", err.Error(), problem.TypeNotFound, "", http.StatusNotFound))
		return
	}

	apartmentID, err := uuid.Parse(chi.URLParam(r, "apartmentId"))
	if err != nil {
		problem.Write(w, buildProblem("Invalid apartment id", "apartmentId must be a valid UUID", problem.TypeValidation, "", http.StatusBadRequest))
		return
	}

	outcome, err := fn(ctx, platform, principal, apartmentID)
	if err != nil {
		problem.Write(w, h.problemForError(ctx, err, op, platform))
		return
	}

	h.loggerFrom(ctx).Info("listing operation completed",
		zap.String("operation", string(op)),
		zap.String("platform", string(platform)),
		zap.String("apartment_id", apartmentID.String()),
		zap.Bool("pending", outcome.Pending),
	)
	status := successStatus
	if outcome.Pending {
		status = http.StatusAccepted
	}
	problem.WriteJSON(w, status, outcomeResponse{
		Success:  outcome.Success,
		Message:  outcome.Message,
		URL:      outcome.URL,
		AdvertID: outcome.AdvertID,
		Pending:  outcome.Pending,
	})
}

func (h *Handler) problemForError(ctx context.Context, err error, op operation, platform rental.Platform) problem.Details {
	p := classifyError(err, platform)

	logger := h.loggerFrom(ctx)
	fieldsForLog := []zap.Field{
		zap.String("operation", string(op)),
		zap.String("platform", string(platform)),
		zap.Int("status", p.Status),
		zap.Error(err),
	}

	switch {
	case p.Status >= http.StatusInternalServerError:
		logger.Error("listing operation failed", fieldsForLog...)
	case p.Status == http.StatusNotFound:
		logger.Info("listing resource not found", fieldsForLog...)
	default:
		logger.Warn("listing request rejected", fieldsForLog...)
	}

	return p
}

// classifyError maps failures to problems whose detail tells a landlord what to do next.
func classifyError(err error, platform rental.Platform) problem.Details {
	name := platform.DisplayName()

	var rejection *partner.RejectionError
	switch {
	case errors.Is(err, service.ErrApartmentNotFound):
		return buildProblem("Apartment not found", "apartment not found", problem.TypeNotFound, "", http.StatusNotFound)
	case errors.Is(err, service.ErrUnknownPlatform):
		return buildProblem("Resource not found", fmt.Sprintf("%s is not enabled on this server", name), problem.TypeNotFound, "", http.StatusNotFound)
	case errors.Is(err, service.ErrAlreadyPublished):
		return buildProblem("Already published",
			fmt.Sprintf("This apartment is already listed on %s. Update or remove the existing listing instead.", name),
			problem.TypeConflict, CodeAlreadyPublished, http.StatusConflict)
	case errors.Is(err, service.ErrStillPending):
		return buildProblem("Not yet confirmed",
			fmt.Sprintf("%s is still processing this listing. Please try again in a few minutes.", name),
			problem.TypeConflict, CodeStillPending, http.StatusConflict)
	case errors.Is(err, service.ErrNotPublished):
		return buildProblem("Not published",
			fmt.Sprintf("This apartment is not listed on %s yet.", name),
			problem.TypeConflict, "", http.StatusConflict)
	case errors.Is(err, service.ErrNotAvailable):
		return buildProblem("Apartment not available",
			"Only apartments that are available for rent can be published.",
			problem.TypeConflict, "", http.StatusConflict)
	case errors.Is(err, service.ErrUnsupported):
		return buildProblem("Not supported",
			fmt.Sprintf("%s does not offer this operation.", name),
			problem.TypeValidation, "", http.StatusBadRequest)
	case errors.Is(err, credentials.ErrNotConfigured):
		return buildProblem("Integration not configured",
			fmt.Sprintf("The %s integration has not been set up by an administrator yet.", name),
			problem.TypeConflict, "", http.StatusConflict)
	case errors.Is(err, credentials.ErrNotAuthorized), errors.Is(err, credentials.ErrRefreshFailed):
		return buildProblem("Reconnect required",
			fmt.Sprintf("Connect your %s account again to continue.", name),
			problem.TypeConflict, CodeReconnect, http.StatusConflict)
	case errors.As(err, &rejection) && (rejection.StatusCode == 0 || rejection.StatusCode >= http.StatusInternalServerError || rejection.StatusCode == http.StatusTooManyRequests):
		return buildProblem("Marketplace unavailable",
			fmt.Sprintf("%s could not be reached right now. Please try again shortly.", name),
			problem.TypeUpstream, CodeTransient, http.StatusServiceUnavailable)
	case errors.As(err, &rejection):
		return buildProblem("Rejected by marketplace",
			fmt.Sprintf("%s rejected the listing: %s", name, rejection.Message),
			problem.TypeUpstream, CodeRejected, http.StatusUnprocessableEntity)
	default:
		return buildProblem("Internal server error", "an unexpected error occurred", problem.TypeInternal, "", http.StatusInternalServerError)
	}
}

func buildProblem(title, detail, problemType, code string, status int) problem.Details {
	p := problem.Details{
		Title:  title,
		Status: status,
	}
	if detail != "" {
		p.Detail = &detail
	}
	if problemType != "" {
		p.Type = &problemType
	}
	if code != "" {
		p.Code = &code
	}
	return p
}

func (h *Handler) loggerFrom(ctx context.Context) *zap.Logger {
	if logger, ok := platformlogging.FromContext(ctx); ok {
		return logger
	}
	return h.logger
}

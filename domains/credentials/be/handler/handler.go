package handler

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"html/template"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/zenGate-Global/rentboard/domains/credentials/be/service"
	platformauth "github.com/zenGate-Global/rentboard/platform/go/auth"
	platformlogging "github.com/zenGate-Global/rentboard/platform/go/logging"
	"github.com/zenGate-Global/rentboard/platform/go/problem"
	"github.com/zenGate-Global/rentboard/platform/go/rental"
)

type operation string

const (
	configureAppOperation operation = "integrationsConfigureApp"
	statusOperation       operation = "integrationsStatus"
	authorizeOperation    operation = "integrationsAuthorize"
	callbackOperation     operation = "integrationsCallback"
	disconnectOperation   operation = "integrationsDisconnect"
)

//go:embed callback.html
var callbackPage string

var callbackTemplate = template.Must(template.New("callback").Parse(callbackPage))

// Handler exposes the credentials service over HTTP.
type Handler struct {
	svc    service.Service
	logger *zap.Logger
}

// New constructs a Handler instance.
func New(svc service.Service, logger *zap.Logger) *Handler {
	if svc == nil {
		panic("credentials service is required")
	}
	if logger == nil {
		panic("logger is required")
	}

	return &Handler{svc: svc, logger: logger}
}

type configureAppRequest struct {
	ClientID     string `json:"clientId"`
	ClientSecret string `json:"clientSecret"`
	APIKey       string `json:"apiKey,omitempty"`
}

type appCredentialResponse struct {
	Platform  string    `json:"platform"`
	ClientID  string    `json:"clientId"`
	HasAPIKey bool      `json:"hasApiKey"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type statusResponse struct {
	Platform     string     `json:"platform"`
	IsConfigured bool       `json:"isConfigured"`
	IsActive     bool       `json:"isActive"`
	ExpiresAt    *time.Time `json:"expiresAt,omitempty"`
	LastSyncAt   *time.Time `json:"lastSyncAt,omitempty"`
	LastError    *string    `json:"lastError,omitempty"`
}

type authorizeResponse struct {
	AuthorizationURL string `json:"authorizationUrl"`
}

// ConfigureApp handles PUT /api/v1/admin/integrations/{platform}/app.
func (h *Handler) ConfigureApp(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	platform, ok := h.platformParam(w, r, configureAppOperation)
	if !ok {
		return
	}

	var body configureAppRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		problem.Write(w, h.buildProblem("Invalid request body", "request body must be a JSON object", problem.TypeValidation, http.StatusBadRequest, nil))
		return
	}

	app, err := h.svc.ConfigureApp(ctx, service.ConfigureAppInput{
		Platform:     platform,
		ClientID:     body.ClientID,
		ClientSecret: body.ClientSecret,
		APIKey:       body.APIKey,
	})
	if err != nil {
		problem.Write(w, h.problemForError(ctx, err, configureAppOperation))
		return
	}

	problem.WriteJSON(w, http.StatusOK, appCredentialResponse{
		Platform:  string(app.Platform),
		ClientID:  app.ClientID,
		HasAPIKey: app.APIKey != "",
		UpdatedAt: app.UpdatedAt,
	})
}

// Status handles GET /api/v1/integrations/{platform}.
func (h *Handler) Status(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	platform, ok := h.platformParam(w, r, statusOperation)
	if !ok {
		return
	}
	principal, ok := h.principal(w, r)
	if !ok {
		return
	}

	status, err := h.svc.Status(ctx, platform, principal)
	if err != nil {
		problem.Write(w, h.problemForError(ctx, err, statusOperation))
		return
	}

	problem.WriteJSON(w, http.StatusOK, statusResponse{
		Platform:     string(status.Platform),
		IsConfigured: status.IsConfigured,
		IsActive:     status.IsActive,
		ExpiresAt:    status.ExpiresAt,
		LastSyncAt:   status.LastSyncAt,
		LastError:    status.LastError,
	})
}

// Authorize handles POST /api/v1/integrations/{platform}/authorize and returns the partner consent URL.
func (h *Handler) Authorize(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	platform, ok := h.platformParam(w, r, authorizeOperation)
	if !ok {
		return
	}
	principal, ok := h.principal(w, r)
	if !ok {
		return
	}

	url, err := h.svc.BeginAuthorization(ctx, platform, principal)
	if err != nil {
		problem.Write(w, h.problemForError(ctx, err, authorizeOperation))
		return
	}

	problem.WriteJSON(w, http.StatusOK, authorizeResponse{AuthorizationURL: url})
}

// Disconnect handles DELETE /api/v1/integrations/{platform}.
func (h *Handler) Disconnect(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	platform, ok := h.platformParam(w, r, disconnectOperation)
	if !ok {
		return
	}
	principal, ok := h.principal(w, r)
	if !ok {
		return
	}

	if err := h.svc.Disconnect(ctx, platform, principal); err != nil {
		problem.Write(w, h.problemForError(ctx, err, disconnectOperation))
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

type callbackView struct {
	Platform string
	Success  bool
	Message  map[string]string
	Error    string
}

// Callback handles the browser redirect from the partner consent screen. It is public; the
// principal comes from the state parameter.
func (h *Handler) Callback(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := h.loggerFrom(ctx)

	view := callbackView{Platform: chi.URLParam(r, "platform")}
	status := http.StatusOK

	platform, err := rental.ParsePlatform(view.Platform)
	switch {
	case err != nil:
		status = http.StatusNotFound
		view.Error = "This marketplace is not supported."
	case r.URL.Query().Get("error") != "":
		status = http.StatusBadRequest
		view.Platform = platform.DisplayName()
		view.Error = "The marketplace did not grant access: " + r.URL.Query().Get("error") + "."
	default:
		view.Platform = platform.DisplayName()
		_, cbErr := h.svc.CompleteAuthorization(ctx, platform, r.URL.Query().Get("code"), r.URL.Query().Get("state"))
		if cbErr != nil {
			status, view.Error = callbackFailure(cbErr)
			logger.Warn("oauth callback failed",
				zap.String("operation", string(callbackOperation)),
				zap.String("platform", string(platform)),
				zap.Error(cbErr),
			)
			break
		}
		view.Success = true
		view.Message = map[string]string{"type": "integration-connected", "platform": string(platform)}
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := callbackTemplate.Execute(w, view); err != nil {
		logger.Error("render oauth callback page", zap.Error(err))
	}
}

func callbackFailure(err error) (int, string) {
	switch {
	case errors.Is(err, service.ErrInvalidState):
		return http.StatusBadRequest, "The authorization link is invalid or has expired."
	case errors.Is(err, service.ErrNotConfigured):
		return http.StatusConflict, "This marketplace integration has not been set up by an administrator yet."
	case errors.Is(err, service.ErrExchangeFailed):
		return http.StatusBadGateway, "The marketplace rejected the authorization. Please try again."
	default:
		return http.StatusInternalServerError, "Something went wrong while saving the connection. Please try again."
	}
}

func (h *Handler) platformParam(w http.ResponseWriter, r *http.Request, op operation) (rental.Platform, bool) {
	platform, err := rental.ParsePlatform(chi.URLParam(r, "platform"))
	if err != nil {
		h.loggerFrom(r.Context()).Info("unknown platform", zap.String("operation", string(op)), zap.Error(err))
		problem.Write(w, h.buildProblem("Resource not found", err.Error(), problem.TypeNotFound, http.StatusNotFound, nil))
		return "", false
	}
	return platform, true
}

func (h *Handler) principal(w http.ResponseWriter, r *http.Request) (string, bool) {
	principal, ok := platformauth.PrincipalID(r.Context())
	if !ok {
		problem.Write(w, h.buildProblem("Unauthorized", "missing credentials", problem.TypeUnauthorized, http.StatusUnauthorized, nil))
		return "", false
	}
	return principal, true
}

func (h *Handler) problemForError(ctx context.Context, err error, op operation) problem.Details {
	status, title, detail, problemType, fields := h.classifyError(err)

	logger := h.loggerFrom(ctx)
	fieldsForLog := []zap.Field{
		zap.String("operation", string(op)),
		zap.Int("status", status),
	}

	switch {
	case status >= http.StatusInternalServerError:
		logger.Error("integrations operation failed", append(fieldsForLog, zap.Error(err))...)
	case status == http.StatusNotFound:
		logger.Info("integrations resource not found", append(fieldsForLog, zap.Error(err))...)
	default:
		logger.Warn("integrations request rejected", append(fieldsForLog, zap.Error(err))...)
	}

	return h.buildProblem(title, detail, problemType, status, fields)
}

func (h *Handler) classifyError(err error) (status int, title, detail, problemType string, fieldErrors service.FieldErrors) {
	var validationErr *service.ValidationError
	switch {
	case errors.As(err, &validationErr):
		return http.StatusBadRequest,
			"Validation failed",
			"one or more fields are invalid",
			problem.TypeValidation,
			validationErr.Fields
	case errors.Is(err, service.ErrNotConfigured):
		return http.StatusConflict,
			"Integration not configured",
			"an administrator has to add the marketplace app credentials first",
			problem.TypeConflict,
			nil
	case errors.Is(err, service.ErrNotAuthorized):
		return http.StatusConflict,
			"Account not connected",
			"connect your marketplace account before continuing",
			problem.TypeConflict,
			nil
	case errors.Is(err, service.ErrRefreshFailed):
		return http.StatusConflict,
			"Reconnect required",
			"the marketplace session expired; connect your account again",
			problem.TypeConflict,
			nil
	default:
		return http.StatusInternalServerError,
			"Internal server error",
			"an unexpected error occurred",
			problem.TypeInternal,
			nil
	}
}

func (h *Handler) buildProblem(title, detail, problemType string, status int, fieldErrors service.FieldErrors) problem.Details {
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

	if len(fieldErrors) > 0 {
		copied := make(map[string][]string, len(fieldErrors))
		for field, messages := range fieldErrors {
			copied[field] = append([]string(nil), messages...)
		}
		p.Errors = &copied
	}

	return p
}

func (h *Handler) loggerFrom(ctx context.Context) *zap.Logger {
	if logger, ok := platformlogging.FromContext(ctx); ok {
		return logger
	}
	return h.logger
}

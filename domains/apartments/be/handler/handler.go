package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/zenGate-Global/rentboard/domains/apartments/be/service"
	platformauth "github.com/zenGate-Global/rentboard/platform/go/auth"
	platformlogging "github.com/zenGate-Global/rentboard/platform/go/logging"
	"github.com/zenGate-Global/rentboard/platform/go/problem"
	"github.com/zenGate-Global/rentboard/platform/go/rental"
)

type operation string

const (
	listOperation operation = "apartmentsList"
	getOperation  operation = "apartmentsGet"
	saveOperation operation = "apartmentsSave"
)

// Handler exposes the apartments service over HTTP.
type Handler struct {
	svc    service.Service
	logger *zap.Logger
}

// New constructs a Handler instance.
func New(svc service.Service, logger *zap.Logger) *Handler {
	if svc == nil {
		panic("apartments service is required")
	}
	if logger == nil {
		panic("logger is required")
	}

	return &Handler{svc: svc, logger: logger}
}

type apartmentRequest struct {
	Title            string     `json:"title"`
	Address          string     `json:"address"`
	Street           *string    `json:"street,omitempty"`
	StreetNumber     *string    `json:"streetNumber,omitempty"`
	PostalCode       *string    `json:"postalCode,omitempty"`
	City             *string    `json:"city,omitempty"`
	Price            float64    `json:"price"`
	AreaM2           float64    `json:"areaM2"`
	Description      string     `json:"description"`
	PhotoURLs        []string   `json:"photoUrls"`
	Status           string     `json:"status"`
	ContractEndDate  *time.Time `json:"contractEndDate,omitempty"`
	AvailableFrom    *time.Time `json:"availableFrom,omitempty"`
	Latitude         *float64   `json:"latitude,omitempty"`
	Longitude        *float64   `json:"longitude,omitempty"`
	OtodomCityID     *int       `json:"otodomCityId,omitempty"`
	OtodomStreetName *string    `json:"otodomStreetName,omitempty"`
}

// ExternalRefResponse is the wire form of one platform reference.
type ExternalRefResponse struct {
	State     string    `json:"state"`
	Value     string    `json:"value"`
	URL       string    `json:"url,omitempty"`
	LastError string    `json:"lastError,omitempty"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// ApartmentResponse is the wire form of an apartment.
type ApartmentResponse struct {
	ID               uuid.UUID                      `json:"id"`
	OwnerID          *string                        `json:"ownerId,omitempty"`
	Title            string                         `json:"title"`
	Address          string                         `json:"address"`
	Street           *string                        `json:"street,omitempty"`
	StreetNumber     *string                        `json:"streetNumber,omitempty"`
	PostalCode       *string                        `json:"postalCode,omitempty"`
	City             *string                        `json:"city,omitempty"`
	Price            float64                        `json:"price"`
	AreaM2           float64                        `json:"areaM2"`
	Description      string                         `json:"description"`
	PhotoURLs        []string                       `json:"photoUrls"`
	Status           string                         `json:"status"`
	ContractEndDate  *time.Time                     `json:"contractEndDate,omitempty"`
	AvailableFrom    *time.Time                     `json:"availableFrom,omitempty"`
	Latitude         *float64                       `json:"latitude,omitempty"`
	Longitude        *float64                       `json:"longitude,omitempty"`
	OtodomCityID     *int                           `json:"otodomCityId,omitempty"`
	OtodomStreetName *string                        `json:"otodomStreetName,omitempty"`
	ExternalRefs     map[string]ExternalRefResponse `json:"externalRefs"`
	CreatedAt        time.Time                      `json:"createdAt"`
	UpdatedAt        time.Time                      `json:"updatedAt"`
}

type listResponse struct {
	Items []ApartmentResponse `json:"items"`
}

// List handles GET /api/v1/apartments?status=.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	principal, ok := h.principal(w, r)
	if !ok {
		return
	}

	status := rental.Status(strings.ToUpper(strings.TrimSpace(r.URL.Query().Get("status"))))
	apartments, err := h.svc.List(ctx, service.ListOptions{OwnerID: principal, Status: status})
	if err != nil {
		problem.Write(w, h.problemForError(ctx, err, listOperation))
		return
	}

	items := make([]ApartmentResponse, 0, len(apartments))
	for _, apt := range apartments {
		items = append(items, ToResponse(apt))
	}
	problem.WriteJSON(w, http.StatusOK, listResponse{Items: items})
}

// Get handles GET /api/v1/apartments/{apartmentId}.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	principal, ok := h.principal(w, r)
	if !ok {
		return
	}
	id, ok := h.apartmentID(w, r, getOperation)
	if !ok {
		return
	}

	apt, err := h.svc.Get(ctx, principal, id)
	if err != nil {
		problem.Write(w, h.problemForError(ctx, err, getOperation))
		return
	}
	problem.WriteJSON(w, http.StatusOK, ToResponse(apt))
}

// Save handles PUT /api/v1/apartments/{apartmentId}.
func (h *Handler) Save(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	principal, ok := h.principal(w, r)
	if !ok {
		return
	}
	id, ok := h.apartmentID(w, r, saveOperation)
	if !ok {
		return
	}

	var body apartmentRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		problem.Write(w, h.buildProblem("Invalid request body", "request body must be a JSON object", problem.TypeValidation, http.StatusBadRequest, nil))
		return
	}

	apt, err := h.svc.Save(ctx, principal, id, service.SaveInput{
		Title:            body.Title,
		Address:          body.Address,
		Street:           body.Street,
		StreetNumber:     body.StreetNumber,
		PostalCode:       body.PostalCode,
		City:             body.City,
		Price:            body.Price,
		AreaM2:           body.AreaM2,
		Description:      body.Description,
		PhotoURLs:        body.PhotoURLs,
		Status:           rental.Status(strings.ToUpper(strings.TrimSpace(body.Status))),
		ContractEndDate:  body.ContractEndDate,
		AvailableFrom:    body.AvailableFrom,
		Latitude:         body.Latitude,
		Longitude:        body.Longitude,
		OtodomCityID:     body.OtodomCityID,
		OtodomStreetName: body.OtodomStreetName,
	})
	if err != nil {
		problem.Write(w, h.problemForError(ctx, err, saveOperation))
		return
	}
	problem.WriteJSON(w, http.StatusOK, ToResponse(apt))
}

// ToResponse converts an apartment to its wire form.
func ToResponse(apt rental.Apartment) ApartmentResponse {
	photos := apt.PhotoURLs
	if photos == nil {
		photos = []string{}
	}

	refs := make(map[string]ExternalRefResponse, len(apt.ExternalRefs))
	for platform, ref := range apt.ExternalRefs {
		if ref.IsEmpty() {
			continue
		}
		refs[string(platform)] = ExternalRefResponse{
			State:     string(ref.State),
			Value:     ref.Value,
			URL:       ref.URL,
			LastError: ref.LastError,
			UpdatedAt: ref.UpdatedAt,
		}
	}

	return ApartmentResponse{
		ID:               apt.ID,
		OwnerID:          apt.OwnerID,
		Title:            apt.Title,
		Address:          apt.Address,
		Street:           apt.Street,
		StreetNumber:     apt.StreetNumber,
		PostalCode:       apt.PostalCode,
		City:             apt.City,
		Price:            apt.Price,
		AreaM2:           apt.AreaM2,
		Description:      apt.Description,
		PhotoURLs:        photos,
		Status:           string(apt.Status),
		ContractEndDate:  apt.ContractEndDate,
		AvailableFrom:    apt.AvailableFrom,
		Latitude:         apt.Latitude,
		Longitude:        apt.Longitude,
		OtodomCityID:     apt.OtodomCityID,
		OtodomStreetName: apt.OtodomStreetName,
		ExternalRefs:     refs,
		CreatedAt:        apt.CreatedAt,
		UpdatedAt:        apt.UpdatedAt,
	}
}

func (h *Handler) apartmentID(w http.ResponseWriter, r *http.Request, op operation) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "apartmentId"))
	if err != nil {
		h.loggerFrom(r.Context()).Info("invalid apartment id", zap.String("operation", string(op)), zap.Error(err))
		problem.Write(w, h.buildProblem("Invalid apartment id", "apartmentId must be a valid UUID", problem.TypeValidation, http.StatusBadRequest, nil))
		return uuid.Nil, false
	}
	return id, true
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
		logger.Error("apartments operation failed", append(fieldsForLog, zap.Error(err))...)
	case status == http.StatusNotFound:
		logger.Info("apartment not found", append(fieldsForLog, zap.Error(err))...)
	default:
		logger.Warn("apartments request rejected", append(fieldsForLog, zap.Error(err))...)
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
	case errors.Is(err, service.ErrNotFound):
		return http.StatusNotFound,
			"Apartment not found",
			"apartment not found",
			problem.TypeNotFound,
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

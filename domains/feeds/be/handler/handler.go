package handler

import (
	"context"
	"net/http"

	"go.uber.org/zap"

	"github.com/zenGate-Global/rentboard/domains/feeds/be/service"
	platformlogging "github.com/zenGate-Global/rentboard/platform/go/logging"
	"github.com/zenGate-Global/rentboard/platform/go/problem"
	"github.com/zenGate-Global/rentboard/platform/go/rental"
)

// ContentType is served with every feed document.
const ContentType = "application/xml; charset=utf-8"

// Handler serves the public XML feeds. Partner crawlers fetch them unauthenticated.
type Handler struct {
	svc    service.Service
	logger *zap.Logger
}

// New constructs a Handler instance.
func New(svc service.Service, logger *zap.Logger) *Handler {
	if svc == nil {
		panic("feeds service is required")
	}
	if logger == nil {
		panic("logger is required")
	}
	return &Handler{svc: svc, logger: logger}
}

// OLX handles GET /feeds/olx.xml.
func (h *Handler) OLX(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, rental.PlatformOLX)
}

// Otodom handles GET /feeds/otodom.xml.
func (h *Handler) Otodom(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, rental.PlatformOtodom)
}

func (h *Handler) serve(w http.ResponseWriter, r *http.Request, platform rental.Platform) {
	ctx := r.Context()

	doc, err := h.svc.Generate(ctx, platform, r.URL.Query().Get("owner"))
	if err != nil {
		h.loggerFrom(ctx).Error("feed generation failed", zap.String("platform", string(platform)), zap.Error(err))
		detail := "the feed could not be generated"
		kind := problem.TypeInternal
		problem.Write(w, problem.Details{
			Title:  "Internal server error",
			Status: http.StatusInternalServerError,
			Detail: &detail,
			Type:   &kind,
		})
		return
	}

	w.Header().Set("Content-Type", ContentType)
	w.WriteHeader(http.StatusOK)
	if r.Method == http.MethodHead {
		return
	}
	_, _ = w.Write(doc)
}

func (h *Handler) loggerFrom(ctx context.Context) *zap.Logger {
	if logger, ok := platformlogging.FromContext(ctx); ok {
		return logger
	}
	return h.logger
}

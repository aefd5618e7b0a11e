package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	domain "github.com/stylefit/api/internal/domain"
	"github.com/stylefit/api/internal/platform/auth"
	"github.com/stylefit/api/internal/platform/httpx"
	"github.com/stylefit/api/internal/services"
)

const maxFittingBodySize = 16 * 1024

// FittingHandlers exposes the virtual fitting endpoints: try on a catalog
// product or an owned design, and browse the try-on history.
type FittingHandlers struct {
	authn    *auth.Authenticator
	fittings services.FittingService
}

// NewFittingHandlers constructs handlers backed by the fitting service.
func NewFittingHandlers(authn *auth.Authenticator, fittings services.FittingService) *FittingHandlers {
	return &FittingHandlers{
		authn:    authn,
		fittings: fittings,
	}
}

// Routes wires the /fittings endpoints onto the provided router.
func (h *FittingHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	if h.authn != nil {
		r.Use(h.authn.RequireFirebaseAuth())
	}
	r.Post("/", h.tryOn)
	r.Get("/", h.listTryOns)
	r.Get("/{tryOnId}", h.getTryOn)
}

type tryOnRequest struct {
	ProductID    string `json:"productId"`
	DesignID     string `json:"designId"`
	SelectedSize string `json:"selectedSize"`
}

func (h *FittingHandlers) tryOn(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	identity, ok := requireIdentity(ctx, w, h.fittings != nil, "fitting")
	if !ok {
		return
	}

	var req tryOnRequest
	if err := decodeJSONBody(r, maxFittingBodySize, &req); err != nil {
		writeBodyError(ctx, w, err)
		return
	}

	productID := strings.TrimSpace(req.ProductID)
	designID := strings.TrimSpace(req.DesignID)
	switch {
	case productID != "" && designID != "":
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "provide either productId or designId, not both", http.StatusBadRequest))
		return
	case productID == "" && designID == "":
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "either productId or designId is required", http.StatusBadRequest))
		return
	}

	var (
		record domain.TryOn
		err    error
	)
	if productID != "" {
		record, err = h.fittings.TryOnProduct(ctx, services.TryOnProductCommand{
			UserID:       identity.UID,
			ProductID:    productID,
			SelectedSize: req.SelectedSize,
		})
	} else {
		record, err = h.fittings.TryOnDesign(ctx, services.TryOnDesignCommand{
			UserID:   identity.UID,
			DesignID: designID,
		})
	}
	if err != nil {
		writeFittingError(ctx, w, err)
		return
	}

	writeJSONResponse(w, http.StatusCreated, buildTryOnPayload(record))
}

func (h *FittingHandlers) getTryOn(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	identity, ok := requireIdentity(ctx, w, h.fittings != nil, "fitting")
	if !ok {
		return
	}

	record, err := h.fittings.GetTryOn(ctx, identity.UID, chi.URLParam(r, "tryOnId"))
	if err != nil {
		writeFittingError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, buildTryOnPayload(record))
}

func (h *FittingHandlers) listTryOns(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	identity, ok := requireIdentity(ctx, w, h.fittings != nil, "fitting")
	if !ok {
		return
	}

	page, err := h.fittings.ListTryOns(ctx, identity.UID, paginationFromQuery(r))
	if err != nil {
		writeFittingError(ctx, w, err)
		return
	}

	items := make([]tryOnPayload, 0, len(page.Items))
	for _, record := range page.Items {
		items = append(items, buildTryOnPayload(record))
	}
	writeJSONResponse(w, http.StatusOK, tryOnListPayload{
		Items:         items,
		NextPageToken: page.NextPageToken,
	})
}

type tryOnPayload struct {
	ID                 string            `json:"id"`
	Source             string            `json:"source"`
	ProductID          string            `json:"productId,omitempty"`
	DesignID           string            `json:"designId,omitempty"`
	SelectedSize       string            `json:"selectedSize,omitempty"`
	Fit                string            `json:"fit"`
	SizeRecommendation string            `json:"sizeRecommendation"`
	FitScore           int               `json:"fitScore"`
	FitDetails         map[string]string `json:"fitDetails"`
	CreatedAt          string            `json:"createdAt"`
}

type tryOnListPayload struct {
	Items         []tryOnPayload `json:"items"`
	NextPageToken string         `json:"nextPageToken,omitempty"`
}

func buildTryOnPayload(record domain.TryOn) tryOnPayload {
	createdAt := ""
	if !record.CreatedAt.IsZero() {
		createdAt = record.CreatedAt.UTC().Format(time.RFC3339Nano)
	}
	return tryOnPayload{
		ID:                 record.ID,
		Source:             string(record.Source),
		ProductID:          record.ProductID,
		DesignID:           record.DesignID,
		SelectedSize:       string(record.SelectedSize),
		Fit:                record.Fit,
		SizeRecommendation: record.SizeRecommendation,
		FitScore:           record.FitScore,
		FitDetails:         fitDetailsToPayload(record.FitDetails),
		CreatedAt:          createdAt,
	}
}

func requireIdentity(ctx context.Context, w http.ResponseWriter, serviceReady bool, surface string) (*auth.Identity, bool) {
	if !serviceReady {
		httpx.WriteError(ctx, w, httpx.NewError(surface+"_service_unavailable", surface+" service is unavailable", http.StatusServiceUnavailable))
		return nil, false
	}
	identity, ok := auth.IdentityFromContext(ctx)
	if !ok || identity == nil || strings.TrimSpace(identity.UID) == "" {
		httpx.WriteError(ctx, w, httpx.NewError("unauthenticated", "authentication required", http.StatusUnauthorized))
		return nil, false
	}
	return identity, true
}

func writeBodyError(ctx context.Context, w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, errBodyTooLarge):
		httpx.WriteError(ctx, w, httpx.NewError("payload_too_large", "request body exceeds allowed size", http.StatusRequestEntityTooLarge))
	default:
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
	}
}

func writeFittingError(ctx context.Context, w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, services.ErrFittingInvalidInput):
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
	case errors.Is(err, services.ErrFittingNotFound):
		httpx.WriteError(ctx, w, httpx.NewError("not_found", "record not found", http.StatusNotFound))
	case errors.Is(err, services.ErrFittingForbidden):
		httpx.WriteError(ctx, w, httpx.NewError("forbidden", "access denied", http.StatusForbidden))
	case errors.Is(err, services.ErrFittingUnavailable):
		httpx.WriteError(ctx, w, httpx.NewError("service_unavailable", "fitting storage unavailable", http.StatusServiceUnavailable))
	default:
		httpx.WriteError(ctx, w, httpx.NewError("internal_error", "unexpected error", http.StatusInternalServerError))
	}
}

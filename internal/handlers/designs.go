package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	domain "github.com/stylefit/api/internal/domain"
	"github.com/stylefit/api/internal/platform/auth"
	"github.com/stylefit/api/internal/platform/httpx"
	"github.com/stylefit/api/internal/services"
)

const maxDesignBodySize = 128 * 1024

// DesignHandlers exposes the made-to-measure design lifecycle endpoints.
type DesignHandlers struct {
	authn   *auth.Authenticator
	designs services.DesignService
}

// NewDesignHandlers constructs handlers backed by the design service.
func NewDesignHandlers(authn *auth.Authenticator, designs services.DesignService) *DesignHandlers {
	return &DesignHandlers{
		authn:   authn,
		designs: designs,
	}
}

// Routes wires the /designs endpoints onto the provided router.
func (h *DesignHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	if h.authn != nil {
		r.Use(h.authn.RequireFirebaseAuth())
	}
	r.Post("/", h.createDesign)
	r.Get("/", h.listDesigns)
	r.Get("/{designId}", h.getDesign)
	r.Patch("/{designId}", h.updateDesign)
	r.Put("/{designId}", h.updateDesign)
	r.Post("/{designId}/submit", h.submitDesign)
	r.Post("/{designId}/archive", h.archiveDesign)
}

type createDesignRequest struct {
	Label          string             `json:"label"`
	Notes          string             `json:"notes"`
	Category       string             `json:"category"`
	FabricID       string             `json:"fabricId"`
	Specifications map[string]float64 `json:"specifications"`
}

func (h *DesignHandlers) createDesign(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	identity, ok := requireIdentity(ctx, w, h.designs != nil, "design")
	if !ok {
		return
	}

	var req createDesignRequest
	if err := decodeJSONBody(r, maxDesignBodySize, &req); err != nil {
		writeBodyError(ctx, w, err)
		return
	}

	design, err := h.designs.CreateDesign(ctx, services.CreateDesignCommand{
		OwnerID:        identity.UID,
		Label:          req.Label,
		Notes:          req.Notes,
		Category:       req.Category,
		FabricID:       req.FabricID,
		Specifications: measurementsFromPayload(req.Specifications),
	})
	if err != nil {
		writeDesignError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusCreated, buildDesignPayload(design))
}

type updateDesignRequest struct {
	Label          *string            `json:"label"`
	Notes          *string            `json:"notes"`
	FabricID       *string            `json:"fabricId"`
	Specifications map[string]float64 `json:"specifications"`
}

func (h *DesignHandlers) updateDesign(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	identity, ok := requireIdentity(ctx, w, h.designs != nil, "design")
	if !ok {
		return
	}

	var req updateDesignRequest
	if err := decodeJSONBody(r, maxDesignBodySize, &req); err != nil {
		writeBodyError(ctx, w, err)
		return
	}

	design, err := h.designs.UpdateDesign(ctx, services.UpdateDesignCommand{
		OwnerID:        identity.UID,
		DesignID:       chi.URLParam(r, "designId"),
		Label:          req.Label,
		Notes:          req.Notes,
		FabricID:       req.FabricID,
		Specifications: measurementsFromPayload(req.Specifications),
	})
	if err != nil {
		writeDesignError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, buildDesignPayload(design))
}

func (h *DesignHandlers) getDesign(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	identity, ok := requireIdentity(ctx, w, h.designs != nil, "design")
	if !ok {
		return
	}

	design, err := h.designs.GetDesign(ctx, identity.UID, chi.URLParam(r, "designId"))
	if err != nil {
		writeDesignError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, buildDesignPayload(design))
}

func (h *DesignHandlers) listDesigns(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	identity, ok := requireIdentity(ctx, w, h.designs != nil, "design")
	if !ok {
		return
	}

	page, err := h.designs.ListDesigns(ctx, identity.UID, services.DesignListQuery{
		Status:     domain.DesignStatus(r.URL.Query().Get("status")),
		Pagination: paginationFromQuery(r),
	})
	if err != nil {
		writeDesignError(ctx, w, err)
		return
	}

	items := make([]designPayload, 0, len(page.Items))
	for _, design := range page.Items {
		items = append(items, buildDesignPayload(design))
	}
	writeJSONResponse(w, http.StatusOK, designListPayload{
		Items:         items,
		NextPageToken: page.NextPageToken,
	})
}

func (h *DesignHandlers) submitDesign(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	identity, ok := requireIdentity(ctx, w, h.designs != nil, "design")
	if !ok {
		return
	}

	design, err := h.designs.SubmitDesign(ctx, identity.UID, chi.URLParam(r, "designId"))
	if err != nil {
		writeDesignError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, buildDesignPayload(design))
}

func (h *DesignHandlers) archiveDesign(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	identity, ok := requireIdentity(ctx, w, h.designs != nil, "design")
	if !ok {
		return
	}

	design, err := h.designs.ArchiveDesign(ctx, identity.UID, chi.URLParam(r, "designId"))
	if err != nil {
		writeDesignError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, buildDesignPayload(design))
}

type designPayload struct {
	ID             string             `json:"id"`
	Label          string             `json:"label"`
	Notes          string             `json:"notes,omitempty"`
	Category       string             `json:"category,omitempty"`
	FabricID       string             `json:"fabricId,omitempty"`
	Specifications map[string]float64 `json:"specifications,omitempty"`
	ImagePaths     []string           `json:"imagePaths,omitempty"`
	Status         string             `json:"status"`
	PriceAmount    int64              `json:"priceAmount,omitempty"`
	Currency       string             `json:"currency,omitempty"`
	CreatedAt      string             `json:"createdAt,omitempty"`
	UpdatedAt      string             `json:"updatedAt,omitempty"`
}

type designListPayload struct {
	Items         []designPayload `json:"items"`
	NextPageToken string          `json:"nextPageToken,omitempty"`
}

func buildDesignPayload(design domain.CustomDesign) designPayload {
	return designPayload{
		ID:             design.ID,
		Label:          design.Label,
		Notes:          design.Notes,
		Category:       design.Category,
		FabricID:       design.FabricID,
		Specifications: measurementsToPayload(design.DesignSpecifications),
		ImagePaths:     design.ImagePaths,
		Status:         string(design.Status),
		PriceAmount:    design.PriceAmount,
		Currency:       design.Currency,
		CreatedAt:      formatTimestamp(design.CreatedAt),
		UpdatedAt:      formatTimestamp(design.UpdatedAt),
	}
}

func writeDesignError(ctx context.Context, w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, services.ErrDesignInvalidInput):
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
	case errors.Is(err, services.ErrDesignNotFound):
		httpx.WriteError(ctx, w, httpx.NewError("not_found", "design not found", http.StatusNotFound))
	case errors.Is(err, services.ErrDesignForbidden):
		httpx.WriteError(ctx, w, httpx.NewError("forbidden", "access denied", http.StatusForbidden))
	case errors.Is(err, services.ErrDesignInvalidState):
		httpx.WriteError(ctx, w, httpx.NewError("invalid_state", err.Error(), http.StatusConflict))
	case errors.Is(err, services.ErrDesignUnavailable):
		httpx.WriteError(ctx, w, httpx.NewError("service_unavailable", "design storage unavailable", http.StatusServiceUnavailable))
	default:
		httpx.WriteError(ctx, w, httpx.NewError("internal_error", "unexpected error", http.StatusInternalServerError))
	}
}

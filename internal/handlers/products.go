package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	domain "github.com/stylefit/api/internal/domain"
	"github.com/stylefit/api/internal/platform/httpx"
	"github.com/stylefit/api/internal/services"
)

const maxProductBodySize = 256 * 1024

// ProductHandlers exposes the public catalog endpoints and the staff-facing
// product lifecycle under /admin.
type ProductHandlers struct {
	catalog services.CatalogService
}

// NewProductHandlers constructs handlers backed by the catalog service.
func NewProductHandlers(catalog services.CatalogService) *ProductHandlers {
	return &ProductHandlers{catalog: catalog}
}

// Routes wires the public /products endpoints onto the provided router.
func (h *ProductHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.Get("/", h.listProducts)
	r.Get("/{productId}", h.getProduct)
}

// AdminRoutes wires the staff product endpoints. The caller mounts these under
// the authenticated /admin group.
func (h *ProductHandlers) AdminRoutes(r chi.Router) {
	if r == nil {
		return
	}
	r.Get("/products", h.listAllProducts)
	r.Post("/products", h.createProduct)
	r.Put("/products/{productId}", h.updateProduct)
	r.Delete("/products/{productId}", h.deactivateProduct)
}

func (h *ProductHandlers) listProducts(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, false)
}

func (h *ProductHandlers) listAllProducts(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, true)
}

func (h *ProductHandlers) list(w http.ResponseWriter, r *http.Request, includeHidden bool) {
	ctx := r.Context()
	if h.catalog == nil {
		writeCatalogUnavailable(ctx, w)
		return
	}

	query := r.URL.Query()
	page, err := h.catalog.ListProducts(ctx, services.ProductListQuery{
		Category:      query.Get("category"),
		Keyword:       query.Get("q"),
		IncludeHidden: includeHidden,
		Pagination:    paginationFromQuery(r),
	})
	if err != nil {
		writeCatalogError(ctx, w, err)
		return
	}

	items := make([]productPayload, 0, len(page.Items))
	for _, product := range page.Items {
		items = append(items, buildProductPayload(product))
	}
	writeJSONResponse(w, http.StatusOK, productListPayload{
		Items:         items,
		NextPageToken: page.NextPageToken,
	})
}

func (h *ProductHandlers) getProduct(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.catalog == nil {
		writeCatalogUnavailable(ctx, w)
		return
	}

	product, err := h.catalog.GetProduct(ctx, chi.URLParam(r, "productId"))
	if err != nil {
		writeCatalogError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, buildProductPayload(product))
}

func (h *ProductHandlers) createProduct(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.catalog == nil {
		writeCatalogUnavailable(ctx, w)
		return
	}

	cmd, err := parseProductRequest(r)
	if err != nil {
		writeBodyError(ctx, w, err)
		return
	}

	product, err := h.catalog.CreateProduct(ctx, cmd)
	if err != nil {
		writeCatalogError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusCreated, buildProductPayload(product))
}

func (h *ProductHandlers) updateProduct(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.catalog == nil {
		writeCatalogUnavailable(ctx, w)
		return
	}

	cmd, err := parseProductRequest(r)
	if err != nil {
		writeBodyError(ctx, w, err)
		return
	}
	cmd.ProductID = chi.URLParam(r, "productId")

	product, err := h.catalog.UpdateProduct(ctx, cmd)
	if err != nil {
		writeCatalogError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, buildProductPayload(product))
}

func (h *ProductHandlers) deactivateProduct(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.catalog == nil {
		writeCatalogUnavailable(ctx, w)
		return
	}

	if err := h.catalog.DeactivateProduct(ctx, chi.URLParam(r, "productId")); err != nil {
		writeCatalogError(ctx, w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type productRequest struct {
	Name             string                `json:"name"`
	Description      string                `json:"description"`
	Category         string                `json:"category"`
	PriceAmount      int64                 `json:"priceAmount"`
	Currency         string                `json:"currency"`
	BaseMeasurements map[string]float64    `json:"baseMeasurements"`
	Sizes            []sizeVariantPayload  `json:"sizes"`
	ImagePaths       []string              `json:"imagePaths"`
	Keywords         []string              `json:"keywords"`
}

type sizeVariantPayload struct {
	Size          string             `json:"size"`
	Measurements  map[string]float64 `json:"measurements,omitempty"`
	StockQuantity int                `json:"stockQuantity"`
}

func parseProductRequest(r *http.Request) (services.UpsertProductCommand, error) {
	var req productRequest
	if err := decodeJSONBody(r, maxProductBodySize, &req); err != nil {
		return services.UpsertProductCommand{}, err
	}

	sizes := make([]domain.SizeVariant, 0, len(req.Sizes))
	for _, variant := range req.Sizes {
		sizes = append(sizes, domain.SizeVariant{
			Size:          domain.Size(variant.Size),
			Measurements:  measurementsFromPayload(variant.Measurements),
			StockQuantity: variant.StockQuantity,
		})
	}

	return services.UpsertProductCommand{
		Name:             req.Name,
		Description:      req.Description,
		Category:         req.Category,
		PriceAmount:      req.PriceAmount,
		Currency:         req.Currency,
		BaseMeasurements: measurementsFromPayload(req.BaseMeasurements),
		Sizes:            sizes,
		ImagePaths:       req.ImagePaths,
		Keywords:         req.Keywords,
	}, nil
}

type productPayload struct {
	ID               string               `json:"id"`
	Name             string               `json:"name"`
	Description      string               `json:"description,omitempty"`
	Category         string               `json:"category,omitempty"`
	PriceAmount      int64                `json:"priceAmount"`
	Currency         string               `json:"currency,omitempty"`
	BaseMeasurements map[string]float64   `json:"baseMeasurements,omitempty"`
	Sizes            []sizeVariantPayload `json:"sizes,omitempty"`
	ImagePaths       []string             `json:"imagePaths,omitempty"`
	Active           bool                 `json:"active"`
	CreatedAt        string               `json:"createdAt,omitempty"`
	UpdatedAt        string               `json:"updatedAt,omitempty"`
}

type productListPayload struct {
	Items         []productPayload `json:"items"`
	NextPageToken string           `json:"nextPageToken,omitempty"`
}

func buildProductPayload(product domain.Product) productPayload {
	sizes := make([]sizeVariantPayload, 0, len(product.Sizes))
	for _, variant := range product.Sizes {
		sizes = append(sizes, sizeVariantPayload{
			Size:          string(variant.Size),
			Measurements:  measurementsToPayload(variant.Measurements),
			StockQuantity: variant.StockQuantity,
		})
	}
	return productPayload{
		ID:               product.ID,
		Name:             product.Name,
		Description:      product.Description,
		Category:         product.Category,
		PriceAmount:      product.PriceAmount,
		Currency:         product.Currency,
		BaseMeasurements: measurementsToPayload(product.BaseMeasurements),
		Sizes:            sizes,
		ImagePaths:       product.ImagePaths,
		Active:           product.Active,
		CreatedAt:        formatTimestamp(product.CreatedAt),
		UpdatedAt:        formatTimestamp(product.UpdatedAt),
	}
}

func formatTimestamp(ts time.Time) string {
	if ts.IsZero() {
		return ""
	}
	return ts.UTC().Format(time.RFC3339)
}

func writeCatalogUnavailable(ctx context.Context, w http.ResponseWriter) {
	httpx.WriteError(ctx, w, httpx.NewError("catalog_service_unavailable", "catalog service is unavailable", http.StatusServiceUnavailable))
}

func writeCatalogError(ctx context.Context, w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, services.ErrCatalogInvalidInput):
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
	case errors.Is(err, services.ErrCatalogNotFound):
		httpx.WriteError(ctx, w, httpx.NewError("not_found", "product not found", http.StatusNotFound))
	case errors.Is(err, services.ErrCatalogConflict):
		httpx.WriteError(ctx, w, httpx.NewError("conflict", "product has been modified", http.StatusConflict))
	case errors.Is(err, services.ErrCatalogUnavailable):
		httpx.WriteError(ctx, w, httpx.NewError("service_unavailable", "catalog storage unavailable", http.StatusServiceUnavailable))
	default:
		httpx.WriteError(ctx, w, httpx.NewError("internal_error", "unexpected error", http.StatusInternalServerError))
	}
}

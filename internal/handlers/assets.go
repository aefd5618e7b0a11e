package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/stylefit/api/internal/platform/auth"
	"github.com/stylefit/api/internal/platform/httpx"
	"github.com/stylefit/api/internal/platform/storage"
	"github.com/stylefit/api/internal/services"
)

const (
	maxAssetBodySize   = 8 * 1024
	maxImageUploadSize = 10 << 20
	uploadURLExpiry    = 10 * time.Minute
)

var imageContentTypes = []string{"image/jpeg", "image/png", "image/webp"}

// AssetHandlers issues signed URLs for product images, design sketches, and
// fabric swatches. Uploads for product images are staff-only; design sketch
// uploads are restricted to the design owner.
type AssetHandlers struct {
	authn   *auth.Authenticator
	storage *storage.Client
	designs services.DesignService
}

// NewAssetHandlers constructs handlers backed by the signing storage client.
func NewAssetHandlers(authn *auth.Authenticator, client *storage.Client, designs services.DesignService) *AssetHandlers {
	return &AssetHandlers{
		authn:   authn,
		storage: client,
		designs: designs,
	}
}

// Routes wires the /assets endpoints onto the provided router.
func (h *AssetHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	if h.authn != nil {
		r.Use(h.authn.RequireFirebaseAuth())
	}
	r.Post("/designs/{designId}/sketch-upload-url", h.designSketchUploadURL)
	r.Get("/products/{productId}/images/{fileName}", h.productImageDownloadURL)
}

// AdminRoutes wires the staff asset endpoints under the /admin group.
func (h *AssetHandlers) AdminRoutes(r chi.Router) {
	if r == nil {
		return
	}
	r.Post("/products/{productId}/image-upload-url", h.productImageUploadURL)
	r.Post("/fabrics/{fabricId}/swatch-upload-url", h.fabricSwatchUploadURL)
}

type uploadURLRequest struct {
	FileName    string `json:"fileName"`
	ContentType string `json:"contentType"`
}

type signedURLPayload struct {
	URL       string            `json:"url"`
	Method    string            `json:"method"`
	ExpiresAt string            `json:"expiresAt"`
	Headers   map[string]string `json:"headers,omitempty"`
}

func (h *AssetHandlers) designSketchUploadURL(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	identity, ok := requireIdentity(ctx, w, h.storage != nil && h.designs != nil, "asset")
	if !ok {
		return
	}

	designID := chi.URLParam(r, "designId")
	if _, err := h.designs.GetDesign(ctx, identity.UID, designID); err != nil {
		writeDesignError(ctx, w, err)
		return
	}

	var req uploadURLRequest
	if err := decodeJSONBody(r, maxAssetBodySize, &req); err != nil {
		writeBodyError(ctx, w, err)
		return
	}

	result, err := h.storage.SignedUploadURL(ctx, storage.KindDesignSketch, storage.PathParams{
		DesignID: designID,
		FileName: req.FileName,
	}, storage.UploadOptions{
		ContentType:         req.ContentType,
		AllowedContentTypes: imageContentTypes,
		MaxSize:             maxImageUploadSize,
		ExpiresIn:           uploadURLExpiry,
	})
	if err != nil {
		writeAssetError(w, r, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, buildSignedURLPayload(result))
}

func (h *AssetHandlers) productImageUploadURL(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.storage == nil {
		httpx.WriteError(ctx, w, httpx.NewError("asset_service_unavailable", "asset service is unavailable", http.StatusServiceUnavailable))
		return
	}

	var req uploadURLRequest
	if err := decodeJSONBody(r, maxAssetBodySize, &req); err != nil {
		writeBodyError(ctx, w, err)
		return
	}

	result, err := h.storage.SignedUploadURL(ctx, storage.KindProductImage, storage.PathParams{
		ProductID: chi.URLParam(r, "productId"),
		FileName:  req.FileName,
	}, storage.UploadOptions{
		ContentType:         req.ContentType,
		AllowedContentTypes: imageContentTypes,
		MaxSize:             maxImageUploadSize,
		ExpiresIn:           uploadURLExpiry,
	})
	if err != nil {
		writeAssetError(w, r, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, buildSignedURLPayload(result))
}

func (h *AssetHandlers) fabricSwatchUploadURL(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.storage == nil {
		httpx.WriteError(ctx, w, httpx.NewError("asset_service_unavailable", "asset service is unavailable", http.StatusServiceUnavailable))
		return
	}

	var req uploadURLRequest
	if err := decodeJSONBody(r, maxAssetBodySize, &req); err != nil {
		writeBodyError(ctx, w, err)
		return
	}

	result, err := h.storage.SignedUploadURL(ctx, storage.KindFabricSwatch, storage.PathParams{
		FabricID: chi.URLParam(r, "fabricId"),
		FileName: req.FileName,
	}, storage.UploadOptions{
		ContentType:         req.ContentType,
		AllowedContentTypes: imageContentTypes,
		MaxSize:             maxImageUploadSize,
		ExpiresIn:           uploadURLExpiry,
	})
	if err != nil {
		writeAssetError(w, r, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, buildSignedURLPayload(result))
}

func (h *AssetHandlers) productImageDownloadURL(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if _, ok := requireIdentity(ctx, w, h.storage != nil, "asset"); !ok {
		return
	}

	result, err := h.storage.SignedDownloadURL(ctx, storage.KindProductImage, storage.PathParams{
		ProductID: chi.URLParam(r, "productId"),
		FileName:  chi.URLParam(r, "fileName"),
	}, storage.DownloadOptions{})
	if err != nil {
		writeAssetError(w, r, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, buildSignedURLPayload(result))
}

func buildSignedURLPayload(result storage.SignedURLResult) signedURLPayload {
	return signedURLPayload{
		URL:       result.URL,
		Method:    result.Method,
		ExpiresAt: result.ExpiresAt.UTC().Format(time.RFC3339),
		Headers:   result.Headers,
	}
}

func writeAssetError(w http.ResponseWriter, r *http.Request, err error) {
	ctx := r.Context()
	message := err.Error()
	switch {
	case strings.Contains(message, "content type"):
		httpx.WriteError(ctx, w, httpx.NewError("unsupported_media_type", message, http.StatusUnsupportedMediaType))
	case strings.Contains(message, "required"), strings.Contains(message, "invalid"):
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", message, http.StatusBadRequest))
	default:
		httpx.WriteError(ctx, w, httpx.NewError("asset_error", "could not create signed url", http.StatusInternalServerError))
	}
}

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

const maxOrderBodySize = 64 * 1024

// OrderHandlers exposes checkout and order history endpoints.
type OrderHandlers struct {
	authn  *auth.Authenticator
	orders services.OrderService
}

// NewOrderHandlers constructs handlers backed by the order service.
func NewOrderHandlers(authn *auth.Authenticator, orders services.OrderService) *OrderHandlers {
	return &OrderHandlers{
		authn:  authn,
		orders: orders,
	}
}

// Routes wires the /orders endpoints onto the provided router.
func (h *OrderHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	if h.authn != nil {
		r.Use(h.authn.RequireFirebaseAuth())
	}
	r.Post("/", h.placeOrder)
	r.Get("/", h.listOrders)
	r.Get("/{orderId}", h.getOrder)
}

type placeOrderRequest struct {
	Lines      []orderLineRequest `json:"lines"`
	SuccessURL string             `json:"successUrl"`
	CancelURL  string             `json:"cancelUrl"`
}

type orderLineRequest struct {
	ProductID string `json:"productId"`
	DesignID  string `json:"designId"`
	Size      string `json:"size"`
	Quantity  int    `json:"quantity"`
}

func (h *OrderHandlers) placeOrder(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	identity, ok := requireIdentity(ctx, w, h.orders != nil, "order")
	if !ok {
		return
	}

	var req placeOrderRequest
	if err := decodeJSONBody(r, maxOrderBodySize, &req); err != nil {
		writeBodyError(ctx, w, err)
		return
	}

	lines := make([]services.OrderLineInput, 0, len(req.Lines))
	for _, line := range req.Lines {
		lines = append(lines, services.OrderLineInput{
			ProductID: line.ProductID,
			DesignID:  line.DesignID,
			Size:      line.Size,
			Quantity:  line.Quantity,
		})
	}

	result, err := h.orders.PlaceOrder(ctx, services.PlaceOrderCommand{
		UserID:     identity.UID,
		Lines:      lines,
		SuccessURL: req.SuccessURL,
		CancelURL:  req.CancelURL,
	})
	if err != nil {
		writeOrderError(ctx, w, err)
		return
	}

	writeJSONResponse(w, http.StatusCreated, placeOrderPayload{
		Order:       buildOrderPayload(result.Order),
		CheckoutURL: result.CheckoutURL,
		SessionID:   result.SessionID,
	})
}

func (h *OrderHandlers) getOrder(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	identity, ok := requireIdentity(ctx, w, h.orders != nil, "order")
	if !ok {
		return
	}

	order, err := h.orders.GetOrder(ctx, identity.UID, chi.URLParam(r, "orderId"))
	if err != nil {
		writeOrderError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, buildOrderPayload(order))
}

func (h *OrderHandlers) listOrders(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	identity, ok := requireIdentity(ctx, w, h.orders != nil, "order")
	if !ok {
		return
	}

	page, err := h.orders.ListOrders(ctx, identity.UID, paginationFromQuery(r))
	if err != nil {
		writeOrderError(ctx, w, err)
		return
	}

	items := make([]orderPayload, 0, len(page.Items))
	for _, order := range page.Items {
		items = append(items, buildOrderPayload(order))
	}
	writeJSONResponse(w, http.StatusOK, orderListPayload{
		Items:         items,
		NextPageToken: page.NextPageToken,
	})
}

type placeOrderPayload struct {
	Order       orderPayload `json:"order"`
	CheckoutURL string       `json:"checkoutUrl,omitempty"`
	SessionID   string       `json:"sessionId,omitempty"`
}

type orderPayload struct {
	ID        string             `json:"id"`
	Status    string             `json:"status"`
	Currency  string             `json:"currency"`
	Subtotal  int64              `json:"subtotal"`
	Total     int64              `json:"total"`
	Lines     []orderLinePayload `json:"lines"`
	Payment   *paymentPayload    `json:"payment,omitempty"`
	CreatedAt string             `json:"createdAt,omitempty"`
	UpdatedAt string             `json:"updatedAt,omitempty"`
}

type orderLinePayload struct {
	ProductID string `json:"productId,omitempty"`
	DesignID  string `json:"designId,omitempty"`
	Label     string `json:"label,omitempty"`
	Size      string `json:"size,omitempty"`
	Quantity  int    `json:"quantity"`
	UnitPrice int64  `json:"unitPrice"`
}

type paymentPayload struct {
	Provider   string `json:"provider,omitempty"`
	SessionID  string `json:"sessionId,omitempty"`
	Status     string `json:"status,omitempty"`
	CapturedAt string `json:"capturedAt,omitempty"`
}

type orderListPayload struct {
	Items         []orderPayload `json:"items"`
	NextPageToken string         `json:"nextPageToken,omitempty"`
}

func buildOrderPayload(order domain.Order) orderPayload {
	lines := make([]orderLinePayload, 0, len(order.Lines))
	for _, line := range order.Lines {
		lines = append(lines, orderLinePayload{
			ProductID: line.ProductID,
			DesignID:  line.DesignID,
			Label:     line.Label,
			Size:      string(line.Size),
			Quantity:  line.Quantity,
			UnitPrice: line.UnitPrice,
		})
	}

	var payment *paymentPayload
	if order.Payment != nil {
		capturedAt := ""
		if order.Payment.CapturedAt != nil {
			capturedAt = formatTimestamp(*order.Payment.CapturedAt)
		}
		payment = &paymentPayload{
			Provider:   order.Payment.Provider,
			SessionID:  order.Payment.SessionID,
			Status:     order.Payment.Status,
			CapturedAt: capturedAt,
		}
	}

	return orderPayload{
		ID:        order.ID,
		Status:    string(order.Status),
		Currency:  order.Currency,
		Subtotal:  order.Subtotal,
		Total:     order.Total,
		Lines:     lines,
		Payment:   payment,
		CreatedAt: formatTimestamp(order.CreatedAt),
		UpdatedAt: formatTimestamp(order.UpdatedAt),
	}
}

func writeOrderError(ctx context.Context, w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, services.ErrOrderInvalidInput):
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
	case errors.Is(err, services.ErrOrderNotFound):
		httpx.WriteError(ctx, w, httpx.NewError("not_found", "order not found", http.StatusNotFound))
	case errors.Is(err, services.ErrOrderForbidden):
		httpx.WriteError(ctx, w, httpx.NewError("forbidden", "access denied", http.StatusForbidden))
	case errors.Is(err, services.ErrOrderOutOfStock):
		httpx.WriteError(ctx, w, httpx.NewError("out_of_stock", err.Error(), http.StatusConflict))
	case errors.Is(err, services.ErrOrderCheckoutFailed):
		httpx.WriteError(ctx, w, httpx.NewError("checkout_failed", "payment provider rejected the checkout", http.StatusBadGateway))
	case errors.Is(err, services.ErrOrderUnavailable):
		httpx.WriteError(ctx, w, httpx.NewError("service_unavailable", "order storage unavailable", http.StatusServiceUnavailable))
	default:
		httpx.WriteError(ctx, w, httpx.NewError("internal_error", "unexpected error", http.StatusInternalServerError))
	}
}

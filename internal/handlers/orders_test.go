package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"

	domain "github.com/stylefit/api/internal/domain"
	"github.com/stylefit/api/internal/services"
)

type fakeOrderService struct {
	lastCmd services.PlaceOrderCommand
	result  services.PlaceOrderResult
	order   domain.Order
	page    domain.CursorPage[domain.Order]
	err     error
}

func (f *fakeOrderService) PlaceOrder(_ context.Context, cmd services.PlaceOrderCommand) (services.PlaceOrderResult, error) {
	f.lastCmd = cmd
	return f.result, f.err
}

func (f *fakeOrderService) GetOrder(_ context.Context, _, _ string) (domain.Order, error) {
	return f.order, f.err
}

func (f *fakeOrderService) ListOrders(_ context.Context, _ string, _ domain.Pagination) (domain.CursorPage[domain.Order], error) {
	return f.page, f.err
}

func newOrderTestRouter(service services.OrderService) chi.Router {
	h := NewOrderHandlers(nil, service)
	r := chi.NewRouter()
	r.Route("/orders", h.Routes)
	return r
}

func TestOrderHandlersPlaceOrder(t *testing.T) {
	service := &fakeOrderService{
		result: services.PlaceOrderResult{
			Order: domain.Order{
				ID:       "ord_abc",
				Status:   domain.OrderStatusPendingPayment,
				Currency: "EUR",
				Subtotal: 25800,
				Total:    25800,
				Lines: []domain.OrderLine{{
					ProductID: "prod_dress",
					Size:      domain.SizeM,
					Quantity:  2,
					UnitPrice: 12900,
				}},
			},
			CheckoutURL: "https://checkout.stripe.test/cs_test_123",
			SessionID:   "cs_test_123",
		},
	}
	router := newOrderTestRouter(service)

	body := `{
		"lines": [{"productId": "prod_dress", "size": "M", "quantity": 2}],
		"successUrl": "https://app.example.com/done",
		"cancelUrl": "https://app.example.com/cancel"
	}`
	req := authedRequest(http.MethodPost, "/orders/", body)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201: %s", rr.Code, rr.Body.String())
	}
	cmd := service.lastCmd
	if cmd.UserID != "user-1" || len(cmd.Lines) != 1 {
		t.Fatalf("command = %+v", cmd)
	}
	if cmd.Lines[0].ProductID != "prod_dress" || cmd.Lines[0].Quantity != 2 {
		t.Errorf("line = %+v", cmd.Lines[0])
	}
	if cmd.SuccessURL != "https://app.example.com/done" {
		t.Errorf("success url = %q", cmd.SuccessURL)
	}

	var payload placeOrderPayload
	if err := json.Unmarshal(rr.Body.Bytes(), &payload); err != nil {
		t.Fatalf("parse response: %v", err)
	}
	if payload.Order.ID != "ord_abc" || payload.Order.Total != 25800 {
		t.Errorf("order payload = %+v", payload.Order)
	}
	if payload.SessionID != "cs_test_123" || payload.CheckoutURL == "" {
		t.Errorf("checkout payload = %+v", payload)
	}
}

func TestOrderHandlersPlaceOrderErrorsMapToStatusCodes(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want int
	}{
		{name: "invalid input", err: services.ErrOrderInvalidInput, want: http.StatusBadRequest},
		{name: "not found", err: services.ErrOrderNotFound, want: http.StatusNotFound},
		{name: "forbidden", err: services.ErrOrderForbidden, want: http.StatusForbidden},
		{name: "out of stock", err: services.ErrOrderOutOfStock, want: http.StatusConflict},
		{name: "checkout failed", err: services.ErrOrderCheckoutFailed, want: http.StatusBadGateway},
		{name: "unavailable", err: services.ErrOrderUnavailable, want: http.StatusServiceUnavailable},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			router := newOrderTestRouter(&fakeOrderService{err: tc.err})

			req := authedRequest(http.MethodPost, "/orders/", `{"lines":[{"productId":"prod_x","size":"M","quantity":1}]}`)
			rr := httptest.NewRecorder()
			router.ServeHTTP(rr, req)

			if rr.Code != tc.want {
				t.Fatalf("status = %d, want %d", rr.Code, tc.want)
			}
		})
	}
}

func TestOrderHandlersGetOrderIncludesPayment(t *testing.T) {
	service := &fakeOrderService{
		order: domain.Order{
			ID:     "ord_abc",
			Status: domain.OrderStatusPaid,
			Payment: &domain.OrderPayment{
				Provider:  "stripe",
				SessionID: "cs_test_123",
				Status:    "succeeded",
			},
		},
	}
	router := newOrderTestRouter(service)

	req := authedRequest(http.MethodGet, "/orders/ord_abc", "")
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rr.Code, rr.Body.String())
	}
	var payload orderPayload
	if err := json.Unmarshal(rr.Body.Bytes(), &payload); err != nil {
		t.Fatalf("parse response: %v", err)
	}
	if payload.Payment == nil || payload.Payment.SessionID != "cs_test_123" {
		t.Errorf("payment payload = %+v", payload.Payment)
	}
}

func TestOrderHandlersListOrders(t *testing.T) {
	service := &fakeOrderService{
		page: domain.CursorPage[domain.Order]{
			Items:         []domain.Order{{ID: "ord_b"}, {ID: "ord_a"}},
			NextPageToken: "tok",
		},
	}
	router := newOrderTestRouter(service)

	req := authedRequest(http.MethodGet, "/orders/?page_size=2", "")
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rr.Code, rr.Body.String())
	}
	var payload orderListPayload
	if err := json.Unmarshal(rr.Body.Bytes(), &payload); err != nil {
		t.Fatalf("parse response: %v", err)
	}
	if len(payload.Items) != 2 || payload.NextPageToken != "tok" {
		t.Errorf("payload = %+v", payload)
	}
}

func TestOrderHandlersRequireIdentity(t *testing.T) {
	router := newOrderTestRouter(&fakeOrderService{})

	req := httptest.NewRequest(http.MethodGet, "/orders/", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rr.Code)
	}
}

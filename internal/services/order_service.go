package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	domain "github.com/stylefit/api/internal/domain"
	"github.com/stylefit/api/internal/payments"
	"github.com/stylefit/api/internal/repositories"
)

var (
	// ErrOrderInvalidInput indicates the caller provided invalid arguments.
	ErrOrderInvalidInput = errors.New("order: invalid input")
	// ErrOrderNotFound indicates the order does not exist.
	ErrOrderNotFound = errors.New("order: not found")
	// ErrOrderForbidden indicates the order belongs to another user.
	ErrOrderForbidden = errors.New("order: forbidden")
	// ErrOrderOutOfStock indicates a requested size has insufficient stock.
	ErrOrderOutOfStock = errors.New("order: out of stock")
	// ErrOrderCheckoutFailed indicates the payment provider rejected the session.
	ErrOrderCheckoutFailed = errors.New("order: checkout failed")
	// ErrOrderUnavailable signals that persistence dependencies are unavailable.
	ErrOrderUnavailable = errors.New("order: repository unavailable")
)

const (
	orderIDPrefix    = "ord_"
	maxLinesPerOrder = 25
	defaultCurrency  = "EUR"
)

// OrderServiceDeps wires dependencies for the order service implementation.
type OrderServiceDeps struct {
	Orders      repositories.OrderRepository
	Products    repositories.ProductRepository
	Designs     repositories.DesignRepository
	Provider    payments.Provider
	Publisher   EventPublisher
	Clock       func() time.Time
	IDGenerator func() string
	Logger      func(context.Context, string, map[string]any)
}

type orderService struct {
	orders    repositories.OrderRepository
	products  repositories.ProductRepository
	designs   repositories.DesignRepository
	provider  payments.Provider
	publisher EventPublisher
	clock     func() time.Time
	newID     func() string
	logger    func(context.Context, string, map[string]any)
}

// NewOrderService constructs an OrderService backed by the provided dependencies.
func NewOrderService(deps OrderServiceDeps) (OrderService, error) {
	if deps.Orders == nil {
		return nil, errors.New("order service: orders repository is required")
	}
	if deps.Products == nil {
		return nil, errors.New("order service: products repository is required")
	}
	if deps.Designs == nil {
		return nil, errors.New("order service: designs repository is required")
	}
	if deps.Provider == nil {
		return nil, errors.New("order service: payment provider is required")
	}
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	idGen := deps.IDGenerator
	if idGen == nil {
		idGen = func() string { return ulid.Make().String() }
	}
	logger := deps.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}
	return &orderService{
		orders:    deps.Orders,
		products:  deps.Products,
		designs:   deps.Designs,
		provider:  deps.Provider,
		publisher: deps.Publisher,
		clock:     func() time.Time { return clock().UTC() },
		newID:     idGen,
		logger:    logger,
	}, nil
}

// PlaceOrder resolves the requested lines, stores the order awaiting payment,
// and opens a checkout session with the payment provider.
func (s *orderService) PlaceOrder(ctx context.Context, cmd PlaceOrderCommand) (PlaceOrderResult, error) {
	userID := strings.TrimSpace(cmd.UserID)
	if userID == "" {
		return PlaceOrderResult{}, fmt.Errorf("%w: user id is required", ErrOrderInvalidInput)
	}
	if len(cmd.Lines) == 0 {
		return PlaceOrderResult{}, fmt.Errorf("%w: at least one line is required", ErrOrderInvalidInput)
	}
	if len(cmd.Lines) > maxLinesPerOrder {
		return PlaceOrderResult{}, fmt.Errorf("%w: too many lines", ErrOrderInvalidInput)
	}

	lines := make([]domain.OrderLine, 0, len(cmd.Lines))
	currency := ""
	var subtotal int64
	for idx, input := range cmd.Lines {
		line, lineCurrency, err := s.resolveLine(ctx, userID, input)
		if err != nil {
			return PlaceOrderResult{}, fmt.Errorf("line %d: %w", idx, err)
		}
		if currency == "" {
			currency = lineCurrency
		} else if lineCurrency != "" && lineCurrency != currency {
			return PlaceOrderResult{}, fmt.Errorf("%w: mixed currencies %s and %s", ErrOrderInvalidInput, currency, lineCurrency)
		}
		subtotal += line.UnitPrice * int64(line.Quantity)
		lines = append(lines, line)
	}
	if currency == "" {
		currency = defaultCurrency
	}

	now := s.clock()
	order := domain.Order{
		ID:        orderIDPrefix + strings.ToLower(strings.TrimSpace(s.newID())),
		UserID:    userID,
		Lines:     lines,
		Status:    domain.OrderStatusPendingPayment,
		Currency:  currency,
		Subtotal:  subtotal,
		Total:     subtotal,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.orders.Insert(ctx, order); err != nil {
		return PlaceOrderResult{}, s.mapRepositoryError(err)
	}

	session, err := s.provider.CreateCheckoutSession(ctx, s.checkoutRequest(order, cmd))
	if err != nil {
		s.logger(ctx, "order.checkout.failed", map[string]any{
			"orderId": order.ID,
			"error":   err.Error(),
		})
		return PlaceOrderResult{}, fmt.Errorf("%w: %v", ErrOrderCheckoutFailed, err)
	}

	payment := &domain.OrderPayment{
		Provider:  session.Provider,
		SessionID: session.ID,
		IntentID:  session.IntentID,
		Status:    string(payments.StatusPending),
	}
	stored, err := s.orders.UpdateStatus(ctx, order.ID, domain.OrderStatusPendingPayment, payment)
	if err != nil {
		return PlaceOrderResult{}, s.mapRepositoryError(err)
	}

	s.publishPlaced(ctx, stored)
	return PlaceOrderResult{
		Order:       stored,
		CheckoutURL: session.RedirectURL,
		SessionID:   session.ID,
	}, nil
}

// GetOrder loads a single order, enforcing ownership.
func (s *orderService) GetOrder(ctx context.Context, userID, orderID string) (domain.Order, error) {
	if strings.TrimSpace(orderID) == "" {
		return domain.Order{}, fmt.Errorf("%w: order id is required", ErrOrderInvalidInput)
	}
	order, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		return domain.Order{}, s.mapRepositoryError(err)
	}
	if order.UserID != strings.TrimSpace(userID) {
		return domain.Order{}, ErrOrderForbidden
	}
	return order, nil
}

// ListOrders returns the user's order history, most recent first.
func (s *orderService) ListOrders(ctx context.Context, userID string, pager domain.Pagination) (domain.CursorPage[domain.Order], error) {
	if strings.TrimSpace(userID) == "" {
		return domain.CursorPage[domain.Order]{}, fmt.Errorf("%w: user id is required", ErrOrderInvalidInput)
	}
	page, err := s.orders.ListByUser(ctx, userID, normalizePagination(pager))
	if err != nil {
		return domain.CursorPage[domain.Order]{}, s.mapRepositoryError(err)
	}
	return page, nil
}

// resolveLine turns a line input into a priced order line. Lines reference
// either a catalog product in a size or a design owned by the buyer, never both.
func (s *orderService) resolveLine(ctx context.Context, userID string, input OrderLineInput) (domain.OrderLine, string, error) {
	productID := strings.TrimSpace(input.ProductID)
	designID := strings.TrimSpace(input.DesignID)
	switch {
	case productID != "" && designID != "":
		return domain.OrderLine{}, "", fmt.Errorf("%w: line references both a product and a design", ErrOrderInvalidInput)
	case productID == "" && designID == "":
		return domain.OrderLine{}, "", fmt.Errorf("%w: line references neither a product nor a design", ErrOrderInvalidInput)
	}
	quantity := input.Quantity
	if quantity <= 0 {
		return domain.OrderLine{}, "", fmt.Errorf("%w: quantity must be positive", ErrOrderInvalidInput)
	}

	if productID != "" {
		product, err := s.products.FindByID(ctx, productID)
		if err != nil {
			return domain.OrderLine{}, "", s.mapRepositoryError(err)
		}
		if !product.Active {
			return domain.OrderLine{}, "", fmt.Errorf("%w: product %s is not for sale", ErrOrderInvalidInput, productID)
		}
		size, ok := domain.ParseSize(input.Size)
		if !ok {
			return domain.OrderLine{}, "", fmt.Errorf("%w: unknown size %q", ErrOrderInvalidInput, input.Size)
		}
		variant, found := findVariant(product, size)
		if !found {
			return domain.OrderLine{}, "", fmt.Errorf("%w: size %s not offered for product %s", ErrOrderInvalidInput, size, productID)
		}
		if variant.StockQuantity < quantity {
			return domain.OrderLine{}, "", fmt.Errorf("%w: size %s of product %s", ErrOrderOutOfStock, size, productID)
		}
		return domain.OrderLine{
			ProductID: product.ID,
			Label:     product.Name,
			Size:      size,
			Quantity:  quantity,
			UnitPrice: product.PriceAmount,
		}, product.Currency, nil
	}

	design, err := s.designs.FindByID(ctx, designID)
	if err != nil {
		return domain.OrderLine{}, "", s.mapRepositoryError(err)
	}
	if design.OwnerID != userID {
		return domain.OrderLine{}, "", ErrOrderForbidden
	}
	if design.Status != domain.DesignStatusSubmitted {
		return domain.OrderLine{}, "", fmt.Errorf("%w: design %s has not been submitted", ErrOrderInvalidInput, designID)
	}
	return domain.OrderLine{
		DesignID:  design.ID,
		Label:     design.Label,
		Quantity:  quantity,
		UnitPrice: design.PriceAmount,
	}, design.Currency, nil
}

func (s *orderService) checkoutRequest(order domain.Order, cmd PlaceOrderCommand) payments.CheckoutSessionRequest {
	items := make([]payments.CheckoutLineItem, 0, len(order.Lines))
	for _, line := range order.Lines {
		items = append(items, payments.CheckoutLineItem{
			Name:       line.Label,
			ProductID:  firstNonEmpty(line.ProductID, line.DesignID),
			Size:       string(line.Size),
			Quantity:   int64(line.Quantity),
			UnitAmount: line.UnitPrice,
			Currency:   order.Currency,
		})
	}
	return payments.CheckoutSessionRequest{
		OrderID:        order.ID,
		Amount:         order.Total,
		Currency:       order.Currency,
		SuccessURL:     cmd.SuccessURL,
		CancelURL:      cmd.CancelURL,
		IdempotencyKey: order.ID,
		Items:          items,
	}
}

func (s *orderService) publishPlaced(ctx context.Context, order domain.Order) {
	if s.publisher == nil {
		return
	}
	message := OrderPlacedMessage{
		OrderID:     order.ID,
		UserID:      order.UserID,
		Currency:    order.Currency,
		AmountTotal: order.Total,
		PlacedAt:    order.CreatedAt,
	}
	if _, err := s.publisher.PublishOrderPlaced(ctx, message); err != nil {
		s.logger(ctx, "order.event.publish_failed", map[string]any{
			"orderId": order.ID,
			"error":   err.Error(),
		})
	}
}

func (s *orderService) mapRepositoryError(err error) error {
	if err == nil {
		return nil
	}
	var repoErr repositories.RepositoryError
	if errors.As(err, &repoErr) {
		switch {
		case repoErr.IsNotFound():
			return fmt.Errorf("%w: %v", ErrOrderNotFound, err)
		case repoErr.IsUnavailable():
			return fmt.Errorf("%w: %v", ErrOrderUnavailable, err)
		}
	}
	return err
}

func findVariant(product domain.Product, size domain.Size) (domain.SizeVariant, bool) {
	for _, variant := range product.Sizes {
		if variant.Size == size {
			return variant, true
		}
	}
	return domain.SizeVariant{}, false
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if value != "" {
			return value
		}
	}
	return ""
}

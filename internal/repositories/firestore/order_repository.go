package firestore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/firestore"

	domain "github.com/stylefit/api/internal/domain"
	pfirestore "github.com/stylefit/api/internal/platform/firestore"
	"github.com/stylefit/api/internal/repositories"
)

const orderCollection = "orders"

// OrderRepository persists orders in Firestore.
type OrderRepository struct {
	base *pfirestore.BaseRepository[orderDocument]
}

// NewOrderRepository constructs a Firestore-backed order repository.
func NewOrderRepository(provider *pfirestore.Provider) (*OrderRepository, error) {
	if provider == nil {
		return nil, errors.New("order repository requires firestore provider")
	}
	base := pfirestore.NewBaseRepository[orderDocument](provider, orderCollection, nil, nil)
	return &OrderRepository{base: base}, nil
}

// Insert creates the order document, failing when the ID already exists.
func (r *OrderRepository) Insert(ctx context.Context, order domain.Order) error {
	if r == nil || r.base == nil {
		return errors.New("order repository not initialised")
	}
	if strings.TrimSpace(order.ID) == "" {
		return errors.New("order id is required")
	}
	_, err := r.base.Create(ctx, order.ID, encodeOrderDocument(order))
	return err
}

// FindByID loads an order by ID.
func (r *OrderRepository) FindByID(ctx context.Context, orderID string) (domain.Order, error) {
	if r == nil || r.base == nil {
		return domain.Order{}, errors.New("order repository not initialised")
	}
	doc, err := r.base.Get(ctx, orderID)
	if err != nil {
		return domain.Order{}, err
	}
	return decodeOrderDocument(doc.ID, doc.Data, doc.CreateTime, doc.UpdateTime), nil
}

// ListByUser returns the user's orders ordered by most recent creation.
func (r *OrderRepository) ListByUser(ctx context.Context, userID string, pager domain.Pagination) (domain.CursorPage[domain.Order], error) {
	if r == nil || r.base == nil {
		return domain.CursorPage[domain.Order]{}, errors.New("order repository not initialised")
	}
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return domain.CursorPage[domain.Order]{}, errors.New("user id is required")
	}

	limit := pager.PageSize
	if limit < 0 {
		limit = 0
	}
	fetchLimit := limit
	if limit > 0 {
		fetchLimit = limit + 1
	}

	var startAfter []any
	if token := strings.TrimSpace(pager.PageToken); token != "" {
		tokenTime, tokenID, err := decodeListToken(token)
		if err != nil {
			return domain.CursorPage[domain.Order]{}, fmt.Errorf("order repository: invalid page token: %w", err)
		}
		startAfter = []any{tokenTime, tokenID}
	}

	docs, err := r.base.Query(ctx, func(q firestore.Query) firestore.Query {
		q = q.Where("userUid", "==", userID)
		q = q.OrderBy("createdAt", firestore.Desc).OrderBy(firestore.DocumentID, firestore.Desc)
		if len(startAfter) == 2 {
			q = q.StartAfter(startAfter...)
		}
		if fetchLimit > 0 {
			q = q.Limit(fetchLimit)
		}
		return q
	})
	if err != nil {
		return domain.CursorPage[domain.Order]{}, err
	}

	nextToken := ""
	if limit > 0 && len(docs) == fetchLimit {
		last := docs[len(docs)-1]
		tokenTime := last.Data.CreatedAt
		if tokenTime.IsZero() {
			tokenTime = last.CreateTime
		}
		nextToken = encodeListToken(tokenTime, last.ID)
		docs = docs[:len(docs)-1]
	}

	items := make([]domain.Order, 0, len(docs))
	for _, doc := range docs {
		items = append(items, decodeOrderDocument(doc.ID, doc.Data, doc.CreateTime, doc.UpdateTime))
	}

	return domain.CursorPage[domain.Order]{Items: items, NextPageToken: nextToken}, nil
}

// UpdateStatus transitions the order status and optionally records the payment linkage.
func (r *OrderRepository) UpdateStatus(ctx context.Context, orderID string, status domain.OrderStatus, payment *domain.OrderPayment) (domain.Order, error) {
	if r == nil || r.base == nil {
		return domain.Order{}, errors.New("order repository not initialised")
	}
	orderID = strings.TrimSpace(orderID)
	if orderID == "" {
		return domain.Order{}, errors.New("order id is required")
	}

	updates := []firestore.Update{
		{Path: "status", Value: string(status)},
		{Path: "updatedAt", Value: time.Now().UTC()},
	}
	if payment != nil {
		updates = append(updates, firestore.Update{Path: "payment", Value: encodeOrderPayment(payment)})
	}
	if _, err := r.base.Update(ctx, orderID, updates); err != nil {
		return domain.Order{}, err
	}
	return r.FindByID(ctx, orderID)
}

type orderDocument struct {
	UserUID   string                `firestore:"userUid"`
	Lines     []orderLineDocument   `firestore:"lines"`
	Status    string                `firestore:"status"`
	Currency  string                `firestore:"currency"`
	Subtotal  int64                 `firestore:"subtotal"`
	Total     int64                 `firestore:"total"`
	Payment   *orderPaymentDocument `firestore:"payment,omitempty"`
	CreatedAt time.Time             `firestore:"createdAt"`
	UpdatedAt time.Time             `firestore:"updatedAt"`
}

type orderLineDocument struct {
	ProductID string `firestore:"productId,omitempty"`
	DesignID  string `firestore:"designId,omitempty"`
	Label     string `firestore:"label"`
	Size      string `firestore:"size,omitempty"`
	Quantity  int    `firestore:"quantity"`
	UnitPrice int64  `firestore:"unitPrice"`
}

type orderPaymentDocument struct {
	Provider   string     `firestore:"provider"`
	SessionID  string     `firestore:"sessionId,omitempty"`
	IntentID   string     `firestore:"intentId,omitempty"`
	Status     string     `firestore:"status"`
	CapturedAt *time.Time `firestore:"capturedAt,omitempty"`
}

func encodeOrderDocument(order domain.Order) orderDocument {
	doc := orderDocument{
		UserUID:   strings.TrimSpace(order.UserID),
		Status:    string(order.Status),
		Currency:  strings.ToUpper(strings.TrimSpace(order.Currency)),
		Subtotal:  order.Subtotal,
		Total:     order.Total,
		Payment:   encodeOrderPayment(order.Payment),
		CreatedAt: order.CreatedAt.UTC(),
		UpdatedAt: order.UpdatedAt.UTC(),
	}
	if len(order.Lines) > 0 {
		doc.Lines = make([]orderLineDocument, 0, len(order.Lines))
		for _, line := range order.Lines {
			doc.Lines = append(doc.Lines, orderLineDocument{
				ProductID: strings.TrimSpace(line.ProductID),
				DesignID:  strings.TrimSpace(line.DesignID),
				Label:     strings.TrimSpace(line.Label),
				Size:      string(line.Size),
				Quantity:  line.Quantity,
				UnitPrice: line.UnitPrice,
			})
		}
	}
	return doc
}

func encodeOrderPayment(payment *domain.OrderPayment) *orderPaymentDocument {
	if payment == nil {
		return nil
	}
	return &orderPaymentDocument{
		Provider:   strings.TrimSpace(payment.Provider),
		SessionID:  strings.TrimSpace(payment.SessionID),
		IntentID:   strings.TrimSpace(payment.IntentID),
		Status:     strings.TrimSpace(payment.Status),
		CapturedAt: normalizeTimePointer(payment.CapturedAt),
	}
}

func decodeOrderDocument(id string, doc orderDocument, createdAt, updatedAt time.Time) domain.Order {
	order := domain.Order{
		ID:        strings.TrimSpace(id),
		UserID:    strings.TrimSpace(doc.UserUID),
		Status:    domain.OrderStatus(strings.TrimSpace(doc.Status)),
		Currency:  strings.TrimSpace(doc.Currency),
		Subtotal:  doc.Subtotal,
		Total:     doc.Total,
		CreatedAt: chooseTime(doc.CreatedAt, createdAt),
		UpdatedAt: chooseTime(doc.UpdatedAt, updatedAt),
	}
	if len(doc.Lines) > 0 {
		order.Lines = make([]domain.OrderLine, 0, len(doc.Lines))
		for _, line := range doc.Lines {
			order.Lines = append(order.Lines, domain.OrderLine{
				ProductID: strings.TrimSpace(line.ProductID),
				DesignID:  strings.TrimSpace(line.DesignID),
				Label:     strings.TrimSpace(line.Label),
				Size:      domain.Size(strings.TrimSpace(line.Size)),
				Quantity:  line.Quantity,
				UnitPrice: line.UnitPrice,
			})
		}
	}
	if doc.Payment != nil {
		order.Payment = &domain.OrderPayment{
			Provider:   strings.TrimSpace(doc.Payment.Provider),
			SessionID:  strings.TrimSpace(doc.Payment.SessionID),
			IntentID:   strings.TrimSpace(doc.Payment.IntentID),
			Status:     strings.TrimSpace(doc.Payment.Status),
			CapturedAt: normalizeTimePointer(doc.Payment.CapturedAt),
		}
	}
	return order
}

var _ repositories.OrderRepository = (*OrderRepository)(nil)

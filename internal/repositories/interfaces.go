package repositories

import (
	"context"

	domain "github.com/stylefit/api/internal/domain"
)

// RepositoryError wraps low-level persistence failures with categorisation used by services.
type RepositoryError interface {
	error
	IsNotFound() bool
	IsConflict() bool
	IsUnavailable() bool
}

// ProductListFilter narrows catalog listings.
type ProductListFilter struct {
	Category   string
	Keyword    string
	ActiveOnly bool
	Pager      domain.Pagination
}

// ProductRepository persists catalog products and their size variants.
type ProductRepository interface {
	Insert(ctx context.Context, product domain.Product) error
	Update(ctx context.Context, product domain.Product) error
	FindByID(ctx context.Context, productID string) (domain.Product, error)
	List(ctx context.Context, filter ProductListFilter) (domain.CursorPage[domain.Product], error)
	Deactivate(ctx context.Context, productID string) error
}

// DesignListFilter narrows made-to-measure design listings.
type DesignListFilter struct {
	Status domain.DesignStatus
	Pager  domain.Pagination
}

// DesignRepository persists made-to-measure designs.
type DesignRepository interface {
	Insert(ctx context.Context, design domain.CustomDesign) error
	Update(ctx context.Context, design domain.CustomDesign) error
	FindByID(ctx context.Context, designID string) (domain.CustomDesign, error)
	ListByOwner(ctx context.Context, ownerID string, filter DesignListFilter) (domain.CursorPage[domain.CustomDesign], error)
}

// UserRepository persists user profiles and their body measurements.
type UserRepository interface {
	FindByID(ctx context.Context, userID string) (domain.UserProfile, error)
	Upsert(ctx context.Context, profile domain.UserProfile) (domain.UserProfile, error)
	UpdateMeasurements(ctx context.Context, userID string, measurements domain.MeasurementSet) (domain.UserProfile, error)
}

// OrderRepository persists orders and payment linkage.
type OrderRepository interface {
	Insert(ctx context.Context, order domain.Order) error
	FindByID(ctx context.Context, orderID string) (domain.Order, error)
	ListByUser(ctx context.Context, userID string, pager domain.Pagination) (domain.CursorPage[domain.Order], error)
	UpdateStatus(ctx context.Context, orderID string, status domain.OrderStatus, payment *domain.OrderPayment) (domain.Order, error)
}

// TryOnRepository persists append-only try-on history records.
type TryOnRepository interface {
	Append(ctx context.Context, record domain.TryOn) error
	FindByID(ctx context.Context, tryOnID string) (domain.TryOn, error)
	ListByUser(ctx context.Context, userID string, pager domain.Pagination) (domain.CursorPage[domain.TryOn], error)
}

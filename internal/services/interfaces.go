package services

import (
	"context"
	"time"

	domain "github.com/stylefit/api/internal/domain"
)

// FittingService runs the virtual fitting flow: resolve the garment, score it
// against the caller's stored measurements, and append the try-on record.
type FittingService interface {
	TryOnProduct(ctx context.Context, cmd TryOnProductCommand) (domain.TryOn, error)
	TryOnDesign(ctx context.Context, cmd TryOnDesignCommand) (domain.TryOn, error)
	GetTryOn(ctx context.Context, userID, tryOnID string) (domain.TryOn, error)
	ListTryOns(ctx context.Context, userID string, pager domain.Pagination) (domain.CursorPage[domain.TryOn], error)
}

// TryOnProductCommand requests a catalog try-on for the authenticated user.
type TryOnProductCommand struct {
	UserID       string
	ProductID    string
	SelectedSize string
}

// TryOnDesignCommand requests a made-to-measure try-on for the authenticated user.
type TryOnDesignCommand struct {
	UserID   string
	DesignID string
}

// CatalogService exposes catalog browsing plus the staff-facing product lifecycle.
type CatalogService interface {
	GetProduct(ctx context.Context, productID string) (domain.Product, error)
	ListProducts(ctx context.Context, query ProductListQuery) (domain.CursorPage[domain.Product], error)
	CreateProduct(ctx context.Context, cmd UpsertProductCommand) (domain.Product, error)
	UpdateProduct(ctx context.Context, cmd UpsertProductCommand) (domain.Product, error)
	DeactivateProduct(ctx context.Context, productID string) error
}

// ProductListQuery filters catalog listings.
type ProductListQuery struct {
	Category      string
	Keyword       string
	IncludeHidden bool
	Pagination    domain.Pagination
}

// UpsertProductCommand carries the staff payload for creating or updating a product.
type UpsertProductCommand struct {
	ProductID        string
	Name             string
	Description      string
	Category         string
	PriceAmount      int64
	Currency         string
	BaseMeasurements domain.MeasurementSet
	Sizes            []domain.SizeVariant
	ImagePaths       []string
	Keywords         []string
}

// DesignService owns the made-to-measure design lifecycle.
type DesignService interface {
	CreateDesign(ctx context.Context, cmd CreateDesignCommand) (domain.CustomDesign, error)
	UpdateDesign(ctx context.Context, cmd UpdateDesignCommand) (domain.CustomDesign, error)
	GetDesign(ctx context.Context, ownerID, designID string) (domain.CustomDesign, error)
	ListDesigns(ctx context.Context, ownerID string, filter DesignListQuery) (domain.CursorPage[domain.CustomDesign], error)
	SubmitDesign(ctx context.Context, ownerID, designID string) (domain.CustomDesign, error)
	ArchiveDesign(ctx context.Context, ownerID, designID string) (domain.CustomDesign, error)
}

// DesignListQuery filters a user's design listings.
type DesignListQuery struct {
	Status     domain.DesignStatus
	Pagination domain.Pagination
}

// CreateDesignCommand carries the payload for a new made-to-measure design.
type CreateDesignCommand struct {
	OwnerID        string
	Label          string
	Notes          string
	Category       string
	FabricID       string
	Specifications domain.MeasurementSet
}

// UpdateDesignCommand carries a partial design update; nil fields are left unchanged.
type UpdateDesignCommand struct {
	OwnerID        string
	DesignID       string
	Label          *string
	Notes          *string
	FabricID       *string
	Specifications domain.MeasurementSet
}

// UserService owns profile and body measurement management.
type UserService interface {
	GetProfile(ctx context.Context, userID string) (domain.UserProfile, error)
	UpdateProfile(ctx context.Context, cmd UpdateProfileCommand) (domain.UserProfile, error)
	UpdateMeasurements(ctx context.Context, cmd UpdateMeasurementsCommand) (domain.UserProfile, error)
}

// UpdateProfileCommand carries a partial profile update; nil fields are left unchanged.
type UpdateProfileCommand struct {
	UserID      string
	DisplayName *string
	Email       *string
	Locale      *string
}

// UpdateMeasurementsCommand replaces the user's stored body measurements.
type UpdateMeasurementsCommand struct {
	UserID       string
	Measurements domain.MeasurementSet
}

// OrderService owns checkout and order history.
type OrderService interface {
	PlaceOrder(ctx context.Context, cmd PlaceOrderCommand) (PlaceOrderResult, error)
	GetOrder(ctx context.Context, userID, orderID string) (domain.Order, error)
	ListOrders(ctx context.Context, userID string, pager domain.Pagination) (domain.CursorPage[domain.Order], error)
}

// PlaceOrderCommand carries the checkout payload.
type PlaceOrderCommand struct {
	UserID     string
	Lines      []OrderLineInput
	SuccessURL string
	CancelURL  string
}

// OrderLineInput names either a catalog product in a size or an owned design.
type OrderLineInput struct {
	ProductID string
	DesignID  string
	Size      string
	Quantity  int
}

// PlaceOrderResult returns the stored order plus the PSP redirect.
type PlaceOrderResult struct {
	Order       domain.Order
	CheckoutURL string
	SessionID   string
}

// EventPublisher enqueues lifecycle events for asynchronous consumers.
type EventPublisher interface {
	PublishFittingRecorded(ctx context.Context, message FittingRecordedMessage) (string, error)
	PublishOrderPlaced(ctx context.Context, message OrderPlacedMessage) (string, error)
}

// FittingRecordedMessage is the payload published after a try-on is persisted.
type FittingRecordedMessage struct {
	TryOnID    string    `json:"tryOnId"`
	UserID     string    `json:"userId"`
	ProductID  string    `json:"productId,omitempty"`
	DesignID   string    `json:"designId,omitempty"`
	Source     string    `json:"source"`
	FitScore   int       `json:"fitScore"`
	RecordedAt time.Time `json:"recordedAt"`
}

// OrderPlacedMessage is the payload published after checkout succeeds.
type OrderPlacedMessage struct {
	OrderID     string    `json:"orderId"`
	UserID      string    `json:"userId"`
	Currency    string    `json:"currency"`
	AmountTotal int64     `json:"amountTotal"`
	PlacedAt    time.Time `json:"placedAt"`
}

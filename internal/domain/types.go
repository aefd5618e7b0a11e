package domain

import (
	"time"
)

// Pagination defines standard cursor-based paging inputs for list operations.
type Pagination struct {
	PageSize  int
	PageToken string
}

// CursorPage wraps a page of results together with the continuation token.
type CursorPage[T any] struct {
	Items         []T
	NextPageToken string
}

// SizeVariant stores the per-size measurement overrides and stock for a product.
// Override measurements win over the product base measurements per region.
type SizeVariant struct {
	Size          Size
	Measurements  MeasurementSet
	StockQuantity int
}

// Product describes a catalog garment with size-indexed measurement variants.
type Product struct {
	ID               string
	Name             string
	Description      string
	Category         string
	PriceAmount      int64
	Currency         string
	BaseMeasurements MeasurementSet
	Sizes            []SizeVariant
	ImagePaths       []string
	Keywords         []string
	Active           bool
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// SizeMeasurements resolves the effective garment measurements for the
// selected size: base measurements merged with the variant overrides.
func (p Product) SizeMeasurements(size Size) MeasurementSet {
	for _, variant := range p.Sizes {
		if variant.Size == size {
			return p.BaseMeasurements.Merge(variant.Measurements)
		}
	}
	return p.BaseMeasurements.Clone()
}

// DesignStatus tracks the lifecycle of a made-to-measure design.
type DesignStatus string

const (
	// DesignStatusDraft marks designs still being edited by the owner.
	DesignStatusDraft DesignStatus = "draft"
	// DesignStatusSubmitted marks designs handed to the atelier for production.
	DesignStatusSubmitted DesignStatus = "submitted"
	// DesignStatusArchived marks designs hidden from the owner's active list.
	DesignStatusArchived DesignStatus = "archived"
)

// CustomDesign describes a made-to-measure garment owned by a user. The
// design specifications carry a single flat measurement mapping; made-to-measure
// garments have no size variants.
type CustomDesign struct {
	ID                   string
	OwnerID              string
	Label                string
	Notes                string
	Category             string
	FabricID             string
	DesignSpecifications MeasurementSet
	ImagePaths           []string
	Status               DesignStatus
	PriceAmount          int64
	Currency             string
	CreatedAt            time.Time
	UpdatedAt            time.Time
}

// UserProfile stores account data plus the body measurement set used for
// virtual fitting.
type UserProfile struct {
	ID           string
	DisplayName  string
	Email        string
	Locale       string
	Measurements MeasurementSet
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// OrderStatus enumerates order lifecycle states.
type OrderStatus string

const (
	// OrderStatusPendingPayment marks orders awaiting PSP confirmation.
	OrderStatusPendingPayment OrderStatus = "pending_payment"
	// OrderStatusPaid marks orders with a captured payment.
	OrderStatusPaid OrderStatus = "paid"
	// OrderStatusFulfilled marks shipped/delivered orders.
	OrderStatusFulfilled OrderStatus = "fulfilled"
	// OrderStatusCancelled marks cancelled orders.
	OrderStatusCancelled OrderStatus = "cancelled"
)

// OrderLine is a single purchasable entry: either a catalog product in a
// selected size or a made-to-measure design.
type OrderLine struct {
	ProductID string
	DesignID  string
	Label     string
	Size      Size
	Quantity  int
	UnitPrice int64
}

// OrderPayment captures the PSP linkage for an order.
type OrderPayment struct {
	Provider   string
	SessionID  string
	IntentID   string
	Status     string
	CapturedAt *time.Time
}

// Order aggregates purchased lines, totals, and payment state.
type Order struct {
	ID        string
	UserID    string
	Lines     []OrderLine
	Status    OrderStatus
	Currency  string
	Subtotal  int64
	Total     int64
	Payment   *OrderPayment
	CreatedAt time.Time
	UpdatedAt time.Time
}

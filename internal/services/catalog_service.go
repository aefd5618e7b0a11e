package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	domain "github.com/stylefit/api/internal/domain"
	"github.com/stylefit/api/internal/repositories"
)

var (
	// ErrCatalogInvalidInput indicates the caller provided invalid arguments.
	ErrCatalogInvalidInput = errors.New("catalog: invalid input")
	// ErrCatalogNotFound indicates the product does not exist or is hidden.
	ErrCatalogNotFound = errors.New("catalog: product not found")
	// ErrCatalogConflict indicates a write raced with another update.
	ErrCatalogConflict = errors.New("catalog: conflict")
	// ErrCatalogUnavailable signals that persistence dependencies are unavailable.
	ErrCatalogUnavailable = errors.New("catalog: repository unavailable")
)

const (
	productIDPrefix      = "prod_"
	maxProductNameLen    = 200
	maxDescriptionLen    = 4000
	maxKeywordsPerRecord = 20
)

// CatalogServiceDeps wires dependencies for the catalog service implementation.
type CatalogServiceDeps struct {
	Products    repositories.ProductRepository
	Clock       func() time.Time
	IDGenerator func() string
}

type catalogService struct {
	products repositories.ProductRepository
	clock    func() time.Time
	newID    func() string
	folder   cases.Caser
}

// NewCatalogService constructs a CatalogService backed by the product repository.
func NewCatalogService(deps CatalogServiceDeps) (CatalogService, error) {
	if deps.Products == nil {
		return nil, errors.New("catalog service: products repository is required")
	}
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	idGen := deps.IDGenerator
	if idGen == nil {
		idGen = func() string { return ulid.Make().String() }
	}
	return &catalogService{
		products: deps.Products,
		clock:    func() time.Time { return clock().UTC() },
		newID:    idGen,
		folder:   cases.Lower(language.Und),
	}, nil
}

// GetProduct loads a product for the public catalog. Hidden products read as missing.
func (s *catalogService) GetProduct(ctx context.Context, productID string) (domain.Product, error) {
	productID = strings.TrimSpace(productID)
	if productID == "" {
		return domain.Product{}, fmt.Errorf("%w: product id is required", ErrCatalogInvalidInput)
	}
	product, err := s.products.FindByID(ctx, productID)
	if err != nil {
		return domain.Product{}, s.mapRepositoryError(err)
	}
	return product, nil
}

// ListProducts returns a filtered catalog page. Hidden products are excluded
// unless the caller asks for them (staff surfaces only).
func (s *catalogService) ListProducts(ctx context.Context, query ProductListQuery) (domain.CursorPage[domain.Product], error) {
	filter := repositories.ProductListFilter{
		Category:   s.fold(query.Category),
		Keyword:    s.fold(query.Keyword),
		ActiveOnly: !query.IncludeHidden,
		Pager:      normalizePagination(query.Pagination),
	}
	page, err := s.products.List(ctx, filter)
	if err != nil {
		return domain.CursorPage[domain.Product]{}, s.mapRepositoryError(err)
	}
	return page, nil
}

// CreateProduct registers a new catalog product.
func (s *catalogService) CreateProduct(ctx context.Context, cmd UpsertProductCommand) (domain.Product, error) {
	product, err := s.buildProduct(cmd)
	if err != nil {
		return domain.Product{}, err
	}
	now := s.clock()
	product.ID = productIDPrefix + strings.ToLower(strings.TrimSpace(s.newID()))
	product.Active = true
	product.CreatedAt = now
	product.UpdatedAt = now

	if err := s.products.Insert(ctx, product); err != nil {
		return domain.Product{}, s.mapRepositoryError(err)
	}
	return product, nil
}

// UpdateProduct replaces the stored product payload, preserving identity and creation time.
func (s *catalogService) UpdateProduct(ctx context.Context, cmd UpsertProductCommand) (domain.Product, error) {
	productID := strings.TrimSpace(cmd.ProductID)
	if productID == "" {
		return domain.Product{}, fmt.Errorf("%w: product id is required", ErrCatalogInvalidInput)
	}
	existing, err := s.products.FindByID(ctx, productID)
	if err != nil {
		return domain.Product{}, s.mapRepositoryError(err)
	}

	product, err := s.buildProduct(cmd)
	if err != nil {
		return domain.Product{}, err
	}
	product.ID = existing.ID
	product.Active = existing.Active
	product.CreatedAt = existing.CreatedAt
	product.UpdatedAt = s.clock()

	if err := s.products.Update(ctx, product); err != nil {
		return domain.Product{}, s.mapRepositoryError(err)
	}
	return product, nil
}

// DeactivateProduct hides the product from the public catalog without deleting
// it; existing try-on history keeps resolving.
func (s *catalogService) DeactivateProduct(ctx context.Context, productID string) error {
	productID = strings.TrimSpace(productID)
	if productID == "" {
		return fmt.Errorf("%w: product id is required", ErrCatalogInvalidInput)
	}
	if err := s.products.Deactivate(ctx, productID); err != nil {
		return s.mapRepositoryError(err)
	}
	return nil
}

func (s *catalogService) buildProduct(cmd UpsertProductCommand) (domain.Product, error) {
	name := strings.TrimSpace(cmd.Name)
	if name == "" {
		return domain.Product{}, fmt.Errorf("%w: product name is required", ErrCatalogInvalidInput)
	}
	if len(name) > maxProductNameLen {
		return domain.Product{}, fmt.Errorf("%w: product name too long", ErrCatalogInvalidInput)
	}
	description := strings.TrimSpace(cmd.Description)
	if len(description) > maxDescriptionLen {
		return domain.Product{}, fmt.Errorf("%w: description too long", ErrCatalogInvalidInput)
	}
	if cmd.PriceAmount < 0 {
		return domain.Product{}, fmt.Errorf("%w: price must not be negative", ErrCatalogInvalidInput)
	}
	currency := strings.ToUpper(strings.TrimSpace(cmd.Currency))
	if currency != "" && len(currency) != 3 {
		return domain.Product{}, fmt.Errorf("%w: currency must be a 3-letter code", ErrCatalogInvalidInput)
	}

	if err := validateMeasurements(cmd.BaseMeasurements); err != nil {
		return domain.Product{}, fmt.Errorf("%w: base measurements: %v", ErrCatalogInvalidInput, err)
	}
	sizes := make([]domain.SizeVariant, 0, len(cmd.Sizes))
	seen := make(map[domain.Size]struct{}, len(cmd.Sizes))
	for _, variant := range cmd.Sizes {
		size, ok := domain.ParseSize(string(variant.Size))
		if !ok {
			return domain.Product{}, fmt.Errorf("%w: unknown size %q", ErrCatalogInvalidInput, variant.Size)
		}
		if _, dup := seen[size]; dup {
			return domain.Product{}, fmt.Errorf("%w: duplicate size %q", ErrCatalogInvalidInput, size)
		}
		seen[size] = struct{}{}
		if err := validateMeasurements(variant.Measurements); err != nil {
			return domain.Product{}, fmt.Errorf("%w: size %s measurements: %v", ErrCatalogInvalidInput, size, err)
		}
		if variant.StockQuantity < 0 {
			return domain.Product{}, fmt.Errorf("%w: size %s stock must not be negative", ErrCatalogInvalidInput, size)
		}
		sizes = append(sizes, domain.SizeVariant{
			Size:          size,
			Measurements:  variant.Measurements.Clone(),
			StockQuantity: variant.StockQuantity,
		})
	}

	keywords := s.normalizeKeywords(cmd.Keywords, name, cmd.Category)
	return domain.Product{
		Name:             name,
		Description:      description,
		Category:         s.fold(cmd.Category),
		PriceAmount:      cmd.PriceAmount,
		Currency:         currency,
		BaseMeasurements: cmd.BaseMeasurements.Clone(),
		Sizes:            sizes,
		ImagePaths:       copyStrings(cmd.ImagePaths),
		Keywords:         keywords,
	}, nil
}

// normalizeKeywords case-folds and dedupes explicit keywords plus tokens
// derived from the product name and category, so listing queries match on
// exact folded terms.
func (s *catalogService) normalizeKeywords(explicit []string, name, category string) []string {
	seen := make(map[string]struct{})
	out := make([]string, 0, maxKeywordsPerRecord)

	add := func(raw string) {
		token := s.fold(raw)
		if token == "" {
			return
		}
		if _, dup := seen[token]; dup {
			return
		}
		if len(out) >= maxKeywordsPerRecord {
			return
		}
		seen[token] = struct{}{}
		out = append(out, token)
	}

	for _, keyword := range explicit {
		add(keyword)
	}
	for _, token := range strings.Fields(name) {
		add(token)
	}
	add(category)
	return out
}

func (s *catalogService) fold(value string) string {
	return s.folder.String(strings.TrimSpace(value))
}

func (s *catalogService) mapRepositoryError(err error) error {
	if err == nil {
		return nil
	}
	var repoErr repositories.RepositoryError
	if errors.As(err, &repoErr) {
		switch {
		case repoErr.IsNotFound():
			return fmt.Errorf("%w: %v", ErrCatalogNotFound, err)
		case repoErr.IsConflict():
			return fmt.Errorf("%w: %v", ErrCatalogConflict, err)
		case repoErr.IsUnavailable():
			return fmt.Errorf("%w: %v", ErrCatalogUnavailable, err)
		}
	}
	return err
}

func validateMeasurements(set domain.MeasurementSet) error {
	known := make(map[domain.Region]struct{}, 5)
	for _, region := range domain.TrackedRegions() {
		known[region] = struct{}{}
	}
	for region, value := range set {
		if _, ok := known[region]; !ok {
			return fmt.Errorf("unknown region %q", region)
		}
		if value < 0 {
			return fmt.Errorf("region %q must not be negative", region)
		}
	}
	return nil
}

func normalizePagination(pager domain.Pagination) domain.Pagination {
	const (
		defaultPageSize = 20
		maxPageSize     = 100
	)
	if pager.PageSize <= 0 {
		pager.PageSize = defaultPageSize
	}
	if pager.PageSize > maxPageSize {
		pager.PageSize = maxPageSize
	}
	return pager
}

func copyStrings(in []string) []string {
	if len(in) == 0 {
		return nil
	}
	out := make([]string, 0, len(in))
	for _, value := range in {
		value = strings.TrimSpace(value)
		if value == "" {
			continue
		}
		out = append(out, value)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

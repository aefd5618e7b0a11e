package services

import (
	"context"
	"errors"
	"testing"
	"time"

	domain "github.com/stylefit/api/internal/domain"
	"github.com/stylefit/api/internal/repositories"
)

type recordingProductRepo struct {
	fakeProductRepo
	inserted    []domain.Product
	updated     []domain.Product
	deactivated []string
	lastFilter  repositories.ProductListFilter
	listPage    domain.CursorPage[domain.Product]
}

func (r *recordingProductRepo) Insert(_ context.Context, product domain.Product) error {
	r.inserted = append(r.inserted, product)
	return nil
}

func (r *recordingProductRepo) Update(_ context.Context, product domain.Product) error {
	r.updated = append(r.updated, product)
	return nil
}

func (r *recordingProductRepo) List(_ context.Context, filter repositories.ProductListFilter) (domain.CursorPage[domain.Product], error) {
	r.lastFilter = filter
	return r.listPage, nil
}

func (r *recordingProductRepo) Deactivate(_ context.Context, productID string) error {
	if _, ok := r.products[productID]; !ok {
		return stubRepoError{notFound: true}
	}
	r.deactivated = append(r.deactivated, productID)
	return nil
}

func newCatalogFixture(t *testing.T) (*recordingProductRepo, CatalogService) {
	t.Helper()
	repo := &recordingProductRepo{
		fakeProductRepo: fakeProductRepo{products: map[string]domain.Product{}},
	}
	service, err := NewCatalogService(CatalogServiceDeps{
		Products: repo,
		Clock: func() time.Time {
			return time.Date(2026, time.March, 4, 12, 0, 0, 0, time.UTC)
		},
		IDGenerator: func() string { return "01CATALOGID" },
	})
	if err != nil {
		t.Fatalf("NewCatalogService: %v", err)
	}
	return repo, service
}

func TestCatalogServiceCreateProduct(t *testing.T) {
	repo, service := newCatalogFixture(t)

	product, err := service.CreateProduct(context.Background(), UpsertProductCommand{
		Name:        "Linen Summer Dress",
		Description: "Lightweight linen dress.",
		Category:    "Dresses",
		PriceAmount: 12900,
		Currency:    "eur",
		BaseMeasurements: domain.MeasurementSet{
			domain.RegionBust:  90,
			domain.RegionWaist: 72,
		},
		Sizes: []domain.SizeVariant{
			{Size: "m", Measurements: domain.MeasurementSet{domain.RegionBust: 92}, StockQuantity: 5},
		},
		Keywords: []string{"Summer", "LINEN", "summer"},
	})
	if err != nil {
		t.Fatalf("CreateProduct: %v", err)
	}

	if product.ID != "prod_01catalogid" {
		t.Errorf("product id = %q", product.ID)
	}
	if !product.Active {
		t.Errorf("new products must be active")
	}
	if product.Currency != "EUR" {
		t.Errorf("currency = %q, want EUR", product.Currency)
	}
	if product.Category != "dresses" {
		t.Errorf("category = %q, want folded dresses", product.Category)
	}
	if len(product.Sizes) != 1 || product.Sizes[0].Size != domain.SizeM {
		t.Errorf("unexpected sizes %+v", product.Sizes)
	}

	wantKeywords := []string{"summer", "linen", "dress", "dresses"}
	if len(product.Keywords) != len(wantKeywords) {
		t.Fatalf("keywords = %v, want %v", product.Keywords, wantKeywords)
	}
	for i, keyword := range wantKeywords {
		if product.Keywords[i] != keyword {
			t.Errorf("keywords[%d] = %q, want %q", i, product.Keywords[i], keyword)
		}
	}

	if len(repo.inserted) != 1 {
		t.Fatalf("inserted %d products, want 1", len(repo.inserted))
	}
}

func TestCatalogServiceCreateProductValidation(t *testing.T) {
	_, service := newCatalogFixture(t)

	cases := []struct {
		name string
		cmd  UpsertProductCommand
	}{
		{name: "missing name", cmd: UpsertProductCommand{PriceAmount: 100}},
		{name: "negative price", cmd: UpsertProductCommand{Name: "Dress", PriceAmount: -1}},
		{name: "bad currency", cmd: UpsertProductCommand{Name: "Dress", Currency: "EURO"}},
		{name: "unknown size", cmd: UpsertProductCommand{
			Name:  "Dress",
			Sizes: []domain.SizeVariant{{Size: "HUGE"}},
		}},
		{name: "duplicate size", cmd: UpsertProductCommand{
			Name:  "Dress",
			Sizes: []domain.SizeVariant{{Size: "M"}, {Size: "m"}},
		}},
		{name: "unknown region", cmd: UpsertProductCommand{
			Name:             "Dress",
			BaseMeasurements: domain.MeasurementSet{"sleeve": 60},
		}},
		{name: "negative stock", cmd: UpsertProductCommand{
			Name:  "Dress",
			Sizes: []domain.SizeVariant{{Size: "M", StockQuantity: -1}},
		}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := service.CreateProduct(context.Background(), tc.cmd); !errors.Is(err, ErrCatalogInvalidInput) {
				t.Errorf("error = %v, want ErrCatalogInvalidInput", err)
			}
		})
	}
}

func TestCatalogServiceUpdateProductPreservesIdentity(t *testing.T) {
	repo, service := newCatalogFixture(t)
	created := time.Date(2025, time.December, 1, 9, 0, 0, 0, time.UTC)
	repo.products["prod_x"] = domain.Product{
		ID:        "prod_x",
		Name:      "Old Name",
		Active:    false,
		CreatedAt: created,
	}

	product, err := service.UpdateProduct(context.Background(), UpsertProductCommand{
		ProductID:   "prod_x",
		Name:        "New Name",
		PriceAmount: 100,
	})
	if err != nil {
		t.Fatalf("UpdateProduct: %v", err)
	}
	if product.ID != "prod_x" {
		t.Errorf("id = %q, want prod_x", product.ID)
	}
	if product.Active {
		t.Errorf("update must preserve the hidden flag")
	}
	if !product.CreatedAt.Equal(created) {
		t.Errorf("createdAt = %v, want preserved %v", product.CreatedAt, created)
	}
	if product.UpdatedAt.Equal(created) {
		t.Errorf("updatedAt must advance")
	}
	if len(repo.updated) != 1 {
		t.Fatalf("updated %d products, want 1", len(repo.updated))
	}
}

func TestCatalogServiceUpdateProductNotFound(t *testing.T) {
	_, service := newCatalogFixture(t)
	_, err := service.UpdateProduct(context.Background(), UpsertProductCommand{
		ProductID: "prod_missing",
		Name:      "Name",
	})
	if !errors.Is(err, ErrCatalogNotFound) {
		t.Errorf("error = %v, want ErrCatalogNotFound", err)
	}
}

func TestCatalogServiceListProductsFilter(t *testing.T) {
	repo, service := newCatalogFixture(t)
	repo.listPage = domain.CursorPage[domain.Product]{Items: []domain.Product{{ID: "prod_a"}}}

	page, err := service.ListProducts(context.Background(), ProductListQuery{
		Category:   " Dresses ",
		Keyword:    "LINEN",
		Pagination: domain.Pagination{PageSize: 500},
	})
	if err != nil {
		t.Fatalf("ListProducts: %v", err)
	}
	if len(page.Items) != 1 {
		t.Errorf("items = %d, want 1", len(page.Items))
	}
	if repo.lastFilter.Category != "dresses" || repo.lastFilter.Keyword != "linen" {
		t.Errorf("filter not folded: %+v", repo.lastFilter)
	}
	if !repo.lastFilter.ActiveOnly {
		t.Errorf("public listings must be active-only")
	}
	if repo.lastFilter.Pager.PageSize != 100 {
		t.Errorf("page size = %d, want clamped 100", repo.lastFilter.Pager.PageSize)
	}

	if _, err := service.ListProducts(context.Background(), ProductListQuery{IncludeHidden: true}); err != nil {
		t.Fatalf("ListProducts hidden: %v", err)
	}
	if repo.lastFilter.ActiveOnly {
		t.Errorf("staff listings may include hidden products")
	}
	if repo.lastFilter.Pager.PageSize != 20 {
		t.Errorf("page size = %d, want default 20", repo.lastFilter.Pager.PageSize)
	}
}

func TestCatalogServiceDeactivateProduct(t *testing.T) {
	repo, service := newCatalogFixture(t)
	repo.products["prod_x"] = domain.Product{ID: "prod_x", Active: true}

	if err := service.DeactivateProduct(context.Background(), "prod_x"); err != nil {
		t.Fatalf("DeactivateProduct: %v", err)
	}
	if len(repo.deactivated) != 1 || repo.deactivated[0] != "prod_x" {
		t.Errorf("deactivated = %v", repo.deactivated)
	}

	if err := service.DeactivateProduct(context.Background(), "prod_missing"); !errors.Is(err, ErrCatalogNotFound) {
		t.Errorf("error = %v, want ErrCatalogNotFound", err)
	}
	if err := service.DeactivateProduct(context.Background(), "  "); !errors.Is(err, ErrCatalogInvalidInput) {
		t.Errorf("error = %v, want ErrCatalogInvalidInput", err)
	}
}

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

const productCollection = "products"

// ProductRepository persists catalog products in Firestore.
type ProductRepository struct {
	base *pfirestore.BaseRepository[productDocument]
}

// NewProductRepository constructs a Firestore-backed product repository.
func NewProductRepository(provider *pfirestore.Provider) (*ProductRepository, error) {
	if provider == nil {
		return nil, errors.New("product repository requires firestore provider")
	}
	base := pfirestore.NewBaseRepository[productDocument](provider, productCollection, nil, nil)
	return &ProductRepository{base: base}, nil
}

// Insert creates a new product document, failing when the ID already exists.
func (r *ProductRepository) Insert(ctx context.Context, product domain.Product) error {
	if r == nil || r.base == nil {
		return errors.New("product repository not initialised")
	}
	if strings.TrimSpace(product.ID) == "" {
		return errors.New("product id is required")
	}
	_, err := r.base.Create(ctx, product.ID, encodeProductDocument(product))
	return err
}

// Update overwrites the stored product document.
func (r *ProductRepository) Update(ctx context.Context, product domain.Product) error {
	if r == nil || r.base == nil {
		return errors.New("product repository not initialised")
	}
	if strings.TrimSpace(product.ID) == "" {
		return errors.New("product id is required")
	}
	_, err := r.base.Set(ctx, product.ID, encodeProductDocument(product))
	return err
}

// FindByID loads a product by ID.
func (r *ProductRepository) FindByID(ctx context.Context, productID string) (domain.Product, error) {
	if r == nil || r.base == nil {
		return domain.Product{}, errors.New("product repository not initialised")
	}
	doc, err := r.base.Get(ctx, productID)
	if err != nil {
		return domain.Product{}, err
	}
	return decodeProductDocument(doc.ID, doc.Data, doc.CreateTime, doc.UpdateTime), nil
}

// List returns a page of products matching the filter ordered by most recent update.
func (r *ProductRepository) List(ctx context.Context, filter repositories.ProductListFilter) (domain.CursorPage[domain.Product], error) {
	if r == nil || r.base == nil {
		return domain.CursorPage[domain.Product]{}, errors.New("product repository not initialised")
	}

	limit := filter.Pager.PageSize
	if limit < 0 {
		limit = 0
	}
	fetchLimit := limit
	if limit > 0 {
		fetchLimit = limit + 1
	}

	var startAfter []any
	if token := strings.TrimSpace(filter.Pager.PageToken); token != "" {
		tokenTime, tokenID, err := decodeListToken(token)
		if err != nil {
			return domain.CursorPage[domain.Product]{}, fmt.Errorf("product repository: invalid page token: %w", err)
		}
		startAfter = []any{tokenTime, tokenID}
	}

	category := strings.ToLower(strings.TrimSpace(filter.Category))
	keyword := strings.TrimSpace(filter.Keyword)

	docs, err := r.base.Query(ctx, func(q firestore.Query) firestore.Query {
		if filter.ActiveOnly {
			q = q.Where("active", "==", true)
		}
		if category != "" {
			q = q.Where("category", "==", category)
		}
		if keyword != "" {
			q = q.Where("keywords", "array-contains", keyword)
		}
		q = q.OrderBy("updatedAt", firestore.Desc).OrderBy(firestore.DocumentID, firestore.Desc)
		if len(startAfter) == 2 {
			q = q.StartAfter(startAfter...)
		}
		if fetchLimit > 0 {
			q = q.Limit(fetchLimit)
		}
		return q
	})
	if err != nil {
		return domain.CursorPage[domain.Product]{}, err
	}

	nextToken := ""
	if limit > 0 && len(docs) == fetchLimit {
		last := docs[len(docs)-1]
		tokenTime := last.Data.UpdatedAt
		if tokenTime.IsZero() {
			tokenTime = last.UpdateTime
		}
		nextToken = encodeListToken(tokenTime, last.ID)
		docs = docs[:len(docs)-1]
	}

	items := make([]domain.Product, 0, len(docs))
	for _, doc := range docs {
		items = append(items, decodeProductDocument(doc.ID, doc.Data, doc.CreateTime, doc.UpdateTime))
	}

	return domain.CursorPage[domain.Product]{Items: items, NextPageToken: nextToken}, nil
}

// Deactivate hides the product from catalog listings without deleting it.
func (r *ProductRepository) Deactivate(ctx context.Context, productID string) error {
	if r == nil || r.base == nil {
		return errors.New("product repository not initialised")
	}
	_, err := r.base.Update(ctx, productID, []firestore.Update{
		{Path: "active", Value: false},
		{Path: "updatedAt", Value: time.Now().UTC()},
	})
	return err
}

type productDocument struct {
	Name             string                `firestore:"name"`
	Description      string                `firestore:"description"`
	Category         string                `firestore:"category"`
	PriceAmount      int64                 `firestore:"priceAmount"`
	Currency         string                `firestore:"currency"`
	BaseMeasurements map[string]float64    `firestore:"baseMeasurements"`
	Sizes            []sizeVariantDocument `firestore:"sizes"`
	ImagePaths       []string              `firestore:"imagePaths"`
	Keywords         []string              `firestore:"keywords"`
	Active           bool                  `firestore:"active"`
	CreatedAt        time.Time             `firestore:"createdAt"`
	UpdatedAt        time.Time             `firestore:"updatedAt"`
}

type sizeVariantDocument struct {
	Size          string             `firestore:"size"`
	Measurements  map[string]float64 `firestore:"measurements"`
	StockQuantity int                `firestore:"stockQuantity"`
}

func encodeProductDocument(product domain.Product) productDocument {
	doc := productDocument{
		Name:             strings.TrimSpace(product.Name),
		Description:      strings.TrimSpace(product.Description),
		Category:         strings.ToLower(strings.TrimSpace(product.Category)),
		PriceAmount:      product.PriceAmount,
		Currency:         strings.ToUpper(strings.TrimSpace(product.Currency)),
		BaseMeasurements: encodeMeasurements(product.BaseMeasurements),
		ImagePaths:       cloneStrings(product.ImagePaths),
		Keywords:         cloneStrings(product.Keywords),
		Active:           product.Active,
		CreatedAt:        product.CreatedAt.UTC(),
		UpdatedAt:        product.UpdatedAt.UTC(),
	}
	if len(product.Sizes) > 0 {
		doc.Sizes = make([]sizeVariantDocument, 0, len(product.Sizes))
		for _, variant := range product.Sizes {
			doc.Sizes = append(doc.Sizes, sizeVariantDocument{
				Size:          string(variant.Size),
				Measurements:  encodeMeasurements(variant.Measurements),
				StockQuantity: variant.StockQuantity,
			})
		}
	}
	return doc
}

func decodeProductDocument(id string, doc productDocument, createdAt, updatedAt time.Time) domain.Product {
	product := domain.Product{
		ID:               strings.TrimSpace(id),
		Name:             strings.TrimSpace(doc.Name),
		Description:      strings.TrimSpace(doc.Description),
		Category:         strings.TrimSpace(doc.Category),
		PriceAmount:      doc.PriceAmount,
		Currency:         strings.TrimSpace(doc.Currency),
		BaseMeasurements: decodeMeasurements(doc.BaseMeasurements),
		ImagePaths:       cloneStrings(doc.ImagePaths),
		Keywords:         cloneStrings(doc.Keywords),
		Active:           doc.Active,
		CreatedAt:        chooseTime(doc.CreatedAt, createdAt),
		UpdatedAt:        chooseTime(doc.UpdatedAt, updatedAt),
	}
	if len(doc.Sizes) > 0 {
		product.Sizes = make([]domain.SizeVariant, 0, len(doc.Sizes))
		for _, variant := range doc.Sizes {
			size, ok := domain.ParseSize(variant.Size)
			if !ok {
				continue
			}
			product.Sizes = append(product.Sizes, domain.SizeVariant{
				Size:          size,
				Measurements:  decodeMeasurements(variant.Measurements),
				StockQuantity: variant.StockQuantity,
			})
		}
	}
	return product
}

var _ repositories.ProductRepository = (*ProductRepository)(nil)

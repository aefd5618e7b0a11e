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

const designCollection = "designs"

// DesignRepository persists made-to-measure designs in Firestore.
type DesignRepository struct {
	base *pfirestore.BaseRepository[designDocument]
}

// NewDesignRepository constructs a Firestore-backed design repository.
func NewDesignRepository(provider *pfirestore.Provider) (*DesignRepository, error) {
	if provider == nil {
		return nil, errors.New("design repository requires firestore provider")
	}
	base := pfirestore.NewBaseRepository[designDocument](provider, designCollection, nil, nil)
	return &DesignRepository{base: base}, nil
}

// Insert creates the design document, failing when the ID already exists.
func (r *DesignRepository) Insert(ctx context.Context, design domain.CustomDesign) error {
	if r == nil || r.base == nil {
		return errors.New("design repository not initialised")
	}
	if strings.TrimSpace(design.ID) == "" {
		return errors.New("design id is required")
	}
	_, err := r.base.Create(ctx, design.ID, encodeDesignDocument(design))
	return err
}

// Update overwrites the stored design document.
func (r *DesignRepository) Update(ctx context.Context, design domain.CustomDesign) error {
	if r == nil || r.base == nil {
		return errors.New("design repository not initialised")
	}
	if strings.TrimSpace(design.ID) == "" {
		return errors.New("design id is required")
	}
	_, err := r.base.Set(ctx, design.ID, encodeDesignDocument(design))
	return err
}

// FindByID loads a design by ID.
func (r *DesignRepository) FindByID(ctx context.Context, designID string) (domain.CustomDesign, error) {
	if r == nil || r.base == nil {
		return domain.CustomDesign{}, errors.New("design repository not initialised")
	}
	doc, err := r.base.Get(ctx, designID)
	if err != nil {
		return domain.CustomDesign{}, err
	}
	return decodeDesignDocument(doc.ID, doc.Data, doc.CreateTime, doc.UpdateTime), nil
}

// ListByOwner returns the owner's designs ordered by most recent update.
func (r *DesignRepository) ListByOwner(ctx context.Context, ownerID string, filter repositories.DesignListFilter) (domain.CursorPage[domain.CustomDesign], error) {
	if r == nil || r.base == nil {
		return domain.CursorPage[domain.CustomDesign]{}, errors.New("design repository not initialised")
	}
	ownerID = strings.TrimSpace(ownerID)
	if ownerID == "" {
		return domain.CursorPage[domain.CustomDesign]{}, errors.New("owner id is required")
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
			return domain.CursorPage[domain.CustomDesign]{}, fmt.Errorf("design repository: invalid page token: %w", err)
		}
		startAfter = []any{tokenTime, tokenID}
	}

	status := strings.ToLower(strings.TrimSpace(string(filter.Status)))

	docs, err := r.base.Query(ctx, func(q firestore.Query) firestore.Query {
		q = q.Where("ownerUid", "==", ownerID)
		if status != "" {
			q = q.Where("status", "==", status)
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
		return domain.CursorPage[domain.CustomDesign]{}, err
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

	items := make([]domain.CustomDesign, 0, len(docs))
	for _, doc := range docs {
		items = append(items, decodeDesignDocument(doc.ID, doc.Data, doc.CreateTime, doc.UpdateTime))
	}

	return domain.CursorPage[domain.CustomDesign]{Items: items, NextPageToken: nextToken}, nil
}

type designDocument struct {
	OwnerUID       string             `firestore:"ownerUid"`
	Label          string             `firestore:"label"`
	Notes          string             `firestore:"notes"`
	Category       string             `firestore:"category"`
	FabricID       string             `firestore:"fabricId"`
	Specifications map[string]float64 `firestore:"specifications"`
	ImagePaths     []string           `firestore:"imagePaths"`
	Status         string             `firestore:"status"`
	PriceAmount    int64              `firestore:"priceAmount"`
	Currency       string             `firestore:"currency"`
	CreatedAt      time.Time          `firestore:"createdAt"`
	UpdatedAt      time.Time          `firestore:"updatedAt"`
}

func encodeDesignDocument(design domain.CustomDesign) designDocument {
	return designDocument{
		OwnerUID:       strings.TrimSpace(design.OwnerID),
		Label:          strings.TrimSpace(design.Label),
		Notes:          strings.TrimSpace(design.Notes),
		Category:       strings.ToLower(strings.TrimSpace(design.Category)),
		FabricID:       strings.TrimSpace(design.FabricID),
		Specifications: encodeMeasurements(design.DesignSpecifications),
		ImagePaths:     cloneStrings(design.ImagePaths),
		Status:         strings.ToLower(strings.TrimSpace(string(design.Status))),
		PriceAmount:    design.PriceAmount,
		Currency:       strings.ToUpper(strings.TrimSpace(design.Currency)),
		CreatedAt:      design.CreatedAt.UTC(),
		UpdatedAt:      design.UpdatedAt.UTC(),
	}
}

func decodeDesignDocument(id string, doc designDocument, createdAt, updatedAt time.Time) domain.CustomDesign {
	return domain.CustomDesign{
		ID:                   strings.TrimSpace(id),
		OwnerID:              strings.TrimSpace(doc.OwnerUID),
		Label:                strings.TrimSpace(doc.Label),
		Notes:                strings.TrimSpace(doc.Notes),
		Category:             strings.TrimSpace(doc.Category),
		FabricID:             strings.TrimSpace(doc.FabricID),
		DesignSpecifications: decodeMeasurements(doc.Specifications),
		ImagePaths:           cloneStrings(doc.ImagePaths),
		Status:               domain.DesignStatus(strings.TrimSpace(doc.Status)),
		PriceAmount:          doc.PriceAmount,
		Currency:             strings.TrimSpace(doc.Currency),
		CreatedAt:            chooseTime(doc.CreatedAt, createdAt),
		UpdatedAt:            chooseTime(doc.UpdatedAt, updatedAt),
	}
}

var _ repositories.DesignRepository = (*DesignRepository)(nil)

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

const tryOnCollection = "tryOns"

// TryOnRepository persists append-only try-on history records in Firestore.
type TryOnRepository struct {
	base *pfirestore.BaseRepository[tryOnDocument]
}

// NewTryOnRepository constructs a Firestore-backed try-on repository.
func NewTryOnRepository(provider *pfirestore.Provider) (*TryOnRepository, error) {
	if provider == nil {
		return nil, errors.New("tryon repository requires firestore provider")
	}
	base := pfirestore.NewBaseRepository[tryOnDocument](provider, tryOnCollection, nil, nil)
	return &TryOnRepository{base: base}, nil
}

// Append inserts the record. Records are immutable, so conflicting IDs fail.
func (r *TryOnRepository) Append(ctx context.Context, record domain.TryOn) error {
	if r == nil || r.base == nil {
		return errors.New("tryon repository not initialised")
	}
	if strings.TrimSpace(record.ID) == "" {
		return errors.New("tryon id is required")
	}
	_, err := r.base.Create(ctx, record.ID, encodeTryOnDocument(record))
	return err
}

// FindByID loads a try-on record by ID.
func (r *TryOnRepository) FindByID(ctx context.Context, tryOnID string) (domain.TryOn, error) {
	if r == nil || r.base == nil {
		return domain.TryOn{}, errors.New("tryon repository not initialised")
	}
	doc, err := r.base.Get(ctx, tryOnID)
	if err != nil {
		return domain.TryOn{}, err
	}
	return decodeTryOnDocument(doc.ID, doc.Data, doc.CreateTime), nil
}

// ListByUser returns the user's try-on history, most recent first.
func (r *TryOnRepository) ListByUser(ctx context.Context, userID string, pager domain.Pagination) (domain.CursorPage[domain.TryOn], error) {
	if r == nil || r.base == nil {
		return domain.CursorPage[domain.TryOn]{}, errors.New("tryon repository not initialised")
	}
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return domain.CursorPage[domain.TryOn]{}, errors.New("user id is required")
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
			return domain.CursorPage[domain.TryOn]{}, fmt.Errorf("tryon repository: invalid page token: %w", err)
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
		return domain.CursorPage[domain.TryOn]{}, err
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

	items := make([]domain.TryOn, 0, len(docs))
	for _, doc := range docs {
		items = append(items, decodeTryOnDocument(doc.ID, doc.Data, doc.CreateTime))
	}

	return domain.CursorPage[domain.TryOn]{Items: items, NextPageToken: nextToken}, nil
}

type tryOnDocument struct {
	UserUID            string            `firestore:"userUid"`
	Source             string            `firestore:"source"`
	ProductID          string            `firestore:"productId,omitempty"`
	DesignID           string            `firestore:"designId,omitempty"`
	SelectedSize       string            `firestore:"selectedSize,omitempty"`
	Fit                string            `firestore:"fit"`
	SizeRecommendation string            `firestore:"sizeRecommendation"`
	FitScore           int               `firestore:"fitScore"`
	FitDetails         map[string]string `firestore:"fitDetails"`
	CreatedAt          time.Time         `firestore:"createdAt"`
}

func encodeTryOnDocument(record domain.TryOn) tryOnDocument {
	return tryOnDocument{
		UserUID:            strings.TrimSpace(record.UserID),
		Source:             string(record.Source),
		ProductID:          strings.TrimSpace(record.ProductID),
		DesignID:           strings.TrimSpace(record.DesignID),
		SelectedSize:       string(record.SelectedSize),
		Fit:                record.Fit,
		SizeRecommendation: record.SizeRecommendation,
		FitScore:           record.FitScore,
		FitDetails:         encodeFitDetails(record.FitDetails),
		CreatedAt:          record.CreatedAt.UTC(),
	}
}

func decodeTryOnDocument(id string, doc tryOnDocument, createdAt time.Time) domain.TryOn {
	return domain.TryOn{
		ID:                 strings.TrimSpace(id),
		UserID:             strings.TrimSpace(doc.UserUID),
		Source:             domain.FittingSource(strings.TrimSpace(doc.Source)),
		ProductID:          strings.TrimSpace(doc.ProductID),
		DesignID:           strings.TrimSpace(doc.DesignID),
		SelectedSize:       domain.Size(strings.TrimSpace(doc.SelectedSize)),
		Fit:                doc.Fit,
		SizeRecommendation: doc.SizeRecommendation,
		FitScore:           doc.FitScore,
		FitDetails:         decodeFitDetails(doc.FitDetails),
		CreatedAt:          chooseTime(doc.CreatedAt, createdAt),
	}
}

var _ repositories.TryOnRepository = (*TryOnRepository)(nil)

package firestore

import (
	"context"
	"errors"
	"strings"
	"time"

	"cloud.google.com/go/firestore"

	domain "github.com/stylefit/api/internal/domain"
	pfirestore "github.com/stylefit/api/internal/platform/firestore"
	"github.com/stylefit/api/internal/repositories"
)

const userCollection = "users"

// UserRepository persists user profiles and body measurements in Firestore.
type UserRepository struct {
	base *pfirestore.BaseRepository[userDocument]
}

// NewUserRepository constructs a Firestore-backed user repository.
func NewUserRepository(provider *pfirestore.Provider) (*UserRepository, error) {
	if provider == nil {
		return nil, errors.New("user repository requires firestore provider")
	}
	base := pfirestore.NewBaseRepository[userDocument](provider, userCollection, nil, nil)
	return &UserRepository{base: base}, nil
}

// FindByID loads the user profile by UID.
func (r *UserRepository) FindByID(ctx context.Context, userID string) (domain.UserProfile, error) {
	if r == nil || r.base == nil {
		return domain.UserProfile{}, errors.New("user repository not initialised")
	}
	if strings.TrimSpace(userID) == "" {
		return domain.UserProfile{}, errors.New("user id is required")
	}

	doc, err := r.base.Get(ctx, userID)
	if err != nil {
		return domain.UserProfile{}, err
	}
	return decodeUserDocument(doc.ID, doc.Data, doc.CreateTime, doc.UpdateTime), nil
}

// Upsert writes the full profile document.
func (r *UserRepository) Upsert(ctx context.Context, profile domain.UserProfile) (domain.UserProfile, error) {
	if r == nil || r.base == nil {
		return domain.UserProfile{}, errors.New("user repository not initialised")
	}
	if strings.TrimSpace(profile.ID) == "" {
		return domain.UserProfile{}, errors.New("profile id is required")
	}

	now := time.Now().UTC()
	doc := encodeUserDocument(profile, now)
	if _, err := r.base.Set(ctx, profile.ID, doc); err != nil {
		return domain.UserProfile{}, err
	}

	saved := decodeUserDocument(profile.ID, doc, doc.CreatedAt, doc.UpdatedAt)
	return saved, nil
}

// UpdateMeasurements replaces only the measurement block of the profile.
func (r *UserRepository) UpdateMeasurements(ctx context.Context, userID string, measurements domain.MeasurementSet) (domain.UserProfile, error) {
	if r == nil || r.base == nil {
		return domain.UserProfile{}, errors.New("user repository not initialised")
	}
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return domain.UserProfile{}, errors.New("user id is required")
	}

	updates := []firestore.Update{
		{Path: "measurements", Value: encodeMeasurements(measurements)},
		{Path: "updatedAt", Value: time.Now().UTC()},
	}
	if _, err := r.base.Update(ctx, userID, updates); err != nil {
		return domain.UserProfile{}, err
	}
	return r.FindByID(ctx, userID)
}

type userDocument struct {
	DisplayName  string             `firestore:"displayName"`
	Email        string             `firestore:"email"`
	Locale       string             `firestore:"locale"`
	Measurements map[string]float64 `firestore:"measurements"`
	CreatedAt    time.Time          `firestore:"createdAt"`
	UpdatedAt    time.Time          `firestore:"updatedAt"`
}

func encodeUserDocument(profile domain.UserProfile, now time.Time) userDocument {
	doc := userDocument{
		DisplayName:  strings.TrimSpace(profile.DisplayName),
		Email:        strings.ToLower(strings.TrimSpace(profile.Email)),
		Locale:       strings.TrimSpace(profile.Locale),
		Measurements: encodeMeasurements(profile.Measurements),
		CreatedAt:    profile.CreatedAt.UTC(),
		UpdatedAt:    now,
	}
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = now
	}
	return doc
}

func decodeUserDocument(id string, doc userDocument, createdAt, updatedAt time.Time) domain.UserProfile {
	return domain.UserProfile{
		ID:           strings.TrimSpace(id),
		DisplayName:  strings.TrimSpace(doc.DisplayName),
		Email:        strings.TrimSpace(doc.Email),
		Locale:       strings.TrimSpace(doc.Locale),
		Measurements: decodeMeasurements(doc.Measurements),
		CreatedAt:    chooseTime(doc.CreatedAt, createdAt),
		UpdatedAt:    chooseTime(doc.UpdatedAt, updatedAt),
	}
}

var _ repositories.UserRepository = (*UserRepository)(nil)

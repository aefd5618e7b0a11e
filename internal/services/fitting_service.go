package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	domain "github.com/stylefit/api/internal/domain"
	"github.com/stylefit/api/internal/repositories"
)

var (
	// ErrFittingInvalidInput indicates the caller provided invalid arguments.
	ErrFittingInvalidInput = errors.New("fitting: invalid input")
	// ErrFittingNotFound indicates the requested record does not exist.
	ErrFittingNotFound = errors.New("fitting: not found")
	// ErrFittingForbidden indicates the record belongs to another user.
	ErrFittingForbidden = errors.New("fitting: forbidden")
	// ErrFittingUnavailable signals that persistence dependencies are unavailable.
	ErrFittingUnavailable = errors.New("fitting: repository unavailable")
)

const tryOnIDPrefix = "try_"

// FittingServiceDeps wires dependencies for the fitting service implementation.
type FittingServiceDeps struct {
	Products    repositories.ProductRepository
	Designs     repositories.DesignRepository
	Users       repositories.UserRepository
	TryOns      repositories.TryOnRepository
	Publisher   EventPublisher
	Clock       func() time.Time
	IDGenerator func() string
	Logger      func(context.Context, string, map[string]any)
}

type fittingService struct {
	products  repositories.ProductRepository
	designs   repositories.DesignRepository
	users     repositories.UserRepository
	tryOns    repositories.TryOnRepository
	publisher EventPublisher
	clock     func() time.Time
	newID     func() string
	logger    func(context.Context, string, map[string]any)
}

// NewFittingService constructs a FittingService backed by the provided dependencies.
func NewFittingService(deps FittingServiceDeps) (FittingService, error) {
	if deps.Products == nil {
		return nil, errors.New("fitting service: products repository is required")
	}
	if deps.Designs == nil {
		return nil, errors.New("fitting service: designs repository is required")
	}
	if deps.Users == nil {
		return nil, errors.New("fitting service: users repository is required")
	}
	if deps.TryOns == nil {
		return nil, errors.New("fitting service: tryons repository is required")
	}

	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	idGen := deps.IDGenerator
	if idGen == nil {
		idGen = func() string { return ulid.Make().String() }
	}
	logger := deps.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}

	return &fittingService{
		products:  deps.Products,
		designs:   deps.Designs,
		users:     deps.Users,
		tryOns:    deps.TryOns,
		publisher: deps.Publisher,
		clock:     func() time.Time { return clock().UTC() },
		newID:     idGen,
		logger:    logger,
	}, nil
}

// TryOnProduct scores a catalog garment for the user and appends the try-on record.
func (s *fittingService) TryOnProduct(ctx context.Context, cmd TryOnProductCommand) (domain.TryOn, error) {
	userID := strings.TrimSpace(cmd.UserID)
	if userID == "" {
		return domain.TryOn{}, fmt.Errorf("%w: user id is required", ErrFittingInvalidInput)
	}
	productID := strings.TrimSpace(cmd.ProductID)
	if productID == "" {
		return domain.TryOn{}, fmt.Errorf("%w: product id is required", ErrFittingInvalidInput)
	}

	selectedSize, ok := domain.ParseSize(cmd.SelectedSize)
	if !ok {
		if strings.TrimSpace(cmd.SelectedSize) != "" {
			return domain.TryOn{}, fmt.Errorf("%w: unknown size %q", ErrFittingInvalidInput, cmd.SelectedSize)
		}
		selectedSize = domain.SizeM
	}

	product, err := s.products.FindByID(ctx, productID)
	if err != nil {
		return domain.TryOn{}, s.mapRepositoryError(err)
	}

	measurements := s.userMeasurements(ctx, userID)

	result, scored := ScoreCatalogFit(measurements, product, selectedSize)
	if !scored {
		s.logger(ctx, "fitting.catalog.degraded", map[string]any{
			"userId":    userID,
			"productId": productID,
			"reason":    "missing measurements",
		})
	}

	record := domain.TryOn{
		ID:                 s.nextTryOnID(),
		UserID:             userID,
		Source:             domain.FittingSourceCatalog,
		ProductID:          productID,
		SelectedSize:       selectedSize,
		Fit:                string(result.Fit),
		SizeRecommendation: string(result.SizeRecommendation),
		FitScore:           result.FitScore,
		FitDetails:         result.FitDetails,
		CreatedAt:          s.clock(),
	}

	if err := s.tryOns.Append(ctx, record); err != nil {
		return domain.TryOn{}, s.mapRepositoryError(err)
	}

	s.publishRecorded(ctx, record)
	return record, nil
}

// TryOnDesign scores one of the user's made-to-measure designs and appends the record.
func (s *fittingService) TryOnDesign(ctx context.Context, cmd TryOnDesignCommand) (domain.TryOn, error) {
	userID := strings.TrimSpace(cmd.UserID)
	if userID == "" {
		return domain.TryOn{}, fmt.Errorf("%w: user id is required", ErrFittingInvalidInput)
	}
	designID := strings.TrimSpace(cmd.DesignID)
	if designID == "" {
		return domain.TryOn{}, fmt.Errorf("%w: design id is required", ErrFittingInvalidInput)
	}

	design, err := s.designs.FindByID(ctx, designID)
	if err != nil {
		return domain.TryOn{}, s.mapRepositoryError(err)
	}
	if design.OwnerID != userID {
		return domain.TryOn{}, ErrFittingForbidden
	}

	measurements := s.userMeasurements(ctx, userID)

	result, scored := ScoreCustomDesignFit(measurements, design)
	if !scored {
		s.logger(ctx, "fitting.custom.degraded", map[string]any{
			"userId":   userID,
			"designId": designID,
			"reason":   "missing measurements",
		})
	}

	record := domain.TryOn{
		ID:                 s.nextTryOnID(),
		UserID:             userID,
		Source:             domain.FittingSourceCustom,
		DesignID:           designID,
		Fit:                string(result.Fit),
		SizeRecommendation: result.SizeRecommendation,
		FitScore:           result.FitScore,
		FitDetails:         result.FitDetails,
		CreatedAt:          s.clock(),
	}

	if err := s.tryOns.Append(ctx, record); err != nil {
		return domain.TryOn{}, s.mapRepositoryError(err)
	}

	s.publishRecorded(ctx, record)
	return record, nil
}

// GetTryOn fetches a single try-on record, enforcing ownership.
func (s *fittingService) GetTryOn(ctx context.Context, userID, tryOnID string) (domain.TryOn, error) {
	if strings.TrimSpace(tryOnID) == "" {
		return domain.TryOn{}, fmt.Errorf("%w: tryon id is required", ErrFittingInvalidInput)
	}
	record, err := s.tryOns.FindByID(ctx, tryOnID)
	if err != nil {
		return domain.TryOn{}, s.mapRepositoryError(err)
	}
	if record.UserID != strings.TrimSpace(userID) {
		return domain.TryOn{}, ErrFittingForbidden
	}
	return record, nil
}

// ListTryOns returns the user's try-on history, most recent first.
func (s *fittingService) ListTryOns(ctx context.Context, userID string, pager domain.Pagination) (domain.CursorPage[domain.TryOn], error) {
	if strings.TrimSpace(userID) == "" {
		return domain.CursorPage[domain.TryOn]{}, fmt.Errorf("%w: user id is required", ErrFittingInvalidInput)
	}
	page, err := s.tryOns.ListByUser(ctx, userID, pager)
	if err != nil {
		return domain.CursorPage[domain.TryOn]{}, s.mapRepositoryError(err)
	}
	return page, nil
}

// userMeasurements loads the stored measurement profile. A missing profile is
// not an error: the engine degrades to its default result and the caller logs.
func (s *fittingService) userMeasurements(ctx context.Context, userID string) domain.MeasurementSet {
	profile, err := s.users.FindByID(ctx, userID)
	if err != nil {
		var repoErr repositories.RepositoryError
		if errors.As(err, &repoErr) && repoErr.IsNotFound() {
			return nil
		}
		s.logger(ctx, "fitting.profile.load_failed", map[string]any{
			"userId": userID,
			"error":  err.Error(),
		})
		return nil
	}
	return profile.Measurements
}

func (s *fittingService) publishRecorded(ctx context.Context, record domain.TryOn) {
	if s.publisher == nil {
		return
	}
	message := FittingRecordedMessage{
		TryOnID:    record.ID,
		UserID:     record.UserID,
		ProductID:  record.ProductID,
		DesignID:   record.DesignID,
		Source:     string(record.Source),
		FitScore:   record.FitScore,
		RecordedAt: record.CreatedAt,
	}
	if _, err := s.publisher.PublishFittingRecorded(ctx, message); err != nil {
		s.logger(ctx, "fitting.event.publish_failed", map[string]any{
			"tryOnId": record.ID,
			"error":   err.Error(),
		})
	}
}

func (s *fittingService) nextTryOnID() string {
	return tryOnIDPrefix + strings.ToLower(strings.TrimSpace(s.newID()))
}

func (s *fittingService) mapRepositoryError(err error) error {
	if err == nil {
		return nil
	}
	var repoErr repositories.RepositoryError
	if errors.As(err, &repoErr) {
		switch {
		case repoErr.IsNotFound():
			return fmt.Errorf("%w: %v", ErrFittingNotFound, err)
		case repoErr.IsUnavailable():
			return fmt.Errorf("%w: %v", ErrFittingUnavailable, err)
		}
	}
	return err
}

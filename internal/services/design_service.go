package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/microcosm-cc/bluemonday"
	"github.com/oklog/ulid/v2"

	domain "github.com/stylefit/api/internal/domain"
	"github.com/stylefit/api/internal/repositories"
)

var (
	// ErrDesignInvalidInput indicates the caller provided invalid arguments.
	ErrDesignInvalidInput = errors.New("design: invalid input")
	// ErrDesignNotFound indicates the design does not exist.
	ErrDesignNotFound = errors.New("design: not found")
	// ErrDesignForbidden indicates the design belongs to another user.
	ErrDesignForbidden = errors.New("design: forbidden")
	// ErrDesignInvalidState indicates the lifecycle transition is not allowed.
	ErrDesignInvalidState = errors.New("design: invalid state transition")
	// ErrDesignUnavailable signals that persistence dependencies are unavailable.
	ErrDesignUnavailable = errors.New("design: repository unavailable")
)

const (
	designIDPrefix = "dsg_"
	maxLabelLen    = 120
	maxNotesLen    = 2000
)

// DesignServiceDeps wires dependencies for the design service implementation.
type DesignServiceDeps struct {
	Designs     repositories.DesignRepository
	Clock       func() time.Time
	IDGenerator func() string
}

type designService struct {
	designs  repositories.DesignRepository
	clock    func() time.Time
	newID    func() string
	sanitize *bluemonday.Policy
}

// NewDesignService constructs a DesignService backed by the design repository.
// Labels and notes are user supplied and pass through a strict HTML policy
// before they are stored.
func NewDesignService(deps DesignServiceDeps) (DesignService, error) {
	if deps.Designs == nil {
		return nil, errors.New("design service: designs repository is required")
	}
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	idGen := deps.IDGenerator
	if idGen == nil {
		idGen = func() string { return ulid.Make().String() }
	}
	return &designService{
		designs:  deps.Designs,
		clock:    func() time.Time { return clock().UTC() },
		newID:    idGen,
		sanitize: bluemonday.StrictPolicy(),
	}, nil
}

// CreateDesign stores a new draft design for the owner.
func (s *designService) CreateDesign(ctx context.Context, cmd CreateDesignCommand) (domain.CustomDesign, error) {
	ownerID := strings.TrimSpace(cmd.OwnerID)
	if ownerID == "" {
		return domain.CustomDesign{}, fmt.Errorf("%w: owner id is required", ErrDesignInvalidInput)
	}
	label, err := s.cleanLabel(cmd.Label)
	if err != nil {
		return domain.CustomDesign{}, err
	}
	notes, err := s.cleanNotes(cmd.Notes)
	if err != nil {
		return domain.CustomDesign{}, err
	}
	if err := validateMeasurements(cmd.Specifications); err != nil {
		return domain.CustomDesign{}, fmt.Errorf("%w: specifications: %v", ErrDesignInvalidInput, err)
	}

	now := s.clock()
	design := domain.CustomDesign{
		ID:                   designIDPrefix + strings.ToLower(strings.TrimSpace(s.newID())),
		OwnerID:              ownerID,
		Label:                label,
		Notes:                notes,
		Category:             strings.ToLower(strings.TrimSpace(cmd.Category)),
		FabricID:             strings.TrimSpace(cmd.FabricID),
		DesignSpecifications: cmd.Specifications.Clone(),
		Status:               domain.DesignStatusDraft,
		CreatedAt:            now,
		UpdatedAt:            now,
	}
	if err := s.designs.Insert(ctx, design); err != nil {
		return domain.CustomDesign{}, s.mapRepositoryError(err)
	}
	return design, nil
}

// UpdateDesign applies a partial update to a draft design. Submitted and
// archived designs are frozen.
func (s *designService) UpdateDesign(ctx context.Context, cmd UpdateDesignCommand) (domain.CustomDesign, error) {
	design, err := s.loadOwned(ctx, cmd.OwnerID, cmd.DesignID)
	if err != nil {
		return domain.CustomDesign{}, err
	}
	if design.Status != domain.DesignStatusDraft {
		return domain.CustomDesign{}, fmt.Errorf("%w: only draft designs can be edited", ErrDesignInvalidState)
	}

	if cmd.Label != nil {
		label, err := s.cleanLabel(*cmd.Label)
		if err != nil {
			return domain.CustomDesign{}, err
		}
		design.Label = label
	}
	if cmd.Notes != nil {
		notes, err := s.cleanNotes(*cmd.Notes)
		if err != nil {
			return domain.CustomDesign{}, err
		}
		design.Notes = notes
	}
	if cmd.FabricID != nil {
		design.FabricID = strings.TrimSpace(*cmd.FabricID)
	}
	if cmd.Specifications != nil {
		if err := validateMeasurements(cmd.Specifications); err != nil {
			return domain.CustomDesign{}, fmt.Errorf("%w: specifications: %v", ErrDesignInvalidInput, err)
		}
		design.DesignSpecifications = cmd.Specifications.Clone()
	}
	design.UpdatedAt = s.clock()

	if err := s.designs.Update(ctx, design); err != nil {
		return domain.CustomDesign{}, s.mapRepositoryError(err)
	}
	return design, nil
}

// GetDesign loads a single design, enforcing ownership.
func (s *designService) GetDesign(ctx context.Context, ownerID, designID string) (domain.CustomDesign, error) {
	return s.loadOwned(ctx, ownerID, designID)
}

// ListDesigns returns the owner's designs, optionally filtered by status.
func (s *designService) ListDesigns(ctx context.Context, ownerID string, filter DesignListQuery) (domain.CursorPage[domain.CustomDesign], error) {
	ownerID = strings.TrimSpace(ownerID)
	if ownerID == "" {
		return domain.CursorPage[domain.CustomDesign]{}, fmt.Errorf("%w: owner id is required", ErrDesignInvalidInput)
	}
	if filter.Status != "" {
		switch filter.Status {
		case domain.DesignStatusDraft, domain.DesignStatusSubmitted, domain.DesignStatusArchived:
		default:
			return domain.CursorPage[domain.CustomDesign]{}, fmt.Errorf("%w: unknown status %q", ErrDesignInvalidInput, filter.Status)
		}
	}
	page, err := s.designs.ListByOwner(ctx, ownerID, repositories.DesignListFilter{
		Status: filter.Status,
		Pager:  normalizePagination(filter.Pagination),
	})
	if err != nil {
		return domain.CursorPage[domain.CustomDesign]{}, s.mapRepositoryError(err)
	}
	return page, nil
}

// SubmitDesign hands a draft design to the atelier. Submitted designs are frozen.
func (s *designService) SubmitDesign(ctx context.Context, ownerID, designID string) (domain.CustomDesign, error) {
	design, err := s.loadOwned(ctx, ownerID, designID)
	if err != nil {
		return domain.CustomDesign{}, err
	}
	if design.Status != domain.DesignStatusDraft {
		return domain.CustomDesign{}, fmt.Errorf("%w: only draft designs can be submitted", ErrDesignInvalidState)
	}
	if len(design.DesignSpecifications) == 0 {
		return domain.CustomDesign{}, fmt.Errorf("%w: design has no specifications", ErrDesignInvalidInput)
	}
	design.Status = domain.DesignStatusSubmitted
	design.UpdatedAt = s.clock()
	if err := s.designs.Update(ctx, design); err != nil {
		return domain.CustomDesign{}, s.mapRepositoryError(err)
	}
	return design, nil
}

// ArchiveDesign hides the design from the owner's active list. Archiving is
// allowed from any non-archived state.
func (s *designService) ArchiveDesign(ctx context.Context, ownerID, designID string) (domain.CustomDesign, error) {
	design, err := s.loadOwned(ctx, ownerID, designID)
	if err != nil {
		return domain.CustomDesign{}, err
	}
	if design.Status == domain.DesignStatusArchived {
		return domain.CustomDesign{}, fmt.Errorf("%w: design already archived", ErrDesignInvalidState)
	}
	design.Status = domain.DesignStatusArchived
	design.UpdatedAt = s.clock()
	if err := s.designs.Update(ctx, design); err != nil {
		return domain.CustomDesign{}, s.mapRepositoryError(err)
	}
	return design, nil
}

func (s *designService) loadOwned(ctx context.Context, ownerID, designID string) (domain.CustomDesign, error) {
	ownerID = strings.TrimSpace(ownerID)
	if ownerID == "" {
		return domain.CustomDesign{}, fmt.Errorf("%w: owner id is required", ErrDesignInvalidInput)
	}
	designID = strings.TrimSpace(designID)
	if designID == "" {
		return domain.CustomDesign{}, fmt.Errorf("%w: design id is required", ErrDesignInvalidInput)
	}
	design, err := s.designs.FindByID(ctx, designID)
	if err != nil {
		return domain.CustomDesign{}, s.mapRepositoryError(err)
	}
	if design.OwnerID != ownerID {
		return domain.CustomDesign{}, ErrDesignForbidden
	}
	return design, nil
}

func (s *designService) cleanLabel(raw string) (string, error) {
	label := strings.TrimSpace(s.sanitize.Sanitize(raw))
	if label == "" {
		return "", fmt.Errorf("%w: label is required", ErrDesignInvalidInput)
	}
	if len(label) > maxLabelLen {
		return "", fmt.Errorf("%w: label too long", ErrDesignInvalidInput)
	}
	return label, nil
}

func (s *designService) cleanNotes(raw string) (string, error) {
	notes := strings.TrimSpace(s.sanitize.Sanitize(raw))
	if len(notes) > maxNotesLen {
		return "", fmt.Errorf("%w: notes too long", ErrDesignInvalidInput)
	}
	return notes, nil
}

func (s *designService) mapRepositoryError(err error) error {
	if err == nil {
		return nil
	}
	var repoErr repositories.RepositoryError
	if errors.As(err, &repoErr) {
		switch {
		case repoErr.IsNotFound():
			return fmt.Errorf("%w: %v", ErrDesignNotFound, err)
		case repoErr.IsUnavailable():
			return fmt.Errorf("%w: %v", ErrDesignUnavailable, err)
		}
	}
	return err
}

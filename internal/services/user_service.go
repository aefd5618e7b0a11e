package services

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"golang.org/x/text/language"

	domain "github.com/stylefit/api/internal/domain"
	"github.com/stylefit/api/internal/repositories"
)

var (
	// ErrUserInvalidInput indicates the caller provided invalid arguments.
	ErrUserInvalidInput = errors.New("user: invalid input")
	// ErrUserNotFound indicates the profile does not exist.
	ErrUserNotFound = errors.New("user: not found")
	// ErrUserUnavailable signals that persistence dependencies are unavailable.
	ErrUserUnavailable = errors.New("user: repository unavailable")
)

const (
	maxDisplayNameLen = 100
	// measurementMaxCm bounds stored body measurements. Values above this are
	// almost certainly unit mistakes (millimetres or inches entered as cm).
	measurementMaxCm = 300.0
)

// UserServiceDeps wires dependencies for the user service implementation.
type UserServiceDeps struct {
	Users repositories.UserRepository
	Clock func() time.Time
}

type userService struct {
	users repositories.UserRepository
	clock func() time.Time
}

// NewUserService constructs a UserService backed by the user repository.
func NewUserService(deps UserServiceDeps) (UserService, error) {
	if deps.Users == nil {
		return nil, errors.New("user service: users repository is required")
	}
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	return &userService{
		users: deps.Users,
		clock: func() time.Time { return clock().UTC() },
	}, nil
}

// GetProfile loads the user's profile.
func (s *userService) GetProfile(ctx context.Context, userID string) (domain.UserProfile, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return domain.UserProfile{}, fmt.Errorf("%w: user id is required", ErrUserInvalidInput)
	}
	profile, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return domain.UserProfile{}, s.mapRepositoryError(err)
	}
	return profile, nil
}

// UpdateProfile applies a partial update; nil fields are left unchanged. A
// missing profile is created on first write so sign-in and profile setup stay
// decoupled.
func (s *userService) UpdateProfile(ctx context.Context, cmd UpdateProfileCommand) (domain.UserProfile, error) {
	userID := strings.TrimSpace(cmd.UserID)
	if userID == "" {
		return domain.UserProfile{}, fmt.Errorf("%w: user id is required", ErrUserInvalidInput)
	}

	profile, err := s.users.FindByID(ctx, userID)
	if err != nil {
		var repoErr repositories.RepositoryError
		if !errors.As(err, &repoErr) || !repoErr.IsNotFound() {
			return domain.UserProfile{}, s.mapRepositoryError(err)
		}
		profile = domain.UserProfile{ID: userID, CreatedAt: s.clock()}
	}

	if cmd.DisplayName != nil {
		name := strings.TrimSpace(*cmd.DisplayName)
		if name == "" || len(name) > maxDisplayNameLen {
			return domain.UserProfile{}, fmt.Errorf("%w: invalid display name", ErrUserInvalidInput)
		}
		profile.DisplayName = name
	}
	if cmd.Email != nil {
		address := strings.ToLower(strings.TrimSpace(*cmd.Email))
		if address != "" {
			if _, err := mail.ParseAddress(address); err != nil {
				return domain.UserProfile{}, fmt.Errorf("%w: invalid email address", ErrUserInvalidInput)
			}
		}
		profile.Email = address
	}
	if cmd.Locale != nil {
		locale := strings.TrimSpace(*cmd.Locale)
		if locale != "" {
			tag, err := language.Parse(locale)
			if err != nil {
				return domain.UserProfile{}, fmt.Errorf("%w: invalid locale tag", ErrUserInvalidInput)
			}
			locale = tag.String()
		}
		profile.Locale = locale
	}
	profile.UpdatedAt = s.clock()

	stored, err := s.users.Upsert(ctx, profile)
	if err != nil {
		return domain.UserProfile{}, s.mapRepositoryError(err)
	}
	return stored, nil
}

// UpdateMeasurements replaces the user's stored body measurements. The new set
// must name only tracked regions with plausible positive values.
func (s *userService) UpdateMeasurements(ctx context.Context, cmd UpdateMeasurementsCommand) (domain.UserProfile, error) {
	userID := strings.TrimSpace(cmd.UserID)
	if userID == "" {
		return domain.UserProfile{}, fmt.Errorf("%w: user id is required", ErrUserInvalidInput)
	}
	if len(cmd.Measurements) == 0 {
		return domain.UserProfile{}, fmt.Errorf("%w: at least one measurement is required", ErrUserInvalidInput)
	}

	known := make(map[domain.Region]struct{}, 5)
	for _, region := range domain.TrackedRegions() {
		known[region] = struct{}{}
	}
	for region, value := range cmd.Measurements {
		if _, ok := known[region]; !ok {
			return domain.UserProfile{}, fmt.Errorf("%w: unknown region %q", ErrUserInvalidInput, region)
		}
		if value <= 0 {
			return domain.UserProfile{}, fmt.Errorf("%w: region %q must be positive", ErrUserInvalidInput, region)
		}
		if value > measurementMaxCm {
			return domain.UserProfile{}, fmt.Errorf("%w: region %q exceeds %0.f cm", ErrUserInvalidInput, region, measurementMaxCm)
		}
	}

	profile, err := s.users.UpdateMeasurements(ctx, userID, cmd.Measurements.Clone())
	if err != nil {
		return domain.UserProfile{}, s.mapRepositoryError(err)
	}
	return profile, nil
}

func (s *userService) mapRepositoryError(err error) error {
	if err == nil {
		return nil
	}
	var repoErr repositories.RepositoryError
	if errors.As(err, &repoErr) {
		switch {
		case repoErr.IsNotFound():
			return fmt.Errorf("%w: %v", ErrUserNotFound, err)
		case repoErr.IsUnavailable():
			return fmt.Errorf("%w: %v", ErrUserUnavailable, err)
		}
	}
	return err
}

package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	domain "github.com/stylefit/api/internal/domain"
	"github.com/stylefit/api/internal/platform/auth"
	"github.com/stylefit/api/internal/platform/httpx"
	"github.com/stylefit/api/internal/services"
)

const maxProfileBodySize = 32 * 1024

// MeHandlers exposes the authenticated profile and measurement endpoints.
type MeHandlers struct {
	authn *auth.Authenticator
	users services.UserService
}

// NewMeHandlers constructs handlers backed by the user service.
func NewMeHandlers(authn *auth.Authenticator, users services.UserService) *MeHandlers {
	return &MeHandlers{
		authn: authn,
		users: users,
	}
}

// Routes wires the /me endpoints onto the provided router.
func (h *MeHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	if h.authn != nil {
		r.Use(h.authn.RequireFirebaseAuth())
	}
	r.Get("/", h.getProfile)
	r.Put("/", h.updateProfile)
	r.Put("/measurements", h.updateMeasurements)
}

func (h *MeHandlers) getProfile(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	identity, ok := requireIdentity(ctx, w, h.users != nil, "profile")
	if !ok {
		return
	}

	profile, err := h.users.GetProfile(ctx, identity.UID)
	if err != nil {
		if errors.Is(err, services.ErrUserNotFound) {
			// A fresh sign-in has no stored profile yet; answer with an
			// identity-derived skeleton instead of a 404.
			profile = freshProfile(ctx, identity)
		} else {
			writeUserError(ctx, w, err)
			return
		}
	}
	writeJSONResponse(w, http.StatusOK, buildProfilePayload(profile))
}

// freshProfile builds the skeleton profile for a user who has never
// saved one, prefilled from the Firebase user record when available.
func freshProfile(ctx context.Context, identity *auth.Identity) domain.UserProfile {
	profile := domain.UserProfile{
		ID:     identity.UID,
		Email:  identity.Email,
		Locale: identity.Locale,
	}
	record, err := identity.User(ctx)
	if err != nil || record == nil {
		return profile
	}
	if record.UserInfo != nil {
		if record.UserInfo.DisplayName != "" {
			profile.DisplayName = record.UserInfo.DisplayName
		}
		if profile.Email == "" && record.UserInfo.Email != "" {
			profile.Email = record.UserInfo.Email
		}
	}
	return profile
}

type updateProfileRequest struct {
	DisplayName *string `json:"displayName"`
	Email       *string `json:"email"`
	Locale      *string `json:"locale"`
}

func (h *MeHandlers) updateProfile(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	identity, ok := requireIdentity(ctx, w, h.users != nil, "profile")
	if !ok {
		return
	}

	var req updateProfileRequest
	if err := decodeJSONBody(r, maxProfileBodySize, &req); err != nil {
		writeBodyError(ctx, w, err)
		return
	}
	if req.DisplayName == nil && req.Email == nil && req.Locale == nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "no editable fields provided", http.StatusBadRequest))
		return
	}

	profile, err := h.users.UpdateProfile(ctx, services.UpdateProfileCommand{
		UserID:      identity.UID,
		DisplayName: req.DisplayName,
		Email:       req.Email,
		Locale:      req.Locale,
	})
	if err != nil {
		writeUserError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, buildProfilePayload(profile))
}

type updateMeasurementsRequest struct {
	Measurements map[string]float64 `json:"measurements"`
}

func (h *MeHandlers) updateMeasurements(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	identity, ok := requireIdentity(ctx, w, h.users != nil, "profile")
	if !ok {
		return
	}

	var req updateMeasurementsRequest
	if err := decodeJSONBody(r, maxProfileBodySize, &req); err != nil {
		writeBodyError(ctx, w, err)
		return
	}

	profile, err := h.users.UpdateMeasurements(ctx, services.UpdateMeasurementsCommand{
		UserID:       identity.UID,
		Measurements: measurementsFromPayload(req.Measurements),
	})
	if err != nil {
		writeUserError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, buildProfilePayload(profile))
}

type profilePayload struct {
	ID           string             `json:"id"`
	DisplayName  string             `json:"displayName,omitempty"`
	Email        string             `json:"email,omitempty"`
	Locale       string             `json:"locale,omitempty"`
	Measurements map[string]float64 `json:"measurements,omitempty"`
	CreatedAt    string             `json:"createdAt,omitempty"`
	UpdatedAt    string             `json:"updatedAt,omitempty"`
}

func buildProfilePayload(profile domain.UserProfile) profilePayload {
	return profilePayload{
		ID:           profile.ID,
		DisplayName:  profile.DisplayName,
		Email:        profile.Email,
		Locale:       profile.Locale,
		Measurements: measurementsToPayload(profile.Measurements),
		CreatedAt:    formatTimestamp(profile.CreatedAt),
		UpdatedAt:    formatTimestamp(profile.UpdatedAt),
	}
}

func writeUserError(ctx context.Context, w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, services.ErrUserInvalidInput):
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
	case errors.Is(err, services.ErrUserNotFound):
		httpx.WriteError(ctx, w, httpx.NewError("not_found", "profile not found", http.StatusNotFound))
	case errors.Is(err, services.ErrUserUnavailable):
		httpx.WriteError(ctx, w, httpx.NewError("service_unavailable", "profile storage unavailable", http.StatusServiceUnavailable))
	default:
		httpx.WriteError(ctx, w, httpx.NewError("internal_error", "unexpected error", http.StatusInternalServerError))
	}
}

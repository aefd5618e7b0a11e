package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	firebaseauth "firebase.google.com/go/v4/auth"
	"github.com/go-chi/chi/v5"

	domain "github.com/stylefit/api/internal/domain"
	"github.com/stylefit/api/internal/platform/auth"
	"github.com/stylefit/api/internal/services"
)

type fakeUserService struct {
	lastProfileCmd     services.UpdateProfileCommand
	lastMeasurementCmd services.UpdateMeasurementsCommand
	profile            domain.UserProfile
	err                error
}

func (f *fakeUserService) GetProfile(_ context.Context, _ string) (domain.UserProfile, error) {
	return f.profile, f.err
}

func (f *fakeUserService) UpdateProfile(_ context.Context, cmd services.UpdateProfileCommand) (domain.UserProfile, error) {
	f.lastProfileCmd = cmd
	return f.profile, f.err
}

func (f *fakeUserService) UpdateMeasurements(_ context.Context, cmd services.UpdateMeasurementsCommand) (domain.UserProfile, error) {
	f.lastMeasurementCmd = cmd
	return f.profile, f.err
}

func newMeTestRouter(service services.UserService) chi.Router {
	h := NewMeHandlers(nil, service)
	r := chi.NewRouter()
	r.Route("/me", h.Routes)
	return r
}

func TestMeHandlersGetProfile(t *testing.T) {
	service := &fakeUserService{
		profile: domain.UserProfile{
			ID:          "user-1",
			DisplayName: "Mika",
			Email:       "mika@example.com",
			Measurements: domain.MeasurementSet{
				domain.RegionBust:  88,
				domain.RegionWaist: 70,
			},
		},
	}
	router := newMeTestRouter(service)

	req := authedRequest(http.MethodGet, "/me/", "")
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rr.Code, rr.Body.String())
	}
	var payload profilePayload
	if err := json.Unmarshal(rr.Body.Bytes(), &payload); err != nil {
		t.Fatalf("parse response: %v", err)
	}
	if payload.ID != "user-1" || payload.DisplayName != "Mika" {
		t.Errorf("payload = %+v", payload)
	}
	if payload.Measurements["bust"] != 88 {
		t.Errorf("measurements = %v", payload.Measurements)
	}
}

func TestMeHandlersGetProfileFreshSignIn(t *testing.T) {
	// No stored profile yet: the handler answers with an identity-derived
	// skeleton rather than a 404.
	service := &fakeUserService{err: services.ErrUserNotFound}
	router := newMeTestRouter(service)

	req := authedRequest(http.MethodGet, "/me/", "")
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rr.Code, rr.Body.String())
	}
	var payload profilePayload
	if err := json.Unmarshal(rr.Body.Bytes(), &payload); err != nil {
		t.Fatalf("parse response: %v", err)
	}
	if payload.ID != "user-1" {
		t.Errorf("payload = %+v", payload)
	}
}

type staticTokenVerifier struct {
	token *firebaseauth.Token
}

func (v *staticTokenVerifier) VerifyIDToken(_ context.Context, _ string) (*firebaseauth.Token, error) {
	return v.token, nil
}

type staticUserGetter struct {
	record *firebaseauth.UserRecord
}

func (g *staticUserGetter) GetUser(_ context.Context, _ string) (*firebaseauth.UserRecord, error) {
	return g.record, nil
}

func TestMeHandlersGetProfileFreshSignInPrefillsFromFirebase(t *testing.T) {
	// Full auth chain: the middleware wires the user loader so the fresh
	// sign-in skeleton can carry the Firebase display name and email.
	service := &fakeUserService{err: services.ErrUserNotFound}
	authn := auth.NewAuthenticator(
		&staticTokenVerifier{token: &firebaseauth.Token{UID: "user-1"}},
		auth.WithUserGetter(&staticUserGetter{record: &firebaseauth.UserRecord{
			UserInfo: &firebaseauth.UserInfo{
				UID:         "user-1",
				DisplayName: "Mika",
				Email:       "mika@example.com",
			},
		}}),
	)
	h := NewMeHandlers(authn, service)
	router := chi.NewRouter()
	router.Route("/me", h.Routes)

	req := httptest.NewRequest(http.MethodGet, "/me/", nil)
	req.Header.Set("Authorization", "Bearer tok123")
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rr.Code, rr.Body.String())
	}
	var payload profilePayload
	if err := json.Unmarshal(rr.Body.Bytes(), &payload); err != nil {
		t.Fatalf("parse response: %v", err)
	}
	if payload.ID != "user-1" || payload.DisplayName != "Mika" || payload.Email != "mika@example.com" {
		t.Errorf("payload = %+v", payload)
	}
}

func TestMeHandlersUpdateProfile(t *testing.T) {
	service := &fakeUserService{profile: domain.UserProfile{ID: "user-1", DisplayName: "Mika"}}
	router := newMeTestRouter(service)

	req := authedRequest(http.MethodPut, "/me/", `{"displayName":"Mika","locale":"ja-JP"}`)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rr.Code, rr.Body.String())
	}
	cmd := service.lastProfileCmd
	if cmd.UserID != "user-1" {
		t.Errorf("user id = %q", cmd.UserID)
	}
	if cmd.DisplayName == nil || *cmd.DisplayName != "Mika" {
		t.Errorf("display name = %v", cmd.DisplayName)
	}
	if cmd.Locale == nil || *cmd.Locale != "ja-JP" {
		t.Errorf("locale = %v", cmd.Locale)
	}
	if cmd.Email != nil {
		t.Errorf("email should stay unset, got %v", *cmd.Email)
	}
}

func TestMeHandlersUpdateProfileRejectsEmptyPayload(t *testing.T) {
	router := newMeTestRouter(&fakeUserService{})

	req := authedRequest(http.MethodPut, "/me/", `{}`)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400: %s", rr.Code, rr.Body.String())
	}
}

func TestMeHandlersUpdateMeasurements(t *testing.T) {
	service := &fakeUserService{profile: domain.UserProfile{ID: "user-1"}}
	router := newMeTestRouter(service)

	req := authedRequest(http.MethodPut, "/me/measurements", `{"measurements":{"bust":90,"waist":72,"hips":96}}`)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rr.Code, rr.Body.String())
	}
	set := service.lastMeasurementCmd.Measurements
	if got, ok := set.Value(domain.RegionWaist); !ok || got != 72 {
		t.Errorf("measurements = %+v", set)
	}
}

func TestMeHandlersRequireIdentity(t *testing.T) {
	router := newMeTestRouter(&fakeUserService{})

	req := httptest.NewRequest(http.MethodGet, "/me/", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rr.Code)
	}
}

func TestMeHandlersValidationErrorMapsTo400(t *testing.T) {
	service := &fakeUserService{err: services.ErrUserInvalidInput}
	router := newMeTestRouter(service)

	req := authedRequest(http.MethodPut, "/me/", `{"email":"not-an-email"}`)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rr.Code)
	}
}

package auth

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"reflect"
	"sort"
	"testing"

	firebaseauth "firebase.google.com/go/v4/auth"
)

type fakeVerifier struct {
	token *firebaseauth.Token
	err   error
	seen  string
}

func (f *fakeVerifier) VerifyIDToken(_ context.Context, idToken string) (*firebaseauth.Token, error) {
	f.seen = idToken
	return f.token, f.err
}

type fakeUserGetter struct {
	record *firebaseauth.UserRecord
	err    error
	calls  int
}

func (f *fakeUserGetter) GetUser(_ context.Context, _ string) (*firebaseauth.UserRecord, error) {
	f.calls++
	return f.record, f.err
}

func captureIdentity(dst **Identity) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		identity, _ := IdentityFromContext(r.Context())
		*dst = identity
		w.WriteHeader(http.StatusNoContent)
	})
}

func TestRequireFirebaseAuthRejectsMissingOrMalformedHeader(t *testing.T) {
	authn := NewAuthenticator(&fakeVerifier{})
	handler := authn.RequireFirebaseAuth()(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		t.Fatal("handler must not run without a bearer token")
	}))

	for _, header := range []string{"", "Bearer", "Bearer   ", "Basic dXNlcg==", "tok123"} {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)

		if rr.Code != http.StatusUnauthorized {
			t.Errorf("header %q: status = %d, want 401", header, rr.Code)
		}
	}
}

func TestRequireFirebaseAuthRejectsFailedVerification(t *testing.T) {
	authn := NewAuthenticator(&fakeVerifier{err: errors.New("bad signature")})
	handler := authn.RequireFirebaseAuth()(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		t.Fatal("handler must not run for an unverified token")
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer tok123")
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rr.Code)
	}
}

func TestRequireFirebaseAuthBuildsIdentityFromClaims(t *testing.T) {
	verifier := &fakeVerifier{token: &firebaseauth.Token{
		UID: "uid-1",
		Claims: map[string]interface{}{
			"email":  "rin@example.com",
			"locale": "ja-JP",
			"role":   "staff",
		},
	}}
	authn := NewAuthenticator(verifier)

	var identity *Identity
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer tok123")
	rr := httptest.NewRecorder()
	authn.RequireFirebaseAuth()(captureIdentity(&identity)).ServeHTTP(rr, req)

	if rr.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want 204", rr.Code)
	}
	if verifier.seen != "tok123" {
		t.Errorf("verified token = %q", verifier.seen)
	}
	if identity == nil || identity.UID != "uid-1" || identity.Email != "rin@example.com" || identity.Locale != "ja-JP" {
		t.Fatalf("identity = %+v", identity)
	}
	if !identity.HasRole(RoleStaff) {
		t.Errorf("roles = %v, want staff", identity.Roles)
	}
}

func TestRequireFirebaseAuthDefaultsToUserRole(t *testing.T) {
	authn := NewAuthenticator(&fakeVerifier{token: &firebaseauth.Token{UID: "uid-1"}})

	var identity *Identity
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer tok123")
	rr := httptest.NewRecorder()
	authn.RequireFirebaseAuth()(captureIdentity(&identity)).ServeHTTP(rr, req)

	if rr.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want 204", rr.Code)
	}
	if identity == nil || !identity.HasRole(RoleUser) {
		t.Fatalf("identity = %+v, want default user role", identity)
	}
}

func TestRequireFirebaseAuthEnforcesRoles(t *testing.T) {
	authn := NewAuthenticator(&fakeVerifier{token: &firebaseauth.Token{
		UID:    "uid-1",
		Claims: map[string]interface{}{"role": "user"},
	}})
	handler := authn.RequireFirebaseAuth(RoleStaff, RoleAdmin)(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		t.Fatal("handler must not run without a matching role")
	}))

	req := httptest.NewRequest(http.MethodGet, "/admin", nil)
	req.Header.Set("Authorization", "Bearer tok123")
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rr.Code)
	}
}

func TestRequireFirebaseAuthWiresUserLoader(t *testing.T) {
	users := &fakeUserGetter{record: &firebaseauth.UserRecord{
		UserInfo: &firebaseauth.UserInfo{UID: "uid-1", DisplayName: "Rin"},
	}}
	authn := NewAuthenticator(
		&fakeVerifier{token: &firebaseauth.Token{UID: "uid-1"}},
		WithUserGetter(users),
	)

	var identity *Identity
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer tok123")
	rr := httptest.NewRecorder()
	authn.RequireFirebaseAuth()(captureIdentity(&identity)).ServeHTTP(rr, req)

	if identity == nil {
		t.Fatal("identity missing")
	}
	record, err := identity.User(context.Background())
	if err != nil || record == nil || record.UserInfo.DisplayName != "Rin" {
		t.Fatalf("record = %+v, err = %v", record, err)
	}
	// Second lookup is served from the identity, not the getter.
	if _, err := identity.User(context.Background()); err != nil {
		t.Fatalf("cached lookup: %v", err)
	}
	if users.calls != 1 {
		t.Errorf("getter calls = %d, want 1", users.calls)
	}
}

func TestIdentityUserWithoutLoader(t *testing.T) {
	identity := &Identity{UID: "uid-1"}
	if _, err := identity.User(context.Background()); !errors.Is(err, ErrNoUserLoader) {
		t.Fatalf("err = %v, want ErrNoUserLoader", err)
	}
}

func TestRoleSetShapes(t *testing.T) {
	cases := []struct {
		name string
		raw  interface{}
		want []string
	}{
		{name: "string", raw: "Admin", want: []string{"admin"}},
		{name: "string slice", raw: []string{"staff", "staff", "admin"}, want: []string{"admin", "staff"}},
		{name: "interface slice", raw: []interface{}{"user", 7, "staff"}, want: []string{"staff", "user"}},
		{name: "grant map", raw: map[string]interface{}{"admin": true, "staff": false}, want: []string{"admin"}},
		{name: "unsupported", raw: 42, want: nil},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := roleSet(tc.raw)
			sort.Strings(got)
			if !reflect.DeepEqual(got, tc.want) {
				t.Errorf("roleSet(%v) = %v, want %v", tc.raw, got, tc.want)
			}
		})
	}
}

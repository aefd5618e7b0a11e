package auth

import (
	"context"
	"net/http"
	"strings"

	firebaseauth "firebase.google.com/go/v4/auth"

	"github.com/stylefit/api/internal/platform/httpx"
)

// Claim names read from verified ID tokens. Roles are assigned through the
// "role" custom claim; email and locale come from the standard claims.
const (
	roleClaim   = "role"
	emailClaim  = "email"
	localeClaim = "locale"
)

// TokenVerifier verifies Firebase ID tokens.
type TokenVerifier interface {
	VerifyIDToken(ctx context.Context, idToken string) (*firebaseauth.Token, error)
}

// UserGetter loads Firebase user records.
type UserGetter interface {
	GetUser(ctx context.Context, uid string) (*firebaseauth.UserRecord, error)
}

// Authenticator turns Firebase token verification into chi middleware.
type Authenticator struct {
	verifier TokenVerifier
	users    UserGetter
}

// Option customises the Authenticator.
type Option func(*Authenticator)

// WithUserGetter lets authenticated identities lazily load their full
// Firebase user record via Identity.User.
func WithUserGetter(users UserGetter) Option {
	return func(a *Authenticator) {
		a.users = users
	}
}

// NewAuthenticator builds an Authenticator around the verifier.
func NewAuthenticator(verifier TokenVerifier, opts ...Option) *Authenticator {
	a := &Authenticator{verifier: verifier}
	for _, opt := range opts {
		if opt != nil {
			opt(a)
		}
	}
	return a
}

// RequireFirebaseAuth verifies the bearer token and stores the resulting
// identity on the request context. When roles are given, the identity must
// carry at least one of them.
func (a *Authenticator) RequireFirebaseAuth(roles ...string) func(http.Handler) http.Handler {
	required := make([]string, 0, len(roles))
	for _, role := range roles {
		role = strings.ToLower(strings.TrimSpace(role))
		if role != "" {
			required = append(required, role)
		}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			rawToken, ok := bearerToken(r.Header.Get("Authorization"))
			if !ok {
				httpx.WriteError(ctx, w, httpx.NewError("unauthenticated", "missing or malformed authorization header", http.StatusUnauthorized))
				return
			}
			if a == nil || a.verifier == nil {
				httpx.WriteError(ctx, w, httpx.NewError("unauthenticated", "authentication is not configured", http.StatusUnauthorized))
				return
			}

			token, err := a.verifier.VerifyIDToken(ctx, rawToken)
			if err != nil {
				httpx.WriteError(ctx, w, verificationError(err))
				return
			}

			identity := &Identity{
				UID:    token.UID,
				Email:  stringClaim(token.Claims, emailClaim),
				Locale: stringClaim(token.Claims, localeClaim),
				Roles:  roleSet(token.Claims[roleClaim]),
			}
			if len(identity.Roles) == 0 {
				identity.Roles = []string{RoleUser}
			}
			if a.users != nil {
				users := a.users
				identity.loader = func(ctx context.Context, uid string) (*firebaseauth.UserRecord, error) {
					if uid == "" {
						uid = identity.UID
					}
					return users.GetUser(ctx, uid)
				}
			}

			if len(required) > 0 && !identity.HasAnyRole(required...) {
				httpx.WriteError(ctx, w, httpx.NewError("insufficient_role", "identity lacks a required role", http.StatusUnauthorized))
				return
			}

			next.ServeHTTP(w, r.WithContext(WithIdentity(ctx, identity)))
		})
	}
}

func verificationError(err error) httpx.Error {
	switch {
	case firebaseauth.IsIDTokenExpired(err):
		return httpx.NewError("token_expired", "id token expired", http.StatusUnauthorized)
	case firebaseauth.IsIDTokenInvalid(err):
		return httpx.NewError("invalid_token", "id token invalid", http.StatusUnauthorized)
	default:
		return httpx.NewError("invalid_token", "id token verification failed", http.StatusUnauthorized)
	}
}

func bearerToken(header string) (string, bool) {
	scheme, token, found := strings.Cut(strings.TrimSpace(header), " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

func stringClaim(claims map[string]interface{}, name string) string {
	value, _ := claims[name].(string)
	return strings.TrimSpace(value)
}

// roleSet accepts the shapes the role claim has appeared in: a single
// string, a list of strings, or a map of role name to boolean grant.
func roleSet(raw interface{}) []string {
	appendRole := func(roles []string, value string) []string {
		value = strings.ToLower(strings.TrimSpace(value))
		if value == "" {
			return roles
		}
		for _, have := range roles {
			if have == value {
				return roles
			}
		}
		return append(roles, value)
	}

	switch v := raw.(type) {
	case string:
		return appendRole(nil, v)
	case []string:
		var roles []string
		for _, item := range v {
			roles = appendRole(roles, item)
		}
		return roles
	case []interface{}:
		var roles []string
		for _, item := range v {
			if s, ok := item.(string); ok {
				roles = appendRole(roles, s)
			}
		}
		return roles
	case map[string]interface{}:
		var roles []string
		for name, granted := range v {
			if ok, _ := granted.(bool); ok {
				roles = appendRole(roles, name)
			}
		}
		return roles
	default:
		return nil
	}
}

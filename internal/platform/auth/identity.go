package auth

import (
	"context"
	"errors"
	"strings"
	"sync"

	firebaseauth "firebase.google.com/go/v4/auth"
)

// Roles recognised by the API. Tokens without a role claim are treated
// as plain users.
const (
	RoleUser  = "user"
	RoleStaff = "staff"
	RoleAdmin = "admin"
)

// ErrNoUserLoader is returned by Identity.User when the authenticator was
// built without a UserGetter.
var ErrNoUserLoader = errors.New("auth: no user loader configured")

// UserLoader fetches the Firebase user record for a UID.
type UserLoader func(ctx context.Context, uid string) (*firebaseauth.UserRecord, error)

// Identity is the verified principal for the current request.
type Identity struct {
	UID    string
	Email  string
	Roles  []string
	Locale string

	loader     UserLoader
	loadOnce   sync.Once
	loadedUser *firebaseauth.UserRecord
	loadErr    error
}

// HasRole reports whether the identity carries the given role.
// Comparison is case-insensitive.
func (i *Identity) HasRole(role string) bool {
	if i == nil {
		return false
	}
	role = strings.TrimSpace(role)
	if role == "" {
		return false
	}
	for _, have := range i.Roles {
		if strings.EqualFold(have, role) {
			return true
		}
	}
	return false
}

// HasAnyRole reports whether the identity carries at least one of the roles.
func (i *Identity) HasAnyRole(roles ...string) bool {
	for _, role := range roles {
		if i.HasRole(role) {
			return true
		}
	}
	return false
}

// User loads the full Firebase user record for this identity. The record
// is fetched once; later calls return the cached result.
func (i *Identity) User(ctx context.Context) (*firebaseauth.UserRecord, error) {
	if i == nil || i.loader == nil {
		return nil, ErrNoUserLoader
	}
	i.loadOnce.Do(func() {
		i.loadedUser, i.loadErr = i.loader(ctx, i.UID)
	})
	return i.loadedUser, i.loadErr
}

type identityKey struct{}

// WithIdentity stores the identity on the context for downstream handlers.
func WithIdentity(ctx context.Context, identity *Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, identity)
}

// IdentityFromContext returns the identity stored by the auth middleware.
func IdentityFromContext(ctx context.Context) (*Identity, bool) {
	identity, ok := ctx.Value(identityKey{}).(*Identity)
	if !ok || identity == nil {
		return nil, false
	}
	return identity, true
}

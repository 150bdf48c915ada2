// Package auth carries the authenticated principal through request
// contexts. Authentication itself happens upstream; this package only
// consumes the opaque handle it produces.
package auth

import (
	"context"

	"github.com/google/uuid"
)

// RoleAdmin may read any upload regardless of ownership.
const RoleAdmin = "admin"

// Principal is the authenticated identity attached to a request.
type Principal struct {
	ID   uuid.UUID
	Role string
}

type contextKey string

const principalKey contextKey = "principal"

// ContextWithPrincipal returns a new context that carries the
// authenticated principal.
func ContextWithPrincipal(ctx context.Context, p Principal) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, principalKey, p)
}

// PrincipalFromContext retrieves the authenticated principal from the
// context, if any.
func PrincipalFromContext(ctx context.Context) (Principal, bool) {
	if ctx == nil {
		return Principal{}, false
	}
	value := ctx.Value(principalKey)
	if value == nil {
		return Principal{}, false
	}
	p, ok := value.(Principal)
	if !ok || p.ID == uuid.Nil {
		return Principal{}, false
	}
	return p, true
}

// CanAccessUpload reports whether the principal may read an upload
// owned by ownerID: the owner can, and so can admins.
func (p Principal) CanAccessUpload(ownerID uuid.UUID) bool {
	return p.ID == ownerID || p.Role == RoleAdmin
}

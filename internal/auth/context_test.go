package auth

import (
	"context"
	"testing"

	"github.com/google/uuid"
)

func TestPrincipalContextRoundTrip(t *testing.T) {
	p := Principal{ID: uuid.New(), Role: "viewer"}

	ctx := ContextWithPrincipal(context.Background(), p)
	got, ok := PrincipalFromContext(ctx)
	if !ok {
		t.Fatalf("expected principal in context")
	}
	if got != p {
		t.Fatalf("principal mismatch: %+v vs %+v", got, p)
	}
}

func TestPrincipalFromEmptyContext(t *testing.T) {
	if _, ok := PrincipalFromContext(context.Background()); ok {
		t.Fatalf("expected no principal in empty context")
	}
}

func TestCanAccessUpload(t *testing.T) {
	ownerID := uuid.New()

	owner := Principal{ID: ownerID, Role: "viewer"}
	if !owner.CanAccessUpload(ownerID) {
		t.Fatalf("owner must access own upload")
	}

	admin := Principal{ID: uuid.New(), Role: RoleAdmin}
	if !admin.CanAccessUpload(ownerID) {
		t.Fatalf("admin must access any upload")
	}

	stranger := Principal{ID: uuid.New(), Role: "viewer"}
	if stranger.CanAccessUpload(ownerID) {
		t.Fatalf("stranger must not access another user's upload")
	}
}

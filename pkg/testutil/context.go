package testutil

import (
	"net/http"

	"processguard/pkg/requestcontext"
)

// WithActor attaches an authenticated actor and roles to the request, as the
// auth middleware would.
func WithActor(req *http.Request, actorID string, roles ...string) *http.Request {
	ctx := requestcontext.WithActorID(req.Context(), actorID)
	ctx = requestcontext.WithActorRoles(ctx, roles)
	return req.WithContext(ctx)
}

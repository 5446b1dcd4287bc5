package testutil

import (
	"net/http"

	id "anima/pkg/domain"
	"anima/pkg/requestcontext"
)

// WithAuth adds the user ID and role the auth middleware would set, for
// handlers and middleware tested without a token. An invalid user ID is
// silently ignored.
func WithAuth(req *http.Request, userID, role string) *http.Request {
	ctx := req.Context()
	if parsedUserID, err := id.ParseUserID(userID); err == nil {
		ctx = requestcontext.WithUserID(ctx, parsedUserID)
	}
	if role != "" {
		ctx = requestcontext.WithRole(ctx, role)
	}
	return req.WithContext(ctx)
}

// WithBearer sets the Authorization header used by the auth middleware.
func WithBearer(req *http.Request, token string) *http.Request {
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return req
}

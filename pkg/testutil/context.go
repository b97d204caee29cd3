package testutil

import (
	"net/http"
	"time"

	"unionhub/pkg/requestcontext"
)

// WithAdmin marks the request as coming from an authenticated admin, the way
// the auth middleware would.
func WithAdmin(req *http.Request, username string) *http.Request {
	return req.WithContext(requestcontext.WithAdminUsername(req.Context(), username))
}

// WithRequestTime pins the request-scoped clock.
func WithRequestTime(req *http.Request, now time.Time) *http.Request {
	return req.WithContext(requestcontext.WithTime(req.Context(), now))
}

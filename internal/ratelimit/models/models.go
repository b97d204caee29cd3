package models

import (
	"math"
	"time"
)

// EndpointClass groups public endpoints that share a request budget.
type EndpointClass string

const (
	// ClassCredential covers endpoints that check a secret: admin login and
	// member verification codes.
	ClassCredential EndpointClass = "credential"
	// ClassPublic covers the remaining member-token endpoints.
	ClassPublic EndpointClass = "public"
)

// Limit is a sliding-window budget.
type Limit struct {
	Requests int
	Window   time.Duration
}

// RateLimitResult is the outcome of one budget check.
type RateLimitResult struct {
	Allowed   bool
	Limit     int
	Remaining int
	ResetAt   time.Time
}

// RetryAfter is the whole number of seconds until the window frees a slot.
func (r *RateLimitResult) RetryAfter(now time.Time) int {
	if !r.ResetAt.After(now) {
		return 1
	}
	return int(math.Ceil(r.ResetAt.Sub(now).Seconds()))
}

// Key namespaces a client identifier by class.
func Key(class EndpointClass, identifier string) string {
	return "ratelimit:" + string(class) + ":" + identifier
}

// RateLimitExceededResponse is the body of a 429.
type RateLimitExceededResponse struct {
	Error      string `json:"error"`
	Message    string `json:"message"`
	RetryAfter int    `json:"retry_after"`
}

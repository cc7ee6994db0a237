// Package handler exposes the HTTP surface: thin adapters that translate
// requests into view sessions and service calls.
package handler

import (
	"net/http"
	"time"

	"shotzi/internal/transport/http/middleware"
)

// middlewareUserID extracts the authenticated user from the request context.
func middlewareUserID(r *http.Request) (int64, bool) {
	return middleware.GetUserIDFromContext(r.Context())
}

// timeNow is swappable in tests.
var timeNow = time.Now

package middleware

import (
	"net/http"

)

// Request bodies here are action edits and account credentials; anything
// past 1MB is not a legitimate payload.
const DefaultMaxBodySize = 1 << 20

// BodyLimit caps request body size before handlers decode JSON. A
// non-positive max falls back to DefaultMaxBodySize.
func BodyLimit(maxSize int64) func(http.Handler) http.Handler {
	if maxSize <= 0 {
		maxSize = DefaultMaxBodySize
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Body != nil && r.ContentLength > maxSize {
				writeJSON(w, http.StatusRequestEntityTooLarge, map[string]string{
					"error": "Request body too large",
				})
				return
			}

			r.Body = http.MaxBytesReader(w, r.Body, maxSize)
			next.ServeHTTP(w, r)
		})
	}
}

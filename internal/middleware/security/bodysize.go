// Package security provides request guards for the public API surface.
package security

import "net/http"

// MaxBodySizeMiddleware caps request body size. Verification requests
// are a few hundred bytes of JSON; anything bigger is hostile.
func MaxBodySizeMiddleware(maxKB int) func(http.Handler) http.Handler {
	maxBytes := int64(maxKB) * 1024
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if maxBytes > 0 && r.Body != nil {
				r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
			}
			next.ServeHTTP(w, r)
		})
	}
}

package middleware

import (
	"net/http"
)

// Webhook events are small JSON envelopes: sender, text and media ids.
// Photo bytes never travel through the webhook body; they are fetched
// through the gateway download API.
const DefaultMaxBodySize = 256 << 10 // 256KB

// BodyLimit rejects oversized webhook deliveries up front and caps reads
// on everything that slips past Content-Length.
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

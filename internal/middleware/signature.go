package middleware

import (
	"bytes"
	"io"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/fotolote/intake-bot-go/internal/util"
)

// SignatureMiddleware verifies the HMAC-SHA256 signature the gateway
// attaches to every webhook delivery.
type SignatureMiddleware struct {
	secret string
}

func NewSignatureMiddleware(secret string) *SignatureMiddleware {
	return &SignatureMiddleware{secret: secret}
}

func (m *SignatureMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if m.secret == "" {
			log.Warn().Msg("webhook signature verification bypassed: WEBHOOK_SECRET is not configured")
			next.ServeHTTP(w, r)
			return
		}

		signature := r.Header.Get("X-Signature")
		if signature == "" {
			log.Warn().Msg("signature middleware: missing signature header")
			writeJSON(w, http.StatusUnauthorized, map[string]string{
				"error": "Missing signature",
			})
			return
		}

		body, err := io.ReadAll(r.Body)
		if err != nil {
			log.Error().Err(err).Msg("signature middleware: failed to read body")
			writeJSON(w, http.StatusInternalServerError, map[string]string{
				"error": "Failed to read request body",
			})
			return
		}
		r.Body = io.NopCloser(bytes.NewReader(body))

		computed := util.HmacSHA256(m.secret, string(body))
		if !util.ConstantTimeEqual(computed, signature) {
			log.Warn().Msg("signature middleware: invalid signature")
			writeJSON(w, http.StatusUnauthorized, map[string]string{
				"error": "Invalid signature",
			})
			return
		}

		next.ServeHTTP(w, r)
	})
}

package middleware

import (
	"bytes"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/fotolote/intake-bot-go/internal/util"
)

func TestSignatureMiddleware(t *testing.T) {
	secret := "test-secret"
	body := `{"sender":"5511999990000"}`
	validSignature := util.HmacSHA256(secret, body)

	t.Run("passes through when secret is empty", func(t *testing.T) {
		mw := NewSignatureMiddleware("")
		handler := mw.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		}))

		req := httptest.NewRequest("POST", "/webhook", bytes.NewBufferString(body))
		rec := httptest.NewRecorder()

		handler.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("rejects request without signature header", func(t *testing.T) {
		mw := NewSignatureMiddleware(secret)
		handler := mw.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			t.Fatal("handler should not be called")
		}))

		req := httptest.NewRequest("POST", "/webhook", bytes.NewBufferString(body))
		rec := httptest.NewRecorder()

		handler.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("rejects request with invalid signature", func(t *testing.T) {
		mw := NewSignatureMiddleware(secret)
		handler := mw.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			t.Fatal("handler should not be called")
		}))

		req := httptest.NewRequest("POST", "/webhook", bytes.NewBufferString(body))
		req.Header.Set("X-Signature", "invalid-signature")
		rec := httptest.NewRecorder()

		handler.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("allows request with valid signature", func(t *testing.T) {
		mw := NewSignatureMiddleware(secret)
		handler := mw.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		}))

		req := httptest.NewRequest("POST", "/webhook", bytes.NewBufferString(body))
		req.Header.Set("X-Signature", validSignature)
		rec := httptest.NewRecorder()

		handler.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("body remains readable after verification", func(t *testing.T) {
		mw := NewSignatureMiddleware(secret)
		handler := mw.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got, err := io.ReadAll(r.Body)
			assert.NoError(t, err)
			assert.Equal(t, body, string(got))
			w.WriteHeader(http.StatusOK)
		}))

		req := httptest.NewRequest("POST", "/webhook", bytes.NewBufferString(body))
		req.Header.Set("X-Signature", validSignature)
		rec := httptest.NewRecorder()

		handler.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
	})
}

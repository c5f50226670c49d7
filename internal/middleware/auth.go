package middleware

import (
	"crypto/subtle"
	"encoding/json"
	"net/http"

	"msgvault/internal/errors"
	"msgvault/internal/tracing"

	"github.com/sirupsen/logrus"
)

// APIKeyHeader carries the client credential on every request.
const APIKeyHeader = "X-API-Key"

// APIKeyAuth rejects requests whose X-API-Key header does not match the
// configured key. The comparison is constant time.
func APIKeyAuth(apiKey string, logger *logrus.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			provided := r.Header.Get(APIKeyHeader)

			if subtle.ConstantTimeCompare([]byte(provided), []byte(apiKey)) != 1 {
				logger.WithFields(logrus.Fields{
					"path":   r.URL.Path,
					"method": r.Method,
				}).Warn("Rejected request with invalid API key")

				writeAuthError(w, r)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func writeAuthError(w http.ResponseWriter, r *http.Request) {
	authErr := errors.NewAuthError("invalid or missing API key")
	response := errors.ToHTTPResponse(authErr, tracing.GetRequestID(r.Context()))

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(response)
}

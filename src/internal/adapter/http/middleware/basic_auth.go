package middleware

import (
	"crypto/subtle"
	"fmt"
	"net/http"

	"github.com/api-sage/account-ledger/src/internal/logger"
	"golang.org/x/crypto/bcrypt"
)

// HashChannelKey derives the bcrypt hash BasicAuth compares against, so the
// plain key is not kept in memory after startup.
func HashChannelKey(channelKey string) ([]byte, error) {
	if channelKey == "" {
		return nil, nil
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(channelKey), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash channel key: %w", err)
	}
	return hash, nil
}

func BasicAuth(channelID string, channelKeyHash []byte) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if channelID == "" || len(channelKeyHash) == 0 {
				logger.Error("basic auth middleware missing server configuration", nil, logger.Fields{
					"method": r.Method,
					"path":   r.URL.Path,
				})
				http.Error(w, "server auth configuration is missing", http.StatusInternalServerError)
				return
			}

			id, key, ok := r.BasicAuth()
			if !ok || !secureEqual(id, channelID) || bcrypt.CompareHashAndPassword(channelKeyHash, []byte(key)) != nil {
				logger.Info("basic auth middleware unauthorized request", logger.Fields{
					"method":      r.Method,
					"path":        r.URL.Path,
					"credentials": "invalid_or_missing",
				})
				w.Header().Set("WWW-Authenticate", `Basic realm="account-ledger"`)
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			logger.Debug("basic auth middleware authorized request", logger.Fields{
				"method": r.Method,
				"path":   r.URL.Path,
			})
			next.ServeHTTP(w, r)
		})
	}
}

func secureEqual(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

package middleware

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"concert-manager/models"
	"concert-manager/utils"

	"github.com/golang-jwt/jwt"
)

// VerifyToken checks the request's "Authorization: Bearer <jwt>" header
// against an HS256 secret.
func VerifyToken(r *http.Request, secret []byte) error {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return errors.New("Authorization header missing")
	}

	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || parts[0] != "Bearer" {
		return errors.New("Invalid Authorization header format")
	}

	token, err := jwt.Parse(parts[1], func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("Unexpected signing method")
		}
		return secret, nil
	})
	if err != nil || !token.Valid {
		return errors.New("Invalid or expired token")
	}
	return nil
}

// RequireToken rejects requests without a valid bearer token. An empty secret
// disables the check.
func RequireToken(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if secret == "" {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if err := VerifyToken(r, []byte(secret)); err != nil {
				slog.Warn("rejected unauthenticated request",
					"route", RouteTemplate(r),
					"reason", err.Error(),
					"request_id", RequestIDFromContext(r.Context()),
				)
				utils.RespondWithError(w, http.StatusUnauthorized, models.Error{Message: err.Error()})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

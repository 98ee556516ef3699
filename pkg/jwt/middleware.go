package jwt

import (
	"net/http"
	"strings"

	"github.com/google/uuid"
)

// Middleware validates the Bearer token on each request and injects the
// caller id (the token's Subject, a user UUID) into the request context.
// Requests without a valid token are rejected with 401.
func Middleware(service *Service) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenString, err := bearerToken(r)
			if err != nil {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			var claims StandardClaims
			if err := service.Parse(tokenString, &claims); err != nil {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			callerID, err := uuid.Parse(claims.Subject)
			if err != nil {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			next.ServeHTTP(w, r.WithContext(SetCallerID(r.Context(), callerID)))
		})
	}
}

// bearerToken extracts the token from "Authorization: Bearer <token>" per RFC 6750.
func bearerToken(r *http.Request) (string, error) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return "", ErrInvalidToken
	}

	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || parts[0] != "Bearer" {
		return "", ErrInvalidToken
	}

	return parts[1], nil
}

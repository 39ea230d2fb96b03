package middleware

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/badgepay/badgepay/internal/auth"
	"github.com/badgepay/badgepay/internal/config"
	"github.com/badgepay/badgepay/internal/models"
	"github.com/badgepay/badgepay/internal/store"
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
)

func deny(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}

// AuthMiddleware parses the bearer token and injects the tagged principal
// into the request context. Card tokens are re-validated against the card
// registry on every request: a card deactivated after token minting is
// rejected even while its token is unexpired.
func AuthMiddleware(cfg *config.Config, st store.Store, log *logrus.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if !strings.HasPrefix(header, "Bearer ") {
				deny(w, http.StatusUnauthorized, "no token provided")
				return
			}

			principal, err := auth.ParseToken(cfg.JWTSecret, strings.TrimPrefix(header, "Bearer "))
			if err != nil {
				log.Debugf("Token rejected: %v", err)
				deny(w, http.StatusUnauthorized, "invalid or expired token")
				return
			}

			if principal.Kind == auth.PrincipalCard {
				card, err := st.GetCard(r.Context(), principal.CardID)
				if err != nil {
					deny(w, http.StatusUnauthorized, "invalid card token")
					return
				}
				if card.Status != models.CardStatusActive {
					deny(w, http.StatusForbidden, "card is not active")
					return
				}
			}

			next.ServeHTTP(w, r.WithContext(auth.WithPrincipal(r.Context(), principal)))
		})
	}
}

// RequireHuman rejects card-scoped tokens. Endpoints behind it expect a
// human session minted by the login layer.
func RequireHuman(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, ok := auth.FromContext(r.Context())
		if !ok || p.Kind != auth.PrincipalHuman {
			deny(w, http.StatusForbidden, "invalid token type")
			return
		}
		next(w, r)
	}
}

// RequireAdmin rejects everything but admin human sessions.
func RequireAdmin(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, ok := auth.FromContext(r.Context())
		if !ok || !p.IsAdmin() {
			deny(w, http.StatusForbidden, "admin session required")
			return
		}
		next(w, r)
	}
}

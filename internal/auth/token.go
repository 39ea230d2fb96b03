package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// tokenTypeCard is the claim value marking a card-scoped token. Human
// session tokens minted by the session layer carry no type claim.
const tokenTypeCard = "card"

type claims struct {
	CardID string `json:"cardId,omitempty"`
	Role   string `json:"role,omitempty"`
	Type   string `json:"type,omitempty"`
	jwt.RegisteredClaims
}

// MintCardToken issues a signed token scoped to a single card. The token
// carries the owning account so downstream calls need no extra lookup.
func MintCardToken(secret, cardID, accountID string, ttl time.Duration) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		CardID: cardID,
		Type:   tokenTypeCard,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   accountID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	})
	tokenString, err := token.SignedString([]byte(secret))
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return tokenString, nil
}

// ParseToken validates a bearer token and returns the tagged principal.
func ParseToken(secret, tokenString string) (Principal, error) {
	c := &claims{}
	token, err := jwt.ParseWithClaims(tokenString, c, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil {
		return Principal{}, fmt.Errorf("invalid token: %w", err)
	}
	if !token.Valid {
		return Principal{}, fmt.Errorf("invalid token")
	}

	if c.Type == tokenTypeCard {
		if c.CardID == "" {
			return Principal{}, fmt.Errorf("card token missing card id")
		}
		return Principal{
			Kind:      PrincipalCard,
			CardID:    c.CardID,
			AccountID: c.Subject,
		}, nil
	}
	if c.Subject == "" {
		return Principal{}, fmt.Errorf("session token missing subject")
	}
	return Principal{
		Kind:      PrincipalHuman,
		AccountID: c.Subject,
		Role:      c.Role,
	}, nil
}

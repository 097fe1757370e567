package auth

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Claims carried by client tokens. Subject is the user id.
type Claims struct {
	Tier string `json:"tier,omitempty"`
	jwt.RegisteredClaims
}

// JWTVerifier validates HS256 tokens signed with a shared secret.
type JWTVerifier struct {
	secret []byte
}

var _ Verifier = (*JWTVerifier)(nil)

func NewJWTVerifier(secret string) *JWTVerifier {
	return &JWTVerifier{secret: []byte(secret)}
}

func (v *JWTVerifier) Verify(_ context.Context, token string) (Principal, error) {
	var claims Claims
	parsed, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return v.secret, nil
	})
	if err != nil || !parsed.Valid {
		return Principal{}, ErrInvalidToken
	}
	userID := strings.TrimSpace(claims.Subject)
	if userID == "" {
		return Principal{}, ErrInvalidToken
	}
	tier := strings.TrimSpace(strings.ToLower(claims.Tier))
	if tier != "pro" {
		tier = "free"
	}
	return Principal{UserID: userID, Tier: tier}, nil
}

// Sign mints a token for the given user. Used by tests and local tooling.
func (v *JWTVerifier) Sign(userID, tier string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		Tier: tier,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(v.secret)
}

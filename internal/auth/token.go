package auth

import (
	"errors"

	"github.com/golang-jwt/jwt/v5"

	"github.com/wzatco/helpdesk-sla/internal/domain"
)

// TokenVerifier validates JWT tokens issued by the platform's auth
// service. This engine never issues tokens or stores credentials; it
// shares the signing secret and verifies.
type TokenVerifier struct {
	secret []byte
}

// NewTokenVerifier builds a verifier over the shared HMAC secret.
func NewTokenVerifier(secret string) *TokenVerifier {
	return &TokenVerifier{secret: []byte(secret)}
}

// Claims describes the JWT payload the platform issues.
type Claims struct {
	SubjectID string             `json:"sub"`
	Subject   domain.SubjectType `json:"subject"`
	jwt.RegisteredClaims
}

// ParseToken validates the signature and expiry and returns claims.
func (tv *TokenVerifier) ParseToken(tokenStr string) (*Claims, error) {
	parsed, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, errors.New("unexpected signing method")
		}
		return tv.secret, nil
	})
	if err != nil {
		return nil, err
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, errors.New("invalid token claims")
	}
	return claims, nil
}

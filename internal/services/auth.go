package services

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenService verifies access tokens minted by the identity service, which
// shares the signing secret. Issuance lives there; this side only parses,
// plus CreateAccessToken for tests and local tooling.
type TokenService struct {
	Secret    []byte
	Issuer    string
	AccessTTL time.Duration
}

func (t TokenService) CreateAccessToken(userID, email, role string) (string, error) {
	now := time.Now().UTC()
	ttl := t.AccessTTL
	if ttl <= 0 {
		ttl = 4 * time.Hour
	}
	claims := jwt.MapClaims{
		"iss":   t.Issuer,
		"sub":   userID,
		"typ":   "access",
		"email": email,
		"role":  role,
		"iat":   now.Unix(),
		"exp":   now.Add(ttl).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(t.Secret)
}

func (t TokenService) ParseToken(tokenStr string) (*jwt.Token, jwt.MapClaims, error) {
	claims := jwt.MapClaims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(token *jwt.Token) (interface{}, error) {
		return t.Secret, nil
	}, jwt.WithIssuer(t.Issuer))
	return token, claims, err
}

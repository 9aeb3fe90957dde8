package utils // package utils provides helper functions for token creation and hashing

import (
	"time" // time utilities for computing expirations

	"github.com/golang-jwt/jwt/v5" // JWT library for creating signed tokens
)

// AccessToken represents a signed JWT access token along with its
// expiry. The Token field contains the serialized JWT string; Exp is
// the UTC expiration time. The storefront issues one long-ish token
// per login rather than an access/refresh pair, so a session simply
// lapses when the token expires.
type AccessToken struct {
	Token string
	Exp   time.Time
}

// NewAccessToken builds and signs an HS256 JWT for an account. The
// claims carry the subject (account ID), the email and the is_admin
// flag so the middleware can authorize admin routes without a database
// round trip, plus the standard exp and iat claims.
func NewAccessToken(secret string, accountID uint64, email string, isAdmin bool, ttlMin int) (AccessToken, error) {
	exp := time.Now().UTC().Add(time.Duration(ttlMin) * time.Minute)
	claims := jwt.MapClaims{
		"sub":      accountID,
		"email":    email,
		"is_admin": isAdmin,
		"exp":      exp.Unix(),
		"iat":      time.Now().UTC().Unix(),
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := t.SignedString([]byte(secret))
	if err != nil {
		return AccessToken{}, err
	}
	return AccessToken{Token: signed, Exp: exp}, nil
}

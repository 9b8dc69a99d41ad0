package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v4"
)

// DefaultTokenTTL is how long an issued bearer token stays valid.
const DefaultTokenTTL = 7 * 24 * time.Hour

// ErrInvalidToken covers every reason a token is rejected: bad signature,
// wrong algorithm, expiry, or missing subject.
var ErrInvalidToken = errors.New("invalid token")

// Tokens issues and verifies HS256 bearer tokens. Validity depends only on
// the signature and expiry; nothing is stored server side, so a token
// cannot be revoked before it expires.
type Tokens struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewTokens returns a token issuer. A non-positive ttl uses DefaultTokenTTL.
func NewTokens(secret []byte, ttl time.Duration) *Tokens {
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	return &Tokens{secret: secret, ttl: ttl, now: time.Now}
}

// WithClock returns a copy of t that reads time from now.
func (t *Tokens) WithClock(now func() time.Time) *Tokens {
	c := *t
	c.now = now
	return &c
}

// Issue signs a token for userID.
func (t *Tokens) Issue(userID string) (string, time.Time, error) {
	issuedAt := t.now()
	expiresAt := issuedAt.Add(t.ttl)
	claims := jwt.RegisteredClaims{
		Subject:   userID,
		IssuedAt:  jwt.NewNumericDate(issuedAt),
		ExpiresAt: jwt.NewNumericDate(expiresAt),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("signing token: %w", err)
	}
	return signed, expiresAt, nil
}

// Parse verifies tokenStr and returns the user id it was issued for.
func (t *Tokens) Parse(tokenStr string) (string, error) {
	var claims jwt.RegisteredClaims
	token, err := jwt.ParseWithClaims(tokenStr, &claims, func(tok *jwt.Token) (any, error) {
		if _, ok := tok.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", tok.Header["alg"])
		}
		return t.secret, nil
	})
	if err != nil || !token.Valid {
		return "", ErrInvalidToken
	}
	// The library checks exp against the wall clock; check it against ours too.
	if claims.ExpiresAt == nil || !t.now().Before(claims.ExpiresAt.Time) {
		return "", ErrInvalidToken
	}
	if claims.Subject == "" {
		return "", ErrInvalidToken
	}
	return claims.Subject, nil
}

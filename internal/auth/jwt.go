// Package auth validates the bearer tokens handed out by the external
// identity provider. The owner of a request is the token subject.
package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrInvalidToken = errors.New("invalid or expired token")
	ErrNoSubject    = errors.New("token has no subject")
)

const (
	DefaultIssuer   = "somenicelinks"
	DefaultAudience = "somenicelinks-api"
)

// Claims are the JWT claims carried by a session token.
type Claims struct {
	jwt.RegisteredClaims
	Email string `json:"email,omitempty"`
}

// Owner returns the user identifier the token was issued for.
func (c *Claims) Owner() string { return c.Subject }

// Verifier checks HS256 tokens for one issuer and audience.
type Verifier struct {
	secret   []byte
	issuer   string
	audience string
}

// NewVerifier creates a verifier. Empty issuer or audience select the
// defaults.
func NewVerifier(secret, issuer, audience string) *Verifier {
	if issuer == "" {
		issuer = DefaultIssuer
	}
	if audience == "" {
		audience = DefaultAudience
	}
	return &Verifier{secret: []byte(secret), issuer: issuer, audience: audience}
}

// Issue signs a token for owner valid for ttl.
func (v *Verifier) Issue(owner string, ttl time.Duration) (string, error) {
	if owner == "" {
		return "", ErrNoSubject
	}
	now := time.Now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    v.issuer,
			Subject:   owner,
			Audience:  jwt.ClaimStrings{v.audience},
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(v.secret)
}

// Validate parses and validates a token string, returning the claims if valid.
func (v *Verifier) Validate(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return v.secret, nil
	}, jwt.WithIssuer(v.issuer), jwt.WithAudience(v.audience), jwt.WithExpirationRequired())
	if err != nil {
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}
	if claims.Subject == "" {
		return nil, ErrNoSubject
	}

	return claims, nil
}

// OwnerFromToken reads the subject without checking the signature. The
// client uses it to learn its own user id from the opaque token it was
// given; the server always verifies.
func OwnerFromToken(tokenString string) (string, error) {
	var claims Claims
	if _, _, err := jwt.NewParser().ParseUnverified(tokenString, &claims); err != nil {
		return "", ErrInvalidToken
	}
	if claims.Subject == "" {
		return "", ErrNoSubject
	}
	return claims.Subject, nil
}

// Package token mints and validates the capability tokens that carry a
// wallet's asset entitlements between requests.
package token

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	svcerrors "github.com/lotta-llamas/api/internal/errors"
)

const issuerName = "lotta-llamas"

// Claims is the signed claim set embedded in every capability token. The
// asset list is a snapshot of holdings at issuance; holders re-authenticate
// to refresh entitlements.
type Claims struct {
	Address string   `json:"address"`
	Assets  []string `json:"assets"`
	jwt.RegisteredClaims
}

// HasAsset reports whether the token entitles its holder to asset.
func (c *Claims) HasAsset(asset string) bool {
	for _, held := range c.Assets {
		if held == asset {
			return true
		}
	}
	return false
}

// Issuer signs and validates capability tokens with a process-wide secret.
// Rotating the secret invalidates every outstanding token.
type Issuer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewIssuer builds an Issuer. ttl bounds token lifetime; zero means tokens
// carry no expiry claim.
func NewIssuer(secret []byte, ttl time.Duration) (*Issuer, error) {
	if len(secret) == 0 {
		return nil, errors.New("signing secret required")
	}
	return &Issuer{secret: secret, ttl: ttl, now: time.Now}, nil
}

// Issue mints a token binding address to its current asset snapshot.
func (i *Issuer) Issue(address string, assets []string) (string, error) {
	now := i.now().UTC()
	claims := &Claims{
		Address: address,
		Assets:  assets,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:       uuid.NewString(),
			Issuer:   issuerName,
			IssuedAt: jwt.NewNumericDate(now),
		},
	}
	if i.ttl > 0 {
		claims.ExpiresAt = jwt.NewNumericDate(now.Add(i.ttl))
	}

	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
}

// Validate checks the token signature and decodes the claims verbatim. It
// never re-checks holdings against the chain.
func (i *Issuer) Validate(tokenString string) (*Claims, error) {
	parsed, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return i.secret, nil
	}, jwt.WithTimeFunc(i.now))

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, svcerrors.TokenExpired(err)
		}
		return nil, svcerrors.InvalidToken(err)
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, svcerrors.InvalidToken(nil)
	}
	return claims, nil
}

// Package token issues and verifies the stateless session tokens handed to
// the browser after a successful GitHub login.
package token

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/pkg/errors"
)

// DefaultTTL is the lifetime of a session token.
const DefaultTTL = 24 * time.Hour

// NowTimeFunc returns the current time. It can be overridden in tests.
var NowTimeFunc = time.Now

// Claims is the payload of a session token. Email and AvatarURL encode as
// JSON null when absent.
type Claims struct {
	// ID is GitHub's numeric user id in decimal, always encoded as a JSON
	// string ("583231"). Clients must not expect a number.
	ID        string  `json:"id"`
	Login     string  `json:"login"`
	Name      string  `json:"name"`
	Email     *string `json:"email"`
	AvatarURL *string `json:"avatar_url"`
	jwt.RegisteredClaims
}

// Codec issues and verifies session tokens.
type Codec struct {
	signer Signer
	ttl    time.Duration
	now    func() time.Time
}

type CodecOption func(*Codec)

// WithClock overrides the clock used for iat, exp and expiry checks.
func WithClock(now func() time.Time) CodecOption {
	return func(c *Codec) {
		c.now = now
	}
}

// WithTTL overrides DefaultTTL. Non-positive values are ignored.
func WithTTL(ttl time.Duration) CodecOption {
	return func(c *Codec) {
		if ttl > 0 {
			c.ttl = ttl
		}
	}
}

func NewCodec(signer Signer, opts ...CodecOption) *Codec {
	c := &Codec{
		signer: signer,
		ttl:    DefaultTTL,
		now:    func() time.Time { return NowTimeFunc() },
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Issue stamps iat and exp onto a copy of claims and signs it.
func (c *Codec) Issue(claims Claims) (string, error) {
	now := c.now()
	claims.IssuedAt = jwt.NewNumericDate(now)
	claims.ExpiresAt = jwt.NewNumericDate(now.Add(c.ttl))

	signed, err := c.signer.Sign(&claims)
	if err != nil {
		return "", errors.Wrap(err, "[token Issue] failed to issue session token")
	}
	return signed, nil
}

// Verify returns the claims of a valid token. Any failure yields (nil, false).
func (c *Codec) Verify(raw string) (*Claims, bool) {
	if raw == "" {
		return nil, false
	}
	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(raw, claims, c.signer.GetVerificationKey,
		jwt.WithValidMethods([]string{c.signer.GetSigningMethod().Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(c.now),
	)
	if err != nil || !parsed.Valid {
		return nil, false
	}
	return claims, true
}

// Package session encodes authenticated sessions into signed cookies.
//
// A cookie carries the token issued by auth.Session.IssueToken together
// with the user checksum it was issued with; the token store and the
// checksum decide whether the session is still valid, the signature only
// guards against tampering.
package session

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"

	"github.com/authgate/authgate/internal/auth"
)

const (
	// MinSecretLen is the minimum length of the signing secret.
	MinSecretLen = 32

	// HostPrefix pins a cookie to the exact host over https.
	HostPrefix = "__Host-"
)

var (
	// ErrSecretTooShort is returned by NewCodec for weak secrets.
	ErrSecretTooShort = fmt.Errorf("session secret must be at least %d characters", MinSecretLen)
	// ErrInvalid is returned by Parse for any malformed, forged or expired cookie.
	ErrInvalid = errors.New("invalid session cookie")
)

// Claims is the payload of a session cookie.
type Claims struct {
	UserID   uint64 `json:"uid"`
	Checksum string `json:"chk"`
	Token    string `json:"tok"`
	jwt.RegisteredClaims
}

// Codec signs and verifies session cookies with HS256.
type Codec struct {
	secret []byte
	name   string
	dev    bool
	now    func() time.Time
}

// NewCodec returns a codec. In dev mode the cookie is neither Secure nor
// host prefixed so it works over plain http.
func NewCodec(secret, cookieName string, dev bool) (*Codec, error) {
	if len(secret) < MinSecretLen {
		return nil, ErrSecretTooShort
	}

	if cookieName == "" {
		cookieName = "authgate"
	}

	if !dev {
		cookieName = HostPrefix + cookieName
	}

	return &Codec{secret: []byte(secret), name: cookieName, dev: dev, now: time.Now}, nil
}

// CookieName returns the full cookie name.
func (c *Codec) CookieName() string {
	return c.name
}

// Issue encodes an issued token.
func (c *Codec) Issue(i auth.Issued) (string, error) {
	claims := Claims{
		UserID:   i.UserID,
		Checksum: i.Checksum,
		Token:    i.Token,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   i.Subject,
			ID:        strconv.FormatUint(i.UserID, 10),
			IssuedAt:  jwt.NewNumericDate(c.now()),
			ExpiresAt: jwt.NewNumericDate(i.Expires),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.secret)
	if err != nil {
		return "", fmt.Errorf("could not sign session: %w", err)
	}

	return signed, nil
}

// Parse verifies raw and returns its claims.
func (c *Codec) Parse(raw string) (*Claims, error) {
	claims := new(Claims)

	_, err := jwt.ParseWithClaims(raw, claims,
		func(*jwt.Token) (any, error) { return c.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(c.now),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalid, err)
	}

	if claims.Token == "" || claims.Subject == "" {
		return nil, ErrInvalid
	}

	return claims, nil
}

// Cookie returns the session cookie holding value until expires.
func (c *Codec) Cookie(value string, expires time.Time) *fiber.Cookie {
	return &fiber.Cookie{
		Name:     c.name,
		Value:    value,
		Path:     "/",
		Expires:  expires,
		Secure:   !c.dev,
		HTTPOnly: true,
		SameSite: fiber.CookieSameSiteLaxMode,
	}
}

// Expired returns a cookie that removes the session cookie.
func (c *Codec) Expired() *fiber.Cookie {
	ck := c.Cookie("", time.Unix(0, 0))
	ck.MaxAge = -1

	return ck
}

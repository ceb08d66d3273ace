package auth

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// SessionCookie is the cookie the web client stores the access token in.
const SessionCookie = "sb-access-token"

var (
	// ErrNoToken indicates the request carried no session token.
	ErrNoToken = errors.New("no session token")
	// ErrInvalidToken indicates the token failed verification.
	ErrInvalidToken = errors.New("invalid session token")
)

// Verifier checks HS256 session tokens signed with the auth service secret.
type Verifier struct {
	secret   []byte
	audience string
}

// NewVerifier returns a Verifier for secret. A non-empty audience must match
// the token's aud claim.
func NewVerifier(secret, audience string) *Verifier {
	return &Verifier{secret: []byte(secret), audience: audience}
}

type sessionClaims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// Verify parses raw and returns the caller it identifies.
func (v *Verifier) Verify(raw string) (Caller, error) {
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})}
	if v.audience != "" {
		opts = append(opts, jwt.WithAudience(v.audience))
	}

	var claims sessionClaims
	tok, err := jwt.ParseWithClaims(raw, &claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return v.secret, nil
	}, opts...)
	if err != nil || !tok.Valid {
		return Caller{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if claims.Subject == "" {
		return Caller{}, fmt.Errorf("%w: missing subject", ErrInvalidToken)
	}
	return Caller{ID: claims.Subject, Email: claims.Email}, nil
}

// TokenFromRequest returns the bearer token, falling back to the session
// cookie.
func TokenFromRequest(r *http.Request) (string, error) {
	if token := parseBearerToken(r.Header.Get("Authorization")); token != "" {
		return token, nil
	}
	if c, err := r.Cookie(SessionCookie); err == nil && c.Value != "" {
		return c.Value, nil
	}
	return "", ErrNoToken
}

func parseBearerToken(header string) string {
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 {
		return ""
	}
	if !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

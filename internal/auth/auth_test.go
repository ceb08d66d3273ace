package auth

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const testSecret = "super-secret-jwt-token-with-at-least-32-characters"

func signToken(t *testing.T, secret string, claims jwt.MapClaims) string {
	t.Helper()
	raw, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return raw
}

func TestVerify(t *testing.T) {
	v := NewVerifier(testSecret, "authenticated")
	exp := time.Now().Add(time.Hour).Unix()

	tests := []struct {
		name    string
		token   string
		wantID  string
		wantErr bool
	}{
		{
			name:   "valid token",
			token:  signToken(t, testSecret, jwt.MapClaims{"sub": "user-1", "email": "a@example.com", "aud": "authenticated", "exp": exp}),
			wantID: "user-1",
		},
		{
			name:    "wrong secret",
			token:   signToken(t, "another-secret-another-secret-another", jwt.MapClaims{"sub": "user-1", "aud": "authenticated", "exp": exp}),
			wantErr: true,
		},
		{
			name:    "expired",
			token:   signToken(t, testSecret, jwt.MapClaims{"sub": "user-1", "aud": "authenticated", "exp": time.Now().Add(-time.Hour).Unix()}),
			wantErr: true,
		},
		{
			name:    "wrong audience",
			token:   signToken(t, testSecret, jwt.MapClaims{"sub": "user-1", "aud": "anon", "exp": exp}),
			wantErr: true,
		},
		{
			name:    "missing subject",
			token:   signToken(t, testSecret, jwt.MapClaims{"aud": "authenticated", "exp": exp}),
			wantErr: true,
		},
		{
			name:    "garbage",
			token:   "not-a-jwt",
			wantErr: true,
		},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			caller, err := v.Verify(tc.token)
			if tc.wantErr {
				if !errors.Is(err, ErrInvalidToken) {
					t.Fatalf("expected ErrInvalidToken, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("expected nil error but got %v", err)
			}
			if caller.ID != tc.wantID {
				t.Fatalf("expected caller %q, got %q", tc.wantID, caller.ID)
			}
		})
	}
}

func TestTokenFromRequest(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if _, err := TokenFromRequest(req); !errors.Is(err, ErrNoToken) {
		t.Fatalf("expected ErrNoToken, got %v", err)
	}

	req.AddCookie(&http.Cookie{Name: SessionCookie, Value: "from-cookie"})
	if got, _ := TokenFromRequest(req); got != "from-cookie" {
		t.Fatalf("expected cookie token, got %q", got)
	}

	req.Header.Set("Authorization", "Bearer from-header")
	if got, _ := TokenFromRequest(req); got != "from-header" {
		t.Fatalf("expected header token to win, got %q", got)
	}
}

func TestMiddlewareAttachesCaller(t *testing.T) {
	v := NewVerifier(testSecret, "")
	token := signToken(t, testSecret, jwt.MapClaims{"sub": "user-9", "email": "lead@example.com"})

	var got Caller
	var ok bool
	handler := Middleware(v)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, ok = CallerFrom(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	handler.ServeHTTP(httptest.NewRecorder(), req)
	if !ok || got.ID != "user-9" || got.Email != "lead@example.com" {
		t.Fatalf("expected caller user-9, got %+v (ok=%v)", got, ok)
	}

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer tampered")
	handler.ServeHTTP(httptest.NewRecorder(), req)
	if ok {
		t.Fatalf("expected anonymous request for invalid token")
	}
}

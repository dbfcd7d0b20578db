package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const testSecret = "test-secret"

func signToken(t *testing.T, secret string, claims jwt.MapClaims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return signed
}

func baseClaims() jwt.MapClaims {
	return jwt.MapClaims{
		"sub":   "user_1",
		"email": "jo@example.com",
		"roles": []interface{}{"user", "admin"},
		"exp":   time.Now().Add(time.Hour).Unix(),
	}
}

func TestJWTValidator_Validate(t *testing.T) {
	v := NewJWTValidator([]byte(testSecret), "")

	principal, err := v.Validate(signToken(t, testSecret, baseClaims()))
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if principal.Subject != "user_1" || principal.Email != "jo@example.com" {
		t.Errorf("principal = %+v", principal)
	}
	if !principal.HasRole("admin") || !principal.HasRole("user") {
		t.Errorf("roles = %v", principal.Roles)
	}
	if principal.HasRole("superuser") {
		t.Error("HasRole reported a role the token does not carry")
	}
}

func TestJWTValidator_RejectsBadTokens(t *testing.T) {
	v := NewJWTValidator([]byte(testSecret), "trendora")

	expired := baseClaims()
	expired["exp"] = time.Now().Add(-time.Hour).Unix()
	expired["iss"] = "trendora"

	noExp := baseClaims()
	delete(noExp, "exp")
	noExp["iss"] = "trendora"

	noSub := baseClaims()
	delete(noSub, "sub")
	noSub["iss"] = "trendora"

	wrongIssuer := baseClaims()
	wrongIssuer["iss"] = "someone-else"

	valid := baseClaims()
	valid["iss"] = "trendora"

	tests := []struct {
		name  string
		token string
	}{
		{"garbage", "not.a.token"},
		{"wrong secret", signToken(t, "other-secret", valid)},
		{"expired", signToken(t, testSecret, expired)},
		{"missing exp", signToken(t, testSecret, noExp)},
		{"missing sub", signToken(t, testSecret, noSub)},
		{"wrong issuer", signToken(t, testSecret, wrongIssuer)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := v.Validate(tt.token); err == nil {
				t.Error("expected validation failure")
			}
		})
	}

	if _, err := v.Validate(signToken(t, testSecret, valid)); err != nil {
		t.Errorf("valid token rejected: %v", err)
	}
}

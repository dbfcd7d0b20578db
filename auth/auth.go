// Package auth provides the "authenticate request → principal + roles"
// capability consumed by the service HTTP surfaces. Token issuance and the
// identity provider itself are external; this package only verifies.
package auth

import (
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

// Principal is the authenticated caller extracted from a verified token.
type Principal struct {
	Subject string
	Email   string
	Roles   []string
}

// HasRole reports whether the principal carries the given role.
func (p Principal) HasRole(role string) bool {
	for _, r := range p.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// Validator verifies a bearer token and returns the principal it represents.
type Validator interface {
	Validate(token string) (Principal, error)
}

// JWTValidator verifies HMAC-signed JWTs with a shared secret.
type JWTValidator struct {
	secret []byte
	issuer string
}

// NewJWTValidator creates a validator for tokens signed with secret. An
// empty issuer skips issuer checking.
func NewJWTValidator(secret []byte, issuer string) *JWTValidator {
	return &JWTValidator{secret: secret, issuer: issuer}
}

// Validate parses and verifies the token, extracting subject, email, and
// roles claims.
func (v *JWTValidator) Validate(tokenString string) (Principal, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{"HS256", "HS384", "HS512"}),
		jwt.WithExpirationRequired(),
	}
	if v.issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.issuer))
	}

	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		return v.secret, nil
	}, opts...)
	if err != nil {
		return Principal{}, fmt.Errorf("verify token: %w", err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return Principal{}, fmt.Errorf("unexpected claims type %T", token.Claims)
	}

	p := Principal{}
	if sub, err := claims.GetSubject(); err == nil {
		p.Subject = sub
	}
	if p.Subject == "" {
		return Principal{}, fmt.Errorf("token has no subject")
	}
	if email, ok := claims["email"].(string); ok {
		p.Email = email
	}
	if rawRoles, ok := claims["roles"].([]interface{}); ok {
		for _, r := range rawRoles {
			if role, ok := r.(string); ok {
				p.Roles = append(p.Roles, role)
			}
		}
	}

	return p, nil
}

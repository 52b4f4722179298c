// Package identity resolves an Actor from an already-issued bearer token.
// It is grounded on, and deliberately narrower than, the teacher's
// KeycloakTokenValidator (internal/auth/keycloak.go): it trusts a token
// signed with a locally-configured key instead of fetching a remote JWKS,
// since authenticating end users is explicitly out of scope here — this
// is only the boundary that turns "a token" into the Actor value the core
// consumes.
package identity

import (
	"fmt"

	"github.com/golang-jwt/jwt/v5"
	"github.com/mautops/expense-approval/internal/domain"
)

// Claims mirrors the teacher's KeycloakClaims shape, trimmed to the fields
// this service needs: subject and a realm role list.
type Claims struct {
	Subject string   `json:"sub"`
	Roles   []string `json:"roles"`
	jwt.RegisteredClaims
}

// Resolver turns a bearer token into a domain.Actor.
type Resolver struct {
	signingKey []byte
}

// NewResolver builds a Resolver that verifies tokens with signingKey.
func NewResolver(signingKey string) *Resolver {
	return &Resolver{signingKey: []byte(signingKey)}
}

// ResolveToken parses and verifies token, returning an UnauthenticatedError
// from the domain package if it is missing, malformed or expired.
func (r *Resolver) ResolveToken(token string) (domain.Actor, error) {
	if token == "" {
		return domain.Actor{}, &domain.UnauthenticatedError{}
	}

	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return r.signingKey, nil
	})
	if err != nil || !parsed.Valid || claims.Subject == "" {
		return domain.Actor{}, &domain.UnauthenticatedError{}
	}

	roles := make([]domain.Role, 0, len(claims.Roles))
	for _, role := range claims.Roles {
		roles = append(roles, domain.Role(role))
	}
	return domain.NewActor(claims.Subject, roles...), nil
}

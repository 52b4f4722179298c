package identity_test

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/mautops/expense-approval/internal/domain"
	"github.com/mautops/expense-approval/internal/httpapi/identity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func signToken(t *testing.T, key string, claims identity.Claims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(key))
	require.NoError(t, err)
	return signed
}

func TestResolver_ResolvesValidToken(t *testing.T) {
	r := identity.NewResolver("secret")
	token := signToken(t, "secret", identity.Claims{
		Subject: "u1",
		Roles:   []string{string(domain.RoleApplicant)},
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})

	actor, err := r.ResolveToken(token)
	require.NoError(t, err)
	assert.Equal(t, "u1", actor.ID)
	assert.True(t, actor.Has(domain.RoleApplicant))
}

func TestResolver_RejectsBlankToken(t *testing.T) {
	r := identity.NewResolver("secret")
	_, err := r.ResolveToken("")
	var unauth *domain.UnauthenticatedError
	require.ErrorAs(t, err, &unauth)
}

func TestResolver_RejectsTokenSignedWithWrongKey(t *testing.T) {
	r := identity.NewResolver("secret")
	token := signToken(t, "wrong-key", identity.Claims{Subject: "u1"})

	_, err := r.ResolveToken(token)
	var unauth *domain.UnauthenticatedError
	require.ErrorAs(t, err, &unauth)
}

func TestResolver_RejectsExpiredToken(t *testing.T) {
	r := identity.NewResolver("secret")
	token := signToken(t, "secret", identity.Claims{
		Subject: "u1",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
		},
	})

	_, err := r.ResolveToken(token)
	var unauth *domain.UnauthenticatedError
	require.ErrorAs(t, err, &unauth)
}

func TestResolver_RejectsMissingSubject(t *testing.T) {
	r := identity.NewResolver("secret")
	token := signToken(t, "secret", identity.Claims{})

	_, err := r.ResolveToken(token)
	var unauth *domain.UnauthenticatedError
	require.ErrorAs(t, err, &unauth)
}

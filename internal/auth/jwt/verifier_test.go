package jwt

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	gojwt "github.com/golang-jwt/jwt/v4"
	"github.com/smallbiznis/spacebook/internal/auth/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVerifyRoundTrip(t *testing.T) {
	v, err := New("secret", "spacebook-idp")
	require.NoError(t, err)

	token, err := v.Sign(domain.Credential{UserID: snowflake.ID(42), Role: domain.RoleAdmin}, time.Minute)
	require.NoError(t, err)

	cred, err := v.Verify(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, snowflake.ID(42), cred.UserID)
	assert.Equal(t, domain.RoleAdmin, cred.Role)
}

func TestVerifyDefaultsRoleToUser(t *testing.T) {
	v, err := New("secret", "")
	require.NoError(t, err)

	token, err := v.Sign(domain.Credential{UserID: snowflake.ID(7)}, time.Minute)
	require.NoError(t, err)

	cred, err := v.Verify(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, domain.RoleUser, cred.Role)
}

func TestVerifyRejects(t *testing.T) {
	v, err := New("secret", "issuer-a")
	require.NoError(t, err)
	other, err := New("other-secret", "issuer-a")
	require.NoError(t, err)
	wrongIssuer, err := New("secret", "issuer-b")
	require.NoError(t, err)

	expired, err := v.Sign(domain.Credential{UserID: 1}, -time.Minute)
	require.NoError(t, err)
	foreign, err := other.Sign(domain.Credential{UserID: 1}, time.Minute)
	require.NoError(t, err)
	badIssuer, err := wrongIssuer.Sign(domain.Credential{UserID: 1}, time.Minute)
	require.NoError(t, err)
	badRole, err := gojwt.NewWithClaims(gojwt.SigningMethodHS256, Claims{
		Role: "root",
		RegisteredClaims: gojwt.RegisteredClaims{
			Subject:   "1",
			Issuer:    "issuer-a",
			ExpiresAt: gojwt.NewNumericDate(time.Now().Add(time.Minute)),
		},
	}).SignedString([]byte("secret"))
	require.NoError(t, err)
	noSubject, err := gojwt.NewWithClaims(gojwt.SigningMethodHS256, Claims{
		RegisteredClaims: gojwt.RegisteredClaims{
			Issuer:    "issuer-a",
			ExpiresAt: gojwt.NewNumericDate(time.Now().Add(time.Minute)),
		},
	}).SignedString([]byte("secret"))
	require.NoError(t, err)

	tests := map[string]string{
		"expired":      expired,
		"wrong secret": foreign,
		"wrong issuer": badIssuer,
		"unknown role": badRole,
		"no subject":   noSubject,
		"garbage":      "not-a-token",
	}
	for name, token := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := v.Verify(context.Background(), token)
			assert.ErrorIs(t, err, domain.ErrInvalidCredential)
		})
	}

	_, err = v.Verify(context.Background(), "  ")
	assert.ErrorIs(t, err, domain.ErrMissingCredential)
}

func TestNewRequiresSecret(t *testing.T) {
	_, err := New(" ", "")
	assert.Error(t, err)
}

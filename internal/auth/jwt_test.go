package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

func TestGenerateAndValidate(t *testing.T) {
	tok, err := GenerateToken(testSecret, "seller-1", "seller")
	require.NoError(t, err)

	id, err := ValidateToken(testSecret, tok)
	require.NoError(t, err)
	assert.Equal(t, Identity{UserID: "seller-1", Role: "seller"}, id)
}

func TestValidateTokenRejects(t *testing.T) {
	good, err := GenerateToken(testSecret, "admin-1", "admin")
	require.NoError(t, err)

	sign := func(claims jwt.MapClaims) string {
		s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
		require.NoError(t, err)
		return s
	}
	exp := time.Now().Add(time.Hour).Unix()

	cases := []struct {
		name   string
		secret string
		token  string
	}{
		{"wrong secret", "other-secret", good},
		{"garbage", testSecret, "not-a-token"},
		{"expired", testSecret, sign(jwt.MapClaims{"sub": "u", "role": "seller", "exp": time.Now().Add(-time.Hour).Unix()})},
		{"no expiry", testSecret, sign(jwt.MapClaims{"sub": "u", "role": "seller"})},
		{"no subject", testSecret, sign(jwt.MapClaims{"role": "seller", "exp": exp})},
		{"no role", testSecret, sign(jwt.MapClaims{"sub": "u", "exp": exp})},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ValidateToken(tc.secret, tc.token)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidToken))
		})
	}
}

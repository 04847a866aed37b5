package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateAndValidate(t *testing.T) {
	a := NewAuthModule("s3cret")
	token, err := a.GenerateJWT("hall-panel", time.Hour)
	require.NoError(t, err)

	sub, err := a.ValidateTokenJWT("Bearer " + token)
	require.NoError(t, err)
	assert.Equal(t, "hall-panel", sub)

	sub, err = a.ValidateTokenJWT(token)
	require.NoError(t, err)
	assert.Equal(t, "hall-panel", sub)
}

func TestValidateRejects(t *testing.T) {
	a := NewAuthModule("s3cret")
	now := time.Now()

	expired := NewAuthModule("s3cret")
	expired.now = func() time.Time { return now.Add(-2 * time.Hour) }
	old, err := expired.GenerateJWT("x", time.Hour)
	require.NoError(t, err)

	other, err := NewAuthModule("different").GenerateJWT("x", time.Hour)
	require.NoError(t, err)

	none, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.RegisteredClaims{Subject: "x", Issuer: issuer}).
		SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	for name, token := range map[string]string{
		"empty":         "",
		"garbage":       "not-a-token",
		"expired":       old,
		"wrong secret":  other,
		"unsigned":      none,
		"bearer prefix": "Bearer ",
	} {
		t.Run(name, func(t *testing.T) {
			_, err := a.ValidateTokenJWT(token)
			assert.ErrorIs(t, err, ErrInvalidToken)
		})
	}
}

package security

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sign(t *testing.T, claims jwt.Claims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	require.NoError(t, err)
	return token
}

func TestUserIDFromToken(t *testing.T) {
	exp := jwt.NewNumericDate(time.Now().Add(time.Hour))

	t.Run("userId claim", func(t *testing.T) {
		token := sign(t, &Claims{UserID: 42, Role: "STUDENT", RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: exp}})
		id, err := UserIDFromToken(token)
		require.NoError(t, err)
		assert.Equal(t, int64(42), id)
	})

	t.Run("subject fallback", func(t *testing.T) {
		token := sign(t, jwt.RegisteredClaims{Subject: "7", ExpiresAt: exp})
		id, err := UserIDFromToken(token)
		require.NoError(t, err)
		assert.Equal(t, int64(7), id)
	})

	t.Run("no user", func(t *testing.T) {
		token := sign(t, jwt.RegisteredClaims{Subject: "alice", ExpiresAt: exp})
		_, err := UserIDFromToken(token)
		assert.ErrorIs(t, err, ErrTokenInvalid)
	})

	t.Run("garbage", func(t *testing.T) {
		_, err := UserIDFromToken("not-a-jwt")
		assert.ErrorIs(t, err, ErrTokenInvalid)
	})
}

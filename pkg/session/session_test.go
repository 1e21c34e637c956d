package session

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/evermeet/chatsync/pkg/errcode"
)

func signedToken(t *testing.T, claims *Claims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte("test-secret"))
	require.NoError(t, err)
	return signed
}

func TestParse(t *testing.T) {
	token := signedToken(t, &Claims{
		UserId:      "user-1",
		DisplayName: "Alice",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})

	claims, err := Parse(token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserId)
	assert.Equal(t, "Alice", claims.DisplayName)
}

func TestParse_Expired(t *testing.T) {
	token := signedToken(t, &Claims{
		UserId: "user-1",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
		},
	})

	_, err := Parse(token)
	assert.ErrorIs(t, err, errcode.ErrTokenExpired)
}

func TestParse_MissingUserId(t *testing.T) {
	token := signedToken(t, &Claims{})
	_, err := Parse(token)
	assert.ErrorIs(t, err, errcode.ErrTokenInvalid)
}

func TestParse_Invalid(t *testing.T) {
	_, err := Parse("not-a-token")
	assert.ErrorIs(t, err, errcode.ErrTokenInvalid)

	_, err = Parse("")
	assert.ErrorIs(t, err, errcode.ErrTokenMissing)
}

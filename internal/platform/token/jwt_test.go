package token

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "medleave/pkg/domain-errors"
	"medleave/pkg/requestcontext"
)

const signingKey = "test-signing-key"

func mintToken(t *testing.T, key string, claims Claims) string {
	t.Helper()
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(key))
	require.NoError(t, err)
	return signed
}

func TestVerify(t *testing.T) {
	verifier := NewVerifier(signingKey)
	const userID = "5f0c8a2e-1111-4d6e-9a3f-000000000001"

	t.Run("accepts a valid student token", func(t *testing.T) {
		token := mintToken(t, signingKey, Claims{
			UserID: userID,
			Role:   "student",
			RegisteredClaims: jwt.RegisteredClaims{
				ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
			},
		})

		actorID, role, err := verifier.Verify(token)
		require.NoError(t, err)
		assert.Equal(t, userID, actorID.String())
		assert.Equal(t, requestcontext.RoleStudent, role)
	})

	t.Run("rejects an expired token", func(t *testing.T) {
		token := mintToken(t, signingKey, Claims{
			UserID: userID,
			Role:   "staff",
			RegisteredClaims: jwt.RegisteredClaims{
				ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
			},
		})

		_, _, err := verifier.Verify(token)
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})

	t.Run("rejects a token signed with another key", func(t *testing.T) {
		token := mintToken(t, "some-other-key", Claims{UserID: userID, Role: "staff"})

		_, _, err := verifier.Verify(token)
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})

	t.Run("rejects an unknown role", func(t *testing.T) {
		token := mintToken(t, signingKey, Claims{UserID: userID, Role: "registrar"})

		_, _, err := verifier.Verify(token)
		require.Error(t, err)
	})

	t.Run("rejects a malformed subject", func(t *testing.T) {
		token := mintToken(t, signingKey, Claims{UserID: "not-a-uuid", Role: "student"})

		_, _, err := verifier.Verify(token)
		require.Error(t, err)
	})

	t.Run("rejects garbage", func(t *testing.T) {
		_, _, err := verifier.Verify("definitely.not.a.jwt")
		require.Error(t, err)
	})
}

package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testSecret   = "test-secret-key-12345"
	testAudience = "authenticated"
)

func TestNewVerifier_EmptySecret(t *testing.T) {
	_, err := NewVerifier("", testAudience)
	assert.ErrorIs(t, err, ErrEmptyJWTSecret)
}

func TestNewJWKSVerifier_EmptyURL(t *testing.T) {
	_, err := NewJWKSVerifier("", testAudience)
	assert.Error(t, err)
}

func TestVerify(t *testing.T) {
	verifier, err := NewVerifier(testSecret, testAudience)
	require.NoError(t, err)

	userID := uuid.New()

	t.Run("Valid token", func(t *testing.T) {
		token, err := SignToken(userID, "user@example.com", testSecret, testAudience, time.Hour)
		require.NoError(t, err)

		identity, err := verifier.Verify(token)
		require.NoError(t, err)
		assert.Equal(t, userID, identity.UserID)
		assert.Equal(t, "user@example.com", identity.Email)
		assert.Equal(t, "authenticated", identity.Role)
	})

	t.Run("Wrong secret", func(t *testing.T) {
		token, _ := SignToken(userID, "user@example.com", "other-secret", testAudience, time.Hour)
		_, err := verifier.Verify(token)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("Wrong audience", func(t *testing.T) {
		token, _ := SignToken(userID, "user@example.com", testSecret, "anon", time.Hour)
		_, err := verifier.Verify(token)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("Expired token", func(t *testing.T) {
		token, _ := SignToken(userID, "user@example.com", testSecret, testAudience, -time.Hour)
		_, err := verifier.Verify(token)
		assert.ErrorIs(t, err, ErrTokenExpired)
	})

	t.Run("Malformed token", func(t *testing.T) {
		_, err := verifier.Verify("not.a.token")
		assert.Error(t, err)
	})
}

func TestVerify_SubjectMustBeUUID(t *testing.T) {
	verifier, err := NewVerifier(testSecret, testAudience)
	require.NoError(t, err)

	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "user-42",
			Audience:  []string{testAudience},
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	require.NoError(t, err)

	_, err = verifier.Verify(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerify_MissingSubject(t *testing.T) {
	verifier, err := NewVerifier(testSecret, testAudience)
	require.NoError(t, err)

	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Audience:  []string{testAudience},
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	require.NoError(t, err)

	_, err = verifier.Verify(token)
	assert.ErrorIs(t, err, ErrMissingSubject)
}

func TestVerify_RejectsNoneAlgorithm(t *testing.T) {
	verifier, err := NewVerifier(testSecret, testAudience)
	require.NoError(t, err)

	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   uuid.NewString(),
			Audience:  []string{testAudience},
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = verifier.Verify(token)
	assert.Error(t, err)
}

func TestSignToken_EmptySecret(t *testing.T) {
	_, err := SignToken(uuid.New(), "a@b.c", "", testAudience, time.Hour)
	assert.ErrorIs(t, err, ErrEmptyJWTSecret)
}

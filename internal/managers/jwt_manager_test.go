package managers

import (
	"crypto/ed25519"
	"crypto/rand"
	"path/filepath"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestManager(t *testing.T) JWTMgr {
	publicKey, privateKey, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)
	return NewJWTManager(privateKey, publicKey)
}

func TestGenerateTokenPair(t *testing.T) {
	jwtMgr := newTestManager(t)

	pair, err := jwtMgr.GenerateTokenPair("user-1", "testUser")
	require.NoError(t, err)

	assert.NotEmpty(t, pair.AccessToken)
	assert.NotEmpty(t, pair.RefreshToken)
	assert.NotEqual(t, pair.AccessToken, pair.RefreshToken)
	assert.Equal(t, "bearer", pair.TokenType)
	assert.Equal(t, int64(1800), pair.ExpiresIn)

	accessClaims, err := jwtMgr.ValidateJWT(pair.AccessToken, TokenKindAccess)
	require.NoError(t, err)
	assert.Equal(t, "user-1", accessClaims["sub"])
	assert.Equal(t, "testUser", accessClaims["username"])

	refreshClaims, err := jwtMgr.ValidateJWT(pair.RefreshToken, TokenKindRefresh)
	require.NoError(t, err)
	assert.Equal(t, "user-1", refreshClaims["sub"])
}

func TestValidateJWTRejectsWrongKind(t *testing.T) {
	jwtMgr := newTestManager(t)

	pair, err := jwtMgr.GenerateTokenPair("user-1", "testUser")
	require.NoError(t, err)

	_, err = jwtMgr.ValidateJWT(pair.AccessToken, TokenKindRefresh)
	assert.Error(t, err)

	_, err = jwtMgr.ValidateJWT(pair.RefreshToken, TokenKindAccess)
	assert.Error(t, err)
}

func TestValidateJWTRejectsExpiredToken(t *testing.T) {
	publicKey, privateKey, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)
	jwtMgr := NewJWTManager(privateKey, publicKey)

	claims := jwt.MapClaims{
		"iss":      "admin-core",
		"iat":      time.Now().Add(-time.Hour).Unix(),
		"exp":      time.Now().Add(-time.Minute).Unix(),
		"sub":      "user-1",
		"username": "testUser",
		"kind":     TokenKindAccess,
	}
	token := jwt.NewWithClaims(jwt.SigningMethodEdDSA, claims)
	expired, err := token.SignedString(privateKey)
	require.NoError(t, err)

	_, err = jwtMgr.ValidateJWT(expired, TokenKindAccess)
	assert.Error(t, err)
}

func TestValidateJWTRejectsForeignKey(t *testing.T) {
	jwtMgr := newTestManager(t)
	otherMgr := newTestManager(t)

	pair, err := otherMgr.GenerateTokenPair("user-1", "testUser")
	require.NoError(t, err)

	_, err = jwtMgr.ValidateJWT(pair.AccessToken, TokenKindAccess)
	assert.Error(t, err)
}

func TestKeyPairPersistence(t *testing.T) {
	path := filepath.Join(t.TempDir(), "keypair")
	t.Setenv("KEY_PAIR_PATH", path)

	first, err := NewJWTManagerFromFile()
	require.NoError(t, err)

	pair, err := first.GenerateTokenPair("user-1", "testUser")
	require.NoError(t, err)

	// A second manager loading the same file must accept tokens minted by
	// the first.
	second, err := NewJWTManagerFromFile()
	require.NoError(t, err)

	_, err = second.ValidateJWT(pair.AccessToken, TokenKindAccess)
	assert.NoError(t, err)
}

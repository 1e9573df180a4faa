package managers

import (
	"crypto/ed25519"
	"crypto/rand"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"admin-core/internal/schemas"
	"admin-core/internal/utils"
)

// Token kinds embedded in the signed payload. A token minted for one use
// never validates for the other.
const (
	TokenKindAccess  = "access"
	TokenKindRefresh = "refresh"
)

// Token lifetimes. The access lifetime is also reported to clients as
// expires_in (seconds).
const (
	AccessTokenLifetime  = 30 * time.Minute
	RefreshTokenLifetime = 7 * 24 * time.Hour
)

var (
	errWrongTokenKind = errors.New("wrong token kind")
	errMissingClaim   = errors.New("missing claim")
)

// JWTMgr defines the interface for minting and validating signed tokens.
// ValidateJWT takes the expected kind as a mandatory argument so that call
// sites cannot accidentally accept a refresh token where an access token is
// required, or vice versa.
type JWTMgr interface {
	GenerateTokenPair(userId, username string) (*schemas.TokenPairDTO, error)
	ValidateJWT(tokenString, expectedKind string) (jwt.MapClaims, error)
	JWTMiddleware() gin.HandlerFunc
}

// JWTManager handles JWT generation, signing, and validation using an
// Ed25519 key pair.
type JWTManager struct {
	privateKey ed25519.PrivateKey
	publicKey  ed25519.PublicKey
}

// NewJWTManager creates a JWTManager from an existing key pair. Used by
// tests and by NewJWTManagerFromFile.
func NewJWTManager(privateKey ed25519.PrivateKey, publicKey ed25519.PublicKey) JWTMgr {
	return &JWTManager{
		privateKey: privateKey,
		publicKey:  publicKey,
	}
}

// NewJWTManagerFromFile loads the key pair from KEY_PAIR_PATH, generating
// and persisting a fresh pair on first run.
func NewJWTManagerFromFile() (JWTMgr, error) {
	path := os.Getenv("KEY_PAIR_PATH")

	privateKey, publicKey, err := loadKeyPair(path)
	if err != nil {
		privKey, pubKey, err := generateKeyPair(path)
		if err != nil {
			return nil, err
		}

		privateKey = privKey
		publicKey = pubKey
	}

	return NewJWTManager(privateKey, publicKey), nil
}

// GenerateTokenPair mints a fresh access/refresh pair for the given user.
// Both tokens are regenerated on every call, so a refresh rotates the
// refresh token as well.
func (jm *JWTManager) GenerateTokenPair(userId, username string) (*schemas.TokenPairDTO, error) {
	accessToken, err := jm.generateJWT(userId, username, TokenKindAccess, AccessTokenLifetime)
	if err != nil {
		return nil, err
	}

	refreshToken, err := jm.generateJWT(userId, username, TokenKindRefresh, RefreshTokenLifetime)
	if err != nil {
		return nil, err
	}

	return &schemas.TokenPairDTO{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		TokenType:    "bearer",
		ExpiresIn:    int64(AccessTokenLifetime.Seconds()),
	}, nil
}

func (jm *JWTManager) generateJWT(userId, username, kind string, lifetime time.Duration) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"iss":      "admin-core",
		"iat":      now.Unix(),
		"exp":      now.Add(lifetime).Unix(),
		"sub":      userId,
		"username": username,
		"kind":     kind,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodEdDSA, claims)
	return token.SignedString(jm.privateKey)
}

// ValidateJWT validates the given JWT and returns the claims if the
// signature verifies, the token is not expired, and the embedded kind
// matches expectedKind.
func (jm *JWTManager) ValidateJWT(tokenString, expectedKind string) (jwt.MapClaims, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if token.Method.Alg() != jwt.SigningMethodEdDSA.Alg() {
			return nil, fmt.Errorf("invalid signing method")
		}

		return jm.publicKey, nil
	})
	if err != nil {
		return nil, err
	}

	if !token.Valid {
		return nil, jwt.ErrSignatureInvalid
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, errMissingClaim
	}

	kind, _ := claims["kind"].(string)
	if kind != expectedKind {
		return nil, errWrongTokenKind
	}

	return claims, nil
}

// JWTMiddleware gates protected routes. It extracts the bearer credential,
// validates it as an access token, and stores the claims in the request
// context. Every validation failure maps to the same 401 so that callers
// cannot distinguish an expired token from a forged one.
func (jm *JWTManager) JWTMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" || !strings.HasPrefix(header, "Bearer ") {
			utils.WriteAndLogError(c, schemas.Unauthorized, http.StatusUnauthorized, errors.New("missing bearer credential"))
			return
		}

		claims, err := jm.ValidateJWT(strings.TrimPrefix(header, "Bearer "), TokenKindAccess)
		if err != nil {
			utils.WriteAndLogError(c, schemas.Unauthorized, http.StatusUnauthorized, err)
			return
		}

		c.Set(utils.ClaimsKey.String(), claims)
		c.Next()
	}
}

// generateKeyPair generates a new key pair and saves it to a file.
func generateKeyPair(path string) (ed25519.PrivateKey, ed25519.PublicKey, error) {
	publicKey, privateKey, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, nil, err
	}

	if err := saveKeyPair(privateKey, publicKey, path); err != nil {
		return nil, nil, err
	}

	return privateKey, publicKey, nil
}

// saveKeyPair saves the key pair to the specified file.
func saveKeyPair(privateKey ed25519.PrivateKey, publicKey ed25519.PublicKey, path string) error {
	keyPairBytes := append(privateKey, publicKey...)
	return os.WriteFile(path, keyPairBytes, 0600)
}

// loadKeyPair loads the key pair from the specified file.
func loadKeyPair(path string) (ed25519.PrivateKey, ed25519.PublicKey, error) {
	keyPairBytes, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, err
	}

	// The key pair is the concatenation of private and public keys
	if len(keyPairBytes) != ed25519.PrivateKeySize+ed25519.PublicKeySize {
		return nil, nil, fmt.Errorf("invalid key pair format")
	}

	return keyPairBytes[:ed25519.PrivateKeySize], keyPairBytes[ed25519.PrivateKeySize:], nil
}

// Package handlers implements the gin handlers for the API groups.
package handlers

import (
	"errors"
	"math/rand"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"golang.org/x/crypto/bcrypt"

	"admin-core/internal/managers"
	"admin-core/internal/schemas"
	"admin-core/internal/utils"
)

// AuthHdl is the interface for the authentication endpoints.
type AuthHdl interface {
	Register(c *gin.Context)
	VerifyEmail(c *gin.Context)
	Login(c *gin.Context)
	RefreshToken(c *gin.Context)
	ChangePassword(c *gin.Context)
	Logout(c *gin.Context)
}

// AuthHandler implements AuthHdl on top of the database, JWT, mail and
// cache managers.
type AuthHandler struct {
	DatabaseManager managers.DatabaseMgr
	JWTManager      managers.JWTMgr
	MailManager     managers.MailMgr
	CacheManager    managers.CacheMgr
}

func NewAuthHandler(databaseMgr managers.DatabaseMgr, jwtMgr managers.JWTMgr, mailMgr managers.MailMgr, cacheMgr managers.CacheMgr) AuthHdl {
	return &AuthHandler{
		DatabaseManager: databaseMgr,
		JWTManager:      jwtMgr,
		MailManager:     mailMgr,
		CacheManager:    cacheMgr,
	}
}

var errInvalidToken = errors.New("invalid token")

// Register creates a new user account and sends a verification code to the
// user's email address.
func (handler *AuthHandler) Register(c *gin.Context) {
	registrationRequest := c.Value(utils.SanitizedPayloadKey.String()).(*schemas.RegistrationRequest)

	if registrationRequest.Password != registrationRequest.ConfirmPassword {
		utils.WriteAndLogError(c, schemas.PasswordMismatch, http.StatusBadRequest, errors.New("password mismatch"))
		return
	}

	// Check if the email is reachable before touching the database
	if !utils.GetValidator().VerifyEmail(registrationRequest.Email) {
		utils.WriteAndLogError(c, schemas.EmailUnreachable, http.StatusBadRequest, errors.New("email unreachable"))
		return
	}

	tx := utils.BeginTransaction(c, handler.DatabaseManager.GetPool())
	if tx == nil {
		return
	}
	var err error
	defer func() { utils.RollbackTransaction(c, tx, err) }()

	// Check if the username or email is taken
	if err = checkUsernameEmailTaken(c, tx, registrationRequest.Username, registrationRequest.Email); err != nil {
		return
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(registrationRequest.Password), bcrypt.DefaultCost)
	if err != nil {
		utils.WriteAndLogError(c, schemas.InternalServerError, http.StatusInternalServerError, err)
		return
	}

	userId := uuid.New()
	createdAt := time.Now()

	queryString := "INSERT INTO admin_schema.users " +
		"(user_id, username, email, password, full_name, phone, bio, avatar, is_active, is_superuser, is_verified, created_at, updated_at) " +
		"VALUES ($1, $2, $3, $4, $5, $6, $7, $8, true, false, false, $9, $9)"
	if _, err = tx.Exec(c, queryString, userId, registrationRequest.Username, registrationRequest.Email,
		hashedPassword, registrationRequest.FullName, registrationRequest.Phone, registrationRequest.Bio, "", createdAt); err != nil {
		utils.WriteAndLogError(c, schemas.DatabaseError, http.StatusInternalServerError, err)
		return
	}

	// Generate a verification code and mail it to the user
	if err = generateAndSendCode(c, handler, tx, registrationRequest.Email, registrationRequest.Username, userId.String()); err != nil {
		return
	}

	if err = utils.CommitTransaction(c, tx); err != nil {
		return
	}

	userDto := &schemas.UserDTO{
		ID:        &userId,
		Username:  registrationRequest.Username,
		Email:     registrationRequest.Email,
		FullName:  registrationRequest.FullName,
		Phone:     registrationRequest.Phone,
		Bio:       registrationRequest.Bio,
		IsActive:  true,
		CreatedAt: &createdAt,
		UpdatedAt: &createdAt,
	}

	utils.WriteAndLogResponse(c, userDto, http.StatusCreated)
}

// VerifyEmail marks the email address of an account as verified when the
// presented code matches a non-expired verification token.
func (handler *AuthHandler) VerifyEmail(c *gin.Context) {
	tx := utils.BeginTransaction(c, handler.DatabaseManager.GetPool())
	if tx == nil {
		return
	}
	var err error
	defer func() { utils.RollbackTransaction(c, tx, err) }()

	verifyRequest := c.Value(utils.SanitizedPayloadKey.String()).(*schemas.VerifyEmailRequest)

	var userId uuid.UUID
	var username string
	var isVerified bool
	queryString := "SELECT user_id, username, is_verified FROM admin_schema.users WHERE email = $1"
	if err = tx.QueryRow(c, queryString, verifyRequest.Email).Scan(&userId, &username, &isVerified); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			utils.WriteAndLogError(c, schemas.UserNotFound, http.StatusNotFound, err)
			return
		}
		utils.WriteAndLogError(c, schemas.DatabaseError, http.StatusInternalServerError, err)
		return
	}

	if isVerified {
		err = errors.New("already verified")
		utils.WriteAndLogError(c, schemas.AlreadyVerified, http.StatusBadRequest, err)
		return
	}

	if err = checkCodeValidity(c, tx, verifyRequest.Code, userId); err != nil {
		return
	}

	queryString = "UPDATE admin_schema.users SET is_verified = true, updated_at = $1 WHERE user_id = $2"
	if _, err = tx.Exec(c, queryString, time.Now(), userId); err != nil {
		utils.WriteAndLogError(c, schemas.DatabaseError, http.StatusInternalServerError, err)
		return
	}

	queryString = "DELETE FROM admin_schema.verification_tokens WHERE user_id = $1"
	if _, err = tx.Exec(c, queryString, userId); err != nil {
		utils.WriteAndLogError(c, schemas.DatabaseError, http.StatusInternalServerError, err)
		return
	}

	if err = utils.CommitTransaction(c, tx); err != nil {
		return
	}

	// Confirmation mail is a courtesy; its failure does not fail the request.
	if err := handler.MailManager.SendConfirmationMail(verifyRequest.Email, username); err != nil {
		utils.LogMessageWithFieldsAndError(c, "warn", "Error sending confirmation mail", err)
	}

	utils.WriteAndLogResponse(c, &schemas.MessageDTO{Message: "Email verified"}, http.StatusOK)
}

// Login authenticates a user by username or email and returns a fresh token
// pair. Unknown accounts and wrong passwords map to the same 401.
func (handler *AuthHandler) Login(c *gin.Context) {
	tx := utils.BeginTransaction(c, handler.DatabaseManager.GetPool())
	if tx == nil {
		return
	}
	var err error
	defer func() { utils.RollbackTransaction(c, tx, err) }()

	loginRequest := c.Value(utils.SanitizedPayloadKey.String()).(*schemas.LoginRequest)

	var userId uuid.UUID
	var username, hashedPassword string
	var isActive bool
	queryString := "SELECT user_id, username, password, is_active FROM admin_schema.users WHERE username = $1 OR email = $1"
	if err = tx.QueryRow(c, queryString, loginRequest.Username).Scan(&userId, &username, &hashedPassword, &isActive); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			utils.WriteAndLogError(c, schemas.InvalidCredentials, http.StatusUnauthorized, errors.New("unknown user"))
			return
		}
		utils.WriteAndLogError(c, schemas.DatabaseError, http.StatusInternalServerError, err)
		return
	}

	if err = bcrypt.CompareHashAndPassword([]byte(hashedPassword), []byte(loginRequest.Password)); err != nil {
		utils.WriteAndLogError(c, schemas.InvalidCredentials, http.StatusUnauthorized, err)
		return
	}

	if !isActive {
		err = errors.New("user deactivated")
		utils.WriteAndLogError(c, schemas.UserNotActive, http.StatusForbidden, err)
		return
	}

	queryString = "UPDATE admin_schema.users SET last_login_at = $1 WHERE user_id = $2"
	if _, err = tx.Exec(c, queryString, time.Now(), userId); err != nil {
		utils.WriteAndLogError(c, schemas.DatabaseError, http.StatusInternalServerError, err)
		return
	}

	tokenDto, err := handler.JWTManager.GenerateTokenPair(userId.String(), username)
	if err != nil {
		utils.WriteAndLogError(c, schemas.InternalServerError, http.StatusInternalServerError, err)
		return
	}

	if err = utils.CommitTransaction(c, tx); err != nil {
		return
	}

	// Warm the profile cache so the first GET /users/me after login hits Redis.
	if profile, profileErr := queryUser(c, handler.DatabaseManager, userId.String()); profileErr == nil {
		if cacheErr := handler.CacheManager.SetProfile(c, userId.String(), profile); cacheErr != nil {
			utils.LogMessageWithFieldsAndError(c, "warn", "Error caching profile", cacheErr)
		}
	} else {
		utils.LogMessageWithFieldsAndError(c, "warn", "Error loading profile for cache", profileErr)
	}

	utils.WriteAndLogResponse(c, tokenDto, http.StatusOK)
}

// RefreshToken exchanges a valid refresh token for a fresh token pair.
// Both tokens rotate: the response never repeats the presented pair.
// Tokens are stateless, so the presented refresh token stays formally valid
// until its natural expiry; rotation only bounds how long a leaked token is
// worth using.
func (handler *AuthHandler) RefreshToken(c *gin.Context) {
	refreshRequest := c.Value(utils.SanitizedPayloadKey.String()).(*schemas.RefreshTokenRequest)

	claims, err := handler.JWTManager.ValidateJWT(refreshRequest.RefreshToken, managers.TokenKindRefresh)
	if err != nil {
		utils.WriteAndLogError(c, schemas.Unauthorized, http.StatusUnauthorized, err)
		return
	}

	userId, _ := claims["sub"].(string)
	username, _ := claims["username"].(string)
	if userId == "" || username == "" {
		utils.WriteAndLogError(c, schemas.Unauthorized, http.StatusUnauthorized, errInvalidToken)
		return
	}

	// Re-resolve the user: an account deleted or deactivated since issuance
	// must not be able to refresh.
	var isActive bool
	queryString := "SELECT is_active FROM admin_schema.users WHERE user_id = $1"
	if err := handler.DatabaseManager.GetPool().QueryRow(c, queryString, userId).Scan(&isActive); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			utils.WriteAndLogError(c, schemas.Unauthorized, http.StatusUnauthorized, err)
			return
		}
		utils.WriteAndLogError(c, schemas.DatabaseError, http.StatusInternalServerError, err)
		return
	}
	if !isActive {
		utils.WriteAndLogError(c, schemas.Unauthorized, http.StatusUnauthorized, errors.New("user deactivated"))
		return
	}

	tokenDto, err := handler.JWTManager.GenerateTokenPair(userId, username)
	if err != nil {
		utils.WriteAndLogError(c, schemas.InternalServerError, http.StatusInternalServerError, err)
		return
	}

	utils.WriteAndLogResponse(c, tokenDto, http.StatusOK)
}

// ChangePassword changes the password of the authenticated user after
// verifying the current one.
func (handler *AuthHandler) ChangePassword(c *gin.Context) {
	changeRequest := c.Value(utils.SanitizedPayloadKey.String()).(*schemas.ChangePasswordRequest)

	if changeRequest.NewPassword != changeRequest.ConfirmNewPassword {
		utils.WriteAndLogError(c, schemas.PasswordMismatch, http.StatusBadRequest, errors.New("password mismatch"))
		return
	}

	tx := utils.BeginTransaction(c, handler.DatabaseManager.GetPool())
	if tx == nil {
		return
	}
	var err error
	defer func() { utils.RollbackTransaction(c, tx, err) }()

	claims := c.Value(utils.ClaimsKey.String()).(jwt.MapClaims)
	userId := claims["sub"].(string)

	var hashedPassword string
	queryString := "SELECT password FROM admin_schema.users WHERE user_id = $1"
	if err = tx.QueryRow(c, queryString, userId).Scan(&hashedPassword); err != nil {
		utils.WriteAndLogError(c, schemas.DatabaseError, http.StatusInternalServerError, err)
		return
	}

	if err = bcrypt.CompareHashAndPassword([]byte(hashedPassword), []byte(changeRequest.CurrentPassword)); err != nil {
		utils.WriteAndLogError(c, schemas.InvalidCredentials, http.StatusBadRequest, err)
		return
	}

	newHash, err := bcrypt.GenerateFromPassword([]byte(changeRequest.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		utils.WriteAndLogError(c, schemas.InternalServerError, http.StatusInternalServerError, err)
		return
	}

	queryString = "UPDATE admin_schema.users SET password = $1, updated_at = $2 WHERE user_id = $3"
	if _, err = tx.Exec(c, queryString, newHash, time.Now(), userId); err != nil {
		utils.WriteAndLogError(c, schemas.DatabaseError, http.StatusInternalServerError, err)
		return
	}

	if err = utils.CommitTransaction(c, tx); err != nil {
		return
	}

	utils.WriteAndLogResponse(c, &schemas.MessageDTO{Message: "Password changed"}, http.StatusOK)
}

// Logout acknowledges a logout. Tokens are stateless, so nothing is
// invalidated server-side; the client discards its stored pair. A captured
// access token therefore stays valid until its natural expiry.
func (handler *AuthHandler) Logout(c *gin.Context) {
	utils.WriteAndLogResponse(c, &schemas.MessageDTO{Message: "Logged out, discard tokens client-side"}, http.StatusOK)
}

// checkUsernameEmailTaken checks if the username or email is taken.
func checkUsernameEmailTaken(c *gin.Context, tx pgx.Tx, username, email string) error {
	queryString := "SELECT username, email FROM admin_schema.users WHERE username = $1 OR email = $2"
	rows, err := tx.Query(c, queryString, username, email)
	if err != nil {
		utils.WriteAndLogError(c, schemas.DatabaseError, http.StatusInternalServerError, err)
		return err
	}
	defer rows.Close()

	if rows.Next() {
		var foundUsername, foundEmail string
		if err := rows.Scan(&foundUsername, &foundEmail); err != nil {
			utils.WriteAndLogError(c, schemas.DatabaseError, http.StatusInternalServerError, err)
			return err
		}

		customErr := schemas.EmailTaken
		if foundUsername == username {
			customErr = schemas.UsernameTaken
		}

		err = errors.New("username or email taken")
		utils.WriteAndLogError(c, customErr, http.StatusBadRequest, err)
		return err
	}

	return nil
}

// checkCodeValidity checks that the verification code belongs to the user
// and has not expired.
func checkCodeValidity(c *gin.Context, tx pgx.Tx, code string, userId uuid.UUID) error {
	var expiresAt time.Time
	queryString := "SELECT expires_at FROM admin_schema.verification_tokens WHERE token = $1 AND user_id = $2"
	if err := tx.QueryRow(c, queryString, code, userId).Scan(&expiresAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			utils.WriteAndLogError(c, schemas.VerificationCodeInvalid, http.StatusBadRequest, errInvalidToken)
			return errInvalidToken
		}
		utils.WriteAndLogError(c, schemas.DatabaseError, http.StatusInternalServerError, err)
		return err
	}

	if time.Now().After(expiresAt) {
		err := errors.New("code expired")
		utils.WriteAndLogError(c, schemas.VerificationCodeInvalid, http.StatusBadRequest, err)
		return err
	}

	return nil
}

// generateAndSendCode generates a new verification code and mails it to the
// user, replacing any previous code.
func generateAndSendCode(c *gin.Context, handler *AuthHandler, tx pgx.Tx, email, username, userId string) error {
	code := generateCode()
	tokenId := uuid.New()
	expiresAt := time.Now().Add(2 * time.Hour)

	queryString := "DELETE FROM admin_schema.verification_tokens WHERE user_id = $1"
	if _, err := tx.Exec(c, queryString, userId); err != nil {
		utils.WriteAndLogError(c, schemas.DatabaseError, http.StatusInternalServerError, err)
		return err
	}

	queryString = "INSERT INTO admin_schema.verification_tokens (token_id, user_id, token, expires_at) VALUES ($1, $2, $3, $4)"
	if _, err := tx.Exec(c, queryString, tokenId, userId, code, expiresAt); err != nil {
		utils.WriteAndLogError(c, schemas.DatabaseError, http.StatusInternalServerError, err)
		return err
	}

	if err := handler.MailManager.SendVerificationMail(email, username, code); err != nil {
		utils.WriteAndLogError(c, schemas.EmailNotSent, http.StatusInternalServerError, err)
		return err
	}

	return nil
}

// generateCode generates a random 6-digit verification code.
func generateCode() string {
	return strconv.Itoa(rand.Intn(900000) + 100000)
}

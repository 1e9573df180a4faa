package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"admin-core/internal/managers"
	"admin-core/internal/schemas"
	"admin-core/internal/utils"
)

// UserHdl is the interface for the user profile and administration endpoints.
type UserHdl interface {
	GetMe(c *gin.Context)
	UpdateMe(c *gin.Context)
	GetUser(c *gin.Context)
	ListUsers(c *gin.Context)
	ActivateUser(c *gin.Context)
	DeactivateUser(c *gin.Context)
}

// UserHandler implements UserHdl. Profile reads go through the cache;
// profile mutations invalidate it.
type UserHandler struct {
	DatabaseManager managers.DatabaseMgr
	CacheManager    managers.CacheMgr
}

func NewUserHandler(databaseMgr managers.DatabaseMgr, cacheMgr managers.CacheMgr) UserHdl {
	return &UserHandler{
		DatabaseManager: databaseMgr,
		CacheManager:    cacheMgr,
	}
}

// GetMe returns the profile of the authenticated user, served from the
// cache when possible.
func (handler *UserHandler) GetMe(c *gin.Context) {
	claims := c.Value(utils.ClaimsKey.String()).(jwt.MapClaims)
	userId := claims["sub"].(string)

	if cached, err := handler.CacheManager.GetProfile(c, userId); err == nil {
		utils.WriteAndLogResponse(c, cached, http.StatusOK)
		return
	}

	userDto, err := fetchUser(c, handler.DatabaseManager, userId)
	if err != nil {
		return
	}

	if err := handler.CacheManager.SetProfile(c, userId, userDto); err != nil {
		utils.LogMessageWithFieldsAndError(c, "warn", "Error caching profile", err)
	}

	utils.WriteAndLogResponse(c, userDto, http.StatusOK)
}

// UpdateMe updates the mutable profile fields of the authenticated user
// and refreshes the cached profile.
func (handler *UserHandler) UpdateMe(c *gin.Context) {
	tx := utils.BeginTransaction(c, handler.DatabaseManager.GetPool())
	if tx == nil {
		return
	}
	var err error
	defer func() { utils.RollbackTransaction(c, tx, err) }()

	updateRequest := c.Value(utils.SanitizedPayloadKey.String()).(*schemas.UpdateProfileRequest)

	claims := c.Value(utils.ClaimsKey.String()).(jwt.MapClaims)
	userId := claims["sub"].(string)

	queryString := "UPDATE admin_schema.users SET full_name = $1, phone = $2, bio = $3, avatar = $4, updated_at = $5 WHERE user_id = $6"
	if _, err = tx.Exec(c, queryString, updateRequest.FullName, updateRequest.Phone, updateRequest.Bio,
		updateRequest.Avatar, time.Now(), userId); err != nil {
		utils.WriteAndLogError(c, schemas.DatabaseError, http.StatusInternalServerError, err)
		return
	}

	if err = utils.CommitTransaction(c, tx); err != nil {
		return
	}

	if err := handler.CacheManager.InvalidateProfile(c, userId); err != nil {
		utils.LogMessageWithFieldsAndError(c, "warn", "Error invalidating cached profile", err)
	}

	userDto, err := fetchUser(c, handler.DatabaseManager, userId)
	if err != nil {
		return
	}

	if err := handler.CacheManager.SetProfile(c, userId, userDto); err != nil {
		utils.LogMessageWithFieldsAndError(c, "warn", "Error caching profile", err)
	}

	utils.WriteAndLogResponse(c, userDto, http.StatusOK)
}

// GetUser returns a user by id. Restricted to superusers by the router.
func (handler *UserHandler) GetUser(c *gin.Context) {
	userId := c.Param(utils.UserIdKey)

	userDto, err := fetchUser(c, handler.DatabaseManager, userId)
	if err != nil {
		return
	}

	utils.WriteAndLogResponse(c, userDto, http.StatusOK)
}

// ListUsers returns a page of users, optionally filtered by a username or
// email substring. Restricted to superusers by the router.
func (handler *UserHandler) ListUsers(c *gin.Context) {
	offset, limit := utils.ParsePaginationParams(c)
	search := c.Query(utils.QueryParamKey)
	pool := handler.DatabaseManager.GetPool()

	filter := "%" + search + "%"

	var totalRecords int
	queryString := "SELECT COUNT(*) FROM admin_schema.users WHERE username ILIKE $1 OR email ILIKE $1"
	if err := pool.QueryRow(c, queryString, filter).Scan(&totalRecords); err != nil {
		utils.WriteAndLogError(c, schemas.DatabaseError, http.StatusInternalServerError, err)
		return
	}

	queryString = "SELECT user_id, username, email, full_name, phone, bio, avatar, is_active, is_verified, is_superuser, " +
		"created_at, updated_at, last_login_at FROM admin_schema.users " +
		"WHERE username ILIKE $1 OR email ILIKE $1 ORDER BY created_at DESC OFFSET $2 LIMIT $3"
	rows, err := pool.Query(c, queryString, filter, offset, limit)
	if err != nil {
		utils.WriteAndLogError(c, schemas.DatabaseError, http.StatusInternalServerError, err)
		return
	}
	defer rows.Close()

	users := make([]schemas.UserDTO, 0, limit)
	for rows.Next() {
		var user schemas.UserDTO
		if err := rows.Scan(&user.ID, &user.Username, &user.Email, &user.FullName, &user.Phone, &user.Bio,
			&user.Avatar, &user.IsActive, &user.IsVerified, &user.IsSuperuser,
			&user.CreatedAt, &user.UpdatedAt, &user.LastLoginAt); err != nil {
			utils.WriteAndLogError(c, schemas.DatabaseError, http.StatusInternalServerError, err)
			return
		}
		users = append(users, user)
	}

	utils.SendPaginatedResponse(c, users, offset, limit, totalRecords)
}

// ActivateUser re-enables a deactivated account.
func (handler *UserHandler) ActivateUser(c *gin.Context) {
	handler.setActive(c, true)
}

// DeactivateUser disables an account. The user keeps any already issued
// tokens until expiry, but capability checks and refresh reject them.
func (handler *UserHandler) DeactivateUser(c *gin.Context) {
	handler.setActive(c, false)
}

func (handler *UserHandler) setActive(c *gin.Context, active bool) {
	tx := utils.BeginTransaction(c, handler.DatabaseManager.GetPool())
	if tx == nil {
		return
	}
	var err error
	defer func() { utils.RollbackTransaction(c, tx, err) }()

	userId := c.Param(utils.UserIdKey)

	claims := c.Value(utils.ClaimsKey.String()).(jwt.MapClaims)
	if !active && claims["sub"].(string) == userId {
		err = errors.New("self deactivation")
		utils.WriteAndLogError(c, schemas.BadRequest, http.StatusBadRequest, err)
		return
	}

	queryString := "UPDATE admin_schema.users SET is_active = $1, updated_at = $2 WHERE user_id = $3"
	commandTag, err := tx.Exec(c, queryString, active, time.Now(), userId)
	if err != nil {
		utils.WriteAndLogError(c, schemas.DatabaseError, http.StatusInternalServerError, err)
		return
	}
	if commandTag.RowsAffected() == 0 {
		err = errors.New("user not found")
		utils.WriteAndLogError(c, schemas.UserNotFound, http.StatusNotFound, err)
		return
	}

	if err = utils.CommitTransaction(c, tx); err != nil {
		return
	}

	if err := handler.CacheManager.InvalidateProfile(c, userId); err != nil {
		utils.LogMessageWithFieldsAndError(c, "warn", "Error invalidating cached profile", err)
	}

	utils.WriteAndLogResponse(c, &schemas.MessageDTO{Message: "User updated"}, http.StatusOK)
}

// fetchUser loads a user row into a UserDTO. On failure the error response
// has already been written.
func fetchUser(c *gin.Context, databaseMgr managers.DatabaseMgr, userId string) (*schemas.UserDTO, error) {
	if _, err := uuid.Parse(userId); err != nil {
		utils.WriteAndLogError(c, schemas.BadRequest, http.StatusBadRequest, err)
		return nil, err
	}

	user, err := queryUser(c, databaseMgr, userId)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			utils.WriteAndLogError(c, schemas.UserNotFound, http.StatusNotFound, err)
			return nil, err
		}
		utils.WriteAndLogError(c, schemas.DatabaseError, http.StatusInternalServerError, err)
		return nil, err
	}

	return user, nil
}

// queryUser loads a user row into a UserDTO without writing a response,
// so callers that only need the profile as a side effect can ignore errors.
func queryUser(c *gin.Context, databaseMgr managers.DatabaseMgr, userId string) (*schemas.UserDTO, error) {
	var user schemas.UserDTO
	queryString := "SELECT user_id, username, email, full_name, phone, bio, avatar, is_active, is_verified, is_superuser, " +
		"created_at, updated_at, last_login_at FROM admin_schema.users WHERE user_id = $1"
	err := databaseMgr.GetPool().QueryRow(c, queryString, userId).Scan(&user.ID, &user.Username, &user.Email,
		&user.FullName, &user.Phone, &user.Bio, &user.Avatar, &user.IsActive, &user.IsVerified, &user.IsSuperuser,
		&user.CreatedAt, &user.UpdatedAt, &user.LastLoginAt)
	if err != nil {
		return nil, err
	}

	return &user, nil
}

package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"admin-core/internal/managers"
	"admin-core/internal/schemas"
	"admin-core/internal/utils"
)

// RoleHdl is the interface for the role endpoints.
type RoleHdl interface {
	CreateRole(c *gin.Context)
	ListRoles(c *gin.Context)
	GetRole(c *gin.Context)
	UpdateRole(c *gin.Context)
	DeleteRole(c *gin.Context)
	AssignRole(c *gin.Context)
	UnassignRole(c *gin.Context)
}

// RoleHandler implements RoleHdl. System roles are seeded at migration
// time and rejected by every mutating operation.
type RoleHandler struct {
	DatabaseManager managers.DatabaseMgr
}

func NewRoleHandler(databaseMgr managers.DatabaseMgr) RoleHdl {
	return &RoleHandler{DatabaseManager: databaseMgr}
}

// CreateRole creates a role with a unique code.
func (handler *RoleHandler) CreateRole(c *gin.Context) {
	tx := utils.BeginTransaction(c, handler.DatabaseManager.GetPool())
	if tx == nil {
		return
	}
	var err error
	defer func() { utils.RollbackTransaction(c, tx, err) }()

	createRequest := c.Value(utils.SanitizedPayloadKey.String()).(*schemas.CreateRoleRequest)

	var exists bool
	queryString := "SELECT EXISTS(SELECT 1 FROM admin_schema.roles WHERE code = $1)"
	if err = tx.QueryRow(c, queryString, createRequest.Code).Scan(&exists); err != nil {
		utils.WriteAndLogError(c, schemas.DatabaseError, http.StatusInternalServerError, err)
		return
	}
	if exists {
		err = errors.New("role code taken")
		utils.WriteAndLogError(c, schemas.RoleCodeTaken, http.StatusBadRequest, err)
		return
	}

	roleId := uuid.New()
	createdAt := time.Now()

	queryString = "INSERT INTO admin_schema.roles (role_id, name, code, description, is_active, is_system, created_at, updated_at) " +
		"VALUES ($1, $2, $3, $4, true, false, $5, $5)"
	if _, err = tx.Exec(c, queryString, roleId, createRequest.Name, createRequest.Code,
		createRequest.Description, createdAt); err != nil {
		utils.WriteAndLogError(c, schemas.DatabaseError, http.StatusInternalServerError, err)
		return
	}

	if err = utils.CommitTransaction(c, tx); err != nil {
		return
	}

	role := &schemas.Role{
		ID:          &roleId,
		Name:        createRequest.Name,
		Code:        createRequest.Code,
		Description: createRequest.Description,
		IsActive:    true,
		CreatedAt:   &createdAt,
		UpdatedAt:   &createdAt,
	}

	utils.WriteAndLogResponse(c, role, http.StatusCreated)
}

// ListRoles returns a page of roles.
func (handler *RoleHandler) ListRoles(c *gin.Context) {
	offset, limit := utils.ParsePaginationParams(c)
	pool := handler.DatabaseManager.GetPool()

	var totalRecords int
	if err := pool.QueryRow(c, "SELECT COUNT(*) FROM admin_schema.roles").Scan(&totalRecords); err != nil {
		utils.WriteAndLogError(c, schemas.DatabaseError, http.StatusInternalServerError, err)
		return
	}

	queryString := "SELECT role_id, name, code, description, is_active, is_system, created_at, updated_at " +
		"FROM admin_schema.roles ORDER BY code OFFSET $1 LIMIT $2"
	rows, err := pool.Query(c, queryString, offset, limit)
	if err != nil {
		utils.WriteAndLogError(c, schemas.DatabaseError, http.StatusInternalServerError, err)
		return
	}
	defer rows.Close()

	roles := make([]schemas.Role, 0, limit)
	for rows.Next() {
		var role schemas.Role
		if err := rows.Scan(&role.ID, &role.Name, &role.Code, &role.Description, &role.IsActive, &role.IsSystem,
			&role.CreatedAt, &role.UpdatedAt); err != nil {
			utils.WriteAndLogError(c, schemas.DatabaseError, http.StatusInternalServerError, err)
			return
		}
		roles = append(roles, role)
	}

	utils.SendPaginatedResponse(c, roles, offset, limit, totalRecords)
}

// GetRole returns a role by id.
func (handler *RoleHandler) GetRole(c *gin.Context) {
	roleId := c.Param(utils.RoleIdKey)
	if _, err := uuid.Parse(roleId); err != nil {
		utils.WriteAndLogError(c, schemas.BadRequest, http.StatusBadRequest, err)
		return
	}

	var role schemas.Role
	queryString := "SELECT role_id, name, code, description, is_active, is_system, created_at, updated_at " +
		"FROM admin_schema.roles WHERE role_id = $1"
	err := handler.DatabaseManager.GetPool().QueryRow(c, queryString, roleId).Scan(&role.ID, &role.Name,
		&role.Code, &role.Description, &role.IsActive, &role.IsSystem, &role.CreatedAt, &role.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			utils.WriteAndLogError(c, schemas.RoleNotFound, http.StatusNotFound, err)
			return
		}
		utils.WriteAndLogError(c, schemas.DatabaseError, http.StatusInternalServerError, err)
		return
	}

	utils.WriteAndLogResponse(c, &role, http.StatusOK)
}

// UpdateRole mutates the name, description and active flag of a role.
// The code is immutable and system roles reject any mutation.
func (handler *RoleHandler) UpdateRole(c *gin.Context) {
	tx := utils.BeginTransaction(c, handler.DatabaseManager.GetPool())
	if tx == nil {
		return
	}
	var err error
	defer func() { utils.RollbackTransaction(c, tx, err) }()

	roleId := c.Param(utils.RoleIdKey)
	if err = checkRoleMutable(c, tx, roleId); err != nil {
		return
	}

	updateRequest := c.Value(utils.SanitizedPayloadKey.String()).(*schemas.UpdateRoleRequest)

	queryString := "UPDATE admin_schema.roles SET name = $1, description = $2, is_active = $3, updated_at = $4 WHERE role_id = $5"
	if _, err = tx.Exec(c, queryString, updateRequest.Name, updateRequest.Description, *updateRequest.IsActive,
		time.Now(), roleId); err != nil {
		utils.WriteAndLogError(c, schemas.DatabaseError, http.StatusInternalServerError, err)
		return
	}

	if err = utils.CommitTransaction(c, tx); err != nil {
		return
	}

	utils.WriteAndLogResponse(c, &schemas.MessageDTO{Message: "Role updated"}, http.StatusOK)
}

// DeleteRole removes a role and all its assignments. System roles cannot
// be deleted.
func (handler *RoleHandler) DeleteRole(c *gin.Context) {
	tx := utils.BeginTransaction(c, handler.DatabaseManager.GetPool())
	if tx == nil {
		return
	}
	var err error
	defer func() { utils.RollbackTransaction(c, tx, err) }()

	roleId := c.Param(utils.RoleIdKey)
	if err = checkRoleMutable(c, tx, roleId); err != nil {
		return
	}

	queryString := "DELETE FROM admin_schema.user_roles WHERE role_id = $1"
	if _, err = tx.Exec(c, queryString, roleId); err != nil {
		utils.WriteAndLogError(c, schemas.DatabaseError, http.StatusInternalServerError, err)
		return
	}

	queryString = "DELETE FROM admin_schema.roles WHERE role_id = $1"
	if _, err = tx.Exec(c, queryString, roleId); err != nil {
		utils.WriteAndLogError(c, schemas.DatabaseError, http.StatusInternalServerError, err)
		return
	}

	if err = utils.CommitTransaction(c, tx); err != nil {
		return
	}

	utils.WriteAndLogResponse(c, &schemas.MessageDTO{Message: "Role deleted"}, http.StatusOK)
}

// AssignRole attaches a role to a user. Assigning an already assigned role
// is idempotent.
func (handler *RoleHandler) AssignRole(c *gin.Context) {
	tx := utils.BeginTransaction(c, handler.DatabaseManager.GetPool())
	if tx == nil {
		return
	}
	var err error
	defer func() { utils.RollbackTransaction(c, tx, err) }()

	roleId := c.Param(utils.RoleIdKey)
	if _, err = uuid.Parse(roleId); err != nil {
		utils.WriteAndLogError(c, schemas.BadRequest, http.StatusBadRequest, err)
		return
	}

	assignRequest := c.Value(utils.SanitizedPayloadKey.String()).(*schemas.AssignRoleRequest)

	var exists bool
	queryString := "SELECT EXISTS(SELECT 1 FROM admin_schema.roles WHERE role_id = $1)"
	if err = tx.QueryRow(c, queryString, roleId).Scan(&exists); err != nil {
		utils.WriteAndLogError(c, schemas.DatabaseError, http.StatusInternalServerError, err)
		return
	}
	if !exists {
		err = errors.New("role not found")
		utils.WriteAndLogError(c, schemas.RoleNotFound, http.StatusNotFound, err)
		return
	}

	queryString = "SELECT EXISTS(SELECT 1 FROM admin_schema.users WHERE user_id = $1)"
	if err = tx.QueryRow(c, queryString, assignRequest.UserID).Scan(&exists); err != nil {
		utils.WriteAndLogError(c, schemas.DatabaseError, http.StatusInternalServerError, err)
		return
	}
	if !exists {
		err = errors.New("user not found")
		utils.WriteAndLogError(c, schemas.UserNotFound, http.StatusNotFound, err)
		return
	}

	queryString = "INSERT INTO admin_schema.user_roles (user_id, role_id, assigned_at) VALUES ($1, $2, $3) " +
		"ON CONFLICT (user_id, role_id) DO NOTHING"
	if _, err = tx.Exec(c, queryString, assignRequest.UserID, roleId, time.Now()); err != nil {
		utils.WriteAndLogError(c, schemas.DatabaseError, http.StatusInternalServerError, err)
		return
	}

	if err = utils.CommitTransaction(c, tx); err != nil {
		return
	}

	assignmentDto := &schemas.RoleAssignmentDTO{
		RoleID: uuid.MustParse(roleId),
		UserID: uuid.MustParse(assignRequest.UserID),
	}

	utils.WriteAndLogResponse(c, assignmentDto, http.StatusOK)
}

// UnassignRole detaches a role from a user.
func (handler *RoleHandler) UnassignRole(c *gin.Context) {
	tx := utils.BeginTransaction(c, handler.DatabaseManager.GetPool())
	if tx == nil {
		return
	}
	var err error
	defer func() { utils.RollbackTransaction(c, tx, err) }()

	roleId := c.Param(utils.RoleIdKey)
	userId := c.Param(utils.UserIdKey)
	if _, err = uuid.Parse(roleId); err != nil {
		utils.WriteAndLogError(c, schemas.BadRequest, http.StatusBadRequest, err)
		return
	}
	if _, err = uuid.Parse(userId); err != nil {
		utils.WriteAndLogError(c, schemas.BadRequest, http.StatusBadRequest, err)
		return
	}

	queryString := "DELETE FROM admin_schema.user_roles WHERE user_id = $1 AND role_id = $2"
	commandTag, err := tx.Exec(c, queryString, userId, roleId)
	if err != nil {
		utils.WriteAndLogError(c, schemas.DatabaseError, http.StatusInternalServerError, err)
		return
	}
	if commandTag.RowsAffected() == 0 {
		err = errors.New("assignment not found")
		utils.WriteAndLogError(c, schemas.RoleNotFound, http.StatusNotFound, err)
		return
	}

	if err = utils.CommitTransaction(c, tx); err != nil {
		return
	}

	utils.WriteAndLogResponse(c, &schemas.MessageDTO{Message: "Role unassigned"}, http.StatusOK)
}

// checkRoleMutable verifies that the role exists and is not a system role.
func checkRoleMutable(c *gin.Context, tx pgx.Tx, roleId string) error {
	if _, err := uuid.Parse(roleId); err != nil {
		utils.WriteAndLogError(c, schemas.BadRequest, http.StatusBadRequest, err)
		return err
	}

	var isSystem bool
	queryString := "SELECT is_system FROM admin_schema.roles WHERE role_id = $1"
	if err := tx.QueryRow(c, queryString, roleId).Scan(&isSystem); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			utils.WriteAndLogError(c, schemas.RoleNotFound, http.StatusNotFound, err)
			return err
		}
		utils.WriteAndLogError(c, schemas.DatabaseError, http.StatusInternalServerError, err)
		return err
	}

	if isSystem {
		err := errors.New("system role")
		utils.WriteAndLogError(c, schemas.SystemRoleImmutable, http.StatusBadRequest, err)
		return err
	}

	return nil
}

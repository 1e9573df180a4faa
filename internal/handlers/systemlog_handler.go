package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"admin-core/internal/managers"
	"admin-core/internal/schemas"
	"admin-core/internal/utils"
)

// SystemLogHdl is the interface for the audit trail endpoints. The trail
// is append-only, so reads are all there is.
type SystemLogHdl interface {
	ListLogs(c *gin.Context)
	GetLog(c *gin.Context)
}

// SystemLogHandler implements SystemLogHdl.
type SystemLogHandler struct {
	DatabaseManager managers.DatabaseMgr
}

func NewSystemLogHandler(databaseMgr managers.DatabaseMgr) SystemLogHdl {
	return &SystemLogHandler{DatabaseManager: databaseMgr}
}

// ListLogs returns a page of audit trail entries, newest first, optionally
// filtered by level and username.
func (handler *SystemLogHandler) ListLogs(c *gin.Context) {
	offset, limit := utils.ParsePaginationParams(c)
	level := c.Query(utils.LevelParamKey)
	username := c.Query(utils.UsernameParamKey)
	pool := handler.DatabaseManager.GetPool()

	filterClause := "WHERE ($1 = '' OR level = $1) AND ($2 = '' OR username = $2)"

	var totalRecords int
	queryString := "SELECT COUNT(*) FROM admin_schema.system_logs " + filterClause
	if err := pool.QueryRow(c, queryString, level, username).Scan(&totalRecords); err != nil {
		utils.WriteAndLogError(c, schemas.DatabaseError, http.StatusInternalServerError, err)
		return
	}

	queryString = "SELECT log_id, user_id, username, level, action, method, path, status_code, ip_address, " +
		"user_agent, duration, created_at FROM admin_schema.system_logs " + filterClause +
		" ORDER BY created_at DESC OFFSET $3 LIMIT $4"
	rows, err := pool.Query(c, queryString, level, username, offset, limit)
	if err != nil {
		utils.WriteAndLogError(c, schemas.DatabaseError, http.StatusInternalServerError, err)
		return
	}
	defer rows.Close()

	logs := make([]schemas.SystemLog, 0, limit)
	for rows.Next() {
		var entry schemas.SystemLog
		if err := rows.Scan(&entry.ID, &entry.UserID, &entry.Username, &entry.Level, &entry.Action, &entry.Method,
			&entry.Path, &entry.StatusCode, &entry.IPAddress, &entry.UserAgent, &entry.Duration,
			&entry.CreatedAt); err != nil {
			utils.WriteAndLogError(c, schemas.DatabaseError, http.StatusInternalServerError, err)
			return
		}
		logs = append(logs, entry)
	}

	utils.SendPaginatedResponse(c, logs, offset, limit, totalRecords)
}

// GetLog returns a single audit trail entry by id.
func (handler *SystemLogHandler) GetLog(c *gin.Context) {
	logId := c.Param(utils.LogIdKey)
	if _, err := uuid.Parse(logId); err != nil {
		utils.WriteAndLogError(c, schemas.BadRequest, http.StatusBadRequest, err)
		return
	}

	var entry schemas.SystemLog
	queryString := "SELECT log_id, user_id, username, level, action, method, path, status_code, ip_address, " +
		"user_agent, duration, created_at FROM admin_schema.system_logs WHERE log_id = $1"
	err := handler.DatabaseManager.GetPool().QueryRow(c, queryString, logId).Scan(&entry.ID, &entry.UserID,
		&entry.Username, &entry.Level, &entry.Action, &entry.Method, &entry.Path, &entry.StatusCode,
		&entry.IPAddress, &entry.UserAgent, &entry.Duration, &entry.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			utils.WriteAndLogError(c, schemas.LogNotFound, http.StatusNotFound, err)
			return
		}
		utils.WriteAndLogError(c, schemas.DatabaseError, http.StatusInternalServerError, err)
		return
	}

	utils.WriteAndLogResponse(c, &entry, http.StatusOK)
}

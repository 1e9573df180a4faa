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

// EmployeeHdl is the interface for the employee endpoints.
type EmployeeHdl interface {
	CreateEmployee(c *gin.Context)
	ListEmployees(c *gin.Context)
	GetEmployee(c *gin.Context)
	UpdateEmployee(c *gin.Context)
	DeleteEmployee(c *gin.Context)
}

// EmployeeHandler implements EmployeeHdl.
type EmployeeHandler struct {
	DatabaseManager managers.DatabaseMgr
}

func NewEmployeeHandler(databaseMgr managers.DatabaseMgr) EmployeeHdl {
	return &EmployeeHandler{DatabaseManager: databaseMgr}
}

// CreateEmployee creates the HR record for an existing user account. New
// hires start in probation status.
func (handler *EmployeeHandler) CreateEmployee(c *gin.Context) {
	tx := utils.BeginTransaction(c, handler.DatabaseManager.GetPool())
	if tx == nil {
		return
	}
	var err error
	defer func() { utils.RollbackTransaction(c, tx, err) }()

	createRequest := c.Value(utils.SanitizedPayloadKey.String()).(*schemas.CreateEmployeeRequest)

	var exists bool
	queryString := "SELECT EXISTS(SELECT 1 FROM admin_schema.employees WHERE employee_no = $1)"
	if err = tx.QueryRow(c, queryString, createRequest.EmployeeNo).Scan(&exists); err != nil {
		utils.WriteAndLogError(c, schemas.DatabaseError, http.StatusInternalServerError, err)
		return
	}
	if exists {
		err = errors.New("employee number taken")
		utils.WriteAndLogError(c, schemas.EmployeeNumberTaken, http.StatusBadRequest, err)
		return
	}

	queryString = "SELECT EXISTS(SELECT 1 FROM admin_schema.users WHERE user_id = $1)"
	if err = tx.QueryRow(c, queryString, createRequest.UserID).Scan(&exists); err != nil {
		utils.WriteAndLogError(c, schemas.DatabaseError, http.StatusInternalServerError, err)
		return
	}
	if !exists {
		err = errors.New("user not found")
		utils.WriteAndLogError(c, schemas.UserNotFound, http.StatusBadRequest, err)
		return
	}

	var departmentId interface{}
	if createRequest.DepartmentID != "" {
		queryString = "SELECT EXISTS(SELECT 1 FROM admin_schema.departments WHERE department_id = $1)"
		if err = tx.QueryRow(c, queryString, createRequest.DepartmentID).Scan(&exists); err != nil {
			utils.WriteAndLogError(c, schemas.DatabaseError, http.StatusInternalServerError, err)
			return
		}
		if !exists {
			err = errors.New("department not found")
			utils.WriteAndLogError(c, schemas.DepartmentNotFound, http.StatusBadRequest, err)
			return
		}
		departmentId = createRequest.DepartmentID
	}

	hireDate := time.Now()
	if createRequest.HireDate != "" {
		// Format validated upstream.
		hireDate, _ = time.Parse("2006-01-02", createRequest.HireDate)
	}

	employeeId := uuid.New()
	createdAt := time.Now()

	queryString = "INSERT INTO admin_schema.employees " +
		"(employee_id, employee_no, user_id, name, department_id, position, hire_date, status, created_at, updated_at) " +
		"VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $9)"
	if _, err = tx.Exec(c, queryString, employeeId, createRequest.EmployeeNo, createRequest.UserID,
		createRequest.Name, departmentId, createRequest.Position, hireDate,
		schemas.EmployeeStatusProbation, createdAt); err != nil {
		utils.WriteAndLogError(c, schemas.DatabaseError, http.StatusInternalServerError, err)
		return
	}

	if err = utils.CommitTransaction(c, tx); err != nil {
		return
	}

	userId := uuid.MustParse(createRequest.UserID)
	employee := schemas.Employee{
		ID:         &employeeId,
		EmployeeNo: createRequest.EmployeeNo,
		UserID:     &userId,
		Name:       createRequest.Name,
		Position:   createRequest.Position,
		HireDate:   &hireDate,
		Status:     schemas.EmployeeStatusProbation,
		CreatedAt:  &createdAt,
		UpdatedAt:  &createdAt,
	}
	if createRequest.DepartmentID != "" {
		id := uuid.MustParse(createRequest.DepartmentID)
		employee.DepartmentID = &id
	}

	utils.WriteAndLogResponse(c, &schemas.EmployeeDTO{Employee: employee}, http.StatusCreated)
}

// ListEmployees returns a page of employees, optionally filtered by
// department and by a name or employee number substring.
func (handler *EmployeeHandler) ListEmployees(c *gin.Context) {
	offset, limit := utils.ParsePaginationParams(c)
	search := "%" + c.Query(utils.QueryParamKey) + "%"
	department := c.Query(utils.DepartmentParamKey)
	pool := handler.DatabaseManager.GetPool()

	filterClause := "WHERE (e.name ILIKE $1 OR e.employee_no ILIKE $1)"
	countArgs := []interface{}{search}
	if department != "" {
		if _, err := uuid.Parse(department); err != nil {
			utils.WriteAndLogError(c, schemas.BadRequest, http.StatusBadRequest, err)
			return
		}
		filterClause += " AND e.department_id = $2"
		countArgs = append(countArgs, department)
	}

	var totalRecords int
	queryString := "SELECT COUNT(*) FROM admin_schema.employees e " + filterClause
	if err := pool.QueryRow(c, queryString, countArgs...).Scan(&totalRecords); err != nil {
		utils.WriteAndLogError(c, schemas.DatabaseError, http.StatusInternalServerError, err)
		return
	}

	pageArgs := append(countArgs, offset, limit)
	queryString = "SELECT e.employee_id, e.employee_no, e.user_id, e.name, e.department_id, e.position, " +
		"e.hire_date, e.status, e.created_at, e.updated_at, COALESCE(d.name, '') " +
		"FROM admin_schema.employees e " +
		"LEFT JOIN admin_schema.departments d ON d.department_id = e.department_id " +
		filterClause
	if department != "" {
		queryString += " ORDER BY e.employee_no OFFSET $3 LIMIT $4"
	} else {
		queryString += " ORDER BY e.employee_no OFFSET $2 LIMIT $3"
	}

	rows, err := pool.Query(c, queryString, pageArgs...)
	if err != nil {
		utils.WriteAndLogError(c, schemas.DatabaseError, http.StatusInternalServerError, err)
		return
	}
	defer rows.Close()

	employees := make([]schemas.EmployeeDTO, 0, limit)
	for rows.Next() {
		var dto schemas.EmployeeDTO
		if err := rows.Scan(&dto.ID, &dto.EmployeeNo, &dto.UserID, &dto.Name, &dto.DepartmentID, &dto.Position,
			&dto.HireDate, &dto.Status, &dto.CreatedAt, &dto.UpdatedAt, &dto.DepartmentName); err != nil {
			utils.WriteAndLogError(c, schemas.DatabaseError, http.StatusInternalServerError, err)
			return
		}
		employees = append(employees, dto)
	}

	utils.SendPaginatedResponse(c, employees, offset, limit, totalRecords)
}

// GetEmployee returns an employee by id with its department name.
func (handler *EmployeeHandler) GetEmployee(c *gin.Context) {
	employeeId := c.Param(utils.EmployeeIdKey)
	if _, err := uuid.Parse(employeeId); err != nil {
		utils.WriteAndLogError(c, schemas.BadRequest, http.StatusBadRequest, err)
		return
	}

	var dto schemas.EmployeeDTO
	queryString := "SELECT e.employee_id, e.employee_no, e.user_id, e.name, e.department_id, e.position, " +
		"e.hire_date, e.status, e.created_at, e.updated_at, COALESCE(d.name, '') " +
		"FROM admin_schema.employees e " +
		"LEFT JOIN admin_schema.departments d ON d.department_id = e.department_id " +
		"WHERE e.employee_id = $1"
	err := handler.DatabaseManager.GetPool().QueryRow(c, queryString, employeeId).Scan(&dto.ID, &dto.EmployeeNo,
		&dto.UserID, &dto.Name, &dto.DepartmentID, &dto.Position, &dto.HireDate, &dto.Status,
		&dto.CreatedAt, &dto.UpdatedAt, &dto.DepartmentName)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			utils.WriteAndLogError(c, schemas.EmployeeNotFound, http.StatusNotFound, err)
			return
		}
		utils.WriteAndLogError(c, schemas.DatabaseError, http.StatusInternalServerError, err)
		return
	}

	utils.WriteAndLogResponse(c, &dto, http.StatusOK)
}

// UpdateEmployee mutates the name, department, position and status of an
// employee. The employee number and linked user are immutable.
func (handler *EmployeeHandler) UpdateEmployee(c *gin.Context) {
	tx := utils.BeginTransaction(c, handler.DatabaseManager.GetPool())
	if tx == nil {
		return
	}
	var err error
	defer func() { utils.RollbackTransaction(c, tx, err) }()

	employeeId := c.Param(utils.EmployeeIdKey)
	if _, err = uuid.Parse(employeeId); err != nil {
		utils.WriteAndLogError(c, schemas.BadRequest, http.StatusBadRequest, err)
		return
	}

	updateRequest := c.Value(utils.SanitizedPayloadKey.String()).(*schemas.UpdateEmployeeRequest)

	var departmentId interface{}
	if updateRequest.DepartmentID != "" {
		var exists bool
		queryString := "SELECT EXISTS(SELECT 1 FROM admin_schema.departments WHERE department_id = $1)"
		if err = tx.QueryRow(c, queryString, updateRequest.DepartmentID).Scan(&exists); err != nil {
			utils.WriteAndLogError(c, schemas.DatabaseError, http.StatusInternalServerError, err)
			return
		}
		if !exists {
			err = errors.New("department not found")
			utils.WriteAndLogError(c, schemas.DepartmentNotFound, http.StatusBadRequest, err)
			return
		}
		departmentId = updateRequest.DepartmentID
	}

	queryString := "UPDATE admin_schema.employees SET name = $1, department_id = $2, position = $3, status = $4, " +
		"updated_at = $5 WHERE employee_id = $6"
	commandTag, err := tx.Exec(c, queryString, updateRequest.Name, departmentId, updateRequest.Position,
		updateRequest.Status, time.Now(), employeeId)
	if err != nil {
		utils.WriteAndLogError(c, schemas.DatabaseError, http.StatusInternalServerError, err)
		return
	}
	if commandTag.RowsAffected() == 0 {
		err = errors.New("employee not found")
		utils.WriteAndLogError(c, schemas.EmployeeNotFound, http.StatusNotFound, err)
		return
	}

	if err = utils.CommitTransaction(c, tx); err != nil {
		return
	}

	utils.WriteAndLogResponse(c, &schemas.MessageDTO{Message: "Employee updated"}, http.StatusOK)
}

// DeleteEmployee removes the HR record of an employee. The linked user
// account stays untouched.
func (handler *EmployeeHandler) DeleteEmployee(c *gin.Context) {
	tx := utils.BeginTransaction(c, handler.DatabaseManager.GetPool())
	if tx == nil {
		return
	}
	var err error
	defer func() { utils.RollbackTransaction(c, tx, err) }()

	employeeId := c.Param(utils.EmployeeIdKey)
	if _, err = uuid.Parse(employeeId); err != nil {
		utils.WriteAndLogError(c, schemas.BadRequest, http.StatusBadRequest, err)
		return
	}

	queryString := "DELETE FROM admin_schema.employees WHERE employee_id = $1"
	commandTag, err := tx.Exec(c, queryString, employeeId)
	if err != nil {
		utils.WriteAndLogError(c, schemas.DatabaseError, http.StatusInternalServerError, err)
		return
	}
	if commandTag.RowsAffected() == 0 {
		err = errors.New("employee not found")
		utils.WriteAndLogError(c, schemas.EmployeeNotFound, http.StatusNotFound, err)
		return
	}

	if err = utils.CommitTransaction(c, tx); err != nil {
		return
	}

	utils.WriteAndLogResponse(c, &schemas.MessageDTO{Message: "Employee deleted"}, http.StatusOK)
}

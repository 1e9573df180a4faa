package handlers

import (
	"errors"
	"net/http"
	"sort"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"admin-core/internal/managers"
	"admin-core/internal/schemas"
	"admin-core/internal/utils"
)

// DepartmentHdl is the interface for the department endpoints.
type DepartmentHdl interface {
	CreateDepartment(c *gin.Context)
	ListDepartments(c *gin.Context)
	GetDepartmentTree(c *gin.Context)
	GetDepartment(c *gin.Context)
	UpdateDepartment(c *gin.Context)
	DeleteDepartment(c *gin.Context)
}

// DepartmentHandler implements DepartmentHdl.
type DepartmentHandler struct {
	DatabaseManager managers.DatabaseMgr
}

func NewDepartmentHandler(databaseMgr managers.DatabaseMgr) DepartmentHdl {
	return &DepartmentHandler{DatabaseManager: databaseMgr}
}

// CreateDepartment creates an organizational unit, optionally attached to
// a parent department.
func (handler *DepartmentHandler) CreateDepartment(c *gin.Context) {
	tx := utils.BeginTransaction(c, handler.DatabaseManager.GetPool())
	if tx == nil {
		return
	}
	var err error
	defer func() { utils.RollbackTransaction(c, tx, err) }()

	createRequest := c.Value(utils.SanitizedPayloadKey.String()).(*schemas.CreateDepartmentRequest)

	var exists bool
	queryString := "SELECT EXISTS(SELECT 1 FROM admin_schema.departments WHERE code = $1)"
	if err = tx.QueryRow(c, queryString, createRequest.Code).Scan(&exists); err != nil {
		utils.WriteAndLogError(c, schemas.DatabaseError, http.StatusInternalServerError, err)
		return
	}
	if exists {
		err = errors.New("department code taken")
		utils.WriteAndLogError(c, schemas.DepartmentCodeTaken, http.StatusBadRequest, err)
		return
	}

	var parentId interface{}
	if createRequest.ParentID != "" {
		queryString = "SELECT EXISTS(SELECT 1 FROM admin_schema.departments WHERE department_id = $1)"
		if err = tx.QueryRow(c, queryString, createRequest.ParentID).Scan(&exists); err != nil {
			utils.WriteAndLogError(c, schemas.DatabaseError, http.StatusInternalServerError, err)
			return
		}
		if !exists {
			err = errors.New("parent department not found")
			utils.WriteAndLogError(c, schemas.DepartmentNotFound, http.StatusBadRequest, err)
			return
		}
		parentId = createRequest.ParentID
	}

	var managerId interface{}
	if createRequest.ManagerID != "" {
		managerId = createRequest.ManagerID
	}

	departmentId := uuid.New()
	createdAt := time.Now()

	queryString = "INSERT INTO admin_schema.departments " +
		"(department_id, name, code, description, parent_id, manager_id, is_active, sort_order, created_at, updated_at) " +
		"VALUES ($1, $2, $3, $4, $5, $6, true, $7, $8, $8)"
	if _, err = tx.Exec(c, queryString, departmentId, createRequest.Name, createRequest.Code,
		createRequest.Description, parentId, managerId, createRequest.SortOrder, createdAt); err != nil {
		utils.WriteAndLogError(c, schemas.DatabaseError, http.StatusInternalServerError, err)
		return
	}

	if err = utils.CommitTransaction(c, tx); err != nil {
		return
	}

	department := schemas.Department{
		ID:          &departmentId,
		Name:        createRequest.Name,
		Code:        createRequest.Code,
		Description: createRequest.Description,
		IsActive:    true,
		SortOrder:   createRequest.SortOrder,
		CreatedAt:   &createdAt,
		UpdatedAt:   &createdAt,
	}
	if createRequest.ParentID != "" {
		id := uuid.MustParse(createRequest.ParentID)
		department.ParentID = &id
	}
	if createRequest.ManagerID != "" {
		id := uuid.MustParse(createRequest.ManagerID)
		department.ManagerID = &id
	}

	utils.WriteAndLogResponse(c, &schemas.DepartmentDTO{Department: department}, http.StatusCreated)
}

// ListDepartments returns a page of departments with their employee counts.
func (handler *DepartmentHandler) ListDepartments(c *gin.Context) {
	offset, limit := utils.ParsePaginationParams(c)
	pool := handler.DatabaseManager.GetPool()

	var totalRecords int
	if err := pool.QueryRow(c, "SELECT COUNT(*) FROM admin_schema.departments").Scan(&totalRecords); err != nil {
		utils.WriteAndLogError(c, schemas.DatabaseError, http.StatusInternalServerError, err)
		return
	}

	queryString := "SELECT d.department_id, d.name, d.code, d.description, d.parent_id, d.manager_id, d.is_active, " +
		"d.sort_order, d.created_at, d.updated_at, COUNT(e.employee_id) " +
		"FROM admin_schema.departments d " +
		"LEFT JOIN admin_schema.employees e ON e.department_id = d.department_id " +
		"GROUP BY d.department_id ORDER BY d.sort_order, d.name OFFSET $1 LIMIT $2"
	rows, err := pool.Query(c, queryString, offset, limit)
	if err != nil {
		utils.WriteAndLogError(c, schemas.DatabaseError, http.StatusInternalServerError, err)
		return
	}
	defer rows.Close()

	departments := make([]schemas.DepartmentDTO, 0, limit)
	for rows.Next() {
		var dto schemas.DepartmentDTO
		if err := rows.Scan(&dto.ID, &dto.Name, &dto.Code, &dto.Description, &dto.ParentID, &dto.ManagerID,
			&dto.IsActive, &dto.SortOrder, &dto.CreatedAt, &dto.UpdatedAt, &dto.EmployeeCount); err != nil {
			utils.WriteAndLogError(c, schemas.DatabaseError, http.StatusInternalServerError, err)
			return
		}
		departments = append(departments, dto)
	}

	utils.SendPaginatedResponse(c, departments, offset, limit, totalRecords)
}

// GetDepartmentTree returns all departments nested by parent. Children are
// ordered by sort order, then name. Departments whose parent is missing
// are lifted to the root level rather than dropped.
func (handler *DepartmentHandler) GetDepartmentTree(c *gin.Context) {
	queryString := "SELECT department_id, name, code, description, parent_id, manager_id, is_active, sort_order, " +
		"created_at, updated_at FROM admin_schema.departments"
	rows, err := handler.DatabaseManager.GetPool().Query(c, queryString)
	if err != nil {
		utils.WriteAndLogError(c, schemas.DatabaseError, http.StatusInternalServerError, err)
		return
	}
	defer rows.Close()

	nodes := make(map[uuid.UUID]*schemas.DepartmentTreeDTO)
	order := make([]*schemas.DepartmentTreeDTO, 0)
	for rows.Next() {
		node := &schemas.DepartmentTreeDTO{Children: []*schemas.DepartmentTreeDTO{}}
		if err := rows.Scan(&node.ID, &node.Name, &node.Code, &node.Description, &node.ParentID, &node.ManagerID,
			&node.IsActive, &node.SortOrder, &node.CreatedAt, &node.UpdatedAt); err != nil {
			utils.WriteAndLogError(c, schemas.DatabaseError, http.StatusInternalServerError, err)
			return
		}
		nodes[*node.ID] = node
		order = append(order, node)
	}

	roots := make([]*schemas.DepartmentTreeDTO, 0)
	for _, node := range order {
		if node.ParentID != nil {
			if parent, ok := nodes[*node.ParentID]; ok {
				parent.Children = append(parent.Children, node)
				continue
			}
		}
		roots = append(roots, node)
	}

	sortTree(roots)
	utils.WriteAndLogResponse(c, roots, http.StatusOK)
}

// GetDepartment returns a department by id with its employee count.
func (handler *DepartmentHandler) GetDepartment(c *gin.Context) {
	departmentId := c.Param(utils.DepartmentIdKey)
	if _, err := uuid.Parse(departmentId); err != nil {
		utils.WriteAndLogError(c, schemas.BadRequest, http.StatusBadRequest, err)
		return
	}

	var dto schemas.DepartmentDTO
	queryString := "SELECT d.department_id, d.name, d.code, d.description, d.parent_id, d.manager_id, d.is_active, " +
		"d.sort_order, d.created_at, d.updated_at, COUNT(e.employee_id) " +
		"FROM admin_schema.departments d " +
		"LEFT JOIN admin_schema.employees e ON e.department_id = d.department_id " +
		"WHERE d.department_id = $1 GROUP BY d.department_id"
	err := handler.DatabaseManager.GetPool().QueryRow(c, queryString, departmentId).Scan(&dto.ID, &dto.Name,
		&dto.Code, &dto.Description, &dto.ParentID, &dto.ManagerID, &dto.IsActive, &dto.SortOrder,
		&dto.CreatedAt, &dto.UpdatedAt, &dto.EmployeeCount)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			utils.WriteAndLogError(c, schemas.DepartmentNotFound, http.StatusNotFound, err)
			return
		}
		utils.WriteAndLogError(c, schemas.DatabaseError, http.StatusInternalServerError, err)
		return
	}

	utils.WriteAndLogResponse(c, &dto, http.StatusOK)
}

// UpdateDepartment mutates the name, description, manager, active flag and
// sort order of a department. Code and parent are immutable.
func (handler *DepartmentHandler) UpdateDepartment(c *gin.Context) {
	tx := utils.BeginTransaction(c, handler.DatabaseManager.GetPool())
	if tx == nil {
		return
	}
	var err error
	defer func() { utils.RollbackTransaction(c, tx, err) }()

	departmentId := c.Param(utils.DepartmentIdKey)
	if _, err = uuid.Parse(departmentId); err != nil {
		utils.WriteAndLogError(c, schemas.BadRequest, http.StatusBadRequest, err)
		return
	}

	updateRequest := c.Value(utils.SanitizedPayloadKey.String()).(*schemas.UpdateDepartmentRequest)

	var managerId interface{}
	if updateRequest.ManagerID != "" {
		managerId = updateRequest.ManagerID
	}

	queryString := "UPDATE admin_schema.departments SET name = $1, description = $2, manager_id = $3, " +
		"is_active = $4, sort_order = $5, updated_at = $6 WHERE department_id = $7"
	commandTag, err := tx.Exec(c, queryString, updateRequest.Name, updateRequest.Description, managerId,
		*updateRequest.IsActive, updateRequest.SortOrder, time.Now(), departmentId)
	if err != nil {
		utils.WriteAndLogError(c, schemas.DatabaseError, http.StatusInternalServerError, err)
		return
	}
	if commandTag.RowsAffected() == 0 {
		err = errors.New("department not found")
		utils.WriteAndLogError(c, schemas.DepartmentNotFound, http.StatusNotFound, err)
		return
	}

	if err = utils.CommitTransaction(c, tx); err != nil {
		return
	}

	utils.WriteAndLogResponse(c, &schemas.MessageDTO{Message: "Department updated"}, http.StatusOK)
}

// DeleteDepartment removes a department. Deleting a department that still
// has employees or child departments is refused.
func (handler *DepartmentHandler) DeleteDepartment(c *gin.Context) {
	tx := utils.BeginTransaction(c, handler.DatabaseManager.GetPool())
	if tx == nil {
		return
	}
	var err error
	defer func() { utils.RollbackTransaction(c, tx, err) }()

	departmentId := c.Param(utils.DepartmentIdKey)
	if _, err = uuid.Parse(departmentId); err != nil {
		utils.WriteAndLogError(c, schemas.BadRequest, http.StatusBadRequest, err)
		return
	}

	var occupied bool
	queryString := "SELECT EXISTS(SELECT 1 FROM admin_schema.employees WHERE department_id = $1) " +
		"OR EXISTS(SELECT 1 FROM admin_schema.departments WHERE parent_id = $1)"
	if err = tx.QueryRow(c, queryString, departmentId).Scan(&occupied); err != nil {
		utils.WriteAndLogError(c, schemas.DatabaseError, http.StatusInternalServerError, err)
		return
	}
	if occupied {
		err = errors.New("department not empty")
		utils.WriteAndLogError(c, schemas.DepartmentNotEmpty, http.StatusBadRequest, err)
		return
	}

	queryString = "DELETE FROM admin_schema.departments WHERE department_id = $1"
	commandTag, err := tx.Exec(c, queryString, departmentId)
	if err != nil {
		utils.WriteAndLogError(c, schemas.DatabaseError, http.StatusInternalServerError, err)
		return
	}
	if commandTag.RowsAffected() == 0 {
		err = errors.New("department not found")
		utils.WriteAndLogError(c, schemas.DepartmentNotFound, http.StatusNotFound, err)
		return
	}

	if err = utils.CommitTransaction(c, tx); err != nil {
		return
	}

	utils.WriteAndLogResponse(c, &schemas.MessageDTO{Message: "Department deleted"}, http.StatusOK)
}

// sortTree orders every level of the tree by sort order, then name.
func sortTree(nodes []*schemas.DepartmentTreeDTO) {
	sort.SliceStable(nodes, func(i, j int) bool {
		if nodes[i].SortOrder != nodes[j].SortOrder {
			return nodes[i].SortOrder < nodes[j].SortOrder
		}
		return nodes[i].Name < nodes[j].Name
	})
	for _, node := range nodes {
		sortTree(node.Children)
	}
}

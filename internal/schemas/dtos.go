package schemas

import (
	"time"

	"github.com/google/uuid"
)

// ErrorDTO is a struct that represents an error response
// Error is the custom error, see CustomError
type ErrorDTO struct {
	Error CustomError `json:"error"`
}

// MetadataDTO is a struct that represents the service metadata
type MetadataDTO struct {
	ApiVersion string `json:"apiVersion"`
	ApiName    string `json:"apiName"`
}

// HealthDTO reports the reachability of each dependency.
type HealthDTO struct {
	Status   string `json:"status"`
	Database string `json:"database"`
	Cache    string `json:"cache"`
}

// TokenPairDTO is the response of login and refresh. ExpiresIn is the
// access token lifetime in seconds.
type TokenPairDTO struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int64  `json:"expires_in"`
}

// UserDTO is the public representation of a user account.
type UserDTO struct {
	ID          *uuid.UUID `json:"id"`
	Username    string     `json:"username"`
	Email       string     `json:"email"`
	FullName    string     `json:"full_name"`
	Phone       string     `json:"phone"`
	Bio         string     `json:"bio"`
	Avatar      string     `json:"avatar"`
	IsActive    bool       `json:"is_active"`
	IsVerified  bool       `json:"is_verified"`
	IsSuperuser bool       `json:"is_superuser"`
	CreatedAt   *time.Time `json:"created_at"`
	UpdatedAt   *time.Time `json:"updated_at"`
	LastLoginAt *time.Time `json:"last_login_at"`
}

// MessageDTO carries a confirmation message for operations without a
// dedicated response body.
type MessageDTO struct {
	Message string `json:"message"`
}

// DepartmentDTO is the public representation of a department, including
// the number of employees currently assigned to it.
type DepartmentDTO struct {
	Department
	EmployeeCount int `json:"employee_count"`
}

// DepartmentTreeDTO is a department with its nested children.
type DepartmentTreeDTO struct {
	Department
	Children []*DepartmentTreeDTO `json:"children"`
}

// EmployeeDTO is the public representation of an employee, joined with
// its department name for display purposes.
type EmployeeDTO struct {
	Employee
	DepartmentName string `json:"department_name"`
}

// RoleAssignmentDTO confirms a user-role assignment.
type RoleAssignmentDTO struct {
	RoleID uuid.UUID `json:"role_id"`
	UserID uuid.UUID `json:"user_id"`
}

// CacheEntryDTO is the response of the cache passthrough endpoints.
type CacheEntryDTO struct {
	Key   string `json:"key"`
	Value string `json:"value"`
	TTL   int    `json:"ttl,omitempty"`
}

// PaginatedResponse wraps a page of records with pagination details.
type PaginatedResponse struct {
	Records    interface{} `json:"records"`
	Pagination Pagination  `json:"pagination"`
}

// Pagination describes the offset, limit and total record count of a page.
type Pagination struct {
	Offset  int `json:"offset"`
	Limit   int `json:"limit"`
	Records int `json:"records"`
}

// Package schemas defines the data structures
package schemas

import (
	"time"

	"github.com/google/uuid"
)

// User represents the data model for a user account in the system.
type User struct {
	ID          *uuid.UUID `json:"id"`            // Unique identifier for the user.
	Username    string     `json:"username"`      // Username of the user.
	Email       string     `json:"email"`         // Email address of the user.
	Password    string     `json:"-"`             // Password hash of the user.
	FullName    string     `json:"full_name"`     // Full display name of the user.
	Phone       string     `json:"phone"`         // Phone number of the user.
	Bio         string     `json:"bio"`           // Short self description.
	Avatar      string     `json:"avatar"`        // Avatar URL.
	IsActive    bool       `json:"is_active"`     // Whether the account may log in.
	IsSuperuser bool       `json:"is_superuser"`  // Whether the account has administrative rights.
	IsVerified  bool       `json:"is_verified"`   // Whether the email address was verified.
	CreatedAt   *time.Time `json:"created_at"`    // Timestamp when the user was created.
	UpdatedAt   *time.Time `json:"updated_at"`    // Timestamp of the last profile mutation.
	LastLoginAt *time.Time `json:"last_login_at"` // Timestamp of the last successful login.
}

// VerificationToken represents a short-lived code sent by mail to confirm an email address.
type VerificationToken struct {
	ID        *uuid.UUID `json:"id"`         // Unique identifier for the token.
	UserID    *uuid.UUID `json:"user_id"`    // Identifier of the user associated with this token.
	Token     string     `json:"token"`      // Token string.
	ExpiresAt *time.Time `json:"expires_at"` // Timestamp when the token expires.
}

// Department represents an organizational unit. Departments form a tree via ParentID.
type Department struct {
	ID          *uuid.UUID `json:"id"`
	Name        string     `json:"name"`
	Code        string     `json:"code"` // Unique short code of the department.
	Description string     `json:"description"`
	ParentID    *uuid.UUID `json:"parent_id"`
	ManagerID   *uuid.UUID `json:"manager_id"`
	IsActive    bool       `json:"is_active"`
	SortOrder   int        `json:"sort_order"`
	CreatedAt   *time.Time `json:"created_at"`
	UpdatedAt   *time.Time `json:"updated_at"`
}

// Employee statuses. Probation is the initial status of a new hire.
const (
	EmployeeStatusActive    = "active"
	EmployeeStatusProbation = "probation"
	EmployeeStatusSuspended = "suspended"
	EmployeeStatusInactive  = "inactive"
)

// Employee represents the HR record linked to a user account.
type Employee struct {
	ID           *uuid.UUID `json:"id"`
	EmployeeNo   string     `json:"employee_no"` // Unique staff number.
	UserID       *uuid.UUID `json:"user_id"`
	Name         string     `json:"name"`
	DepartmentID *uuid.UUID `json:"department_id"`
	Position     string     `json:"position"`
	HireDate     *time.Time `json:"hire_date"`
	Status       string     `json:"status"`
	CreatedAt    *time.Time `json:"created_at"`
	UpdatedAt    *time.Time `json:"updated_at"`
}

// Role represents a named permission bundle assignable to users.
// System roles are seeded and cannot be deleted.
type Role struct {
	ID          *uuid.UUID `json:"id"`
	Name        string     `json:"name"`
	Code        string     `json:"code"`
	Description string     `json:"description"`
	IsActive    bool       `json:"is_active"`
	IsSystem    bool       `json:"is_system"`
	CreatedAt   *time.Time `json:"created_at"`
	UpdatedAt   *time.Time `json:"updated_at"`
}

// SystemLog represents one audit trail entry. Entries are append-only.
type SystemLog struct {
	ID         *uuid.UUID `json:"id"`
	UserID     *uuid.UUID `json:"user_id"`
	Username   string     `json:"username"`
	Level      string     `json:"level"`
	Action     string     `json:"action"`
	Method     string     `json:"method"`
	Path       string     `json:"path"`
	StatusCode int        `json:"status_code"`
	IPAddress  string     `json:"ip_address"`
	UserAgent  string     `json:"user_agent"`
	Duration   int64      `json:"duration"` // Handler time in milliseconds.
	CreatedAt  *time.Time `json:"created_at"`
}

// Package schemas defines the request structures for the API operations.
package schemas

// RegistrationRequest is a struct that represents a registration request
// Username is required and must be less than 50 characters
// Email is required and must be a valid email
// Password is required and must be at least 8 characters
// ConfirmPassword is checked against Password in the handler so that a
// mismatch maps to its own error code instead of a generic validation error
type RegistrationRequest struct {
	Username        string `json:"username" validate:"required,min=3,max=50,username_validation"`
	Email           string `json:"email" validate:"required,email,max=100"`
	Password        string `json:"password" validate:"required,min=8,password_validation"`
	ConfirmPassword string `json:"confirm_password" validate:"required"`
	FullName        string `json:"full_name" validate:"max=100"`
	Phone           string `json:"phone" validate:"max=20"`
	Bio             string `json:"bio" validate:"max=500"`
}

// VerifyEmailRequest carries the 6-digit code sent by mail.
type VerifyEmailRequest struct {
	Email string `json:"email" validate:"required,email"`
	Code  string `json:"code" validate:"required,numeric,len=6"`
}

// LoginRequest is a struct that represents a login request
// Username accepts either the username or the email address
type LoginRequest struct {
	Username string `json:"username" validate:"required,max=100"`
	Password string `json:"password" validate:"required,min=8"`
}

// RefreshTokenRequest is a struct that represents a RefreshToken request
type RefreshTokenRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

// ChangePasswordRequest is a struct that represents a PasswordChange request
// CurrentPassword is required; NewPassword must satisfy the password policy.
// ConfirmNewPassword is checked against NewPassword in the handler.
type ChangePasswordRequest struct {
	CurrentPassword    string `json:"current_password" validate:"required,min=8"`
	NewPassword        string `json:"new_password" validate:"required,min=8,password_validation"`
	ConfirmNewPassword string `json:"confirm_new_password" validate:"required"`
}

// UpdateProfileRequest carries the mutable profile fields of the current user.
type UpdateProfileRequest struct {
	FullName string `json:"full_name" validate:"max=100"`
	Phone    string `json:"phone" validate:"max=20"`
	Bio      string `json:"bio" validate:"max=500"`
	Avatar   string `json:"avatar" validate:"omitempty,url,max=255"`
}

// CreateDepartmentRequest creates an organizational unit.
type CreateDepartmentRequest struct {
	Name        string `json:"name" validate:"required,max=100"`
	Code        string `json:"code" validate:"required,max=50,code_validation"`
	Description string `json:"description" validate:"max=500"`
	ParentID    string `json:"parent_id" validate:"omitempty,uuid"`
	ManagerID   string `json:"manager_id" validate:"omitempty,uuid"`
	SortOrder   int    `json:"sort_order" validate:"min=0"`
}

// UpdateDepartmentRequest mutates an existing department.
type UpdateDepartmentRequest struct {
	Name        string `json:"name" validate:"required,max=100"`
	Description string `json:"description" validate:"max=500"`
	ManagerID   string `json:"manager_id" validate:"omitempty,uuid"`
	IsActive    *bool  `json:"is_active" validate:"required"`
	SortOrder   int    `json:"sort_order" validate:"min=0"`
}

// CreateEmployeeRequest creates an HR record for an existing user.
type CreateEmployeeRequest struct {
	EmployeeNo   string `json:"employee_no" validate:"required,max=50,code_validation"`
	UserID       string `json:"user_id" validate:"required,uuid"`
	Name         string `json:"name" validate:"required,max=100"`
	DepartmentID string `json:"department_id" validate:"omitempty,uuid"`
	Position     string `json:"position" validate:"max=100"`
	HireDate     string `json:"hire_date" validate:"omitempty,datetime=2006-01-02"`
}

// UpdateEmployeeRequest mutates an existing employee record.
type UpdateEmployeeRequest struct {
	Name         string `json:"name" validate:"required,max=100"`
	DepartmentID string `json:"department_id" validate:"omitempty,uuid"`
	Position     string `json:"position" validate:"max=100"`
	Status       string `json:"status" validate:"required,oneof=active probation suspended inactive"`
}

// CreateRoleRequest creates a role.
type CreateRoleRequest struct {
	Name        string `json:"name" validate:"required,max=50"`
	Code        string `json:"code" validate:"required,max=50,code_validation"`
	Description string `json:"description" validate:"max=500"`
}

// UpdateRoleRequest mutates an existing role.
type UpdateRoleRequest struct {
	Name        string `json:"name" validate:"required,max=50"`
	Description string `json:"description" validate:"max=500"`
	IsActive    *bool  `json:"is_active" validate:"required"`
}

// AssignRoleRequest attaches a role to a user.
type AssignRoleRequest struct {
	UserID string `json:"user_id" validate:"required,uuid"`
}

// SetCacheRequest stores a value under a cache key with a TTL in seconds.
type SetCacheRequest struct {
	Value string `json:"value" validate:"required"`
	TTL   int    `json:"ttl" validate:"min=1,max=86400"`
}

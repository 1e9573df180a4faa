package schemas

// CustomError is a machine-readable error with a stable code and a
// human-readable message. It is the only error shape the API returns.
type CustomError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *CustomError) Error() string {
	return e.Code + ": " + e.Message
}

// The error table. Codes are stable; messages may change.
// Token validation failures are deliberately coalesced into Unauthorized
// so that callers cannot tell which validation step failed.
var (
	BadRequest         = &CustomError{"ERR-001", "The request body is invalid. Please check the request body and try again."}
	UsernameTaken      = &CustomError{"ERR-002", "The username is already taken. Please try another username."}
	EmailTaken         = &CustomError{"ERR-003", "The email is already registered. Please try another email."}
	PasswordMismatch   = &CustomError{"ERR-004", "The password and its confirmation do not match."}
	InvalidCredentials = &CustomError{"ERR-005", "The credentials are invalid. Please check the username and password."}
	Unauthorized       = &CustomError{"ERR-006", "The request is unauthorized. Please login to your account."}
	Forbidden          = &CustomError{"ERR-007", "You do not have permission to perform this action."}
	UserNotFound       = &CustomError{"ERR-008", "The user was not found."}
	UserNotActive      = &CustomError{"ERR-009", "The user account is deactivated."}
	UserNotVerified    = &CustomError{"ERR-010", "The email address has not been verified yet."}
	AlreadyVerified    = &CustomError{"ERR-011", "The email address is already verified."}
	VerificationCodeInvalid = &CustomError{"ERR-012", "The verification code is invalid or has expired."}
	EmailUnreachable        = &CustomError{"ERR-013", "The email address appears to be unreachable. Please check the address and try again."}

	DepartmentNotFound  = &CustomError{"ERR-020", "The department was not found."}
	DepartmentCodeTaken = &CustomError{"ERR-021", "The department code is already in use."}
	DepartmentNotEmpty  = &CustomError{"ERR-022", "The department still has employees assigned and cannot be deleted."}

	EmployeeNotFound    = &CustomError{"ERR-030", "The employee was not found."}
	EmployeeNumberTaken = &CustomError{"ERR-031", "The employee number is already in use."}

	RoleNotFound        = &CustomError{"ERR-040", "The role was not found."}
	RoleCodeTaken       = &CustomError{"ERR-041", "The role code is already in use."}
	SystemRoleImmutable = &CustomError{"ERR-042", "System roles cannot be modified or deleted."}

	LogNotFound      = &CustomError{"ERR-050", "The log entry was not found."}
	CacheKeyNotFound = &CustomError{"ERR-051", "The cache key was not found."}

	EmailNotSent        = &CustomError{"ERR-090", "The verification email could not be sent. Please try again later."}
	DatabaseError       = &CustomError{"ERR-096", "The database is currently not available. Please try again later."}
	CacheUnavailable    = &CustomError{"ERR-097", "The cache service is currently not available. Please try again later."}
	InternalServerError = &CustomError{"ERR-099", "An internal error occurred. Please try again later."}
)

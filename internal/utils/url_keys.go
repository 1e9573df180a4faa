package utils

const (
	// UserIdKey is the key for user ID used in routing parameters.
	UserIdKey = "userId"

	// DepartmentIdKey is the key for department ID used in routing parameters.
	DepartmentIdKey = "departmentId"

	// EmployeeIdKey is the key for employee ID used in routing parameters.
	EmployeeIdKey = "employeeId"

	// RoleIdKey is the key for role ID used in routing parameters.
	RoleIdKey = "roleId"

	// LogIdKey is the key for log entry ID used in routing parameters.
	LogIdKey = "logId"

	// CacheKeyKey is the key for the cache key used in routing parameters.
	CacheKeyKey = "key"

	// OffsetParamKey is the key for offset used in pagination query parameters.
	OffsetParamKey = "offset"

	// LimitParamKey is the key for limit used in pagination query parameters.
	LimitParamKey = "limit"

	// QueryParamKey is the key for a generic search query used in query parameters.
	QueryParamKey = "q"

	// DepartmentParamKey is the key for the department filter used in query parameters.
	DepartmentParamKey = "department"

	// LevelParamKey is the key for the log level filter used in query parameters.
	LevelParamKey = "level"

	// UsernameParamKey is the key for the username filter used in query parameters.
	UsernameParamKey = "username"
)

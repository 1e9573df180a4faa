// Package routing sets up the gin engine, its middleware chain and the
// API route groups.
package routing

import (
	"net/http"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"admin-core/internal/handlers"
	"admin-core/internal/managers"
	"admin-core/internal/middleware"
	"admin-core/internal/schemas"
	"admin-core/internal/utils"
)

const (
	apiVersion = "v1"
	apiName    = "admin-core"
)

// InitRouter initializes the router with the middleware chain and all
// route groups.
func InitRouter(databaseMgr managers.DatabaseMgr, cacheMgr managers.CacheMgr, mailMgr managers.MailMgr, jwtMgr managers.JWTMgr) *gin.Engine {
	router := gin.New()
	setupCommonMiddleware(router)

	authHandler := handlers.NewAuthHandler(databaseMgr, jwtMgr, mailMgr, cacheMgr)
	userHandler := handlers.NewUserHandler(databaseMgr, cacheMgr)
	departmentHandler := handlers.NewDepartmentHandler(databaseMgr)
	employeeHandler := handlers.NewEmployeeHandler(databaseMgr)
	roleHandler := handlers.NewRoleHandler(databaseMgr)
	systemLogHandler := handlers.NewSystemLogHandler(databaseMgr)
	cacheHandler := handlers.NewCacheHandler(cacheMgr)

	// Unauthenticated service endpoints
	router.GET("/", getMetadata)
	router.GET("/health", getHealth(databaseMgr, cacheMgr))

	// Cache passthrough for operators
	cacheRouter := router.Group("/cache", jwtMgr.JWTMiddleware(), middleware.RequireCapability(databaseMgr, middleware.CapabilitySuperuser))
	cacheRouter.GET("/:"+utils.CacheKeyKey, cacheHandler.GetCacheEntry)
	cacheRouter.POST("/:"+utils.CacheKeyKey, middleware.ValidateAndSanitizeStruct(func() interface{} { return &schemas.SetCacheRequest{} }), cacheHandler.SetCacheEntry)
	cacheRouter.DELETE("/:"+utils.CacheKeyKey, cacheHandler.DeleteCacheEntry)

	apiRouter := router.Group("/api/" + apiVersion)
	apiRouter.Use(middleware.AuditTrail(databaseMgr))

	authRouter := apiRouter.Group("/auth")
	authRouter.POST("/register", middleware.ValidateAndSanitizeStruct(func() interface{} { return &schemas.RegistrationRequest{} }), authHandler.Register)
	authRouter.POST("/verify-email", middleware.ValidateAndSanitizeStruct(func() interface{} { return &schemas.VerifyEmailRequest{} }), authHandler.VerifyEmail)
	authRouter.POST("/login", middleware.ValidateAndSanitizeStruct(func() interface{} { return &schemas.LoginRequest{} }), authHandler.Login)
	authRouter.POST("/refresh", middleware.ValidateAndSanitizeStruct(func() interface{} { return &schemas.RefreshTokenRequest{} }), authHandler.RefreshToken)
	authRouter.POST("/change-password", jwtMgr.JWTMiddleware(), middleware.ValidateAndSanitizeStruct(func() interface{} { return &schemas.ChangePasswordRequest{} }), authHandler.ChangePassword)
	authRouter.POST("/logout", jwtMgr.JWTMiddleware(), authHandler.Logout)

	userRouter := apiRouter.Group("/users", jwtMgr.JWTMiddleware(), middleware.RequireCapability(databaseMgr, middleware.CapabilityActive))
	userRouter.GET("/me", userHandler.GetMe)
	userRouter.PUT("/me", middleware.ValidateAndSanitizeStruct(func() interface{} { return &schemas.UpdateProfileRequest{} }), userHandler.UpdateMe)

	userAdminRouter := userRouter.Group("", middleware.RequireCapability(databaseMgr, middleware.CapabilitySuperuser))
	userAdminRouter.GET("", userHandler.ListUsers)
	userAdminRouter.GET("/:"+utils.UserIdKey, userHandler.GetUser)
	userAdminRouter.POST("/:"+utils.UserIdKey+"/activate", userHandler.ActivateUser)
	userAdminRouter.POST("/:"+utils.UserIdKey+"/deactivate", userHandler.DeactivateUser)

	// Reads require a verified account, mutations a superuser.
	requireSuperuser := middleware.RequireCapability(databaseMgr, middleware.CapabilitySuperuser)

	departmentRouter := apiRouter.Group("/departments", jwtMgr.JWTMiddleware(), middleware.RequireCapability(databaseMgr, middleware.CapabilityVerified))
	departmentRouter.GET("", departmentHandler.ListDepartments)
	departmentRouter.GET("/tree", departmentHandler.GetDepartmentTree)
	departmentRouter.GET("/:"+utils.DepartmentIdKey, departmentHandler.GetDepartment)
	departmentRouter.POST("", requireSuperuser, middleware.ValidateAndSanitizeStruct(func() interface{} { return &schemas.CreateDepartmentRequest{} }), departmentHandler.CreateDepartment)
	departmentRouter.PUT("/:"+utils.DepartmentIdKey, requireSuperuser, middleware.ValidateAndSanitizeStruct(func() interface{} { return &schemas.UpdateDepartmentRequest{} }), departmentHandler.UpdateDepartment)
	departmentRouter.DELETE("/:"+utils.DepartmentIdKey, requireSuperuser, departmentHandler.DeleteDepartment)

	employeeRouter := apiRouter.Group("/employees", jwtMgr.JWTMiddleware(), middleware.RequireCapability(databaseMgr, middleware.CapabilityVerified))
	employeeRouter.GET("", employeeHandler.ListEmployees)
	employeeRouter.GET("/:"+utils.EmployeeIdKey, employeeHandler.GetEmployee)
	employeeRouter.POST("", requireSuperuser, middleware.ValidateAndSanitizeStruct(func() interface{} { return &schemas.CreateEmployeeRequest{} }), employeeHandler.CreateEmployee)
	employeeRouter.PUT("/:"+utils.EmployeeIdKey, requireSuperuser, middleware.ValidateAndSanitizeStruct(func() interface{} { return &schemas.UpdateEmployeeRequest{} }), employeeHandler.UpdateEmployee)
	employeeRouter.DELETE("/:"+utils.EmployeeIdKey, requireSuperuser, employeeHandler.DeleteEmployee)

	roleRouter := apiRouter.Group("/roles", jwtMgr.JWTMiddleware(), middleware.RequireCapability(databaseMgr, middleware.CapabilitySuperuser))
	roleRouter.GET("", roleHandler.ListRoles)
	roleRouter.GET("/:"+utils.RoleIdKey, roleHandler.GetRole)
	roleRouter.POST("", middleware.ValidateAndSanitizeStruct(func() interface{} { return &schemas.CreateRoleRequest{} }), roleHandler.CreateRole)
	roleRouter.PUT("/:"+utils.RoleIdKey, middleware.ValidateAndSanitizeStruct(func() interface{} { return &schemas.UpdateRoleRequest{} }), roleHandler.UpdateRole)
	roleRouter.DELETE("/:"+utils.RoleIdKey, roleHandler.DeleteRole)
	roleRouter.POST("/:"+utils.RoleIdKey+"/assign", middleware.ValidateAndSanitizeStruct(func() interface{} { return &schemas.AssignRoleRequest{} }), roleHandler.AssignRole)
	roleRouter.DELETE("/:"+utils.RoleIdKey+"/assign/:"+utils.UserIdKey, roleHandler.UnassignRole)

	logRouter := apiRouter.Group("/system-logs", jwtMgr.JWTMiddleware(), middleware.RequireCapability(databaseMgr, middleware.CapabilitySuperuser))
	logRouter.GET("", systemLogHandler.ListLogs)
	logRouter.GET("/:"+utils.LogIdKey, systemLogHandler.GetLog)

	return router
}

// setupCommonMiddleware initializes the middleware chain shared by every
// route.
func setupCommonMiddleware(router *gin.Engine) {
	router.Use(gin.Recovery())
	router.Use(middleware.InjectTrace())
	router.Use(cors.New(cors.Config{
		AllowOrigins:  []string{"*"},
		AllowMethods:  []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders: []string{"Content-Length", "X-Trace-Id"},
	}))
	router.Use(middleware.SanitizePath())
	router.Use(middleware.LogRequest())
}

// getMetadata returns the service metadata.
func getMetadata(c *gin.Context) {
	metadataDto := &schemas.MetadataDTO{
		ApiVersion: apiVersion,
		ApiName:    apiName,
	}
	utils.WriteAndLogResponse(c, metadataDto, http.StatusOK)
}

// getHealth pings the database and the cache. The service reports degraded
// with a 503 as soon as either dependency is unreachable.
func getHealth(databaseMgr managers.DatabaseMgr, cacheMgr managers.CacheMgr) gin.HandlerFunc {
	return func(c *gin.Context) {
		healthDto := &schemas.HealthDTO{Status: "ok", Database: "up", Cache: "up"}
		statusCode := http.StatusOK

		if err := databaseMgr.GetPool().Ping(c); err != nil {
			utils.LogMessageWithFieldsAndError(c, "error", "Database ping failed", err)
			healthDto.Status = "degraded"
			healthDto.Database = "down"
			statusCode = http.StatusServiceUnavailable
		}

		if err := cacheMgr.Ping(c); err != nil {
			utils.LogMessageWithFieldsAndError(c, "error", "Cache ping failed", err)
			healthDto.Status = "degraded"
			healthDto.Cache = "down"
			statusCode = http.StatusServiceUnavailable
		}

		utils.WriteAndLogResponse(c, healthDto, statusCode)
	}
}

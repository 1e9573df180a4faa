package routing

import (
	"crypto/ed25519"
	"crypto/rand"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gavv/httpexpect/v2"
	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"github.com/pashagolub/pgxmock/v3"
	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/mock"
	"golang.org/x/crypto/bcrypt"

	"admin-core/internal/managers"
	"admin-core/internal/managers/mocks"
	"admin-core/internal/utils"
)

type registrationPayload struct {
	Username        string `json:"username"`
	Email           string `json:"email"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirm_password"`
	FullName        string `json:"full_name"`
}

func setupMocks(t *testing.T) (*mocks.MockDatabaseManager, *mocks.MockCacheManager, managers.JWTMgr, *mocks.MockMailManager) {
	poolMock, err := pgxmock.NewPool()
	if err != nil {
		log.Errorf("Error creating mock database pool: %v", err)
	}

	databaseMgrMock := &mocks.MockDatabaseManager{}
	databaseMgrMock.On("GetPool").Return(poolMock)

	cacheMgrMock := &mocks.MockCacheManager{}

	t.Setenv("ENVIRONMENT", "test")
	publicKey, privateKey, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		log.Errorf("Error generating key pair: %v", err)
	}
	jwtMgr := managers.NewJWTManager(privateKey, publicKey)

	// The MX lookup must not leave the test process.
	utils.GetValidator().VerifyEmail = func(string) bool { return true }

	mailMgrMock := &mocks.MockMailManager{}
	mailMgrMock.On("SendVerificationMail", mock.AnythingOfType("string"), mock.AnythingOfType("string"), mock.AnythingOfType("string")).Return(nil)
	mailMgrMock.On("SendConfirmationMail", mock.AnythingOfType("string"), mock.AnythingOfType("string")).Return(nil)

	return databaseMgrMock, cacheMgrMock, jwtMgr, mailMgrMock
}

// expectAuditEntry covers the audit trail insert that follows every
// mutating API call.
func expectAuditEntry(poolMock pgxmock.PgxPoolIface) {
	poolMock.ExpectExec("INSERT INTO admin_schema.system_logs").
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
			pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
}

func TestRegistration(t *testing.T) {
	validRequest := registrationPayload{
		Username:        "testUser",
		Email:           "test@example.com",
		Password:        "test.Password123",
		ConfirmPassword: "test.Password123",
		FullName:        "Test User",
	}

	weakPasswordRequest := validRequest
	weakPasswordRequest.Password = "password"
	weakPasswordRequest.ConfirmPassword = "password"

	mismatchRequest := validRequest
	mismatchRequest.ConfirmPassword = "other.Password123"

	testCases := []struct {
		name    string
		payload registrationPayload
		status  int
	}{
		{"ValidRegistration", validRequest, http.StatusCreated},
		{"DuplicateUsername", validRequest, http.StatusBadRequest},
		{"WeakPassword", weakPasswordRequest, http.StatusUnprocessableEntity},
		{"MismatchedConfirmation", mismatchRequest, http.StatusBadRequest},
		{"UnreachableEmail", validRequest, http.StatusBadRequest},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			databaseMgrMock, cacheMgrMock, jwtMgr, mailMgrMock := setupMocks(t)
			router := InitRouter(databaseMgrMock, cacheMgrMock, mailMgrMock, jwtMgr)

			server := httptest.NewServer(router)
			defer server.Close()

			poolMock := databaseMgrMock.GetPool().(pgxmock.PgxPoolIface)

			switch tc.name {
			case "ValidRegistration":
				poolMock.ExpectBegin()
				poolMock.ExpectQuery("SELECT username, email").
					WithArgs(tc.payload.Username, tc.payload.Email).
					WillReturnRows(pgxmock.NewRows([]string{"username", "email"}))
				poolMock.ExpectExec("INSERT INTO admin_schema.users").
					WithArgs(pgxmock.AnyArg(), tc.payload.Username, tc.payload.Email, pgxmock.AnyArg(),
						tc.payload.FullName, "", "", "", pgxmock.AnyArg()).
					WillReturnResult(pgxmock.NewResult("INSERT", 1))
				poolMock.ExpectExec("DELETE FROM admin_schema.verification_tokens").
					WithArgs(pgxmock.AnyArg()).
					WillReturnResult(pgxmock.NewResult("DELETE", 0))
				poolMock.ExpectExec("INSERT INTO admin_schema.verification_tokens").
					WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
					WillReturnResult(pgxmock.NewResult("INSERT", 1))
				poolMock.ExpectCommit()
			case "DuplicateUsername":
				poolMock.ExpectBegin()
				poolMock.ExpectQuery("SELECT username, email").
					WithArgs(tc.payload.Username, tc.payload.Email).
					WillReturnRows(pgxmock.NewRows([]string{"username", "email"}).
						AddRow(tc.payload.Username, "other@example.com"))
				poolMock.ExpectRollback()
			case "WeakPassword", "MismatchedConfirmation":
				// Rejected before any database work.
			case "UnreachableEmail":
				utils.GetValidator().VerifyEmail = func(string) bool { return false }
			}
			expectAuditEntry(poolMock)

			expect := httpexpect.Default(t, server.URL)
			request := expect.POST("/api/v1/auth/register").WithJSON(tc.payload)
			response := request.Expect().Status(tc.status)

			switch tc.name {
			case "ValidRegistration":
				body := response.JSON().Object()
				body.HasValue("username", tc.payload.Username)
				body.HasValue("email", tc.payload.Email)
				body.HasValue("is_active", true)
				body.HasValue("is_verified", false)
			case "DuplicateUsername":
				response.JSON().Object().Value("error").Object().HasValue("code", "ERR-002")
			case "WeakPassword":
				response.JSON().Object().Value("error").Object().HasValue("code", "ERR-001")
			case "MismatchedConfirmation":
				response.JSON().Object().Value("error").Object().HasValue("code", "ERR-004")
			case "UnreachableEmail":
				response.JSON().Object().Value("error").Object().HasValue("code", "ERR-013")
			}

			if err := poolMock.ExpectationsWereMet(); err != nil {
				t.Errorf("there were unfulfilled expectations: %s", err)
			}
		})
	}
}

func TestLogin(t *testing.T) {
	password := "test.Password123"
	hash, _ := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	userId := uuid.New()

	testCases := []struct {
		name     string
		password string
		isActive bool
		status   int
	}{
		{"ValidLogin", password, true, http.StatusOK},
		{"WrongPassword", "wrong.Password123", true, http.StatusUnauthorized},
		{"DeactivatedUser", password, false, http.StatusForbidden},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			databaseMgrMock, cacheMgrMock, jwtMgr, mailMgrMock := setupMocks(t)
			router := InitRouter(databaseMgrMock, cacheMgrMock, mailMgrMock, jwtMgr)

			server := httptest.NewServer(router)
			defer server.Close()

			poolMock := databaseMgrMock.GetPool().(pgxmock.PgxPoolIface)

			poolMock.ExpectBegin()
			poolMock.ExpectQuery("SELECT user_id, username, password, is_active").
				WithArgs("testUser").
				WillReturnRows(pgxmock.NewRows([]string{"user_id", "username", "password", "is_active"}).
					AddRow(userId, "testUser", string(hash), tc.isActive))

			if tc.name == "ValidLogin" {
				poolMock.ExpectExec("UPDATE admin_schema.users SET last_login_at").
					WithArgs(pgxmock.AnyArg(), userId).
					WillReturnResult(pgxmock.NewResult("UPDATE", 1))
				poolMock.ExpectCommit()
				// Login warms the profile cache after committing.
				now := time.Now()
				poolMock.ExpectQuery("SELECT user_id, username, email").
					WithArgs(userId.String()).
					WillReturnRows(pgxmock.NewRows([]string{"user_id", "username", "email", "full_name", "phone",
						"bio", "avatar", "is_active", "is_verified", "is_superuser", "created_at", "updated_at",
						"last_login_at"}).
						AddRow(&userId, "testUser", "test@example.com", "Test User", "", "", "", true, true, false,
							&now, &now, (*time.Time)(nil)))
				cacheMgrMock.On("SetProfile", mock.Anything, userId.String(), mock.Anything).Return(nil)
			} else {
				poolMock.ExpectRollback()
			}
			expectAuditEntry(poolMock)

			expect := httpexpect.Default(t, server.URL)
			request := expect.POST("/api/v1/auth/login").WithJSON(map[string]string{
				"username": "testUser",
				"password": tc.password,
			})
			response := request.Expect().Status(tc.status)

			if tc.name == "ValidLogin" {
				body := response.JSON().Object()
				body.HasValue("token_type", "bearer")
				body.HasValue("expires_in", 1800)
				body.Value("access_token").String().NotEmpty()
				body.Value("refresh_token").String().NotEmpty()
				cacheMgrMock.AssertExpectations(t)
			}

			if err := poolMock.ExpectationsWereMet(); err != nil {
				t.Errorf("there were unfulfilled expectations: %s", err)
			}
		})
	}
}

func TestRefreshToken(t *testing.T) {
	userId := uuid.New()

	t.Run("ValidRefresh", func(t *testing.T) {
		databaseMgrMock, cacheMgrMock, jwtMgr, mailMgrMock := setupMocks(t)
		router := InitRouter(databaseMgrMock, cacheMgrMock, mailMgrMock, jwtMgr)

		server := httptest.NewServer(router)
		defer server.Close()

		pair, err := jwtMgr.GenerateTokenPair(userId.String(), "testUser")
		if err != nil {
			t.Fatalf("generating token pair: %v", err)
		}

		poolMock := databaseMgrMock.GetPool().(pgxmock.PgxPoolIface)
		poolMock.ExpectQuery("SELECT is_active").
			WithArgs(userId.String()).
			WillReturnRows(pgxmock.NewRows([]string{"is_active"}).AddRow(true))
		expectAuditEntry(poolMock)

		expect := httpexpect.Default(t, server.URL)
		request := expect.POST("/api/v1/auth/refresh").WithJSON(map[string]string{
			"refresh_token": pair.RefreshToken,
		})
		body := request.Expect().Status(http.StatusOK).JSON().Object()

		body.HasValue("token_type", "bearer")
		newAccess := body.Value("access_token").String().NotEmpty().Raw()

		// The returned access token must validate as an access token.
		if _, err := jwtMgr.ValidateJWT(newAccess, managers.TokenKindAccess); err != nil {
			t.Errorf("refreshed access token failed validation: %v", err)
		}

		if err := poolMock.ExpectationsWereMet(); err != nil {
			t.Errorf("there were unfulfilled expectations: %s", err)
		}
	})

	t.Run("AccessTokenRejected", func(t *testing.T) {
		// An access token presented as a refresh token must not refresh.
		databaseMgrMock, cacheMgrMock, jwtMgr, mailMgrMock := setupMocks(t)
		router := InitRouter(databaseMgrMock, cacheMgrMock, mailMgrMock, jwtMgr)

		server := httptest.NewServer(router)
		defer server.Close()

		pair, err := jwtMgr.GenerateTokenPair(userId.String(), "testUser")
		if err != nil {
			t.Fatalf("generating token pair: %v", err)
		}

		poolMock := databaseMgrMock.GetPool().(pgxmock.PgxPoolIface)
		expectAuditEntry(poolMock)

		expect := httpexpect.Default(t, server.URL)
		request := expect.POST("/api/v1/auth/refresh").WithJSON(map[string]string{
			"refresh_token": pair.AccessToken,
		})
		response := request.Expect().Status(http.StatusUnauthorized)
		response.JSON().Object().Value("error").Object().HasValue("code", "ERR-006")

		if err := poolMock.ExpectationsWereMet(); err != nil {
			t.Errorf("there were unfulfilled expectations: %s", err)
		}
	})
}

func TestGetMe(t *testing.T) {
	userId := uuid.New()
	now := time.Now()

	t.Run("CacheMiss", func(t *testing.T) {
		databaseMgrMock, cacheMgrMock, jwtMgr, mailMgrMock := setupMocks(t)
		router := InitRouter(databaseMgrMock, cacheMgrMock, mailMgrMock, jwtMgr)

		server := httptest.NewServer(router)
		defer server.Close()

		pair, _ := jwtMgr.GenerateTokenPair(userId.String(), "testUser")

		cacheMgrMock.On("GetProfile", mock.Anything, userId.String()).Return(nil, redis.Nil)
		cacheMgrMock.On("SetProfile", mock.Anything, userId.String(), mock.Anything).Return(nil)

		poolMock := databaseMgrMock.GetPool().(pgxmock.PgxPoolIface)
		poolMock.ExpectQuery("SELECT is_active, is_verified, is_superuser").
			WithArgs(userId.String()).
			WillReturnRows(pgxmock.NewRows([]string{"is_active", "is_verified", "is_superuser"}).
				AddRow(true, true, false))
		poolMock.ExpectQuery("SELECT user_id, username, email").
			WithArgs(userId.String()).
			WillReturnRows(pgxmock.NewRows([]string{"user_id", "username", "email", "full_name", "phone", "bio",
				"avatar", "is_active", "is_verified", "is_superuser", "created_at", "updated_at", "last_login_at"}).
				AddRow(&userId, "testUser", "test@example.com", "Test User", "", "", "", true, true, false,
					&now, &now, (*time.Time)(nil)))

		expect := httpexpect.Default(t, server.URL)
		request := expect.GET("/api/v1/users/me").WithHeader("Authorization", "Bearer "+pair.AccessToken)
		body := request.Expect().Status(http.StatusOK).JSON().Object()

		body.HasValue("username", "testUser")
		body.HasValue("email", "test@example.com")

		if err := poolMock.ExpectationsWereMet(); err != nil {
			t.Errorf("there were unfulfilled expectations: %s", err)
		}
		cacheMgrMock.AssertExpectations(t)
	})

	t.Run("Unauthorized", func(t *testing.T) {
		databaseMgrMock, cacheMgrMock, jwtMgr, mailMgrMock := setupMocks(t)
		router := InitRouter(databaseMgrMock, cacheMgrMock, mailMgrMock, jwtMgr)

		server := httptest.NewServer(router)
		defer server.Close()

		expect := httpexpect.Default(t, server.URL)
		request := expect.GET("/api/v1/users/me").WithHeader("Authorization", "Bearer NonsenseToken")
		response := request.Expect().Status(http.StatusUnauthorized)
		response.JSON().Object().Value("error").Object().HasValue("code", "ERR-006")
	})
}

func TestCapabilityEnforcement(t *testing.T) {
	userId := uuid.New()

	t.Run("NonSuperuserListingRoles", func(t *testing.T) {
		databaseMgrMock, cacheMgrMock, jwtMgr, mailMgrMock := setupMocks(t)
		router := InitRouter(databaseMgrMock, cacheMgrMock, mailMgrMock, jwtMgr)

		server := httptest.NewServer(router)
		defer server.Close()

		pair, _ := jwtMgr.GenerateTokenPair(userId.String(), "testUser")

		poolMock := databaseMgrMock.GetPool().(pgxmock.PgxPoolIface)
		poolMock.ExpectQuery("SELECT is_active, is_verified, is_superuser").
			WithArgs(userId.String()).
			WillReturnRows(pgxmock.NewRows([]string{"is_active", "is_verified", "is_superuser"}).
				AddRow(true, true, false))

		expect := httpexpect.Default(t, server.URL)
		request := expect.GET("/api/v1/roles").WithHeader("Authorization", "Bearer "+pair.AccessToken)
		response := request.Expect().Status(http.StatusForbidden)
		response.JSON().Object().Value("error").Object().HasValue("code", "ERR-007")

		if err := poolMock.ExpectationsWereMet(); err != nil {
			t.Errorf("there were unfulfilled expectations: %s", err)
		}
	})

	t.Run("UnverifiedUserForbidden", func(t *testing.T) {
		databaseMgrMock, cacheMgrMock, jwtMgr, mailMgrMock := setupMocks(t)
		router := InitRouter(databaseMgrMock, cacheMgrMock, mailMgrMock, jwtMgr)

		server := httptest.NewServer(router)
		defer server.Close()

		pair, _ := jwtMgr.GenerateTokenPair(userId.String(), "testUser")

		poolMock := databaseMgrMock.GetPool().(pgxmock.PgxPoolIface)
		poolMock.ExpectQuery("SELECT is_active, is_verified, is_superuser").
			WithArgs(userId.String()).
			WillReturnRows(pgxmock.NewRows([]string{"is_active", "is_verified", "is_superuser"}).
				AddRow(true, false, false))

		expect := httpexpect.Default(t, server.URL)
		request := expect.GET("/api/v1/departments").WithHeader("Authorization", "Bearer "+pair.AccessToken)
		response := request.Expect().Status(http.StatusForbidden)
		response.JSON().Object().Value("error").Object().HasValue("code", "ERR-010")

		if err := poolMock.ExpectationsWereMet(); err != nil {
			t.Errorf("there were unfulfilled expectations: %s", err)
		}
	})

	t.Run("DeactivatedUserRejected", func(t *testing.T) {
		databaseMgrMock, cacheMgrMock, jwtMgr, mailMgrMock := setupMocks(t)
		router := InitRouter(databaseMgrMock, cacheMgrMock, mailMgrMock, jwtMgr)

		server := httptest.NewServer(router)
		defer server.Close()

		pair, _ := jwtMgr.GenerateTokenPair(userId.String(), "testUser")

		poolMock := databaseMgrMock.GetPool().(pgxmock.PgxPoolIface)
		poolMock.ExpectQuery("SELECT is_active, is_verified, is_superuser").
			WithArgs(userId.String()).
			WillReturnRows(pgxmock.NewRows([]string{"is_active", "is_verified", "is_superuser"}).
				AddRow(false, true, false))

		expect := httpexpect.Default(t, server.URL)
		request := expect.GET("/api/v1/departments").WithHeader("Authorization", "Bearer "+pair.AccessToken)
		response := request.Expect().Status(http.StatusUnauthorized)
		response.JSON().Object().Value("error").Object().HasValue("code", "ERR-006")

		if err := poolMock.ExpectationsWereMet(); err != nil {
			t.Errorf("there were unfulfilled expectations: %s", err)
		}
	})
}

func TestChangePassword(t *testing.T) {
	userId := uuid.New()

	t.Run("MismatchedConfirmation", func(t *testing.T) {
		databaseMgrMock, cacheMgrMock, jwtMgr, mailMgrMock := setupMocks(t)
		router := InitRouter(databaseMgrMock, cacheMgrMock, mailMgrMock, jwtMgr)

		server := httptest.NewServer(router)
		defer server.Close()

		pair, _ := jwtMgr.GenerateTokenPair(userId.String(), "testUser")

		poolMock := databaseMgrMock.GetPool().(pgxmock.PgxPoolIface)
		expectAuditEntry(poolMock)

		expect := httpexpect.Default(t, server.URL)
		request := expect.POST("/api/v1/auth/change-password").
			WithHeader("Authorization", "Bearer "+pair.AccessToken).
			WithJSON(map[string]string{
				"current_password":     "current.Password123",
				"new_password":         "new.Password123",
				"confirm_new_password": "other.Password123",
			})
		response := request.Expect().Status(http.StatusBadRequest)
		response.JSON().Object().Value("error").Object().HasValue("code", "ERR-004")

		if err := poolMock.ExpectationsWereMet(); err != nil {
			t.Errorf("there were unfulfilled expectations: %s", err)
		}
	})
}

func TestHealth(t *testing.T) {
	testCases := []struct {
		name     string
		cacheErr error
		status   int
		cache    string
		overall  string
	}{
		{"AllUp", nil, http.StatusOK, "up", "ok"},
		{"CacheDown", redis.ErrClosed, http.StatusServiceUnavailable, "down", "degraded"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			databaseMgrMock, cacheMgrMock, jwtMgr, mailMgrMock := setupMocks(t)
			router := InitRouter(databaseMgrMock, cacheMgrMock, mailMgrMock, jwtMgr)

			server := httptest.NewServer(router)
			defer server.Close()

			poolMock := databaseMgrMock.GetPool().(pgxmock.PgxPoolIface)
			poolMock.ExpectPing()
			cacheMgrMock.On("Ping", mock.Anything).Return(tc.cacheErr)

			expect := httpexpect.Default(t, server.URL)
			body := expect.GET("/health").Expect().Status(tc.status).JSON().Object()
			body.HasValue("status", tc.overall)
			body.HasValue("database", "up")
			body.HasValue("cache", tc.cache)

			if err := poolMock.ExpectationsWereMet(); err != nil {
				t.Errorf("there were unfulfilled expectations: %s", err)
			}
		})
	}
}

package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"admin-core/internal/schemas"
)

func TestPasswordValidation(t *testing.T) {
	validate := GetValidator().Validate

	testCases := []struct {
		name     string
		password string
		valid    bool
	}{
		{"Valid", "test.Password123", true},
		{"NoUpperCase", "test.password123", false},
		{"NoLowerCase", "TEST.PASSWORD123", false},
		{"NoDigit", "test.Password", false},
		{"NoSpecialChar", "testPassword123", false},
		{"NonASCII", "test.Pässword123", false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			err := validate.Var(tc.password, "password_validation")
			if tc.valid {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestUsernameValidation(t *testing.T) {
	validate := GetValidator().Validate

	testCases := []struct {
		name     string
		username string
		valid    bool
	}{
		{"Simple", "testUser", true},
		{"WithSeparators", "test.user-1_a", true},
		{"WithSpace", "test user", false},
		{"WithSlash", "test/user", false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			err := validate.Var(tc.username, "username_validation")
			if tc.valid {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestCodeValidation(t *testing.T) {
	validate := GetValidator().Validate

	testCases := []struct {
		name  string
		code  string
		valid bool
	}{
		{"Uppercase", "ENG-01", true},
		{"WithUnderscore", "HR_TEAM", true},
		{"Lowercase", "eng-01", false},
		{"WithSpace", "ENG 01", false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			err := validate.Var(tc.code, "code_validation")
			if tc.valid {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestSanitizeDataStripsMarkup(t *testing.T) {
	v := GetValidator()

	request := &schemas.UpdateProfileRequest{
		FullName: "<script>alert('x')</script>Jane",
		Bio:      "plain <b>bold</b> text",
	}

	err := v.SanitizeData(request)
	assert.NoError(t, err)
	assert.Equal(t, "Jane", request.FullName)
	assert.Equal(t, "plain bold text", request.Bio)
}

func TestRegistrationRequestValidation(t *testing.T) {
	validate := GetValidator().Validate

	valid := schemas.RegistrationRequest{
		Username:        "testUser",
		Email:           "test@example.com",
		Password:        "test.Password123",
		ConfirmPassword: "test.Password123",
	}
	assert.NoError(t, validate.Struct(valid))

	// A mismatched confirmation is the handler's concern, not the validator's.
	mismatch := valid
	mismatch.ConfirmPassword = "other.Password123"
	assert.NoError(t, validate.Struct(mismatch))

	badEmail := valid
	badEmail.Email = "not-an-email"
	assert.Error(t, validate.Struct(badEmail))
}

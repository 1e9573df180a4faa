package utils

import (
	"reflect"
	"regexp"
	"sync"
	"unicode"

	"github.com/go-playground/validator/v10"
	"github.com/microcosm-cc/bluemonday"
	"github.com/truemail-rb/truemail-go"
)

// Validator bundles the struct validator with the email verification hook
// and the HTML sanitizing policy applied to incoming payloads.
type Validator struct {
	Validate    *validator.Validate
	VerifyEmail func(email string) bool

	policy *bluemonday.Policy
}

var instance *Validator
var once sync.Once
var configuration *truemail.Configuration

// GetValidator returns the process-wide validator instance.
func GetValidator() *Validator {
	once.Do(func() {
		configuration, _ = truemail.NewConfiguration(truemail.ConfigurationAttr{
			VerifierEmail:         "noreply@admin-core.dev",
			ValidationTypeDefault: "mx",
			SmtpFailFast:          true,
		})

		instance = &Validator{
			Validate:    validator.New(validator.WithRequiredStructEnabled()),
			VerifyEmail: validateEmail,
			policy:      bluemonday.StrictPolicy(),
		}

		registerCustomValidators(instance.Validate)
	})

	return instance
}

// SanitizeData strips any markup from every string field of the given
// struct pointer, including nested structs.
func (v *Validator) SanitizeData(obj interface{}) error {
	value := reflect.ValueOf(obj)
	if value.Kind() == reflect.Ptr {
		value = value.Elem()
	}
	if value.Kind() != reflect.Struct {
		return nil
	}

	for i := 0; i < value.NumField(); i++ {
		field := value.Field(i)
		switch field.Kind() {
		case reflect.String:
			if field.CanSet() {
				field.SetString(v.policy.Sanitize(field.String()))
			}
		case reflect.Struct:
			if field.CanAddr() {
				if err := v.SanitizeData(field.Addr().Interface()); err != nil {
					return err
				}
			}
		}
	}

	return nil
}

func validateEmail(email string) bool {
	return truemail.IsValid(email, configuration)
}

func registerCustomValidators(v *validator.Validate) {
	_ = v.RegisterValidation("username_validation", usernameValidation)
	_ = v.RegisterValidation("password_validation", passwordValidation)
	_ = v.RegisterValidation("code_validation", codeValidation)
}

// usernameValidation allows a-z, A-Z, 0-9, ., -, and _.
func usernameValidation(fl validator.FieldLevel) bool {
	pattern := `^[a-zA-Z0-9.\-_]+$`
	match, err := regexp.MatchString(pattern, fl.Field().String())
	if err != nil {
		return false
	}

	return match
}

// codeValidation allows uppercase identifiers such as department codes and
// employee numbers: A-Z, 0-9, -, _.
func codeValidation(fl validator.FieldLevel) bool {
	pattern := `^[A-Z0-9\-_]+$`
	match, err := regexp.MatchString(pattern, fl.Field().String())
	if err != nil {
		return false
	}

	return match
}

// passwordValidation requires an upper case letter, a lower case letter,
// a digit and a special character, all within ASCII.
func passwordValidation(fl validator.FieldLevel) bool {
	var upperLetter, lowerLetter, number, specialChar bool

	value := fl.Field().String()
	for _, r := range value {
		if r > unicode.MaxASCII {
			return false
		}

		switch {
		case unicode.IsUpper(r):
			upperLetter = true
		case unicode.IsLower(r):
			lowerLetter = true
		case unicode.IsNumber(r):
			number = true
		case unicode.IsPunct(r) || unicode.IsSymbol(r):
			specialChar = true
		}
	}

	return upperLetter && lowerLetter && number && specialChar
}

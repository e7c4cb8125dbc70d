package domain

import (
	"regexp"

	"github.com/go-playground/validator/v10"
)

// EnvNameRegex validates environment names used as labels and metric values
var EnvNameRegex = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9._-]*$`)

var validate = NewValidator()

// NewValidator creates a configured validator instance
func NewValidator() *validator.Validate {
	v := validator.New()

	// Register custom environment name validation
	_ = v.RegisterValidation("env_name", func(fl validator.FieldLevel) bool {
		return EnvNameRegex.MatchString(fl.Field().String())
	})

	return v
}

// ValidateEnvironment validates an EnvironmentSpec
func ValidateEnvironment(env *EnvironmentSpec) error {
	return validate.Struct(env)
}

// ValidateStruct validates any struct carrying validate tags
func ValidateStruct(v any) error {
	return validate.Struct(v)
}

package application

import (
	"fmt"

	"github.com/go-playground/validator/v10"

	"github.com/ahrav/litcast/infrastructure/llm"
)

// registerCustomValidators adds the semver and modelformat tags.
func registerCustomValidators(v *validator.Validate) error {
	if err := v.RegisterValidation("semver", validateSemver); err != nil {
		return fmt.Errorf("failed to register semver validator: %w", err)
	}
	if err := v.RegisterValidation("modelformat", validateModelFormat); err != nil {
		return fmt.Errorf("failed to register modelformat validator: %w", err)
	}
	return nil
}

// validateSemver accepts X.Y.Z where X, Y and Z are non-negative integers.
func validateSemver(fl validator.FieldLevel) bool {
	value := fl.Field().String()
	var major, minor, patch int
	var rest string
	n, _ := fmt.Sscanf(value, "%d.%d.%d%s", &major, &minor, &patch, &rest)
	return n == 3 && major >= 0 && minor >= 0 && patch >= 0
}

// validateModelFormat accepts "provider/model" or a bare registered
// provider name, which selects that provider's default model.
func validateModelFormat(fl validator.FieldLevel) bool {
	model := fl.Field().String()
	if model == "" {
		return true
	}
	_, err := llm.ParseModelRef(model)
	return err == nil
}

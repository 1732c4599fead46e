package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"qtermpi/internal/quantum"
)

var validate *validator.Validate

func init() {
	validate = validator.New(validator.WithRequiredStructEnabled())
	validate.RegisterStructValidation(validateSweep, Config{})
}

// validateSweep needs either explicit qubit counts or an upper bound that
// is not below the lower one.
func validateSweep(sl validator.StructLevel) {
	cfg := sl.Current().Interface().(Config)
	if len(cfg.Qubits) > 0 {
		return
	}
	switch {
	case cfg.MaxQubits == 0:
		sl.ReportError(cfg.MaxQubits, "MaxQubits", "MaxQubits", "required_without_qubits", "")
	case cfg.MaxQubits < cfg.MinQubits:
		sl.ReportError(cfg.MaxQubits, "MaxQubits", "MaxQubits", "gtefield", "MinQubits")
	}
}

// Validate checks c and returns an error wrapping
// quantum.ErrInvalidConfiguration listing every failed rule.
func (c *Config) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("%w: %v", quantum.ErrInvalidConfiguration, err)
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, describe(fe))
	}
	return fmt.Errorf("%w: %s", quantum.ErrInvalidConfiguration, strings.Join(msgs, "; "))
}

func describe(fe validator.FieldError) string {
	field := strings.TrimPrefix(fe.Namespace(), "Config.")
	switch fe.Tag() {
	case "required_without_qubits":
		return "a maximum qubit count or an explicit qubit list is required"
	case "gtefield":
		return fmt.Sprintf("%s (%v) must not be below %s", field, fe.Value(), fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s], got %q", field, fe.Param(), fe.Value())
	case "min", "gt":
		return fmt.Sprintf("%s must be at least %s, got %v", field, minimum(fe), fe.Value())
	case "max":
		return fmt.Sprintf("%s must be at most %d, got %v", field, maxCountingQubits, fe.Value())
	case "required_if":
		return fmt.Sprintf("%s is required when %s", field, fe.Param())
	case "hostname_port":
		return fmt.Sprintf("%s must be host:port, got %q", field, fe.Value())
	}
	return fmt.Sprintf("%s failed %s", field, fe.Tag())
}

func minimum(fe validator.FieldError) string {
	if fe.Tag() == "gt" {
		return "1"
	}
	return fe.Param()
}

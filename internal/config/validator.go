package config

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// ValidationError is a single invalid setting.
type ValidationError struct {
	Field   string // The config key, e.g. "source.mode"
	Value   any    // The invalid value
	Message string // Human-readable description
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s (got: %v)", e.Field, e.Message, e.Value)
}

// ValidationErrors is every invalid setting found in a Config.
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return ""
	}
	if len(e) == 1 {
		return e[0].Error()
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "%d validation errors:\n", len(e))
	for i, err := range e {
		fmt.Fprintf(&sb, "  %d. %s\n", i+1, err.Error())
	}
	return sb.String()
}

var validate = newValidator()

// newValidator names fields after their mapstructure keys so errors point
// at what the user actually wrote.
func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("mapstructure"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Validate checks field constraints, then the settings each source mode needs.
func (c *Config) Validate() error {
	var errs ValidationErrors

	if err := validate.Struct(c); err != nil {
		var fieldErrs validator.ValidationErrors
		if !errors.As(err, &fieldErrs) {
			return err
		}
		for _, fe := range fieldErrs {
			errs = append(errs, ValidationError{
				Field:   fieldPath(fe.Namespace()),
				Value:   fe.Value(),
				Message: describe(fe),
			})
		}
	}

	errs = append(errs, c.validateSource()...)

	if len(errs) > 0 {
		return errs
	}
	return nil
}

func (c *Config) validateSource() []ValidationError {
	var errs []ValidationError
	need := func(field, value string) {
		if value == "" {
			errs = append(errs, ValidationError{
				Field:   field,
				Value:   value,
				Message: "required when source.mode is " + c.Source.Mode,
			})
		}
	}

	switch c.Source.Mode {
	case ModeStatic, ModeFile:
		need("source.path", c.Source.Path)
	case ModePoll:
		need("source.url", c.Source.URL)
		if c.Source.Interval <= 0 {
			errs = append(errs, ValidationError{
				Field:   "source.interval",
				Value:   c.Source.Interval,
				Message: "must be positive when source.mode is poll",
			})
		}
	case ModeNATS:
		need("source.nats.url", c.Source.NATS.URL)
		need("source.nats.bucket", c.Source.NATS.Bucket)
		need("source.nats.key", c.Source.NATS.Key)
	}
	return errs
}

// fieldPath turns "Config.source.nats.url" into "source.nats.url".
func fieldPath(namespace string) string {
	if i := strings.IndexByte(namespace, '.'); i >= 0 {
		return namespace[i+1:]
	}
	return namespace
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "oneof":
		return "must be one of: " + fe.Param()
	case "url":
		return "must be a valid URL"
	case "gt":
		return "must be greater than " + fe.Param()
	case "gte":
		return "must be at least " + fe.Param()
	default:
		return "failed the " + fe.Tag() + " constraint"
	}
}

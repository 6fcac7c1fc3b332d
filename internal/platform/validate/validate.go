// Package validate adapts go-playground/validator to echo and adds the
// clinic-specific tags: phone, clock and date.
package validate

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/nyaruka/phonenumbers"

	"github.com/Hatice4217/lum-nex-next-sub000/internal/platform/apperr"
)

var clockPattern = regexp.MustCompile(`^([01][0-9]|2[0-3]):[0-5][0-9]$`)

// FieldError describes one failed rule, keyed by the JSON field name.
type FieldError struct {
	Field string `json:"field"`
	Rule  string `json:"rule"`
	Param string `json:"param,omitempty"`
}

// Validator implements echo.Validator.
type Validator struct {
	v      *validator.Validate
	region string
}

// New returns a validator that checks phone numbers against region
// (ISO 3166 alpha-2) when they carry no country code.
func New(region string) *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name == "" {
			return f.Name
		}
		return name
	})

	out := &Validator{v: v, region: strings.ToUpper(region)}
	_ = v.RegisterValidation("phone", func(fl validator.FieldLevel) bool {
		_, err := NormalizePhone(fl.Field().String(), out.region)
		return err == nil
	})
	_ = v.RegisterValidation("clock", func(fl validator.FieldLevel) bool {
		return IsClock(fl.Field().String())
	})
	_ = v.RegisterValidation("date", func(fl validator.FieldLevel) bool {
		return IsDate(fl.Field().String())
	})
	return out
}

// Validate checks i and returns an apperr validation error listing each
// failed field.
func (v *Validator) Validate(i interface{}) error {
	err := v.v.Struct(i)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return apperr.Invalid("invalid request: %v", err)
	}

	fields := make([]FieldError, 0, len(verrs))
	names := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, FieldError{Field: fe.Field(), Rule: fe.Tag(), Param: fe.Param()})
		names = append(names, fe.Field())
	}
	return apperr.Invalid("invalid fields: %s", strings.Join(names, ", ")).WithDetails(fields)
}

// Region is the default phone region.
func (v *Validator) Region() string { return v.region }

// Bind decodes the request body into dst and validates it.
func Bind(c echo.Context, dst interface{}) error {
	if err := c.Bind(dst); err != nil {
		return apperr.Invalid("malformed request body")
	}
	return c.Validate(dst)
}

// NormalizePhone parses raw in region and returns its E.164 form.
func NormalizePhone(raw, region string) (string, error) {
	num, err := phonenumbers.Parse(raw, region)
	if err != nil {
		return "", fmt.Errorf("parse phone: %w", err)
	}
	if !phonenumbers.IsValidNumber(num) {
		return "", fmt.Errorf("invalid phone number %q", raw)
	}
	return phonenumbers.Format(num, phonenumbers.E164), nil
}

// IsClock reports whether s is a zero-padded 24h HH:MM wall-clock time.
func IsClock(s string) bool {
	return clockPattern.MatchString(s)
}

// IsDate reports whether s is a YYYY-MM-DD calendar date.
func IsDate(s string) bool {
	_, err := time.Parse(time.DateOnly, s)
	return err == nil
}

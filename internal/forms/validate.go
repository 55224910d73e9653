package forms

import (
	"fmt"
	"reflect"
	"regexp"
	"sort"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/localnerve/jam-build-collectionsdb/internal/types"
)

var (
	mobilePattern  = regexp.MustCompile(`^[6-9][0-9]{9}$`)
	panPattern     = regexp.MustCompile(`^[A-Z]{5}[0-9]{4}[A-Z]$`)
	aadhaarPattern = regexp.MustCompile(`^[0-9]{12}$`)
)

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

// Validator returns the shared validator with the form tags registered.
func Validator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New()
		_ = validate.RegisterValidation("indian_mobile", pattern(mobilePattern))
		_ = validate.RegisterValidation("pan", pattern(panPattern))
		_ = validate.RegisterValidation("aadhaar", pattern(aadhaarPattern))
		_ = validate.RegisterValidation("weekday", validateWeekday)
	})
	return validate
}

func pattern(re *regexp.Regexp) validator.Func {
	return func(fl validator.FieldLevel) bool {
		if fl.Field().Kind() != reflect.String {
			return false
		}
		return re.MatchString(strings.TrimSpace(fl.Field().String()))
	}
}

func validateWeekday(fl validator.FieldLevel) bool {
	if fl.Field().Kind() != reflect.String {
		return false
	}
	_, ok := NormalizeDay(fl.Field().String())
	return ok
}

// Validate checks fields against the definition's rules. It returns a
// *types.ValidationError listing a message per failing field, or nil.
func Validate(def Definition, fields map[string]any) error {
	data := make(map[string]any, len(fields))
	for k, v := range fields {
		data[k] = v
	}

	failures := Validator().ValidateMap(data, def.Rules())
	if len(failures) == 0 {
		return nil
	}

	names := make([]string, 0, len(failures))
	for name := range failures {
		names = append(names, name)
	}
	sort.Strings(names)

	verr := &types.ValidationError{}
	for _, name := range names {
		verr.Add(name, message(def.label(name), failures[name]))
	}
	return verr.OrNil()
}

func (d Definition) label(name string) string {
	for _, f := range d.Fields {
		if f.Name == name {
			return f.Label
		}
	}
	return name
}

func message(label string, failure any) string {
	errs, ok := failure.(validator.ValidationErrors)
	if !ok || len(errs) == 0 {
		return fmt.Sprintf("%s is invalid", label)
	}

	fe := errs[0]
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", label)
	case "email":
		return fmt.Sprintf("%s must be a valid email address", label)
	case "indian_mobile":
		return fmt.Sprintf("%s must be a 10 digit mobile number", label)
	case "pan":
		return fmt.Sprintf("%s must look like ABCDE1234F", label)
	case "aadhaar":
		return fmt.Sprintf("%s must be a 12 digit number", label)
	case "weekday":
		return fmt.Sprintf("%s must be a weekday", label)
	case "min":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("%s must be at least %s characters", label, fe.Param())
		}
		return fmt.Sprintf("%s must be at least %s", label, fe.Param())
	case "max":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("%s must be at most %s characters", label, fe.Param())
		}
		return fmt.Sprintf("%s must be at most %s", label, fe.Param())
	}
	return fmt.Sprintf("%s is invalid", label)
}

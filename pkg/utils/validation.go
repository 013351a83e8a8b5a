package utils

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"unicode"

	"github.com/go-playground/validator/v10"
)

var validate = newValidator()

// newValidator reports fields by their JSON names, the names API callers see
func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(jsonName)
	return v
}

func jsonName(f reflect.StructField) string {
	name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
	switch name {
	case "-":
		return ""
	case "":
		return lowerFirst(f.Name)
	}
	return name
}

// FieldError is one rejected field
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// FieldErrors lists every rejected field of a struct
type FieldErrors []FieldError

func (fe FieldErrors) Error() string {
	parts := make([]string, len(fe))
	for i, f := range fe {
		parts[i] = f.Message
	}
	return strings.Join(parts, "; ")
}

// ValidateStruct checks s against its validate tags. Tag violations come back
// as FieldErrors.
func ValidateStruct(s interface{}) error {
	err := validate.Struct(s)
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}

	t := reflect.TypeOf(s)
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	out := make(FieldErrors, 0, len(verrs))
	for _, e := range verrs {
		out = append(out, FieldError{Field: e.Field(), Message: describe(t, e)})
	}
	return out
}

// sibling names the field a cross-field tag points at
func sibling(t reflect.Type, goName string) string {
	if f, ok := t.FieldByName(goName); ok {
		return jsonName(f)
	}
	return lowerFirst(goName)
}

func describe(t reflect.Type, e validator.FieldError) string {
	field := e.Field()
	switch e.Tag() {
	case "required":
		return field + " is required"
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", field, e.Param())
	case "min":
		return fmt.Sprintf("%s must be at least %s characters", field, e.Param())
	case "uuid4":
		return field + " must be a valid session id"
	case "required_without":
		return fmt.Sprintf("%s is required when %s is not set", field, sibling(t, e.Param()))
	case "excluded_with":
		return fmt.Sprintf("%s cannot be combined with %s", field, sibling(t, e.Param()))
	}
	return field + " is invalid"
}

func lowerFirst(s string) string {
	if s == "" {
		return s
	}
	r := []rune(s)
	r[0] = unicode.ToLower(r[0])
	return string(r)
}

// Preview returns at most n runes of s, with an ellipsis when truncated.
func Preview(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n]) + "..."
}

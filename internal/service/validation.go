package service

import (
	"errors"
	"html"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/microcosm-cc/bluemonday"
)

var (
	validate = newValidator()
	policy   = bluemonday.StrictPolicy()
)

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "" || name == "-" {
			return fld.Name
		}
		return name
	})
	return v
}

// sanitizePasses bounds how many times escaped markup is unwrapped
const sanitizePasses = 8

// Sanitize strips every HTML tag from s and trims surrounding whitespace.
// Plain text keeps its characters: the policy's entity escaping is undone,
// and the result is stripped again until stable so decoded entities can
// never form markup.
func Sanitize(s string) string {
	for i := 0; i < sanitizePasses; i++ {
		clean := html.UnescapeString(policy.Sanitize(s))
		if clean == s {
			return strings.TrimSpace(s)
		}
		s = clean
	}
	// Still changing: keep the escaped form rather than risk live markup
	return strings.TrimSpace(policy.Sanitize(s))
}

// JoinInput is the body of a join request
type JoinInput struct {
	Name string `json:"name" validate:"required"`
}

// MessageInput is the body of a post or edit request
type MessageInput struct {
	To   string `json:"to" validate:"required"`
	Text string `json:"text" validate:"required"`
	Type string `json:"type" validate:"required,oneof=message private_message"`
}

func (in *JoinInput) sanitize() {
	in.Name = Sanitize(in.Name)
}

func (in *MessageInput) sanitize() {
	in.To = Sanitize(in.To)
	in.Text = Sanitize(in.Text)
	in.Type = Sanitize(in.Type)
}

// validateStruct runs the struct rules and converts failures to a ValidationError
func validateStruct(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	fields := make([]FieldError, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, FieldError{
			Field:   fe.Field(),
			Rule:    fe.Tag(),
			Message: describe(fe),
		})
	}
	return &ValidationError{Fields: fields}
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "oneof":
		return "must be one of: " + fe.Param()
	default:
		return "is invalid"
	}
}

// ValidateIdentity sanitizes the caller identity taken from the User header
func ValidateIdentity(raw string) (string, error) {
	name := Sanitize(raw)
	if name == "" {
		return "", &ValidationError{Fields: []FieldError{{
			Field:   "User",
			Rule:    "required",
			Message: "header is required",
		}}}
	}
	return name, nil
}

// ParseLimit reads the optional limit query value. An empty value means no
// limit and yields zero.
func ParseLimit(raw string) (int, error) {
	if raw == "" {
		return 0, nil
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit <= 0 {
		return 0, &ValidationError{Fields: []FieldError{{
			Field:   "limit",
			Rule:    "gt",
			Message: "must be a positive integer",
		}}}
	}
	return limit, nil
}

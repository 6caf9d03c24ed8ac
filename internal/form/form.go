// Package form runs declarative per-field validation rules before any state
// mutation. A Schema maps each field to an ordered list of rules; only the
// first violated rule of a field is reported.
package form

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// Values holds submitted field values by name.
type Values map[string]string

// Errors maps a field name to its first violation message.
type Errors map[string]string

func (e Errors) OK() bool { return len(e) == 0 }

// Rule is one predicate with its message. Exactly one of Tag, EqualTo or
// Check is used, in that order of precedence: Check, EqualTo, Tag.
type Rule struct {
	Tag     string
	EqualTo string
	Check   func(ctx context.Context, value string) (bool, error)
	Message string
}

// Field is validated trimmed unless Raw is set; secrets keep their whitespace.
type Field struct {
	Name  string
	Rules []Rule
	Raw   bool
}

type Schema struct {
	fields []Field
}

func NewSchema(fields ...Field) *Schema {
	return &Schema{fields: fields}
}

// Validate evaluates every field. The error return is reserved for failures
// of a rule itself (e.g. a store lookup), never for invalid input.
func (s *Schema) Validate(ctx context.Context, values Values) (Errors, error) {
	errs := Errors{}
	for _, f := range s.fields {
		value := values[f.Name]
		if !f.Raw {
			value = strings.TrimSpace(value)
		}
		for _, r := range f.Rules {
			ok, err := r.eval(ctx, value, values, f.Raw)
			if err != nil {
				return nil, fmt.Errorf("validate %s: %w", f.Name, err)
			}
			if !ok {
				errs[f.Name] = r.Message
				break
			}
		}
	}
	return errs, nil
}

func (r Rule) eval(ctx context.Context, value string, values Values, raw bool) (bool, error) {
	var err error
	switch {
	case r.Check != nil:
		return r.Check(ctx, value)
	case r.EqualTo != "":
		other := values[r.EqualTo]
		if !raw {
			other = strings.TrimSpace(other)
		}
		err = validate.VarWithValue(value, other, "eqfield")
	default:
		err = validate.Var(value, r.Tag)
	}
	if err == nil {
		return true, nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		return false, nil
	}
	return false, err
}

func Required() Rule {
	return Rule{Tag: "required", Message: "This field is required."}
}

func Email() Rule {
	return Rule{Tag: "email", Message: "Invalid email address."}
}

func Length(min, max int) Rule {
	return Rule{
		Tag:     fmt.Sprintf("min=%d,max=%d", min, max),
		Message: fmt.Sprintf("Field must be between %d and %d characters long.", min, max),
	}
}

// OptionalLength accepts an empty value or one within [min, max].
func OptionalLength(min, max int) Rule {
	r := Length(min, max)
	r.Tag = "omitempty," + r.Tag
	return r
}

func EqualTo(field string) Rule {
	return Rule{EqualTo: field, Message: fmt.Sprintf("Field must be equal to %s.", field)}
}

// Unique fails when taken reports the value as already used.
func Unique(taken func(ctx context.Context, value string) (bool, error), message string) Rule {
	return Rule{
		Check: func(ctx context.Context, value string) (bool, error) {
			used, err := taken(ctx, value)
			return !used, err
		},
		Message: message,
	}
}

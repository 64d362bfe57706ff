package validation

import (
	"errors"
	"fmt"
	"sync"

	"github.com/go-playground/validator/v10"

	"UserManagerService/models"
)

// InputKind is the kind of input a field is edited with.
type InputKind string

const (
	KindText  InputKind = "text"
	KindTel   InputKind = "tel"
	KindEmail InputKind = "email"
)

// Rule is a validator tag plus the message shown for each tag that can fail.
// Tag must not contain "required" or "omitempty"; those come from Field.Required.
type Rule struct {
	Tag      string
	Messages map[string]string
}

// Field describes one user attribute: how it is labelled, edited and validated.
type Field struct {
	Name     string
	Label    string
	Kind     InputKind
	Required bool
	Rule     Rule
}

// Errors maps a field name to its validation message. A nil Errors means valid.
type Errors map[string]string

// UserFields is the ordered field list driving the user table, the user form and user validation.
var UserFields = []Field{
	{
		Name:     models.FieldFirstName,
		Label:    "First Name",
		Kind:     KindText,
		Required: true,
		Rule: Rule{
			Tag: "notblank,min=2,max=50",
			Messages: map[string]string{
				"required": "First name is required",
				"notblank": "First name is required",
				"min":      "First name must be at least 2 characters",
				"max":      "First name cannot exceed 50 characters",
			},
		},
	},
	{
		Name:     models.FieldLastName,
		Label:    "Last Name",
		Kind:     KindText,
		Required: true,
		Rule: Rule{
			Tag: "notblank,min=2,max=50",
			Messages: map[string]string{
				"required": "Last name is required",
				"notblank": "Last name is required",
				"min":      "Last name must be at least 2 characters",
				"max":      "Last name cannot exceed 50 characters",
			},
		},
	},
	{
		Name:     models.FieldPhoneNumber,
		Label:    "Phone Number",
		Kind:     KindTel,
		Required: true,
		Rule: Rule{
			Tag: "phone",
			Messages: map[string]string{
				"required": "Phone number is required",
				"phone":    "Please enter a valid phone number",
			},
		},
	},
	{
		Name:     models.FieldEmail,
		Label:    "Email Address",
		Kind:     KindEmail,
		Required: true,
		Rule: Rule{
			Tag: "email",
			Messages: map[string]string{
				"required": "Email is required",
				"email":    "Please enter a valid email address",
			},
		},
	},
}

// Schema is a compiled, immutable field list.
type Schema struct {
	fields   []Field
	tags     []string
	index    map[string]int
	validate *validator.Validate
}

// NewSchema compiles fields into a Schema. The list must be non-empty and names must be unique.
func NewSchema(fields []Field) (*Schema, error) {
	if len(fields) == 0 {
		return nil, errors.New("validation: field list is empty")
	}
	v, err := newValidator()
	if err != nil {
		return nil, fmt.Errorf("validation: registering validators: %w", err)
	}
	s := &Schema{
		fields:   make([]Field, len(fields)),
		tags:     make([]string, len(fields)),
		index:    make(map[string]int, len(fields)),
		validate: v,
	}
	copy(s.fields, fields)
	for i, f := range s.fields {
		if f.Name == "" {
			return nil, fmt.Errorf("validation: field %d has no name", i)
		}
		if _, dup := s.index[f.Name]; dup {
			return nil, fmt.Errorf("validation: duplicate field %q", f.Name)
		}
		s.index[f.Name] = i
		s.tags[i] = compileTag(f)
	}
	return s, nil
}

func compileTag(f Field) string {
	prefix := "omitempty"
	if f.Required {
		prefix = "required"
	}
	if f.Rule.Tag == "" {
		return prefix
	}
	return prefix + "," + f.Rule.Tag
}

var users = sync.OnceValue(func() *Schema {
	s, err := NewSchema(UserFields)
	if err != nil {
		panic(err)
	}
	return s
})

// Users returns the schema compiled from UserFields.
func Users() *Schema {
	return users()
}

// Fields returns the descriptors in order.
func (s *Schema) Fields() []Field {
	out := make([]Field, len(s.fields))
	copy(out, s.fields)
	return out
}

// Field returns the descriptor with the given name.
func (s *Schema) Field(name string) (Field, bool) {
	i, ok := s.index[name]
	if !ok {
		return Field{}, false
	}
	return s.fields[i], true
}

// Names returns the field names in order.
func (s *Schema) Names() []string {
	out := make([]string, len(s.fields))
	for i, f := range s.fields {
		out[i] = f.Name
	}
	return out
}

// Blank returns a value set holding the empty string for every field.
func (s *Schema) Blank() map[string]string {
	out := make(map[string]string, len(s.fields))
	for _, f := range s.fields {
		out[f.Name] = ""
	}
	return out
}

// ValidateField checks a single value against the named field's rule.
// It returns the message and false when the value fails.
func (s *Schema) ValidateField(name, value string) (string, bool) {
	i, ok := s.index[name]
	if !ok {
		return "", true
	}
	return s.check(i, value)
}

// Validate applies every field rule to values and collects all failures.
// A field missing from values is checked as the empty string.
func (s *Schema) Validate(values map[string]string) Errors {
	var errs Errors
	for i, f := range s.fields {
		msg, ok := s.check(i, values[f.Name])
		if ok {
			continue
		}
		if errs == nil {
			errs = make(Errors)
		}
		errs[f.Name] = msg
	}
	return errs
}

func (s *Schema) check(i int, value string) (string, bool) {
	err := s.validate.Var(value, s.tags[i])
	if err == nil {
		return "", true
	}
	f := s.fields[i]
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		if msg, ok := f.Rule.Messages[verrs[0].Tag()]; ok {
			return msg, false
		}
	}
	return f.Label + " is invalid", false
}

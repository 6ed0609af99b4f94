// Package forms provides the field validation engine shared by every
// eventboard form: a schema table mapping field names to validators,
// per-instance form state, and the submission gate.
package forms

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Common form errors.
var (
	ErrUnknownField = errors.New("unknown field")
	ErrInvalidForm  = errors.New("form has invalid fields")
)

// Schema is the configuration table of a form: field name to spec, in
// declaration order.
type Schema struct {
	name   string
	fields []FieldSpec
	index  map[FieldName]int
}

// NewSchema builds a schema. It panics on duplicate or undeclared field
// names since schemas are package-level tables.
func NewSchema(name string, fields ...FieldSpec) *Schema {
	s := &Schema{
		name:   name,
		fields: make([]FieldSpec, 0, len(fields)),
		index:  make(map[FieldName]int, len(fields)),
	}
	for _, f := range fields {
		if !f.Name.Valid() {
			panic(fmt.Sprintf("forms: schema %s: undeclared field %q", name, f.Name))
		}
		if _, dup := s.index[f.Name]; dup {
			panic(fmt.Sprintf("forms: schema %s: duplicate field %q", name, f.Name))
		}
		s.index[f.Name] = len(s.fields)
		s.fields = append(s.fields, f)
	}
	return s
}

// Name returns the schema name.
func (s *Schema) Name() string {
	return s.name
}

// Fields returns the field specs in declaration order.
func (s *Schema) Fields() []FieldSpec {
	out := make([]FieldSpec, len(s.fields))
	copy(out, s.fields)
	return out
}

// Field looks up a field spec.
func (s *Schema) Field(name FieldName) (FieldSpec, bool) {
	i, ok := s.index[name]
	if !ok {
		return FieldSpec{}, false
	}
	return s.fields[i], true
}

// Has reports whether the schema tracks name.
func (s *Schema) Has(name FieldName) bool {
	_, ok := s.index[name]
	return ok
}

// Form is one instance of a schema: current values plus the field error
// state. A Form belongs to one component and is not safe for concurrent use.
type Form struct {
	schema *Schema
	values Values
	errors map[FieldName]string
}

// NewForm creates an empty form. Every field starts valid.
func NewForm(schema *Schema) *Form {
	return &Form{
		schema: schema,
		values: make(Values, len(schema.fields)),
		errors: make(map[FieldName]string),
	}
}

// Schema returns the form's schema.
func (f *Form) Schema() *Schema {
	return f.schema
}

// Change stores a new value for name and recomputes its error flag, along
// with the flags of fields that depend on it. It returns the field's flag.
func (f *Form) Change(name FieldName, value string) (bool, error) {
	if !f.schema.Has(name) {
		return false, fmt.Errorf("%w: %q in %s", ErrUnknownField, name, f.schema.name)
	}

	f.values[name] = value
	f.validateField(name)

	for _, spec := range f.schema.fields {
		for _, dep := range spec.DependsOn {
			if dep == name {
				f.validateField(spec.Name)
			}
		}
	}

	return f.Invalid(name), nil
}

// ChangeRaw is Change for wire names.
func (f *Form) ChangeRaw(name, value string) (bool, error) {
	field, err := ParseFieldName(name)
	if err != nil {
		return false, err
	}
	return f.Change(field, value)
}

// BindMap applies every schema field present in payload as a change.
// Unknown keys and non-string values are ignored.
func (f *Form) BindMap(payload map[string]any) {
	for _, spec := range f.schema.fields {
		if v, ok := payload[string(spec.Name)].(string); ok {
			f.Change(spec.Name, v)
		}
	}
}

// validateField runs the field's format validators. The first failure wins.
func (f *Form) validateField(name FieldName) {
	spec, _ := f.schema.Field(name)
	value := f.values[name]

	delete(f.errors, name)
	for _, v := range spec.Validators {
		if err := v.Validate(value, f.values); err != nil {
			f.errors[name] = v.Message()
			return
		}
	}
}

// Value returns the current value of a field.
func (f *Form) Value(name FieldName) string {
	return f.values[name]
}

// Values returns a copy of the current values.
func (f *Form) Values() Values {
	out := make(Values, len(f.values))
	for k, v := range f.values {
		out[k] = v
	}
	return out
}

// Invalid reports the error flag of a field. Untouched fields are valid.
func (f *Form) Invalid(name FieldName) bool {
	_, ok := f.errors[name]
	return ok
}

// Error returns the message to show next to a field, or "".
func (f *Form) Error(name FieldName) string {
	return f.errors[name]
}

// Flags returns the field error state: one flag per schema field.
func (f *Form) Flags() map[FieldName]bool {
	flags := make(map[FieldName]bool, len(f.schema.fields))
	for _, spec := range f.schema.fields {
		flags[spec.Name] = f.Invalid(spec.Name)
	}
	return flags
}

// InvalidFields returns the names of flagged fields in sorted order.
func (f *Form) InvalidFields() []FieldName {
	names := make([]FieldName, 0, len(f.errors))
	for name := range f.errors {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool { return names[i] < names[j] })
	return names
}

// CanSubmit is the submission gate: true iff no tracked flag is set.
func (f *Form) CanSubmit() bool {
	blocked := false
	for _, invalid := range f.Flags() {
		blocked = blocked || invalid
	}
	return !blocked
}

// CheckRequired flags every required field that is still empty.
// Format errors already present are kept.
func (f *Form) CheckRequired() bool {
	ok := true
	required := RequiredValidator{}
	for _, spec := range f.schema.fields {
		if !spec.Required || f.Invalid(spec.Name) {
			continue
		}
		if err := required.Validate(f.values[spec.Name], f.values); err != nil {
			f.errors[spec.Name] = required.Message()
			ok = false
		}
	}
	return ok
}

// Submit runs the required check and then the gate. It returns
// ErrInvalidForm naming the blocking fields.
func (f *Form) Submit() error {
	f.CheckRequired()
	if f.CanSubmit() {
		return nil
	}

	names := f.InvalidFields()
	parts := make([]string, len(names))
	for i, n := range names {
		parts[i] = string(n)
	}
	return fmt.Errorf("%w: %s", ErrInvalidForm, strings.Join(parts, ", "))
}

// Reset clears all values and errors.
func (f *Form) Reset() {
	f.values = make(Values, len(f.schema.fields))
	f.errors = make(map[FieldName]string)
}

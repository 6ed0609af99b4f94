package forms

import "fmt"

// FieldName identifies one of the fixed set of form fields.
type FieldName string

const (
	FieldTitle           FieldName = "title"
	FieldDescription     FieldName = "description"
	FieldPrice           FieldName = "price"
	FieldCity            FieldName = "city"
	FieldDate            FieldName = "date"
	FieldStartTime       FieldName = "startTime"
	FieldEndTime         FieldName = "endTime"
	FieldCategory        FieldName = "category"
	FieldSeats           FieldName = "seats"
	FieldTeam            FieldName = "team"
	FieldUsername        FieldName = "username"
	FieldEmail           FieldName = "email"
	FieldPassword        FieldName = "password"
	FieldConfirmPassword FieldName = "confirmPassword"
)

// fieldNames is the lookup table behind ParseFieldName.
var fieldNames = map[string]FieldName{
	string(FieldTitle):           FieldTitle,
	string(FieldDescription):     FieldDescription,
	string(FieldPrice):           FieldPrice,
	string(FieldCity):            FieldCity,
	string(FieldDate):            FieldDate,
	string(FieldStartTime):       FieldStartTime,
	string(FieldEndTime):         FieldEndTime,
	string(FieldCategory):        FieldCategory,
	string(FieldSeats):           FieldSeats,
	string(FieldTeam):            FieldTeam,
	string(FieldUsername):        FieldUsername,
	string(FieldEmail):           FieldEmail,
	string(FieldPassword):        FieldPassword,
	string(FieldConfirmPassword): FieldConfirmPassword,
}

// ParseFieldName converts a wire name into a FieldName.
func ParseFieldName(name string) (FieldName, error) {
	f, ok := fieldNames[name]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownField, name)
	}
	return f, nil
}

// Valid reports whether f is one of the declared field names.
func (f FieldName) Valid() bool {
	_, ok := fieldNames[string(f)]
	return ok
}

func (f FieldName) String() string {
	return string(f)
}

// FieldType identifies the HTML input type used to render a field.
type FieldType string

const (
	InputText     FieldType = "text"
	InputEmail    FieldType = "email"
	InputPassword FieldType = "password"
	InputNumber   FieldType = "number"
	InputTextarea FieldType = "textarea"
	InputSelect   FieldType = "select"
	InputDate     FieldType = "date"
	InputTime     FieldType = "time"
)

// Option represents a select option.
type Option struct {
	Value string
	Label string
}

// FieldSpec is one row of a Schema: how a field is rendered and validated.
type FieldSpec struct {
	// Name is the field name (used in form data).
	Name FieldName

	// Type is the input type.
	Type FieldType

	// Label is the display label.
	Label string

	// Required fields are checked for emptiness at submission time only.
	Required bool

	// Validators run on every change. Each treats "" as valid.
	Validators []Validator

	// Options are the choices of a select field.
	Options []Option

	// Autocomplete attribute.
	Autocomplete string

	// DependsOn lists fields whose change must re-run this field's validators.
	DependsOn []FieldName

	// CharCount shows the value's length in characters next to the label.
	CharCount bool
}

// FieldOption is a function that configures a field.
type FieldOption func(*FieldSpec)

// NewField creates a new field spec.
func NewField(name FieldName, fieldType FieldType, label string, opts ...FieldOption) FieldSpec {
	field := FieldSpec{
		Name:       name,
		Type:       fieldType,
		Label:      label,
		Validators: make([]Validator, 0),
	}

	for _, opt := range opts {
		opt(&field)
	}

	return field
}

// WithRequired marks the field as required.
func WithRequired() FieldOption {
	return func(f *FieldSpec) {
		f.Required = true
	}
}

// WithCharCount shows a live character count in the label.
func WithCharCount() FieldOption {
	return func(f *FieldSpec) {
		f.CharCount = true
	}
}

// WithValidator adds a validator.
func WithValidator(v Validator) FieldOption {
	return func(f *FieldSpec) {
		f.Validators = append(f.Validators, v)
	}
}

// WithOptions sets the select options.
func WithOptions(options ...Option) FieldOption {
	return func(f *FieldSpec) {
		f.Options = options
	}
}

// WithAutocomplete sets the autocomplete attribute.
func WithAutocomplete(value string) FieldOption {
	return func(f *FieldSpec) {
		f.Autocomplete = value
	}
}

// WithDependsOn re-validates the field whenever one of fields changes.
func WithDependsOn(fields ...FieldName) FieldOption {
	return func(f *FieldSpec) {
		f.DependsOn = append(f.DependsOn, fields...)
	}
}

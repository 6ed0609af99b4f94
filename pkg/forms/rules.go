package forms

// Validation messages shown next to a failing field.
const (
	MsgAlphanumeric   = "Only letters, numbers and spaces are allowed"
	MsgDescription    = "Description must be between 10 and 500 characters"
	MsgPositiveNumber = "Only positive numbers are allowed"
	MsgWholeNumber    = "Only positive whole numbers are allowed"
	MsgPriceRange     = "Price cannot exceed 1000000"
	MsgSeatsRange     = "Seats cannot exceed 1000000"
	MsgLettersOnly    = "Only letters are allowed"
	MsgTime           = "Enter a valid time (hh:mm)"
	MsgDate           = "The date cannot be in the past"
	MsgCategory       = "Select one of the listed categories"
	MsgEmail          = "Enter a valid email address"
	MsgPassword       = "Password must be at least 5 characters"
	MsgPasswordMatch  = "Passwords do not match"
)

// Format predicates. The empty string is accepted by PatternValidator before
// the expression is consulted.
const (
	ReAlphanumeric   = `^[A-Za-z0-9 ]*[A-Za-z0-9][A-Za-z0-9 ]*$`
	ReDescription    = `^.{10,500}$`
	RePositiveNumber = `^[+]?\d+([.]\d+)?$`
	ReWholeNumber    = `^[+]?\d+$`
	ReLetters        = `^[a-zA-Z\s]*$`
	ReTime           = `^([0-1]?[0-9]|2[0-3]):[0-5][0-9]$`
	ReUsername       = `^[A-Za-z0-9]+$`
	ReEmail          = `^[a-zA-Z0-9]+@[a-zA-Z0-9]+\.[A-Za-z]+$`
	RePassword       = `^.{5,}$`
)

// Upper bounds for the numeric event fields.
const (
	MaxPrice = 1_000_000
	MaxSeats = 1_000_000
)

// Rule is the single-field format rule for a field name.
type Rule struct {
	Pattern string
	Message string
}

// Validator compiles the rule.
func (r Rule) Validator() Validator {
	return Pattern(r.Pattern, r.Message)
}

// Rules maps every field with a single-field format predicate to that
// predicate. Fields absent here (date, category, confirmPassword) are
// validated by non-regex validators.
var Rules = map[FieldName]Rule{
	FieldTitle:       {ReAlphanumeric, MsgAlphanumeric},
	FieldDescription: {ReDescription, MsgDescription},
	FieldPrice:       {RePositiveNumber, MsgPositiveNumber},
	FieldCity:        {ReLetters, MsgLettersOnly},
	FieldStartTime:   {ReTime, MsgTime},
	FieldEndTime:     {ReTime, MsgTime},
	FieldSeats:       {ReWholeNumber, MsgWholeNumber},
	FieldTeam:        {ReAlphanumeric, MsgAlphanumeric},
	FieldUsername:    {ReUsername, MsgAlphanumeric},
	FieldEmail:       {ReEmail, MsgEmail},
	FieldPassword:    {RePassword, MsgPassword},
}

// WithRule attaches the field's entry from Rules. It panics if the field has
// no rule, keeping schema tables honest.
func WithRule(name FieldName) FieldOption {
	rule, ok := Rules[name]
	if !ok {
		panic("forms: no rule for field " + string(name))
	}
	v := rule.Validator()
	return func(f *FieldSpec) {
		f.Validators = append(f.Validators, v)
	}
}

package forms

import (
	"errors"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Validator validates a field value.
type Validator interface {
	// Validate checks if the value is valid. values holds the rest of the
	// form so cross-field rules can compare against it.
	Validate(value string, values Values) error

	// Message returns the error message.
	Message() string
}

// Values is a read-only view of a form's current values.
type Values map[FieldName]string

// Get returns the value of a field or "".
func (v Values) Get(name FieldName) string {
	return v[name]
}

var (
	errRequired      = errors.New("required")
	errPattern       = errors.New("pattern mismatch")
	errPastDate      = errors.New("date in the past")
	errBadDate       = errors.New("not a yyyy-mm-dd date")
	errInvalidOption = errors.New("invalid option")
	errMismatch      = errors.New("fields do not match")
	errOutOfRange    = errors.New("number out of range")
)

// RequiredValidator validates that a field is not empty.
// It is applied at submission time, never on change.
type RequiredValidator struct{}

func (v RequiredValidator) Validate(value string, _ Values) error {
	if strings.TrimSpace(value) == "" {
		return errRequired
	}
	return nil
}

func (v RequiredValidator) Message() string {
	return "This field is required"
}

// PatternValidator validates against a compiled regular expression.
type PatternValidator struct {
	Re  *regexp.Regexp
	Msg string
}

func (v PatternValidator) Validate(value string, _ Values) error {
	if value == "" {
		return nil // Skip if empty (use Required for that)
	}
	if !v.Re.MatchString(value) {
		return errPattern
	}
	return nil
}

func (v PatternValidator) Message() string {
	if v.Msg != "" {
		return v.Msg
	}
	return "Invalid format"
}

// MinDateValidator rejects ISO dates (yyyy-mm-dd) earlier than today.
type MinDateValidator struct {
	Now func() time.Time
	Msg string
}

func (v MinDateValidator) Validate(value string, _ Values) error {
	if value == "" {
		return nil
	}
	now := time.Now
	if v.Now != nil {
		now = v.Now
	}
	date, err := time.Parse(time.DateOnly, value)
	if err != nil {
		return errBadDate
	}
	// Compare calendar days in the clock's location.
	today, _ := time.Parse(time.DateOnly, now().Format(time.DateOnly))
	if date.Before(today) {
		return errPastDate
	}
	return nil
}

func (v MinDateValidator) Message() string {
	if v.Msg != "" {
		return v.Msg
	}
	return "The date cannot be in the past"
}

// OneOfValidator validates that value is one of allowed values.
type OneOfValidator struct {
	Values []string
	Msg    string
}

func (v OneOfValidator) Validate(value string, _ Values) error {
	if value == "" {
		return nil
	}
	for _, allowed := range v.Values {
		if value == allowed {
			return nil
		}
	}
	return errInvalidOption
}

func (v OneOfValidator) Message() string {
	if v.Msg != "" {
		return v.Msg
	}
	return "Invalid selection"
}

// MatchesFieldValidator requires the value to equal another field's value.
type MatchesFieldValidator struct {
	Other FieldName
	Msg   string
}

func (v MatchesFieldValidator) Validate(value string, values Values) error {
	if value == "" {
		return nil
	}
	if value != values.Get(v.Other) {
		return errMismatch
	}
	return nil
}

func (v MatchesFieldValidator) Message() string {
	if v.Msg != "" {
		return v.Msg
	}
	return "Values do not match"
}

// IntRangeValidator requires a base-10 integer within [Min, Max]. Values too
// large for an int fail like any other out-of-range value.
type IntRangeValidator struct {
	Min, Max int
	Msg      string
}

func (v IntRangeValidator) Validate(value string, _ Values) error {
	if value == "" {
		return nil
	}
	n, err := strconv.Atoi(value)
	if err != nil || n < v.Min || n > v.Max {
		return errOutOfRange
	}
	return nil
}

func (v IntRangeValidator) Message() string {
	if v.Msg != "" {
		return v.Msg
	}
	return "Number out of range"
}

// FloatRangeValidator requires a finite decimal number within [Min, Max].
type FloatRangeValidator struct {
	Min, Max float64
	Msg      string
}

func (v FloatRangeValidator) Validate(value string, _ Values) error {
	if value == "" {
		return nil
	}
	n, err := strconv.ParseFloat(value, 64)
	if err != nil || math.IsNaN(n) || n < v.Min || n > v.Max {
		return errOutOfRange
	}
	return nil
}

func (v FloatRangeValidator) Message() string {
	if v.Msg != "" {
		return v.Msg
	}
	return "Number out of range"
}

// Convenience constructors

// Required returns a required validator.
func Required() Validator {
	return RequiredValidator{}
}

// Pattern returns a pattern validator. It panics if pattern does not compile.
func Pattern(pattern string, msg ...string) Validator {
	v := PatternValidator{Re: regexp.MustCompile(pattern)}
	if len(msg) > 0 {
		v.Msg = msg[0]
	}
	return v
}

// MinDate returns a validator rejecting dates before now's day.
func MinDate(now func() time.Time, msg ...string) Validator {
	v := MinDateValidator{Now: now}
	if len(msg) > 0 {
		v.Msg = msg[0]
	}
	return v
}

// OneOf returns a one-of validator.
func OneOf(values []string, msg ...string) Validator {
	v := OneOfValidator{Values: values}
	if len(msg) > 0 {
		v.Msg = msg[0]
	}
	return v
}

// MatchesField returns a validator comparing against other.
func MatchesField(other FieldName, msg ...string) Validator {
	v := MatchesFieldValidator{Other: other}
	if len(msg) > 0 {
		v.Msg = msg[0]
	}
	return v
}

// IntRange returns a validator for integers in [min, max].
func IntRange(min, max int, msg ...string) Validator {
	v := IntRangeValidator{Min: min, Max: max}
	if len(msg) > 0 {
		v.Msg = msg[0]
	}
	return v
}

// FloatRange returns a validator for numbers in [min, max].
func FloatRange(min, max float64, msg ...string) Validator {
	v := FloatRangeValidator{Min: min, Max: max}
	if len(msg) > 0 {
		v.Msg = msg[0]
	}
	return v
}

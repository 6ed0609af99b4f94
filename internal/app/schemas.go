package app

import (
	"time"

	"github.com/gabrielmiguelok/eventboard/pkg/forms"
)

// EventSchema is the add-event form. The date may not be before now's day
// and the category must be one of categories.
func EventSchema(now func() time.Time, categories []string) *forms.Schema {
	options := make([]forms.Option, len(categories))
	for i, c := range categories {
		options[i] = forms.Option{Value: c, Label: c}
	}

	return forms.NewSchema("event",
		forms.NewField(forms.FieldTitle, forms.InputText, "Title",
			forms.WithRequired(), forms.WithRule(forms.FieldTitle)),
		forms.NewField(forms.FieldDescription, forms.InputTextarea, "Description",
			forms.WithRequired(), forms.WithRule(forms.FieldDescription), forms.WithCharCount()),
		forms.NewField(forms.FieldPrice, forms.InputText, "Price",
			forms.WithRequired(), forms.WithRule(forms.FieldPrice),
			forms.WithValidator(forms.FloatRange(0, forms.MaxPrice, forms.MsgPriceRange))),
		forms.NewField(forms.FieldCity, forms.InputText, "City",
			forms.WithRequired(), forms.WithRule(forms.FieldCity)),
		forms.NewField(forms.FieldDate, forms.InputDate, "Date",
			forms.WithRequired(), forms.WithValidator(forms.MinDate(now, forms.MsgDate))),
		forms.NewField(forms.FieldStartTime, forms.InputTime, "Start time",
			forms.WithRequired(), forms.WithRule(forms.FieldStartTime)),
		forms.NewField(forms.FieldEndTime, forms.InputTime, "End time",
			forms.WithRequired(), forms.WithRule(forms.FieldEndTime)),
		forms.NewField(forms.FieldCategory, forms.InputSelect, "Category",
			forms.WithRequired(), forms.WithOptions(options...),
			forms.WithValidator(forms.OneOf(categories, forms.MsgCategory))),
		forms.NewField(forms.FieldSeats, forms.InputText, "Seats",
			forms.WithRequired(), forms.WithRule(forms.FieldSeats),
			forms.WithValidator(forms.IntRange(0, forms.MaxSeats, forms.MsgSeatsRange))),
		forms.NewField(forms.FieldTeam, forms.InputText, "Team",
			forms.WithRequired(), forms.WithRule(forms.FieldTeam)),
	)
}

// LogInSchema is the log-in form.
var LogInSchema = forms.NewSchema("login",
	forms.NewField(forms.FieldEmail, forms.InputEmail, "Email",
		forms.WithRequired(), forms.WithRule(forms.FieldEmail), forms.WithAutocomplete("email")),
	forms.NewField(forms.FieldPassword, forms.InputPassword, "Password",
		forms.WithRequired(), forms.WithRule(forms.FieldPassword), forms.WithAutocomplete("current-password")),
)

// SignUpSchema is the sign-up form. confirmPassword is re-checked whenever
// password changes.
var SignUpSchema = forms.NewSchema("signup",
	forms.NewField(forms.FieldUsername, forms.InputText, "Username",
		forms.WithRequired(), forms.WithRule(forms.FieldUsername), forms.WithAutocomplete("username")),
	forms.NewField(forms.FieldEmail, forms.InputEmail, "Email",
		forms.WithRequired(), forms.WithRule(forms.FieldEmail), forms.WithAutocomplete("email")),
	forms.NewField(forms.FieldPassword, forms.InputPassword, "Password",
		forms.WithRequired(), forms.WithRule(forms.FieldPassword), forms.WithAutocomplete("new-password")),
	forms.NewField(forms.FieldConfirmPassword, forms.InputPassword, "Confirm password",
		forms.WithRequired(),
		forms.WithValidator(forms.MatchesField(forms.FieldPassword, forms.MsgPasswordMatch)),
		forms.WithDependsOn(forms.FieldPassword),
		forms.WithAutocomplete("new-password")),
)

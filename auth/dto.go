package auth

import (
	"errors"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Flash texts shown when a form is rejected.
const (
	MsgEmptyFields      = "There are empty fields in the form"
	MsgPasswordMismatch = "The two passwords do not match"
	MsgInvalidEmail     = "That is not a valid email address"
	MsgEmailRegistered  = "That email address is already registered"
	MsgLoginEmpty       = "Email or password is empty"
	MsgLoginIncorrect   = "Email or password is incorrect"
)

var emailPattern = regexp.MustCompile(`^[a-zA-Z0-9_.+-]+@[a-zA-Z0-9-]+\.[a-zA-Z0-9.\-]+$`)

// SignupForm is the body of POST /signup.
// Name and Email are stored trimmed; the passwords are hashed exactly as typed.
type SignupForm struct {
	Name                 string `validate:"notblank"`
	Email                string `validate:"notblank,emailpattern"`
	Password             string `validate:"notblank"`
	PasswordConfirmation string `validate:"notblank,eqfield=Password"`
}

// LoginForm is the body of POST /login.
type LoginForm struct {
	Email    string `validate:"required"`
	Password string `validate:"required"`
}

// signupRules lists the failing tags from the most to the least important one.
// Only the first rule that fails is reported.
var signupRules = []struct {
	tag     string
	message string
}{
	{"notblank", MsgEmptyFields},
	{"eqfield", MsgPasswordMismatch},
	{"emailpattern", MsgInvalidEmail},
}

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// Registration only fails on an empty tag name, which these are not.
	_ = v.RegisterValidation("notblank", func(fl validator.FieldLevel) bool {
		return strings.TrimSpace(fl.Field().String()) != ""
	})
	_ = v.RegisterValidation("emailpattern", func(fl validator.FieldLevel) bool {
		return emailPattern.MatchString(fl.Field().String())
	})
	return v
}

// signupMessage returns the flash for the first rule f breaks, or "" when f is valid.
func signupMessage(v *validator.Validate, f SignupForm) string {
	err := v.Struct(f)
	if err == nil {
		return ""
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return MsgEmptyFields
	}
	failed := make(map[string]bool, len(verrs))
	for _, fe := range verrs {
		failed[fe.Tag()] = true
	}
	for _, rule := range signupRules {
		if failed[rule.tag] {
			return rule.message
		}
	}
	return MsgEmptyFields
}

// loginMessage returns MsgLoginEmpty when a login field is missing, or "".
func loginMessage(v *validator.Validate, f LoginForm) string {
	if err := v.Struct(f); err != nil {
		return MsgLoginEmpty
	}
	return ""
}

package tracker

import (
	"fmt"
	"regexp"

	"github.com/harlequingg/project-tracker/internal/auth"
)

var emailRegexp = regexp.MustCompile("^[a-zA-Z0-9.!#$%&'*+/=?^_`{|}~-]+@[a-zA-Z0-9](?:[a-zA-Z0-9-]{0,61}[a-zA-Z0-9])?(?:\\.[a-zA-Z0-9](?:[a-zA-Z0-9-]{0,61}[a-zA-Z0-9])?)*$")

type validator struct {
	errors map[string]string
}

func newValidator() *validator {
	return &validator{
		errors: make(map[string]string),
	}
}

func (v *validator) toError() error {
	return &Error{Kind: ErrValidation, Msg: "validation failed", Fields: v.errors}
}

func (v *validator) hasErrors() bool {
	return len(v.errors) != 0
}

func (v *validator) checkCond(cond bool, key, msg string) {
	if cond {
		return
	}
	if _, ok := v.errors[key]; !ok {
		v.errors[key] = msg
	}
}

func (v *validator) checkEmail(email string) {
	v.checkCond(email != "", "email", "must be provided")
	v.checkCond(emailRegexp.MatchString(email), "email", "must be a valid email address")
}

func (v *validator) checkPassword(password string) {
	v.checkCond(password != "", "password", "must be provided")
	v.checkCond(len(password) >= auth.MinPasswordLength, "password",
		fmt.Sprintf("must be at least %d characters long", auth.MinPasswordLength))
	v.checkCond(len(password) <= auth.MaxPasswordLength, "password",
		fmt.Sprintf("must be at most %d characters long", auth.MaxPasswordLength))
}

func (v *validator) checkTitle(title string) {
	v.checkCond(title != "", "title", "must be provided")
	v.checkCond(len(title) <= 255, "title", "must be at most 255 characters")
}

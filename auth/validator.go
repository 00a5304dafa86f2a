package auth

import (
	"unicode"

	"github.com/go-playground/validator/v10"

	"feedlab/errors"
)

var validate = validator.New()

type Credentials struct {
	Email    string `validate:"required,email"`
	Password string `validate:"required,min=12,max=72"`
}

// ValidateCredentials checks the credential shape before any expensive
// cryptographic work happens.
func ValidateCredentials(creds Credentials) error {
	if err := validate.Struct(creds); err != nil {
		return err
	}
	if !isPasswordComplex(creds.Password) {
		return errors.ErrInvalidPassword
	}
	return nil
}

func isPasswordComplex(s string) bool {
	var hasUpper, hasLower, hasNumber, hasSpecial bool
	for _, char := range s {
		switch {
		case unicode.IsUpper(char):
			hasUpper = true
		case unicode.IsLower(char):
			hasLower = true
		case unicode.IsNumber(char):
			hasNumber = true
		case unicode.IsPunct(char) || unicode.IsSymbol(char):
			hasSpecial = true
		}
	}
	return hasUpper && hasLower && hasNumber && hasSpecial
}

package validation

import (
	"errors"
	"strings"
)

var commonPasswords = map[string]bool{
	"password": true, "12345678": true, "123456789": true, "qwertyui": true,
	"password1": true, "iloveyou": true, "portal123": true,
}

// ValidatePassword validates a password chosen by an administrator for an account.
func ValidatePassword(password string) error {
	if len(password) < 8 {
		return errors.New("password must be at least 8 characters")
	}

	// bcrypt silently truncates passwords longer than 72 bytes
	if len(password) > 72 {
		return errors.New("password must not exceed 72 characters")
	}

	if commonPasswords[strings.ToLower(password)] {
		return errors.New("password is too common, please choose a stronger one")
	}

	return nil
}

package auth

import (
	"regexp"
	"unicode/utf16"
)

// Password rule messages, shown as-is next to the offending field.
const (
	MsgPasswordLength     = "Password must contain 8 or more characters."
	MsgPasswordComplexity = "Password must have at least 1 uppercase, 1 lowercase, 1 numeric, and 1 special characters."
	MsgPasswordMismatch   = "Passwords do not match."
)

const minPasswordLength = 8

var (
	passwordCharset = regexp.MustCompile(`^[A-Za-z\d@$!%*?&]*$`)
	passwordClasses = []*regexp.Regexp{
		regexp.MustCompile(`[a-z]`),
		regexp.MustCompile(`[A-Z]`),
		regexp.MustCompile(`\d`),
		regexp.MustCompile(`[@$!%*?&]`),
	}
)

// PasswordErrors holds per-field validation messages. Empty fields passed.
type PasswordErrors struct {
	Password string
	Confirm  string
}

// ValidatePasswords checks a new password and its confirmation before any
// network call is made.
func ValidatePasswords(password, confirm string) (bool, PasswordErrors) {
	var errs PasswordErrors
	switch {
	case passwordLength(password) < minPasswordLength:
		errs.Password = MsgPasswordLength
	case !complexEnough(password):
		errs.Password = MsgPasswordComplexity
	}
	if password != confirm {
		errs.Confirm = MsgPasswordMismatch
	}
	return errs == PasswordErrors{}, errs
}

// passwordLength counts UTF-16 code units, as the device's web client does.
func passwordLength(password string) int {
	n := 0
	for _, r := range password {
		n += len(utf16.Encode([]rune{r}))
	}
	return n
}

func complexEnough(password string) bool {
	if !passwordCharset.MatchString(password) {
		return false
	}
	for _, re := range passwordClasses {
		if !re.MatchString(password) {
			return false
		}
	}
	return true
}

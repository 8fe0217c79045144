package password

import (
	"errors"
	"strings"
	"unicode"
)

// MinLength is the shortest accepted password, in characters.
const MinLength = 8

const specialChars = "!@#$%^&*()_+-=[]{};':\"\\|,.<>/?"

var (
	ErrTooShort       = errors.New("password must be at least 8 characters")
	ErrMissingLetter  = errors.New("password must contain a letter")
	ErrMissingDigit   = errors.New("password must contain a digit")
	ErrMissingSpecial = errors.New("password must contain a special character")
)

// CheckPolicy returns the first rule password breaks, or nil.
func CheckPolicy(password string) error {
	if len([]rune(password)) < MinLength {
		return ErrTooShort
	}

	var letter, digit, special bool
	for _, r := range password {
		switch {
		case r < unicode.MaxASCII && unicode.IsLetter(r):
			letter = true
		case r >= '0' && r <= '9':
			digit = true
		case strings.ContainsRune(specialChars, r):
			special = true
		}
	}

	switch {
	case !letter:
		return ErrMissingLetter
	case !digit:
		return ErrMissingDigit
	case !special:
		return ErrMissingSpecial
	}
	return nil
}

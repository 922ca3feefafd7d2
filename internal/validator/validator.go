package validator

import (
	"errors"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"estate/internal/models"
)

var (
	ErrInvalidEmail      = errors.New("invalid email")
	ErrInvalidPassword   = errors.New("password must be at least 8 characters with upper case, lower case and a digit")
	ErrInvalidPhone      = errors.New("invalid phone number")
	ErrInvalidName       = errors.New("full name must be between 2 and 100 characters")
	ErrInvalidTitle      = errors.New("title must be between 3 and 100 characters")
	ErrInvalidPostalCode = errors.New("invalid postal code")
	ErrInvalidPriority   = errors.New("priority must be between 1 and 5")
	ErrInvalidPaymentDay = errors.New("payment_day must be between 1 and 31")
	ErrInvalidDateRange  = errors.New("end_date must be after start_date")
)

var (
	emailRegex      = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)
	phoneRegex      = regexp.MustCompile(`^(\+[1-9]\d{1,14}|0\d{9})$`)
	postalCodeRegex = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9 -]{1,9}$`)
)

func ValidateEmail(email string) error {
	if !emailRegex.MatchString(email) {
		return ErrInvalidEmail
	}
	return nil
}

func ValidatePassword(password string) error {
	if len(password) < 8 {
		return ErrInvalidPassword
	}
	var upper, lower, digit bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsDigit(r):
			digit = true
		}
	}
	if !upper || !lower || !digit {
		return ErrInvalidPassword
	}
	return nil
}

// ValidatePhone accepts E.164 numbers and ten digit national numbers.
// Spaces, dots and dashes are ignored.
func ValidatePhone(phone string) error {
	compact := strings.NewReplacer(" ", "", ".", "", "-", "").Replace(phone)
	if !phoneRegex.MatchString(compact) {
		return ErrInvalidPhone
	}
	return nil
}

func ValidateFullName(name string) error {
	if n := utf8.RuneCountInString(strings.TrimSpace(name)); n < 2 || n > 100 {
		return ErrInvalidName
	}
	return nil
}

func ValidateTitle(title string) error {
	if n := utf8.RuneCountInString(strings.TrimSpace(title)); n < 3 || n > 100 {
		return ErrInvalidTitle
	}
	return nil
}

func ValidatePostalCode(code string) error {
	if !postalCodeRegex.MatchString(strings.TrimSpace(code)) {
		return ErrInvalidPostalCode
	}
	return nil
}

func ValidatePriority(priority int) error {
	if priority < models.MinPriority || priority > models.MaxPriority {
		return ErrInvalidPriority
	}
	return nil
}

func ValidatePaymentDay(day int) error {
	if day < models.MinPaymentDay || day > models.MaxPaymentDay {
		return ErrInvalidPaymentDay
	}
	return nil
}

// ValidateDateRange allows an open-ended range.
func ValidateDateRange(start models.Date, end *models.Date) error {
	if end != nil && !end.After(start) {
		return ErrInvalidDateRange
	}
	return nil
}

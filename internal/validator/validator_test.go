package validator

import (
	"testing"

	"estate/internal/models"
)

func TestValidatePassword(t *testing.T) {
	valid := []string{"Secret123", "Abcdefg1"}
	for _, p := range valid {
		if err := ValidatePassword(p); err != nil {
			t.Fatalf("%q: unexpected error: %v", p, err)
		}
	}
	invalid := []string{"short1A", "alllowercase1", "ALLUPPERCASE1", "NoDigitsHere"}
	for _, p := range invalid {
		if err := ValidatePassword(p); err != ErrInvalidPassword {
			t.Fatalf("%q: expected ErrInvalidPassword, got %v", p, err)
		}
	}
}

func TestValidatePhone(t *testing.T) {
	for _, p := range []string{"+33612345678", "0612345678", "+1 415 555 0100", "06.12.34.56.78"} {
		if err := ValidatePhone(p); err != nil {
			t.Fatalf("%q: unexpected error: %v", p, err)
		}
	}
	for _, p := range []string{"abc", "+0123", "+1234567890123456"} {
		if err := ValidatePhone(p); err != ErrInvalidPhone {
			t.Fatalf("%q: expected ErrInvalidPhone, got %v", p, err)
		}
	}
}

func TestValidateEmail(t *testing.T) {
	if err := ValidateEmail("owner@example.com"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := ValidateEmail("owner@example"); err != ErrInvalidEmail {
		t.Fatalf("expected ErrInvalidEmail, got %v", err)
	}
}

func TestValidateRanges(t *testing.T) {
	if err := ValidatePriority(0); err != ErrInvalidPriority {
		t.Fatalf("expected ErrInvalidPriority, got %v", err)
	}
	if err := ValidatePriority(5); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := ValidatePaymentDay(32); err != ErrInvalidPaymentDay {
		t.Fatalf("expected ErrInvalidPaymentDay, got %v", err)
	}
	if err := ValidatePaymentDay(31); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidateDateRange(t *testing.T) {
	start := models.NewDate(2024, 1, 1)
	end := models.NewDate(2024, 12, 31)
	if err := ValidateDateRange(start, &end); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := ValidateDateRange(start, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := ValidateDateRange(end, &start); err != ErrInvalidDateRange {
		t.Fatalf("expected ErrInvalidDateRange, got %v", err)
	}
	same := start
	if err := ValidateDateRange(start, &same); err != ErrInvalidDateRange {
		t.Fatalf("expected ErrInvalidDateRange, got %v", err)
	}
}

func TestValidateTextFields(t *testing.T) {
	if err := ValidateTitle("T2"); err != ErrInvalidTitle {
		t.Fatalf("expected ErrInvalidTitle, got %v", err)
	}
	if err := ValidateFullName("Jo"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := ValidatePostalCode("75011"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := ValidatePostalCode("!"); err != ErrInvalidPostalCode {
		t.Fatalf("expected ErrInvalidPostalCode, got %v", err)
	}
}

package validation

import (
	"fmt"
	"strings"
	"time"
)

// ValidationError represents a structured validation error.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationErrors collects multiple field errors.
type ValidationErrors struct {
	Errors []ValidationError `json:"errors"`
}

func (ve *ValidationErrors) Add(field, message string) {
	ve.Errors = append(ve.Errors, ValidationError{Field: field, Message: message})
}

func (ve *ValidationErrors) HasErrors() bool {
	return len(ve.Errors) > 0
}

func (ve *ValidationErrors) Error() string {
	msgs := make([]string, len(ve.Errors))
	for i, e := range ve.Errors {
		msgs[i] = e.Field + ": " + e.Message
	}
	return strings.Join(msgs, "; ")
}

// Maximum value constants to prevent overflow and ensure reasonable limits.
const (
	MaxQuantity     = 1000000.0
	MaxPrice        = 10000000.0
	MaxStringLength = 10000
)

// RequireField checks a required string field is non-empty.
func RequireField(ve *ValidationErrors, field, value string) {
	if strings.TrimSpace(value) == "" {
		ve.Add(field, "is required")
	}
}

// ValidateDate checks a field is a valid date (YYYY-MM-DD).
func ValidateDate(ve *ValidationErrors, field, value string) {
	if value == "" {
		return
	}
	if _, err := time.Parse("2006-01-02", value); err != nil {
		ve.Add(field, "must be a valid date (YYYY-MM-DD)")
	}
}

// ValidatePositiveFloat checks a field is > 0.
func ValidatePositiveFloat(ve *ValidationErrors, field string, value float64) {
	if value <= 0 {
		ve.Add(field, "must be a positive number")
	}
}

// ValidateNonNegativeFloat checks a field is >= 0.
func ValidateNonNegativeFloat(ve *ValidationErrors, field string, value float64) {
	if value < 0 {
		ve.Add(field, "must be non-negative")
	}
}

// ValidateRate checks a fractional rate is within [0,1]. UI-level percentages
// must be divided by 100 before they reach this layer.
func ValidateRate(ve *ValidationErrors, field string, value float64) {
	if value < 0 || value > 1 {
		ve.Add(field, "must be a fraction between 0 and 1")
	}
}

// ValidateMaxQuantity checks quantity doesn't exceed reasonable maximum.
func ValidateMaxQuantity(ve *ValidationErrors, field string, value float64) {
	if value > MaxQuantity {
		ve.Add(field, fmt.Sprintf("exceeds maximum allowed quantity of %.0f", MaxQuantity))
	}
}

// ValidateMaxPrice checks price doesn't exceed reasonable maximum.
func ValidateMaxPrice(ve *ValidationErrors, field string, value float64) {
	if value > MaxPrice {
		ve.Add(field, fmt.Sprintf("exceeds maximum allowed price of %.2f", MaxPrice))
	}
}

// ValidateMaxLength checks string doesn't exceed max length.
func ValidateMaxLength(ve *ValidationErrors, field, value string, max int) {
	if len(value) > max {
		ve.Add(field, fmt.Sprintf("must be at most %d characters", max))
	}
}

package config

import (
	"fmt"
	"strings"

	"github.com/robfig/cron/v3"
)

// FieldError represents a validation error for a specific configuration field.
type FieldError struct {
	// Field is the dotted path to the configuration field (e.g., "rates.per_second").
	Field string

	// Message is a human-readable error message.
	Message string
}

// Error returns the error message for this field error.
func (e FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationError collects every validation error found in a configuration.
type ValidationError struct {
	Errors []FieldError
}

// Error returns a formatted string containing all validation errors.
func (e ValidationError) Error() string {
	if len(e.Errors) == 1 {
		return fmt.Sprintf("configuration validation failed: %s", e.Errors[0].Error())
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("configuration validation failed with %d errors:\n", len(e.Errors)))
	for _, err := range e.Errors {
		sb.WriteString(fmt.Sprintf("  - %s\n", err.Error()))
	}
	return sb.String()
}

// Validate checks the configuration and returns a ValidationError listing
// every violated rule, or nil when the configuration is valid.
func (c *Config) Validate() error {
	var errs []FieldError

	if c.Rates.PerSecond <= 0 {
		errs = append(errs, FieldError{"rates.per_second", "a positive per-second rate is required"})
	}
	if c.Rates.PerMinute < 0 {
		errs = append(errs, FieldError{"rates.per_minute", "rate cannot be negative"})
	}
	if c.Rates.PerHour < 0 {
		errs = append(errs, FieldError{"rates.per_hour", "rate cannot be negative"})
	}
	if c.Timeout < 0 {
		errs = append(errs, FieldError{"timeout", "timeout cannot be negative"})
	}

	for i, entry := range c.Schedules {
		field := fmt.Sprintf("schedules[%d]", i)
		if _, err := cron.ParseStandard(entry.Cron); err != nil {
			errs = append(errs, FieldError{field + ".cron", err.Error()})
		}
		if entry.Rate <= 0 {
			errs = append(errs, FieldError{field + ".rate", "rate must be positive"})
		}
		if _, err := parseWindow(entry.Window); err != nil {
			errs = append(errs, FieldError{field + ".window", err.Error()})
		}
	}

	if len(errs) > 0 {
		return ValidationError{Errors: errs}
	}
	return nil
}

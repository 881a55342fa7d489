package rules

import (
	"strings"
	"time"

	"github.com/clinic/clinic/internal/platform/apperr"
)

const (
	DateLayout  = "2006-01-02"
	ClockLayout = "15:04"
)

// CheckDate validates a YYYY-MM-DD value and returns it trimmed.
func CheckDate(field, value string) (string, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return "", apperr.Required(field)
	}
	if _, err := time.Parse(DateLayout, value); err != nil {
		return "", apperr.Invalid(field, "expected YYYY-MM-DD")
	}
	return value, nil
}

// CheckClock validates an HH:MM value and returns it as HH:MM. HH:MM:SS is
// accepted only with zero seconds.
func CheckClock(field, value string) (string, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return "", apperr.Required(field)
	}
	if t, err := time.Parse(ClockLayout, value); err == nil {
		return t.Format(ClockLayout), nil
	}
	if t, err := time.Parse("15:04:05", value); err == nil {
		if t.Second() != 0 {
			return "", apperr.Invalid(field, "seconds are not supported, expected HH:MM")
		}
		return t.Format(ClockLayout), nil
	}
	return "", apperr.Invalid(field, "expected HH:MM")
}

package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrInsufficientData is returned when fewer than 2 points are
	// available where a statistic requires at least 2.
	ErrInsufficientData = errors.New("not enough data points")

	// ErrInvalidConfig is returned when a configuration value is outside
	// its documented domain.
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrRunNotFound is returned when a detection run does not exist.
	ErrRunNotFound = errors.New("detection run not found")
)

// Configf wraps ErrInvalidConfig with a formatted detail message so
// callers can match with errors.Is.
func Configf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrInvalidConfig, fmt.Sprintf(format, args...))
}

package peakfinder

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidConfiguration = errors.New("invalid configuration")
	ErrInvalidSample        = errors.New("invalid sample")
	ErrNoValidSamples       = errors.New("no valid samples")
)

// A ConfigurationError is returned when an option has an invalid value.
type ConfigurationError struct {
	Option string
	Value  any
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("%s: %v: %s", e.Option, e.Value, e.Reason)
}

func (e *ConfigurationError) Unwrap() error {
	return ErrInvalidConfiguration
}

func validateWindowSize(windowSize int) error {
	switch {
	case windowSize < 3:
		return &ConfigurationError{Option: "window size", Value: windowSize, Reason: "must be at least 3"}
	case windowSize%2 == 0:
		return &ConfigurationError{Option: "window size", Value: windowSize, Reason: "must be odd"}
	default:
		return nil
	}
}

func validateThreshold(option string, threshold float64) error {
	switch {
	case threshold != threshold:
		return &ConfigurationError{Option: option, Value: threshold, Reason: "must be a number"}
	case threshold < 0:
		return &ConfigurationError{Option: option, Value: threshold, Reason: "must not be negative"}
	default:
		return nil
	}
}

package model

import (
	"errors"
	"fmt"
)

// ErrMissingChannel is wrapped by ConfigError when no channel id was given.
var ErrMissingChannel = errors.New("missing channel id")

// ConfigError reports a missing or unusable setting. Operations cannot
// proceed without it, so it is always returned to the caller.
type ConfigError struct {
	Field string
	Err   error
}

func (e *ConfigError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("config: %s is required", e.Field)
	}
	return fmt.Sprintf("config: %s: %v", e.Field, e.Err)
}

func (e *ConfigError) Unwrap() error { return e.Err }

// MissingChannel returns the ConfigError for an empty channel id.
func MissingChannel() error {
	return &ConfigError{Field: "channel_id", Err: ErrMissingChannel}
}

// ValidationError reports unusable request input, such as a search without
// any keyword groups.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string { return "validation: " + e.Reason }

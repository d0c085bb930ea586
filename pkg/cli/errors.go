package cli

import (
	"errors"
	"fmt"

	"mercator-hq/keyport/pkg/credential"
)

// Process exit codes returned by the keyport command.
const (
	ExitOK      = 0
	ExitFailure = 1
	ExitUsage   = 2
	ExitEmpty   = 3
)

// ConfigError represents an error in configuration or flag values.
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config error in %s: %s", e.Field, e.Message)
}

// CommandError represents an error from a command execution.
type CommandError struct {
	Command string
	Err     error
}

func (e *CommandError) Error() string {
	return fmt.Sprintf("command %s failed: %v", e.Command, e.Err)
}

func (e *CommandError) Unwrap() error {
	return e.Err
}

// NewConfigError creates a new ConfigError.
func NewConfigError(field, message string) *ConfigError {
	return &ConfigError{
		Field:   field,
		Message: message,
	}
}

// NewCommandError creates a new CommandError.
func NewCommandError(command string, err error) *CommandError {
	return &CommandError{
		Command: command,
		Err:     err,
	}
}

// ExitCode maps an error returned by a command to a process exit code.
// An export that selected no records exits with ExitEmpty so scripts can
// tell it apart from a failure.
func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}

	var cfgErr *ConfigError
	var modeErr *credential.InvalidModeError
	switch {
	case errors.As(err, &cfgErr), errors.As(err, &modeErr):
		return ExitUsage
	case errors.Is(err, credential.ErrEmptyStaging):
		return ExitEmpty
	default:
		return ExitFailure
	}
}

package cp

import (
	"errors"
	"fmt"
)

// Contradiction reports that a domain operation would have emptied a
// domain. It is the normal way a branch of the search learns it is dead and
// is always recovered from by rolling back to the last checkpoint.
type Contradiction struct {
	Var *IntVar
	// Constraint is the constraint whose propagator was running, if any.
	Constraint *Constraint
	Msg        string
}

func (e *Contradiction) Error() string {
	msg := "contradiction"
	if e.Constraint != nil {
		msg += " in " + e.Constraint.Name()
	}
	if e.Var != nil {
		msg += " on " + e.Var.Name()
	}
	return fmt.Sprintf("%s: %s", msg, e.Msg)
}

// Fail returns a Contradiction that is not tied to a particular variable.
// Propagators use it when they detect infeasibility from their own state.
func Fail(format string, args ...interface{}) error {
	return &Contradiction{Msg: fmt.Sprintf(format, args...)}
}

// IsContradiction reports whether err is, or wraps, a Contradiction.
func IsContradiction(err error) bool {
	var c *Contradiction
	return errors.As(err, &c)
}

// ConfigurationError reports malformed construction input. It is raised
// before search starts and is never recoverable.
type ConfigurationError struct {
	Msg string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("invalid configuration: %s", e.Msg)
}

func configError(format string, args ...interface{}) error {
	return &ConfigurationError{Msg: fmt.Sprintf(format, args...)}
}

// ConfigError returns a ConfigurationError; filter packages use it to
// reject malformed construction input.
func ConfigError(format string, args ...interface{}) error {
	return configError(format, args...)
}

// ProtocolError reports an operation requested in a state that violates a
// component's lifecycle. It always indicates a caller bug.
type ProtocolError struct {
	Op  string
	Msg string
	Err error
}

func (e *ProtocolError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Msg)
}

func (e *ProtocolError) Unwrap() error {
	return e.Err
}

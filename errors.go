package simline

import (
	"errors"
	"fmt"
)

// Sentinel errors for use with errors.Is.
var (
	// ErrQueueEmpty is returned by Environment.Run when the event queue
	// drains before the terminate event fires.
	ErrQueueEmpty = errors.New("simline: event queue empty before horizon")

	// ErrUnknownNode is returned when a topology reference names a node that
	// was never declared.
	ErrUnknownNode = errors.New("simline: unknown node reference")

	// ErrInvalidTopology is returned when a machine's upstream node cannot
	// give parts or its downstream node cannot receive them. Cycles are not
	// checked.
	ErrInvalidTopology = errors.New("simline: invalid topology")

	// ErrInvalidDistribution is returned when a distribution's parameters
	// are out of range (e.g. a geometric success probability outside (0,1]).
	ErrInvalidDistribution = errors.New("simline: invalid distribution parameters")

	// ErrNoReplications is returned when IterateSimulation is asked to run
	// zero or negative replications.
	ErrNoReplications = errors.New("simline: replication count must be positive")
)

// ConfigError reports a problem found while validating a Config before any
// event is scheduled. Field identifies the offending YAML path
// (e.g. "machines[2].degradation_matrix").
type ConfigError struct {
	Field string
	Cause error
}

func (e *ConfigError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("simline: config: %s", e.Cause)
	}
	return fmt.Sprintf("simline: config: %s: %s", e.Field, e.Cause)
}

func (e *ConfigError) Unwrap() error { return e.Cause }

// NewConfigError wraps cause with the offending field path.
func NewConfigError(field string, cause error) *ConfigError {
	return &ConfigError{Field: field, Cause: cause}
}

// InvariantError reports a violated runtime invariant: checkInvariant panics
// with one inside an action, and Buffer.checkInvariants returns one. These
// indicate a bug in simline itself rather than a bad configuration.
type InvariantError struct {
	Where string
	Cause error
}

func (e *InvariantError) Error() string {
	return fmt.Sprintf("simline: invariant violated at %s: %s", e.Where, e.Cause)
}

func (e *InvariantError) Unwrap() error { return e.Cause }

// WrapError annotates cause with message, preserving it for errors.Is/As.
func WrapError(message string, cause error) error {
	return fmt.Errorf("%s: %w", message, cause)
}

// errInvariant builds a plain error for use inside InvariantError.Cause.
func errInvariant(msg string) error { return errors.New(msg) }

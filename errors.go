package recordstore

import (
	"errors"
	"fmt"
)

// Standard sentinel errors for common operations.
var (
	// ErrNotFound is returned when a requested record does not exist.
	ErrNotFound = errors.New("recordstore: record not found")

	// ErrConfiguration is matched by every ConfigurationError.
	ErrConfiguration = errors.New("recordstore: invalid configuration")

	// ErrContract is matched by every ContractError.
	ErrContract = errors.New("recordstore: contract violation")
)

// ConfigurationError reports an unknown dialect, an unknown connection role,
// an unmapped entity kind or a connection entry missing a required field.
type ConfigurationError struct {
	Subject string // What was being resolved, e.g. "role", "dialect", "server".
	Value   string
	Reason  string
}

// Error returns the error string.
func (e *ConfigurationError) Error() string {
	if e.Value != "" {
		return fmt.Sprintf("recordstore: configuration: %s %q: %s", e.Subject, e.Value, e.Reason)
	}
	return fmt.Sprintf("recordstore: configuration: %s: %s", e.Subject, e.Reason)
}

// Is reports whether the target error matches ErrConfiguration.
func (e *ConfigurationError) Is(err error) bool {
	return err == ErrConfiguration
}

// NewConfigurationError returns a new ConfigurationError.
func NewConfigurationError(subject, value, reason string) *ConfigurationError {
	return &ConfigurationError{Subject: subject, Value: value, Reason: reason}
}

// IsConfigurationError returns true if the error is a ConfigurationError.
func IsConfigurationError(err error) bool {
	if err == nil {
		return false
	}
	var e *ConfigurationError
	return errors.As(err, &e)
}

// ContractError reports a caller mistake detected before any SQL is built:
// a negative page size, a page number below one, an operator outside the
// whitelist or a malformed field name.
type ContractError struct {
	Arg    string
	Reason string
}

// Error returns the error string.
func (e *ContractError) Error() string {
	return fmt.Sprintf("recordstore: invalid %s: %s", e.Arg, e.Reason)
}

// Is reports whether the target error matches ErrContract.
func (e *ContractError) Is(err error) bool {
	return err == ErrContract
}

// NewContractError returns a new ContractError.
func NewContractError(arg, format string, args ...any) *ContractError {
	return &ContractError{Arg: arg, Reason: fmt.Sprintf(format, args...)}
}

// IsContractError returns true if the error is a ContractError.
func IsContractError(err error) bool {
	if err == nil {
		return false
	}
	var e *ContractError
	return errors.As(err, &e)
}

// NotFoundError represents an error when a record is not found.
type NotFoundError struct {
	label string
	id    any // Optional: the key that was searched for
}

// Error returns the error string.
func (e *NotFoundError) Error() string {
	if e.id != nil {
		return fmt.Sprintf("recordstore: %s not found (id=%v)", e.label, e.id)
	}
	return fmt.Sprintf("recordstore: %s not found", e.label)
}

// Is reports whether the target error matches NotFoundError.
// This allows errors.Is(notFoundErr, ErrNotFound) to return true.
func (e *NotFoundError) Is(err error) bool {
	return err == ErrNotFound
}

// Label returns the table label.
func (e *NotFoundError) Label() string {
	return e.label
}

// ID returns the key that was searched for, if available.
func (e *NotFoundError) ID() any {
	return e.id
}

// NewNotFoundError returns a new NotFoundError for the given table.
func NewNotFoundError(label string) *NotFoundError {
	return &NotFoundError{label: label}
}

// NewNotFoundErrorWithID returns a new NotFoundError with the key that was searched for.
func NewNotFoundErrorWithID(label string, id any) *NotFoundError {
	return &NotFoundError{label: label, id: id}
}

// IsNotFound returns true if the error is a NotFoundError.
func IsNotFound(err error) bool {
	if err == nil {
		return false
	}
	var e *NotFoundError
	return errors.As(err, &e) || errors.Is(err, ErrNotFound)
}

// ConstraintError represents a database constraint violation error.
type ConstraintError struct {
	msg  string
	wrap error
}

// Error returns the error string.
func (e ConstraintError) Error() string {
	return fmt.Sprintf("recordstore: constraint failed: %s", e.msg)
}

// Unwrap returns the underlying error.
func (e ConstraintError) Unwrap() error {
	return e.wrap
}

// NewConstraintError returns a new ConstraintError with the given message.
func NewConstraintError(msg string, wrap error) error {
	return ConstraintError{msg: msg, wrap: wrap}
}

// IsConstraintError returns true if the error is a ConstraintError.
func IsConstraintError(err error) bool {
	if err == nil {
		return false
	}
	var e ConstraintError
	return errors.As(err, &e)
}

// RollbackError wraps an error that occurred during a transaction rollback.
type RollbackError struct {
	Err error
}

// Error returns the error string.
func (e *RollbackError) Error() string {
	return fmt.Sprintf("recordstore: rollback failed: %v", e.Err)
}

// Unwrap returns the underlying error.
func (e *RollbackError) Unwrap() error {
	return e.Err
}

// QueryError wraps a store error raised while reading.
type QueryError struct {
	Table string // Table being queried
	Op    string // Operation (e.g., "search", "count", "get")
	Err   error
}

// Error returns the error string.
func (e *QueryError) Error() string {
	if e.Op != "" {
		return fmt.Sprintf("recordstore: querying %s (%s): %v", e.Table, e.Op, e.Err)
	}
	return fmt.Sprintf("recordstore: querying %s: %v", e.Table, e.Err)
}

// Unwrap returns the underlying error.
func (e *QueryError) Unwrap() error {
	return e.Err
}

// NewQueryError returns a new QueryError.
func NewQueryError(table, op string, err error) *QueryError {
	return &QueryError{Table: table, Op: op, Err: err}
}

// IsQueryError returns true if the error is a QueryError.
func IsQueryError(err error) bool {
	if err == nil {
		return false
	}
	var e *QueryError
	return errors.As(err, &e)
}

// MutationError wraps a store error raised while writing.
type MutationError struct {
	Table string // Table being mutated
	Op    string // Operation (e.g., "insert", "update", "save graph")
	Err   error
}

// Error returns the error string.
func (e *MutationError) Error() string {
	return fmt.Sprintf("recordstore: %s %s: %v", e.Op, e.Table, e.Err)
}

// Unwrap returns the underlying error.
func (e *MutationError) Unwrap() error {
	return e.Err
}

// NewMutationError returns a new MutationError.
func NewMutationError(table, op string, err error) *MutationError {
	return &MutationError{Table: table, Op: op, Err: err}
}

// IsMutationError returns true if the error is a MutationError.
func IsMutationError(err error) bool {
	if err == nil {
		return false
	}
	var e *MutationError
	return errors.As(err, &e)
}

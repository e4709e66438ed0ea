package typeddal

import (
	"errors"
	"strings"
)

// Sentinel errors for the two error kinds.
var (
	// ErrUserCorrectable is matched by every UserCorrectableError.
	ErrUserCorrectable = errors.New("typeddal: user-correctable problem")

	// ErrContract is matched by every ContractError.
	ErrContract = errors.New("typeddal: contract violation")
)

// UserCorrectableError represents a schema-shape or configuration problem that
// an operator can fix, for example a nullable string column.
type UserCorrectableError struct {
	Message string
	Cause   error
}

// Error returns the error string.
func (e *UserCorrectableError) Error() string {
	return format(e.Message, e.Cause)
}

// Unwrap returns the underlying error.
func (e *UserCorrectableError) Unwrap() error {
	return e.Cause
}

// Is reports whether the target matches ErrUserCorrectable.
func (e *UserCorrectableError) Is(target error) bool {
	return target == ErrUserCorrectable
}

// NewUserCorrectableError returns a new UserCorrectableError.
func NewUserCorrectableError(message string, cause error) *UserCorrectableError {
	return &UserCorrectableError{Message: message, Cause: cause}
}

// IsUserCorrectable returns true if the error chain contains a UserCorrectableError.
func IsUserCorrectable(err error) bool {
	if err == nil {
		return false
	}
	var e *UserCorrectableError
	return errors.As(err, &e)
}

// ContractError represents an invariant breach: a logic or assumption error
// rather than a fixable schema issue. It is never retried.
type ContractError struct {
	Message string
	Cause   error
}

// Error returns the error string.
func (e *ContractError) Error() string {
	return format(e.Message, e.Cause)
}

// Unwrap returns the underlying error.
func (e *ContractError) Unwrap() error {
	return e.Cause
}

// Is reports whether the target matches ErrContract.
func (e *ContractError) Is(target error) bool {
	return target == ErrContract
}

// NewContractError returns a new ContractError.
func NewContractError(message string, cause error) *ContractError {
	return &ContractError{Message: message, Cause: cause}
}

// IsContractViolation returns true if the error chain contains a ContractError.
func IsContractViolation(err error) bool {
	if err == nil {
		return false
	}
	var e *ContractError
	return errors.As(err, &e)
}

func format(message string, cause error) string {
	var b strings.Builder
	b.WriteString("typeddal: ")
	b.WriteString(message)
	if cause != nil {
		b.WriteString(": ")
		b.WriteString(strings.TrimPrefix(cause.Error(), "typeddal: "))
	}
	return b.String()
}

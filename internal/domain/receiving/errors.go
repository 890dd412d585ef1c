package receiving

import (
	"fmt"
	"strings"

	"github.com/erp/receiving/internal/domain/shared"
	"github.com/google/uuid"
)

// NoChangesMessage is reported when a commit carries nothing to record
const NoChangesMessage = "Nothing to receive. Enter a Received/Returned quantity or add an unordered item."

// Receiving error codes
var (
	ErrValidationFailed         = shared.NewDomainError("VALIDATION_ERROR", "Validation failed. Please fix the errors below.")
	ErrNoChanges                = shared.NewDomainError("NO_CHANGES", NoChangesMessage)
	ErrPersistence              = shared.NewDomainError("PERSISTENCE_ERROR", "Error while saving")
	ErrForceCloseReasonRequired = shared.NewDomainError("INVALID_REASON", "A reason is required to force close a purchase order")
	ErrEmployeeRequired         = shared.NewDomainError("INVALID_EMPLOYEE", "Employee ID is required to commit a receipt")
)

// ValidationError carries every blocking rule violation found in a batch
type ValidationError struct {
	Errors []FieldError
}

func (e *ValidationError) Error() string {
	if len(e.Errors) == 0 {
		return ErrValidationFailed.Message
	}
	msgs := make([]string, len(e.Errors))
	for i, fe := range e.Errors {
		msgs[i] = fe.Message
	}
	return ErrValidationFailed.Message + " " + strings.Join(msgs, " ")
}

func (e *ValidationError) Unwrap() error {
	return ErrValidationFailed
}

// NoChangesError means the batch was valid but empty. It is informational, not a failure.
type NoChangesError struct{}

func (e *NoChangesError) Error() string {
	return NoChangesMessage
}

func (e *NoChangesError) Unwrap() error {
	return ErrNoChanges
}

// PersistenceError wraps a store failure that aborted a commit
type PersistenceError struct {
	Op    string
	Cause error
}

// NewPersistenceError creates a PersistenceError
func NewPersistenceError(op string, cause error) *PersistenceError {
	return &PersistenceError{Op: op, Cause: cause}
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%s: %s: %v", ErrPersistence.Message, e.Op, e.Cause)
}

// Unwrap exposes both the PERSISTENCE_ERROR code and the underlying cause
func (e *PersistenceError) Unwrap() []error {
	return []error{ErrPersistence, e.Cause}
}

// IntegrityWarning reports a line the commit skipped because it no longer
// resolves to a line of the order. It does not abort the commit.
type IntegrityWarning struct {
	LineID  uuid.UUID `json:"line_id"`
	PartID  uuid.UUID `json:"part_id"`
	Message string    `json:"message"`
}

// NewIntegrityWarning builds the warning for a line that could not be resolved
func NewIntegrityWarning(line OrderLine) IntegrityWarning {
	return IntegrityWarning{
		LineID:  line.LineID,
		PartID:  line.PartID,
		Message: fmt.Sprintf("Part %s: order line %s was not found on this order and was skipped.", line.Label(), line.LineID),
	}
}

// NewMissingPartWarning builds the warning for a resolved line whose part row is gone
func NewMissingPartWarning(line OrderLine) IntegrityWarning {
	return IntegrityWarning{
		LineID:  line.LineID,
		PartID:  line.PartID,
		Message: fmt.Sprintf("Part %s: part record not found; inventory counters were not updated.", line.Label()),
	}
}

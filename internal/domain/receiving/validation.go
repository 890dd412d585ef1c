package receiving

import (
	"fmt"
	"strings"
)

// ValidationResult is the outcome of validating a whole batch. Errors are in a
// stable order: lines in batch order, then the draft slot, then staged items.
type ValidationResult struct {
	Errors []FieldError
}

// OK returns true if no blocking rule is violated
func (r ValidationResult) OK() bool {
	return len(r.Errors) == 0
}

// ByKey indexes the errors by the input they belong to
func (r ValidationResult) ByKey() map[FieldKey]FieldError {
	m := make(map[FieldKey]FieldError, len(r.Errors))
	for _, fe := range r.Errors {
		m[fe.Key] = fe
	}
	return m
}

// ForSubject returns the errors of one line or item
func (r ValidationResult) ForSubject(subject string) []FieldError {
	var out []FieldError
	for _, fe := range r.Errors {
		if fe.Key.Subject == subject {
			out = append(out, fe)
		}
	}
	return out
}

// Validate evaluates every rule over the batch and reports all violations.
// It is a pure function of the batch.
func Validate(b Batch) ValidationResult {
	var errs []FieldError
	for _, line := range b.Lines {
		errs = append(errs, validateLine(line)...)
	}
	errs = append(errs, validateDraft(b.Draft)...)
	for i, item := range b.Unordered {
		errs = append(errs, item.validate(StagedSubject(i))...)
	}
	return ValidationResult{Errors: errs}
}

// ValidateLine evaluates the line rules for a single order line
func ValidateLine(l OrderLine) []FieldError {
	return validateLine(l)
}

func validateLine(l OrderLine) []FieldError {
	var errs []FieldError

	switch {
	case l.Received < 0:
		errs = append(errs, lineError(l, FieldReceived, "Received cannot be negative."))
	case l.Unresolved:
	case l.Received > l.OutstandingBase:
		errs = append(errs, lineError(l, FieldReceived,
			fmt.Sprintf("Received (%d) cannot exceed Outstanding (%d).", l.Received, l.OutstandingBase)))
	}

	switch {
	case l.Returned < 0:
		errs = append(errs, lineError(l, FieldReturned, "Returned cannot be negative."))
	case l.Unresolved:
	case l.Returned > l.OrderQty:
		errs = append(errs, lineError(l, FieldReturned,
			fmt.Sprintf("Returned (%d) cannot exceed Ordered (%d).", l.Returned, l.OrderQty)))
	}

	if l.Returned > 0 && strings.TrimSpace(l.Reason) == "" {
		errs = append(errs, lineError(l, FieldReason, "Reason required when returning items."))
	}
	return errs
}

func validateDraft(d *UnorderedItem) []FieldError {
	if d == nil || d.Quantity > 0 {
		return nil
	}
	return []FieldError{unorderedError(DraftSubject, FieldQuantity, "Quantity must be greater than zero.")}
}

// CheckAdmissible decides whether a batch may be committed. Blocking violations
// come back as *ValidationError; a clean batch with nothing in it comes back as
// *NoChangesError.
func CheckAdmissible(b Batch) error {
	if res := Validate(b); !res.OK() {
		return &ValidationError{Errors: res.Errors}
	}
	if !b.HasChanges() {
		return &NoChangesError{}
	}
	return nil
}

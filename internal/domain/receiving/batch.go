package receiving

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// Batch is the in-progress receiving session for one order. It is a value: every
// edit produces a new Batch and leaves the previous one untouched.
type Batch struct {
	OrderID          uuid.UUID
	Lines            []OrderLine
	Unordered        []UnorderedItem
	Draft            *UnorderedItem
	ForceCloseReason string
}

// NewBatch opens a session over the given ledger lines
func NewBatch(orderID uuid.UUID, lines []OrderLine) Batch {
	b := Batch{OrderID: orderID, Lines: make([]OrderLine, len(lines))}
	for i, l := range lines {
		b.Lines[i] = l.StartSession()
	}
	return b
}

func (b Batch) clone() Batch {
	out := b
	out.Lines = append([]OrderLine(nil), b.Lines...)
	out.Unordered = append([]UnorderedItem(nil), b.Unordered...)
	if b.Draft != nil {
		d := *b.Draft
		out.Draft = &d
	}
	return out
}

// LineIndex returns the position of lineID in the batch, or -1
func (b Batch) LineIndex(lineID uuid.UUID) int {
	for i, l := range b.Lines {
		if l.LineID == lineID {
			return i
		}
	}
	return -1
}

// HasChanges reports whether there is anything to record
func (b Batch) HasChanges() bool {
	return b.HasLedgerChanges() || strings.TrimSpace(b.ForceCloseReason) != ""
}

// HasLedgerChanges reports whether committing would write ledger records
func (b Batch) HasLedgerChanges() bool {
	if len(b.Unordered) > 0 {
		return true
	}
	for _, l := range b.Lines {
		if l.HasChanges() {
			return true
		}
	}
	return false
}

// AddUnordered validates item and stages it, clearing the draft slot
func (b Batch) AddUnordered(description, vendorPartID string, quantity int) (Batch, []FieldError) {
	item, errs := NewUnorderedItem(description, vendorPartID, quantity)
	if len(errs) > 0 {
		return b, errs
	}
	out := b.clone()
	out.Unordered = append(out.Unordered, item)
	out.Draft = nil
	return out, nil
}

// PromoteDraft stages the item in the draft slot
func (b Batch) PromoteDraft() (Batch, []FieldError) {
	if b.Draft == nil {
		return b.AddUnordered("", "", 0)
	}
	return b.AddUnordered(b.Draft.Description, b.Draft.VendorPartID, b.Draft.Quantity)
}

// SetDraftQuantity sets the quantity typed into the draft slot and returns the
// slot's current errors
func (b Batch) SetDraftQuantity(quantity int) (Batch, []FieldError) {
	return applyBatchEdit(b, Edit{Field: FieldQuantity, Quantity: quantity})
}

// RemoveUnordered drops the staged item at index. Out of range is a no-op.
func (b Batch) RemoveUnordered(index int) Batch {
	if index < 0 || index >= len(b.Unordered) {
		return b
	}
	out := b.clone()
	out.Unordered = append(out.Unordered[:index], out.Unordered[index+1:]...)
	return out
}

// Edit is a single field change made by the operator. A zero LineID targets the
// draft slot or, for FieldForceCloseReason, the batch itself.
type Edit struct {
	LineID   uuid.UUID
	Field    Field
	Quantity int
	Text     string
}

// ApplyEdit applies one edit and returns the new batch together with the current
// errors of the edited subject. The errors agree with what Validate reports for
// that subject.
func ApplyEdit(b Batch, e Edit) (Batch, []FieldError) {
	if e.LineID == uuid.Nil {
		return applyBatchEdit(b, e)
	}

	idx := b.LineIndex(e.LineID)
	if idx < 0 {
		return b, []FieldError{{
			Key:     FieldKey{Subject: "line:" + e.LineID.String(), Field: e.Field},
			Message: fmt.Sprintf("Order line %s is not part of this receiving session.", e.LineID),
		}}
	}

	out := b.clone()
	line := out.Lines[idx]
	switch e.Field {
	case FieldReceived:
		line.Received = e.Quantity
	case FieldReturned:
		line.Returned = e.Quantity
	case FieldReason:
		line.Reason = e.Text
	default:
		return b, []FieldError{unsupportedField(PartSubject(line.PartID), e.Field)}
	}
	out.Lines[idx] = line
	return out, validateLine(line)
}

func applyBatchEdit(b Batch, e Edit) (Batch, []FieldError) {
	out := b.clone()
	switch e.Field {
	case FieldForceCloseReason:
		out.ForceCloseReason = e.Text
		return out, nil
	case FieldDescription, FieldVendorPartID, FieldQuantity:
	default:
		return b, []FieldError{unsupportedField(DraftSubject, e.Field)}
	}

	draft := UnorderedItem{}
	if out.Draft != nil {
		draft = *out.Draft
	}
	switch e.Field {
	case FieldDescription:
		draft.Description = e.Text
	case FieldVendorPartID:
		draft.VendorPartID = e.Text
	case FieldQuantity:
		draft.Quantity = e.Quantity
	}
	out.Draft = &draft
	return out, validateDraft(out.Draft)
}

func unsupportedField(subject string, field Field) FieldError {
	return FieldError{
		Key:     FieldKey{Subject: subject, Field: field},
		Message: fmt.Sprintf("Field %q cannot be edited here.", field),
	}
}

// ChangeSummary describes the batch the way the receiving log records it
func (b Batch) ChangeSummary() []string {
	var out []string
	for _, l := range b.Lines {
		if !l.HasChanges() {
			continue
		}
		out = append(out, fmt.Sprintf("Part %s: Received %d, Returned %d, Reason: %s", l.Label(), l.Received, l.Returned, l.Reason))
	}
	for _, u := range b.Unordered {
		out = append(out, fmt.Sprintf("Unordered Item: %s, Vendor Part ID: %s, Quantity: %d", u.Description, u.VendorPartID, u.Quantity))
	}
	return out
}

package receiving

import (
	"strconv"

	"github.com/google/uuid"
)

// Field names an editable input in a receiving batch
type Field string

const (
	FieldReceived         Field = "received"
	FieldReturned         Field = "returned"
	FieldReason           Field = "reason"
	FieldQuantity         Field = "quantity"
	FieldDescription      Field = "description"
	FieldVendorPartID     Field = "vendor_part_id"
	FieldForceCloseReason Field = "force_close_reason"
)

// DraftSubject is the subject of the candidate new-item slot
const DraftSubject = "unordered"

// FieldKey identifies which input a FieldError belongs to
type FieldKey struct {
	Subject string `json:"subject"`
	Field   Field  `json:"field"`
}

// String renders the key as subject.field
func (k FieldKey) String() string {
	return k.Subject + "." + string(k.Field)
}

// PartSubject returns the key subject for an order line's part
func PartSubject(partID uuid.UUID) string {
	return "part:" + partID.String()
}

// StagedSubject returns the key subject for a staged unordered item
func StagedSubject(index int) string {
	return "unordered[" + strconv.Itoa(index) + "]"
}

// FieldError is one violated rule, keyed to the input it concerns
type FieldError struct {
	Key     FieldKey `json:"key"`
	Message string   `json:"message"`
}

func lineError(line OrderLine, field Field, msg string) FieldError {
	return FieldError{
		Key:     FieldKey{Subject: PartSubject(line.PartID), Field: field},
		Message: "Part " + line.Label() + ": " + msg,
	}
}

func unorderedError(subject string, field Field, msg string) FieldError {
	return FieldError{
		Key:     FieldKey{Subject: subject, Field: field},
		Message: "Unordered Item: " + msg,
	}
}

package receiving

import (
	"strings"
	"time"

	"github.com/erp/receiving/internal/domain/receiving"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OrderSummaryResponse is one row of the outstanding orders list
type OrderSummaryResponse struct {
	OrderID     uuid.UUID `json:"order_id"`
	OrderNumber string    `json:"order_number"`
	OrderDate   time.Time `json:"order_date"`
	VendorName  string    `json:"vendor_name"`
	VendorPhone string    `json:"vendor_phone"`
}

// OrderHeaderResponse is the header of a receiving session
type OrderHeaderResponse struct {
	OrderID     uuid.UUID `json:"order_id"`
	OrderNumber string    `json:"order_number"`
	OrderDate   time.Time `json:"order_date"`
	VendorName  string    `json:"vendor_name"`
	VendorPhone string    `json:"vendor_phone"`
}

// OrderLineResponse is a ledger line with its session fields
type OrderLineResponse struct {
	LineID           uuid.UUID       `json:"line_id"`
	PartID           uuid.UUID       `json:"part_id"`
	PartCode         string          `json:"part_code"`
	Description      string          `json:"description"`
	OrderQty         int             `json:"order_qty"`
	UnitCost         decimal.Decimal `json:"unit_cost"`
	ReceivedToDate   int             `json:"received_to_date"`
	ReturnedToDate   int             `json:"returned_to_date"`
	Outstanding      int             `json:"outstanding"`
	LastReturnReason string          `json:"last_return_reason,omitempty"`
	OutstandingBase  int             `json:"outstanding_base"`
	Received         int             `json:"received"`
	Returned         int             `json:"returned"`
	Reason           string          `json:"reason"`
	Unresolved       bool            `json:"unresolved,omitempty"`
}

// SessionResponse is a freshly opened receiving session
type SessionResponse struct {
	Header OrderHeaderResponse `json:"header"`
	Lines  []OrderLineResponse `json:"lines"`
}

// FieldErrorResponse is a FieldError flattened for clients
type FieldErrorResponse struct {
	Subject string `json:"subject"`
	Field   string `json:"field"`
	Message string `json:"message"`
}

// UnorderedItemInput is an unordered item as entered by the operator
type UnorderedItemInput struct {
	Description  string `json:"description"`
	VendorPartID string `json:"vendor_part_id"`
	Quantity     int    `json:"quantity"`
}

// LineEditInput carries the session fields of one line. OrderQty and
// OutstandingBase are the values the client's session was opened with.
type LineEditInput struct {
	LineID          uuid.UUID
	PartID          uuid.UUID
	Received        int
	Returned        int
	Reason          string
	OrderQty        *int
	OutstandingBase *int
}

// BatchInput is the full state of a client-held receiving session
type BatchInput struct {
	Lines            []LineEditInput
	Unordered        []UnorderedItemInput
	Draft            *UnorderedItemInput
	ForceCloseReason string
}

// EditInput is a single field edit
type EditInput struct {
	LineID   uuid.UUID
	Field    string
	Quantity int
	Text     string
}

// ValidateResponse is the result of validating, and optionally editing, a batch
type ValidateResponse struct {
	OK               bool                 `json:"ok"`
	HasChanges       bool                 `json:"has_changes"`
	Errors           []FieldErrorResponse `json:"errors"`
	EditErrors       []FieldErrorResponse `json:"edit_errors,omitempty"`
	Lines            []OrderLineResponse  `json:"lines"`
	Unordered        []UnorderedItemInput `json:"unordered"`
	Draft            *UnorderedItemInput  `json:"draft,omitempty"`
	ForceCloseReason string               `json:"force_close_reason"`
	Changes          []string             `json:"changes"`
}

// CommitCommand commits a batch on behalf of an employee
type CommitCommand struct {
	OrderID        uuid.UUID
	EmployeeID     string
	IdempotencyKey string
	Batch          receiving.Batch
}

// CommitResult describes what a commit recorded
type CommitResult struct {
	ReceiptEventID   uuid.UUID                    `json:"receipt_event_id"`
	OrderID          uuid.UUID                    `json:"order_id"`
	Changes          []string                     `json:"changes"`
	Warnings         []receiving.IntegrityWarning `json:"warnings"`
	AutoClosed       bool                         `json:"auto_closed"`
	QuantityReceived int                          `json:"quantity_received"`
	QuantityReturned int                          `json:"quantity_returned"`
	UnorderedItems   int                          `json:"unordered_items"`
	ReceivedValue    decimal.Decimal              `json:"received_value"`
}

// ForceCloseCommand closes an order, first committing any staged batch
type ForceCloseCommand struct {
	OrderID        uuid.UUID
	EmployeeID     string
	Reason         string
	IdempotencyKey string
	Batch          *receiving.Batch
}

// ReleasedLine reports the on-order quantity given back for a line
type ReleasedLine struct {
	LineID      uuid.UUID `json:"line_id"`
	PartID      uuid.UUID `json:"part_id"`
	Outstanding int       `json:"outstanding"`
	Released    int       `json:"released"`
}

// ForceCloseResult describes a forced closure
type ForceCloseResult struct {
	OrderID  uuid.UUID                    `json:"order_id"`
	Notes    string                       `json:"notes"`
	Released []ReleasedLine               `json:"released"`
	Warnings []receiving.IntegrityWarning `json:"warnings"`
	Receipt  *CommitResult                `json:"receipt,omitempty"`
}

// ReleasedUnits is the on-order quantity given back across all lines
func (r *ForceCloseResult) ReleasedUnits() int {
	total := 0
	for _, l := range r.Released {
		total += l.Released
	}
	return total
}

// ToOrderSummaryResponses converts summaries to responses
func ToOrderSummaryResponses(summaries []receiving.OrderSummary) []OrderSummaryResponse {
	out := make([]OrderSummaryResponse, len(summaries))
	for i, s := range summaries {
		out[i] = OrderSummaryResponse{
			OrderID:     s.OrderID,
			OrderNumber: s.OrderNumber,
			OrderDate:   s.OrderDate,
			VendorName:  s.VendorName,
			VendorPhone: s.VendorPhone,
		}
	}
	return out
}

// ToOrderHeaderResponse converts a header to a response
func ToOrderHeaderResponse(h receiving.OrderHeader) OrderHeaderResponse {
	return OrderHeaderResponse{
		OrderID:     h.OrderID,
		OrderNumber: h.OrderNumber,
		OrderDate:   h.OrderDate,
		VendorName:  h.VendorName,
		VendorPhone: h.VendorPhone,
	}
}

// ToOrderLineResponses converts lines to responses
func ToOrderLineResponses(lines []receiving.OrderLine) []OrderLineResponse {
	out := make([]OrderLineResponse, len(lines))
	for i, l := range lines {
		out[i] = OrderLineResponse{
			LineID:           l.LineID,
			PartID:           l.PartID,
			PartCode:         l.PartCode,
			Description:      l.Description,
			OrderQty:         l.OrderQty,
			UnitCost:         l.UnitCost,
			ReceivedToDate:   l.ReceivedToDate,
			ReturnedToDate:   l.ReturnedToDate,
			Outstanding:      l.Outstanding(),
			LastReturnReason: l.LastReturnReason,
			OutstandingBase:  l.OutstandingBase,
			Received:         l.Received,
			Returned:         l.Returned,
			Reason:           l.Reason,
			Unresolved:       l.Unresolved,
		}
	}
	return out
}

// ToFieldErrorResponses flattens field errors
func ToFieldErrorResponses(errs []receiving.FieldError) []FieldErrorResponse {
	out := make([]FieldErrorResponse, len(errs))
	for i, fe := range errs {
		out[i] = FieldErrorResponse{
			Subject: fe.Key.Subject,
			Field:   string(fe.Key.Field),
			Message: fe.Message,
		}
	}
	return out
}

func toUnorderedInputs(items []receiving.UnorderedItem) []UnorderedItemInput {
	out := make([]UnorderedItemInput, len(items))
	for i, u := range items {
		out[i] = UnorderedItemInput{Description: u.Description, VendorPartID: u.VendorPartID, Quantity: u.Quantity}
	}
	return out
}

func (in UnorderedItemInput) toDomain() receiving.UnorderedItem {
	return receiving.UnorderedItem{
		Description:  strings.TrimSpace(in.Description),
		VendorPartID: strings.TrimSpace(in.VendorPartID),
		Quantity:     in.Quantity,
	}
}

func (in EditInput) toDomain() receiving.Edit {
	return receiving.Edit{
		LineID:   in.LineID,
		Field:    receiving.Field(in.Field),
		Quantity: in.Quantity,
		Text:     in.Text,
	}
}

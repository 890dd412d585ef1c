package models

import (
	"time"

	"github.com/erp/receiving/internal/domain/receiving"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// VendorModel is the persistence model for vendors referenced by purchase orders
type VendorModel struct {
	EntityModel
	Name  string `gorm:"type:varchar(200);not null"`
	Phone string `gorm:"type:varchar(50)"`
}

// TableName returns the table name for GORM
func (VendorModel) TableName() string {
	return "vendors"
}

// PartModel is the persistence model for inventory parts
type PartModel struct {
	EntityModel
	Code            string `gorm:"type:varchar(50);not null;uniqueIndex"`
	Description     string `gorm:"type:varchar(500)"`
	QuantityOnHand  int    `gorm:"not null;default:0"`
	QuantityOnOrder int    `gorm:"not null;default:0"`
}

// TableName returns the table name for GORM
func (PartModel) TableName() string {
	return "parts"
}

// ToDomain converts the model to a domain Part
func (m *PartModel) ToDomain() *receiving.Part {
	return &receiving.Part{
		ID:              m.ID,
		Code:            m.Code,
		Description:     m.Description,
		QuantityOnHand:  m.QuantityOnHand,
		QuantityOnOrder: m.QuantityOnOrder,
		UpdatedAt:       m.UpdatedAt,
	}
}

// PurchaseOrderModel is the persistence model for the PurchaseOrder aggregate root
type PurchaseOrderModel struct {
	VersionedModel
	OrderNumber string       `gorm:"type:varchar(50);not null;uniqueIndex"`
	OrderDate   *time.Time   `gorm:"index"`
	VendorID    *uuid.UUID   `gorm:"type:uuid;index"`
	Vendor      *VendorModel `gorm:"foreignKey:VendorID;references:ID"`
	Closed      bool         `gorm:"not null;default:false;index"`
	Notes       string       `gorm:"type:text"`
	ClosedAt    *time.Time
	Hidden      bool                     `gorm:"not null;default:false"`
	Lines       []PurchaseOrderLineModel `gorm:"foreignKey:OrderID;references:ID"`
}

// TableName returns the table name for GORM
func (PurchaseOrderModel) TableName() string {
	return "purchase_orders"
}

// ToDomain converts the model to a domain PurchaseOrder. Vendor fields are
// filled only when the Vendor association was loaded.
func (m *PurchaseOrderModel) ToDomain() *receiving.PurchaseOrder {
	o := &receiving.PurchaseOrder{
		Aggregate:   m.aggregate(),
		OrderNumber: m.OrderNumber,
		OrderDate:   m.OrderDate,
		Closed:      m.Closed,
		Notes:       m.Notes,
		ClosedAt:    m.ClosedAt,
		Hidden:      m.Hidden,
	}
	if m.VendorID != nil {
		o.VendorID = *m.VendorID
	}
	if m.Vendor != nil {
		o.VendorName = m.Vendor.Name
		o.VendorPhone = m.Vendor.Phone
	}
	return o
}

// FromDomain populates the model from a domain PurchaseOrder
func (m *PurchaseOrderModel) FromDomain(o *receiving.PurchaseOrder) {
	m.VersionedModel = versionedFrom(o.Aggregate)
	m.OrderNumber = o.OrderNumber
	m.OrderDate = o.OrderDate
	m.Closed = o.Closed
	m.Notes = o.Notes
	m.ClosedAt = o.ClosedAt
	m.Hidden = o.Hidden
	if o.VendorID != uuid.Nil {
		id := o.VendorID
		m.VendorID = &id
	}
}

// PurchaseOrderLineModel is one ordered part on a purchase order
type PurchaseOrderLineModel struct {
	EntityModel
	OrderID  uuid.UUID       `gorm:"type:uuid;not null;index"`
	PartID   uuid.UUID       `gorm:"type:uuid;not null;index"`
	Quantity int             `gorm:"not null"`
	UnitCost decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
}

// TableName returns the table name for GORM
func (PurchaseOrderLineModel) TableName() string {
	return "purchase_order_lines"
}

// ReceiptEventModel is the header row of one committed receiving session
type ReceiptEventModel struct {
	LedgerModel
	OrderID    uuid.UUID               `gorm:"type:uuid;not null;index"`
	EmployeeID string                  `gorm:"type:varchar(64);not null"`
	ReceivedAt time.Time               `gorm:"not null"`
	Receipts   []ReceiptDetailModel    `gorm:"foreignKey:ReceiptEventID;references:ID"`
	Returns    []ReturnDetailModel     `gorm:"foreignKey:ReceiptEventID;references:ID"`
	Unordered  []UnorderedCaptureModel `gorm:"foreignKey:ReceiptEventID;references:ID"`
}

// TableName returns the table name for GORM
func (ReceiptEventModel) TableName() string {
	return "receipt_events"
}

// ReceiptDetailModel records a received quantity against an order line
type ReceiptDetailModel struct {
	LedgerModel
	ReceiptEventID uuid.UUID `gorm:"type:uuid;not null;index"`
	OrderLineID    uuid.UUID `gorm:"type:uuid;not null;index"`
	Quantity       int       `gorm:"not null"`
}

// TableName returns the table name for GORM
func (ReceiptDetailModel) TableName() string {
	return "receipt_details"
}

// ReturnDetailModel records a returned quantity against an order line
type ReturnDetailModel struct {
	LedgerModel
	ReceiptEventID  uuid.UUID `gorm:"type:uuid;not null;index"`
	OrderLineID     uuid.UUID `gorm:"type:uuid;not null;index"`
	ItemDescription string    `gorm:"type:varchar(500)"`
	Quantity        int       `gorm:"not null"`
	Reason          string    `gorm:"type:text;not null"`
}

// TableName returns the table name for GORM
func (ReturnDetailModel) TableName() string {
	return "return_details"
}

// UnorderedCaptureModel records goods received without an order line
type UnorderedCaptureModel struct {
	LedgerModel
	ReceiptEventID   uuid.UUID `gorm:"type:uuid;not null;index"`
	Description      string    `gorm:"type:varchar(500);not null"`
	VendorPartNumber string    `gorm:"type:varchar(100);not null"`
	Quantity         int       `gorm:"not null"`
}

// TableName returns the table name for GORM
func (UnorderedCaptureModel) TableName() string {
	return "unordered_captures"
}

// ReceiptEventModelFromDomain builds the header and all detail rows of an event
func ReceiptEventModelFromDomain(e *receiving.ReceiptEvent) *ReceiptEventModel {
	created := e.ReceivedAt
	m := &ReceiptEventModel{
		LedgerModel: LedgerModel{ID: e.ID, CreatedAt: created},
		OrderID:     e.OrderID,
		EmployeeID:  e.EmployeeID,
		ReceivedAt:  e.ReceivedAt,
		Receipts:    make([]ReceiptDetailModel, len(e.Receipts)),
		Returns:     make([]ReturnDetailModel, len(e.Returns)),
		Unordered:   make([]UnorderedCaptureModel, len(e.Unordered)),
	}
	for i, d := range e.Receipts {
		m.Receipts[i] = ReceiptDetailModel{
			LedgerModel:    LedgerModel{ID: d.ID, CreatedAt: created},
			ReceiptEventID: e.ID,
			OrderLineID:    d.OrderLineID,
			Quantity:       d.Quantity,
		}
	}
	for i, d := range e.Returns {
		m.Returns[i] = ReturnDetailModel{
			LedgerModel:     LedgerModel{ID: d.ID, CreatedAt: created},
			ReceiptEventID:  e.ID,
			OrderLineID:     d.OrderLineID,
			ItemDescription: d.ItemDescription,
			Quantity:        d.Quantity,
			Reason:          d.Reason,
		}
	}
	for i, u := range e.Unordered {
		m.Unordered[i] = UnorderedCaptureModel{
			LedgerModel:      LedgerModel{ID: u.ID, CreatedAt: created},
			ReceiptEventID:   e.ID,
			Description:      u.Description,
			VendorPartNumber: u.VendorPartNumber,
			Quantity:         u.Quantity,
		}
	}
	return m
}

// ToDomain converts the event and any loaded detail rows
func (m *ReceiptEventModel) ToDomain() *receiving.ReceiptEvent {
	e := &receiving.ReceiptEvent{
		ID:         m.ID,
		OrderID:    m.OrderID,
		EmployeeID: m.EmployeeID,
		ReceivedAt: m.ReceivedAt,
	}
	for _, d := range m.Receipts {
		e.Receipts = append(e.Receipts, receiving.ReceiptDetail{
			ID:          d.ID,
			OrderLineID: d.OrderLineID,
			Quantity:    d.Quantity,
		})
	}
	for _, d := range m.Returns {
		e.Returns = append(e.Returns, receiving.ReturnDetail{
			ID:              d.ID,
			OrderLineID:     d.OrderLineID,
			ItemDescription: d.ItemDescription,
			Quantity:        d.Quantity,
			Reason:          d.Reason,
		})
	}
	for _, u := range m.Unordered {
		e.Unordered = append(e.Unordered, receiving.UnorderedCapture{
			ID:               u.ID,
			Description:      u.Description,
			VendorPartNumber: u.VendorPartNumber,
			Quantity:         u.Quantity,
		})
	}
	return e
}

// All returns every receiving model, in dependency order, for AutoMigrate
func All() []any {
	return []any{
		&VendorModel{},
		&PartModel{},
		&PurchaseOrderModel{},
		&PurchaseOrderLineModel{},
		&ReceiptEventModel{},
		&ReceiptDetailModel{},
		&ReturnDetailModel{},
		&UnorderedCaptureModel{},
	}
}

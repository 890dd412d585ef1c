package receiving

import (
	"strings"
)

// UnorderedItem is goods that arrived without a matching order line
type UnorderedItem struct {
	Description  string
	VendorPartID string
	Quantity     int
}

// NewUnorderedItem validates and builds an unordered item, reporting every
// violated rule rather than only the first.
func NewUnorderedItem(description, vendorPartID string, quantity int) (UnorderedItem, []FieldError) {
	item := UnorderedItem{
		Description:  strings.TrimSpace(description),
		VendorPartID: strings.TrimSpace(vendorPartID),
		Quantity:     quantity,
	}
	errs := item.validate(DraftSubject)
	if len(errs) > 0 {
		return UnorderedItem{}, errs
	}
	return item, nil
}

func (u UnorderedItem) validate(subject string) []FieldError {
	var errs []FieldError
	if strings.TrimSpace(u.Description) == "" {
		errs = append(errs, unorderedError(subject, FieldDescription, "Description is required."))
	}
	if strings.TrimSpace(u.VendorPartID) == "" {
		errs = append(errs, unorderedError(subject, FieldVendorPartID, "Vendor Part ID is required."))
	}
	if u.Quantity <= 0 {
		errs = append(errs, unorderedError(subject, FieldQuantity, "Quantity must be greater than zero."))
	}
	return errs
}

// IsBlank reports whether nothing has been typed into the item yet
func (u UnorderedItem) IsBlank() bool {
	return strings.TrimSpace(u.Description) == "" && strings.TrimSpace(u.VendorPartID) == "" && u.Quantity == 0
}

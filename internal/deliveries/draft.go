// Package deliveries implements delivery-guide drafting: seeding a draft from
// an order's lines or from baseline search, and guarding the order switch so
// entered quantities are never silently discarded.
package deliveries

import (
	"fmt"

	"procura/internal/models"
	"procura/internal/validation"
)

// Line is one draft delivery line.
type Line struct {
	BaselineID  *string `json:"baseline_id"`
	Description string  `json:"description"`
	Unit        string  `json:"unit"`
	Qty         float64 `json:"qty"`
}

// Draft is an editable delivery guide that has not been persisted.
type Draft struct {
	ProcessID    string  `json:"process_id"`
	OrderID      *string `json:"order_id"`
	SupplierName string  `json:"supplier_name"`
	GuideNumber  *string `json:"guide_number"`
	Date         string  `json:"date"`
	Lines        []Line  `json:"lines"`
}

// FromOrder seeds a draft from an order's lines with all quantities reset to
// zero, so the operator enters only what was actually received.
func FromOrder(o models.PurchaseOrder) Draft {
	d := Draft{
		ProcessID:    o.ProcessID,
		OrderID:      &o.ID,
		SupplierName: o.SupplierName,
	}
	for _, l := range o.Lines {
		d.Lines = append(d.Lines, Line{
			BaselineID:  l.BaselineID,
			Description: l.Description,
			Unit:        l.Unit,
			Qty:         0,
		})
	}
	return d
}

// AddBaselineItem appends a line built from a baseline catalog search hit.
func AddBaselineItem(d Draft, item models.BaselineItem) Draft {
	out := d
	out.Lines = append(append([]Line{}, d.Lines...), Line{
		BaselineID:  &item.ID,
		Description: item.Description,
		Unit:        item.Unit,
		Qty:         0,
	})
	return out
}

// HasEnteredQuantities reports whether the operator has typed any non-zero
// quantity into the draft.
func HasEnteredQuantities(d Draft) bool {
	for _, l := range d.Lines {
		if l.Qty != 0 {
			return true
		}
	}
	return false
}

// SwitchOrder replaces the draft with one seeded from a different order.
// When lines already carry non-zero quantities the switch must be confirmed
// explicitly: without confirm the current draft is returned unchanged and
// needsConfirm is true.
func SwitchOrder(d Draft, o models.PurchaseOrder, confirm bool) (out Draft, needsConfirm bool) {
	if HasEnteredQuantities(d) && !confirm {
		return d, true
	}
	return FromOrder(o), false
}

// Validate checks a draft before any persistence round trip.
func Validate(d Draft) *validation.ValidationErrors {
	ve := &validation.ValidationErrors{}
	validation.RequireField(ve, "supplier_name", d.SupplierName)
	validation.ValidateMaxLength(ve, "supplier_name", d.SupplierName, 200)
	if d.GuideNumber != nil {
		validation.ValidateMaxLength(ve, "guide_number", *d.GuideNumber, 50)
	}
	validation.ValidateDate(ve, "date", d.Date)
	if len(d.Lines) == 0 {
		ve.Add("lines", "delivery must have at least one line")
	}
	entered := false
	for i, l := range d.Lines {
		field := fmt.Sprintf("lines[%d]", i)
		validation.RequireField(ve, field+".description", l.Description)
		validation.ValidateNonNegativeFloat(ve, field+".qty", l.Qty)
		validation.ValidateMaxQuantity(ve, field+".qty", l.Qty)
		if l.Qty > 0 {
			entered = true
		}
	}
	if len(d.Lines) > 0 && !entered {
		ve.Add("lines", "at least one line must have a received quantity")
	}
	return ve
}

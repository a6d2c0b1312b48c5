// Package orders implements purchase-order drafting: building editable drafts
// from baseline rows or supplier offers, de-duplicating inserted lines with a
// priority-ordered matcher, and computing money totals.
//
// A Draft is a value; every mutator returns a new Draft and never touches the
// receiver, so the in-progress draft can only change on explicit assignment.
package orders

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"procura/internal/models"
	"procura/internal/validation"
)

// Line is one draft order line.
type Line struct {
	BaselineID  *string `json:"baseline_id"`
	Description string  `json:"description"`
	Unit        string  `json:"unit"`
	Qty         float64 `json:"qty"`
	UnitPrice   float64 `json:"unit_price"`
	RowOrder    *int    `json:"row_order"`
}

// Draft is an editable purchase order that has not been persisted.
// ManualNumber is set once the operator edits the order number; automatic
// renumbering stops for the remainder of the drafting session.
type Draft struct {
	ProcessID    string  `json:"process_id"`
	QuotationID  *string `json:"quotation_id"`
	SupplierName string  `json:"supplier_name"`
	OrderNumber  string  `json:"order_number"`
	ManualNumber bool    `json:"manual_number"`
	IssueDate    string  `json:"issue_date"`
	Currency     string  `json:"currency"`
	DiscountRate float64 `json:"discount_rate"`
	Lines        []Line  `json:"lines"`
}

// Totals is the money breakdown of a draft. Rates are fractional in [0,1];
// UI-level percentages must be divided by 100 before reaching this layer.
type Totals struct {
	Subtotal     float64 `json:"subtotal"`
	DiscountRate float64 `json:"discount_rate"`
	Discount     float64 `json:"discount"`
	NetSubtotal  float64 `json:"net_subtotal"`
	IGV          float64 `json:"igv"`
	Total        float64 `json:"total"`
}

func cloneLines(lines []Line) []Line {
	out := make([]Line, len(lines))
	copy(out, lines)
	return out
}

// FromOrderEdit builds a draft for editing a saved order: same lines, same
// order number, and renumbering disabled so the number is retained unless
// explicitly changed.
func FromOrderEdit(o models.PurchaseOrder) Draft {
	d := fromOrder(o)
	d.OrderNumber = o.OrderNumber
	d.ManualNumber = true
	return d
}

// FromOrderTemplate builds a draft reusing a saved order's line structure for
// a fresh order: the number is left empty for the next sequential one.
func FromOrderTemplate(o models.PurchaseOrder) Draft {
	return fromOrder(o)
}

func fromOrder(o models.PurchaseOrder) Draft {
	d := Draft{
		ProcessID:    o.ProcessID,
		QuotationID:  o.QuotationID,
		SupplierName: o.SupplierName,
		IssueDate:    o.IssueDate,
		Currency:     o.Currency,
		DiscountRate: o.DiscountRate,
	}
	for _, l := range o.Lines {
		d.Lines = append(d.Lines, Line{
			BaselineID:  l.BaselineID,
			Description: l.Description,
			Unit:        l.Unit,
			Qty:         l.Qty,
			UnitPrice:   l.UnitPrice,
			RowOrder:    l.RowOrder,
		})
	}
	return d
}

// AddBaselineItem adds or replaces the draft line for one baseline item,
// inheriting the selected supplier's offer (quantity, unit price, row order
// and the supplier's own wording) when one exists, else the baseline
// reference values. Re-adding an existing line replaces it.
func AddBaselineItem(d Draft, item models.BaselineItem, offer *models.OfferLine) Draft {
	line := Line{
		BaselineID:  &item.ID,
		Description: item.Description,
		Unit:        item.Unit,
		Qty:         item.RequiredQty,
		UnitPrice:   item.RefUnitPrice,
	}
	if offer != nil {
		if offer.Description != "" {
			line.Description = offer.Description
		}
		if offer.Qty != nil {
			line.Qty = *offer.Qty
		}
		if offer.UnitPrice != nil {
			line.UnitPrice = *offer.UnitPrice
		}
		line.RowOrder = offer.RowOrder
	}

	out := d
	out.Lines = cloneLines(d.Lines)
	for i, l := range out.Lines {
		if l.BaselineID != nil && *l.BaselineID == item.ID {
			out.Lines[i] = line
			return out
		}
	}
	out.Lines = append(out.Lines, line)
	return out
}

// AddManualLine appends a freshly typed line.
func AddManualLine(d Draft, line Line) Draft {
	out := d
	out.Lines = append(cloneLines(d.Lines), line)
	return out
}

// normalizeDescription collapses whitespace and case for description matching.
func normalizeDescription(s string) string {
	return strings.ToUpper(strings.Join(strings.Fields(s), " "))
}

// Claimed reports whether an offer is already represented in the draft.
// Keys are tried in priority order (row order, then baseline id, then
// normalized description) and the first hit decides, so an offer cannot be
// inserted twice just because several of its keys could match.
func Claimed(lines []Line, offer models.OfferLine) bool {
	if offer.RowOrder != nil {
		for _, l := range lines {
			if l.RowOrder != nil && *l.RowOrder == *offer.RowOrder {
				return true
			}
		}
	}
	if offer.BaselineID != nil {
		for _, l := range lines {
			if l.BaselineID != nil && *l.BaselineID == *offer.BaselineID {
				return true
			}
		}
	}
	desc := normalizeDescription(offer.Description)
	if desc == "" {
		return false
	}
	for _, l := range lines {
		if normalizeDescription(l.Description) == desc {
			return true
		}
	}
	return false
}

// AddAllFromSupplier adds every still-unclaimed offer line of the quotation
// that carries a non-zero price, optionally restricted to one source sheet.
// Offers that cannot yield a positive quantity are skipped.
func AddAllFromSupplier(d Draft, items []models.BaselineItem, q models.Quotation, sheet string) Draft {
	byID := make(map[string]models.BaselineItem, len(items))
	for _, it := range items {
		byID[it.ID] = it
	}

	out := d
	out.Lines = cloneLines(d.Lines)
	for _, offer := range q.Lines {
		var item *models.BaselineItem
		if offer.BaselineID != nil {
			if it, ok := byID[*offer.BaselineID]; ok {
				item = &it
			}
		}
		if sheet != "" && (item == nil || item.SheetName != sheet) {
			continue
		}
		if !hasPrice(offer) {
			continue
		}
		if Claimed(out.Lines, offer) {
			continue
		}

		line := Line{
			BaselineID:  offer.BaselineID,
			Description: offer.Description,
			RowOrder:    offer.RowOrder,
		}
		if item != nil {
			line.Unit = item.Unit
			if line.Description == "" {
				line.Description = item.Description
			}
		}
		switch {
		case offer.Qty != nil:
			line.Qty = *offer.Qty
		case item != nil:
			line.Qty = item.RequiredQty
		}
		if offer.UnitPrice != nil {
			line.UnitPrice = *offer.UnitPrice
		} else if offer.TotalPrice != nil && line.Qty > 0 {
			line.UnitPrice = *offer.TotalPrice / line.Qty
		}
		if line.Qty <= 0 {
			continue
		}
		out.Lines = append(out.Lines, line)
	}
	return out
}

func hasPrice(offer models.OfferLine) bool {
	if offer.UnitPrice != nil && *offer.UnitPrice != 0 {
		return true
	}
	if offer.TotalPrice != nil && *offer.TotalPrice != 0 {
		return true
	}
	return false
}

// SortBySupplierOrder reorders draft lines to match the supplier document:
// lines carrying a row order sort ascending ahead of the rest, which keep
// their relative position.
func SortBySupplierOrder(d Draft) Draft {
	out := d
	withOrder := []Line{}
	without := []Line{}
	for _, l := range d.Lines {
		if l.RowOrder != nil {
			withOrder = append(withOrder, l)
		} else {
			without = append(without, l)
		}
	}
	for i := 1; i < len(withOrder); i++ {
		for j := i; j > 0 && *withOrder[j].RowOrder < *withOrder[j-1].RowOrder; j-- {
			withOrder[j], withOrder[j-1] = withOrder[j-1], withOrder[j]
		}
	}
	out.Lines = append(withOrder, without...)
	return out
}

// ComputeTotals computes the money breakdown. The discount is clamped so it
// can never exceed the subtotal. Figures are rounded to 2 decimal places.
func ComputeTotals(lines []Line, igvRate, discountRate float64) Totals {
	subtotal := decimal.Zero
	for _, l := range lines {
		subtotal = subtotal.Add(decimal.NewFromFloat(l.Qty).Mul(decimal.NewFromFloat(l.UnitPrice)))
	}
	subtotal = subtotal.Round(2)

	discount := subtotal.Mul(decimal.NewFromFloat(discountRate)).Round(2)
	if discount.GreaterThan(subtotal) {
		discount = subtotal
	}
	net := subtotal.Sub(discount)
	if net.IsNegative() {
		net = decimal.Zero
	}
	igv := net.Mul(decimal.NewFromFloat(igvRate)).Round(2)
	total := net.Add(igv)

	return Totals{
		Subtotal:     subtotal.InexactFloat64(),
		DiscountRate: discountRate,
		Discount:     discount.InexactFloat64(),
		NetSubtotal:  net.InexactFloat64(),
		IGV:          igv.InexactFloat64(),
		Total:        total.InexactFloat64(),
	}
}

// FormatOrderNumber renders a sequence value as NNN/SUFFIX.
func FormatOrderNumber(seq int, suffix string) string {
	if suffix == "" {
		return fmt.Sprintf("%03d", seq)
	}
	return fmt.Sprintf("%03d/%s", seq, suffix)
}

// SetOrderNumber sets an operator-edited order number and stops automatic
// renumbering for the rest of the session.
func SetOrderNumber(d Draft, number string) Draft {
	out := d
	out.OrderNumber = number
	out.ManualNumber = true
	return out
}

// Renumber assigns the next sequential number unless the operator has taken
// over numbering.
func Renumber(d Draft, seq int, suffix string) Draft {
	if d.ManualNumber {
		return d
	}
	out := d
	out.OrderNumber = FormatOrderNumber(seq, suffix)
	return out
}

// Validate checks a draft before any persistence round trip. A draft with
// zero lines is rejected here, never sent.
func Validate(d Draft) *validation.ValidationErrors {
	ve := &validation.ValidationErrors{}
	validation.RequireField(ve, "supplier_name", d.SupplierName)
	validation.ValidateMaxLength(ve, "supplier_name", d.SupplierName, 200)
	validation.ValidateMaxLength(ve, "order_number", d.OrderNumber, 50)
	validation.ValidateDate(ve, "issue_date", d.IssueDate)
	validation.ValidateRate(ve, "discount_rate", d.DiscountRate)
	if len(d.Lines) == 0 {
		ve.Add("lines", "order must have at least one line")
	}
	for i, l := range d.Lines {
		field := fmt.Sprintf("lines[%d]", i)
		validation.RequireField(ve, field+".description", l.Description)
		validation.ValidatePositiveFloat(ve, field+".qty", l.Qty)
		validation.ValidateMaxQuantity(ve, field+".qty", l.Qty)
		validation.ValidateNonNegativeFloat(ve, field+".unit_price", l.UnitPrice)
		validation.ValidateMaxPrice(ve, field+".unit_price", l.UnitPrice)
	}
	return ve
}

package deliveries

import (
	"strings"
	"testing"

	"procura/internal/models"
)

func testOrder() models.PurchaseOrder {
	return models.PurchaseOrder{
		ID:           "o1",
		ProcessID:    "p1",
		SupplierName: "Acme",
		Lines: []models.OrderLine{
			{Description: "Cemento", Unit: "bol", Qty: 10, UnitPrice: 28},
			{Description: "Arena", Unit: "m3", Qty: 5, UnitPrice: 50},
		},
	}
}

func TestFromOrderZeroesQuantities(t *testing.T) {
	d := FromOrder(testOrder())
	if d.OrderID == nil || *d.OrderID != "o1" || d.SupplierName != "Acme" {
		t.Errorf("Expected header seeded from order, got %+v", d)
	}
	if len(d.Lines) != 2 {
		t.Fatalf("Expected 2 lines, got %d", len(d.Lines))
	}
	for i, l := range d.Lines {
		if l.Qty != 0 {
			t.Errorf("Line %d: expected zero qty, got %v", i, l.Qty)
		}
	}
}

func TestSwitchOrderGuardsEnteredQuantities(t *testing.T) {
	d := FromOrder(testOrder())
	other := testOrder()
	other.ID = "o2"

	// Clean draft switches freely.
	out, needsConfirm := SwitchOrder(d, other, false)
	if needsConfirm || out.OrderID == nil || *out.OrderID != "o2" {
		t.Errorf("Clean draft should switch without confirmation, got %+v confirm=%v", out, needsConfirm)
	}

	// With typed quantities the unconfirmed switch is refused.
	d.Lines[0].Qty = 4
	out, needsConfirm = SwitchOrder(d, other, false)
	if !needsConfirm {
		t.Fatalf("Expected confirmation demand with entered quantities")
	}
	if *out.OrderID != "o1" || out.Lines[0].Qty != 4 {
		t.Errorf("Refused switch must leave the draft untouched, got %+v", out)
	}

	// Confirmed switch discards and reseeds.
	out, needsConfirm = SwitchOrder(d, other, true)
	if needsConfirm || *out.OrderID != "o2" || out.Lines[0].Qty != 0 {
		t.Errorf("Confirmed switch should reseed, got %+v confirm=%v", out, needsConfirm)
	}
}

func TestAddBaselineItem(t *testing.T) {
	item := models.BaselineItem{ID: "b9", Description: "Codo PVC", Unit: "u"}
	d := AddBaselineItem(Draft{}, item)
	if len(d.Lines) != 1 {
		t.Fatalf("Expected 1 line, got %d", len(d.Lines))
	}
	l := d.Lines[0]
	if l.BaselineID == nil || *l.BaselineID != "b9" || l.Qty != 0 {
		t.Errorf("Expected zero-qty baseline line, got %+v", l)
	}
}

func TestValidate(t *testing.T) {
	good := Draft{
		SupplierName: "Acme",
		Date:         "2026-08-20",
		Lines:        []Line{{Description: "Cemento", Qty: 4}},
	}
	if ve := Validate(good); ve.HasErrors() {
		t.Errorf("Expected valid draft, got %v", ve.Error())
	}

	allZero := good
	allZero.Lines = []Line{{Description: "Cemento", Qty: 0}}
	if ve := Validate(allZero); !ve.HasErrors() {
		t.Errorf("A delivery with no received quantity must be rejected")
	}

	empty := Draft{SupplierName: "Acme", Date: "2026-08-20"}
	if ve := Validate(empty); !ve.HasErrors() {
		t.Errorf("A delivery with no lines must be rejected")
	}

	negative := good
	negative.Lines = []Line{{Description: "Cemento", Qty: -1}}
	if ve := Validate(negative); !ve.HasErrors() {
		t.Errorf("Negative quantities must be rejected")
	}

	longGuide := good
	guide := strings.Repeat("9", 51)
	longGuide.GuideNumber = &guide
	if ve := Validate(longGuide); !ve.HasErrors() {
		t.Errorf("Oversized guide number must be rejected")
	}
}

package compare

import (
	"math"
	"testing"

	"procura/internal/models"
)

func fp(v float64) *float64 { return &v }
func sp(s string) *string   { return &s }

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestNormalizedTotalPrefersQuotedTotal(t *testing.T) {
	item := models.BaselineItem{ID: "b1", RequiredQty: 10}
	q := models.Quotation{Currency: "PEN", ExchangeRate: 1}
	line := models.OfferLine{Qty: fp(5), UnitPrice: fp(2), TotalPrice: fp(99)}

	got := NormalizedTotal(line, &item, q, "PEN")
	if got == nil || *got != 99 {
		t.Fatalf("Expected quoted total 99, got %v", got)
	}
}

func TestNormalizedTotalQtyFallback(t *testing.T) {
	item := models.BaselineItem{ID: "b1", RequiredQty: 10}
	q := models.Quotation{Currency: "PEN", ExchangeRate: 1}

	// Offer qty wins over baseline qty.
	got := NormalizedTotal(models.OfferLine{Qty: fp(5), UnitPrice: fp(2)}, &item, q, "PEN")
	if got == nil || *got != 10 {
		t.Errorf("Expected 5*2=10, got %v", got)
	}

	// No offer qty: fall back to the baseline required quantity.
	got = NormalizedTotal(models.OfferLine{UnitPrice: fp(2)}, &item, q, "PEN")
	if got == nil || *got != 20 {
		t.Errorf("Expected 10*2=20, got %v", got)
	}

	// No qty anywhere: no derivable total.
	got = NormalizedTotal(models.OfferLine{UnitPrice: fp(2)}, nil, q, "PEN")
	if got != nil {
		t.Errorf("Expected nil total without any quantity, got %v", *got)
	}

	// No unit price either: nil.
	got = NormalizedTotal(models.OfferLine{Qty: fp(5)}, &item, q, "PEN")
	if got != nil {
		t.Errorf("Expected nil total without unit price, got %v", *got)
	}
}

func TestNormalizedTotalCurrencyConversion(t *testing.T) {
	item := models.BaselineItem{ID: "b1", RequiredQty: 10}
	usd := models.Quotation{Currency: "USD", ExchangeRate: 3.75}

	got := NormalizedTotal(models.OfferLine{TotalPrice: fp(100)}, &item, usd, "PEN")
	if got == nil || !almostEqual(*got, 375) {
		t.Errorf("Expected 100*3.75=375, got %v", got)
	}

	// Same currency ignores the stored rate.
	pen := models.Quotation{Currency: "pen", ExchangeRate: 3.75}
	got = NormalizedTotal(models.OfferLine{TotalPrice: fp(100)}, &item, pen, "PEN")
	if got == nil || *got != 100 {
		t.Errorf("Expected same-currency total 100, got %v", got)
	}

	// Missing rate on a foreign currency falls back to 1.
	eur := models.Quotation{Currency: "EUR", ExchangeRate: 0}
	got = NormalizedTotal(models.OfferLine{TotalPrice: fp(100)}, &item, eur, "PEN")
	if got == nil || *got != 100 {
		t.Errorf("Expected rate fallback 1, got %v", got)
	}
}

func compareFixture() ([]models.BaselineItem, []models.Quotation) {
	items := []models.BaselineItem{
		{ID: "b1", Description: "Cemento", RequiredQty: 10, RefUnitPrice: 30, RefTotalPrice: 300},
		{ID: "b2", Description: "Arena", RequiredQty: 5, RefUnitPrice: 20, RefTotalPrice: 100},
	}
	quotations := []models.Quotation{
		{
			ID: "qa", SupplierLabel: "Proveedor A", Currency: "PEN", ExchangeRate: 1,
			Lines: []models.OfferLine{
				{BaselineID: sp("b1"), Qty: fp(10), UnitPrice: fp(25)},
				{BaselineID: sp("b2"), Qty: fp(5), UnitPrice: fp(22)},
			},
		},
		{
			ID: "qb", SupplierLabel: "Proveedor B", Currency: "PEN", ExchangeRate: 1,
			Lines: []models.OfferLine{
				{BaselineID: sp("b1"), Qty: fp(10), UnitPrice: fp(28)},
			},
		},
	}
	return items, quotations
}

func TestCompareItemsBestAndSavings(t *testing.T) {
	items, quotations := compareFixture()
	rows := CompareItems(items, quotations, "PEN")
	if len(rows) != 2 {
		t.Fatalf("Expected 2 comparison rows, got %d", len(rows))
	}

	b1 := rows[0]
	if len(b1.Offers) != 2 {
		t.Fatalf("Expected 2 offers for b1, got %d", len(b1.Offers))
	}
	if b1.Best == nil || b1.Best.QuotationID != "qa" {
		t.Errorf("Expected qa to be best for b1, got %+v", b1.Best)
	}
	// Savings is runner-up minus best: 280 - 250.
	if !almostEqual(b1.Savings, 30) {
		t.Errorf("Expected savings 30, got %v", b1.Savings)
	}

	b2 := rows[1]
	if b2.Best == nil || b2.Best.QuotationID != "qa" {
		t.Errorf("Expected qa to be best for b2, got %+v", b2.Best)
	}
	// Single offer: nothing to save against.
	if b2.Savings != 0 {
		t.Errorf("Expected no savings with a single offer, got %v", b2.Savings)
	}
}

func TestCompareItemsEqualTotalsKeepFirst(t *testing.T) {
	items := []models.BaselineItem{{ID: "b1", RequiredQty: 1}}
	quotations := []models.Quotation{
		{ID: "q1", SupplierLabel: "First", Lines: []models.OfferLine{{BaselineID: sp("b1"), TotalPrice: fp(100)}}},
		{ID: "q2", SupplierLabel: "Second", Lines: []models.OfferLine{{BaselineID: sp("b1"), TotalPrice: fp(100)}}},
	}

	rows := CompareItems(items, quotations, "PEN")
	if rows[0].Best == nil || rows[0].Best.QuotationID != "q1" {
		t.Errorf("Expected first equal-total offer to stay best, got %+v", rows[0].Best)
	}
	if rows[0].Savings != 0 {
		t.Errorf("Expected zero savings on equal totals, got %v", rows[0].Savings)
	}
}

func TestCompareItemsNoPricedOffers(t *testing.T) {
	items := []models.BaselineItem{{ID: "b1", RequiredQty: 10}}
	quotations := []models.Quotation{
		{ID: "q1", Lines: []models.OfferLine{{BaselineID: sp("b1"), Qty: fp(10)}}},
	}

	rows := CompareItems(items, quotations, "PEN")
	if len(rows[0].Offers) != 1 {
		t.Fatalf("Unpriced offer should still be listed, got %d offers", len(rows[0].Offers))
	}
	if rows[0].Best != nil {
		t.Errorf("Expected no best offer without any finite total, got %+v", rows[0].Best)
	}
}

func TestRankQuotations(t *testing.T) {
	items, quotations := compareFixture()
	rows := RankQuotations(items, quotations, "PEN")
	if len(rows) != 2 {
		t.Fatalf("Expected 2 ranking rows, got %d", len(rows))
	}

	// B only quoted one item so its amount is lower, but its missing count
	// reflects the gap.
	if rows[0].QuotationID != "qb" {
		t.Errorf("Expected qb first by amount, got %s", rows[0].QuotationID)
	}
	if rows[0].ItemsMatched != 1 || rows[0].Missing != 1 {
		t.Errorf("Expected qb matched=1 missing=1, got %d/%d", rows[0].ItemsMatched, rows[0].Missing)
	}
	if rows[1].ItemsMatched != 2 || rows[1].Missing != 0 {
		t.Errorf("Expected qa matched=2 missing=0, got %d/%d", rows[1].ItemsMatched, rows[1].Missing)
	}

	// Baseline total is 400; qa quoted 250+110=360.
	if !almostEqual(rows[1].DiffAmount, -40) {
		t.Errorf("Expected qa diff -40, got %v", rows[1].DiffAmount)
	}
	if rows[1].DiffPct == nil || !almostEqual(*rows[1].DiffPct, -0.1) {
		t.Errorf("Expected qa diff pct -10%%, got %v", rows[1].DiffPct)
	}
}

func TestRankQuotationsZeroBaseline(t *testing.T) {
	quotations := []models.Quotation{{ID: "q1", Lines: []models.OfferLine{{BaselineID: sp("missing"), TotalPrice: fp(10)}}}}
	rows := RankQuotations(nil, quotations, "PEN")
	if len(rows) != 1 {
		t.Fatalf("Expected 1 row, got %d", len(rows))
	}
	if rows[0].CoveragePct != 0 {
		t.Errorf("Expected zero coverage on empty baseline, got %v", rows[0].CoveragePct)
	}
	if rows[0].DiffPct != nil {
		t.Errorf("Expected nil diff pct on zero baseline total, got %v", *rows[0].DiffPct)
	}
}

func TestSelectWinnerFlagsLowCoverage(t *testing.T) {
	rows := []RankingRow{
		{QuotationID: "cheap", NormalizedAmount: 50, ItemsMatched: 1, CoveragePct: 0.1},
		{QuotationID: "full", NormalizedAmount: 400, ItemsMatched: 10, CoveragePct: 1.0},
	}
	w := SelectWinner(rows)
	if w == nil || w.QuotationID != "cheap" {
		t.Fatalf("Expected cheapest quotation to win, got %+v", w)
	}
	if !w.LowCoverage {
		t.Errorf("Expected low coverage flag on a 10%% coverage winner")
	}

	w = SelectWinner(rows[1:])
	if w == nil || w.LowCoverage {
		t.Errorf("Expected full-coverage winner unflagged, got %+v", w)
	}
}

func TestSelectWinnerSkipsEmptyQuotations(t *testing.T) {
	rows := []RankingRow{
		{QuotationID: "empty", NormalizedAmount: 0, ItemsMatched: 0},
	}
	if w := SelectWinner(rows); w != nil {
		t.Errorf("Expected no winner among zero-match quotations, got %+v", w)
	}
}

func TestSupplierKey(t *testing.T) {
	cases := []struct {
		label, want string
	}{
		{"Acme - Lote 1", "ACME"},
		{"Acme - Lote 2", "ACME"},
		{"  acme  ", "ACME"},
		{"Acme Corp", "ACME CORP"},
		{"Ferretería Sur", "FERRETERÍA SUR"},
		{"A-B", "A-B"},
	}
	for _, c := range cases {
		if got := SupplierKey(c.label); got != c.want {
			t.Errorf("SupplierKey(%q) = %q, want %q", c.label, got, c.want)
		}
	}
}

func TestGroupBySupplier(t *testing.T) {
	quotations := []models.Quotation{
		{ID: "q1", SupplierLabel: "Acme - Lote 1"},
		{ID: "q2", SupplierLabel: "Beta"},
		{ID: "q3", SupplierLabel: "Acme - Lote 2"},
	}
	groups := GroupBySupplier(quotations)
	if len(groups) != 2 {
		t.Fatalf("Expected 2 groups, got %d", len(groups))
	}
	if groups[0].Key != "ACME" || len(groups[0].Variants) != 2 {
		t.Errorf("Expected ACME group with 2 variants, got %+v", groups[0])
	}
	if groups[0].Variants[1].Variant != "Lote 2" {
		t.Errorf("Expected variant name 'Lote 2', got %q", groups[0].Variants[1].Variant)
	}
	if groups[1].Key != "BETA" {
		t.Errorf("Expected BETA second, got %q", groups[1].Key)
	}
}

package progress

import (
	"testing"

	"procura/internal/models"
)

func TestReconcile(t *testing.T) {
	cases := []struct {
		name               string
		fallback, supplied float64
		want               float64
	}{
		{"within tolerance", 0.50001, 0.5, 0.5},
		{"exact", 0.5, 0.5, 0.5},
		{"stale aggregate replaced", 0.5, 1.2, 0.5},
		{"way off replaced", 10, 3, 10},
		{"negative drift replaced", 0.5, 0.4, 0.5},
	}
	for _, c := range cases {
		if got := Reconcile(c.fallback, c.supplied, Epsilon); got != c.want {
			t.Errorf("%s: Reconcile(%v, %v) = %v, want %v", c.name, c.fallback, c.supplied, got, c.want)
		}
	}
}

func TestComputeCompletion(t *testing.T) {
	base := Record{Required: 10}

	cases := []struct {
		name              string
		ordered, received float64
		wantComplete      bool
	}{
		{"nothing", 0, 0, false},
		{"partially ordered", 4, 0, false},
		{"fully ordered undelivered", 10, 0, true},
		{"received without order", 0, 10, true},
		{"both complete", 10, 10, true},
		{"almost complete", 9.9, 9.9, false},
	}
	for _, c := range cases {
		rec := base
		rec.Ordered = c.ordered
		rec.Received = c.received
		sup := Supplied{
			OrderPct:       c.ordered / rec.Required,
			ReceivePct:     c.received / rec.Required,
			PendingOrder:   rec.Required - c.ordered,
			PendingReceive: rec.Required - c.received,
		}
		got := Compute(rec, sup)
		if got.Complete != c.wantComplete {
			t.Errorf("%s: Complete = %v, want %v", c.name, got.Complete, c.wantComplete)
		}
	}
}

func TestComputeRoundingAbsorbedAtThreshold(t *testing.T) {
	// 99.9% ordered counts as done: the last fraction is supplier rounding.
	rec := Compute(Record{Required: 1000, Ordered: 999}, Supplied{OrderPct: 0.999, PendingOrder: 1})
	if !rec.Complete {
		t.Errorf("Expected 99.9%% ordered to count as complete")
	}
}

func TestComputeClampsSuppliedPercentages(t *testing.T) {
	// A supplied 120% is first clamped to 1 and then still fails
	// reconciliation against the true 50%, so ground truth wins.
	rec := Compute(Record{Required: 10, Ordered: 5}, Supplied{OrderPct: 1.2, PendingOrder: 5, ReceivePct: 0, PendingReceive: 10})
	if rec.OrderPct != 0.5 {
		t.Errorf("Expected order pct 0.5, got %v", rec.OrderPct)
	}
	if rec.Complete {
		t.Errorf("A half-ordered item must not be complete")
	}
}

func TestComputeZeroRequired(t *testing.T) {
	rec := Compute(Record{Required: 0, Ordered: 0}, Supplied{})
	if rec.OrderPct != 0 || rec.PendingOrder != 0 || rec.Complete {
		t.Errorf("Zero-required item should stay empty, got %+v", rec)
	}
}

func TestMergeKey(t *testing.T) {
	a := models.BaselineItem{Description: "Cemento  Portland", SheetName: "Estructuras", SectionPath: []string{"Obras", "Concreto"}}
	b := models.BaselineItem{Description: "cemento portland", SheetName: "Estructuras", SectionPath: []string{"Obras", "Concreto"}}
	if MergeKey(a) != MergeKey(b) {
		t.Errorf("Descriptions differing only in case/spacing must merge: %q vs %q", MergeKey(a), MergeKey(b))
	}

	c := b
	c.SheetName = "Sanitarias"
	if MergeKey(a) == MergeKey(c) {
		t.Errorf("Different sheets must not merge")
	}
}

func TestBuildMergesSplitItems(t *testing.T) {
	items := []models.BaselineItem{
		{ID: "b1", Description: "Tubo PVC", Unit: "m", SheetName: "S1", RequiredQty: 6},
		{ID: "b2", Description: "tubo  pvc", Unit: "m", SheetName: "S1", RequiredQty: 4},
		{ID: "b3", Description: "Codo", Unit: "u", SheetName: "S1", RequiredQty: 2},
	}
	ordered := map[string]float64{"b1": 6, "b2": 4}
	received := map[string]float64{"b1": 3}

	records := Build(items, ordered, received, Summarize(items, ordered, received))
	if len(records) != 2 {
		t.Fatalf("Expected 2 merged records, got %d", len(records))
	}

	tubo := records[0]
	if tubo.Required != 10 || tubo.Ordered != 10 || tubo.Received != 3 {
		t.Errorf("Expected merged 10/10/3, got %v/%v/%v", tubo.Required, tubo.Ordered, tubo.Received)
	}
	if len(tubo.ItemIDs) != 2 {
		t.Errorf("Expected 2 merged item ids, got %v", tubo.ItemIDs)
	}
	if !tubo.Complete {
		t.Errorf("Fully ordered merged item should be complete")
	}
	if records[1].Description != "Codo" {
		t.Errorf("Expected baseline order preserved, got %q", records[1].Description)
	}
}

func TestSummarizeWithinTolerance(t *testing.T) {
	// The summarization step rounds to 4 decimals; its figures must survive
	// reconciliation for an awkward required quantity.
	items := []models.BaselineItem{{ID: "b1", Description: "Malla", SheetName: "S1", RequiredQty: 3}}
	ordered := map[string]float64{"b1": 1}

	sup := Summarize(items, ordered, nil)[MergeKey(items[0])]
	rec := Compute(Record{Required: 3, Ordered: 1}, sup)

	// 1/3 rounds to 0.3333 which is within Epsilon of the exact ratio, so the
	// supplied value passes through untouched.
	if rec.OrderPct != 0.3333 {
		t.Errorf("Expected supplied 0.3333 to survive, got %v", rec.OrderPct)
	}
}

func TestStatusOf(t *testing.T) {
	cases := []struct {
		rec  Record
		want string
	}{
		{Record{}, StatusPending},
		{Record{OrderPct: 0.10}, StatusBand25},
		{Record{OrderPct: 0.25}, StatusBand25},
		{Record{OrderPct: 0.40}, StatusBand50},
		{Record{OrderPct: 0.60}, StatusBand75},
		{Record{OrderPct: 0.85}, StatusBand99},
		{Record{OrderPct: 1, Complete: true}, StatusDone},
		{Record{ReceivePct: 0.999}, StatusDone},
	}
	for _, c := range cases {
		if got := StatusOf(c.rec); got != c.want {
			t.Errorf("StatusOf(%+v) = %q, want %q", c.rec, got, c.want)
		}
	}
}

func TestFilter(t *testing.T) {
	records := []Record{
		{Description: "Cemento Portland", SectionPath: []string{"Concreto"}, OrderPct: 0.1},
		{Description: "Ladrillo", SheetNames: []string{"Albañilería"}, OrderPct: 0.6},
		{Description: "Fierro", ItemCodes: []string{"02.01"}, Complete: true, OrderPct: 1},
	}

	if got := Filter(records, "cemento", ""); len(got) != 1 || got[0].Description != "Cemento Portland" {
		t.Errorf("Free-text filter failed: %+v", got)
	}
	if got := Filter(records, "albañil", ""); len(got) != 1 {
		t.Errorf("Sheet-name filter failed: %+v", got)
	}
	if got := Filter(records, "02.01", ""); len(got) != 1 || got[0].Description != "Fierro" {
		t.Errorf("Item-code filter failed: %+v", got)
	}
	if got := Filter(records, "", StatusDone); len(got) != 1 || got[0].Description != "Fierro" {
		t.Errorf("Status filter failed: %+v", got)
	}
	if got := Filter(records, "", ""); len(got) != 3 {
		t.Errorf("Empty filter should match all, got %d", len(got))
	}
	if got := Filter(records, "cemento", StatusDone); len(got) != 0 {
		t.Errorf("Combined filter should intersect, got %+v", got)
	}
}

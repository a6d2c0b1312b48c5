// Package progress implements the progress reconciliation engine: it merges
// baseline items that represent one logical requirement, recomputes ordered
// and received figures from raw ledger quantities, and reconciles them
// against externally pre-aggregated values using a fixed tolerance.
package progress

import (
	"fmt"
	"math"
	"strings"

	"procura/internal/models"
)

// Epsilon is the reconciliation tolerance: supplied aggregates within Epsilon
// of the locally recomputed value pass through unchanged; anything further
// off is replaced by the recomputed ground truth.
const Epsilon = 1e-4

// completePct is the percentage threshold treated as fully done, absorbing
// supplier-side rounding on the last fraction of a unit.
const completePct = 0.999

// Supplied holds the externally pre-aggregated figures for one merged item.
// Any of them may be imprecise or stale; none of them is trusted blindly.
type Supplied struct {
	OrderPct       float64 `json:"order_pct"`
	ReceivePct     float64 `json:"receive_pct"`
	PendingOrder   float64 `json:"pending_order"`
	PendingReceive float64 `json:"pending_receive"`
}

// Record is the derived, per-item progress snapshot. Never persisted;
// recomputed on every read.
type Record struct {
	Key            string   `json:"key"`
	Description    string   `json:"description"`
	Unit           string   `json:"unit"`
	ItemIDs        []string `json:"item_ids"`
	ItemCodes      []string `json:"item_codes"`
	SheetNames     []string `json:"sheet_names"`
	SectionPath    []string `json:"section_path"`
	Required       float64  `json:"required"`
	Ordered        float64  `json:"ordered"`
	Received       float64  `json:"received"`
	OrderPct       float64  `json:"order_pct"`
	ReceivePct     float64  `json:"receive_pct"`
	PendingOrder   float64  `json:"pending_order"`
	PendingReceive float64  `json:"pending_receive"`
	Complete       bool     `json:"complete"`
}

// MergeKey returns the composite key under which baseline rows that split one
// logical requirement across sheets are merged: shared description, sheet and
// section path. Description matching is case- and whitespace-insensitive.
func MergeKey(item models.BaselineItem) string {
	desc := strings.ToUpper(strings.Join(strings.Fields(item.Description), " "))
	return fmt.Sprintf("%s|%s|%s", desc, item.SheetName, strings.Join(item.SectionPath, ">"))
}

// Reconcile chooses between a supplied aggregate and its locally recomputed
// fallback: the supplied value survives only when it is within eps of the
// fallback. Small rounding differences pass through; materially wrong or
// stale aggregates are replaced by ground truth.
func Reconcile(fallback, supplied, eps float64) float64 {
	diff := supplied - fallback
	if diff < 0 {
		diff = -diff
	}
	if diff > eps {
		return fallback
	}
	return supplied
}

// Compute derives the final record figures for one merged item from raw
// summed quantities and the externally supplied aggregates.
func Compute(rec Record, sup Supplied) Record {
	fallbackPendingOrder := maxf(rec.Required-rec.Ordered, 0)
	fallbackPendingReceive := maxf(rec.Required-rec.Received, 0)
	var fallbackOrderPct, fallbackReceivePct float64
	if rec.Required > 0 {
		fallbackOrderPct = rec.Ordered / rec.Required
		fallbackReceivePct = rec.Received / rec.Required
	}

	rec.OrderPct = Reconcile(fallbackOrderPct, clamp01(sup.OrderPct), Epsilon)
	rec.ReceivePct = Reconcile(fallbackReceivePct, clamp01(sup.ReceivePct), Epsilon)
	rec.PendingOrder = Reconcile(fallbackPendingOrder, sup.PendingOrder, Epsilon)
	rec.PendingReceive = Reconcile(fallbackPendingReceive, sup.PendingReceive, Epsilon)

	hasOrderActivity := rec.Ordered > 0 || rec.OrderPct > 0
	hasReceiveActivity := rec.Received > 0 || rec.ReceivePct > 0

	// Completion triggers on either axis reaching its target: fully ordered
	// but undelivered, or received without a formal order, both count.
	orderDone := hasOrderActivity && (rec.PendingOrder <= Epsilon || rec.OrderPct >= completePct)
	receiveDone := hasReceiveActivity && (rec.PendingReceive <= Epsilon || rec.ReceivePct >= completePct)
	rec.Complete = orderDone || receiveDone

	return rec
}

// Build merges baseline items by MergeKey, sums ordered/received quantities
// per merged key from the given per-item raw figures, applies the supplied
// aggregates, and returns records in baseline order.
func Build(items []models.BaselineItem, ordered, received map[string]float64, supplied map[string]Supplied) []Record {
	index := make(map[string]int)
	records := []Record{}
	for _, item := range items {
		key := MergeKey(item)
		i, ok := index[key]
		if !ok {
			i = len(records)
			index[key] = i
			records = append(records, Record{
				Key:         key,
				Description: item.Description,
				Unit:        item.Unit,
				SectionPath: item.SectionPath,
			})
		}
		rec := &records[i]
		rec.ItemIDs = append(rec.ItemIDs, item.ID)
		if item.ItemCode != "" {
			rec.ItemCodes = append(rec.ItemCodes, item.ItemCode)
		}
		if !contains(rec.SheetNames, item.SheetName) && item.SheetName != "" {
			rec.SheetNames = append(rec.SheetNames, item.SheetName)
		}
		rec.Required += item.RequiredQty
		rec.Ordered += ordered[item.ID]
		rec.Received += received[item.ID]
	}

	for i := range records {
		records[i] = Compute(records[i], supplied[records[i].Key])
	}
	return records
}

// Summarize produces the pre-aggregated figures the way the ledgers'
// summarization step reports them: per merged key, with percentages rounded
// to four decimal places. The rounding keeps honest aggregates within the
// reconciliation tolerance while anything stale or miscomputed upstream gets
// replaced by Compute's fallbacks.
func Summarize(items []models.BaselineItem, ordered, received map[string]float64) map[string]Supplied {
	type sums struct{ required, ordered, received float64 }
	byKey := make(map[string]*sums)
	for _, item := range items {
		key := MergeKey(item)
		s, ok := byKey[key]
		if !ok {
			s = &sums{}
			byKey[key] = s
		}
		s.required += item.RequiredQty
		s.ordered += ordered[item.ID]
		s.received += received[item.ID]
	}

	out := make(map[string]Supplied, len(byKey))
	for key, s := range byKey {
		var sup Supplied
		if s.required > 0 {
			sup.OrderPct = round4(s.ordered / s.required)
			sup.ReceivePct = round4(s.received / s.required)
		}
		sup.PendingOrder = round4(maxf(s.required-s.ordered, 0))
		sup.PendingReceive = round4(maxf(s.required-s.received, 0))
		out[key] = sup
	}
	return out
}

func round4(v float64) float64 {
	return math.Round(v*10000) / 10000
}

// Status filter buckets over max(orderPct, receivePct).
const (
	StatusPending = "pending"
	StatusBand25  = "1-25"
	StatusBand50  = "26-50"
	StatusBand75  = "51-75"
	StatusBand99  = "76-99"
	StatusDone    = "100"
)

// StatusOf buckets a record into its percentage band.
func StatusOf(rec Record) string {
	pct := maxf(rec.OrderPct, rec.ReceivePct)
	switch {
	case pct <= 0:
		return StatusPending
	case rec.Complete || pct >= completePct:
		return StatusDone
	case pct <= 0.25:
		return StatusBand25
	case pct <= 0.50:
		return StatusBand50
	case pct <= 0.75:
		return StatusBand75
	default:
		return StatusBand99
	}
}

// Filter narrows records by free-text query (description, section path, sheet
// names, merged ids and codes) and by status band. Empty arguments match all.
func Filter(records []Record, query, status string) []Record {
	query = strings.ToUpper(strings.TrimSpace(query))
	out := []Record{}
	for _, rec := range records {
		if status != "" && StatusOf(rec) != status {
			continue
		}
		if query != "" && !matches(rec, query) {
			continue
		}
		out = append(out, rec)
	}
	return out
}

func matches(rec Record, query string) bool {
	if strings.Contains(strings.ToUpper(rec.Description), query) {
		return true
	}
	for _, s := range rec.SectionPath {
		if strings.Contains(strings.ToUpper(s), query) {
			return true
		}
	}
	for _, s := range rec.SheetNames {
		if strings.Contains(strings.ToUpper(s), query) {
			return true
		}
	}
	for _, s := range rec.ItemIDs {
		if strings.Contains(strings.ToUpper(s), query) {
			return true
		}
	}
	for _, s := range rec.ItemCodes {
		if strings.Contains(strings.ToUpper(s), query) {
			return true
		}
	}
	return false
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func maxf(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}

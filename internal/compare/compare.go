// Package compare implements the quotation comparison engine: per-item offer
// comparison against the baseline bill of quantities, per-supplier ranking,
// coverage and savings statistics, and winner selection.
//
// All functions are pure over the models; currency conversion applies the
// quotation's supplied exchange rate and nothing more.
package compare

import (
	"sort"
	"strings"

	"procura/internal/models"
)

// MinWinnerCoverage is the coverage below which an amount-based winner is
// flagged for manual confirmation instead of being silently accepted.
const MinWinnerCoverage = 0.5

// Offer is one supplier's quoted row for a baseline item, with its total
// normalized to the process base currency. Total is nil when the offer
// carries neither a total price nor enough data to derive one; such offers
// are listed but excluded from total-based comparisons.
type Offer struct {
	QuotationID   string   `json:"quotation_id"`
	SupplierLabel string   `json:"supplier_label"`
	Description   string   `json:"description"`
	Qty           *float64 `json:"qty"`
	UnitPrice     *float64 `json:"unit_price"`
	Total         *float64 `json:"total"`
	RowOrder      *int     `json:"row_order"`
}

// ItemComparison is the per-baseline-item view: every matching offer across
// all quotations, the best one, and the savings over the runner-up. Best is
// nil when no offer produced a finite total; that is an absence, not an error.
type ItemComparison struct {
	Item    models.BaselineItem `json:"item"`
	Offers  []Offer             `json:"offers"`
	Best    *Offer              `json:"best"`
	Savings float64             `json:"savings"`
}

// RankingRow summarizes one quotation against the full baseline.
type RankingRow struct {
	QuotationID      string   `json:"quotation_id"`
	SupplierLabel    string   `json:"supplier_label"`
	ItemsMatched     int      `json:"items_matched"`
	Missing          int      `json:"missing"`
	CoveragePct      float64  `json:"coverage_pct"`
	NormalizedAmount float64  `json:"normalized_amount"`
	DiffAmount       float64  `json:"diff_amount"`
	DiffPct          *float64 `json:"diff_pct"`
}

// Winner is the default winner candidate. LowCoverage marks a candidate that
// won on amount while covering less than MinWinnerCoverage of the baseline;
// callers are expected to require manual confirmation for those.
type Winner struct {
	QuotationID      string  `json:"quotation_id"`
	SupplierLabel    string  `json:"supplier_label"`
	NormalizedAmount float64 `json:"normalized_amount"`
	CoveragePct      float64 `json:"coverage_pct"`
	LowCoverage      bool    `json:"low_coverage"`
}

// SupplierVariant is one quotation within a logical supplier group.
type SupplierVariant struct {
	QuotationID string `json:"quotation_id"`
	Label       string `json:"label"`
	Variant     string `json:"variant"`
}

// SupplierGroup collects quotations sharing a normalized supplier key so they
// render as variant columns of one supplier.
type SupplierGroup struct {
	Key      string            `json:"key"`
	Variants []SupplierVariant `json:"variants"`
}

// exchangeRate returns the factor converting the quotation's prices to the
// process base currency.
func exchangeRate(q models.Quotation, baseCurrency string) float64 {
	if q.Currency == "" || baseCurrency == "" {
		return 1
	}
	if strings.EqualFold(q.Currency, baseCurrency) {
		return 1
	}
	if q.ExchangeRate > 0 {
		return q.ExchangeRate
	}
	return 1
}

// NormalizedTotal computes an offer's line total in the base currency.
// It prefers the quoted total price; otherwise qty x unit price, where the
// quantity falls back from the offer's own quantity to the baseline's
// required quantity. It returns nil when no total can be derived.
func NormalizedTotal(line models.OfferLine, item *models.BaselineItem, q models.Quotation, baseCurrency string) *float64 {
	rate := exchangeRate(q, baseCurrency)
	if line.TotalPrice != nil {
		v := *line.TotalPrice * rate
		return &v
	}
	if line.UnitPrice == nil {
		return nil
	}
	var qty float64
	switch {
	case line.Qty != nil:
		qty = *line.Qty
	case item != nil:
		qty = item.RequiredQty
	default:
		return nil
	}
	v := qty * *line.UnitPrice * rate
	return &v
}

// refTotal is the baseline reference total for one item.
func refTotal(item models.BaselineItem) float64 {
	if item.RefTotalPrice != 0 {
		return item.RefTotalPrice
	}
	return item.RequiredQty * item.RefUnitPrice
}

// BaselineTotal sums the reference totals of the full baseline.
func BaselineTotal(items []models.BaselineItem) float64 {
	var total float64
	for _, it := range items {
		total += refTotal(it)
	}
	return total
}

// CompareItems produces one comparison row per baseline item, gathering every
// offer line whose baseline id matches. Offers appear in source order
// (quotation order, then line order) and the best offer is the first one
// reaching the minimum finite total, so equal-total offers keep their
// original ordering.
func CompareItems(items []models.BaselineItem, quotations []models.Quotation, baseCurrency string) []ItemComparison {
	rows := make([]ItemComparison, 0, len(items))
	for _, item := range items {
		row := ItemComparison{Item: item, Offers: []Offer{}}
		for _, q := range quotations {
			for _, line := range q.Lines {
				if line.BaselineID == nil || *line.BaselineID != item.ID {
					continue
				}
				row.Offers = append(row.Offers, Offer{
					QuotationID:   q.ID,
					SupplierLabel: q.SupplierLabel,
					Description:   line.Description,
					Qty:           line.Qty,
					UnitPrice:     line.UnitPrice,
					Total:         NormalizedTotal(line, &item, q, baseCurrency),
					RowOrder:      line.RowOrder,
				})
			}
		}

		bestIdx := -1
		runnerUp := 0.0
		hasRunnerUp := false
		for i, o := range row.Offers {
			if o.Total == nil {
				continue
			}
			if bestIdx == -1 || *o.Total < *row.Offers[bestIdx].Total {
				if bestIdx != -1 {
					prev := *row.Offers[bestIdx].Total
					if !hasRunnerUp || prev < runnerUp {
						runnerUp = prev
						hasRunnerUp = true
					}
				}
				bestIdx = i
			} else if !hasRunnerUp || *o.Total < runnerUp {
				runnerUp = *o.Total
				hasRunnerUp = true
			}
		}
		if bestIdx >= 0 {
			best := row.Offers[bestIdx]
			row.Best = &best
			if hasRunnerUp {
				if diff := runnerUp - *best.Total; diff > 0 {
					row.Savings = diff
				}
			}
		}
		rows = append(rows, row)
	}
	return rows
}

// RankQuotations computes a ranking row per quotation: how many baseline
// items it covered, its normalized amount over matched offers, and the
// difference against the baseline reference total. Rows are sorted by
// normalized amount ascending; on equal amounts fuller coverage ranks first.
func RankQuotations(items []models.BaselineItem, quotations []models.Quotation, baseCurrency string) []RankingRow {
	baselineTotal := BaselineTotal(items)
	byID := make(map[string]models.BaselineItem, len(items))
	for _, it := range items {
		byID[it.ID] = it
	}

	rows := make([]RankingRow, 0, len(quotations))
	for _, q := range quotations {
		row := RankingRow{QuotationID: q.ID, SupplierLabel: q.SupplierLabel}
		matched := make(map[string]bool)
		for _, line := range q.Lines {
			if line.BaselineID == nil {
				continue
			}
			item, ok := byID[*line.BaselineID]
			if !ok {
				continue
			}
			matched[item.ID] = true
			if t := NormalizedTotal(line, &item, q, baseCurrency); t != nil {
				row.NormalizedAmount += *t
			}
		}
		row.ItemsMatched = len(matched)
		row.Missing = len(items) - row.ItemsMatched
		if len(items) > 0 {
			row.CoveragePct = clamp01(float64(row.ItemsMatched) / float64(len(items)))
		}
		row.DiffAmount = row.NormalizedAmount - baselineTotal
		if baselineTotal != 0 {
			pct := row.DiffAmount / baselineTotal
			row.DiffPct = &pct
		}
		rows = append(rows, row)
	}

	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].NormalizedAmount != rows[j].NormalizedAmount {
			return rows[i].NormalizedAmount < rows[j].NormalizedAmount
		}
		return rows[i].CoveragePct > rows[j].CoveragePct
	})
	return rows
}

// SelectWinner picks the quotation with the lowest normalized amount among
// those matching at least one item. The result is flagged LowCoverage when
// the candidate covers less than MinWinnerCoverage of the baseline, so a
// one-cheap-item quotation cannot silently win on amount.
func SelectWinner(rows []RankingRow) *Winner {
	var best *RankingRow
	for i := range rows {
		r := &rows[i]
		if r.ItemsMatched == 0 {
			continue
		}
		if best == nil ||
			r.NormalizedAmount < best.NormalizedAmount ||
			(r.NormalizedAmount == best.NormalizedAmount && r.CoveragePct > best.CoveragePct) {
			best = r
		}
	}
	if best == nil {
		return nil
	}
	return &Winner{
		QuotationID:      best.QuotationID,
		SupplierLabel:    best.SupplierLabel,
		NormalizedAmount: best.NormalizedAmount,
		CoveragePct:      best.CoveragePct,
		LowCoverage:      best.CoveragePct < MinWinnerCoverage,
	}
}

// SupplierKey normalizes a quotation label to its base supplier name: trim,
// upper-case, and drop everything after a " - " variant delimiter.
func SupplierKey(label string) string {
	base := label
	if idx := strings.Index(label, " - "); idx >= 0 {
		base = label[:idx]
	}
	return strings.ToUpper(strings.TrimSpace(base))
}

// variantName returns the text after the " - " delimiter, if any.
func variantName(label string) string {
	if idx := strings.Index(label, " - "); idx >= 0 {
		return strings.TrimSpace(label[idx+3:])
	}
	return ""
}

// GroupBySupplier groups quotations by normalized supplier key, preserving
// first-encounter order. Each variant resolves back to its quotation id so a
// side-by-side view can still address one specific quotation.
func GroupBySupplier(quotations []models.Quotation) []SupplierGroup {
	index := make(map[string]int)
	groups := []SupplierGroup{}
	for _, q := range quotations {
		key := SupplierKey(q.SupplierLabel)
		i, ok := index[key]
		if !ok {
			i = len(groups)
			index[key] = i
			groups = append(groups, SupplierGroup{Key: key})
		}
		groups[i].Variants = append(groups[i].Variants, SupplierVariant{
			QuotationID: q.ID,
			Label:       q.SupplierLabel,
			Variant:     variantName(q.SupplierLabel),
		})
	}
	return groups
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

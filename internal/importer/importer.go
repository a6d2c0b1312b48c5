// Package importer loads baseline bills of quantities and supplier
// quotations from xlsx workbooks into the catalog and quotation store.
// It is the import step the engines presume already happened: nothing in
// compare or progress ever calls into this package.
package importer

import (
	"database/sql"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"

	"procura/internal/database"
)

// NormalizeItemCode canonicalizes a bill-of-quantities item code: trimmed,
// and for dotted numeric codes the trailing all-zero segments collapse, so
// "01.02.00" and "01.02" address the same item.
func NormalizeItemCode(code string) string {
	code = strings.TrimSpace(code)
	if code == "" {
		return ""
	}
	parts := strings.Split(code, ".")
	for _, p := range parts {
		if _, err := strconv.Atoi(p); err != nil {
			return code
		}
	}
	end := len(parts)
	for end > 1 {
		if n, _ := strconv.Atoi(parts[end-1]); n != 0 {
			break
		}
		end--
	}
	return strings.Join(parts[:end], ".")
}

// codeDepth is the section nesting level a dotted code implies.
func codeDepth(code string) int {
	if code == "" {
		return 0
	}
	return len(strings.Split(code, "."))
}

// parseFloat returns nil for blank or non-numeric cells.
func parseFloat(s string) *float64 {
	s = strings.TrimSpace(strings.ReplaceAll(s, ",", ""))
	if s == "" {
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil
	}
	return &v
}

func val(p *float64) float64 {
	if p == nil {
		return 0
	}
	return *p
}

func cell(row []string, i int) string {
	if i < len(row) {
		return strings.TrimSpace(row[i])
	}
	return ""
}

// ImportBaseline reads a baseline workbook into baseline_items. Each sheet
// holds columns: code, description, unit, quantity, unit price, total price.
// Rows carrying a code and description but no quantity are section headers;
// the dotted code depth drives the section path. Returns the number of items
// imported.
func ImportBaseline(db *sql.DB, processID, path string) (int, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return 0, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	count := 0
	for _, sheet := range f.GetSheetList() {
		rows, err := f.GetRows(sheet)
		if err != nil {
			return count, fmt.Errorf("read sheet %s: %w", sheet, err)
		}

		var sectionPath []string
		for _, row := range rows {
			code := NormalizeItemCode(cell(row, 0))
			desc := cell(row, 1)
			if code == "" || desc == "" {
				continue
			}
			qty := parseFloat(cell(row, 3))
			if qty == nil {
				// Section header: trim the path to this code's depth and
				// descend into it.
				depth := codeDepth(code)
				if depth-1 < len(sectionPath) {
					sectionPath = sectionPath[:depth-1]
				}
				sectionPath = append(sectionPath, desc)
				continue
			}

			section := append([]string{}, sectionPath...)
			_, err := db.Exec(`INSERT INTO baseline_items
				(id,process_id,item_code,description,unit,sheet_name,section_path,required_qty,ref_unit_price,ref_total_price)
				VALUES (?,?,?,?,?,?,?,?,?,?)`,
				uuid.NewString(), processID, code, desc, cell(row, 2), sheet,
				database.EncodeSectionPath(section), *qty, val(parseFloat(cell(row, 4))), val(parseFloat(cell(row, 5))))
			if err != nil {
				return count, fmt.Errorf("insert item %s: %w", code, err)
			}
			count++
		}
	}
	return count, nil
}

// ImportQuotations reads a quotation workbook: one supplier per sheet, the
// sheet name as supplier label (optionally with a " - variant" suffix), and
// columns: code, description, quantity, unit price, total price. Offers are
// matched to baseline items by normalized item code; unmatched rows are kept
// with a nil baseline id. Row order is recorded for later re-sorting of
// draft order lines. Returns the number of quotations imported.
func ImportQuotations(db *sql.DB, processID, path, currency string, exchangeRate float64) (int, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return 0, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	byCode := map[string]string{}
	rows, err := db.Query("SELECT id, item_code FROM baseline_items WHERE process_id=?", processID)
	if err != nil {
		return 0, err
	}
	for rows.Next() {
		var id, code string
		rows.Scan(&id, &code)
		if code != "" {
			byCode[NormalizeItemCode(code)] = id
		}
	}
	rows.Close()

	if exchangeRate <= 0 {
		exchangeRate = 1
	}

	count := 0
	for _, sheet := range f.GetSheetList() {
		sheetRows, err := f.GetRows(sheet)
		if err != nil {
			return count, fmt.Errorf("read sheet %s: %w", sheet, err)
		}

		quotationID := uuid.NewString()
		if _, err := db.Exec("INSERT INTO quotations (id,process_id,supplier_label,currency,exchange_rate) VALUES (?,?,?,?,?)",
			quotationID, processID, strings.TrimSpace(sheet), currency, exchangeRate); err != nil {
			return count, fmt.Errorf("insert quotation %s: %w", sheet, err)
		}

		rowOrder := 0
		for _, row := range sheetRows {
			desc := cell(row, 1)
			if desc == "" {
				continue
			}
			qty := parseFloat(cell(row, 2))
			unitPrice := parseFloat(cell(row, 3))
			totalPrice := parseFloat(cell(row, 4))
			if qty == nil && unitPrice == nil && totalPrice == nil {
				continue
			}

			var baselineID *string
			if code := NormalizeItemCode(cell(row, 0)); code != "" {
				if id, ok := byCode[code]; ok {
					baselineID = &id
				}
			}

			rowOrder++
			ro := rowOrder
			_, err := db.Exec(`INSERT INTO offer_lines
				(id,quotation_id,baseline_id,description,qty,unit_price,total_price,row_order)
				VALUES (?,?,?,?,?,?,?,?)`,
				uuid.NewString(), quotationID, database.NS(baselineID), desc,
				database.NF(qty), database.NF(unitPrice), database.NF(totalPrice), ro)
			if err != nil {
				return count, fmt.Errorf("insert offer line: %w", err)
			}
		}
		count++
	}
	return count, nil
}


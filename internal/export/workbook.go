// Package export renders proposals as xlsx workbooks with one sheet per supplier.
package export

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/xuri/excelize/v2"

	"github.com/andresuchdata/replenish/backend-go/internal/domain"
	"github.com/andresuchdata/replenish/backend-go/internal/proposal"
)

// MaxSheetNameLength is the xlsx limit on sheet names.
const MaxSheetNameLength = 31

const (
	ContentType  = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	defaultSheet = "Proposal"
)

var headers = []any{"Supplier", "Precodice", "Code", "Description", "Quantity"}

// Row is one exported order line.
type Row struct {
	Supplier    string
	Precodice   string
	Code        string
	Description string
	Quantity    int
}

// RowsFromLines converts draft lines, keeping draft order.
func RowsFromLines(lines []proposal.Line) []Row {
	rows := make([]Row, 0, len(lines))
	for _, l := range lines {
		item := l.Item.Item
		rows = append(rows, Row{
			Supplier:    l.Supplier(),
			Precodice:   item.Precodice,
			Code:        item.Code,
			Description: deref(item.Description),
			Quantity:    l.ModifiedQty,
		})
	}
	return rows
}

// RowsFromArchive converts an archived proposal, keeping line order.
func RowsFromArchive(p domain.ArchivedProposal) []Row {
	rows := make([]Row, 0, len(p.Lines))
	for _, l := range p.Lines {
		supplier := strings.TrimSpace(deref(l.Supplier))
		if supplier == "" {
			supplier = proposal.UnknownSupplier
		}
		rows = append(rows, Row{
			Supplier:    supplier,
			Precodice:   l.Precodice,
			Code:        l.Code,
			Description: deref(l.Description),
			Quantity:    l.OrderedQty,
		})
	}
	return rows
}

// SheetName makes a supplier name usable as a sheet name. Characters xlsx
// rejects become '_' and the result is cut to 31 characters. Distinct
// suppliers may map to the same name.
func SheetName(supplier string) string {
	name := strings.Map(func(r rune) rune {
		switch r {
		case ':', '\\', '/', '?', '*', '[', ']':
			return '_'
		}
		return r
	}, strings.TrimSpace(supplier))
	name = strings.Trim(name, "'")
	if utf8.RuneCountInString(name) > MaxSheetNameLength {
		name = strings.TrimRight(string([]rune(name)[:MaxSheetNameLength]), "'")
	}
	if name == "" {
		name = proposal.UnknownSupplier
	}
	return name
}

// Build writes rows into a workbook, one sheet per supplier in first-appearance
// order. Rows whose sheet names collide share a sheet.
func Build(rows []Row) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	headerStyle, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, fmt.Errorf("create header style: %w", err)
	}

	sheets := make(map[string]string) // lower-cased name -> sheet name
	nextRow := make(map[string]int)
	first := f.GetSheetName(0)

	addSheet := func(name string) (string, error) {
		if existing, ok := sheets[strings.ToLower(name)]; ok {
			return existing, nil
		}
		if len(sheets) == 0 {
			if err := f.SetSheetName(first, name); err != nil {
				return "", fmt.Errorf("rename sheet: %w", err)
			}
		} else if _, err := f.NewSheet(name); err != nil {
			return "", fmt.Errorf("create sheet %q: %w", name, err)
		}
		if err := f.SetSheetRow(name, "A1", &headers); err != nil {
			return "", fmt.Errorf("write header: %w", err)
		}
		if err := f.SetCellStyle(name, "A1", "E1", headerStyle); err != nil {
			return "", fmt.Errorf("style header: %w", err)
		}
		if err := f.SetColWidth(name, "A", "C", 18); err != nil {
			return "", fmt.Errorf("set column width: %w", err)
		}
		if err := f.SetColWidth(name, "D", "D", 48); err != nil {
			return "", fmt.Errorf("set column width: %w", err)
		}
		sheets[strings.ToLower(name)] = name
		nextRow[name] = 2
		return name, nil
	}

	if len(rows) == 0 {
		if _, err := addSheet(defaultSheet); err != nil {
			return nil, err
		}
	}

	for _, row := range rows {
		sheet, err := addSheet(SheetName(row.Supplier))
		if err != nil {
			return nil, err
		}
		cell, _ := excelize.CoordinatesToCellName(1, nextRow[sheet])
		values := []any{row.Supplier, row.Precodice, row.Code, row.Description, row.Quantity}
		if err := f.SetSheetRow(sheet, cell, &values); err != nil {
			return nil, fmt.Errorf("write row: %w", err)
		}
		nextRow[sheet]++
	}

	f.SetActiveSheet(0)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

func deref(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}

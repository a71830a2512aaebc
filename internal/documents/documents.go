package documents

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"cloud.google.com/go/civil"
	"github.com/xuri/excelize/v2"

	"github.com/andresuchdata/replenish/internal/domain"
)

const (
	ContentTypeCSV  = "text/csv"
	ContentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

	poSheet = "PO Draft"
)

var slugPattern = regexp.MustCompile(`[^a-z0-9]+`)

// PickingLine is the total quantity of one SKU across a day's orders.
type PickingLine struct {
	SKUCode string
	Name    string
	Qty     int
}

// AggregatePickingList sums order line quantities by SKU code.
func AggregatePickingList(orders []domain.Order) []PickingLine {
	byCode := make(map[string]*PickingLine)
	for _, o := range orders {
		for _, l := range o.Lines {
			line, ok := byCode[l.SKUCode]
			if !ok {
				line = &PickingLine{SKUCode: l.SKUCode, Name: l.Name}
				byCode[l.SKUCode] = line
			}
			line.Qty += l.Qty
		}
	}

	lines := make([]PickingLine, 0, len(byCode))
	for _, l := range byCode {
		lines = append(lines, *l)
	}
	sort.Slice(lines, func(i, j int) bool { return lines[i].SKUCode < lines[j].SKUCode })
	return lines
}

// FileName builds "<kind>-<region-slug>-<date>.<ext>".
func FileName(kind, regionName string, date civil.Date, ext string) string {
	slug := strings.Trim(slugPattern.ReplaceAllString(strings.ToLower(regionName), "-"), "-")
	return fmt.Sprintf("%s-%s-%s.%s", kind, slug, date, ext)
}

// PickingListCSV renders the picking list with a short preamble.
func PickingListCSV(regionName string, date civil.Date, orderCount int, lines []PickingLine) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	records := [][]string{
		{"PICKING LIST", regionName},
		{"Date", date.String()},
		{"Total Orders", strconv.Itoa(orderCount)},
		{},
		{"SKU Code", "Product Name", "Qty"},
	}
	for _, l := range lines {
		records = append(records, []string{l.SKUCode, l.Name, strconv.Itoa(l.Qty)})
	}
	if err := w.WriteAll(records); err != nil {
		return nil, fmt.Errorf("failed to write picking list csv: %w", err)
	}
	return buf.Bytes(), nil
}

// PODraftXLSX renders a purchase-order draft from a day's recommendations.
func PODraftXLSX(regionName string, date civil.Date, recs []domain.Recommendation) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", poSheet); err != nil {
		return nil, fmt.Errorf("failed to rename sheet: %w", err)
	}

	cells := map[string]any{
		"A1": "PURCHASE ORDER DRAFT",
		"B1": regionName,
		"A2": "Date",
		"B2": date.String(),
		"A4": "SKU Code",
		"B4": "Product Name",
		"C4": "Recommended Qty",
		"D4": "Adjusted Qty",
		"E4": "Priority",
	}
	for cell, v := range cells {
		if err := f.SetCellValue(poSheet, cell, v); err != nil {
			return nil, fmt.Errorf("failed to set %s: %w", cell, err)
		}
	}

	for i, r := range recs {
		row := i + 5
		values := []any{r.SKUCode, r.SKUName, r.RecommendedQty, r.AdjustedQty, string(r.Priority)}
		cell, err := excelize.CoordinatesToCellName(1, row)
		if err != nil {
			return nil, err
		}
		if err := f.SetSheetRow(poSheet, cell, &values); err != nil {
			return nil, fmt.Errorf("failed to write row %d: %w", row, err)
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to encode xlsx: %w", err)
	}
	return buf.Bytes(), nil
}

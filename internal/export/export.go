// Package export renders product listings as downloadable spreadsheets.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"warehouse/internal/domain"

	"github.com/xuri/excelize/v2"
)

// Format names a supported export encoding
type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
)

const sheetName = "Products"

var productHeader = []string{"ID", "Name", "SKU", "Category", "Description", "Price", "Stock"}

// ParseFormat returns the format named by s
func ParseFormat(s string) (Format, bool) {
	switch Format(s) {
	case FormatCSV, FormatXLSX:
		return Format(s), true
	}
	return "", false
}

// ContentType is the MIME type served for the format
func (f Format) ContentType() string {
	if f == FormatXLSX {
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	}
	return "text/csv; charset=utf-8"
}

// Filename returns a timestamped attachment name such as products_20240102_150405.csv
func (f Format) Filename(prefix string, at time.Time) string {
	return fmt.Sprintf("%s_%s.%s", prefix, at.Format("20060102_150405"), f)
}

// WriteProducts encodes products in format f
func WriteProducts(w io.Writer, f Format, products []*domain.Product) error {
	switch f {
	case FormatCSV:
		return WriteProductsCSV(w, products)
	case FormatXLSX:
		return WriteProductsXLSX(w, products)
	}
	return fmt.Errorf("unsupported export format %q", f)
}

func productRow(p *domain.Product) []string {
	return []string{
		p.ID.String(),
		p.Name,
		p.SKU,
		p.Category,
		p.Description,
		p.Price.StringFixed(2),
		strconv.Itoa(p.StockQuantity),
	}
}

// WriteProductsCSV writes a header row followed by one row per product
func WriteProductsCSV(w io.Writer, products []*domain.Product) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(productHeader); err != nil {
		return fmt.Errorf("failed to write csv header: %w", err)
	}
	for _, p := range products {
		if err := cw.Write(productRow(p)); err != nil {
			return fmt.Errorf("failed to write csv row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteProductsXLSX writes a single-sheet workbook. Price and stock are
// stored as numbers so the sheet can be summed.
func WriteProductsXLSX(w io.Writer, products []*domain.Product) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), sheetName); err != nil {
		return fmt.Errorf("failed to name sheet: %w", err)
	}

	header := make([]interface{}, len(productHeader))
	for i, h := range productHeader {
		header[i] = h
	}
	if err := f.SetSheetRow(sheetName, "A1", &header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("failed to create header style: %w", err)
	}
	if err := f.SetCellStyle(sheetName, "A1", "G1", bold); err != nil {
		return fmt.Errorf("failed to style header: %w", err)
	}

	for i, p := range products {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		price, _ := p.Price.Float64()
		row := []interface{}{p.ID.String(), p.Name, p.SKU, p.Category, p.Description, price, p.StockQuantity}
		if err := f.SetSheetRow(sheetName, cell, &row); err != nil {
			return fmt.Errorf("failed to write row %d: %w", i+2, err)
		}
	}

	if err := f.SetColWidth(sheetName, "A", "A", 38); err != nil {
		return err
	}
	if err := f.SetColWidth(sheetName, "B", "E", 24); err != nil {
		return err
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

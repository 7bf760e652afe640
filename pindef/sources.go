package pindef

import (
	"encoding/csv"
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"
)

// XLSXSource reads a worksheet of an .xlsx or .xlsm workbook. Formula cells
// yield their cached values.
type XLSXSource struct {
	Path string

	// Sheet selects a worksheet by name; empty means the first one
	Sheet string
}

func (s *XLSXSource) Rows() ([][]string, error) {
	f, err := excelize.OpenFile(s.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook %s: %w", s.Path, err)
	}
	defer f.Close()

	sheet := s.Sheet
	if sheet == "" {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return nil, fmt.Errorf("workbook %s has no worksheets", s.Path)
		}
		sheet = sheets[0]
	}

	// Raw values keep numbers unformatted so "0.5" is not rendered as "50%".
	rows, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %s of %s: %w", sheet, s.Path, err)
	}
	return rows, nil
}

// CSVSource reads a sheet exported as comma separated values, keeping the
// same row and column layout as the workbook.
type CSVSource struct {
	r io.Reader
}

func NewCSVSource(r io.Reader) *CSVSource {
	return &CSVSource{r: r}
}

func (s *CSVSource) Rows() ([][]string, error) {
	cr := csv.NewReader(s.r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	rows, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to parse CSV: %w", err)
	}
	return rows, nil
}

package pindef

import (
	"fmt"

	"github.com/xuri/excelize/v2"
)

// UnknownFunctionError is returned for a function category outside the
// DIG_IN/DIG_OUT/ADC/DAC vocabulary.
type UnknownFunctionError struct {
	Function string
	RowID    string
}

func (e *UnknownFunctionError) Error() string {
	if e.RowID != "" {
		return fmt.Sprintf("unknown pin function %q in row %s", e.Function, e.RowID)
	}
	return fmt.Sprintf("unknown pin function %q", e.Function)
}

// FieldParseError is returned when a required field cannot be read as a number.
type FieldParseError struct {
	Field string
	RowID string

	// SheetRow and SheetColumn are 1-based sheet coordinates
	SheetRow    int
	SheetColumn int

	Value string
	Err   error
}

func (e *FieldParseError) Error() string {
	cell := cellName(e.SheetColumn, e.SheetRow)
	if e.Value == "" {
		return fmt.Sprintf("field %s of row %s (cell %s) is empty", e.Field, e.RowID, cell)
	}
	if e.Err != nil {
		return fmt.Sprintf("field %s of row %s (cell %s): cannot use %q: %v", e.Field, e.RowID, cell, e.Value, e.Err)
	}
	return fmt.Sprintf("field %s of row %s (cell %s): cannot parse %q as a number", e.Field, e.RowID, cell, e.Value)
}

func (e *FieldParseError) Unwrap() error { return e.Err }

// MissingColumnError reports a read beyond the sheet's last column.
type MissingColumnError struct {
	Field       string
	SheetRow    int
	SheetColumn int
}

func (e *MissingColumnError) Error() string {
	return fmt.Sprintf("column %s for field %s not found in row %d", columnName(e.SheetColumn), e.Field, e.SheetRow)
}

// ValueRangeError reports a value record violating min <= initial <= max.
type ValueRangeError struct {
	RowID   string
	Min     float64
	Max     float64
	Initial float64
}

func (e *ValueRangeError) Error() string {
	prefix := "value range"
	if e.RowID != "" {
		prefix = "value range of row " + e.RowID
	}
	return fmt.Sprintf("%s violates min <= initial <= max (min=%g, initial=%g, max=%g)", prefix, e.Min, e.Initial, e.Max)
}

// DuplicateIDError reports two pins of one module sharing an id.
type DuplicateIDError struct {
	Module string
	ID     string
}

func (e *DuplicateIDError) Error() string {
	return fmt.Sprintf("duplicate pin id %s in module %s", e.ID, e.Module)
}

func columnName(col int) string {
	name, err := excelize.ColumnNumberToName(col)
	if err != nil {
		return fmt.Sprintf("#%d", col)
	}
	return name
}

func cellName(col, row int) string {
	name, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		return fmt.Sprintf("R%dC%d", row, col)
	}
	return name
}

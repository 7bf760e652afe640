package pindef

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/example/pin-definition-importer/internal/debuglog"
)

var logger = debuglog.New("pindef")

// Column offsets of a data row, counted from the sheet's column B.
// Field meaning is positional; header text is never consulted.
const (
	colID = iota
	colFunction
	colName
	colUnit
	colK
	colC
	colMainDisplay
	colMainColumn
	colMainRow
	colDACRange
	colADCRange
	colMin
	colMax
	colInitial
	colImportantDisplay
	colImportantColumn
	colImportantRow
	colActiveLow
	colExpEnable
	colExpB
	colExpR0
	colExpT0
	colEnableInitial
	colAlarmEnable
	colAlarmAbove
	colAlarmWarning
	colAlarmInterlock

	// extension column, absent from older sheets
	colDisablePowerdrop = 39
)

const (
	// DefaultHeaderRows is the metadata region above the first data row (sheet rows 1-5)
	DefaultHeaderRows = 5

	// firstSheetColumn is column B; column A carries no pin data
	firstSheetColumn = 2
)

// Source is a tabular hardware definition: every row of the sheet, header
// region included, as raw cell text. Rows may be ragged.
type Source interface {
	Rows() ([][]string, error)
}

// Grid is an in-memory Source.
type Grid [][]string

func (g Grid) Rows() ([][]string, error) { return g, nil }

// Importer turns a Source into pin definitions. The zero value is not
// usable; create one with NewImporter.
type Importer struct {
	// IgnoreFunctions lists function categories whose rows are skipped
	IgnoreFunctions []Function

	// HeaderRows is the number of sheet rows preceding the data rows
	HeaderRows int

	// AllowOutOfRange keeps pins whose initial value lies outside [min, max]
	AllowOutOfRange bool
}

// NewImporter returns an importer that skips PWR rows and enforces value ranges.
func NewImporter() *Importer {
	return &Importer{
		IgnoreFunctions: []Function{PWR},
		HeaderRows:      DefaultHeaderRows,
	}
}

// WithProfile returns a copy of the importer that also skips the profile's ignored functions.
func (im *Importer) WithProfile(p *Profile) *Importer {
	cp := *im
	cp.IgnoreFunctions = append([]Function(nil), im.IgnoreFunctions...)
	if p == nil {
		return &cp
	}
	for _, fn := range p.IgnoreFunctions {
		if !cp.ignored(fn) {
			cp.IgnoreFunctions = append(cp.IgnoreFunctions, fn)
		}
	}
	return &cp
}

func (im *Importer) ignored(fn Function) bool {
	for _, ig := range im.IgnoreFunctions {
		if ig == fn {
			return true
		}
	}
	return false
}

// Import reads every qualifying row of src, in source order. The first
// malformed row aborts the whole import; no partial result is returned.
func (im *Importer) Import(src Source) ([]PinDefinition, error) {
	rows, err := src.Rows()
	if err != nil {
		return nil, fmt.Errorf("failed to read source: %w", err)
	}

	// The sheet width is its longest row, like a spreadsheet's last used column.
	width := 0
	for _, row := range rows {
		if len(row) > width {
			width = len(row)
		}
	}
	dataWidth := width - (firstSheetColumn - 1)

	var pins []PinDefinition
	for i := max(im.HeaderRows, 0); i < len(rows); i++ {
		cells := make([]string, max(dataWidth, 0))
		if len(rows[i]) > firstSheetColumn-1 {
			copy(cells, rows[i][firstSheetColumn-1:])
		}
		r := &rowReader{cells: cells, sheetRow: i + 1}

		fnCell, err := r.text("function", colFunction)
		if err != nil {
			return nil, err
		}
		fn := Function(strings.TrimSpace(fnCell))
		if fn == "" || im.ignored(fn) {
			logger.Tracef("skipping sheet row %d (function %q)", r.sheetRow, fn)
			continue
		}

		pin, err := im.importRow(r, fn)
		if err != nil {
			return nil, err
		}
		pins = append(pins, pin)
	}

	logger.Debugf("imported %d pins from %d sheet rows", len(pins), len(rows))
	return pins, nil
}

func (im *Importer) importRow(r *rowReader, fn Function) (PinDefinition, error) {
	id, err := r.text("id", colID)
	if err != nil {
		return PinDefinition{}, err
	}
	r.id = id

	pin, err := NewPinDefinition(id, fn)
	if err != nil {
		if ufe, ok := err.(*UnknownFunctionError); ok {
			ufe.RowID = id
		}
		return PinDefinition{}, err
	}

	if pin.Name, err = r.text("name", colName); err != nil {
		return PinDefinition{}, err
	}
	if pin.Unit, err = r.text("unit", colUnit); err != nil {
		return PinDefinition{}, err
	}

	if pin.ConversionCoefficients.K, err = r.required("conversion_coefficients.k", colK); err != nil {
		return PinDefinition{}, err
	}
	if pin.ConversionCoefficients.C, err = r.required("conversion_coefficients.C", colC); err != nil {
		return PinDefinition{}, err
	}

	// main_gui.display is set by a 0, not a 1.
	if pin.MainGUI.Display, err = r.flag("main_gui.display", colMainDisplay, 0); err != nil {
		return PinDefinition{}, err
	}
	if pin.MainGUI.Column, err = r.integer("main_gui.column", colMainColumn); err != nil {
		return PinDefinition{}, err
	}
	if pin.MainGUI.Row, err = r.integer("main_gui.row", colMainRow); err != nil {
		return PinDefinition{}, err
	}

	if pin.Value.Min, err = r.required("value.min", colMin); err != nil {
		return PinDefinition{}, err
	}
	if pin.Value.Max, err = r.required("value.max", colMax); err != nil {
		return PinDefinition{}, err
	}
	if pin.Value.Initial, err = r.required("value.initial", colInitial); err != nil {
		return PinDefinition{}, err
	}
	if pin.Value.EnableInitial, err = r.flag("value.enable_initial", colEnableInitial, 1); err != nil {
		return PinDefinition{}, err
	}

	if pin.ImportantGUI.Display, err = r.flag("important_gui.display", colImportantDisplay, 1); err != nil {
		return PinDefinition{}, err
	}
	if pin.ImportantGUI.Column, err = r.integer("important_gui.column", colImportantColumn); err != nil {
		return PinDefinition{}, err
	}
	if pin.ImportantGUI.Row, err = r.integer("important_gui.row", colImportantRow); err != nil {
		return PinDefinition{}, err
	}

	if pin.ActiveLow, err = r.flag("active_low", colActiveLow, 1); err != nil {
		return PinDefinition{}, err
	}

	exp := &pin.Exponential
	if exp.Enable, err = r.flag("exponential.enable", colExpEnable, 1); err != nil {
		return PinDefinition{}, err
	}
	if exp.B, err = r.optional("exponential.B", colExpB); err != nil {
		return PinDefinition{}, err
	}
	if exp.R0, err = r.optional("exponential.R0", colExpR0); err != nil {
		return PinDefinition{}, err
	}
	if exp.T0, err = r.optional("exponential.T0", colExpT0); err != nil {
		return PinDefinition{}, err
	}

	alarm := &pin.Alarm
	if alarm.Enable, err = r.flag("alarm.enable", colAlarmEnable, 1); err != nil {
		return PinDefinition{}, err
	}
	if alarm.Above, err = r.flag("alarm.above", colAlarmAbove, 1); err != nil {
		return PinDefinition{}, err
	}
	if alarm.WarningValue, err = r.optional("alarm.warning_value", colAlarmWarning); err != nil {
		return PinDefinition{}, err
	}
	if alarm.InterlockValue, err = r.optional("alarm.interlock_value", colAlarmInterlock); err != nil {
		return PinDefinition{}, err
	}

	misc := &pin.Miscellaneous
	if misc.DACRange, err = r.unset("miscellaneous.dac_range", colDACRange); err != nil {
		return PinDefinition{}, err
	}
	if misc.ADCRange, err = r.unset("miscellaneous.adc_range", colADCRange); err != nil {
		return PinDefinition{}, err
	}
	misc.DisablePowerdrop, err = r.unsetFlag("miscellaneous.disable_powerdrop", colDisablePowerdrop)
	if err != nil {
		if mce, ok := err.(*MissingColumnError); ok {
			logger.Infof("%s, leaving %s unset", mce.Error(), mce.Field)
			misc.DisablePowerdrop = nil
		} else {
			return PinDefinition{}, err
		}
	}

	if !im.AllowOutOfRange {
		if err := pin.Value.Validate(); err != nil {
			if vre, ok := err.(*ValueRangeError); ok {
				vre.RowID = id
			}
			return PinDefinition{}, err
		}
	}

	logger.Tracef("imported %s", pin.String())
	return pin, nil
}

// ImportFile imports a .xlsx/.xlsm workbook or a .csv export into a module
// named after the file.
func (im *Importer) ImportFile(path string) (*Module, error) {
	var src Source
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx", ".xlsm":
		src = &XLSXSource{Path: path}
	case ".csv":
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("failed to open %s: %w", path, err)
		}
		defer f.Close()
		src = NewCSVSource(f)
	default:
		return nil, fmt.Errorf("unsupported hardware definition format: %s", path)
	}

	pins, err := im.Import(src)
	if err != nil {
		return nil, fmt.Errorf("failed to import %s: %w", path, err)
	}

	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	logger.Infof("imported module %s: %d pins", name, len(pins))
	return &Module{Name: name, Source: path, Pins: pins}, nil
}

// rowReader reads typed fields from one padded data row.
type rowReader struct {
	cells    []string
	sheetRow int
	id       string
}

func (r *rowReader) text(field string, off int) (string, error) {
	if off >= len(r.cells) {
		return "", &MissingColumnError{Field: field, SheetRow: r.sheetRow, SheetColumn: off + firstSheetColumn}
	}
	return r.cells[off], nil
}

func (r *rowReader) number(field string, off int) (float64, bool, error) {
	raw, err := r.text(field, off)
	if err != nil {
		return 0, false, err
	}
	s := strings.TrimSpace(raw)
	if s == "" {
		return 0, false, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false, r.parseError(field, off, raw, err)
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false, r.parseError(field, off, raw, fmt.Errorf("value is not finite"))
	}
	return v, true, nil
}

// required fails on empty cells as well as non-numeric ones.
func (r *rowReader) required(field string, off int) (float64, error) {
	v, ok, err := r.number(field, off)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, r.parseError(field, off, "", nil)
	}
	return v, nil
}

// optional reads an empty cell as 0.0.
func (r *rowReader) optional(field string, off int) (float64, error) {
	v, _, err := r.number(field, off)
	return v, err
}

// unset reads an empty cell as nil.
func (r *rowReader) unset(field string, off int) (*float64, error) {
	v, ok, err := r.number(field, off)
	if err != nil || !ok {
		return nil, err
	}
	return &v, nil
}

// integer reads an empty cell as 0 and rejects fractions and values outside the int range.
func (r *rowReader) integer(field string, off int) (int, error) {
	v, err := r.optional(field, off)
	if err != nil {
		return 0, err
	}
	if v != math.Trunc(v) || v < float64(math.MinInt) || v >= -float64(math.MinInt) {
		raw, _ := r.text(field, off)
		return 0, r.parseError(field, off, raw, fmt.Errorf("not a whole number"))
	}
	return int(v), nil
}

// flag is true only when the cell is numerically equal to sentinel. Any other
// content, text included, reads as false.
func (r *rowReader) flag(field string, off int, sentinel float64) (bool, error) {
	raw, err := r.text(field, off)
	if err != nil {
		return false, err
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	return err == nil && v == sentinel, nil
}

func (r *rowReader) unsetFlag(field string, off int) (*bool, error) {
	raw, err := r.text(field, off)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	set, _ := r.flag(field, off, 1)
	return &set, nil
}

func (r *rowReader) parseError(field string, off int, raw string, err error) error {
	return &FieldParseError{
		Field:       field,
		RowID:       r.id,
		SheetRow:    r.sheetRow,
		SheetColumn: off + firstSheetColumn,
		Value:       raw,
		Err:         err,
	}
}

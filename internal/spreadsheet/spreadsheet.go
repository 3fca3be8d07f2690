// Package spreadsheet reads and writes the .xlsx files used for bulk import
// and export of materials.
package spreadsheet

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/erazemk/reclaim/internal/model"
	"github.com/erazemk/reclaim/internal/taxonomy"
	"github.com/erazemk/reclaim/internal/validate"
)

// ContentType is the MIME type of the files this package produces.
const ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

const (
	sheetMaterials = "Materials"
	// validationRows is how far down the template's dropdowns reach.
	validationRows = 1000
)

// ErrNoHeader is returned when the first row names none of the known columns.
var ErrNoHeader = errors.New("spreadsheet has no recognisable header row")

// columns maps header text to fields, in file order.
var columns = []struct {
	Header string
	Field  taxonomy.Field
}{
	{"Name", taxonomy.FieldName},
	{"Category", taxonomy.FieldCategory},
	{"Material Type", taxonomy.FieldMaterialType},
	{"Condition", taxonomy.FieldCondition},
	{"Color", taxonomy.FieldColor},
	{"Notes", taxonomy.FieldNotes},
	{"Width", taxonomy.FieldWidth},
	{"Height", taxonomy.FieldHeight},
	{"Depth", taxonomy.FieldDepth},
	{"Desk Type", taxonomy.FieldDeskType},
	{"Height Adjustable", taxonomy.FieldHeightAdjustable},
	{"Max Height", taxonomy.FieldMaximumHeight},
	{"Opening Type", taxonomy.FieldOpeningType},
	{"Hinge Side", taxonomy.FieldHingeSide},
	{"U-Value", taxonomy.FieldUValue},
	{"Swing Direction", taxonomy.FieldSwingDirection},
	{"Has Wheels", taxonomy.FieldHasWheels},
}

// Headers returns the column headers in file order.
func Headers() []string {
	out := make([]string, len(columns))
	for i, c := range columns {
		out[i] = c.Header
	}
	return out
}

// Row is one data row read from a spreadsheet.
type Row struct {
	// Line is the 1-based row number in the sheet.
	Line  int
	Draft model.Draft
	// Errors holds cells that could not be parsed, keyed by field.
	Errors map[taxonomy.Field]string
}

// Export writes records to a new workbook with a bold header row.
func Export(records []model.MaterialRecord) ([]byte, error) {
	f, err := newWorkbook()
	if err != nil {
		return nil, err
	}
	defer f.Close()

	for i, r := range records {
		d := r.Draft()
		values := make([]any, len(columns))
		for j, c := range columns {
			values[j] = cellValue(d, c.Field)
		}
		if err := setRow(f, i+2, values); err != nil {
			return nil, err
		}
	}

	return finish(f)
}

// Template writes an empty workbook with the header row, one example row and
// dropdowns for every enumerated column.
func Template() ([]byte, error) {
	f, err := newWorkbook()
	if err != nil {
		return nil, err
	}
	defer f.Close()

	example := model.Draft{
		Name:         "Oak corner desk",
		Category:     string(taxonomy.CategoryFurniture),
		MaterialType: string(taxonomy.TypeDesk),
		Condition:    string(taxonomy.ConditionReusable),
		Color:        "Brown",
		Notes:        "Minor scratches on top",
		DeskType:     string(taxonomy.DeskCorner),
	}
	for field, v := range map[taxonomy.Field]string{
		taxonomy.FieldWidth:            "160",
		taxonomy.FieldHeight:           "75",
		taxonomy.FieldDepth:            "80",
		taxonomy.FieldHeightAdjustable: "no",
	} {
		if err := example.Set(field, v); err != nil {
			return nil, fmt.Errorf("building example row: %w", err)
		}
	}

	values := make([]any, len(columns))
	for j, c := range columns {
		values[j] = cellValue(example, c.Field)
	}
	if err := setRow(f, 2, values); err != nil {
		return nil, err
	}

	for j, c := range columns {
		opts := dropdown(c.Field)
		if opts == nil {
			continue
		}
		col, err := excelize.ColumnNumberToName(j + 1)
		if err != nil {
			return nil, fmt.Errorf("naming column %d: %w", j+1, err)
		}
		dv := excelize.NewDataValidation(true)
		dv.Sqref = fmt.Sprintf("%s2:%s%d", col, col, validationRows)
		if err := dv.SetDropList(opts); err != nil {
			return nil, fmt.Errorf("dropdown for %s: %w", c.Header, err)
		}
		if err := f.AddDataValidation(sheetMaterials, dv); err != nil {
			return nil, fmt.Errorf("adding dropdown for %s: %w", c.Header, err)
		}
	}

	return finish(f)
}

// columnOptions lists the values a column accepts in any row. openingType
// mixes window and cabinet openings since the type is chosen per row.
func columnOptions(f taxonomy.Field) []taxonomy.Option {
	switch f {
	case taxonomy.FieldCategory, taxonomy.FieldMaterialType, taxonomy.FieldCondition:
		return taxonomy.Options("", f)
	case taxonomy.FieldDeskType:
		return taxonomy.Options(taxonomy.TypeDesk, f)
	case taxonomy.FieldHingeSide:
		return taxonomy.Options(taxonomy.TypeWindow, f)
	case taxonomy.FieldSwingDirection:
		return taxonomy.Options(taxonomy.TypeDoor, f)
	case taxonomy.FieldOpeningType:
		return append(taxonomy.Options(taxonomy.TypeWindow, f), taxonomy.Options(taxonomy.TypeOfficeCabinet, f)...)
	}
	return nil
}

func dropdown(f taxonomy.Field) []string {
	if taxonomy.Boolean(f) {
		return []string{"Yes", "No"}
	}
	opts := columnOptions(f)
	if opts == nil {
		return nil
	}
	out := make([]string, len(opts))
	for i, o := range opts {
		out[i] = o.Value
	}
	return out
}

// Parse reads the first sheet of an .xlsx file. Columns are matched by header
// text, case-insensitively, so they may come in any order; unknown columns are
// ignored. Blank rows are skipped.
func Parse(r io.Reader) ([]Row, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("opening spreadsheet: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, ErrNoHeader
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("reading sheet %s: %w", sheets[0], err)
	}
	if len(rows) == 0 {
		return nil, ErrNoHeader
	}

	index := headerIndex(rows[0])
	if len(index) == 0 {
		return nil, ErrNoHeader
	}

	var out []Row
	for i, cells := range rows[1:] {
		if blank(cells) {
			continue
		}
		row := Row{Line: i + 2, Errors: map[taxonomy.Field]string{}}
		for col, field := range index {
			if col >= len(cells) {
				continue
			}
			raw := canonical(field, cells[col])
			if err := row.Draft.Set(field, raw); err != nil {
				row.Errors[field] = validate.ParseMessage(field, err)
			}
		}
		out = append(out, row)
	}
	return out, nil
}

func headerIndex(header []string) map[int]taxonomy.Field {
	byName := make(map[string]taxonomy.Field, len(columns))
	for _, c := range columns {
		byName[strings.ToLower(c.Header)] = c.Field
	}
	index := make(map[int]taxonomy.Field)
	for i, h := range header {
		if f, ok := byName[strings.ToLower(strings.TrimSpace(h))]; ok {
			index[i] = f
		}
	}
	return index
}

func blank(cells []string) bool {
	for _, c := range cells {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

// canonical maps a display label such as "Fixed Pane" to its stored value.
// Anything unrecognised is passed through for the validator to reject.
func canonical(f taxonomy.Field, raw string) string {
	raw = strings.TrimSpace(raw)
	for _, o := range columnOptions(f) {
		if strings.EqualFold(o.Value, raw) || strings.EqualFold(o.Label, raw) {
			return o.Value
		}
	}
	return raw
}

// cellValue gives numbers as float64 so spreadsheet programs treat them as
// numbers. Unset values are nil.
func cellValue(d model.Draft, f taxonomy.Field) any {
	if taxonomy.Numeric(f) {
		p, _ := d.Value(f).(*float64)
		if p == nil {
			return nil
		}
		return *p
	}
	if s := d.Text(f); s != "" {
		return s
	}
	return nil
}

func newWorkbook() (*excelize.File, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName(f.GetSheetName(0), sheetMaterials); err != nil {
		f.Close()
		return nil, fmt.Errorf("naming sheet: %w", err)
	}

	header := make([]any, len(columns))
	for i, c := range columns {
		header[i] = c.Header
	}
	if err := setRow(f, 1, header); err != nil {
		f.Close()
		return nil, err
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("creating header style: %w", err)
	}
	if err := f.SetRowStyle(sheetMaterials, 1, 1, bold); err != nil {
		f.Close()
		return nil, fmt.Errorf("styling header: %w", err)
	}

	last, err := excelize.ColumnNumberToName(len(columns))
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("naming last column: %w", err)
	}
	if err := f.SetColWidth(sheetMaterials, "A", last, 18); err != nil {
		f.Close()
		return nil, fmt.Errorf("setting column width: %w", err)
	}
	return f, nil
}

func setRow(f *excelize.File, row int, values []any) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return fmt.Errorf("addressing row %d: %w", row, err)
	}
	if err := f.SetSheetRow(sheetMaterials, cell, &values); err != nil {
		return fmt.Errorf("writing row %d: %w", row, err)
	}
	return nil
}

func finish(f *excelize.File) ([]byte, error) {
	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("writing workbook: %w", err)
	}
	return buf.Bytes(), nil
}

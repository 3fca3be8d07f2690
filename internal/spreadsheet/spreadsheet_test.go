package spreadsheet

import (
	"bytes"
	"errors"
	"testing"

	"github.com/xuri/excelize/v2"

	"github.com/erazemk/reclaim/internal/model"
	"github.com/erazemk/reclaim/internal/taxonomy"
	"github.com/erazemk/reclaim/internal/validate"
)

func ptr[T any](v T) *T { return &v }

// sheet builds a workbook whose first sheet holds rows.
func sheet(t *testing.T, rows [][]any) *bytes.Buffer {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	name := f.GetSheetName(0)
	for i, row := range rows {
		cell, _ := excelize.CoordinatesToCellName(1, i+1)
		if err := f.SetSheetRow(name, cell, &row); err != nil {
			t.Fatalf("SetSheetRow: %v", err)
		}
	}
	buf, err := f.WriteToBuffer()
	if err != nil {
		t.Fatalf("WriteToBuffer: %v", err)
	}
	return buf
}

func TestExportParseRoundTrip(t *testing.T) {
	records := []model.MaterialRecord{
		{
			Name:      "Standing desk",
			Category:  taxonomy.CategoryFurniture,
			Condition: taxonomy.ConditionReusable,
			Color:     "White",
			Width:     140,
			Height:    72,
			Depth:     ptr(70.0),
			Attributes: model.Desk{
				DeskType:         taxonomy.DeskStraight,
				HeightAdjustable: true,
				MaximumHeight:    ptr(120.0),
			},
		},
		{
			Name:      "Side-hung window",
			Category:  taxonomy.CategoryWindows,
			Condition: taxonomy.ConditionRepairable,
			Notes:     "Cracked pane",
			Width:     90,
			Height:    120,
			Depth:     ptr(12.5),
			Attributes: model.Window{
				OpeningType: taxonomy.WindowSideHung,
				HingeSide:   taxonomy.HingeLeft,
				UValue:      ptr(1.1),
			},
		},
		{
			Name:       "Pedestal",
			Category:   taxonomy.CategoryStorage,
			Condition:  taxonomy.ConditionDamaged,
			Width:      40,
			Height:     60,
			Depth:      ptr(50.0),
			Attributes: model.DrawerUnit{HasWheels: true},
		},
	}

	data, err := Export(records)
	if err != nil {
		t.Fatalf("Export: %v", err)
	}

	rows, err := Parse(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(rows) != len(records) {
		t.Fatalf("expected %d rows, got %d", len(records), len(rows))
	}

	for i, row := range rows {
		if len(row.Errors) != 0 {
			t.Errorf("row %d: unexpected parse errors %v", row.Line, row.Errors)
		}
		if row.Line != i+2 {
			t.Errorf("row %d: line = %d", i, row.Line)
		}
		want := records[i].Draft()
		if changed := want.Changed(row.Draft); len(changed) != 0 {
			t.Errorf("row %d: fields differ after round trip: %v", row.Line, changed)
		}
	}
}

func TestTemplateExampleIsValid(t *testing.T) {
	data, err := Template()
	if err != nil {
		t.Fatalf("Template: %v", err)
	}

	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("OpenReader: %v", err)
	}
	defer f.Close()

	got, err := f.GetRows(f.GetSheetList()[0])
	if err != nil {
		t.Fatalf("GetRows: %v", err)
	}
	headers := Headers()
	if len(got) < 1 || len(got[0]) != len(headers) {
		t.Fatalf("unexpected header row %v", got)
	}
	for i, h := range headers {
		if got[0][i] != h {
			t.Errorf("header %d = %q, want %q", i, got[0][i], h)
		}
	}

	dvs, err := f.GetDataValidations(f.GetSheetList()[0])
	if err != nil {
		t.Fatalf("GetDataValidations: %v", err)
	}
	if len(dvs) == 0 {
		t.Error("expected dropdowns in the template")
	}

	rows, err := Parse(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("expected the example row, got %d rows", len(rows))
	}
	if errs := validate.ValidateAll(rows[0].Draft); len(errs) != 0 {
		t.Errorf("example row does not validate: %v", errs)
	}
}

func TestParseCollectsCellErrors(t *testing.T) {
	buf := sheet(t, [][]any{
		{"Name", "Material Type", "Width", "Has Wheels"},
		{"Cart", "DRAWER_UNIT", "wide", "maybe"},
	})

	rows, err := Parse(buf)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("expected 1 row, got %d", len(rows))
	}
	errs := rows[0].Errors
	if errs[taxonomy.FieldWidth] != "Width must be a number" {
		t.Errorf("width error = %q", errs[taxonomy.FieldWidth])
	}
	if errs[taxonomy.FieldHasWheels] != "Invalid has wheels" {
		t.Errorf("has wheels error = %q", errs[taxonomy.FieldHasWheels])
	}
	if rows[0].Draft.Name != "Cart" {
		t.Errorf("name = %q", rows[0].Draft.Name)
	}
}

func TestParseMatchesHeadersAndLabels(t *testing.T) {
	buf := sheet(t, [][]any{
		{"opening type", "Unrelated", " NAME ", "material type", "Hinge Side"},
		{"Top Hung", "ignored", "Skylight", "window", "none"},
		{"", "", "", "", ""},
		{"NO_DOORS", "", "Cupboard", "OFFICE_CABINET", ""},
	})

	rows, err := Parse(buf)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("blank row should be skipped, got %d rows", len(rows))
	}

	first := rows[0].Draft
	if first.Name != "Skylight" || first.MaterialType != "WINDOW" {
		t.Errorf("unexpected draft %+v", first)
	}
	if first.OpeningType != string(taxonomy.WindowTopHung) {
		t.Errorf("opening type = %q", first.OpeningType)
	}
	if first.HingeSide != string(taxonomy.HingeNone) {
		t.Errorf("hinge side = %q", first.HingeSide)
	}

	if rows[1].Line != 4 {
		t.Errorf("second row line = %d, want 4", rows[1].Line)
	}
	if rows[1].Draft.OpeningType != string(taxonomy.CabinetNoDoors) {
		t.Errorf("cabinet opening = %q", rows[1].Draft.OpeningType)
	}
}

func TestParseWithoutHeader(t *testing.T) {
	buf := sheet(t, [][]any{{"foo", "bar"}, {"1", "2"}})
	if _, err := Parse(buf); !errors.Is(err, ErrNoHeader) {
		t.Errorf("expected ErrNoHeader, got %v", err)
	}
}

func TestParseRejectsGarbage(t *testing.T) {
	if _, err := Parse(bytes.NewReader([]byte("not a workbook"))); err == nil {
		t.Error("expected error for non-xlsx input")
	}
}

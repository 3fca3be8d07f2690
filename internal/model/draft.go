package model

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/erazemk/reclaim/internal/taxonomy"
)

var (
	ErrUnknownField = errors.New("unknown field")
	ErrUnknownType  = errors.New("unknown material type")
	ErrInvalidValue = errors.New("invalid value")
	ErrNotNumber    = errors.New("not a number")
	ErrNotBoolean   = errors.New("not a yes/no value")
)

// Draft is a record under edit: every field is optional and the attribute
// set is flat. It is also the JSON body of create and update requests, where
// absent fields are left untouched.
type Draft struct {
	Name         string   `json:"name,omitempty"`
	Category     string   `json:"category,omitempty"`
	MaterialType string   `json:"materialType,omitempty"`
	Condition    string   `json:"condition,omitempty"`
	Color        string   `json:"color,omitempty"`
	Notes        string   `json:"notes,omitempty"`
	Width        *float64 `json:"width,omitempty"`
	Height       *float64 `json:"height,omitempty"`
	Depth        *float64 `json:"depth,omitempty"`

	DeskType         string   `json:"deskType,omitempty"`
	HeightAdjustable *bool    `json:"heightAdjustable,omitempty"`
	MaximumHeight    *float64 `json:"maximumHeight,omitempty"`
	OpeningType      string   `json:"openingType,omitempty"`
	HingeSide        string   `json:"hingeSide,omitempty"`
	UValue           *float64 `json:"uValue,omitempty"`
	SwingDirection   string   `json:"swingDirection,omitempty"`
	HasWheels        *bool    `json:"hasWheels,omitempty"`
}

func (d *Draft) str(f taxonomy.Field) *string {
	switch f {
	case taxonomy.FieldName:
		return &d.Name
	case taxonomy.FieldCategory:
		return &d.Category
	case taxonomy.FieldMaterialType:
		return &d.MaterialType
	case taxonomy.FieldCondition:
		return &d.Condition
	case taxonomy.FieldColor:
		return &d.Color
	case taxonomy.FieldNotes:
		return &d.Notes
	case taxonomy.FieldDeskType:
		return &d.DeskType
	case taxonomy.FieldOpeningType:
		return &d.OpeningType
	case taxonomy.FieldHingeSide:
		return &d.HingeSide
	case taxonomy.FieldSwingDirection:
		return &d.SwingDirection
	}
	return nil
}

func (d *Draft) num(f taxonomy.Field) **float64 {
	switch f {
	case taxonomy.FieldWidth:
		return &d.Width
	case taxonomy.FieldHeight:
		return &d.Height
	case taxonomy.FieldDepth:
		return &d.Depth
	case taxonomy.FieldMaximumHeight:
		return &d.MaximumHeight
	case taxonomy.FieldUValue:
		return &d.UValue
	}
	return nil
}

func (d *Draft) flag(f taxonomy.Field) **bool {
	switch f {
	case taxonomy.FieldHeightAdjustable:
		return &d.HeightAdjustable
	case taxonomy.FieldHasWheels:
		return &d.HasWheels
	}
	return nil
}

// Set assigns a raw text value to field f. Numeric and boolean fields are
// parsed; an empty value clears them. On a parse error the field is cleared
// and the error wraps ErrNotNumber or ErrNotBoolean.
func (d *Draft) Set(f taxonomy.Field, raw string) error {
	raw = strings.TrimSpace(raw)

	if p := d.str(f); p != nil {
		*p = raw
		return nil
	}

	if p := d.num(f); p != nil {
		*p = nil
		if raw == "" {
			return nil
		}
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return fmt.Errorf("%s %q: %w", f, raw, ErrNotNumber)
		}
		*p = &v
		return nil
	}

	if p := d.flag(f); p != nil {
		*p = nil
		if raw == "" {
			return nil
		}
		v, ok := parseBool(raw)
		if !ok {
			return fmt.Errorf("%s %q: %w", f, raw, ErrNotBoolean)
		}
		*p = &v
		return nil
	}

	return fmt.Errorf("%s: %w", f, ErrUnknownField)
}

func parseBool(s string) (bool, bool) {
	switch strings.ToLower(s) {
	case "true", "yes", "y", "1":
		return true, true
	case "false", "no", "n", "0":
		return false, true
	}
	return false, false
}

// Value returns the current value of field f: a string, a *float64 or a
// *bool. Unknown fields yield nil.
func (d Draft) Value(f taxonomy.Field) any {
	if p := d.str(f); p != nil {
		return *p
	}
	if p := d.num(f); p != nil {
		return *p
	}
	if p := d.flag(f); p != nil {
		return *p
	}
	return nil
}

// Text renders field f as plain text, the inverse of Set.
func (d Draft) Text(f taxonomy.Field) string {
	switch v := d.Value(f).(type) {
	case string:
		return v
	case *float64:
		if v == nil {
			return ""
		}
		return strconv.FormatFloat(*v, 'f', -1, 64)
	case *bool:
		if v == nil {
			return ""
		}
		if *v {
			return "Yes"
		}
		return "No"
	}
	return ""
}

// Changed lists the fields whose values differ between d and other, in
// canonical order.
func (d Draft) Changed(other Draft) []taxonomy.Field {
	var out []taxonomy.Field
	for _, f := range taxonomy.Fields() {
		if d.Text(f) != other.Text(f) {
			out = append(out, f)
		}
	}
	return out
}

// Record converts the draft into a typed record. The material type and every
// enumerated value must belong to the taxonomy. Completeness is not checked
// here; that is the validator's job.
func (d Draft) Record() (MaterialRecord, error) {
	t := taxonomy.MaterialType(d.MaterialType)
	if !taxonomy.ValidMaterialType(d.MaterialType) {
		return MaterialRecord{}, fmt.Errorf("%w: %q", ErrUnknownType, d.MaterialType)
	}

	enums := []taxonomy.Field{taxonomy.FieldCategory, taxonomy.FieldCondition}
	for _, f := range taxonomy.Fields() {
		if taxonomy.Lookup(t).Has(f) && taxonomy.Options(t, f) != nil {
			enums = append(enums, f)
		}
	}
	for _, f := range enums {
		v := *d.str(f)
		if v != "" && !taxonomy.Allowed(t, f, v) {
			return MaterialRecord{}, fmt.Errorf("%s %q: %w", f, v, ErrInvalidValue)
		}
	}

	return d.build(), nil
}

// build converts without checking. Fields outside the type's schema are
// dropped.
func (d Draft) build() MaterialRecord {
	r := MaterialRecord{
		Name:      d.Name,
		Category:  taxonomy.Category(d.Category),
		Condition: taxonomy.Condition(d.Condition),
		Color:     d.Color,
		Notes:     d.Notes,
		Depth:     copyFloat(d.Depth),
	}
	if d.Width != nil {
		r.Width = *d.Width
	}
	if d.Height != nil {
		r.Height = *d.Height
	}

	switch t := taxonomy.MaterialType(d.MaterialType); t {
	case taxonomy.TypeDesk:
		desk := Desk{DeskType: taxonomy.DeskType(d.DeskType)}
		if d.HeightAdjustable != nil {
			desk.HeightAdjustable = *d.HeightAdjustable
		}
		if desk.HeightAdjustable {
			desk.MaximumHeight = copyFloat(d.MaximumHeight)
		}
		r.Attributes = desk
	case taxonomy.TypeWindow:
		r.Attributes = Window{
			OpeningType: taxonomy.WindowOpening(d.OpeningType),
			HingeSide:   taxonomy.HingeSide(d.HingeSide),
			UValue:      copyFloat(d.UValue),
		}
	case taxonomy.TypeDoor:
		r.Attributes = Door{
			SwingDirection: taxonomy.SwingDirection(d.SwingDirection),
			UValue:         copyFloat(d.UValue),
		}
	case taxonomy.TypeOfficeCabinet:
		r.Attributes = OfficeCabinet{OpeningType: taxonomy.CabinetOpening(d.OpeningType)}
	case taxonomy.TypeDrawerUnit:
		var wheels bool
		if d.HasWheels != nil {
			wheels = *d.HasWheels
		}
		r.Attributes = DrawerUnit{HasWheels: wheels}
	case "":
	default:
		r.Attributes = Other{Type: t}
	}
	return r
}

// Overlay returns a copy of d with every field that is set in patch replaced.
// Empty strings and nil values in patch leave d's value in place.
func (d Draft) Overlay(patch Draft) Draft {
	out := d.Clone()
	p := patch.Clone()
	for _, f := range taxonomy.Fields() {
		if v := p.str(f); v != nil && *v != "" {
			*out.str(f) = *v
		}
		if v := p.num(f); v != nil && *v != nil {
			*out.num(f) = *v
		}
		if v := p.flag(f); v != nil && *v != nil {
			*out.flag(f) = *v
		}
	}
	return out
}

// Clone returns a deep copy of the draft.
func (d Draft) Clone() Draft {
	c := d
	c.Width = copyFloat(d.Width)
	c.Height = copyFloat(d.Height)
	c.Depth = copyFloat(d.Depth)
	c.MaximumHeight = copyFloat(d.MaximumHeight)
	c.UValue = copyFloat(d.UValue)
	c.HeightAdjustable = copyBool(d.HeightAdjustable)
	c.HasWheels = copyBool(d.HasWheels)
	return c
}

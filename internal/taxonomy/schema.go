package taxonomy

// Field names a record attribute as it appears on the wire and in forms.
type Field string

// Fields.
const (
	FieldName             Field = "name"
	FieldCategory         Field = "category"
	FieldMaterialType     Field = "materialType"
	FieldCondition        Field = "condition"
	FieldColor            Field = "color"
	FieldNotes            Field = "notes"
	FieldWidth            Field = "width"
	FieldHeight           Field = "height"
	FieldDepth            Field = "depth"
	FieldDeskType         Field = "deskType"
	FieldHeightAdjustable Field = "heightAdjustable"
	FieldMaximumHeight    Field = "maximumHeight"
	FieldOpeningType      Field = "openingType"
	FieldHingeSide        Field = "hingeSide"
	FieldUValue           Field = "uValue"
	FieldSwingDirection   Field = "swingDirection"
	FieldHasWheels        Field = "hasWheels"
)

// fields is the canonical field order, shared with the spreadsheet columns.
var fields = []Field{
	FieldName,
	FieldCategory,
	FieldMaterialType,
	FieldCondition,
	FieldColor,
	FieldNotes,
	FieldWidth,
	FieldHeight,
	FieldDepth,
	FieldDeskType,
	FieldHeightAdjustable,
	FieldMaximumHeight,
	FieldOpeningType,
	FieldHingeSide,
	FieldUValue,
	FieldSwingDirection,
	FieldHasWheels,
}

var labels = map[Field]string{
	FieldName:             "Name",
	FieldCategory:         "Category",
	FieldMaterialType:     "Material type",
	FieldCondition:        "Condition",
	FieldColor:            "Color",
	FieldNotes:            "Notes",
	FieldWidth:            "Width",
	FieldHeight:           "Height",
	FieldDepth:            "Depth",
	FieldDeskType:         "Desk type",
	FieldHeightAdjustable: "Height adjustable",
	FieldMaximumHeight:    "Maximum height",
	FieldOpeningType:      "Opening type",
	FieldHingeSide:        "Hinge side",
	FieldUValue:           "U-value",
	FieldSwingDirection:   "Swing direction",
	FieldHasWheels:        "Has wheels",
}

// Fields returns every known field in canonical order.
func Fields() []Field {
	out := make([]Field, len(fields))
	copy(out, fields)
	return out
}

// Known reports whether f is a known field name.
func Known(f Field) bool {
	_, ok := labels[f]
	return ok
}

// Label returns the human label of a field.
func Label(f Field) string {
	if l, ok := labels[f]; ok {
		return l
	}
	return string(f)
}

// Numeric reports whether f holds a number.
func Numeric(f Field) bool {
	switch f {
	case FieldWidth, FieldHeight, FieldDepth, FieldMaximumHeight, FieldUValue:
		return true
	}
	return false
}

// Boolean reports whether f holds a yes/no value.
func Boolean(f Field) bool {
	return f == FieldHeightAdjustable || f == FieldHasWheels
}

// Conditional is a field that is required only while the boolean field When
// is true.
type Conditional struct {
	Field Field
	When  Field
}

// Schema lists the type-specific attributes of a material type. Common
// fields (see CommonRequired) are not repeated here.
type Schema struct {
	Type        MaterialType
	Label       string
	Required    []Field
	Conditional []Conditional
	Optional    []Field
}

// Has reports whether the schema carries field f in any role.
func (s Schema) Has(f Field) bool {
	for _, r := range s.Required {
		if r == f {
			return true
		}
	}
	for _, c := range s.Conditional {
		if c.Field == f {
			return true
		}
	}
	for _, o := range s.Optional {
		if o == f {
			return true
		}
	}
	return false
}

// Requires reports whether f is unconditionally required by the schema.
func (s Schema) Requires(f Field) bool {
	for _, r := range s.Required {
		if r == f {
			return true
		}
	}
	return false
}

// Condition returns the boolean field that gates f, if f is conditional.
func (s Schema) Condition(f Field) (Field, bool) {
	for _, c := range s.Conditional {
		if c.Field == f {
			return c.When, true
		}
	}
	return "", false
}

var schemas = map[MaterialType]Schema{
	TypeDesk: {
		Type:        TypeDesk,
		Label:       "Desk",
		Required:    []Field{FieldDepth, FieldDeskType},
		Conditional: []Conditional{{Field: FieldMaximumHeight, When: FieldHeightAdjustable}},
		Optional:    []Field{FieldHeightAdjustable},
	},
	TypeWindow: {
		Type:     TypeWindow,
		Label:    "Window",
		Required: []Field{FieldDepth, FieldOpeningType},
		Optional: []Field{FieldHingeSide, FieldUValue},
	},
	TypeDoor: {
		Type:     TypeDoor,
		Label:    "Door",
		Required: []Field{FieldDepth, FieldSwingDirection},
		Optional: []Field{FieldUValue},
	},
	TypeOfficeCabinet: {
		Type:     TypeOfficeCabinet,
		Label:    "Office Cabinet",
		Required: []Field{FieldDepth, FieldOpeningType},
	},
	TypeDrawerUnit: {
		Type:     TypeDrawerUnit,
		Label:    "Drawer Unit",
		Required: []Field{FieldDepth},
		Optional: []Field{FieldHasWheels},
	},
}

// Lookup returns the attribute schema of t. Unknown types get the zero
// Schema, which carries no extra fields.
func Lookup(t MaterialType) Schema {
	return schemas[t]
}

var commonRequired = []Field{
	FieldName,
	FieldCategory,
	FieldMaterialType,
	FieldCondition,
	FieldColor,
	FieldWidth,
	FieldHeight,
}

// CommonRequired returns the fields every record needs regardless of type.
func CommonRequired() []Field {
	out := make([]Field, len(commonRequired))
	copy(out, commonRequired)
	return out
}

// Options returns the allowed values of an enumerated field under the given
// material type. openingType resolves to the window or cabinet set. Nil means
// the field is not enumerated for that type.
func Options(t MaterialType, f Field) []Option {
	switch f {
	case FieldCategory:
		return Categories()
	case FieldMaterialType:
		return MaterialTypes()
	case FieldCondition:
		return Conditions()
	}

	if !Lookup(t).Has(f) {
		return nil
	}

	switch f {
	case FieldDeskType:
		return clone(deskTypes)
	case FieldHingeSide:
		return clone(hingeSides)
	case FieldSwingDirection:
		return clone(swingDirections)
	case FieldOpeningType:
		if t == TypeOfficeCabinet {
			return clone(cabinetOpenings)
		}
		return clone(windowOpenings)
	}
	return nil
}

// Allowed reports whether v is an allowed value of f under type t. Fields
// that are not enumerated accept anything.
func Allowed(t MaterialType, f Field, v string) bool {
	opts := Options(t, f)
	if opts == nil {
		return true
	}
	return contains(opts, v)
}

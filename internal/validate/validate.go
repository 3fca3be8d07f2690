// Package validate checks material drafts against the taxonomy schema of
// their material type. It is pure and safe to call on every keystroke.
package validate

import (
	"errors"
	"sort"
	"strings"

	"github.com/erazemk/reclaim/internal/model"
	"github.com/erazemk/reclaim/internal/taxonomy"
)

// Context is the part of a draft that changes which rules apply.
type Context struct {
	MaterialType     taxonomy.MaterialType
	HeightAdjustable bool
}

// ContextOf extracts the validation context from a draft.
func ContextOf(d model.Draft) Context {
	ctx := Context{MaterialType: taxonomy.MaterialType(d.MaterialType)}
	if d.HeightAdjustable != nil {
		ctx.HeightAdjustable = *d.HeightAdjustable
	}
	return ctx
}

// Errors maps a field to its message. An empty map means the draft can be
// submitted.
type Errors map[taxonomy.Field]string

// Err returns e as an error, or nil when empty.
func (e Errors) Err() error {
	if len(e) == 0 {
		return nil
	}
	return e
}

func (e Errors) Error() string {
	keys := make([]string, 0, len(e))
	for f := range e {
		keys = append(keys, string(f))
	}
	sort.Strings(keys)

	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = k + ": " + e[taxonomy.Field(k)]
	}
	return strings.Join(parts, "; ")
}

var common = map[taxonomy.Field]bool{
	taxonomy.FieldName:         true,
	taxonomy.FieldCategory:     true,
	taxonomy.FieldMaterialType: true,
	taxonomy.FieldCondition:    true,
	taxonomy.FieldColor:        true,
	taxonomy.FieldNotes:        true,
	taxonomy.FieldWidth:        true,
	taxonomy.FieldHeight:       true,
}

func required(f taxonomy.Field, ctx Context) bool {
	for _, r := range taxonomy.CommonRequired() {
		if r == f {
			return true
		}
	}
	s := taxonomy.Lookup(ctx.MaterialType)
	if s.Requires(f) {
		return true
	}
	if when, ok := s.Condition(f); ok && when == taxonomy.FieldHeightAdjustable {
		return ctx.HeightAdjustable
	}
	return false
}

// missing reports whether v counts as not filled in. Strings are trimmed and
// a nil number is missing, never zero.
func missing(v any) bool {
	switch v := v.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(v) == ""
	case *string:
		return v == nil || strings.TrimSpace(*v) == ""
	case *float64:
		return v == nil
	case *bool:
		return v == nil
	}
	return false
}

func invalid(f taxonomy.Field) string {
	return "Invalid " + strings.ToLower(taxonomy.Label(f))
}

// ValidateField returns the error message for one field, or "" when the value
// is acceptable. Fields outside the active schema are not checked.
func ValidateField(f taxonomy.Field, value any, ctx Context) string {
	if !common[f] && !taxonomy.Lookup(ctx.MaterialType).Has(f) {
		return ""
	}

	if missing(value) {
		if required(f, ctx) {
			return taxonomy.Label(f) + " is required"
		}
		return ""
	}

	if s, ok := value.(string); ok && taxonomy.Options(ctx.MaterialType, f) != nil {
		if !taxonomy.Allowed(ctx.MaterialType, f, strings.TrimSpace(s)) {
			return invalid(f)
		}
	}
	return ""
}

// ValidateAll validates every field of d. The result is never nil.
func ValidateAll(d model.Draft) Errors {
	ctx := ContextOf(d)
	errs := Errors{}
	for _, f := range taxonomy.Fields() {
		if msg := ValidateField(f, d.Value(f), ctx); msg != "" {
			errs[f] = msg
		}
	}
	return errs
}

// Change applies a raw input to d and returns the message for that field.
// Numeric and boolean inputs that do not parse clear the field and report a
// format error instead of "required".
func Change(d *model.Draft, f taxonomy.Field, raw string) string {
	err := d.Set(f, raw)
	if err != nil {
		return ParseMessage(f, err)
	}
	return ValidateField(f, d.Value(f), ContextOf(*d))
}

// ParseMessage turns an error from Draft.Set into the message shown next to
// field f. Unknown fields yield "".
func ParseMessage(f taxonomy.Field, err error) string {
	switch {
	case errors.Is(err, model.ErrNotNumber):
		return taxonomy.Label(f) + " must be a number"
	case errors.Is(err, model.ErrNotBoolean):
		return invalid(f)
	}
	return ""
}

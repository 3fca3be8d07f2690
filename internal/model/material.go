package model

import (
	"encoding/json"
	"time"

	"github.com/erazemk/reclaim/internal/taxonomy"
)

// MaterialRecord is one physical reclaimed item.
type MaterialRecord struct {
	ID        int64 // zero until the backend assigns one
	Name      string
	Category  taxonomy.Category
	Condition taxonomy.Condition
	Color     string
	Notes     string
	Width     float64
	Height    float64
	Depth     *float64

	// Attributes holds the type-specific fields. Its concrete type decides
	// the record's material type.
	Attributes Attributes

	Pictures  []Picture
	DateAdded time.Time
}

// MaterialType returns the type tag of the record's attributes.
func (r MaterialRecord) MaterialType() taxonomy.MaterialType {
	if r.Attributes == nil {
		return ""
	}
	return r.Attributes.MaterialType()
}

// PrimaryPicture returns the picture flagged primary, or nil.
func (r MaterialRecord) PrimaryPicture() *Picture {
	for i := range r.Pictures {
		if r.Pictures[i].IsPrimary {
			return &r.Pictures[i]
		}
	}
	return nil
}

// Draft flattens the record into its form shape.
func (r MaterialRecord) Draft() Draft {
	d := Draft{
		Name:      r.Name,
		Category:  string(r.Category),
		Condition: string(r.Condition),
		Color:     r.Color,
		Notes:     r.Notes,
		Width:     floatPtr(r.Width),
		Height:    floatPtr(r.Height),
		Depth:     copyFloat(r.Depth),
	}
	if r.Attributes != nil {
		d.MaterialType = string(r.Attributes.MaterialType())
		r.Attributes.fill(&d)
	}
	return d
}

// wireRecord is the flat JSON shape exchanged with the backend.
type wireRecord struct {
	ID int64 `json:"id,omitempty"`
	Draft
	Pictures  []Picture  `json:"pictures,omitempty"`
	DateAdded *time.Time `json:"dateAdded,omitempty"`
}

// MarshalJSON encodes the record with its attributes flattened to the top
// level.
func (r MaterialRecord) MarshalJSON() ([]byte, error) {
	w := wireRecord{ID: r.ID, Draft: r.Draft(), Pictures: r.Pictures}
	if !r.DateAdded.IsZero() {
		t := r.DateAdded
		w.DateAdded = &t
	}
	return json.Marshal(w)
}

// UnmarshalJSON decodes the flat shape. Unknown material types decode to
// Other so that a record from a newer backend still loads.
func (r *MaterialRecord) UnmarshalJSON(data []byte) error {
	var w wireRecord
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	rec := w.Draft.build()
	rec.ID = w.ID
	rec.Pictures = w.Pictures
	if w.DateAdded != nil {
		rec.DateAdded = *w.DateAdded
	}
	*r = rec
	return nil
}

func floatPtr(v float64) *float64 { return &v }

func copyFloat(p *float64) *float64 {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func copyBool(p *bool) *bool {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

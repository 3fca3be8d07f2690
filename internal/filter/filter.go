// Package filter narrows an in-memory set of material records by free-text
// query and by category, material type and condition selections.
//
// Groups combine with AND, values inside one group with OR. Narrowing runs
// in a fixed order (text, category, type, condition) as a plain linear scan;
// record sets are small enough that no index is kept.
package filter

import (
	"slices"
	"strings"

	"github.com/erazemk/reclaim/internal/model"
)

// Group names one multi-select filter group.
type Group string

const (
	GroupCategory     Group = "category"
	GroupMaterialType Group = "materialType"
	GroupCondition    Group = "condition"
)

// State is the current query and filter selections.
type State struct {
	Query         string   `json:"query,omitempty"`
	Categories    []string `json:"categories,omitempty"`
	MaterialTypes []string `json:"materialTypes,omitempty"`
	Conditions    []string `json:"conditions,omitempty"`
}

func (s *State) group(g Group) *[]string {
	switch g {
	case GroupCategory:
		return &s.Categories
	case GroupMaterialType:
		return &s.MaterialTypes
	case GroupCondition:
		return &s.Conditions
	}
	return nil
}

// Active reports whether any query or selection is set.
func (s State) Active() bool {
	return strings.TrimSpace(s.Query) != "" ||
		len(s.Categories) > 0 || len(s.MaterialTypes) > 0 || len(s.Conditions) > 0
}

// Selected returns the values selected in group g.
func (s State) Selected(g Group) []string {
	if p := s.group(g); p != nil {
		return *p
	}
	return nil
}

// Toggle adds value to group g, or removes it if already selected.
func (s *State) Toggle(g Group, value string) {
	p := s.group(g)
	if p == nil {
		return
	}
	if i := slices.Index(*p, value); i >= 0 {
		*p = slices.Delete(slices.Clone(*p), i, i+1)
		return
	}
	*p = append(slices.Clone(*p), value)
}

// Remove drops value from group g.
func (s *State) Remove(g Group, value string) {
	p := s.group(g)
	if p == nil {
		return
	}
	*p = slices.DeleteFunc(slices.Clone(*p), func(v string) bool { return v == value })
}

// Clear resets the query and every selection.
func (s *State) Clear() {
	*s = State{}
}

// Search keeps records whose name, category, material type or condition
// contains query, ignoring case. An empty query returns records unchanged.
func Search(records []model.MaterialRecord, query string) []model.MaterialRecord {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return records
	}

	out := make([]model.MaterialRecord, 0, len(records))
	for _, r := range records {
		if matches(r, q) {
			out = append(out, r)
		}
	}
	return out
}

func matches(r model.MaterialRecord, q string) bool {
	for _, v := range []string{r.Name, string(r.Category), string(r.MaterialType()), string(r.Condition)} {
		if strings.Contains(strings.ToLower(v), q) {
			return true
		}
	}
	return false
}

func value(r model.MaterialRecord, g Group) string {
	switch g {
	case GroupCategory:
		return string(r.Category)
	case GroupMaterialType:
		return string(r.MaterialType())
	case GroupCondition:
		return string(r.Condition)
	}
	return ""
}

func narrow(records []model.MaterialRecord, g Group, selected []string) []model.MaterialRecord {
	if len(selected) == 0 {
		return records
	}
	out := make([]model.MaterialRecord, 0, len(records))
	for _, r := range records {
		v := value(r, g)
		if v != "" && slices.Contains(selected, v) {
			out = append(out, r)
		}
	}
	return out
}

// Apply narrows by the three selection groups. Records with an empty value
// for an active group never match it.
func Apply(records []model.MaterialRecord, s State) []model.MaterialRecord {
	records = narrow(records, GroupCategory, s.Categories)
	records = narrow(records, GroupMaterialType, s.MaterialTypes)
	return narrow(records, GroupCondition, s.Conditions)
}

// Run applies the full pipeline: text search, then the selection groups.
func Run(records []model.MaterialRecord, s State) []model.MaterialRecord {
	return Apply(Search(records, s.Query), s)
}

// Decode parses a list response body and runs the pipeline over it. A body of
// the wrong shape yields an empty slice and the decode error.
func Decode(body []byte, s State) ([]model.MaterialRecord, error) {
	records, err := model.DecodeList[model.MaterialRecord](body)
	if err != nil {
		return []model.MaterialRecord{}, err
	}
	return Run(records, s), nil
}

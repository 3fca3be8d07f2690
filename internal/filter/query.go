package filter

import (
	"net/url"
	"strings"
)

// FromQuery reads a State from URL query parameters. Each group accepts
// repeated keys and comma-separated values; material types may be given as
// "type" or "materialType".
func FromQuery(v url.Values) State {
	return State{
		Query:         v.Get("query"),
		Categories:    split(v["category"]),
		MaterialTypes: split(append(v["type"], v["materialType"]...)),
		Conditions:    split(v["condition"]),
	}
}

// Values encodes s as URL query parameters, the inverse of FromQuery.
func (s State) Values() url.Values {
	v := url.Values{}
	if q := strings.TrimSpace(s.Query); q != "" {
		v.Set("query", q)
	}
	for _, c := range s.Categories {
		v.Add("category", c)
	}
	for _, t := range s.MaterialTypes {
		v.Add("type", t)
	}
	for _, c := range s.Conditions {
		v.Add("condition", c)
	}
	return v
}

func split(raw []string) []string {
	var out []string
	for _, r := range raw {
		for _, p := range strings.Split(r, ",") {
			if p = strings.TrimSpace(p); p != "" {
				out = append(out, p)
			}
		}
	}
	return out
}

package model

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// ErrUnexpectedShape is returned when a list body is neither an array nor a
// page object.
var ErrUnexpectedShape = errors.New("unexpected response shape")

// Page is the paginated list envelope.
type Page[T any] struct {
	Content       []T   `json:"content"`
	TotalElements int64 `json:"totalElements"`
	TotalPages    int   `json:"totalPages"`
	Number        int   `json:"number"`
	Size          int   `json:"size"`
}

// NewPage slices all into the page with the given zero-based number. A size
// of zero or less returns everything as a single page.
func NewPage[T any](all []T, number, size int) Page[T] {
	total := len(all)
	if size <= 0 {
		size = total
		number = 0
	}
	p := Page[T]{TotalElements: int64(total), Number: number, Size: size, Content: []T{}}
	if size > 0 {
		p.TotalPages = total / size
		if total%size != 0 {
			p.TotalPages++
		}
	}
	// Division keeps a huge number or size from overflowing.
	if number < 0 || total == 0 || number > (total-1)/size {
		return p
	}
	start := number * size
	end := min(start+size, total)
	p.Content = all[start:end]
	return p
}

// DecodeList decodes either a bare JSON array or a Page envelope and returns
// the items. The result is never nil.
func DecodeList[T any](data []byte) ([]T, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return []T{}, fmt.Errorf("decode list: empty body: %w", ErrUnexpectedShape)
	}

	switch trimmed[0] {
	case '[':
		var items []T
		if err := json.Unmarshal(trimmed, &items); err != nil {
			return []T{}, fmt.Errorf("decode list: %w", err)
		}
		if items == nil {
			items = []T{}
		}
		return items, nil
	case '{':
		var env map[string]json.RawMessage
		if err := json.Unmarshal(trimmed, &env); err != nil {
			return []T{}, fmt.Errorf("decode list: %w", err)
		}
		raw, ok := env["content"]
		if !ok {
			return []T{}, fmt.Errorf("decode list: object without content: %w", ErrUnexpectedShape)
		}
		c := bytes.TrimSpace(raw)
		if string(c) == "null" {
			return []T{}, nil
		}
		if len(c) == 0 || c[0] != '[' {
			return []T{}, fmt.Errorf("decode list: content is not an array: %w", ErrUnexpectedShape)
		}
		return DecodeList[T](c)
	}
	return []T{}, fmt.Errorf("decode list: %w", ErrUnexpectedShape)
}

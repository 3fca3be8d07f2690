package model

// RowError lists the problems of one spreadsheet row. Row is 1-based and
// counts the header.
type RowError struct {
	Row    int               `json:"row"`
	Fields map[string]string `json:"fields"`
}

// ImportSummary is the outcome of a bulk import.
type ImportSummary struct {
	BatchID string     `json:"batchId,omitempty"`
	Created int        `json:"created"`
	Failed  int        `json:"failed"`
	Errors  []RowError `json:"errors"`
}

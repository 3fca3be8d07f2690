package model

import "time"

// Picture is a photo attached to a material record. The image bytes are
// served separately.
type Picture struct {
	ID          int64     `json:"id"`
	MaterialID  int64     `json:"-"`
	FileName    string    `json:"fileName"`
	ContentType string    `json:"contentType"`
	FileSize    int64     `json:"fileSize"`
	UploadDate  time.Time `json:"uploadDate"`
	IsPrimary   bool      `json:"isPrimary"`
	Description string    `json:"description"`
}

package model

import "time"

// Audit trail actions.
const (
	ActionCreated = "CREATED"
	ActionUpdated = "UPDATED"
	ActionDeleted = "DELETED"
)

// Activity is one audit trail entry. Names are copied at write time so that
// entries outlive the material and user they mention.
type Activity struct {
	ID           int64     `json:"id"`
	MaterialID   int64     `json:"materialId"`
	MaterialName string    `json:"materialName"`
	UserID       int64     `json:"userId"`
	UserName     string    `json:"userName"`
	Action       string    `json:"action"`
	Details      string    `json:"details,omitempty"`
	Timestamp    time.Time `json:"timestamp"`
}

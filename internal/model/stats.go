package model

// Stats summarizes the inventory for the dashboard.
type Stats struct {
	TotalCount           int            `json:"totalCount"`
	ConditionCounts      map[string]int `json:"conditionCounts"`
	CategoryCounts       map[string]int `json:"categoryCounts"`
	TypeCounts           map[string]int `json:"typeCounts"`
	RecentAdditionsCount int            `json:"recentAdditionsCount"`
}

// RecentWindowDays is how far back RecentAdditionsCount looks.
const RecentWindowDays = 30

package domain

import (
	"fmt"
	"time"
)

type Granularity string

const (
	GroupByDay   Granularity = "DAY"
	GroupByWeek  Granularity = "WEEK"
	GroupByMonth Granularity = "MONTH"
)

func ParseGranularity(s string) (Granularity, error) {
	switch Granularity(s) {
	case GroupByDay, GroupByWeek, GroupByMonth:
		return Granularity(s), nil
	default:
		return "", fmt.Errorf("invalid group_by %q", s)
	}
}

// UsageBucket is one half-open time interval of aggregated send counts.
// Sent counts entries whose status implies a successful send
// (SENT, DELIVERED, OPENED); read counts OPENED; total counts everything
// in the bucket regardless of status.
type UsageBucket struct {
	Timestamp time.Time `json:"timestamp"`
	Total     int       `json:"total"`
	Sent      int       `json:"sent"`
	Failed    int       `json:"failed"`
	Read      int       `json:"read"`
}

// UsageScope selects either a single app or every app owned by a user.
type UsageScope struct {
	AppID  string
	UserID string
}

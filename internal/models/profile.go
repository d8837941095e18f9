package models

import "time"

// Profile is the per-user points record.
type Profile struct {
	ID        string     `db:"id" json:"id"`
	Points    int        `db:"points" json:"points"`
	LastLogin *time.Time `db:"last_login" json:"last_login"`
}

// CommunityStats is the singleton aggregate row (id = 1).
type CommunityStats struct {
	TotalBottlesRecycled int64 `db:"total_bottles_recycled" json:"total_bottles_recycled"`
	ActiveRecyclers      int64 `db:"active_recyclers" json:"active_recyclers"`
}

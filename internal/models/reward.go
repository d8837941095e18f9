package models

import "time"

type Reward struct {
	ID        int64     `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	Cost      int       `db:"cost" json:"cost"`
	Icon      string    `db:"icon" json:"icon"`
	ImageURL  *string   `db:"image_url" json:"image_url,omitempty"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// RewardInput is the writable part of a Reward.
type RewardInput struct {
	Name string `json:"name" yaml:"name"`
	Cost int    `json:"cost" yaml:"cost"`
	Icon string `json:"icon" yaml:"icon"`
}

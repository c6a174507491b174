package models

import "time"

// TimelineInsertedEvent is published after a demo's item was inserted into a
// user's timeline.
type TimelineInsertedEvent struct {
	UserID     string    `json:"user_id"`
	Demo       string    `json:"demo"`
	SourceID   string    `json:"source_item_id"`
	InsertedID string    `json:"inserted_item_id,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

// LocationUpdatedEvent is published after a user's stored location changed.
type LocationUpdatedEvent struct {
	UserID     string    `json:"user_id"`
	LocationID string    `json:"location_id"`
	Latitude   float64   `json:"latitude"`
	Longitude  float64   `json:"longitude"`
	OccurredAt time.Time `json:"occurred_at"`
}

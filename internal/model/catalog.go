package model

import "time"

// RoomType is an admin-managed space category (e.g. "meeting_room").
// Value is the slug derived from Label.
type RoomType struct {
	ID        string    `json:"id"`
	Value     string    `json:"value"`
	Label     string    `json:"label"`
	CreatedAt time.Time `json:"created_at"`
}

// Amenity is an admin-managed equipment tag with an optional icon name.
type Amenity struct {
	ID        string    `json:"id"`
	Value     string    `json:"value"`
	Label     string    `json:"label"`
	Icon      string    `json:"icon"`
	CreatedAt time.Time `json:"created_at"`
}

package model

import (
	"time"

	"github.com/goccy/go-json"
)

// Space is a bookable room or desk placed on a floor plan.
//
// Coordinates is stored verbatim: the frontend owns its shape (polygon
// points, rectangles, ...).  IsActive=false means the space is under
// maintenance and cannot take new bookings.
type Space struct {
	ID          string          `json:"id"`
	FloorID     string          `json:"floor_id"`
	Name        string          `json:"name"`
	Type        string          `json:"type"`
	Capacity    int             `json:"capacity"`
	Coordinates json.RawMessage `json:"coordinates"`
	Description string          `json:"description"`
	Amenities   []string        `json:"amenities"`
	IsActive    bool            `json:"is_active"`
	CreatedAt   time.Time       `json:"created_at"`
}

// SpaceWithFloor is the admin listing row.
type SpaceWithFloor struct {
	Space
	FloorName string `json:"floor_name"`
}

// SpacePatch carries the fields of a partial update; nil means unchanged.
type SpacePatch struct {
	Name        *string
	Type        *string
	Capacity    *int
	Description *string
	Amenities   []string
}

// Empty reports whether the patch changes nothing.
func (p SpacePatch) Empty() bool {
	return p.Name == nil && p.Type == nil && p.Capacity == nil && p.Description == nil && p.Amenities == nil
}

package model

import "time"

// Floor is one level of the office.  Width and Height describe the canvas
// the floor plan is drawn on and are optional.
type Floor struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Width     *int      `json:"width"`
	Height    *int      `json:"height"`
	CreatedAt time.Time `json:"created_at"`
}

// FloorStats summarises a floor for the dashboard.
type FloorStats struct {
	FloorID       string `json:"floor_id"`
	TotalSpaces   int    `json:"total_spaces"`
	ActiveSpaces  int    `json:"active_spaces"`
	TotalCapacity int    `json:"total_capacity"`
	BookingsToday int    `json:"bookings_today"`
	OccupiedNow   int    `json:"occupied_now"`
}

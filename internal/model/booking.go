package model

import "time"

// Booking is a reservation of one space for the half-open interval
// [StartTime, EndTime).  StartTime is always strictly before EndTime.
//
// Fields:
//
//	ID        – uuid primary key.
//	SpaceID   – the reserved space.
//	UserID    – profile the booking belongs to.
//	StartTime – inclusive start, UTC.
//	EndTime   – exclusive end, UTC.
//	CreatedAt – insertion time.
type Booking struct {
	ID        string    `json:"id"`
	SpaceID   string    `json:"space_id"`
	UserID    string    `json:"user_id"`
	StartTime time.Time `json:"start_time"`
	EndTime   time.Time `json:"end_time"`
	CreatedAt time.Time `json:"created_at"`
}

// UserBooking is a booking joined with the name and type of its space, as
// shown on a user's "my bookings" page.
type UserBooking struct {
	Booking
	SpaceName string `json:"space_name"`
	SpaceType string `json:"space_type"`
}

// AdminBooking is a booking joined with the space name and the owner's email.
type AdminBooking struct {
	Booking
	SpaceName string `json:"space_name"`
	UserEmail string `json:"user_email"`
}

// Overlaps reports whether [aStart, aEnd) and [bStart, bEnd) share any
// instant.  Intervals that only touch at a boundary do not overlap.
func Overlaps(aStart, aEnd, bStart, bEnd time.Time) bool {
	return aStart.Before(bEnd) && aEnd.After(bStart)
}

// Overlaps reports whether b conflicts with the interval [start, end).
func (b Booking) Overlaps(start, end time.Time) bool {
	return Overlaps(b.StartTime, b.EndTime, start, end)
}

// Package repository holds the MySQL data access code.  Sentinel errors let
// the service and handler layers tell failure scenarios apart without
// inspecting driver errors.
package repository

import (
	"errors"
	"strings"
)

var (
	ErrFloorNotFound    = errors.New("floor not found")
	ErrSpaceNotFound    = errors.New("space not found")
	ErrBookingNotFound  = errors.New("booking not found")
	ErrProfileNotFound  = errors.New("profile not found")
	ErrRoomTypeNotFound = errors.New("room type not found")
	ErrAmenityNotFound  = errors.New("amenity not found")

	// ErrBookingConflict means the requested interval overlaps an existing
	// booking of the same space.
	ErrBookingConflict = errors.New("time slot already booked")

	// ErrDuplicate is returned when a unique key (catalog value, primary key)
	// already exists.
	ErrDuplicate = errors.New("duplicate entry")

	ErrInvalidToken = errors.New("invalid refresh token")
)

// isDuplicate detects MySQL error 1062 (duplicate entry for key).
func isDuplicate(err error) bool {
	return err != nil && strings.Contains(strings.ToLower(err.Error()), "1062")
}

// placeholders returns "?,?,?" for n arguments.
func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}

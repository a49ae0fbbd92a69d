package model

import "time"

// Audit actions.
const (
	ActionConfigCreate      = "CONFIG_CREATE"
	ActionConfigDelete      = "CONFIG_DELETE"
	ActionUserRoleChange    = "USER_ROLE_CHANGE"
	ActionMaintenanceToggle = "MAINTENANCE_TOGGLE"
	ActionUpdateProfile     = "UPDATE_PROFILE"
	ActionBookingCreate     = "BOOKING_CREATE"
	ActionBookingCancel     = "BOOKING_CANCEL"
	ActionFloorCreate       = "FLOOR_CREATE"
	ActionFloorUpdate       = "FLOOR_UPDATE"
	ActionFloorDelete       = "FLOOR_DELETE"
	ActionSpaceSave         = "SPACE_SAVE"
	ActionSpaceUpdate       = "SPACE_UPDATE"
	ActionSpaceDelete       = "SPACE_DELETE"
)

// AuditEntry is one administrative action waiting to be persisted.
// ActorID is always the authenticated caller.
type AuditEntry struct {
	ID        string         `json:"id"`
	ActorID   string         `json:"actor_id"`
	Action    string         `json:"action"`
	Details   map[string]any `json:"details,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}

// AuditLog is a stored entry joined with the actor's email for the admin
// log viewer.
type AuditLog struct {
	AuditEntry
	ActorEmail string `json:"actor_email"`
}

// Package service holds the booking conflict resolver and the audit
// pipeline that sits beside it.
package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/office-booking/internal/apperror"
	"github.com/iliyamo/office-booking/internal/model"
	"github.com/iliyamo/office-booking/internal/repository"
)

// BookingStore is the persistence the resolver needs.  *repository.BookingRepo
// implements it.
type BookingStore interface {
	InTx(ctx context.Context, fn func(tx repository.BookingTx) error) error
	GetByID(ctx context.Context, id string) (*model.Booking, error)
	ListBySpace(ctx context.Context, spaceID string) ([]model.Booking, error)
	ListByUser(ctx context.Context, userID string) ([]model.UserBooking, error)
	ListAll(ctx context.Context) ([]model.AdminBooking, error)
	OccupiedSpaceIDs(ctx context.Context, start, end time.Time, floorID string) ([]string, error)
	Delete(ctx context.Context, id string) error
}

// AuditRecorder accepts audit entries without blocking the caller.
type AuditRecorder interface {
	Record(actorID, action string, details map[string]any)
}

// Actor is the verified identity behind a request.
type Actor struct {
	ID   string
	Role string
}

func (a Actor) IsAdmin() bool { return a.Role == model.RoleAdmin }

// CreateBookingInput is a booking request.  An empty UserID books for the
// actor.
type CreateBookingInput struct {
	SpaceID   string
	UserID    string
	StartTime time.Time
	EndTime   time.Time
}

var errSpaceInactive = errors.New("space inactive")

// ConflictMessage is returned to clients whose interval is taken.
const ConflictMessage = "Time slot already booked!"

type BookingService struct {
	store BookingStore
	audit AuditRecorder
	log   *logrus.Logger
	now   func() time.Time
	newID func() string
}

func NewBookingService(store BookingStore, audit AuditRecorder, log *logrus.Logger) *BookingService {
	return &BookingService{
		store: store,
		audit: audit,
		log:   log,
		now:   time.Now,
		newID: uuid.NewString,
	}
}

// TryCreateBooking inserts a booking unless it overlaps an existing booking
// of the same space.  The overlap check and the insert run while the space
// row is locked, so of two concurrent overlapping requests exactly one
// succeeds and the other gets a 409.
func (s *BookingService) TryCreateBooking(ctx context.Context, actor Actor, in CreateBookingInput) (*model.Booking, error) {
	if actor.ID == "" {
		return nil, apperror.Unauthorized("Authentication required")
	}
	if in.UserID == "" {
		in.UserID = actor.ID
	}
	if err := validateInterval(in.StartTime, in.EndTime); err != nil {
		return nil, err
	}
	if in.SpaceID == "" {
		return nil, apperror.Validation("Validation failed", apperror.FieldError{Field: "space_id", Message: "is required"})
	}
	if in.UserID != actor.ID && !actor.IsAdmin() {
		return nil, apperror.Forbidden("You can only book for yourself")
	}

	b := &model.Booking{
		ID:        s.newID(),
		SpaceID:   in.SpaceID,
		UserID:    in.UserID,
		StartTime: in.StartTime.UTC(),
		EndTime:   in.EndTime.UTC(),
		CreatedAt: s.now().UTC(),
	}
	err := s.store.InTx(ctx, func(tx repository.BookingTx) error {
		active, err := tx.LockSpace(ctx, b.SpaceID)
		if err != nil {
			return err
		}
		if !active {
			return errSpaceInactive
		}
		existing, err := tx.FindOverlapping(ctx, b.SpaceID, b.StartTime, b.EndTime)
		if err != nil {
			return err
		}
		for _, e := range existing {
			if e.Overlaps(b.StartTime, b.EndTime) {
				return repository.ErrBookingConflict
			}
		}
		return tx.Insert(ctx, b)
	})
	switch {
	case err == nil:
	case errors.Is(err, repository.ErrSpaceNotFound):
		return nil, apperror.NotFound("Space")
	case errors.Is(err, errSpaceInactive):
		return nil, apperror.Validation("Space is under maintenance")
	case errors.Is(err, repository.ErrBookingConflict):
		return nil, apperror.Conflict(ConflictMessage)
	default:
		s.log.WithError(err).WithField("space_id", b.SpaceID).Error("create booking failed")
		return nil, apperror.Internal("Failed to create booking", err)
	}

	s.log.WithFields(logrus.Fields{
		"booking_id": b.ID,
		"space_id":   b.SpaceID,
		"user_id":    b.UserID,
	}).Info("booking created")
	s.audit.Record(actor.ID, model.ActionBookingCreate, map[string]any{
		"booking_id": b.ID,
		"space_id":   b.SpaceID,
		"user_id":    b.UserID,
		"start_time": b.StartTime.Format(time.RFC3339),
		"end_time":   b.EndTime.Format(time.RFC3339),
	})
	return b, nil
}

// Occupied returns the ids of spaces with a booking overlapping
// [start, end), each id once.
func (s *BookingService) Occupied(ctx context.Context, start, end time.Time, floorID string) ([]string, error) {
	if err := validateInterval(start, end); err != nil {
		return nil, err
	}
	ids, err := s.store.OccupiedSpaceIDs(ctx, start.UTC(), end.UTC(), floorID)
	if err != nil {
		return nil, apperror.Internal("Failed to fetch occupied spaces", err)
	}
	return uniqueStrings(ids), nil
}

func (s *BookingService) ListBySpace(ctx context.Context, spaceID string) ([]model.Booking, error) {
	if spaceID == "" {
		return nil, apperror.Validation("Space ID is required")
	}
	out, err := s.store.ListBySpace(ctx, spaceID)
	if err != nil {
		return nil, apperror.Internal("Failed to fetch bookings", err)
	}
	return out, nil
}

// ListByUser returns a user's bookings.  Only the user or an admin may look.
func (s *BookingService) ListByUser(ctx context.Context, actor Actor, userID string) ([]model.UserBooking, error) {
	if userID != actor.ID && !actor.IsAdmin() {
		return nil, apperror.Forbidden("You can only view your own bookings")
	}
	out, err := s.store.ListByUser(ctx, userID)
	if err != nil {
		return nil, apperror.Internal("Failed to fetch bookings", err)
	}
	return out, nil
}

func (s *BookingService) ListAll(ctx context.Context) ([]model.AdminBooking, error) {
	out, err := s.store.ListAll(ctx)
	if err != nil {
		return nil, apperror.Internal("Failed to fetch bookings", err)
	}
	return out, nil
}

// Cancel deletes a booking owned by the actor, or any booking for an admin.
func (s *BookingService) Cancel(ctx context.Context, actor Actor, id string) error {
	b, err := s.store.GetByID(ctx, id)
	if errors.Is(err, repository.ErrBookingNotFound) {
		return apperror.NotFound("Booking")
	}
	if err != nil {
		return apperror.Internal("Failed to load booking", err)
	}
	if b.UserID != actor.ID && !actor.IsAdmin() {
		return apperror.Forbidden("You can only cancel your own bookings")
	}
	if err := s.store.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrBookingNotFound) {
			return apperror.NotFound("Booking")
		}
		return apperror.Internal("Failed to cancel booking", err)
	}
	s.audit.Record(actor.ID, model.ActionBookingCancel, map[string]any{
		"booking_id": b.ID,
		"space_id":   b.SpaceID,
		"user_id":    b.UserID,
	})
	return nil
}

func validateInterval(start, end time.Time) error {
	if start.IsZero() || end.IsZero() {
		return apperror.Validation("Validation failed",
			apperror.FieldError{Field: "start_time", Message: "start_time and end_time are required"})
	}
	if !start.Before(end) {
		return apperror.Validation("Validation failed",
			apperror.FieldError{Field: "end_time", Message: "End time must be after start time"})
	}
	return nil
}

func uniqueStrings(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}
